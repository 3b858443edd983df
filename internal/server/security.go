package server

import (
	"net/http"
	"strings"

	"github.com/lecturecast/lecturecast/internal/httputil"
)

type SecurityConfig struct {
	BaseURL         string
	StorageEndpoint string
	// AllowedFrameAncestors is a space-separated list of origins that may
	// embed the watch page, such as a course LMS.
	AllowedFrameAncestors string
}

// contentSecurityPolicy builds the per-request policy. Timeline segments
// carry their flex weight and the progress gradient in style attributes,
// which nonces cannot cover.
func contentSecurityPolicy(cfg SecurityConfig, nonce string) string {
	storage := ""
	if cfg.StorageEndpoint != "" {
		storage = " " + cfg.StorageEndpoint
	}
	ancestors := "'self'"
	if cfg.AllowedFrameAncestors != "" {
		ancestors += " " + cfg.AllowedFrameAncestors
	}

	directives := []string{
		"default-src 'self'",
		"img-src 'self' data:" + storage,
		"media-src 'self' data:" + storage,
		"script-src 'self' 'nonce-" + nonce + "'",
		"style-src 'self' 'nonce-" + nonce + "'",
		"style-src-attr 'unsafe-inline'",
		"connect-src 'self'" + storage,
		"frame-ancestors " + ancestors,
	}
	return strings.Join(directives, "; ") + ";"
}

func securityHeaders(cfg SecurityConfig) func(http.Handler) http.Handler {
	strictTransport := strings.HasPrefix(cfg.BaseURL, "https://")

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			nonce := httputil.GenerateNonce()

			h := w.Header()
			h.Set("Referrer-Policy", "no-referrer")
			h.Set("X-Content-Type-Options", "nosniff")
			if cfg.AllowedFrameAncestors == "" {
				h.Set("X-Frame-Options", "SAMEORIGIN")
			}
			h.Set("Permissions-Policy", "camera=(), microphone=(), geolocation=(), display-capture=()")
			h.Set("Content-Security-Policy", contentSecurityPolicy(cfg, nonce))
			if strictTransport {
				h.Set("Strict-Transport-Security", "max-age=31536000; includeSubDomains")
			}

			next.ServeHTTP(w, r.WithContext(httputil.ContextWithNonce(r.Context(), nonce)))
		})
	}
}
