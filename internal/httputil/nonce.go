package httputil

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"encoding/hex"
	"log/slog"
)

type contextKey string

const nonceKey contextKey = "csp-nonce"

func randomBytes(n int) []byte {
	b := make([]byte, n)
	if _, err := rand.Read(b); err != nil {
		slog.Error("httputil: read random bytes", "error", err)
		return nil
	}
	return b
}

// GenerateNonce returns a base64url CSP nonce, or "" if the system RNG fails.
func GenerateNonce() string {
	b := randomBytes(16)
	if b == nil {
		return ""
	}
	return base64.RawURLEncoding.EncodeToString(b)
}

// NewID returns a 32 character hex identifier for player sessions.
func NewID() string {
	b := randomBytes(16)
	if b == nil {
		return ""
	}
	return hex.EncodeToString(b)
}

func ContextWithNonce(ctx context.Context, nonce string) context.Context {
	return context.WithValue(ctx, nonceKey, nonce)
}

func NonceFromContext(ctx context.Context) string {
	nonce, _ := ctx.Value(nonceKey).(string)
	return nonce
}
