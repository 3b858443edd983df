// Package watch serves the server-rendered lecture page.
package watch

import (
	"context"
	"errors"
	"html/template"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/lecturecast/lecturecast/internal/analytics"
	"github.com/lecturecast/lecturecast/internal/episode"
	"github.com/lecturecast/lecturecast/internal/httputil"
	"github.com/lecturecast/lecturecast/internal/languages"
	"github.com/lecturecast/lecturecast/internal/player"
	"github.com/lecturecast/lecturecast/internal/ratelimit"
	"github.com/lecturecast/lecturecast/internal/validate"
)

const defaultVideoURLTTL = 4 * time.Hour

type EpisodeStore interface {
	Get(ctx context.Context, id string) (*episode.Episode, error)
}

type VideoSigner interface {
	GenerateDownloadURL(ctx context.Context, key string, expiry time.Duration) (string, error)
}

// Starter opens a player session and loads its timeline. A non-nil player
// returned with an error is a live session whose timeline failed to load.
type Starter interface {
	Start(ctx context.Context, ep *episode.Episode, language string, viewer analytics.Viewer) (*player.Player, string, error)
}

type Config struct {
	Episodes      EpisodeStore
	Videos        VideoSigner
	Sessions      Starter
	Secret        string
	SecureCookies bool
	VideoURLTTL   time.Duration
}

type Handler struct {
	cfg Config
}

func NewHandler(cfg Config) *Handler {
	if cfg.VideoURLTTL <= 0 {
		cfg.VideoURLTTL = defaultVideoURLTTL
	}
	return &Handler{cfg: cfg}
}

var pageTemplate = template.Must(template.New("watch").Parse(`<!DOCTYPE html>
<html lang="{{.Language}}">
<head>
    <meta charset="utf-8">
    <meta name="viewport" content="width=device-width, initial-scale=1">
    <title>{{.Title}}</title>
    <meta property="og:title" content="{{.Title}}">
    <meta property="og:type" content="video.other">
    <link rel="stylesheet" href="/static/player.css">
    <style nonce="{{.Nonce}}">
        * { margin: 0; padding: 0; box-sizing: border-box; }
        body {
            background: #0a1628;
            color: #ffffff;
            font-family: -apple-system, BlinkMacSystemFont, "Segoe UI", Roboto, sans-serif;
        }
        .container { max-width: 960px; margin: 0 auto; padding: 2rem 1rem; }
        video { width: 100%; border-radius: 8px; background: #000; }
        h1 { margin: 1rem 0 2rem; font-size: 1.5rem; font-weight: 600; }
        form { margin-top: 1rem; }
    </style>
</head>
<body>
    <div class="container" id="lecture" data-token="{{.Token}}"{{with .Start}} data-start="{{.}}"{{end}}>
        <video controls playsinline crossorigin="anonymous"{{with .VideoURL}} src="{{.}}"{{end}}></video>
        <h1>{{.Title}}</h1>
        {{.Timeline}}
        <p class="caption-preview" aria-live="polite"></p>
        {{if gt (len .Languages) 1}}
        <form method="get">
            <select name="language" aria-label="Caption language">
                {{range .Languages}}<option value="{{.Code}}"{{if .Selected}} selected{{end}}>{{.Name}}</option>{{end}}
            </select>
        </form>
        {{end}}
    </div>
    <script nonce="{{.Nonce}}" src="/static/player.js"></script>
</body>
</html>`))

var passwordTemplate = template.Must(template.New("watch-password").Parse(`<!DOCTYPE html>
<html lang="en">
<head>
    <meta charset="utf-8">
    <meta name="viewport" content="width=device-width, initial-scale=1">
    <title>{{.Title}}</title>
    <style nonce="{{.Nonce}}">
        body { background: #0a1628; color: #fff; font-family: -apple-system, BlinkMacSystemFont, "Segoe UI", Roboto, sans-serif; }
        .container { max-width: 420px; margin: 6rem auto; padding: 0 1rem; text-align: center; }
        input[type="password"] { width: 100%; padding: 0.75rem; margin: 1rem 0; border-radius: 6px; border: 1px solid #334155; }
        .error { color: #f87171; display: none; }
    </style>
</head>
<body>
    <div class="container">
        <h1>This lecture is password protected</h1>
        <form id="password-form">
            <input type="password" id="password-input" placeholder="Password" required autofocus>
            <button type="submit">Watch</button>
        </form>
        <p class="error" id="password-error">Incorrect password</p>
    </div>
    <script nonce="{{.Nonce}}">
        document.getElementById('password-form').addEventListener('submit', function(e) {
            e.preventDefault();
            fetch('/api/episodes/{{.EpisodeID}}/verify', {
                method: 'POST',
                headers: {'Content-Type': 'application/json'},
                body: JSON.stringify({password: document.getElementById('password-input').value})
            }).then(function(res) {
                if (res.ok) { window.location.reload(); }
                else { document.getElementById('password-error').style.display = 'block'; }
            });
        });
    </script>
</body>
</html>`))

type pageData struct {
	Title     string
	Language  string
	VideoURL  string
	Token     string
	Start     int
	Nonce     string
	Timeline  template.HTML
	Languages []languages.Option
}

type passwordPageData struct {
	Title     string
	EpisodeID string
	Nonce     string
}

// Page renders the lecture with a fresh player session and its timeline.
func (h *Handler) Page(w http.ResponseWriter, r *http.Request) {
	ep, ok := h.episode(w, r)
	if !ok {
		return
	}
	nonce := httputil.NonceFromContext(r.Context())

	if !HasAccess(r, h.cfg.Secret, ep) {
		h.render(w, passwordTemplate, passwordPageData{Title: ep.Title, EpisodeID: ep.ID, Nonce: nonce})
		return
	}

	language := r.URL.Query().Get("language")
	if language == "" || validate.Language(language) != "" {
		language = episode.DefaultLanguage
	}
	viewer := analytics.Viewer{IP: ratelimit.ClientIP(r), UserAgent: r.UserAgent()}

	p, token, err := h.cfg.Sessions.Start(r.Context(), ep, language, viewer)
	if p == nil {
		slog.Error("watch: start session failed", "episode", ep.ID, "error", err)
		http.Error(w, "internal server error", http.StatusInternalServerError)
		return
	}
	if err != nil {
		slog.Warn("watch: timeline unavailable", "episode", ep.ID, "session", p.ID(), "error", err)
	}

	var videoURL string
	if ep.VideoKey != "" && h.cfg.Videos != nil {
		videoURL, err = h.cfg.Videos.GenerateDownloadURL(r.Context(), ep.VideoKey, h.cfg.VideoURLTTL)
		if err != nil {
			slog.Error("watch: presign video failed", "episode", ep.ID, "error", err)
			http.Error(w, "internal server error", http.StatusInternalServerError)
			return
		}
	}

	markup, err := p.HTML()
	if err != nil {
		slog.Error("watch: render timeline failed", "episode", ep.ID, "error", err)
		http.Error(w, "internal server error", http.StatusInternalServerError)
		return
	}

	snap := p.Snapshot()
	h.render(w, pageTemplate, pageData{
		Title:     ep.Title,
		Language:  snap.Language,
		VideoURL:  videoURL,
		Token:     token,
		Start:     parseStartTime(r.URL.Query().Get("t")),
		Nonce:     nonce,
		Timeline:  markup,
		Languages: languages.Options(snap.Languages, snap.Language),
	})
}

type verifyRequest struct {
	Password string `json:"password"`
}

// Verify checks an episode password and sets the access cookie.
func (h *Handler) Verify(w http.ResponseWriter, r *http.Request) {
	var req verifyRequest
	if err := httputil.DecodeJSON(w, r, &req); err != nil {
		httputil.WriteError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if msg := validate.Password(req.Password); msg != "" {
		httputil.WriteError(w, http.StatusBadRequest, msg)
		return
	}

	ep, err := h.cfg.Episodes.Get(r.Context(), chi.URLParam(r, "id"))
	if errors.Is(err, episode.ErrNotFound) {
		httputil.WriteError(w, http.StatusNotFound, "episode not found")
		return
	}
	if err != nil {
		slog.Error("watch: load episode failed", "error", err)
		httputil.WriteError(w, http.StatusInternalServerError, "internal server error")
		return
	}

	if !ep.Protected() {
		w.WriteHeader(http.StatusOK)
		return
	}
	if !ep.CheckPassword(req.Password) {
		httputil.WriteError(w, http.StatusForbidden, "incorrect password")
		return
	}

	setAccessCookie(w, ep.ID, signAccess(h.cfg.Secret, ep.ID, *ep.PasswordHash), h.cfg.SecureCookies)
	w.WriteHeader(http.StatusOK)
}

func (h *Handler) episode(w http.ResponseWriter, r *http.Request) (*episode.Episode, bool) {
	ep, err := h.cfg.Episodes.Get(r.Context(), chi.URLParam(r, "id"))
	if errors.Is(err, episode.ErrNotFound) {
		http.NotFound(w, r)
		return nil, false
	}
	if err != nil {
		slog.Error("watch: load episode failed", "error", err)
		http.Error(w, "internal server error", http.StatusInternalServerError)
		return nil, false
	}
	return ep, true
}

func (h *Handler) render(w http.ResponseWriter, tmpl *template.Template, data any) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Header().Set("Cache-Control", "no-store")
	if err := tmpl.Execute(w, data); err != nil {
		slog.Error("watch: render page failed", "template", tmpl.Name(), "error", err)
	}
}
