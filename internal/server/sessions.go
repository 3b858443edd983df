package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/lecturecast/lecturecast/internal/analytics"
	"github.com/lecturecast/lecturecast/internal/auth"
	"github.com/lecturecast/lecturecast/internal/episode"
	"github.com/lecturecast/lecturecast/internal/events"
	"github.com/lecturecast/lecturecast/internal/httputil"
	"github.com/lecturecast/lecturecast/internal/languages"
	"github.com/lecturecast/lecturecast/internal/loader"
	"github.com/lecturecast/lecturecast/internal/player"
	"github.com/lecturecast/lecturecast/internal/ratelimit"
	"github.com/lecturecast/lecturecast/internal/validate"
	"github.com/lecturecast/lecturecast/internal/watch"
)

// sessionStarter creates a player, wires analytics onto its bus, issues the
// session token and loads the first timeline.
type sessionStarter struct {
	manager  *player.Manager
	reporter *analytics.Reporter
	secret   string
	ttl      time.Duration
}

func (s *sessionStarter) Start(ctx context.Context, ep *episode.Episode, language string, viewer analytics.Viewer) (*player.Player, string, error) {
	p := s.manager.Create(ep)
	token, err := auth.GenerateSessionToken(s.secret, p.ID(), ep.ID, s.ttl)
	if err != nil {
		s.manager.Remove(p.ID())
		return nil, "", fmt.Errorf("generate session token: %w", err)
	}
	if s.reporter != nil {
		s.reporter.Attach(p.Bus(), p.ID(), ep.ID, viewer)
	}
	return p, token, p.Load(ctx, language)
}

type episodeResponse struct {
	ID        string             `json:"id"`
	Title     string             `json:"title"`
	Protected bool               `json:"protected"`
	Languages []languages.Option `json:"languages"`
}

type createSessionRequest struct {
	Language string `json:"language"`
	Password string `json:"password"`
}

type sessionResponse struct {
	Token    string           `json:"token,omitempty"`
	Session  player.Snapshot  `json:"session"`
	Commands []player.Command `json:"commands"`
	Error    string           `json:"error,omitempty"`
}

func (s *Server) loadEpisode(w http.ResponseWriter, r *http.Request) (*episode.Episode, bool) {
	id := chi.URLParam(r, "id")
	if msg := validate.EpisodeID(id); msg != "" {
		httputil.WriteError(w, http.StatusBadRequest, msg)
		return nil, false
	}
	ep, err := s.cfg.Episodes.Get(r.Context(), id)
	if errors.Is(err, episode.ErrNotFound) {
		httputil.WriteError(w, http.StatusNotFound, "episode not found")
		return nil, false
	}
	if err != nil {
		slog.Error("episode: load failed", "episode", id, "error", err)
		httputil.WriteError(w, http.StatusInternalServerError, "internal server error")
		return nil, false
	}
	return ep, true
}

func (s *Server) handleLimits(w http.ResponseWriter, r *http.Request) {
	httputil.WriteJSON(w, http.StatusOK, validate.FieldLimits())
}

func (s *Server) handleEpisode(w http.ResponseWriter, r *http.Request) {
	ep, ok := s.loadEpisode(w, r)
	if !ok {
		return
	}
	httputil.WriteJSON(w, http.StatusOK, episodeResponse{
		ID:        ep.ID,
		Title:     ep.Title,
		Protected: ep.Protected(),
		Languages: languages.Options(ep.Languages(), episode.DefaultLanguage),
	})
}

func (s *Server) handleCreateSession(w http.ResponseWriter, r *http.Request) {
	var req createSessionRequest
	if err := httputil.DecodeJSON(w, r, &req); err != nil {
		httputil.WriteError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if msg := validate.First(validate.Language(req.Language), validate.Password(req.Password)); msg != "" {
		httputil.WriteError(w, http.StatusBadRequest, msg)
		return
	}

	ep, ok := s.loadEpisode(w, r)
	if !ok {
		return
	}
	if !watch.HasAccess(r, s.cfg.SessionSecret, ep) && !ep.CheckPassword(req.Password) {
		httputil.WriteError(w, http.StatusForbidden, "incorrect password")
		return
	}

	language := req.Language
	if language == "" {
		language = episode.DefaultLanguage
	}
	viewer := analytics.Viewer{IP: ratelimit.ClientIP(r), UserAgent: r.UserAgent()}

	p, token, err := s.starter.Start(r.Context(), ep, language, viewer)
	if p == nil {
		slog.Error("session: start failed", "episode", ep.ID, "error", err)
		httputil.WriteError(w, http.StatusInternalServerError, "internal server error")
		return
	}

	resp := sessionResponse{Token: token, Session: p.Snapshot(), Commands: p.Drain()}
	if err != nil {
		slog.Warn("session: timeline unavailable", "episode", ep.ID, "session", p.ID(), "error", err)
		resp.Error = "timeline unavailable"
		httputil.WriteJSON(w, http.StatusBadGateway, resp)
		return
	}
	httputil.WriteJSON(w, http.StatusCreated, resp)
}

// sessionPlayer resolves the player named by the bearer token.
func (s *Server) sessionPlayer(w http.ResponseWriter, r *http.Request) (*player.Player, bool) {
	claims := auth.ClaimsFromContext(r.Context())
	if claims == nil {
		httputil.WriteError(w, http.StatusUnauthorized, "unauthorized")
		return nil, false
	}
	p, err := s.cfg.Sessions.Get(claims.SessionID)
	if errors.Is(err, player.ErrSessionNotFound) {
		httputil.WriteError(w, http.StatusNotFound, "session not found")
		return nil, false
	}
	if err != nil || p.Episode().ID != claims.EpisodeID {
		httputil.WriteError(w, http.StatusUnauthorized, "invalid token")
		return nil, false
	}
	return p, true
}

func writeSession(w http.ResponseWriter, status int, p *player.Player) {
	httputil.WriteJSON(w, status, sessionResponse{Session: p.Snapshot(), Commands: p.Drain()})
}

// respond writes the session after an interaction. Bus handler failures are
// logged and the session is written either way.
func respond(w http.ResponseWriter, p *player.Player, op string, err error) {
	if err != nil {
		slog.Error("session: "+op+" failed", "session", p.ID(), "error", err)
	}
	writeSession(w, http.StatusOK, p)
}

func (s *Server) handleSession(w http.ResponseWriter, r *http.Request) {
	p, ok := s.sessionPlayer(w, r)
	if !ok {
		return
	}
	writeSession(w, http.StatusOK, p)
}

type languageRequest struct {
	Language string `json:"language"`
}

func (s *Server) handleLanguage(w http.ResponseWriter, r *http.Request) {
	p, ok := s.sessionPlayer(w, r)
	if !ok {
		return
	}
	var req languageRequest
	if err := httputil.DecodeJSON(w, r, &req); err != nil || req.Language == "" {
		httputil.WriteError(w, http.StatusBadRequest, "language is required")
		return
	}
	if msg := validate.Language(req.Language); msg != "" {
		httputil.WriteError(w, http.StatusBadRequest, msg)
		return
	}

	err := p.ChangeLanguage(r.Context(), req.Language)
	switch {
	case err == nil, errors.Is(err, loader.ErrStale):
		writeSession(w, http.StatusOK, p)
	default:
		slog.Warn("session: language change failed", "session", p.ID(), "language", req.Language, "error", err)
		httputil.WriteJSON(w, http.StatusBadGateway, sessionResponse{
			Session:  p.Snapshot(),
			Commands: p.Drain(),
			Error:    "timeline unavailable",
		})
	}
}

type tickRequest struct {
	Time     float64 `json:"time"`
	Duration float64 `json:"duration"`
}

func (s *Server) handleTick(w http.ResponseWriter, r *http.Request) {
	p, ok := s.sessionPlayer(w, r)
	if !ok {
		return
	}
	var req tickRequest
	if err := httputil.DecodeJSON(w, r, &req); err != nil {
		httputil.WriteError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if msg := validate.First(validate.PlaybackTime(req.Time, "time"), validate.PlaybackTime(req.Duration, "duration")); msg != "" {
		httputil.WriteError(w, http.StatusBadRequest, msg)
		return
	}
	respond(w, p, "tick", p.Tick(req.Time, req.Duration))
}

type clickRequest struct {
	Index *int `json:"index"`
}

func (s *Server) handleClick(w http.ResponseWriter, r *http.Request) {
	p, ok := s.sessionPlayer(w, r)
	if !ok {
		return
	}
	var req clickRequest
	if err := httputil.DecodeJSON(w, r, &req); err != nil || req.Index == nil {
		httputil.WriteError(w, http.StatusBadRequest, "index is required")
		return
	}

	err := p.ClickElement(*req.Index)
	if errors.Is(err, player.ErrNoElement) {
		httputil.WriteError(w, http.StatusBadRequest, "no timeline element at index")
		return
	}
	respond(w, p, "click", err)
}

type backgroundRequest struct {
	PageX         float64 `json:"pageX"`
	ViewportWidth float64 `json:"viewportWidth"`
}

func (s *Server) handleBackground(w http.ResponseWriter, r *http.Request) {
	p, ok := s.sessionPlayer(w, r)
	if !ok {
		return
	}
	var req backgroundRequest
	if err := httputil.DecodeJSON(w, r, &req); err != nil {
		httputil.WriteError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	respond(w, p, "background click", p.ClickBackground(req.PageX, req.ViewportWidth))
}

func (s *Server) handleHover(w http.ResponseWriter, r *http.Request) {
	p, ok := s.sessionPlayer(w, r)
	if !ok {
		return
	}
	var req events.Pointer
	if err := httputil.DecodeJSON(w, r, &req); err != nil {
		httputil.WriteError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	respond(w, p, "hover", p.Hover(req))
}

func (s *Server) handleLeave(w http.ResponseWriter, r *http.Request) {
	p, ok := s.sessionPlayer(w, r)
	if !ok {
		return
	}
	respond(w, p, "leave", p.Leave())
}

func (s *Server) handleEndSession(w http.ResponseWriter, r *http.Request) {
	p, ok := s.sessionPlayer(w, r)
	if !ok {
		return
	}
	s.cfg.Sessions.Remove(p.ID())
	w.WriteHeader(http.StatusNoContent)
}
