package server

import (
	"context"
	"io/fs"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/lecturecast/lecturecast/internal/analytics"
	"github.com/lecturecast/lecturecast/internal/auth"
	"github.com/lecturecast/lecturecast/internal/docs"
	"github.com/lecturecast/lecturecast/internal/player"
	"github.com/lecturecast/lecturecast/internal/ratelimit"
	"github.com/lecturecast/lecturecast/internal/watch"
)

type Pinger interface {
	Ping(ctx context.Context) error
}

type RateLimit struct {
	RequestsPerSecond float64
	Burst             int
}

type Config struct {
	Pinger          Pinger
	Episodes        watch.EpisodeStore
	Sessions        *player.Manager
	Videos          watch.VideoSigner
	Analytics       *analytics.Reporter
	StaticFS        fs.FS
	SessionSecret   string
	SessionTTL      time.Duration
	VideoURLTTL     time.Duration
	BaseURL         string
	StorageEndpoint string
	FrameAncestors  string
	EnableDocs      bool
	RateLimit       RateLimit
}

type Server struct {
	router   chi.Router
	pinger   Pinger
	cfg      Config
	starter  *sessionStarter
	watch    *watch.Handler
	limiter  *ratelimit.Limiter
	episodes *ratelimit.Limiter
	staticFS fs.FS
}

func New(cfg Config) *Server {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(slogMiddleware)
	r.Use(middleware.Recoverer)
	r.Use(securityHeaders(SecurityConfig{
		BaseURL:               cfg.BaseURL,
		StorageEndpoint:       cfg.StorageEndpoint,
		AllowedFrameAncestors: cfg.FrameAncestors,
	}))

	s := &Server{router: r, pinger: cfg.Pinger, cfg: cfg, staticFS: cfg.StaticFS}

	if cfg.Episodes != nil && cfg.Sessions != nil {
		if cfg.SessionTTL <= 0 {
			cfg.SessionTTL = 2 * time.Hour
		}
		s.starter = &sessionStarter{
			manager:  cfg.Sessions,
			reporter: cfg.Analytics,
			secret:   cfg.SessionSecret,
			ttl:      cfg.SessionTTL,
		}
		s.watch = watch.NewHandler(watch.Config{
			Episodes:      cfg.Episodes,
			Videos:        cfg.Videos,
			Sessions:      s.starter,
			Secret:        cfg.SessionSecret,
			SecureCookies: strings.HasPrefix(cfg.BaseURL, "https://"),
			VideoURLTTL:   cfg.VideoURLTTL,
		})

		rps, burst := cfg.RateLimit.RequestsPerSecond, cfg.RateLimit.Burst
		if rps <= 0 {
			rps, burst = 20, 40
		}
		s.limiter = ratelimit.NewLimiter(rps, burst).WithKey(sessionKey)
		s.episodes = ratelimit.NewLimiter(2, 10)
	}

	s.routes()
	return s
}

// Run sweeps idle rate limiter buckets until ctx is cancelled.
func (s *Server) Run(ctx context.Context) {
	var wg sync.WaitGroup
	for _, l := range []*ratelimit.Limiter{s.limiter, s.episodes} {
		if l == nil {
			continue
		}
		wg.Add(1)
		go func() {
			defer wg.Done()
			l.Run(ctx)
		}()
	}
	wg.Wait()
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

func (s *Server) routes() {
	s.router.Get("/api/health", s.handleHealth)
	s.router.Get("/api/limits", s.handleLimits)

	if s.cfg.EnableDocs {
		s.router.Get("/api/docs", docs.HandleDocs)
		s.router.Get("/api/docs/openapi.yaml", docs.HandleSpec)
	}

	if s.watch != nil {
		s.router.Route("/api/episodes/{id}", func(r chi.Router) {
			r.Use(s.episodes.Middleware)
			r.Get("/", s.handleEpisode)
			r.Post("/verify", s.watch.Verify)
			r.Post("/sessions", s.handleCreateSession)
		})

		s.router.Route("/api/session", func(r chi.Router) {
			r.Use(auth.Middleware(s.cfg.SessionSecret))
			r.Use(s.limiter.Middleware)
			r.Get("/", s.handleSession)
			r.Post("/language", s.handleLanguage)
			r.Post("/tick", s.handleTick)
			r.Post("/click", s.handleClick)
			r.Post("/background", s.handleBackground)
			r.Post("/hover", s.handleHover)
			r.Post("/leave", s.handleLeave)
			r.Delete("/", s.handleEndSession)
		})

		s.router.Get("/watch/{id}", s.watch.Page)
	}

	if s.staticFS != nil {
		s.router.Handle("/static/*", newStaticFileServer(s.staticFS))
	}
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	if s.pinger != nil {
		if err := s.pinger.Ping(r.Context()); err != nil {
			w.WriteHeader(http.StatusServiceUnavailable)
			_, _ = w.Write([]byte(`{"status":"unhealthy","error":"database unreachable"}`))
			return
		}
	}
	_, _ = w.Write([]byte(`{"status":"ok"}`))
}

func sessionKey(r *http.Request) string {
	if claims := auth.ClaimsFromContext(r.Context()); claims != nil {
		return "session:" + claims.SessionID
	}
	return ""
}
