package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/lecturecast/lecturecast/internal/analytics"
	"github.com/lecturecast/lecturecast/internal/config"
	"github.com/lecturecast/lecturecast/internal/database"
	"github.com/lecturecast/lecturecast/internal/episode"
	"github.com/lecturecast/lecturecast/internal/geoip"
	"github.com/lecturecast/lecturecast/internal/loader"
	"github.com/lecturecast/lecturecast/internal/logger"
	"github.com/lecturecast/lecturecast/internal/player"
	"github.com/lecturecast/lecturecast/internal/server"
	"github.com/lecturecast/lecturecast/internal/storage"
	"github.com/lecturecast/lecturecast/internal/webhook"
	"github.com/lecturecast/lecturecast/web"
)

func main() {
	configFlag := flag.String("config", "", "path to a YAML config file (overrides LECTURECAST_CONFIG)")
	flag.Parse()

	cfg, err := config.Load(configPath(*configFlag))
	if err != nil {
		fatal("config load failed", err)
	}
	slog.SetDefault(logger.New(cfg.LogLevel))
	if err := cfg.Validate(); err != nil {
		fatal("invalid config", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	db, err := database.Connect(ctx, cfg.DatabaseURL)
	if err != nil {
		fatal("database connection failed", err)
	}
	defer db.Close()

	if err := db.Migrate(cfg.DatabaseURL); err != nil {
		fatal("database migration failed", err)
	}
	slog.Info("database migrations applied")

	store, err := storage.New(ctx, storage.Config{
		Endpoint:       cfg.S3.Endpoint,
		PublicEndpoint: cfg.S3.PublicEndpoint,
		Bucket:         cfg.S3.Bucket,
		AccessKey:      cfg.S3.AccessKey,
		SecretKey:      cfg.S3.SecretKey,
		Region:         cfg.S3.Region,
	})
	if err != nil {
		fatal("storage initialization failed", err)
	}
	if err := store.EnsureBucket(ctx); err != nil {
		fatal("storage bucket check failed", err)
	}
	slog.Info("storage bucket ready", "bucket", cfg.S3.Bucket)

	fetcher := &loader.Router{
		HTTP:     loader.NewHTTPFetcher(cfg.FetchTimeout, cfg.MaxCueBytes),
		Objects:  store,
		MaxBytes: cfg.MaxCueBytes,
	}

	geo := geoip.New(cfg.GeoIPPath)
	defer geo.Close()

	reporter := analytics.New(newDispatcher(cfg.Analytics), geo)
	sessions := player.NewManager(fetcher, cfg.SessionTTL)

	srv := server.New(server.Config{
		Pinger:          db,
		Episodes:        episode.NewStore(db.Pool),
		Sessions:        sessions,
		Videos:          store,
		Analytics:       reporter,
		StaticFS:        web.StaticFS,
		SessionSecret:   cfg.SessionSecret,
		SessionTTL:      cfg.SessionTTL,
		VideoURLTTL:     cfg.VideoURLTTL,
		BaseURL:         cfg.BaseURL,
		StorageEndpoint: storageOrigin(cfg.S3),
		FrameAncestors:  cfg.FrameAncestors,
		EnableDocs:      cfg.APIDocs,
		RateLimit: server.RateLimit{
			RequestsPerSecond: cfg.RateLimit.RequestsPerSecond,
			Burst:             cfg.RateLimit.Burst,
		},
	})

	workerCtx, workerCancel := context.WithCancel(context.Background())
	defer workerCancel()
	go sessions.Run(workerCtx)
	go srv.Run(workerCtx)

	httpServer := &http.Server{
		Addr:              fmt.Sprintf(":%s", cfg.Port),
		Handler:           srv,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      cfg.FetchTimeout + 30*time.Second,
		IdleTimeout:       120 * time.Second,
	}

	shutdownCh := make(chan os.Signal, 1)
	signal.Notify(shutdownCh, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		slog.Info("lecturecast listening", "port", cfg.Port)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			fatal("http server failed", err)
		}
	}()

	<-shutdownCh
	slog.Info("shutting down")
	workerCancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		fatal("shutdown failed", err)
	}
	reporter.Wait()
	slog.Info("shutdown complete")
}

func fatal(msg string, err error) {
	slog.Error(msg, "error", err)
	os.Exit(1)
}

func configPath(flagValue string) string {
	if flagValue != "" {
		return flagValue
	}
	return os.Getenv("LECTURECAST_CONFIG")
}

// newDispatcher returns nil when no webhook is configured, which keeps
// interaction analytics in the log only.
func newDispatcher(cfg config.Analytics) analytics.Dispatcher {
	client := webhook.New(cfg.WebhookURL, cfg.WebhookSecret)
	if !client.Enabled() {
		return nil
	}
	return client
}

// storageOrigin is the endpoint browsers load media from.
func storageOrigin(cfg config.S3) string {
	if cfg.PublicEndpoint != "" {
		return cfg.PublicEndpoint
	}
	return cfg.Endpoint
}
