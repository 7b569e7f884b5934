package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"segment-studio/internal/capture"
	"segment-studio/internal/media"
	"segment-studio/internal/platform/config"
	"segment-studio/internal/platform/logger"
	"segment-studio/internal/platform/metrics"
	"segment-studio/internal/storage"
	"segment-studio/internal/studio"

	"github.com/go-chi/chi/v5"
)

const shutdownTimeout = 10 * time.Second

func main() {
	_ = config.Load()
	cfg := config.FromEnv()

	log := logger.New(cfg.LogLevel, cfg.LogFormat)

	facings := make([]capture.Facing, 0, len(cfg.CameraFacings))
	for _, s := range cfg.CameraFacings {
		f, err := capture.ParseFacing(s)
		if err != nil {
			log.Warn("ignoring camera facing", "facing", s, "error", err)
			continue
		}
		facings = append(facings, f)
	}

	store, err := storage.NewLocal(cfg.MediaDir, cfg.PublicMediaURL, log)
	if err != nil {
		log.Error("media storage unavailable", "dir", cfg.MediaDir, "error", err)
		os.Exit(1)
	}
	identity := studio.StaticIdentity{
		ChannelID:   cfg.ChannelID,
		ChannelName: cfg.ChannelName,
		AvatarURL:   cfg.ChannelAvatar,
	}

	met := metrics.New()
	repo := studio.NewInMemoryRepository()
	svc := studio.NewService(repo, media.FFprobe{Timeout: cfg.ProbeTimeout}, store, identity, studio.ServiceConfig{
		MaxDuration:    cfg.MaxDuration,
		SyncTolerance:  cfg.SyncTolerance,
		Facings:        facings,
		ThumbnailWidth: cfg.ThumbnailWidth,
		Logger:         log,
		Metrics:        met,
	})
	h := studio.NewHandler(svc, log, met)

	r := chi.NewRouter()
	r.Use(logger.RequestLogger(log))
	r.Use(metrics.RequestMiddleware(met, "/metrics"))
	r.Get("/metrics", func(w http.ResponseWriter, r *http.Request) {
		met.Handler(func() { met.SetActiveSessions(svc.ActiveSessionCount()) }).ServeHTTP(w, r)
	})
	r.Handle("/media/*", http.StripPrefix("/media/", http.FileServer(http.Dir(cfg.MediaDir))))
	h.Routes(r)

	addr := ":" + cfg.Port
	srv := &http.Server{Addr: addr, Handler: r}

	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	log.Info("server starting",
		"port", cfg.Port,
		"max_duration", cfg.MaxDuration,
		"sync_tolerance", cfg.SyncTolerance,
		"media_dir", cfg.MediaDir,
		"log_level", cfg.LogLevel,
	)

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	<-sigCh

	log.Info("shutdown signal received, draining connections")

	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		log.Error("shutdown error", "error", err)
		os.Exit(1)
	}
	svc.Shutdown()

	log.Info("server stopped")
}
