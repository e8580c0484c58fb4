package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/AkutaZehy/Annoti/internal/api"
	"github.com/AkutaZehy/Annoti/internal/config"
	"github.com/AkutaZehy/Annoti/internal/session"
	"github.com/AkutaZehy/Annoti/internal/settings"
	"github.com/AkutaZehy/Annoti/internal/storage"
)

func main() {
	log := slog.New(slog.NewJSONHandler(os.Stdout, nil))

	cfg := config.Load()
	if err := os.MkdirAll(cfg.DataDir, 0o755); err != nil {
		log.Error("creating data directory", "dir", cfg.DataDir, "error", err)
		os.Exit(1)
	}

	store, err := storage.Open(cfg.DataDir, log)
	if err != nil {
		log.Error("opening database", "error", err)
		os.Exit(1)
	}

	settingsMgr := settings.NewManager(cfg.DataDir)
	typography, err := settingsMgr.LoadTypography()
	if err != nil {
		log.Error("loading typography", "error", err)
		os.Exit(1)
	}
	wrapWidth := cfg.WrapWidth
	if typography.WrapWidth > 0 {
		wrapWidth = typography.WrapWidth
	}

	sessions := session.NewManager(store, cfg.FlushDelay, wrapWidth, log)

	srv := api.NewServer(sessions, store, settingsMgr, log, cfg)

	httpServer := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      srv,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 120 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Graceful shutdown: flush the open document before closing the db.
	go func() {
		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
		<-sigCh
		log.Info("shutting down...")

		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer shutdownCancel()
		httpServer.Shutdown(shutdownCtx)

		if err := sessions.Close(); err != nil {
			log.Warn("flush on shutdown failed", "error", err)
		}
		store.Close()
	}()

	log.Info("starting annoti", "port", cfg.Port, "data_dir", cfg.DataDir)
	if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		log.Error("server error", "error", err)
		os.Exit(1)
	}
}
