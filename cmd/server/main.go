package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/dgallion1/docstruct/internal/api"
	"github.com/dgallion1/docstruct/internal/config"
	"github.com/dgallion1/docstruct/internal/outline"
	"github.com/dgallion1/docstruct/internal/parser"
	"github.com/dgallion1/docstruct/internal/pathstore"
	"github.com/dgallion1/docstruct/internal/pipeline"
	"github.com/dgallion1/docstruct/internal/store"
)

func main() {
	cfg := config.Load()
	log := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: cfg.LogLevel}))

	if err := cfg.Validate(); err != nil {
		log.Error("invalid configuration", "error", err)
		os.Exit(1)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	st, err := store.New(cfg.DBPath)
	if err != nil {
		log.Error("open database", "path", cfg.DBPath, "error", err)
		os.Exit(1)
	}

	// Outline extraction, in priority order.
	stats := outline.NewMethodStats(time.Hour)
	extractors := outline.DefaultExtractors(cfg.InferMaxPages, parser.Options{PDFFallbackPdftotext: cfg.PDFFallbackPdftotext})
	sel := outline.NewSelector(log, stats, extractors...)

	// Publication is optional.
	var pub *pathstore.Publisher
	if cfg.PathstoreURL != "" {
		pub = pathstore.NewPublisher(pathstore.NewClient(cfg.PathstoreURL, cfg.PathstoreAPIKey), log)
		log.Info("pathstore publication enabled", "url", cfg.PathstoreURL)
	}

	// Initialize pipeline.
	orch := pipeline.NewOrchestrator(cfg, st, sel, pub, log)
	orch.Start(ctx)

	// Initialize HTTP server.
	srv := api.NewServer(orch, st, stats, log, cfg)

	httpServer := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      srv,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 120 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Graceful shutdown.
	stopped := make(chan struct{})
	go func() {
		defer close(stopped)
		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
		<-sigCh
		log.Info("shutting down...")

		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer shutdownCancel()
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			log.Warn("http shutdown", "error", err)
		}

		orch.Stop()
		if pub != nil {
			pub.Close()
		}
		if err := st.Close(); err != nil {
			log.Warn("close database", "error", err)
		}
	}()

	log.Info("starting docstruct", "port", cfg.Port, "methods", sel.Methods(), "workers", cfg.WorkerCount)
	if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		log.Error("server error", "error", err)
		os.Exit(1)
	}
	<-stopped
}
