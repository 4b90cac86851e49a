package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jwebster45206/story-export/internal/config"
	"github.com/jwebster45206/story-export/internal/handlers"
	"github.com/jwebster45206/story-export/internal/logger"
	"github.com/jwebster45206/story-export/internal/middleware"
	"github.com/jwebster45206/story-export/internal/services/queue"
	"github.com/jwebster45206/story-export/internal/storage"
	"github.com/jwebster45206/story-export/pkg/export"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatal(err)
	}

	log := logger.Setup(cfg)

	log.Info("Starting Story Export API",
		"port", cfg.Port,
		"environment", cfg.Environment,
		"data_dir", cfg.DataDir,
		"max_step_depth", cfg.MaxStepDepth)

	store, err := storage.NewRedisStorage(cfg.RedisURL, cfg.DataDir, log)
	if err != nil {
		log.Error("Failed to create storage", "error", err)
		os.Exit(1)
	}
	storageCtx, storageCancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer storageCancel()

	if err := store.WaitForConnection(storageCtx); err != nil {
		log.Error("Failed to connect to storage", "error", err)
		os.Exit(1)
	}
	log.Info("Storage connection established successfully")

	queueClient, err := queue.NewClient(storageCtx, cfg.RedisURL, log)
	if err != nil {
		log.Error("Failed to create queue client", "error", err)
		os.Exit(1)
	}
	exportQueue := queue.NewExportQueue(queueClient, cfg.JobTTL)

	exporter := export.New(store, log, export.Config{MaxStepDepth: cfg.MaxStepDepth})

	mux := http.NewServeMux()

	healthHandler := handlers.NewHealthHandler(store, log)
	mux.Handle("/health", healthHandler)

	renderHandler := handlers.NewRenderHandler(exporter, log)
	mux.Handle("/v1/render", renderHandler)

	conditionsHandler := handlers.NewConditionsHandler(store, exporter, cfg.DefaultLanguage, log)
	mux.Handle("/v1/conditions/", conditionsHandler)

	placeholdersHandler := handlers.NewPlaceholdersHandler(log)
	mux.Handle("/v1/placeholders", placeholdersHandler)
	mux.Handle("/v1/placeholders/", placeholdersHandler)

	exportsHandler := handlers.NewExportsHandler(exportQueue, log)
	mux.Handle("/v1/exports", exportsHandler)
	mux.Handle("/v1/exports/", exportsHandler)

	eventsHandler := handlers.NewEventsHandler(queueClient.GetRedisClient(), log)
	mux.Handle("/v1/events/projects/", eventsHandler)

	handler := middleware.Logger(mux)
	server := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      handler,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		log.Info("Server starting", "addr", server.Addr)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error("Server failed to start", "error", err)
			os.Exit(1)
		}
	}()

	// Wait for interrupt signal to gracefully shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("Server is shutting down...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error("Server forced to shutdown", "error", err)
	}

	if err := queueClient.Close(); err != nil {
		log.Error("Error closing queue client", "error", err)
	}
	if err := store.Close(); err != nil {
		log.Error("Error closing storage connection", "error", err)
	}

	log.Info("Server exited")
}
