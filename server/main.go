package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/gin-gonic/gin"
	"github.com/phambaophuc/convert-toolkit/internal/config"
	"github.com/phambaophuc/convert-toolkit/internal/http/handlers"
	"github.com/phambaophuc/convert-toolkit/internal/http/routes"
	"github.com/phambaophuc/convert-toolkit/internal/models"
	"github.com/phambaophuc/convert-toolkit/internal/services/auth"
	"github.com/phambaophuc/convert-toolkit/internal/services/engine"
	"github.com/phambaophuc/convert-toolkit/internal/services/links"
	"github.com/phambaophuc/convert-toolkit/internal/services/media"
	"github.com/phambaophuc/convert-toolkit/internal/services/pdf"
	"github.com/phambaophuc/convert-toolkit/internal/services/preferences"
	"github.com/phambaophuc/convert-toolkit/internal/services/processor"
	"github.com/phambaophuc/convert-toolkit/internal/services/queue"
	"github.com/phambaophuc/convert-toolkit/internal/services/resources"
	"github.com/phambaophuc/convert-toolkit/internal/services/storage"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		log.Fatal("Failed to load configuration:", err)
	}

	// Initialize logger
	logger, err := newLogger(cfg.Server.GinMode)
	if err != nil {
		log.Fatal("Failed to initialize logger:", err)
	}
	defer logger.Sync()

	gin.SetMode(cfg.Server.GinMode)

	// Redis backs the result cache and the short link store. Without an
	// external server an embedded one keeps both working for this process.
	var embedded *miniredis.Miniredis
	var storageSvc *storage.StorageService
	if cfg.Redis.Enabled {
		storageSvc = storage.NewStorageService(cfg)
	} else {
		embedded, err = miniredis.Run()
		if err != nil {
			logger.Fatal("Failed to start embedded redis", zap.Error(err))
		}
		storageSvc = storage.NewStorageServiceWithClient(
			redis.NewClient(&redis.Options{Addr: embedded.Addr()}),
			cfg.Storage.CacheDuration,
		)
		logger.Info("Using embedded redis", zap.String("addr", embedded.Addr()))
	}

	// Job events go to SSE subscribers and to RabbitMQ when configured.
	hub := queue.NewHub()
	publishers := queue.MultiPublisher{hub}
	var broker *queue.AMQPPublisher
	if cfg.RabbitMQ.Enabled {
		broker, err = queue.NewAMQPPublisher(cfg.RabbitMQ.URL, cfg.RabbitMQ.Exchange, logger)
		if err != nil {
			logger.Warn("Failed to initialize queue publisher", zap.Error(err))
			// Continue without the broker for basic functionality
		}
	}
	if broker != nil {
		publishers = append(publishers, broker)
	} else {
		publishers = append(publishers, queue.NewLogPublisher(logger))
	}

	// External engines
	gs := engine.NewRunner("ghostscript", cfg.Engines.GhostscriptPath, cfg.Engines.Timeout, logger)
	ffmpeg := engine.NewRunner("ffmpeg", cfg.Engines.FFmpegPath, cfg.Engines.Timeout, logger)
	rembg := engine.NewRunner("rembg", cfg.Engines.RembgPath, cfg.Engines.Timeout, logger)
	whisper := engine.NewRunner("whisper", cfg.Engines.WhisperPath, cfg.Engines.Timeout, logger)

	// Initialize services
	registry := resources.NewRegistry(cfg.Server.PublicBaseURL, logger)
	registry.OnRelease(func(h models.Handle) {
		logger.Debug("Handle released", zap.String("handle_id", h.ID), zap.String("owner", h.Owner))
	})

	imageProcessor := processor.NewImageProcessor(logger, storageSvc)
	sessionManager := processor.NewSessionManager(imageProcessor, registry, logger)
	pdfService := pdf.NewService(gs, cfg.Engines.RenderScale, logger)
	mediaService := media.NewService(ffmpeg, rembg, whisper, logger)
	queueService := queue.NewQueueService(publishers, logger)

	db, err := preferences.Open(cfg.Database.Path)
	if err != nil {
		logger.Fatal("Failed to open preferences database", zap.Error(err))
	}
	prefsService := preferences.NewService(db, logger)

	var identity auth.IdentityService = auth.Disabled{}
	if cfg.AuthEnabled() {
		identity = auth.NewSupabase(cfg.Supabase.URL, cfg.Supabase.KEY, logger)
	} else {
		logger.Info("Identity service not configured, running in no-auth mode")
	}
	appState := auth.NewAppState(identity, cfg.Supabase.SessionTTL, logger)
	checkout := auth.NewCheckoutClient(cfg.Supabase.URL, cfg.Supabase.KEY, logger)
	shortener := links.NewShortenerClient(cfg.Supabase.URL, cfg.Supabase.KEY, logger)
	shortLinks := storage.NewShortLinkStore(storageSvc.Client())

	// Background batch runs stop before their next job on shutdown.
	runCtx, cancelRuns := context.WithCancel(context.Background())
	defer cancelRuns()

	// Initialize handlers
	checks := []handlers.ServiceChecker{storageSvc}
	if broker != nil {
		checks = append(checks, handlers.CheckFunc(func(context.Context) map[string]string {
			return map[string]string{"rabbitmq": broker.HealthCheck()}
		}))
	}

	router := routes.NewRouter(routes.Handlers{
		Health: handlers.NewHealthHandler(
			func() map[string]bool {
				engines := mediaService.Engines()
				engines[gs.Name()] = pdfService.Available()
				return engines
			},
			func() string {
				if identity.Enabled() {
					return "supabase"
				}
				return "disabled"
			},
			checks...,
		),
		Stats:       handlers.NewStatsHandler(storageSvc, queueService, logger),
		Images:      handlers.NewImageHandler(imageProcessor, registry, prefsService, logger, cfg),
		Sessions:    handlers.NewSessionHandler(sessionManager, prefsService, logger, cfg),
		Batches:     handlers.NewBatchHandler(runCtx, queueService, hub, imageProcessor, pdfService, prefsService, logger, cfg),
		PDF:         handlers.NewPDFHandler(pdfService, registry, prefsService, logger, cfg),
		Media:       handlers.NewMediaHandler(mediaService, registry, logger, cfg),
		Text:        handlers.NewTextHandler(),
		Links:       handlers.NewLinkHandler(shortener, shortLinks, cfg.Server.PublicBaseURL, logger),
		Auth:        handlers.NewAuthHandler(appState, checkout, logger),
		Preferences: handlers.NewPreferencesHandler(prefsService, logger),
		Handles:     handlers.NewHandleHandler(registry),
	}, cfg, logger)

	// Create HTTP server
	server := &http.Server{
		Addr:         cfg.Addr(),
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		Handler:      router.SetupRoutes(),
	}

	// Start server
	go func() {
		logger.Info("Starting server", zap.String("addr", server.Addr))
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("Server failed to start", zap.Error(err))
		}
	}()

	// Wait for interrupt signal to gracefully shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("Shutting down server...")
	cancelRuns()

	// Graceful shutdown
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		logger.Error("Server forced to shutdown", zap.Error(err))
	}

	sessionManager.Close()
	registry.Close()
	appState.Close()
	if broker != nil {
		broker.Close()
	}
	if err := storageSvc.Close(); err != nil {
		logger.Warn("Failed to close redis client", zap.Error(err))
	}
	if embedded != nil {
		embedded.Close()
	}
	if sqlDB, err := db.DB(); err == nil {
		sqlDB.Close()
	}

	logger.Info("Server exited")
}

func newLogger(mode string) (*zap.Logger, error) {
	if mode == gin.DebugMode {
		return zap.NewDevelopment()
	}
	return zap.NewProduction()
}
