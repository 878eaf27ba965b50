package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/krafity/krafity/internal/api"
	"github.com/krafity/krafity/internal/api/middleware"
	"github.com/krafity/krafity/internal/config"
	"github.com/krafity/krafity/internal/logger"
	"github.com/krafity/krafity/internal/provider"
	"github.com/krafity/krafity/internal/service"
	"github.com/krafity/krafity/internal/storage"
)

func main() {
	// Support CONFIG_PATH environment variable for production deployments
	configPath := os.Getenv("CONFIG_PATH")
	cfg, err := config.Load(configPath)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	// Initialize logger
	appLogger := logger.New(&logger.Config{
		Level:       cfg.Log.Level,
		Format:      cfg.Log.Format,
		ServiceName: "krafity",
		FilePath:    cfg.Log.FilePath,
		FileOnly:    cfg.Log.FileOnly,
		MaxSizeMB:   100,
		MaxBackups:  7,
		MaxAgeDays:  30,
		Compress:    true,
	})
	logger.SetDefaultLogger(appLogger)
	defer logger.Sync()

	// Initialize object storage
	objectStore, err := storage.NewS3Store(&storage.S3Config{
		Endpoint:   cfg.Storage.Endpoint,
		AccessKey:  cfg.Storage.AccessKey,
		SecretKey:  cfg.Storage.SecretKey,
		UseSSL:     cfg.Storage.UseSSL,
		Bucket:     cfg.Storage.Bucket,
		Region:     cfg.Storage.Region,
		PublicHost: cfg.Storage.PublicHost,
	})
	if err != nil {
		appLogger.WithError(err).Fatal("Failed to initialize storage")
	}

	ctx := context.Background()
	if err := objectStore.EnsureBucket(ctx); err != nil {
		appLogger.WithError(err).Fatal("Failed to ensure storage bucket")
	}

	// Initialize generation provider
	genProvider := provider.NewVertexProvider(&provider.VertexConfig{
		BaseURL:     cfg.Provider.BaseURL,
		APIKey:      cfg.Provider.APIKey,
		Project:     cfg.Provider.Project,
		Location:    cfg.Provider.Location,
		VideoModel:  cfg.Provider.VideoModel,
		VisionModel: cfg.Provider.VisionModel,
		Timeout:     time.Duration(cfg.Provider.TimeoutSeconds) * time.Second,
	})

	// Initialize services
	enrichService := service.NewEnrichmentService(genProvider, appLogger)

	jobStore := service.NewJobStore()
	jobService := service.NewJobService(jobStore, genProvider, enrichService, appLogger, service.JobConfig{
		DefaultDurationSeconds: cfg.Jobs.DefaultDurationSeconds,
		MinDurationSeconds:     cfg.Jobs.MinDurationSeconds,
		MaxDurationSeconds:     cfg.Jobs.MaxDurationSeconds,
		Retention:              time.Duration(cfg.Jobs.RetentionMinutes) * time.Minute,
		PublicHost:             cfg.Storage.PublicHost,
	})

	janitorCtx, stopJanitor := context.WithCancel(ctx)
	defer stopJanitor()
	jobService.StartJanitor(janitorCtx)

	mergeService := service.NewMergeService(objectStore, appLogger, service.MergeConfig{
		FFmpegBinary: cfg.Merge.FFmpegBinary,
		Timeout:      time.Duration(cfg.Merge.TimeoutSeconds) * time.Second,
	})

	// Setup router
	router := api.SetupRouter(jobService, mergeService, appLogger, cfg.Server.Mode, middleware.CORSConfig{
		AllowedOrigins:  cfg.Server.CORS.AllowedOrigins,
		AllowAllOrigins: cfg.Server.CORS.AllowAllOrigins,
	})

	srv := &http.Server{
		Addr:    fmt.Sprintf(":%d", cfg.Server.Port),
		Handler: router,
	}

	// Start server in goroutine
	go func() {
		appLogger.WithFields(logger.Fields{
			"port": cfg.Server.Port,
			"mode": cfg.Server.Mode,
		}).Info("Starting API server")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			appLogger.WithError(err).Fatal("Failed to start server")
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	appLogger.Info("Shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		appLogger.WithError(err).Fatal("Server forced to shutdown")
	}

	appLogger.Info("Server exited")
}
