package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/contentops/pdfmoderation/internal/config"
	"github.com/contentops/pdfmoderation/internal/rekognition"
	"github.com/contentops/pdfmoderation/internal/server"
	"github.com/contentops/pdfmoderation/internal/services"
	"github.com/contentops/pdfmoderation/internal/sightengine"
	"github.com/contentops/pdfmoderation/internal/store"
	"github.com/contentops/pdfmoderation/internal/store/filesystem"
	"github.com/contentops/pdfmoderation/internal/store/gcs"
	"github.com/contentops/pdfmoderation/internal/store/memory"
	"github.com/contentops/pdfmoderation/internal/store/s3"
)

func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))
	slog.SetDefault(logger)

	if err := run(); err != nil {
		slog.Error("Service failed.", "error", err)
		os.Exit(1)
	}
}

func run() error {
	ctx := context.Background()

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}

	objectStore, err := newObjectStore(ctx, cfg)
	if err != nil {
		return fmt.Errorf("failed to initialize object store: %w", err)
	}

	rekognitionClient, err := rekognition.NewClient(ctx, cfg.AWSRegion)
	if err != nil {
		return fmt.Errorf("failed to create rekognition client: %w", err)
	}
	sightengineClient := sightengine.NewClient(sightengine.Config{
		APIUser:   cfg.SightengineAPIUser,
		APISecret: cfg.SightengineAPISecret,
		Endpoint:  cfg.SightengineEndpoint,
	}, &http.Client{Timeout: cfg.RemoteCallTimeout})

	extractor := services.NewTextExtractor(rekognitionClient)
	visual := services.NewVisualModerator(rekognitionClient)
	textModerator := services.NewTextModerator(sightengineClient, cfg.SightengineLang)
	rasterizer := services.NewRasterizer(objectStore, cfg.PipelineConcurrency)
	pipeline := services.NewPipeline(objectStore, extractor, visual, textModerator, services.PipelineConfig{
		MinConfidence: cfg.PageMinConfidence,
		CallTimeout:   cfg.RemoteCallTimeout,
		Concurrency:   cfg.PipelineConcurrency,
	})

	srv := server.New(objectStore, rasterizer, pipeline, visual, cfg.ImageMinConfidence)
	httpServer := &http.Server{
		Addr:    ":" + cfg.Port,
		Handler: srv.Router(),
	}

	errCh := make(chan error, 1)
	go func() {
		slog.Info("Moderation service listening.", "port", cfg.Port)
		errCh <- httpServer.ListenAndServe()
	}()

	signalCh := make(chan os.Signal, 1)
	signal.Notify(signalCh, os.Interrupt, syscall.SIGTERM)

	select {
	case err := <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
	case sig := <-signalCh:
		slog.Info("Shutting down.", "signal", sig.String())
		shutdownCtx, cancel := context.WithTimeout(ctx, 15*time.Second)
		defer cancel()
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("shutdown failed: %w", err)
		}
	}
	return nil
}

// newObjectStore selects the storage backend from STORAGE_TYPE. Unset or
// unknown values fall back to the in-memory store.
func newObjectStore(ctx context.Context, cfg *config.Config) (store.ObjectStore, error) {
	storageType := config.GetEnv("STORAGE_TYPE", "")
	logger := slog.With("storageType", storageType)

	switch storageType {
	case "filesystem":
		basePath := config.GetEnv("LOCAL_STORAGE_PATH", "")
		if basePath == "" {
			return nil, fmt.Errorf("LOCAL_STORAGE_PATH must be set for filesystem storage")
		}
		logger.Info("Using storage backend.", "basePath", basePath)
		return filesystem.NewObjectStore(basePath), nil
	case "s3":
		bucket := config.GetEnv("S3_BUCKET_NAME", "")
		if bucket == "" {
			return nil, fmt.Errorf("S3_BUCKET_NAME must be set for s3 storage")
		}
		logger.Info("Using storage backend.", "bucket", bucket)
		return s3.NewObjectStore(ctx, bucket, cfg.AWSRegion)
	case "gcs":
		bucket := config.GetEnv("GCS_BUCKET_NAME", "")
		if bucket == "" {
			return nil, fmt.Errorf("GCS_BUCKET_NAME must be set for gcs storage")
		}
		logger.Info("Using storage backend.", "bucket", bucket)
		return gcs.NewObjectStore(ctx, bucket)
	default:
		logger.Info("Using storage backend.", "storageType", "in-memory")
		return memory.NewObjectStore(), nil
	}
}
