package container

import (
	"context"
	"fmt"
	"net/http"

	"github.com/anime-shed/skintone-inspector/internal/analyzer"
	"github.com/anime-shed/skintone-inspector/internal/config"
	"github.com/anime-shed/skintone-inspector/internal/factory"
	"github.com/anime-shed/skintone-inspector/internal/logger"
	"github.com/anime-shed/skintone-inspector/internal/observer"
	"github.com/anime-shed/skintone-inspector/internal/repository"
	"github.com/anime-shed/skintone-inspector/internal/service"
	"github.com/anime-shed/skintone-inspector/internal/transport"
)

// Container holds all application dependencies
type Container struct {
	config               *config.Config
	imageAnalyzer        analyzer.ImageAnalyzer
	workerPool           *analyzer.WorkerPool
	imageRepository      repository.ImageRepository
	metrics              *observer.MetricsObserver
	imageAnalysisService service.ImageAnalysisService
	handler              http.Handler
	closers              []func() error
}

// NewContainer creates a new dependency injection container
func NewContainer(ctx context.Context, cfg *config.Config) (*Container, error) {
	components := factory.NewComponentFactory(cfg)

	imageAnalyzer, err := components.AnalyzerFactory.CreateAnalyzer(cfg.ClusterEngine)
	if err != nil {
		return nil, fmt.Errorf("failed to create analyzer: %w", err)
	}

	blobs, err := components.StorageFactory.CreateBlobStorage()
	if err != nil {
		return nil, fmt.Errorf("failed to create blob storage: %w", err)
	}
	imageRepository := repository.NewImageRepository(components.StorageFactory.CreateFetcher(), blobs)

	c := &Container{
		config:          cfg,
		imageAnalyzer:   imageAnalyzer,
		imageRepository: imageRepository,
		metrics:         observer.NewMetricsObserver(),
	}

	cache, closeCache, err := components.StorageFactory.CreateCache(ctx)
	if err != nil {
		// The cache only saves work; run without it.
		logger.WithError(err).Warn("Result cache disabled")
		cache = nil
	} else if closeCache != nil {
		c.closers = append(c.closers, closeCache)
	}

	events := observer.NewEventPublisher()
	events.Subscribe(observer.NewLoggingObserver(logger.Logger))
	events.Subscribe(c.metrics)

	c.workerPool = analyzer.NewWorkerPool(cfg.Workers)
	c.workerPool.Start()

	c.imageAnalysisService, err = service.NewImageAnalysisService(service.Dependencies{
		Repository:      imageRepository,
		Analyzer:        imageAnalyzer,
		Pool:            c.workerPool,
		Cache:           cache,
		Assets:          components.StorageFactory.CreateAssetStore(),
		Events:          events,
		AnalysisTimeout: cfg.AnalysisTimeout,
		FetchTimeout:    cfg.ImageFetchTimeout,
		MaxImagePixels:  cfg.MaxImagePixels,
	})
	if err != nil {
		c.Close()
		return nil, fmt.Errorf("failed to create service: %w", err)
	}

	c.handler = transport.NewHandler(c.imageAnalysisService, c.metrics, c.workerPool, cfg)
	return c, nil
}

// Handler returns the HTTP handler
func (c *Container) Handler() http.Handler {
	return c.handler
}

// Config returns the configuration
func (c *Container) Config() *config.Config {
	return c.config
}

// Service returns the analysis service
func (c *Container) Service() service.ImageAnalysisService {
	return c.imageAnalysisService
}

// Close stops the worker pool and releases external clients
func (c *Container) Close() error {
	if c.workerPool != nil {
		c.workerPool.Close()
	}
	var firstErr error
	for _, closeFn := range c.closers {
		if err := closeFn(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	if c.imageAnalyzer != nil {
		if err := c.imageAnalyzer.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}
