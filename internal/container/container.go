package container

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/anime-shed/veritas-go/internal/analyzer"
	"github.com/anime-shed/veritas-go/internal/config"
	"github.com/anime-shed/veritas-go/internal/factory"
	"github.com/anime-shed/veritas-go/internal/intake"
	"github.com/anime-shed/veritas-go/internal/logger"
	"github.com/anime-shed/veritas-go/internal/observer"
	"github.com/anime-shed/veritas-go/internal/ocr"
	"github.com/anime-shed/veritas-go/internal/provider"
	"github.com/anime-shed/veritas-go/internal/repository"
	"github.com/anime-shed/veritas-go/internal/service"
	"github.com/anime-shed/veritas-go/internal/session"
	"github.com/anime-shed/veritas-go/internal/storage"
	"github.com/anime-shed/veritas-go/internal/transport"
	"github.com/anime-shed/veritas-go/pkg/validation"
)

// eventWorkers is the number of goroutines delivering observer events
const eventWorkers = 2

// Container holds all application dependencies
type Container struct {
	config      *config.Config
	provider    provider.Provider
	sessions    *session.Manager
	events      *observer.EventPublisher
	metrics     *observer.MetricsObserver
	service     service.VerificationService
	handler     http.Handler
	lockCleanup func() error
}

// NewContainer creates a new dependency injection container
func NewContainer(cfg *config.Config) (*Container, error) {
	components := factory.NewComponentFactory(cfg)

	mediaValidator := validation.NewMediaValidatorWithLimits(validation.MediaLimits{MaxSize: cfg.MaxUploadSize})
	collector := intake.NewCollector(mediaValidator)

	p, err := components.ProviderFactory.CreateProvider()
	if err != nil {
		return nil, err
	}

	httpFetcher, err := components.StorageFactory.CreateStorage(factory.HTTPStorage)
	if err != nil {
		return nil, err
	}
	var blobFetcher storage.MediaFetcher
	if cfg.AzureEnabled() {
		blobFetcher, err = components.StorageFactory.CreateStorage(factory.AzureStorage)
		if err != nil {
			return nil, fmt.Errorf("failed to initialize azure storage: %w", err)
		}
	}
	media := repository.NewMediaRepository(httpFetcher, blobFetcher, factory.URLValidator(cfg), mediaValidator)

	lock, lockCleanup, err := components.LockFactory.CreateLock(context.Background())
	if err != nil {
		return nil, fmt.Errorf("failed to initialize session lock: %w", err)
	}

	events := observer.NewEventPublisher(eventWorkers)
	metrics := observer.NewMetricsObserver()
	events.Subscribe(observer.NewLoggingObserver(logger.Logger))
	events.Subscribe(metrics)

	var images analyzer.ImageInspector
	if cfg.ImageSignalsEnabled {
		images = analyzer.NewImageInspector(analyzer.DefaultOptions())
	}

	sessions := session.NewManager()
	svc := service.NewVerificationService(service.Dependencies{
		Collector: collector,
		Provider:  p,
		Media:     media,
		History:   repository.NewMemoryHistoryRepository(),
		Sessions:  sessions,
		Lock:      lock,
		OCR:       ocr.NewTextExtractor(cfg.OCREnabled),
		Images:    images,
		Events:    events,
	}, service.Options{
		ResolveURLs:         cfg.ResolveURLs,
		HistoryDisplayLimit: cfg.HistoryDisplayLimit,
	})

	return &Container{
		config:      cfg,
		provider:    p,
		sessions:    sessions,
		events:      events,
		metrics:     metrics,
		service:     svc,
		handler:     transport.NewHandler(svc, metrics, cfg),
		lockCleanup: lockCleanup,
	}, nil
}

// Handler returns the HTTP handler
func (c *Container) Handler() http.Handler {
	return c.handler
}

// Config returns the configuration
func (c *Container) Config() *config.Config {
	return c.config
}

// Service returns the verification orchestrator
func (c *Container) Service() service.VerificationService {
	return c.service
}

func (c *Container) Provider() provider.Provider {
	return c.provider
}

// Sessions returns the session registry
func (c *Container) Sessions() *session.Manager {
	return c.sessions
}

// EvictIdleSessions drops sessions untouched for longer than maxAge along
// with their history and returns how many went
func (c *Container) EvictIdleSessions(ctx context.Context, maxAge time.Duration) (int, error) {
	evicted, err := c.service.EvictIdle(ctx, maxAge)
	return len(evicted), err
}

// Metrics returns the verification counters
func (c *Container) Metrics() observer.Metrics {
	return c.metrics.GetMetrics()
}

// Close drains pending events and releases the lock backend
func (c *Container) Close() error {
	c.events.Close()
	if c.lockCleanup != nil {
		return c.lockCleanup()
	}
	return nil
}
