package factory

import (
	"context"
	"fmt"
	"time"

	"github.com/anime-shed/veritas-go/internal/config"
	"github.com/anime-shed/veritas-go/internal/provider"
	"github.com/anime-shed/veritas-go/internal/session"
	"github.com/anime-shed/veritas-go/internal/storage"
	"github.com/anime-shed/veritas-go/pkg/validation"
)

// StorageType represents different remote media backends
type StorageType string

const (
	// HTTPStorage fetches media over plain HTTP(S)
	HTTPStorage StorageType = "http"
	// AzureStorage fetches blobs with shared key credentials
	AzureStorage StorageType = "azure"
)

// ProviderFactory creates verification providers
type ProviderFactory interface {
	CreateProvider() (provider.Provider, error)
}

// StorageFactory creates media fetchers
type StorageFactory interface {
	CreateStorage(storageType StorageType) (storage.MediaFetcher, error)
}

// LockFactory creates the in-flight session lock and its cleanup func
type LockFactory interface {
	CreateLock(ctx context.Context) (session.Lock, func() error, error)
}

type providerFactory struct {
	cfg *config.Config
}

// NewProviderFactory creates a provider factory driven by configuration
func NewProviderFactory(cfg *config.Config) ProviderFactory {
	return &providerFactory{cfg: cfg}
}

// CreateProvider builds the configured provider, resolving "auto" by API key
func (f *providerFactory) CreateProvider() (provider.Provider, error) {
	name := f.cfg.ResolvedProvider()
	fc := provider.FactoryConfig{
		Provider:     name,
		SystemPrompt: f.cfg.SystemPrompt,
		Timeout:      f.cfg.ProviderTimeout,
	}

	switch name {
	case config.ProviderGemini:
		fc.APIKey = f.cfg.GeminiAPIKey
		fc.Model = f.cfg.GeminiModel
		fc.BaseURL = f.cfg.GeminiBaseURL
	case config.ProviderAnthropic:
		fc.APIKey = f.cfg.AnthropicAPIKey
		fc.Model = f.cfg.AnthropicModel
		fc.BaseURL = f.cfg.AnthropicURL
	case config.ProviderSimulated:
		fc.Delay = f.cfg.SimulatedDelay
	}

	p, err := provider.New(fc)
	if err != nil {
		return nil, fmt.Errorf("failed to create %s provider: %w", name, err)
	}
	return p, nil
}

type storageFactory struct {
	cfg *config.Config
}

// URLValidator builds the validator for submitted URLs from configuration
func URLValidator(cfg *config.Config) *validation.URLValidator {
	if cfg.AllowPrivateURLs {
		return validation.NewURLValidator(validation.WithPrivateNetworks())
	}
	return validation.NewURLValidator()
}

// NewStorageFactory creates a new storage factory
func NewStorageFactory(cfg *config.Config) StorageFactory {
	return &storageFactory{cfg: cfg}
}

// CreateStorage creates a media fetcher of the given type
func (f *storageFactory) CreateStorage(storageType StorageType) (storage.MediaFetcher, error) {
	switch storageType {
	case HTTPStorage:
		return storage.NewHTTPMediaFetcher(f.cfg.MediaFetchTimeout, f.cfg.MaxUploadSize,
			storage.WithDialGuard(URLValidator(f.cfg).CheckIP)), nil
	case AzureStorage:
		if !f.cfg.AzureEnabled() {
			return nil, fmt.Errorf("azure storage requires AZURE_STORAGE_ACCOUNT and AZURE_STORAGE_KEY")
		}
		return storage.NewAzureStorage(f.cfg.AzureAccountName, f.cfg.AzureAccountKey, f.cfg.MaxUploadSize)
	default:
		return nil, fmt.Errorf("unsupported storage type: %s", storageType)
	}
}

type lockFactory struct {
	cfg *config.Config
}

// NewLockFactory creates a lock factory
func NewLockFactory(cfg *config.Config) LockFactory {
	return &lockFactory{cfg: cfg}
}

// CreateLock returns a redis lock when REDIS_URL is set, otherwise a
// process-local one. The redis connection is checked with a ping.
func (f *lockFactory) CreateLock(ctx context.Context) (session.Lock, func() error, error) {
	if f.cfg.RedisURL == "" {
		return session.NewMemoryLock(), func() error { return nil }, nil
	}

	client, err := session.Connect(f.cfg.RedisURL)
	if err != nil {
		return nil, nil, err
	}

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		client.Close()
		return nil, nil, fmt.Errorf("redis ping failed: %w", err)
	}

	lock := session.NewRedisLock(client, f.cfg.SessionLockTTL)
	return lock, lock.Close, nil
}

// ComponentFactory combines all factories
type ComponentFactory struct {
	ProviderFactory ProviderFactory
	StorageFactory  StorageFactory
	LockFactory     LockFactory
}

// NewComponentFactory creates a new component factory
func NewComponentFactory(cfg *config.Config) *ComponentFactory {
	return &ComponentFactory{
		ProviderFactory: NewProviderFactory(cfg),
		StorageFactory:  NewStorageFactory(cfg),
		LockFactory:     NewLockFactory(cfg),
	}
}
