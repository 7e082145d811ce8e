package factory

import (
	"context"
	"fmt"

	"github.com/anime-shed/skintone-inspector/internal/analyzer"
	"github.com/anime-shed/skintone-inspector/internal/config"
	"github.com/anime-shed/skintone-inspector/internal/repository"
	"github.com/anime-shed/skintone-inspector/internal/storage"
)

// AnalyzerFactory creates image analyzers
type AnalyzerFactory interface {
	CreateClusterer(engine analyzer.ClusterEngine) (analyzer.Clusterer, error)
	CreateAnalyzer(engine analyzer.ClusterEngine) (analyzer.ImageAnalyzer, error)
}

// StorageFactory creates the storage backends named by configuration
type StorageFactory interface {
	CreateFetcher() storage.ImageFetcher
	// CreateBlobStorage returns nil, nil when no account is configured
	CreateBlobStorage() (storage.BlobStorage, error)
	CreateAssetStore() *storage.AssetStore
	// CreateCache returns nil, nil when no Redis address is configured
	CreateCache(ctx context.Context) (repository.AnalysisCache, func() error, error)
}

// analyzerFactory implements AnalyzerFactory
type analyzerFactory struct{}

// NewAnalyzerFactory creates a new analyzer factory
func NewAnalyzerFactory() AnalyzerFactory {
	return &analyzerFactory{}
}

// CreateClusterer creates the clustering engine for the given name
func (f *analyzerFactory) CreateClusterer(engine analyzer.ClusterEngine) (analyzer.Clusterer, error) {
	switch engine {
	case analyzer.EngineLloyd, "":
		return analyzer.NewLloydClusterer(), nil
	case analyzer.EngineMuesli:
		return analyzer.NewMuesliClusterer(), nil
	default:
		return nil, fmt.Errorf("unsupported cluster engine: %s", engine)
	}
}

// CreateAnalyzer creates an analyzer backed by the given engine
func (f *analyzerFactory) CreateAnalyzer(engine analyzer.ClusterEngine) (analyzer.ImageAnalyzer, error) {
	clusterer, err := f.CreateClusterer(engine)
	if err != nil {
		return nil, err
	}
	return analyzer.NewImageAnalyzer(clusterer)
}

// storageFactory implements StorageFactory
type storageFactory struct {
	cfg *config.Config
}

// NewStorageFactory creates a new storage factory
func NewStorageFactory(cfg *config.Config) StorageFactory {
	return &storageFactory{cfg: cfg}
}

func (f *storageFactory) CreateFetcher() storage.ImageFetcher {
	return storage.NewHTTPImageFetcher(f.cfg.ImageFetchTimeout)
}

func (f *storageFactory) CreateBlobStorage() (storage.BlobStorage, error) {
	if !f.cfg.AzureEnabled() {
		return nil, nil
	}
	return storage.NewAzureStorage(f.cfg.AzureAccount, f.cfg.AzureKey)
}

func (f *storageFactory) CreateAssetStore() *storage.AssetStore {
	return storage.NewAssetStore(f.cfg.PaletteAssetPath)
}

func (f *storageFactory) CreateCache(ctx context.Context) (repository.AnalysisCache, func() error, error) {
	if !f.cfg.CacheEnabled() {
		return nil, nil, nil
	}
	client, err := repository.NewRedisClient(ctx, f.cfg.RedisAddr, f.cfg.RedisPassword, f.cfg.RedisDB)
	if err != nil {
		return nil, nil, err
	}
	return repository.NewRedisAnalysisCache(client, f.cfg.CacheTTL), client.Close, nil
}

// ComponentFactory combines all factories
type ComponentFactory struct {
	AnalyzerFactory AnalyzerFactory
	StorageFactory  StorageFactory
}

// NewComponentFactory creates a new component factory
func NewComponentFactory(cfg *config.Config) *ComponentFactory {
	return &ComponentFactory{
		AnalyzerFactory: NewAnalyzerFactory(),
		StorageFactory:  NewStorageFactory(cfg),
	}
}
