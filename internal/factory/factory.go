package factory

import (
	"fmt"

	"github.com/irbid-geoai/geoai-monitor/internal/config"
	"github.com/irbid-geoai/geoai-monitor/internal/storage"
)

// SourceType selects the scene storage backend
type SourceType string

const (
	// MemorySource keeps scenes in process
	MemorySource SourceType = "memory"
	// LocalSource reads JSON scene documents from disk
	LocalSource SourceType = "local"
	// HTTPSource reads from a scene catalog API
	HTTPSource SourceType = "http"
	// AzureSource reads scene documents from Azure Blob Storage
	AzureSource SourceType = "azure"
	// GeoTIFFSource reads GeoTIFF scenes through GDAL
	GeoTIFFSource SourceType = "geotiff"
)

// SourceFactory creates scene sources
type SourceFactory interface {
	CreateSource(sourceType SourceType) (storage.SceneSource, error)
}

type sourceFactory struct {
	cfg *config.Config
}

// NewSourceFactory creates a factory reading connection settings from cfg
func NewSourceFactory(cfg *config.Config) SourceFactory {
	return &sourceFactory{cfg: cfg}
}

// CreateSource creates a scene source of the requested type
func (f *sourceFactory) CreateSource(sourceType SourceType) (storage.SceneSource, error) {
	switch sourceType {
	case MemorySource:
		return storage.NewMemorySource(), nil
	case LocalSource:
		return storage.NewLocalSource(f.cfg.SceneRoot), nil
	case HTTPSource:
		if f.cfg.SceneAPIURL == "" {
			return nil, fmt.Errorf("http scene source requires SCENE_API_URL")
		}
		return storage.NewHTTPSource(f.cfg.SceneAPIURL), nil
	case AzureSource:
		if f.cfg.AzureAccount == "" || f.cfg.AzureKey == "" {
			return nil, fmt.Errorf("azure scene source requires AZURE_STORAGE_ACCOUNT and AZURE_STORAGE_KEY")
		}
		return storage.NewAzureSource(f.cfg.AzureAccount, f.cfg.AzureKey, f.cfg.AzureSceneContainer)
	case GeoTIFFSource:
		return storage.NewGeoTIFFSource(f.cfg.SceneRoot)
	default:
		return nil, fmt.Errorf("unsupported scene source type: %s", sourceType)
	}
}
