//go:build !gdal

package storage

import (
	"context"

	apperrors "github.com/irbid-geoai/geoai-monitor/internal/errors"
	"github.com/irbid-geoai/geoai-monitor/internal/raster"
)

// GeoTIFFSource needs GDAL; build with -tags gdal to enable it.
type GeoTIFFSource struct{}

func NewGeoTIFFSource(string) (*GeoTIFFSource, error) {
	return nil, apperrors.NewValidationError("geotiff scene source requires a build with -tags gdal", nil)
}

func (s *GeoTIFFSource) Scenes(context.Context, string) ([]*raster.Image, error) {
	return nil, apperrors.NewInternalError("geotiff scene source is not compiled in", nil)
}
