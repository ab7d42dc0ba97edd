package modules

import (
	"context"
	"fmt"
	"math"
	"strings"

	"github.com/irbid-geoai/geoai-monitor/internal/aoi"
	"github.com/irbid-geoai/geoai-monitor/internal/dispatch"
	"github.com/irbid-geoai/geoai-monitor/internal/engine"
	apperrors "github.com/irbid-geoai/geoai-monitor/internal/errors"
	"github.com/irbid-geoai/geoai-monitor/internal/indices"
	"github.com/irbid-geoai/geoai-monitor/internal/zonal"
	"github.com/irbid-geoai/geoai-monitor/pkg/models"
)

// Zonal statistics defaults.
const (
	DefaultScale     = 10
	DefaultMaxPixels = 1e9
)

// zonalStatistics reduces the 2024 NDVI over an uploaded AOI.
type zonalStatistics struct{ Deps }

func (h *zonalStatistics) Run(ctx context.Context, req dispatch.Request) (*models.Result, error) {
	if len(strings.TrimSpace(string(req.AOI))) == 0 {
		return nil, apperrors.NewInvalidAOIError("upload an AOI as a GeoJSON document", nil)
	}
	area, err := aoi.Parse(req.AOI)
	if err != nil {
		return nil, err
	}

	reducer, scale, maxPixels, err := h.settings(req)
	if err != nil {
		return nil, err
	}
	// Reject oversized requests before anything is fetched.
	if _, err := zonal.CheckBudget(area, scale, maxPixels); err != nil {
		return nil, err
	}

	ndvi := index(h.Provider.Fetch(sentinel2(h.Region)), indices.NDVI)
	stats := engine.Map(ndvi, "zonal-statistics", func(ix indices.Index) (zonal.Result, error) {
		return zonal.Aggregate(ix.Image, area, reducer, scale, maxPixels)
	})

	res, err := engine.Materialize(ctx, h.Materializer, stats)
	if err != nil {
		return nil, err
	}

	b := area.Bounds()
	lon, lat := b.Center()
	return &models.Result{
		Scalars: res.Values,
		Zonal: &models.ZonalReport{
			Reducer:   string(res.Reducer),
			Scale:     res.Scale,
			MaxPixels: maxPixels,
			Pixels:    res.Pixels,
			Values:    res.Values,
		},
		Center: &models.MapCenter{Lat: lat, Lon: lon, Zoom: h.center(dispatch.ZonalStatistics, h.Region.Zoom).Zoom},
	}, nil
}

// settings resolves the request overrides, then the region file, then the
// defaults. A zero override means unset; negative or non-finite ones are
// rejected.
func (h *zonalStatistics) settings(req dispatch.Request) (zonal.Reducer, float64, float64, error) {
	p := h.Region.Params(string(dispatch.ZonalStatistics))
	reducer := zonal.Mean
	if req.Reducer != "" {
		reducer = zonal.Reducer(strings.ToLower(strings.TrimSpace(req.Reducer)))
	}
	if !reducer.Valid() {
		return "", 0, 0, apperrors.NewValidationError("unsupported reducer "+req.Reducer, nil)
	}
	for name, v := range map[string]float64{"scale": req.Scale, "max_pixels": req.MaxPixels} {
		if v < 0 || math.IsNaN(v) || math.IsInf(v, 0) {
			return "", 0, 0, apperrors.NewValidationError(fmt.Sprintf("%s must be a positive finite number, got %g", name, v), nil)
		}
	}

	scale := float64(DefaultScale)
	switch {
	case req.Scale > 0:
		scale = req.Scale
	case p.Scale > 0:
		scale = p.Scale
	}
	maxPixels := DefaultMaxPixels
	switch {
	case req.MaxPixels > 0:
		maxPixels = req.MaxPixels
	case p.MaxPixels > 0:
		maxPixels = p.MaxPixels
	}
	return reducer, scale, maxPixels, nil
}
