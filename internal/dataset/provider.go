// Package dataset turns raw scene collections into single analysis-ready
// rasters.
package dataset

import (
	"context"
	"fmt"

	"github.com/sirupsen/logrus"

	"github.com/irbid-geoai/geoai-monitor/internal/engine"
	apperrors "github.com/irbid-geoai/geoai-monitor/internal/errors"
	"github.com/irbid-geoai/geoai-monitor/internal/logger"
	"github.com/irbid-geoai/geoai-monitor/internal/raster"
	"github.com/irbid-geoai/geoai-monitor/internal/storage"
)

// Request describes one filtered composite. Filters apply in field order:
// region, dates, properties, then band selection and the composite.
type Request struct {
	CollectionID string
	// Region may be a single point; scenes touching it are kept.
	Region    raster.Bounds
	Dates     raster.DateRange
	Filters   []raster.PropertyFilter
	Bands     []string
	Composite raster.Composite
	// SortBy names the ascending sort property for first-after-sort.
	SortBy string
}

func (r Request) Validate() error {
	if r.CollectionID == "" {
		return apperrors.NewValidationError("dataset request has no collection id", nil)
	}
	if err := r.Region.Validate(); err != nil {
		return apperrors.NewValidationError(fmt.Sprintf("invalid region for %s", r.CollectionID), err)
	}
	if err := r.Dates.Validate(); err != nil {
		return apperrors.NewValidationError(fmt.Sprintf("invalid date range for %s", r.CollectionID), err)
	}
	for _, f := range r.Filters {
		if err := f.Validate(); err != nil {
			return apperrors.NewValidationError(fmt.Sprintf("invalid property filter for %s", r.CollectionID), err)
		}
	}
	if !r.Composite.Valid() {
		return apperrors.NewValidationError(fmt.Sprintf("unsupported composite %q", r.Composite), nil)
	}
	if r.Composite == raster.CompositeFirstAfterSort && r.SortBy == "" {
		return apperrors.NewValidationError("first-after-sort needs a sort property", nil)
	}
	return nil
}

// Provider builds deferred composites over a scene source.
type Provider struct {
	source storage.SceneSource
}

func NewProvider(source storage.SceneSource) *Provider {
	return &Provider{source: source}
}

// Fetch returns a handle to the composite. Nothing is read until the handle
// is materialized; an empty filtered collection fails with NoDataError.
func (p *Provider) Fetch(req Request) engine.Deferred[*raster.Image] {
	label := fmt.Sprintf("%s/%s", req.CollectionID, req.Composite)
	if err := req.Validate(); err != nil {
		return engine.Failed[*raster.Image](label, err)
	}

	return engine.Defer(label, func(ctx context.Context) (*raster.Image, error) {
		scenes, err := p.source.Scenes(ctx, req.CollectionID)
		if err != nil {
			return nil, err
		}

		c := raster.NewCollection(req.CollectionID, scenes...).
			FilterBounds(req.Region).
			FilterDate(req.Dates)
		for _, f := range req.Filters {
			c = c.Filter(f)
		}

		logger.WithFields(logrus.Fields{
			"collection": req.CollectionID,
			"scenes":     len(scenes),
			"kept":       c.Len(),
			"composite":  req.Composite,
		}).Debug("Filtered scene collection")

		if c.Len() == 0 {
			return nil, apperrors.NewNoDataError(
				fmt.Sprintf("no %s scenes between %s and %s match the filters",
					req.CollectionID, req.Dates.Start.Format("2006-01-02"), req.Dates.End.Format("2006-01-02")), nil)
		}
		if len(req.Bands) > 0 {
			if c, err = c.Select(req.Bands...); err != nil {
				return nil, err
			}
		}
		return c.Reduce(req.Composite, req.SortBy)
	})
}
