// Package modules implements the analysis modules run by the dispatcher.
package modules

import (
	"fmt"

	"github.com/irbid-geoai/geoai-monitor/internal/classify"
	"github.com/irbid-geoai/geoai-monitor/internal/dataset"
	"github.com/irbid-geoai/geoai-monitor/internal/dispatch"
	"github.com/irbid-geoai/geoai-monitor/internal/engine"
	"github.com/irbid-geoai/geoai-monitor/internal/indices"
	"github.com/irbid-geoai/geoai-monitor/internal/raster"
	"github.com/irbid-geoai/geoai-monitor/internal/region"
	"github.com/irbid-geoai/geoai-monitor/internal/repository"
	"github.com/irbid-geoai/geoai-monitor/pkg/models"
)

// Default model names looked up in the classifier registry.
const (
	GrowthModel   = "urban-growth"
	AccuracyModel = "lulc"

	// DefaultTrees is the forest size both classifiers are configured with.
	DefaultTrees = 300
)

// Map zoom levels per module.
const (
	comparisonZoom = 12
	changeZoom     = 12
	landCoverZoom  = 13
	growthZoom     = 11
	sarZoom        = 11
)

// Deps are the collaborators shared by every module.
type Deps struct {
	Provider     *dataset.Provider
	Materializer *engine.Materializer
	Region       *region.Region
	Models       *classify.Registry
	References   repository.ReferenceRepository
}

func (d Deps) validate() error {
	if d.Provider == nil || d.Materializer == nil {
		return fmt.Errorf("modules need a dataset provider and a materializer")
	}
	if d.Region == nil {
		return fmt.Errorf("modules need a study region")
	}
	return nil
}

// Handlers builds the handler table, one entry per module tag.
func Handlers(deps Deps) (map[dispatch.Tag]dispatch.Handler, error) {
	if err := deps.validate(); err != nil {
		return nil, err
	}
	if deps.Models == nil {
		deps.Models = classify.NewRegistry()
	}
	return map[dispatch.Tag]dispatch.Handler{
		dispatch.HistoricalComparison: &historicalComparison{deps},
		dispatch.ChangeDetection:      &changeDetection{deps},
		dispatch.LULCClassification:   &landCoverClassification{deps},
		dispatch.GrowthPrediction:     &growthPrediction{deps},
		dispatch.SARValidation:        &sarValidation{deps},
		dispatch.ZonalStatistics:      &zonalStatistics{deps},
		dispatch.AccuracyAssessment:   &accuracyAssessment{deps},
	}, nil
}

// Register binds every module handler to d.
func Register(d *dispatch.Dispatcher, deps Deps) error {
	handlers, err := Handlers(deps)
	if err != nil {
		return err
	}
	for _, tag := range dispatch.Tags {
		if err := d.Register(tag, handlers[tag]); err != nil {
			return err
		}
	}
	return nil
}

func (d Deps) center(tag dispatch.Tag, zoom int) *models.MapCenter {
	if p := d.Region.Params(string(tag)); p.Zoom > 0 {
		zoom = p.Zoom
	}
	return &models.MapCenter{Lat: d.Region.Center.Lat, Lon: d.Region.Center.Lon, Zoom: zoom}
}

// model binds the registry forest for a module. The region file may rename
// the model or change its tree count.
func (d Deps) model(tag dispatch.Tag, name string, mode classify.Mode) (string, *classify.Model, error) {
	p := d.Region.Params(string(tag))
	if p.Model != "" {
		name = p.Model
	}
	trees := DefaultTrees
	if p.Trees > 0 {
		trees = p.Trees
	}
	m, err := d.Models.Model(name, classify.Config{Algorithm: classify.RandomForest, Trees: trees, Mode: mode})
	return name, m, err
}

func layer(name string, vis models.VisParams, img *raster.Image) models.Layer {
	return models.Layer{Name: name, Vis: vis, Summary: img.Summaries(), Raster: img}
}

// index derives one normalized-difference index from a deferred composite.
func index(img engine.Deferred[*raster.Image], kind indices.Kind) engine.Deferred[indices.Index] {
	return engine.Map(img, fmt.Sprintf("%s(%s)", kind, img.Label()), func(img *raster.Image) (indices.Index, error) {
		return indices.Compute(img, kind)
	})
}

// align resamples an index onto a target grid, keeping its kind and date.
func align(ix indices.Index, target raster.Grid) (indices.Index, error) {
	img, err := ix.Image.ResampleTo(target)
	if err != nil {
		return indices.Index{}, err
	}
	return indices.Index{Kind: ix.Kind, Date: ix.Date, Image: img}, nil
}
