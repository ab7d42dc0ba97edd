package modules

import (
	"context"
	"fmt"

	"github.com/irbid-geoai/geoai-monitor/internal/accuracy"
	"github.com/irbid-geoai/geoai-monitor/internal/classify"
	"github.com/irbid-geoai/geoai-monitor/internal/dispatch"
	"github.com/irbid-geoai/geoai-monitor/internal/engine"
	apperrors "github.com/irbid-geoai/geoai-monitor/internal/errors"
	"github.com/irbid-geoai/geoai-monitor/internal/indices"
	"github.com/irbid-geoai/geoai-monitor/internal/logger"
	"github.com/irbid-geoai/geoai-monitor/internal/raster"
	"github.com/irbid-geoai/geoai-monitor/pkg/models"
)

// growthPrediction classifies the 2024 indices, rainfall and night lights
// into an urban growth probability.
type growthPrediction struct{ Deps }

func (h *growthPrediction) Run(ctx context.Context, _ dispatch.Request) (*models.Result, error) {
	name, model, err := h.model(dispatch.GrowthPrediction, GrowthModel, classify.ModeProbability)
	if err != nil {
		return nil, err
	}
	if !model.Trained() {
		return nil, apperrors.NewModelNotReadyError(
			fmt.Sprintf("growth model %q has not been trained; load a %d-tree forest into the model directory", name, model.Config.Trees), nil)
	}

	s2 := h.Provider.Fetch(sentinel2(h.Region))
	predictors := engine.Map(s2, "growth-indices", func(img *raster.Image) ([]*raster.Image, error) {
		ndvi, err := indices.Compute(img, indices.NDVI)
		if err != nil {
			return nil, err
		}
		ndbi, err := indices.Compute(img, indices.NDBI)
		if err != nil {
			return nil, err
		}
		return []*raster.Image{ndvi.Image, ndbi.Image}, nil
	})
	covariates := engine.Gather("growth-covariates", 2,
		h.Provider.Fetch(rainfall(h.Region)),
		h.Provider.Fetch(nightLights(h.Region)))

	prediction := engine.Combine(predictors, covariates, "growth-prediction", func(ix, cov []*raster.Image) (*raster.Image, error) {
		grid := ix[0].Grid
		layers := append([]*raster.Image{}, ix...)
		for _, c := range cov {
			aligned, err := c.ResampleTo(grid)
			if err != nil {
				return nil, err
			}
			layers = append(layers, aligned)
		}
		stack, err := classify.Stack("growth-predictors", layers...)
		if err != nil {
			return nil, err
		}
		return classify.Predict(stack, model)
	})

	img, err := engine.Materialize(ctx, h.Materializer, prediction)
	if err != nil {
		return nil, err
	}
	return &models.Result{
		Layers:    []models.Layer{layer("Urban Growth Probability", growthVis, img)},
		Colorbars: []models.Colorbar{colorbar("Growth Probability", growthVis)},
		Center:    h.center(dispatch.GrowthPrediction, growthZoom),
	}, nil
}

// accuracyAssessment labels the reference samples with a trained classifier
// and compares them with their reference classes.
type accuracyAssessment struct{ Deps }

func (h *accuracyAssessment) Run(ctx context.Context, _ dispatch.Request) (*models.Result, error) {
	name, model, err := h.model(dispatch.AccuracyAssessment, AccuracyModel, classify.ModeLabel)
	if err != nil {
		return nil, err
	}
	if !model.Trained() {
		return nil, apperrors.NewModelNotReadyError(
			fmt.Sprintf("no trained classifier %q is available for accuracy assessment", name), nil)
	}
	if h.References == nil {
		return nil, apperrors.NewModelNotReadyError("no labeled reference set is configured", nil)
	}

	samples := engine.Defer("reference-samples/"+name, func(ctx context.Context) ([]classify.Sample, error) {
		return h.References.ReferenceSamples(ctx, name)
	})
	matrix := engine.Map(samples, "accuracy-assessment", func(samples []classify.Sample) (accuracy.ConfusionMatrix, error) {
		if len(samples) == 0 {
			return accuracy.ConfusionMatrix{}, apperrors.NewModelNotReadyError(
				fmt.Sprintf("no labeled reference samples for %q", name), nil)
		}
		predicted, err := classify.PredictSamples(samples, model)
		if err != nil {
			return accuracy.ConfusionMatrix{}, err
		}
		reference := make([]int, len(samples))
		for i, s := range samples {
			reference[i] = s.Class
		}
		return accuracy.Evaluate(predicted, reference)
	})

	cm, err := engine.Materialize(ctx, h.Materializer, matrix)
	if err != nil {
		return nil, err
	}
	overall, err := cm.Accuracy()
	if err != nil {
		return nil, err
	}
	report := &models.AccuracyReport{
		Labels:            cm.Labels,
		Matrix:            cm.Counts,
		OverallAccuracy:   overall,
		ProducersAccuracy: cm.ProducersAccuracy(),
		ConsumersAccuracy: cm.ConsumersAccuracy(),
		Samples:           cm.Total(),
	}
	scalars := map[string]float64{"overall_accuracy": overall}

	// A single-class matrix still has an overall accuracy; only kappa is lost.
	kappa, err := cm.Kappa()
	switch {
	case apperrors.IsType(err, apperrors.ErrorTypeDegenerateMatrix):
		report.KappaUndefined = err.Error()
		logger.WithError(err).WithField("model", name).Warn("Kappa undefined for the reference set")
	case err != nil:
		return nil, err
	default:
		report.Kappa = &kappa
		scalars["kappa"] = kappa
	}

	return &models.Result{Scalars: scalars, Accuracy: report}, nil
}
