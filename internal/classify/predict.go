package classify

import (
	"fmt"
	"slices"
	"strings"

	apperrors "github.com/irbid-geoai/geoai-monitor/internal/errors"
	"github.com/irbid-geoai/geoai-monitor/internal/raster"
)

// Output band names.
const (
	LabelBand       = "classification"
	ProbabilityBand = "probability"
)

// Stack concatenates co-registered predictor rasters into one image, in order.
func Stack(id string, predictors ...*raster.Image) (*raster.Image, error) {
	return raster.Cat(id, predictors...)
}

// Predict classifies every pixel of the stack. The stack band order must be
// the model's training order; a masked predictor masks the output pixel.
func Predict(stack *raster.Image, m *Model) (*raster.Image, error) {
	if !m.Trained() {
		return nil, notReady(m)
	}
	if !slices.Equal(stack.BandNames(), m.forest.Bands) {
		return nil, apperrors.NewBandMismatchError(
			fmt.Sprintf("predictor stack [%s] does not match model bands [%s]",
				strings.Join(stack.BandNames(), ", "), strings.Join(m.forest.Bands, ", ")), nil)
	}

	planes := stack.Bands()
	features := make([]float64, len(planes))
	counts := make(map[int]int, len(m.forest.Classes))
	out := make([]float64, stack.Grid.Len())
	for px := range out {
		masked := false
		for bi, b := range planes {
			features[bi] = b.Data[px]
			if raster.IsMasked(features[bi]) {
				masked = true
				break
			}
		}
		if masked {
			out[px] = raster.Masked
			continue
		}
		out[px] = m.vote(features, counts)
	}

	name := LabelBand
	if m.Config.Mode == ModeProbability {
		name = ProbabilityBand
	}
	props := raster.Properties{"model": m.forest.Name, "mode": string(m.Config.Mode), "trees": float64(m.Config.Trees)}
	return raster.NewImage(stack.ID+"/"+name, raster.Derived, stack.Captured, stack.Grid, props,
		raster.Band{Name: name, Data: out})
}

// Sample is one labeled reference point with its predictor values.
type Sample struct {
	Class    int                `json:"class" db:"class"`
	Features map[string]float64 `json:"features"`
}

// PredictSamples labels reference samples. Every sample must carry every
// model band.
func PredictSamples(samples []Sample, m *Model) ([]int, error) {
	if !m.Trained() {
		return nil, notReady(m)
	}
	if m.Config.Mode != ModeLabel {
		return nil, apperrors.NewValidationError("sample labelling needs a label-mode model", nil)
	}
	features := make([]float64, len(m.forest.Bands))
	counts := make(map[int]int, len(m.forest.Classes))
	out := make([]int, len(samples))
	for i, s := range samples {
		for bi, band := range m.forest.Bands {
			v, ok := s.Features[band]
			if !ok || raster.IsMasked(v) {
				return nil, apperrors.NewBandMismatchError(fmt.Sprintf("reference sample %d has no value for %s", i, band), nil)
			}
			features[bi] = v
		}
		out[i] = int(m.vote(features, counts))
	}
	return out, nil
}

func notReady(m *Model) error {
	if m == nil {
		return apperrors.NewModelNotReadyError("no classifier configured", nil)
	}
	return apperrors.NewModelNotReadyError(
		fmt.Sprintf("%s classifier (%d trees, %s mode) has not been trained", m.Config.Algorithm, m.Config.Trees, m.Config.Mode), nil)
}
