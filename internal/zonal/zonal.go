// Package zonal reduces raster bands over an area of interest.
package zonal

import (
	"fmt"

	"github.com/montanaflynn/stats"
	"github.com/sirupsen/logrus"

	"github.com/irbid-geoai/geoai-monitor/internal/aoi"
	apperrors "github.com/irbid-geoai/geoai-monitor/internal/errors"
	"github.com/irbid-geoai/geoai-monitor/internal/logger"
	"github.com/irbid-geoai/geoai-monitor/internal/raster"
)

// Reducer names the aggregate computed per band.
type Reducer string

const (
	Mean   Reducer = "mean"
	Median Reducer = "median"
	Sum    Reducer = "sum"
	Min    Reducer = "min"
	Max    Reducer = "max"
	StdDev Reducer = "stddev"
	Count  Reducer = "count"
)

func (r Reducer) Valid() bool {
	switch r {
	case Mean, Median, Sum, Min, Max, StdDev, Count:
		return true
	}
	return false
}

// Result maps each band to its aggregate. Bands with no unmasked pixel in
// the area are left out.
type Result struct {
	Reducer Reducer            `json:"reducer"`
	Scale   float64            `json:"scale"`
	Pixels  int                `json:"pixels"`
	Values  map[string]float64 `json:"values"`
}

// Aggregate reduces every band of img over area. scale is the nominal pixel
// size in metres; the pixel count it implies over the AOI must stay within
// maxPixels or nothing is read.
func Aggregate(img *raster.Image, area aoi.AOI, reducer Reducer, scale, maxPixels float64) (Result, error) {
	if !reducer.Valid() {
		return Result{}, apperrors.NewValidationError(fmt.Sprintf("unsupported reducer %q", reducer), nil)
	}
	if !area.Intersects(img.Grid.Bounds) {
		return Result{}, apperrors.NewInvalidAOIError(
			fmt.Sprintf("AOI %v does not intersect raster bounds %v", area.Bounds(), img.Grid.Bounds), nil)
	}
	implied, err := CheckBudget(area, scale, maxPixels)
	if err != nil {
		return Result{}, err
	}

	pixels := coveredPixels(img.Grid, area)
	if len(pixels) == 0 {
		return Result{}, apperrors.NewNoDataError("AOI covers no pixel of the raster", nil)
	}

	result := Result{Reducer: reducer, Scale: scale, Pixels: len(pixels), Values: make(map[string]float64)}
	values := make(stats.Float64Data, 0, len(pixels))
	for _, b := range img.Bands() {
		values = values[:0]
		for _, px := range pixels {
			if v := b.Data[px]; !raster.IsMasked(v) {
				values = append(values, v)
			}
		}
		if len(values) == 0 {
			continue
		}
		v, err := reduce(reducer, values)
		if err != nil {
			return Result{}, apperrors.NewInternalError(fmt.Sprintf("%s of band %s", reducer, b.Name), err)
		}
		result.Values[b.Name] = v
	}
	if len(result.Values) == 0 {
		return Result{}, apperrors.NewNoDataError("every pixel inside the AOI is masked", nil)
	}

	logger.WithFields(logrus.Fields{
		"reducer":        reducer,
		"pixels":         len(pixels),
		"implied_pixels": implied,
		"bands":          len(result.Values),
	}).Debug("Zonal aggregation complete")
	return result, nil
}

// CheckBudget returns the pixel count implied by area at scale metres, or
// PixelBudgetExceededError when it is above maxPixels.
func CheckBudget(area aoi.AOI, scale, maxPixels float64) (float64, error) {
	if scale <= 0 || maxPixels <= 0 {
		return 0, apperrors.NewValidationError(
			fmt.Sprintf("scale and maxPixels must be positive, got %g and %g", scale, maxPixels), nil)
	}
	implied := area.AreaSquareMeters() / (scale * scale)
	if implied > maxPixels {
		return implied, apperrors.NewPixelBudgetExceededError(
			fmt.Sprintf("AOI at %gm scale covers about %.0f pixels, budget is %.0f", scale, implied, maxPixels), nil)
	}
	return implied, nil
}

// coveredPixels returns the indices of pixels whose centre lies in the AOI.
// An AOI smaller than a pixel falls back to the pixel under its interior point.
func coveredPixels(g raster.Grid, area aoi.AOI) []int {
	var out []int
	minCol, minRow, maxCol, maxRow, ok := g.Window(area.Bounds())
	if ok {
		for row := minRow; row <= maxRow; row++ {
			for col := minCol; col <= maxCol; col++ {
				lon, lat := g.Center(col, row)
				if area.Contains(lon, lat) {
					out = append(out, row*g.Width+col)
				}
			}
		}
	}
	if len(out) > 0 {
		return out
	}
	if col, row, ok := g.Locate(area.InteriorPoint()); ok {
		return []int{row*g.Width + col}
	}
	return nil
}

func reduce(r Reducer, values stats.Float64Data) (float64, error) {
	switch r {
	case Mean:
		// Running mean stays exact for constant input.
		m := 0.0
		for i, v := range values {
			m += (v - m) / float64(i+1)
		}
		return m, nil
	case Median:
		return stats.Median(values)
	case Sum:
		return stats.Sum(values)
	case Min:
		return stats.Min(values)
	case Max:
		return stats.Max(values)
	case StdDev:
		return stats.StandardDeviationPopulation(values)
	case Count:
		return float64(len(values)), nil
	}
	return 0, fmt.Errorf("unsupported reducer %q", r)
}
