// Package change differences two indices of the same kind into a change map.
package change

import (
	"fmt"

	apperrors "github.com/irbid-geoai/geoai-monitor/internal/errors"
	"github.com/irbid-geoai/geoai-monitor/internal/indices"
	"github.com/irbid-geoai/geoai-monitor/internal/raster"
)

// Display range of change maps. Values outside it are clamped when rendered.
const (
	DisplayMin = -0.5
	DisplayMax = 0.5
)

// Map is late minus early, pixel by pixel, in [-2, 2].
type Map struct {
	Kind  indices.Kind
	Early indices.Index
	Late  indices.Index
	Image *raster.Image
}

// BandName is the change band name, e.g. dNDVI.
func BandName(kind indices.Kind) string {
	return "d" + string(kind)
}

// Delta subtracts early from late. Both indices must be of the same kind and
// share a grid; a masked pixel in either yields a masked pixel.
func Delta(late, early indices.Index) (Map, error) {
	if late.Kind != early.Kind {
		return Map{}, apperrors.NewBandMismatchError(
			fmt.Sprintf("cannot difference %s against %s", late.Kind, early.Kind), nil)
	}
	if !late.Image.Grid.Matches(early.Image.Grid) {
		return Map{}, apperrors.NewGeometryMismatchError(
			fmt.Sprintf("%s grids differ: %s vs %s", late.Kind, late.Image.Grid, early.Image.Grid), nil)
	}
	lb, ok := late.Image.Band(late.BandName())
	if !ok {
		return Map{}, apperrors.NewBandMismatchError(fmt.Sprintf("index image %s lacks %s", late.Image.ID, late.BandName()), nil)
	}
	eb, ok := early.Image.Band(early.BandName())
	if !ok {
		return Map{}, apperrors.NewBandMismatchError(fmt.Sprintf("index image %s lacks %s", early.Image.ID, early.BandName()), nil)
	}

	out := make([]float64, len(lb.Data))
	for i := range out {
		if raster.IsMasked(lb.Data[i]) || raster.IsMasked(eb.Data[i]) {
			out[i] = raster.Masked
			continue
		}
		out[i] = lb.Data[i] - eb.Data[i]
	}

	name := BandName(late.Kind)
	props := raster.Properties{
		"late":  late.Date.Format("2006-01-02"),
		"early": early.Date.Format("2006-01-02"),
	}
	img, err := raster.NewImage(fmt.Sprintf("%s_%d_%d", name, late.Date.Year(), early.Date.Year()),
		raster.Derived, late.Date, late.Image.Grid, props, raster.Band{Name: name, Data: out})
	if err != nil {
		return Map{}, err
	}
	return Map{Kind: late.Kind, Early: early, Late: late, Image: img}, nil
}
