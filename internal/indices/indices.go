// Package indices derives normalized-difference indices from sensor bands.
package indices

import (
	"fmt"
	"math"
	"sort"
	"time"

	apperrors "github.com/irbid-geoai/geoai-monitor/internal/errors"
	"github.com/irbid-geoai/geoai-monitor/internal/raster"
)

// Kind is the semantic index being computed.
type Kind string

const (
	NDVI Kind = "NDVI"
	NDBI Kind = "NDBI"
)

// BandPair names the bands of (a - b) / (a + b) for one sensor.
type BandPair struct {
	A string
	B string
}

// bandTable maps each index to the bands that carry it on each sensor.
var bandTable = map[Kind]map[raster.Sensor]BandPair{
	NDVI: {
		raster.Sentinel2: {A: "B8", B: "B4"},
		raster.Landsat5:  {A: "SR_B4", B: "SR_B3"},
	},
	NDBI: {
		raster.Sentinel2: {A: "B11", B: "B8"},
		raster.Landsat5:  {A: "SR_B5", B: "SR_B4"},
	},
}

// Bands returns the band pair of an index on a sensor.
func Bands(kind Kind, sensor raster.Sensor) (BandPair, error) {
	table, ok := bandTable[kind]
	if !ok {
		return BandPair{}, apperrors.NewBandMismatchError(fmt.Sprintf("unknown index %q", kind), nil)
	}
	pair, ok := table[sensor]
	if !ok {
		return BandPair{}, apperrors.NewBandMismatchError(
			fmt.Sprintf("no %s band table for sensor %s", kind, sensor), nil)
	}
	return pair, nil
}

// RequiredBands lists the bands a sensor must supply for the given indices.
func RequiredBands(sensor raster.Sensor, kinds ...Kind) ([]string, error) {
	seen := make(map[string]bool)
	var out []string
	for _, k := range kinds {
		pair, err := Bands(k, sensor)
		if err != nil {
			return nil, err
		}
		for _, b := range []string{pair.A, pair.B} {
			if !seen[b] {
				seen[b] = true
				out = append(out, b)
			}
		}
	}
	sort.Strings(out)
	return out, nil
}

// Index is a single-band normalized-difference raster.
type Index struct {
	Kind  Kind
	Date  time.Time
	Image *raster.Image
}

// BandName is the name of the index band, e.g. NDVI_2024.
func (ix Index) BandName() string {
	return BandName(ix.Kind, ix.Date)
}

func BandName(kind Kind, date time.Time) string {
	return fmt.Sprintf("%s_%d", kind, date.Year())
}

// Compute derives an index using the band table of the image's own sensor.
func Compute(img *raster.Image, kind Kind) (Index, error) {
	return ComputeWith(img, kind, img.Sensor)
}

// ComputeWith derives an index using the band table of an explicit sensor.
// A table for any sensor other than the image's is rejected.
func ComputeWith(img *raster.Image, kind Kind, sensor raster.Sensor) (Index, error) {
	if sensor != img.Sensor {
		return Index{}, apperrors.NewBandMismatchError(
			fmt.Sprintf("%s band table for %s applied to %s image %s", kind, sensor, img.Sensor, img.ID), nil)
	}
	pair, err := Bands(kind, sensor)
	if err != nil {
		return Index{}, err
	}
	out, err := NormalizedDifference(img, pair.A, pair.B, BandName(kind, img.Captured))
	if err != nil {
		return Index{}, err
	}
	return Index{Kind: kind, Date: img.Captured, Image: out}, nil
}

// NormalizedDifference computes (a - b) / (a + b) per pixel into a band
// named name. A zero denominator or a masked input yields a masked pixel.
func NormalizedDifference(img *raster.Image, bandA, bandB, name string) (*raster.Image, error) {
	a, ok := img.Band(bandA)
	if !ok {
		return nil, missingBand(img, bandA)
	}
	b, ok := img.Band(bandB)
	if !ok {
		return nil, missingBand(img, bandB)
	}

	out := make([]float64, len(a.Data))
	for i := range out {
		out[i] = normalizedDifference(a.Data[i], b.Data[i])
	}

	props := raster.Properties{"index": name, "source": img.ID, "source_sensor": string(img.Sensor)}
	return raster.NewImage(img.ID+"/"+name, raster.Derived, img.Captured, img.Grid, props,
		raster.Band{Name: name, Data: out})
}

func normalizedDifference(a, b float64) float64 {
	if raster.IsMasked(a) || raster.IsMasked(b) {
		return raster.Masked
	}
	sum := a + b
	if sum == 0 {
		return raster.Masked
	}
	// Reflectances can dip below zero, which would push the ratio out of range.
	return math.Max(-1, math.Min(1, (a-b)/sum))
}

func missingBand(img *raster.Image, band string) error {
	return apperrors.NewBandMismatchError(
		fmt.Sprintf("image %s (%s) has no band %s; available: %v", img.ID, img.Sensor, band, img.BandNames()), nil)
}
