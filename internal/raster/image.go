package raster

import (
	"fmt"
	"math"
	"strings"
	"time"

	apperrors "github.com/irbid-geoai/geoai-monitor/internal/errors"
)

// Sensor identifies the instrument or product an image came from.
type Sensor string

const (
	Sentinel2    Sensor = "sentinel-2"
	Landsat5     Sensor = "landsat-5"
	Sentinel1    Sensor = "sentinel-1"
	DynamicWorld Sensor = "dynamic-world"
	ERA5Land     Sensor = "era5-land"
	VIIRS        Sensor = "viirs-dnb"
	Derived      Sensor = "derived"
)

// Masked is the value stored for an undefined pixel.
var Masked = math.NaN()

// IsMasked reports whether a pixel value is undefined.
func IsMasked(v float64) bool {
	return math.IsNaN(v)
}

// Band is a named plane of pixel values laid out row-major on the image grid.
type Band struct {
	Name string
	Data []float64
}

// Image is an immutable multi-band raster. Operations return new images.
type Image struct {
	ID         string
	Sensor     Sensor
	Captured   time.Time
	Grid       Grid
	Properties Properties
	bands      []Band
}

// NewImage validates and copies the given bands into a new image.
func NewImage(id string, sensor Sensor, captured time.Time, grid Grid, props Properties, bands ...Band) (*Image, error) {
	if err := grid.Validate(); err != nil {
		return nil, apperrors.NewGeometryMismatchError(fmt.Sprintf("image %s has an invalid grid", id), err)
	}
	if len(bands) == 0 {
		return nil, apperrors.NewBandMismatchError(fmt.Sprintf("image %s has no bands", id), nil)
	}
	seen := make(map[string]bool, len(bands))
	copied := make([]Band, len(bands))
	for i, b := range bands {
		if strings.TrimSpace(b.Name) == "" {
			return nil, apperrors.NewBandMismatchError(fmt.Sprintf("image %s has an unnamed band", id), nil)
		}
		if seen[b.Name] {
			return nil, apperrors.NewBandMismatchError(fmt.Sprintf("image %s repeats band %s", id, b.Name), nil)
		}
		seen[b.Name] = true
		if len(b.Data) != grid.Len() {
			return nil, apperrors.NewGeometryMismatchError(
				fmt.Sprintf("band %s of image %s has %d pixels, grid %s needs %d", b.Name, id, len(b.Data), grid, grid.Len()), nil)
		}
		data := make([]float64, len(b.Data))
		copy(data, b.Data)
		copied[i] = Band{Name: b.Name, Data: data}
	}
	return &Image{
		ID:         id,
		Sensor:     sensor,
		Captured:   captured,
		Grid:       grid,
		Properties: props.Clone(),
		bands:      copied,
	}, nil
}

// Constant builds an image whose bands all hold a single value.
func Constant(id string, sensor Sensor, captured time.Time, grid Grid, value float64, names ...string) (*Image, error) {
	bands := make([]Band, len(names))
	for i, name := range names {
		data := make([]float64, grid.Len())
		for j := range data {
			data[j] = value
		}
		bands[i] = Band{Name: name, Data: data}
	}
	return NewImage(id, sensor, captured, grid, nil, bands...)
}

// derive builds an image from bands the caller owns, skipping the defensive copy.
func (img *Image) derive(id string, bands []Band) *Image {
	return &Image{
		ID:         id,
		Sensor:     img.Sensor,
		Captured:   img.Captured,
		Grid:       img.Grid,
		Properties: img.Properties,
		bands:      bands,
	}
}

// Bands returns the bands in order. The pixel slices must not be modified.
func (img *Image) Bands() []Band {
	out := make([]Band, len(img.bands))
	copy(out, img.bands)
	return out
}

func (img *Image) BandNames() []string {
	names := make([]string, len(img.bands))
	for i, b := range img.bands {
		names[i] = b.Name
	}
	return names
}

func (img *Image) Band(name string) (Band, bool) {
	for _, b := range img.bands {
		if b.Name == name {
			return b, true
		}
	}
	return Band{}, false
}

// At returns the value of a band at pixel (col, row).
func (img *Image) At(name string, col, row int) (float64, bool) {
	b, ok := img.Band(name)
	if !ok || col < 0 || row < 0 || col >= img.Grid.Width || row >= img.Grid.Height {
		return Masked, false
	}
	return b.Data[row*img.Grid.Width+col], true
}

// Select keeps the named bands in the order given.
func (img *Image) Select(names ...string) (*Image, error) {
	if len(names) == 0 {
		return img, nil
	}
	bands := make([]Band, 0, len(names))
	for _, name := range names {
		b, ok := img.Band(name)
		if !ok {
			return nil, apperrors.NewBandMismatchError(
				fmt.Sprintf("image %s (%s) has no band %q; available: %s", img.ID, img.Sensor, name, strings.Join(img.BandNames(), ", ")), nil)
		}
		bands = append(bands, b)
	}
	return img.derive(img.ID, bands), nil
}

// Rename assigns new names to every band, in order.
func (img *Image) Rename(names ...string) (*Image, error) {
	if len(names) != len(img.bands) {
		return nil, apperrors.NewBandMismatchError(
			fmt.Sprintf("rename of image %s needs %d names, got %d", img.ID, len(img.bands), len(names)), nil)
	}
	bands := make([]Band, len(names))
	for i, name := range names {
		bands[i] = Band{Name: name, Data: img.bands[i].Data}
	}
	return NewImage(img.ID, img.Sensor, img.Captured, img.Grid, img.Properties, bands...)
}

// Cat stacks the bands of co-registered images into one image.
func Cat(id string, images ...*Image) (*Image, error) {
	if len(images) == 0 {
		return nil, apperrors.NewBandMismatchError("nothing to stack", nil)
	}
	base := images[0]
	var bands []Band
	for _, img := range images {
		if !img.Grid.Matches(base.Grid) {
			return nil, apperrors.NewGeometryMismatchError(
				fmt.Sprintf("cannot stack %s on %s: grid %s differs from %s", img.ID, base.ID, img.Grid, base.Grid), nil)
		}
		bands = append(bands, img.bands...)
	}
	return NewImage(id, Derived, base.Captured, base.Grid, nil, bands...)
}

// ResampleTo maps the image onto another grid by nearest neighbour.
// Target pixels outside the source footprint are masked.
func (img *Image) ResampleTo(target Grid) (*Image, error) {
	if err := target.Validate(); err != nil {
		return nil, apperrors.NewGeometryMismatchError("invalid resampling target", err)
	}
	if img.Grid.Matches(target) {
		return img, nil
	}
	if !img.Grid.Bounds.Intersects(target.Bounds) {
		return nil, apperrors.NewGeometryMismatchError(
			fmt.Sprintf("image %s at %s does not overlap %s", img.ID, img.Grid, target), nil)
	}
	bands := make([]Band, len(img.bands))
	for i, b := range img.bands {
		data := make([]float64, target.Len())
		for row := 0; row < target.Height; row++ {
			for col := 0; col < target.Width; col++ {
				lon, lat := target.Center(col, row)
				sc, sr, ok := img.Grid.Locate(lon, lat)
				if !ok {
					data[row*target.Width+col] = Masked
					continue
				}
				data[row*target.Width+col] = b.Data[sr*img.Grid.Width+sc]
			}
		}
		bands[i] = Band{Name: b.Name, Data: data}
	}
	out := img.derive(img.ID, bands)
	out.Grid = target
	return out, nil
}

// Summary describes the value range of each band, ignoring masked pixels.
type Summary struct {
	Band   string  `json:"band"`
	Min    float64 `json:"min"`
	Max    float64 `json:"max"`
	Valid  int     `json:"valid_pixels"`
	Masked int     `json:"masked_pixels"`
}

func (img *Image) Summaries() []Summary {
	out := make([]Summary, len(img.bands))
	for i, b := range img.bands {
		s := Summary{Band: b.Name, Min: math.Inf(1), Max: math.Inf(-1)}
		for _, v := range b.Data {
			if IsMasked(v) {
				s.Masked++
				continue
			}
			s.Valid++
			s.Min = math.Min(s.Min, v)
			s.Max = math.Max(s.Max, v)
		}
		if s.Valid == 0 {
			s.Min, s.Max = 0, 0
		}
		out[i] = s
	}
	return out
}
