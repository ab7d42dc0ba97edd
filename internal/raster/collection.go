package raster

import (
	"fmt"
	"sort"

	"github.com/montanaflynn/stats"

	apperrors "github.com/irbid-geoai/geoai-monitor/internal/errors"
)

// Composite names the reduction that turns a collection into one image.
type Composite string

const (
	CompositeMedian         Composite = "median"
	CompositeMosaic         Composite = "mosaic"
	CompositeFirstAfterSort Composite = "first-after-sort"
	CompositeSum            Composite = "sum"
)

func (c Composite) Valid() bool {
	switch c {
	case CompositeMedian, CompositeMosaic, CompositeFirstAfterSort, CompositeSum:
		return true
	}
	return false
}

// Collection is an ordered, immutable set of images.
type Collection struct {
	id     string
	images []*Image
}

func NewCollection(id string, images ...*Image) Collection {
	cp := make([]*Image, len(images))
	copy(cp, images)
	return Collection{id: id, images: cp}
}

func (c Collection) ID() string { return c.id }

func (c Collection) Len() int { return len(c.images) }

func (c Collection) Images() []*Image {
	out := make([]*Image, len(c.images))
	copy(out, c.images)
	return out
}

func (c Collection) filter(keep func(*Image) bool) Collection {
	out := make([]*Image, 0, len(c.images))
	for _, img := range c.images {
		if keep(img) {
			out = append(out, img)
		}
	}
	return Collection{id: c.id, images: out}
}

// FilterBounds keeps images whose footprint intersects the region.
func (c Collection) FilterBounds(region Bounds) Collection {
	return c.filter(func(img *Image) bool { return img.Grid.Bounds.Intersects(region) })
}

// FilterDate keeps images captured inside the range.
func (c Collection) FilterDate(r DateRange) Collection {
	return c.filter(func(img *Image) bool { return r.Contains(img.Captured) })
}

func (c Collection) Filter(f PropertyFilter) Collection {
	return c.filter(func(img *Image) bool { return f.Match(img.Properties) })
}

// Sort orders images by a numeric property. Images without it go last.
func (c Collection) Sort(property string, ascending bool) Collection {
	out := c.Images()
	sort.SliceStable(out, func(i, j int) bool {
		a, aok := out[i].Properties.Number(property)
		b, bok := out[j].Properties.Number(property)
		switch {
		case aok && !bok:
			return true
		case !aok:
			return false
		case ascending:
			return a < b
		default:
			return a > b
		}
	})
	return Collection{id: c.id, images: out}
}

// Select narrows every image to the named bands.
func (c Collection) Select(names ...string) (Collection, error) {
	out := make([]*Image, len(c.images))
	for i, img := range c.images {
		sel, err := img.Select(names...)
		if err != nil {
			return Collection{}, err
		}
		out[i] = sel
	}
	return Collection{id: c.id, images: out}, nil
}

func (c Collection) First() (*Image, error) {
	if len(c.images) == 0 {
		return nil, c.empty()
	}
	return c.images[0], nil
}

// Reduce applies a composite. sortBy is only used by first-after-sort.
func (c Collection) Reduce(op Composite, sortBy string) (*Image, error) {
	switch op {
	case CompositeMedian:
		return c.Median()
	case CompositeMosaic:
		return c.Mosaic()
	case CompositeSum:
		return c.Sum()
	case CompositeFirstAfterSort:
		if sortBy == "" {
			return nil, apperrors.NewValidationError("first-after-sort needs a sort property", nil)
		}
		return c.Sort(sortBy, true).First()
	}
	return nil, apperrors.NewValidationError(fmt.Sprintf("unsupported composite %q", op), nil)
}

// Median takes the per-pixel median of unmasked values.
func (c Collection) Median() (*Image, error) {
	buf := make(stats.Float64Data, 0, len(c.images))
	return c.pixelwise(string(CompositeMedian), func(values []float64) float64 {
		buf = buf[:0]
		for _, v := range values {
			if !IsMasked(v) {
				buf = append(buf, v)
			}
		}
		if len(buf) == 0 {
			return Masked
		}
		m, err := stats.Median(buf)
		if err != nil {
			return Masked
		}
		return m
	})
}

// Sum adds unmasked values per pixel; a pixel masked everywhere stays masked.
func (c Collection) Sum() (*Image, error) {
	buf := make(stats.Float64Data, 0, len(c.images))
	return c.pixelwise(string(CompositeSum), func(values []float64) float64 {
		buf = buf[:0]
		for _, v := range values {
			if !IsMasked(v) {
				buf = append(buf, v)
			}
		}
		if len(buf) == 0 {
			return Masked
		}
		s, err := stats.Sum(buf)
		if err != nil {
			return Masked
		}
		return s
	})
}

// Mosaic stacks images in collection order with the last one on top;
// masked pixels let the images underneath show through.
func (c Collection) Mosaic() (*Image, error) {
	return c.pixelwise(string(CompositeMosaic), func(values []float64) float64 {
		for i := len(values) - 1; i >= 0; i-- {
			if !IsMasked(values[i]) {
				return values[i]
			}
		}
		return Masked
	})
}

func (c Collection) pixelwise(name string, reduce func([]float64) float64) (*Image, error) {
	if len(c.images) == 0 {
		return nil, c.empty()
	}
	base := c.images[0]
	earliest := base.Captured
	for _, img := range c.images[1:] {
		if !img.Grid.Matches(base.Grid) {
			return nil, apperrors.NewGeometryMismatchError(
				fmt.Sprintf("%s composite of %s: image %s grid %s differs from %s", name, c.id, img.ID, img.Grid, base.Grid), nil)
		}
		if img.Captured.Before(earliest) {
			earliest = img.Captured
		}
	}

	names := base.BandNames()
	planes := make([][][]float64, len(names))
	for bi, bandName := range names {
		planes[bi] = make([][]float64, len(c.images))
		for ii, img := range c.images {
			b, ok := img.Band(bandName)
			if !ok {
				return nil, apperrors.NewBandMismatchError(
					fmt.Sprintf("%s composite of %s: image %s lacks band %s", name, c.id, img.ID, bandName), nil)
			}
			planes[bi][ii] = b.Data
		}
	}

	values := make([]float64, len(c.images))
	bands := make([]Band, len(names))
	for bi, bandName := range names {
		out := make([]float64, base.Grid.Len())
		for px := range out {
			for ii := range c.images {
				values[ii] = planes[bi][ii][px]
			}
			out[px] = reduce(values)
		}
		bands[bi] = Band{Name: bandName, Data: out}
	}

	composite := base.derive(fmt.Sprintf("%s/%s", c.id, name), bands)
	composite.Captured = earliest
	composite.Properties = Properties{"composite": name, "image_count": float64(len(c.images))}
	return composite, nil
}

func (c Collection) empty() error {
	return apperrors.NewNoDataError(fmt.Sprintf("collection %s is empty after filtering", c.id), nil)
}
