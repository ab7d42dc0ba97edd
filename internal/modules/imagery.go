package modules

import (
	"context"
	"fmt"
	"math"
	"strings"

	"github.com/irbid-geoai/geoai-monitor/internal/change"
	"github.com/irbid-geoai/geoai-monitor/internal/dispatch"
	"github.com/irbid-geoai/geoai-monitor/internal/engine"
	apperrors "github.com/irbid-geoai/geoai-monitor/internal/errors"
	"github.com/irbid-geoai/geoai-monitor/internal/indices"
	"github.com/irbid-geoai/geoai-monitor/internal/raster"
	"github.com/irbid-geoai/geoai-monitor/pkg/models"
)

// historicalComparison shows the 1980s Landsat scene next to the 2024
// Sentinel-2 composite in true colour.
type historicalComparison struct{ Deps }

func (h *historicalComparison) Run(ctx context.Context, _ dispatch.Request) (*models.Result, error) {
	early := h.Provider.Fetch(landsat5(h.Region))
	late := h.Provider.Fetch(sentinel2(h.Region))
	pair := engine.Combine(early, late, "historical-comparison", func(e, l *raster.Image) ([2]*raster.Image, error) {
		left, err := e.Select(landsatTrueColor.Bands...)
		if err != nil {
			return [2]*raster.Image{}, err
		}
		right, err := l.Select(sentinelTrueColor.Bands...)
		if err != nil {
			return [2]*raster.Image{}, err
		}
		return [2]*raster.Image{left, right}, nil
	})

	images, err := engine.Materialize(ctx, h.Materializer, pair)
	if err != nil {
		return nil, err
	}

	center := h.center(dispatch.HistoricalComparison, comparisonZoom)
	left := layer(h.place(images[0]), landsatTrueColor, images[0])
	right := layer(h.place(images[1]), sentinelTrueColor, images[1])
	return &models.Result{
		Layers: []models.Layer{left, right},
		Split:  &models.SplitView{Left: left, Right: right, Center: *center},
		Center: center,
	}, nil
}

// place names a layer after the study city and the capture year.
func (d Deps) place(img *raster.Image) string {
	city, _, _ := strings.Cut(d.Region.Name, ",")
	return fmt.Sprintf("%s %d", strings.TrimSpace(city), img.Captured.Year())
}

// changeDetection maps vegetation and built-up change between the Landsat
// baseline and the Sentinel-2 composite.
type changeDetection struct{ Deps }

type changePair struct {
	vegetation change.Map
	builtUp    change.Map
}

func (h *changeDetection) Run(ctx context.Context, _ dispatch.Request) (*models.Result, error) {
	early := h.Provider.Fetch(landsat5(h.Region))
	late := h.Provider.Fetch(sentinel2(h.Region))
	maps := engine.Combine(late, early, "change-detection", func(l, e *raster.Image) (changePair, error) {
		ndvi, err := delta(l, e, indices.NDVI)
		if err != nil {
			return changePair{}, err
		}
		ndbi, err := delta(l, e, indices.NDBI)
		if err != nil {
			return changePair{}, err
		}
		return changePair{vegetation: ndvi, builtUp: ndbi}, nil
	})

	pair, err := engine.Materialize(ctx, h.Materializer, maps)
	if err != nil {
		return nil, err
	}

	ndviLabel := "Δ" + string(indices.NDVI)
	ndbiLabel := "Δ" + string(indices.NDBI)
	return &models.Result{
		Layers: []models.Layer{
			layer(ndviLabel, ndviChangeVis, pair.vegetation.Image),
			layer(ndbiLabel, ndbiChangeVis, pair.builtUp.Image),
		},
		Colorbars: []models.Colorbar{
			colorbar(ndviLabel, ndviChangeVis),
			colorbar(ndbiLabel, ndbiChangeVis),
		},
		Center: h.center(dispatch.ChangeDetection, changeZoom),
	}, nil
}

// delta computes one index on both images, with the early index resampled
// onto the late grid, and differences them.
func delta(late, early *raster.Image, kind indices.Kind) (change.Map, error) {
	li, err := indices.Compute(late, kind)
	if err != nil {
		return change.Map{}, err
	}
	ei, err := indices.Compute(early, kind)
	if err != nil {
		return change.Map{}, err
	}
	if ei, err = align(ei, li.Image.Grid); err != nil {
		return change.Map{}, err
	}
	return change.Delta(li, ei)
}

// landCoverClassification shows the 2024 Dynamic World label mosaic.
type landCoverClassification struct{ Deps }

func (h *landCoverClassification) Run(ctx context.Context, _ dispatch.Request) (*models.Result, error) {
	img, err := engine.Materialize(ctx, h.Materializer, h.Provider.Fetch(dynamicWorld(h.Region)))
	if err != nil {
		return nil, err
	}
	scalars, err := classShares(img)
	if err != nil {
		return nil, err
	}

	return &models.Result{
		Layers:  []models.Layer{layer("Dynamic World LULC", landCoverVis(), img)},
		Legend:  &models.Legend{Title: "Land Cover Classes", Entries: landCover},
		Center:  h.center(dispatch.LULCClassification, landCoverZoom),
		Scalars: scalars,
	}, nil
}

// classShares returns the share of valid label pixels in each land cover
// class, rounded to four decimals.
func classShares(img *raster.Image) (map[string]float64, error) {
	b, ok := img.Band(LabelBand)
	if !ok {
		return nil, apperrors.NewBandMismatchError(
			fmt.Sprintf("land cover image %s has no %s band", img.ID, LabelBand), nil)
	}

	counts := make([]int, len(landCover))
	valid := 0
	for _, v := range b.Data {
		if raster.IsMasked(v) {
			continue
		}
		class := int(v)
		if float64(class) != v || class < 0 || class >= len(landCover) {
			continue
		}
		counts[class]++
		valid++
	}
	scalars := make(map[string]float64, len(landCover))
	for i, e := range landCover {
		share := 0.0
		if valid > 0 {
			share = math.Round(float64(counts[i])/float64(valid)*1e4) / 1e4
		}
		scalars[e.Label] = share
	}
	return scalars, nil
}

// sarValidation shows the median Sentinel-1 VH backscatter.
type sarValidation struct{ Deps }

func (h *sarValidation) Run(ctx context.Context, _ dispatch.Request) (*models.Result, error) {
	img, err := engine.Materialize(ctx, h.Materializer, h.Provider.Fetch(sentinel1(h.Region)))
	if err != nil {
		return nil, err
	}
	return &models.Result{
		Layers:    []models.Layer{layer("Sentinel-1 VH", sarVis, img)},
		Colorbars: []models.Colorbar{colorbar("SAR Backscatter (dB)", sarVis)},
		Center:    h.center(dispatch.SARValidation, sarZoom),
	}, nil
}
