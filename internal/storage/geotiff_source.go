//go:build gdal

package storage

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/airbusgeo/godal"

	apperrors "github.com/irbid-geoai/geoai-monitor/internal/errors"
	"github.com/irbid-geoai/geoai-monitor/internal/raster"
)

var registerDrivers sync.Once

// GeoTIFFSource reads <root>/<collection>/*.tif. Each file has a sidecar
// <name>.json holding the scene metadata; band names come from the sidecar
// band_order, falling back to the GDAL band descriptions.
type GeoTIFFSource struct {
	root string
}

func NewGeoTIFFSource(root string) (*GeoTIFFSource, error) {
	registerDrivers.Do(godal.RegisterAll)
	return &GeoTIFFSource{root: root}, nil
}

type sidecar struct {
	ID         string         `json:"id"`
	Sensor     string         `json:"sensor"`
	Captured   time.Time      `json:"captured"`
	Properties map[string]any `json:"properties"`
	BandOrder  []string       `json:"band_order"`
}

func (s *GeoTIFFSource) Scenes(ctx context.Context, collectionID string) ([]*raster.Image, error) {
	dir := filepath.Join(s.root, collectionKey(collectionID))
	paths, err := filepath.Glob(filepath.Join(dir, "*.tif"))
	if err != nil {
		return nil, apperrors.NewInternalError(fmt.Sprintf("listing GeoTIFFs in %s", dir), err)
	}
	sort.Strings(paths)

	images := make([]*raster.Image, 0, len(paths))
	for _, p := range paths {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		img, err := s.read(p)
		if err != nil {
			return nil, err
		}
		images = append(images, img)
	}
	return images, nil
}

func (s *GeoTIFFSource) read(path string) (*raster.Image, error) {
	meta, err := readSidecar(strings.TrimSuffix(path, filepath.Ext(path)) + ".json")
	if err != nil {
		return nil, err
	}

	ds, err := godal.Open(path)
	if err != nil {
		return nil, apperrors.NewInternalError(fmt.Sprintf("opening %s", path), err)
	}
	defer ds.Close()

	structure := ds.Structure()
	gt, err := ds.GeoTransform()
	if err != nil {
		return nil, apperrors.NewGeometryMismatchError(fmt.Sprintf("%s has no geotransform", path), err)
	}
	// North-up rasters only: gt[2] and gt[4] are rotation terms.
	if gt[2] != 0 || gt[4] != 0 {
		return nil, apperrors.NewGeometryMismatchError(fmt.Sprintf("%s is rotated", path), nil)
	}
	grid := raster.Grid{
		Bounds: raster.Bounds{
			West:  gt[0],
			North: gt[3],
			East:  gt[0] + float64(structure.SizeX)*gt[1],
			South: gt[3] + float64(structure.SizeY)*gt[5],
		},
		Width:  structure.SizeX,
		Height: structure.SizeY,
	}

	gdalBands := ds.Bands()
	if len(meta.BandOrder) > 0 && len(meta.BandOrder) != len(gdalBands) {
		return nil, apperrors.NewBandMismatchError(
			fmt.Sprintf("%s has %d bands, sidecar names %d", path, len(gdalBands), len(meta.BandOrder)), nil)
	}

	bands := make([]raster.Band, len(gdalBands))
	for i, gb := range gdalBands {
		data := make([]float64, structure.SizeX*structure.SizeY)
		if err := gb.Read(0, 0, data, structure.SizeX, structure.SizeY); err != nil {
			return nil, apperrors.NewInternalError(fmt.Sprintf("reading band %d of %s", i+1, path), err)
		}
		if nodata, ok := gb.NoData(); ok {
			for j, v := range data {
				if v == nodata {
					data[j] = raster.Masked
				}
			}
		}
		name := gb.Description()
		if len(meta.BandOrder) > 0 {
			name = meta.BandOrder[i]
		}
		if name == "" {
			name = fmt.Sprintf("B%d", i+1)
		}
		bands[i] = raster.Band{Name: name, Data: data}
	}

	id := meta.ID
	if id == "" {
		id = strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	}
	return raster.NewImage(id, raster.Sensor(meta.Sensor), meta.Captured.UTC(), grid, raster.Properties(meta.Properties), bands...)
}

func readSidecar(path string) (sidecar, error) {
	var meta sidecar
	raw, err := os.ReadFile(path)
	if err != nil {
		return meta, apperrors.NewValidationError(fmt.Sprintf("missing scene sidecar %s", path), err)
	}
	if err := json.Unmarshal(raw, &meta); err != nil {
		return meta, apperrors.NewValidationError(fmt.Sprintf("malformed scene sidecar %s", path), err)
	}
	return meta, nil
}
