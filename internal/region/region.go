// Package region describes the study region every module runs over.
package region

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/irbid-geoai/geoai-monitor/internal/raster"
)

const (
	DefaultName = "Irbid, Jordan"
	DefaultLat  = 32.55
	DefaultLon  = 35.85
	DefaultZoom = 12

	// DefaultHalfSize is the half-width in degrees of the fallback box
	// around the centre when no bounds are known.
	DefaultHalfSize = 0.125
)

// Center is a map centre in degrees.
type Center struct {
	Lat float64 `yaml:"lat" json:"lat"`
	Lon float64 `yaml:"lon" json:"lon"`
}

// ModuleParams overrides the defaults of one module.
type ModuleParams struct {
	Zoom      int     `yaml:"zoom,omitempty"`
	Model     string  `yaml:"model,omitempty"`
	Trees     int     `yaml:"trees,omitempty"`
	Scale     float64 `yaml:"scale,omitempty"`
	MaxPixels float64 `yaml:"max_pixels,omitempty"`
}

// Region is the study area loaded from YAML.
type Region struct {
	Name   string         `yaml:"name"`
	Center Center         `yaml:"center"`
	Zoom   int            `yaml:"zoom"`
	Bounds *raster.Bounds `yaml:"bounds,omitempty"`

	// OSMRelation is the administrative boundary used to resolve Bounds
	// when none are given.
	OSMRelation int64 `yaml:"osm_relation,omitempty"`

	Modules map[string]ModuleParams `yaml:"modules,omitempty"`
}

// Default is the Irbid study region with a box around the centre.
func Default() *Region {
	r := &Region{
		Name:   DefaultName,
		Center: Center{Lat: DefaultLat, Lon: DefaultLon},
		Zoom:   DefaultZoom,
	}
	r.Bounds = r.fallbackBounds()
	return r
}

// Load reads a region file. Missing fields take the Irbid defaults; bounds
// stay nil when the file has none so they can be resolved later.
func Load(path string) (*Region, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read study region: %w", err)
	}
	return Parse(data)
}

func Parse(data []byte) (*Region, error) {
	r := &Region{}
	if err := yaml.Unmarshal(data, r); err != nil {
		return nil, fmt.Errorf("parse study region: %w", err)
	}
	if r.Name == "" {
		r.Name = DefaultName
	}
	if r.Center == (Center{}) {
		r.Center = Center{Lat: DefaultLat, Lon: DefaultLon}
	}
	if r.Zoom == 0 {
		r.Zoom = DefaultZoom
	}
	if err := r.Validate(); err != nil {
		return nil, err
	}
	return r, nil
}

func (r *Region) Validate() error {
	if r.Center.Lat < -90 || r.Center.Lat > 90 || r.Center.Lon < -180 || r.Center.Lon > 180 {
		return fmt.Errorf("study region centre (%g, %g) outside lon/lat range", r.Center.Lat, r.Center.Lon)
	}
	if r.Zoom < 0 || r.Zoom > 22 {
		return fmt.Errorf("study region zoom %d outside 0..22", r.Zoom)
	}
	if r.Bounds != nil {
		if err := r.Bounds.Validate(); err != nil {
			return fmt.Errorf("study region bounds: %w", err)
		}
		if !r.Bounds.Contains(r.Center.Lon, r.Center.Lat) {
			return fmt.Errorf("study region centre (%g, %g) lies outside its bounds", r.Center.Lat, r.Center.Lon)
		}
	}
	for name, p := range r.Modules {
		if p.Zoom < 0 || p.Zoom > 22 || p.Trees < 0 || p.Scale < 0 || p.MaxPixels < 0 {
			return fmt.Errorf("study region parameters for %s are out of range", name)
		}
	}
	return nil
}

// Point is the degenerate bounds of the centre, used as the spatial filter.
func (r *Region) Point() raster.Bounds {
	return raster.Point(r.Center.Lon, r.Center.Lat)
}

// Extent returns the region bounds, or the fallback box when unresolved.
func (r *Region) Extent() raster.Bounds {
	if r.Bounds != nil {
		return *r.Bounds
	}
	return *r.fallbackBounds()
}

func (r *Region) fallbackBounds() *raster.Bounds {
	b := raster.Around(r.Center.Lon, r.Center.Lat, DefaultHalfSize)
	return &b
}

// Params returns the overrides for a module, zero when there are none.
func (r *Region) Params(module string) ModuleParams {
	return r.Modules[module]
}
