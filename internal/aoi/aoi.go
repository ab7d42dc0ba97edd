// Package aoi ingests operator-supplied areas of interest from GeoJSON.
package aoi

import (
	"encoding/json"
	"fmt"
	"math"
	"sort"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/clip"
	"github.com/paulmach/orb/geo"
	"github.com/paulmach/orb/geojson"
	"github.com/paulmach/orb/planar"

	apperrors "github.com/irbid-geoai/geoai-monitor/internal/errors"
	"github.com/irbid-geoai/geoai-monitor/internal/raster"
)

// AOI is a validated lon/lat polygon area.
type AOI struct {
	shape orb.MultiPolygon
}

// Parse accepts a FeatureCollection, a Feature, or a bare Polygon or
// MultiPolygon geometry. Every polygon found is unioned into one area.
func Parse(data []byte) (AOI, error) {
	var head struct {
		Type string `json:"type"`
	}
	if err := json.Unmarshal(data, &head); err != nil {
		return AOI{}, apperrors.NewInvalidAOIError("AOI is not a JSON document", err)
	}

	var geoms []orb.Geometry
	switch head.Type {
	case "FeatureCollection":
		fc, err := geojson.UnmarshalFeatureCollection(data)
		if err != nil {
			return AOI{}, apperrors.NewInvalidAOIError("malformed feature collection", err)
		}
		for _, f := range fc.Features {
			geoms = append(geoms, f.Geometry)
		}
	case "Feature":
		f, err := geojson.UnmarshalFeature(data)
		if err != nil {
			return AOI{}, apperrors.NewInvalidAOIError("malformed feature", err)
		}
		geoms = append(geoms, f.Geometry)
	case "Polygon", "MultiPolygon":
		g, err := geojson.UnmarshalGeometry(data)
		if err != nil {
			return AOI{}, apperrors.NewInvalidAOIError(fmt.Sprintf("malformed %s", head.Type), err)
		}
		geoms = append(geoms, g.Geometry())
	case "":
		return AOI{}, apperrors.NewInvalidAOIError("AOI document has no type", nil)
	default:
		return AOI{}, apperrors.NewInvalidAOIError(fmt.Sprintf("unsupported AOI type %q", head.Type), nil)
	}

	var shape orb.MultiPolygon
	for i, g := range geoms {
		switch v := g.(type) {
		case orb.Polygon:
			shape = append(shape, v)
		case orb.MultiPolygon:
			shape = append(shape, v...)
		case nil:
			return AOI{}, apperrors.NewInvalidAOIError(fmt.Sprintf("feature %d has no geometry", i), nil)
		default:
			return AOI{}, apperrors.NewInvalidAOIError(
				fmt.Sprintf("feature %d is a %s, only polygons describe an area", i, g.GeoJSONType()), nil)
		}
	}
	return New(shape)
}

// New validates a multipolygon as an AOI.
func New(shape orb.MultiPolygon) (AOI, error) {
	if len(shape) == 0 {
		return AOI{}, apperrors.NewInvalidAOIError("AOI has no polygons", nil)
	}
	for pi, poly := range shape {
		if len(poly) == 0 {
			return AOI{}, apperrors.NewInvalidAOIError(fmt.Sprintf("polygon %d has no rings", pi), nil)
		}
		for ri, ring := range poly {
			if err := validateRing(ring); err != nil {
				return AOI{}, apperrors.NewInvalidAOIError(fmt.Sprintf("polygon %d ring %d: %v", pi, ri, err), nil)
			}
		}
	}
	return AOI{shape: shape}, nil
}

// FromBounds is the rectangular AOI covering b.
func FromBounds(b raster.Bounds) (AOI, error) {
	ring := orb.Ring{
		{b.West, b.South}, {b.East, b.South}, {b.East, b.North}, {b.West, b.North}, {b.West, b.South},
	}
	return New(orb.MultiPolygon{{ring}})
}

func validateRing(ring orb.Ring) error {
	if len(ring) < 4 {
		return fmt.Errorf("needs at least 4 positions, has %d", len(ring))
	}
	if !ring.Closed() {
		return fmt.Errorf("is not closed")
	}
	for _, p := range ring {
		lon, lat := p.Lon(), p.Lat()
		if math.IsNaN(lon) || math.IsNaN(lat) || math.IsInf(lon, 0) || math.IsInf(lat, 0) {
			return fmt.Errorf("has a non-finite coordinate")
		}
		if lon < -180 || lon > 180 || lat < -90 || lat > 90 {
			return fmt.Errorf("coordinate (%g, %g) is outside lon/lat range", lon, lat)
		}
	}
	if planar.Area(ring) == 0 {
		return fmt.Errorf("encloses no area")
	}
	return nil
}

func (a AOI) Geometry() orb.MultiPolygon {
	return a.shape
}

// Bounds is the AOI bounding box.
func (a AOI) Bounds() raster.Bounds {
	b := a.shape.Bound()
	return raster.Bounds{West: b.Min.Lon(), South: b.Min.Lat(), East: b.Max.Lon(), North: b.Max.Lat()}
}

func (a AOI) Contains(lon, lat float64) bool {
	return planar.MultiPolygonContains(a.shape, orb.Point{lon, lat})
}

// AreaSquareMeters is the geodesic area of the AOI.
func (a AOI) AreaSquareMeters() float64 {
	return geo.Area(a.shape)
}

// Intersects reports whether the AOI overlaps a box with non-zero area.
func (a AOI) Intersects(b raster.Bounds) bool {
	bound := orb.Bound{Min: orb.Point{b.West, b.South}, Max: orb.Point{b.East, b.North}}
	if !a.shape.Bound().Intersects(bound) {
		return false
	}
	return planar.Area(clip.MultiPolygon(bound, a.shape.Clone())) > 0
}

// InteriorPoint returns a point guaranteed to lie inside the AOI: the
// midpoint of the widest interior span along a horizontal line through the
// middle of the largest polygon.
func (a AOI) InteriorPoint() (lon, lat float64) {
	largest := a.shape[0]
	for _, p := range a.shape[1:] {
		if planar.Area(p) > planar.Area(largest) {
			largest = p
		}
	}

	b := largest.Bound()
	y := (b.Min.Lat() + b.Max.Lat()) / 2
	var xs []float64
	for _, ring := range largest {
		for i := 0; i+1 < len(ring); i++ {
			p, q := ring[i], ring[i+1]
			// Half-open test so a vertex on the line is counted once.
			if (p.Lat() > y) == (q.Lat() > y) {
				continue
			}
			xs = append(xs, p.Lon()+(y-p.Lat())*(q.Lon()-p.Lon())/(q.Lat()-p.Lat()))
		}
	}
	sort.Float64s(xs)

	bestWidth := -1.0
	lon = (b.Min.Lon() + b.Max.Lon()) / 2
	for i := 0; i+1 < len(xs); i += 2 {
		if w := xs[i+1] - xs[i]; w > bestWidth {
			bestWidth = w
			lon = (xs[i] + xs[i+1]) / 2
		}
	}
	return lon, y
}
