package region

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/serjvanilla/go-overpass"
	"github.com/sirupsen/logrus"

	"github.com/irbid-geoai/geoai-monitor/internal/logger"
	"github.com/irbid-geoai/geoai-monitor/internal/raster"
)

// BoundaryResolver looks up the bounding box of an OSM administrative boundary.
type BoundaryResolver interface {
	Boundary(ctx context.Context, r *Region) (raster.Bounds, error)
}

// OverpassResolver queries an Overpass API endpoint.
type OverpassResolver struct {
	client  overpass.Client
	timeout time.Duration
}

func NewOverpassResolver(endpoint string, timeout time.Duration) *OverpassResolver {
	httpClient := &http.Client{
		Timeout: timeout,
	}
	return &OverpassResolver{
		client:  overpass.NewWithSettings(endpoint, 2, httpClient),
		timeout: timeout,
	}
}

// Boundary asks for the bounding box of the region's relation, or of the
// administrative relation carrying the region name.
func (o *OverpassResolver) Boundary(ctx context.Context, r *Region) (raster.Bounds, error) {
	query := boundaryQuery(r)

	type outcome struct {
		result overpass.Result
		err    error
	}
	done := make(chan outcome, 1)
	go func() {
		res, err := o.client.Query(query)
		done <- outcome{result: res, err: err}
	}()

	var res overpass.Result
	select {
	case <-ctx.Done():
		return raster.Bounds{}, fmt.Errorf("overpass query for %s: %w", r.Name, ctx.Err())
	case out := <-done:
		if out.err != nil {
			return raster.Bounds{}, fmt.Errorf("overpass query failed: %w", out.err)
		}
		res = out.result
	}

	for _, rel := range res.Relations {
		if rel == nil || rel.Bounds == nil {
			continue
		}
		b := raster.Bounds{
			West:  rel.Bounds.Min.Lon,
			South: rel.Bounds.Min.Lat,
			East:  rel.Bounds.Max.Lon,
			North: rel.Bounds.Max.Lat,
		}
		if err := b.Validate(); err != nil {
			return raster.Bounds{}, fmt.Errorf("overpass returned unusable bounds for %s: %w", r.Name, err)
		}
		return b, nil
	}
	return raster.Bounds{}, fmt.Errorf("no boundary relation found for %s", r.Name)
}

func boundaryQuery(r *Region) string {
	if r.OSMRelation > 0 {
		return fmt.Sprintf("[out:json][timeout:25];relation(%d);out bb;", r.OSMRelation)
	}
	return fmt.Sprintf(`[out:json][timeout:25];relation["boundary"="administrative"]["name:en"=%q];out bb;`, cityName(r.Name))
}

// cityName drops the country suffix of names like "Irbid, Jordan".
func cityName(name string) string {
	city, _, _ := strings.Cut(name, ",")
	return strings.TrimSpace(city)
}

// Resolve fills in missing bounds from the resolver. Lookup failures and
// boundaries that do not contain the centre fall back to the default box.
func Resolve(ctx context.Context, r *Region, resolver BoundaryResolver) *Region {
	if r.Bounds != nil {
		return r
	}
	out := *r
	if resolver != nil {
		b, err := resolver.Boundary(ctx, r)
		switch {
		case err != nil:
			logger.WithError(err).WithField("region", r.Name).Warn("Boundary lookup failed, using default extent")
		case !b.Contains(r.Center.Lon, r.Center.Lat):
			logger.WithField("region", r.Name).Warn("Resolved boundary does not contain the centre, using default extent")
		default:
			out.Bounds = &b
			logger.WithFields(logrus.Fields{
				"region": r.Name,
				"west":   b.West,
				"south":  b.South,
				"east":   b.East,
				"north":  b.North,
			}).Info("Resolved study region boundary")
			return &out
		}
	}
	out.Bounds = out.fallbackBounds()
	return &out
}
