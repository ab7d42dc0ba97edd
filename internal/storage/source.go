// Package storage reads scene documents from the places the platform keeps
// them: memory, a local directory, an HTTP catalog, Azure Blob Storage or
// GeoTIFF files.
package storage

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"sort"
	"strings"
	"time"

	apperrors "github.com/irbid-geoai/geoai-monitor/internal/errors"
	"github.com/irbid-geoai/geoai-monitor/internal/raster"
)

// SceneSource lists every scene of a collection. Filtering happens downstream.
type SceneSource interface {
	Scenes(ctx context.Context, collectionID string) ([]*raster.Image, error)
}

// SceneDocument is the JSON form of a scene. A null pixel is masked.
type SceneDocument struct {
	ID         string                `json:"id"`
	Collection string                `json:"collection"`
	Sensor     string                `json:"sensor"`
	Captured   time.Time             `json:"captured"`
	Bounds     raster.Bounds         `json:"bounds"`
	Width      int                   `json:"width"`
	Height     int                   `json:"height"`
	Properties map[string]any        `json:"properties,omitempty"`
	BandOrder  []string              `json:"band_order,omitempty"`
	Bands      map[string][]*float64 `json:"bands"`
}

// Image converts the document into a raster image. Without band_order the
// bands are ordered by name.
func (d SceneDocument) Image() (*raster.Image, error) {
	if d.ID == "" {
		return nil, apperrors.NewValidationError("scene document has no id", nil)
	}
	order := d.BandOrder
	if len(order) == 0 {
		for name := range d.Bands {
			order = append(order, name)
		}
		sort.Strings(order)
	}

	bands := make([]raster.Band, 0, len(order))
	for _, name := range order {
		values, ok := d.Bands[name]
		if !ok {
			return nil, apperrors.NewBandMismatchError(fmt.Sprintf("scene %s lists band %s without data", d.ID, name), nil)
		}
		data := make([]float64, len(values))
		for i, v := range values {
			if v == nil {
				data[i] = raster.Masked
				continue
			}
			data[i] = *v
		}
		bands = append(bands, raster.Band{Name: name, Data: data})
	}

	grid := raster.Grid{Bounds: d.Bounds, Width: d.Width, Height: d.Height}
	return raster.NewImage(d.ID, raster.Sensor(d.Sensor), d.Captured.UTC(), grid, raster.Properties(d.Properties), bands...)
}

// Document is the inverse of SceneDocument.Image.
func Document(collectionID string, img *raster.Image) SceneDocument {
	doc := SceneDocument{
		ID:         img.ID,
		Collection: collectionID,
		Sensor:     string(img.Sensor),
		Captured:   img.Captured,
		Bounds:     img.Grid.Bounds,
		Width:      img.Grid.Width,
		Height:     img.Grid.Height,
		Properties: img.Properties.Clone(),
		BandOrder:  img.BandNames(),
		Bands:      make(map[string][]*float64),
	}
	for _, b := range img.Bands() {
		values := make([]*float64, len(b.Data))
		for i := range b.Data {
			if raster.IsMasked(b.Data[i]) {
				continue
			}
			v := b.Data[i]
			values[i] = &v
		}
		doc.Bands[b.Name] = values
	}
	return doc
}

// decodeScenes accepts a single document or an array of them.
func decodeScenes(r io.Reader, collectionID string) ([]*raster.Image, error) {
	raw, err := io.ReadAll(r)
	if err != nil {
		return nil, apperrors.NewNetworkError("reading scene documents", err)
	}

	var docs []SceneDocument
	trimmed := strings.TrimSpace(string(raw))
	if strings.HasPrefix(trimmed, "{") {
		var doc SceneDocument
		if err := json.Unmarshal(raw, &doc); err != nil {
			return nil, apperrors.NewValidationError("malformed scene document", err)
		}
		docs = []SceneDocument{doc}
	} else if err := json.Unmarshal(raw, &docs); err != nil {
		return nil, apperrors.NewValidationError("malformed scene document list", err)
	}

	images := make([]*raster.Image, 0, len(docs))
	for _, doc := range docs {
		if doc.Collection != "" && doc.Collection != collectionID {
			continue
		}
		img, err := doc.Image()
		if err != nil {
			return nil, err
		}
		images = append(images, img)
	}
	return images, nil
}

// collectionKey turns a collection id into a path-safe name.
func collectionKey(collectionID string) string {
	return strings.ReplaceAll(collectionID, "/", "_")
}
