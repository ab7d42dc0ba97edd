package change

import (
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"

	apperrors "github.com/irbid-geoai/geoai-monitor/internal/errors"
	"github.com/irbid-geoai/geoai-monitor/internal/indices"
	"github.com/irbid-geoai/geoai-monitor/internal/raster"
)

var grid = raster.Grid{Bounds: raster.Bounds{West: 35.8, South: 32.5, East: 35.9, North: 32.6}, Width: 4, Height: 1}

func index(t *testing.T, kind indices.Kind, year int, g raster.Grid, values ...float64) indices.Index {
	t.Helper()
	date := time.Date(year, 6, 1, 0, 0, 0, 0, time.UTC)
	img, err := raster.NewImage("ix", raster.Derived, date, g, nil,
		raster.Band{Name: indices.BandName(kind, date), Data: values})
	if err != nil {
		t.Fatal(err)
	}
	return indices.Index{Kind: kind, Date: date, Image: img}
}

func TestDelta_Antisymmetric(t *testing.T) {
	a := index(t, indices.NDVI, 2024, grid, 0.7, -0.3, raster.Masked, 0.123456789)
	b := index(t, indices.NDVI, 1985, grid, 0.2, 0.4, 0.1, -0.987654321)

	ab, err := Delta(a, b)
	if err != nil {
		t.Fatal(err)
	}
	ba, err := Delta(b, a)
	if err != nil {
		t.Fatal(err)
	}

	fwd, _ := ab.Image.Band("dNDVI")
	rev, _ := ba.Image.Band("dNDVI")
	negated := make([]float64, len(rev.Data))
	for i, v := range rev.Data {
		negated[i] = -v
	}
	if diff := cmp.Diff(fwd.Data, negated, cmpopts.EquateNaNs()); diff != "" {
		t.Errorf("Delta is not antisymmetric (-ab +(-ba)):\n%s", diff)
	}
	if !raster.IsMasked(fwd.Data[2]) {
		t.Errorf("Expected masked input to stay masked, got %v", fwd.Data[2])
	}
}

func TestDelta_Errors(t *testing.T) {
	other := raster.Grid{Bounds: grid.Bounds, Width: 2, Height: 2}
	tests := []struct {
		name    string
		late    indices.Index
		early   indices.Index
		errType apperrors.ErrorType
	}{
		{
			name:    "grid mismatch",
			late:    index(t, indices.NDVI, 2024, grid, 1, 1, 1, 1),
			early:   index(t, indices.NDVI, 1985, other, 1, 1, 1, 1),
			errType: apperrors.ErrorTypeGeometryMismatch,
		},
		{
			name:    "kind mismatch",
			late:    index(t, indices.NDVI, 2024, grid, 1, 1, 1, 1),
			early:   index(t, indices.NDBI, 1985, grid, 1, 1, 1, 1),
			errType: apperrors.ErrorTypeBandMismatch,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := Delta(tt.late, tt.early); !apperrors.IsType(err, tt.errType) {
				t.Errorf("Expected %s, got %v", tt.errType, err)
			}
		})
	}
}
