package raster

import (
	"math"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"

	apperrors "github.com/irbid-geoai/geoai-monitor/internal/errors"
)

var testGrid = Grid{Bounds: Bounds{West: 35.0, South: 32.0, East: 36.0, North: 33.0}, Width: 2, Height: 2}

func newTestImage(t *testing.T, id string, captured string, props Properties, bands ...Band) *Image {
	t.Helper()
	ts, err := time.Parse(time.DateOnly, captured)
	if err != nil {
		t.Fatal(err)
	}
	img, err := NewImage(id, Sentinel2, ts, testGrid, props, bands...)
	if err != nil {
		t.Fatalf("NewImage(%s): %v", id, err)
	}
	return img
}

func TestGrid_LocateAndCenter(t *testing.T) {
	col, row, ok := testGrid.Locate(35.25, 32.75)
	if !ok || col != 0 || row != 0 {
		t.Errorf("Expected pixel (0,0), got (%d,%d,%v)", col, row, ok)
	}
	col, row, ok = testGrid.Locate(36.0, 32.0)
	if !ok || col != 1 || row != 1 {
		t.Errorf("Expected south-east corner in last pixel, got (%d,%d,%v)", col, row, ok)
	}
	if _, _, ok := testGrid.Locate(40, 32.5); ok {
		t.Error("Expected point outside grid to be rejected")
	}

	lon, lat := testGrid.Center(1, 0)
	if lon != 35.75 || lat != 32.75 {
		t.Errorf("Expected centre (35.75, 32.75), got (%g, %g)", lon, lat)
	}
}

func TestNewImage_Validation(t *testing.T) {
	ts := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

	if _, err := NewImage("short", Sentinel2, ts, testGrid, nil, Band{Name: "B4", Data: []float64{1}}); !apperrors.IsType(err, apperrors.ErrorTypeGeometryMismatch) {
		t.Errorf("Expected GeometryMismatchError for short band, got %v", err)
	}
	dup := []float64{1, 2, 3, 4}
	if _, err := NewImage("dup", Sentinel2, ts, testGrid, nil, Band{Name: "B4", Data: dup}, Band{Name: "B4", Data: dup}); !apperrors.IsType(err, apperrors.ErrorTypeBandMismatch) {
		t.Errorf("Expected BandMismatchError for repeated band, got %v", err)
	}
}

func TestImage_IsImmutable(t *testing.T) {
	data := []float64{1, 2, 3, 4}
	img := newTestImage(t, "a", "2024-01-01", nil, Band{Name: "B4", Data: data})
	data[0] = 99

	if v, _ := img.At("B4", 0, 0); v != 1 {
		t.Errorf("Expected image to keep its own copy, got %g", v)
	}

	renamed, err := img.Rename("RED")
	if err != nil {
		t.Fatal(err)
	}
	if _, ok := img.Band("RED"); ok {
		t.Error("Rename must not modify the source image")
	}
	if _, ok := renamed.Band("RED"); !ok {
		t.Error("Expected renamed band")
	}
}

func TestPropertyFilter_Match(t *testing.T) {
	props := Properties{"CLOUDY_PIXEL_PERCENTAGE": 3.0, "instrumentMode": "IW"}

	tests := []struct {
		filter PropertyFilter
		want   bool
	}{
		{Lt("CLOUDY_PIXEL_PERCENTAGE", 5), true},
		{Lt("CLOUDY_PIXEL_PERCENTAGE", 3), false},
		{PropertyFilter{Property: "CLOUDY_PIXEL_PERCENTAGE", Op: LessOrEqual, Value: 3.0}, true},
		{Eq("instrumentMode", "IW"), true},
		{Eq("instrumentMode", "EW"), false},
		{PropertyFilter{Property: "instrumentMode", Op: NotEqual, Value: "EW"}, true},
		{Lt("CLOUD_COVER", 10), false},
	}
	for _, tt := range tests {
		if got := tt.filter.Match(props); got != tt.want {
			t.Errorf("%+v.Match = %v, want %v", tt.filter, got, tt.want)
		}
	}
}

func TestCollection_FiltersDoNotMutate(t *testing.T) {
	a := newTestImage(t, "a", "2023-06-01", Properties{"CLOUD_COVER": 10.0}, Band{Name: "B4", Data: []float64{1, 1, 1, 1}})
	b := newTestImage(t, "b", "2024-06-01", Properties{"CLOUD_COVER": 2.0}, Band{Name: "B4", Data: []float64{2, 2, 2, 2}})
	c := NewCollection("test", a, b)

	filtered := c.FilterDate(Dates("2024-01-01", "2025-01-01"))
	if filtered.Len() != 1 || c.Len() != 2 {
		t.Fatalf("Expected 1 filtered and 2 original images, got %d and %d", filtered.Len(), c.Len())
	}
	if c.FilterBounds(Point(10, 10)).Len() != 0 {
		t.Error("Expected no image to cover a distant point")
	}
	if c.FilterBounds(Point(35.5, 32.5)).Len() != 2 {
		t.Error("Expected both images to cover the study point")
	}

	sorted := c.Sort("CLOUD_COVER", true)
	first, err := sorted.First()
	if err != nil || first.ID != "b" {
		t.Errorf("Expected least cloudy image b first, got %v (%v)", first, err)
	}
	if c.Images()[0].ID != "a" {
		t.Error("Sort must not reorder the source collection")
	}
}

func TestCollection_Composites(t *testing.T) {
	nan := math.NaN()
	a := newTestImage(t, "a", "2024-02-01", nil, Band{Name: "B", Data: []float64{1, nan, 5, nan}})
	b := newTestImage(t, "b", "2024-01-01", nil, Band{Name: "B", Data: []float64{3, 4, nan, nan}})
	c := newTestImage(t, "c", "2024-03-01", nil, Band{Name: "B", Data: []float64{2, 6, nan, nan}})
	coll := NewCollection("test", a, b, c)

	tests := []struct {
		op   Composite
		want []float64
	}{
		{CompositeMedian, []float64{2, 5, 5, nan}},
		{CompositeSum, []float64{6, 10, 5, nan}},
		{CompositeMosaic, []float64{2, 6, 5, nan}},
	}
	for _, tt := range tests {
		t.Run(string(tt.op), func(t *testing.T) {
			img, err := coll.Reduce(tt.op, "")
			if err != nil {
				t.Fatal(err)
			}
			band, _ := img.Band("B")
			if diff := cmp.Diff(tt.want, band.Data, cmpopts.EquateNaNs()); diff != "" {
				t.Errorf("composite mismatch (-want +got):\n%s", diff)
			}
			if !img.Captured.Equal(b.Captured) {
				t.Errorf("Expected composite to carry earliest capture date, got %s", img.Captured)
			}
		})
	}
}

func TestCollection_EmptyAndMismatched(t *testing.T) {
	_, err := NewCollection("empty").Median()
	if !apperrors.IsType(err, apperrors.ErrorTypeNoData) {
		t.Errorf("Expected NoDataError, got %v", err)
	}

	a := newTestImage(t, "a", "2024-01-01", nil, Band{Name: "B", Data: []float64{1, 2, 3, 4}})
	other, err := NewImage("b", Sentinel2, a.Captured, Grid{Bounds: testGrid.Bounds, Width: 1, Height: 1}, nil, Band{Name: "B", Data: []float64{1}})
	if err != nil {
		t.Fatal(err)
	}
	if _, err := NewCollection("mixed", a, other).Median(); !apperrors.IsType(err, apperrors.ErrorTypeGeometryMismatch) {
		t.Errorf("Expected GeometryMismatchError, got %v", err)
	}
}

func TestImage_ResampleTo(t *testing.T) {
	coarse, err := NewImage("coarse", ERA5Land, time.Time{}, Grid{Bounds: testGrid.Bounds, Width: 1, Height: 1}, nil,
		Band{Name: "total_precipitation", Data: []float64{0.3}})
	if err != nil {
		t.Fatal(err)
	}
	fine, err := coarse.ResampleTo(testGrid)
	if err != nil {
		t.Fatal(err)
	}
	band, _ := fine.Band("total_precipitation")
	if diff := cmp.Diff([]float64{0.3, 0.3, 0.3, 0.3}, band.Data); diff != "" {
		t.Errorf("resample mismatch (-want +got):\n%s", diff)
	}

	shifted := Grid{Bounds: Bounds{West: 35.5, South: 32.0, East: 36.5, North: 33.0}, Width: 2, Height: 2}
	out, err := coarse.ResampleTo(shifted)
	if err != nil {
		t.Fatal(err)
	}
	if v, _ := out.At("total_precipitation", 1, 0); !IsMasked(v) {
		t.Errorf("Expected pixel outside the source footprint to be masked, got %g", v)
	}
}

func TestCat_RequiresCoRegistration(t *testing.T) {
	a := newTestImage(t, "a", "2024-01-01", nil, Band{Name: "NDVI", Data: []float64{1, 2, 3, 4}})
	b := newTestImage(t, "b", "2024-01-01", nil, Band{Name: "NDBI", Data: []float64{4, 3, 2, 1}})

	stack, err := Cat("stack", a, b)
	if err != nil {
		t.Fatal(err)
	}
	if diff := cmp.Diff([]string{"NDVI", "NDBI"}, stack.BandNames()); diff != "" {
		t.Errorf("band order mismatch (-want +got):\n%s", diff)
	}

	odd, _ := NewImage("odd", Sentinel2, a.Captured, Grid{Bounds: testGrid.Bounds, Width: 1, Height: 1}, nil, Band{Name: "X", Data: []float64{1}})
	if _, err := Cat("bad", a, odd); !apperrors.IsType(err, apperrors.ErrorTypeGeometryMismatch) {
		t.Errorf("Expected GeometryMismatchError, got %v", err)
	}
}
