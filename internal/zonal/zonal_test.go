package zonal

import (
	"math"
	"testing"
	"time"

	"github.com/irbid-geoai/geoai-monitor/internal/aoi"
	apperrors "github.com/irbid-geoai/geoai-monitor/internal/errors"
	"github.com/irbid-geoai/geoai-monitor/internal/raster"
)

var studyGrid = raster.Grid{Bounds: raster.Around(35.85, 32.55, 0.25), Width: 50, Height: 50}

func mustAOI(t *testing.T, b raster.Bounds) aoi.AOI {
	t.Helper()
	a, err := aoi.FromBounds(b)
	if err != nil {
		t.Fatal(err)
	}
	return a
}

func TestAggregate_ConstantMeanIsExact(t *testing.T) {
	constants := []float64{0.1, 0.3, -0.7, 1.0 / 3.0, 12345.678}
	for _, c := range constants {
		img, err := raster.Constant("c", raster.Derived, time.Time{}, studyGrid, c, "NDVI_2024", "NDBI_2024")
		if err != nil {
			t.Fatal(err)
		}
		res, err := Aggregate(img, mustAOI(t, raster.Around(35.85, 32.55, 0.1)), Mean, 10, 1e9)
		if err != nil {
			t.Fatal(err)
		}
		for band, v := range res.Values {
			if v != c {
				t.Errorf("Band %s: expected exactly %v, got %v", band, c, v)
			}
		}
		if len(res.Values) != 2 {
			t.Errorf("Expected 2 bands, got %v", res.Values)
		}
	}
}

func TestAggregate_Reducers(t *testing.T) {
	grid := raster.Grid{Bounds: raster.Bounds{West: 0, South: 0, East: 0.04, North: 0.01}, Width: 4, Height: 1}
	img, err := raster.NewImage("r", raster.Derived, time.Time{}, grid, nil,
		raster.Band{Name: "v", Data: []float64{1, 2, raster.Masked, 6}})
	if err != nil {
		t.Fatal(err)
	}
	area := mustAOI(t, grid.Bounds)

	tests := []struct {
		reducer Reducer
		want    float64
	}{
		{Mean, 3},
		{Median, 2},
		{Sum, 9},
		{Min, 1},
		{Max, 6},
		{Count, 3},
		{StdDev, math.Sqrt(14.0 / 3.0)},
	}
	for _, tt := range tests {
		t.Run(string(tt.reducer), func(t *testing.T) {
			res, err := Aggregate(img, area, tt.reducer, 10, 1e9)
			if err != nil {
				t.Fatal(err)
			}
			if got := res.Values["v"]; math.Abs(got-tt.want) > 1e-12 {
				t.Errorf("Expected %v, got %v", tt.want, got)
			}
			if res.Pixels != 4 {
				t.Errorf("Expected 4 covered pixels, got %d", res.Pixels)
			}
		})
	}
}

func TestAggregate_PixelBudget(t *testing.T) {
	img, err := raster.Constant("c", raster.Derived, time.Time{}, studyGrid, 1, "v")
	if err != nil {
		t.Fatal(err)
	}
	// About 4.4e8 m² at 10 m scale implies 4.4e6 pixels.
	area := mustAOI(t, raster.Around(35.85, 32.55, 0.1))

	if _, err := Aggregate(img, area, Mean, 10, 1e6); !apperrors.IsType(err, apperrors.ErrorTypePixelBudgetExceeded) {
		t.Errorf("Expected PixelBudgetExceededError, got %v", err)
	}
	if _, err := Aggregate(img, area, Mean, 100, 1e6); err != nil {
		t.Errorf("Expected a coarser scale to fit the budget, got %v", err)
	}
}

func TestAggregate_Errors(t *testing.T) {
	img, err := raster.Constant("c", raster.Derived, time.Time{}, studyGrid, 1, "v")
	if err != nil {
		t.Fatal(err)
	}
	masked, err := raster.Constant("m", raster.Derived, time.Time{}, studyGrid, raster.Masked, "v")
	if err != nil {
		t.Fatal(err)
	}

	tests := []struct {
		name    string
		img     *raster.Image
		area    aoi.AOI
		reducer Reducer
		scale   float64
		errType apperrors.ErrorType
	}{
		{"AOI outside raster", img, mustAOI(t, raster.Around(10, 10, 0.1)), Mean, 10, apperrors.ErrorTypeInvalidAOI},
		{"all pixels masked", masked, mustAOI(t, raster.Around(35.85, 32.55, 0.01)), Mean, 10, apperrors.ErrorTypeNoData},
		{"unknown reducer", img, mustAOI(t, raster.Around(35.85, 32.55, 0.01)), "mode", 10, apperrors.ErrorTypeValidation},
		{"zero scale", img, mustAOI(t, raster.Around(35.85, 32.55, 0.01)), Mean, 0, apperrors.ErrorTypeValidation},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Aggregate(tt.img, tt.area, tt.reducer, tt.scale, 1e9)
			if !apperrors.IsType(err, tt.errType) {
				t.Errorf("Expected %s, got %v", tt.errType, err)
			}
		})
	}
}

func TestAggregate_SubPixelAOI(t *testing.T) {
	grid := raster.Grid{Bounds: raster.Bounds{West: 0, South: 0, East: 0.02, North: 0.01}, Width: 2, Height: 1}
	img, err := raster.NewImage("r", raster.Derived, time.Time{}, grid, nil,
		raster.Band{Name: "v", Data: []float64{4, 8}})
	if err != nil {
		t.Fatal(err)
	}
	// Tiny square inside the second pixel, away from its centre.
	area := mustAOI(t, raster.Bounds{West: 0.011, South: 0.001, East: 0.012, North: 0.002})

	res, err := Aggregate(img, area, Mean, 10, 1e9)
	if err != nil {
		t.Fatal(err)
	}
	if res.Pixels != 1 || res.Values["v"] != 8 {
		t.Errorf("Expected the containing pixel value 8, got %v over %d pixels", res.Values["v"], res.Pixels)
	}
}
