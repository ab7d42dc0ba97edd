package storage

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	apperrors "github.com/irbid-geoai/geoai-monitor/internal/errors"
	"github.com/irbid-geoai/geoai-monitor/internal/raster"
)

const sceneListJSON = `[{
	"id": "S2_20240310",
	"collection": "COPERNICUS/S2_SR_HARMONIZED",
	"sensor": "sentinel-2",
	"captured": "2024-03-10T08:30:00Z",
	"bounds": {"west": 35.8, "south": 32.5, "east": 35.9, "north": 32.6},
	"width": 2, "height": 1,
	"properties": {"CLOUDY_PIXEL_PERCENTAGE": 1.5},
	"band_order": ["B4", "B8"],
	"bands": {"B4": [0.1, null], "B8": [0.5, 0.6]}
}]`

func TestHTTPSource_ClassifiesResponses(t *testing.T) {
	tests := []struct {
		name          string
		status        int
		expectScenes  int
		expectErrType apperrors.ErrorType
		transient     bool
		errorContains string
	}{
		{
			name:         "Success",
			status:       200,
			expectScenes: 1,
		},
		{
			name:         "404 means an empty collection",
			status:       404,
			expectScenes: 0,
		},
		{
			name:          "4xx client error is permanent",
			status:        403,
			expectErrType: apperrors.ErrorTypeValidation,
			errorContains: "client error: status code 403",
		},
		{
			name:          "5xx server error is transient",
			status:        503,
			expectErrType: apperrors.ErrorTypeNetwork,
			transient:     true,
			errorContains: "server error: status code 503",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			calls := 0
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				if r.URL.EscapedPath() != "/collections/COPERNICUS%2FS2_SR_HARMONIZED/scenes" {
					t.Errorf("Unexpected path %s", r.URL.EscapedPath())
				}
				calls++
				w.WriteHeader(tt.status)
				if tt.status == http.StatusOK {
					w.Write([]byte(sceneListJSON))
				}
			}))
			defer server.Close()

			scenes, err := NewHTTPSource(server.URL).Scenes(context.Background(), "COPERNICUS/S2_SR_HARMONIZED")

			if calls != 1 {
				t.Errorf("Expected exactly one request, got %d", calls)
			}
			if tt.expectErrType == "" {
				if err != nil {
					t.Fatalf("Unexpected error: %v", err)
				}
				if len(scenes) != tt.expectScenes {
					t.Errorf("Expected %d scenes, got %d", tt.expectScenes, len(scenes))
				}
				return
			}
			if !apperrors.IsType(err, tt.expectErrType) {
				t.Errorf("Expected %s error, got %v", tt.expectErrType, err)
			}
			if apperrors.IsTransient(err) != tt.transient {
				t.Errorf("Expected transient=%v, got %v", tt.transient, apperrors.IsTransient(err))
			}
			if err != nil && !strings.Contains(err.Error(), tt.errorContains) {
				t.Errorf("Expected error containing %q, got %q", tt.errorContains, err.Error())
			}
		})
	}
}

func TestHTTPSource_DecodesMaskedPixels(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(sceneListJSON))
	}))
	defer server.Close()

	scenes, err := NewHTTPSource(server.URL).Scenes(context.Background(), "COPERNICUS/S2_SR_HARMONIZED")
	if err != nil {
		t.Fatal(err)
	}
	img := scenes[0]
	if got := img.BandNames(); len(got) != 2 || got[0] != "B4" || got[1] != "B8" {
		t.Errorf("Expected band order [B4 B8], got %v", got)
	}
	if v, _ := img.At("B4", 1, 0); !raster.IsMasked(v) {
		t.Errorf("Expected null pixel to be masked, got %v", v)
	}
	if cc, _ := img.Properties.Number("CLOUDY_PIXEL_PERCENTAGE"); cc != 1.5 {
		t.Errorf("Expected cloud cover 1.5, got %v", cc)
	}
}

func TestHTTPSource_Cancellation(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer server.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := NewHTTPSource(server.URL).Scenes(ctx, "any")
	if err == nil {
		t.Fatal("Expected an error for a cancelled context")
	}
	if !apperrors.IsTransient(err) {
		t.Errorf("Expected a transient error, got %v", err)
	}
}
