package models

import (
	"time"

	"github.com/irbid-geoai/geoai-monitor/internal/raster"
)

// Result is the render-ready output of one module invocation
type Result struct {
	RunID    string    `json:"run_id"`
	Module   string    `json:"module"`
	Label    string    `json:"label"`
	Finished time.Time `json:"finished"`

	// Map content
	Layers    []Layer    `json:"layers,omitempty"`
	Colorbars []Colorbar `json:"colorbars,omitempty"`
	Legend    *Legend    `json:"legend,omitempty"`
	Split     *SplitView `json:"split,omitempty"`
	Center    *MapCenter `json:"center,omitempty"`

	// Scalar outputs
	Scalars  map[string]float64 `json:"scalars,omitempty"`
	Zonal    *ZonalReport       `json:"zonal,omitempty"`
	Accuracy *AccuracyReport    `json:"accuracy,omitempty"`
}

// Layer is one raster added to the map
type Layer struct {
	Name    string           `json:"name"`
	Vis     VisParams        `json:"vis"`
	Summary []raster.Summary `json:"summary"`

	// Raster is the materialized image behind the layer
	Raster *raster.Image `json:"-"`
}

// VisParams are the display hints for a layer
type VisParams struct {
	Bands   []string `json:"bands,omitempty"`
	Min     float64  `json:"min"`
	Max     float64  `json:"max"`
	Palette []string `json:"palette,omitempty"`
}

// Colorbar describes a continuous legend
type Colorbar struct {
	Label   string   `json:"label"`
	Min     float64  `json:"min"`
	Max     float64  `json:"max"`
	Palette []string `json:"palette"`
}

// Legend describes a categorical legend
type Legend struct {
	Title   string        `json:"title"`
	Entries []LegendEntry `json:"entries"`
}

type LegendEntry struct {
	Label string `json:"label"`
	Color string `json:"color"`
}

// MapCenter positions the map
type MapCenter struct {
	Lat  float64 `json:"lat"`
	Lon  float64 `json:"lon"`
	Zoom int     `json:"zoom"`
}

// SplitView compares two layers side by side
type SplitView struct {
	Left   Layer     `json:"left"`
	Right  Layer     `json:"right"`
	Center MapCenter `json:"center"`
}

// ZonalReport holds the aggregate of each band over the AOI
type ZonalReport struct {
	Reducer   string             `json:"reducer"`
	Scale     float64            `json:"scale"`
	MaxPixels float64            `json:"max_pixels"`
	Pixels    int                `json:"pixels"`
	Values    map[string]float64 `json:"values"`
}

// AccuracyReport holds a confusion matrix and its derived metrics. Kappa is
// nil when it is undefined for the matrix, and KappaUndefined says why.
type AccuracyReport struct {
	Labels            []int           `json:"labels"`
	Matrix            [][]int         `json:"matrix"`
	OverallAccuracy   float64         `json:"overall_accuracy"`
	Kappa             *float64        `json:"kappa"`
	KappaUndefined    string          `json:"kappa_undefined,omitempty"`
	ProducersAccuracy map[int]float64 `json:"producers_accuracy"`
	ConsumersAccuracy map[int]float64 `json:"consumers_accuracy"`
	Samples           int             `json:"samples"`
}

// RunRecord is the audit entry of one module invocation
type RunRecord struct {
	ID        string     `json:"id" db:"id"`
	Module    string     `json:"module" db:"module"`
	State     string     `json:"state" db:"state"`
	ErrorKind string     `json:"error_kind,omitempty" db:"error_kind"`
	Message   string     `json:"message,omitempty" db:"message"`
	Started   time.Time  `json:"started" db:"started_at"`
	Finished  *time.Time `json:"finished,omitempty" db:"finished_at"`
}
