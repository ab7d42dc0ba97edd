package raster

import (
	"fmt"
	"math"
)

// gridTolerance is the largest bounds difference, in degrees, still treated as the same grid.
const gridTolerance = 1e-9

// Bounds is a lon/lat bounding box in degrees.
type Bounds struct {
	West  float64 `json:"west" yaml:"west"`
	South float64 `json:"south" yaml:"south"`
	East  float64 `json:"east" yaml:"east"`
	North float64 `json:"north" yaml:"north"`
}

// Point returns the degenerate bounds of a single location.
func Point(lon, lat float64) Bounds {
	return Bounds{West: lon, South: lat, East: lon, North: lat}
}

// Around returns a square box of the given half-size centred on a location.
func Around(lon, lat, half float64) Bounds {
	return Bounds{West: lon - half, South: lat - half, East: lon + half, North: lat + half}
}

func (b Bounds) IsZero() bool {
	return b == Bounds{}
}

// Validate checks the box is finite, in range and correctly ordered. A point is valid.
func (b Bounds) Validate() error {
	for _, v := range []float64{b.West, b.South, b.East, b.North} {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return fmt.Errorf("bounds contain a non-finite coordinate")
		}
	}
	if b.West < -180 || b.East > 180 || b.South < -90 || b.North > 90 {
		return fmt.Errorf("bounds %v outside lon/lat range", b)
	}
	if b.West > b.East || b.South > b.North {
		return fmt.Errorf("bounds %v are inverted", b)
	}
	return nil
}

// Intersects reports whether two boxes share at least one point; touching edges count.
func (b Bounds) Intersects(o Bounds) bool {
	return b.West <= o.East && o.West <= b.East && b.South <= o.North && o.South <= b.North
}

func (b Bounds) Contains(lon, lat float64) bool {
	return lon >= b.West && lon <= b.East && lat >= b.South && lat <= b.North
}

func (b Bounds) Center() (lon, lat float64) {
	return (b.West + b.East) / 2, (b.South + b.North) / 2
}

func (b Bounds) approxEqual(o Bounds) bool {
	return math.Abs(b.West-o.West) <= gridTolerance &&
		math.Abs(b.South-o.South) <= gridTolerance &&
		math.Abs(b.East-o.East) <= gridTolerance &&
		math.Abs(b.North-o.North) <= gridTolerance
}

// Grid places Width x Height pixels over Bounds. Row 0 is the northern edge.
type Grid struct {
	Bounds Bounds `json:"bounds"`
	Width  int    `json:"width"`
	Height int    `json:"height"`
}

func (g Grid) Validate() error {
	if g.Width <= 0 || g.Height <= 0 {
		return fmt.Errorf("grid must have positive dimensions, got %dx%d", g.Width, g.Height)
	}
	if err := g.Bounds.Validate(); err != nil {
		return err
	}
	if g.Bounds.West == g.Bounds.East || g.Bounds.South == g.Bounds.North {
		return fmt.Errorf("grid bounds %v have no area", g.Bounds)
	}
	return nil
}

// Len returns the number of pixels.
func (g Grid) Len() int {
	return g.Width * g.Height
}

// PixelSize returns the pixel width and height in degrees.
func (g Grid) PixelSize() (dx, dy float64) {
	return (g.Bounds.East - g.Bounds.West) / float64(g.Width),
		(g.Bounds.North - g.Bounds.South) / float64(g.Height)
}

// Center returns the lon/lat of the centre of pixel (col, row).
func (g Grid) Center(col, row int) (lon, lat float64) {
	dx, dy := g.PixelSize()
	return g.Bounds.West + (float64(col)+0.5)*dx, g.Bounds.North - (float64(row)+0.5)*dy
}

// Locate returns the pixel containing a location.
func (g Grid) Locate(lon, lat float64) (col, row int, ok bool) {
	if !g.Bounds.Contains(lon, lat) {
		return 0, 0, false
	}
	dx, dy := g.PixelSize()
	col = int((lon - g.Bounds.West) / dx)
	row = int((g.Bounds.North - lat) / dy)
	// Points on the east or south edge belong to the last pixel
	if col == g.Width {
		col--
	}
	if row == g.Height {
		row--
	}
	return col, row, true
}

// Window returns the inclusive pixel range covering a box, clipped to the grid.
func (g Grid) Window(b Bounds) (minCol, minRow, maxCol, maxRow int, ok bool) {
	if !g.Bounds.Intersects(b) {
		return 0, 0, 0, 0, false
	}
	dx, dy := g.PixelSize()
	minCol = clamp(int(math.Floor((b.West-g.Bounds.West)/dx)), 0, g.Width-1)
	maxCol = clamp(int(math.Floor((b.East-g.Bounds.West)/dx)), 0, g.Width-1)
	minRow = clamp(int(math.Floor((g.Bounds.North-b.North)/dy)), 0, g.Height-1)
	maxRow = clamp(int(math.Floor((g.Bounds.North-b.South)/dy)), 0, g.Height-1)
	return minCol, minRow, maxCol, maxRow, true
}

// Matches reports whether two grids are co-registered.
func (g Grid) Matches(o Grid) bool {
	return g.Width == o.Width && g.Height == o.Height && g.Bounds.approxEqual(o.Bounds)
}

func (g Grid) String() string {
	return fmt.Sprintf("%dx%d@[%g,%g,%g,%g]", g.Width, g.Height,
		g.Bounds.West, g.Bounds.South, g.Bounds.East, g.Bounds.North)
}

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
