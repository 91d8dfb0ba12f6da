// Package raster provides the in-memory grid abstraction shared by the
// hydrology and delineation stages. Grids are value-carriers: each pipeline
// stage takes the grid it receives and returns a new one, so the filled,
// flat-resolved, direction, and accumulation surfaces never alias.
package raster

import (
	"fmt"
	"math"

	"github.com/couchcryptid/terrain-analysis-service/internal/domain"
)

// Transform maps pixel space to world space. It is the affine
//
//	x = C + col*A + row*B
//	y = F + col*D + row*E
//
// evaluated at the cell's top-left corner. Only axis-aligned transforms
// (B == D == 0) are supported; north-up rasters from the tile service always
// satisfy this.
type Transform struct {
	A, B, C, D, E, F float64
}

// NewTransform builds a north-up transform from an origin (top-left corner)
// and cell sizes. dy is typically positive; it is stored negated since rows
// grow southward.
func NewTransform(originX, originY, dx, dy float64) Transform {
	return Transform{A: dx, C: originX, E: -dy, F: originY}
}

// CellCenter returns the world coordinates of the center of cell (row, col).
func (t Transform) CellCenter(row, col int) (x, y float64) {
	return t.C + (float64(col)+0.5)*t.A, t.F + (float64(row)+0.5)*t.E
}

// Corner returns the world coordinates of the top-left corner of cell
// (row, col). Passing Rows/Cols yields the opposite raster corner.
func (t Transform) Corner(row, col int) (x, y float64) {
	return t.C + float64(col)*t.A, t.F + float64(row)*t.E
}

// CellOf returns the cell containing world point (x, y). The result may lie
// outside the raster; callers bound-check against their grid.
func (t Transform) CellOf(x, y float64) (row, col int) {
	return int(math.Floor((y - t.F) / t.E)), int(math.Floor((x - t.C) / t.A))
}

// CellSize returns the cell edge length in CRS units (assumes square cells).
func (t Transform) CellSize() float64 { return math.Abs(t.A) }

// Grid is a 2D float64 raster with georeferencing. NoData marks invalid
// cells; IsValid is the single authority on cell validity.
type Grid struct {
	Rows, Cols int
	Transform  Transform
	CRS        domain.CRS
	NoData     float64
	data       []float64
}

// NewGrid allocates a grid with every cell set to NoData.
func NewGrid(rows, cols int, tr Transform, crs domain.CRS, nodata float64) *Grid {
	g := &Grid{Rows: rows, Cols: cols, Transform: tr, CRS: crs, NoData: nodata,
		data: make([]float64, rows*cols)}
	for i := range g.data {
		g.data[i] = nodata
	}
	return g
}

// At returns the value at (row, col).
func (g *Grid) At(row, col int) float64 { return g.data[row*g.Cols+col] }

// Set assigns the value at (row, col).
func (g *Grid) Set(row, col int, v float64) { g.data[row*g.Cols+col] = v }

// InBounds reports whether (row, col) lies on the grid.
func (g *Grid) InBounds(row, col int) bool {
	return row >= 0 && row < g.Rows && col >= 0 && col < g.Cols
}

// IsValid reports whether the cell holds real data.
func (g *Grid) IsValid(row, col int) bool {
	v := g.At(row, col)
	if math.IsNaN(g.NoData) {
		return !math.IsNaN(v)
	}
	return v != g.NoData
}

// Clone returns an independent copy sharing no storage with the receiver.
func (g *Grid) Clone() *Grid {
	c := *g
	c.data = make([]float64, len(g.data))
	copy(c.data, g.data)
	return &c
}

// IntGrid is a 2D int32 raster in the same georeferenced frame as Grid.
// Flow direction and accumulation use it.
type IntGrid struct {
	Rows, Cols int
	Transform  Transform
	CRS        domain.CRS
	NoData     int32
	data       []int32
}

// NewIntGrid allocates an int grid with every cell set to NoData.
func NewIntGrid(rows, cols int, tr Transform, crs domain.CRS, nodata int32) *IntGrid {
	g := &IntGrid{Rows: rows, Cols: cols, Transform: tr, CRS: crs, NoData: nodata,
		data: make([]int32, rows*cols)}
	if nodata != 0 {
		for i := range g.data {
			g.data[i] = nodata
		}
	}
	return g
}

// At returns the value at (row, col).
func (g *IntGrid) At(row, col int) int32 { return g.data[row*g.Cols+col] }

// Set assigns the value at (row, col).
func (g *IntGrid) Set(row, col int, v int32) { g.data[row*g.Cols+col] = v }

// InBounds reports whether (row, col) lies on the grid.
func (g *IntGrid) InBounds(row, col int) bool {
	return row >= 0 && row < g.Rows && col >= 0 && col < g.Cols
}

// IsValid reports whether the cell holds real data.
func (g *IntGrid) IsValid(row, col int) bool { return g.At(row, col) != g.NoData }

// SameFrame reports whether two grids share dimensions and transform. Stages
// use it to enforce the one-CRS-one-transform invariant.
func SameFrame(a, b interface {
	frame() (int, int, Transform)
}) bool {
	ar, ac, at := a.frame()
	br, bc, bt := b.frame()
	return ar == br && ac == bc && at == bt
}

func (g *Grid) frame() (int, int, Transform)    { return g.Rows, g.Cols, g.Transform }
func (g *IntGrid) frame() (int, int, Transform) { return g.Rows, g.Cols, g.Transform }

// CheckFrame returns an error when grids disagree on dimensions or
// transform.
func CheckFrame(a, b interface {
	frame() (int, int, Transform)
}) error {
	if !SameFrame(a, b) {
		return fmt.Errorf("rasters disagree on grid frame")
	}
	return nil
}
