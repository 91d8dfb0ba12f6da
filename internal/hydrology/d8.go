// Package hydrology derives hydrologic surfaces from an elevation raster:
// depression filling, flat resolution, D8 flow direction, flow accumulation,
// and stream-network extraction. Each stage consumes the grid it is given
// and returns a new one; nothing is mutated in place across stages.
package hydrology

import "math"

// Direction codes for the eight D8 neighbors, standard ESRI/pysheds map.
const (
	DirE  int32 = 1
	DirSE int32 = 2
	DirS  int32 = 4
	DirSW int32 = 8
	DirW  int32 = 16
	DirNW int32 = 32
	DirN  int32 = 64
	DirNE int32 = 128

	// DirOutlet marks a cell with no downslope neighbor; flow leaves the grid.
	DirOutlet int32 = 0
	// DirNoData marks an invalid cell in the flow-direction raster.
	DirNoData int32 = -1
)

// neighbor describes one D8 offset. Order (N, NE, E, SE, S, SW, W, NW)
// matches the code map and fixes tie-breaking: the first steepest neighbor
// in this order wins.
type neighbor struct {
	Code   int32
	DR, DC int
	Dist   float64 // unit distance; diagonals are sqrt(2)
}

var neighbors = [8]neighbor{
	{DirN, -1, 0, 1},
	{DirNE, -1, 1, math.Sqrt2},
	{DirE, 0, 1, 1},
	{DirSE, 1, 1, math.Sqrt2},
	{DirS, 1, 0, 1},
	{DirSW, 1, -1, math.Sqrt2},
	{DirW, 0, -1, 1},
	{DirNW, -1, -1, math.Sqrt2},
}

// Downstream resolves a direction code to its (row, col) offset. ok is false
// for outlet and nodata codes.
func Downstream(code int32) (dr, dc int, ok bool) {
	for _, n := range neighbors {
		if n.Code == code {
			return n.DR, n.DC, true
		}
	}
	return 0, 0, false
}
