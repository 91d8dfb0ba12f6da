// Package delineate computes the upstream drainage area for each pour point:
// snapping points onto the channel mask, tracing the flow-direction raster
// upstream, and vectorizing the traced cells into polygons.
package delineate

import (
	"github.com/paulmach/orb"

	"github.com/couchcryptid/terrain-analysis-service/internal/raster"
)

// snapResult pairs a pour point's (possibly relocated) coordinates with the
// raster cell it snapped to.
type snapResult struct {
	point    orb.Point
	row, col int
	ok       bool
}

// snapToChannel relocates a point to the nearest cell with accumulation > 0.
// A point whose own cell is already a channel cell keeps its original
// coordinates. Distance is measured between the point and cell centers;
// ties resolve to the first candidate in row-major order.
func snapToChannel(p orb.Point, acc *raster.IntGrid) snapResult {
	row, col := acc.Transform.CellOf(p[0], p[1])
	if acc.InBounds(row, col) && acc.IsValid(row, col) && acc.At(row, col) > 0 {
		return snapResult{point: p, row: row, col: col, ok: true}
	}

	best := snapResult{}
	bestDist := 0.0
	for r := 0; r < acc.Rows; r++ {
		for c := 0; c < acc.Cols; c++ {
			if !acc.IsValid(r, c) || acc.At(r, c) <= 0 {
				continue
			}
			x, y := acc.Transform.CellCenter(r, c)
			dx, dy := x-p[0], y-p[1]
			d := dx*dx + dy*dy
			if !best.ok || d < bestDist {
				best = snapResult{point: orb.Point{x, y}, row: r, col: c, ok: true}
				bestDist = d
			}
		}
	}
	return best
}
