package hydrology

import (
	"github.com/paulmach/orb"

	"github.com/couchcryptid/terrain-analysis-service/internal/domain"
	"github.com/couchcryptid/terrain-analysis-service/internal/raster"
)

// ExtractStreams vectorizes the channel network: cells whose accumulation
// strictly exceeds threshold, connected along the flow-direction raster.
// Reaches split at confluences — the confluence cell's center is the last
// vertex of each upstream reach and the first vertex of the downstream
// reach — so the vertex ordering of every polyline runs downstream.
// An empty network is a valid result, not an error.
func ExtractStreams(fdir, acc *raster.IntGrid, threshold int, crs domain.CRS) domain.StreamNetwork {
	cols := fdir.Cols
	masked := make([]bool, fdir.Rows*cols)
	for r := 0; r < fdir.Rows; r++ {
		for c := 0; c < cols; c++ {
			if acc.IsValid(r, c) && int(acc.At(r, c)) > threshold {
				masked[r*cols+c] = true
			}
		}
	}

	// In-degree within the channel mask decides where reaches begin:
	// channel heads (no masked cell drains in) and confluences (two or more).
	indeg := make([]int, fdir.Rows*cols)
	for r := 0; r < fdir.Rows; r++ {
		for c := 0; c < cols; c++ {
			if !masked[r*cols+c] {
				continue
			}
			if dr, dc, ok := downstreamOf(fdir, r, c); ok && masked[dr*cols+dc] {
				indeg[dr*cols+dc]++
			}
		}
	}

	var lines []orb.LineString
	for r := 0; r < fdir.Rows; r++ {
		for c := 0; c < cols; c++ {
			i := r*cols + c
			if !masked[i] || (indeg[i] != 0 && indeg[i] < 2) {
				continue
			}
			if line := traceReach(fdir, masked, indeg, r, c); len(line) >= 2 {
				lines = append(lines, line)
			}
		}
	}
	return domain.StreamNetwork{Lines: lines, CRS: crs}
}

// traceReach follows the flow direction downstream from a reach start until
// the channel mask ends or a confluence is reached (inclusive).
func traceReach(fdir *raster.IntGrid, masked []bool, indeg []int, r, c int) orb.LineString {
	cols := fdir.Cols
	x, y := fdir.Transform.CellCenter(r, c)
	line := orb.LineString{{x, y}}

	for {
		nr, nc, ok := downstreamOf(fdir, r, c)
		if !ok || !masked[nr*cols+nc] {
			return line
		}
		x, y = fdir.Transform.CellCenter(nr, nc)
		line = append(line, orb.Point{x, y})
		if indeg[nr*cols+nc] >= 2 {
			// Confluence: the downstream reach starts here.
			return line
		}
		r, c = nr, nc
	}
}
