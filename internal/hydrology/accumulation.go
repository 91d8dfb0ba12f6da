package hydrology

import (
	"github.com/couchcryptid/terrain-analysis-service/internal/raster"
)

// Accumulation counts, for every valid cell, the cells whose flow path
// passes through it, including itself. The count at a cell depends
// transitively on all of its upstream cells, so cells are processed in
// topological upstream-to-downstream order: start from cells nothing drains
// into and push counts downstream as each cell's contributors complete.
func Accumulation(fdir *raster.IntGrid) *raster.IntGrid {
	acc := raster.NewIntGrid(fdir.Rows, fdir.Cols, fdir.Transform, fdir.CRS, -1)

	indegree := make([]int, fdir.Rows*fdir.Cols)
	for r := 0; r < fdir.Rows; r++ {
		for c := 0; c < fdir.Cols; c++ {
			dr, dc, ok := downstreamOf(fdir, r, c)
			if ok {
				indegree[dr*fdir.Cols+dc]++
			}
		}
	}

	var queue [][2]int
	for r := 0; r < fdir.Rows; r++ {
		for c := 0; c < fdir.Cols; c++ {
			if !fdir.IsValid(r, c) {
				continue
			}
			acc.Set(r, c, 1)
			if indegree[r*fdir.Cols+c] == 0 {
				queue = append(queue, [2]int{r, c})
			}
		}
	}

	for len(queue) > 0 {
		cur := queue[0]
		queue = queue[1:]
		r, c := cur[0], cur[1]
		dr, dc, ok := downstreamOf(fdir, r, c)
		if !ok {
			continue
		}
		acc.Set(dr, dc, acc.At(dr, dc)+acc.At(r, c))
		i := dr*fdir.Cols + dc
		if indegree[i]--; indegree[i] == 0 {
			queue = append(queue, [2]int{dr, dc})
		}
	}
	return acc
}

// downstreamOf resolves the cell that (r, c) drains into. ok is false for
// outlets, nodata cells, and directions pointing off-grid or at nodata.
func downstreamOf(fdir *raster.IntGrid, r, c int) (int, int, bool) {
	if !fdir.IsValid(r, c) {
		return 0, 0, false
	}
	dr, dc, ok := Downstream(fdir.At(r, c))
	if !ok {
		return 0, 0, false
	}
	nr, nc := r+dr, c+dc
	if !fdir.InBounds(nr, nc) || !fdir.IsValid(nr, nc) {
		return 0, 0, false
	}
	return nr, nc, true
}
