package delineate

import (
	"github.com/couchcryptid/terrain-analysis-service/internal/hydrology"
	"github.com/couchcryptid/terrain-analysis-service/internal/raster"
)

// traceUpstream collects every cell draining to (row, col), the pour cell
// included, by walking the flow-direction raster against flow: a neighbor
// contributes when its direction code points back at the current cell. The
// result is a cell mask in the raster's frame.
func traceUpstream(fdir *raster.IntGrid, row, col int) []bool {
	mask := make([]bool, fdir.Rows*fdir.Cols)
	stack := [][2]int{{row, col}}
	mask[row*fdir.Cols+col] = true

	for len(stack) > 0 {
		cur := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		r, c := cur[0], cur[1]

		for _, code := range inverseCodes {
			nr, nc := r+code.dr, c+code.dc
			if !fdir.InBounds(nr, nc) || mask[nr*fdir.Cols+nc] {
				continue
			}
			if fdir.At(nr, nc) == code.toward {
				mask[nr*fdir.Cols+nc] = true
				stack = append(stack, [2]int{nr, nc})
			}
		}
	}
	return mask
}

// inverseCodes lists, for each neighbor offset, the direction code that
// neighbor must hold to drain into the center cell.
var inverseCodes = [8]struct {
	dr, dc int
	toward int32
}{
	{-1, 0, hydrology.DirS},   // cell above drains south into us
	{-1, 1, hydrology.DirSW},
	{0, 1, hydrology.DirW},
	{1, 1, hydrology.DirNW},
	{1, 0, hydrology.DirN},
	{1, -1, hydrology.DirNE},
	{0, -1, hydrology.DirE},
	{-1, -1, hydrology.DirSE},
}
