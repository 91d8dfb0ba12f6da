package hydrology

import (
	"github.com/couchcryptid/terrain-analysis-service/internal/raster"
)

// flatEpsilon is the elevation increment applied per BFS step when grading
// flat regions. Small enough to be invisible next to real relief, large
// enough to survive float64 addition against typical elevations.
const flatEpsilon = 1e-5

// ResolveFlats grades level regions left by depression filling so D8 flow
// direction is uniquely determined everywhere. Every flat cell gains an
// increment proportional to its BFS distance from the flat's drains (flat
// cells adjacent to strictly lower ground), producing a monotone slope
// toward each drain. Flats with no drain (closed regions against nodata)
// are left untouched and resolve to outlet cells later.
func ResolveFlats(dem *raster.Grid) *raster.Grid {
	out := dem.Clone()

	flat := make([]bool, out.Rows*out.Cols)
	dist := make([]int, out.Rows*out.Cols)
	var queue [][2]int

	for r := 0; r < out.Rows; r++ {
		for c := 0; c < out.Cols; c++ {
			if !out.IsValid(r, c) {
				continue
			}
			if !hasDownslope(out, r, c) && hasLevelNeighbor(out, r, c) {
				flat[r*out.Cols+c] = true
			}
		}
	}

	// Seed from flat cells that can already reach lower ground through a
	// level neighbor: a flat cell adjacent to a non-flat cell at the same
	// elevation drains through it.
	for r := 0; r < out.Rows; r++ {
		for c := 0; c < out.Cols; c++ {
			i := r*out.Cols + c
			if !flat[i] {
				continue
			}
			for _, n := range neighbors {
				nr, nc := r+n.DR, c+n.DC
				if !out.InBounds(nr, nc) || !out.IsValid(nr, nc) {
					continue
				}
				if !flat[nr*out.Cols+nc] && out.At(nr, nc) <= out.At(r, c) {
					dist[i] = 1
					queue = append(queue, [2]int{r, c})
					break
				}
			}
		}
	}

	for len(queue) > 0 {
		cur := queue[0]
		queue = queue[1:]
		r, c := cur[0], cur[1]
		base := out.At(r, c)
		for _, n := range neighbors {
			nr, nc := r+n.DR, c+n.DC
			if !out.InBounds(nr, nc) {
				continue
			}
			j := nr*out.Cols + nc
			if !flat[j] || dist[j] != 0 || out.At(nr, nc) != base {
				continue
			}
			dist[j] = dist[r*out.Cols+c] + 1
			queue = append(queue, [2]int{nr, nc})
		}
	}

	// Even distance-1 cells are raised: their drain neighbor sits at the
	// same base elevation and must end up strictly below them.
	for i, d := range dist {
		if d > 0 {
			r, c := i/out.Cols, i%out.Cols
			out.Set(r, c, out.At(r, c)+float64(d)*flatEpsilon)
		}
	}
	return out
}

func hasDownslope(g *raster.Grid, r, c int) bool {
	z := g.At(r, c)
	for _, n := range neighbors {
		nr, nc := r+n.DR, c+n.DC
		if g.InBounds(nr, nc) && g.IsValid(nr, nc) && g.At(nr, nc) < z {
			return true
		}
	}
	return false
}

func hasLevelNeighbor(g *raster.Grid, r, c int) bool {
	z := g.At(r, c)
	for _, n := range neighbors {
		nr, nc := r+n.DR, c+n.DC
		if g.InBounds(nr, nc) && g.IsValid(nr, nc) && g.At(nr, nc) == z {
			return true
		}
	}
	return false
}
