package hydrology

import (
	"container/heap"

	"github.com/couchcryptid/terrain-analysis-service/internal/raster"
)

// FillDepressions raises cells inside closed depressions to their spill
// elevation so every valid cell has a non-ascending path to the raster
// boundary (priority-flood: process cells inward from the boundary in
// ascending spill order, lifting each newly reached cell to at least the
// elevation it was reached through).
func FillDepressions(dem *raster.Grid) *raster.Grid {
	out := dem.Clone()

	visited := make([]bool, out.Rows*out.Cols)
	pq := &cellHeap{}
	heap.Init(pq)

	push := func(r, c int, z float64) {
		visited[r*out.Cols+c] = true
		heap.Push(pq, cell{r, c, z})
	}

	// Seed with the valid boundary: edge cells plus cells adjacent to nodata,
	// since flow can exit the surface through either.
	for r := 0; r < out.Rows; r++ {
		for c := 0; c < out.Cols; c++ {
			if !out.IsValid(r, c) {
				visited[r*out.Cols+c] = true
				continue
			}
			if isBoundary(out, r, c) {
				push(r, c, out.At(r, c))
			}
		}
	}

	for pq.Len() > 0 {
		cur := heap.Pop(pq).(cell)
		for _, n := range neighbors {
			nr, nc := cur.row+n.DR, cur.col+n.DC
			if !out.InBounds(nr, nc) || visited[nr*out.Cols+nc] {
				continue
			}
			z := out.At(nr, nc)
			if z < cur.z {
				z = cur.z
				out.Set(nr, nc, z)
			}
			push(nr, nc, z)
		}
	}
	return out
}

func isBoundary(g *raster.Grid, r, c int) bool {
	if r == 0 || c == 0 || r == g.Rows-1 || c == g.Cols-1 {
		return true
	}
	for _, n := range neighbors {
		nr, nc := r+n.DR, c+n.DC
		if g.InBounds(nr, nc) && !g.IsValid(nr, nc) {
			return true
		}
	}
	return false
}

type cell struct {
	row, col int
	z        float64
}

// cellHeap is a min-heap on elevation with insertion order as tie-breaker,
// keeping the fill deterministic on flat terrain.
type cellHeap struct {
	cells []cell
	seq   []int
	next  int
}

func (h *cellHeap) Len() int { return len(h.cells) }

func (h *cellHeap) Less(i, j int) bool {
	if h.cells[i].z != h.cells[j].z {
		return h.cells[i].z < h.cells[j].z
	}
	return h.seq[i] < h.seq[j]
}

func (h *cellHeap) Swap(i, j int) {
	h.cells[i], h.cells[j] = h.cells[j], h.cells[i]
	h.seq[i], h.seq[j] = h.seq[j], h.seq[i]
}

func (h *cellHeap) Push(x any) {
	h.cells = append(h.cells, x.(cell))
	h.seq = append(h.seq, h.next)
	h.next++
}

func (h *cellHeap) Pop() any {
	n := len(h.cells) - 1
	c := h.cells[n]
	h.cells = h.cells[:n]
	h.seq = h.seq[:n]
	return c
}
