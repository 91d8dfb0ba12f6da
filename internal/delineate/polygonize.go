package delineate

import (
	"sort"

	"github.com/paulmach/orb"

	"github.com/couchcryptid/terrain-analysis-service/internal/raster"
)

// polygonize converts a cell mask into polygons: 4-connected groups of
// masked cells become one polygon each, with interior holes preserved as
// inner rings. Ring vertices are raster cell corners mapped to world
// coordinates.
//
// Boundary edges are emitted per component with the component interior kept
// to the right of the walk, then stitched into closed rings. The ring with
// positive signed area (in grid coordinates, y down) is the shell; negative
// rings are holes.
func polygonize(mask []bool, rows, cols int, tr raster.Transform) []orb.Polygon {
	labels := labelComponents(mask, rows, cols)
	ncomp := 0
	for _, l := range labels {
		if l > ncomp {
			ncomp = l
		}
	}

	polys := make([]orb.Polygon, 0, ncomp)
	for comp := 1; comp <= ncomp; comp++ {
		rings := traceRings(labels, comp, rows, cols)
		if len(rings) == 0 {
			continue
		}
		polys = append(polys, assemblePolygon(rings, tr))
	}
	return polys
}

// labelComponents assigns 1-based labels to 4-connected masked regions in
// row-major discovery order.
func labelComponents(mask []bool, rows, cols int) []int {
	labels := make([]int, rows*cols)
	next := 0
	var queue [][2]int
	for r := 0; r < rows; r++ {
		for c := 0; c < cols; c++ {
			if !mask[r*cols+c] || labels[r*cols+c] != 0 {
				continue
			}
			next++
			labels[r*cols+c] = next
			queue = append(queue[:0], [2]int{r, c})
			for len(queue) > 0 {
				cur := queue[0]
				queue = queue[1:]
				for _, d := range [4][2]int{{-1, 0}, {1, 0}, {0, -1}, {0, 1}} {
					nr, nc := cur[0]+d[0], cur[1]+d[1]
					if nr < 0 || nr >= rows || nc < 0 || nc >= cols {
						continue
					}
					if mask[nr*cols+nc] && labels[nr*cols+nc] == 0 {
						labels[nr*cols+nc] = next
						queue = append(queue, [2]int{nr, nc})
					}
				}
			}
		}
	}
	return labels
}

// vertex is a raster cell corner: x counts columns, y counts rows downward.
type vertex struct{ x, y int }

type segment struct {
	from, to vertex
	used     bool
}

// traceRings emits each boundary edge of one component's cells and stitches
// the edges into closed rings. Edges are oriented so the component interior
// sits to the right of travel; at pinch vertices the most clockwise
// continuation is taken, which keeps diagonally touching parts as rings of
// a single component without crossing between them.
func traceRings(labels []int, comp, rows, cols int) [][]vertex {
	inside := func(r, c int) bool {
		return r >= 0 && r < rows && c >= 0 && c < cols && labels[r*cols+c] == comp
	}

	var segs []segment
	byStart := make(map[vertex][]int)
	add := func(from, to vertex) {
		byStart[from] = append(byStart[from], len(segs))
		segs = append(segs, segment{from: from, to: to})
	}

	for r := 0; r < rows; r++ {
		for c := 0; c < cols; c++ {
			if !inside(r, c) {
				continue
			}
			if !inside(r-1, c) { // top edge, walking east
				add(vertex{c, r}, vertex{c + 1, r})
			}
			if !inside(r, c+1) { // right edge, walking south
				add(vertex{c + 1, r}, vertex{c + 1, r + 1})
			}
			if !inside(r+1, c) { // bottom edge, walking west
				add(vertex{c + 1, r + 1}, vertex{c, r + 1})
			}
			if !inside(r, c-1) { // left edge, walking north
				add(vertex{c, r + 1}, vertex{c, r})
			}
		}
	}

	var rings [][]vertex
	for i := range segs {
		if segs[i].used {
			continue
		}
		ring := walkRing(segs, byStart, i)
		if len(ring) >= 4 {
			rings = append(rings, ring)
		}
	}
	return rings
}

func walkRing(segs []segment, byStart map[vertex][]int, start int) []vertex {
	ring := []vertex{segs[start].from}
	cur := start
	for {
		segs[cur].used = true
		ring = append(ring, segs[cur].to)
		if segs[cur].to == segs[start].from {
			return ring
		}
		next := -1
		bestTurn := -2
		dx, dy := segs[cur].to.x-segs[cur].from.x, segs[cur].to.y-segs[cur].from.y
		for _, cand := range byStart[segs[cur].to] {
			if segs[cand].used {
				continue
			}
			t := turn(dx, dy, segs[cand].to.x-segs[cur].to.x, segs[cand].to.y-segs[cur].to.y)
			if t > bestTurn {
				bestTurn = t
				next = cand
			}
		}
		if next < 0 {
			// Open chain; cannot happen for a well-formed boundary.
			return nil
		}
		cur = next
	}
}

// turn ranks the continuation from direction (dx,dy) into (ex,ey):
// clockwise turn (in y-down grid space) > straight > counter-clockwise.
// Reversals never occur since opposing edges share no start vertex.
func turn(dx, dy, ex, ey int) int {
	cross := dx*ey - dy*ex
	switch {
	case cross > 0: // clockwise in y-down coordinates
		return 1
	case cross == 0:
		return 0
	default:
		return -1
	}
}

// assemblePolygon orders one component's rings into shell-first form and
// maps grid corners to world coordinates.
func assemblePolygon(rings [][]vertex, tr raster.Transform) orb.Polygon {
	type classified struct {
		ring orb.Ring
		area int
	}
	cls := make([]classified, 0, len(rings))
	for _, ring := range rings {
		area := 0
		for i := 0; i+1 < len(ring); i++ {
			area += ring[i].x*ring[i+1].y - ring[i+1].x*ring[i].y
		}
		r := make(orb.Ring, len(ring))
		for i, v := range ring {
			x, y := tr.Corner(v.y, v.x)
			r[i] = orb.Point{x, y}
		}
		cls = append(cls, classified{ring: r, area: area})
	}

	// Exactly one positive-area ring per component: the outer boundary.
	sort.SliceStable(cls, func(i, j int) bool { return cls[i].area > cls[j].area })
	poly := make(orb.Polygon, 0, len(cls))
	for _, c := range cls {
		poly = append(poly, c.ring)
	}
	return poly
}
