package acquire

import (
	"fmt"
	"math"

	"github.com/couchcryptid/terrain-analysis-service/internal/raster"
)

const alignTolerance = 1e-6

// Mosaic merges tiles into one grid covering their union extent. Tiles must
// share cell size, CRS, and grid alignment. Where tiles overlap, the first
// tile listed wins; later tiles only fill cells still marked nodata.
func Mosaic(tiles []*raster.Grid) (*raster.Grid, error) {
	if len(tiles) == 0 {
		return nil, fmt.Errorf("mosaic: no tiles")
	}
	base := tiles[0]
	dx, dy := base.Transform.A, base.Transform.E

	minX, maxY := base.Transform.C, base.Transform.F
	maxX := base.Transform.C + float64(base.Cols)*dx
	minY := base.Transform.F + float64(base.Rows)*dy
	for _, t := range tiles[1:] {
		if math.Abs(t.Transform.A-dx) > alignTolerance || math.Abs(t.Transform.E-dy) > alignTolerance {
			return nil, fmt.Errorf("mosaic: tiles disagree on cell size")
		}
		if t.CRS != base.CRS {
			return nil, fmt.Errorf("mosaic: tiles disagree on CRS (%s vs %s)", t.CRS, base.CRS)
		}
		minX = math.Min(minX, t.Transform.C)
		maxY = math.Max(maxY, t.Transform.F)
		maxX = math.Max(maxX, t.Transform.C+float64(t.Cols)*dx)
		minY = math.Min(minY, t.Transform.F+float64(t.Rows)*dy)
	}

	cols := int(math.Round((maxX - minX) / dx))
	rows := int(math.Round((minY - maxY) / dy))
	out := raster.NewGrid(rows, cols, raster.NewTransform(minX, maxY, dx, -dy), base.CRS, base.NoData)

	for _, t := range tiles {
		colOff, rowOff, err := cellOffset(t.Transform, minX, maxY, dx, dy)
		if err != nil {
			return nil, err
		}
		for r := 0; r < t.Rows; r++ {
			for c := 0; c < t.Cols; c++ {
				or, oc := rowOff+r, colOff+c
				if !t.IsValid(r, c) || out.IsValid(or, oc) {
					continue
				}
				out.Set(or, oc, t.At(r, c))
			}
		}
	}
	return out, nil
}

// cellOffset locates a tile's origin on the output grid, rejecting tiles
// whose corners do not land on the shared cell lattice.
func cellOffset(tr raster.Transform, minX, maxY, dx, dy float64) (colOff, rowOff int, err error) {
	fc := (tr.C - minX) / dx
	fr := (tr.F - maxY) / dy
	if math.Abs(fc-math.Round(fc)) > alignTolerance || math.Abs(fr-math.Round(fr)) > alignTolerance {
		return 0, 0, fmt.Errorf("mosaic: tile origin (%g, %g) is off the cell lattice", tr.C, tr.F)
	}
	return int(math.Round(fc)), int(math.Round(fr)), nil
}
