package hydrology

import (
	"github.com/couchcryptid/terrain-analysis-service/internal/raster"
)

// FlowDirection computes the D8 flow-direction raster from a conditioned
// (filled, flat-resolved) elevation surface. Each valid cell points to the
// neighbor with the steepest distance-weighted descent; ties break in code
// order (N first). Cells with no strictly lower neighbor become outlets.
func FlowDirection(dem *raster.Grid) *raster.IntGrid {
	fdir := raster.NewIntGrid(dem.Rows, dem.Cols, dem.Transform, dem.CRS, DirNoData)

	for r := 0; r < dem.Rows; r++ {
		for c := 0; c < dem.Cols; c++ {
			if !dem.IsValid(r, c) {
				continue
			}
			z := dem.At(r, c)
			best := DirOutlet
			bestSlope := 0.0
			for _, n := range neighbors {
				nr, nc := r+n.DR, c+n.DC
				if !dem.InBounds(nr, nc) || !dem.IsValid(nr, nc) {
					continue
				}
				slope := (z - dem.At(nr, nc)) / n.Dist
				if slope > bestSlope {
					bestSlope = slope
					best = n.Code
				}
			}
			fdir.Set(r, c, best)
		}
	}
	return fdir
}
