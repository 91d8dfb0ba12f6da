package delineate

import (
	"fmt"
	"log/slog"

	"github.com/paulmach/orb"

	"github.com/couchcryptid/terrain-analysis-service/internal/domain"
	"github.com/couchcryptid/terrain-analysis-service/internal/raster"
)

// Result collects the delineated sub-catchments for one set of pour points.
// Skipped counts points whose upstream trace produced no cells.
type Result struct {
	Catchments []orb.Polygon
	Skipped    int
	CRS        domain.CRS
}

// Delineator derives one drainage polygon per pour point from a flow
// direction raster and the matching accumulation raster.
type Delineator struct {
	logger *slog.Logger
}

func NewDelineator(logger *slog.Logger) *Delineator {
	return &Delineator{logger: logger}
}

// Delineate snaps each pour point to the channel network, traces its
// upstream contributing cells, and vectorizes the traced area. Points that
// cannot be snapped or whose catchment yields no polygon are skipped with a
// warning; the remaining polygons are returned in input order without
// deduplication, so nested pour points produce overlapping catchments.
func (d *Delineator) Delineate(fdir, acc *raster.IntGrid, points []domain.PourPoint, crs domain.CRS) (*Result, error) {
	if err := raster.CheckFrame(fdir, acc); err != nil {
		return nil, fmt.Errorf("delineate: %w", err)
	}

	res := &Result{CRS: crs}
	for i, pp := range points {
		snapped := snapToChannel(pp.Point, acc)
		if !snapped.ok {
			d.logger.Warn("pour point has no channel cell to snap to; skipping",
				"index", i, "type", pp.Type, "x", pp.Point[0], "y", pp.Point[1])
			res.Skipped++
			continue
		}
		if snapped.point != pp.Point {
			d.logger.Debug("pour point snapped to channel",
				"index", i,
				"x", pp.Point[0], "y", pp.Point[1],
				"snapped_x", snapped.point[0], "snapped_y", snapped.point[1])
		}

		mask := traceUpstream(fdir, snapped.row, snapped.col)
		polys := polygonize(mask, fdir.Rows, fdir.Cols, fdir.Transform)
		if len(polys) == 0 {
			d.logger.Warn("no valid catchment polygon for pour point; skipping",
				"index", i, "type", pp.Type, "x", snapped.point[0], "y", snapped.point[1])
			res.Skipped++
			continue
		}
		res.Catchments = append(res.Catchments, polys...)
	}

	d.logger.Info("delineation complete",
		"pour_points", len(points), "catchments", len(res.Catchments), "skipped", res.Skipped)
	return res, nil
}
