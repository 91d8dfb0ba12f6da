// Package acquire turns a bounding box into one elevation raster on disk:
// it fetches the covering tiles, mosaics them when there is more than one,
// and reports the result as a tagged outcome instead of a bare error.
package acquire

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/couchcryptid/terrain-analysis-service/internal/domain"
	"github.com/couchcryptid/terrain-analysis-service/internal/geotiff"
	"github.com/couchcryptid/terrain-analysis-service/internal/raster"
)

// Acquirer produces the merged elevation raster for a bounding box.
type Acquirer struct {
	fetcher     domain.TileFetcher
	resolutionM int
	logger      *slog.Logger
}

func NewAcquirer(fetcher domain.TileFetcher, resolutionM int, logger *slog.Logger) *Acquirer {
	return &Acquirer{fetcher: fetcher, resolutionM: resolutionM, logger: logger}
}

// Acquire fetches tiles into tileDir and leaves a single usable raster
// behind. One tile is used in place; several are mosaicked first-wins into
// mergedPath. The returned outcome carries the raster path on success and
// the failure class otherwise.
func (a *Acquirer) Acquire(ctx context.Context, bbox domain.BBox, tileDir, mergedPath string) domain.AcquireOutcome {
	paths, err := a.fetcher.FetchTiles(ctx, bbox, a.resolutionM, tileDir)
	if err != nil {
		a.logger.Error("tile fetch failed", "bbox", bbox.String(), "error", err)
		return domain.AcquireOutcome{Status: domain.TransientFailure, Err: err}
	}
	if len(paths) == 0 {
		a.logger.Warn("no elevation coverage for region", "bbox", bbox.String())
		return domain.AcquireOutcome{Status: domain.NoCoverage}
	}

	if len(paths) == 1 {
		a.logger.Info("single tile covers region; skipping merge", "path", paths[0])
		return domain.AcquireOutcome{Status: domain.Acquired, Path: paths[0], Tiles: 1}
	}

	merged, err := a.merge(paths, mergedPath)
	if err != nil {
		a.logger.Error("tile merge failed", "tiles", len(paths), "error", err)
		return domain.AcquireOutcome{Status: domain.TransientFailure, Tiles: len(paths), Err: err}
	}
	a.logger.Info("tiles merged", "tiles", len(paths), "path", mergedPath,
		"rows", merged.Rows, "cols", merged.Cols)
	return domain.AcquireOutcome{Status: domain.Acquired, Path: mergedPath, Merged: true, Tiles: len(paths)}
}

func (a *Acquirer) merge(paths []string, mergedPath string) (*raster.Grid, error) {
	tiles := make([]*raster.Grid, 0, len(paths))
	for _, p := range paths {
		g, err := geotiff.Read(p)
		if err != nil {
			return nil, fmt.Errorf("read tile %s: %w", p, err)
		}
		tiles = append(tiles, g)
	}

	merged, err := Mosaic(tiles)
	if err != nil {
		return nil, err
	}
	if err := geotiff.WriteGrid(mergedPath, merged); err != nil {
		return nil, fmt.Errorf("write merged raster: %w", err)
	}
	return merged, nil
}
