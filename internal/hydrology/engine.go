package hydrology

import (
	"fmt"
	"log/slog"

	"github.com/couchcryptid/terrain-analysis-service/internal/domain"
	"github.com/couchcryptid/terrain-analysis-service/internal/raster"
)

// Result bundles the surfaces derived from one elevation raster. CRS is the
// one captured from the source DEM; downstream stages must use it rather
// than re-deriving georeferencing from intermediate rasters.
type Result struct {
	FlowDir      *raster.IntGrid
	Accumulation *raster.IntGrid
	Streams      domain.StreamNetwork
	CRS          domain.CRS
}

// Engine runs the hydrologic conditioning chain over an elevation raster.
type Engine struct {
	threshold int
	logger    *slog.Logger
}

// NewEngine creates an engine with the given stream accumulation threshold.
func NewEngine(threshold int, logger *slog.Logger) *Engine {
	return &Engine{threshold: threshold, logger: logger}
}

// Derive executes the stages in strict order: fill depressions, resolve
// flats, D8 flow direction, flow accumulation, stream extraction. Each
// stage consumes the previous stage's output and returns a fresh grid.
func (e *Engine) Derive(dem *raster.Grid) (*Result, error) {
	if dem.Rows == 0 || dem.Cols == 0 {
		return nil, fmt.Errorf("empty elevation raster")
	}
	crs := dem.CRS
	if !crs.Known() {
		e.logger.Warn("elevation raster has no CRS; outputs will carry an unknown CRS")
	}

	e.logger.Info("filling depressions", "rows", dem.Rows, "cols", dem.Cols)
	filled := FillDepressions(dem)

	e.logger.Info("resolving flats")
	conditioned := ResolveFlats(filled)

	e.logger.Info("computing d8 flow direction")
	fdir := FlowDirection(conditioned)

	e.logger.Info("computing flow accumulation")
	acc := Accumulation(fdir)

	e.logger.Info("extracting stream network", "threshold", e.threshold)
	streams := ExtractStreams(fdir, acc, e.threshold, crs)
	if streams.Empty() {
		e.logger.Warn("no streams extracted at the given threshold", "threshold", e.threshold)
	} else {
		e.logger.Info("stream network extracted", "reaches", len(streams.Lines))
	}

	return &Result{
		FlowDir:      fdir,
		Accumulation: acc,
		Streams:      streams,
		CRS:          crs,
	}, nil
}
