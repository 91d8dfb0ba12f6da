// Package workflow drives one terrain-analysis run through its stages:
// elevation acquisition, hydrologic derivation, pour-point analysis, and
// catchment delineation. The orchestrator owns all cross-stage state (CRS,
// output paths) and absorbs every stage failure; a run always ends in a
// terminal state with its logging complete.
package workflow

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"sync/atomic"
	"time"

	"github.com/paulmach/orb"

	"github.com/couchcryptid/terrain-analysis-service/internal/config"
	"github.com/couchcryptid/terrain-analysis-service/internal/delineate"
	"github.com/couchcryptid/terrain-analysis-service/internal/domain"
	"github.com/couchcryptid/terrain-analysis-service/internal/geotiff"
	"github.com/couchcryptid/terrain-analysis-service/internal/hydrology"
	"github.com/couchcryptid/terrain-analysis-service/internal/observability"
	"github.com/couchcryptid/terrain-analysis-service/internal/raster"
)

// State names a workflow stage or terminal condition.
type State string

const (
	StateAcquiring   State = "ACQUIRING"
	StateHydrology   State = "HYDROLOGY"
	StateTopology    State = "TOPOLOGY"
	StateDelineation State = "DELINEATION"
	StateDone        State = "DONE"
	StateHalted      State = "HALTED"
)

// Acquirer produces the elevation raster for a bounding box.
type Acquirer interface {
	Acquire(ctx context.Context, bbox domain.BBox, tileDir, mergedPath string) domain.AcquireOutcome
}

// Engine derives the hydrologic surfaces from an elevation raster.
type Engine interface {
	Derive(dem *raster.Grid) (*hydrology.Result, error)
}

// Analyzer extracts pour points from a stream network.
type Analyzer interface {
	PourPoints(net domain.StreamNetwork) []domain.PourPoint
}

// Delineator computes drainage polygons for a pour-point set.
type Delineator interface {
	Delineate(fdir, acc *raster.IntGrid, points []domain.PourPoint, crs domain.CRS) (*delineate.Result, error)
}

// VectorWriter persists the vector output layers.
type VectorWriter interface {
	WriteStreamNetwork(path string, net domain.StreamNetwork) error
	WritePourPoints(path string, points []domain.PourPoint, crs domain.CRS) error
	WriteCatchments(path string, polys []orb.Polygon, crs domain.CRS) error
}

// EventSink publishes stage events. A nil sink disables publishing.
type EventSink interface {
	Publish(ctx context.Context, event domain.StageEvent) error
}

// Stages bundles the collaborators a workflow runs.
type Stages struct {
	Acquirer   Acquirer
	Engine     Engine
	Analyzer   Analyzer
	Delineator Delineator
	Vectors    VectorWriter
	Events     EventSink
}

// Summary is the terminal record of one run. Err carries the first absorbed
// failure, if any; State is always a terminal state.
type Summary struct {
	RunID      string
	State      State
	Tiles      int
	Reaches    int
	PourPoints int
	Catchments int
	Skipped    int
	Err        error
}

// Workflow executes terrain-analysis runs for one configured region.
type Workflow struct {
	cfg     *config.Config
	stages  Stages
	logger  *slog.Logger
	metrics *observability.Metrics
	ready   atomic.Bool
	last    atomic.Pointer[Summary]
}

// New creates a Workflow with the given stages and observability.
func New(cfg *config.Config, stages Stages, logger *slog.Logger, metrics *observability.Metrics) *Workflow {
	return &Workflow{
		cfg:     cfg,
		stages:  stages,
		logger:  logger,
		metrics: metrics,
	}
}

// CheckReadiness returns nil once a run has reached a terminal state, or an
// error describing why the service is not yet ready.
func (w *Workflow) CheckReadiness(_ context.Context) error {
	if !w.ready.Load() {
		return errors.New("no workflow run has completed yet")
	}
	return nil
}

// LastRun returns the summary of the most recently completed run, or nil
// when no run has reached a terminal state yet.
func (w *Workflow) LastRun() *Summary {
	return w.last.Load()
}

// Run executes one workflow run to a terminal state. It never returns an
// error and never panics: stage failures are logged and recorded on the
// summary, unexpected panics are converted to a HALTED summary.
func (w *Workflow) Run(ctx context.Context) (summary *Summary) {
	start := domain.Now()
	runID := domain.GenerateRunID(w.cfg.BBox, w.cfg.DEMResolutionM, start)
	logger := w.logger.With("run_id", runID)

	summary = &Summary{RunID: runID}
	w.metrics.WorkflowRunning.Set(1)
	defer w.metrics.WorkflowRunning.Set(0)
	defer func() {
		w.last.Store(summary)
		w.ready.Store(true)
	}()
	defer func() {
		if r := recover(); r != nil {
			logger.Error("workflow run aborted by panic", "panic", r)
			summary.State = StateHalted
			summary.Err = fmt.Errorf("workflow panic: %v", r)
			w.metrics.RunsCompleted.WithLabelValues(string(StateHalted)).Inc()
		}
	}()

	logger.Info("workflow run starting",
		"bbox", w.cfg.BBox.String(),
		"resolution_m", w.cfg.DEMResolutionM,
		"threshold", w.cfg.StreamThreshold,
		"project_dir", w.cfg.ProjectDir,
	)

	w.run(ctx, logger, summary)

	logger.Info("workflow run finished",
		"state", summary.State,
		"tiles", summary.Tiles,
		"reaches", summary.Reaches,
		"pour_points", summary.PourPoints,
		"catchments", summary.Catchments,
		"duration", domain.Now().Sub(start).String(),
	)
	return summary
}

func (w *Workflow) run(ctx context.Context, logger *slog.Logger, summary *Summary) {
	paths := w.cfg.Paths

	// ACQUIRING
	w.enter(ctx, logger, summary.RunID, StateAcquiring, "")
	stageStart := domain.Now()
	outcome := w.stages.Acquirer.Acquire(ctx, w.cfg.BBox, paths.InputDEMDir, paths.MergedDEM)
	w.observeStage(StateAcquiring, stageStart)
	summary.Tiles = outcome.Tiles
	if !outcome.OK() {
		logger.Error("acquisition produced no raster; halting run",
			"status", outcome.Status.String(), "error", outcome.Err)
		w.warn(StateAcquiring)
		w.finish(ctx, logger, summary, StateHalted, outcome.Err, outcome.Status.String())
		return
	}
	w.metrics.TilesFetched.Add(float64(outcome.Tiles))

	dem, err := geotiff.Read(outcome.Path)
	if err != nil {
		logger.Error("acquired raster is unreadable; halting run", "path", outcome.Path, "error", err)
		w.warn(StateAcquiring)
		w.finish(ctx, logger, summary, StateHalted, err, "unreadable raster")
		return
	}

	// HYDROLOGY
	w.enter(ctx, logger, summary.RunID, StateHydrology, fmt.Sprintf("tiles=%d", outcome.Tiles))
	stageStart = domain.Now()
	res, err := w.stages.Engine.Derive(dem)
	w.observeStage(StateHydrology, stageStart)
	if err != nil {
		logger.Error("hydrology stage failed", "error", err)
		w.warn(StateHydrology)
		w.finish(ctx, logger, summary, StateDone, err, "hydrology failed")
		return
	}
	summary.Reaches = len(res.Streams.Lines)
	w.metrics.StreamReaches.Add(float64(summary.Reaches))
	w.persistHydrology(logger, summary, res)

	// TOPOLOGY
	w.enter(ctx, logger, summary.RunID, StateTopology, fmt.Sprintf("reaches=%d", summary.Reaches))
	stageStart = domain.Now()
	points := w.stages.Analyzer.PourPoints(res.Streams)
	w.observeStage(StateTopology, stageStart)
	summary.PourPoints = len(points)
	for _, pp := range points {
		w.metrics.PourPoints.WithLabelValues(string(pp.Type)).Inc()
	}
	if len(points) == 0 {
		logger.Warn("no pour points found; skipping delineation")
		w.warn(StateTopology)
		w.finish(ctx, logger, summary, StateDone, nil, "no pour points")
		return
	}
	if err := w.stages.Vectors.WritePourPoints(paths.PourPoints, points, res.CRS); err != nil {
		logger.Error("writing pour points failed", "path", paths.PourPoints, "error", err)
		w.recordErr(summary, err)
	}

	// DELINEATION
	w.enter(ctx, logger, summary.RunID, StateDelineation, fmt.Sprintf("pour_points=%d", len(points)))
	stageStart = domain.Now()
	dres, err := w.stages.Delineator.Delineate(res.FlowDir, res.Accumulation, points, res.CRS)
	w.observeStage(StateDelineation, stageStart)
	if err != nil {
		logger.Error("delineation stage failed", "error", err)
		w.warn(StateDelineation)
		w.finish(ctx, logger, summary, StateDone, err, "delineation failed")
		return
	}
	summary.Catchments = len(dres.Catchments)
	summary.Skipped = dres.Skipped
	w.metrics.CatchmentsOutput.Add(float64(summary.Catchments))
	w.metrics.PointsSkipped.Add(float64(dres.Skipped))
	if len(dres.Catchments) == 0 {
		logger.Warn("no catchments delineated; no output layer written")
		w.warn(StateDelineation)
	} else if err := w.stages.Vectors.WriteCatchments(paths.SubCatchments, dres.Catchments, dres.CRS); err != nil {
		logger.Error("writing catchments failed", "path", paths.SubCatchments, "error", err)
		w.recordErr(summary, err)
	}

	w.finish(ctx, logger, summary, StateDone, nil, "")
}

// persistHydrology writes the flow rasters and, when non-empty, the stream
// network. Write failures are recorded but do not stop the run; the missing
// file is always preceded by a logged error.
func (w *Workflow) persistHydrology(logger *slog.Logger, summary *Summary, res *hydrology.Result) {
	paths := w.cfg.Paths
	if err := os.MkdirAll(paths.HydroDir, 0750); err != nil {
		logger.Error("creating hydrology output directory failed", "dir", paths.HydroDir, "error", err)
		w.recordErr(summary, err)
		return
	}
	if err := geotiff.WriteIntGrid(paths.FlowDirection, res.FlowDir); err != nil {
		logger.Error("writing flow-direction raster failed", "path", paths.FlowDirection, "error", err)
		w.recordErr(summary, err)
	}
	if err := geotiff.WriteIntGrid(paths.FlowAccumulation, res.Accumulation); err != nil {
		logger.Error("writing flow-accumulation raster failed", "path", paths.FlowAccumulation, "error", err)
		w.recordErr(summary, err)
	}
	if res.Streams.Empty() {
		logger.Warn("stream network is empty; no network layer written")
		w.warn(StateHydrology)
		return
	}
	if err := w.stages.Vectors.WriteStreamNetwork(paths.StreamNetwork, res.Streams); err != nil {
		logger.Error("writing stream network failed", "path", paths.StreamNetwork, "error", err)
		w.recordErr(summary, err)
	}
}

// enter logs a state transition and publishes it to the event sink.
func (w *Workflow) enter(ctx context.Context, logger *slog.Logger, runID string, s State, detail string) {
	logger.Info("entering state", "state", s, "detail", detail)
	w.publish(ctx, logger, runID, s, detail)
}

// finish records the terminal state on the summary and emits the final
// transition.
func (w *Workflow) finish(ctx context.Context, logger *slog.Logger, summary *Summary, s State, err error, detail string) {
	summary.State = s
	w.recordErr(summary, err)
	w.metrics.RunsCompleted.WithLabelValues(string(s)).Inc()
	w.enter(ctx, logger, summary.RunID, s, detail)
}

func (w *Workflow) publish(ctx context.Context, logger *slog.Logger, runID string, s State, detail string) {
	if w.stages.Events == nil {
		return
	}
	event := domain.StageEvent{RunID: runID, State: string(s), Detail: detail, At: domain.Now()}
	if err := w.stages.Events.Publish(ctx, event); err != nil {
		logger.Warn("publishing stage event failed", "state", s, "error", err)
	}
}

// recordErr keeps the first absorbed failure on the summary.
func (w *Workflow) recordErr(summary *Summary, err error) {
	if err != nil && summary.Err == nil {
		summary.Err = err
	}
}

func (w *Workflow) observeStage(s State, start time.Time) {
	w.metrics.StageDuration.WithLabelValues(string(s)).Observe(domain.Now().Sub(start).Seconds())
}

func (w *Workflow) warn(s State) {
	w.metrics.StageWarnings.WithLabelValues(string(s)).Inc()
}
