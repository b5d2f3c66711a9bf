// Package pipeline orchestrates one end-to-end run of the viewpoint
// finder: solar position -> grid generation -> elevation resolution ->
// viewshed analysis -> scoring. It enforces a one-run-at-a-time policy,
// cancelling any run still in flight when a new one starts.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/yourusername/sunviewfinder/internal/elevation"
	"github.com/yourusername/sunviewfinder/internal/geo"
	"github.com/yourusername/sunviewfinder/internal/grid"
	"github.com/yourusername/sunviewfinder/internal/scorer"
	"github.com/yourusername/sunviewfinder/internal/viewshed"
	"github.com/yourusername/sunviewfinder/pkg/solar"
)

// Kind classifies why a pipeline run failed.
type Kind string

const (
	KindLocationNotFound    Kind = "location_not_found"
	KindProviderTransient   Kind = "provider_transient"
	KindProviderExhausted   Kind = "provider_exhausted"
	KindAllElevationsFailed Kind = "all_elevations_failed"
	KindRayElevationsPartial Kind = "ray_elevations_partial"
	KindAnalysisFailure     Kind = "analysis_failure"
	KindCancelled           Kind = "cancelled"
)

// Error is the typed error surfaced to pipeline callers.
type Error struct {
	Kind    Kind
	Message string
	Cause   error
}

func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("pipeline: %s: %s: %v", e.Kind, e.Message, e.Cause)
	}
	return fmt.Sprintf("pipeline: %s: %s", e.Kind, e.Message)
}

func (e *Error) Unwrap() error { return e.Cause }

// Options are the inputs to one pipeline run.
type Options struct {
	Center      geo.Coordinate
	RadiusM     float64
	Date        time.Time
	Mode        solar.Mode
	SpacingM    float64
	Concurrency int
}

// Output is everything a run produces.
type Output struct {
	RunID     string
	SunData   solar.SunData
	Ranked    []scorer.ScoredCandidate
}

// ProgressFunc reports coarse overall progress in [0, 100].
type ProgressFunc func(percent int, message string)

// Pipeline drives a single logical run at a time, cancelling any
// previous run still in flight when Run is called again.
type Pipeline struct {
	elevationSvc *elevation.Service
	logger       *zap.SugaredLogger

	mu         sync.Mutex
	cancelPrev context.CancelFunc
}

// New constructs a Pipeline backed by elevationSvc.
func New(elevationSvc *elevation.Service, logger *zap.SugaredLogger) *Pipeline {
	return &Pipeline{elevationSvc: elevationSvc, logger: logger}
}

// Run executes one end-to-end pipeline run. If a previous run is still
// in flight, it is cancelled first.
func (p *Pipeline) Run(ctx context.Context, opts Options, progress ProgressFunc) (*Output, error) {
	runCtx, cancel := context.WithCancel(ctx)

	p.mu.Lock()
	if p.cancelPrev != nil {
		p.cancelPrev()
	}
	p.cancelPrev = cancel
	p.mu.Unlock()
	defer cancel()

	runID := uuid.NewString()
	report := func(pct int, msg string) {
		if progress != nil {
			progress(pct, msg)
		}
	}

	if p.logger != nil {
		p.logger.Infow("pipeline run starting", "run_id", runID, "mode", opts.Mode, "radius_m", opts.RadiusM)
	}

	report(0, "computing solar position")
	sunData, err := solar.ComputeSunData(opts.Mode, opts.Center.Lat, opts.Center.Lng, opts.Date)
	if err != nil {
		return nil, p.wrapErr(runCtx, KindLocationNotFound, "unable to compute sun data for this location/date", err)
	}

	report(5, "generating candidate grid")
	spacing := opts.SpacingM
	if spacing <= 0 {
		spacing = grid.DefaultSpacingMeters
	}
	points := grid.Generate(opts.Center, opts.RadiusM, spacing)
	if len(points) == 0 {
		return nil, p.wrapErr(runCtx, KindAnalysisFailure, "grid generation produced no candidate points", nil)
	}

	report(10, "resolving candidate elevations")
	elevatedCandidates, err := p.resolveGridElevations(runCtx, points, func(completed, total int) {
		report(progressInRange(completed, total, 10, 50), "resolving candidate elevations")
	})
	if err != nil {
		if errors.Is(err, elevation.ErrAllElevationsFailed) {
			return nil, p.wrapErr(runCtx, KindAllElevationsFailed, "elevation data unavailable", err)
		}
		return nil, p.wrapErr(runCtx, KindProviderExhausted, "elevation provider failed", err)
	}

	candidates := make([]viewshed.Candidate, 0, len(elevatedCandidates))
	for _, ep := range elevatedCandidates {
		if ep.ElevationM == nil {
			continue
		}
		candidates = append(candidates, viewshed.Candidate{Point: ep.Point, ElevationM: *ep.ElevationM})
	}
	if len(candidates) == 0 {
		return nil, p.wrapErr(runCtx, KindAllElevationsFailed, "elevation data unavailable", nil)
	}

	report(50, "casting rays toward the sun")
	engine := viewshed.NewEngine(p.elevationSvc, opts.Concurrency, p.logger)
	analyzed, err := engine.Analyze(runCtx, candidates, sunData.AzimuthDeg, sunData.AltitudeDeg, viewshed.Options{},
		func(completed, total int) {
			report(progressInRange(completed, total, 50, 80), "resolving ray elevations")
		},
		func(completed, total int) {
			report(progressInRange(completed, total, 80, 95), "scoring obstruction")
		},
	)
	if err != nil {
		if runCtx.Err() != nil {
			return nil, p.wrapErr(runCtx, KindCancelled, "run cancelled", err)
		}
		return nil, p.wrapErr(runCtx, KindAnalysisFailure, "viewshed analysis failed", err)
	}

	report(95, "ranking candidates")
	ranked := scorer.Rank(analyzed, scorer.Options{Center: &opts.Center, MaxRadiusM: opts.RadiusM})

	report(100, "done")
	if p.logger != nil {
		p.logger.Infow("pipeline run complete", "run_id", runID, "candidates", len(ranked))
	}

	return &Output{RunID: runID, SunData: sunData, Ranked: ranked}, nil
}

// resolveGridElevations resolves elevations for the initial candidate
// grid, passing the elevation service's (completed, total) progress
// straight to progress; Run's callback maps it into the 10-50% band.
func (p *Pipeline) resolveGridElevations(ctx context.Context, points []geo.Coordinate, progress elevation.ProgressFunc) ([]elevation.ElevatedPoint, error) {
	return p.elevationSvc.Resolve(ctx, points, progress)
}

func progressInRange(completed, total, lo, hi int) int {
	if total <= 0 {
		return lo
	}
	frac := float64(completed) / float64(total)
	return lo + int(frac*float64(hi-lo))
}

func (p *Pipeline) wrapErr(ctx context.Context, kind Kind, msg string, cause error) *Error {
	if ctx.Err() != nil {
		kind = KindCancelled
	}
	if p.logger != nil {
		p.logger.Errorw("pipeline run failed", "kind", kind, "message", msg, "error", cause)
	}
	return &Error{Kind: kind, Message: msg, Cause: cause}
}
