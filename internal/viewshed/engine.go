package viewshed

import (
	"context"
	"fmt"
	"math"
	"sync"

	"github.com/yourusername/sunviewfinder/internal/concurrency"
	"github.com/yourusername/sunviewfinder/internal/elevation"
	"github.com/yourusername/sunviewfinder/internal/geo"
	"go.uber.org/zap"
)

// ElevationResolver is the subset of *elevation.Service the viewshed
// engine depends on, letting tests substitute a fake.
type ElevationResolver interface {
	Resolve(ctx context.Context, points []geo.Coordinate, progress elevation.ProgressFunc) ([]elevation.ElevatedPoint, error)
}

// ProgressFunc reports viewshed progress as (completed, total)
// candidates analyzed in Phase B.
type ProgressFunc func(completed, total int)

// Engine runs the two-phase ray-cast against an elevation resolver.
type Engine struct {
	elevations  ElevationResolver
	concurrency int
	logger      *zap.SugaredLogger
}

// NewEngine builds an Engine. concurrency bounds Phase B's worker
// pool; a non-positive value leaves it unbounded.
func NewEngine(elevations ElevationResolver, concurrency int, logger *zap.SugaredLogger) *Engine {
	return &Engine{elevations: elevations, concurrency: concurrency, logger: logger}
}

// Analyze runs Phase A (ray expansion + elevation resolution) followed
// by Phase B (obstruction sweep) for every candidate, evaluated
// against a sun at sunAzimuthDeg/sunAltitudeDeg. rayProgress reports
// Phase A's elevation fetch; progress reports Phase B's sweep.
func (e *Engine) Analyze(ctx context.Context, candidates []Candidate, sunAzimuthDeg, sunAltitudeDeg float64, opts Options, rayProgress elevation.ProgressFunc, progress ProgressFunc) ([]AnalyzedCandidate, error) {
	opts = opts.withDefaults()

	samplesByCandidate, err := e.expandRays(ctx, candidates, sunAzimuthDeg, opts, rayProgress)
	if err != nil {
		return nil, fmt.Errorf("viewshed: ray expansion: %w", err)
	}

	return e.sweepObstructions(ctx, candidates, samplesByCandidate, sunAzimuthDeg, sunAltitudeDeg, opts, progress)
}

// expandRays is Phase A: generate ray sample coordinates for every
// candidate along sunAzimuthDeg, resolve them all in one elevation
// call, then re-split the results back per candidate, dropping samples
// whose elevation failed to resolve.
func (e *Engine) expandRays(ctx context.Context, candidates []Candidate, sunAzimuthDeg float64, opts Options, progress elevation.ProgressFunc) ([][]RaySample, error) {
	counts := make([]int, len(candidates))
	var flatPoints []geo.Coordinate
	var flatDistances []float64

	for i, c := range candidates {
		n := 0
		for d := opts.RaySampleSpacingM; d <= opts.RayMaxDistanceM+1e-9; d += opts.RaySampleSpacingM {
			flatPoints = append(flatPoints, geo.DestinationPoint(c.Point, sunAzimuthDeg, d))
			flatDistances = append(flatDistances, d)
			n++
		}
		counts[i] = n
	}

	if len(flatPoints) == 0 {
		return make([][]RaySample, len(candidates)), nil
	}

	resolved, err := e.elevations.Resolve(ctx, flatPoints, progress)
	if err != nil {
		return nil, err
	}

	samplesByCandidate := make([][]RaySample, len(candidates))
	offset := 0
	for i, n := range counts {
		samples := make([]RaySample, 0, n)
		for j := 0; j < n; j++ {
			r := resolved[offset+j]
			if r.ElevationM == nil {
				continue
			}
			samples = append(samples, RaySample{
				Point:      r.Point,
				DistanceM:  flatDistances[offset+j],
				ElevationM: *r.ElevationM,
			})
		}
		samplesByCandidate[i] = samples
		offset += n
	}

	return samplesByCandidate, nil
}

// sweepObstructions is Phase B: for each candidate, find the
// maximum apparent elevation angle among its surviving ray samples.
// This is CPU-bound and embarrassingly parallel, so it runs across a
// bounded worker pool rather than blocking the caller serially.
func (e *Engine) sweepObstructions(ctx context.Context, candidates []Candidate, samplesByCandidate [][]RaySample, sunAzimuthDeg, sunAltitudeDeg float64, opts Options, progress ProgressFunc) ([]AnalyzedCandidate, error) {
	results := make([]AnalyzedCandidate, len(candidates))
	g, gctx := concurrency.NewPool(ctx, e.concurrency)

	total := len(candidates)
	var mu sync.Mutex
	completed := 0

	for i := range candidates {
		i := i
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}

			obstruction := sweepCandidate(candidates[i], samplesByCandidate[i], opts)
			quality := ViewObstructed
			if obstruction.IsClear {
				quality = ViewClear
			}

			results[i] = AnalyzedCandidate{
				Candidate:      candidates[i],
				Obstruction:    obstruction,
				SunAzimuthDeg:  sunAzimuthDeg,
				SunAltitudeDeg: sunAltitudeDeg,
				ViewQuality:    quality,
			}

			mu.Lock()
			completed++
			report := progress != nil && (completed%100 == 0 || completed == total)
			snapshot := completed
			mu.Unlock()

			if report {
				progress(snapshot, total)
			}
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return results, nil
}

// sweepCandidate computes one candidate's Obstruction from its already
// -resolved ray samples.
func sweepCandidate(c Candidate, samples []RaySample, opts Options) Obstruction {
	if len(samples) == 0 {
		return Obstruction{
			ObstructionAngleDeg: -90,
			MaxBlockerDistanceM: 0,
			IsClear:             true,
		}
	}

	maxAngle := math.Inf(-1)
	var maxBlockerDistance, maxBlockerElevation float64

	for _, s := range samples {
		terrain := s.ElevationM
		if s.DistanceM > opts.CurvatureThreshold {
			terrain -= geo.CurvatureDrop(s.DistanceM)
		}

		delta := terrain - c.ElevationM
		angle := math.Atan2(delta, s.DistanceM) * 180 / math.Pi

		if angle > maxAngle {
			maxAngle = angle
			maxBlockerDistance = s.DistanceM
			maxBlockerElevation = s.ElevationM // raw, pre-curvature
		}
	}

	return Obstruction{
		ObstructionAngleDeg:  maxAngle,
		MaxBlockerDistanceM:  maxBlockerDistance,
		MaxBlockerElevationM: maxBlockerElevation,
		IsClear:              maxAngle < opts.HorizonMarginDeg,
	}
}
