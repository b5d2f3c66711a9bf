// Package elevation resolves terrain elevations for batches of
// coordinates, caching results for the lifetime of the process and
// fanning misses out to a pluggable resolution strategy (a batched
// HTTP provider or a slippy-map tile fetcher).
package elevation

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/yourusername/sunviewfinder/internal/concurrency"
	"github.com/yourusername/sunviewfinder/internal/geo"
	"go.uber.org/zap"
)

// ElevatedPoint pairs an input coordinate with its resolved elevation.
// ElevationM is nil when resolution failed for that point but the
// overall call otherwise succeeded.
type ElevatedPoint struct {
	Point      geo.Coordinate
	ElevationM *float64
}

// ErrAllElevationsFailed is returned by Resolve when every unresolved
// point failed to come back with an elevation.
var ErrAllElevationsFailed = errors.New("elevation: all resolutions failed")

// ProgressFunc reports (completed, total) after each batch or tile
// completes. completed includes points already satisfied by the cache.
type ProgressFunc func(completed, total int)

// Resolver is the pluggable strategy for fetching elevations for
// points not already cached. Implementations partition points however
// suits their backend (provider batches, terrain tiles) but must
// return one result per input point, in input order, with a nil
// ElevationM for individual failures.
type Resolver interface {
	Resolve(ctx context.Context, points []geo.Coordinate, progress ProgressFunc) ([]ElevatedPoint, error)
}

// Service resolves elevations with a shared, process-lifetime cache in
// front of a Resolver strategy.
type Service struct {
	resolver Resolver
	cache    *pointCache
	logger   *zap.SugaredLogger
}

// NewService constructs an elevation Service backed by resolver.
func NewService(resolver Resolver, logger *zap.SugaredLogger) *Service {
	return &Service{
		resolver: resolver,
		cache:    newPointCache(),
		logger:   logger,
	}
}

// Resolve returns one ElevatedPoint per input point, preserving order.
// Cache hits are served immediately; misses are delegated to the
// underlying Resolver and the results are written back into the cache.
// If every miss fails to resolve, Resolve returns ErrAllElevationsFailed.
func (s *Service) Resolve(ctx context.Context, points []geo.Coordinate, progress ProgressFunc) ([]ElevatedPoint, error) {
	total := len(points)
	results := make([]ElevatedPoint, total)

	var missIdx []int
	var missPoints []geo.Coordinate

	completed := 0
	for i, p := range points {
		if v, ok := s.cache.get(p); ok {
			elev := v
			results[i] = ElevatedPoint{Point: p, ElevationM: &elev}
			completed++
			continue
		}
		missIdx = append(missIdx, i)
		missPoints = append(missPoints, p)
	}

	if len(missIdx) == 0 {
		if progress != nil {
			progress(completed, total)
		}
		return results, nil
	}

	wrappedProgress := func(batchCompleted, batchTotal int) {
		if progress != nil {
			progress(completed+batchCompleted, total)
		}
	}

	resolved, err := s.resolver.Resolve(ctx, missPoints, wrappedProgress)
	if err != nil {
		return nil, fmt.Errorf("elevation: resolve misses: %w", err)
	}
	if len(resolved) != len(missPoints) {
		return nil, fmt.Errorf("elevation: resolver returned %d results for %d points", len(resolved), len(missPoints))
	}

	successCount := 0
	for i, r := range resolved {
		origIdx := missIdx[i]
		results[origIdx] = r
		if r.ElevationM != nil {
			s.cache.put(r.Point, *r.ElevationM)
			successCount++
		}
	}

	if successCount == 0 {
		if s.logger != nil {
			s.logger.Errorw("all elevation resolutions failed", "attempted", len(missPoints))
		}
		return nil, ErrAllElevationsFailed
	}

	if progress != nil {
		progress(total, total)
	}
	return results, nil
}

// CacheSize reports the number of distinct points currently cached.
func (s *Service) CacheSize() int {
	return s.cache.len()
}

// cacheClearer is implemented by resolver strategies that keep their
// own cache alongside the point cache (the tile strategy's decoded
// raster cache).
type cacheClearer interface {
	ClearCache()
}

// ClearCache empties the point cache and, if the underlying resolver
// keeps its own cache (e.g. TileResolver's decoded tile cache), empties
// that too. This is the only way entries are invalidated; caches are
// otherwise process-lifetime.
func (s *Service) ClearCache() {
	s.cache.clear()
	if cc, ok := s.resolver.(cacheClearer); ok {
		cc.ClearCache()
	}
}

// retryOptions is the elevation-specific tuning of the shared retry
// helper for provider HTTP calls: 2 attempts by default, base delay 1s,
// factor 2 (applied by concurrency.Retry).
var retryOptions = concurrency.RetryOptions{
	MaxAttempts:  2,
	InitialDelay: time.Second,
	MaxDelay:     4 * time.Second,
}
