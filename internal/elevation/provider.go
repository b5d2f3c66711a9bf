package elevation

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/yourusername/sunviewfinder/internal/concurrency"
	"github.com/yourusername/sunviewfinder/internal/geo"
	"go.uber.org/zap"
)

// DefaultBatchSize and DefaultConcurrency are the default tuning for
// the provider strategy.
const (
	DefaultBatchSize   = 150
	DefaultConcurrency = 2
)

// ProviderResolver fetches elevations from an HTTP elevation API in
// batches, preferring a primary endpoint that returns results in
// request order and falling back to a secondary endpoint that returns
// an unordered object list keyed by coordinate.
type ProviderResolver struct {
	PrimaryEndpoint   string
	FallbackEndpoint  string
	BatchSize         int
	Concurrency       int
	HTTPClient        *http.Client
	Logger            *zap.SugaredLogger
}

// NewProviderResolver builds a ProviderResolver with the default batch
// size and concurrency.
func NewProviderResolver(primaryEndpoint, fallbackEndpoint string, logger *zap.SugaredLogger) *ProviderResolver {
	return &ProviderResolver{
		PrimaryEndpoint:  primaryEndpoint,
		FallbackEndpoint: fallbackEndpoint,
		BatchSize:        DefaultBatchSize,
		Concurrency:      DefaultConcurrency,
		HTTPClient:       &http.Client{Timeout: 10 * time.Second},
		Logger:           logger,
	}
}

// Resolve implements Resolver by partitioning points into batches of
// BatchSize and issuing up to Concurrency batches concurrently.
func (p *ProviderResolver) Resolve(ctx context.Context, points []geo.Coordinate, progress ProgressFunc) ([]ElevatedPoint, error) {
	batches := concurrency.Chunk(points, p.BatchSize)
	results := make([]ElevatedPoint, len(points))

	g, gctx := concurrency.NewPool(ctx, p.Concurrency)

	completed := 0
	total := len(points)

	offset := 0
	for _, batch := range batches {
		batch := batch
		batchOffset := offset
		offset += len(batch)

		g.Go(func() error {
			batchResults := p.resolveBatch(gctx, batch)
			copy(results[batchOffset:batchOffset+len(batch)], batchResults)

			completed += len(batch)
			if progress != nil {
				progress(completed, total)
			}
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return results, nil
}

// resolveBatch resolves a single batch, trying the primary endpoint
// first and falling back on failure. If both fail, every point in the
// batch resolves to a nil elevation.
func (p *ProviderResolver) resolveBatch(ctx context.Context, batch []geo.Coordinate) []ElevatedPoint {
	if elevs, err := p.fetchPrimary(ctx, batch); err == nil {
		return elevs
	} else if p.Logger != nil {
		p.Logger.Warnw("primary elevation provider failed, falling back", "error", err, "batch_size", len(batch))
	}

	if p.FallbackEndpoint != "" {
		if elevs, err := p.fetchFallback(ctx, batch); err == nil {
			return elevs
		} else if p.Logger != nil {
			p.Logger.Errorw("fallback elevation provider failed", "error", err, "batch_size", len(batch))
		}
	}

	out := make([]ElevatedPoint, len(batch))
	for i, pt := range batch {
		out[i] = ElevatedPoint{Point: pt}
	}
	return out
}

type primaryResponse struct {
	Results []struct {
		Elevation float64 `json:"elevation"`
	} `json:"results"`
}

// fetchPrimary calls the ordered-array provider endpoint, retrying
// transient HTTP failures with exponential backoff.
func (p *ProviderResolver) fetchPrimary(ctx context.Context, batch []geo.Coordinate) ([]ElevatedPoint, error) {
	var parsed primaryResponse

	err := concurrency.Retry(ctx, retryOptions, func(attempt int) error {
		body, err := p.doGet(ctx, p.PrimaryEndpoint, batch)
		if err != nil {
			return err
		}
		parsed = primaryResponse{}
		return json.Unmarshal(body, &parsed)
	})
	if err != nil {
		return nil, err
	}
	if len(parsed.Results) != len(batch) {
		return nil, fmt.Errorf("primary provider returned %d results for %d points", len(parsed.Results), len(batch))
	}

	out := make([]ElevatedPoint, len(batch))
	for i, pt := range batch {
		elev := parsed.Results[i].Elevation
		out[i] = ElevatedPoint{Point: pt, ElevationM: &elev}
	}
	return out, nil
}

type fallbackEntry struct {
	Lat       float64 `json:"lat"`
	Lng       float64 `json:"lng"`
	Elevation float64 `json:"elevation"`
}

type fallbackResponse struct {
	Locations []fallbackEntry `json:"locations"`
}

// fetchFallback calls the unordered-list provider endpoint and
// re-orders its results to match batch by rounded coordinate.
func (p *ProviderResolver) fetchFallback(ctx context.Context, batch []geo.Coordinate) ([]ElevatedPoint, error) {
	var parsed fallbackResponse

	err := concurrency.Retry(ctx, retryOptions, func(attempt int) error {
		body, err := p.doGet(ctx, p.FallbackEndpoint, batch)
		if err != nil {
			return err
		}
		parsed = fallbackResponse{}
		return json.Unmarshal(body, &parsed)
	})
	if err != nil {
		return nil, err
	}

	byKey := make(map[string]float64, len(parsed.Locations))
	for _, e := range parsed.Locations {
		byKey[cacheKey(geo.Coordinate{Lat: e.Lat, Lng: e.Lng})] = e.Elevation
	}

	out := make([]ElevatedPoint, len(batch))
	for i, pt := range batch {
		if v, ok := byKey[cacheKey(pt)]; ok {
			elev := v
			out[i] = ElevatedPoint{Point: pt, ElevationM: &elev}
		} else {
			out[i] = ElevatedPoint{Point: pt}
		}
	}
	return out, nil
}

// doGet issues a GET against endpoint with a "locations" query
// parameter of pipe-delimited "lat,lng" pairs, returning the response
// body. A non-2xx status is treated as a failure.
func (p *ProviderResolver) doGet(ctx context.Context, endpoint string, batch []geo.Coordinate) ([]byte, error) {
	locs := make([]string, len(batch))
	for i, pt := range batch {
		locs[i] = fmt.Sprintf("%.6f,%.6f", pt.Lat, pt.Lng)
	}

	v := url.Values{}
	v.Set("locations", strings.Join(locs, "|"))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint+"?"+v.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}

	resp, err := p.HTTPClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("elevation provider returned status %d: %s", resp.StatusCode, string(bytes.TrimSpace(body)))
	}

	return body, nil
}
