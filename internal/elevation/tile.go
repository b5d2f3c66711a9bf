package elevation

import (
	"bytes"
	"context"
	"fmt"
	"image/png"
	"io"
	"math"
	"net/http"
	"sync"

	"github.com/yourusername/sunviewfinder/internal/concurrency"
	"github.com/yourusername/sunviewfinder/internal/geo"
	"go.uber.org/zap"
)

// DefaultTileZoom is the slippy-map zoom level used for tile lookups,
// giving roughly 9.5 km per tile at the equator.
const DefaultTileZoom = 12

type tileIndex struct {
	Z, X, Y int
}

// tileImage is the decoded Terrarium-encoded elevation raster for one
// tile, along with its pixel dimensions.
type tileImage struct {
	elevations []float64 // row-major, width*height
	width      int
	height     int
}

// tileFuture is the cache value for one tile: a one-shot completion
// that every requester for that tile, concurrent or not, waits on.
// The entry stays in the map for the life of the process once it
// resolves successfully, so a tile is downloaded at most once; a
// failed fetch is evicted so a later call can retry.
type tileFuture struct {
	done chan struct{}
	img  *tileImage
	err  error
}

// TileResolver fetches elevations by downloading the Terrarium-encoded
// raster tile each point falls into, decoding it once, and reusing it
// for every point sharing that tile, for the lifetime of the process.
// The tile cache's value is the in-flight future, not the resolved
// raster: a requester that finds a future already present waits on it
// instead of issuing a second fetch, and a requester that finds
// nothing installs the future before releasing the lock, so only one
// producer ever fetches a given tile.
type TileResolver struct {
	URLTemplate string // e.g. "https://example.com/terrarium/{z}/{x}/{y}.png"
	Zoom        int
	HTTPClient  *http.Client
	Logger      *zap.SugaredLogger

	mu    sync.Mutex
	tiles map[tileIndex]*tileFuture
}

// NewTileResolver builds a TileResolver using DefaultTileZoom.
func NewTileResolver(urlTemplate string, logger *zap.SugaredLogger) *TileResolver {
	return &TileResolver{
		URLTemplate: urlTemplate,
		Zoom:        DefaultTileZoom,
		HTTPClient:  &http.Client{},
		Logger:      logger,
		tiles:       make(map[tileIndex]*tileFuture),
	}
}

// Resolve implements Resolver by grouping points into the distinct
// tiles they fall within and fetching each tile at most once.
func (t *TileResolver) Resolve(ctx context.Context, points []geo.Coordinate, progress ProgressFunc) ([]ElevatedPoint, error) {
	zoom := t.Zoom
	if zoom <= 0 {
		zoom = DefaultTileZoom
	}

	byTile := make(map[tileIndex][]int)
	tileOf := make([]tileIndex, len(points))
	for i, p := range points {
		idx := tileIndexFor(p, zoom)
		tileOf[i] = idx
		byTile[idx] = append(byTile[idx], i)
	}

	results := make([]ElevatedPoint, len(points))
	g, gctx := concurrency.NewPool(ctx, DefaultConcurrency)

	total := len(points)
	completed := 0

	for idx, memberIdxs := range byTile {
		idx := idx
		memberIdxs := memberIdxs

		g.Go(func() error {
			img, err := t.fetchTile(gctx, idx)
			if err != nil {
				if t.Logger != nil {
					t.Logger.Warnw("tile fetch failed", "tile", idx, "error", err)
				}
				for _, mi := range memberIdxs {
					results[mi] = ElevatedPoint{Point: points[mi]}
				}
			} else {
				for _, mi := range memberIdxs {
					elev := elevationFromTile(img, points[mi], idx, zoom)
					results[mi] = ElevatedPoint{Point: points[mi], ElevationM: &elev}
				}
			}

			completed += len(memberIdxs)
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

// tileIndexFor computes the slippy-map z/x/y tile a coordinate falls
// in at the given zoom level.
func tileIndexFor(p geo.Coordinate, zoom int) tileIndex {
	n := math.Exp2(float64(zoom))
	x := int((p.Lng + 180.0) / 360.0 * n)

	latRad := p.Lat * math.Pi / 180.0
	y := int((1.0 - math.Log(math.Tan(latRad)+1.0/math.Cos(latRad))/math.Pi) / 2.0 * n)

	return tileIndex{Z: zoom, X: x, Y: y}
}

// elevationFromTile decodes the Terrarium-encoded pixel covering p
// within the already-decoded tile img.
func elevationFromTile(img *tileImage, p geo.Coordinate, idx tileIndex, zoom int) float64 {
	n := math.Exp2(float64(zoom))

	px := int(((p.Lng+180.0)/360.0*n - float64(idx.X)) * 256)
	px = clampInt(px, 0, 255)

	latRad := p.Lat * math.Pi / 180.0
	yFrac := (1.0 - math.Log(math.Tan(latRad)+1.0/math.Cos(latRad))/math.Pi) / 2.0 * n
	py := int((yFrac - float64(idx.Y)) * 256)
	py = clampInt(py, 0, 255)

	scaleX := float64(img.width) / 256.0
	scaleY := float64(img.height) / 256.0
	col := clampInt(int(float64(px)*scaleX), 0, img.width-1)
	row := clampInt(int(float64(py)*scaleY), 0, img.height-1)

	return img.elevations[row*img.width+col]
}

func clampInt(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

// fetchTile downloads and decodes the tile at idx at most once per
// process: the first caller installs a future and fetches; every other
// caller, whether concurrent or arriving long after, finds the future
// already in the map and either waits on it or, if it already
// resolved, returns the cached raster immediately.
func (t *TileResolver) fetchTile(ctx context.Context, idx tileIndex) (*tileImage, error) {
	t.mu.Lock()
	if t.tiles == nil {
		t.tiles = make(map[tileIndex]*tileFuture)
	}
	f, exists := t.tiles[idx]
	if !exists {
		f = &tileFuture{done: make(chan struct{})}
		t.tiles[idx] = f
	}
	t.mu.Unlock()

	if !exists {
		f.img, f.err = t.downloadAndDecode(ctx, idx)
		close(f.done)
		if f.err != nil {
			t.mu.Lock()
			delete(t.tiles, idx)
			t.mu.Unlock()
		}
		return f.img, f.err
	}

	select {
	case <-f.done:
		return f.img, f.err
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// ClearCache empties the tile cache. Every tile, including ones
// currently mid-fetch, is forgotten; in-flight fetches still complete
// and close their own future, they just aren't reachable from the map
// anymore.
func (t *TileResolver) ClearCache() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.tiles = make(map[tileIndex]*tileFuture)
}

func (t *TileResolver) downloadAndDecode(ctx context.Context, idx tileIndex) (*tileImage, error) {
	url := tileURL(t.URLTemplate, idx)

	var body []byte
	err := concurrency.Retry(ctx, retryOptions, func(attempt int) error {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
		if err != nil {
			return err
		}
		resp, err := t.HTTPClient.Do(req)
		if err != nil {
			return err
		}
		defer resp.Body.Close()

		if resp.StatusCode < 200 || resp.StatusCode >= 300 {
			return fmt.Errorf("tile %s returned status %d", url, resp.StatusCode)
		}

		body, err = io.ReadAll(resp.Body)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("fetch tile %s: %w", url, err)
	}

	return decodeTerrarium(body)
}

func tileURL(tmpl string, idx tileIndex) string {
	out := make([]byte, 0, len(tmpl)+8)
	i := 0
	for i < len(tmpl) {
		switch {
		case hasPrefixAt(tmpl, i, "{z}"):
			out = append(out, []byte(fmt.Sprint(idx.Z))...)
			i += 3
		case hasPrefixAt(tmpl, i, "{x}"):
			out = append(out, []byte(fmt.Sprint(idx.X))...)
			i += 3
		case hasPrefixAt(tmpl, i, "{y}"):
			out = append(out, []byte(fmt.Sprint(idx.Y))...)
			i += 3
		default:
			out = append(out, tmpl[i])
			i++
		}
	}
	return string(out)
}

func hasPrefixAt(s string, i int, prefix string) bool {
	if i+len(prefix) > len(s) {
		return false
	}
	return s[i:i+len(prefix)] == prefix
}

// decodeTerrarium decodes a Terrarium-encoded PNG: elevation in meters
// is e = R*256 + G + B/256 - 32768.
func decodeTerrarium(body []byte) (*tileImage, error) {
	img, err := png.Decode(bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("decode png: %w", err)
	}

	bounds := img.Bounds()
	width, height := bounds.Dx(), bounds.Dy()
	elevations := make([]float64, width*height)

	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			r, g, b, _ := img.At(bounds.Min.X+x, bounds.Min.Y+y).RGBA()
			// image.RGBA64 returns 16-bit-scaled channel values; shift
			// back down to the 8-bit range the Terrarium formula uses.
			rv, gv, bv := float64(r>>8), float64(g>>8), float64(b>>8)
			elevations[y*width+x] = rv*256 + gv + bv/256 - 32768
		}
	}

	return &tileImage{elevations: elevations, width: width, height: height}, nil
}

