package elevation

import (
	"bytes"
	"context"
	"image"
	"image/color"
	"image/png"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/yourusername/sunviewfinder/internal/geo"
)

func TestTileIndexForKnownPoint(t *testing.T) {
	// Null Island at zoom 0 is the single world tile.
	idx := tileIndexFor(geo.Coordinate{Lat: 0, Lng: 0}, 0)
	if idx != (tileIndex{Z: 0, X: 0, Y: 0}) {
		t.Errorf("expected {0,0,0}, got %+v", idx)
	}
}

func TestTileURLSubstitution(t *testing.T) {
	got := tileURL("https://example.com/{z}/{x}/{y}.png", tileIndex{Z: 12, X: 655, Y: 1583})
	want := "https://example.com/12/655/1583.png"
	if got != want {
		t.Errorf("tileURL = %q, want %q", got, want)
	}
}

func TestDecodeTerrariumKnownPixel(t *testing.T) {
	// Encode elevation 0m as R=128, G=0, B=0 per the Terrarium formula:
	// e = R*256 + G + B/256 - 32768 => 128*256 - 32768 = 0.
	img := image.NewRGBA(image.Rect(0, 0, 1, 1))
	img.Set(0, 0, color.RGBA{R: 128, G: 0, B: 0, A: 255})

	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatal(err)
	}

	decoded, err := decodeTerrarium(buf.Bytes())
	if err != nil {
		t.Fatal(err)
	}
	if decoded.elevations[0] != 0 {
		t.Errorf("expected decoded elevation 0, got %v", decoded.elevations[0])
	}
}

func newTerrariumTileServer(t *testing.T, requests *int64) *httptest.Server {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, 1, 1))
	img.Set(0, 0, color.RGBA{R: 128, G: 0, B: 0, A: 255})
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatal(err)
	}
	body := buf.Bytes()

	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt64(requests, 1)
		w.Write(body)
	}))
}

func TestFetchTileOnlyOnceAcrossSeparateResolveCalls(t *testing.T) {
	var requests int64
	server := newTerrariumTileServer(t, &requests)
	defer server.Close()

	resolver := NewTileResolver(server.URL+"/{z}/{x}/{y}.png", nil)
	resolver.Zoom = 0 // the whole world is a single tile at zoom 0

	points := []geo.Coordinate{{Lat: 10, Lng: 10}, {Lat: -20, Lng: -30}}

	if _, err := resolver.Resolve(context.Background(), points, nil); err != nil {
		t.Fatalf("first resolve: %v", err)
	}
	if _, err := resolver.Resolve(context.Background(), points, nil); err != nil {
		t.Fatalf("second resolve: %v", err)
	}

	if got := atomic.LoadInt64(&requests); got != 1 {
		t.Errorf("expected tile fetched exactly once across both calls, got %d requests", got)
	}
}

func TestClearCacheForcesTileRefetch(t *testing.T) {
	var requests int64
	server := newTerrariumTileServer(t, &requests)
	defer server.Close()

	resolver := NewTileResolver(server.URL+"/{z}/{x}/{y}.png", nil)
	resolver.Zoom = 0

	points := []geo.Coordinate{{Lat: 10, Lng: 10}}

	if _, err := resolver.Resolve(context.Background(), points, nil); err != nil {
		t.Fatal(err)
	}
	resolver.ClearCache()
	if _, err := resolver.Resolve(context.Background(), points, nil); err != nil {
		t.Fatal(err)
	}

	if got := atomic.LoadInt64(&requests); got != 2 {
		t.Errorf("expected a refetch after ClearCache, got %d requests", got)
	}
}

func TestClampInt(t *testing.T) {
	if clampInt(-5, 0, 255) != 0 {
		t.Error("expected clamp to lower bound")
	}
	if clampInt(300, 0, 255) != 255 {
		t.Error("expected clamp to upper bound")
	}
	if clampInt(100, 0, 255) != 100 {
		t.Error("expected in-range value unchanged")
	}
}
