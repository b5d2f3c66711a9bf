package pipeline

import (
	"context"
	"testing"
	"time"

	"github.com/yourusername/sunviewfinder/internal/elevation"
	"github.com/yourusername/sunviewfinder/internal/geo"
	"github.com/yourusername/sunviewfinder/pkg/solar"
)

type flatTerrainResolver struct{}

func (flatTerrainResolver) Resolve(ctx context.Context, points []geo.Coordinate, progress elevation.ProgressFunc) ([]elevation.ElevatedPoint, error) {
	out := make([]elevation.ElevatedPoint, len(points))
	for i, p := range points {
		e := 100.0
		out[i] = elevation.ElevatedPoint{Point: p, ElevationM: &e}
	}
	if progress != nil {
		progress(len(points), len(points))
	}
	return out, nil
}

type allFailResolver struct{}

func (allFailResolver) Resolve(ctx context.Context, points []geo.Coordinate, progress elevation.ProgressFunc) ([]elevation.ElevatedPoint, error) {
	out := make([]elevation.ElevatedPoint, len(points))
	for i, p := range points {
		out[i] = elevation.ElevatedPoint{Point: p}
	}
	return nil, elevation.ErrAllElevationsFailed
}

func TestRunProducesRankedCandidates(t *testing.T) {
	svc := elevation.NewService(flatTerrainResolver{}, nil)
	p := New(svc, nil)

	opts := Options{
		Center:  geo.Coordinate{Lat: 45.5231, Lng: -122.6765},
		RadiusM: 1000,
		Date:    time.Date(2024, 6, 21, 0, 0, 0, 0, time.UTC),
		Mode:    solar.ModeSunset,
	}

	out, err := p.Run(context.Background(), opts, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(out.Ranked) == 0 {
		t.Fatal("expected non-empty ranked output")
	}
	if out.RunID == "" {
		t.Error("expected a run id")
	}

	for i := 1; i < len(out.Ranked); i++ {
		if out.Ranked[i].Score > out.Ranked[i-1].Score {
			t.Errorf("ranked output not sorted descending at index %d", i)
		}
	}
}

func TestRunFailsWhenAllElevationsFail(t *testing.T) {
	svc := elevation.NewService(allFailResolver{}, nil)
	p := New(svc, nil)

	opts := Options{
		Center:  geo.Coordinate{Lat: 45.5231, Lng: -122.6765},
		RadiusM: 1000,
		Date:    time.Date(2024, 6, 21, 0, 0, 0, 0, time.UTC),
		Mode:    solar.ModeSunset,
	}

	_, err := p.Run(context.Background(), opts, nil)
	if err == nil {
		t.Fatal("expected error")
	}
	pipelineErr, ok := err.(*Error)
	if !ok {
		t.Fatalf("expected *Error, got %T", err)
	}
	if pipelineErr.Kind != KindAllElevationsFailed {
		t.Errorf("expected KindAllElevationsFailed, got %v", pipelineErr.Kind)
	}
}

func TestRunReportsProgressMilestones(t *testing.T) {
	svc := elevation.NewService(flatTerrainResolver{}, nil)
	p := New(svc, nil)

	opts := Options{
		Center:  geo.Coordinate{Lat: 45.5231, Lng: -122.6765},
		RadiusM: 500,
		Date:    time.Date(2024, 6, 21, 0, 0, 0, 0, time.UTC),
		Mode:    solar.ModeSunrise,
	}

	var last int
	_, err := p.Run(context.Background(), opts, func(pct int, msg string) {
		if pct < last {
			t.Errorf("progress went backwards: %d after %d", pct, last)
		}
		last = pct
	})
	if err != nil {
		t.Fatal(err)
	}
	if last != 100 {
		t.Errorf("expected final progress 100, got %d", last)
	}
}

func TestSecondRunCancelsFirst(t *testing.T) {
	svc := elevation.NewService(flatTerrainResolver{}, nil)
	p := New(svc, nil)

	opts := Options{
		Center:  geo.Coordinate{Lat: 10, Lng: 10},
		RadiusM: 500,
		Date:    time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
		Mode:    solar.ModeSunset,
	}

	ctx1, cancel1 := context.WithCancel(context.Background())
	defer cancel1()
	done := make(chan error, 1)
	go func() {
		_, err := p.Run(ctx1, opts, nil)
		done <- err
	}()

	if _, err := p.Run(context.Background(), opts, nil); err != nil {
		t.Fatalf("second run should succeed: %v", err)
	}

	<-done
}
