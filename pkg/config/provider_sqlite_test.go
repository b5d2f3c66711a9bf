package config

import (
	"path/filepath"
	"testing"
	"time"
)

func newTestSQLiteProvider(t *testing.T) *SQLiteProvider {
	t.Helper()
	path := filepath.Join(t.TempDir(), "test.db")
	p, err := NewSQLiteProvider(path)
	if err != nil {
		t.Fatalf("failed to open provider: %v", err)
	}
	t.Cleanup(func() { p.Close() })
	return p
}

func TestSQLiteProviderSeedsDefaultsOnFirstOpen(t *testing.T) {
	p := newTestSQLiteProvider(t)

	got, err := p.GetPipelineDefaults()
	if err != nil {
		t.Fatal(err)
	}
	if got != Defaults {
		t.Errorf("expected seeded package defaults, got %+v", got)
	}
}

func TestSQLiteProviderUpdatePipelineDefaults(t *testing.T) {
	p := newTestSQLiteProvider(t)

	updated := Defaults
	updated.RadiusM = 25000
	updated.Concurrency = 4

	if err := p.UpdatePipelineDefaults(updated); err != nil {
		t.Fatal(err)
	}

	got, err := p.GetPipelineDefaults()
	if err != nil {
		t.Fatal(err)
	}
	if got.RadiusM != 25000 || got.Concurrency != 4 {
		t.Errorf("expected updated defaults, got %+v", got)
	}
}

func TestSQLiteProviderElevationConfigRoundTrip(t *testing.T) {
	p := newTestSQLiteProvider(t)

	cfg := ElevationProviderConfig{
		PrimaryEndpoint:  "https://example.com/primary",
		FallbackEndpoint: "https://example.com/fallback",
		TileURLTemplate:  "https://tiles.example.com/{z}/{x}/{y}.png",
		UseTileStrategy:  true,
	}
	if err := p.UpdateElevationConfig(cfg); err != nil {
		t.Fatal(err)
	}

	got, err := p.GetElevationConfig()
	if err != nil {
		t.Fatal(err)
	}
	if got != cfg {
		t.Errorf("expected round-tripped config %+v, got %+v", cfg, got)
	}
}

func TestSQLiteProviderRunHistoryOrdering(t *testing.T) {
	p := newTestSQLiteProvider(t)

	base := time.Date(2024, 6, 21, 12, 0, 0, 0, time.UTC)
	if err := p.RecordRun(RunRecord{ID: "run-1", Mode: "sunset", RequestedAt: base, Succeeded: true}); err != nil {
		t.Fatal(err)
	}
	if err := p.RecordRun(RunRecord{ID: "run-2", Mode: "sunrise", RequestedAt: base.Add(time.Hour), Succeeded: false, ErrorKind: "analysis_failure"}); err != nil {
		t.Fatal(err)
	}

	runs, err := p.ListRuns(10)
	if err != nil {
		t.Fatal(err)
	}
	if len(runs) != 2 {
		t.Fatalf("expected 2 runs, got %d", len(runs))
	}
	if runs[0].ID != "run-2" {
		t.Errorf("expected most recent run first, got %s", runs[0].ID)
	}
	if runs[1].Succeeded != true || runs[0].ErrorKind != "analysis_failure" {
		t.Errorf("unexpected run fields: %+v", runs)
	}
}

func TestCachedConfigProviderInvalidatesOnUpdate(t *testing.T) {
	p := newTestSQLiteProvider(t)
	cached := NewCachedProvider(p, time.Hour)

	if _, err := cached.GetPipelineDefaults(); err != nil {
		t.Fatal(err)
	}

	updated := Defaults
	updated.RadiusM = 999
	if err := cached.UpdatePipelineDefaults(updated); err != nil {
		t.Fatal(err)
	}

	got, err := cached.GetPipelineDefaults()
	if err != nil {
		t.Fatal(err)
	}
	if got.RadiusM != 999 {
		t.Errorf("expected cache to reflect update immediately, got %+v", got)
	}
}
