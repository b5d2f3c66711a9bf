package config

import (
	"path/filepath"
	"testing"
)

func TestYAMLProviderMissingFileReturnsDefaults(t *testing.T) {
	p := NewYAMLProvider(filepath.Join(t.TempDir(), "missing.yaml"))
	cfg, err := p.LoadConfig()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Defaults != Defaults {
		t.Errorf("expected package defaults, got %+v", cfg.Defaults)
	}
}

func TestYAMLProviderRoundTripsUpdates(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	p := NewYAMLProvider(path)

	newDefaults := Defaults
	newDefaults.RadiusM = 5000
	newDefaults.BatchSize = 200

	if err := p.UpdatePipelineDefaults(newDefaults); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	reloaded := NewYAMLProvider(path)
	got, err := reloaded.GetPipelineDefaults()
	if err != nil {
		t.Fatal(err)
	}
	if got.RadiusM != 5000 || got.BatchSize != 200 {
		t.Errorf("expected persisted overrides, got %+v", got)
	}
}

func TestYAMLProviderRunHistoryIsInMemoryOnly(t *testing.T) {
	p := NewYAMLProvider(filepath.Join(t.TempDir(), "config.yaml"))

	if err := p.RecordRun(RunRecord{ID: "a", Mode: "sunset"}); err != nil {
		t.Fatal(err)
	}
	if err := p.RecordRun(RunRecord{ID: "b", Mode: "sunrise"}); err != nil {
		t.Fatal(err)
	}

	runs, err := p.ListRuns(10)
	if err != nil {
		t.Fatal(err)
	}
	if len(runs) != 2 || runs[0].ID != "b" {
		t.Errorf("expected most-recent-first order, got %+v", runs)
	}
}
