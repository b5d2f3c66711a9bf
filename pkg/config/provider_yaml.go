package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v2"
)

// YAMLProvider implements ConfigProvider for a YAML configuration
// file. Run history is kept in memory only, since the YAML backend
// has no natural place to persist it; a SQLiteProvider should be used
// when run history needs to survive a restart.
type YAMLProvider struct {
	filename string
	runs     []RunRecord
}

type yamlDocument struct {
	Defaults  yamlDefaults  `yaml:"defaults"`
	Elevation yamlElevation `yaml:"elevation"`
}

type yamlDefaults struct {
	RadiusM            float64 `yaml:"radius_m"`
	SpacingM           float64 `yaml:"spacing_m"`
	RaySampleSpacingM  float64 `yaml:"ray_sample_spacing_m"`
	RayMaxDistanceM    float64 `yaml:"ray_max_distance_m"`
	CurvatureThreshold float64 `yaml:"curvature_threshold_m"`
	HorizonMarginDeg   float64 `yaml:"horizon_margin_deg"`
	BatchSize          int     `yaml:"batch_size"`
	Concurrency        int     `yaml:"concurrency"`
}

type yamlElevation struct {
	PrimaryEndpoint  string `yaml:"primary_endpoint"`
	FallbackEndpoint string `yaml:"fallback_endpoint"`
	TileURLTemplate  string `yaml:"tile_url_template"`
	UseTileStrategy  bool   `yaml:"use_tile_strategy"`
}

// NewYAMLProvider creates a new YAML configuration provider backed by
// filename. Missing fields fall back to Defaults.
func NewYAMLProvider(filename string) *YAMLProvider {
	return &YAMLProvider{filename: filename}
}

// LoadConfig loads the complete configuration from the YAML file,
// falling back to package Defaults for any field the file doesn't set.
func (y *YAMLProvider) LoadConfig() (*ConfigData, error) {
	raw, err := os.ReadFile(y.filename)
	if err != nil {
		if os.IsNotExist(err) {
			return &ConfigData{Defaults: Defaults}, nil
		}
		return nil, fmt.Errorf("read yaml config: %w", err)
	}

	var doc yamlDocument
	if err := yaml.Unmarshal(raw, &doc); err != nil {
		return nil, fmt.Errorf("parse yaml config: %w", err)
	}

	cfg := &ConfigData{
		Defaults: PipelineDefaults{
			RadiusM:            orDefault(doc.Defaults.RadiusM, Defaults.RadiusM),
			SpacingM:           orDefault(doc.Defaults.SpacingM, Defaults.SpacingM),
			RaySampleSpacingM:  orDefault(doc.Defaults.RaySampleSpacingM, Defaults.RaySampleSpacingM),
			RayMaxDistanceM:    orDefault(doc.Defaults.RayMaxDistanceM, Defaults.RayMaxDistanceM),
			CurvatureThreshold: orDefault(doc.Defaults.CurvatureThreshold, Defaults.CurvatureThreshold),
			HorizonMarginDeg:   orDefault(doc.Defaults.HorizonMarginDeg, Defaults.HorizonMarginDeg),
			BatchSize:          orDefaultInt(doc.Defaults.BatchSize, Defaults.BatchSize),
			Concurrency:        orDefaultInt(doc.Defaults.Concurrency, Defaults.Concurrency),
		},
		Elevation: ElevationProviderConfig{
			PrimaryEndpoint:  doc.Elevation.PrimaryEndpoint,
			FallbackEndpoint: doc.Elevation.FallbackEndpoint,
			TileURLTemplate:  doc.Elevation.TileURLTemplate,
			UseTileStrategy:  doc.Elevation.UseTileStrategy,
		},
	}

	return cfg, nil
}

func orDefault(v, def float64) float64 {
	if v == 0 {
		return def
	}
	return v
}

func orDefaultInt(v, def int) int {
	if v == 0 {
		return def
	}
	return v
}

func (y *YAMLProvider) GetPipelineDefaults() (PipelineDefaults, error) {
	cfg, err := y.LoadConfig()
	if err != nil {
		return PipelineDefaults{}, err
	}
	return cfg.Defaults, nil
}

// UpdatePipelineDefaults rewrites the YAML file's defaults section,
// preserving the elevation section as-is.
func (y *YAMLProvider) UpdatePipelineDefaults(defaults PipelineDefaults) error {
	cfg, err := y.LoadConfig()
	if err != nil {
		return err
	}
	cfg.Defaults = defaults
	return y.writeConfig(cfg)
}

func (y *YAMLProvider) GetElevationConfig() (ElevationProviderConfig, error) {
	cfg, err := y.LoadConfig()
	if err != nil {
		return ElevationProviderConfig{}, err
	}
	return cfg.Elevation, nil
}

func (y *YAMLProvider) UpdateElevationConfig(elevCfg ElevationProviderConfig) error {
	cfg, err := y.LoadConfig()
	if err != nil {
		return err
	}
	cfg.Elevation = elevCfg
	return y.writeConfig(cfg)
}

func (y *YAMLProvider) writeConfig(cfg *ConfigData) error {
	doc := yamlDocument{
		Defaults: yamlDefaults{
			RadiusM:            cfg.Defaults.RadiusM,
			SpacingM:           cfg.Defaults.SpacingM,
			RaySampleSpacingM:  cfg.Defaults.RaySampleSpacingM,
			RayMaxDistanceM:    cfg.Defaults.RayMaxDistanceM,
			CurvatureThreshold: cfg.Defaults.CurvatureThreshold,
			HorizonMarginDeg:   cfg.Defaults.HorizonMarginDeg,
			BatchSize:          cfg.Defaults.BatchSize,
			Concurrency:        cfg.Defaults.Concurrency,
		},
		Elevation: yamlElevation{
			PrimaryEndpoint:  cfg.Elevation.PrimaryEndpoint,
			FallbackEndpoint: cfg.Elevation.FallbackEndpoint,
			TileURLTemplate:  cfg.Elevation.TileURLTemplate,
			UseTileStrategy:  cfg.Elevation.UseTileStrategy,
		},
	}

	out, err := yaml.Marshal(doc)
	if err != nil {
		return fmt.Errorf("marshal yaml config: %w", err)
	}
	return os.WriteFile(y.filename, out, 0o644)
}

// RecordRun appends to the in-memory run history; it does not persist
// across restarts for the YAML backend.
func (y *YAMLProvider) RecordRun(run RunRecord) error {
	y.runs = append(y.runs, run)
	return nil
}

// ListRuns returns up to limit most-recent runs, newest first.
func (y *YAMLProvider) ListRuns(limit int) ([]RunRecord, error) {
	n := len(y.runs)
	if limit > 0 && limit < n {
		n = limit
	}
	out := make([]RunRecord, n)
	for i := 0; i < n; i++ {
		out[i] = y.runs[len(y.runs)-1-i]
	}
	return out, nil
}

func (y *YAMLProvider) IsReadOnly() bool { return false }
func (y *YAMLProvider) Close() error     { return nil }
