// Package config provides configuration management for the
// viewpoint-finder pipeline, with pluggable YAML and SQLite-backed
// data sources wrapped by a caching decorator.
package config

import (
	"sync"
	"time"
)

// Defaults is the default tuning for a pipeline run when no override
// is configured.
var Defaults = PipelineDefaults{
	RadiusM:            10000,
	SpacingM:           350,
	RaySampleSpacingM:  300,
	RayMaxDistanceM:    8000,
	CurvatureThreshold: 2000,
	HorizonMarginDeg:   0.5,
	BatchSize:          150,
	Concurrency:        2,
}

// PipelineDefaults are the tunable knobs for a pipeline run.
type PipelineDefaults struct {
	RadiusM            float64
	SpacingM           float64
	RaySampleSpacingM  float64
	RayMaxDistanceM    float64
	CurvatureThreshold float64
	HorizonMarginDeg   float64
	BatchSize          int
	Concurrency        int
}

// ElevationProviderConfig holds credentials/endpoints for the HTTP
// elevation provider strategy.
type ElevationProviderConfig struct {
	PrimaryEndpoint  string
	FallbackEndpoint string
	TileURLTemplate  string
	UseTileStrategy  bool
}

// RunRecord is one completed pipeline run, persisted for history/audit
// purposes only; it plays no role in elevation or viewshed caching.
type RunRecord struct {
	ID          string
	CenterLat   float64
	CenterLng   float64
	RadiusM     float64
	Mode        string
	RequestedAt time.Time
	CompletedAt time.Time
	Succeeded   bool
	ErrorKind   string
	ResultCount int
}

// ConfigData is the complete configuration document as loaded from a
// backend.
type ConfigData struct {
	Defaults  PipelineDefaults
	Elevation ElevationProviderConfig
}

// ConfigProvider defines the interface for configuration data sources.
type ConfigProvider interface {
	LoadConfig() (*ConfigData, error)

	GetPipelineDefaults() (PipelineDefaults, error)
	UpdatePipelineDefaults(defaults PipelineDefaults) error

	GetElevationConfig() (ElevationProviderConfig, error)
	UpdateElevationConfig(cfg ElevationProviderConfig) error

	RecordRun(run RunRecord) error
	ListRuns(limit int) ([]RunRecord, error)

	IsReadOnly() bool
	Close() error
}

// CachedConfigProvider wraps any ConfigProvider with a short-lived,
// read-mostly cache so hot paths (e.g. per-request default lookups)
// don't hit the backing store every time.
type CachedConfigProvider struct {
	provider    ConfigProvider
	cache       *ConfigData
	cacheMutex  sync.RWMutex
	lastLoaded  time.Time
	cacheExpiry time.Duration
}

// NewCachedProvider wraps provider with a cache that expires after
// cacheExpiry (defaulting to 30s).
func NewCachedProvider(provider ConfigProvider, cacheExpiry time.Duration) *CachedConfigProvider {
	if cacheExpiry == 0 {
		cacheExpiry = 30 * time.Second
	}
	return &CachedConfigProvider{provider: provider, cacheExpiry: cacheExpiry}
}

// GetUnderlying returns the wrapped provider, e.g. to reach
// backend-specific operations.
func (c *CachedConfigProvider) GetUnderlying() ConfigProvider {
	return c.provider
}

// LoadConfig loads configuration with caching.
func (c *CachedConfigProvider) LoadConfig() (*ConfigData, error) {
	c.cacheMutex.RLock()
	if c.cache != nil && time.Since(c.lastLoaded) < c.cacheExpiry {
		defer c.cacheMutex.RUnlock()
		return c.cache, nil
	}
	c.cacheMutex.RUnlock()

	c.cacheMutex.Lock()
	defer c.cacheMutex.Unlock()

	if c.cache != nil && time.Since(c.lastLoaded) < c.cacheExpiry {
		return c.cache, nil
	}

	cfg, err := c.provider.LoadConfig()
	if err != nil {
		return nil, err
	}
	c.cache = cfg
	c.lastLoaded = time.Now()
	return cfg, nil
}

func (c *CachedConfigProvider) invalidate() {
	c.cacheMutex.Lock()
	c.cache = nil
	c.cacheMutex.Unlock()
}

// GetPipelineDefaults returns the cached defaults, refreshing the
// cache if expired.
func (c *CachedConfigProvider) GetPipelineDefaults() (PipelineDefaults, error) {
	cfg, err := c.LoadConfig()
	if err != nil {
		return PipelineDefaults{}, err
	}
	return cfg.Defaults, nil
}

// UpdatePipelineDefaults writes through to the underlying provider and
// invalidates the cache.
func (c *CachedConfigProvider) UpdatePipelineDefaults(defaults PipelineDefaults) error {
	if err := c.provider.UpdatePipelineDefaults(defaults); err != nil {
		return err
	}
	c.invalidate()
	return nil
}

// GetElevationConfig returns the cached elevation provider config.
func (c *CachedConfigProvider) GetElevationConfig() (ElevationProviderConfig, error) {
	cfg, err := c.LoadConfig()
	if err != nil {
		return ElevationProviderConfig{}, err
	}
	return cfg.Elevation, nil
}

// UpdateElevationConfig writes through and invalidates the cache.
func (c *CachedConfigProvider) UpdateElevationConfig(cfg ElevationProviderConfig) error {
	if err := c.provider.UpdateElevationConfig(cfg); err != nil {
		return err
	}
	c.invalidate()
	return nil
}

// RecordRun always writes straight through; run history isn't cached.
func (c *CachedConfigProvider) RecordRun(run RunRecord) error {
	return c.provider.RecordRun(run)
}

// ListRuns always reads straight through; run history isn't cached.
func (c *CachedConfigProvider) ListRuns(limit int) ([]RunRecord, error) {
	return c.provider.ListRuns(limit)
}

func (c *CachedConfigProvider) IsReadOnly() bool { return c.provider.IsReadOnly() }
func (c *CachedConfigProvider) Close() error     { return c.provider.Close() }
