package config

import (
	"database/sql"
	"fmt"

	_ "modernc.org/sqlite"
)

// SQLiteProvider implements ConfigProvider backed by a SQLite database,
// persisting pipeline defaults, elevation provider settings, and run
// history across restarts.
type SQLiteProvider struct {
	db     *sql.DB
	dbPath string
}

// NewSQLiteProvider opens (and if necessary initializes) a SQLite
// database at dbPath.
func NewSQLiteProvider(dbPath string) (*SQLiteProvider, error) {
	connStr := fmt.Sprintf("%s?_busy_timeout=10000&_journal_mode=WAL&_synchronous=NORMAL", dbPath)
	db, err := sql.Open("sqlite", connStr)
	if err != nil {
		return nil, fmt.Errorf("failed to open SQLite database: %w", err)
	}

	db.SetMaxOpenConns(10)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(0)
	db.SetConnMaxIdleTime(0)

	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("failed to ping SQLite database: %w", err)
	}

	provider := &SQLiteProvider{db: db, dbPath: dbPath}

	if err := provider.initializeSchemaIfNeeded(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize database schema: %w", err)
	}

	pragmas := []string{
		"PRAGMA temp_store = MEMORY",
		"PRAGMA mmap_size = 268435456",
		"PRAGMA cache_size = -64000",
		"PRAGMA foreign_keys = ON",
		"PRAGMA optimize",
	}
	for _, pragma := range pragmas {
		db.Exec(pragma)
	}

	return provider, nil
}

func (s *SQLiteProvider) initializeSchemaIfNeeded() error {
	var tableName string
	err := s.db.QueryRow("SELECT name FROM sqlite_master WHERE type='table' AND name='pipeline_defaults'").Scan(&tableName)
	if err == sql.ErrNoRows {
		return s.initializeSchema()
	} else if err != nil {
		return fmt.Errorf("failed to check for existing tables: %w", err)
	}
	return nil
}

func (s *SQLiteProvider) initializeSchema() error {
	schema := `
CREATE TABLE pipeline_defaults (
    id INTEGER PRIMARY KEY CHECK (id = 1),
    radius_m REAL NOT NULL,
    spacing_m REAL NOT NULL,
    ray_sample_spacing_m REAL NOT NULL,
    ray_max_distance_m REAL NOT NULL,
    curvature_threshold_m REAL NOT NULL,
    horizon_margin_deg REAL NOT NULL,
    batch_size INTEGER NOT NULL,
    concurrency INTEGER NOT NULL
);

CREATE TABLE elevation_config (
    id INTEGER PRIMARY KEY CHECK (id = 1),
    primary_endpoint TEXT NOT NULL DEFAULT '',
    fallback_endpoint TEXT NOT NULL DEFAULT '',
    tile_url_template TEXT NOT NULL DEFAULT '',
    use_tile_strategy INTEGER NOT NULL DEFAULT 0
);

CREATE TABLE run_history (
    id TEXT PRIMARY KEY,
    center_lat REAL NOT NULL,
    center_lng REAL NOT NULL,
    radius_m REAL NOT NULL,
    mode TEXT NOT NULL,
    requested_at DATETIME NOT NULL,
    completed_at DATETIME,
    succeeded INTEGER NOT NULL DEFAULT 0,
    error_kind TEXT NOT NULL DEFAULT '',
    result_count INTEGER NOT NULL DEFAULT 0
);

CREATE INDEX idx_run_history_requested_at ON run_history(requested_at);
`
	if _, err := s.db.Exec(schema); err != nil {
		return fmt.Errorf("failed to create schema: %w", err)
	}

	_, err := s.db.Exec(`
INSERT INTO pipeline_defaults (id, radius_m, spacing_m, ray_sample_spacing_m, ray_max_distance_m, curvature_threshold_m, horizon_margin_deg, batch_size, concurrency)
VALUES (1, ?, ?, ?, ?, ?, ?, ?, ?)`,
		Defaults.RadiusM, Defaults.SpacingM, Defaults.RaySampleSpacingM, Defaults.RayMaxDistanceM,
		Defaults.CurvatureThreshold, Defaults.HorizonMarginDeg, Defaults.BatchSize, Defaults.Concurrency)
	if err != nil {
		return fmt.Errorf("failed to seed pipeline defaults: %w", err)
	}

	_, err = s.db.Exec(`INSERT INTO elevation_config (id) VALUES (1)`)
	if err != nil {
		return fmt.Errorf("failed to seed elevation config: %w", err)
	}

	return nil
}

// LoadConfig loads the complete configuration document.
func (s *SQLiteProvider) LoadConfig() (*ConfigData, error) {
	defaults, err := s.GetPipelineDefaults()
	if err != nil {
		return nil, err
	}
	elevCfg, err := s.GetElevationConfig()
	if err != nil {
		return nil, err
	}
	return &ConfigData{Defaults: defaults, Elevation: elevCfg}, nil
}

// GetPipelineDefaults reads the single pipeline_defaults row.
func (s *SQLiteProvider) GetPipelineDefaults() (PipelineDefaults, error) {
	var d PipelineDefaults
	err := s.db.QueryRow(`SELECT radius_m, spacing_m, ray_sample_spacing_m, ray_max_distance_m, curvature_threshold_m, horizon_margin_deg, batch_size, concurrency FROM pipeline_defaults WHERE id = 1`).
		Scan(&d.RadiusM, &d.SpacingM, &d.RaySampleSpacingM, &d.RayMaxDistanceM, &d.CurvatureThreshold, &d.HorizonMarginDeg, &d.BatchSize, &d.Concurrency)
	if err != nil {
		return PipelineDefaults{}, fmt.Errorf("failed to load pipeline defaults: %w", err)
	}
	return d, nil
}

// UpdatePipelineDefaults overwrites the single pipeline_defaults row.
func (s *SQLiteProvider) UpdatePipelineDefaults(d PipelineDefaults) error {
	_, err := s.db.Exec(`
UPDATE pipeline_defaults SET radius_m = ?, spacing_m = ?, ray_sample_spacing_m = ?, ray_max_distance_m = ?,
    curvature_threshold_m = ?, horizon_margin_deg = ?, batch_size = ?, concurrency = ? WHERE id = 1`,
		d.RadiusM, d.SpacingM, d.RaySampleSpacingM, d.RayMaxDistanceM, d.CurvatureThreshold, d.HorizonMarginDeg, d.BatchSize, d.Concurrency)
	if err != nil {
		return fmt.Errorf("failed to update pipeline defaults: %w", err)
	}
	return nil
}

// GetElevationConfig reads the single elevation_config row.
func (s *SQLiteProvider) GetElevationConfig() (ElevationProviderConfig, error) {
	var cfg ElevationProviderConfig
	var useTile int
	err := s.db.QueryRow(`SELECT primary_endpoint, fallback_endpoint, tile_url_template, use_tile_strategy FROM elevation_config WHERE id = 1`).
		Scan(&cfg.PrimaryEndpoint, &cfg.FallbackEndpoint, &cfg.TileURLTemplate, &useTile)
	if err != nil {
		return ElevationProviderConfig{}, fmt.Errorf("failed to load elevation config: %w", err)
	}
	cfg.UseTileStrategy = useTile != 0
	return cfg, nil
}

// UpdateElevationConfig overwrites the single elevation_config row.
func (s *SQLiteProvider) UpdateElevationConfig(cfg ElevationProviderConfig) error {
	useTile := 0
	if cfg.UseTileStrategy {
		useTile = 1
	}
	_, err := s.db.Exec(`
UPDATE elevation_config SET primary_endpoint = ?, fallback_endpoint = ?, tile_url_template = ?, use_tile_strategy = ? WHERE id = 1`,
		cfg.PrimaryEndpoint, cfg.FallbackEndpoint, cfg.TileURLTemplate, useTile)
	if err != nil {
		return fmt.Errorf("failed to update elevation config: %w", err)
	}
	return nil
}

// RecordRun inserts or replaces a run history row.
func (s *SQLiteProvider) RecordRun(run RunRecord) error {
	succeeded := 0
	if run.Succeeded {
		succeeded = 1
	}
	_, err := s.db.Exec(`
INSERT OR REPLACE INTO run_history (id, center_lat, center_lng, radius_m, mode, requested_at, completed_at, succeeded, error_kind, result_count)
VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		run.ID, run.CenterLat, run.CenterLng, run.RadiusM, run.Mode, run.RequestedAt, run.CompletedAt, succeeded, run.ErrorKind, run.ResultCount)
	if err != nil {
		return fmt.Errorf("failed to record run: %w", err)
	}
	return nil
}

// ListRuns returns up to limit most-recent runs, newest first.
func (s *SQLiteProvider) ListRuns(limit int) ([]RunRecord, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := s.db.Query(`SELECT id, center_lat, center_lng, radius_m, mode, requested_at, completed_at, succeeded, error_kind, result_count FROM run_history ORDER BY requested_at DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list runs: %w", err)
	}
	defer rows.Close()

	var out []RunRecord
	for rows.Next() {
		var r RunRecord
		var succeeded int
		var completedAt sql.NullTime
		if err := rows.Scan(&r.ID, &r.CenterLat, &r.CenterLng, &r.RadiusM, &r.Mode, &r.RequestedAt, &completedAt, &succeeded, &r.ErrorKind, &r.ResultCount); err != nil {
			return nil, fmt.Errorf("failed to scan run: %w", err)
		}
		r.Succeeded = succeeded != 0
		if completedAt.Valid {
			r.CompletedAt = completedAt.Time
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

func (s *SQLiteProvider) IsReadOnly() bool { return false }

func (s *SQLiteProvider) Close() error { return s.db.Close() }
