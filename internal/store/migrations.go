package store

import (
	"fmt"
	"sort"
)

// migration is one in-code schema migration.
type migration struct {
	Version int
	Name    string
	SQL     string
}

var migrations = []migration{
	{
		Version: 1,
		Name:    "create_runs",
		SQL: `
			CREATE TABLE IF NOT EXISTS runs (
				run_id TEXT PRIMARY KEY,
				started_at TIMESTAMP NOT NULL,
				finished_at TIMESTAMP NOT NULL,
				params_json TEXT NOT NULL,
				movement_path TEXT NOT NULL,
				movement_sha256 TEXT NOT NULL,
				movement_size_bytes INTEGER NOT NULL,
				climate_path TEXT NOT NULL,
				climate_sha256 TEXT NOT NULL,
				climate_size_bytes INTEGER NOT NULL,
				threshold_source TEXT NOT NULL
			)
		`,
	},
	{
		Version: 2,
		Name:    "create_run_thresholds",
		SQL: `
			CREATE TABLE IF NOT EXISTS run_thresholds (
				run_id TEXT NOT NULL REFERENCES runs(run_id) ON DELETE CASCADE,
				species TEXT NOT NULL,
				threshold_c REAL NOT NULL,
				PRIMARY KEY (run_id, species)
			)
		`,
	},
	{
		Version: 3,
		Name:    "create_run_metrics",
		SQL: `
			CREATE TABLE IF NOT EXISTS run_metrics (
				run_id TEXT NOT NULL REFERENCES runs(run_id) ON DELETE CASCADE,
				name TEXT NOT NULL,
				value REAL,
				PRIMARY KEY (run_id, name)
			)
		`,
	},
	{
		Version: 4,
		Name:    "create_run_clusters",
		SQL: `
			CREATE TABLE IF NOT EXISTS run_clusters (
				run_id TEXT NOT NULL REFERENCES runs(run_id) ON DELETE CASCADE,
				cluster_id INTEGER NOT NULL,
				centroid_lat REAL NOT NULL,
				centroid_lon REAL NOT NULL,
				num_points INTEGER NOT NULL,
				num_individuals INTEGER NOT NULL,
				num_events INTEGER NOT NULL,
				first_seen TIMESTAMP NOT NULL,
				last_seen TIMESTAMP NOT NULL,
				dominant_species TEXT NOT NULL,
				is_refugia INTEGER NOT NULL,
				PRIMARY KEY (run_id, cluster_id)
			)
		`,
	},
}

// migrate applies every migration newer than the recorded schema version.
func (s *Store) migrate() error {
	_, err := s.db.Exec(`
		CREATE TABLE IF NOT EXISTS migrations (
			version INTEGER PRIMARY KEY,
			name TEXT NOT NULL,
			applied_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
		)
	`)
	if err != nil {
		return fmt.Errorf("failed to create migrations table: %w", err)
	}

	rows, err := s.db.Query("SELECT version FROM migrations ORDER BY version")
	if err != nil {
		return fmt.Errorf("failed to query migrations: %w", err)
	}
	defer rows.Close()

	applied := make(map[int]bool)
	for rows.Next() {
		var version int
		if err := rows.Scan(&version); err != nil {
			return fmt.Errorf("failed to scan migration version: %w", err)
		}
		applied[version] = true
	}
	if err := rows.Err(); err != nil {
		return fmt.Errorf("failed to read migrations: %w", err)
	}

	pending := make([]migration, 0, len(migrations))
	for _, m := range migrations {
		if !applied[m.Version] {
			pending = append(pending, m)
		}
	}
	sort.Slice(pending, func(i, j int) bool {
		return pending[i].Version < pending[j].Version
	})

	for _, m := range pending {
		if _, err := s.db.Exec(m.SQL); err != nil {
			return fmt.Errorf("failed to apply migration %d (%s): %w", m.Version, m.Name, err)
		}
		if _, err := s.db.Exec("INSERT INTO migrations (version, name) VALUES (?, ?)", m.Version, m.Name); err != nil {
			return fmt.Errorf("failed to record migration %d: %w", m.Version, err)
		}
	}

	return nil
}
