package store

import (
	"database/sql"
	"fmt"
	"sort"
	"time"

	"github.com/movewild/refugia-backend-go/internal/models"
)

// SaveRun persists one pipeline run atomically: the metadata row, the
// resolved per-species thresholds, the cluster summary, and the scalar
// metrics. Undefined metric values persist as NULL.
func (s *Store) SaveRun(meta models.RunMetadata, clusters []models.RefugiaCluster, metrics models.MetricsSummary) error {
	return s.Transaction(func(tx *sql.Tx) error {
		_, err := tx.Exec(`
			INSERT INTO runs (
				run_id, started_at, finished_at, params_json,
				movement_path, movement_sha256, movement_size_bytes,
				climate_path, climate_sha256, climate_size_bytes,
				threshold_source
			) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			meta.RunID,
			meta.StartedAt.UTC().Format(time.RFC3339Nano),
			meta.FinishedAt.UTC().Format(time.RFC3339Nano),
			meta.ParamsJSON,
			meta.Movement.Path, meta.Movement.SHA256, meta.Movement.SizeBytes,
			meta.Climate.Path, meta.Climate.SHA256, meta.Climate.SizeBytes,
			meta.ThresholdSource,
		)
		if err != nil {
			return fmt.Errorf("failed to insert run: %w", err)
		}

		species := make([]string, 0, len(meta.ThresholdsUsed))
		for sp := range meta.ThresholdsUsed {
			species = append(species, sp)
		}
		sort.Strings(species)
		for _, sp := range species {
			_, err := tx.Exec(
				"INSERT INTO run_thresholds (run_id, species, threshold_c) VALUES (?, ?, ?)",
				meta.RunID, sp, meta.ThresholdsUsed[sp],
			)
			if err != nil {
				return fmt.Errorf("failed to insert threshold for %q: %w", sp, err)
			}
		}

		for _, c := range clusters {
			_, err := tx.Exec(`
				INSERT INTO run_clusters (
					run_id, cluster_id, centroid_lat, centroid_lon,
					num_points, num_individuals, num_events,
					first_seen, last_seen, dominant_species, is_refugia
				) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
				meta.RunID, c.ClusterID, c.CentroidLat, c.CentroidLon,
				c.NumPoints, c.NumIndividuals, c.NumEvents,
				c.FirstSeen.UTC().Format(time.RFC3339Nano),
				c.LastSeen.UTC().Format(time.RFC3339Nano),
				c.DominantSpecies, c.IsRefugia,
			)
			if err != nil {
				return fmt.Errorf("failed to insert cluster %d: %w", c.ClusterID, err)
			}
		}

		scalars := metrics.Scalars()
		names := make([]string, 0, len(scalars))
		for name := range scalars {
			names = append(names, name)
		}
		sort.Strings(names)
		for _, name := range names {
			var value interface{}
			if v := scalars[name]; v.Defined() {
				value = float64(v)
			}
			_, err := tx.Exec(
				"INSERT INTO run_metrics (run_id, name, value) VALUES (?, ?, ?)",
				meta.RunID, name, value,
			)
			if err != nil {
				return fmt.Errorf("failed to insert metric %q: %w", name, err)
			}
		}

		return nil
	})
}

// RunSummary is one row of the run listing.
type RunSummary struct {
	RunID           string
	StartedAt       time.Time
	FinishedAt      time.Time
	ThresholdSource string
	NumClusters     int
	NumRefugia      int
}

// ListRuns returns run summaries, most recent first.
func (s *Store) ListRuns(limit int) ([]RunSummary, error) {
	rows, err := s.db.Query(`
		SELECT r.run_id, r.started_at, r.finished_at, r.threshold_source,
			COUNT(c.cluster_id),
			COALESCE(SUM(c.is_refugia), 0)
		FROM runs r
		LEFT JOIN run_clusters c ON c.run_id = r.run_id
		GROUP BY r.run_id
		ORDER BY r.started_at DESC
		LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query runs: %w", err)
	}
	defer rows.Close()

	var runs []RunSummary
	for rows.Next() {
		var r RunSummary
		var started, finished string
		if err := rows.Scan(&r.RunID, &started, &finished, &r.ThresholdSource, &r.NumClusters, &r.NumRefugia); err != nil {
			return nil, fmt.Errorf("failed to scan run: %w", err)
		}
		if r.StartedAt, err = time.Parse(time.RFC3339Nano, started); err != nil {
			return nil, fmt.Errorf("failed to parse started_at: %w", err)
		}
		if r.FinishedAt, err = time.Parse(time.RFC3339Nano, finished); err != nil {
			return nil, fmt.Errorf("failed to parse finished_at: %w", err)
		}
		runs = append(runs, r)
	}
	return runs, rows.Err()
}

// GetRunMetrics returns the scalar metrics recorded for a run. NULL values
// come back as undefined.
func (s *Store) GetRunMetrics(runID string) (map[string]models.Stat, error) {
	rows, err := s.db.Query("SELECT name, value FROM run_metrics WHERE run_id = ?", runID)
	if err != nil {
		return nil, fmt.Errorf("failed to query metrics: %w", err)
	}
	defer rows.Close()

	metrics := make(map[string]models.Stat)
	for rows.Next() {
		var name string
		var value sql.NullFloat64
		if err := rows.Scan(&name, &value); err != nil {
			return nil, fmt.Errorf("failed to scan metric: %w", err)
		}
		if value.Valid {
			metrics[name] = models.Stat(value.Float64)
		} else {
			metrics[name] = models.Undefined()
		}
	}
	return metrics, rows.Err()
}
