package ingest

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"time"

	"github.com/movewild/refugia-backend-go/internal/models"
)

// Artifact writers. Every tabular stage output is persisted as a CSV file;
// scalar records (metrics, metadata) as JSON. NaN values serialize as empty
// cells, never as a fabricated number.

func formatFloat(v float64) string {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return ""
	}
	return strconv.FormatFloat(v, 'f', -1, 64)
}

func formatTime(t time.Time) string {
	return t.UTC().Format(time.RFC3339)
}

func writeCSV(path string, header []string, rows [][]string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("failed to create output directory: %w", err)
	}
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", path, err)
	}
	defer f.Close()

	w := csv.NewWriter(f)
	if err := w.Write(header); err != nil {
		return fmt.Errorf("failed to write header: %w", err)
	}
	for _, row := range rows {
		if err := w.Write(row); err != nil {
			return fmt.Errorf("failed to write row: %w", err)
		}
	}
	w.Flush()
	return w.Error()
}

// WriteJSON writes a scalar record (metrics summary, run metadata) as
// indented JSON.
func WriteJSON(path string, v any) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("failed to create output directory: %w", err)
	}
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal %s: %w", path, err)
	}
	return os.WriteFile(path, data, 0o644)
}

// WriteAlignedCSV persists the aligned table.
func WriteAlignedCSV(path string, records []models.AlignedRecord) error {
	header := []string{
		"individual_id", "species", "timestamp", "lat", "lon",
		"matched_grid_lat", "matched_grid_lon", "grid_distance_km",
		"temp_c", "humidity_pct", "precip_mm", "time_offset_s",
	}
	rows := make([][]string, 0, len(records))
	for _, r := range records {
		rows = append(rows, []string{
			r.IndividualID, r.Species, formatTime(r.Timestamp),
			formatFloat(r.Lat), formatFloat(r.Lon),
			formatFloat(r.MatchedGridLat), formatFloat(r.MatchedGridLon),
			formatFloat(r.GridDistanceKM),
			formatFloat(r.TempC), formatFloat(r.HumidityPct), formatFloat(r.PrecipMM),
			formatFloat(r.TimeOffset.Seconds()),
		})
	}
	return writeCSV(path, header, rows)
}

// WriteEventsCSV persists the heat-event summary table.
func WriteEventsCSV(path string, events []models.HeatEvent) error {
	header := []string{
		"heat_event_id", "individual_id", "species", "start_time", "end_time",
		"duration_hours", "num_points", "mean_temp_c", "max_temp_c",
	}
	rows := make([][]string, 0, len(events))
	for _, e := range events {
		rows = append(rows, []string{
			strconv.FormatInt(e.EventID, 10), e.IndividualID, e.Species,
			formatTime(e.StartTime), formatTime(e.EndTime),
			formatFloat(e.Duration.Hours()), strconv.Itoa(e.NumPoints),
			formatFloat(e.MeanTempC), formatFloat(e.MaxTempC),
		})
	}
	return writeCSV(path, header, rows)
}

// WriteClusteredCSV persists heat-event member points with their cluster ids.
func WriteClusteredCSV(path string, points []models.ClusteredPoint) error {
	header := []string{
		"individual_id", "species", "timestamp", "lat", "lon", "temp_c",
		"heat_threshold_c", "heat_event_id", "cluster_id",
	}
	rows := make([][]string, 0, len(points))
	for _, p := range points {
		rows = append(rows, []string{
			p.IndividualID, p.Species, formatTime(p.Timestamp),
			formatFloat(p.Lat), formatFloat(p.Lon), formatFloat(p.TempC),
			formatFloat(p.ThresholdC), strconv.FormatInt(p.EventID, 10),
			strconv.Itoa(p.ClusterID),
		})
	}
	return writeCSV(path, header, rows)
}

// WriteClustersCSV persists the refugia-cluster summary table.
func WriteClustersCSV(path string, clusters []models.RefugiaCluster) error {
	header := []string{
		"cluster_id", "centroid_lat", "centroid_lon", "num_points",
		"num_individuals", "num_events", "first_seen", "last_seen",
		"dominant_species", "is_refugia",
	}
	rows := make([][]string, 0, len(clusters))
	for _, c := range clusters {
		rows = append(rows, []string{
			strconv.Itoa(c.ClusterID),
			formatFloat(c.CentroidLat), formatFloat(c.CentroidLon),
			strconv.Itoa(c.NumPoints), strconv.Itoa(c.NumIndividuals),
			strconv.Itoa(c.NumEvents),
			formatTime(c.FirstSeen), formatTime(c.LastSeen),
			c.DominantSpecies, strconv.FormatBool(c.IsRefugia),
		})
	}
	return writeCSV(path, header, rows)
}

// WriteLabeledCSV persists the supervised training table.
func WriteLabeledCSV(path string, points []models.LabeledPoint) error {
	header := []string{
		"individual_id", "species", "timestamp", "lat", "lon", "temp_c",
		"humidity_pct", "precip_mm", "heat_threshold_c", "heat_event_id",
		"cluster_id", "label", "nearest_cluster_id", "distance_to_centroid_km",
	}
	rows := make([][]string, 0, len(points))
	for _, p := range points {
		rows = append(rows, []string{
			p.IndividualID, p.Species, formatTime(p.Timestamp),
			formatFloat(p.Lat), formatFloat(p.Lon), formatFloat(p.TempC),
			formatFloat(p.HumidityPct), formatFloat(p.PrecipMM),
			formatFloat(p.ThresholdC), strconv.FormatInt(p.EventID, 10),
			strconv.Itoa(p.ClusterID), strconv.Itoa(p.Label),
			strconv.Itoa(p.NearestClusterID), formatFloat(p.DistanceKM),
		})
	}
	return writeCSV(path, header, rows)
}

// WriteProjectionsCSV persists one future-scenario prediction table.
func WriteProjectionsCSV(path string, projections []models.Projection) error {
	header := []string{
		"timestamp", "lat", "lon", "temp_c", "humidity_pct", "precip_mm",
		"species", "refugia_probability", "is_refugia_pred",
	}
	rows := make([][]string, 0, len(projections))
	for _, p := range projections {
		rows = append(rows, []string{
			formatTime(p.Timestamp), formatFloat(p.Lat), formatFloat(p.Lon),
			formatFloat(p.TempC), formatFloat(p.HumidityPct), formatFloat(p.PrecipMM),
			p.Species, formatFloat(p.Probability), strconv.FormatBool(p.IsRefugia),
		})
	}
	return writeCSV(path, header, rows)
}

// WriteThresholdsCSV persists the resolved species thresholds with the same
// schema as the optional input table.
func WriteThresholdsCSV(path string, thresholds map[string]float64) error {
	header := []string{"species", "heat_threshold_c"}
	species := make([]string, 0, len(thresholds))
	for s := range thresholds {
		species = append(species, s)
	}
	// Deterministic artifact ordering
	sort.Strings(species)
	rows := make([][]string, 0, len(species))
	for _, s := range species {
		rows = append(rows, []string{s, formatFloat(thresholds[s])})
	}
	return writeCSV(path, header, rows)
}
