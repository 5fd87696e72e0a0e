package models

import "time"

// InputDigest records the provenance of one input file.
type InputDigest struct {
	Path      string `json:"path"`
	SHA256    string `json:"sha256"`
	SizeBytes int64  `json:"size_bytes"`
}

// RunMetadata is the reproducibility record written once per pipeline run.
type RunMetadata struct {
	RunID      string    `json:"run_id"`
	StartedAt  time.Time `json:"started_at"`
	FinishedAt time.Time `json:"finished_at"`

	// ParamsJSON is the full parameter set serialized as JSON.
	ParamsJSON string `json:"params_json"`

	Movement      InputDigest            `json:"movement"`
	Climate       InputDigest            `json:"climate"`
	FutureClimate map[string]InputDigest `json:"future_climate,omitempty"`

	// ThresholdsUsed records the per-species heat thresholds the run
	// resolved, whether supplied or quantile-derived.
	ThresholdsUsed  map[string]float64 `json:"thresholds_used"`
	ThresholdSource string             `json:"threshold_source"` // "table" or "quantile"
}

// Projection is one row of a future-scenario prediction table.
type Projection struct {
	Timestamp   time.Time `json:"timestamp"`
	Lat         float64   `json:"lat"`
	Lon         float64   `json:"lon"`
	TempC       float64   `json:"temp_c"`
	HumidityPct float64   `json:"humidity_pct"`
	PrecipMM    float64   `json:"precip_mm"`
	Species     string    `json:"species"`
	Probability float64   `json:"refugia_probability"`
	IsRefugia   bool      `json:"is_refugia_pred"`
}
