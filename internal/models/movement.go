package models

import "time"

// MovementRecord represents one cleaned tracking fix for an individual animal
type MovementRecord struct {
	IndividualID string    `json:"individual_id"`
	Species      string    `json:"species"`
	Timestamp    time.Time `json:"timestamp"` // UTC
	Lat          float64   `json:"lat"`
	Lon          float64   `json:"lon"`

	// SpeedMPS is the reported or implied ground speed. NaN when unknown.
	SpeedMPS float64 `json:"speed_mps"`
}

// ClimateObservation represents one grid cell / hour row of climate reanalysis
type ClimateObservation struct {
	GridLat     float64   `json:"grid_lat"`
	GridLon     float64   `json:"grid_lon"`
	Timestamp   time.Time `json:"timestamp"` // UTC, hourly
	TempC       float64   `json:"temp_c"`
	HumidityPct float64   `json:"humidity_pct"` // NaN when not reported
	PrecipMM    float64   `json:"precip_mm"`    // NaN when not reported
}

// AlignedRecord is a movement fix joined to its nearest climate observation
// in space (haversine) and time (nearest within tolerance)
type AlignedRecord struct {
	IndividualID string    `json:"individual_id"`
	Species      string    `json:"species"`
	Timestamp    time.Time `json:"timestamp"`
	Lat          float64   `json:"lat"`
	Lon          float64   `json:"lon"`

	MatchedGridLat float64       `json:"matched_grid_lat"`
	MatchedGridLon float64       `json:"matched_grid_lon"`
	GridDistanceKM float64       `json:"grid_distance_km"`
	TempC          float64       `json:"temp_c"`
	HumidityPct    float64       `json:"humidity_pct"`
	PrecipMM       float64       `json:"precip_mm"`
	TimeOffset     time.Duration `json:"time_offset"` // |movement ts - climate ts|
}
