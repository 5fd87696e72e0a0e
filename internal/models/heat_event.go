package models

import "time"

// HeatPoint is an aligned record annotated with its resolved species threshold
// and, when the point belongs to a detected heat event, the event id.
// EventID is 0 for points outside any event.
type HeatPoint struct {
	AlignedRecord

	ThresholdC float64 `json:"heat_threshold_c"`
	Hot        bool    `json:"heat_exposure"`
	EventID    int64   `json:"heat_event_id"`
}

// HeatEvent is a maximal run of consecutive threshold-exceeding fixes for one
// individual. A single hot fix is a valid event with zero duration.
type HeatEvent struct {
	EventID      int64         `json:"heat_event_id"`
	IndividualID string        `json:"individual_id"`
	Species      string        `json:"species"`
	StartTime    time.Time     `json:"start_time"`
	EndTime      time.Time     `json:"end_time"`
	Duration     time.Duration `json:"duration"`
	NumPoints    int           `json:"num_points"`
	MeanTempC    float64       `json:"mean_temp_c"`
	MaxTempC     float64       `json:"max_temp_c"`
}

// SpeciesThresholds resolves a species to its heat threshold. Every species
// present in the aligned data resolves to a value: either an explicit entry or
// the quantile-derived default. Never leaves a species undefined.
type SpeciesThresholds struct {
	Values   map[string]float64 `json:"values"`
	DefaultC float64            `json:"default_c"`
	Quantile float64            `json:"quantile"`

	// Derived is true when Values was computed from observed temperatures
	// rather than supplied as an explicit table.
	Derived bool `json:"derived"`
}

// Resolve returns the heat threshold for a species.
func (t *SpeciesThresholds) Resolve(species string) float64 {
	if v, ok := t.Values[species]; ok {
		return v
	}
	return t.DefaultC
}
