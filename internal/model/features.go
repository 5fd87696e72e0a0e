package model

import (
	"math"
	"sort"
	"time"

	"github.com/movewild/refugia-backend-go/internal/models"
	"github.com/movewild/refugia-backend-go/internal/stats"
)

// Sample is one feature-extraction input row, shared between training points
// and future-scenario climate rows.
type Sample struct {
	Lat         float64
	Lon         float64
	TempC       float64
	HumidityPct float64
	PrecipMM    float64
	Timestamp   time.Time
	Species     string
}

var baseColumns = []string{
	"lat", "lon", "temp_c", "humidity_pct", "precip_mm",
	"hour", "day_of_year", "heat_threshold_c",
}

// FeatureSpec pins the feature layout of a trained model: column order, the
// fixed species level set for one-hot encoding, and the fit-time medians used
// to impute missing numerics at prediction time.
type FeatureSpec struct {
	Columns       []string  `json:"columns"`
	SpeciesLevels []string  `json:"species_levels"`
	Medians       []float64 `json:"medians"`
}

// NewFeatureSpec derives the spec from the training samples. Species levels
// default to the distinct species observed, sorted for determinism.
func NewFeatureSpec(samples []Sample, thresholds *models.SpeciesThresholds, levels []string) FeatureSpec {
	if levels == nil {
		seen := make(map[string]struct{})
		for _, s := range samples {
			seen[s.Species] = struct{}{}
		}
		for sp := range seen {
			levels = append(levels, sp)
		}
		sort.Strings(levels)
	}

	columns := append([]string(nil), baseColumns...)
	for _, sp := range levels {
		columns = append(columns, "species_"+sp)
	}

	spec := FeatureSpec{Columns: columns, SpeciesLevels: levels}
	spec.Medians = fitMedians(samples, thresholds, spec)
	return spec
}

// fitMedians computes per-base-column medians over defined values; columns
// with no defined values impute to 0.
func fitMedians(samples []Sample, thresholds *models.SpeciesThresholds, spec FeatureSpec) []float64 {
	defined := make([][]float64, len(baseColumns))
	for _, s := range samples {
		raw := rawVector(s, thresholds)
		for j, v := range raw {
			if !math.IsNaN(v) {
				defined[j] = append(defined[j], v)
			}
		}
	}

	medians := make([]float64, len(baseColumns))
	for j, vals := range defined {
		if len(vals) == 0 {
			medians[j] = 0
			continue
		}
		medians[j] = stats.Median(vals)
	}
	return medians
}

func rawVector(s Sample, thresholds *models.SpeciesThresholds) []float64 {
	return []float64{
		s.Lat,
		s.Lon,
		s.TempC,
		s.HumidityPct,
		s.PrecipMM,
		float64(s.Timestamp.UTC().Hour()),
		float64(s.Timestamp.UTC().YearDay()),
		thresholds.Resolve(s.Species),
	}
}

// Vector encodes one sample into the spec's feature layout, imputing missing
// numerics with the fit-time medians. Species outside the level set encode as
// all-zero one-hots.
func (spec FeatureSpec) Vector(s Sample, thresholds *models.SpeciesThresholds) []float64 {
	raw := rawVector(s, thresholds)
	vec := make([]float64, len(spec.Columns))
	for j, v := range raw {
		if math.IsNaN(v) {
			v = spec.Medians[j]
		}
		vec[j] = v
	}
	for i, level := range spec.SpeciesLevels {
		if s.Species == level {
			vec[len(baseColumns)+i] = 1
		}
	}
	return vec
}

// Matrix encodes a batch of samples.
func (spec FeatureSpec) Matrix(samples []Sample, thresholds *models.SpeciesThresholds) [][]float64 {
	X := make([][]float64, len(samples))
	for i, s := range samples {
		X[i] = spec.Vector(s, thresholds)
	}
	return X
}

// SamplesFromLabeled converts the supervised table into feature samples and
// a label vector.
func SamplesFromLabeled(points []models.LabeledPoint) ([]Sample, []int) {
	samples := make([]Sample, len(points))
	labels := make([]int, len(points))
	for i, p := range points {
		samples[i] = Sample{
			Lat:         p.Lat,
			Lon:         p.Lon,
			TempC:       p.TempC,
			HumidityPct: p.HumidityPct,
			PrecipMM:    p.PrecipMM,
			Timestamp:   p.Timestamp,
			Species:     p.Species,
		}
		labels[i] = p.Label
	}
	return samples, labels
}

// SampleFromClimate builds a feature sample from a scenario climate row for
// the given species.
func SampleFromClimate(obs models.ClimateObservation, species string) Sample {
	return Sample{
		Lat:         obs.GridLat,
		Lon:         obs.GridLon,
		TempC:       obs.TempC,
		HumidityPct: obs.HumidityPct,
		PrecipMM:    obs.PrecipMM,
		Timestamp:   obs.Timestamp,
		Species:     species,
	}
}
