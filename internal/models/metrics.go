package models

import (
	"bytes"
	"math"
	"strconv"
)

// Stat is a metric value that may be mathematically undefined. Undefined
// values are carried as NaN and marshal to JSON null; they are never coerced
// to zero or any other finite number.
type Stat float64

// Defined reports whether the value is a real number.
func (s Stat) Defined() bool {
	return !math.IsNaN(float64(s)) && !math.IsInf(float64(s), 0)
}

// Undefined returns the explicit undefined marker.
func Undefined() Stat {
	return Stat(math.NaN())
}

func (s Stat) MarshalJSON() ([]byte, error) {
	if !s.Defined() {
		return []byte("null"), nil
	}
	return []byte(strconv.FormatFloat(float64(s), 'g', -1, 64)), nil
}

func (s *Stat) UnmarshalJSON(data []byte) error {
	if bytes.Equal(bytes.TrimSpace(data), []byte("null")) {
		*s = Undefined()
		return nil
	}
	v, err := strconv.ParseFloat(string(bytes.TrimSpace(data)), 64)
	if err != nil {
		return err
	}
	*s = Stat(v)
	return nil
}

// ValidationMetrics holds mean cross-validated classification metrics.
type ValidationMetrics struct {
	ROCAUC           Stat `json:"roc_auc"`
	AveragePrecision Stat `json:"average_precision"`
	F1               Stat `json:"f1"`
	Precision        Stat `json:"precision"`
	Recall           Stat `json:"recall"`
	Folds            int  `json:"folds"`
}

// StatisticalTests holds the group-comparison test results for refugia vs
// non-refugia temperatures and the across-species ANOVA.
type StatisticalTests struct {
	TempTStat Stat `json:"temp_t_stat"`
	TempTP    Stat `json:"temp_t_p"`
	AnovaF    Stat `json:"anova_f_stat"`
	AnovaP    Stat `json:"anova_f_p"`
}

// SpatialConsistency reports cluster centroid displacement between
// consecutive yearly periods.
type SpatialConsistency struct {
	MeanShiftKM   Stat `json:"mean_centroid_shift_km"`
	MedianShiftKM Stat `json:"median_centroid_shift_km"`
	NumShifts     int  `json:"num_shifts"`
}

// UncertaintySummary reports bootstrap predictive-uncertainty estimates.
type UncertaintySummary struct {
	Iterations        int  `json:"iterations"`
	EvalPoints        int  `json:"eval_points"`
	MeanPredictionStd Stat `json:"mean_prediction_std"`
}

// MetricsSummary is the scalar summary record emitted by the validator.
type MetricsSummary struct {
	Validation  ValidationMetrics  `json:"validation_metrics"`
	Tests       StatisticalTests   `json:"statistical_tests"`
	Spatial     SpatialConsistency `json:"spatial_consistency"`
	Uncertainty UncertaintySummary `json:"uncertainty_summary"`
}

// Scalars flattens the summary into key -> value pairs for persistence.
// Undefined values stay NaN; stores map them to NULL.
func (m MetricsSummary) Scalars() map[string]Stat {
	return map[string]Stat{
		"roc_auc":                  m.Validation.ROCAUC,
		"average_precision":        m.Validation.AveragePrecision,
		"f1":                       m.Validation.F1,
		"precision":                m.Validation.Precision,
		"recall":                   m.Validation.Recall,
		"temp_t_stat":              m.Tests.TempTStat,
		"temp_t_p":                 m.Tests.TempTP,
		"anova_f_stat":             m.Tests.AnovaF,
		"anova_f_p":                m.Tests.AnovaP,
		"mean_centroid_shift_km":   m.Spatial.MeanShiftKM,
		"median_centroid_shift_km": m.Spatial.MedianShiftKM,
		"mean_prediction_std":      m.Uncertainty.MeanPredictionStd,
	}
}
