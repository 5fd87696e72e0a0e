package experiments

import (
	"time"

	"github.com/movewild/refugia-backend-go/internal/cluster"
	"github.com/movewild/refugia-backend-go/internal/heat"
	"github.com/movewild/refugia-backend-go/internal/models"
)

// SensitivityResult summarizes one threshold perturbation: how the event and
// refugia counts respond when every species threshold is shifted by DeltaC.
type SensitivityResult struct {
	DeltaC      float64 `json:"delta_c"`
	NumEvents   int     `json:"num_events"`
	NumHotFixes int     `json:"num_hot_fixes"`
	NumClusters int     `json:"num_clusters"`
	NumRefugia  int     `json:"num_refugia"`
}

// SensitivityParams carries the clustering settings the perturbed runs share
// with the main pipeline.
type SensitivityParams struct {
	MaxGap    time.Duration
	EpsKM     float64
	MinPoints int
	Rule      cluster.Rule
}

// ThresholdSensitivity re-runs detection and clustering with every species
// threshold shifted by each delta, reporting how the refugia map responds.
// Deltas run in the order given; delta 0 reproduces the baseline.
func ThresholdSensitivity(aligned []models.AlignedRecord, base *models.SpeciesThresholds, deltas []float64, p SensitivityParams) []SensitivityResult {
	results := make([]SensitivityResult, 0, len(deltas))
	for _, delta := range deltas {
		shifted := &models.SpeciesThresholds{
			Values:   make(map[string]float64, len(base.Values)),
			DefaultC: base.DefaultC + delta,
			Quantile: base.Quantile,
			Derived:  base.Derived,
		}
		for species, v := range base.Values {
			shifted.Values[species] = v + delta
		}

		detector := heat.Detector{Thresholds: shifted, MaxGap: p.MaxGap}
		points, events := detector.Detect(aligned)

		hot := 0
		for _, pt := range points {
			if pt.Hot {
				hot++
			}
		}

		clustered := cluster.ClusterHeatPoints(points, p.EpsKM, p.MinPoints)
		clusters := cluster.Summarize(clustered, p.Rule)
		refugia := 0
		for _, c := range clusters {
			if c.IsRefugia {
				refugia++
			}
		}

		results = append(results, SensitivityResult{
			DeltaC:      delta,
			NumEvents:   len(events),
			NumHotFixes: hot,
			NumClusters: len(clusters),
			NumRefugia:  refugia,
		})
	}
	return results
}
