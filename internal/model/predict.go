package model

import (
	"math"
	"sort"

	"github.com/movewild/refugia-backend-go/internal/models"
)

// ProjectScenario scores a future climate scenario against a trained model.
// For every species, only grid cells at or above that species' heat threshold
// are candidates: cells below it cannot host a heat event, so projecting them
// would inflate the map with never-stressed locations. Candidates scoring at
// least probThreshold are flagged as projected refugia.
func ProjectScenario(climate []models.ClimateObservation, speciesList []string, thresholds *models.SpeciesThresholds, forest *Forest, probThreshold float64) []models.Projection {
	species := append([]string(nil), speciesList...)
	sort.Strings(species)

	var projections []models.Projection
	for _, sp := range species {
		threshold := thresholds.Resolve(sp)

		var samples []Sample
		var rows []models.ClimateObservation
		for _, obs := range climate {
			if math.IsNaN(obs.TempC) || obs.TempC < threshold {
				continue
			}
			samples = append(samples, SampleFromClimate(obs, sp))
			rows = append(rows, obs)
		}
		if len(samples) == 0 {
			continue
		}

		probs := forest.PredictSamples(samples, thresholds)
		for i, obs := range rows {
			projections = append(projections, models.Projection{
				Timestamp:   obs.Timestamp,
				Lat:         obs.GridLat,
				Lon:         obs.GridLon,
				TempC:       obs.TempC,
				HumidityPct: obs.HumidityPct,
				PrecipMM:    obs.PrecipMM,
				Species:     sp,
				Probability: probs[i],
				IsRefugia:   probs[i] >= probThreshold,
			})
		}
	}

	return projections
}
