package experiments

import (
	"sort"

	"github.com/movewild/refugia-backend-go/internal/models"
	"github.com/movewild/refugia-backend-go/internal/spatial"
	"github.com/movewild/refugia-backend-go/internal/stats"
)

// ScenarioShift reports how far a species' projected refugia move between two
// climate scenarios.
type ScenarioShift struct {
	Species         string      `json:"species"`
	BaselineLat     models.Stat `json:"baseline_lat"`
	BaselineLon     models.Stat `json:"baseline_lon"`
	ScenarioLat     models.Stat `json:"scenario_lat"`
	ScenarioLon     models.Stat `json:"scenario_lon"`
	ShiftKM         models.Stat `json:"shift_km"`
	BaselineRefugia int         `json:"baseline_refugia"`
	ScenarioRefugia int         `json:"scenario_refugia"`
}

// CompareScenarios computes the per-species centroid displacement of
// projected refugia between a baseline and an alternative scenario. Species
// with no projected refugia on one side get an undefined shift.
func CompareScenarios(baseline, scenario []models.Projection) []ScenarioShift {
	baseCentroids := refugiaCentroids(baseline)
	scenCentroids := refugiaCentroids(scenario)

	seen := make(map[string]struct{})
	for s := range baseCentroids {
		seen[s] = struct{}{}
	}
	for s := range scenCentroids {
		seen[s] = struct{}{}
	}
	species := make([]string, 0, len(seen))
	for s := range seen {
		species = append(species, s)
	}
	sort.Strings(species)

	shifts := make([]ScenarioShift, 0, len(species))
	for _, sp := range species {
		base, baseOK := baseCentroids[sp]
		scen, scenOK := scenCentroids[sp]

		shift := ScenarioShift{
			Species:     sp,
			BaselineLat: models.Undefined(),
			BaselineLon: models.Undefined(),
			ScenarioLat: models.Undefined(),
			ScenarioLon: models.Undefined(),
			ShiftKM:     models.Undefined(),
		}
		if baseOK {
			shift.BaselineLat = models.Stat(base.lat)
			shift.BaselineLon = models.Stat(base.lon)
			shift.BaselineRefugia = base.count
		}
		if scenOK {
			shift.ScenarioLat = models.Stat(scen.lat)
			shift.ScenarioLon = models.Stat(scen.lon)
			shift.ScenarioRefugia = scen.count
		}
		if baseOK && scenOK {
			shift.ShiftKM = models.Stat(spatial.HaversineKm(base.lat, base.lon, scen.lat, scen.lon))
		}
		shifts = append(shifts, shift)
	}
	return shifts
}

type speciesCentroid struct {
	lat, lon float64
	count    int
}

func refugiaCentroids(projections []models.Projection) map[string]speciesCentroid {
	lats := make(map[string][]float64)
	lons := make(map[string][]float64)
	for _, p := range projections {
		if !p.IsRefugia {
			continue
		}
		lats[p.Species] = append(lats[p.Species], p.Lat)
		lons[p.Species] = append(lons[p.Species], p.Lon)
	}

	centroids := make(map[string]speciesCentroid, len(lats))
	for sp, ls := range lats {
		centroids[sp] = speciesCentroid{
			lat:   stats.Mean(ls),
			lon:   stats.Mean(lons[sp]),
			count: len(ls),
		}
	}
	return centroids
}
