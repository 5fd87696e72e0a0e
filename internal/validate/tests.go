package validate

import (
	"math"
	"sort"

	"github.com/movewild/refugia-backend-go/internal/models"
	"github.com/movewild/refugia-backend-go/internal/stats"
)

// GroupTests compares temperatures between refugia-labeled and non-refugia
// points with Welch's t-test, and across species with a one-way ANOVA.
// Missing temperatures are excluded; tests with too little data in any group
// report undefined statistics rather than failing.
func GroupTests(labeled []models.LabeledPoint) models.StatisticalTests {
	var refugiaTemps, otherTemps []float64
	bySpecies := make(map[string][]float64)
	for _, p := range labeled {
		if math.IsNaN(p.TempC) {
			continue
		}
		if p.Label == 1 {
			refugiaTemps = append(refugiaTemps, p.TempC)
		} else {
			otherTemps = append(otherTemps, p.TempC)
		}
		bySpecies[p.Species] = append(bySpecies[p.Species], p.TempC)
	}

	tStat, tP := stats.WelchTTest(refugiaTemps, otherTemps)

	species := make([]string, 0, len(bySpecies))
	for s := range bySpecies {
		species = append(species, s)
	}
	sort.Strings(species)
	groups := make([][]float64, 0, len(species))
	for _, s := range species {
		groups = append(groups, bySpecies[s])
	}
	fStat, fP := stats.OneWayANOVA(groups)

	return models.StatisticalTests{
		TempTStat: models.Stat(tStat),
		TempTP:    models.Stat(tP),
		AnovaF:    models.Stat(fStat),
		AnovaP:    models.Stat(fP),
	}
}
