package experiments

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/movewild/refugia-backend-go/internal/cluster"
	"github.com/movewild/refugia-backend-go/internal/heat"
	"github.com/movewild/refugia-backend-go/internal/models"
)

func alignedAt(id string, at time.Time, lat, lon, temp float64) models.AlignedRecord {
	return models.AlignedRecord{
		IndividualID: id,
		Species:      "lynx",
		Timestamp:    at,
		Lat:          lat,
		Lon:          lon,
		TempC:        temp,
	}
}

func testRule() cluster.Rule {
	return cluster.Rule{MinIndividuals: 2, MinEvents: 2, RequireBoth: true}
}

func TestThresholdSensitivityHotCountsDecreaseWithThreshold(t *testing.T) {
	base := time.Date(2023, 7, 1, 0, 0, 0, 0, time.UTC)
	var aligned []models.AlignedRecord
	for i := 0; i < 40; i++ {
		// temperatures spread 30..39
		aligned = append(aligned, alignedAt("a1", base.Add(time.Duration(i)*time.Hour),
			40.0, -4.0, 30.0+float64(i%10)))
	}

	thresholds := &models.SpeciesThresholds{Values: map[string]float64{"lynx": 35}, DefaultC: 35}
	results := ThresholdSensitivity(aligned, thresholds, []float64{-2, 0, 2}, SensitivityParams{
		EpsKM:     2.0,
		MinPoints: 5,
		Rule:      testRule(),
	})
	require.Len(t, results, 3)

	assert.Equal(t, -2.0, results[0].DeltaC)
	assert.Equal(t, 2.0, results[2].DeltaC)
	assert.Greater(t, results[0].NumHotFixes, results[1].NumHotFixes, "lower threshold flags more fixes")
	assert.Greater(t, results[1].NumHotFixes, results[2].NumHotFixes)
}

func TestThresholdSensitivityZeroDeltaMatchesBaseline(t *testing.T) {
	base := time.Date(2023, 7, 1, 0, 0, 0, 0, time.UTC)
	var aligned []models.AlignedRecord
	for i := 0; i < 20; i++ {
		aligned = append(aligned, alignedAt("a1", base.Add(time.Duration(i)*time.Hour),
			40.0, -4.0, 33.0+float64(i%6)))
	}

	thresholds := &models.SpeciesThresholds{Values: map[string]float64{"lynx": 35}, DefaultC: 35}
	detector := heat.Detector{Thresholds: thresholds}
	_, baselineEvents := detector.Detect(aligned)

	results := ThresholdSensitivity(aligned, thresholds, []float64{0}, SensitivityParams{
		EpsKM:     2.0,
		MinPoints: 5,
		Rule:      testRule(),
	})
	require.Len(t, results, 1)
	assert.Equal(t, len(baselineEvents), results[0].NumEvents)
}

func projection(species string, lat, lon float64, refugia bool) models.Projection {
	return models.Projection{
		Species:     species,
		Lat:         lat,
		Lon:         lon,
		Probability: 0.9,
		IsRefugia:   refugia,
	}
}

func TestCompareScenariosShift(t *testing.T) {
	baseline := []models.Projection{
		projection("lynx", 40.0, -4.0, true),
		projection("lynx", 40.2, -4.0, true),
		projection("lynx", 39.0, -4.0, false),
	}
	scenario := []models.Projection{
		projection("lynx", 41.0, -4.0, true),
		projection("lynx", 41.2, -4.0, true),
	}

	shifts := CompareScenarios(baseline, scenario)
	require.Len(t, shifts, 1)

	s := shifts[0]
	assert.Equal(t, "lynx", s.Species)
	assert.Equal(t, 2, s.BaselineRefugia, "non-refugia rows do not count")
	assert.Equal(t, 2, s.ScenarioRefugia)
	require.True(t, s.ShiftKM.Defined())
	// centroids move one degree of latitude, roughly 111 km
	assert.InDelta(t, 111, float64(s.ShiftKM), 2)
}

func TestCompareScenariosMissingSideUndefined(t *testing.T) {
	baseline := []models.Projection{projection("lynx", 40.0, -4.0, true)}
	scenario := []models.Projection{projection("ibex", 41.0, -4.0, true)}

	shifts := CompareScenarios(baseline, scenario)
	require.Len(t, shifts, 2)
	for _, s := range shifts {
		assert.False(t, s.ShiftKM.Defined())
	}
}

func TestHeatwaveResponsePerYear(t *testing.T) {
	y2022 := time.Date(2022, 7, 1, 0, 0, 0, 0, time.UTC)
	y2023 := time.Date(2023, 7, 1, 0, 0, 0, 0, time.UTC)

	var points []models.HeatPoint
	var events []models.HeatEvent
	for year, start := range map[int64]time.Time{1: y2022, 2: y2023} {
		for i := 0; i < 6; i++ {
			points = append(points, models.HeatPoint{
				AlignedRecord: models.AlignedRecord{
					IndividualID: "a1",
					Species:      "lynx",
					Timestamp:    start.Add(time.Duration(i) * time.Hour),
					Lat:          40.0 + float64(i)*0.001,
					Lon:          -4.0,
					TempC:        37,
				},
				EventID: year,
				Hot:     true,
			})
		}
		events = append(events, models.HeatEvent{
			EventID:   year,
			StartTime: start,
			MeanTempC: 37,
		})
	}

	summaries := HeatwaveResponse(points, events, 2.0, 5, testRule())
	require.Len(t, summaries, 2)
	assert.Equal(t, 2022, summaries[0].Year)
	assert.Equal(t, 2023, summaries[1].Year)
	for _, s := range summaries {
		assert.Equal(t, 1, s.NumEvents)
		assert.Equal(t, 6, s.NumHotFixes)
		assert.Equal(t, 1, s.NumIndividuals)
		assert.Equal(t, 1, s.NumClusters)
		assert.InDelta(t, 37, s.MeanEventTempC, 1e-9)
	}
}
