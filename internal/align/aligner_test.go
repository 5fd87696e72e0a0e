package align

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/movewild/refugia-backend-go/internal/models"
)

var t0 = time.Date(2023, 7, 1, 12, 0, 0, 0, time.UTC)

func fix(id string, at time.Time, lat, lon float64) models.MovementRecord {
	return models.MovementRecord{IndividualID: id, Species: "lynx", Timestamp: at, Lat: lat, Lon: lon}
}

func obs(at time.Time, lat, lon, temp float64) models.ClimateObservation {
	return models.ClimateObservation{GridLat: lat, GridLon: lon, Timestamp: at, TempC: temp}
}

func TestAlignPicksNearestGridAndHour(t *testing.T) {
	movement := []models.MovementRecord{
		fix("a1", t0.Add(10*time.Minute), 40.01, -3.99),
	}
	climate := []models.ClimateObservation{
		obs(t0, 40.0, -4.0, 31.0),
		obs(t0.Add(time.Hour), 40.0, -4.0, 33.0),
		obs(t0, 41.0, -4.0, 20.0), // farther grid point
	}

	aligner := Aligner{Tolerance: time.Hour}
	aligned := aligner.Align(movement, climate)
	require.Len(t, aligned, 1)

	rec := aligned[0]
	assert.Equal(t, 40.0, rec.MatchedGridLat)
	assert.Equal(t, -4.0, rec.MatchedGridLon)
	assert.Equal(t, 31.0, rec.TempC, "12:10 is closer to 12:00 than 13:00")
	assert.Equal(t, 10*time.Minute, rec.TimeOffset)
	assert.Less(t, rec.GridDistanceKM, 2.0)
}

func TestAlignDropsRecordsOutsideTolerance(t *testing.T) {
	movement := []models.MovementRecord{
		fix("a1", t0, 40.0, -4.0),
		fix("a1", t0.Add(3*time.Hour), 40.0, -4.0),
	}
	climate := []models.ClimateObservation{
		obs(t0, 40.0, -4.0, 30.0),
	}

	aligner := Aligner{Tolerance: time.Hour}
	aligned := aligner.Align(movement, climate)
	require.Len(t, aligned, 1)
	assert.Equal(t, t0, aligned[0].Timestamp)
}

func TestAlignEveryRowWithinTolerance(t *testing.T) {
	var movement []models.MovementRecord
	var climate []models.ClimateObservation
	for h := 0; h < 24; h++ {
		climate = append(climate, obs(t0.Add(time.Duration(h)*time.Hour), 40.0, -4.0, 25.0))
	}
	for m := 0; m < 200; m++ {
		movement = append(movement, fix("a1", t0.Add(time.Duration(m*11)*time.Minute), 40.0, -4.0))
	}

	tolerance := 30 * time.Minute
	aligned := Aligner{Tolerance: tolerance}.Align(movement, climate)
	require.NotEmpty(t, aligned)
	for _, rec := range aligned {
		assert.LessOrEqual(t, rec.TimeOffset, tolerance)
	}
}

func TestAlignEmptyInputsYieldEmptyOutput(t *testing.T) {
	aligner := Aligner{Tolerance: time.Hour}

	assert.Empty(t, aligner.Align(nil, []models.ClimateObservation{obs(t0, 0, 0, 20)}))
	assert.Empty(t, aligner.Align([]models.MovementRecord{fix("a1", t0, 0, 0)}, nil))

	// all observations out of temporal range
	far := []models.ClimateObservation{obs(t0.Add(-48*time.Hour), 0, 0, 20)}
	assert.Empty(t, aligner.Align([]models.MovementRecord{fix("a1", t0, 0, 0)}, far))
}
