package ingest

import (
	"math"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/movewild/refugia-backend-go/internal/models"
)

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestReadMovementCSV(t *testing.T) {
	path := writeFile(t, "movement.csv", `individual_id,species,timestamp,lat,lon,speed_mps
a1,lynx,2023-07-01T12:00:00Z,40.1,-4.2,1.5
a2,ibex,2023-07-01 13:00:00,41.0,-3.9,
`)

	records, quality, err := ReadMovementCSV(path)
	require.NoError(t, err)
	require.Len(t, records, 2)

	assert.Equal(t, "a1", records[0].IndividualID)
	assert.Equal(t, "lynx", records[0].Species)
	assert.Equal(t, time.Date(2023, 7, 1, 12, 0, 0, 0, time.UTC), records[0].Timestamp)
	assert.Equal(t, 1.5, records[0].SpeedMPS)
	assert.True(t, math.IsNaN(records[1].SpeedMPS), "missing speed parses as NaN")

	assert.Equal(t, 2, quality.Rows)
	assert.Equal(t, 2, quality.Parsed)
	assert.Equal(t, 2, quality.Individuals)
	assert.Equal(t, 2, quality.Species)
	assert.Equal(t, 0.0, quality.MissingRate)
}

func TestReadMovementCSVHeaderAliases(t *testing.T) {
	path := writeFile(t, "movement.csv", `Individual_ID,Species,Timestamp,Latitude,Longitude
a1,lynx,2023-07-01T12:00:00Z,40.1,-4.2
`)

	records, _, err := ReadMovementCSV(path)
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, 40.1, records[0].Lat)
}

func TestReadMovementCSVMissingColumnIsSchemaError(t *testing.T) {
	path := writeFile(t, "movement.csv", `individual_id,timestamp,lat,lon
a1,2023-07-01T12:00:00Z,40.1,-4.2
`)

	_, _, err := ReadMovementCSV(path)
	require.ErrorIs(t, err, ErrInputSchema)
}

func TestReadMovementCSVBadCellIsSchemaError(t *testing.T) {
	path := writeFile(t, "movement.csv", `individual_id,species,timestamp,lat,lon
a1,lynx,2023-07-01T12:00:00Z,not-a-number,-4.2
`)

	_, _, err := ReadMovementCSV(path)
	require.ErrorIs(t, err, ErrInputSchema)
}

func TestReadMovementCSVDropsIncompleteRows(t *testing.T) {
	path := writeFile(t, "movement.csv", `individual_id,species,timestamp,lat,lon
a1,lynx,2023-07-01T12:00:00Z,40.1,-4.2
,lynx,2023-07-01T13:00:00Z,40.1,-4.2
a1,lynx,2023-07-01T14:00:00Z,,-4.2
a1,lynx,2023-07-01T15:00:00Z,95.0,-4.2
`)

	records, quality, err := ReadMovementCSV(path)
	require.NoError(t, err)
	assert.Len(t, records, 1)
	assert.Equal(t, 4, quality.Rows)
	assert.InDelta(t, 0.75, quality.MissingRate, 1e-9)
}

func TestReadClimateCSVMissingRates(t *testing.T) {
	path := writeFile(t, "climate.csv", `grid_lat,grid_lon,timestamp,temp_c,humidity_pct
40.0,-4.0,2023-07-01T12:00:00Z,31.5,55
40.0,-4.0,2023-07-01T13:00:00Z,,60
40.0,-4.0,2023-07-01T14:00:00Z,33.0,
`)

	obs, quality, err := ReadClimateCSV(path)
	require.NoError(t, err)
	assert.Len(t, obs, 2)
	assert.InDelta(t, 1.0/3.0, quality.MissingTemp, 1e-9)
	assert.InDelta(t, 1.0/3.0, quality.MissingHumidity, 1e-9)
	assert.Equal(t, 31.5, quality.TempMinC)
	assert.Equal(t, 33.0, quality.TempMaxC)
}

func TestCheckQualityGate(t *testing.T) {
	good := MovementQuality{Rows: 100, Parsed: 98, MissingRate: 0.02}
	bad := MovementQuality{Rows: 100, Parsed: 70, MissingRate: 0.3}
	climate := ClimateQuality{Rows: 100, Parsed: 100}

	assert.NoError(t, CheckQuality(good, climate, 0.1))
	assert.Error(t, CheckQuality(bad, climate, 0.1))
	assert.Error(t, CheckQuality(good, ClimateQuality{MissingTemp: 0.5}, 0.1))
}

func TestCleanMovementDropsImplausibleSpeeds(t *testing.T) {
	t0 := time.Date(2023, 7, 1, 12, 0, 0, 0, time.UTC)
	records := []models.MovementRecord{
		{IndividualID: "a1", Species: "lynx", Timestamp: t0, Lat: 40.0, Lon: -4.0, SpeedMPS: nanSpeed()},
		// ~111 km in one hour is ~31 m/s: kept under a 35 m/s cap
		{IndividualID: "a1", Species: "lynx", Timestamp: t0.Add(time.Hour), Lat: 41.0, Lon: -4.0, SpeedMPS: nanSpeed()},
		// ~111 km in one minute: dropped
		{IndividualID: "a1", Species: "lynx", Timestamp: t0.Add(61 * time.Minute), Lat: 40.0, Lon: -4.0, SpeedMPS: nanSpeed()},
	}

	cleaned := CleanMovement(records, 35.0, 30*time.Second)
	require.Len(t, cleaned, 2)
	assert.Equal(t, t0, cleaned[0].Timestamp)
	assert.Equal(t, t0.Add(time.Hour), cleaned[1].Timestamp)
	assert.InDelta(t, 30.9, cleaned[1].SpeedMPS, 0.5, "implied speed is filled in")
}

func TestCleanMovementEnforcesFixInterval(t *testing.T) {
	t0 := time.Date(2023, 7, 1, 12, 0, 0, 0, time.UTC)
	records := []models.MovementRecord{
		{IndividualID: "a1", Timestamp: t0, Lat: 40, Lon: -4},
		{IndividualID: "a1", Timestamp: t0.Add(5 * time.Second), Lat: 40, Lon: -4},
		{IndividualID: "a1", Timestamp: t0, Lat: 40, Lon: -4}, // duplicate timestamp
		{IndividualID: "a1", Timestamp: t0.Add(time.Minute), Lat: 40, Lon: -4},
	}

	cleaned := CleanMovement(records, 35.0, 30*time.Second)
	require.Len(t, cleaned, 2)
}

func TestReadThresholdsCSV(t *testing.T) {
	path := writeFile(t, "thresholds.csv", `species,heat_threshold_c
lynx,34.5
ibex,36.0
`)

	thresholds, err := ReadThresholdsCSV(path)
	require.NoError(t, err)
	assert.Equal(t, map[string]float64{"lynx": 34.5, "ibex": 36.0}, thresholds)
}

func nanSpeed() float64 { return math.NaN() }
