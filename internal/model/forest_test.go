package model

import (
	"math"
	"math/rand"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/movewild/refugia-backend-go/internal/models"
)

func testConfig() Config {
	return Config{NumTrees: 25, MaxDepth: 6, Seed: 42}
}

func nan() float64 { return math.NaN() }

// separableSet builds a binary problem split cleanly on feature 0.
func separableSet(n int, seed int64) ([][]float64, []int) {
	rng := rand.New(rand.NewSource(seed))
	X := make([][]float64, n)
	y := make([]int, n)
	for i := 0; i < n; i++ {
		if i%2 == 0 {
			X[i] = []float64{rng.Float64(), rng.NormFloat64()}
			y[i] = 0
		} else {
			X[i] = []float64{10 + rng.Float64(), rng.NormFloat64()}
			y[i] = 1
		}
	}
	return X, y
}

func TestFitRejectsSingleClass(t *testing.T) {
	X := [][]float64{{1, 2}, {3, 4}, {5, 6}}
	y := []int{1, 1, 1}

	_, err := Fit(X, y, testConfig())
	require.ErrorIs(t, err, ErrDegenerateLabels)

	for i := range y {
		y[i] = 0
	}
	_, err = Fit(X, y, testConfig())
	require.ErrorIs(t, err, ErrDegenerateLabels)
}

func TestFitSeparableData(t *testing.T) {
	X, y := separableSet(200, 7)
	forest, err := Fit(X, y, testConfig())
	require.NoError(t, err)
	require.Len(t, forest.Trees, 25)

	probs := forest.PredictProba(X)
	for i, p := range probs {
		if y[i] == 1 {
			assert.Greater(t, p, 0.5, "row %d", i)
		} else {
			assert.Less(t, p, 0.5, "row %d", i)
		}
	}
}

func TestFitDeterministic(t *testing.T) {
	X, y := separableSet(120, 3)

	first, err := Fit(X, y, testConfig())
	require.NoError(t, err)
	second, err := Fit(X, y, testConfig())
	require.NoError(t, err)

	assert.Equal(t, first.Trees, second.Trees, "same seed yields the same ensemble")
	assert.Equal(t, first.PredictProba(X), second.PredictProba(X))
}

func TestPredictProbaRange(t *testing.T) {
	X, y := separableSet(80, 11)
	forest, err := Fit(X, y, testConfig())
	require.NoError(t, err)

	for _, p := range forest.PredictProba(X) {
		assert.GreaterOrEqual(t, p, 0.0)
		assert.LessOrEqual(t, p, 1.0)
	}
}

func TestSaveLoadRoundTrip(t *testing.T) {
	X, y := separableSet(60, 5)
	forest, err := Fit(X, y, testConfig())
	require.NoError(t, err)

	path := filepath.Join(t.TempDir(), "model.json")
	require.NoError(t, forest.Save(path))

	loaded, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, forest.PredictProba(X), loaded.PredictProba(X))
}

func TestLoadRejectsUnknownVersion(t *testing.T) {
	X, y := separableSet(60, 5)
	forest, err := Fit(X, y, testConfig())
	require.NoError(t, err)
	forest.Version = "refugia-forest/99"

	path := filepath.Join(t.TempDir(), "model.json")
	require.NoError(t, forest.Save(path))

	_, err = Load(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unsupported model version")
}

func TestTrainFromLabeledPoints(t *testing.T) {
	thresholds := &models.SpeciesThresholds{
		Values:   map[string]float64{"lynx": 35},
		DefaultC: 35,
	}

	base := time.Date(2023, 7, 1, 12, 0, 0, 0, time.UTC)
	var labeled []models.LabeledPoint
	for i := 0; i < 60; i++ {
		label := 0
		lat := 40.0
		if i%2 == 0 {
			label = 1
			lat = 41.0
		}
		labeled = append(labeled, models.LabeledPoint{
			ClusteredPoint: models.ClusteredPoint{
				HeatPoint: models.HeatPoint{
					AlignedRecord: models.AlignedRecord{
						IndividualID: "a1",
						Species:      "lynx",
						Timestamp:    base.Add(time.Duration(i) * time.Hour),
						Lat:          lat,
						Lon:          -4.0,
						TempC:        36.0,
					},
				},
			},
			Label: label,
		})
	}

	forest, err := Train(labeled, thresholds, testConfig())
	require.NoError(t, err)
	assert.Equal(t, ForestVersion, forest.Version)
	assert.NotEmpty(t, forest.Spec.Columns)
	assert.Equal(t, []string{"lynx"}, forest.Spec.SpeciesLevels)

	samples, _ := SamplesFromLabeled(labeled)
	probs := forest.PredictSamples(samples, thresholds)
	require.Len(t, probs, len(labeled))
}

func TestFeatureSpecImputesWithMedians(t *testing.T) {
	thresholds := &models.SpeciesThresholds{DefaultC: 35}
	base := time.Date(2023, 7, 1, 12, 0, 0, 0, time.UTC)

	samples := []Sample{
		{Lat: 40, Lon: -4, TempC: 30, HumidityPct: 50, PrecipMM: 0, Timestamp: base, Species: "lynx"},
		{Lat: 40, Lon: -4, TempC: 34, HumidityPct: 70, PrecipMM: 0, Timestamp: base, Species: "lynx"},
	}
	spec := NewFeatureSpec(samples, thresholds, nil)

	missing := Sample{Lat: 40, Lon: -4, TempC: 32, HumidityPct: nan(), PrecipMM: 0, Timestamp: base, Species: "lynx"}
	vec := spec.Vector(missing, thresholds)

	// humidity_pct is column 3; the fit-time median of {50, 70} is 60
	assert.InDelta(t, 60.0, vec[3], 1e-9)
}

func TestFeatureSpecUnknownSpeciesEncodesAllZero(t *testing.T) {
	thresholds := &models.SpeciesThresholds{DefaultC: 35}
	base := time.Date(2023, 7, 1, 12, 0, 0, 0, time.UTC)
	samples := []Sample{
		{Lat: 40, Lon: -4, TempC: 30, Timestamp: base, Species: "lynx"},
	}
	spec := NewFeatureSpec(samples, thresholds, nil)

	vec := spec.Vector(Sample{Lat: 40, Lon: -4, TempC: 30, Timestamp: base, Species: "wolf"}, thresholds)
	assert.Equal(t, 0.0, vec[len(vec)-1], "unseen species one-hot stays zero")
}
