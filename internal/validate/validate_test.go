package validate

import (
	"math/rand"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/movewild/refugia-backend-go/internal/model"
	"github.com/movewild/refugia-backend-go/internal/models"
)

func TestRocAUCPerfectRanking(t *testing.T) {
	labels := []int{0, 0, 1, 1}
	scores := []float64{0.1, 0.2, 0.8, 0.9}
	assert.InDelta(t, 1.0, float64(RocAUC(labels, scores)), 1e-9)
}

func TestRocAUCInvertedRanking(t *testing.T) {
	labels := []int{1, 1, 0, 0}
	scores := []float64{0.1, 0.2, 0.8, 0.9}
	assert.InDelta(t, 0.0, float64(RocAUC(labels, scores)), 1e-9)
}

func TestRocAUCTiedScores(t *testing.T) {
	labels := []int{0, 1, 0, 1}
	scores := []float64{0.5, 0.5, 0.5, 0.5}
	assert.InDelta(t, 0.5, float64(RocAUC(labels, scores)), 1e-9)
}

func TestRocAUCSingleClassUndefined(t *testing.T) {
	assert.False(t, RocAUC([]int{1, 1}, []float64{0.2, 0.9}).Defined())
	assert.False(t, RocAUC([]int{0, 0}, []float64{0.2, 0.9}).Defined())
}

func TestAveragePrecisionPerfectRanking(t *testing.T) {
	labels := []int{0, 0, 1, 1}
	scores := []float64{0.1, 0.2, 0.8, 0.9}
	assert.InDelta(t, 1.0, float64(AveragePrecision(labels, scores)), 1e-9)
}

func TestAveragePrecisionNoPositivesUndefined(t *testing.T) {
	assert.False(t, AveragePrecision([]int{0, 0, 0}, []float64{0.1, 0.5, 0.9}).Defined())
}

func TestPrecisionRecallF1(t *testing.T) {
	labels := []int{1, 1, 0, 0, 1}
	predicted := []int{1, 0, 1, 0, 1}

	precision, recall, f1 := PrecisionRecallF1(labels, predicted)
	require.True(t, precision.Defined())
	require.True(t, recall.Defined())
	require.True(t, f1.Defined())

	assert.InDelta(t, 2.0/3.0, float64(precision), 1e-9)
	assert.InDelta(t, 2.0/3.0, float64(recall), 1e-9)
	assert.InDelta(t, 2.0/3.0, float64(f1), 1e-9)
}

func TestPrecisionUndefinedWithNoPredictedPositives(t *testing.T) {
	precision, recall, f1 := PrecisionRecallF1([]int{1, 0}, []int{0, 0})
	assert.False(t, precision.Defined())
	assert.True(t, recall.Defined())
	assert.Equal(t, 0.0, float64(recall))
	assert.False(t, f1.Defined())
}

func makeSeparable(n int, seed int64) ([][]float64, []int) {
	rng := rand.New(rand.NewSource(seed))
	X := make([][]float64, n)
	y := make([]int, n)
	for i := 0; i < n; i++ {
		if i%2 == 0 {
			X[i] = []float64{rng.Float64(), rng.NormFloat64()}
		} else {
			X[i] = []float64{5 + rng.Float64(), rng.NormFloat64()}
			y[i] = 1
		}
	}
	return X, y
}

func TestCrossValidateSeparableData(t *testing.T) {
	X, y := makeSeparable(100, 9)
	cfg := model.Config{NumTrees: 20, MaxDepth: 5, Seed: 42}

	metrics, err := CrossValidate(X, y, cfg, 5, 0.5)
	require.NoError(t, err)

	assert.Equal(t, 5, metrics.Folds)
	require.True(t, metrics.ROCAUC.Defined())
	assert.Greater(t, float64(metrics.ROCAUC), 0.95)
	assert.Greater(t, float64(metrics.F1), 0.9)
	assert.GreaterOrEqual(t, float64(metrics.Precision), 0.0)
	assert.LessOrEqual(t, float64(metrics.Recall), 1.0)
}

func TestCrossValidateDeterministic(t *testing.T) {
	X, y := makeSeparable(80, 4)
	cfg := model.Config{NumTrees: 10, MaxDepth: 4, Seed: 42}

	first, err := CrossValidate(X, y, cfg, 5, 0.5)
	require.NoError(t, err)
	second, err := CrossValidate(X, y, cfg, 5, 0.5)
	require.NoError(t, err)
	assert.Equal(t, first, second)
}

func TestCrossValidateRejectsBadFolds(t *testing.T) {
	X, y := makeSeparable(20, 1)
	cfg := model.Config{NumTrees: 5, MaxDepth: 3, Seed: 42}

	_, err := CrossValidate(X, y, cfg, 1, 0.5)
	require.Error(t, err)
}

func labeledAt(id, species string, clusterID int, label int, at time.Time, lat, lon, temp float64) models.LabeledPoint {
	return models.LabeledPoint{
		ClusteredPoint: models.ClusteredPoint{
			HeatPoint: models.HeatPoint{
				AlignedRecord: models.AlignedRecord{
					IndividualID: id,
					Species:      species,
					Timestamp:    at,
					Lat:          lat,
					Lon:          lon,
					TempC:        temp,
				},
			},
			ClusterID: clusterID,
		},
		Label: label,
	}
}

func TestGroupTestsSeparatedTemperatures(t *testing.T) {
	base := time.Date(2023, 7, 1, 0, 0, 0, 0, time.UTC)
	var labeled []models.LabeledPoint
	for i := 0; i < 20; i++ {
		labeled = append(labeled,
			labeledAt("a1", "lynx", 0, 1, base, 40, -4, 33.0+float64(i%3)*0.1),
			labeledAt("a2", "ibex", 1, 0, base, 41, -4, 39.0+float64(i%3)*0.1),
		)
	}

	tests := GroupTests(labeled)
	require.True(t, tests.TempTStat.Defined())
	assert.Less(t, float64(tests.TempTStat), 0.0, "refugia temps are cooler")
	assert.Less(t, float64(tests.TempTP), 0.01)
	require.True(t, tests.AnovaF.Defined())
	assert.Less(t, float64(tests.AnovaP), 0.01)
}

func TestGroupTestsUndefinedWithOneGroup(t *testing.T) {
	base := time.Date(2023, 7, 1, 0, 0, 0, 0, time.UTC)
	labeled := []models.LabeledPoint{
		labeledAt("a1", "lynx", 0, 0, base, 40, -4, 35),
		labeledAt("a1", "lynx", 0, 0, base, 40, -4, 36),
	}

	tests := GroupTests(labeled)
	assert.False(t, tests.TempTStat.Defined(), "no refugia group")
	assert.False(t, tests.AnovaF.Defined(), "single species")
}

func TestCentroidConsistencyYearlyShift(t *testing.T) {
	y2022 := time.Date(2022, 7, 1, 0, 0, 0, 0, time.UTC)
	y2023 := time.Date(2023, 7, 1, 0, 0, 0, 0, time.UTC)

	var points []models.ClusteredPoint
	for i := 0; i < 5; i++ {
		points = append(points,
			labeledAt("a1", "lynx", 1, 1, y2022, 40.0, -4.0, 36).ClusteredPoint,
			labeledAt("a1", "lynx", 1, 1, y2023, 40.1, -4.0, 36).ClusteredPoint,
		)
	}

	consistency := CentroidConsistency(points)
	assert.Equal(t, 1, consistency.NumShifts)
	require.True(t, consistency.MeanShiftKM.Defined())
	// 0.1 degrees of latitude is roughly 11 km
	assert.InDelta(t, 11.1, float64(consistency.MeanShiftKM), 0.3)
}

func TestCentroidConsistencyUndefinedWithOneYear(t *testing.T) {
	base := time.Date(2023, 7, 1, 0, 0, 0, 0, time.UTC)
	points := []models.ClusteredPoint{
		labeledAt("a1", "lynx", 1, 1, base, 40, -4, 36).ClusteredPoint,
	}

	consistency := CentroidConsistency(points)
	assert.Equal(t, 0, consistency.NumShifts)
	assert.False(t, consistency.MeanShiftKM.Defined())
	assert.False(t, consistency.MedianShiftKM.Defined())
}

func TestBootstrapUncertainty(t *testing.T) {
	X, y := makeSeparable(120, 6)
	cfg := model.Config{NumTrees: 10, MaxDepth: 4, Seed: 42}

	summary, err := BootstrapUncertainty(X, y, cfg, 10, 50)
	require.NoError(t, err)

	assert.Equal(t, 10, summary.Iterations)
	assert.Equal(t, 50, summary.EvalPoints)
	require.True(t, summary.MeanPredictionStd.Defined())
	assert.GreaterOrEqual(t, float64(summary.MeanPredictionStd), 0.0)
	assert.LessOrEqual(t, float64(summary.MeanPredictionStd), 0.5)
}

func TestBootstrapUncertaintyDeterministic(t *testing.T) {
	X, y := makeSeparable(60, 2)
	cfg := model.Config{NumTrees: 8, MaxDepth: 4, Seed: 42}

	first, err := BootstrapUncertainty(X, y, cfg, 8, 30)
	require.NoError(t, err)
	second, err := BootstrapUncertainty(X, y, cfg, 8, 30)
	require.NoError(t, err)
	assert.Equal(t, first, second)
}
