package validate

import (
	"fmt"
	"math/rand"

	"github.com/movewild/refugia-backend-go/internal/model"
	"github.com/movewild/refugia-backend-go/internal/models"
)

// CrossValidate runs stratified k-fold cross-validation of the forest
// configuration over the prepared feature matrix and reports mean metrics
// across folds. Per-fold metrics that come out undefined (a fold with a
// single-class test split, say) are excluded from the mean; a metric
// undefined in every fold stays undefined.
func CrossValidate(X [][]float64, y []int, cfg model.Config, folds int, probThreshold float64) (models.ValidationMetrics, error) {
	if folds < 2 {
		return models.ValidationMetrics{}, fmt.Errorf("cross-validation requires at least 2 folds, got %d", folds)
	}
	if len(X) < folds {
		return models.ValidationMetrics{}, fmt.Errorf("cross-validation requires at least %d rows, got %d", folds, len(X))
	}

	assignments := stratifiedFolds(y, folds, cfg.Seed)

	var aucs, aps, f1s, precisions, recalls []models.Stat
	for fold := 0; fold < folds; fold++ {
		var trainX, testX [][]float64
		var trainY, testY []int
		for i := range X {
			if assignments[i] == fold {
				testX = append(testX, X[i])
				testY = append(testY, y[i])
			} else {
				trainX = append(trainX, X[i])
				trainY = append(trainY, y[i])
			}
		}
		if len(testX) == 0 {
			continue
		}

		forest, err := model.Fit(trainX, trainY, cfg)
		if err != nil {
			return models.ValidationMetrics{}, fmt.Errorf("failed to fit fold %d: %w", fold, err)
		}

		probs := forest.PredictProba(testX)
		predicted := make([]int, len(probs))
		for i, p := range probs {
			if p >= probThreshold {
				predicted[i] = 1
			}
		}

		precision, recall, f1 := PrecisionRecallF1(testY, predicted)
		aucs = append(aucs, RocAUC(testY, probs))
		aps = append(aps, AveragePrecision(testY, probs))
		f1s = append(f1s, f1)
		precisions = append(precisions, precision)
		recalls = append(recalls, recall)
	}

	return models.ValidationMetrics{
		ROCAUC:           meanDefined(aucs),
		AveragePrecision: meanDefined(aps),
		F1:               meanDefined(f1s),
		Precision:        meanDefined(precisions),
		Recall:           meanDefined(recalls),
		Folds:            folds,
	}, nil
}

// stratifiedFolds assigns each row a fold index such that every class is
// spread evenly across folds. Per-class index order is shuffled with the
// given seed so the assignment is reproducible.
func stratifiedFolds(y []int, folds int, seed int64) []int {
	rng := rand.New(rand.NewSource(seed))

	byClass := make(map[int][]int)
	for i, label := range y {
		byClass[label] = append(byClass[label], i)
	}

	assignments := make([]int, len(y))
	for _, label := range []int{0, 1} {
		indices := byClass[label]
		rng.Shuffle(len(indices), func(a, b int) {
			indices[a], indices[b] = indices[b], indices[a]
		})
		for pos, i := range indices {
			assignments[i] = pos % folds
		}
	}
	return assignments
}

func meanDefined(values []models.Stat) models.Stat {
	var sum float64
	var n int
	for _, v := range values {
		if v.Defined() {
			sum += float64(v)
			n++
		}
	}
	if n == 0 {
		return models.Undefined()
	}
	return models.Stat(sum / float64(n))
}
