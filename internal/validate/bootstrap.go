package validate

import (
	"errors"
	"math"
	"math/rand"

	"golang.org/x/sync/errgroup"

	"github.com/movewild/refugia-backend-go/internal/model"
	"github.com/movewild/refugia-backend-go/internal/models"
	"github.com/movewild/refugia-backend-go/internal/stats"
)

// BootstrapUncertainty estimates predictive uncertainty by refitting the
// forest on bootstrap resamples of the training set and scoring a fixed
// evaluation sample each time. The reported value is the mean, over
// evaluation points, of the per-point standard deviation of predicted
// probabilities across iterations.
//
// The evaluation sample is at most evalSize rows drawn without replacement.
// Iterations whose resample collapses to a single class are skipped; with
// fewer than two surviving iterations the estimate is undefined.
func BootstrapUncertainty(X [][]float64, y []int, cfg model.Config, iterations, evalSize int) (models.UncertaintySummary, error) {
	summary := models.UncertaintySummary{
		Iterations:        iterations,
		MeanPredictionStd: models.Undefined(),
	}
	if len(X) == 0 || iterations < 2 {
		return summary, nil
	}

	rng := rand.New(rand.NewSource(cfg.Seed))
	evalIdx := rng.Perm(len(X))
	if evalSize > 0 && evalSize < len(evalIdx) {
		evalIdx = evalIdx[:evalSize]
	}
	evalX := make([][]float64, len(evalIdx))
	for i, idx := range evalIdx {
		evalX[i] = X[idx]
	}
	summary.EvalPoints = len(evalX)

	preds := make([][]float64, iterations)
	var g errgroup.Group
	for it := 0; it < iterations; it++ {
		it := it
		g.Go(func() error {
			itRng := rand.New(rand.NewSource(cfg.Seed + int64(1000+it)))

			resX := make([][]float64, len(X))
			resY := make([]int, len(X))
			for i := range resX {
				j := itRng.Intn(len(X))
				resX[i] = X[j]
				resY[i] = y[j]
			}

			forest, err := model.Fit(resX, resY, cfg)
			if errors.Is(err, model.ErrDegenerateLabels) {
				return nil
			}
			if err != nil {
				return err
			}
			preds[it] = forest.PredictProba(evalX)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return summary, err
	}

	var surviving [][]float64
	for _, p := range preds {
		if p != nil {
			surviving = append(surviving, p)
		}
	}
	if len(surviving) < 2 {
		return summary, nil
	}

	stds := make([]float64, len(evalX))
	for j := range evalX {
		col := make([]float64, len(surviving))
		for i, p := range surviving {
			col[i] = p[j]
		}
		stds[j] = stats.StdDev(col)
	}

	mean := stats.Mean(stds)
	if math.IsNaN(mean) {
		return summary, nil
	}
	summary.MeanPredictionStd = models.Stat(mean)
	return summary, nil
}
