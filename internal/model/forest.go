package model

import (
	"errors"
	"fmt"
	"math"
	"math/rand"

	"golang.org/x/sync/errgroup"

	"github.com/movewild/refugia-backend-go/internal/models"
)

// ErrDegenerateLabels indicates the label column is single-class: fitting
// would silently produce a degenerate model, so it fails instead.
var ErrDegenerateLabels = errors.New("label set is single-class")

// ForestVersion tags persisted model artifacts.
const ForestVersion = "refugia-forest/1"

// Config holds the ensemble hyperparameters.
type Config struct {
	NumTrees int   `json:"num_trees"`
	MaxDepth int   `json:"max_depth"`
	Seed     int64 `json:"seed"`
}

// Forest is a random forest of CART trees over refugia feature vectors.
// Immutable once fitted: validation and scenario projection consume it
// read-only.
type Forest struct {
	Version string      `json:"version"`
	Config  Config      `json:"config"`
	Spec    FeatureSpec `json:"spec"`
	Trees   []*treeNode `json:"trees"`
}

// Train fits a forest on the labeled table. Features follow the fixed spec
// derived from the training samples; class weights are balanced so the
// typically rare refugia class is not drowned out.
func Train(labeled []models.LabeledPoint, thresholds *models.SpeciesThresholds, cfg Config) (*Forest, error) {
	samples, labels := SamplesFromLabeled(labeled)
	spec := NewFeatureSpec(samples, thresholds, nil)
	X := spec.Matrix(samples, thresholds)

	forest, err := Fit(X, labels, cfg)
	if err != nil {
		return nil, err
	}
	forest.Spec = spec
	return forest, nil
}

// Fit fits a forest on a prepared feature matrix. Trees are built in
// parallel; each tree owns a rand source seeded from Seed and its tree index,
// so the ensemble is identical regardless of scheduling.
func Fit(X [][]float64, y []int, cfg Config) (*Forest, error) {
	if len(X) == 0 || len(X) != len(y) {
		return nil, fmt.Errorf("invalid training set: %d rows, %d labels", len(X), len(y))
	}

	pos := 0
	for _, label := range y {
		if label == 1 {
			pos++
		}
	}
	neg := len(y) - pos
	if pos == 0 || neg == 0 {
		return nil, fmt.Errorf("%w: %d positive, %d negative of %d rows", ErrDegenerateLabels, pos, neg, len(y))
	}

	// Balanced class weights: n / (2 * class count)
	n := float64(len(y))
	wPos := n / (2 * float64(pos))
	wNeg := n / (2 * float64(neg))
	weights := make([]float64, len(y))
	for i, label := range y {
		if label == 1 {
			weights[i] = wPos
		} else {
			weights[i] = wNeg
		}
	}

	p := len(X[0])
	mtry := int(math.Sqrt(float64(p)))
	if mtry < 1 {
		mtry = 1
	}

	forest := &Forest{
		Version: ForestVersion,
		Config:  cfg,
		Trees:   make([]*treeNode, cfg.NumTrees),
	}

	var g errgroup.Group
	for t := 0; t < cfg.NumTrees; t++ {
		t := t
		g.Go(func() error {
			rng := rand.New(rand.NewSource(cfg.Seed + int64(t)))

			// Bootstrap sample with replacement
			indices := make([]int, len(X))
			for i := range indices {
				indices[i] = rng.Intn(len(X))
			}

			builder := &treeBuilder{
				X:        X,
				y:        y,
				w:        weights,
				mtry:     mtry,
				maxDepth: cfg.MaxDepth,
				minLeaf:  1,
				rng:      rng,
			}
			forest.Trees[t] = builder.build(indices, 0)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	return forest, nil
}

// PredictProba returns the mean over-trees positive probability per row.
func (f *Forest) PredictProba(X [][]float64) []float64 {
	probs := make([]float64, len(X))
	for i, x := range X {
		var sum float64
		for _, tree := range f.Trees {
			sum += tree.predict(x)
		}
		probs[i] = sum / float64(len(f.Trees))
	}
	return probs
}

// PredictSamples encodes samples through the forest's feature spec and
// predicts their refugia probability.
func (f *Forest) PredictSamples(samples []Sample, thresholds *models.SpeciesThresholds) []float64 {
	return f.PredictProba(f.Spec.Matrix(samples, thresholds))
}
