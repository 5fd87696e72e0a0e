package validate

import (
	"fmt"

	"github.com/movewild/refugia-backend-go/internal/model"
	"github.com/movewild/refugia-backend-go/internal/models"
)

// Params controls the validation suite.
type Params struct {
	Folds                int
	ProbabilityThreshold float64
	BootstrapIterations  int
	BootstrapEvalSize    int
}

// Run executes the full validation suite against the labeled table: stratified
// cross-validation of the classifier configuration, group-comparison tests on
// temperature, yearly centroid consistency, and bootstrap uncertainty.
// Individual statistics may come back undefined; only structural failures
// (such as an unfittable fold) are errors.
func Run(labeled []models.LabeledPoint, thresholds *models.SpeciesThresholds, cfg model.Config, p Params) (models.MetricsSummary, error) {
	samples, y := model.SamplesFromLabeled(labeled)
	spec := model.NewFeatureSpec(samples, thresholds, nil)
	X := spec.Matrix(samples, thresholds)

	validation, err := CrossValidate(X, y, cfg, p.Folds, p.ProbabilityThreshold)
	if err != nil {
		return models.MetricsSummary{}, fmt.Errorf("cross-validation failed: %w", err)
	}

	clustered := make([]models.ClusteredPoint, len(labeled))
	for i, lp := range labeled {
		clustered[i] = lp.ClusteredPoint
	}

	uncertainty, err := BootstrapUncertainty(X, y, cfg, p.BootstrapIterations, p.BootstrapEvalSize)
	if err != nil {
		return models.MetricsSummary{}, fmt.Errorf("bootstrap uncertainty failed: %w", err)
	}

	return models.MetricsSummary{
		Validation:  validation,
		Tests:       GroupTests(labeled),
		Spatial:     CentroidConsistency(clustered),
		Uncertainty: uncertainty,
	}, nil
}
