package pipeline

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"time"

	"go.uber.org/zap"

	"github.com/movewild/refugia-backend-go/internal/align"
	"github.com/movewild/refugia-backend-go/internal/cluster"
	"github.com/movewild/refugia-backend-go/internal/config"
	"github.com/movewild/refugia-backend-go/internal/experiments"
	"github.com/movewild/refugia-backend-go/internal/heat"
	"github.com/movewild/refugia-backend-go/internal/ingest"
	"github.com/movewild/refugia-backend-go/internal/logger"
	"github.com/movewild/refugia-backend-go/internal/model"
	"github.com/movewild/refugia-backend-go/internal/models"
	"github.com/movewild/refugia-backend-go/internal/store"
	"github.com/movewild/refugia-backend-go/internal/validate"
)

// Inputs names the files a run consumes. ThresholdsPath is optional; an empty
// value switches threshold resolution to the per-species quantile fallback.
// Scenarios maps scenario name to a future climate CSV.
type Inputs struct {
	MovementPath   string
	ClimatePath    string
	ThresholdsPath string
	Scenarios      map[string]string
}

// Result collects everything a run produced, for callers that want the tables
// in memory rather than just the written artifacts.
type Result struct {
	Metadata    models.RunMetadata
	Aligned     []models.AlignedRecord
	Events      []models.HeatEvent
	Clustered   []models.ClusteredPoint
	Clusters    []models.RefugiaCluster
	Labeled     []models.LabeledPoint
	Metrics     models.MetricsSummary
	Projections map[string][]models.Projection

	Sensitivity []experiments.SensitivityResult
	Heatwave    []experiments.YearSummary
	Shifts      []experiments.ScenarioShift
}

// Runner executes the full refugia pipeline.
type Runner struct {
	cfg *config.Config
	log *zap.SugaredLogger
}

// NewRunner builds a runner. A nil logger disables logging.
func NewRunner(cfg *config.Config, log *zap.SugaredLogger) *Runner {
	if log == nil {
		log = logger.Nop()
	}
	return &Runner{cfg: cfg, log: log}
}

// sensitivityDeltas are the threshold perturbations the sensitivity
// experiment sweeps, in degrees Celsius.
var sensitivityDeltas = []float64{-2, -1, 0, 1, 2}

// Run executes all stages in order: ingest, align, detect, cluster, label,
// train, validate, project, experiments, then artifact and registry output.
func (r *Runner) Run(in Inputs) (*Result, error) {
	meta, err := newRunMetadata(r.cfg, in.MovementPath, in.ClimatePath, in.Scenarios)
	if err != nil {
		return nil, err
	}
	r.log.Infof("run %s started", meta.RunID)

	// Stage 1: ingest and clean
	movement, movementQuality, err := ingest.ReadMovementCSV(in.MovementPath)
	if err != nil {
		return nil, err
	}
	climate, climateQuality, err := ingest.ReadClimateCSV(in.ClimatePath)
	if err != nil {
		return nil, err
	}
	if err := ingest.CheckQuality(movementQuality, climateQuality, r.cfg.MaxMissingRate); err != nil {
		return nil, err
	}

	cleaned := ingest.CleanMovement(movement, r.cfg.MaxSpeedMPS, r.cfg.MinFixInterval)
	r.log.Infof("ingested %d movement fixes (%d after cleaning), %d climate observations",
		len(movement), len(cleaned), len(climate))

	var thresholdTable map[string]float64
	if in.ThresholdsPath != "" {
		if thresholdTable, err = ingest.ReadThresholdsCSV(in.ThresholdsPath); err != nil {
			return nil, err
		}
	}

	// Stage 2: align movement to climate
	aligner := align.Aligner{Tolerance: r.cfg.TimeTolerance}
	aligned := aligner.Align(cleaned, climate)
	if len(aligned) == 0 {
		return nil, fmt.Errorf("%w: tolerance %s", ErrAlignmentEmpty, r.cfg.TimeTolerance)
	}
	r.log.Infof("aligned %d of %d fixes within %s", len(aligned), len(cleaned), r.cfg.TimeTolerance)

	// Stage 3: heat events
	thresholds, err := heat.ResolveThresholds(thresholdTable, aligned, r.cfg.ThresholdQuantile, r.cfg.DefaultThresholdC)
	if err != nil {
		return nil, err
	}
	meta.ThresholdsUsed = thresholds.Values
	meta.ThresholdSource = "table"
	if thresholds.Derived {
		meta.ThresholdSource = "quantile"
	}

	detector := heat.Detector{Thresholds: thresholds, MaxGap: r.cfg.MaxEventGap}
	heatPoints, events := detector.Detect(aligned)
	r.log.Infof("detected %d heat events (%s thresholds)", len(events), meta.ThresholdSource)

	// Stage 4: cluster and apply the repeated-use rule
	rule := cluster.Rule{
		MinIndividuals: r.cfg.MinIndividuals,
		MinEvents:      r.cfg.MinEvents,
		RequireBoth:    r.cfg.RepeatedUseRule == "and",
	}
	clustered := cluster.ClusterHeatPoints(heatPoints, r.cfg.ClusterEpsKM, r.cfg.ClusterMinPoints)
	clusters := cluster.Summarize(clustered, rule)
	refugiaCount := 0
	for _, c := range clusters {
		if c.IsRefugia {
			refugiaCount++
		}
	}
	r.log.Infof("clustered %d event points into %d clusters, %d refugia",
		len(clustered), len(clusters), refugiaCount)

	// Stage 5: label and train
	labeled := cluster.AssignLabels(clustered, clusters, r.cfg.LabelRadiusKM)
	modelCfg := model.Config{NumTrees: r.cfg.NumTrees, MaxDepth: r.cfg.MaxDepth, Seed: r.cfg.Seed}
	forest, err := model.Train(labeled, thresholds, modelCfg)
	if err != nil {
		return nil, err
	}
	r.log.Infof("trained forest on %d labeled points", len(labeled))

	// Stage 6: validate
	metrics, err := validate.Run(labeled, thresholds, modelCfg, validate.Params{
		Folds:                r.cfg.CVFolds,
		ProbabilityThreshold: r.cfg.ProbabilityThreshold,
		BootstrapIterations:  r.cfg.BootstrapIterations,
		BootstrapEvalSize:    r.cfg.BootstrapEvalSize,
	})
	if err != nil {
		return nil, err
	}

	// Future scenarios
	speciesSet := make(map[string]struct{})
	for _, p := range labeled {
		speciesSet[p.Species] = struct{}{}
	}
	speciesList := make([]string, 0, len(speciesSet))
	for s := range speciesSet {
		speciesList = append(speciesList, s)
	}
	sort.Strings(speciesList)

	projections := make(map[string][]models.Projection)
	scenarioNames := make([]string, 0, len(in.Scenarios))
	for name := range in.Scenarios {
		scenarioNames = append(scenarioNames, name)
	}
	sort.Strings(scenarioNames)
	for _, name := range scenarioNames {
		scenario, _, err := ingest.ReadClimateCSV(in.Scenarios[name])
		if err != nil {
			return nil, fmt.Errorf("failed to read scenario %q: %w", name, err)
		}
		projections[name] = model.ProjectScenario(scenario, speciesList, thresholds, forest, r.cfg.ProbabilityThreshold)
		r.log.Infof("scenario %q: %d projected rows", name, len(projections[name]))
	}

	// Experiments
	sensitivity := experiments.ThresholdSensitivity(aligned, thresholds, sensitivityDeltas, experiments.SensitivityParams{
		MaxGap:    r.cfg.MaxEventGap,
		EpsKM:     r.cfg.ClusterEpsKM,
		MinPoints: r.cfg.ClusterMinPoints,
		Rule:      rule,
	})
	heatwave := experiments.HeatwaveResponse(heatPoints, events, r.cfg.ClusterEpsKM, r.cfg.ClusterMinPoints, rule)

	var shifts []experiments.ScenarioShift
	if len(scenarioNames) >= 2 {
		shifts = experiments.CompareScenarios(projections[scenarioNames[0]], projections[scenarioNames[1]])
	}

	meta.FinishedAt = time.Now().UTC()

	result := &Result{
		Metadata:    meta,
		Aligned:     aligned,
		Events:      events,
		Clustered:   clustered,
		Clusters:    clusters,
		Labeled:     labeled,
		Metrics:     metrics,
		Projections: projections,
		Sensitivity: sensitivity,
		Heatwave:    heatwave,
		Shifts:      shifts,
	}

	if err := r.writeArtifacts(result, forest, scenarioNames); err != nil {
		return nil, err
	}

	if r.cfg.DBPath != "" {
		if err := r.persist(result); err != nil {
			return nil, err
		}
	}

	r.log.Infof("run %s finished in %s", meta.RunID, meta.FinishedAt.Sub(meta.StartedAt))
	return result, nil
}

// writeArtifacts writes every output table under the configured output
// directory.
func (r *Runner) writeArtifacts(result *Result, forest *model.Forest, scenarioNames []string) error {
	dir := r.cfg.OutputDir
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("failed to create output directory: %w", err)
	}

	if err := ingest.WriteAlignedCSV(filepath.Join(dir, "aligned.csv"), result.Aligned); err != nil {
		return err
	}
	if err := ingest.WriteEventsCSV(filepath.Join(dir, "heat_events.csv"), result.Events); err != nil {
		return err
	}
	if err := ingest.WriteClusteredCSV(filepath.Join(dir, "clustered_points.csv"), result.Clustered); err != nil {
		return err
	}
	if err := ingest.WriteClustersCSV(filepath.Join(dir, "refugia_clusters.csv"), result.Clusters); err != nil {
		return err
	}
	if err := ingest.WriteLabeledCSV(filepath.Join(dir, "labeled_points.csv"), result.Labeled); err != nil {
		return err
	}
	if err := ingest.WriteThresholdsCSV(filepath.Join(dir, "thresholds.csv"), result.Metadata.ThresholdsUsed); err != nil {
		return err
	}
	for _, name := range scenarioNames {
		path := filepath.Join(dir, fmt.Sprintf("projections_%s.csv", name))
		if err := ingest.WriteProjectionsCSV(path, result.Projections[name]); err != nil {
			return err
		}
	}

	if err := ingest.WriteJSON(filepath.Join(dir, "metrics.json"), result.Metrics); err != nil {
		return err
	}
	if err := ingest.WriteJSON(filepath.Join(dir, "run_metadata.json"), result.Metadata); err != nil {
		return err
	}
	if err := ingest.WriteJSON(filepath.Join(dir, "sensitivity.json"), result.Sensitivity); err != nil {
		return err
	}
	if err := ingest.WriteJSON(filepath.Join(dir, "heatwave_response.json"), result.Heatwave); err != nil {
		return err
	}
	if len(result.Shifts) > 0 {
		if err := ingest.WriteJSON(filepath.Join(dir, "scenario_shifts.json"), result.Shifts); err != nil {
			return err
		}
	}

	if err := forest.Save(filepath.Join(dir, "model.json")); err != nil {
		return err
	}

	r.log.Infof("artifacts written to %s", dir)
	return nil
}

// persist records the run in the SQLite registry.
func (r *Runner) persist(result *Result) error {
	if err := os.MkdirAll(filepath.Dir(r.cfg.DBPath), 0o755); err != nil {
		return fmt.Errorf("failed to create database directory: %w", err)
	}

	db, err := store.Open(r.cfg.DBPath)
	if err != nil {
		return err
	}
	defer db.Close()

	if err := db.SaveRun(result.Metadata, result.Clusters, result.Metrics); err != nil {
		return err
	}
	r.log.Infof("run %s recorded in %s", result.Metadata.RunID, r.cfg.DBPath)
	return nil
}
