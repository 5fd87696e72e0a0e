package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

// Config holds every pipeline parameter. Defaults reproduce the documented
// reference run; a YAML file and environment variables may override them.
type Config struct {
	// Ingest / cleaning
	MaxSpeedMPS    float64       `yaml:"max_speed_mps" json:"max_speed_mps"`
	MinFixInterval time.Duration `yaml:"min_fix_interval" json:"min_fix_interval"`
	MaxMissingRate float64       `yaml:"max_missing_rate" json:"max_missing_rate"`

	// Alignment
	TimeTolerance time.Duration `yaml:"time_tolerance" json:"time_tolerance"`

	// Heat events
	DefaultThresholdC float64       `yaml:"default_threshold_c" json:"default_threshold_c"`
	ThresholdQuantile float64       `yaml:"threshold_quantile" json:"threshold_quantile"`
	MaxEventGap       time.Duration `yaml:"max_event_gap" json:"max_event_gap"` // 0 = gaps never break a run

	// Clustering + labeling
	ClusterEpsKM     float64 `yaml:"cluster_eps_km" json:"cluster_eps_km"`
	ClusterMinPoints int     `yaml:"cluster_min_points" json:"cluster_min_points"`
	MinIndividuals   int     `yaml:"min_individuals" json:"min_individuals"`
	MinEvents        int     `yaml:"min_events" json:"min_events"`
	RepeatedUseRule  string  `yaml:"repeated_use_rule" json:"repeated_use_rule"` // "and" or "or"
	LabelRadiusKM    float64 `yaml:"label_radius_km" json:"label_radius_km"`

	// Model
	NumTrees             int     `yaml:"num_trees" json:"num_trees"`
	MaxDepth             int     `yaml:"max_depth" json:"max_depth"`
	Seed                 int64   `yaml:"seed" json:"seed"`
	ProbabilityThreshold float64 `yaml:"probability_threshold" json:"probability_threshold"`

	// Validation
	CVFolds             int `yaml:"cv_folds" json:"cv_folds"`
	BootstrapIterations int `yaml:"bootstrap_iterations" json:"bootstrap_iterations"`
	BootstrapEvalSize   int `yaml:"bootstrap_eval_size" json:"bootstrap_eval_size"`

	// Outputs
	OutputDir string `yaml:"output_dir" json:"output_dir"`
	DBPath    string `yaml:"db_path" json:"db_path"` // empty disables the run registry
}

// Default returns the reference parameter set.
func Default() *Config {
	return &Config{
		MaxSpeedMPS:          35.0,
		MinFixInterval:       30 * time.Second,
		MaxMissingRate:       0.1,
		TimeTolerance:        60 * time.Minute,
		DefaultThresholdC:    35.0,
		ThresholdQuantile:    0.9,
		MaxEventGap:          0,
		ClusterEpsKM:         2.0,
		ClusterMinPoints:     5,
		MinIndividuals:       2,
		MinEvents:            2,
		RepeatedUseRule:      "and",
		LabelRadiusKM:        3.0,
		NumTrees:             300,
		MaxDepth:             12,
		Seed:                 42,
		ProbabilityThreshold: 0.7,
		CVFolds:              5,
		BootstrapIterations:  30,
		BootstrapEvalSize:    2000,
		OutputDir:            "./outputs",
		DBPath:               "./data/refugia/runs.db",
	}
}

// Load returns the default configuration with environment overrides applied.
func Load() *Config {
	cfg := Default()

	if v := os.Getenv("REFUGIA_OUTPUT_DIR"); v != "" {
		cfg.OutputDir = v
	}
	if v := os.Getenv("REFUGIA_DB_PATH"); v != "" {
		cfg.DBPath = v
	}
	if v := os.Getenv("REFUGIA_SEED"); v != "" {
		if seed, err := strconv.ParseInt(v, 10, 64); err == nil {
			cfg.Seed = seed
		}
	}
	if v := os.Getenv("REFUGIA_TIME_TOLERANCE"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			cfg.TimeTolerance = d
		}
	}

	return cfg
}

// UnmarshalYAML decodes a parameter file, accepting Go duration strings
// ("30m", "1h") for the duration fields. Keys absent from the file keep the
// values already in the receiver.
func (c *Config) UnmarshalYAML(value *yaml.Node) error {
	var raw struct {
		MaxSpeedMPS          *float64 `yaml:"max_speed_mps"`
		MinFixInterval       *string  `yaml:"min_fix_interval"`
		MaxMissingRate       *float64 `yaml:"max_missing_rate"`
		TimeTolerance        *string  `yaml:"time_tolerance"`
		DefaultThresholdC    *float64 `yaml:"default_threshold_c"`
		ThresholdQuantile    *float64 `yaml:"threshold_quantile"`
		MaxEventGap          *string  `yaml:"max_event_gap"`
		ClusterEpsKM         *float64 `yaml:"cluster_eps_km"`
		ClusterMinPoints     *int     `yaml:"cluster_min_points"`
		MinIndividuals       *int     `yaml:"min_individuals"`
		MinEvents            *int     `yaml:"min_events"`
		RepeatedUseRule      *string  `yaml:"repeated_use_rule"`
		LabelRadiusKM        *float64 `yaml:"label_radius_km"`
		NumTrees             *int     `yaml:"num_trees"`
		MaxDepth             *int     `yaml:"max_depth"`
		Seed                 *int64   `yaml:"seed"`
		ProbabilityThreshold *float64 `yaml:"probability_threshold"`
		CVFolds              *int     `yaml:"cv_folds"`
		BootstrapIterations  *int     `yaml:"bootstrap_iterations"`
		BootstrapEvalSize    *int     `yaml:"bootstrap_eval_size"`
		OutputDir            *string  `yaml:"output_dir"`
		DBPath               *string  `yaml:"db_path"`
	}
	if err := value.Decode(&raw); err != nil {
		return err
	}

	setDuration := func(dst *time.Duration, src *string, key string) error {
		if src == nil {
			return nil
		}
		d, err := time.ParseDuration(*src)
		if err != nil {
			return fmt.Errorf("invalid %s: %w", key, err)
		}
		*dst = d
		return nil
	}
	if err := setDuration(&c.MinFixInterval, raw.MinFixInterval, "min_fix_interval"); err != nil {
		return err
	}
	if err := setDuration(&c.TimeTolerance, raw.TimeTolerance, "time_tolerance"); err != nil {
		return err
	}
	if err := setDuration(&c.MaxEventGap, raw.MaxEventGap, "max_event_gap"); err != nil {
		return err
	}

	if raw.MaxSpeedMPS != nil {
		c.MaxSpeedMPS = *raw.MaxSpeedMPS
	}
	if raw.MaxMissingRate != nil {
		c.MaxMissingRate = *raw.MaxMissingRate
	}
	if raw.DefaultThresholdC != nil {
		c.DefaultThresholdC = *raw.DefaultThresholdC
	}
	if raw.ThresholdQuantile != nil {
		c.ThresholdQuantile = *raw.ThresholdQuantile
	}
	if raw.ClusterEpsKM != nil {
		c.ClusterEpsKM = *raw.ClusterEpsKM
	}
	if raw.ClusterMinPoints != nil {
		c.ClusterMinPoints = *raw.ClusterMinPoints
	}
	if raw.MinIndividuals != nil {
		c.MinIndividuals = *raw.MinIndividuals
	}
	if raw.MinEvents != nil {
		c.MinEvents = *raw.MinEvents
	}
	if raw.RepeatedUseRule != nil {
		c.RepeatedUseRule = *raw.RepeatedUseRule
	}
	if raw.LabelRadiusKM != nil {
		c.LabelRadiusKM = *raw.LabelRadiusKM
	}
	if raw.NumTrees != nil {
		c.NumTrees = *raw.NumTrees
	}
	if raw.MaxDepth != nil {
		c.MaxDepth = *raw.MaxDepth
	}
	if raw.Seed != nil {
		c.Seed = *raw.Seed
	}
	if raw.ProbabilityThreshold != nil {
		c.ProbabilityThreshold = *raw.ProbabilityThreshold
	}
	if raw.CVFolds != nil {
		c.CVFolds = *raw.CVFolds
	}
	if raw.BootstrapIterations != nil {
		c.BootstrapIterations = *raw.BootstrapIterations
	}
	if raw.BootstrapEvalSize != nil {
		c.BootstrapEvalSize = *raw.BootstrapEvalSize
	}
	if raw.OutputDir != nil {
		c.OutputDir = *raw.OutputDir
	}
	if raw.DBPath != nil {
		c.DBPath = *raw.DBPath
	}

	return nil
}

// LoadFile loads a YAML parameter file on top of the defaults.
func LoadFile(path string) (*Config, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate rejects parameter combinations the pipeline cannot run with.
func (c *Config) Validate() error {
	if c.TimeTolerance <= 0 {
		return fmt.Errorf("time_tolerance must be positive, got %s", c.TimeTolerance)
	}
	if c.ThresholdQuantile <= 0 || c.ThresholdQuantile >= 1 {
		return fmt.Errorf("threshold_quantile must be in (0, 1), got %g", c.ThresholdQuantile)
	}
	if c.ClusterEpsKM <= 0 {
		return fmt.Errorf("cluster_eps_km must be positive, got %g", c.ClusterEpsKM)
	}
	if c.ClusterMinPoints < 1 {
		return fmt.Errorf("cluster_min_points must be at least 1, got %d", c.ClusterMinPoints)
	}
	if c.RepeatedUseRule != "and" && c.RepeatedUseRule != "or" {
		return fmt.Errorf("repeated_use_rule must be \"and\" or \"or\", got %q", c.RepeatedUseRule)
	}
	if c.LabelRadiusKM <= 0 {
		return fmt.Errorf("label_radius_km must be positive, got %g", c.LabelRadiusKM)
	}
	if c.NumTrees < 1 {
		return fmt.Errorf("num_trees must be at least 1, got %d", c.NumTrees)
	}
	if c.CVFolds < 2 {
		return fmt.Errorf("cv_folds must be at least 2, got %d", c.CVFolds)
	}
	return nil
}
