package main

import (
	"flag"
	"fmt"
	"os"
	"strings"

	"github.com/joho/godotenv"

	"github.com/movewild/refugia-backend-go/internal/config"
	"github.com/movewild/refugia-backend-go/internal/logger"
	"github.com/movewild/refugia-backend-go/internal/pipeline"
)

// scenarioFlag collects repeated -scenario name=path arguments.
type scenarioFlag map[string]string

func (s scenarioFlag) String() string {
	parts := make([]string, 0, len(s))
	for name, path := range s {
		parts = append(parts, name+"="+path)
	}
	return strings.Join(parts, ",")
}

func (s scenarioFlag) Set(value string) error {
	name, path, ok := strings.Cut(value, "=")
	if !ok {
		return fmt.Errorf("scenario must be name=path, got %q", value)
	}
	s[name] = path
	return nil
}

func main() {
	// Load .env file if present
	godotenv.Load()

	scenarios := make(scenarioFlag)
	movementPath := flag.String("movement", "", "movement CSV path (required)")
	climatePath := flag.String("climate", "", "climate CSV path (required)")
	thresholdsPath := flag.String("thresholds", "", "optional species threshold CSV")
	configPath := flag.String("config", "", "optional YAML parameter file")
	outputDir := flag.String("out", "", "output directory (overrides config)")
	dbPath := flag.String("db", "", "run registry database path (overrides config)")
	logMode := flag.String("log", "prod", "log mode: prod or dev")
	flag.Var(scenarios, "scenario", "future climate scenario as name=path (repeatable)")
	flag.Parse()

	if *movementPath == "" || *climatePath == "" {
		fmt.Fprintln(os.Stderr, "both -movement and -climate are required")
		flag.Usage()
		os.Exit(2)
	}

	log, err := logger.New(*logMode)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer log.Sync()

	cfg := config.Load()
	if *configPath != "" {
		if cfg, err = config.LoadFile(*configPath); err != nil {
			log.Fatalf("failed to load config: %v", err)
		}
	}
	if *outputDir != "" {
		cfg.OutputDir = *outputDir
	}
	if *dbPath != "" {
		cfg.DBPath = *dbPath
	}
	if err := cfg.Validate(); err != nil {
		log.Fatalf("invalid configuration: %v", err)
	}

	runner := pipeline.NewRunner(cfg, log)
	result, err := runner.Run(pipeline.Inputs{
		MovementPath:   *movementPath,
		ClimatePath:    *climatePath,
		ThresholdsPath: *thresholdsPath,
		Scenarios:      scenarios,
	})
	if err != nil {
		log.Fatalf("pipeline failed: %v", err)
	}

	log.Infof("run %s: %d events, %d clusters, %d labeled points",
		result.Metadata.RunID, len(result.Events), len(result.Clusters), len(result.Labeled))
}
