package logger

import (
	"strings"

	"go.uber.org/zap"
)

// New builds a SugaredLogger for the given mode ("prod" or anything else for
// development output). Pipeline components tag messages with their stage name,
// e.g. "[Aligner] matched 1423 records".
func New(mode string) (*zap.SugaredLogger, error) {
	var cfg zap.Config
	switch strings.ToLower(mode) {
	case "prod", "production":
		cfg = zap.NewProductionConfig()
	default:
		cfg = zap.NewDevelopmentConfig()
	}
	zapLogger, err := cfg.Build()
	if err != nil {
		return nil, err
	}
	return zapLogger.Sugar(), nil
}

// Nop returns a logger that discards everything. Used by tests and by callers
// that embed the pipeline as a library without logging.
func Nop() *zap.SugaredLogger {
	return zap.NewNop().Sugar()
}
