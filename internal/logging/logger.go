// Package logging provides zap logger helpers.
package logging

import (
	"fmt"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Options selects the encoder and the fields stamped on every entry.
type Options struct {
	Development bool
	// RunID is attached as run_id when non-empty.
	RunID string
}

// New builds a zap.Logger for the crawler process.
func New(opts Options) (*zap.Logger, error) {
	var cfg zap.Config
	if opts.Development {
		cfg = zap.NewDevelopmentConfig()
		cfg.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
	} else {
		cfg = zap.NewProductionConfig()
		cfg.DisableStacktrace = false
	}
	cfg.EncoderConfig.TimeKey = "ts"

	fields := []zap.Field{zap.String("service", "stationcrawler")}
	if opts.RunID != "" {
		fields = append(fields, zap.String("run_id", opts.RunID))
	}

	logger, err := cfg.Build(zap.Fields(fields...))
	if err != nil {
		return nil, fmt.Errorf("build logger (development=%t): %w", opts.Development, err)
	}
	return logger, nil
}
