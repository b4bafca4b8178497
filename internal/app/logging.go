package app

import (
	"io"

	"glyphprep/internal/config"
	"glyphprep/internal/logger"
)

// NewLogger builds the configured backend. Debug mode switches zerolog to the
// console writer and logrus to its text formatter.
func NewLogger(cfg config.LogConfig, out io.Writer) logger.Logger {
	switch cfg.Backend {
	case config.LogBackendLogrus:
		return logger.NewLogrus(out, logger.ParseLogrusLevel(cfg.Level), cfg.Debug)
	default:
		level := logger.ParseZerologLevel(cfg.Level)
		if cfg.Debug {
			return logger.NewConsoleLogger(out, level)
		}
		return logger.NewZerolog(out, level)
	}
}
