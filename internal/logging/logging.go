// Package logging builds the application's zap logger.
package logging

import (
	"fmt"
	"os"
	"path/filepath"

	"go.uber.org/zap"

	"reimburse/internal/config"
)

// New builds a logger writing to the given outputs (file paths, "stderr" or
// "stdout"). No outputs yields a no-op logger.
func New(cfg config.LoggingConfig, outputs ...string) (*zap.Logger, error) {
	if len(outputs) == 0 {
		return zap.NewNop(), nil
	}

	level, err := zap.ParseAtomicLevel(cfg.Level)
	if err != nil {
		return nil, fmt.Errorf("invalid log level %q: %w", cfg.Level, err)
	}

	zc := zap.NewProductionConfig()
	zc.Level = level
	zc.Encoding = cfg.Encoding
	if zc.Encoding == "" {
		zc.Encoding = "json"
	}
	zc.OutputPaths = outputs
	zc.ErrorOutputPaths = outputs
	zc.Sampling = nil

	for _, out := range outputs {
		if out == "stderr" || out == "stdout" {
			continue
		}
		if err := os.MkdirAll(filepath.Dir(out), 0o755); err != nil {
			return nil, err
		}
	}

	return zc.Build()
}

// ForTUI returns a logger that never writes to the terminal: it logs to
// cfg.File when set and discards everything otherwise.
func ForTUI(cfg config.LoggingConfig) (*zap.Logger, error) {
	if cfg.File == "" {
		return zap.NewNop(), nil
	}
	return New(cfg, cfg.File)
}

// ForCLI returns a logger writing to stderr, keeping stdout for answers.
func ForCLI(cfg config.LoggingConfig) (*zap.Logger, error) {
	return New(cfg, "stderr")
}
