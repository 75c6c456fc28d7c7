// Package logging builds the zap logger used by the CLI and adapts it to the
// core.Logger interface.
package logging

import (
	"fmt"
	"qcledger/internal/core"
	"strings"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// New builds a production zap logger at level. verbose forces debug.
// An empty level means info.
func New(level string, verbose bool) (*zap.Logger, error) {
	config := zap.NewProductionConfig()
	lvl := zapcore.InfoLevel
	if strings.TrimSpace(level) != "" {
		parsed, err := zapcore.ParseLevel(level)
		if err != nil {
			return nil, fmt.Errorf("invalid log level %q: %w", level, err)
		}
		lvl = parsed
	}
	if verbose {
		lvl = zapcore.DebugLevel
	}
	config.Level = zap.NewAtomicLevelAt(lvl)
	logger, err := config.Build()
	if err != nil {
		return nil, fmt.Errorf("failed to initialize logger: %w", err)
	}
	return logger, nil
}

// Adapter exposes a zap logger through core.Logger. Key-value pairs are
// passed to the sugared logger unchanged.
type Adapter struct {
	sugar *zap.SugaredLogger
}

var _ core.Logger = (*Adapter)(nil)

// Core wraps l for the service. A nil logger yields a no-op adapter.
func Core(l *zap.Logger) *Adapter {
	if l == nil {
		l = zap.NewNop()
	}
	return &Adapter{sugar: l.Sugar()}
}

func (a *Adapter) Debug(msg string, args ...any) { a.sugar.Debugw(msg, args...) }

func (a *Adapter) Info(msg string, args ...any) { a.sugar.Infow(msg, args...) }

func (a *Adapter) Warn(msg string, args ...any) { a.sugar.Warnw(msg, args...) }

func (a *Adapter) Error(msg string, args ...any) { a.sugar.Errorw(msg, args...) }

// Sync flushes buffered entries.
func (a *Adapter) Sync() error { return a.sugar.Sync() }
