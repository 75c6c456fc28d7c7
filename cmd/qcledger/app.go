package main

import (
	"context"
	"errors"
	"fmt"
	"qcledger/internal/blob"
	"qcledger/internal/config"
	"qcledger/internal/core"
	"qcledger/internal/kv"
	"qcledger/internal/logging"
	"qcledger/pkg/domain"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"
)

// app holds the collaborators shared by every subcommand. A preset svc skips
// construction from configuration.
type app struct {
	configPath string
	verbose    bool

	cfg     *config.Config
	logger  *zap.Logger
	svc     *core.Service
	kv      domain.KeyValueStore
	blobs   blob.Store
	metrics *core.ExpvarMetricsRecorder
	// registry is set instead of metrics when the prometheus exporter is
	// configured.
	registry *prometheus.Registry
}

func (a *app) open(ctx context.Context) error {
	if a.svc != nil {
		return nil
	}
	cfg, err := config.Load(a.configPath)
	if err != nil {
		return err
	}
	a.cfg = cfg

	a.logger, err = logging.New(cfg.LogLevel, a.verbose)
	if err != nil {
		return err
	}
	a.kv, err = kv.Open(ctx, cfg.Storage)
	if err != nil {
		return fmt.Errorf("open storage: %w", err)
	}
	a.blobs, err = blob.Open(ctx, cfg.Blob)
	if err != nil {
		return fmt.Errorf("open blob store: %w", err)
	}
	recorder, err := a.openMetrics(cfg.Metrics)
	if err != nil {
		return err
	}
	a.svc = core.NewInMemoryService(nil,
		core.WithKeyValueStore(a.kv),
		core.WithLogger(logging.Core(a.logger)),
		core.WithHistoryDepth(cfg.HistoryDepth),
		core.WithMetricsRecorder(recorder),
	)
	if err := a.svc.Load(ctx); err != nil {
		return fmt.Errorf("load state: %w", err)
	}
	a.logger.Debug("ledger opened",
		zap.String("storage", cfg.Storage.Driver),
		zap.String("blob", cfg.Blob.Driver),
		zap.String("metrics", cfg.Metrics),
	)
	return nil
}

// openMetrics builds the recorder for the configured exporter.
func (a *app) openMetrics(exporter string) (core.MetricsRecorder, error) {
	switch exporter {
	case config.MetricsPrometheus:
		a.registry = prometheus.NewRegistry()
		rec, err := core.NewPrometheusMetricsRecorder(a.registry)
		if err != nil {
			return nil, err
		}
		return rec, nil
	case config.MetricsExpvar, "":
		a.metrics = core.NewExpvarMetricsRecorder("")
		return a.metrics, nil
	default:
		return nil, fmt.Errorf("unknown metrics exporter %q", exporter)
	}
}

// metricsSnapshot returns whatever the active exporter can report, or nil.
func (a *app) metricsSnapshot() (any, error) {
	switch {
	case a.metrics != nil:
		return a.metrics.Snapshot(), nil
	case a.registry != nil:
		families, err := a.registry.Gather()
		if err != nil {
			return nil, fmt.Errorf("gather metrics: %w", err)
		}
		totals := make(map[string]map[string]float64)
		for _, mf := range families {
			if mf.GetName() != "qcledger_operations_total" {
				continue
			}
			for _, m := range mf.GetMetric() {
				var op, status string
				for _, l := range m.GetLabel() {
					switch l.GetName() {
					case "operation":
						op = l.GetValue()
					case "status":
						status = l.GetValue()
					}
				}
				if totals[op] == nil {
					totals[op] = make(map[string]float64, 2)
				}
				totals[op][status] = m.GetCounter().GetValue()
			}
		}
		return map[string]any{"results_total": totals}, nil
	}
	return nil, nil
}

// close flushes the mirror and releases the backends. Calling it again is a
// no-op.
func (a *app) close(ctx context.Context) error {
	var errs []error
	if a.kv != nil {
		if a.svc != nil {
			errs = append(errs, a.svc.Flush(ctx))
		}
		errs = append(errs, a.kv.Close())
		a.kv = nil
	}
	if a.logger != nil {
		_ = a.logger.Sync()
	}
	return errors.Join(errs...)
}

// blobStore returns the configured blob store, defaulting to memory for a
// preset service.
func (a *app) blobStore() blob.Store {
	if a.blobs == nil {
		a.blobs = blob.NewMemory()
	}
	return a.blobs
}
