// Package core implements the ledger service: scoped views, relationship
// cascades, trash, act history, object cloning, import and persistence.
package core

import (
	"context"
	"qcledger/internal/config"
	memory "qcledger/internal/infra/persistence/memory"
	"qcledger/internal/ordering"
	"qcledger/pkg/domain"
	"sync"
	"time"
)

// Service exposes the ledger operations over a transactional entity store.
// Public operations are serialized by an exclusive section.
type Service struct {
	mu       sync.RWMutex
	store    *memory.Store
	kv       domain.KeyValueStore
	clock    Clock
	logger   Logger
	audit    AuditRecorder
	metrics  MetricsRecorder
	tracer   Tracer
	history  *history
	names    *ordering.Names
	depth    int
	settings domain.Settings
	current  string
}

// Option configures optional Service collaborators.
type Option func(*Service)

// WithClock overrides the clock used for audit timestamps and durations.
func WithClock(clock Clock) Option {
	return func(s *Service) {
		if clock != nil {
			s.clock = clock
		}
	}
}

// WithLogger installs a structured logger.
func WithLogger(logger Logger) Option {
	return func(s *Service) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// WithAuditRecorder installs an audit sink.
func WithAuditRecorder(recorder AuditRecorder) Option {
	return func(s *Service) {
		if recorder != nil {
			s.audit = recorder
		}
	}
}

// WithMetricsRecorder installs a metrics sink.
func WithMetricsRecorder(recorder MetricsRecorder) Option {
	return func(s *Service) {
		if recorder != nil {
			s.metrics = recorder
		}
	}
}

// WithTracer installs a tracer.
func WithTracer(tracer Tracer) Option {
	return func(s *Service) {
		if tracer != nil {
			s.tracer = tracer
		}
	}
}

// WithKeyValueStore mirrors every committed change to kv.
func WithKeyValueStore(kv domain.KeyValueStore) Option {
	return func(s *Service) {
		s.kv = kv
	}
}

// WithHistoryDepth sets the default undo depth. Persisted project settings
// take precedence once loaded.
func WithHistoryDepth(depth int) Option {
	return func(s *Service) {
		if depth > 0 {
			s.depth = depth
		}
	}
}

// NewService constructs a service backed by the supplied store. A nil store
// is replaced by an in-memory store evaluating the default rules.
func NewService(store *memory.Store, opts ...Option) *Service {
	if store == nil {
		store = memory.NewStore(NewDefaultRulesEngine())
	}
	s := &Service{
		store:   store,
		clock:   ClockFunc(func() time.Time { return time.Now().UTC() }),
		logger:  noopLogger{},
		audit:   noopAuditRecorder{},
		metrics: noopMetricsRecorder{},
		tracer:  noopTracer{},
		depth:   config.DefaultHistoryDepth,
		names:   ordering.NewNames(),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.history = newHistory(s.depth)
	return s
}

// NewInMemoryService creates a service and in-memory store with the given
// rules engine. The store stamps trash entries with the service clock.
func NewInMemoryService(engine *domain.RulesEngine, opts ...Option) *Service {
	if engine == nil {
		engine = NewDefaultRulesEngine()
	}
	var svc *Service
	store := memory.NewStore(engine, memory.WithNowFunc(func() time.Time { return svc.clock.Now() }))
	svc = NewService(store, opts...)
	return svc
}

// Store returns the underlying entity store.
func (s *Service) Store() *memory.Store {
	return s.store
}

// run executes fn in one transaction and reports the outcome to the tracer,
// metrics, logger and audit sinks. Committed changes are mirrored to the
// key-value store.
func (s *Service) run(ctx context.Context, op string, fn func(domain.Transaction) error) (domain.Result, []domain.Change, error) {
	ctx, span := s.tracer.Start(ctx, op)
	start := s.clock.Now()
	var changes []domain.Change
	res, err := s.store.RunInTransaction(ctx, func(tx domain.Transaction) error {
		if err := fn(tx); err != nil {
			return err
		}
		changes = tx.Changes()
		return nil
	})
	duration := s.clock.Now().Sub(start)
	span.End(err)
	s.metrics.Observe(ctx, op, err == nil, duration)
	if err != nil {
		s.logger.Error("operation failed", "operation", op, "error", err, "duration", duration)
		s.audit.Record(ctx, AuditEntry{
			Operation: op,
			Status:    AuditStatusError,
			Error:     err.Error(),
			Duration:  duration,
			Timestamp: start,
		})
		return res, nil, err
	}
	for _, v := range res.Violations {
		if v.Severity == domain.SeverityWarn {
			s.logger.Warn("rule warning", "operation", op, "rule", v.Rule, "entity", v.Entity, "id", v.EntityID, "message", v.Message)
		}
	}
	s.logger.Debug("operation committed", "operation", op, "changes", len(changes), "duration", duration)
	for _, change := range changes {
		s.audit.Record(ctx, AuditEntry{
			Operation: op,
			Entity:    change.Entity,
			Action:    change.Action,
			EntityID:  change.ID,
			Status:    AuditStatusSuccess,
			Duration:  duration,
			Timestamp: start,
		})
	}
	s.mirror(ctx, changes)
	return res, changes, nil
}

// runActs wraps run with act history: when the transaction changes the act
// collection or the act trash, the previous state is pushed onto the undo
// stack.
func (s *Service) runActs(ctx context.Context, op string, fn func(domain.Transaction) error) (domain.Result, []domain.Change, error) {
	before := s.actState(ctx)
	res, changes, err := s.run(ctx, op, fn)
	if err != nil {
		return res, changes, err
	}
	if touches(changes, domain.EntityAct) || touches(changes, domain.EntityDeletedAct) {
		s.history.record(before)
	}
	return res, changes, nil
}

func (s *Service) listActs(ctx context.Context) []domain.Act {
	return s.actState(ctx).acts
}

func (s *Service) view(ctx context.Context) domain.TransactionView {
	var out domain.TransactionView
	_ = s.store.View(ctx, func(view domain.TransactionView) error {
		out = view
		return nil
	})
	return out
}

func touches(changes []domain.Change, entity domain.EntityType) bool {
	for _, c := range changes {
		if c.Entity == entity {
			return true
		}
	}
	return false
}
