package core

import (
	"context"
	"qcledger/pkg/domain"
	"sync"
	"testing"
	"time"
)

func newTestService(t *testing.T, opts ...Option) (*Service, string) {
	t.Helper()
	svc := NewInMemoryService(nil, opts...)
	obj, err := svc.EnsureDefaultObject(context.Background())
	if err != nil {
		t.Fatalf("ensure default object: %v", err)
	}
	return svc, obj.ID
}

func mustPerson(t *testing.T, svc *Service, p domain.Person) domain.Person {
	t.Helper()
	saved, _, err := svc.SavePerson(context.Background(), p)
	if err != nil {
		t.Fatalf("save person: %v", err)
	}
	return saved
}

func mustOrganization(t *testing.T, svc *Service, o domain.Organization) domain.Organization {
	t.Helper()
	saved, _, err := svc.SaveOrganization(context.Background(), o)
	if err != nil {
		t.Fatalf("save organization: %v", err)
	}
	return saved
}

func mustGroup(t *testing.T, svc *Service, g domain.CommissionGroup) domain.CommissionGroup {
	t.Helper()
	saved, _, err := svc.SaveGroup(context.Background(), g)
	if err != nil {
		t.Fatalf("save group: %v", err)
	}
	return saved
}

func mustAct(t *testing.T, svc *Service, a domain.Act) domain.Act {
	t.Helper()
	saved, _, err := svc.SaveAct(context.Background(), a)
	if err != nil {
		t.Fatalf("save act: %v", err)
	}
	return saved
}

func findAct(t *testing.T, svc *Service, id string) domain.Act {
	t.Helper()
	act, ok := svc.view(context.Background()).FindAct(id)
	if !ok {
		t.Fatalf("act %s not found", id)
	}
	return act
}

type auditRecorderStub struct {
	mu      sync.Mutex
	entries []AuditEntry
}

func (a *auditRecorderStub) Record(_ context.Context, entry AuditEntry) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.entries = append(a.entries, entry)
}

type metricsCall struct {
	operation string
	success   bool
}

type metricsRecorderStub struct {
	calls []metricsCall
}

func (m *metricsRecorderStub) Observe(_ context.Context, operation string, success bool, _ time.Duration) {
	m.calls = append(m.calls, metricsCall{operation: operation, success: success})
}

type logEntry struct {
	level string
	msg   string
}

type loggerStub struct {
	entries []logEntry
}

func (l *loggerStub) Debug(msg string, _ ...any) { l.entries = append(l.entries, logEntry{"debug", msg}) }
func (l *loggerStub) Info(msg string, _ ...any)  { l.entries = append(l.entries, logEntry{"info", msg}) }
func (l *loggerStub) Warn(msg string, _ ...any)  { l.entries = append(l.entries, logEntry{"warn", msg}) }
func (l *loggerStub) Error(msg string, _ ...any) { l.entries = append(l.entries, logEntry{"error", msg}) }

func (l *loggerStub) count(level string) int {
	n := 0
	for _, e := range l.entries {
		if e.level == level {
			n++
		}
	}
	return n
}
