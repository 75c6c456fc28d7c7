package core

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"qcledger/pkg/domain"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestAuditEntryPerCommittedChange(t *testing.T) {
	fixed := time.Date(2024, 10, 1, 8, 30, 0, 0, time.UTC)
	recorder := &auditRecorderStub{}
	svc, _ := newTestService(t,
		WithAuditRecorder(recorder),
		WithClock(ClockFunc(func() time.Time { return fixed })),
	)
	recorder.entries = nil
	person := mustPerson(t, svc, domain.Person{Name: "Аудитов"})

	if len(recorder.entries) != 1 {
		t.Fatalf("expected 1 audit entry, got %d", len(recorder.entries))
	}
	entry := recorder.entries[0]
	if entry.Operation != "save_person" || entry.Entity != domain.EntityPerson || entry.Action != domain.ActionCreate {
		t.Fatalf("unexpected entry %+v", entry)
	}
	if entry.EntityID != person.ID || entry.Status != AuditStatusSuccess {
		t.Fatalf("unexpected entry %+v", entry)
	}
	if !entry.Timestamp.Equal(fixed) || entry.Duration != 0 {
		t.Fatalf("expected fixed clock metadata, got %+v", entry)
	}
}

func TestAuditAndMetricsOnFailure(t *testing.T) {
	recorder := &auditRecorderStub{}
	metrics := &metricsRecorderStub{}
	logger := &loggerStub{}
	svc, _ := newTestService(t, WithAuditRecorder(recorder), WithMetricsRecorder(metrics), WithLogger(logger))
	recorder.entries = nil
	metrics.calls = nil

	_, err := svc.MoveAct(context.Background(), "missing", 0)
	if err == nil {
		t.Fatalf("expected failure")
	}
	if len(recorder.entries) != 1 || recorder.entries[0].Status != AuditStatusError || recorder.entries[0].Error == "" {
		t.Fatalf("expected one error audit entry, got %+v", recorder.entries)
	}
	if len(metrics.calls) != 1 || metrics.calls[0] != (metricsCall{operation: "move_act", success: false}) {
		t.Fatalf("unexpected metrics %+v", metrics.calls)
	}
	if logger.count("error") != 1 {
		t.Fatalf("expected failure logged at error")
	}
}

func TestJSONTracerRecordsSpans(t *testing.T) {
	var buf bytes.Buffer
	tracer := NewJSONTracer(&buf)
	svc, _ := newTestService(t, WithTracer(tracer))
	mustPerson(t, svc, domain.Person{Name: "Трассов"})
	if _, err := svc.DeletePerson(context.Background(), "missing"); err != nil {
		t.Fatalf("delete: %v", err)
	}
	entries := tracer.Entries()
	if len(entries) != 3 {
		t.Fatalf("expected create_object, save_person and delete_person spans, got %+v", entries)
	}
	if entries[1].Operation != "save_person" || entries[1].Status != "success" {
		t.Fatalf("unexpected span %+v", entries[1])
	}
	var decoded JSONTraceEntry
	if err := json.NewDecoder(&buf).Decode(&decoded); err != nil {
		t.Fatalf("decode trace line: %v", err)
	}
	if decoded.Operation != "create_object" {
		t.Fatalf("expected first written span, got %+v", decoded)
	}
}

func TestJSONTracerSpanEndsOnce(t *testing.T) {
	tracer := NewJSONTracer(nil)
	ctx, span := tracer.Start(context.Background(), "op")
	if SpanID(ctx) == "" {
		t.Fatalf("expected span id on context")
	}
	span.End(errors.New("boom"))
	span.End(nil)
	entries := tracer.Entries()
	if len(entries) != 1 || entries[0].Status != "error" || entries[0].Error != "boom" {
		t.Fatalf("unexpected entries %+v", entries)
	}
	if SpanID(context.Background()) != "" {
		t.Fatalf("expected empty span id outside a span")
	}
}

func TestExpvarMetricsRecorder(t *testing.T) {
	rec := NewExpvarMetricsRecorder("")
	rec.Observe(context.Background(), "save_act", true, 2*time.Millisecond)
	rec.Observe(context.Background(), "save_act", false, 3*time.Millisecond)
	rec.Observe(context.Background(), "", true, time.Second)
	snap := rec.Snapshot()
	if snap.DurationsMS["save_act"] != 5 {
		t.Fatalf("expected 5ms total, got %v", snap.DurationsMS["save_act"])
	}
	if snap.Results["save_act"]["success"] != 1 || snap.Results["save_act"]["error"] != 1 {
		t.Fatalf("unexpected results %+v", snap.Results)
	}
	if len(snap.Results) != 1 {
		t.Fatalf("empty operation must be ignored")
	}
	if rec.Name() == "" {
		t.Fatalf("expected generated name")
	}
}

func TestPrometheusMetricsRecorder(t *testing.T) {
	reg := prometheus.NewRegistry()
	rec, err := NewPrometheusMetricsRecorder(reg)
	if err != nil {
		t.Fatalf("register: %v", err)
	}
	svc, _ := newTestService(t, WithMetricsRecorder(rec))
	mustPerson(t, svc, domain.Person{Name: "Метриков"})
	if _, err := svc.MoveAct(context.Background(), "missing", 0); err == nil {
		t.Fatalf("expected failure")
	}
	if got := testutil.ToFloat64(rec.operations.WithLabelValues("save_person", "success")); got != 1 {
		t.Fatalf("expected one successful save_person, got %v", got)
	}
	if got := testutil.ToFloat64(rec.operations.WithLabelValues("move_act", "error")); got != 1 {
		t.Fatalf("expected one failed move_act, got %v", got)
	}
	if _, err := NewPrometheusMetricsRecorder(reg); err == nil {
		t.Fatalf("expected duplicate registration to fail")
	}
}
