package logging

import (
	"context"
	"qcledger/internal/core"
	"qcledger/pkg/domain"
	"testing"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func TestNewLevels(t *testing.T) {
	logger, err := New("warn", false)
	if err != nil {
		t.Fatalf("new: %v", err)
	}
	if logger.Core().Enabled(zapcore.InfoLevel) || !logger.Core().Enabled(zapcore.WarnLevel) {
		t.Fatalf("expected warn level")
	}
	logger, err = New("warn", true)
	if err != nil {
		t.Fatalf("new verbose: %v", err)
	}
	if !logger.Core().Enabled(zapcore.DebugLevel) {
		t.Fatalf("verbose must enable debug")
	}
	logger, err = New("", false)
	if err != nil {
		t.Fatalf("new default: %v", err)
	}
	if logger.Core().Enabled(zapcore.DebugLevel) || !logger.Core().Enabled(zapcore.InfoLevel) {
		t.Fatalf("expected info by default")
	}
	if _, err := New("loud", false); err == nil {
		t.Fatalf("expected invalid level error")
	}
}

func TestAdapterPassesFields(t *testing.T) {
	obs, logs := observer.New(zapcore.DebugLevel)
	adapter := Core(zap.New(obs))
	adapter.Debug("d", "operation", "save_act")
	adapter.Info("i")
	adapter.Warn("w", "rule", "act_chain")
	adapter.Error("e", "error", "boom")

	entries := logs.AllUntimed()
	if len(entries) != 4 {
		t.Fatalf("expected 4 entries, got %d", len(entries))
	}
	if entries[0].Level != zapcore.DebugLevel || entries[0].ContextMap()["operation"] != "save_act" {
		t.Fatalf("unexpected debug entry %+v", entries[0])
	}
	if entries[2].Level != zapcore.WarnLevel || entries[3].Level != zapcore.ErrorLevel {
		t.Fatalf("unexpected levels %+v", entries)
	}
}

func TestAdapterDrivesService(t *testing.T) {
	obs, logs := observer.New(zapcore.DebugLevel)
	svc := core.NewInMemoryService(nil, core.WithLogger(Core(zap.New(obs))))
	ctx := context.Background()
	if _, err := svc.EnsureDefaultObject(ctx); err != nil {
		t.Fatalf("ensure object: %v", err)
	}
	if _, err := svc.MoveAct(ctx, "missing", 0); err == nil {
		t.Fatalf("expected failure")
	}
	if logs.FilterLevelExact(zapcore.ErrorLevel).Len() != 1 {
		t.Fatalf("expected one error entry, got %+v", logs.All())
	}
	if _, _, err := svc.SavePerson(ctx, domain.Person{Name: "Логов"}); err != nil {
		t.Fatalf("save: %v", err)
	}
	if logs.FilterField(zap.String("operation", "save_person")).Len() == 0 {
		t.Fatalf("expected save_person logged, got %+v", logs.All())
	}
}

func TestCoreNilLogger(t *testing.T) {
	adapter := Core(nil)
	adapter.Info("ignored")
	_ = adapter.Sync()
}
