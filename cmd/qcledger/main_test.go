package main

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"qcledger/internal/blob"
	"qcledger/internal/config"
	"qcledger/internal/core"
	"qcledger/pkg/domain"
	"strings"
	"testing"
)

func newTestApp(t *testing.T) *app {
	t.Helper()
	svc := core.NewInMemoryService(nil)
	if _, err := svc.EnsureDefaultObject(context.Background()); err != nil {
		t.Fatalf("ensure object: %v", err)
	}
	return &app{svc: svc, blobs: blob.NewMemory()}
}

func execute(t *testing.T, a *app, args ...string) (string, error) {
	t.Helper()
	cmd := newRootCmd(a)
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(args)
	err := cmd.ExecuteContext(context.Background())
	return out.String(), err
}

func TestObjectsCommands(t *testing.T) {
	a := newTestApp(t)
	out, err := execute(t, a, "objects", "create", "Школа")
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	id := strings.TrimSpace(out)
	if _, err := execute(t, a, "objects", "use", id); err != nil {
		t.Fatalf("use: %v", err)
	}
	out, err = execute(t, a, "objects", "list")
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if !strings.Contains(out, "*  "+id) || !strings.Contains(out, core.DefaultObjectName) {
		t.Fatalf("expected current object marked, got:\n%s", out)
	}
	if _, err := execute(t, a, "objects", "rename", "missing", "x"); err == nil {
		t.Fatalf("expected not found")
	}
	out, err = execute(t, a, "objects", "clone", id)
	if err != nil {
		t.Fatalf("clone: %v", err)
	}
	if len(a.svc.Objects(context.Background())) != 3 || strings.TrimSpace(out) == "" {
		t.Fatalf("expected clone created")
	}
}

func TestActsTrashRestoreCommands(t *testing.T) {
	a := newTestApp(t)
	ctx := context.Background()
	group, _, err := a.svc.SaveGroup(ctx, domain.CommissionGroup{Name: "Комиссия"})
	if err != nil {
		t.Fatalf("group: %v", err)
	}
	act, _, err := a.svc.SaveAct(ctx, domain.Act{Number: "7", CommissionGroupID: group.ID})
	if err != nil {
		t.Fatalf("act: %v", err)
	}
	if _, err := execute(t, a, "acts", "trash", act.ID); err != nil {
		t.Fatalf("trash: %v", err)
	}
	if _, err := a.svc.DeleteGroup(ctx, group.ID); err != nil {
		t.Fatalf("delete group: %v", err)
	}
	out, err := execute(t, a, "acts", "trash-list")
	if err != nil || !strings.Contains(out, "Комиссия") {
		t.Fatalf("expected trashed act with its group, got %q err=%v", out, err)
	}
	_, err = execute(t, a, "acts", "restore", act.ID)
	var decision domain.GroupRestoreDecisionError
	if !errors.As(err, &decision) {
		t.Fatalf("expected group decision error, got %v", err)
	}
	if !strings.Contains(describe(err), "Комиссия") {
		t.Fatalf("expected localized message naming the group, got %q", describe(err))
	}
	if _, err := execute(t, a, "acts", "restore", "--groups", "restore", act.ID); err != nil {
		t.Fatalf("restore: %v", err)
	}
	if _, err := execute(t, a, "acts", "restore", "--groups", "maybe", act.ID); err == nil {
		t.Fatalf("expected invalid decision error")
	}
	out, err = execute(t, a, "acts", "list")
	if err != nil || !strings.Contains(out, act.ID) {
		t.Fatalf("expected restored act listed, got %q err=%v", out, err)
	}
	if _, err := execute(t, a, "acts", "undo"); err != nil {
		t.Fatalf("undo: %v", err)
	}
	if len(a.svc.CurrentScope(ctx).Acts) != 0 {
		t.Fatalf("undo must revert the restore")
	}
	if _, err := execute(t, a, "acts", "move", act.ID, "x"); err == nil {
		t.Fatalf("expected invalid index error")
	}
}

func TestBackupRoundTripThroughBlobStore(t *testing.T) {
	a := newTestApp(t)
	ctx := context.Background()
	if _, _, err := a.svc.SavePerson(ctx, domain.Person{Name: "Резервов"}); err != nil {
		t.Fatalf("person: %v", err)
	}
	if _, err := execute(t, a, "backup", "export", "--prefix", "snap"); err != nil {
		t.Fatalf("export: %v", err)
	}

	b := newTestApp(t)
	b.blobs = a.blobs
	if _, err := execute(t, b, "backup", "import", "--prefix", "snap"); err != nil {
		t.Fatalf("import: %v", err)
	}
	people := b.svc.CurrentScope(ctx).People
	if len(people) != 1 || people[0].Name != "Резервов" {
		t.Fatalf("expected person restored, got %+v", people)
	}
}

func TestBackupFlatFile(t *testing.T) {
	a := newTestApp(t)
	ctx := context.Background()
	if _, _, err := a.svc.SaveRegulation(ctx, domain.Regulation{Designation: "СП 70.13330"}); err != nil {
		t.Fatalf("regulation: %v", err)
	}
	file := filepath.Join(t.TempDir(), "backup.json")
	if _, err := execute(t, a, "backup", "export", "--flat", file); err != nil {
		t.Fatalf("export: %v", err)
	}
	if _, err := os.Stat(file); err != nil {
		t.Fatalf("expected file written: %v", err)
	}

	b := newTestApp(t)
	if _, err := execute(t, b, "backup", "import", "--flat", file, "--merge"); err != nil {
		t.Fatalf("import: %v", err)
	}
	if regs := b.svc.Export(ctx).Regulations; len(regs) != 1 || regs[0].Designation != "СП 70.13330" {
		t.Fatalf("expected regulation merged, got %+v", regs)
	}
	if _, err := execute(t, b, "backup", "import"); err == nil {
		t.Fatalf("expected missing source error")
	}
}

func TestStatsCommand(t *testing.T) {
	a := newTestApp(t)
	out, err := execute(t, a, "stats")
	if err != nil {
		t.Fatalf("stats: %v", err)
	}
	if !strings.Contains(out, `"object": "`+core.DefaultObjectName+`"`) {
		t.Fatalf("unexpected stats output:\n%s", out)
	}
}

func TestStatsReportsPrometheusTotals(t *testing.T) {
	a := &app{blobs: blob.NewMemory()}
	rec, err := a.openMetrics(config.MetricsPrometheus)
	if err != nil {
		t.Fatalf("open metrics: %v", err)
	}
	if a.registry == nil || a.metrics != nil {
		t.Fatalf("expected the prometheus registry selected")
	}
	a.svc = core.NewInMemoryService(nil, core.WithMetricsRecorder(rec))
	if _, err := a.svc.EnsureDefaultObject(context.Background()); err != nil {
		t.Fatalf("ensure object: %v", err)
	}
	if _, err := execute(t, a, "objects", "create", "Школа"); err != nil {
		t.Fatalf("create: %v", err)
	}
	out, err := execute(t, a, "stats")
	if err != nil {
		t.Fatalf("stats: %v", err)
	}
	if !strings.Contains(out, `"create_object": {`) || !strings.Contains(out, `"success": 2`) {
		t.Fatalf("expected prometheus operation totals, got:\n%s", out)
	}
	if _, err := (&app{}).openMetrics("statsd"); err == nil {
		t.Fatalf("expected unknown exporter rejected")
	}
}
