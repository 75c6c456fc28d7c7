package core

import (
	"context"
	"qcledger/pkg/domain"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestUndoRedoRoundTrip(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()
	a1 := mustAct(t, svc, domain.Act{Number: "1"})
	mustAct(t, svc, domain.Act{Number: "2"})
	a3 := mustAct(t, svc, domain.Act{Number: "3"})
	if _, err := svc.MoveAct(ctx, a3.ID, 0); err != nil {
		t.Fatalf("move: %v", err)
	}
	a1.WorkName = "Монтаж"
	mustAct(t, svc, a1)

	before := svc.listActs(ctx)
	if !svc.CanUndo() || svc.CanRedo() {
		t.Fatalf("expected undo available and redo empty")
	}
	if _, err := svc.Undo(ctx); err != nil {
		t.Fatalf("undo: %v", err)
	}
	if findAct(t, svc, a1.ID).WorkName != "" {
		t.Fatalf("undo must reinstall the previous collection")
	}
	if _, err := svc.Redo(ctx); err != nil {
		t.Fatalf("redo: %v", err)
	}
	if diff := cmp.Diff(before, svc.listActs(ctx)); diff != "" {
		t.Fatalf("redo mismatch (-want +got):\n%s", diff)
	}
}

func TestUndoRestoresOrderAfterMove(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()
	for _, n := range []string{"1", "2", "3"} {
		mustAct(t, svc, domain.Act{Number: n})
	}
	want := svc.listActs(ctx)
	if _, err := svc.MoveAct(ctx, want[0].ID, 10); err != nil {
		t.Fatalf("move: %v", err)
	}
	if _, err := svc.Undo(ctx); err != nil {
		t.Fatalf("undo: %v", err)
	}
	if diff := cmp.Diff(want, svc.listActs(ctx)); diff != "" {
		t.Fatalf("undo mismatch (-want +got):\n%s", diff)
	}
}

func TestUndoOnEmptyStackIsNoop(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()
	if _, err := svc.Undo(ctx); err != nil {
		t.Fatalf("undo on empty stack: %v", err)
	}
	if _, err := svc.Redo(ctx); err != nil {
		t.Fatalf("redo on empty stack: %v", err)
	}
}

func TestHistoryDepthBound(t *testing.T) {
	svc, _ := newTestService(t, WithHistoryDepth(2))
	ctx := context.Background()
	first := mustAct(t, svc, domain.Act{Number: "1"})
	mustAct(t, svc, domain.Act{Number: "2"})
	mustAct(t, svc, domain.Act{Number: "3"})
	for i := 0; i < 3; i++ {
		if _, err := svc.Undo(ctx); err != nil {
			t.Fatalf("undo %d: %v", i, err)
		}
	}
	acts := svc.listActs(ctx)
	if len(acts) != 1 || acts[0].ID != first.ID {
		t.Fatalf("expected only the oldest retained state, got %+v", acts)
	}
	if svc.CanUndo() {
		t.Fatalf("depth must bound the undo stack")
	}
}

func TestNewMutationClearsRedo(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()
	mustAct(t, svc, domain.Act{Number: "1"})
	if _, err := svc.Undo(ctx); err != nil {
		t.Fatalf("undo: %v", err)
	}
	if !svc.CanRedo() {
		t.Fatalf("expected redo after undo")
	}
	mustAct(t, svc, domain.Act{Number: "2"})
	if svc.CanRedo() {
		t.Fatalf("a new mutation must clear redo")
	}
}

func trashIDs(scope ScopeView) []string {
	ids := make([]string, 0, len(scope.DeletedActs))
	for _, e := range scope.DeletedActs {
		ids = append(ids, e.Act.ID)
	}
	return ids
}

func actIDs(acts []domain.Act) []string {
	ids := make([]string, 0, len(acts))
	for _, a := range acts {
		ids = append(ids, a.ID)
	}
	return ids
}

func TestUndoRedoTrashKeepsAct(t *testing.T) {
	svc, objectID := newTestService(t)
	ctx := context.Background()
	act := mustAct(t, svc, domain.Act{Number: "1"})
	if _, err := svc.MoveActsToTrash(ctx, []string{act.ID}); err != nil {
		t.Fatalf("trash: %v", err)
	}
	if _, err := svc.Undo(ctx); err != nil {
		t.Fatalf("undo: %v", err)
	}
	scope := svc.Scope(ctx, objectID)
	if diff := cmp.Diff([]string{act.ID}, actIDs(scope.Acts)); diff != "" {
		t.Fatalf("undo must bring the act back (-want +got):\n%s", diff)
	}
	if len(scope.DeletedActs) != 0 {
		t.Fatalf("act must not live in both collections: %+v", scope.DeletedActs)
	}

	if _, err := svc.Redo(ctx); err != nil {
		t.Fatalf("redo: %v", err)
	}
	scope = svc.Scope(ctx, objectID)
	if len(scope.Acts) != 0 {
		t.Fatalf("redo must remove the act again, got %+v", scope.Acts)
	}
	if diff := cmp.Diff([]string{act.ID}, trashIDs(scope)); diff != "" {
		t.Fatalf("redo must put the act back in the trash (-want +got):\n%s", diff)
	}
}

func TestUndoRestoreReturnsActToTrash(t *testing.T) {
	svc, objectID := newTestService(t)
	ctx := context.Background()
	act := mustAct(t, svc, domain.Act{Number: "1"})
	if _, err := svc.MoveActsToTrash(ctx, []string{act.ID}); err != nil {
		t.Fatalf("trash: %v", err)
	}
	if _, err := svc.RestoreActs(ctx, []string{act.ID}, SkipGroups); err != nil {
		t.Fatalf("restore: %v", err)
	}
	if _, err := svc.Undo(ctx); err != nil {
		t.Fatalf("undo: %v", err)
	}
	scope := svc.Scope(ctx, objectID)
	if len(scope.Acts) != 0 {
		t.Fatalf("undo of restore must remove the act, got %+v", scope.Acts)
	}
	if diff := cmp.Diff([]string{act.ID}, trashIDs(scope)); diff != "" {
		t.Fatalf("undo of restore must keep the trash entry (-want +got):\n%s", diff)
	}
}

func TestPurgeDropsActFromHistory(t *testing.T) {
	svc, objectID := newTestService(t)
	ctx := context.Background()
	keep := mustAct(t, svc, domain.Act{Number: "1"})
	gone := mustAct(t, svc, domain.Act{Number: "2"})
	if _, err := svc.MoveActsToTrash(ctx, []string{gone.ID}); err != nil {
		t.Fatalf("trash: %v", err)
	}
	if _, err := svc.PermanentlyDeleteActs(ctx, []string{gone.ID}); err != nil {
		t.Fatalf("purge: %v", err)
	}
	if _, err := svc.Undo(ctx); err != nil {
		t.Fatalf("undo: %v", err)
	}
	scope := svc.Scope(ctx, objectID)
	if diff := cmp.Diff([]string{keep.ID}, actIDs(scope.Acts)); diff != "" {
		t.Fatalf("purged act must not come back (-want +got):\n%s", diff)
	}
	if len(scope.DeletedActs) != 0 {
		t.Fatalf("purged act must not reappear in trash: %+v", scope.DeletedActs)
	}
}

func TestSettingsDepthOverridesConfigured(t *testing.T) {
	svc, _ := newTestService(t, WithHistoryDepth(5))
	if svc.HistoryDepth() != 5 {
		t.Fatalf("expected configured depth, got %d", svc.HistoryDepth())
	}
	err := svc.UpdateSettings(context.Background(), domain.Settings{Project: domain.ProjectSettings{HistoryDepth: 3}})
	if err != nil {
		t.Fatalf("update settings: %v", err)
	}
	if svc.HistoryDepth() != 3 {
		t.Fatalf("expected settings depth, got %d", svc.HistoryDepth())
	}
	if err := svc.UpdateSettings(context.Background(), domain.Settings{Project: domain.ProjectSettings{HistoryDepth: -1}}); err == nil {
		t.Fatalf("expected negative depth rejected")
	}
}
