package core

import (
	"context"
	"qcledger/pkg/domain"
	"slices"
)

// actState is one history entry: the act collection together with the act
// trash, so soft deletes and restores reverse without losing records.
type actState struct {
	acts    []domain.Act
	deleted []domain.DeletedActEntry
}

func (st actState) clone() actState {
	out := actState{
		acts:    make([]domain.Act, len(st.acts)),
		deleted: make([]domain.DeletedActEntry, len(st.deleted)),
	}
	for i, a := range st.acts {
		out.acts[i] = a.Clone()
	}
	for i, e := range st.deleted {
		out.deleted[i] = e.Clone()
	}
	return out
}

// history is a bounded undo/redo stack of act states.
type history struct {
	depth  int
	past   []actState
	future []actState
}

func newHistory(depth int) *history {
	if depth < 1 {
		depth = 1
	}
	return &history{depth: depth}
}

func (h *history) record(previous actState) {
	h.past = append(h.past, previous.clone())
	if over := len(h.past) - h.depth; over > 0 {
		h.past = append([]actState(nil), h.past[over:]...)
	}
	h.future = nil
}

func (h *history) setDepth(depth int) {
	if depth < 1 {
		return
	}
	h.depth = depth
	if over := len(h.past) - depth; over > 0 {
		h.past = append([]actState(nil), h.past[over:]...)
	}
}

// forget removes the given act ids from every recorded state.
func (h *history) forget(ids map[string]struct{}) {
	if len(ids) == 0 {
		return
	}
	for _, stack := range [][]actState{h.past, h.future} {
		for i := range stack {
			stack[i].acts = slices.DeleteFunc(stack[i].acts, func(a domain.Act) bool {
				_, gone := ids[a.ID]
				return gone
			})
			stack[i].deleted = slices.DeleteFunc(stack[i].deleted, func(e domain.DeletedActEntry) bool {
				_, gone := ids[e.Act.ID]
				return gone
			})
		}
	}
}

func (h *history) reset() {
	h.past = nil
	h.future = nil
}

// CanUndo reports whether an earlier act collection is available.
func (s *Service) CanUndo() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.history.past) > 0
}

// CanRedo reports whether an undone act collection is available.
func (s *Service) CanRedo() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.history.future) > 0
}

// Undo reinstalls the act collection that preceded the last act mutation.
// It is a no-op when nothing can be undone.
func (s *Service) Undo(ctx context.Context) (domain.Result, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	h := s.history
	if len(h.past) == 0 {
		return domain.Result{}, nil
	}
	target := h.past[len(h.past)-1]
	current := s.actState(ctx)
	res, err := s.installActs(ctx, "undo", target)
	if err != nil {
		return res, err
	}
	h.past = h.past[:len(h.past)-1]
	h.future = append(h.future, current)
	return res, nil
}

// Redo reapplies the act collection most recently undone. It is a no-op when
// nothing can be redone.
func (s *Service) Redo(ctx context.Context) (domain.Result, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	h := s.history
	if len(h.future) == 0 {
		return domain.Result{}, nil
	}
	target := h.future[len(h.future)-1]
	current := s.actState(ctx)
	res, err := s.installActs(ctx, "redo", target)
	if err != nil {
		return res, err
	}
	h.future = h.future[:len(h.future)-1]
	h.past = append(h.past, current)
	return res, nil
}

// installActs replaces the act collection and the act trash with state.
func (s *Service) installActs(ctx context.Context, op string, state actState) (domain.Result, error) {
	res, _, err := s.run(ctx, op, func(tx domain.Transaction) error {
		next := state.clone()
		tx.ReplaceActs(next.acts)
		tx.ReplaceDeletedActs(next.deleted)
		return nil
	})
	return res, err
}

// actState captures the current act collection and act trash.
func (s *Service) actState(ctx context.Context) actState {
	var st actState
	_ = s.store.View(ctx, func(view domain.TransactionView) error {
		st.acts = view.ListActs()
		st.deleted = view.ListDeletedActs()
		return nil
	})
	return st
}
