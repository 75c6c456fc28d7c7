package core

import (
	"context"
	"qcledger/pkg/domain"
)

// GroupDecision tells RestoreActs what to do with commission groups that were
// deleted after the acts referencing them went to the trash.
type GroupDecision int

// Group restore decisions.
const (
	// GroupsUndecided makes RestoreActs fail with GroupRestoreDecisionError
	// when any group would need to be re-created.
	GroupsUndecided GroupDecision = iota
	// RestoreGroups re-creates missing groups from their trash snapshots.
	RestoreGroups
	// SkipGroups restores acts without their missing groups.
	SkipGroups
)

// MoveActsToTrash moves active acts to the trash, capturing the commission
// group each one used. Acts pointing at a trashed act lose the link.
func (s *Service) MoveActsToTrash(ctx context.Context, ids []string) (domain.Result, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	res, _, err := s.runActs(ctx, "trash_acts", func(tx domain.Transaction) error {
		view := tx.Snapshot()
		removed := make(map[string]domain.Act)
		for _, id := range ids {
			act, ok := view.FindAct(id)
			if !ok {
				continue
			}
			entry := domain.DeletedActEntry{Act: act, DeletedOn: tx.Now()}
			if group, ok := view.FindGroup(act.CommissionGroupID); ok {
				entry.AssociatedGroup = &group
			}
			tx.PutDeletedAct(entry)
			tx.DeleteAct(id)
			removed[id] = act
		}
		detachSuccessors(tx, removed)
		return nil
	})
	return res, err
}

func selectDeletedActs(view domain.TransactionView, ids []string) []domain.DeletedActEntry {
	want := make(map[string]struct{}, len(ids))
	for _, id := range ids {
		want[id] = struct{}{}
	}
	var out []domain.DeletedActEntry
	for _, entry := range view.ListDeletedActs() {
		if _, ok := want[entry.Act.ID]; ok {
			out = append(out, entry)
		}
	}
	return out
}

func missingGroups(view domain.TransactionView, entries []domain.DeletedActEntry) []domain.CommissionGroup {
	var out []domain.CommissionGroup
	seen := make(map[string]struct{})
	for _, entry := range entries {
		g := entry.AssociatedGroup
		if g == nil {
			continue
		}
		if _, dup := seen[g.ID]; dup {
			continue
		}
		seen[g.ID] = struct{}{}
		if _, ok := view.FindGroup(g.ID); !ok {
			out = append(out, g.Clone())
		}
	}
	return out
}

// PendingGroupRestorations lists the commission groups that restoring ids
// would need to re-create.
func (s *Service) PendingGroupRestorations(ctx context.Context, ids []string) []domain.CommissionGroup {
	s.mu.RLock()
	defer s.mu.RUnlock()
	view := s.view(ctx)
	return missingGroups(view, selectDeletedActs(view, ids))
}

// RestoreActs moves trashed acts back to the end of the act collection.
// Missing commission groups require a decision: with GroupsUndecided the
// call fails with domain.GroupRestoreDecisionError and nothing changes.
// References to people, organizations, groups and successor acts that no
// longer exist are cleared.
func (s *Service) RestoreActs(ctx context.Context, ids []string, decision GroupDecision) (domain.Result, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	res, _, err := s.runActs(ctx, "restore_acts", func(tx domain.Transaction) error {
		view := tx.Snapshot()
		entries := selectDeletedActs(view, ids)
		missing := missingGroups(view, entries)
		if len(missing) > 0 && decision == GroupsUndecided {
			return domain.GroupRestoreDecisionError{Groups: missing}
		}
		if decision == RestoreGroups {
			for _, g := range missing {
				g.Representatives = liveRepresentatives(view, g.ConstructionObjectID, g.Representatives)
				liveOrgRoles(view, &g.OrgRoles)
				tx.PutGroup(g)
			}
		}
		restoring := make(map[string]struct{}, len(entries))
		for _, entry := range entries {
			restoring[entry.Act.ID] = struct{}{}
		}
		for _, entry := range entries {
			act := entry.Act
			if _, ok := view.FindGroup(act.CommissionGroupID); !ok {
				act.CommissionGroupID = ""
			}
			act.Representatives = liveRepresentatives(view, act.ConstructionObjectID, act.Representatives)
			liveOrgRoles(view, &act.OrgRoles)
			if act.NextWorkActID != "" {
				_, active := view.FindAct(act.NextWorkActID)
				_, restored := restoring[act.NextWorkActID]
				if !active && !restored {
					act.NextWork = successorGoneText(view, act)
					act.NextWorkActID = ""
				}
			}
			tx.DeleteDeletedAct(act.ID)
			tx.PutAct(act)
		}
		return nil
	})
	return res, err
}

func successorGoneText(view domain.TransactionView, act domain.Act) string {
	for _, entry := range view.ListDeletedActs() {
		if entry.Act.ID == act.NextWorkActID {
			return domain.DeletedSuccessorDescription(entry.Act.Number)
		}
	}
	return act.NextWork
}

func liveRepresentatives(view domain.RuleView, objectID string, reps map[string]string) map[string]string {
	out := make(map[string]string, len(reps))
	for role, id := range reps {
		if p, ok := view.FindPerson(id); ok && p.ConstructionObjectID == objectID {
			out[role] = id
		}
	}
	return out
}

func liveOrgRoles(view domain.RuleView, roles *domain.OrgRoles) {
	for _, ref := range roles.Refs() {
		if *ref == "" {
			continue
		}
		if _, ok := view.FindOrganization(*ref); !ok {
			*ref = ""
		}
	}
}

// PermanentlyDeleteActs purges entries from the act trash. Active acts are
// not affected. Purged acts are also dropped from the undo history so no
// later undo brings them back.
func (s *Service) PermanentlyDeleteActs(ctx context.Context, ids []string) (domain.Result, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	purged := make(map[string]struct{}, len(ids))
	res, _, err := s.run(ctx, "purge_acts", func(tx domain.Transaction) error {
		for _, id := range ids {
			if tx.DeleteDeletedAct(id) {
				purged[id] = struct{}{}
			}
		}
		return nil
	})
	if err != nil {
		return res, err
	}
	s.history.forget(purged)
	return res, nil
}

// MoveCertificatesToTrash moves active certificates to the trash.
func (s *Service) MoveCertificatesToTrash(ctx context.Context, ids []string) (domain.Result, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	res, _, err := s.run(ctx, "trash_certificates", func(tx domain.Transaction) error {
		view := tx.Snapshot()
		for _, id := range ids {
			cert, ok := view.FindCertificate(id)
			if !ok {
				continue
			}
			tx.PutDeletedCertificate(domain.DeletedCertificateEntry{Certificate: cert, DeletedOn: tx.Now()})
			tx.DeleteCertificate(id)
		}
		return nil
	})
	return res, err
}

// RestoreCertificates moves trashed certificates back to the active collection.
func (s *Service) RestoreCertificates(ctx context.Context, ids []string) (domain.Result, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	res, _, err := s.run(ctx, "restore_certificates", func(tx domain.Transaction) error {
		want := make(map[string]struct{}, len(ids))
		for _, id := range ids {
			want[id] = struct{}{}
		}
		for _, entry := range tx.Snapshot().ListDeletedCertificates() {
			if _, ok := want[entry.Certificate.ID]; !ok {
				continue
			}
			tx.DeleteDeletedCertificate(entry.Certificate.ID)
			tx.PutCertificate(entry.Certificate)
		}
		return nil
	})
	return res, err
}

// PermanentlyDeleteCertificates purges entries from the certificate trash.
func (s *Service) PermanentlyDeleteCertificates(ctx context.Context, ids []string) (domain.Result, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	res, _, err := s.run(ctx, "purge_certificates", func(tx domain.Transaction) error {
		for _, id := range ids {
			tx.DeleteDeletedCertificate(id)
		}
		return nil
	})
	return res, err
}
