package core

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	memory "qcledger/internal/infra/persistence/memory"
	"qcledger/pkg/domain"
)

func snapshotField(snap *memory.Snapshot, key domain.CollectionKey) (any, bool) {
	switch key {
	case domain.KeyObjects:
		return &snap.Objects, true
	case domain.KeyActs:
		return &snap.Acts, true
	case domain.KeyDeletedActs:
		return &snap.DeletedActs, true
	case domain.KeyPeople:
		return &snap.People, true
	case domain.KeyOrganizations:
		return &snap.Organizations, true
	case domain.KeyGroups:
		return &snap.Groups, true
	case domain.KeyCertificates:
		return &snap.Certificates, true
	case domain.KeyDeletedCertificates:
		return &snap.DeletedCertificates, true
	case domain.KeyRegulations:
		return &snap.Regulations, true
	default:
		return nil, false
	}
}

// mirror writes the collections touched by changes. Failures are logged and
// counted; the in-memory state stays authoritative.
func (s *Service) mirror(ctx context.Context, changes []domain.Change) {
	if s.kv == nil || len(changes) == 0 {
		return
	}
	dirty := make(map[domain.CollectionKey]struct{})
	for _, c := range changes {
		if key, ok := domain.KeyFor(c.Entity); ok {
			dirty[key] = struct{}{}
		}
	}
	snap := s.store.ExportState()
	for _, key := range domain.RecordKeys {
		if _, ok := dirty[key]; !ok {
			continue
		}
		field, _ := snapshotField(&snap, key)
		s.persist(ctx, key, field)
	}
}

func (s *Service) persist(ctx context.Context, key domain.CollectionKey, value any) {
	if s.kv == nil {
		return
	}
	if err := s.writeKey(ctx, key, value); err != nil {
		s.metrics.Observe(ctx, "persist", false, 0)
		s.logger.Error("persist failed", "key", key, "error", err)
	}
}

func (s *Service) writeKey(ctx context.Context, key domain.CollectionKey, value any) error {
	payload, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("encode %s: %w", key, err)
	}
	if err := s.kv.Set(ctx, string(key), payload); err != nil {
		return fmt.Errorf("write %s: %w", key, err)
	}
	return nil
}

func (s *Service) persistCurrent(ctx context.Context) {
	s.persist(ctx, domain.KeyCurrentObject, s.current)
}

func (s *Service) persistSettings(ctx context.Context) {
	s.persist(ctx, domain.KeySettings, s.settings)
}

// Flush writes every collection, the settings and the current object id.
func (s *Service) Flush(ctx context.Context) error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.kv == nil {
		return nil
	}
	snap := s.store.ExportState()
	var errs []error
	for _, key := range domain.RecordKeys {
		field, _ := snapshotField(&snap, key)
		errs = append(errs, s.writeKey(ctx, key, field))
	}
	errs = append(errs,
		s.writeKey(ctx, domain.KeySettings, s.settings),
		s.writeKey(ctx, domain.KeyCurrentObject, s.current),
	)
	return errors.Join(errs...)
}

func (s *Service) readKey(ctx context.Context, key domain.CollectionKey, target any) error {
	payload, ok, err := s.kv.Get(ctx, string(key))
	if err != nil {
		return fmt.Errorf("read %s: %w", key, err)
	}
	if !ok || len(payload) == 0 {
		return nil
	}
	if err := json.Unmarshal(payload, target); err != nil {
		return fmt.Errorf("decode %s: %w", key, err)
	}
	return nil
}

// Load replaces the in-memory state with the persisted one. Missing keys
// are empty collections. Records without a valid construction object are
// assigned to the current object, created first when none exists. Act
// history starts empty.
func (s *Service) Load(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.kv != nil {
		var snap memory.Snapshot
		for _, key := range domain.RecordKeys {
			field, _ := snapshotField(&snap, key)
			if err := s.readKey(ctx, key, field); err != nil {
				return err
			}
		}
		var settings domain.Settings
		if err := s.readKey(ctx, domain.KeySettings, &settings); err != nil {
			return err
		}
		var current string
		if err := s.readKey(ctx, domain.KeyCurrentObject, &current); err != nil {
			return err
		}
		s.store.ImportState(snap)
		s.settings = settings
		s.current = current
		s.applyHistoryDepth()
	}
	s.history.reset()
	obj, err := s.ensureDefaultObject(ctx)
	if err != nil {
		return err
	}
	if _, _, err := s.run(ctx, "upgrade_scope", func(tx domain.Transaction) error {
		restampScope(tx, obj.ID)
		return nil
	}); err != nil {
		return err
	}
	s.logger.Info("state loaded", "objects", len(s.view(ctx).ListObjects()), "current", s.current)
	return nil
}

func restampScope(tx domain.Transaction, target string) {
	view := tx.Snapshot()
	live := make(map[string]struct{})
	for _, o := range view.ListObjects() {
		live[o.ID] = struct{}{}
	}
	stray := func(objectID string) bool {
		_, ok := live[objectID]
		return !ok
	}
	for _, v := range view.ListPeople() {
		if stray(v.ConstructionObjectID) {
			v.ConstructionObjectID = target
			tx.PutPerson(v)
		}
	}
	for _, v := range view.ListOrganizations() {
		if stray(v.ConstructionObjectID) {
			v.ConstructionObjectID = target
			tx.PutOrganization(v)
		}
	}
	for _, v := range view.ListGroups() {
		if stray(v.ConstructionObjectID) {
			v.ConstructionObjectID = target
			tx.PutGroup(v)
		}
	}
	for _, v := range view.ListActs() {
		if stray(v.ConstructionObjectID) {
			v.ConstructionObjectID = target
			tx.PutAct(v)
		}
	}
	for _, v := range view.ListCertificates() {
		if stray(v.ConstructionObjectID) {
			v.ConstructionObjectID = target
			tx.PutCertificate(v)
		}
	}
	for _, v := range view.ListRegulations() {
		if stray(v.ConstructionObjectID) {
			v.ConstructionObjectID = target
			tx.PutRegulation(v)
		}
	}
	for _, v := range view.ListDeletedActs() {
		if stray(v.Act.ConstructionObjectID) {
			v.Act.ConstructionObjectID = target
			tx.PutDeletedAct(v)
		}
	}
	for _, v := range view.ListDeletedCertificates() {
		if stray(v.Certificate.ConstructionObjectID) {
			v.Certificate.ConstructionObjectID = target
			tx.PutDeletedCertificate(v)
		}
	}
}
