package core

import (
	"context"
	"errors"
	"qcledger/pkg/domain"
	"strings"
)

// DefaultObjectName names the object created implicitly on first run.
const DefaultObjectName = "Основной объект"

var errObjectName = errors.New("construction object name is required")

// Objects lists every construction object in display order.
func (s *Service) Objects(ctx context.Context) []domain.ConstructionObject {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.view(ctx).ListObjects()
}

// CurrentObjectID returns the id of the object the working view is scoped to.
func (s *Service) CurrentObjectID() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.current
}

// SetCurrentObject switches the working scope.
func (s *Service) SetCurrentObject(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.view(ctx).FindObject(id); !ok {
		return domain.NotFoundError{Entity: domain.EntityObject, ID: id}
	}
	s.setCurrent(ctx, id)
	return nil
}

func (s *Service) setCurrent(ctx context.Context, id string) {
	if s.current == id {
		return
	}
	s.current = id
	s.persistCurrent(ctx)
}

// CreateObject inserts a construction object. The first object becomes the
// current one.
func (s *Service) CreateObject(ctx context.Context, obj domain.ConstructionObject) (domain.ConstructionObject, domain.Result, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.createObject(ctx, obj)
}

func (s *Service) createObject(ctx context.Context, obj domain.ConstructionObject) (domain.ConstructionObject, domain.Result, error) {
	if strings.TrimSpace(obj.Name) == "" {
		return domain.ConstructionObject{}, domain.Result{}, errObjectName
	}
	var created domain.ConstructionObject
	res, _, err := s.run(ctx, "create_object", func(tx domain.Transaction) error {
		obj.ID = ""
		created = tx.PutObject(obj)
		return nil
	})
	if err != nil {
		return domain.ConstructionObject{}, res, err
	}
	if s.current == "" {
		s.setCurrent(ctx, created.ID)
	}
	return created, res, nil
}

// UpdateObject renames an existing construction object.
func (s *Service) UpdateObject(ctx context.Context, obj domain.ConstructionObject) (domain.ConstructionObject, domain.Result, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if strings.TrimSpace(obj.Name) == "" {
		return domain.ConstructionObject{}, domain.Result{}, errObjectName
	}
	var updated domain.ConstructionObject
	res, _, err := s.run(ctx, "update_object", func(tx domain.Transaction) error {
		if _, ok := tx.Snapshot().FindObject(obj.ID); !ok {
			return domain.NotFoundError{Entity: domain.EntityObject, ID: obj.ID}
		}
		updated = tx.PutObject(obj)
		return nil
	})
	return updated, res, err
}

// DeleteObject removes a construction object together with every record
// scoped to it, trash included. Deleting an absent object is a no-op.
func (s *Service) DeleteObject(ctx context.Context, id string) (domain.Result, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	res, changes, err := s.run(ctx, "delete_object", func(tx domain.Transaction) error {
		if !tx.DeleteObject(id) {
			return nil
		}
		purgeScope(tx, id)
		return nil
	})
	if err != nil {
		return res, err
	}
	if touches(changes, domain.EntityAct) {
		s.history.reset()
	}
	if s.current == id {
		next := ""
		if objects := s.view(ctx).ListObjects(); len(objects) > 0 {
			next = objects[0].ID
		}
		s.setCurrent(ctx, next)
	}
	return res, nil
}

func purgeScope(tx domain.Transaction, objectID string) {
	view := tx.Snapshot()
	for _, v := range Scoped(view.ListPeople(), objectID) {
		tx.DeletePerson(v.ID)
	}
	for _, v := range Scoped(view.ListOrganizations(), objectID) {
		tx.DeleteOrganization(v.ID)
	}
	for _, v := range Scoped(view.ListGroups(), objectID) {
		tx.DeleteGroup(v.ID)
	}
	for _, v := range Scoped(view.ListActs(), objectID) {
		tx.DeleteAct(v.ID)
	}
	for _, v := range Scoped(view.ListCertificates(), objectID) {
		tx.DeleteCertificate(v.ID)
	}
	for _, v := range Scoped(view.ListRegulations(), objectID) {
		tx.DeleteRegulation(v.ID)
	}
	for _, v := range Scoped(view.ListDeletedActs(), objectID) {
		tx.DeleteDeletedAct(v.Act.ID)
	}
	for _, v := range Scoped(view.ListDeletedCertificates(), objectID) {
		tx.DeleteDeletedCertificate(v.Certificate.ID)
	}
}

// EnsureDefaultObject creates the first-run object when none exists and
// makes sure the current id points at an existing object.
func (s *Service) EnsureDefaultObject(ctx context.Context) (domain.ConstructionObject, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.ensureDefaultObject(ctx)
}

func (s *Service) ensureDefaultObject(ctx context.Context) (domain.ConstructionObject, error) {
	view := s.view(ctx)
	if obj, ok := view.FindObject(s.current); ok {
		return obj, nil
	}
	if objects := view.ListObjects(); len(objects) > 0 {
		s.setCurrent(ctx, objects[0].ID)
		return objects[0], nil
	}
	s.current = ""
	obj, _, err := s.createObject(ctx, domain.ConstructionObject{Name: DefaultObjectName})
	return obj, err
}
