package core

import (
	"context"
	"fmt"
	"qcledger/pkg/domain"
	"slices"
	"strings"
)

func requireName(entity domain.EntityType, name string) error {
	if strings.TrimSpace(name) == "" {
		return fmt.Errorf("%s name is required", entity)
	}
	return nil
}

func (s *Service) scopeOrCurrent(objectID string) string {
	if objectID == "" {
		return s.current
	}
	return objectID
}

// SavePerson inserts or updates a person in its construction object, which
// defaults to the current one.
func (s *Service) SavePerson(ctx context.Context, person domain.Person) (domain.Person, domain.Result, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := requireName(domain.EntityPerson, person.Name); err != nil {
		return domain.Person{}, domain.Result{}, err
	}
	person.ConstructionObjectID = s.scopeOrCurrent(person.ConstructionObjectID)
	var saved domain.Person
	res, _, err := s.run(ctx, "save_person", func(tx domain.Transaction) error {
		saved = tx.PutPerson(person)
		return nil
	})
	return saved, res, err
}

// DeletePerson removes a person and every representative role that pointed
// at it in acts and commission groups of the same object.
func (s *Service) DeletePerson(ctx context.Context, id string) (domain.Result, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	res, changes, err := s.run(ctx, "delete_person", func(tx domain.Transaction) error {
		view := tx.Snapshot()
		person, ok := view.FindPerson(id)
		if !ok {
			return nil
		}
		tx.DeletePerson(id)
		for _, g := range Scoped(view.ListGroups(), person.ConstructionObjectID) {
			if dropRepresentative(g.Representatives, id) {
				tx.PutGroup(g)
			}
		}
		for _, a := range Scoped(view.ListActs(), person.ConstructionObjectID) {
			if dropRepresentative(a.Representatives, id) {
				tx.PutAct(a)
			}
		}
		return nil
	})
	s.resetHistoryIfActsChanged(changes)
	return res, err
}

func dropRepresentative(reps map[string]string, personID string) bool {
	changed := false
	for role, id := range reps {
		if id == personID {
			delete(reps, role)
			changed = true
		}
	}
	return changed
}

// Cascades rewrite acts outside the undo stack; reinstalling an older act
// collection would resurrect the removed references.
func (s *Service) resetHistoryIfActsChanged(changes []domain.Change) {
	if touches(changes, domain.EntityAct) {
		s.history.reset()
	}
}

// SaveOrganization inserts or updates an organization.
func (s *Service) SaveOrganization(ctx context.Context, org domain.Organization) (domain.Organization, domain.Result, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := requireName(domain.EntityOrganization, org.Name); err != nil {
		return domain.Organization{}, domain.Result{}, err
	}
	org.ConstructionObjectID = s.scopeOrCurrent(org.ConstructionObjectID)
	var saved domain.Organization
	res, _, err := s.run(ctx, "save_organization", func(tx domain.Transaction) error {
		saved = tx.PutOrganization(org)
		return nil
	})
	return saved, res, err
}

// DeleteOrganization removes an organization. It is rejected with an
// IntegrityConflictError while people of the same object name it as their
// organization. Org-role links in groups and acts are cleared.
func (s *Service) DeleteOrganization(ctx context.Context, id string) (domain.Result, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	res, changes, err := s.run(ctx, "delete_organization", func(tx domain.Transaction) error {
		view := tx.Snapshot()
		org, ok := view.FindOrganization(id)
		if !ok {
			return nil
		}
		var dependents []string
		for _, p := range Scoped(view.ListPeople(), org.ConstructionObjectID) {
			if p.Organization == org.Name {
				dependents = append(dependents, p.Name)
			}
		}
		if len(dependents) > 0 {
			return domain.IntegrityConflictError{
				Entity:     domain.EntityOrganization,
				ID:         org.ID,
				Name:       org.Name,
				Dependent:  domain.EntityPerson,
				Dependents: dependents,
			}
		}
		tx.DeleteOrganization(id)
		for _, g := range Scoped(view.ListGroups(), org.ConstructionObjectID) {
			if clearOrgRoles(&g.OrgRoles, id) {
				tx.PutGroup(g)
			}
		}
		for _, a := range Scoped(view.ListActs(), org.ConstructionObjectID) {
			if clearOrgRoles(&a.OrgRoles, id) {
				tx.PutAct(a)
			}
		}
		return nil
	})
	s.resetHistoryIfActsChanged(changes)
	return res, err
}

func clearOrgRoles(roles *domain.OrgRoles, orgID string) bool {
	changed := false
	for _, ref := range roles.Refs() {
		if *ref == orgID {
			*ref = ""
			changed = true
		}
	}
	return changed
}

// SaveGroup inserts or updates a commission group.
func (s *Service) SaveGroup(ctx context.Context, group domain.CommissionGroup) (domain.CommissionGroup, domain.Result, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := requireName(domain.EntityGroup, group.Name); err != nil {
		return domain.CommissionGroup{}, domain.Result{}, err
	}
	group.ConstructionObjectID = s.scopeOrCurrent(group.ConstructionObjectID)
	var saved domain.CommissionGroup
	res, _, err := s.run(ctx, "save_group", func(tx domain.Transaction) error {
		saved = tx.PutGroup(group)
		return nil
	})
	return saved, res, err
}

// DeleteGroup removes a commission group and clears it from every act of the
// same object that used it.
func (s *Service) DeleteGroup(ctx context.Context, id string) (domain.Result, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	res, changes, err := s.run(ctx, "delete_group", func(tx domain.Transaction) error {
		view := tx.Snapshot()
		group, ok := view.FindGroup(id)
		if !ok {
			return nil
		}
		tx.DeleteGroup(id)
		for _, a := range Scoped(view.ListActs(), group.ConstructionObjectID) {
			if a.CommissionGroupID == id {
				a.CommissionGroupID = ""
				tx.PutAct(a)
			}
		}
		return nil
	})
	s.resetHistoryIfActsChanged(changes)
	return res, err
}

// SaveAct inserts or updates an act. A successor link refreshes the act's
// next-work text, and acts pointing at the saved act get their text
// regenerated from its current number and work name.
func (s *Service) SaveAct(ctx context.Context, act domain.Act) (domain.Act, domain.Result, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	act.ConstructionObjectID = s.scopeOrCurrent(act.ConstructionObjectID)
	var saved domain.Act
	res, _, err := s.runActs(ctx, "save_act", func(tx domain.Transaction) error {
		view := tx.Snapshot()
		if act.ObjectName == "" {
			if obj, ok := view.FindObject(act.ConstructionObjectID); ok {
				act.ObjectName = obj.Name
			}
		}
		if act.CopiesCount == 0 {
			act.CopiesCount = s.settings.Project.DefaultCopiesCount
		}
		if act.NextWorkActID != "" {
			if err := checkChain(view, act); err != nil {
				return err
			}
			next, ok := view.FindAct(act.NextWorkActID)
			if !ok {
				return domain.NotFoundError{Entity: domain.EntityAct, ID: act.NextWorkActID}
			}
			act.NextWork = domain.SuccessorDescription(next)
		}
		saved = tx.PutAct(act)
		for _, other := range view.ListActs() {
			if other.ID == saved.ID || other.NextWorkActID != saved.ID {
				continue
			}
			other.NextWork = domain.SuccessorDescription(saved)
			tx.PutAct(other)
		}
		return nil
	})
	return saved, res, err
}

func checkChain(view domain.RuleView, act domain.Act) error {
	if act.NextWorkActID == act.ID {
		return domain.ActChainError{ActID: act.ID, Number: act.Number, Path: []string{act.ID}}
	}
	if act.ID == "" {
		return nil
	}
	next := make(map[string]string)
	for _, a := range view.ListActs() {
		next[a.ID] = a.NextWorkActID
	}
	next[act.ID] = act.NextWorkActID
	if path, cyclic := chainFrom(act.ID, next); cyclic {
		return domain.ActChainError{ActID: act.ID, Number: act.Number, Path: path}
	}
	return nil
}

// MoveAct repositions an act within the act collection; index is clamped to
// the collection bounds.
func (s *Service) MoveAct(ctx context.Context, id string, index int) (domain.Result, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	res, _, err := s.runActs(ctx, "move_act", func(tx domain.Transaction) error {
		if !tx.MoveAct(id, index) {
			return domain.NotFoundError{Entity: domain.EntityAct, ID: id}
		}
		return nil
	})
	return res, err
}

// DeleteActs permanently removes active acts without passing through the
// trash. Acts pointing at a removed act lose the link. Absent ids are ignored.
func (s *Service) DeleteActs(ctx context.Context, ids []string) (domain.Result, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	res, _, err := s.runActs(ctx, "delete_acts", func(tx domain.Transaction) error {
		removed := make(map[string]domain.Act)
		for _, id := range ids {
			if a, ok := tx.Snapshot().FindAct(id); ok {
				tx.DeleteAct(id)
				removed[id] = a
			}
		}
		detachSuccessors(tx, removed)
		return nil
	})
	return res, err
}

// detachSuccessors clears successor links into removed acts and leaves a
// note naming the deleted act's number.
func detachSuccessors(tx domain.Transaction, removed map[string]domain.Act) {
	if len(removed) == 0 {
		return
	}
	for _, a := range tx.Snapshot().ListActs() {
		gone, ok := removed[a.NextWorkActID]
		if !ok {
			continue
		}
		a.NextWorkActID = ""
		a.NextWork = domain.DeletedSuccessorDescription(gone.Number)
		tx.PutAct(a)
	}
}

// SaveCertificate inserts or updates a certificate. Attachments without an
// id receive one.
func (s *Service) SaveCertificate(ctx context.Context, cert domain.Certificate) (domain.Certificate, domain.Result, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if strings.TrimSpace(cert.Number) == "" {
		return domain.Certificate{}, domain.Result{}, fmt.Errorf("%s number is required", domain.EntityCertificate)
	}
	cert.ConstructionObjectID = s.scopeOrCurrent(cert.ConstructionObjectID)
	var saved domain.Certificate
	res, _, err := s.run(ctx, "save_certificate", func(tx domain.Transaction) error {
		cert.Files = slices.Clone(cert.Files)
		for i := range cert.Files {
			if cert.Files[i].ID == "" {
				cert.Files[i].ID = tx.NewID()
			}
		}
		saved = tx.PutCertificate(cert)
		return nil
	})
	return saved, res, err
}

// SaveRegulation inserts or updates a regulation reference.
func (s *Service) SaveRegulation(ctx context.Context, reg domain.Regulation) (domain.Regulation, domain.Result, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if strings.TrimSpace(reg.Designation) == "" {
		return domain.Regulation{}, domain.Result{}, fmt.Errorf("%s designation is required", domain.EntityRegulation)
	}
	reg.ConstructionObjectID = s.scopeOrCurrent(reg.ConstructionObjectID)
	var saved domain.Regulation
	res, _, err := s.run(ctx, "save_regulation", func(tx domain.Transaction) error {
		saved = tx.PutRegulation(reg)
		return nil
	})
	return saved, res, err
}

// DeleteRegulation removes a regulation; absent ids are ignored.
func (s *Service) DeleteRegulation(ctx context.Context, id string) (domain.Result, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	res, _, err := s.run(ctx, "delete_regulation", func(tx domain.Transaction) error {
		tx.DeleteRegulation(id)
		return nil
	})
	return res, err
}
