package core

import (
	"context"
	"qcledger/pkg/domain"
	"strings"
)

func naturalKey(parts ...string) string {
	for i, p := range parts {
		parts[i] = strings.ToLower(strings.TrimSpace(p))
	}
	return strings.Join(parts, "\x00")
}

func orgKey(o domain.Organization) string { return naturalKey(o.INN, o.OGRN) }

func personKey(p domain.Person) string { return naturalKey(p.Name, p.Position) }

// CopyOrganizations copies organizations into targetID. An organization with
// the same INN and OGRN already in the target is reused instead of copied.
// The returned slice holds the target records in input order.
func (s *Service) CopyOrganizations(ctx context.Context, ids []string, targetID string) ([]domain.Organization, domain.Result, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []domain.Organization
	res, _, err := s.run(ctx, "copy_organizations", func(tx domain.Transaction) error {
		view := tx.Snapshot()
		if _, ok := view.FindObject(targetID); !ok {
			return domain.NotFoundError{Entity: domain.EntityObject, ID: targetID}
		}
		existing := make(map[string]domain.Organization)
		for _, o := range Scoped(view.ListOrganizations(), targetID) {
			existing[orgKey(o)] = o
		}
		for _, id := range ids {
			src, ok := view.FindOrganization(id)
			if !ok {
				return domain.NotFoundError{Entity: domain.EntityOrganization, ID: id}
			}
			if match, dup := existing[orgKey(src)]; dup {
				out = append(out, match)
				continue
			}
			src.ID = tx.NewID()
			src.ConstructionObjectID = targetID
			saved := tx.PutOrganization(src)
			existing[orgKey(saved)] = saved
			out = append(out, saved)
		}
		return nil
	})
	if err != nil {
		return nil, res, err
	}
	return out, res, nil
}

// CopyPeople copies people into targetID, reusing a target person with the
// same name and position.
func (s *Service) CopyPeople(ctx context.Context, ids []string, targetID string) ([]domain.Person, domain.Result, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []domain.Person
	res, _, err := s.run(ctx, "copy_people", func(tx domain.Transaction) error {
		view := tx.Snapshot()
		if _, ok := view.FindObject(targetID); !ok {
			return domain.NotFoundError{Entity: domain.EntityObject, ID: targetID}
		}
		existing := make(map[string]domain.Person)
		for _, p := range Scoped(view.ListPeople(), targetID) {
			existing[personKey(p)] = p
		}
		for _, id := range ids {
			src, ok := view.FindPerson(id)
			if !ok {
				return domain.NotFoundError{Entity: domain.EntityPerson, ID: id}
			}
			if match, dup := existing[personKey(src)]; dup {
				out = append(out, match)
				continue
			}
			src.ID = tx.NewID()
			src.ConstructionObjectID = targetID
			saved := tx.PutPerson(src)
			existing[personKey(saved)] = saved
			out = append(out, saved)
		}
		return nil
	})
	if err != nil {
		return nil, res, err
	}
	return out, res, nil
}
