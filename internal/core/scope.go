package core

import (
	"context"
	"qcledger/pkg/domain"
)

// Scoped returns the records belonging to objectID in their original order.
// An empty objectID yields an empty view.
func Scoped[T domain.Scoped](items []T, objectID string) []T {
	out := make([]T, 0)
	if objectID == "" {
		return out
	}
	for _, item := range items {
		if item.ObjectID() == objectID {
			out = append(out, item)
		}
	}
	return out
}

// ScopeView is the working set of one construction object.
type ScopeView struct {
	Object              domain.ConstructionObject
	People              []domain.Person
	Organizations       []domain.Organization
	Groups              []domain.CommissionGroup
	Acts                []domain.Act
	Certificates        []domain.Certificate
	Regulations         []domain.Regulation
	DeletedActs         []domain.DeletedActEntry
	DeletedCertificates []domain.DeletedCertificateEntry
}

// Scope returns the records scoped to objectID. An unknown or empty id
// yields an empty view.
func (s *Service) Scope(ctx context.Context, objectID string) ScopeView {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return scopeOf(s.view(ctx), objectID)
}

// CurrentScope returns the records of the current object.
func (s *Service) CurrentScope(ctx context.Context) ScopeView {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return scopeOf(s.view(ctx), s.current)
}

func scopeOf(view domain.TransactionView, objectID string) ScopeView {
	obj, ok := view.FindObject(objectID)
	if !ok {
		objectID = ""
	}
	return ScopeView{
		Object:              obj,
		People:              Scoped(view.ListPeople(), objectID),
		Organizations:       Scoped(view.ListOrganizations(), objectID),
		Groups:              Scoped(view.ListGroups(), objectID),
		Acts:                Scoped(view.ListActs(), objectID),
		Certificates:        Scoped(view.ListCertificates(), objectID),
		Regulations:         Scoped(view.ListRegulations(), objectID),
		DeletedActs:         Scoped(view.ListDeletedActs(), objectID),
		DeletedCertificates: Scoped(view.ListDeletedCertificates(), objectID),
	}
}
