package core

import (
	"context"
	"fmt"
	"qcledger/pkg/domain"
)

// ScopeIntegrityRule blocks writes of records whose construction object does
// not exist.
func ScopeIntegrityRule() domain.Rule {
	return scopeIntegrityRule{}
}

type scopeIntegrityRule struct{}

func (scopeIntegrityRule) Name() string { return "scope_integrity" }

func (r scopeIntegrityRule) Evaluate(_ context.Context, view domain.RuleView, changes []domain.Change) (domain.Result, error) {
	res := domain.Result{}
	objects := make(map[string]struct{})
	for _, o := range view.ListObjects() {
		objects[o.ID] = struct{}{}
	}
	check := func(entity domain.EntityType, id string, scoped domain.Scoped) {
		objectID := scoped.ObjectID()
		if _, ok := objects[objectID]; ok {
			return
		}
		res.Violations = append(res.Violations, domain.Violation{
			Rule:     r.Name(),
			Severity: domain.SeverityBlock,
			Message:  fmt.Sprintf("%s %s references missing construction object %q", entity, id, objectID),
			Entity:   entity,
			EntityID: id,
		})
	}
	for _, change := range changes {
		if change.After == nil {
			continue
		}
		if change.Action == domain.ActionReplace {
			eachScoped(change.After, func(id string, scoped domain.Scoped) {
				check(change.Entity, id, scoped)
			})
			continue
		}
		if scoped, ok := change.After.(domain.Scoped); ok {
			check(change.Entity, change.ID, scoped)
		}
	}
	return res, nil
}

func eachScoped(values any, fn func(id string, scoped domain.Scoped)) {
	switch v := values.(type) {
	case []domain.Person:
		visitScoped(v, fn)
	case []domain.Organization:
		visitScoped(v, fn)
	case []domain.CommissionGroup:
		visitScoped(v, fn)
	case []domain.Act:
		visitScoped(v, fn)
	case []domain.Certificate:
		visitScoped(v, fn)
	case []domain.Regulation:
		visitScoped(v, fn)
	case []domain.DeletedActEntry:
		visitScoped(v, fn)
	case []domain.DeletedCertificateEntry:
		visitScoped(v, fn)
	}
}

func visitScoped[T interface {
	domain.Scoped
	RecordID() string
}](values []T, fn func(id string, scoped domain.Scoped)) {
	for _, v := range values {
		fn(v.RecordID(), v)
	}
}
