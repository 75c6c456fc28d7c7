package core

import (
	"context"
	"fmt"
	"qcledger/pkg/domain"
	"sort"
)

// RepresentativeReferenceRule warns about representatives that point at
// people missing from the record's construction object.
func RepresentativeReferenceRule() domain.Rule {
	return representativeReferenceRule{}
}

type representativeReferenceRule struct{}

func (representativeReferenceRule) Name() string { return "representative_reference" }

func (r representativeReferenceRule) Evaluate(_ context.Context, view domain.RuleView, changes []domain.Change) (domain.Result, error) {
	res := domain.Result{}
	warn := func(entity domain.EntityType, id, objectID string, reps map[string]string) {
		roles := make([]string, 0, len(reps))
		for role := range reps {
			roles = append(roles, role)
		}
		sort.Strings(roles)
		for _, role := range roles {
			person, ok := view.FindPerson(reps[role])
			if ok && person.ConstructionObjectID == objectID {
				continue
			}
			res.Violations = append(res.Violations, domain.Violation{
				Rule:     r.Name(),
				Severity: domain.SeverityWarn,
				Message:  fmt.Sprintf("%s %s role %s references person %s outside its object", entity, id, role, reps[role]),
				Entity:   entity,
				EntityID: id,
			})
		}
	}
	for _, change := range changes {
		switch after := change.After.(type) {
		case domain.Act:
			warn(change.Entity, after.ID, after.ConstructionObjectID, after.Representatives)
		case domain.CommissionGroup:
			warn(change.Entity, after.ID, after.ConstructionObjectID, after.Representatives)
		}
	}
	return res, nil
}
