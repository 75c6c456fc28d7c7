package core

import (
	"context"
	"fmt"
	"qcledger/pkg/domain"
	"strings"
)

// ActChainRule blocks successor links that point at the act itself or close
// a cycle through other acts.
func ActChainRule() domain.Rule {
	return actChainRule{}
}

type actChainRule struct{}

func (actChainRule) Name() string { return "act_chain" }

func (r actChainRule) Evaluate(_ context.Context, view domain.RuleView, changes []domain.Change) (domain.Result, error) {
	res := domain.Result{}
	if !touches(changes, domain.EntityAct) {
		return res, nil
	}
	acts := view.ListActs()
	next := make(map[string]string, len(acts))
	for _, a := range acts {
		next[a.ID] = a.NextWorkActID
	}
	reported := make(map[string]struct{})
	for _, a := range acts {
		if a.NextWorkActID == "" {
			continue
		}
		path, cyclic := chainFrom(a.ID, next)
		if !cyclic {
			continue
		}
		if _, dup := reported[a.ID]; dup {
			continue
		}
		for _, id := range path {
			reported[id] = struct{}{}
		}
		res.Violations = append(res.Violations, domain.Violation{
			Rule:     r.Name(),
			Severity: domain.SeverityBlock,
			Message:  fmt.Sprintf("act %s next work chain loops: %s", a.ID, strings.Join(path, " -> ")),
			Entity:   domain.EntityAct,
			EntityID: a.ID,
		})
	}
	return res, nil
}

// chainFrom follows successor links starting at id. It reports the visited
// path ending with id again when the walk returns to the start.
func chainFrom(id string, next map[string]string) ([]string, bool) {
	path := []string{id}
	seen := map[string]struct{}{id: {}}
	cur := next[id]
	for cur != "" {
		path = append(path, cur)
		if cur == id {
			return path, true
		}
		if _, loop := seen[cur]; loop {
			// a loop further down the chain is reported from its own members
			return path, false
		}
		seen[cur] = struct{}{}
		cur = next[cur]
	}
	return path, false
}
