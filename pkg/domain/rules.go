package domain

import "context"

// RuleView provides read-only access to active records for rule evaluation.
type RuleView interface {
	ListObjects() []ConstructionObject
	ListPeople() []Person
	ListOrganizations() []Organization
	ListGroups() []CommissionGroup
	ListActs() []Act
	ListCertificates() []Certificate
	ListRegulations() []Regulation
	FindObject(id string) (ConstructionObject, bool)
	FindPerson(id string) (Person, bool)
	FindOrganization(id string) (Organization, bool)
	FindGroup(id string) (CommissionGroup, bool)
	FindAct(id string) (Act, bool)
}

// Rule defines an evaluation executed within a transaction boundary.
type Rule interface {
	Name() string
	Evaluate(ctx context.Context, view RuleView, changes []Change) (Result, error)
}

// RulesEngine orchestrates rule evaluation.
type RulesEngine struct {
	rules []Rule
}

// NewRulesEngine constructs an engine instance.
func NewRulesEngine() *RulesEngine {
	return &RulesEngine{}
}

// Register appends a rule to the engine.
func (e *RulesEngine) Register(rule Rule) {
	e.rules = append(e.rules, rule)
}

// Rules returns the registered rules in evaluation order.
func (e *RulesEngine) Rules() []Rule {
	return append([]Rule(nil), e.rules...)
}

// Evaluate executes all registered rules and aggregates their results.
func (e *RulesEngine) Evaluate(ctx context.Context, view RuleView, changes []Change) (Result, error) {
	var combined Result
	for _, rule := range e.rules {
		res, err := rule.Evaluate(ctx, view, changes)
		if err != nil {
			return Result{}, err
		}
		combined.Merge(res)
	}
	return combined, nil
}
