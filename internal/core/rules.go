package core

import "qcledger/pkg/domain"

// NewDefaultRulesEngine builds a rules engine with the built-in policy set.
func NewDefaultRulesEngine() *domain.RulesEngine {
	engine := domain.NewRulesEngine()
	engine.Register(ScopeIntegrityRule())
	engine.Register(ActChainRule())
	engine.Register(RepresentativeReferenceRule())
	return engine
}
