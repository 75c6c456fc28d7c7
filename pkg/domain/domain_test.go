package domain

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestKeyForCoversEveryStoredEntity(t *testing.T) {
	entities := []EntityType{
		EntityObject, EntityPerson, EntityOrganization, EntityGroup, EntityAct,
		EntityCertificate, EntityRegulation, EntityDeletedAct, EntityDeletedCertificate,
	}
	seen := make(map[CollectionKey]bool)
	for _, e := range entities {
		key, ok := KeyFor(e)
		if !ok {
			t.Fatalf("no key for %s", e)
		}
		seen[key] = true
	}
	for _, key := range RecordKeys {
		if !seen[key] {
			t.Fatalf("record key %s has no entity", key)
		}
	}
	if _, ok := KeyFor("unknown"); ok {
		t.Fatalf("unknown entity must not map to a key")
	}
}

func TestImportDataPresence(t *testing.T) {
	data := ImportData{People: []Person{}, Acts: []Act{{ID: "a"}}, Template: "x"}
	if !data.Has(KeyPeople) || data.Has(KeyOrganizations) || !data.Has(KeySettings) {
		t.Fatalf("unexpected presence")
	}
	if diff := cmp.Diff([]CollectionKey{KeyPeople, KeyActs}, data.Keys()); diff != "" {
		t.Fatalf("keys mismatch (-want +got):\n%s", diff)
	}
	if (ImportData{}).Has(KeySettings) {
		t.Fatalf("empty data has no settings")
	}
}

func TestSuccessorDescriptions(t *testing.T) {
	if got := SuccessorDescription(Act{Number: "5"}); got != "Акт №5" {
		t.Fatalf("unexpected %q", got)
	}
	if got := SuccessorDescription(Act{Number: "5", WorkName: "Бетонирование"}); got != "Бетонирование (акт №5)" {
		t.Fatalf("unexpected %q", got)
	}
	if got := DeletedSuccessorDescription("5"); got != "Акт №5 удалён" {
		t.Fatalf("unexpected %q", got)
	}
}

func TestCloneIsIndependent(t *testing.T) {
	group := CommissionGroup{ID: "g", Representatives: map[string]string{"t": "p1"}}
	entry := DeletedActEntry{Act: Act{ID: "a", Representatives: map[string]string{"t": "p1"}}, AssociatedGroup: &group}
	cp := entry.Clone()
	cp.Act.Representatives["t"] = "p2"
	cp.AssociatedGroup.Representatives["t"] = "p2"
	if entry.Act.Representatives["t"] != "p1" || group.Representatives["t"] != "p1" {
		t.Fatalf("clone shares maps with the original")
	}

	cert := Certificate{ID: "c", Materials: []string{}, Files: []CertificateFile{{ID: "f"}}}
	cc := cert.Clone()
	cc.Files[0].ID = "changed"
	if cert.Files[0].ID != "f" {
		t.Fatalf("clone shares files with the original")
	}
	if cc.Materials == nil {
		t.Fatalf("empty materials must stay non-nil")
	}
}

func TestOrgRolesReferences(t *testing.T) {
	roles := OrgRoles{ContractorOrgID: "o1"}
	if !roles.References("o1") || roles.References("o2") || roles.References("") {
		t.Fatalf("unexpected reference check")
	}
	for _, ref := range roles.Refs() {
		*ref = ""
	}
	if roles.ContractorOrgID != "" {
		t.Fatalf("refs must address the fields")
	}
}

func TestLocalizedErrors(t *testing.T) {
	cases := []struct {
		err  interface{ Localized() string }
		want string
	}{
		{NotFoundError{Entity: EntityAct, ID: "a1"}, "акт"},
		{IntegrityConflictError{Entity: EntityOrganization, Name: "СтройКо", Dependent: EntityPerson, Dependents: []string{"Иванов"}}, "Иванов"},
		{GroupRestoreDecisionError{Groups: []CommissionGroup{{Name: "Комиссия 1"}}}, "Комиссия 1"},
		{ActChainError{ActID: "a", Number: "12"}, "№12"},
		{ImportValidationError{Problems: []ImportProblem{{Key: KeyActs, Err: errors.New("bad")}}}, "acts"},
	}
	for _, c := range cases {
		if got := c.err.Localized(); !strings.Contains(got, c.want) {
			t.Fatalf("%T: %q does not mention %q", c.err, got, c.want)
		}
	}
	chain := ActChainError{ActID: "a", Path: []string{"a", "b", "a"}}
	if !strings.Contains(chain.Error(), "a -> b -> a") {
		t.Fatalf("unexpected chain error %q", chain.Error())
	}
	if EntityType("x").Label() != "x" {
		t.Fatalf("unknown entity label must fall back to the type")
	}
}

type ruleStub struct {
	name string
	res  Result
	err  error
}

func (r ruleStub) Name() string { return r.name }

func (r ruleStub) Evaluate(context.Context, RuleView, []Change) (Result, error) {
	return r.res, r.err
}

func TestRulesEngineAggregates(t *testing.T) {
	engine := NewRulesEngine()
	engine.Register(ruleStub{name: "warn", res: Result{Violations: []Violation{{Rule: "warn", Severity: SeverityWarn}}}})
	engine.Register(ruleStub{name: "block", res: Result{Violations: []Violation{{Rule: "block", Severity: SeverityBlock, Message: "nope"}}}})
	res, err := engine.Evaluate(context.Background(), nil, nil)
	if err != nil {
		t.Fatalf("evaluate: %v", err)
	}
	if len(res.Violations) != 2 || !res.HasBlocking() {
		t.Fatalf("unexpected result %+v", res)
	}
	if msg := (RuleViolationError{Result: res}).Error(); !strings.HasSuffix(msg, "nope") {
		t.Fatalf("unexpected message %q", msg)
	}
	if len(engine.Rules()) != 2 {
		t.Fatalf("expected registered rules")
	}

	engine.Register(ruleStub{name: "err", err: errors.New("boom")})
	if _, err := engine.Evaluate(context.Background(), nil, nil); err == nil {
		t.Fatalf("expected rule error")
	}
}
