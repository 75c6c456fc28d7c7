// Package memory provides the in-memory entity store: ordered, id-indexed
// record tables mutated through clone-on-write transactions.
package memory

import (
	"context"
	"qcledger/internal/ordering"
	"qcledger/pkg/domain"
	"slices"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Compile-time contract assertions ensuring memory.Store adheres to the domain interfaces.
var (
	_ domain.EntityStore     = (*Store)(nil)
	_ domain.Transaction     = (*transaction)(nil)
	_ domain.TransactionView = transactionView{}
)

type (
	// ConstructionObject aliases domain.ConstructionObject.
	ConstructionObject = domain.ConstructionObject
	// Person aliases domain.Person.
	Person = domain.Person
	// Organization aliases domain.Organization.
	Organization = domain.Organization
	// CommissionGroup aliases domain.CommissionGroup.
	CommissionGroup = domain.CommissionGroup
	// Act aliases domain.Act.
	Act = domain.Act
	// Certificate aliases domain.Certificate.
	Certificate = domain.Certificate
	// Regulation aliases domain.Regulation.
	Regulation = domain.Regulation
	// DeletedActEntry aliases domain.DeletedActEntry.
	DeletedActEntry = domain.DeletedActEntry
	// DeletedCertificateEntry aliases domain.DeletedCertificateEntry.
	DeletedCertificateEntry = domain.DeletedCertificateEntry
	// Change aliases domain.Change captured in transactions.
	Change = domain.Change
	// Result aliases domain.Result summarizing rule evaluation.
	Result = domain.Result
	// RulesEngine aliases domain.RulesEngine used to evaluate rules.
	RulesEngine = domain.RulesEngine
	// Transaction aliases domain.Transaction representing a mutable unit of work.
	Transaction = domain.Transaction
	// TransactionView aliases domain.TransactionView providing read-only state.
	TransactionView = domain.TransactionView
)

// table is an ordered arena of records keyed by id. Records are cloned on the
// way in and on the way out so callers never share maps or slices with it.
type table[T domain.Record[T]] struct {
	order []string
	rows  map[string]T
	cmp   func(a, b T) int
}

func newTable[T domain.Record[T]](cmp func(a, b T) int) *table[T] {
	return &table[T]{rows: make(map[string]T), cmp: cmp}
}

func (t *table[T]) get(id string) (T, bool) {
	v, ok := t.rows[id]
	if !ok {
		var zero T
		return zero, false
	}
	return v.Clone(), true
}

// put inserts or replaces v. A replacement keeps its position; an insert goes
// to the end, or to the front when front is set. Sorted tables re-sort.
func (t *table[T]) put(v T, front bool) (T, bool) {
	id := v.RecordID()
	before, existed := t.rows[id]
	t.rows[id] = v.Clone()
	if !existed {
		if front {
			t.order = append([]string{id}, t.order...)
		} else {
			t.order = append(t.order, id)
		}
	}
	t.sort()
	return before, existed
}

func (t *table[T]) remove(id string) (T, bool) {
	v, ok := t.rows[id]
	if !ok {
		var zero T
		return zero, false
	}
	delete(t.rows, id)
	if i := slices.Index(t.order, id); i >= 0 {
		t.order = slices.Delete(t.order, i, i+1)
	}
	return v, true
}

func (t *table[T]) move(id string, index int) bool {
	i := slices.Index(t.order, id)
	if i < 0 {
		return false
	}
	t.order = slices.Delete(t.order, i, i+1)
	index = max(0, min(index, len(t.order)))
	t.order = slices.Insert(t.order, index, id)
	return true
}

// replace substitutes the whole table. Later duplicates win but keep the
// position of the first occurrence.
func (t *table[T]) replace(values []T) {
	t.order = make([]string, 0, len(values))
	t.rows = make(map[string]T, len(values))
	for _, v := range values {
		id := v.RecordID()
		if _, dup := t.rows[id]; !dup {
			t.order = append(t.order, id)
		}
		t.rows[id] = v.Clone()
	}
	t.sort()
}

func (t *table[T]) list() []T {
	out := make([]T, 0, len(t.order))
	for _, id := range t.order {
		out = append(out, t.rows[id].Clone())
	}
	return out
}

func (t *table[T]) sort() {
	if t.cmp == nil {
		return
	}
	slices.SortStableFunc(t.order, func(a, b string) int {
		return t.cmp(t.rows[a], t.rows[b])
	})
}

func (t *table[T]) clone() *table[T] {
	cp := &table[T]{
		order: append([]string(nil), t.order...),
		rows:  make(map[string]T, len(t.rows)),
		cmp:   t.cmp,
	}
	for id, v := range t.rows {
		cp.rows[id] = v.Clone()
	}
	return cp
}

type memoryState struct {
	objects             *table[ConstructionObject]
	people              *table[Person]
	organizations       *table[Organization]
	groups              *table[CommissionGroup]
	acts                *table[Act]
	certificates        *table[Certificate]
	regulations         *table[Regulation]
	deletedActs         *table[DeletedActEntry]
	deletedCertificates *table[DeletedCertificateEntry]
}

// Snapshot captures a point-in-time copy of the store state in canonical order.
type Snapshot struct {
	Objects             []ConstructionObject      `json:"objects"`
	People              []Person                  `json:"people"`
	Organizations       []Organization            `json:"organizations"`
	Groups              []CommissionGroup         `json:"groups"`
	Acts                []Act                     `json:"acts"`
	Certificates        []Certificate             `json:"certificates"`
	Regulations         []Regulation              `json:"regulations"`
	DeletedActs         []DeletedActEntry         `json:"deletedActs"`
	DeletedCertificates []DeletedCertificateEntry `json:"deletedCertificates"`
}

// Acts and certificates keep user order; trash keeps newest first.
func newMemoryState(names *ordering.Names) memoryState {
	return memoryState{
		objects:             newTable(names.Objects),
		people:              newTable(names.People),
		organizations:       newTable(names.Organizations),
		groups:              newTable(names.Groups),
		acts:                newTable[Act](nil),
		certificates:        newTable[Certificate](nil),
		regulations:         newTable(names.Regulations),
		deletedActs:         newTable[DeletedActEntry](nil),
		deletedCertificates: newTable[DeletedCertificateEntry](nil),
	}
}

func snapshotFromMemoryState(state memoryState) Snapshot {
	return Snapshot{
		Objects:             state.objects.list(),
		People:              state.people.list(),
		Organizations:       state.organizations.list(),
		Groups:              state.groups.list(),
		Acts:                state.acts.list(),
		Certificates:        state.certificates.list(),
		Regulations:         state.regulations.list(),
		DeletedActs:         state.deletedActs.list(),
		DeletedCertificates: state.deletedCertificates.list(),
	}
}

func memoryStateFromSnapshot(s Snapshot, names *ordering.Names) memoryState {
	state := newMemoryState(names)
	state.objects.replace(s.Objects)
	state.people.replace(s.People)
	state.organizations.replace(s.Organizations)
	state.groups.replace(s.Groups)
	state.acts.replace(s.Acts)
	state.certificates.replace(s.Certificates)
	state.regulations.replace(s.Regulations)
	state.deletedActs.replace(s.DeletedActs)
	state.deletedCertificates.replace(s.DeletedCertificates)
	return state
}

// migrateSnapshot normalises snapshots written by older builds: nil maps become
// empty and acts lose successor links that point at themselves or nowhere.
func migrateSnapshot(snapshot Snapshot) Snapshot {
	snapshot.Acts = slices.Clone(snapshot.Acts)
	snapshot.Groups = slices.Clone(snapshot.Groups)
	snapshot.Certificates = slices.Clone(snapshot.Certificates)
	actIDs := make(map[string]struct{}, len(snapshot.Acts))
	for _, act := range snapshot.Acts {
		actIDs[act.ID] = struct{}{}
	}
	for i, act := range snapshot.Acts {
		if act.Representatives == nil {
			act.Representatives = map[string]string{}
		}
		if act.NextWorkActID != "" {
			if _, ok := actIDs[act.NextWorkActID]; !ok || act.NextWorkActID == act.ID {
				act.NextWorkActID = ""
			}
		}
		snapshot.Acts[i] = act
	}
	breakActCycles(snapshot.Acts)
	for i, group := range snapshot.Groups {
		if group.Representatives == nil {
			group.Representatives = map[string]string{}
		}
		snapshot.Groups[i] = group
	}
	for i, cert := range snapshot.Certificates {
		if cert.Materials == nil {
			cert.Materials = []string{}
		}
		if cert.Files == nil {
			cert.Files = []domain.CertificateFile{}
		}
		snapshot.Certificates[i] = cert
	}
	return snapshot
}

// breakActCycles clears the successor link that closes each cycle in the act
// chain, walking acts in collection order.
func breakActCycles(acts []domain.Act) {
	pos := make(map[string]int, len(acts))
	for i, act := range acts {
		pos[act.ID] = i
	}
	done := make(map[string]bool, len(acts))
	for _, start := range acts {
		onPath := map[string]bool{}
		id := start.ID
		for id != "" && !done[id] {
			onPath[id] = true
			i := pos[id]
			next := acts[i].NextWorkActID
			if onPath[next] {
				acts[i].NextWorkActID = ""
				acts[i].NextWork = ""
				break
			}
			id = next
		}
		for id := range onPath {
			done[id] = true
		}
	}
}

func (s memoryState) clone() memoryState {
	return memoryState{
		objects:             s.objects.clone(),
		people:              s.people.clone(),
		organizations:       s.organizations.clone(),
		groups:              s.groups.clone(),
		acts:                s.acts.clone(),
		certificates:        s.certificates.clone(),
		regulations:         s.regulations.clone(),
		deletedActs:         s.deletedActs.clone(),
		deletedCertificates: s.deletedCertificates.clone(),
	}
}

// Store provides an in-memory transactional store for the ledger. Mutations
// are serialized; every transaction works on a private copy of the state.
type Store struct {
	mu     sync.RWMutex
	state  memoryState
	names  *ordering.Names
	engine *RulesEngine
	nowFn  func() time.Time
	idFn   func() string
}

// Option configures a Store.
type Option func(*Store)

// WithNowFunc overrides the clock used to stamp trash entries.
func WithNowFunc(fn func() time.Time) Option {
	return func(s *Store) {
		if fn != nil {
			s.nowFn = fn
		}
	}
}

// WithIDFunc overrides identifier generation.
func WithIDFunc(fn func() string) Option {
	return func(s *Store) {
		if fn != nil {
			s.idFn = fn
		}
	}
}

// NewStore constructs an in-memory store backed by the provided rules engine.
func NewStore(engine *RulesEngine, opts ...Option) *Store {
	if engine == nil {
		engine = domain.NewRulesEngine()
	}
	names := ordering.NewNames()
	s := &Store{
		state:  newMemoryState(names),
		names:  names,
		engine: engine,
		nowFn:  func() time.Time { return time.Now().UTC() },
		idFn:   uuid.NewString,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// ExportState clones the current store state for external persistence.
func (s *Store) ExportState() Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return snapshotFromMemoryState(s.state)
}

// ImportState replaces the store state with the provided snapshot.
func (s *Store) ImportState(snapshot Snapshot) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state = memoryStateFromSnapshot(migrateSnapshot(snapshot), s.names)
}

// RulesEngine exposes the currently configured engine.
func (s *Store) RulesEngine() *RulesEngine {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.engine
}

// NowFunc returns the time provider used by the store.
func (s *Store) NowFunc() func() time.Time {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.nowFn
}

// RunInTransaction executes fn within a transactional copy of the store
// state. The copy replaces the live state only when fn succeeds and no rule
// reports a blocking violation.
func (s *Store) RunInTransaction(ctx context.Context, fn func(tx Transaction) error) (Result, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	tx := &transaction{
		store: s,
		state: s.state.clone(),
		now:   s.nowFn(),
	}

	if err := fn(tx); err != nil {
		return Result{}, err
	}

	var result Result
	if s.engine != nil {
		view := newTransactionView(&tx.state)
		res, err := s.engine.Evaluate(ctx, view, tx.changes)
		if err != nil {
			return Result{}, err
		}
		result = res
		if res.HasBlocking() {
			return res, domain.RuleViolationError{Result: res}
		}
	}

	s.state = tx.state
	return result, nil
}

// View executes fn against a read-only snapshot of the store state.
func (s *Store) View(_ context.Context, fn func(TransactionView) error) error {
	s.mu.RLock()
	snapshot := s.state.clone()
	s.mu.RUnlock()
	return fn(newTransactionView(&snapshot))
}

type transaction struct {
	store   *Store
	state   memoryState
	changes []Change
	now     time.Time
}

// transactionView exposes read-only access to a state; inside a transaction it
// observes the transaction's uncommitted writes.
type transactionView struct {
	state *memoryState
}

func newTransactionView(state *memoryState) TransactionView {
	return transactionView{state: state}
}

func (v transactionView) ListObjects() []ConstructionObject { return v.state.objects.list() }
func (v transactionView) ListPeople() []Person              { return v.state.people.list() }
func (v transactionView) ListOrganizations() []Organization { return v.state.organizations.list() }
func (v transactionView) ListGroups() []CommissionGroup     { return v.state.groups.list() }
func (v transactionView) ListActs() []Act                   { return v.state.acts.list() }
func (v transactionView) ListCertificates() []Certificate   { return v.state.certificates.list() }
func (v transactionView) ListRegulations() []Regulation     { return v.state.regulations.list() }

// ListDeletedActs returns trashed acts, newest first.
func (v transactionView) ListDeletedActs() []DeletedActEntry { return v.state.deletedActs.list() }

// ListDeletedCertificates returns trashed certificates, newest first.
func (v transactionView) ListDeletedCertificates() []DeletedCertificateEntry {
	return v.state.deletedCertificates.list()
}

func (v transactionView) FindObject(id string) (ConstructionObject, bool) {
	return v.state.objects.get(id)
}
func (v transactionView) FindPerson(id string) (Person, bool) { return v.state.people.get(id) }
func (v transactionView) FindOrganization(id string) (Organization, bool) {
	return v.state.organizations.get(id)
}
func (v transactionView) FindGroup(id string) (CommissionGroup, bool) { return v.state.groups.get(id) }
func (v transactionView) FindAct(id string) (Act, bool)               { return v.state.acts.get(id) }
func (v transactionView) FindCertificate(id string) (Certificate, bool) {
	return v.state.certificates.get(id)
}
func (v transactionView) FindRegulation(id string) (Regulation, bool) {
	return v.state.regulations.get(id)
}

func (tx *transaction) recordChange(change Change) {
	tx.changes = append(tx.changes, change)
}

// Snapshot returns a read-only view over the transactional state.
func (tx *transaction) Snapshot() TransactionView { return newTransactionView(&tx.state) }

// Now returns the transaction timestamp.
func (tx *transaction) Now() time.Time { return tx.now }

// NewID returns a fresh identifier.
func (tx *transaction) NewID() string { return tx.store.idFn() }

// Changes returns the mutations recorded so far.
func (tx *transaction) Changes() []Change { return append([]Change(nil), tx.changes...) }

func putRecord[T domain.Record[T]](tx *transaction, t *table[T], entity domain.EntityType, v T, front bool) T {
	before, existed := t.put(v, front)
	action := domain.ActionCreate
	var beforeAny any
	if existed {
		action = domain.ActionUpdate
		beforeAny = before
	}
	tx.recordChange(Change{Entity: entity, Action: action, ID: v.RecordID(), Before: beforeAny, After: v.Clone()})
	return v.Clone()
}

func deleteRecord[T domain.Record[T]](tx *transaction, t *table[T], entity domain.EntityType, id string) bool {
	before, ok := t.remove(id)
	if !ok {
		return false
	}
	tx.recordChange(Change{Entity: entity, Action: domain.ActionDelete, ID: id, Before: before})
	return true
}

func replaceRecords[T domain.Record[T]](tx *transaction, t *table[T], entity domain.EntityType, values []T) {
	before := t.list()
	t.replace(values)
	tx.recordChange(Change{Entity: entity, Action: domain.ActionReplace, Before: before, After: t.list()})
}

func (tx *transaction) ensureID(id string) string {
	if id == "" {
		return tx.NewID()
	}
	return id
}

// PutObject inserts or replaces a construction object.
func (tx *transaction) PutObject(o ConstructionObject) ConstructionObject {
	o.ID = tx.ensureID(o.ID)
	return putRecord(tx, tx.state.objects, domain.EntityObject, o, false)
}

// DeleteObject removes a construction object; scoped records are left alone.
func (tx *transaction) DeleteObject(id string) bool {
	return deleteRecord(tx, tx.state.objects, domain.EntityObject, id)
}

// PutPerson inserts or replaces a person.
func (tx *transaction) PutPerson(p Person) Person {
	p.ID = tx.ensureID(p.ID)
	return putRecord(tx, tx.state.people, domain.EntityPerson, p, false)
}

// DeletePerson removes a person.
func (tx *transaction) DeletePerson(id string) bool {
	return deleteRecord(tx, tx.state.people, domain.EntityPerson, id)
}

// PutOrganization inserts or replaces an organization.
func (tx *transaction) PutOrganization(o Organization) Organization {
	o.ID = tx.ensureID(o.ID)
	return putRecord(tx, tx.state.organizations, domain.EntityOrganization, o, false)
}

// DeleteOrganization removes an organization.
func (tx *transaction) DeleteOrganization(id string) bool {
	return deleteRecord(tx, tx.state.organizations, domain.EntityOrganization, id)
}

// PutGroup inserts or replaces a commission group.
func (tx *transaction) PutGroup(g CommissionGroup) CommissionGroup {
	g.ID = tx.ensureID(g.ID)
	if g.Representatives == nil {
		g.Representatives = map[string]string{}
	}
	return putRecord(tx, tx.state.groups, domain.EntityGroup, g, false)
}

// DeleteGroup removes a commission group.
func (tx *transaction) DeleteGroup(id string) bool {
	return deleteRecord(tx, tx.state.groups, domain.EntityGroup, id)
}

// PutAct inserts or replaces an act, keeping its position on replace.
func (tx *transaction) PutAct(a Act) Act {
	a.ID = tx.ensureID(a.ID)
	if a.Representatives == nil {
		a.Representatives = map[string]string{}
	}
	return putRecord(tx, tx.state.acts, domain.EntityAct, a, false)
}

// DeleteAct removes an act.
func (tx *transaction) DeleteAct(id string) bool {
	return deleteRecord(tx, tx.state.acts, domain.EntityAct, id)
}

// MoveAct repositions an act; index is clamped to the collection bounds.
func (tx *transaction) MoveAct(id string, index int) bool {
	before := tx.state.acts.list()
	if !tx.state.acts.move(id, index) {
		return false
	}
	tx.recordChange(Change{Entity: domain.EntityAct, Action: domain.ActionReplace, ID: id, Before: before, After: tx.state.acts.list()})
	return true
}

// PutCertificate inserts or replaces a certificate.
func (tx *transaction) PutCertificate(c Certificate) Certificate {
	c.ID = tx.ensureID(c.ID)
	if c.Materials == nil {
		c.Materials = []string{}
	}
	if c.Files == nil {
		c.Files = []domain.CertificateFile{}
	}
	return putRecord(tx, tx.state.certificates, domain.EntityCertificate, c, false)
}

// DeleteCertificate removes a certificate.
func (tx *transaction) DeleteCertificate(id string) bool {
	return deleteRecord(tx, tx.state.certificates, domain.EntityCertificate, id)
}

// PutRegulation inserts or replaces a regulation.
func (tx *transaction) PutRegulation(r Regulation) Regulation {
	r.ID = tx.ensureID(r.ID)
	return putRecord(tx, tx.state.regulations, domain.EntityRegulation, r, false)
}

// DeleteRegulation removes a regulation.
func (tx *transaction) DeleteRegulation(id string) bool {
	return deleteRecord(tx, tx.state.regulations, domain.EntityRegulation, id)
}

// PutDeletedAct adds a trash entry in front, or replaces the entry for the same act.
func (tx *transaction) PutDeletedAct(e DeletedActEntry) DeletedActEntry {
	return putRecord(tx, tx.state.deletedActs, domain.EntityDeletedAct, e, true)
}

// DeleteDeletedAct drops a trash entry by act id.
func (tx *transaction) DeleteDeletedAct(id string) bool {
	return deleteRecord(tx, tx.state.deletedActs, domain.EntityDeletedAct, id)
}

// PutDeletedCertificate adds a trash entry in front, or replaces the entry for the same certificate.
func (tx *transaction) PutDeletedCertificate(e DeletedCertificateEntry) DeletedCertificateEntry {
	return putRecord(tx, tx.state.deletedCertificates, domain.EntityDeletedCertificate, e, true)
}

// DeleteDeletedCertificate drops a trash entry by certificate id.
func (tx *transaction) DeleteDeletedCertificate(id string) bool {
	return deleteRecord(tx, tx.state.deletedCertificates, domain.EntityDeletedCertificate, id)
}

func (tx *transaction) ReplaceObjects(v []ConstructionObject) {
	replaceRecords(tx, tx.state.objects, domain.EntityObject, v)
}
func (tx *transaction) ReplacePeople(v []Person) {
	replaceRecords(tx, tx.state.people, domain.EntityPerson, v)
}
func (tx *transaction) ReplaceOrganizations(v []Organization) {
	replaceRecords(tx, tx.state.organizations, domain.EntityOrganization, v)
}
func (tx *transaction) ReplaceGroups(v []CommissionGroup) {
	replaceRecords(tx, tx.state.groups, domain.EntityGroup, v)
}
func (tx *transaction) ReplaceActs(v []Act) {
	replaceRecords(tx, tx.state.acts, domain.EntityAct, v)
}
func (tx *transaction) ReplaceCertificates(v []Certificate) {
	replaceRecords(tx, tx.state.certificates, domain.EntityCertificate, v)
}
func (tx *transaction) ReplaceRegulations(v []Regulation) {
	replaceRecords(tx, tx.state.regulations, domain.EntityRegulation, v)
}
func (tx *transaction) ReplaceDeletedActs(v []DeletedActEntry) {
	replaceRecords(tx, tx.state.deletedActs, domain.EntityDeletedAct, v)
}
func (tx *transaction) ReplaceDeletedCertificates(v []DeletedCertificateEntry) {
	replaceRecords(tx, tx.state.deletedCertificates, domain.EntityDeletedCertificate, v)
}
