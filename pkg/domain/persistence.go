package domain

import (
	"context"
	"time"
)

// Transaction exposes the entity store primitives available within an atomic
// scope. Put inserts or replaces by id; Delete is a no-op for absent ids and
// reports whether a record was removed. None of these enforce relationships.
type Transaction interface {
	Snapshot() TransactionView
	Now() time.Time
	NewID() string
	// Changes returns the mutations recorded so far in this transaction.
	Changes() []Change

	PutObject(ConstructionObject) ConstructionObject
	DeleteObject(id string) bool
	PutPerson(Person) Person
	DeletePerson(id string) bool
	PutOrganization(Organization) Organization
	DeleteOrganization(id string) bool
	PutGroup(CommissionGroup) CommissionGroup
	DeleteGroup(id string) bool
	PutAct(Act) Act
	DeleteAct(id string) bool
	MoveAct(id string, index int) bool
	PutCertificate(Certificate) Certificate
	DeleteCertificate(id string) bool
	PutRegulation(Regulation) Regulation
	DeleteRegulation(id string) bool
	PutDeletedAct(DeletedActEntry) DeletedActEntry
	DeleteDeletedAct(id string) bool
	PutDeletedCertificate(DeletedCertificateEntry) DeletedCertificateEntry
	DeleteDeletedCertificate(id string) bool

	ReplaceObjects([]ConstructionObject)
	ReplacePeople([]Person)
	ReplaceOrganizations([]Organization)
	ReplaceGroups([]CommissionGroup)
	ReplaceActs([]Act)
	ReplaceCertificates([]Certificate)
	ReplaceRegulations([]Regulation)
	ReplaceDeletedActs([]DeletedActEntry)
	ReplaceDeletedCertificates([]DeletedCertificateEntry)
}

// TransactionView provides read-only access to a consistent state snapshot,
// including the trash collections.
type TransactionView interface {
	RuleView
	FindCertificate(id string) (Certificate, bool)
	FindRegulation(id string) (Regulation, bool)
	ListDeletedActs() []DeletedActEntry
	ListDeletedCertificates() []DeletedCertificateEntry
}

// EntityStore is the transactional in-memory store contract used by the service layer.
type EntityStore interface {
	RunInTransaction(ctx context.Context, fn func(Transaction) error) (Result, error)
	View(ctx context.Context, fn func(TransactionView) error) error
}

// KeyValueStore is the persistence contract: opaque JSON values stored under
// string keys. A missing key reports ok=false and no error.
type KeyValueStore interface {
	Get(ctx context.Context, key string) ([]byte, bool, error)
	Set(ctx context.Context, key string, value []byte) error
	Close() error
}
