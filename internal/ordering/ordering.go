// Package ordering provides the canonical display order of ledger records:
// Russian collation of display names, falling back to id for ties.
package ordering

import (
	"qcledger/pkg/domain"
	"strings"
	"sync"

	"golang.org/x/text/collate"
	"golang.org/x/text/language"
)

// Names compares display names using Russian collation rules, ignoring case.
// A collate.Collator keeps internal buffers, so access is serialized.
type Names struct {
	mu  sync.Mutex
	col *collate.Collator
}

// NewNames constructs a comparer for Russian display names.
func NewNames() *Names {
	return &Names{col: collate.New(language.Russian, collate.IgnoreCase, collate.Numeric)}
}

// Compare returns -1, 0 or 1.
func (n *Names) Compare(a, b string) int {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.col.CompareString(strings.TrimSpace(a), strings.TrimSpace(b))
}

func (n *Names) withID(a, b, idA, idB string) int {
	if c := n.Compare(a, b); c != 0 {
		return c
	}
	return strings.Compare(idA, idB)
}

// Objects orders construction objects by name.
func (n *Names) Objects(a, b domain.ConstructionObject) int {
	return n.withID(a.Name, b.Name, a.ID, b.ID)
}

// People orders people by full name.
func (n *Names) People(a, b domain.Person) int {
	return n.withID(a.Name, b.Name, a.ID, b.ID)
}

// Organizations orders organizations by name.
func (n *Names) Organizations(a, b domain.Organization) int {
	return n.withID(a.Name, b.Name, a.ID, b.ID)
}

// Groups orders commission groups by name.
func (n *Names) Groups(a, b domain.CommissionGroup) int {
	return n.withID(a.Name, b.Name, a.ID, b.ID)
}

// Regulations orders regulations by designation.
func (n *Names) Regulations(a, b domain.Regulation) int {
	return n.withID(a.Designation, b.Designation, a.ID, b.ID)
}
