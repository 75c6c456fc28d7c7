package domain

import (
	"fmt"
	"strings"
)

var entityLabels = map[EntityType]string{
	EntityObject:             "объект",
	EntityPerson:             "сотрудник",
	EntityOrganization:       "организация",
	EntityGroup:              "комиссия",
	EntityAct:                "акт",
	EntityCertificate:        "сертификат",
	EntityRegulation:         "норматив",
	EntityDeletedAct:         "удалённый акт",
	EntityDeletedCertificate: "удалённый сертификат",
}

// Label returns the Russian display label for an entity type.
func (e EntityType) Label() string {
	if label, ok := entityLabels[e]; ok {
		return label
	}
	return string(e)
}

// NotFoundError is returned when an operation targets a record that does not exist.
type NotFoundError struct {
	Entity EntityType
	ID     string
}

func (e NotFoundError) Error() string {
	return fmt.Sprintf("%s %s not found", e.Entity, e.ID)
}

// Localized returns a user-facing explanation.
func (e NotFoundError) Localized() string {
	return fmt.Sprintf("Не найден %s с идентификатором %s", e.Entity.Label(), e.ID)
}

// IntegrityConflictError rejects a delete that would orphan dependent records.
// Nothing has been mutated when it is returned.
type IntegrityConflictError struct {
	Entity     EntityType
	ID         string
	Name       string
	Dependent  EntityType
	Dependents []string
}

func (e IntegrityConflictError) Error() string {
	return fmt.Sprintf("%s %q (%s) still referenced by %d %s record(s): %s",
		e.Entity, e.Name, e.ID, len(e.Dependents), e.Dependent, strings.Join(e.Dependents, ", "))
}

// Localized returns a user-facing explanation naming the conflicting records.
func (e IntegrityConflictError) Localized() string {
	return fmt.Sprintf("Невозможно удалить: %s «%s» используется (%s: %s). Сначала измените или удалите связанные записи.",
		e.Entity.Label(), e.Name, e.Dependent.Label(), strings.Join(e.Dependents, ", "))
}

// ImportProblem describes one collection rejected during import.
type ImportProblem struct {
	Key CollectionKey
	Err error
}

// ImportValidationError reports malformed collections in an import. The
// collections not listed were applied.
type ImportValidationError struct {
	Problems []ImportProblem
}

func (e ImportValidationError) Error() string {
	parts := make([]string, 0, len(e.Problems))
	for _, p := range e.Problems {
		parts = append(parts, fmt.Sprintf("%s: %v", p.Key, p.Err))
	}
	return "import rejected collections: " + strings.Join(parts, "; ")
}

// Localized returns a user-facing explanation.
func (e ImportValidationError) Localized() string {
	keys := make([]string, 0, len(e.Problems))
	for _, p := range e.Problems {
		keys = append(keys, string(p.Key))
	}
	return "Не удалось импортировать разделы: " + strings.Join(keys, ", ") + ". Остальные данные загружены."
}

// Unwrap exposes the per-collection causes.
func (e ImportValidationError) Unwrap() []error {
	out := make([]error, 0, len(e.Problems))
	for _, p := range e.Problems {
		out = append(out, p.Err)
	}
	return out
}

// GroupRestoreDecisionError is returned by a restore that would need to
// re-create commission groups the caller has not decided about.
type GroupRestoreDecisionError struct {
	Groups []CommissionGroup
}

func (e GroupRestoreDecisionError) Error() string {
	return fmt.Sprintf("restore requires a decision for %d missing commission group(s): %s", len(e.Groups), e.names())
}

// Localized returns a user-facing question.
func (e GroupRestoreDecisionError) Localized() string {
	return "Комиссии удалены: " + e.names() + ". Восстановить их вместе с актами?"
}

func (e GroupRestoreDecisionError) names() string {
	names := make([]string, 0, len(e.Groups))
	for _, g := range e.Groups {
		names = append(names, g.Name)
	}
	return strings.Join(names, ", ")
}

// ActChainError rejects a successor link that points at the act itself or
// closes a cycle.
type ActChainError struct {
	ActID  string
	Number string
	Path   []string
}

func (e ActChainError) Error() string {
	if len(e.Path) <= 1 {
		return fmt.Sprintf("act %s cannot reference itself as next work", e.ActID)
	}
	return fmt.Sprintf("act %s next work link forms a cycle: %s", e.ActID, strings.Join(e.Path, " -> "))
}

// Localized returns a user-facing explanation.
func (e ActChainError) Localized() string {
	return fmt.Sprintf("Акт №%s не может ссылаться на себя (прямо или через цепочку последующих работ)", e.Number)
}
