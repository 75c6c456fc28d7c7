// Package domain defines the scoped record kinds, value types, and rule
// evaluation primitives used by qcledger.
package domain

import (
	"slices"
	"time"
)

// EntityType identifies the type of record stored in the ledger.
type EntityType string

// Supported entity type identifiers used in Change records and persistence keys.
const (
	// EntityObject identifies a construction object, the scoping root.
	EntityObject EntityType = "object"
	// EntityPerson identifies a person record.
	EntityPerson EntityType = "person"
	// EntityOrganization identifies an organization record.
	EntityOrganization EntityType = "organization"
	// EntityGroup identifies a commission group record.
	EntityGroup EntityType = "group"
	// EntityAct identifies a work-acceptance act.
	EntityAct EntityType = "act"
	// EntityCertificate identifies a material certificate.
	EntityCertificate EntityType = "certificate"
	// EntityRegulation identifies a regulation reference.
	EntityRegulation EntityType = "regulation"
	// EntityDeletedAct identifies a trashed act entry.
	EntityDeletedAct EntityType = "deleted_act"
	// EntityDeletedCertificate identifies a trashed certificate entry.
	EntityDeletedCertificate EntityType = "deleted_certificate"
)

// Severity captures rule outcomes.
type Severity string

// Rule evaluation severities determine commit behavior and logging.
const (
	// SeverityBlock blocks transaction commit.
	SeverityBlock Severity = "block"
	// SeverityWarn logs a warning but allows commit.
	SeverityWarn Severity = "warn"
	SeverityLog  Severity = "log"
)

// ConstructionObject is the scoping root every other record belongs to.
type ConstructionObject struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	ShortName string `json:"shortName,omitempty"`
}

// Person is a representative who can sign acts. Organization holds the
// organization's display name, not its id.
type Person struct {
	ID                   string `json:"id"`
	Name                 string `json:"name"`
	Position             string `json:"position"`
	Organization         string `json:"organization"`
	AuthDoc              string `json:"authDoc,omitempty"`
	ConstructionObjectID string `json:"constructionObjectId"`
}

// Organization is a legal entity taking part in construction. INN and OGRN
// form a soft natural key used for de-duplication on copy.
type Organization struct {
	ID                   string `json:"id"`
	Name                 string `json:"name"`
	OGRN                 string `json:"ogrn"`
	INN                  string `json:"inn"`
	KPP                  string `json:"kpp,omitempty"`
	Address              string `json:"address"`
	Phone                string `json:"phone,omitempty"`
	SRO                  string `json:"sro,omitempty"`
	ConstructionObjectID string `json:"constructionObjectId"`
}

// OrgRoles holds the four organization-role links shared by groups and acts.
type OrgRoles struct {
	BuilderOrgID       string `json:"builderOrgId,omitempty"`
	ContractorOrgID    string `json:"contractorOrgId,omitempty"`
	DesignerOrgID      string `json:"designerOrgId,omitempty"`
	WorkPerformerOrgID string `json:"workPerformerOrgId,omitempty"`
}

// Refs returns pointers to the four org links for in-place rewriting.
func (r *OrgRoles) Refs() []*string {
	return []*string{&r.BuilderOrgID, &r.ContractorOrgID, &r.DesignerOrgID, &r.WorkPerformerOrgID}
}

// References reports whether any org-role field points at id.
func (r OrgRoles) References(id string) bool {
	if id == "" {
		return false
	}
	return r.BuilderOrgID == id || r.ContractorOrgID == id || r.DesignerOrgID == id || r.WorkPerformerOrgID == id
}

// CommissionGroup is a reusable set of representatives and organizations.
type CommissionGroup struct {
	ID              string            `json:"id"`
	Name            string            `json:"name"`
	Representatives map[string]string `json:"representatives"`
	OrgRoles
	ConstructionObjectID string `json:"constructionObjectId"`
}

// Act is a work-acceptance act. NextWork is the human-readable description of
// the successor act pointed at by NextWorkActID.
type Act struct {
	ID                string            `json:"id"`
	Number            string            `json:"number"`
	Date              string            `json:"date"`
	ObjectName        string            `json:"objectName"`
	WorkName          string            `json:"workName,omitempty"`
	ProjectDocs       string            `json:"projectDocs,omitempty"`
	Materials         string            `json:"materials,omitempty"`
	Regulations       string            `json:"regulations,omitempty"`
	WorkStartDate     string            `json:"workStartDate,omitempty"`
	WorkEndDate       string            `json:"workEndDate,omitempty"`
	AdditionalInfo    string            `json:"additionalInfo,omitempty"`
	CopiesCount       int               `json:"copiesCount,omitempty"`
	NextWork          string            `json:"nextWork,omitempty"`
	NextWorkActID     string            `json:"nextWorkActId,omitempty"`
	Representatives   map[string]string `json:"representatives"`
	CommissionGroupID string            `json:"commissionGroupId,omitempty"`
	OrgRoles
	ConstructionObjectID string `json:"constructionObjectId"`
}

// CertificateFile is an attachment of a certificate. Data is base64 encoded.
type CertificateFile struct {
	ID   string `json:"id"`
	Type string `json:"type"`
	Name string `json:"name"`
	Data string `json:"data"`
}

// Certificate is a material quality certificate.
type Certificate struct {
	ID                   string            `json:"id"`
	Number               string            `json:"number"`
	ValidUntil           string            `json:"validUntil"`
	Materials            []string          `json:"materials"`
	Files                []CertificateFile `json:"files"`
	ConstructionObjectID string            `json:"constructionObjectId"`
}

// Regulation is a normative document reference (SNiP, GOST, SP).
type Regulation struct {
	ID                   string `json:"id"`
	Designation          string `json:"designation"`
	Title                string `json:"title"`
	ConstructionObjectID string `json:"constructionObjectId"`
}

// DeletedActEntry is a trashed act together with the group it pointed at,
// captured by value when the act was deleted.
type DeletedActEntry struct {
	Act             Act              `json:"act"`
	DeletedOn       time.Time        `json:"deletedOn"`
	AssociatedGroup *CommissionGroup `json:"associatedGroup,omitempty"`
}

// DeletedCertificateEntry is a trashed certificate.
type DeletedCertificateEntry struct {
	Certificate Certificate `json:"certificate"`
	DeletedOn   time.Time   `json:"deletedOn"`
}

// ProjectSettings holds user preferences persisted under the settings key.
type ProjectSettings struct {
	HistoryDepth       int    `json:"historyDepth,omitempty"`
	DefaultCopiesCount int    `json:"defaultCopiesCount,omitempty"`
	DateFormat         string `json:"dateFormat,omitempty"`
}

// Settings bundles project settings with the base64 document templates.
type Settings struct {
	Project          ProjectSettings `json:"projectSettings"`
	Template         string          `json:"template,omitempty"`
	RegistryTemplate string          `json:"registryTemplate,omitempty"`
}

// RecordID implements Record.
func (o ConstructionObject) RecordID() string { return o.ID }

// RecordID implements Record.
func (p Person) RecordID() string { return p.ID }

// RecordID implements Record.
func (o Organization) RecordID() string { return o.ID }

// RecordID implements Record.
func (g CommissionGroup) RecordID() string { return g.ID }

// RecordID implements Record.
func (a Act) RecordID() string { return a.ID }

// RecordID implements Record.
func (c Certificate) RecordID() string { return c.ID }

// RecordID implements Record.
func (r Regulation) RecordID() string { return r.ID }

// RecordID returns the wrapped act id.
func (e DeletedActEntry) RecordID() string { return e.Act.ID }

// RecordID returns the wrapped certificate id.
func (e DeletedCertificateEntry) RecordID() string { return e.Certificate.ID }

// ObjectID implements Scoped.
func (p Person) ObjectID() string { return p.ConstructionObjectID }

// ObjectID implements Scoped.
func (o Organization) ObjectID() string { return o.ConstructionObjectID }

// ObjectID implements Scoped.
func (g CommissionGroup) ObjectID() string { return g.ConstructionObjectID }

// ObjectID implements Scoped.
func (a Act) ObjectID() string { return a.ConstructionObjectID }

// ObjectID implements Scoped.
func (c Certificate) ObjectID() string { return c.ConstructionObjectID }

// ObjectID implements Scoped.
func (r Regulation) ObjectID() string { return r.ConstructionObjectID }

// ObjectID returns the scope of the trashed act.
func (e DeletedActEntry) ObjectID() string { return e.Act.ConstructionObjectID }

// ObjectID returns the scope of the trashed certificate.
func (e DeletedCertificateEntry) ObjectID() string {
	return e.Certificate.ConstructionObjectID
}

// Clone returns an independent copy.
func (o ConstructionObject) Clone() ConstructionObject { return o }

// Clone returns an independent copy.
func (p Person) Clone() Person { return p }

// Clone returns an independent copy.
func (o Organization) Clone() Organization { return o }

// Clone returns an independent copy.
func (r Regulation) Clone() Regulation { return r }

// Clone returns a copy with its own representatives map.
func (g CommissionGroup) Clone() CommissionGroup {
	cp := g
	cp.Representatives = cloneRoles(g.Representatives)
	return cp
}

// Clone returns a copy with its own representatives map.
func (a Act) Clone() Act {
	cp := a
	cp.Representatives = cloneRoles(a.Representatives)
	return cp
}

// Clone returns a copy with its own materials and files.
func (c Certificate) Clone() Certificate {
	cp := c
	cp.Materials = slices.Clone(c.Materials)
	cp.Files = slices.Clone(c.Files)
	return cp
}

// Clone returns a deep copy including the group snapshot.
func (e DeletedActEntry) Clone() DeletedActEntry {
	cp := e
	cp.Act = e.Act.Clone()
	if e.AssociatedGroup != nil {
		g := e.AssociatedGroup.Clone()
		cp.AssociatedGroup = &g
	}
	return cp
}

// Clone returns a deep copy.
func (e DeletedCertificateEntry) Clone() DeletedCertificateEntry {
	cp := e
	cp.Certificate = e.Certificate.Clone()
	return cp
}

func cloneRoles(in map[string]string) map[string]string {
	if in == nil {
		return nil
	}
	out := make(map[string]string, len(in))
	for k, v := range in {
		out[k] = v
	}
	return out
}

// Record is implemented by every stored kind. The type parameter lets
// generic tables clone values without reflection.
type Record[T any] interface {
	RecordID() string
	Clone() T
}

// Scoped is implemented by every record that belongs to a construction object.
type Scoped interface {
	ObjectID() string
}

// Change describes a mutation applied to an entity during a transaction.
type Change struct {
	Entity EntityType
	Action Action
	ID     string
	Before any
	After  any
}

// Action indicates the type of modification performed.
type Action string

// Change actions enumerate supported mutations captured in the audit trail.
const (
	// ActionCreate indicates an entity was created.
	ActionCreate Action = "create"
	// ActionUpdate indicates an entity was updated.
	ActionUpdate Action = "update"
	ActionDelete Action = "delete"
	// ActionReplace indicates a whole collection was substituted.
	ActionReplace Action = "replace"
)

// Violation reports a failed rule evaluation.
type Violation struct {
	Rule     string
	Severity Severity
	Message  string
	Entity   EntityType
	EntityID string
}

// Result aggregates violations from the rules engine.
type Result struct {
	Violations []Violation
}

// Merge appends violations from another result.
func (r *Result) Merge(other Result) {
	if len(other.Violations) == 0 {
		return
	}
	r.Violations = append(r.Violations, other.Violations...)
}

// HasBlocking returns true if the result contains blocking violations.
func (r Result) HasBlocking() bool {
	for _, v := range r.Violations {
		if v.Severity == SeverityBlock {
			return true
		}
	}
	return false
}

// RuleViolationError is returned when blocking violations are present.
type RuleViolationError struct {
	Result Result
}

func (e RuleViolationError) Error() string {
	for _, v := range e.Result.Violations {
		if v.Severity == SeverityBlock {
			return "transaction blocked by rules: " + v.Message
		}
	}
	return "transaction blocked by rules"
}
