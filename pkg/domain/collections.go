package domain

// CollectionKey names one persisted top-level collection. Absence of a key in
// the key-value store is equivalent to its empty default.
type CollectionKey string

// Persisted keys.
const (
	KeyObjects             CollectionKey = "objects"
	KeyActs                CollectionKey = "acts"
	KeyDeletedActs         CollectionKey = "deleted-acts"
	KeyPeople              CollectionKey = "people"
	KeyOrganizations       CollectionKey = "organizations"
	KeyGroups              CollectionKey = "groups"
	KeyCertificates        CollectionKey = "certificates"
	KeyDeletedCertificates CollectionKey = "deleted-certificates"
	KeyRegulations         CollectionKey = "regulations"
	KeySettings            CollectionKey = "settings"
	KeyCurrentObject       CollectionKey = "current-object-id"
)

// RecordKeys lists the record collections in dependency order: a collection
// only references collections listed before it.
var RecordKeys = []CollectionKey{
	KeyObjects,
	KeyOrganizations,
	KeyPeople,
	KeyGroups,
	KeyActs,
	KeyDeletedActs,
	KeyCertificates,
	KeyDeletedCertificates,
	KeyRegulations,
}

// AllKeys lists every persisted key.
var AllKeys = append(append([]CollectionKey(nil), RecordKeys...), KeySettings, KeyCurrentObject)

// KeyFor maps an entity type to the collection that stores it.
func KeyFor(entity EntityType) (CollectionKey, bool) {
	switch entity {
	case EntityObject:
		return KeyObjects, true
	case EntityPerson:
		return KeyPeople, true
	case EntityOrganization:
		return KeyOrganizations, true
	case EntityGroup:
		return KeyGroups, true
	case EntityAct:
		return KeyActs, true
	case EntityCertificate:
		return KeyCertificates, true
	case EntityRegulation:
		return KeyRegulations, true
	case EntityDeletedAct:
		return KeyDeletedActs, true
	case EntityDeletedCertificate:
		return KeyDeletedCertificates, true
	default:
		return "", false
	}
}

// ImportData is the reconstructed content of a backup, either the legacy flat
// JSON or an unpacked archive. A nil collection is absent and is left alone by
// an import; an empty non-nil collection is present and empty.
type ImportData struct {
	Objects             []ConstructionObject      `json:"objects"`
	Acts                []Act                     `json:"acts"`
	DeletedActs         []DeletedActEntry         `json:"deletedActs"`
	People              []Person                  `json:"people"`
	Organizations       []Organization            `json:"organizations"`
	Groups              []CommissionGroup         `json:"groups"`
	Certificates        []Certificate             `json:"certificates"`
	DeletedCertificates []DeletedCertificateEntry `json:"deletedCertificates"`
	Regulations         []Regulation              `json:"regulations"`
	Template            string                    `json:"template,omitempty"`
	RegistryTemplate    string                    `json:"registryTemplate,omitempty"`
	ProjectSettings     *ProjectSettings          `json:"projectSettings,omitempty"`
}

// Has reports whether the collection for key is present.
func (d ImportData) Has(key CollectionKey) bool {
	switch key {
	case KeyObjects:
		return d.Objects != nil
	case KeyActs:
		return d.Acts != nil
	case KeyDeletedActs:
		return d.DeletedActs != nil
	case KeyPeople:
		return d.People != nil
	case KeyOrganizations:
		return d.Organizations != nil
	case KeyGroups:
		return d.Groups != nil
	case KeyCertificates:
		return d.Certificates != nil
	case KeyDeletedCertificates:
		return d.DeletedCertificates != nil
	case KeyRegulations:
		return d.Regulations != nil
	case KeySettings:
		return d.ProjectSettings != nil || d.Template != "" || d.RegistryTemplate != ""
	default:
		return false
	}
}

// Keys returns the present record collections in dependency order.
func (d ImportData) Keys() []CollectionKey {
	var out []CollectionKey
	for _, key := range RecordKeys {
		if d.Has(key) {
			out = append(out, key)
		}
	}
	return out
}
