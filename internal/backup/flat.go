// Package backup reads and writes ledger backups: the legacy flat JSON
// document and the unpacked archive tree kept in a blob store.
package backup

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"qcledger/pkg/domain"
)

// collectionAliases lists the accepted spellings per collection. The first
// entry is the canonical JSON name.
var collectionAliases = map[domain.CollectionKey][]string{
	domain.KeyObjects:             {"objects", "constructionObjects", "construction-objects"},
	domain.KeyActs:                {"acts"},
	domain.KeyDeletedActs:         {"deletedActs", "deleted-acts", "deleted_acts"},
	domain.KeyPeople:              {"people"},
	domain.KeyOrganizations:       {"organizations"},
	domain.KeyGroups:              {"groups", "commissionGroups"},
	domain.KeyCertificates:        {"certificates"},
	domain.KeyDeletedCertificates: {"deletedCertificates", "deleted-certificates", "deleted_certificates"},
	domain.KeyRegulations:         {"regulations"},
}

// ErrNotArray is reported for a collection whose value is not a JSON array.
var ErrNotArray = errors.New("collection is not an array")

// DecodeFlat parses a flat backup document. A malformed collection is left
// absent and reported through domain.ImportValidationError together with the
// data that did decode; a document that is not a JSON object is an error.
func DecodeFlat(r io.Reader) (domain.ImportData, error) {
	raw, err := io.ReadAll(r)
	if err != nil {
		return domain.ImportData{}, fmt.Errorf("read backup: %w", err)
	}
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(raw, &fields); err != nil {
		return domain.ImportData{}, fmt.Errorf("decode backup: %w", err)
	}

	var (
		data     domain.ImportData
		problems []domain.ImportProblem
	)
	for _, key := range domain.RecordKeys {
		value, ok := lookup(fields, collectionAliases[key])
		if !ok {
			continue
		}
		if err := decodeCollection(&data, key, value); err != nil {
			problems = append(problems, domain.ImportProblem{Key: key, Err: err})
		}
	}
	if err := decodeSettings(&data, fields); err != nil {
		problems = append(problems, domain.ImportProblem{Key: domain.KeySettings, Err: err})
	}
	if len(problems) > 0 {
		return data, domain.ImportValidationError{Problems: problems}
	}
	return data, nil
}

func lookup(fields map[string]json.RawMessage, names []string) (json.RawMessage, bool) {
	for _, name := range names {
		value, ok := fields[name]
		if !ok {
			continue
		}
		if bytes.Equal(bytes.TrimSpace(value), []byte("null")) {
			return nil, false
		}
		return value, true
	}
	return nil, false
}

func decodeCollection(data *domain.ImportData, key domain.CollectionKey, value json.RawMessage) error {
	trimmed := bytes.TrimSpace(value)
	if len(trimmed) == 0 || trimmed[0] != '[' {
		return ErrNotArray
	}
	switch key {
	case domain.KeyObjects:
		return decodeInto(value, &data.Objects)
	case domain.KeyActs:
		return decodeInto(value, &data.Acts)
	case domain.KeyDeletedActs:
		return decodeInto(value, &data.DeletedActs)
	case domain.KeyPeople:
		return decodeInto(value, &data.People)
	case domain.KeyOrganizations:
		return decodeInto(value, &data.Organizations)
	case domain.KeyGroups:
		return decodeInto(value, &data.Groups)
	case domain.KeyCertificates:
		return decodeInto(value, &data.Certificates)
	case domain.KeyDeletedCertificates:
		return decodeInto(value, &data.DeletedCertificates)
	case domain.KeyRegulations:
		return decodeInto(value, &data.Regulations)
	default:
		return fmt.Errorf("unsupported collection %s", key)
	}
}

// decodeInto leaves dst untouched on failure and non-nil on success.
func decodeInto[T any](value json.RawMessage, dst *[]T) error {
	var out []T
	if err := json.Unmarshal(value, &out); err != nil {
		return err
	}
	if out == nil {
		out = []T{}
	}
	*dst = out
	return nil
}

func decodeSettings(data *domain.ImportData, fields map[string]json.RawMessage) error {
	if value, ok := lookup(fields, []string{"projectSettings", "project-settings"}); ok {
		var settings domain.ProjectSettings
		if err := json.Unmarshal(value, &settings); err != nil {
			return err
		}
		data.ProjectSettings = &settings
	}
	for name, dst := range map[string]*string{"template": &data.Template, "registryTemplate": &data.RegistryTemplate} {
		value, ok := lookup(fields, []string{name})
		if !ok {
			continue
		}
		if err := json.Unmarshal(value, dst); err != nil {
			return fmt.Errorf("%s: %w", name, err)
		}
	}
	return nil
}

// EncodeFlat writes data as a flat backup document.
func EncodeFlat(w io.Writer, data domain.ImportData) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(data); err != nil {
		return fmt.Errorf("encode backup: %w", err)
	}
	return nil
}
