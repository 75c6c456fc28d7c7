package domain

import "context"

// ActDocument is an act with every reference resolved, ready for rendering.
type ActDocument struct {
	Act             Act
	Object          ConstructionObject
	Group           *CommissionGroup
	Representatives map[string]Person
	Builder         *Organization
	Contractor      *Organization
	Designer        *Organization
	WorkPerformer   *Organization
	Certificates    []Certificate
}

// DocumentRenderer turns a resolved act and a binary template into a finished
// office document. Implementations live outside this module.
type DocumentRenderer interface {
	Render(ctx context.Context, doc ActDocument, template []byte) ([]byte, error)
}

// ExtractedFields holds field guesses keyed by JSON field name.
type ExtractedFields map[string]string

// FieldExtractor guesses record fields from a scanned image or PDF. Callers
// merge the result into a draft before saving.
type FieldExtractor interface {
	Extract(ctx context.Context, kind EntityType, mimeType string, data []byte) (ExtractedFields, error)
}
