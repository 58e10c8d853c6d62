// Package store defines the document store boundary: one document per
// species, keyed by the stringified external id, written with merge
// semantics so fields absent from a write survive it.
package store

import "context"

// Document field names shared by the pipeline and the store implementations.
const (
	FieldID              = "id"
	FieldTitle           = "title"
	FieldScientificName  = "scientificName"
	FieldImageURL        = "imageURL"
	FieldImages          = "images"
	FieldSeasonality     = "seasonality"
	FieldCategory        = "category"
	FieldNotes           = "notes"
	FieldVernacularNames = "vernacular_names"
	FieldWikipediaHTML   = "wikipediaHtml"
	FieldWikipediaText   = "wikipediaText"
)

// Store is a keyed document collection with merge-on-write updates.
// Implementations must treat SetMerge as an overlay: fields present in the
// write replace stored values, everything else is preserved.
type Store interface {
	// Get returns the document with the given id, or ok=false when none
	// exists. Absence is not an error.
	Get(ctx context.Context, id string) (fields map[string]any, ok bool, err error)

	// SetMerge creates or updates the document, overlaying only the given
	// fields.
	SetMerge(ctx context.Context, id string, fields map[string]any) error

	// Close releases any underlying connections.
	Close() error
}
