// Package suggest is the core glue, collecting corpus tag sets from a provider and ranking them for the note being edited.
package suggest

import "context"

// Provider gives access to the document corpus.
type Provider interface {
	// Documents lists every document id in the corpus
	Documents(ctx context.Context) ([]string, error)

	// TagsFor returns the tags of one document; unknown documents have none
	TagsFor(ctx context.Context, id string) ([]string, error)
}

// Request is a single suggestion request.
type Request struct {
	// Document is excluded from the corpus
	Document string
	// Text is the live content of Document
	Text  string
	Query string
	// Limit caps the result; 0 means no cap
	Limit int
}
