// Package docstore defines the document-publishing collaborator port.
package docstore

import "context"

// Publisher resolves a target location in the external document store and
// creates new documents there. Documents are append-only: there is no
// update-in-place, so republishing after an ambiguous failure is safe.
type Publisher interface {
	// ResolveLocation finds the location (page) matching the hint.
	ResolveLocation(ctx context.Context, token, hint string) (string, error)

	// CreateDocument converts the markdown report into the store's native
	// format, creates it under locationID, and returns the new document ID.
	CreateDocument(ctx context.Context, token, locationID, title, markdown string) (string, error)
}
