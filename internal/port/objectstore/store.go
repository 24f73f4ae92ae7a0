// Package objectstore defines the chart-artifact storage port.
package objectstore

import "context"

// Store uploads binary artifacts and returns a time-limited signed URL
// referencing them.
type Store interface {
	Upload(ctx context.Context, name string, data []byte, contentType string) (string, error)
}
