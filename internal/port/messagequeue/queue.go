// Package messagequeue defines the run lifecycle event stream port.
package messagequeue

import "context"

// Queue is the port for publishing run lifecycle events.
type Queue interface {
	// Publish sends a message to the given subject.
	Publish(ctx context.Context, subject string, data []byte) error

	// Close shuts down the queue connection.
	Close() error
}

// Subjects for run lifecycle events.
const (
	SubjectRunStarted   = "runs.started"
	SubjectRunCompleted = "runs.completed"
	SubjectRunFailed    = "runs.failed"
)
