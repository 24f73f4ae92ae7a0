// Package run defines the outcome types for one report-generation run.
package run

import (
	"fmt"
	"time"

	"github.com/alytics/alytics/internal/domain/report"
)

// Status is the terminal state of a run.
type Status string

const (
	StatusCompleted Status = "completed"
	StatusFailed    Status = "failed"
	StatusTimedOut  Status = "timed_out"
)

// Result is the ephemeral outcome of one workflow invocation: the final
// state on success, or a typed failure. It is handed to the caller and
// never persisted by the core.
type Result struct {
	RunID    string
	TenantID string
	Status   Status
	State    *report.State
	Err      error
	Duration time.Duration
}

// TimeoutError reports that a run exceeded its wall-clock deadline. It is
// distinct from a step failure: in-flight external calls are not cancelled,
// the coordinator simply stops waiting on them.
type TimeoutError struct {
	RunID string
	Limit time.Duration
}

func (e *TimeoutError) Error() string {
	return fmt.Sprintf("run %s exceeded deadline of %s", e.RunID, e.Limit)
}
