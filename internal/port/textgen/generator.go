// Package textgen defines the text-generation collaborator port.
package textgen

import (
	"context"

	"github.com/alytics/alytics/internal/domain/report"
)

// Role selects the prompt persona for a generation call.
type Role string

const (
	RoleAnalyst         Role = "analyst"
	RoleCopywriter      Role = "copywriter"
	RoleCriticalThinker Role = "critical_thinker"
)

// Input carries the structured state slices a role may reference.
type Input struct {
	Data     map[string][]report.Record
	Goals    string
	Analysis string
	Charts   []report.Chart
	Report   string
}

// Generator produces text from a role prompt and structured input. It is a
// black box: empty or malformed input yields an explicit "no data"
// statement, never an error fabricated from missing content.
type Generator interface {
	Generate(ctx context.Context, role Role, in Input) (string, error)
}
