// Package analytics defines the analytics-data collaborator port.
package analytics

import (
	"context"
	"time"

	"github.com/alytics/alytics/internal/domain/report"
)

// Credentials scope one tenant's access to the analytics API.
type Credentials struct {
	AccessToken  string
	RefreshToken string
	PropertyID   string
}

// DateRange bounds the reporting window.
type DateRange struct {
	Start time.Time
	End   time.Time
}

// Client fetches the raw metric reports feeding a run. Failure of an
// individual report degrades to an empty list for that report name; only a
// failure affecting the whole fetch is returned as an error.
type Client interface {
	FetchReports(ctx context.Context, creds Credentials, window DateRange) (map[string][]report.Record, error)
}
