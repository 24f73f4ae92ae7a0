// Package tenant defines the persisted per-tenant report configuration.
package tenant

import (
	"time"

	"github.com/alytics/alytics/internal/domain/report"
)

// Frequency is how often a tenant's report is generated.
type Frequency string

const (
	FrequencyWeekly   Frequency = "weekly"
	FrequencyBiweekly Frequency = "biweekly"
	FrequencyMonthly  Frequency = "monthly"
)

// Days returns the length of the reporting window in days.
// Unknown or empty frequencies default to weekly.
func (f Frequency) Days() int {
	switch f {
	case FrequencyBiweekly:
		return 14
	case FrequencyMonthly:
		return 30
	default:
		return 7
	}
}

// Config is one tenant's persisted report configuration. The scheduler is
// the only writer of NextRun; all other fields are owned by onboarding.
type Config struct {
	ID                string    `json:"id"`
	NotionAccessToken string    `json:"-"`
	GAAccessToken     string    `json:"-"`
	GARefreshToken    string    `json:"-"`
	GAPropertyID      string    `json:"ga_property_id"`
	Frequency         Frequency `json:"frequency"`
	NextRun           time.Time `json:"next_run"`
	CreatedAt         time.Time `json:"created_at"`
	UpdatedAt         time.Time `json:"updated_at"`
}

// Context builds the immutable run context handed to the workflow.
func (c *Config) Context() report.TenantContext {
	return report.TenantContext{
		TenantID:       c.ID,
		GAAccessToken:  c.GAAccessToken,
		GARefreshToken: c.GARefreshToken,
		GAPropertyID:   c.GAPropertyID,
		NotionToken:    c.NotionAccessToken,
		ReportDays:     c.Frequency.Days(),
	}
}

// NextRunFrom computes the next due date: the calendar date of now plus the
// frequency's day count. Time-of-day is dropped so due checks compare dates.
func NextRunFrom(now time.Time, f Frequency) time.Time {
	return DateOnly(now).AddDate(0, 0, f.Days())
}

// ReportWindow returns the date range covered by a report dispatched at now.
func ReportWindow(now time.Time, f Frequency) (start, end time.Time) {
	end = DateOnly(now)
	return end.AddDate(0, 0, -f.Days()), end
}

// DateOnly truncates a time to midnight UTC.
func DateOnly(t time.Time) time.Time {
	t = t.UTC()
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}
