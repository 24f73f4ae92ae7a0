package tenant

import (
	"testing"
	"time"
)

func TestFrequencyDays(t *testing.T) {
	tests := []struct {
		freq Frequency
		want int
	}{
		{FrequencyWeekly, 7},
		{FrequencyBiweekly, 14},
		{FrequencyMonthly, 30},
		{Frequency(""), 7},
		{Frequency("hourly"), 7},
	}
	for _, tt := range tests {
		if got := tt.freq.Days(); got != tt.want {
			t.Errorf("Days(%q) = %d, want %d", tt.freq, got, tt.want)
		}
	}
}

func TestNextRunFrom(t *testing.T) {
	now := time.Date(2024, 1, 1, 15, 42, 7, 0, time.UTC)

	tests := []struct {
		freq Frequency
		want time.Time
	}{
		{FrequencyWeekly, time.Date(2024, 1, 8, 0, 0, 0, 0, time.UTC)},
		{FrequencyBiweekly, time.Date(2024, 1, 15, 0, 0, 0, 0, time.UTC)},
		{FrequencyMonthly, time.Date(2024, 1, 31, 0, 0, 0, 0, time.UTC)},
		{Frequency(""), time.Date(2024, 1, 8, 0, 0, 0, 0, time.UTC)},
	}
	for _, tt := range tests {
		got := NextRunFrom(now, tt.freq)
		if !got.Equal(tt.want) {
			t.Errorf("NextRunFrom(%q) = %s, want %s", tt.freq, got, tt.want)
		}
	}
}

func TestReportWindow(t *testing.T) {
	now := time.Date(2024, 3, 15, 9, 30, 0, 0, time.UTC)
	start, end := ReportWindow(now, FrequencyBiweekly)

	if !end.Equal(time.Date(2024, 3, 15, 0, 0, 0, 0, time.UTC)) {
		t.Fatalf("end = %s, want date of now", end)
	}
	if !start.Equal(time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)) {
		t.Fatalf("start = %s, want 14 days before end", start)
	}
}

func TestDateOnlyNormalizesToUTC(t *testing.T) {
	loc := time.FixedZone("UTC+5", 5*3600)
	got := DateOnly(time.Date(2024, 6, 1, 2, 0, 0, 0, loc))
	// 02:00 at UTC+5 is still May 31 in UTC.
	want := time.Date(2024, 5, 31, 0, 0, 0, 0, time.UTC)
	if !got.Equal(want) {
		t.Fatalf("DateOnly = %s, want %s", got, want)
	}
}

func TestConfigContext(t *testing.T) {
	c := Config{
		ID:                "tenant-1",
		NotionAccessToken: "notion-tok",
		GAAccessToken:     "ga-tok",
		GARefreshToken:    "ga-refresh",
		GAPropertyID:      "prop-9",
		Frequency:         FrequencyMonthly,
	}

	ctx := c.Context()
	if ctx.TenantID != "tenant-1" || ctx.NotionToken != "notion-tok" {
		t.Fatalf("identifiers not carried: %+v", ctx)
	}
	if ctx.GAAccessToken != "ga-tok" || ctx.GARefreshToken != "ga-refresh" || ctx.GAPropertyID != "prop-9" {
		t.Fatalf("analytics credentials not carried: %+v", ctx)
	}
	if ctx.ReportDays != 30 {
		t.Fatalf("ReportDays = %d, want 30", ctx.ReportDays)
	}
}
