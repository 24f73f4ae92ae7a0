//go:build integration

package integration_test

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"testing"
	"time"

	"github.com/alytics/alytics/internal/domain"
	"github.com/alytics/alytics/internal/domain/tenant"
)

func TestTriggerReportLifecycle(t *testing.T) {
	cleanDB(testPool)
	id := seedTenant(t, tenant.FrequencyWeekly, time.Date(2024, 1, 8, 0, 0, 0, 0, time.UTC))

	// 1. Trigger a run for the seeded tenant
	body, _ := json.Marshal(map[string]string{"tenant_id": id})
	resp, err := http.Post(testServer.URL+"/api/v1/reports/run", "application/json", bytes.NewReader(body))
	if err != nil {
		t.Fatalf("trigger: %v", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusAccepted {
		t.Fatalf("trigger: expected 202, got %d", resp.StatusCode)
	}
	var trigger struct {
		Success bool   `json:"success"`
		RunID   string `json:"run_id"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&trigger); err != nil {
		t.Fatalf("decode trigger: %v", err)
	}
	if !trigger.Success || trigger.RunID == "" {
		t.Fatalf("trigger response: %+v", trigger)
	}

	// 2. Unknown tenant is rejected before dispatch
	body, _ = json.Marshal(map[string]string{"tenant_id": "00000000-0000-0000-0000-000000000000"})
	resp2, err := http.Post(testServer.URL+"/api/v1/reports/run", "application/json", bytes.NewReader(body))
	if err != nil {
		t.Fatalf("trigger unknown: %v", err)
	}
	defer func() { _ = resp2.Body.Close() }()
	if resp2.StatusCode != http.StatusNotFound {
		t.Fatalf("trigger unknown: expected 404, got %d", resp2.StatusCode)
	}

	// 3. Schedule endpoint exposes frequency and next run, never credentials
	resp3, err := http.Get(testServer.URL + "/api/v1/tenants/" + id + "/schedule")
	if err != nil {
		t.Fatalf("schedule: %v", err)
	}
	defer func() { _ = resp3.Body.Close() }()
	if resp3.StatusCode != http.StatusOK {
		t.Fatalf("schedule: expected 200, got %d", resp3.StatusCode)
	}
	var schedule map[string]any
	if err := json.NewDecoder(resp3.Body).Decode(&schedule); err != nil {
		t.Fatalf("decode schedule: %v", err)
	}
	if schedule["frequency"] != "weekly" {
		t.Fatalf("frequency = %v", schedule["frequency"])
	}
	for key := range schedule {
		if key == "notion_access_token" || key == "ga_access_token" || key == "ga_refresh_token" {
			t.Fatalf("credential field %q serialized", key)
		}
	}
}

func TestStoreListDueTenants(t *testing.T) {
	cleanDB(testPool)
	ctx := context.Background()
	today := time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC)

	overdue := seedTenant(t, tenant.FrequencyWeekly, today.AddDate(0, 0, -3))
	dueToday := seedTenant(t, tenant.FrequencyMonthly, today)
	_ = seedTenant(t, tenant.FrequencyWeekly, today.AddDate(0, 0, 2))

	due, err := testStore.ListDueTenants(ctx, today)
	if err != nil {
		t.Fatalf("ListDueTenants: %v", err)
	}
	if len(due) != 2 {
		t.Fatalf("expected 2 due tenants, got %d", len(due))
	}
	// Most overdue first.
	if due[0].ID != overdue || due[1].ID != dueToday {
		t.Fatalf("due order = %s, %s", due[0].ID, due[1].ID)
	}
	if due[0].GAPropertyID != "prop-1" || due[0].NotionAccessToken != "notion-tok" {
		t.Fatalf("credentials not loaded: %+v", due[0])
	}
}

func TestStoreUpdateNextRun(t *testing.T) {
	cleanDB(testPool)
	ctx := context.Background()
	id := seedTenant(t, tenant.FrequencyWeekly, time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC))

	next := time.Date(2024, 6, 8, 0, 0, 0, 0, time.UTC)
	if err := testStore.UpdateNextRun(ctx, id, next); err != nil {
		t.Fatalf("UpdateNextRun: %v", err)
	}

	got, err := testStore.GetTenant(ctx, id)
	if err != nil {
		t.Fatalf("GetTenant: %v", err)
	}
	if !got.NextRun.UTC().Equal(next) {
		t.Fatalf("next run = %s, want %s", got.NextRun, next)
	}

	err = testStore.UpdateNextRun(ctx, "00000000-0000-0000-0000-000000000000", next)
	if !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("expected ErrNotFound for unknown tenant, got %v", err)
	}
}

func TestStoreGoals(t *testing.T) {
	cleanDB(testPool)
	ctx := context.Background()
	id := seedTenant(t, tenant.FrequencyWeekly, time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC))

	// No goals row yet: default notice, not an error.
	goals, err := testStore.Goals(ctx, id)
	if err != nil {
		t.Fatalf("Goals: %v", err)
	}
	if goals != "No goals found." {
		t.Fatalf("goals = %q", goals)
	}

	if _, err := testPool.Exec(ctx,
		"INSERT INTO tenant_goals (tenant_id, goals) VALUES ($1, $2)",
		id, "Grow weekly active users by 10%.",
	); err != nil {
		t.Fatalf("insert goals: %v", err)
	}

	goals, err = testStore.Goals(ctx, id)
	if err != nil {
		t.Fatalf("Goals: %v", err)
	}
	if goals != "Grow weekly active users by 10%." {
		t.Fatalf("goals = %q", goals)
	}
}
