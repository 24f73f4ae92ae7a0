// Package http exposes the report trigger API and HTTP middleware.
package http

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/alytics/alytics/internal/domain"
	"github.com/alytics/alytics/internal/domain/tenant"
	"github.com/alytics/alytics/internal/port/tenantstore"
)

const maxRequestBodySize = 1 << 20 // 1 MB

// Dispatcher starts a report run in the background and returns its ID.
type Dispatcher interface {
	Dispatch(t tenant.Config) string
}

// Handlers holds the HTTP handler dependencies.
type Handlers struct {
	Tenants tenantstore.Store
	Runs    Dispatcher
}

// triggerRequest identifies the tenant to run and may carry inline
// credentials that override the stored ones for this run only.
type triggerRequest struct {
	TenantID          string `json:"tenant_id"`
	GAPropertyID      string `json:"ga_property_id"`
	GAAccessToken     string `json:"ga_access_token"`
	GARefreshToken    string `json:"ga_refresh_token"`
	NotionAccessToken string `json:"notion_access_token"`
}

// overlay merges the request's non-empty credential fields onto the stored
// tenant config. The stored row is never written back.
func (r *triggerRequest) overlay(t tenant.Config) tenant.Config {
	if r.GAPropertyID != "" {
		t.GAPropertyID = r.GAPropertyID
	}
	if r.GAAccessToken != "" {
		t.GAAccessToken = r.GAAccessToken
	}
	if r.GARefreshToken != "" {
		t.GARefreshToken = r.GARefreshToken
	}
	if r.NotionAccessToken != "" {
		t.NotionAccessToken = r.NotionAccessToken
	}
	return t
}

type triggerResponse struct {
	Success bool   `json:"success"`
	RunID   string `json:"run_id"`
}

// TriggerReport starts a report run for one tenant. The run executes in the
// background; the response only acknowledges the dispatch.
func (h *Handlers) TriggerReport(w http.ResponseWriter, r *http.Request) {
	req, ok := readJSON[triggerRequest](w, r)
	if !ok {
		return
	}
	if !requireField(w, req.TenantID, "tenant_id") {
		return
	}

	t, err := h.Tenants.GetTenant(r.Context(), req.TenantID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			writeError(w, http.StatusNotFound, "tenant not found")
			return
		}
		writeInternalError(w, err)
		return
	}

	runID := h.Runs.Dispatch(req.overlay(*t))
	slog.Info("report run dispatched", "tenant_id", t.ID, "run_id", runID)
	writeJSON(w, http.StatusAccepted, triggerResponse{Success: true, RunID: runID})
}

// GetTenantSchedule returns a tenant's reporting frequency and next run date.
func (h *Handlers) GetTenantSchedule(w http.ResponseWriter, r *http.Request) {
	id := urlParam(r, "id")
	if !requireField(w, id, "id") {
		return
	}

	t, err := h.Tenants.GetTenant(r.Context(), id)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			writeError(w, http.StatusNotFound, "tenant not found")
			return
		}
		writeInternalError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, t)
}

// Health reports service liveness.
func Health(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
