// Package tenantstore defines the tenant-configuration storage port.
package tenantstore

import (
	"context"
	"time"

	"github.com/alytics/alytics/internal/domain/tenant"
)

// Store is the port for persisted tenant report configuration.
// NextRun is the only field the core mutates; everything else is owned by
// the onboarding flow.
type Store interface {
	// GetTenant returns one tenant's configuration, or domain.ErrNotFound.
	GetTenant(ctx context.Context, id string) (*tenant.Config, error)

	// ListDueTenants returns every tenant whose next run date is on or
	// before today. Overdue tenants must not be skipped.
	ListDueTenants(ctx context.Context, today time.Time) ([]tenant.Config, error)

	// UpdateNextRun advances a tenant's next due date.
	UpdateNextRun(ctx context.Context, id string, next time.Time) error

	// Goals returns the tenant's business goals markdown; implementations
	// return a "no goals" notice rather than an error when none is stored.
	Goals(ctx context.Context, id string) (string, error)
}
