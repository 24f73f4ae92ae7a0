package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/alytics/alytics/internal/domain"
	"github.com/alytics/alytics/internal/domain/tenant"
)

// Store implements tenantstore.Store using PostgreSQL.
type Store struct {
	pool *pgxpool.Pool
}

// NewStore creates a new Store backed by the given connection pool.
func NewStore(pool *pgxpool.Pool) *Store {
	return &Store{pool: pool}
}

const tenantColumns = `id, notion_access_token, ga_access_token, ga_refresh_token,
	       ga_property_id, frequency, next_run, created_at, updated_at`

// GetTenant returns the reporting configuration for a single tenant.
func (s *Store) GetTenant(ctx context.Context, id string) (*tenant.Config, error) {
	row := s.pool.QueryRow(ctx,
		`SELECT `+tenantColumns+` FROM tenant_configs WHERE id = $1`, id)

	t, err := scanTenant(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("get tenant %s: %w", id, domain.ErrNotFound)
		}
		return nil, fmt.Errorf("get tenant %s: %w", id, err)
	}
	return &t, nil
}

// ListDueTenants returns every tenant whose next_run is on or before today.
func (s *Store) ListDueTenants(ctx context.Context, today time.Time) ([]tenant.Config, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT `+tenantColumns+` FROM tenant_configs
		 WHERE next_run <= $1 ORDER BY next_run ASC, id ASC`, today)
	if err != nil {
		return nil, fmt.Errorf("list due tenants: %w", err)
	}
	defer rows.Close()

	var tenants []tenant.Config
	for rows.Next() {
		t, err := scanTenant(rows)
		if err != nil {
			return nil, fmt.Errorf("scan tenant: %w", err)
		}
		tenants = append(tenants, t)
	}
	return tenants, rows.Err()
}

// UpdateNextRun moves a tenant's next scheduled run forward.
func (s *Store) UpdateNextRun(ctx context.Context, id string, nextRun time.Time) error {
	tag, err := s.pool.Exec(ctx,
		`UPDATE tenant_configs SET next_run = $2, updated_at = now() WHERE id = $1`,
		id, nextRun)
	if err != nil {
		return fmt.Errorf("update next run %s: %w", id, err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("update next run %s: %w", id, domain.ErrNotFound)
	}
	return nil
}

// Goals returns the tenant's business goals as markdown, used to steer
// analysis. Tenants with no stored goals fall back to a neutral default.
func (s *Store) Goals(ctx context.Context, id string) (string, error) {
	var goals string
	err := s.pool.QueryRow(ctx,
		`SELECT goals FROM tenant_goals WHERE tenant_id = $1`, id,
	).Scan(&goals)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return "No goals found.", nil
		}
		return "", fmt.Errorf("get goals %s: %w", id, err)
	}
	return goals, nil
}

type scannable interface {
	Scan(dest ...any) error
}

func scanTenant(row scannable) (tenant.Config, error) {
	var t tenant.Config
	var freq string
	err := row.Scan(&t.ID, &t.NotionAccessToken, &t.GAAccessToken, &t.GARefreshToken,
		&t.GAPropertyID, &freq, &t.NextRun, &t.CreatedAt, &t.UpdatedAt)
	if err != nil {
		return t, err
	}
	t.Frequency = tenant.Frequency(freq)
	return t, nil
}
