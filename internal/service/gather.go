package service

import (
	"context"
	"fmt"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/alytics/alytics/internal/domain/report"
	"github.com/alytics/alytics/internal/port/analytics"
	"github.com/alytics/alytics/internal/port/tenantstore"
)

// gatherStep fetches the raw analytics reports and the tenant's business
// goals concurrently. Both must succeed for the run to proceed.
type gatherStep struct {
	analytics analytics.Client
	tenants   tenantstore.Store
	now       func() time.Time
}

func (s *gatherStep) Name() string { return StepGatherData }

func (s *gatherStep) Requires() []report.Field {
	return []report.Field{report.FieldTenant}
}

func (s *gatherStep) Writes() []report.Field {
	return []report.Field{report.FieldRawData, report.FieldGoals}
}

func (s *gatherStep) Execute(ctx context.Context, snapshot report.State) (report.Update, error) {
	t := snapshot.Tenant
	end := s.now().UTC()
	window := analytics.DateRange{
		Start: end.AddDate(0, 0, -t.ReportDays),
		End:   end,
	}

	var (
		data  map[string][]report.Record
		goals string
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		data, err = s.analytics.FetchReports(gctx, analytics.Credentials{
			AccessToken:  t.GAAccessToken,
			RefreshToken: t.GARefreshToken,
			PropertyID:   t.GAPropertyID,
		}, window)
		if err != nil {
			return fmt.Errorf("fetch reports: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		var err error
		goals, err = s.tenants.Goals(gctx, t.TenantID)
		if err != nil {
			return fmt.Errorf("fetch goals: %w", err)
		}
		return nil
	})
	if err := g.Wait(); err != nil {
		return report.Update{}, err
	}

	if data == nil {
		data = map[string][]report.Record{}
	}
	return report.Update{RawData: data, Goals: report.Text(goals)}, nil
}
