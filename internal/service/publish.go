package service

import (
	"context"
	"fmt"
	"time"

	"github.com/alytics/alytics/internal/domain/report"
	"github.com/alytics/alytics/internal/port/docstore"
)

// publishStep creates the report document in the tenant's workspace. It is
// awaited like every other step: the run is not complete until the document
// exists or the create call has definitively failed.
type publishStep struct {
	docs docstore.Publisher
	hint string
	now  func() time.Time
}

func (s *publishStep) Name() string { return StepPublish }

func (s *publishStep) Requires() []report.Field {
	return []report.Field{report.FieldTenant, report.FieldReport}
}

func (s *publishStep) Writes() []report.Field { return nil }

func (s *publishStep) Execute(ctx context.Context, snapshot report.State) (report.Update, error) {
	token := snapshot.Tenant.NotionToken

	locationID, err := s.docs.ResolveLocation(ctx, token, s.hint)
	if err != nil {
		return report.Update{}, fmt.Errorf("resolve location: %w", err)
	}

	title := "Weekly Report " + s.now().UTC().Format("2006-01-02")
	if _, err := s.docs.CreateDocument(ctx, token, locationID, title, snapshot.Report); err != nil {
		return report.Update{}, fmt.Errorf("create document: %w", err)
	}
	return report.Update{}, nil
}
