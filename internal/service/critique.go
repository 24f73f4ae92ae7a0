package service

import (
	"context"
	"fmt"

	"github.com/alytics/alytics/internal/domain/report"
	"github.com/alytics/alytics/internal/port/textgen"
)

// critiqueStep has a second persona review and rewrite the compiled report
// before publication. The no-data notice passes through untouched.
type critiqueStep struct {
	gen textgen.Generator
}

func (s *critiqueStep) Name() string { return StepCritique }

func (s *critiqueStep) Requires() []report.Field {
	return []report.Field{report.FieldReport}
}

func (s *critiqueStep) Writes() []report.Field {
	return []report.Field{report.FieldReport}
}

func (s *critiqueStep) Execute(ctx context.Context, snapshot report.State) (report.Update, error) {
	if snapshot.Report == report.NoDataNotice {
		return report.Update{Report: report.Text(snapshot.Report)}, nil
	}

	reviewed, err := s.gen.Generate(ctx, textgen.RoleCriticalThinker, textgen.Input{
		Goals:  snapshot.Goals,
		Report: snapshot.Report,
	})
	if err != nil {
		return report.Update{}, fmt.Errorf("critique: %w", err)
	}
	return report.Update{Report: report.Text(reviewed)}, nil
}
