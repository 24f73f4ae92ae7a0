package service

import (
	"context"
	"fmt"

	"github.com/alytics/alytics/internal/domain/report"
	"github.com/alytics/alytics/internal/port/textgen"
)

// analyzeStep turns raw metric rows into an analyst narrative. When every
// report came back empty it short-circuits to the no-data notice without
// calling the generator.
type analyzeStep struct {
	gen textgen.Generator
}

func (s *analyzeStep) Name() string { return StepAnalyze }

func (s *analyzeStep) Requires() []report.Field {
	return []report.Field{report.FieldRawData, report.FieldGoals}
}

func (s *analyzeStep) Writes() []report.Field {
	return []report.Field{report.FieldAnalysis}
}

func (s *analyzeStep) Execute(ctx context.Context, snapshot report.State) (report.Update, error) {
	if !snapshot.HasData() {
		return report.Update{Analysis: report.Text(report.NoDataNotice)}, nil
	}

	analysis, err := s.gen.Generate(ctx, textgen.RoleAnalyst, textgen.Input{
		Data:  snapshot.RawData,
		Goals: snapshot.Goals,
	})
	if err != nil {
		return report.Update{}, fmt.Errorf("analyze: %w", err)
	}
	return report.Update{Analysis: report.Text(analysis)}, nil
}
