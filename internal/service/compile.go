package service

import (
	"context"
	"fmt"

	"github.com/alytics/alytics/internal/domain/report"
	"github.com/alytics/alytics/internal/port/textgen"
)

// compileStep assembles the analysis and chart references into the final
// markdown report. Runs with no data pass the no-data notice through.
type compileStep struct {
	gen textgen.Generator
}

func (s *compileStep) Name() string { return StepCompile }

func (s *compileStep) Requires() []report.Field {
	return []report.Field{report.FieldRawData, report.FieldGoals, report.FieldAnalysis, report.FieldCharts}
}

func (s *compileStep) Writes() []report.Field {
	return []report.Field{report.FieldReport}
}

func (s *compileStep) Execute(ctx context.Context, snapshot report.State) (report.Update, error) {
	if !snapshot.HasData() {
		return report.Update{Report: report.Text(report.NoDataNotice)}, nil
	}

	compiled, err := s.gen.Generate(ctx, textgen.RoleCopywriter, textgen.Input{
		Data:     snapshot.RawData,
		Goals:    snapshot.Goals,
		Analysis: snapshot.Analysis,
		Charts:   snapshot.Charts,
	})
	if err != nil {
		return report.Update{}, fmt.Errorf("compile: %w", err)
	}
	return report.Update{Report: report.Text(compiled)}, nil
}
