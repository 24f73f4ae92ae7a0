// Package service wires the report workflow: the step implementations, the
// graph they form, the run coordinator, and the recurring scheduler.
package service

import (
	"time"

	"github.com/alytics/alytics/internal/domain/report"
	"github.com/alytics/alytics/internal/graph"
	"github.com/alytics/alytics/internal/port/analytics"
	"github.com/alytics/alytics/internal/port/charts"
	"github.com/alytics/alytics/internal/port/docstore"
	"github.com/alytics/alytics/internal/port/objectstore"
	"github.com/alytics/alytics/internal/port/tenantstore"
	"github.com/alytics/alytics/internal/port/textgen"
)

// Step names of the report workflow.
const (
	StepGatherData   = "gatherData"
	StepAnalyze      = "analyze"
	StepRenderCharts = "renderCharts"
	StepCompile      = "compile"
	StepCritique     = "critique"
	StepPublish      = "publish"
)

// ReportDefinition builds the report workflow graph:
//
//	gatherData → {analyze, renderCharts} → compile → critique → publish
//
// analyze and renderCharts are independent and run concurrently.
func ReportDefinition() (*graph.Definition, error) {
	return graph.NewDefinition(
		[]string{
			StepGatherData,
			StepAnalyze,
			StepRenderCharts,
			StepCompile,
			StepCritique,
			StepPublish,
		},
		[]graph.Edge{
			{From: graph.Start, To: StepGatherData},
			{From: StepGatherData, To: StepAnalyze},
			{From: StepGatherData, To: StepRenderCharts},
			{From: StepAnalyze, To: StepCompile},
			{From: StepRenderCharts, To: StepCompile},
			{From: StepCompile, To: StepCritique},
			{From: StepCritique, To: StepPublish},
			{From: StepPublish, To: graph.End},
		},
	)
}

// Collaborators bundles the external services the workflow steps call.
type Collaborators struct {
	Tenants   tenantstore.Store
	Analytics analytics.Client
	TextGen   textgen.Generator
	Charts    charts.Renderer
	Objects   objectstore.Store
	Docs      docstore.Publisher

	// ParentHint is the page title the publish step resolves as the
	// report's parent location.
	ParentHint string
}

// NewRegistry builds the step registry from the collaborators. specs
// selects which charts are rendered; pass report.DefaultChartSpecs() for
// the standard set.
func NewRegistry(c Collaborators, specs []report.ChartSpec) graph.Registry {
	now := time.Now
	return graph.Registry{
		StepGatherData:   &gatherStep{analytics: c.Analytics, tenants: c.Tenants, now: now},
		StepAnalyze:      &analyzeStep{gen: c.TextGen},
		StepRenderCharts: &renderChartsStep{specs: specs, renderer: c.Charts, objects: c.Objects, now: now},
		StepCompile:      &compileStep{gen: c.TextGen},
		StepCritique:     &critiqueStep{gen: c.TextGen},
		StepPublish:      &publishStep{docs: c.Docs, hint: c.ParentHint, now: now},
	}
}
