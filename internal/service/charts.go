package service

import (
	"context"
	"fmt"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/alytics/alytics/internal/domain/report"
	"github.com/alytics/alytics/internal/port/charts"
	"github.com/alytics/alytics/internal/port/objectstore"
)

// renderChartsStep renders one chart per spec from the gathered rows and
// uploads each image, collecting the signed URLs. Any render or upload
// failure fails the whole step; a partial chart set would produce a report
// with broken embeds.
type renderChartsStep struct {
	specs    []report.ChartSpec
	renderer charts.Renderer
	objects  objectstore.Store
	now      func() time.Time
}

func (s *renderChartsStep) Name() string { return StepRenderCharts }

func (s *renderChartsStep) Requires() []report.Field {
	return []report.Field{report.FieldRawData}
}

func (s *renderChartsStep) Writes() []report.Field {
	return []report.Field{report.FieldCharts}
}

func (s *renderChartsStep) Execute(ctx context.Context, snapshot report.State) (report.Update, error) {
	date := s.now().UTC().Format("2006-01-02")

	results := make([]*report.Chart, len(s.specs))
	g, gctx := errgroup.WithContext(ctx)
	for i, spec := range s.specs {
		rows := snapshot.RawData[spec.DataKey]
		if len(rows) == 0 {
			continue
		}
		g.Go(func() error {
			req := buildRenderRequest(spec, rows)

			img, err := s.renderer.Render(gctx, req)
			if err != nil {
				return fmt.Errorf("render %s: %w", spec.Title, err)
			}

			name := fmt.Sprintf("%s/%s_%s.png", snapshot.Tenant.TenantID, spec.Title, date)
			url, err := s.objects.Upload(gctx, name, img, "image/png")
			if err != nil {
				return fmt.Errorf("upload %s: %w", spec.Title, err)
			}

			results[i] = &report.Chart{
				Title:       spec.Title,
				Description: spec.Description,
				URL:         url,
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return report.Update{}, err
	}

	// Preserve spec order; skipped specs leave gaps.
	rendered := make([]report.Chart, 0, len(s.specs))
	for _, c := range results {
		if c != nil {
			rendered = append(rendered, *c)
		}
	}
	return report.Update{Charts: rendered}, nil
}

// buildRenderRequest maps metric rows onto chart labels and series.
// Non-numeric metric values plot as zero rather than failing the chart.
func buildRenderRequest(spec report.ChartSpec, rows []report.Record) charts.RenderRequest {
	labels := make([]string, len(rows))
	for i, row := range rows {
		labels[i] = stringValue(row[spec.LabelKey])
	}

	datasets := make([]charts.Dataset, len(spec.ValueKeys))
	for j, key := range spec.ValueKeys {
		data := make([]float64, len(rows))
		for i, row := range rows {
			data[i] = floatValue(row[key])
		}
		datasets[j] = charts.Dataset{Label: key, Data: data}
	}

	return charts.RenderRequest{
		Labels:   labels,
		Datasets: datasets,
		Kind:     spec.Kind,
		Title:    spec.Title,
	}
}

func stringValue(v any) string {
	if s, ok := v.(string); ok {
		return s
	}
	if v == nil {
		return "unknown"
	}
	return fmt.Sprint(v)
}

func floatValue(v any) float64 {
	switch n := v.(type) {
	case float64:
		return n
	case int:
		return float64(n)
	case int64:
		return float64(n)
	default:
		return 0
	}
}
