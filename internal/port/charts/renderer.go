// Package charts defines the chart-rendering collaborator port.
package charts

import "context"

// Dataset is one plotted series.
type Dataset struct {
	Label string
	Data  []float64
}

// RenderRequest describes one chart image.
type RenderRequest struct {
	Labels   []string
	Datasets []Dataset
	Kind     string // "bar" | "line" | "pie"
	Title    string
}

// Renderer produces an image (PNG bytes) for a chart request.
type Renderer interface {
	Render(ctx context.Context, req RenderRequest) ([]byte, error)
}
