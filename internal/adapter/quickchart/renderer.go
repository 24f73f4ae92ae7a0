// Package quickchart implements the chart-rendering port against a
// QuickChart-compatible Chart.js rendering service.
package quickchart

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/alytics/alytics/internal/domain"
	"github.com/alytics/alytics/internal/port/charts"
	"github.com/alytics/alytics/internal/resilience"
)

// Renderer posts Chart.js configurations and receives PNG bytes.
type Renderer struct {
	baseURL    string
	httpClient *http.Client
	breaker    *resilience.Breaker
}

// NewRenderer creates a chart renderer client.
func NewRenderer(baseURL string) *Renderer {
	return &Renderer{
		baseURL: baseURL,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
}

// SetBreaker attaches a circuit breaker to all outgoing calls.
func (r *Renderer) SetBreaker(b *resilience.Breaker) {
	r.breaker = b
}

// Render produces a PNG for the chart request.
func (r *Renderer) Render(ctx context.Context, req charts.RenderRequest) ([]byte, error) {
	payload := map[string]any{
		"format":          "png",
		"width":           800,
		"height":          600,
		"backgroundColor": "#1e1e2e",
		"chart":           chartConfig(req),
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("marshal chart config: %w", err)
	}

	var png []byte
	call := func() error {
		httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, r.baseURL+"/chart", bytes.NewReader(body))
		if err != nil {
			return fmt.Errorf("create request: %w", err)
		}
		httpReq.Header.Set("Content-Type", "application/json")

		resp, err := r.httpClient.Do(httpReq)
		if err != nil {
			return fmt.Errorf("http request: %w", err)
		}
		defer func() { _ = resp.Body.Close() }()

		data, err := io.ReadAll(resp.Body)
		if err != nil {
			return fmt.Errorf("read response: %w", err)
		}
		if resp.StatusCode >= 400 {
			return fmt.Errorf("chart render error %d: %s", resp.StatusCode, string(data))
		}
		png = data
		return nil
	}

	if r.breaker != nil {
		err = r.breaker.Do(ctx, call)
	} else {
		err = call()
	}
	if err != nil {
		return nil, domain.Collab("quickchart", err)
	}
	return png, nil
}

// chartConfig builds a Chart.js configuration. Pie charts get a per-slice
// HSL palette; other kinds get one hue per series.
func chartConfig(req charts.RenderRequest) map[string]any {
	datasets := make([]map[string]any, len(req.Datasets))
	for i, ds := range req.Datasets {
		var background, border any
		if req.Kind == "pie" {
			bg := make([]string, len(ds.Data))
			bd := make([]string, len(ds.Data))
			for j := range ds.Data {
				bg[j] = fmt.Sprintf("hsl(%d, 70%%, 50%%)", j*360/max(len(ds.Data), 1))
				bd[j] = fmt.Sprintf("hsl(%d, 90%%, 60%%)", j*360/max(len(ds.Data), 1))
			}
			background, border = bg, bd
		} else {
			background = fmt.Sprintf("hsl(%d, 70%%, 50%%)", (i*60)%360)
			border = fmt.Sprintf("hsl(%d, 90%%, 60%%)", (i*60)%360)
		}
		datasets[i] = map[string]any{
			"label":           ds.Label,
			"data":            ds.Data,
			"backgroundColor": background,
			"borderColor":     border,
			"borderWidth":     2,
		}
	}

	options := map[string]any{
		"plugins": map[string]any{
			"title": map[string]any{
				"display": true,
				"text":    req.Title,
				"color":   "#ffffff",
				"font":    map[string]any{"size": 24},
			},
			"legend": map[string]any{
				"labels": map[string]any{"color": "#ffffff"},
			},
		},
	}
	if req.Kind != "pie" {
		axis := map[string]any{
			"ticks": map[string]any{"color": "#ffffff"},
			"grid":  map[string]any{"color": "rgba(255, 255, 255, 0.1)"},
		}
		options["scales"] = map[string]any{"x": axis, "y": axis}
	}

	return map[string]any{
		"type": req.Kind,
		"data": map[string]any{
			"labels":   req.Labels,
			"datasets": datasets,
		},
		"options": options,
	}
}
