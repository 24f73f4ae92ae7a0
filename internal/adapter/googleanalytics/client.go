// Package googleanalytics implements the analytics port against the Google
// Analytics Data API (v1beta).
package googleanalytics

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"sync"
	"time"

	"github.com/alytics/alytics/internal/port/analytics"

	"github.com/alytics/alytics/internal/domain/report"
)

// reportDef describes one standard report request.
type reportDef struct {
	Name       string
	Dimensions []string
	Metrics    []string
	OrderBy    string // metric name to sort by, descending; empty = API order
	Limit      int
}

// standardReports are the three reports every run gathers.
var standardReports = []reportDef{
	{
		Name:       "Top Pages",
		Dimensions: []string{"pagePath"},
		Metrics:    []string{"screenPageViews"},
		OrderBy:    "screenPageViews",
		Limit:      10,
	},
	{
		Name:       "Source Engagement",
		Dimensions: []string{"sessionSource"},
		Metrics:    []string{"activeUsers", "averageSessionDuration"},
		OrderBy:    "activeUsers",
		Limit:      10,
	},
	{
		Name:       "Country Report",
		Dimensions: []string{"country"},
		Metrics:    []string{"activeUsers"},
	},
}

// Client fetches analytics reports for a tenant property.
type Client struct {
	baseURL      string
	tokenURL     string
	clientID     string
	clientSecret string
	httpClient   *http.Client
}

// NewClient creates an analytics data client. clientID/clientSecret are
// the OAuth application credentials used to refresh expired tenant tokens.
func NewClient(baseURL, tokenURL, clientID, clientSecret string) *Client {
	return &Client{
		baseURL:      baseURL,
		tokenURL:     tokenURL,
		clientID:     clientID,
		clientSecret: clientSecret,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
}

// FetchReports runs all standard reports concurrently. A failing report is
// degraded to an empty list for its name rather than aborting the fetch.
func (c *Client) FetchReports(ctx context.Context, creds analytics.Credentials, window analytics.DateRange) (map[string][]report.Record, error) {
	results := make(map[string][]report.Record, len(standardReports))
	var mu sync.Mutex
	var wg sync.WaitGroup

	for _, def := range standardReports {
		wg.Add(1)
		go func(def reportDef) {
			defer wg.Done()
			rows, err := c.runReport(ctx, creds, def, window)
			if err != nil {
				slog.Warn("analytics report failed, degrading to empty",
					"report", def.Name, "property", creds.PropertyID, "error", err)
				rows = []report.Record{}
			}
			mu.Lock()
			results[def.Name] = rows
			mu.Unlock()
		}(def)
	}
	wg.Wait()

	return results, nil
}

type runReportRequest struct {
	DateRanges []dateRange `json:"dateRanges"`
	Dimensions []named     `json:"dimensions"`
	Metrics    []named     `json:"metrics"`
	OrderBys   []orderBy   `json:"orderBys,omitempty"`
	Limit      int         `json:"limit,omitempty"`
}

type dateRange struct {
	StartDate string `json:"startDate"`
	EndDate   string `json:"endDate"`
}

type named struct {
	Name string `json:"name"`
}

type orderBy struct {
	Metric struct {
		MetricName string `json:"metricName"`
	} `json:"metric"`
	Desc bool `json:"desc"`
}

type runReportResponse struct {
	Rows []struct {
		DimensionValues []struct {
			Value string `json:"value"`
		} `json:"dimensionValues"`
		MetricValues []struct {
			Value string `json:"value"`
		} `json:"metricValues"`
	} `json:"rows"`
}

// runReport executes a single report. On a 401 the tenant access token is
// refreshed once and the report retried.
func (c *Client) runReport(ctx context.Context, creds analytics.Credentials, def reportDef, window analytics.DateRange) ([]report.Record, error) {
	reqBody := runReportRequest{
		DateRanges: []dateRange{{
			StartDate: window.Start.Format("2006-01-02"),
			EndDate:   window.End.Format("2006-01-02"),
		}},
		Limit: def.Limit,
	}
	for _, d := range def.Dimensions {
		reqBody.Dimensions = append(reqBody.Dimensions, named{Name: d})
	}
	for _, m := range def.Metrics {
		reqBody.Metrics = append(reqBody.Metrics, named{Name: m})
	}
	if def.OrderBy != "" {
		var ob orderBy
		ob.Metric.MetricName = def.OrderBy
		ob.Desc = true
		reqBody.OrderBys = []orderBy{ob}
	}

	body, err := json.Marshal(reqBody)
	if err != nil {
		return nil, fmt.Errorf("marshal report request: %w", err)
	}

	token := creds.AccessToken
	data, status, err := c.post(ctx, token, creds.PropertyID, body)
	if status == http.StatusUnauthorized && creds.RefreshToken != "" {
		token, err = c.refreshToken(ctx, creds.RefreshToken)
		if err != nil {
			return nil, err
		}
		data, status, err = c.post(ctx, token, creds.PropertyID, body)
	}
	if err != nil {
		return nil, err
	}
	if status >= 400 {
		return nil, fmt.Errorf("analytics API error %d: %s", status, string(data))
	}

	var resp runReportResponse
	if err := json.Unmarshal(data, &resp); err != nil {
		return nil, fmt.Errorf("unmarshal report response: %w", err)
	}

	rows := make([]report.Record, 0, len(resp.Rows))
	for _, row := range resp.Rows {
		rec := make(report.Record, len(def.Dimensions)+len(def.Metrics))
		for i, d := range def.Dimensions {
			val := "unknown"
			if i < len(row.DimensionValues) && row.DimensionValues[i].Value != "" {
				val = row.DimensionValues[i].Value
			}
			rec[d] = val
		}
		for i, m := range def.Metrics {
			var raw string
			if i < len(row.MetricValues) {
				raw = row.MetricValues[i].Value
			}
			n, err := strconv.ParseFloat(raw, 64)
			if err != nil {
				n = 0
			}
			rec[m] = n
		}
		rows = append(rows, rec)
	}
	return rows, nil
}

func (c *Client) post(ctx context.Context, token, propertyID string, body []byte) (data []byte, status int, err error) {
	endpoint := fmt.Sprintf("%s/v1beta/properties/%s:runReport", c.baseURL, propertyID)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, 0, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+token)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, 0, fmt.Errorf("http request: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	data, err = io.ReadAll(resp.Body)
	if err != nil {
		return nil, resp.StatusCode, fmt.Errorf("read response: %w", err)
	}
	return data, resp.StatusCode, nil
}

// refreshToken exchanges the tenant's refresh token for a new access token.
func (c *Client) refreshToken(ctx context.Context, refreshToken string) (string, error) {
	form := url.Values{
		"client_id":     {c.clientID},
		"client_secret": {c.clientSecret},
		"refresh_token": {refreshToken},
		"grant_type":    {"refresh_token"},
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.tokenURL, bytes.NewBufferString(form.Encode()))
	if err != nil {
		return "", fmt.Errorf("create refresh request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("token refresh: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("read refresh response: %w", err)
	}
	if resp.StatusCode >= 400 {
		return "", fmt.Errorf("token refresh error %d: %s", resp.StatusCode, string(data))
	}

	var out struct {
		AccessToken string `json:"access_token"`
	}
	if err := json.Unmarshal(data, &out); err != nil {
		return "", fmt.Errorf("unmarshal refresh response: %w", err)
	}
	if out.AccessToken == "" {
		return "", fmt.Errorf("token refresh returned empty access token")
	}
	return out.AccessToken, nil
}
