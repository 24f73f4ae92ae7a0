// Package notion implements the document-publish port against the Notion API.
package notion

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/alytics/alytics/internal/domain"
	"github.com/alytics/alytics/internal/port/cache"
	"github.com/alytics/alytics/internal/resilience"
)

const apiVersion = "2022-06-28"

// locationTTL bounds how long a resolved parent page ID is reused before
// being looked up again.
const locationTTL = 12 * time.Hour

// Publisher resolves target pages and creates report documents. Resolved
// locations are cached per tenant token so retried publishes skip the
// search round-trip.
type Publisher struct {
	baseURL    string
	httpClient *http.Client
	breaker    *resilience.Breaker
	locations  cache.Cache
}

// NewPublisher creates a Notion publisher. locations may be nil to disable
// resolution caching.
func NewPublisher(baseURL string, locations cache.Cache) *Publisher {
	return &Publisher{
		baseURL:   baseURL,
		locations: locations,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
}

// SetBreaker attaches a circuit breaker to all outgoing calls.
func (p *Publisher) SetBreaker(b *resilience.Breaker) {
	p.breaker = b
}

// ResolveLocation searches the tenant's workspace for the page matching the
// hint and returns its ID.
func (p *Publisher) ResolveLocation(ctx context.Context, token, hint string) (string, error) {
	key := locationKey(token, hint)
	if p.locations != nil {
		if id, ok, _ := p.locations.Get(ctx, key); ok {
			return id, nil
		}
	}

	body, err := json.Marshal(map[string]any{
		"query": hint,
		"sort": map[string]string{
			"direction": "ascending",
			"timestamp": "last_edited_time",
		},
		"filter": map[string]string{
			"value":    "page",
			"property": "object",
		},
	})
	if err != nil {
		return "", domain.Collab("notion", fmt.Errorf("marshal search: %w", err))
	}

	var result struct {
		Results []struct {
			Object     string          `json:"object"`
			ID         string          `json:"id"`
			Properties json.RawMessage `json:"properties"`
		} `json:"results"`
	}
	if err := p.call(ctx, token, "/v1/search", body, &result); err != nil {
		return "", domain.Collab("notion", fmt.Errorf("search %q: %w", hint, err))
	}

	for _, r := range result.Results {
		if r.Object == "page" && r.ID != "" {
			if p.locations != nil {
				_ = p.locations.Set(ctx, key, r.ID, locationTTL)
			}
			return r.ID, nil
		}
	}
	return "", domain.Collab("notion", fmt.Errorf("no page found for %q: %w", hint, domain.ErrNotFound))
}

// CreateDocument converts the markdown report to Notion blocks and creates
// a new page under locationID.
func (p *Publisher) CreateDocument(ctx context.Context, token, locationID, title, markdown string) (string, error) {
	blocks := MarkdownToBlocks(markdown)
	body, err := json.Marshal(map[string]any{
		"parent": map[string]string{
			"type":    "page_id",
			"page_id": locationID,
		},
		"properties": map[string]any{
			"title": []map[string]any{
				{"text": map[string]string{"content": title}},
			},
		},
		"children": blocks,
	})
	if err != nil {
		return "", domain.Collab("notion", fmt.Errorf("marshal page create: %w", err))
	}

	var result struct {
		ID string `json:"id"`
	}
	if err := p.call(ctx, token, "/v1/pages", body, &result); err != nil {
		return "", domain.Collab("notion", fmt.Errorf("create page: %w", err))
	}
	return result.ID, nil
}

func (p *Publisher) call(ctx context.Context, token, path string, body []byte, out any) error {
	do := func() error {
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.baseURL+path, bytes.NewReader(body))
		if err != nil {
			return fmt.Errorf("create request: %w", err)
		}
		req.Header.Set("Content-Type", "application/json")
		req.Header.Set("Authorization", "Bearer "+token)
		req.Header.Set("Notion-Version", apiVersion)

		resp, err := p.httpClient.Do(req)
		if err != nil {
			return fmt.Errorf("http request: %w", err)
		}
		defer func() { _ = resp.Body.Close() }()

		data, err := io.ReadAll(resp.Body)
		if err != nil {
			return fmt.Errorf("read response: %w", err)
		}
		if resp.StatusCode >= 400 {
			return fmt.Errorf("notion API error %d: %s", resp.StatusCode, string(data))
		}
		return json.Unmarshal(data, out)
	}

	if p.breaker != nil {
		return p.breaker.Do(ctx, do)
	}
	return do()
}

// locationKey scopes cached page IDs to a tenant token without storing the
// token itself.
func locationKey(token, hint string) string {
	sum := sha256.Sum256([]byte(token))
	return fmt.Sprintf("notion:%s:%x", hint, sum[:8])
}
