// Package openai implements the text-generation port against the OpenAI
// chat completions API.
package openai

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/alytics/alytics/internal/domain"
	"github.com/alytics/alytics/internal/port/textgen"
	"github.com/alytics/alytics/internal/resilience"
)

// Client calls the OpenAI chat completions endpoint with role-specific
// prompts. The compile role uses a larger model than the cheaper
// analysis/translation roles.
type Client struct {
	baseURL      string
	apiKey       string
	model        string
	compileModel string
	httpClient   *http.Client
	breaker      *resilience.Breaker
}

// NewClient creates a text-generation client.
func NewClient(baseURL, apiKey, model, compileModel string) *Client {
	return &Client{
		baseURL:      baseURL,
		apiKey:       apiKey,
		model:        model,
		compileModel: compileModel,
		httpClient: &http.Client{
			Timeout: 120 * time.Second,
		},
	}
}

// SetBreaker attaches a circuit breaker to all outgoing calls.
func (c *Client) SetBreaker(b *resilience.Breaker) {
	c.breaker = b
}

type chatRequest struct {
	Model    string        `json:"model"`
	Messages []chatMessage `json:"messages"`
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatResponse struct {
	Choices []struct {
		Message chatMessage `json:"message"`
	} `json:"choices"`
}

// Generate renders the role's prompt over the structured input and returns
// the model's text.
func (c *Client) Generate(ctx context.Context, role textgen.Role, in textgen.Input) (string, error) {
	prompt, err := promptFor(role, in)
	if err != nil {
		return "", fmt.Errorf("build prompt: %w", err)
	}

	model := c.model
	if role == textgen.RoleCopywriter {
		model = c.compileModel
	}

	body, err := json.Marshal(chatRequest{
		Model:    model,
		Messages: []chatMessage{{Role: "user", Content: prompt}},
	})
	if err != nil {
		return "", fmt.Errorf("marshal chat request: %w", err)
	}

	var out chatResponse
	call := func() error {
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/v1/chat/completions", bytes.NewReader(body))
		if err != nil {
			return fmt.Errorf("create request: %w", err)
		}
		req.Header.Set("Content-Type", "application/json")
		req.Header.Set("Authorization", "Bearer "+c.apiKey)

		resp, err := c.httpClient.Do(req)
		if err != nil {
			return fmt.Errorf("http request: %w", err)
		}
		defer func() { _ = resp.Body.Close() }()

		data, err := io.ReadAll(resp.Body)
		if err != nil {
			return fmt.Errorf("read response: %w", err)
		}
		if resp.StatusCode >= 400 {
			return fmt.Errorf("openai API error %d: %s", resp.StatusCode, string(data))
		}
		return json.Unmarshal(data, &out)
	}

	if c.breaker != nil {
		err = c.breaker.Do(ctx, call)
	} else {
		err = call()
	}
	if err != nil {
		return "", domain.Collab("openai", err)
	}
	if len(out.Choices) == 0 {
		return "", domain.Collab("openai", fmt.Errorf("empty completion for role %s", role))
	}
	return out.Choices[0].Message.Content, nil
}
