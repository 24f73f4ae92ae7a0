// Package supabase implements the object-store port against Supabase Storage.
package supabase

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/alytics/alytics/internal/domain"
)

// signedURLTTL is how long chart image links stay valid: one week, long
// enough to outlive the report's publication.
const signedURLTTL = 7 * 24 * time.Hour

// Storage uploads chart images to a Supabase Storage bucket and signs URLs.
type Storage struct {
	baseURL    string
	serviceKey string
	bucket     string
	httpClient *http.Client
}

// NewStorage creates a storage client for the given bucket.
func NewStorage(baseURL, serviceKey, bucket string) *Storage {
	return &Storage{
		baseURL:    baseURL,
		serviceKey: serviceKey,
		bucket:     bucket,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
}

// Upload upserts an object and returns a signed URL for it.
func (s *Storage) Upload(ctx context.Context, name string, data []byte, contentType string) (string, error) {
	uploadURL := fmt.Sprintf("%s/storage/v1/object/%s/%s", s.baseURL, s.bucket, name)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, uploadURL, bytes.NewReader(data))
	if err != nil {
		return "", domain.Collab("supabase", fmt.Errorf("create upload request: %w", err))
	}
	req.Header.Set("Authorization", "Bearer "+s.serviceKey)
	req.Header.Set("Content-Type", contentType)
	req.Header.Set("x-upsert", "true")

	if err := s.do(req, nil); err != nil {
		return "", domain.Collab("supabase", fmt.Errorf("upload %s: %w", name, err))
	}

	signBody, err := json.Marshal(map[string]int{"expiresIn": int(signedURLTTL.Seconds())})
	if err != nil {
		return "", domain.Collab("supabase", fmt.Errorf("marshal sign request: %w", err))
	}
	signURL := fmt.Sprintf("%s/storage/v1/object/sign/%s/%s", s.baseURL, s.bucket, name)
	signReq, err := http.NewRequestWithContext(ctx, http.MethodPost, signURL, bytes.NewReader(signBody))
	if err != nil {
		return "", domain.Collab("supabase", fmt.Errorf("create sign request: %w", err))
	}
	signReq.Header.Set("Authorization", "Bearer "+s.serviceKey)
	signReq.Header.Set("Content-Type", "application/json")

	var signed struct {
		SignedURL string `json:"signedURL"`
	}
	if err := s.do(signReq, &signed); err != nil {
		return "", domain.Collab("supabase", fmt.Errorf("sign %s: %w", name, err))
	}
	if signed.SignedURL == "" {
		return "", domain.Collab("supabase", fmt.Errorf("empty signed URL for %s", name))
	}

	return s.baseURL + "/storage/v1" + signed.SignedURL, nil
}

func (s *Storage) do(req *http.Request, out any) error {
	resp, err := s.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("http request: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("read response: %w", err)
	}
	if resp.StatusCode >= 400 {
		return fmt.Errorf("storage API error %d: %s", resp.StatusCode, string(data))
	}
	if out != nil {
		return json.Unmarshal(data, out)
	}
	return nil
}
