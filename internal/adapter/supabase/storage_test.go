package supabase

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/alytics/alytics/internal/domain"
)

func TestUpload(t *testing.T) {
	var uploaded []byte
	var signReq map[string]int
	mux := http.NewServeMux()
	mux.HandleFunc("/storage/v1/object/charts/tenant-1/Top_Pages_2024-01-01.png", func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "Bearer service-key" {
			t.Errorf("Authorization = %q", r.Header.Get("Authorization"))
		}
		if r.Header.Get("x-upsert") != "true" {
			t.Error("upload should upsert")
		}
		if r.Header.Get("Content-Type") != "image/png" {
			t.Errorf("Content-Type = %q", r.Header.Get("Content-Type"))
		}
		uploaded, _ = io.ReadAll(r.Body)
		_ = json.NewEncoder(w).Encode(map[string]string{"Key": "charts/tenant-1/Top_Pages_2024-01-01.png"})
	})
	mux.HandleFunc("/storage/v1/object/sign/charts/tenant-1/Top_Pages_2024-01-01.png", func(w http.ResponseWriter, r *http.Request) {
		if err := json.NewDecoder(r.Body).Decode(&signReq); err != nil {
			t.Errorf("decode sign: %v", err)
		}
		_ = json.NewEncoder(w).Encode(map[string]string{
			"signedURL": "/object/sign/charts/tenant-1/Top_Pages_2024-01-01.png?token=abc",
		})
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()

	s := NewStorage(srv.URL, "service-key", "charts")
	url, err := s.Upload(context.Background(), "tenant-1/Top_Pages_2024-01-01.png", []byte("png-bytes"), "image/png")
	if err != nil {
		t.Fatalf("Upload: %v", err)
	}

	if string(uploaded) != "png-bytes" {
		t.Fatalf("uploaded body = %q", uploaded)
	}
	want := srv.URL + "/storage/v1/object/sign/charts/tenant-1/Top_Pages_2024-01-01.png?token=abc"
	if url != want {
		t.Fatalf("url = %q, want %q", url, want)
	}
	// Links must outlive the published report: one week.
	if signReq["expiresIn"] != 7*24*3600 {
		t.Fatalf("expiresIn = %d", signReq["expiresIn"])
	}
}

func TestUploadFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, `{"error":"bucket not found"}`, http.StatusNotFound)
	}))
	defer srv.Close()

	s := NewStorage(srv.URL, "service-key", "missing")
	_, err := s.Upload(context.Background(), "x.png", []byte("data"), "image/png")
	var collab *domain.CollaboratorError
	if !errors.As(err, &collab) || collab.Service != "supabase" {
		t.Fatalf("expected supabase collaborator error, got %v", err)
	}
}

func TestUploadEmptySignedURL(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/storage/v1/object/charts/x.png", func(w http.ResponseWriter, _ *http.Request) {
		_ = json.NewEncoder(w).Encode(map[string]string{"Key": "charts/x.png"})
	})
	mux.HandleFunc("/storage/v1/object/sign/charts/x.png", func(w http.ResponseWriter, _ *http.Request) {
		_ = json.NewEncoder(w).Encode(map[string]string{})
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()

	s := NewStorage(srv.URL, "service-key", "charts")
	if _, err := s.Upload(context.Background(), "x.png", []byte("data"), "image/png"); err == nil {
		t.Fatal("expected error for empty signed URL")
	}
}
