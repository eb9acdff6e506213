package webhook

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"studio/internal/domain"
)

func TestNotifyUploadEnvelope(t *testing.T) {
	var got map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/hooks/upload" {
			http.NotFound(w, r)
			return
		}
		if ct := r.Header.Get("Content-Type"); ct != "application/json" {
			t.Errorf("content-type = %q", ct)
		}
		_ = json.NewDecoder(r.Body).Decode(&got)
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	client, _ := NewClient(Options{BaseURL: srv.URL, UploadPath: "hooks/upload", HTTPClient: srv.Client()})
	now := time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)
	err := client.NotifyUpload(context.Background(), UploadEnvelope{
		UploadID:   "up-1",
		TotalFiles: 1,
		Files: []UploadedFile{{
			OriginalName: "Shirt.PNG", Filename: "shirt-123.png", Size: 10,
			MIMEType: "image/png", Path: "uploads/shirt-123.png", UploadedAt: now,
		}},
		Metadata: UploadMetadata{UploadTime: now, UserAgent: "curl", IP: "127.0.0.1"},
	})
	if err != nil {
		t.Fatalf("NotifyUpload: %v", err)
	}
	if got["uploadId"] != "up-1" || got["totalFiles"].(float64) != 1 {
		t.Fatalf("unexpected envelope: %v", got)
	}
	file := got["files"].([]any)[0].(map[string]any)
	for _, key := range []string{"originalName", "filename", "size", "mimetype", "path", "uploadedAt"} {
		if _, ok := file[key]; !ok {
			t.Fatalf("file entry missing %q: %v", key, file)
		}
	}
	meta := got["metadata"].(map[string]any)
	if meta["userAgent"] != "curl" || meta["ip"] != "127.0.0.1" {
		t.Fatalf("unexpected metadata: %v", meta)
	}
}

func TestNotifyUploadFailureStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
		_, _ = w.Write([]byte("workflow inactive"))
	}))
	defer srv.Close()

	client, _ := NewClient(Options{BaseURL: srv.URL, HTTPClient: srv.Client()})
	err := client.NotifyUpload(context.Background(), UploadEnvelope{UploadID: "x"})
	if !errors.Is(err, domain.ErrDependency) {
		t.Fatalf("err = %v, want ErrDependency", err)
	}
	if err := client.Health(context.Background()); !errors.Is(err, domain.ErrDependencyUnavailable) {
		t.Fatalf("health err = %v", err)
	}
}
