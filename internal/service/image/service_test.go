package image

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"
)

func TestGenerateBuildsProviderURL(t *testing.T) {
	var probed string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		probed = r.URL.String()
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	svc := NewService(server.URL, time.Second)
	got, err := svc.Generate(context.Background(), "a red fox")
	if err != nil {
		t.Fatalf("Generate err: %v", err)
	}

	if !strings.Contains(got, "/prompt/a%20red%20fox") {
		t.Fatalf("prompt not escaped into URL: %s", got)
	}
	if !strings.Contains(got, "width=1024") || !strings.Contains(got, "nologo=true") {
		t.Fatalf("missing render parameters: %s", got)
	}
	if probed == "" {
		t.Fatal("expected the provider to be probed")
	}
}

func TestGenerateEmptyPrompt(t *testing.T) {
	svc := NewService("", time.Second)
	if _, err := svc.Generate(context.Background(), ""); !errors.Is(err, ErrEmptyPrompt) {
		t.Fatalf("expected ErrEmptyPrompt, got %v", err)
	}
}

func TestGenerateProviderFailure(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer server.Close()

	svc := NewService(server.URL, time.Second)
	if _, err := svc.Generate(context.Background(), "prompt"); err == nil {
		t.Fatal("expected error on provider failure")
	}
}
