package ollama

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/kirillkom/movement-studio/internal/core/domain"
	"github.com/kirillkom/movement-studio/internal/infrastructure/resilience"
)

func TestCaptionSendsImageAndInstructions(t *testing.T) {
	var captured generateRequest
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/generate" {
			http.NotFound(w, r)
			return
		}
		if err := json.NewDecoder(r.Body).Decode(&captured); err != nil {
			t.Fatalf("decode request: %v", err)
		}
		_, _ = w.Write([]byte(`{"response":"\"분홍빛 물결의 춤\"\n"}`))
	}))
	defer server.Close()

	client := New(server.URL, "llava", time.Second, nil)
	got, err := client.Caption(context.Background(), []byte{1, 2, 3}, "image/png", domain.LanguageKorean)
	if err != nil {
		t.Fatalf("Caption() error = %v", err)
	}
	if got != "분홍빛 물결의 춤" {
		t.Fatalf("unexpected caption %q", got)
	}
	if captured.Model != "llava" || captured.Stream {
		t.Fatalf("unexpected request: %+v", captured)
	}
	if len(captured.Images) != 1 || captured.Images[0] != "AQID" {
		t.Fatalf("expected one base64 image, got %v", captured.Images)
	}
	if !strings.Contains(captured.System, "12~20") {
		t.Fatalf("expected korean system instruction, got %q", captured.System)
	}
}

func TestCaptionErrorReplyIsFailure(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"response":"ERROR"}`))
	}))
	defer server.Close()

	client := New(server.URL, "llava", time.Second, nil)
	_, err := client.Caption(context.Background(), []byte{1}, "image/png", domain.LanguageEnglish)
	if !domain.IsKind(err, domain.ErrCaptionService) {
		t.Fatalf("expected caption service error, got %v", err)
	}
}

func TestCaptionIncludesHTTPBodyInError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "model unavailable", http.StatusBadGateway)
	}))
	defer server.Close()

	executor := resilience.NewExecutor(resilience.CaptionPolicy(resilience.Tuning{}))
	client := New(server.URL, "llava", time.Second, executor)
	_, err := client.Caption(context.Background(), []byte{1}, "image/png", domain.LanguageEnglish)
	if err == nil {
		t.Fatalf("expected error")
	}
	if !strings.Contains(err.Error(), "model unavailable") {
		t.Fatalf("expected response body in error, got %v", err)
	}
	if !domain.IsKind(err, domain.ErrTemporary) || !domain.IsKind(err, domain.ErrCaptionService) {
		t.Fatalf("expected temporary caption service error, got %v", err)
	}
}

func TestCaptionWithoutModelMakesNoCall(t *testing.T) {
	called := false
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		called = true
	}))
	defer server.Close()

	client := New(server.URL, "", time.Second, nil)
	if _, err := client.Caption(context.Background(), []byte{1}, "image/png", domain.LanguageEnglish); err == nil {
		t.Fatalf("expected error")
	}
	if called {
		t.Fatalf("unconfigured client must not call the server")
	}
}
