package builtin

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/orbitflow/orbitflow/internal/handler"
)

func TestHTTPRequestHandler_GETSuccess(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("q") != "hello" {
			t.Errorf("expected query param q=hello, got %q", r.URL.Query().Get("q"))
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"ok":true}`))
	}))
	defer srv.Close()

	h := &HTTPRequestHandler{}
	result, err := h.Execute(context.Background(), handler.Params{
		"method":      "get",
		"url":         srv.URL,
		"queryParams": map[string]any{"q": "hello"},
	}, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.Status != handler.StatusSuccess {
		t.Fatalf("expected success, got %v (error=%s)", result.Status, result.Error)
	}
	out, ok := result.Output.(map[string]any)
	if !ok {
		t.Fatalf("expected map output, got %T", result.Output)
	}
	if out["status_code"] != 200 {
		t.Fatalf("expected status_code 200, got %v", out["status_code"])
	}
}

func TestHTTPRequestHandler_MissingMethodOrURL(t *testing.T) {
	h := &HTTPRequestHandler{}
	result, err := h.Execute(context.Background(), handler.Params{"url": "http://example.com"}, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.Status != handler.StatusError {
		t.Fatal("expected error status when method is missing")
	}
}

func TestHTTPRequestHandler_RetriesOn5xxThenFails(t *testing.T) {
	var calls int
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	h := &HTTPRequestHandler{}
	result, err := h.Execute(context.Background(), handler.Params{
		"method":  "GET",
		"url":     srv.URL,
		"retries": 2,
	}, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.Status != handler.StatusError {
		t.Fatal("expected error status after exhausting retries")
	}
	if calls != 3 {
		t.Fatalf("expected 1 initial attempt + 2 retries = 3 calls, got %d", calls)
	}
}

func TestHTTPRequestHandler_DoesNotRetryOn4xx(t *testing.T) {
	var calls int
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		w.WriteHeader(http.StatusBadRequest)
	}))
	defer srv.Close()

	h := &HTTPRequestHandler{}
	result, _ := h.Execute(context.Background(), handler.Params{
		"method":  "GET",
		"url":     srv.URL,
		"retries": 2,
	}, nil)
	if result.Status != handler.StatusError {
		t.Fatal("expected error status on 400")
	}
	if calls != 1 {
		t.Fatalf("expected no retries on a 4xx response, got %d calls", calls)
	}
}

func TestApplyAuth_BearerDoesNotOverrideExplicitHeader(t *testing.T) {
	headers := map[string]any{"Authorization": "Custom xyz"}
	applyAuth(headers, map[string]any{"type": "bearer", "token": "abc"})
	if headers["Authorization"] != "Custom xyz" {
		t.Fatalf("expected explicit Authorization header to win, got %v", headers["Authorization"])
	}
}

func TestApplyAuth_ApiKeyDefaultsHeaderName(t *testing.T) {
	headers := map[string]any{}
	applyAuth(headers, map[string]any{"type": "apiKey", "key": "secret"})
	if headers["X-API-KEY"] != "secret" {
		t.Fatalf("expected default X-API-KEY header, got %v", headers)
	}
}

func TestWithQuery_AppendsParams(t *testing.T) {
	got, err := withQuery("https://example.com/path", map[string]any{"a": 1})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != "https://example.com/path?a=1" {
		t.Fatalf("unexpected url: %s", got)
	}
}

func TestWithQuery_NoParamsReturnsInputUnchanged(t *testing.T) {
	got, err := withQuery("https://example.com/path", nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != "https://example.com/path" {
		t.Fatalf("unexpected url: %s", got)
	}
}
