package docs

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func TestHandleSpec(t *testing.T) {
	rec := httptest.NewRecorder()
	HandleSpec(rec, httptest.NewRequest(http.MethodGet, "/api/docs/openapi.yaml", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d", rec.Code, http.StatusOK)
	}
	if ct := rec.Header().Get("Content-Type"); ct != "application/yaml" {
		t.Errorf("Content-Type = %q, want %q", ct, "application/yaml")
	}
	if !strings.HasPrefix(rec.Body.String(), "openapi: 3.1") {
		t.Error("body should start with the OpenAPI version")
	}
	if rec.Header().Get("ETag") == "" {
		t.Error("expected an ETag")
	}
}

func TestHandleSpecNotModified(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/api/docs/openapi.yaml", nil)
	req.Header.Set("If-None-Match", specETag)
	rec := httptest.NewRecorder()

	HandleSpec(rec, req)

	if rec.Code != http.StatusNotModified {
		t.Errorf("status = %d, want %d", rec.Code, http.StatusNotModified)
	}
	if rec.Body.Len() != 0 {
		t.Errorf("expected empty body, got %d bytes", rec.Body.Len())
	}
}

func TestHandleDocs(t *testing.T) {
	rec := httptest.NewRecorder()
	HandleDocs(rec, httptest.NewRequest(http.MethodGet, "/api/docs", nil))

	if rec.Code != http.StatusOK {
		t.Errorf("status = %d, want %d", rec.Code, http.StatusOK)
	}
	body := rec.Body.String()
	if !strings.Contains(body, "<title>lecturecast API 1.0.0 Reference</title>") {
		t.Errorf("title not taken from openapi.yaml: %s", body)
	}
	if !strings.Contains(body, `data-url="/api/docs/openapi.yaml"`) {
		t.Error("page should point the reference at openapi.yaml")
	}
	if csp := rec.Header().Get("Content-Security-Policy"); !strings.Contains(csp, "cdn.jsdelivr.net") {
		t.Errorf("CSP should allow cdn.jsdelivr.net, got %q", csp)
	}
}

func TestLoadInfoFallsBackOnBadYAML(t *testing.T) {
	got := loadInfo([]byte("info: [unterminated"))
	if got.Info.Title != "lecturecast API" {
		t.Errorf("title = %q, want fallback", got.Info.Title)
	}
}

func TestSpecContainsAllEndpoints(t *testing.T) {
	spec := string(specYAML)

	for _, ep := range []string{
		"/api/health",
		"/api/limits",
		"/api/episodes/{id}",
		"/api/episodes/{id}/verify",
		"/api/episodes/{id}/sessions",
		"/api/session",
		"/api/session/language",
		"/api/session/tick",
		"/api/session/click",
		"/api/session/background",
		"/api/session/hover",
		"/api/session/leave",
		"/watch/{id}",
	} {
		if !strings.Contains(spec, ep) {
			t.Errorf("openapi.yaml missing endpoint: %s", ep)
		}
	}
}
