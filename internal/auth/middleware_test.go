package auth

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func serveWithMiddleware(t *testing.T, header string) (*httptest.ResponseRecorder, *Claims) {
	t.Helper()
	var seen *Claims
	handler := Middleware(testSecret)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = ClaimsFromContext(r.Context())
		w.WriteHeader(http.StatusNoContent)
	}))

	req := httptest.NewRequest(http.MethodGet, "/api/session", nil)
	if header != "" {
		req.Header.Set("Authorization", header)
	}
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	return rec, seen
}

func TestMiddleware_ValidToken(t *testing.T) {
	token, _ := GenerateSessionToken(testSecret, "sess-1", "ep", time.Hour)

	rec, claims := serveWithMiddleware(t, "Bearer "+token)
	if rec.Code != http.StatusNoContent {
		t.Fatalf("expected 204, got %d", rec.Code)
	}
	if claims == nil || claims.SessionID != "sess-1" {
		t.Errorf("expected claims for sess-1 on context, got %+v", claims)
	}
}

func TestMiddleware_Rejections(t *testing.T) {
	token, _ := GenerateSessionToken("other-secret", "sess-1", "ep", time.Hour)

	cases := map[string]string{
		"missing header": "",
		"wrong scheme":   "Basic abc",
		"bad signature":  "Bearer " + token,
	}
	for name, header := range cases {
		t.Run(name, func(t *testing.T) {
			rec, claims := serveWithMiddleware(t, header)
			if rec.Code != http.StatusUnauthorized {
				t.Errorf("expected 401, got %d", rec.Code)
			}
			if claims != nil {
				t.Error("handler should not run")
			}
		})
	}
}

func TestClaimsFromContext_Empty(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	if ClaimsFromContext(req.Context()) != nil {
		t.Error("expected nil claims on bare context")
	}
}
