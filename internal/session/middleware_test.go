package session

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestBearerToken(t *testing.T) {
	cases := map[string]string{
		"Bearer abc":   "abc",
		"bearer  abc ": "abc",
		"Basic abc":    "",
		"":             "",
		"Bearer":       "",
	}
	for header, want := range cases {
		if got := BearerToken(header); got != want {
			t.Fatalf("BearerToken(%q) = %q, want %q", header, got, want)
		}
	}
}

func TestGateRejectsMissingToken(t *testing.T) {
	m, _, _ := newTestManager(t, nil)
	called := false
	handler := m.Gate()(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		called = true
	}))

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/products", nil))

	if called {
		t.Fatalf("protected handler must not run")
	}
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", rec.Code)
	}
	var body struct {
		Error struct {
			Code     string `json:"code"`
			Redirect string `json:"redirect"`
		} `json:"error"`
	}
	if err := json.NewDecoder(rec.Body).Decode(&body); err != nil {
		t.Fatalf("decode body: %v", err)
	}
	if body.Error.Code != "UNAUTHENTICATED" || body.Error.Redirect != LoginPath {
		t.Fatalf("unexpected body: %+v", body)
	}
}

func TestGatePassesSessionToHandler(t *testing.T) {
	m, _, _ := newTestManager(t, nil)
	s, err := m.Login(context.Background(), "johnd", "m38rmF$")
	if err != nil {
		t.Fatalf("login failed: %v", err)
	}

	var seen string
	handler := m.Gate()(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		current, ok := FromContext(r.Context())
		if !ok {
			t.Fatalf("expected session in context")
		}
		seen = current.User.Username
		w.WriteHeader(http.StatusNoContent)
	}))

	req := httptest.NewRequest(http.MethodGet, "/api/v1/auth/me", nil)
	req.Header.Set("Authorization", "Bearer "+s.Token)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusNoContent || seen != "johnd" {
		t.Fatalf("unexpected result: code=%d user=%q", rec.Code, seen)
	}
}

func TestGateKeepsFlusher(t *testing.T) {
	m, _, _ := newTestManager(t, nil)
	s, err := m.Login(context.Background(), "johnd", "m38rmF$")
	if err != nil {
		t.Fatalf("login failed: %v", err)
	}

	flushed := false
	handler := m.Gate()(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		f, ok := w.(http.Flusher)
		if !ok {
			t.Fatalf("wrapped writer lost http.Flusher")
		}
		_, _ = w.Write([]byte("chunk"))
		f.Flush()
		flushed = true
	}))

	req := httptest.NewRequest(http.MethodGet, "/api/v1/products", nil)
	req.Header.Set("Authorization", "Bearer "+s.Token)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if !flushed || !rec.Flushed || rec.Body.String() != "chunk" {
		t.Fatalf("unexpected result: flushed=%v recorder=%v body=%q", flushed, rec.Flushed, rec.Body.String())
	}
}
