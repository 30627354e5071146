package storefront

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"storefront/internal/browse"
	xerrors "storefront/internal/errors"
)

func newTestClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	client, err := NewClient(srv.URL, srv.Client())
	if err != nil {
		t.Fatalf("new client: %v", err)
	}
	return client
}

func TestNewClientRejectsBadURL(t *testing.T) {
	if _, err := NewClient("://nope", nil); err == nil {
		t.Fatal("expected parse error")
	}
	if _, err := NewClient("ftp://example.com", nil); err == nil {
		t.Fatal("expected scheme error")
	}
}

func TestLoginStoresToken(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/v1/auth/login" || r.Method != http.MethodPost {
			t.Errorf("unexpected request: %s %s", r.Method, r.URL.Path)
		}
		var body map[string]string
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			t.Errorf("decode body: %v", err)
		}
		if body["identifier"] != "alice" || body["password"] != "secret" {
			t.Errorf("unexpected body: %v", body)
		}
		_ = json.NewEncoder(w).Encode(Session{Token: "abc123", User: User{ID: 1, Username: "alice"}, ExpiresAt: time.Now().UTC()})
	})

	sess, err := client.Login(context.Background(), "alice", "secret")
	if err != nil {
		t.Fatalf("login: %v", err)
	}
	if sess.User.Username != "alice" {
		t.Fatalf("unexpected user: %+v", sess.User)
	}
	if got := client.AccessToken(); got != "abc123" {
		t.Fatalf("expected token abc123, got %q", got)
	}
}

func TestProtectedCallsRequireToken(t *testing.T) {
	called := false
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		called = true
	})

	if _, err := client.Products(context.Background(), Query{}); !errors.Is(err, ErrNoToken) {
		t.Fatalf("expected ErrNoToken, got %v", err)
	}
	if called {
		t.Fatal("request must not be sent without a token")
	}
}

func TestProductsEncodesQuery(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/v1/products" {
			t.Errorf("unexpected path: %s", r.URL.Path)
		}
		if r.Header.Get("Authorization") != "Bearer token" {
			t.Errorf("expected bearer token, got %q", r.Header.Get("Authorization"))
		}
		q := r.URL.Query()
		if q.Get("category") != "jewelery" || q.Get("sort") != "desc" || q.Get("page") != "2" {
			t.Errorf("unexpected query: %s", r.URL.RawQuery)
		}
		_ = json.NewEncoder(w).Encode(Grid{Page: 2, PageSize: 6, TotalItems: 7, TotalPages: 2, HasPrev: true})
	})
	client.SetAccessToken("token")

	q := Query{Category: "jewelery", Sort: browse.SortDesc, Page: 2}
	grid, err := client.Products(context.Background(), q)
	if err != nil {
		t.Fatalf("products: %v", err)
	}
	if grid.Page != 2 || !grid.HasPrev || grid.HasNext {
		t.Fatalf("unexpected grid: %+v", grid)
	}
}

func TestZeroValueQueryLeavesDefaultsToServer(t *testing.T) {
	cases := map[string]struct {
		query Query
		want  string
	}{
		"category only":     {Query{Category: "electronics"}, "category=electronics"},
		"empty":             {Query{}, ""},
		"explicit default":  {Query{PageSize: 6}, "page_size=6"},
		"price upper bound": {Query{MaxPrice: 50}, "max_price=50"},
	}
	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			values, err := tc.query.Values()
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got := values.Encode(); got != tc.want {
				t.Fatalf("expected %q, got %q", tc.want, got)
			}
		})
	}
}

func TestInvalidQueryIsRejectedLocally(t *testing.T) {
	called := false
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		called = true
	})
	client.SetAccessToken("token")

	_, err := client.Products(context.Background(), Query{Rating: 9, Sort: "sideways"})
	if xerrors.CodeOf(err) != xerrors.CodeInvalidArgument {
		t.Fatalf("expected INVALID_ARGUMENT, got %v", err)
	}
	e, _ := xerrors.From(err)
	if _, ok := e.Metadata()[browse.ParamRating]; !ok {
		t.Fatalf("expected a rating field error, got %v", e.Metadata())
	}
	if called {
		t.Fatal("invalid query must not reach the server")
	}
}

func TestAPIErrorDecoding(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = w.Write([]byte(`{"error":{"code":"UNAUTHENTICATED","message":"login required","redirect":"/login"}}`))
	})
	client.SetAccessToken("stale")

	_, err := client.Me(context.Background())
	var apiErr *APIError
	if !errors.As(err, &apiErr) {
		t.Fatalf("expected APIError, got %v", err)
	}
	if !apiErr.Unauthenticated() || apiErr.Code != "UNAUTHENTICATED" || apiErr.Redirect != "/login" {
		t.Fatalf("unexpected api error: %+v", apiErr)
	}
}

func TestAPIErrorFields(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"error":{"code":"VALIDATION_FAILED","message":"registration form is invalid","fields":{"email":"Valid email is required"}}}`))
	})

	_, err := client.Register(context.Background(), Registration{Username: "bob"})
	var apiErr *APIError
	if !errors.As(err, &apiErr) {
		t.Fatalf("expected APIError, got %v", err)
	}
	if apiErr.StatusCode != http.StatusBadRequest || apiErr.Fields["email"] == "" {
		t.Fatalf("unexpected api error: %+v", apiErr)
	}
}

func TestPlainTextErrorBody(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "gateway down", http.StatusBadGateway)
	})
	client.SetAccessToken("token")

	_, err := client.Facets(context.Background())
	var apiErr *APIError
	if !errors.As(err, &apiErr) {
		t.Fatalf("expected APIError, got %v", err)
	}
	if apiErr.Message != "gateway down" {
		t.Fatalf("unexpected message: %q", apiErr.Message)
	}
}

func TestLogoutClearsToken(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/v1/auth/logout" {
			t.Errorf("unexpected path: %s", r.URL.Path)
		}
		w.WriteHeader(http.StatusNoContent)
	})
	client.SetAccessToken("token")

	if err := client.Logout(context.Background()); err != nil {
		t.Fatalf("logout: %v", err)
	}
	if client.AccessToken() != "" {
		t.Fatal("expected token to be cleared")
	}
}

func TestProductDetail(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/v1/products/7" {
			t.Errorf("unexpected path: %s", r.URL.Path)
		}
		_, _ = w.Write([]byte(`{"id":7,"title":"Ring","price":12.5,"description":"gold","category":"jewelery"}`))
	})
	client.SetAccessToken("token")

	detail, err := client.Product(context.Background(), 7)
	if err != nil {
		t.Fatalf("product: %v", err)
	}
	if detail.ID != 7 || detail.Category != "jewelery" {
		t.Fatalf("unexpected detail: %+v", detail)
	}
}
