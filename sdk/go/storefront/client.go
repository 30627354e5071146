// Package storefront is the Go client for the storefront daemon's JSON API.
package storefront

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"path"
	"strconv"
	"sync"
	"time"

	"storefront/internal/account"
	"storefront/internal/browse"
	"storefront/internal/render"
)

// DefaultHTTPTimeout is used by clients created without a custom http.Client.
const DefaultHTTPTimeout = 15 * time.Second

// ErrNoToken is returned by calls that need a session before Login succeeded.
var ErrNoToken = errors.New("storefront: access token is not set")

type (
	// Registration is the sign-up form.
	Registration = account.Registration
	// Name holds first and last name.
	Name = account.Name
	// User is the account as returned by the API, without password.
	User = account.Account
	// Grid is one page of product cards.
	Grid = render.Grid
	// Detail is the product detail view.
	Detail = render.Detail
	// Facets feeds the filter sidebar.
	Facets = browse.Facets
)

// Query selects a page of the product grid. Zero fields are left to the
// server: no category or title filter, no price bound, any rating, catalog
// order, first page and the configured page size.
type Query struct {
	Category string
	Title    string
	MinPrice float64
	// MaxPrice 0 means no upper bound.
	MaxPrice float64
	Rating   int
	Sort     browse.SortOrder
	Page     int
	PageSize int
}

// Values validates the query with the same rules as the server and encodes it.
func (q Query) Values() (url.Values, error) {
	raw := url.Values{}
	set := func(key, value string, ok bool) {
		if ok {
			raw.Set(key, value)
		}
	}
	set(browse.ParamCategory, q.Category, q.Category != "")
	set(browse.ParamTitle, q.Title, q.Title != "")
	set(browse.ParamMinPrice, strconv.FormatFloat(q.MinPrice, 'f', -1, 64), q.MinPrice != 0)
	set(browse.ParamMaxPrice, strconv.FormatFloat(q.MaxPrice, 'f', -1, 64), q.MaxPrice != 0)
	set(browse.ParamRating, strconv.Itoa(q.Rating), q.Rating != 0)
	set(browse.ParamSort, string(q.Sort), q.Sort != browse.SortNone)
	set(browse.ParamPage, strconv.Itoa(q.Page), q.Page != 0)
	set(browse.ParamPageSize, strconv.Itoa(q.PageSize), q.PageSize != 0)

	filter, err := browse.ParseQuery(raw, 0)
	if err != nil {
		return nil, err
	}
	if q.PageSize > browse.DefaultMaxPageSize {
		// 上限由服务端配置决定，这里保留调用方的原值。
		filter.PageSize = q.PageSize
	}
	return filter.Values(), nil
}

// Registered is returned by Register.
type Registered struct {
	ID       int    `json:"id"`
	Username string `json:"username"`
}

// Session is returned by Login.
type Session struct {
	Token     string    `json:"token"`
	User      User      `json:"user"`
	ExpiresAt time.Time `json:"expires_at"`
}

// APIError is a non-2xx response from the daemon.
type APIError struct {
	StatusCode int
	Code       string            `json:"code"`
	Message    string            `json:"message"`
	Fields     map[string]string `json:"fields,omitempty"`
	Redirect   string            `json:"redirect,omitempty"`
}

func (e *APIError) Error() string {
	if e == nil {
		return ""
	}
	if e.Code != "" {
		return fmt.Sprintf("storefront api error (%d): %s - %s", e.StatusCode, e.Code, e.Message)
	}
	return fmt.Sprintf("storefront api error (%d): %s", e.StatusCode, e.Message)
}

// Unauthenticated reports whether the error asks the caller to log in again.
func (e *APIError) Unauthenticated() bool {
	return e != nil && e.StatusCode == http.StatusUnauthorized
}

// Client wraps the HTTP interactions with the storefront API.
type Client struct {
	baseURL    *url.URL
	httpClient *http.Client

	mu          sync.RWMutex
	accessToken string
}

// NewClient creates a client for the daemon at rawURL.
func NewClient(rawURL string, httpClient *http.Client) (*Client, error) {
	parsed, err := url.Parse(rawURL)
	if err != nil {
		return nil, fmt.Errorf("invalid base url: %w", err)
	}
	if parsed.Scheme != "http" && parsed.Scheme != "https" {
		return nil, fmt.Errorf("invalid base url scheme: %q", parsed.Scheme)
	}
	if httpClient == nil {
		httpClient = &http.Client{Timeout: DefaultHTTPTimeout}
	}
	return &Client{baseURL: parsed, httpClient: httpClient}, nil
}

// Register creates an account.
func (c *Client) Register(ctx context.Context, reg Registration) (Registered, error) {
	var out Registered
	if err := c.post(ctx, "/api/v1/auth/register", reg, &out, false); err != nil {
		return Registered{}, err
	}
	return out, nil
}

// Login authenticates with a username or email and stores the issued token.
func (c *Client) Login(ctx context.Context, identifier, password string) (Session, error) {
	var out Session
	payload := map[string]string{"identifier": identifier, "password": password}
	if err := c.post(ctx, "/api/v1/auth/login", payload, &out, false); err != nil {
		return Session{}, err
	}
	c.SetAccessToken(out.Token)
	return out, nil
}

// Logout ends the current session and forgets the token.
func (c *Client) Logout(ctx context.Context) error {
	if err := c.post(ctx, "/api/v1/auth/logout", nil, nil, true); err != nil {
		return err
	}
	c.SetAccessToken("")
	return nil
}

// Me returns the logged-in user.
func (c *Client) Me(ctx context.Context) (User, error) {
	var out User
	if err := c.get(ctx, "/api/v1/auth/me", nil, &out); err != nil {
		return User{}, err
	}
	return out, nil
}

// Products returns one page of the filtered grid.
func (c *Client) Products(ctx context.Context, q Query) (Grid, error) {
	var out Grid
	values, err := q.Values()
	if err != nil {
		return Grid{}, err
	}
	if err := c.get(ctx, "/api/v1/products", values, &out); err != nil {
		return Grid{}, err
	}
	return out, nil
}

// Product returns the detail view of one product.
func (c *Client) Product(ctx context.Context, id int) (Detail, error) {
	var out Detail
	if err := c.get(ctx, "/api/v1/products/"+strconv.Itoa(id), nil, &out); err != nil {
		return Detail{}, err
	}
	return out, nil
}

// Facets returns the sidebar aggregates.
func (c *Client) Facets(ctx context.Context) (Facets, error) {
	var out Facets
	if err := c.get(ctx, "/api/v1/facets", nil, &out); err != nil {
		return Facets{}, err
	}
	return out, nil
}

// AccessToken returns the currently stored token string.
func (c *Client) AccessToken() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.accessToken
}

// SetAccessToken overrides the stored access token.
func (c *Client) SetAccessToken(token string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.accessToken = token
}

func (c *Client) post(ctx context.Context, endpoint string, payload any, out any, withAuth bool) error {
	var body io.Reader
	if payload != nil {
		data, err := json.Marshal(payload)
		if err != nil {
			return fmt.Errorf("encode request: %w", err)
		}
		body = bytes.NewReader(data)
	}
	req, err := c.newRequest(ctx, http.MethodPost, endpoint, nil, body, withAuth)
	if err != nil {
		return err
	}
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	return c.do(req, out)
}

func (c *Client) get(ctx context.Context, endpoint string, query url.Values, out any) error {
	req, err := c.newRequest(ctx, http.MethodGet, endpoint, query, nil, true)
	if err != nil {
		return err
	}
	return c.do(req, out)
}

func (c *Client) newRequest(ctx context.Context, method, endpoint string, query url.Values, body io.Reader, withAuth bool) (*http.Request, error) {
	rel := &url.URL{Path: path.Join(c.baseURL.Path, endpoint)}
	if len(query) > 0 {
		rel.RawQuery = query.Encode()
	}
	u := c.baseURL.ResolveReference(rel)
	req, err := http.NewRequestWithContext(ctx, method, u.String(), body)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if withAuth {
		token := c.AccessToken()
		if token == "" {
			return nil, ErrNoToken
		}
		req.Header.Set("Authorization", "Bearer "+token)
	}
	return req, nil
}

func (c *Client) do(req *http.Request, out any) error {
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("perform request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		apiErr := APIError{StatusCode: resp.StatusCode}
		data, err := io.ReadAll(resp.Body)
		if err != nil {
			return fmt.Errorf("read error response: %w", err)
		}
		if len(data) > 0 {
			if err := json.Unmarshal(data, &struct {
				Error *APIError `json:"error"`
			}{Error: &apiErr}); err != nil {
				_ = json.Unmarshal(data, &apiErr)
			}
		}
		if apiErr.Message == "" {
			apiErr.Message = string(bytes.TrimSpace(data))
		}
		return &apiErr
	}

	if out == nil || resp.StatusCode == http.StatusNoContent {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}
