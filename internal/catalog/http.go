package catalog

import (
	"bytes"
	"context"
	"encoding/json"
	stdErrors "errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	xerrors "storefront/internal/errors"
	"storefront/internal/observability/metrics"
)

const (
	defaultBaseURL = "https://fakestoreapi.com"
	defaultTimeout = 15 * time.Second
)

// Config 描述了调用目录服务所需的信息。
type Config struct {
	BaseURL string
	Timeout time.Duration
}

// HTTPClient 通过 HTTP 访问目录服务。
type HTTPClient struct {
	baseURL    string
	httpClient *http.Client
}

// NewHTTPClient 根据配置创建目录服务客户端。
func NewHTTPClient(cfg Config) (*HTTPClient, error) {
	baseURL := strings.TrimSpace(cfg.BaseURL)
	if baseURL == "" {
		baseURL = defaultBaseURL
	}
	if !strings.HasPrefix(baseURL, "http://") && !strings.HasPrefix(baseURL, "https://") {
		return nil, xerrors.New(xerrors.CodeInvalidArgument, fmt.Sprintf("目录服务地址无效: %s", baseURL))
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	return &HTTPClient{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: timeout},
	}, nil
}

// ListProducts 获取完整商品列表。
func (c *HTTPClient) ListProducts(ctx context.Context) ([]Product, error) {
	var products []Product
	if err := c.getJSON(ctx, "products", "/products", &products); err != nil {
		return nil, listError(err)
	}
	if products == nil {
		products = []Product{}
	}
	return products, nil
}

// GetProduct 获取单个商品详情。目录服务对未知 ID 可能返回 200 与空响应体，同样视为不存在。
func (c *HTTPClient) GetProduct(ctx context.Context, id int) (*Product, error) {
	if id <= 0 {
		return nil, ErrProductNotFound
	}
	var product *Product
	err := c.getJSON(ctx, "product", "/products/"+strconv.Itoa(id), &product)
	if err != nil {
		if stdErrors.Is(err, errEmptyBody) {
			return nil, ErrProductNotFound
		}
		return nil, err
	}
	if product == nil || product.ID == 0 {
		return nil, ErrProductNotFound
	}
	return product, nil
}

// ListCategories 获取分类列表。
func (c *HTTPClient) ListCategories(ctx context.Context) ([]string, error) {
	var categories []string
	if err := c.getJSON(ctx, "categories", "/products/categories", &categories); err != nil {
		return nil, listError(err)
	}
	if categories == nil {
		categories = []string{}
	}
	return categories, nil
}

// CreateUser 在目录服务登记新用户并返回远端分配的 ID。
func (c *HTTPClient) CreateUser(ctx context.Context, user NewUser) (int, error) {
	payload, err := json.Marshal(user)
	if err != nil {
		return 0, fmt.Errorf("序列化注册请求失败: %w", err)
	}
	start := time.Now()
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/users", bytes.NewReader(payload))
	if err != nil {
		return 0, fmt.Errorf("构建注册请求失败: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	var created struct {
		ID int `json:"id"`
	}
	err = c.do(req, &created)
	metrics.ObserveCatalogFetch("create_user", err, time.Since(start))
	if err != nil {
		return 0, listError(err)
	}
	if created.ID <= 0 {
		return 0, xerrors.New(CodeCatalogUnavailable, "目录服务未返回用户 ID")
	}
	return created.ID, nil
}

// listError 将集合接口上的空响应与 404 统一视为目录服务不可用。
func listError(err error) error {
	if stdErrors.Is(err, errEmptyBody) {
		return xerrors.Wrap(CodeCatalogUnavailable, err, "目录服务返回空响应")
	}
	if stdErrors.Is(err, ErrProductNotFound) {
		return xerrors.New(CodeCatalogUnavailable, "目录服务接口不存在")
	}
	return err
}

var errEmptyBody = stdErrors.New("empty response body")

func (c *HTTPClient) getJSON(ctx context.Context, endpoint, path string, out any) error {
	start := time.Now()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return fmt.Errorf("构建目录请求失败: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	err = c.do(req, out)
	metrics.ObserveCatalogFetch(endpoint, err, time.Since(start))
	return err
}

func (c *HTTPClient) do(req *http.Request, out any) error {
	resp, err := c.httpClient.Do(req)
	if err != nil {
		var timeout interface{ Timeout() bool }
		if stdErrors.Is(err, context.DeadlineExceeded) || (stdErrors.As(err, &timeout) && timeout.Timeout()) {
			return xerrors.Wrap(CodeCatalogUnavailable, err, "请求目录服务超时", xerrors.WithMetadata("timeout", "true"))
		}
		return xerrors.Wrap(CodeCatalogUnavailable, err, "请求目录服务失败")
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return ErrProductNotFound
	}
	if resp.StatusCode >= http.StatusBadRequest {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
		return xerrors.New(CodeCatalogUnavailable,
			fmt.Sprintf("目录服务返回错误状态 %d: %s", resp.StatusCode, strings.TrimSpace(string(body))))
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return xerrors.Wrap(CodeCatalogUnavailable, err, "读取目录响应失败")
	}
	trimmed := bytes.TrimSpace(body)
	if len(trimmed) == 0 {
		return errEmptyBody
	}
	if err := json.Unmarshal(trimmed, out); err != nil {
		return xerrors.Wrap(CodeCatalogUnavailable, err, "解析目录响应失败")
	}
	return nil
}

var _ Client = (*HTTPClient)(nil)
