package catalog

import (
	"context"
	"encoding/json"
	stdErrors "errors"
	"strconv"
	"time"

	goredis "github.com/redis/go-redis/v9"
	"golang.org/x/sync/singleflight"

	"storefront/internal/observability/metrics"
	storageredis "storefront/internal/storage/redis"
	"storefront/pkg/logger"
)

// ErrCacheMiss 由 KV 实现在键不存在时返回。
var ErrCacheMiss = stdErrors.New("catalog cache miss")

// KV 是缓存装饰器需要的最小键值接口。
type KV interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
}

// RedisKV 将 go-redis 客户端适配为 KV。
type RedisKV struct {
	Client goredis.UniversalClient
}

// Get 读取缓存，redis.Nil 转换为 ErrCacheMiss。
func (r RedisKV) Get(ctx context.Context, key string) ([]byte, error) {
	data, err := r.Client.Get(ctx, key).Bytes()
	if storageredis.IsMiss(err) {
		return nil, ErrCacheMiss
	}
	return data, err
}

// Set 写入缓存。
func (r RedisKV) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	return r.Client.Set(ctx, key, value, ttl).Err()
}

// CacheConfig 控制缓存行为。
type CacheConfig struct {
	TTL       time.Duration
	KeyPrefix string
}

// CachedClient 为目录客户端提供读穿缓存，并合并并发的未命中请求。
type CachedClient struct {
	next   Client
	kv     KV
	ttl    time.Duration
	prefix string
	group  singleflight.Group
}

// NewCachedClient 包装已有客户端。
func NewCachedClient(next Client, kv KV, cfg CacheConfig) *CachedClient {
	ttl := cfg.TTL
	if ttl <= 0 {
		ttl = 5 * time.Minute
	}
	prefix := cfg.KeyPrefix
	if prefix == "" {
		prefix = "storefront:catalog:"
	}
	return &CachedClient{next: next, kv: kv, ttl: ttl, prefix: prefix}
}

// ListProducts 读取缓存的商品列表。
func (c *CachedClient) ListProducts(ctx context.Context) ([]Product, error) {
	var products []Product
	err := c.load(ctx, "products", &products, func(ctx context.Context) (any, error) {
		return c.next.ListProducts(ctx)
	})
	if err != nil {
		return nil, err
	}
	return products, nil
}

// GetProduct 读取缓存的商品详情。不存在的商品不会写入缓存。
func (c *CachedClient) GetProduct(ctx context.Context, id int) (*Product, error) {
	if id <= 0 {
		return nil, ErrProductNotFound
	}
	var product Product
	err := c.load(ctx, "product:"+strconv.Itoa(id), &product, func(ctx context.Context) (any, error) {
		return c.next.GetProduct(ctx, id)
	})
	if err != nil {
		return nil, err
	}
	return &product, nil
}

// ListCategories 读取缓存的分类列表。
func (c *CachedClient) ListCategories(ctx context.Context) ([]string, error) {
	var categories []string
	err := c.load(ctx, "categories", &categories, func(ctx context.Context) (any, error) {
		return c.next.ListCategories(ctx)
	})
	if err != nil {
		return nil, err
	}
	return categories, nil
}

// CreateUser 是写操作，直接透传。
func (c *CachedClient) CreateUser(ctx context.Context, user NewUser) (int, error) {
	return c.next.CreateUser(ctx, user)
}

func (c *CachedClient) load(ctx context.Context, key string, out any, fetch func(context.Context) (any, error)) error {
	fullKey := c.prefix + key
	data, err := c.kv.Get(ctx, fullKey)
	switch {
	case err == nil:
		if jsonErr := json.Unmarshal(data, out); jsonErr == nil {
			metrics.ObserveCacheLookup("hit")
			return nil
		}
		metrics.ObserveCacheLookup("error")
		logger.Named("catalog").Warn("缓存内容无法解析，回源获取", "key", fullKey)
	case stdErrors.Is(err, ErrCacheMiss):
		metrics.ObserveCacheLookup("miss")
	default:
		metrics.ObserveCacheLookup("error")
		logger.Named("catalog").Warn("读取目录缓存失败", "key", fullKey, "error", err)
	}

	raw, err, _ := c.group.Do(fullKey, func() (any, error) {
		value, err := fetch(ctx)
		if err != nil {
			return nil, err
		}
		encoded, err := json.Marshal(value)
		if err != nil {
			return nil, err
		}
		if setErr := c.kv.Set(ctx, fullKey, encoded, c.ttl); setErr != nil {
			logger.Named("catalog").Warn("写入目录缓存失败", "key", fullKey, "error", setErr)
		}
		return encoded, nil
	})
	if err != nil {
		return err
	}
	return json.Unmarshal(raw.([]byte), out)
}

var _ Client = (*CachedClient)(nil)
