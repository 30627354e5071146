package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"storefront/pkg/logger"
)

// Config 描述了 storefront 在启动阶段需要加载的核心配置。
type Config struct {
	Server  ServerConfig  `json:"server" yaml:"server"`
	Catalog CatalogConfig `json:"catalog" yaml:"catalog"`
	Browse  BrowseConfig  `json:"browse" yaml:"browse"`
	Storage StorageConfig `json:"storage" yaml:"storage"`
	Redis   RedisConfig   `json:"redis" yaml:"redis"`
	Events  EventsConfig  `json:"events" yaml:"events"`
	Logging logger.Config `json:"logging" yaml:"logging"`
	Runtime RuntimeConfig `json:"runtime" yaml:"runtime"`
}

// ServerConfig 控制 API 服务的监听地址等参数。
type ServerConfig struct {
	Address           string          `json:"address" yaml:"address"`
	ReadHeaderTimeout int             `json:"read_header_timeout_seconds" yaml:"read_header_timeout_seconds"`
	ShutdownTimeout   int             `json:"shutdown_timeout_seconds" yaml:"shutdown_timeout_seconds"`
	LoginRateLimit    RateLimitConfig `json:"login_rate_limit" yaml:"login_rate_limit"`
	// TrustForwardedFor 仅在经由可信反向代理部署时开启。
	TrustForwardedFor bool            `json:"trust_forwarded_for" yaml:"trust_forwarded_for"`
}

// RateLimitConfig 描述登录接口的令牌桶参数。
type RateLimitConfig struct {
	RPS   float64 `json:"rps" yaml:"rps"`
	Burst int     `json:"burst" yaml:"burst"`
}

// CatalogConfig 描述远端商品目录服务。
type CatalogConfig struct {
	BaseURL        string      `json:"base_url" yaml:"base_url"`
	TimeoutSeconds int         `json:"timeout_seconds" yaml:"timeout_seconds"`
	Cache          CacheConfig `json:"cache" yaml:"cache"`
}

// Timeout 返回请求目录服务的超时时间。
func (c CatalogConfig) Timeout() time.Duration {
	return time.Duration(c.TimeoutSeconds) * time.Second
}

// CacheConfig 控制目录响应缓存，driver 为 none 或 redis。
type CacheConfig struct {
	Driver     string `json:"driver" yaml:"driver"`
	TTLSeconds int    `json:"ttl_seconds" yaml:"ttl_seconds"`
	KeyPrefix  string `json:"key_prefix" yaml:"key_prefix"`
}

// BrowseConfig 控制商品网格的分页参数。
type BrowseConfig struct {
	PageSize    int `json:"page_size" yaml:"page_size"`
	MaxPageSize int `json:"max_page_size" yaml:"max_page_size"`
}

// StorageConfig 统一描述账户与会话存储。
type StorageConfig struct {
	Accounts AccountStoreConfig `json:"accounts" yaml:"accounts"`
	Sessions SessionStoreConfig `json:"sessions" yaml:"sessions"`
}

// AccountStoreConfig 支持 file、memory 与 mysql 三种驱动。
type AccountStoreConfig struct {
	Driver                 string `json:"driver" yaml:"driver"`
	DSN                    string `json:"dsn" yaml:"dsn"`
	MaxOpenConns           int    `json:"max_open_conns" yaml:"max_open_conns"`
	MaxIdleConns           int    `json:"max_idle_conns" yaml:"max_idle_conns"`
	ConnMaxLifetimeSeconds int    `json:"conn_max_lifetime_seconds" yaml:"conn_max_lifetime_seconds"`
}

// SessionStoreConfig 支持 memory 与 redis 两种驱动。
type SessionStoreConfig struct {
	Driver     string `json:"driver" yaml:"driver"`
	TTLSeconds int    `json:"ttl_seconds" yaml:"ttl_seconds"`
	KeyPrefix  string `json:"key_prefix" yaml:"key_prefix"`
}

// TTL 返回会话有效期。
func (c SessionStoreConfig) TTL() time.Duration {
	return time.Duration(c.TTLSeconds) * time.Second
}

// RedisConfig 为缓存与会话共享的 Redis 连接参数。
type RedisConfig struct {
	Address  string `json:"address" yaml:"address"`
	Password string `json:"password" yaml:"password"`
	DB       int    `json:"db" yaml:"db"`
}

// EventsConfig 控制账户与会话事件的投递方式。
type EventsConfig struct {
	Driver   string         `json:"driver" yaml:"driver"`
	RabbitMQ RabbitMQConfig `json:"rabbitmq" yaml:"rabbitmq"`
}

// RabbitMQConfig 描述 RabbitMQ 队列的连接参数。
type RabbitMQConfig struct {
	URL     string `json:"url" yaml:"url"`
	Queue   string `json:"queue" yaml:"queue"`
	Durable bool   `json:"durable" yaml:"durable"`
}

// RuntimeConfig 用于放置运行时的通用参数。
type RuntimeConfig struct {
	DataDir string `json:"data_dir" yaml:"data_dir"`
}

// Load 解析指定路径的配置文件，扩展名为 .yaml/.yml 时按 YAML 解析，否则按 JSON。
func Load(path string) (*Config, error) {
	if strings.TrimSpace(path) == "" {
		return nil, errors.New("配置文件路径为空")
	}

	content, err := os.ReadFile(filepath.Clean(path))
	if err != nil {
		return nil, fmt.Errorf("读取配置文件失败: %w", err)
	}

	var cfg Config
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(content, &cfg); err != nil {
			return nil, fmt.Errorf("解析 YAML 配置失败: %w", err)
		}
	default:
		if err := json.Unmarshal(content, &cfg); err != nil {
			return nil, fmt.Errorf("解析配置失败: %w", err)
		}
	}

	cfg.applyEnv(os.Getenv)
	cfg.applyDefaults(filepath.Dir(path))
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Default 返回不依赖配置文件的默认配置，数据目录相对 baseDir 解析。
func Default(baseDir string) *Config {
	cfg := &Config{}
	cfg.applyEnv(os.Getenv)
	cfg.applyDefaults(baseDir)
	return cfg
}

// applyEnv 使用环境变量覆盖少量部署相关字段。
func (c *Config) applyEnv(getenv func(string) string) {
	if v := strings.TrimSpace(getenv("STOREFRONT_ADDR")); v != "" {
		c.Server.Address = v
	}
	if v := strings.TrimSpace(getenv("STOREFRONT_CATALOG_URL")); v != "" {
		c.Catalog.BaseURL = v
	}
	if v := strings.TrimSpace(getenv("STOREFRONT_REDIS_ADDR")); v != "" {
		c.Redis.Address = v
	}
	if v := strings.TrimSpace(getenv("STOREFRONT_ACCOUNTS_DSN")); v != "" {
		c.Storage.Accounts.DSN = v
	}
}

// applyDefaults 在用户未填写部分字段时设置合理的默认值。
func (c *Config) applyDefaults(baseDir string) {
	if c.Server.Address == "" {
		c.Server.Address = ":8080"
	}
	if c.Server.ReadHeaderTimeout <= 0 {
		c.Server.ReadHeaderTimeout = 5
	}
	if c.Server.ShutdownTimeout <= 0 {
		c.Server.ShutdownTimeout = 5
	}
	if c.Server.LoginRateLimit.RPS <= 0 {
		c.Server.LoginRateLimit.RPS = 1
	}
	if c.Server.LoginRateLimit.Burst <= 0 {
		c.Server.LoginRateLimit.Burst = 5
	}

	if c.Catalog.BaseURL == "" {
		c.Catalog.BaseURL = "https://fakestoreapi.com"
	}
	if c.Catalog.TimeoutSeconds <= 0 {
		c.Catalog.TimeoutSeconds = 15
	}
	if c.Catalog.Cache.Driver == "" {
		c.Catalog.Cache.Driver = "none"
	}
	if c.Catalog.Cache.TTLSeconds <= 0 {
		c.Catalog.Cache.TTLSeconds = 300
	}
	if c.Catalog.Cache.KeyPrefix == "" {
		c.Catalog.Cache.KeyPrefix = "storefront:catalog:"
	}

	if c.Browse.PageSize <= 0 {
		c.Browse.PageSize = 6
	}
	if c.Browse.MaxPageSize <= 0 {
		c.Browse.MaxPageSize = 60
	}

	if c.Storage.Accounts.Driver == "" {
		c.Storage.Accounts.Driver = "file"
	}
	if c.Storage.Sessions.Driver == "" {
		c.Storage.Sessions.Driver = "memory"
	}
	if c.Storage.Sessions.TTLSeconds <= 0 {
		c.Storage.Sessions.TTLSeconds = 12 * 60 * 60
	}
	if c.Storage.Sessions.KeyPrefix == "" {
		c.Storage.Sessions.KeyPrefix = "storefront:session:"
	}

	if c.Events.Driver == "" {
		c.Events.Driver = "noop"
	}
	if c.Events.RabbitMQ.Queue == "" {
		c.Events.RabbitMQ.Queue = "storefront.events"
	}

	if c.Runtime.DataDir == "" {
		c.Runtime.DataDir = filepath.Join(baseDir, "data")
	} else if !filepath.IsAbs(c.Runtime.DataDir) {
		c.Runtime.DataDir = filepath.Join(baseDir, c.Runtime.DataDir)
	}
}

func (c *Config) validate() error {
	switch c.Storage.Accounts.Driver {
	case "file", "memory":
	case "mysql":
		if strings.TrimSpace(c.Storage.Accounts.DSN) == "" {
			return errors.New("mysql 账户存储需要配置 dsn")
		}
	default:
		return fmt.Errorf("未知的账户存储驱动: %s", c.Storage.Accounts.Driver)
	}
	switch c.Storage.Sessions.Driver {
	case "memory", "redis":
	default:
		return fmt.Errorf("未知的会话存储驱动: %s", c.Storage.Sessions.Driver)
	}
	switch c.Catalog.Cache.Driver {
	case "none", "redis":
	default:
		return fmt.Errorf("未知的目录缓存驱动: %s", c.Catalog.Cache.Driver)
	}
	if (c.Storage.Sessions.Driver == "redis" || c.Catalog.Cache.Driver == "redis") && strings.TrimSpace(c.Redis.Address) == "" {
		return errors.New("redis 驱动需要配置 redis.address")
	}
	switch c.Events.Driver {
	case "noop", "memory":
	case "rabbitmq":
		if strings.TrimSpace(c.Events.RabbitMQ.URL) == "" {
			return errors.New("rabbitmq 事件驱动需要配置 url")
		}
	default:
		return fmt.Errorf("未知的事件驱动: %s", c.Events.Driver)
	}
	if c.Browse.PageSize > c.Browse.MaxPageSize {
		return fmt.Errorf("browse.page_size (%d) 不能大于 max_page_size (%d)", c.Browse.PageSize, c.Browse.MaxPageSize)
	}
	return nil
}
