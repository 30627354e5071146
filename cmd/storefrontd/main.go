package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	goredis "github.com/redis/go-redis/v9"

	"storefront/internal/account"
	"storefront/internal/api"
	"storefront/internal/catalog"
	"storefront/internal/config"
	"storefront/internal/events"
	"storefront/internal/session"
	"storefront/internal/storage/mysql"
	"storefront/internal/storage/redis"
	"storefront/pkg/logger"
)

// main 是 storefront 守护进程的入口。
func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx); err != nil {
		log.Fatalf("storefrontd 运行失败: %v", err)
	}
}

func run(ctx context.Context) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if err := logger.Init(cfg.Logging); err != nil {
		return fmt.Errorf("初始化日志失败: %w", err)
	}
	defer func() { _ = logger.Sync() }()
	log := logger.Named("storefrontd")

	if err := os.MkdirAll(cfg.Runtime.DataDir, 0o755); err != nil {
		return err
	}

	var redisClient *goredis.Client
	if cfg.Catalog.Cache.Driver == "redis" || cfg.Storage.Sessions.Driver == "redis" {
		redisClient, err = redis.NewClient(ctx, redis.Config{
			Address:  cfg.Redis.Address,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		if err != nil {
			return err
		}
		defer redisClient.Close()
	}

	catalogClient, err := createCatalogClient(cfg, redisClient)
	if err != nil {
		return err
	}

	accountStore, err := createAccountStore(ctx, cfg)
	if err != nil {
		return err
	}
	defer func() {
		if err := accountStore.Close(); err != nil {
			log.Warn("关闭账户存储失败", "error", err)
		}
	}()

	publisher, err := createPublisher(cfg)
	if err != nil {
		return err
	}
	defer func() {
		if err := publisher.Close(); err != nil {
			log.Warn("关闭事件发布器失败", "error", err)
		}
	}()

	accounts, err := account.NewService(accountStore, catalogClient, publisher)
	if err != nil {
		return err
	}
	// 启动时读取一次账户，损坏的账户文档在这里暴露，而不是在第一次注册时。
	existing, err := accounts.List(ctx)
	if err != nil {
		return err
	}
	if fs, ok := accountStore.(*account.FileStore); ok {
		log.Info("账户文档已加载", "path", fs.Path(), "accounts", len(existing))
	} else {
		log.Info("账户存储已连接", "driver", cfg.Storage.Accounts.Driver, "accounts", len(existing))
	}

	var sessionStore session.Store
	switch cfg.Storage.Sessions.Driver {
	case "redis":
		sessionStore = session.NewRedisStore(redisClient, cfg.Storage.Sessions.KeyPrefix, false)
	default:
		sessionStore = session.NewMemoryStore()
	}
	defer sessionStore.Close()

	sessions, err := session.NewManager(accounts, sessionStore,
		session.WithTTL(cfg.Storage.Sessions.TTL()),
		session.WithPublisher(publisher),
	)
	if err != nil {
		return err
	}

	server, err := api.NewServer(api.Config{
		Address:           cfg.Server.Address,
		ReadHeaderTimeout: time.Duration(cfg.Server.ReadHeaderTimeout) * time.Second,
		ShutdownTimeout:   time.Duration(cfg.Server.ShutdownTimeout) * time.Second,
		LoginRPS:          cfg.Server.LoginRateLimit.RPS,
		LoginBurst:        cfg.Server.LoginRateLimit.Burst,
		PageSize:          cfg.Browse.PageSize,
		MaxPageSize:       cfg.Browse.MaxPageSize,
		TrustForwardedFor: cfg.Server.TrustForwardedFor,
	}, catalogClient, accounts, sessions)
	if err != nil {
		return err
	}

	log.Info("storefrontd 启动",
		"address", cfg.Server.Address,
		"catalog", cfg.Catalog.BaseURL,
		"accounts", cfg.Storage.Accounts.Driver,
		"sessions", cfg.Storage.Sessions.Driver,
		"events", cfg.Events.Driver,
	)
	if err := server.Start(ctx); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	return nil
}

// loadConfig 读取 STOREFRONT_CONFIG 指向的配置；未设置且默认文件不存在时使用内置默认值。
func loadConfig() (*config.Config, error) {
	configPath := os.Getenv("STOREFRONT_CONFIG")
	if configPath != "" {
		return config.Load(configPath)
	}
	configPath = filepath.Join("configs", "storefront.yaml")
	if _, err := os.Stat(configPath); errors.Is(err, os.ErrNotExist) {
		return config.Default("."), nil
	}
	return config.Load(configPath)
}

func createCatalogClient(cfg *config.Config, redisClient *goredis.Client) (catalog.Client, error) {
	httpClient, err := catalog.NewHTTPClient(catalog.Config{
		BaseURL: cfg.Catalog.BaseURL,
		Timeout: cfg.Catalog.Timeout(),
	})
	if err != nil {
		return nil, err
	}
	if cfg.Catalog.Cache.Driver != "redis" {
		return httpClient, nil
	}
	return catalog.NewCachedClient(httpClient, catalog.RedisKV{Client: redisClient}, catalog.CacheConfig{
		TTL:       time.Duration(cfg.Catalog.Cache.TTLSeconds) * time.Second,
		KeyPrefix: cfg.Catalog.Cache.KeyPrefix,
	}), nil
}

func createAccountStore(ctx context.Context, cfg *config.Config) (account.Store, error) {
	switch cfg.Storage.Accounts.Driver {
	case "memory":
		return account.NewMemoryStore(), nil
	case "mysql":
		return mysql.NewAccountStore(ctx, mysql.Config{
			DSN:             cfg.Storage.Accounts.DSN,
			MaxOpenConns:    cfg.Storage.Accounts.MaxOpenConns,
			MaxIdleConns:    cfg.Storage.Accounts.MaxIdleConns,
			ConnMaxLifetime: time.Duration(cfg.Storage.Accounts.ConnMaxLifetimeSeconds) * time.Second,
		})
	case "file", "":
		return account.NewFileStore(cfg.Runtime.DataDir)
	default:
		return nil, fmt.Errorf("未知的账户存储驱动: %s", cfg.Storage.Accounts.Driver)
	}
}

func createPublisher(cfg *config.Config) (events.Publisher, error) {
	switch cfg.Events.Driver {
	case "rabbitmq":
		return events.NewRabbitMQ(events.RabbitMQConfig{
			URL:     cfg.Events.RabbitMQ.URL,
			Queue:   cfg.Events.RabbitMQ.Queue,
			Durable: cfg.Events.RabbitMQ.Durable,
		})
	case "memory":
		pub := events.NewMemory(256)
		go drainEvents(pub)
		return pub, nil
	case "noop", "":
		return events.Noop{}, nil
	default:
		return nil, fmt.Errorf("未知的事件驱动: %s", cfg.Events.Driver)
	}
}

// drainEvents 把内存事件写入日志，直到发布器关闭。
func drainEvents(pub *events.Memory) {
	log := logger.Named("events")
	for evt := range pub.Events() {
		log.Info("event", "id", evt.ID, "type", evt.Type, "subject", evt.Subject)
	}
}
