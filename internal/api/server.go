package api

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"storefront/internal/account"
	"storefront/internal/browse"
	"storefront/internal/catalog"
	"storefront/internal/observability/metrics"
	"storefront/internal/session"
	"storefront/pkg/logger"
)

// Config 控制 HTTP 服务行为。
type Config struct {
	Address           string
	ReadHeaderTimeout time.Duration
	ShutdownTimeout   time.Duration
	LoginRPS          float64
	LoginBurst        int
	PageSize          int
	MaxPageSize       int
	// TrustForwardedFor 为 true 时限流与访问日志使用 X-Forwarded-For 中的客户端地址。
	TrustForwardedFor bool
}

// Server 负责暴露 REST 接口。
type Server struct {
	cfg      Config
	catalog  catalog.Client
	accounts *account.Service
	sessions *session.Manager
	limiter  *limiterStore
	clientIP KeyFunc
	handler  http.Handler
}

// NewServer 构造 API 服务实例。
func NewServer(cfg Config, cat catalog.Client, accounts *account.Service, sessions *session.Manager) (*Server, error) {
	if cat == nil || accounts == nil || sessions == nil {
		return nil, errors.New("api server requires catalog, accounts and sessions")
	}
	if cfg.ReadHeaderTimeout <= 0 {
		cfg.ReadHeaderTimeout = 5 * time.Second
	}
	if cfg.ShutdownTimeout <= 0 {
		cfg.ShutdownTimeout = 5 * time.Second
	}
	if cfg.MaxPageSize <= 0 {
		cfg.MaxPageSize = browse.DefaultMaxPageSize
	}
	if cfg.PageSize <= 0 || cfg.PageSize > cfg.MaxPageSize {
		cfg.PageSize = browse.DefaultPageSize
	}
	clientIP := ClientKeyFunc(cfg.TrustForwardedFor)
	s := &Server{
		cfg:      cfg,
		catalog:  cat,
		accounts: accounts,
		sessions: sessions,
		limiter:  newLimiterStore(cfg.LoginRPS, cfg.LoginBurst, clientIP),
		clientIP: clientIP,
	}
	s.handler = s.routes()
	return s, nil
}

// Handler 返回完整的路由，测试中直接使用。
func (s *Server) Handler() http.Handler { return s.handler }

func (s *Server) routes() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(metrics.Middleware(routePattern))
	r.Use(accessLog(s.clientIP))

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		_, _ = w.Write([]byte("ok"))
	})
	r.Method(http.MethodGet, "/metrics", metrics.Handler())

	r.Route("/api/v1", func(r chi.Router) {
		r.Post("/auth/register", s.handleRegister)
		r.With(s.limiter.middleware).Post("/auth/login", s.handleLogin)

		r.Group(func(r chi.Router) {
			r.Use(s.sessions.Gate())
			r.Post("/auth/logout", s.handleLogout)
			r.Get("/auth/me", s.handleMe)
			r.Get("/products", s.handleProducts)
			r.Get("/products/{id}", s.handleProduct)
			r.Get("/facets", s.handleFacets)
		})
	})

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		writeError(w, r, errNotFound)
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		writeError(w, r, errMethodNotAllowed)
	})
	return r
}

// Start 启动 HTTP 服务，直到上下文取消或出现错误。
func (s *Server) Start(ctx context.Context) error {
	server := &http.Server{
		Addr:              s.cfg.Address,
		Handler:           withContext(ctx, s.handler),
		ReadHeaderTimeout: s.cfg.ReadHeaderTimeout,
	}

	janitorCtx, stopJanitor := context.WithCancel(ctx)
	defer stopJanitor()
	go s.limiter.janitor(janitorCtx, 2*time.Minute)
	go s.sessions.Janitor(janitorCtx, time.Minute)

	errCh := make(chan error, 1)
	go func() {
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()
	logger.L().Info("API 服务已启动", "address", s.cfg.Address)

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), s.cfg.ShutdownTimeout)
		defer cancel()
		_ = server.Shutdown(shutdownCtx)
		return ctx.Err()
	case err := <-errCh:
		return err
	}
}

// withContext 确保请求处理能够感知根上下文取消。
func withContext(ctx context.Context, handler http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-ctx.Done():
			http.Error(w, "服务已关闭", http.StatusServiceUnavailable)
			return
		default:
		}
		handler.ServeHTTP(w, r)
	})
}

func routePattern(r *http.Request) string {
	if rctx := chi.RouteContext(r.Context()); rctx != nil {
		if pattern := rctx.RoutePattern(); pattern != "" {
			return pattern
		}
	}
	return "unmatched"
}

// accessLog 记录每个请求的访问日志。
func accessLog(clientIP KeyFunc) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
			next.ServeHTTP(ww, r)
			logger.Named("http").Info("access",
				"method", r.Method,
				"path", r.URL.Path,
				"status", metrics.StatusOf(ww),
				"bytes", ww.BytesWritten(),
				"duration_ms", time.Since(start).Milliseconds(),
				"remote", clientIP(r),
				"request_id", middleware.GetReqID(r.Context()),
			)
		})
	}
}
