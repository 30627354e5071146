package session

import (
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5/middleware"

	xerrors "storefront/internal/errors"
	"storefront/internal/observability/metrics"
	"storefront/pkg/logger"
)

// BearerToken 从 Authorization 头中解析令牌。
func BearerToken(header string) string {
	header = strings.TrimSpace(header)
	if len(header) < 7 || !strings.EqualFold(header[:7], "bearer ") {
		return ""
	}
	return strings.TrimSpace(header[7:])
}

// Gate 返回保护路由的中间件，未登录请求返回 401 并提示跳转到登录页。
func (m *Manager) Gate() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			s, err := m.Resolve(r.Context(), BearerToken(r.Header.Get("Authorization")))
			if err != nil {
				status := xerrors.StatusOf(err)
				writeUnauthenticated(w, status, err)
				m.audit.Warn("access_denied",
					"path", r.URL.Path,
					"method", r.Method,
					"status", status,
					"error", err.Error(),
				)
				return
			}

			start := time.Now()
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
			next.ServeHTTP(ww, r.WithContext(WithSession(r.Context(), s)))
			logger.Named("http").Debug("api_request",
				"method", r.Method,
				"path", r.URL.Path,
				"status", metrics.StatusOf(ww),
				"duration_ms", time.Since(start).Milliseconds(),
				"user", s.User.Username,
			)
		})
	}
}

type gateError struct {
	Code     xerrors.Code `json:"code"`
	Message  string       `json:"message"`
	Redirect string       `json:"redirect,omitempty"`
}

func writeUnauthenticated(w http.ResponseWriter, status int, err error) {
	body := gateError{Code: xerrors.CodeOf(err), Message: err.Error()}
	if e, ok := xerrors.From(err); ok {
		body.Message = e.Message()
	}
	if status == http.StatusUnauthorized {
		body.Redirect = LoginPath
		w.Header().Set("WWW-Authenticate", `Bearer realm="storefront"`)
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]gateError{"error": body})
}
