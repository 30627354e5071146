// Package session 管理登录会话：签发令牌、保存当前用户、
// 以及保护需要登录才能访问的路由。
package session

import (
	"context"
	"errors"
	"time"

	"storefront/internal/account"
	xerrors "storefront/internal/errors"
)

// LoginPath 是未登录请求被引导到的页面。
const LoginPath = "/login"

// Session 对应客户端保存的 token 与 currentUser。
type Session struct {
	Token     string          `json:"token"`
	User      account.Account `json:"user"`
	CreatedAt time.Time       `json:"created_at"`
	ExpiresAt time.Time       `json:"expires_at"`
}

// Expired 判断会话在 now 时刻是否已过期。
func (s Session) Expired(now time.Time) bool {
	return !s.ExpiresAt.IsZero() && !now.Before(s.ExpiresAt)
}

// Store 保存会话，实现需要并发安全。
type Store interface {
	Put(ctx context.Context, s Session) error
	// Get 在会话不存在或已过期时返回 ErrNotFound。
	Get(ctx context.Context, token string) (Session, error)
	Delete(ctx context.Context, token string) error
	Close() error
}

// ErrNotFound 表示会话不存在或已过期。
var ErrNotFound = errors.New("session not found")

// ErrUnauthenticated 是面向调用方的统一错误。
var ErrUnauthenticated = xerrors.New(xerrors.CodeUnauthenticated, "login required")
