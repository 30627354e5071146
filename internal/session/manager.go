package session

import (
	"context"
	"errors"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	"storefront/internal/account"
	xerrors "storefront/internal/errors"
	"storefront/internal/events"
	"storefront/internal/observability/metrics"
	"storefront/pkg/logger"
)

// DefaultTTL 是会话默认有效期。
const DefaultTTL = 12 * time.Hour

// Authenticator 校验用户名/邮箱与密码。
type Authenticator interface {
	Authenticate(ctx context.Context, identifier, password string) (account.Account, error)
}

// Manager 负责登录、登出与令牌解析。
type Manager struct {
	auth   Authenticator
	store  Store
	events events.Publisher
	ttl    time.Duration
	now    func() time.Time
	audit  *slog.Logger
}

// Option 调整 Manager 行为。
type Option func(*Manager)

// WithTTL 设置会话有效期。
func WithTTL(ttl time.Duration) Option {
	return func(m *Manager) {
		if ttl > 0 {
			m.ttl = ttl
		}
	}
}

// WithPublisher 设置事件发布器。
func WithPublisher(pub events.Publisher) Option {
	return func(m *Manager) {
		if pub != nil {
			m.events = pub
		}
	}
}

// WithClock 替换时间来源，测试使用。
func WithClock(now func() time.Time) Option {
	return func(m *Manager) {
		if now != nil {
			m.now = now
		}
	}
}

// NewManager 构造会话管理器。
func NewManager(auth Authenticator, store Store, opts ...Option) (*Manager, error) {
	if auth == nil {
		return nil, errors.New("session manager requires an authenticator")
	}
	if store == nil {
		return nil, errors.New("session manager requires a store")
	}
	m := &Manager{
		auth:   auth,
		store:  store,
		events: events.Noop{},
		ttl:    DefaultTTL,
		now:    time.Now,
		audit:  logger.Audit(),
	}
	for _, opt := range opts {
		if opt != nil {
			opt(m)
		}
	}
	return m, nil
}

// Login 校验凭证并签发新会话。
func (m *Manager) Login(ctx context.Context, identifier, password string) (Session, error) {
	user, err := m.auth.Authenticate(ctx, identifier, password)
	if err != nil {
		metrics.ObserveAccountEvent("login", err)
		m.audit.Warn("login_failed", "identifier", strings.TrimSpace(identifier), "error", err.Error())
		return Session{}, err
	}

	now := m.now().UTC()
	s := Session{
		Token:     uuid.NewString(),
		User:      user.Public(),
		CreatedAt: now,
		ExpiresAt: now.Add(m.ttl),
	}
	if err := m.store.Put(ctx, s); err != nil {
		metrics.ObserveAccountEvent("login", err)
		return Session{}, xerrors.Wrap(xerrors.CodeStorageFailure, err, "保存会话失败")
	}

	metrics.ObserveAccountEvent("login", nil)
	m.audit.Info("login", "user", user.Username, "account_id", user.ID)
	events.Emit(ctx, m.events, events.New(events.SessionStarted, user.Username, map[string]string{
		"account_id": strconv.Itoa(user.ID),
	}))
	return s, nil
}

// Logout 删除会话。令牌不存在时同样视为成功。
func (m *Manager) Logout(ctx context.Context, token string) error {
	token = strings.TrimSpace(token)
	if token == "" {
		return nil
	}
	s, err := m.store.Get(ctx, token)
	if err != nil && !errors.Is(err, ErrNotFound) {
		return xerrors.Wrap(xerrors.CodeStorageFailure, err, "读取会话失败")
	}
	if err := m.store.Delete(ctx, token); err != nil {
		return xerrors.Wrap(xerrors.CodeStorageFailure, err, "删除会话失败")
	}
	if s.Token == "" {
		return nil
	}

	metrics.ObserveAccountEvent("logout", nil)
	m.audit.Info("logout", "user", s.User.Username)
	events.Emit(ctx, m.events, events.New(events.SessionEnded, s.User.Username, nil))
	return nil
}

// Resolve 根据令牌查找会话，缺失、未知或过期均返回 UNAUTHENTICATED。
func (m *Manager) Resolve(ctx context.Context, token string) (Session, error) {
	token = strings.TrimSpace(token)
	if token == "" {
		return Session{}, ErrUnauthenticated
	}
	s, err := m.store.Get(ctx, token)
	if errors.Is(err, ErrNotFound) {
		return Session{}, ErrUnauthenticated
	}
	if err != nil {
		return Session{}, xerrors.Wrap(xerrors.CodeStorageFailure, err, "读取会话失败")
	}
	if s.Expired(m.now()) {
		_ = m.store.Delete(ctx, token)
		return Session{}, ErrUnauthenticated
	}
	return s, nil
}

// sweeper 由需要主动清理过期会话的存储实现；redis 依赖键过期，不需要。
type sweeper interface {
	Sweep(now time.Time) int
}

// Janitor 周期清理过期会话，直到 ctx 取消。存储不支持清理时立即返回。
func (m *Manager) Janitor(ctx context.Context, every time.Duration) {
	sw, ok := m.store.(sweeper)
	if !ok {
		return
	}
	if every <= 0 {
		every = time.Minute
	}
	log := logger.Named("session")
	t := time.NewTicker(every)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			if n := sw.Sweep(m.now()); n > 0 {
				log.Debug("expired sessions swept", "count", n)
			}
		}
	}
}
