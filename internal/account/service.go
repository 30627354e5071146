package account

import (
	"context"
	"crypto/subtle"
	"errors"
	"log/slog"
	"strconv"
	"strings"

	"storefront/internal/catalog"
	xerrors "storefront/internal/errors"
	"storefront/internal/events"
	"storefront/internal/observability/metrics"
	"storefront/pkg/logger"
)

// Registrar 在目录服务登记用户并返回远端 ID。
type Registrar interface {
	CreateUser(ctx context.Context, user catalog.NewUser) (int, error)
}

// Service 负责注册与登录校验。
type Service struct {
	store     Store
	registrar Registrar
	events    events.Publisher
	audit     *slog.Logger
}

// NewService 构造账号服务。pub 为空时不发布事件。
func NewService(store Store, registrar Registrar, pub events.Publisher) (*Service, error) {
	if store == nil {
		return nil, errors.New("account store is required")
	}
	if registrar == nil {
		return nil, errors.New("catalog registrar is required")
	}
	if pub == nil {
		pub = events.Noop{}
	}
	return &Service{store: store, registrar: registrar, events: pub, audit: logger.Audit()}, nil
}

// Register 校验表单，向目录服务登记后追加到本地存储。
// 用户名不做唯一性检查，登录时取第一条匹配记录。
func (s *Service) Register(ctx context.Context, reg Registration) (Account, error) {
	reg = reg.Normalize()
	if err := reg.Validate(); err != nil {
		var verr *ValidationError
		errors.As(err, &verr)
		metrics.ObserveAccountEvent("register", err)
		return Account{}, verr.Coded()
	}

	id, err := s.registrar.CreateUser(ctx, catalog.NewUser{
		Email:    reg.Email,
		Username: reg.Username,
		Password: reg.Password,
		Name:     catalog.Name{Firstname: reg.Name.Firstname, Lastname: reg.Name.Lastname},
		Phone:    reg.Phone,
	})
	if err != nil {
		metrics.ObserveAccountEvent("register", err)
		s.audit.Warn("注册失败", "username", reg.Username, "error", err)
		return Account{}, xerrors.Wrap(CodeRegistrationFailed, err, "")
	}

	acct := Account{
		ID:        id,
		Email:     reg.Email,
		Username:  reg.Username,
		Password:  reg.Password,
		Name:      reg.Name,
		Phone:     reg.Phone,
		CreatedAt: nowUnix(),
	}
	if err := s.store.Append(ctx, acct); err != nil {
		metrics.ObserveAccountEvent("register", err)
		return Account{}, xerrors.Wrap(xerrors.CodeStorageFailure, err, "保存账号失败")
	}

	metrics.ObserveAccountEvent("register", nil)
	s.audit.Info("注册成功", "username", acct.Username, "account_id", acct.ID)
	events.Emit(ctx, s.events, events.New(events.AccountRegistered, acct.Username, map[string]string{
		"account_id": strconv.Itoa(acct.ID),
		"email":      acct.Email,
	}))
	return acct.Public(), nil
}

// Authenticate 用户名或邮箱与密码按原文匹配，返回第一条匹配的账号（不含密码）。
func (s *Service) Authenticate(ctx context.Context, identifier, password string) (Account, error) {
	identifier = strings.TrimSpace(identifier)
	if identifier == "" || password == "" {
		return Account{}, ErrInvalidCredentials
	}
	candidates, err := s.store.FindByLogin(ctx, identifier)
	if err != nil {
		return Account{}, xerrors.Wrap(xerrors.CodeStorageFailure, err, "读取账号失败")
	}
	for _, acct := range candidates {
		if !acct.MatchesLogin(identifier) {
			continue
		}
		if subtle.ConstantTimeCompare([]byte(acct.Password), []byte(password)) == 1 {
			return acct.Public(), nil
		}
	}
	return Account{}, ErrInvalidCredentials
}

// List 返回全部账号（不含密码）。
func (s *Service) List(ctx context.Context) ([]Account, error) {
	accounts, err := s.store.List(ctx)
	if err != nil {
		return nil, xerrors.Wrap(xerrors.CodeStorageFailure, err, "读取账号失败")
	}
	for i := range accounts {
		accounts[i] = accounts[i].Public()
	}
	return accounts, nil
}
