package account

import (
	"context"
	"errors"
	"regexp"
	"sort"
	"strings"
	"time"

	xerrors "storefront/internal/errors"
)

// Name 是账号的姓名。
type Name struct {
	Firstname string `json:"firstname"`
	Lastname  string `json:"lastname"`
}

// Account 是本地保存的账号记录。密码按提交时的原文保存。
type Account struct {
	ID        int    `json:"id"`
	Email     string `json:"email"`
	Username  string `json:"username"`
	Password  string `json:"password"`
	Name      Name   `json:"name"`
	Phone     string `json:"phone"`
	CreatedAt int64  `json:"created_at,omitempty"`
}

// Public 返回去掉密码后的副本，用于会话与接口响应。
func (a Account) Public() Account {
	a.Password = ""
	return a
}

// Registration 是注册表单。
type Registration struct {
	Email    string `json:"email"`
	Username string `json:"username"`
	Password string `json:"password"`
	Name     Name   `json:"name"`
	Phone    string `json:"phone"`
}

// Store 抽象账号持久化，实现需要并发安全。
type Store interface {
	Append(ctx context.Context, acct Account) error
	List(ctx context.Context) ([]Account, error)
	// FindByLogin 按写入顺序返回用户名或邮箱等于 identifier 的全部账号。
	FindByLogin(ctx context.Context, identifier string) ([]Account, error)
	Close() error
}

const (
	CodeValidation         xerrors.Code = "VALIDATION_FAILED"
	CodeInvalidCredentials xerrors.Code = "INVALID_CREDENTIALS"
	CodeRegistrationFailed xerrors.Code = "REGISTRATION_FAILED"
)

// ErrInvalidCredentials 表示用户名/邮箱与密码不匹配。
var ErrInvalidCredentials = xerrors.New(CodeInvalidCredentials, "Invalid username/email or password")

func init() {
	xerrors.Register(CodeValidation, xerrors.Attributes{
		Message:  "registration form is invalid",
		Severity: xerrors.SeverityInfo,
		Status:   400,
	})
	xerrors.Register(CodeInvalidCredentials, xerrors.Attributes{
		Message:  "invalid credentials",
		Severity: xerrors.SeverityInfo,
		Status:   401,
	})
	xerrors.Register(CodeRegistrationFailed, xerrors.Attributes{
		Message:  "Registration failed. Please try again.",
		Severity: xerrors.SeverityWarning,
		Status:   502,
	})
}

// 表单字段名。
const (
	FieldEmail     = "email"
	FieldUsername  = "username"
	FieldPassword  = "password"
	FieldFirstname = "firstname"
	FieldLastname  = "lastname"
	FieldPhone     = "phone"
)

var (
	emailPattern = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)
	phonePattern = regexp.MustCompile(`^\d{10}$`)
	nonDigits    = regexp.MustCompile(`\D`)
)

// ValidationError 汇总所有字段的校验失败原因。
type ValidationError struct {
	Fields map[string]string
}

func (e *ValidationError) Error() string {
	keys := make([]string, 0, len(e.Fields))
	for k := range e.Fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, k+": "+e.Fields[k])
	}
	return "invalid registration: " + strings.Join(parts, "; ")
}

// Coded 将校验错误转换为带字段元数据的统一错误。
func (e *ValidationError) Coded() *xerrors.Error {
	opts := make([]xerrors.Option, 0, len(e.Fields))
	for field, msg := range e.Fields {
		opts = append(opts, xerrors.WithMetadata(field, msg))
	}
	return xerrors.Wrap(CodeValidation, e, "", opts...)
}

// Normalize 去掉电话号码中的非数字字符，与表单输入行为一致。
func (r Registration) Normalize() Registration {
	r.Phone = nonDigits.ReplaceAllString(r.Phone, "")
	return r
}

// Validate 按注册表单规则校验，全部失败字段一并返回。
func (r Registration) Validate() error {
	fields := make(map[string]string)
	if r.Email == "" || !emailPattern.MatchString(r.Email) {
		fields[FieldEmail] = "Valid email is required"
	}
	if len([]rune(r.Username)) < 4 {
		fields[FieldUsername] = "Username must be at least 4 characters"
	}
	if len([]rune(r.Password)) < 6 {
		fields[FieldPassword] = "Password must be at least 6 characters"
	}
	if r.Name.Firstname == "" {
		fields[FieldFirstname] = "First name is required"
	}
	if r.Name.Lastname == "" {
		fields[FieldLastname] = "Last name is required"
	}
	if !phonePattern.MatchString(r.Phone) {
		fields[FieldPhone] = "Phone number must be exactly 10 digits"
	}
	if len(fields) == 0 {
		return nil
	}
	return &ValidationError{Fields: fields}
}

// AsValidationError 提取校验错误。
func AsValidationError(err error) (*ValidationError, bool) {
	var target *ValidationError
	if errors.As(err, &target) {
		return target, true
	}
	return nil, false
}

// MatchesLogin 判断账号的用户名或邮箱是否等于 identifier。
func (a Account) MatchesLogin(identifier string) bool {
	return identifier != "" && (a.Username == identifier || a.Email == identifier)
}

func nowUnix() int64 { return time.Now().Unix() }

func cloneAccounts(in []Account) []Account {
	if len(in) == 0 {
		return []Account{}
	}
	out := make([]Account, len(in))
	copy(out, in)
	return out
}
