package mysql

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"storefront/internal/account"
)

const accountColumns = `remote_id, email, username, password, firstname, lastname, phone, created_at`

// AccountStore 将账号保存在 accounts 表中，按插入顺序返回。
type AccountStore struct {
	db *sql.DB
}

// NewAccountStore 建立连接并执行迁移。
func NewAccountStore(ctx context.Context, cfg Config) (*AccountStore, error) {
	db, err := openDatabase(ctx, cfg)
	if err != nil {
		return nil, err
	}
	if err := runMigrations(ctx, db); err != nil {
		db.Close()
		return nil, err
	}
	return &AccountStore{db: db}, nil
}

// Append 插入账号记录。
func (s *AccountStore) Append(ctx context.Context, acct account.Account) error {
	const query = `INSERT INTO accounts (` + accountColumns + `) VALUES (?, ?, ?, ?, ?, ?, ?, ?)`
	_, err := s.db.ExecContext(ctx, query,
		acct.ID, acct.Email, acct.Username, acct.Password,
		acct.Name.Firstname, acct.Name.Lastname, acct.Phone, acct.CreatedAt)
	if err != nil {
		return fmt.Errorf("写入账号失败: %w", err)
	}
	return nil
}

// List 返回全部账号。
func (s *AccountStore) List(ctx context.Context) ([]account.Account, error) {
	const query = `SELECT ` + accountColumns + ` FROM accounts ORDER BY seq ASC`
	return s.query(ctx, query)
}

// FindByLogin 返回用户名或邮箱匹配的账号，按插入顺序。
func (s *AccountStore) FindByLogin(ctx context.Context, identifier string) ([]account.Account, error) {
	identifier = strings.TrimSpace(identifier)
	if identifier == "" {
		return nil, nil
	}
	const query = `SELECT ` + accountColumns + ` FROM accounts WHERE username = ? OR email = ? ORDER BY seq ASC`
	return s.query(ctx, query, identifier, identifier)
}

// Close 释放连接池。
func (s *AccountStore) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

func (s *AccountStore) query(ctx context.Context, query string, args ...any) ([]account.Account, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("查询账号失败: %w", err)
	}
	defer rows.Close()

	accounts := []account.Account{}
	for rows.Next() {
		var acct account.Account
		if err := rows.Scan(&acct.ID, &acct.Email, &acct.Username, &acct.Password,
			&acct.Name.Firstname, &acct.Name.Lastname, &acct.Phone, &acct.CreatedAt); err != nil {
			return nil, fmt.Errorf("解析账号失败: %w", err)
		}
		accounts = append(accounts, acct)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("遍历账号失败: %w", err)
	}
	return accounts, nil
}

var _ account.Store = (*AccountStore)(nil)
