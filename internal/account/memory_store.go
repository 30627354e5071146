package account

import (
	"context"
	"errors"
	"sync"
)

// ErrStoreClosed 表示存储已关闭。
var ErrStoreClosed = errors.New("account store closed")

// MemoryStore 是基于内存的账号存储，适合测试与临时部署。
type MemoryStore struct {
	mu       sync.RWMutex
	accounts []Account
	closed   bool
}

// NewMemoryStore 创建内存存储。
func NewMemoryStore(seed ...Account) *MemoryStore {
	return &MemoryStore{accounts: cloneAccounts(seed)}
}

// Append 追加账号。
func (s *MemoryStore) Append(_ context.Context, acct Account) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ErrStoreClosed
	}
	s.accounts = append(s.accounts, acct)
	return nil
}

// List 返回全部账号的副本。
func (s *MemoryStore) List(_ context.Context) ([]Account, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return nil, ErrStoreClosed
	}
	return cloneAccounts(s.accounts), nil
}

// FindByLogin 按写入顺序返回匹配的账号。
func (s *MemoryStore) FindByLogin(_ context.Context, identifier string) ([]Account, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return nil, ErrStoreClosed
	}
	return filterLogin(s.accounts, identifier), nil
}

// Close 关闭存储。
func (s *MemoryStore) Close() error {
	s.mu.Lock()
	s.closed = true
	s.mu.Unlock()
	return nil
}

func filterLogin(accounts []Account, identifier string) []Account {
	var out []Account
	for _, acct := range accounts {
		if acct.MatchesLogin(identifier) {
			out = append(out, acct)
		}
	}
	return out
}
