package account

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sync"

	xerrors "storefront/internal/errors"
)

// DefaultFileName 是账号文档的默认文件名。
const DefaultFileName = "users.json"

// document 与浏览器本地存储的 "users" 键对应。
type document struct {
	Users []Account `json:"users"`
}

// FileStore 将全部账号保存在一个 JSON 文档中，每次追加都读出、追加后整体重写。
// 进程内通过互斥锁串行化，跨进程不加锁，后写入者覆盖先写入者。
type FileStore struct {
	mu   sync.Mutex
	path string
}

// NewFileStore 创建文件存储，目录不存在时自动创建。
func NewFileStore(dir string) (*FileStore, error) {
	if dir == "" {
		return nil, errors.New("account data dir must not be empty")
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("创建账号目录失败: %w", err)
	}
	return &FileStore{path: filepath.Join(dir, DefaultFileName)}, nil
}

// Path 返回账号文档路径。
func (s *FileStore) Path() string { return s.path }

// Append 追加账号并重写文档。
func (s *FileStore) Append(_ context.Context, acct Account) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	doc, err := s.read()
	if err != nil {
		return err
	}
	doc.Users = append(doc.Users, acct)
	return s.write(doc)
}

// List 返回文档中的全部账号。
func (s *FileStore) List(_ context.Context) ([]Account, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	doc, err := s.read()
	if err != nil {
		return nil, err
	}
	return cloneAccounts(doc.Users), nil
}

// FindByLogin 按写入顺序返回匹配的账号。
func (s *FileStore) FindByLogin(_ context.Context, identifier string) ([]Account, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	doc, err := s.read()
	if err != nil {
		return nil, err
	}
	return filterLogin(doc.Users, identifier), nil
}

// Close 文件存储无需释放资源。
func (s *FileStore) Close() error { return nil }

// read 读取文档。文件不存在时视为空列表；内容损坏时返回 STORAGE_FAILURE，不覆盖原文件。
func (s *FileStore) read() (document, error) {
	data, err := os.ReadFile(s.path)
	if errors.Is(err, fs.ErrNotExist) {
		return document{}, nil
	}
	if err != nil {
		return document{}, fmt.Errorf("读取账号文档失败: %w", err)
	}
	var doc document
	if err := json.Unmarshal(data, &doc); err != nil {
		return document{}, xerrors.Wrap(xerrors.CodeStorageFailure, err, "账号文档已损坏: "+s.path)
	}
	return doc, nil
}

func (s *FileStore) write(doc document) error {
	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return fmt.Errorf("序列化账号文档失败: %w", err)
	}
	tmp, err := os.CreateTemp(filepath.Dir(s.path), ".users-*.json")
	if err != nil {
		return fmt.Errorf("写入账号文档失败: %w", err)
	}
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return fmt.Errorf("写入账号文档失败: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("写入账号文档失败: %w", err)
	}
	if err := os.Rename(tmp.Name(), s.path); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("替换账号文档失败: %w", err)
	}
	return nil
}
