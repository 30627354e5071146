package session

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	goredis "github.com/redis/go-redis/v9"

	storageredis "storefront/internal/storage/redis"
)

// RedisStore 将会话以 JSON 形式保存在 Redis 中，过期交给 Redis TTL 处理。
type RedisStore struct {
	client goredis.UniversalClient
	prefix string
	// owned 为 true 时 Close 会关闭客户端。
	owned bool
}

// NewRedisStore 使用已有客户端创建会话存储。
func NewRedisStore(client goredis.UniversalClient, prefix string, owned bool) *RedisStore {
	if prefix == "" {
		prefix = "storefront:session:"
	}
	return &RedisStore{client: client, prefix: prefix, owned: owned}
}

// Put 保存会话，TTL 取自 ExpiresAt。
func (r *RedisStore) Put(ctx context.Context, s Session) error {
	data, err := json.Marshal(s)
	if err != nil {
		return fmt.Errorf("序列化会话失败: %w", err)
	}
	var ttl time.Duration
	if !s.ExpiresAt.IsZero() {
		ttl = time.Until(s.ExpiresAt)
		if ttl <= 0 {
			return nil
		}
	}
	if err := r.client.Set(ctx, r.prefix+s.Token, data, ttl).Err(); err != nil {
		return fmt.Errorf("写入会话失败: %w", err)
	}
	return nil
}

// Get 读取会话。
func (r *RedisStore) Get(ctx context.Context, token string) (Session, error) {
	data, err := r.client.Get(ctx, r.prefix+token).Bytes()
	if storageredis.IsMiss(err) {
		return Session{}, ErrNotFound
	}
	if err != nil {
		return Session{}, fmt.Errorf("读取会话失败: %w", err)
	}
	var s Session
	if err := json.Unmarshal(data, &s); err != nil {
		return Session{}, fmt.Errorf("解析会话失败: %w", err)
	}
	if s.Expired(time.Now()) {
		return Session{}, ErrNotFound
	}
	return s, nil
}

// Delete 删除会话。
func (r *RedisStore) Delete(ctx context.Context, token string) error {
	if err := r.client.Del(ctx, r.prefix+token).Err(); err != nil {
		return fmt.Errorf("删除会话失败: %w", err)
	}
	return nil
}

// Close 在持有客户端时关闭连接。
func (r *RedisStore) Close() error {
	if !r.owned || r.client == nil {
		return nil
	}
	return r.client.Close()
}
