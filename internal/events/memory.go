package events

import (
	"context"
	"errors"
	"sync"
)

// ErrClosed 表示发布器已关闭。
var ErrClosed = errors.New("事件发布器已关闭")

// Memory 使用 channel 缓存事件，主要用于测试与单机部署。
type Memory struct {
	ch     chan Event
	mu     sync.RWMutex
	closed bool
}

// NewMemory 创建内存发布器。
func NewMemory(size int) *Memory {
	if size <= 0 {
		size = 64
	}
	return &Memory{ch: make(chan Event, size)}
}

// Publish 将事件放入缓冲区。
func (m *Memory) Publish(ctx context.Context, evt Event) error {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.closed {
		return ErrClosed
	}
	select {
	case <-ctx.Done():
		return ctx.Err()
	case m.ch <- evt:
		return nil
	}
}

// Events 返回只读事件通道，Close 后通道关闭。
func (m *Memory) Events() <-chan Event {
	return m.ch
}

// Drain 非阻塞地取出当前缓冲区中的全部事件。
func (m *Memory) Drain() []Event {
	var out []Event
	for {
		select {
		case evt, ok := <-m.ch:
			if !ok {
				return out
			}
			out = append(out, evt)
		default:
			return out
		}
	}
}

// Close 关闭发布器。
func (m *Memory) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if !m.closed {
		close(m.ch)
		m.closed = true
	}
	return nil
}
