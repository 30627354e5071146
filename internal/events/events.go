// Package events 发布账号与会话的生命周期事件。
// 事件发布失败只记录日志，不影响用户操作本身。
package events

import (
	"context"
	"time"

	"github.com/google/uuid"

	"storefront/pkg/logger"
)

// Type 是事件类型。
type Type string

const (
	AccountRegistered Type = "account.registered"
	SessionStarted    Type = "session.started"
	SessionEnded      Type = "session.ended"
)

// Event 是一条生命周期事件。
type Event struct {
	ID         string            `json:"id"`
	Type       Type              `json:"type"`
	Subject    string            `json:"subject"`
	OccurredAt time.Time         `json:"occurred_at"`
	Attributes map[string]string `json:"attributes,omitempty"`
}

// New 创建带有随机 ID 与当前时间的事件。
func New(t Type, subject string, attrs map[string]string) Event {
	return Event{
		ID:         uuid.NewString(),
		Type:       t,
		Subject:    subject,
		OccurredAt: time.Now().UTC(),
		Attributes: attrs,
	}
}

// Publisher 负责投递事件。
type Publisher interface {
	Publish(ctx context.Context, evt Event) error
	Close() error
}

// Emit 发布事件，失败时仅记录告警日志。
func Emit(ctx context.Context, pub Publisher, evt Event) {
	if pub == nil {
		return
	}
	if err := pub.Publish(ctx, evt); err != nil {
		logger.Named("events").Warn("发布事件失败",
			"type", evt.Type,
			"subject", evt.Subject,
			"error", err,
		)
	}
}

// Noop 丢弃所有事件。
type Noop struct{}

// Publish 实现 Publisher。
func (Noop) Publish(context.Context, Event) error { return nil }

// Close 实现 Publisher。
func (Noop) Close() error { return nil }
