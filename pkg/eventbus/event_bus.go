// Package eventbus carries execution stream events between the backend
// executor and builder sessions.
package eventbus

import (
	"context"

	"github.com/kanvas-io/kanvas/pkg/events"
)

// Handler processes one stream event for a task.
type Handler func(ctx context.Context, taskID string, event events.StreamEvent) error

// UnsubscribeFunc tears down a subscription. Implementations are idempotent;
// a second call is a no-op.
type UnsubscribeFunc func()

// EventBus publishes execution events keyed by task id and delivers them to
// per-run subscribers.
type EventBus interface {
	Publish(ctx context.Context, taskID string, event events.StreamEvent) error
	Subscribe(ctx context.Context, handler Handler) (UnsubscribeFunc, error)
	Close() error
	GenerateID() string
}
