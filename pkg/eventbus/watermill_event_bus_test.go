package eventbus

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kanvas-io/kanvas/pkg/channels/gochannel"
	"github.com/kanvas-io/kanvas/pkg/events"
)

func newTestBus(t *testing.T) *WatermillEventBus {
	t.Helper()

	pub, sub, err := gochannel.CreateTestChannel(watermill.NopLogger{})
	require.NoError(t, err)

	bus := NewWatermillEventBus(pub, sub)
	t.Cleanup(func() { _ = bus.Close() })

	return bus
}

func TestWatermillEventBus_PublishSubscribe(t *testing.T) {
	ctx := context.Background()
	bus := newTestBus(t)

	var (
		mu       sync.Mutex
		received []events.StreamEvent
		taskIDs  []string
	)

	cancel, err := bus.Subscribe(ctx, func(_ context.Context, taskID string, event events.StreamEvent) error {
		mu.Lock()
		defer mu.Unlock()
		received = append(received, event)
		taskIDs = append(taskIDs, taskID)

		return nil
	})
	require.NoError(t, err)

	defer cancel()

	err = bus.Publish(ctx, "task-1", events.StreamEvent{
		Event:  events.EventNodeCompleted,
		NodeID: "agent-1",
		Data:   map[string]any{"response": "ok"},
	})
	require.NoError(t, err)

	require.Eventually(t, func() bool {
		mu.Lock()
		defer mu.Unlock()

		return len(received) == 1
	}, time.Second, 10*time.Millisecond)

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, "task-1", taskIDs[0])
	assert.Equal(t, events.EventNodeCompleted, received[0].Event)
	assert.Equal(t, "agent-1", received[0].NodeID)
	assert.Equal(t, "ok", received[0].Data["response"])
}

func TestWatermillEventBus_UnsubscribeIdempotent(t *testing.T) {
	ctx := context.Background()
	bus := newTestBus(t)

	cancel, err := bus.Subscribe(ctx, func(context.Context, string, events.StreamEvent) error {
		return nil
	})
	require.NoError(t, err)

	assert.NotPanics(t, func() {
		cancel()
		cancel()
		cancel()
	})
}

func TestWatermillEventBus_GenerateID(t *testing.T) {
	bus := newTestBus(t)

	first := bus.GenerateID()
	second := bus.GenerateID()
	assert.NotEmpty(t, first)
	assert.NotEqual(t, first, second)
}
