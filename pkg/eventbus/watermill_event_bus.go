package eventbus

import (
	"context"
	"encoding/json"
	"sync"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/message"

	"github.com/kanvas-io/kanvas/pkg/events"
)

// WatermillEventBus adapts any watermill publisher/subscriber pair (the
// in-process channel or Kafka) to the EventBus interface.
type WatermillEventBus struct {
	publisher  message.Publisher
	subscriber message.Subscriber
}

func NewWatermillEventBus(pub message.Publisher, sub message.Subscriber) *WatermillEventBus {
	return &WatermillEventBus{
		publisher:  pub,
		subscriber: sub,
	}
}

func (eb *WatermillEventBus) GenerateID() string {
	return watermill.NewULID()
}

func (eb *WatermillEventBus) Publish(_ context.Context, taskID string, event events.StreamEvent) error {
	payload, err := json.Marshal(event)
	if err != nil {
		return err
	}

	msg := message.NewMessage("msg-"+eb.GenerateID(), payload)
	msg.Metadata.Set(events.TaskIDMetadataKey, taskID)
	msg.Metadata.Set(events.EventTypeMetadataKey, event.Event)

	return eb.publisher.Publish(events.Topic, msg)
}

// Subscribe delivers every stream event on the topic to the handler together
// with its task id. The returned cancel function closes the subscription and
// may be called any number of times.
func (eb *WatermillEventBus) Subscribe(ctx context.Context, handler Handler) (UnsubscribeFunc, error) {
	subCtx, cancel := context.WithCancel(ctx)

	messages, err := eb.subscriber.Subscribe(subCtx, events.Topic)
	if err != nil {
		cancel()

		return nil, err
	}

	go func() {
		for msg := range messages {
			var event events.StreamEvent

			if err := json.Unmarshal(msg.Payload, &event); err != nil {
				// Malformed bus payloads are dropped, not redelivered.
				msg.Ack()

				continue
			}

			taskID := msg.Metadata.Get(events.TaskIDMetadataKey)

			if err := handler(subCtx, taskID, event); err != nil {
				msg.Nack()

				continue
			}

			msg.Ack()
		}
	}()

	var once sync.Once

	return func() {
		once.Do(cancel)
	}, nil
}

func (eb *WatermillEventBus) Close() error {
	if err := eb.publisher.Close(); err != nil {
		return err
	}

	return eb.subscriber.Close()
}
