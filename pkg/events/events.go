// Package events defines the execution event stream protocol between the
// backend executor and builder sessions.
package events

import "encoding/json"

// Topic is the event-bus topic carrying execution stream events.
const Topic = "kanvas.executions"

// Message metadata keys.
const (
	TaskIDMetadataKey    = "task_id"
	EventTypeMetadataKey = "event_type"
)

// Stream event names.
const (
	EventRunSubmitted  = "submitted"
	EventNodeStarted   = "started"
	EventNodeCompleted = "completed"
	EventFailed        = "failed"
	EventEnd           = "end"
)

// EndOfStreamSentinel terminates the line-delimited stream to clients.
const EndOfStreamSentinel = "[DONE]"

// StreamEvent is one message on an execution run's event stream.
type StreamEvent struct {
	Event  string         `json:"event"             validate:"required"`
	NodeID string         `json:"node_id,omitempty"`
	Data   map[string]any `json:"data,omitempty"`
}

// Error returns the backend-provided error string of a failed event.
func (e StreamEvent) Error() string {
	if msg, ok := e.Data["error"].(string); ok {
		return msg
	}

	return "execution failed"
}

// Message returns the chat message payload of a completed event.
func (e StreamEvent) Message() (string, bool) {
	msg, ok := e.Data["message"].(string)

	return msg, ok
}

// ResultJSON renders the event's data payload as the opaque result string
// stored on the node.
func (e StreamEvent) ResultJSON() *string {
	if e.Data == nil {
		return nil
	}

	data, err := json.Marshal(e.Data)
	if err != nil {
		return nil
	}

	s := string(data)

	return &s
}
