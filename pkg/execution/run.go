// Package execution correlates a backend execution event stream back onto a
// builder session's graph, one run at a time.
package execution

import (
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/kanvas-io/kanvas/pkg/events"
	"github.com/kanvas-io/kanvas/pkg/graph"
	"github.com/kanvas-io/kanvas/pkg/models"
)

// State is the run lifecycle state.
type State string

const (
	StateIdle      State = "idle"
	StateRunning   State = "running"
	StateCompleted State = "completed"
	StateFailed    State = "failed"
	StateTimedOut  State = "timed_out"
)

// DefaultTimeout bounds how long a run may go without a terminal event.
const DefaultTimeout = 30 * time.Second

// Listener receives run outcomes. Backend failures, transport errors, and
// client-local timeouts are surfaced through separate methods so the caller
// can frame them differently (retry vs investigate).
type Listener interface {
	RunCompleted(message string)
	RunFailed(message string)
	RunTimedOut()
	ConnectionError(err error)
}

// Options tune a run.
type Options struct {
	// Timeout before the run is abandoned client-side. Zero means
	// DefaultTimeout.
	Timeout time.Duration

	// OutputNodeType is the node type whose completion ends the run.
	OutputNodeType string
}

// Run is the per-execution correlation state machine. Events arrive one at a
// time in stream order; the run applies per-node updates to the store and
// decides when the flow as a whole is done.
type Run struct {
	logger   *slog.Logger
	store    *graph.Store
	listener Listener
	opts     Options

	mu          sync.Mutex
	state       State
	flowError   string
	timer       *time.Timer
	closeStream func()
}

func NewRun(logger *slog.Logger, store *graph.Store, listener Listener, opts Options) *Run {
	if opts.Timeout <= 0 {
		opts.Timeout = DefaultTimeout
	}

	return &Run{
		logger:   logger,
		store:    store,
		listener: listener,
		opts:     opts,
		state:    StateIdle,
	}
}

// Start transitions the run to running and arms the correlation timer.
// closeStream tears down the event subscription; closing it is the sole
// cancellation mechanism, there is no server-side abort.
func (r *Run) Start(closeStream func()) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.state != StateIdle {
		return
	}

	r.state = StateRunning
	r.closeStream = closeStream
	r.timer = time.AfterFunc(r.opts.Timeout, r.timedOut)
}

// State returns the current run state.
func (r *Run) State() State {
	r.mu.Lock()
	defer r.mu.Unlock()

	return r.state
}

// FlowError returns the recorded flow-level error, if any.
func (r *Run) FlowError() string {
	r.mu.Lock()
	defer r.mu.Unlock()

	return r.flowError
}

// HandleEvent applies one stream event. Events after a terminal transition
// are ignored; out-of-order terminal duplicates are expected and harmless.
func (r *Run) HandleEvent(event events.StreamEvent) {
	r.mu.Lock()

	if r.state != StateRunning {
		r.mu.Unlock()
		r.logger.Debug("stray event after run closed", "event", event.Event, "node_id", event.NodeID)

		return
	}

	switch event.Event {
	case events.EventFailed:
		message := event.Error()
		r.finishLocked(StateFailed, message)
		r.mu.Unlock()
		r.listener.RunFailed(message)

	case events.EventNodeCompleted:
		if r.isOutputNode(event.NodeID) {
			message, _ := event.Message()
			r.finishLocked(StateCompleted, "")
			r.mu.Unlock()
			r.listener.RunCompleted(message)

			return
		}

		r.mu.Unlock()
		r.store.UpdateExecutionResult(event.NodeID, event.ResultJSON())
		r.store.UpdateExecutionStatus(event.NodeID, models.ExecutionStatusCompleted)

	case events.EventNodeStarted:
		r.mu.Unlock()
		r.store.UpdateExecutionStatus(event.NodeID, models.ExecutionStatusRunning)

	default:
		r.mu.Unlock()
		r.logger.Debug("unhandled stream event", "event", event.Event)
	}
}

// HandleTransportError records a stream transport failure, distinct from a
// backend-reported execution failure.
func (r *Run) HandleTransportError(err error) {
	r.mu.Lock()

	if r.state != StateRunning {
		r.mu.Unlock()

		return
	}

	message := fmt.Sprintf("event stream connection lost: %v", err)
	r.finishLocked(StateFailed, message)
	r.mu.Unlock()
	r.listener.ConnectionError(err)
}

// Close abandons the run without a terminal event, tearing down the timer
// and subscription. Idempotent.
func (r *Run) Close() {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.stopLocked()

	if r.state == StateRunning {
		r.state = StateIdle
	}
}

func (r *Run) timedOut() {
	r.mu.Lock()

	if r.state != StateRunning {
		r.mu.Unlock()

		return
	}

	r.finishLocked(StateTimedOut, "execution timed out waiting for a response")
	r.mu.Unlock()
	r.listener.RunTimedOut()
}

// isOutputNode reports whether the event's node is the flow's designated
// output node.
func (r *Run) isOutputNode(nodeID string) bool {
	if nodeID == "" || r.opts.OutputNodeType == "" {
		return false
	}

	node, ok := r.store.NodeByID(nodeID)

	return ok && node.Type == r.opts.OutputNodeType
}

func (r *Run) finishLocked(state State, flowError string) {
	r.state = state
	r.flowError = flowError
	r.stopLocked()
}

func (r *Run) stopLocked() {
	if r.timer != nil {
		r.timer.Stop()
		r.timer = nil
	}

	if r.closeStream != nil {
		r.closeStream()
		r.closeStream = nil
	}
}
