package services

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"

	"github.com/kanvas-io/kanvas/pkg/codec"
	"github.com/kanvas-io/kanvas/pkg/eventbus"
	"github.com/kanvas-io/kanvas/pkg/events"
	"github.com/kanvas-io/kanvas/pkg/execution"
	"github.com/kanvas-io/kanvas/pkg/otelhelper"
)

var tracer = otel.Tracer("kanvas.services")

// Execution submits builder graphs for execution and correlates the event
// stream of each run back onto the session's graph store.
type Execution struct {
	logger *slog.Logger
	bus    eventbus.EventBus
	codec  *codec.Codec
	opts   execution.Options

	mu   sync.Mutex
	runs map[string]*activeRun // keyed by flow id
}

type activeRun struct {
	taskID string
	run    *execution.Run
}

// NewExecution creates an execution service publishing on the given bus.
func NewExecution(
	logger *slog.Logger,
	bus eventbus.EventBus,
	cdc *codec.Codec,
	opts execution.Options,
) *Execution {
	return &Execution{
		logger: logger.With("service", "execution"),
		bus:    bus,
		codec:  cdc,
		opts:   opts,
		runs:   make(map[string]*activeRun),
	}
}

// Submit serializes the session's graph, resets per-node execution state,
// publishes the run request and starts correlating the run's event stream.
// Submitting while a previous run for the same flow is still live closes that
// run's subscription first; at most one run per flow is correlated at a time.
func (e *Execution) Submit(
	ctx context.Context,
	session *Session,
	listener execution.Listener,
) (string, error) {
	ctx, span := otelhelper.StartSpan(ctx, tracer, "execution.submit",
		attribute.String(otelhelper.FlowIDKey, session.FlowID()))
	defer span.End()

	e.mu.Lock()
	if previous, ok := e.runs[session.FlowID()]; ok {
		previous.run.Close()
		delete(e.runs, session.FlowID())
	}
	e.mu.Unlock()

	store := session.Store()
	store.ResetExecutionState()

	snapshot := store.Snapshot()
	def := e.codec.Serialize(snapshot.Nodes, snapshot.Edges)
	taskID := e.bus.GenerateID()

	run := execution.NewRun(
		e.logger.With("flow_id", session.FlowID(), "task_id", taskID),
		store,
		listener,
		e.opts,
	)

	unsubscribe, err := e.bus.Subscribe(ctx, func(_ context.Context, tid string, event events.StreamEvent) error {
		if tid != taskID {
			return nil
		}

		run.HandleEvent(event)

		return nil
	})
	if err != nil {
		otelhelper.SetError(span, err)

		return "", fmt.Errorf("failed to subscribe to execution events: %w", err)
	}

	run.Start(unsubscribe)

	err = e.bus.Publish(ctx, taskID, events.StreamEvent{
		Event: events.EventRunSubmitted,
		Data:  map[string]any{"flow_definition": def},
	})
	if err != nil {
		run.HandleTransportError(err)
		otelhelper.SetError(span, err)

		return "", fmt.Errorf("failed to submit run: %w", err)
	}

	span.SetAttributes(attribute.String(otelhelper.TaskIDKey, taskID))

	e.mu.Lock()
	e.runs[session.FlowID()] = &activeRun{taskID: taskID, run: run}
	e.mu.Unlock()

	e.logger.Info("Run submitted", "flow_id", session.FlowID(), "task_id", taskID)

	return taskID, nil
}

// Run returns the most recent run for a flow, if any.
func (e *Execution) Run(flowID string) (string, *execution.Run, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()

	active, ok := e.runs[flowID]
	if !ok {
		return "", nil, false
	}

	return active.taskID, active.run, true
}

// CloseAll closes every live run's subscription. Used on shutdown.
func (e *Execution) CloseAll() {
	e.mu.Lock()
	defer e.mu.Unlock()

	for flowID, active := range e.runs {
		active.run.Close()
		delete(e.runs, flowID)
	}
}
