// Package web provides HTTP handlers and REST API endpoints for the flow builder.
package web

import (
	"bufio"
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v3"

	"github.com/kanvas-io/kanvas/pkg/catalog"
	"github.com/kanvas-io/kanvas/pkg/eventbus"
	"github.com/kanvas-io/kanvas/pkg/events"
	"github.com/kanvas-io/kanvas/pkg/graph"
	"github.com/kanvas-io/kanvas/pkg/models"
	"github.com/kanvas-io/kanvas/pkg/services"
)

const streamIdleTimeout = 5 * time.Minute

type APIHandlers struct {
	flowService      *services.Flow
	builder          *services.Builder
	executionService *services.Execution
	catalog          *catalog.Catalog
	bus              eventbus.EventBus
	validator        *validator.Validate
	logger           *slog.Logger
}

func NewAPIHandlers(
	flowService *services.Flow,
	builder *services.Builder,
	executionService *services.Execution,
	cat *catalog.Catalog,
	bus eventbus.EventBus,
	validator *validator.Validate,
	logger *slog.Logger,
) *APIHandlers {
	return &APIHandlers{
		flowService:      flowService,
		builder:          builder,
		executionService: executionService,
		catalog:          cat,
		bus:              bus,
		validator:        validator,
		logger:           logger.With("module", "web"),
	}
}

func (h *APIHandlers) HealthCheck(c fiber.Ctx) error {
	repositoryCheck, repOk := h.flowService.HealthCheck(c.Context())

	status := "unhealthy"
	message := "Kanvas API is unhealthy"
	httpStatus := http.StatusInternalServerError

	if repOk && h.catalog.Ready() {
		status = "healthy"
		message = "Kanvas API is healthy"
		httpStatus = http.StatusOK
	}

	return c.Status(httpStatus).JSON(fiber.Map{
		"status":  status,
		"message": message,
		"checkers": fiber.Map{
			"catalog":    h.catalog.Ready(),
			"repository": repositoryCheck,
		},
		"timestamp": time.Now().UTC(),
	})
}

// GetSpecs returns every registered node spec, sorted by name.
func (h *APIHandlers) GetSpecs(c fiber.Ctx) error {
	return c.JSON(h.catalog.All())
}

func (h *APIHandlers) GetFlows(c fiber.Ctx) error {
	flows, err := h.flowService.List(c.Context())
	if err != nil {
		return handleServiceError(c, err)
	}

	return c.JSON(flows)
}

func (h *APIHandlers) GetFlow(c fiber.Ctx) error {
	id := c.Params("id")
	if id == "" {
		return badRequest(c, "Flow ID is required")
	}

	flow, err := h.flowService.FetchByID(c.Context(), id)
	if err != nil {
		return handleServiceError(c, err)
	}

	return c.JSON(flow)
}

func (h *APIHandlers) CreateFlow(c fiber.Ctx) error {
	var req CreateFlowRequest
	if err := c.Bind().JSON(&req); err != nil {
		return badRequest(c, "Invalid JSON format")
	}

	if err := h.validator.Struct(req); err != nil {
		return badRequest(c, err.Error())
	}

	flow := &models.Flow{
		Name:        req.Name,
		Description: req.Description,
		Owner:       req.Owner,
	}

	created, err := h.flowService.Create(c.Context(), flow)
	if err != nil {
		return handleServiceError(c, err)
	}

	return c.Status(fiber.StatusCreated).JSON(created)
}

func (h *APIHandlers) UpdateFlow(c fiber.Ctx) error {
	id := c.Params("id")
	if id == "" {
		return badRequest(c, "Flow ID is required")
	}

	var req UpdateFlowRequest
	if err := c.Bind().JSON(&req); err != nil {
		return badRequest(c, "Invalid JSON format")
	}

	if err := h.validator.Struct(req); err != nil {
		return badRequest(c, err.Error())
	}

	existing, err := h.flowService.FetchByID(c.Context(), id)
	if err != nil {
		return handleServiceError(c, err)
	}

	if req.Name != nil {
		existing.Name = *req.Name
	}

	if req.Description != nil {
		existing.Description = *req.Description
	}

	updated, err := h.flowService.Update(c.Context(), id, existing)
	if err != nil {
		return handleServiceError(c, err)
	}

	return c.JSON(updated)
}

func (h *APIHandlers) DeleteFlow(c fiber.Ctx) error {
	id := c.Params("id")
	if id == "" {
		return badRequest(c, "Flow ID is required")
	}

	err := h.flowService.Delete(c.Context(), id)
	if err != nil {
		return handleServiceError(c, err)
	}

	return c.SendStatus(fiber.StatusNoContent)
}

// OpenSession starts a builder session for the flow, loading its persisted
// definition into a live graph store.
func (h *APIHandlers) OpenSession(c fiber.Ctx) error {
	id := c.Params("id")
	if id == "" {
		return badRequest(c, "Flow ID is required")
	}

	session, err := h.builder.Open(c.Context(), id)
	if err != nil {
		return handleServiceError(c, err)
	}

	return c.Status(fiber.StatusCreated).JSON(graphResponse(session))
}

func (h *APIHandlers) CloseSession(c fiber.Ctx) error {
	id := c.Params("id")
	if id == "" {
		return badRequest(c, "Flow ID is required")
	}

	if err := h.builder.Close(c.Context(), id); err != nil {
		return handleServiceError(c, err)
	}

	return c.SendStatus(fiber.StatusNoContent)
}

// SaveSession forces a save outside the autosave cycle.
func (h *APIHandlers) SaveSession(c fiber.Ctx) error {
	session, err := h.session(c)
	if err != nil {
		return handleServiceError(c, err)
	}

	if err := session.Save(c.Context()); err != nil {
		return handleServiceError(c, err)
	}

	return c.SendStatus(fiber.StatusNoContent)
}

func (h *APIHandlers) GetSessionGraph(c fiber.Ctx) error {
	session, err := h.session(c)
	if err != nil {
		return handleServiceError(c, err)
	}

	return c.JSON(graphResponse(session))
}

func (h *APIHandlers) AddNode(c fiber.Ctx) error {
	session, err := h.session(c)
	if err != nil {
		return handleServiceError(c, err)
	}

	var req AddNodeRequest
	if err := c.Bind().JSON(&req); err != nil {
		return badRequest(c, "Invalid JSON format")
	}

	if err := h.validator.Struct(req); err != nil {
		return badRequest(c, err.Error())
	}

	node, err := session.Store().AddNode(req.Type, req.Position)
	if err != nil {
		return handleServiceError(c, err)
	}

	return c.Status(fiber.StatusCreated).JSON(node)
}

// Connect draws an edge after the full connection validation pass.
func (h *APIHandlers) Connect(c fiber.Ctx) error {
	session, err := h.session(c)
	if err != nil {
		return handleServiceError(c, err)
	}

	var req ConnectRequest
	if err := c.Bind().JSON(&req); err != nil {
		return badRequest(c, "Invalid JSON format")
	}

	if err := h.validator.Struct(req); err != nil {
		return badRequest(c, err.Error())
	}

	edge, err := session.Store().Connect(graph.Candidate{
		Source:       req.Source,
		SourceHandle: req.SourceHandle,
		Target:       req.Target,
		TargetHandle: req.TargetHandle,
	})
	if err != nil {
		return handleServiceError(c, err)
	}

	return c.Status(fiber.StatusCreated).JSON(edge)
}

// ValidateConnection previews a candidate edge without mutating the graph.
// Drag feedback in the canvas calls this on every hover.
func (h *APIHandlers) ValidateConnection(c fiber.Ctx) error {
	session, err := h.session(c)
	if err != nil {
		return handleServiceError(c, err)
	}

	var req ConnectRequest
	if err := c.Bind().JSON(&req); err != nil {
		return badRequest(c, "Invalid JSON format")
	}

	if err := h.validator.Struct(req); err != nil {
		return badRequest(c, err.Error())
	}

	valid := graph.IsValidConnection(graph.Candidate{
		Source:       req.Source,
		SourceHandle: req.SourceHandle,
		Target:       req.Target,
		TargetHandle: req.TargetHandle,
	}, session.Store().Snapshot(), h.catalog.Lookup())

	return c.JSON(ValidateConnectionResponse{Valid: valid})
}

func (h *APIHandlers) UpdateNodeField(c fiber.Ctx) error {
	session, err := h.session(c)
	if err != nil {
		return handleServiceError(c, err)
	}

	nodeID := c.Params("nodeId")

	node, ok := session.Store().NodeByID(nodeID)
	if !ok {
		return notFound(c, "Node not found")
	}

	var req UpdateNodeFieldRequest
	if err := c.Bind().JSON(&req); err != nil {
		return badRequest(c, "Invalid JSON format")
	}

	if err := h.validator.Struct(req); err != nil {
		return badRequest(c, err.Error())
	}

	switch req.Kind {
	case "input":
		session.Store().UpdateInput(nodeID, req.Name, req.Value)
	case "parameter":
		// The node type's config schema judges the full parameter set, so
		// merge the new value over the current one before validating.
		merged := make(map[string]any, len(node.Data.ParameterValues)+1)
		for name, value := range node.Data.ParameterValues {
			merged[name] = value
		}

		merged[req.Name] = req.Value

		if err := h.catalog.ValidateConfig(node.Type, merged); err != nil {
			return badRequest(c, err.Error())
		}

		session.Store().UpdateParameter(nodeID, req.Name, req.Value)
	case "tool_config":
		session.Store().UpdateToolConfig(nodeID, req.Name, req.Value)
	}

	node, _ = session.Store().NodeByID(nodeID)

	return c.JSON(node)
}

// UpdateNodeMode switches a node between normal and tool mode. Entering tool
// mode strips every edge touching the node.
func (h *APIHandlers) UpdateNodeMode(c fiber.Ctx) error {
	session, err := h.session(c)
	if err != nil {
		return handleServiceError(c, err)
	}

	nodeID := c.Params("nodeId")

	node, ok := session.Store().NodeByID(nodeID)
	if !ok {
		return notFound(c, "Node not found")
	}

	var req UpdateNodeModeRequest
	if err := c.Bind().JSON(&req); err != nil {
		return badRequest(c, "Invalid JSON format")
	}

	if err := h.validator.Struct(req); err != nil {
		return badRequest(c, err.Error())
	}

	mode := models.NodeMode(req.Mode)
	if mode == models.NodeModeTool {
		spec, ok := h.catalog.ByType(node.Type)
		if !ok || !spec.CanBeTool {
			return badRequest(c, "Node type cannot be used as a tool")
		}
	}

	session.Store().UpdateMode(nodeID, mode)

	node, _ = session.Store().NodeByID(nodeID)

	return c.JSON(node)
}

func (h *APIHandlers) DeleteEdge(c fiber.Ctx) error {
	session, err := h.session(c)
	if err != nil {
		return handleServiceError(c, err)
	}

	if !session.Store().RemoveEdge(c.Params("edgeId")) {
		return notFound(c, "Edge not found")
	}

	return c.SendStatus(fiber.StatusNoContent)
}

// RemoveSelection deletes a canvas selection. Edges touching deleted nodes go
// with them.
func (h *APIHandlers) RemoveSelection(c fiber.Ctx) error {
	session, err := h.session(c)
	if err != nil {
		return handleServiceError(c, err)
	}

	var req RemoveSelectionRequest
	if err := c.Bind().JSON(&req); err != nil {
		return badRequest(c, "Invalid JSON format")
	}

	session.Store().RemoveSelection(req.NodeIDs, req.EdgeIDs)

	return c.JSON(graphResponse(session))
}

// SubmitExecution saves the session and submits its graph for execution,
// returning the task id clients stream events for.
func (h *APIHandlers) SubmitExecution(c fiber.Ctx) error {
	session, err := h.session(c)
	if err != nil {
		return handleServiceError(c, err)
	}

	if err := session.Save(c.Context()); err != nil {
		return handleServiceError(c, err)
	}

	taskID, err := h.executionService.Submit(c.Context(), session, &logListener{logger: h.logger})
	if err != nil {
		return handleServiceError(c, err)
	}

	return c.Status(fiber.StatusAccepted).JSON(SubmitExecutionResponse{TaskID: taskID})
}

// StreamExecution forwards a run's events to the client as line-delimited
// JSON, terminated by the end-of-stream sentinel.
func (h *APIHandlers) StreamExecution(c fiber.Ctx) error {
	taskID := c.Params("taskId")
	if taskID == "" {
		return badRequest(c, "Task ID is required")
	}

	delivery := make(chan events.StreamEvent, 64)

	unsubscribe, err := h.bus.Subscribe(context.Background(), func(_ context.Context, tid string, event events.StreamEvent) error {
		if tid != taskID {
			return nil
		}

		select {
		case delivery <- event:
		default:
			h.logger.Warn("Dropping stream event, client too slow", "task_id", taskID)
		}

		return nil
	})
	if err != nil {
		return internalError(c, err)
	}

	c.Set(fiber.HeaderContentType, "application/x-ndjson")
	c.Set(fiber.HeaderCacheControl, "no-cache")

	return c.SendStreamWriter(func(w *bufio.Writer) {
		defer unsubscribe()

		streamEvents(w, delivery, streamIdleTimeout)
	})
}

// streamEvents writes run events as line-delimited JSON until a terminal
// event arrives or the stream sits idle past the timeout. The timer rearms on
// every delivery, so a healthy run can outlive the timeout indefinitely.
func streamEvents(w *bufio.Writer, delivery <-chan events.StreamEvent, idleTimeout time.Duration) {
	encoder := json.NewEncoder(w)
	idle := time.NewTimer(idleTimeout)

	defer idle.Stop()

	for {
		select {
		case event := <-delivery:
			if err := encoder.Encode(event); err != nil {
				return
			}

			if err := w.Flush(); err != nil {
				return
			}

			if event.Event == events.EventEnd || event.Event == events.EventFailed {
				_, _ = w.WriteString(events.EndOfStreamSentinel + "\n")
				_ = w.Flush()

				return
			}

			if !idle.Stop() {
				<-idle.C
			}

			idle.Reset(idleTimeout)

		case <-idle.C:
			_, _ = w.WriteString(events.EndOfStreamSentinel + "\n")
			_ = w.Flush()

			return
		}
	}
}

// session resolves the open builder session for the flow named in the route.
// It never writes to the response; callers map the returned error themselves.
func (h *APIHandlers) session(c fiber.Ctx) (*services.Session, error) {
	id := c.Params("id")
	if id == "" {
		return nil, services.ErrInvalidRequest
	}

	session, ok := h.builder.Session(id)
	if !ok {
		return nil, services.ErrSessionNotFound
	}

	return session, nil
}

func graphResponse(session *services.Session) GraphResponse {
	snapshot := session.Store().Snapshot()

	return GraphResponse{Nodes: snapshot.Nodes, Edges: snapshot.Edges}
}

// logListener records run outcomes server-side; clients observe them through
// the event stream.
type logListener struct {
	logger *slog.Logger
}

func (l *logListener) RunCompleted(message string) {
	l.logger.Info("Run completed", "message", message)
}

func (l *logListener) RunFailed(message string) {
	l.logger.Warn("Run failed", "error", message)
}

func (l *logListener) RunTimedOut() {
	l.logger.Warn("Run timed out")
}

func (l *logListener) ConnectionError(err error) {
	l.logger.Error("Run event stream lost", "error", err)
}
