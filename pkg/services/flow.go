package services

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"

	"github.com/kanvas-io/kanvas/pkg/models"
	"github.com/kanvas-io/kanvas/pkg/persistence"
)

// ErrFlowNotFound is returned when a flow is not found.
var ErrFlowNotFound = persistence.ErrFlowNotFound

// Flow manages flow resources on top of the persistence layer.
type Flow struct {
	persistence persistence.Persistence
	validator   *validator.Validate
}

// NewFlow creates a new flow service.
func NewFlow(p persistence.Persistence) *Flow {
	return &Flow{
		persistence: p,
		validator:   validator.New(),
	}
}

// HealthCheck checks the health of the persistence layer.
func (f *Flow) HealthCheck(ctx context.Context) (string, bool) {
	if f.persistence == nil {
		return "Persistence layer not initialized", false
	}

	err := f.persistence.HealthCheck(ctx)
	if err != nil {
		return "Persistence layer is unhealthy: " + err.Error(), false
	}

	return "Persistence layer is healthy", true
}

// List retrieves all flows, newest first.
func (f *Flow) List(ctx context.Context) ([]*models.Flow, error) {
	flows, err := f.persistence.Flows(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list flows: %w", err)
	}

	return flows, nil
}

// FetchByID retrieves a flow by its ID.
func (f *Flow) FetchByID(ctx context.Context, id string) (*models.Flow, error) {
	flow, err := f.persistence.FlowByID(ctx, id)
	if err != nil {
		return nil, err
	}

	if flow == nil {
		return nil, ErrFlowNotFound
	}

	return flow, nil
}

// Create adds a new flow to the repository.
func (f *Flow) Create(ctx context.Context, flow *models.Flow) (*models.Flow, error) {
	if flow == nil {
		return nil, ErrFlowNil
	}

	if err := f.validate(flow); err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	flow.ID = uuid.New().String()
	flow.CreatedAt = now
	flow.UpdatedAt = now

	if flow.Definition == nil {
		flow.Definition = &models.FlowDefinition{
			Nodes: []*models.GraphNode{},
			Edges: []*models.GraphEdge{},
		}
	}

	err := f.persistence.SaveFlow(ctx, flow)
	if err != nil {
		return nil, fmt.Errorf("failed to create flow: %w", err)
	}

	return flow, nil
}

// Update modifies an existing flow by its ID.
func (f *Flow) Update(ctx context.Context, flowID string, flow *models.Flow) (*models.Flow, error) {
	if flow == nil {
		return nil, ErrFlowNil
	}

	if err := f.validate(flow); err != nil {
		return nil, err
	}

	existing, err := f.persistence.FlowByID(ctx, flowID)
	if err != nil {
		return nil, err
	}

	if existing == nil {
		return nil, ErrFlowNotFound
	}

	flow.ID = flowID
	flow.CreatedAt = existing.CreatedAt
	flow.UpdatedAt = time.Now().UTC()

	err = f.persistence.SaveFlow(ctx, flow)
	if err != nil {
		return nil, fmt.Errorf("failed to update flow: %w", err)
	}

	return flow, nil
}

// SaveDefinition persists a new definition for an existing flow, leaving the
// flow's metadata untouched. Builder sessions save through this path.
func (f *Flow) SaveDefinition(ctx context.Context, flowID string, def *models.FlowDefinition) (*models.Flow, error) {
	existing, err := f.persistence.FlowByID(ctx, flowID)
	if err != nil {
		return nil, err
	}

	if existing == nil {
		return nil, ErrFlowNotFound
	}

	existing.Definition = def
	existing.UpdatedAt = time.Now().UTC()

	err = f.persistence.SaveFlow(ctx, existing)
	if err != nil {
		return nil, fmt.Errorf("failed to save flow definition: %w", err)
	}

	return existing, nil
}

// Delete removes a flow by its ID.
func (f *Flow) Delete(ctx context.Context, flowID string) error {
	existing, err := f.persistence.FlowByID(ctx, flowID)
	if err != nil {
		return err
	}

	if existing == nil {
		return ErrFlowNotFound
	}

	err = f.persistence.DeleteFlow(ctx, flowID)
	if err != nil {
		return fmt.Errorf("failed to delete flow: %w", err)
	}

	return nil
}

func (f *Flow) validate(flow *models.Flow) error {
	if strings.TrimSpace(flow.Name) == "" {
		return ErrFlowNameRequired
	}

	if err := f.validator.StructPartial(flow, "Name"); err != nil {
		return NewValidationError(
			"validateFlow",
			"INVALID_FLOW",
			err.Error(),
			ErrInvalidRequest,
		)
	}

	return nil
}
