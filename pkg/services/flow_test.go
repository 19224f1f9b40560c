package services

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kanvas-io/kanvas/pkg/models"
	"github.com/kanvas-io/kanvas/pkg/persistence/file"
)

func newFlowService(t *testing.T) *Flow {
	t.Helper()

	return NewFlow(file.NewPersistence(t.TempDir()))
}

func TestFlow_Create(t *testing.T) {
	service := newFlowService(t)

	created, err := service.Create(t.Context(), &models.Flow{
		Name:        "Support Bot",
		Description: "Answers support questions",
	})
	require.NoError(t, err)
	require.NotNil(t, created)

	assert.NotEmpty(t, created.ID)
	assert.False(t, created.CreatedAt.IsZero())
	assert.False(t, created.UpdatedAt.IsZero())
	require.NotNil(t, created.Definition)
	assert.Empty(t, created.Definition.Nodes)
	assert.Empty(t, created.Definition.Edges)
}

func TestFlow_CreateValidation(t *testing.T) {
	service := newFlowService(t)

	_, err := service.Create(t.Context(), &models.Flow{Name: "   "})
	assert.ErrorIs(t, err, ErrFlowNameRequired)
	assert.True(t, IsValidationError(err))

	_, err = service.Create(t.Context(), &models.Flow{Name: "ab"})
	assert.True(t, IsValidationError(err))

	_, err = service.Create(t.Context(), nil)
	assert.ErrorIs(t, err, ErrFlowNil)
}

func TestFlow_FetchByID(t *testing.T) {
	service := newFlowService(t)

	created, err := service.Create(t.Context(), &models.Flow{Name: "Support Bot"})
	require.NoError(t, err)

	fetched, err := service.FetchByID(t.Context(), created.ID)
	require.NoError(t, err)
	assert.Equal(t, created.ID, fetched.ID)
	assert.Equal(t, "Support Bot", fetched.Name)

	_, err = service.FetchByID(t.Context(), "missing")
	assert.ErrorIs(t, err, ErrFlowNotFound)
}

func TestFlow_Update(t *testing.T) {
	service := newFlowService(t)

	created, err := service.Create(t.Context(), &models.Flow{Name: "Support Bot"})
	require.NoError(t, err)

	updated, err := service.Update(t.Context(), created.ID, &models.Flow{
		Name:        "Support Bot v2",
		Description: "Updated",
	})
	require.NoError(t, err)
	assert.Equal(t, created.ID, updated.ID)
	assert.Equal(t, created.CreatedAt, updated.CreatedAt)
	assert.Equal(t, "Support Bot v2", updated.Name)

	_, err = service.Update(t.Context(), "missing", &models.Flow{Name: "Nope Flow"})
	assert.ErrorIs(t, err, ErrFlowNotFound)
}

func TestFlow_SaveDefinition(t *testing.T) {
	service := newFlowService(t)

	created, err := service.Create(t.Context(), &models.Flow{Name: "Support Bot"})
	require.NoError(t, err)

	def := &models.FlowDefinition{
		Nodes: []*models.GraphNode{{ID: "agent-1", Type: "Agent"}},
		Edges: []*models.GraphEdge{},
	}

	saved, err := service.SaveDefinition(t.Context(), created.ID, def)
	require.NoError(t, err)
	assert.Equal(t, "Support Bot", saved.Name)
	require.Len(t, saved.Definition.Nodes, 1)

	fetched, err := service.FetchByID(t.Context(), created.ID)
	require.NoError(t, err)
	require.Len(t, fetched.Definition.Nodes, 1)
	assert.Equal(t, "agent-1", fetched.Definition.Nodes[0].ID)
}

func TestFlow_Delete(t *testing.T) {
	service := newFlowService(t)

	created, err := service.Create(t.Context(), &models.Flow{Name: "Support Bot"})
	require.NoError(t, err)

	require.NoError(t, service.Delete(t.Context(), created.ID))

	_, err = service.FetchByID(t.Context(), created.ID)
	assert.ErrorIs(t, err, ErrFlowNotFound)

	assert.ErrorIs(t, service.Delete(t.Context(), created.ID), ErrFlowNotFound)
}

func TestFlow_List(t *testing.T) {
	service := newFlowService(t)

	_, err := service.Create(t.Context(), &models.Flow{Name: "First Flow"})
	require.NoError(t, err)
	_, err = service.Create(t.Context(), &models.Flow{Name: "Second Flow"})
	require.NoError(t, err)

	flows, err := service.List(t.Context())
	require.NoError(t, err)
	assert.Len(t, flows, 2)
}

func TestFlow_HealthCheck(t *testing.T) {
	service := newFlowService(t)

	msg, ok := service.HealthCheck(t.Context())
	assert.True(t, ok)
	assert.NotEmpty(t, msg)

	msg, ok = NewFlow(nil).HealthCheck(t.Context())
	assert.False(t, ok)
	assert.NotEmpty(t, msg)
}
