package services

import (
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kanvas-io/kanvas/pkg/catalog"
	"github.com/kanvas-io/kanvas/pkg/codec"
	"github.com/kanvas-io/kanvas/pkg/models"
)

func newBuilder(t *testing.T) (*Builder, *Flow) {
	t.Helper()

	flows := newFlowService(t)

	cat, err := catalog.NewDefault(slog.Default())
	require.NoError(t, err)

	builder := NewBuilder(slog.Default(), flows, cat, codec.New(slog.Default()), time.Hour)

	return builder, flows
}

func TestBuilder_OpenLoadsDefinition(t *testing.T) {
	builder, flows := newBuilder(t)

	flow, err := flows.Create(t.Context(), &models.Flow{Name: "Support Bot"})
	require.NoError(t, err)

	_, err = flows.SaveDefinition(t.Context(), flow.ID, &models.FlowDefinition{
		Nodes: []*models.GraphNode{{ID: "agent-1", Type: catalog.NodeTypeAgent}},
		Edges: []*models.GraphEdge{},
	})
	require.NoError(t, err)

	session, err := builder.Open(t.Context(), flow.ID)
	require.NoError(t, err)

	defer func() { require.NoError(t, builder.Close(t.Context(), flow.ID)) }()

	snapshot := session.Store().Snapshot()
	require.Len(t, snapshot.Nodes, 1)
	assert.Equal(t, "agent-1", snapshot.Nodes[0].ID)
	assert.False(t, session.Dirty())
}

func TestBuilder_OpenTwiceConflicts(t *testing.T) {
	builder, flows := newBuilder(t)

	flow, err := flows.Create(t.Context(), &models.Flow{Name: "Support Bot"})
	require.NoError(t, err)

	_, err = builder.Open(t.Context(), flow.ID)
	require.NoError(t, err)

	_, err = builder.Open(t.Context(), flow.ID)
	assert.ErrorIs(t, err, ErrSessionBusy)
	assert.True(t, IsConflictError(err))
}

func TestBuilder_OpenMissingFlow(t *testing.T) {
	builder, _ := newBuilder(t)

	_, err := builder.Open(t.Context(), "missing")
	assert.ErrorIs(t, err, ErrFlowNotFound)
}

func TestSession_SavePersistsChanges(t *testing.T) {
	builder, flows := newBuilder(t)

	flow, err := flows.Create(t.Context(), &models.Flow{Name: "Support Bot"})
	require.NoError(t, err)

	session, err := builder.Open(t.Context(), flow.ID)
	require.NoError(t, err)

	_, err = session.Store().AddNode(catalog.NodeTypeAgent, models.Position{X: 10, Y: 20})
	require.NoError(t, err)
	assert.True(t, session.Dirty())

	require.NoError(t, session.Save(t.Context()))
	assert.False(t, session.Dirty())

	fetched, err := flows.FetchByID(t.Context(), flow.ID)
	require.NoError(t, err)
	require.NotNil(t, fetched.Definition)
	assert.Len(t, fetched.Definition.Nodes, 1)
}

func TestSession_SaveCleanIsNoop(t *testing.T) {
	builder, flows := newBuilder(t)

	flow, err := flows.Create(t.Context(), &models.Flow{Name: "Support Bot"})
	require.NoError(t, err)

	session, err := builder.Open(t.Context(), flow.ID)
	require.NoError(t, err)

	before, err := flows.FetchByID(t.Context(), flow.ID)
	require.NoError(t, err)

	require.NoError(t, session.Save(t.Context()))

	after, err := flows.FetchByID(t.Context(), flow.ID)
	require.NoError(t, err)
	assert.Equal(t, before.UpdatedAt, after.UpdatedAt)
}

func TestBuilder_CloseSavesAndRemoves(t *testing.T) {
	builder, flows := newBuilder(t)

	flow, err := flows.Create(t.Context(), &models.Flow{Name: "Support Bot"})
	require.NoError(t, err)

	session, err := builder.Open(t.Context(), flow.ID)
	require.NoError(t, err)

	_, err = session.Store().AddNode(catalog.NodeTypeTextSource, models.Position{})
	require.NoError(t, err)

	require.NoError(t, builder.Close(t.Context(), flow.ID))

	_, ok := builder.Session(flow.ID)
	assert.False(t, ok)

	fetched, err := flows.FetchByID(t.Context(), flow.ID)
	require.NoError(t, err)
	assert.Len(t, fetched.Definition.Nodes, 1)

	// Closed sessions can be reopened.
	_, err = builder.Open(t.Context(), flow.ID)
	require.NoError(t, err)
}

func TestBuilder_CloseUnknownSession(t *testing.T) {
	builder, _ := newBuilder(t)

	assert.ErrorIs(t, builder.Close(t.Context(), "missing"), ErrSessionNotFound)
}

func TestBuilder_CloseAll(t *testing.T) {
	builder, flows := newBuilder(t)

	first, err := flows.Create(t.Context(), &models.Flow{Name: "First Flow"})
	require.NoError(t, err)
	second, err := flows.Create(t.Context(), &models.Flow{Name: "Second Flow"})
	require.NoError(t, err)

	_, err = builder.Open(t.Context(), first.ID)
	require.NoError(t, err)
	_, err = builder.Open(t.Context(), second.ID)
	require.NoError(t, err)

	builder.CloseAll(t.Context())

	_, ok := builder.Session(first.ID)
	assert.False(t, ok)
	_, ok = builder.Session(second.ID)
	assert.False(t, ok)
}
