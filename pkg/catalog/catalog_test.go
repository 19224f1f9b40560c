package catalog

import (
	"log/slog"
	"testing"

	"github.com/kanvas-io/kanvas/pkg/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestCatalog(t *testing.T) *Catalog {
	t.Helper()

	c, err := NewDefault(slog.Default())
	require.NoError(t, err)

	return c
}

func TestNewDefault_LoadsBuiltins(t *testing.T) {
	c := newTestCatalog(t)

	assert.True(t, c.Ready())

	spec, ok := c.ByType(NodeTypeAgent)
	require.True(t, ok)
	assert.True(t, spec.CanBeTool)
	assert.Equal(t, "prompt", spec.Inputs[0].Name)

	_, ok = c.ByType("No Such Node")
	assert.False(t, ok)
}

func TestCatalog_All_SortedByName(t *testing.T) {
	c := newTestCatalog(t)

	specs := c.All()
	require.NotEmpty(t, specs)

	for i := 1; i < len(specs); i++ {
		assert.Less(t, specs[i-1].Name, specs[i].Name)
	}
}

func TestCatalog_Register_Duplicate(t *testing.T) {
	c := NewCatalog(slog.Default())

	spec := &models.NodeSpec{Name: "Custom"}
	require.NoError(t, c.Register(spec))
	assert.Error(t, c.Register(spec))
}

func TestCatalog_Register_RejectsDuplicateHandleNames(t *testing.T) {
	c := NewCatalog(slog.Default())

	err := c.Register(&models.NodeSpec{
		Name: "Colliding",
		Inputs: []models.InputSpec{
			{Name: "value"},
			{Name: "value"},
		},
	})
	assert.Error(t, err)
}

func TestCatalog_Register_RejectsBadSchema(t *testing.T) {
	c := NewCatalog(slog.Default())

	err := c.Register(&models.NodeSpec{
		Name: "Broken",
		ConfigSchema: map[string]any{
			"type": 12345,
		},
	})
	assert.Error(t, err)
}

func TestCatalog_ValidateConfig(t *testing.T) {
	c := newTestCatalog(t)

	err := c.ValidateConfig(NodeTypeLLMProvider, map[string]any{
		"model_name":  "gpt-4o-mini",
		"temperature": 0.2,
	})
	assert.NoError(t, err)

	err = c.ValidateConfig(NodeTypeLLMProvider, map[string]any{
		"model_name":  "",
		"temperature": 9.5,
	})
	assert.Error(t, err)

	// A spec without a schema accepts anything.
	assert.NoError(t, c.ValidateConfig(NodeTypeTextSource, map[string]any{"whatever": true}))
}

func TestCatalog_Lookup(t *testing.T) {
	c := newTestCatalog(t)

	lookup := c.Lookup()
	spec, ok := lookup(NodeTypeRouter)
	require.True(t, ok)

	for _, out := range spec.Outputs {
		assert.Equal(t, models.HandleTypeRouter, out.TypeDetail.Type)
	}
}
