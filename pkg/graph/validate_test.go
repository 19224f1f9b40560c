package graph

import (
	"log/slog"
	"testing"

	"github.com/kanvas-io/kanvas/pkg/catalog"
	"github.com/kanvas-io/kanvas/pkg/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testLookup(t *testing.T) SpecLookup {
	t.Helper()

	c, err := catalog.NewDefault(slog.Default())
	require.NoError(t, err)

	return c.Lookup()
}

func node(id, typeName string, mode models.NodeMode) *models.GraphNode {
	return &models.GraphNode{
		ID:   id,
		Type: typeName,
		Data: models.NodeData{
			Mode:            mode,
			ExecutionStatus: models.ExecutionStatusDraft,
		},
	}
}

func edge(source, sourceHandle, target, targetHandle string) *models.GraphEdge {
	e := &models.GraphEdge{
		ID:           "edge-" + source + "-" + target,
		Source:       source,
		Target:       target,
		TargetHandle: targetHandle,
	}

	if sourceHandle != "" {
		e.SourceHandle = &sourceHandle
	}

	return e
}

func TestIsValidConnection_RejectsSelfLoop(t *testing.T) {
	lookup := testLookup(t)
	snapshot := Snapshot{Nodes: []*models.GraphNode{node("a", catalog.NodeTypeAgent, models.NodeModeNormal)}}

	ok := IsValidConnection(Candidate{
		Source:       "a",
		Target:       "a",
		TargetHandle: "prompt-index:0",
	}, snapshot, lookup)
	assert.False(t, ok)
}

func TestIsValidConnection_MissingNodeOrSpec(t *testing.T) {
	lookup := testLookup(t)
	snapshot := Snapshot{Nodes: []*models.GraphNode{
		node("src", catalog.NodeTypeTextSource, models.NodeModeNormal),
		node("dst", catalog.NodeTypeAgent, models.NodeModeNormal),
		node("ghost", "Unregistered Type", models.NodeModeNormal),
	}}

	handle := "text-index:0"

	assert.False(t, IsValidConnection(Candidate{
		Source: "src", SourceHandle: &handle, Target: "gone", TargetHandle: "prompt-index:0",
	}, snapshot, lookup), "missing target node")

	assert.False(t, IsValidConnection(Candidate{
		Source: "ghost", SourceHandle: &handle, Target: "dst", TargetHandle: "prompt-index:0",
	}, snapshot, lookup), "unresolvable source spec")
}

func TestIsValidConnection_HandleResolution(t *testing.T) {
	lookup := testLookup(t)
	snapshot := Snapshot{Nodes: []*models.GraphNode{
		node("src", catalog.NodeTypeTextSource, models.NodeModeNormal),
		node("dst", catalog.NodeTypeAgent, models.NodeModeNormal),
	}}

	handle := "text-index:0"

	testCases := []struct {
		name         string
		targetHandle string
		want         bool
	}{
		{name: "valid input handle", targetHandle: "prompt-index:0", want: true},
		{name: "garbage handle", targetHandle: "prompt", want: false},
		{name: "index out of range", targetHandle: "prompt-index:9", want: false},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			got := IsValidConnection(Candidate{
				Source: "src", SourceHandle: &handle, Target: "dst", TargetHandle: tc.targetHandle,
			}, snapshot, lookup)
			assert.Equal(t, tc.want, got)
		})
	}

	bad := "text-index:4"
	assert.False(t, IsValidConnection(Candidate{
		Source: "src", SourceHandle: &bad, Target: "dst", TargetHandle: "prompt-index:0",
	}, snapshot, lookup), "source output index out of range")
}

func TestIsValidConnection_NoIncomingEdgesInput(t *testing.T) {
	lookup := testLookup(t)
	snapshot := Snapshot{Nodes: []*models.GraphNode{
		node("src", catalog.NodeTypeTextSource, models.NodeModeNormal),
		node("dst", catalog.NodeTypeChatInput, models.NodeModeNormal),
	}}

	handle := "text-index:0"

	// Chat Input's message field never accepts edges.
	assert.False(t, IsValidConnection(Candidate{
		Source: "src", SourceHandle: &handle, Target: "dst", TargetHandle: "message-index:0",
	}, snapshot, lookup))
}

func TestIsValidConnection_TypeCompatibility(t *testing.T) {
	lookup := testLookup(t)
	snapshot := Snapshot{Nodes: []*models.GraphNode{
		node("llm", catalog.NodeTypeLLMProvider, models.NodeModeNormal),
		node("embed", catalog.NodeTypeEmbeddingProvider, models.NodeModeNormal),
		node("agent", catalog.NodeTypeAgent, models.NodeModeNormal),
		node("retrieval", catalog.NodeTypeKnowledgeRetrieval, models.NodeModeNormal),
	}}

	llmOut := "model-index:0"
	embedOut := "embeddings-index:0"

	// Provider outputs connect only to their matching provider inputs.
	assert.True(t, IsValidConnection(Candidate{
		Source: "llm", SourceHandle: &llmOut, Target: "agent", TargetHandle: "model-index:2",
	}, snapshot, lookup))

	assert.False(t, IsValidConnection(Candidate{
		Source: "embed", SourceHandle: &embedOut, Target: "agent", TargetHandle: "model-index:2",
	}, snapshot, lookup))

	assert.True(t, IsValidConnection(Candidate{
		Source: "embed", SourceHandle: &embedOut, Target: "retrieval", TargetHandle: "embeddings-index:1",
	}, snapshot, lookup))

	// A plain data output cannot feed an agent's tool slot.
	srcOut := "documents-index:0"
	assert.False(t, IsValidConnection(Candidate{
		Source: "retrieval", SourceHandle: &srcOut, Target: "agent", TargetHandle: "tools-index:1",
	}, snapshot, lookup))
}

func TestIsValidConnection_SingleSlotCardinality(t *testing.T) {
	lookup := testLookup(t)
	handle := "text-index:0"

	snapshot := Snapshot{
		Nodes: []*models.GraphNode{
			node("text-1", catalog.NodeTypeTextSource, models.NodeModeNormal),
			node("text-2", catalog.NodeTypeTextSource, models.NodeModeNormal),
			node("agent", catalog.NodeTypeAgent, models.NodeModeNormal),
		},
	}

	first := Candidate{Source: "text-1", SourceHandle: &handle, Target: "agent", TargetHandle: "prompt-index:0"}
	require.True(t, IsValidConnection(first, snapshot, lookup))

	snapshot.Edges = append(snapshot.Edges, edge("text-1", handle, "agent", "prompt-index:0"))

	second := Candidate{Source: "text-2", SourceHandle: &handle, Target: "agent", TargetHandle: "prompt-index:0"}
	assert.False(t, IsValidConnection(second, snapshot, lookup), "occupied single-slot input")
}

func TestIsValidConnection_MultiSlotAllowsFanIn(t *testing.T) {
	lookup := testLookup(t)

	snapshot := Snapshot{
		Nodes: []*models.GraphNode{
			node("tool-1", catalog.NodeTypeHTTPTool, models.NodeModeTool),
			node("tool-2", catalog.NodeTypeKnowledgeRetrieval, models.NodeModeTool),
			node("agent", catalog.NodeTypeAgent, models.NodeModeNormal),
		},
		Edges: []*models.GraphEdge{
			edge("tool-1", "", "agent", "tools-index:1"),
		},
	}

	// The tools input allows multiple incoming edges, so a second tool-mode
	// source into the same pair is accepted.
	assert.True(t, IsValidConnection(Candidate{
		Source: "tool-2", Target: "agent", TargetHandle: "tools-index:1",
	}, snapshot, lookup))
}

func TestIsValidConnection_ToolModeOverridesOutputType(t *testing.T) {
	lookup := testLookup(t)

	snapshot := Snapshot{Nodes: []*models.GraphNode{
		node("helper", catalog.NodeTypeHTTPTool, models.NodeModeTool),
		node("agent", catalog.NodeTypeAgent, models.NodeModeNormal),
	}}

	// In tool mode the implicit output (nil handle) emits a tool signal, so
	// it may feed the agent's tool slot but not a text input.
	assert.True(t, IsValidConnection(Candidate{
		Source: "helper", Target: "agent", TargetHandle: "tools-index:1",
	}, snapshot, lookup))

	assert.False(t, IsValidConnection(Candidate{
		Source: "helper", Target: "agent", TargetHandle: "prompt-index:0",
	}, snapshot, lookup))

	// The same node in normal mode emits its declared type instead.
	snapshot.Nodes[0].Data.Mode = models.NodeModeNormal
	declared := "response-index:0"

	assert.False(t, IsValidConnection(Candidate{
		Source: "helper", SourceHandle: &declared, Target: "agent", TargetHandle: "tools-index:1",
	}, snapshot, lookup))
}

func TestIsValidConnection_RouterOncePerTargetNode(t *testing.T) {
	lookup := testLookup(t)

	snapshot := Snapshot{
		Nodes: []*models.GraphNode{
			node("router", catalog.NodeTypeRouter, models.NodeModeNormal),
			node("router-2", catalog.NodeTypeRouter, models.NodeModeNormal),
			node("prompt-1", catalog.NodeTypePromptTemplate, models.NodeModeNormal),
			node("prompt-2", catalog.NodeTypePromptTemplate, models.NodeModeNormal),
		},
	}

	branchA := "branch-a-index:0"
	branchB := "branch-b-index:1"

	first := Candidate{Source: "router", SourceHandle: &branchA, Target: "prompt-1", TargetHandle: "template-index:0"}
	require.True(t, IsValidConnection(first, snapshot, lookup))

	snapshot.Edges = append(snapshot.Edges, edge("router", branchA, "prompt-1", "template-index:0"))

	// A second router branch into the same target node is rejected, even on a
	// different input that allows multiple edges.
	assert.False(t, IsValidConnection(Candidate{
		Source: "router", SourceHandle: &branchB, Target: "prompt-1", TargetHandle: "variables-index:1",
	}, snapshot, lookup))

	// So is a branch from a different router node.
	assert.False(t, IsValidConnection(Candidate{
		Source: "router-2", SourceHandle: &branchA, Target: "prompt-1", TargetHandle: "variables-index:1",
	}, snapshot, lookup))

	// Fanning out to a different target node stays legal.
	assert.True(t, IsValidConnection(Candidate{
		Source: "router", SourceHandle: &branchB, Target: "prompt-2", TargetHandle: "template-index:0",
	}, snapshot, lookup))
}

func TestIsValidConnection_DoesNotMutateInputs(t *testing.T) {
	lookup := testLookup(t)
	handle := "text-index:0"

	snapshot := Snapshot{
		Nodes: []*models.GraphNode{
			node("src", catalog.NodeTypeTextSource, models.NodeModeNormal),
			node("dst", catalog.NodeTypeAgent, models.NodeModeNormal),
		},
		Edges: []*models.GraphEdge{},
	}

	candidate := Candidate{Source: "src", SourceHandle: &handle, Target: "dst", TargetHandle: "prompt-index:0"}

	for range 3 {
		assert.True(t, IsValidConnection(candidate, snapshot, lookup))
	}

	assert.Len(t, snapshot.Nodes, 2)
	assert.Empty(t, snapshot.Edges)
}
