// Package codec converts builder graph state to and from the persisted
// flow-definition format.
package codec

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"log/slog"

	"github.com/kanvas-io/kanvas/pkg/models"
)

// Codec serializes graphs for persistence and execution submission.
type Codec struct {
	logger *slog.Logger
}

func New(logger *slog.Logger) *Codec {
	return &Codec{logger: logger}
}

// Serialize projects the graph into its persisted form. Node positions, data
// contents, and edge endpoints/handles survive a round trip; decorative
// rendering state is not part of the model and is reapplied by the canvas.
func (c *Codec) Serialize(nodes []*models.GraphNode, edges []*models.GraphEdge) *models.FlowDefinition {
	def := &models.FlowDefinition{
		Nodes: make([]*models.GraphNode, 0, len(nodes)),
		Edges: make([]*models.GraphEdge, 0, len(edges)),
	}

	for _, node := range nodes {
		def.Nodes = append(def.Nodes, node.Clone())
	}

	for _, edge := range edges {
		def.Edges = append(def.Edges, edge.Clone())
	}

	return def
}

// Deserialize accepts a persisted flow definition as a pre-parsed value, a
// JSON string, or raw bytes. Nil and empty inputs yield an empty graph.
// Malformed input is logged and degrades to the empty graph instead of
// failing: a corrupt persisted flow must not take down the builder session.
func (c *Codec) Deserialize(input any) *models.FlowDefinition {
	empty := &models.FlowDefinition{
		Nodes: []*models.GraphNode{},
		Edges: []*models.GraphEdge{},
	}

	switch v := input.(type) {
	case nil:
		return empty

	case *models.FlowDefinition:
		if v == nil {
			return empty
		}

		return c.Serialize(v.Nodes, v.Edges)

	case models.FlowDefinition:
		return c.Serialize(v.Nodes, v.Edges)

	case string:
		if v == "" {
			return empty
		}

		return c.decode([]byte(v), empty)

	case []byte:
		if len(v) == 0 {
			return empty
		}

		return c.decode(v, empty)

	default:
		// Pre-parsed generic JSON (map[string]any) goes through a re-encode.
		data, err := json.Marshal(v)
		if err != nil {
			c.logger.Error("flow definition not encodable, starting empty", "error", err)

			return empty
		}

		return c.decode(data, empty)
	}
}

func (c *Codec) decode(data []byte, empty *models.FlowDefinition) *models.FlowDefinition {
	var def models.FlowDefinition

	if err := json.Unmarshal(data, &def); err != nil {
		c.logger.Error("malformed flow definition, starting empty", "error", err)

		return empty
	}

	if def.Nodes == nil {
		def.Nodes = []*models.GraphNode{}
	}

	if def.Edges == nil {
		def.Edges = []*models.GraphEdge{}
	}

	return &def
}

// Hash returns a stable structural digest of the definition. The autosave
// loop compares digests to detect dirty state without diffing the graph.
func (c *Codec) Hash(def *models.FlowDefinition) string {
	data, err := json.Marshal(def)
	if err != nil {
		c.logger.Error("flow definition not hashable", "error", err)

		return ""
	}

	sum := sha256.Sum256(data)

	return hex.EncodeToString(sum[:])
}
