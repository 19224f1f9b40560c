// Package graph holds the canonical in-memory node/edge state of one builder
// session and the connection validation rules that gate edge creation.
package graph

import (
	"errors"
	"fmt"
	"log/slog"
	"reflect"
	"strings"
	"sync"

	"github.com/google/uuid"
	"github.com/kanvas-io/kanvas/pkg/models"
)

var (
	// ErrSpecNotFound indicates the node type is not in the catalog.
	ErrSpecNotFound = errors.New("node spec not found")

	// ErrSingletonExists indicates the flow already holds a node of a
	// singleton-per-flow type.
	ErrSingletonExists = errors.New("flow already contains a node of this type")

	// ErrInvalidConnection indicates the candidate edge was rejected by the
	// connection validator.
	ErrInvalidConnection = errors.New("connection rejected")
)

// Store owns one flow's node and edge collections. All mutation goes through
// its keyed operations, which preserve the graph invariants: edges exist only
// through the validator's acceptance path, removing a node removes every edge
// touching it, and updates keyed by a missing node id are silent no-ops.
type Store struct {
	logger *slog.Logger
	lookup SpecLookup

	mu    sync.RWMutex
	nodes []*models.GraphNode
	edges []*models.GraphEdge
}

func NewStore(logger *slog.Logger, lookup SpecLookup) *Store {
	return &Store{
		logger: logger,
		lookup: lookup,
	}
}

// Load replaces the store contents with a deserialized flow definition.
func (s *Store) Load(def *models.FlowDefinition) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.nodes = s.nodes[:0]
	s.edges = s.edges[:0]

	if def == nil {
		return
	}

	for _, node := range def.Nodes {
		s.nodes = append(s.nodes, node.Clone())
	}

	for _, edge := range def.Edges {
		s.edges = append(s.edges, edge.Clone())
	}
}

// Snapshot returns a deep copy of the current graph.
func (s *Store) Snapshot() Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.snapshotLocked()
}

func (s *Store) snapshotLocked() Snapshot {
	nodes := make([]*models.GraphNode, 0, len(s.nodes))
	for _, node := range s.nodes {
		nodes = append(nodes, node.Clone())
	}

	edges := make([]*models.GraphEdge, 0, len(s.edges))
	for _, edge := range s.edges {
		edges = append(edges, edge.Clone())
	}

	return Snapshot{Nodes: nodes, Edges: edges}
}

// NodeByID returns a copy of the node, if present.
func (s *Store) NodeByID(id string) (*models.GraphNode, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	node := s.findNode(id)
	if node == nil {
		return nil, false
	}

	return node.Clone(), true
}

// AddNode creates a node of the given type at the given position, seeding its
// value bags from the spec's declared defaults. Dropping a second node of a
// singleton type is rejected.
func (s *Store) AddNode(typeName string, position models.Position) (*models.GraphNode, error) {
	spec, ok := s.lookup(typeName)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrSpecNotFound, typeName)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if spec.Singleton {
		for _, existing := range s.nodes {
			if existing.Type == typeName {
				return nil, fmt.Errorf("%w: %s", ErrSingletonExists, typeName)
			}
		}
	}

	node := &models.GraphNode{
		ID:       newNodeID(typeName),
		Type:     typeName,
		Position: position,
		Data: models.NodeData{
			InputValues:     make(map[string]any, len(spec.Inputs)),
			ParameterValues: make(map[string]any, len(spec.Parameters)),
			OutputValues:    make(map[string]any, len(spec.Outputs)),
			Mode:            models.NodeModeNormal,
			ExecutionStatus: models.ExecutionStatusDraft,
		},
	}

	for _, in := range spec.Inputs {
		node.Data.InputValues[in.Name] = defaultValue(in.TypeDetail)
	}

	for _, param := range spec.Parameters {
		node.Data.ParameterValues[param.Name] = defaultValue(param.TypeDetail)
	}

	for _, out := range spec.Outputs {
		node.Data.OutputValues[out.Name] = defaultValue(out.TypeDetail)
	}

	s.nodes = append(s.nodes, node)

	return node.Clone(), nil
}

// Connect runs the candidate through the connection validator and, on
// acceptance, appends the edge. This is the only path that creates edges.
func (s *Store) Connect(candidate Candidate) (*models.GraphEdge, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !IsValidConnection(candidate, Snapshot{Nodes: s.nodes, Edges: s.edges}, s.lookup) {
		return nil, ErrInvalidConnection
	}

	edge := &models.GraphEdge{
		ID:           "edge-" + uuid.NewString(),
		Source:       candidate.Source,
		Target:       candidate.Target,
		SourceHandle: candidate.SourceHandle,
		TargetHandle: candidate.TargetHandle,
	}

	s.edges = append(s.edges, edge)

	return edge.Clone(), nil
}

// UpdateInput sets one named input value. Returns false when nothing changed,
// either because the node is gone or the value is already equal.
func (s *Store) UpdateInput(nodeID, inputName string, value any) bool {
	return s.updateData(nodeID, func(data *models.NodeData) bool {
		if reflect.DeepEqual(data.InputValues[inputName], value) {
			return false
		}

		if data.InputValues == nil {
			data.InputValues = make(map[string]any)
		}

		data.InputValues[inputName] = value

		return true
	})
}

// UpdateParameter sets one named parameter value.
func (s *Store) UpdateParameter(nodeID, paramName string, value any) bool {
	return s.updateData(nodeID, func(data *models.NodeData) bool {
		if reflect.DeepEqual(data.ParameterValues[paramName], value) {
			return false
		}

		if data.ParameterValues == nil {
			data.ParameterValues = make(map[string]any)
		}

		data.ParameterValues[paramName] = value

		return true
	})
}

// UpdateToolConfig sets one tool-config entry (tool name, description). The
// store does not gate this on the node being in tool mode; callers own that.
func (s *Store) UpdateToolConfig(nodeID, key string, value any) bool {
	return s.updateData(nodeID, func(data *models.NodeData) bool {
		if reflect.DeepEqual(data.ToolConfigs[key], value) {
			return false
		}

		if data.ToolConfigs == nil {
			data.ToolConfigs = make(map[string]any)
		}

		data.ToolConfigs[key] = value

		return true
	})
}

// UpdateMode switches the node's operating mode and, as a follow-up effect,
// strips every edge touching the node. Handle identities are mode-dependent,
// so surviving edges could reference handles that no longer exist; dropping
// them all and letting the user reconnect is the safe action. Switching to
// tool mode on a spec without CanBeTool is a no-op.
func (s *Store) UpdateMode(nodeID string, mode models.NodeMode) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	node := s.findNode(nodeID)
	if node == nil {
		return false
	}

	if node.Data.Mode == mode {
		return false
	}

	if mode == models.NodeModeTool {
		spec, ok := s.lookup(node.Type)
		if !ok || !spec.CanBeTool {
			s.logger.Warn("tool mode refused for node type", "node_id", nodeID, "type", node.Type)

			return false
		}

		if node.Data.ToolConfigs == nil {
			node.Data.ToolConfigs = map[string]any{
				"name":        toolSlug(node.Type),
				"description": spec.Description,
			}
		}
	}

	node.Data.Mode = mode
	s.removeEdgesTouchingLocked(nodeID)

	return true
}

// UpdateExecutionResult records the node's execution result payload. Used by
// the execution correlation layer.
func (s *Store) UpdateExecutionResult(nodeID string, result *string) bool {
	return s.updateData(nodeID, func(data *models.NodeData) bool {
		if reflect.DeepEqual(data.ExecutionResult, result) {
			return false
		}

		data.ExecutionResult = result

		return true
	})
}

// UpdateExecutionStatus records the node's execution lifecycle state.
func (s *Store) UpdateExecutionStatus(nodeID string, status models.ExecutionStatus) bool {
	return s.updateData(nodeID, func(data *models.NodeData) bool {
		if data.ExecutionStatus == status {
			return false
		}

		data.ExecutionStatus = status

		return true
	})
}

// ResetExecutionState puts every node back to draft with no result, ahead of
// a new run.
func (s *Store) ResetExecutionState() {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, node := range s.nodes {
		node.Data.ExecutionResult = nil
		node.Data.ExecutionStatus = models.ExecutionStatusDraft
	}
}

// RemoveEdge deletes one edge by id.
func (s *Store) RemoveEdge(edgeID string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	for i, edge := range s.edges {
		if edge.ID == edgeID {
			s.edges = append(s.edges[:i], s.edges[i+1:]...)

			return true
		}
	}

	return false
}

// RemoveSelection deletes the given nodes and edges. The resulting edge set
// additionally excludes every edge whose source or target is a removed node,
// so no orphaned edge survives.
func (s *Store) RemoveSelection(nodeIDs, edgeIDs []string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	removedNodes := make(map[string]bool, len(nodeIDs))
	for _, id := range nodeIDs {
		removedNodes[id] = true
	}

	removedEdges := make(map[string]bool, len(edgeIDs))
	for _, id := range edgeIDs {
		removedEdges[id] = true
	}

	nodes := s.nodes[:0]

	for _, node := range s.nodes {
		if !removedNodes[node.ID] {
			nodes = append(nodes, node)
		}
	}

	s.nodes = nodes

	edges := s.edges[:0]

	for _, edge := range s.edges {
		if removedEdges[edge.ID] || removedNodes[edge.Source] || removedNodes[edge.Target] {
			continue
		}

		edges = append(edges, edge)
	}

	s.edges = edges
}

// Clear empties the graph.
func (s *Store) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.nodes = s.nodes[:0]
	s.edges = s.edges[:0]
}

func (s *Store) updateData(nodeID string, apply func(*models.NodeData) bool) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	node := s.findNode(nodeID)
	if node == nil {
		// Expected under races between async updates and user deletion.
		return false
	}

	return apply(&node.Data)
}

func (s *Store) findNode(id string) *models.GraphNode {
	for _, node := range s.nodes {
		if node.ID == id {
			return node
		}
	}

	return nil
}

func (s *Store) removeEdgesTouchingLocked(nodeID string) {
	edges := s.edges[:0]

	for _, edge := range s.edges {
		if edge.Touches(nodeID) {
			continue
		}

		edges = append(edges, edge)
	}

	s.edges = edges
}

// newNodeID builds a type-prefixed identifier with a random suffix short
// enough to read on the canvas and long enough that collisions are
// negligible for graphs up to low thousands of nodes.
func newNodeID(typeName string) string {
	return toolSlug(typeName) + "-" + uuid.NewString()[:8]
}

func toolSlug(typeName string) string {
	return strings.ToLower(strings.ReplaceAll(typeName, " ", "-"))
}

func defaultValue(detail models.TypeDetail) any {
	if detail.Default != nil {
		return detail.Default
	}

	return ""
}
