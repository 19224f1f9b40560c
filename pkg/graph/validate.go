package graph

import "github.com/kanvas-io/kanvas/pkg/models"

// SpecLookup resolves a node type name to its spec.
type SpecLookup func(typeName string) (*models.NodeSpec, bool)

// Candidate is a proposed connection between two node handles.
type Candidate struct {
	Source       string
	Target       string
	SourceHandle *string
	TargetHandle string
}

// Snapshot is a read-only view of the graph the validator decides against.
type Snapshot struct {
	Nodes []*models.GraphNode
	Edges []*models.GraphEdge
}

func (s Snapshot) nodeByID(id string) *models.GraphNode {
	for _, node := range s.Nodes {
		if node.ID == id {
			return node
		}
	}

	return nil
}

// IsValidConnection decides whether the candidate edge is legal against the
// current graph. It is pure: no state is read outside its arguments and
// nothing is mutated, so it can be invoked speculatively for handle
// highlighting without committing anything.
func IsValidConnection(candidate Candidate, snapshot Snapshot, lookup SpecLookup) bool {
	if candidate.Source == candidate.Target {
		return false
	}

	sourceNode := snapshot.nodeByID(candidate.Source)
	targetNode := snapshot.nodeByID(candidate.Target)

	if sourceNode == nil || targetNode == nil {
		return false
	}

	sourceSpec, ok := lookup(sourceNode.Type)
	if !ok {
		return false
	}

	targetSpec, ok := lookup(targetNode.Type)
	if !ok {
		return false
	}

	input := resolveTargetInput(targetSpec, candidate.TargetHandle)
	if input == nil || !input.AcceptsEdges() {
		return false
	}

	sourceType, ok := resolveSourceType(sourceNode, sourceSpec, candidate.SourceHandle)
	if !ok {
		return false
	}

	if !Compatible(sourceType, input.TypeDetail.Type) {
		return false
	}

	if !input.AllowMultipleIncomingEdges && slotOccupied(snapshot, candidate.Target, candidate.TargetHandle) {
		return false
	}

	// A router may fan out to many different targets but at most once per
	// target node, to keep branch semantics unambiguous.
	if sourceType == models.HandleTypeRouter && targetHasRouterEdge(snapshot, candidate.Target, lookup) {
		return false
	}

	return true
}

// resolveTargetInput resolves the wire handle id against the target spec's
// declared inputs by positional index.
func resolveTargetInput(spec *models.NodeSpec, targetHandle string) *models.InputSpec {
	_, index, ok := models.ParseHandleID(targetHandle)
	if !ok {
		return nil
	}

	input, ok := spec.InputAt(index)
	if !ok {
		return nil
	}

	return input
}

// resolveSourceType determines the effective type a source handle emits. A
// nil handle is the tool-mode convention for the single implicit output and
// resolves to output index 0. A tool-mode node always emits a tool signal
// regardless of the output's declared type, which also means a tool-mode
// node is never treated as a router source.
func resolveSourceType(node *models.GraphNode, spec *models.NodeSpec, sourceHandle *string) (models.HandleType, bool) {
	index := 0

	if sourceHandle != nil {
		var ok bool

		_, index, ok = models.ParseHandleID(*sourceHandle)
		if !ok {
			return "", false
		}
	}

	output, ok := spec.OutputAt(index)
	if !ok {
		return "", false
	}

	if node.Data.Mode == models.NodeModeTool {
		return models.HandleTypeTool, true
	}

	return output.TypeDetail.Type, true
}

// slotOccupied reports whether any existing edge already lands on the exact
// (target, targetHandle) pair.
func slotOccupied(snapshot Snapshot, target, targetHandle string) bool {
	for _, edge := range snapshot.Edges {
		if edge.Target == target && edge.TargetHandle == targetHandle {
			return true
		}
	}

	return false
}

// targetHasRouterEdge reports whether any existing edge into the target node
// originates from a router-typed output, on any source node.
func targetHasRouterEdge(snapshot Snapshot, target string, lookup SpecLookup) bool {
	for _, edge := range snapshot.Edges {
		if edge.Target != target {
			continue
		}

		sourceNode := snapshot.nodeByID(edge.Source)
		if sourceNode == nil {
			continue
		}

		spec, ok := lookup(sourceNode.Type)
		if !ok {
			continue
		}

		sourceType, ok := resolveSourceType(sourceNode, spec, edge.SourceHandle)
		if ok && sourceType == models.HandleTypeRouter {
			return true
		}
	}

	return false
}
