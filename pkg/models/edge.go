package models

// GraphEdge connects a source node's output handle to a target node's input
// handle. SourceHandle is nil only for the single implicit output of a
// tool-mode node, which always maps to output index 0 of the source spec.
type GraphEdge struct {
	ID           string         `json:"id"`
	Source       string         `json:"source"       validate:"required"`
	Target       string         `json:"target"       validate:"required"`
	SourceHandle *string        `json:"sourceHandle"`
	TargetHandle string         `json:"targetHandle" validate:"required"`
	Type         string         `json:"type,omitempty"`
	Data         map[string]any `json:"data,omitempty"`
}

// Touches reports whether the edge references the node as either endpoint.
func (e *GraphEdge) Touches(nodeID string) bool {
	return e.Source == nodeID || e.Target == nodeID
}

// Clone returns a deep copy of the edge.
func (e *GraphEdge) Clone() *GraphEdge {
	if e == nil {
		return nil
	}

	out := *e

	if e.SourceHandle != nil {
		handle := *e.SourceHandle
		out.SourceHandle = &handle
	}

	out.Data = cloneValueMap(e.Data)

	return &out
}
