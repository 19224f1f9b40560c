package models

import "time"

// FlowDefinition is the persisted representation of the node/edge graph,
// exactly as produced by the serialization codec.
type FlowDefinition struct {
	Nodes []*GraphNode `json:"nodes"`
	Edges []*GraphEdge `json:"edges"`
}

// Flow is the backend flow resource a builder session edits.
type Flow struct {
	ID          string          `json:"id"`
	Name        string          `json:"name"                      validate:"required,min=3"`
	Description string          `json:"description"`
	Definition  *FlowDefinition `json:"flow_definition,omitempty"`
	Owner       string          `json:"owner"`
	CreatedAt   time.Time       `json:"created_at"`
	UpdatedAt   time.Time       `json:"updated_at"`
}
