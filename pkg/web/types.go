// Package web provides HTTP request and response types for the flow builder API.
package web

import "github.com/kanvas-io/kanvas/pkg/models"

// ErrorResponse represents a standardized API error response.
type ErrorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code"`
}

// CreateFlowRequest represents the request body for creating a new flow.
type CreateFlowRequest struct {
	Name        string `json:"name"        validate:"required,min=3"`
	Description string `json:"description"`
	Owner       string `json:"owner"`
}

// UpdateFlowRequest represents the request body for updating an existing flow.
// All fields are optional to support partial updates.
type UpdateFlowRequest struct {
	Name        *string `json:"name,omitempty"        validate:"omitempty,min=3"`
	Description *string `json:"description,omitempty"`
}

// AddNodeRequest represents the request body for dropping a node onto the canvas.
type AddNodeRequest struct {
	Type     string          `json:"type"     validate:"required"`
	Position models.Position `json:"position"`
}

// ConnectRequest represents the request body for drawing an edge. SourceHandle
// is omitted for tool-mode sources.
type ConnectRequest struct {
	Source       string  `json:"source"                 validate:"required"`
	SourceHandle *string `json:"sourceHandle,omitempty"`
	Target       string  `json:"target"                 validate:"required"`
	TargetHandle string  `json:"targetHandle"           validate:"required"`
}

// UpdateNodeFieldRequest represents the request body for editing one value on
// a node's data bag.
type UpdateNodeFieldRequest struct {
	Kind  string `json:"kind"  validate:"required,oneof=input parameter tool_config"`
	Name  string `json:"name"  validate:"required"`
	Value any    `json:"value"`
}

// UpdateNodeModeRequest represents the request body for switching a node
// between normal and tool mode.
type UpdateNodeModeRequest struct {
	Mode string `json:"mode" validate:"required,oneof=normal tool"`
}

// RemoveSelectionRequest represents the request body for deleting a canvas
// selection. Edges touching deleted nodes are removed as well.
type RemoveSelectionRequest struct {
	NodeIDs []string `json:"node_ids"`
	EdgeIDs []string `json:"edge_ids"`
}

// ValidateConnectionResponse reports the outcome of a connection preview.
type ValidateConnectionResponse struct {
	Valid bool `json:"valid"`
}

// SubmitExecutionResponse identifies the run a submission started.
type SubmitExecutionResponse struct {
	TaskID string `json:"task_id"`
}

// GraphResponse is a point-in-time copy of a session's graph.
type GraphResponse struct {
	Nodes []*models.GraphNode `json:"nodes"`
	Edges []*models.GraphEdge `json:"edges"`
}
