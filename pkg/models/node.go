package models

import "reflect"

// NodeMode is the operating mode of a node instance.
type NodeMode string

const (
	// NodeModeNormal exposes the node's declared typed inputs and outputs.
	NodeModeNormal NodeMode = "normal"
	// NodeModeTool presents the node as a single callable capability with one
	// implicit output; only specs with CanBeTool may enter this mode.
	NodeModeTool NodeMode = "tool"
)

// ExecutionStatus is the per-node execution lifecycle state.
type ExecutionStatus string

const (
	ExecutionStatusDraft     ExecutionStatus = "draft"
	ExecutionStatusQueued    ExecutionStatus = "queued"
	ExecutionStatusRunning   ExecutionStatus = "running"
	ExecutionStatusCompleted ExecutionStatus = "completed"
	ExecutionStatusFailed    ExecutionStatus = "failed"
	ExecutionStatusSkipped   ExecutionStatus = "skipped"
)

// Position is the node's canvas placement.
type Position struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// NodeData is the per-instance state bag of a graph node.
type NodeData struct {
	InputValues     map[string]any  `json:"input_values"`
	ParameterValues map[string]any  `json:"parameter_values"`
	OutputValues    map[string]any  `json:"output_values"`
	ToolConfigs     map[string]any  `json:"tool_configs,omitempty"`
	Mode            NodeMode        `json:"mode"`
	ExecutionResult *string         `json:"execution_result,omitempty"`
	ExecutionStatus ExecutionStatus `json:"execution_status"`
}

// GraphNode is one node instance on the canvas.
type GraphNode struct {
	ID       string   `json:"id"       validate:"required"`
	Type     string   `json:"type"     validate:"required"`
	Position Position `json:"position"`
	Data     NodeData `json:"data"`
}

// Clone returns a deep copy. The store hands copies outward so callers cannot
// mutate canonical state behind its back.
func (n *GraphNode) Clone() *GraphNode {
	if n == nil {
		return nil
	}

	out := *n
	out.Data.InputValues = cloneValueMap(n.Data.InputValues)
	out.Data.ParameterValues = cloneValueMap(n.Data.ParameterValues)
	out.Data.OutputValues = cloneValueMap(n.Data.OutputValues)
	out.Data.ToolConfigs = cloneValueMap(n.Data.ToolConfigs)

	if n.Data.ExecutionResult != nil {
		result := *n.Data.ExecutionResult
		out.Data.ExecutionResult = &result
	}

	return &out
}

// Equal reports deep value equality. Update operations use it to skip
// replacing a node with an identical one.
func (n *GraphNode) Equal(other *GraphNode) bool {
	if n == nil || other == nil {
		return n == other
	}

	return reflect.DeepEqual(n, other)
}

func cloneValueMap(in map[string]any) map[string]any {
	if in == nil {
		return nil
	}

	out := make(map[string]any, len(in))
	for k, v := range in {
		out[k] = v
	}

	return out
}
