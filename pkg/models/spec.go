// Package models defines the core domain models for the flow-builder graph.
package models

// HandleType names the wire-level type of a connection point. The connection
// validator's compatibility matrix is keyed by these names.
type HandleType string

// Input handle types.
const (
	HandleTypeTextField         HandleType = "TextFieldInputHandle"
	HandleTypeNumber            HandleType = "NumberInputHandle"
	HandleTypeBoolean           HandleType = "BooleanInputHandle"
	HandleTypeFile              HandleType = "FileInputHandle"
	HandleTypeDynamic           HandleType = "DynamicInputHandle"
	HandleTypeAgentTool         HandleType = "AgentToolInputHandle"
	HandleTypeLLMProviderIn     HandleType = "LLMProviderInputHandle"
	HandleTypeEmbedderIn        HandleType = "EmbeddingProviderInputHandle"
	HandleTypeKnowledgeSourceIn HandleType = "KnowledgeSourceInputHandle"
)

// Output handle types.
const (
	HandleTypeString      HandleType = "StringOutputHandle"
	HandleTypeData        HandleType = "DataOutputHandle"
	HandleTypeTool        HandleType = "ToolOutputHandle"
	HandleTypeRouter      HandleType = "RouterOutputHandle"
	HandleTypeLLMProvider HandleType = "LLMProviderOutputHandle"
	HandleTypeEmbedder    HandleType = "EmbeddingProviderOutputHandle"
	HandleTypeKnowledge   HandleType = "KnowledgeSourceOutputHandle"
)

// TypeDetail is the tagged type descriptor attached to every declared input,
// output, and parameter. Default seeds the node's value bag on creation.
type TypeDetail struct {
	Type    HandleType     `json:"type"              validate:"required"`
	Default any            `json:"default,omitempty"`
	Options map[string]any `json:"options,omitempty"`
}

// InputSpec describes one declared input of a node type.
type InputSpec struct {
	Name        string     `json:"name"        validate:"required"`
	Description string     `json:"description,omitempty"`
	TypeDetail  TypeDetail `json:"type_detail"`
	Required    bool       `json:"required"`

	// AllowIncomingEdges defaults to true when absent.
	AllowIncomingEdges         *bool `json:"allow_incoming_edges,omitempty"`
	AllowMultipleIncomingEdges bool  `json:"allow_multiple_incoming_edges"`

	// EnableAsWholeForTool marks inputs that are subsumed into the node's
	// single callable surface when it operates in tool mode.
	EnableAsWholeForTool bool `json:"enable_as_whole_for_tool"`
}

// AcceptsEdges reports whether edges may terminate on this input.
func (i *InputSpec) AcceptsEdges() bool {
	return i.AllowIncomingEdges == nil || *i.AllowIncomingEdges
}

// OutputSpec describes one declared output of a node type.
type OutputSpec struct {
	Name        string     `json:"name"        validate:"required"`
	Description string     `json:"description,omitempty"`
	TypeDetail  TypeDetail `json:"type_detail"`
}

// ParameterSpec describes a configuration parameter that is set in the node's
// side panel and never participates in connections.
type ParameterSpec struct {
	Name       string     `json:"name"       validate:"required"`
	TypeDetail TypeDetail `json:"type_detail"`
	Required   bool       `json:"required"`
}

// NodeSpec is the immutable schema for a node type. Instances are supplied by
// the catalog and are never mutated by the graph core.
type NodeSpec struct {
	Name        string          `json:"name"        validate:"required"`
	Description string          `json:"description"`
	Inputs      []InputSpec     `json:"inputs"`
	Outputs     []OutputSpec    `json:"outputs"`
	Parameters  []ParameterSpec `json:"parameters,omitempty"`

	// CanBeTool declares whether nodes of this type may switch to tool mode.
	CanBeTool bool `json:"can_be_tool"`

	// Singleton restricts the flow to at most one node of this type
	// (chat input / chat output role nodes).
	Singleton bool `json:"singleton"`

	// ConfigSchema optionally carries a JSON Schema that parameter payloads
	// are validated against when the spec is registered.
	ConfigSchema map[string]any `json:"config_schema,omitempty"`
}

// InputAt returns the input at the given positional index.
func (s *NodeSpec) InputAt(index int) (*InputSpec, bool) {
	if index < 0 || index >= len(s.Inputs) {
		return nil, false
	}

	return &s.Inputs[index], true
}

// OutputAt returns the output at the given positional index.
func (s *NodeSpec) OutputAt(index int) (*OutputSpec, bool) {
	if index < 0 || index >= len(s.Outputs) {
		return nil, false
	}

	return &s.Outputs[index], true
}
