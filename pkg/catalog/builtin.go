package catalog

import (
	"log/slog"

	"github.com/kanvas-io/kanvas/pkg/models"
)

// Built-in node type names.
const (
	NodeTypeChatInput          = "Chat Input"
	NodeTypeChatOutput         = "Chat Output"
	NodeTypeAgent              = "Agent"
	NodeTypePromptTemplate     = "Prompt Template"
	NodeTypeTextSource         = "Text Source"
	NodeTypeRouter             = "Router"
	NodeTypeLLMProvider        = "LLM Provider"
	NodeTypeEmbeddingProvider  = "Embedding Provider"
	NodeTypeKnowledgeRetrieval = "Knowledge Retrieval"
	NodeTypeHTTPTool           = "HTTP Tool"
)

// NewDefault builds a catalog pre-loaded with the built-in node set and marks
// it ready.
func NewDefault(logger *slog.Logger) (*Catalog, error) {
	c := NewCatalog(logger)

	for _, spec := range builtinSpecs() {
		if err := c.Register(spec); err != nil {
			return nil, err
		}
	}

	c.MarkReady()

	return c, nil
}

func builtinSpecs() []*models.NodeSpec {
	noEdges := false

	return []*models.NodeSpec{
		{
			Name:        NodeTypeChatInput,
			Description: "Entry point for user chat messages",
			Singleton:   true,
			Inputs: []models.InputSpec{
				{
					Name:               "message",
					TypeDetail:         models.TypeDetail{Type: models.HandleTypeTextField, Default: ""},
					AllowIncomingEdges: &noEdges,
				},
			},
			Outputs: []models.OutputSpec{
				{Name: "message", TypeDetail: models.TypeDetail{Type: models.HandleTypeString}},
			},
		},
		{
			Name:        NodeTypeChatOutput,
			Description: "Terminal node whose completion ends a playground run",
			Singleton:   true,
			Inputs: []models.InputSpec{
				{
					Name:       "message",
					TypeDetail: models.TypeDetail{Type: models.HandleTypeTextField, Default: ""},
					Required:   true,
				},
			},
		},
		{
			Name:        NodeTypeAgent,
			Description: "LLM agent with tool calling",
			CanBeTool:   true,
			Inputs: []models.InputSpec{
				{
					Name:                 "prompt",
					TypeDetail:           models.TypeDetail{Type: models.HandleTypeTextField, Default: ""},
					Required:             true,
					EnableAsWholeForTool: true,
				},
				{
					Name:                       "tools",
					TypeDetail:                 models.TypeDetail{Type: models.HandleTypeAgentTool},
					AllowMultipleIncomingEdges: true,
				},
				{
					Name:       "model",
					TypeDetail: models.TypeDetail{Type: models.HandleTypeLLMProviderIn},
				},
			},
			Outputs: []models.OutputSpec{
				{Name: "response", TypeDetail: models.TypeDetail{Type: models.HandleTypeString}},
			},
			Parameters: []models.ParameterSpec{
				{Name: "system_message", TypeDetail: models.TypeDetail{Type: models.HandleTypeTextField, Default: "You are a helpful assistant."}},
				{Name: "max_iterations", TypeDetail: models.TypeDetail{Type: models.HandleTypeNumber, Default: 10}},
			},
			ConfigSchema: map[string]any{
				"type": "object",
				"properties": map[string]any{
					"system_message": map[string]any{"type": "string"},
					"max_iterations": map[string]any{"type": "number", "minimum": 1},
				},
			},
		},
		{
			Name:        NodeTypePromptTemplate,
			Description: "Renders a template with incoming variables",
			CanBeTool:   true,
			Inputs: []models.InputSpec{
				{
					Name:       "template",
					TypeDetail: models.TypeDetail{Type: models.HandleTypeTextField, Default: "{input}"},
					Required:   true,
				},
				{
					Name:                       "variables",
					TypeDetail:                 models.TypeDetail{Type: models.HandleTypeDynamic},
					AllowMultipleIncomingEdges: true,
				},
			},
			Outputs: []models.OutputSpec{
				{Name: "prompt", TypeDetail: models.TypeDetail{Type: models.HandleTypeString}},
			},
		},
		{
			Name:        NodeTypeTextSource,
			Description: "Static text value",
			Inputs: []models.InputSpec{
				{
					Name:               "text",
					TypeDetail:         models.TypeDetail{Type: models.HandleTypeTextField, Default: ""},
					AllowIncomingEdges: &noEdges,
				},
			},
			Outputs: []models.OutputSpec{
				{Name: "text", TypeDetail: models.TypeDetail{Type: models.HandleTypeString}},
			},
		},
		{
			Name:        NodeTypeRouter,
			Description: "Routes its input to one of several branches",
			Inputs: []models.InputSpec{
				{
					Name:       "input",
					TypeDetail: models.TypeDetail{Type: models.HandleTypeTextField},
					Required:   true,
				},
			},
			Outputs: []models.OutputSpec{
				{Name: "branch-a", TypeDetail: models.TypeDetail{Type: models.HandleTypeRouter}},
				{Name: "branch-b", TypeDetail: models.TypeDetail{Type: models.HandleTypeRouter}},
				{Name: "fallback", TypeDetail: models.TypeDetail{Type: models.HandleTypeRouter}},
			},
		},
		{
			Name:        NodeTypeLLMProvider,
			Description: "Chat model configuration",
			Outputs: []models.OutputSpec{
				{Name: "model", TypeDetail: models.TypeDetail{Type: models.HandleTypeLLMProvider}},
			},
			Parameters: []models.ParameterSpec{
				{Name: "model_name", TypeDetail: models.TypeDetail{Type: models.HandleTypeTextField, Default: "gpt-4o-mini"}, Required: true},
				{Name: "temperature", TypeDetail: models.TypeDetail{Type: models.HandleTypeNumber, Default: 0.7}},
			},
			ConfigSchema: map[string]any{
				"type":     "object",
				"required": []any{"model_name"},
				"properties": map[string]any{
					"model_name":  map[string]any{"type": "string", "minLength": 1},
					"temperature": map[string]any{"type": "number", "minimum": 0, "maximum": 2},
				},
			},
		},
		{
			Name:        NodeTypeEmbeddingProvider,
			Description: "Embedding model configuration",
			Outputs: []models.OutputSpec{
				{Name: "embeddings", TypeDetail: models.TypeDetail{Type: models.HandleTypeEmbedder}},
			},
			Parameters: []models.ParameterSpec{
				{Name: "model_name", TypeDetail: models.TypeDetail{Type: models.HandleTypeTextField, Default: "text-embedding-3-small"}, Required: true},
			},
		},
		{
			Name:        NodeTypeKnowledgeRetrieval,
			Description: "Semantic search over an indexed knowledge source",
			CanBeTool:   true,
			Inputs: []models.InputSpec{
				{
					Name:                 "query",
					TypeDetail:           models.TypeDetail{Type: models.HandleTypeTextField, Default: ""},
					Required:             true,
					EnableAsWholeForTool: true,
				},
				{
					Name:       "embeddings",
					TypeDetail: models.TypeDetail{Type: models.HandleTypeEmbedderIn},
				},
			},
			Outputs: []models.OutputSpec{
				{Name: "documents", TypeDetail: models.TypeDetail{Type: models.HandleTypeData}},
			},
		},
		{
			Name:        NodeTypeHTTPTool,
			Description: "Calls an HTTP endpoint",
			CanBeTool:   true,
			Inputs: []models.InputSpec{
				{
					Name:                 "body",
					TypeDetail:           models.TypeDetail{Type: models.HandleTypeTextField, Default: ""},
					EnableAsWholeForTool: true,
				},
			},
			Outputs: []models.OutputSpec{
				{Name: "response", TypeDetail: models.TypeDetail{Type: models.HandleTypeData}},
			},
			Parameters: []models.ParameterSpec{
				{Name: "url", TypeDetail: models.TypeDetail{Type: models.HandleTypeTextField, Default: ""}, Required: true},
				{Name: "method", TypeDetail: models.TypeDetail{Type: models.HandleTypeTextField, Default: "GET"}},
			},
			ConfigSchema: map[string]any{
				"type":     "object",
				"required": []any{"url"},
				"properties": map[string]any{
					"url":    map[string]any{"type": "string", "minLength": 1},
					"method": map[string]any{"type": "string", "enum": []any{"GET", "POST", "PUT", "PATCH", "DELETE"}},
				},
			},
		},
	}
}
