package graph

import "github.com/kanvas-io/kanvas/pkg/models"

// compatibility maps each source handle type to the set of target handle
// types it may connect to. Absence means the pairing is rejected.
var compatibility = map[models.HandleType]map[models.HandleType]bool{
	models.HandleTypeString: {
		models.HandleTypeTextField: true,
		models.HandleTypeDynamic:   true,
	},
	models.HandleTypeData: {
		models.HandleTypeTextField: true,
		models.HandleTypeNumber:    true,
		models.HandleTypeBoolean:   true,
		models.HandleTypeFile:      true,
		models.HandleTypeDynamic:   true,
	},
	models.HandleTypeRouter: {
		models.HandleTypeTextField: true,
		models.HandleTypeDynamic:   true,
	},
	models.HandleTypeTool: {
		models.HandleTypeAgentTool: true,
	},
	models.HandleTypeLLMProvider: {
		models.HandleTypeLLMProviderIn: true,
	},
	models.HandleTypeEmbedder: {
		models.HandleTypeEmbedderIn: true,
	},
	models.HandleTypeKnowledge: {
		models.HandleTypeKnowledgeSourceIn: true,
		models.HandleTypeDynamic:           true,
	},
}

// Compatible reports whether an output of type src may feed an input of
// type dst.
func Compatible(src, dst models.HandleType) bool {
	targets, ok := compatibility[src]
	if !ok {
		return false
	}

	return targets[dst]
}
