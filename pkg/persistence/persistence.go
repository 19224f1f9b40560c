// Package persistence abstracts storage of flow resources.
package persistence

import (
	"context"

	"github.com/kanvas-io/kanvas/pkg/models"
)

// Persistence stores flow resources keyed by flow id. A flow's persisted
// definition is exactly the serialization codec's output.
type Persistence interface {
	Flows(ctx context.Context) ([]*models.Flow, error)
	FlowByID(ctx context.Context, id string) (*models.Flow, error)
	SaveFlow(ctx context.Context, flow *models.Flow) error
	DeleteFlow(ctx context.Context, id string) error
	HealthCheck(ctx context.Context) error

	Close(ctx context.Context) error
}
