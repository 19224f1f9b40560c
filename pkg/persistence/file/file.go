// Package file provides file-based persistence for flows. Each flow is one
// JSON document under <root>/flows/.
package file

import (
	"context"
	"encoding/json"
	"fmt"
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"sort"
	"strings"

	"github.com/kanvas-io/kanvas/pkg/models"
	"github.com/kanvas-io/kanvas/pkg/persistence"
)

// Persistence implements persistence.Persistence on the local file system.
type Persistence struct {
	root string
}

func NewPersistence(root string) *Persistence {
	return &Persistence{root: strings.Replace(root, "file://", "", 1)}
}

func (p *Persistence) Close(_ context.Context) error {
	return nil
}

func (p *Persistence) HealthCheck(_ context.Context) error {
	if _, err := os.Stat(p.root); os.IsNotExist(err) {
		return os.ErrNotExist
	}

	return nil
}

func (p *Persistence) Flows(ctx context.Context) ([]*models.Flow, error) {
	root := os.DirFS(path.Join(p.root, "flows"))

	jsonFiles, err := fs.Glob(root, "*.json")
	if err != nil {
		return nil, fmt.Errorf("failed to list flow files: %w", err)
	}

	flows := make([]*models.Flow, 0, len(jsonFiles))

	for _, file := range jsonFiles {
		flowID := strings.TrimSuffix(file, ".json")

		flow, err := p.FlowByID(ctx, flowID)
		if err != nil {
			if persistence.IsFlowNotFound(err) {
				continue
			}

			return nil, err
		}

		flows = append(flows, flow)
	}

	sort.Slice(flows, func(i, j int) bool {
		return flows[i].CreatedAt.After(flows[j].CreatedAt)
	})

	return flows, nil
}

func (p *Persistence) FlowByID(_ context.Context, id string) (*models.Flow, error) {
	body, err := os.ReadFile(p.flowPath(id))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, persistence.NewFlowError("FlowByID", id, persistence.ErrFlowNotFound)
		}

		return nil, persistence.NewFlowError("FlowByID", id, err)
	}

	var flow models.Flow

	if err := json.Unmarshal(body, &flow); err != nil {
		return nil, persistence.NewFlowError("FlowByID", id, err)
	}

	return &flow, nil
}

func (p *Persistence) SaveFlow(_ context.Context, flow *models.Flow) error {
	dir := path.Join(p.root, "flows")

	if err := os.MkdirAll(dir, 0o750); err != nil {
		return persistence.NewFlowError("SaveFlow", flow.ID, err)
	}

	body, err := json.MarshalIndent(flow, "", "  ")
	if err != nil {
		return persistence.NewFlowError("SaveFlow", flow.ID, err)
	}

	if err := os.WriteFile(p.flowPath(flow.ID), body, 0o600); err != nil {
		return persistence.NewFlowError("SaveFlow", flow.ID, err)
	}

	return nil
}

func (p *Persistence) DeleteFlow(_ context.Context, id string) error {
	err := os.Remove(p.flowPath(id))
	if err != nil {
		if os.IsNotExist(err) {
			return persistence.NewFlowError("DeleteFlow", id, persistence.ErrFlowNotFound)
		}

		return persistence.NewFlowError("DeleteFlow", id, err)
	}

	return nil
}

func (p *Persistence) flowPath(id string) string {
	return filepath.Clean(path.Join(p.root, "flows", id+".json"))
}
