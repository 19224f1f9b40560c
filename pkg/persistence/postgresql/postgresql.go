// Package postgresql provides PostgreSQL persistence for flows. The flow
// definition is stored as a JSONB column.
package postgresql

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	// Registers the postgres driver.
	_ "github.com/lib/pq"

	"github.com/kanvas-io/kanvas/pkg/models"
	"github.com/kanvas-io/kanvas/pkg/persistence"
)

const schema = `
CREATE TABLE IF NOT EXISTS flows (
	id          TEXT PRIMARY KEY,
	name        TEXT NOT NULL,
	description TEXT NOT NULL DEFAULT '',
	owner       TEXT NOT NULL DEFAULT '',
	definition  JSONB,
	created_at  TIMESTAMPTZ NOT NULL,
	updated_at  TIMESTAMPTZ NOT NULL
)`

// Persistence implements persistence.Persistence on PostgreSQL.
type Persistence struct {
	db     *sql.DB
	logger *slog.Logger
}

func NewPersistence(ctx context.Context, logger *slog.Logger, databaseURL string) (*Persistence, error) {
	database, err := sql.Open("postgres", databaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to PostgreSQL database: %w", err)
	}

	if err := database.PingContext(ctx); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	if _, err := database.ExecContext(ctx, schema); err != nil {
		return nil, fmt.Errorf("failed to create flows table: %w", err)
	}

	return &Persistence{db: database, logger: logger}, nil
}

func (p *Persistence) Close(_ context.Context) error {
	if p.db == nil {
		return nil
	}

	if err := p.db.Close(); err != nil {
		return fmt.Errorf("failed to close database connection: %w", err)
	}

	return nil
}

func (p *Persistence) HealthCheck(ctx context.Context) error {
	if err := p.db.PingContext(ctx); err != nil {
		return fmt.Errorf("failed to ping database: %w", err)
	}

	return nil
}

func (p *Persistence) Flows(ctx context.Context) ([]*models.Flow, error) {
	query := `
		SELECT id, name, description, owner, definition, created_at, updated_at
		FROM flows
		ORDER BY created_at DESC
	`

	rows, err := p.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to query flows: %w", err)
	}

	defer func() {
		if err := rows.Close(); err != nil {
			p.logger.ErrorContext(ctx, "failed to close rows", "error", err)
		}
	}()

	flows := make([]*models.Flow, 0)

	for rows.Next() {
		flow, err := scanFlow(rows)
		if err != nil {
			return nil, err
		}

		flows = append(flows, flow)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate flows: %w", err)
	}

	return flows, nil
}

func (p *Persistence) FlowByID(ctx context.Context, id string) (*models.Flow, error) {
	query := `
		SELECT id, name, description, owner, definition, created_at, updated_at
		FROM flows
		WHERE id = $1
	`

	flow, err := scanFlow(p.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, persistence.NewFlowError("FlowByID", id, persistence.ErrFlowNotFound)
		}

		return nil, persistence.NewFlowError("FlowByID", id, err)
	}

	return flow, nil
}

func (p *Persistence) SaveFlow(ctx context.Context, flow *models.Flow) error {
	var definition []byte

	if flow.Definition != nil {
		var err error

		definition, err = json.Marshal(flow.Definition)
		if err != nil {
			return persistence.NewFlowError("SaveFlow", flow.ID, err)
		}
	}

	query := `
		INSERT INTO flows (id, name, description, owner, definition, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (id) DO UPDATE SET
			name = EXCLUDED.name,
			description = EXCLUDED.description,
			owner = EXCLUDED.owner,
			definition = EXCLUDED.definition,
			updated_at = EXCLUDED.updated_at
	`

	_, err := p.db.ExecContext(ctx, query,
		flow.ID, flow.Name, flow.Description, flow.Owner, definition, flow.CreatedAt, flow.UpdatedAt)
	if err != nil {
		return persistence.NewFlowError("SaveFlow", flow.ID, err)
	}

	return nil
}

func (p *Persistence) DeleteFlow(ctx context.Context, id string) error {
	result, err := p.db.ExecContext(ctx, `DELETE FROM flows WHERE id = $1`, id)
	if err != nil {
		return persistence.NewFlowError("DeleteFlow", id, err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return persistence.NewFlowError("DeleteFlow", id, err)
	}

	if affected == 0 {
		return persistence.NewFlowError("DeleteFlow", id, persistence.ErrFlowNotFound)
	}

	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanFlow(row rowScanner) (*models.Flow, error) {
	var (
		flow       models.Flow
		definition []byte
	)

	err := row.Scan(&flow.ID, &flow.Name, &flow.Description, &flow.Owner,
		&definition, &flow.CreatedAt, &flow.UpdatedAt)
	if err != nil {
		return nil, err
	}

	if len(definition) > 0 {
		if err := json.Unmarshal(definition, &flow.Definition); err != nil {
			return nil, fmt.Errorf("failed to decode flow definition: %w", err)
		}
	}

	return &flow, nil
}
