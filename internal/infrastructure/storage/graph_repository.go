package storage

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/google/uuid"
	"github.com/uptrace/bun"

	"github.com/parascope/calcengine/internal/domain/model"
	"github.com/parascope/calcengine/internal/domain/repository"
	"github.com/parascope/calcengine/internal/infrastructure/storage/models"
)

// Ensure PostgresGraphRepository implements the interface the core depends
// on.
var _ repository.GraphRepository = (*PostgresGraphRepository)(nil)

// PostgresGraphRepository implements repository.GraphRepository against
// the sheets/sheet_nodes/sheet_connections/sheet_versions tables using
// bun. It is read-only: persistence (creating or editing a sheet) is out
// of this module's scope and is owned by whatever authoring surface feeds
// these tables.
type PostgresGraphRepository struct {
	db *bun.DB
}

// NewPostgresGraphRepository builds a PostgresGraphRepository over db.
func NewPostgresGraphRepository(db *bun.DB) *PostgresGraphRepository {
	return &PostgresGraphRepository{db: db}
}

// FetchSheet loads a live sheet by id with its nodes and connections
// eagerly populated.
func (r *PostgresGraphRepository) FetchSheet(ctx context.Context, sheetID uuid.UUID) (*model.Sheet, error) {
	sheet := new(models.SheetModel)
	err := r.db.NewSelect().
		Model(sheet).
		Relation("Nodes").
		Relation("Connections").
		Where("s.id = ?", sheetID).
		Scan(ctx)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, model.ErrSheetNotFound
		}
		return nil, fmt.Errorf("fetch sheet %s: %w", sheetID, err)
	}
	return sheetFromModel(sheet), nil
}

// FetchVersion reconstitutes a sheet from an immutable version snapshot,
// in the same shape FetchSheet returns.
func (r *PostgresGraphRepository) FetchVersion(ctx context.Context, versionID uuid.UUID) (*model.Sheet, error) {
	version := new(models.SheetVersionModel)
	err := r.db.NewSelect().
		Model(version).
		Relation("Nodes").
		Relation("Connections").
		Where("sv.version_id = ?", versionID).
		Scan(ctx)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, model.ErrSheetVersionNotFound
		}
		return nil, fmt.Errorf("fetch sheet version %s: %w", versionID, err)
	}
	return sheetFromVersionModel(version), nil
}

func sheetFromModel(sm *models.SheetModel) *model.Sheet {
	return &model.Sheet{
		ID:               sm.ID,
		Name:             sm.Name,
		Nodes:            nodesFromModel(sm.Nodes),
		Connections:      connectionsFromModel(sm.Connections),
		DefaultVersionID: sm.DefaultVersionID,
	}
}

func sheetFromVersionModel(sv *models.SheetVersionModel) *model.Sheet {
	return &model.Sheet{
		ID:          sv.SheetID,
		Name:        sv.Name,
		Nodes:       nodesFromModel(sv.Nodes),
		Connections: connectionsFromModel(sv.Connections),
	}
}

func nodesFromModel(rows []*models.NodeModel) []*model.Node {
	out := make([]*model.Node, len(rows))
	for i, n := range rows {
		out[i] = &model.Node{
			ID:      n.ID,
			Label:   n.Label,
			Variant: model.NodeVariant(n.Variant),
			Inputs:  portsFromModel(n.Inputs),
			Outputs: portsFromModel(n.Outputs),
			Data:    map[string]interface{}(n.Data),
		}
	}
	return out
}

func portsFromModel(raw models.JSONBSlice) []model.Port {
	out := make([]model.Port, 0, len(raw))
	for _, v := range raw {
		if m, ok := v.(map[string]interface{}); ok {
			if key, ok := m["key"].(string); ok {
				out = append(out, model.Port{Key: key})
			}
		}
	}
	return out
}

func connectionsFromModel(rows []*models.ConnectionModel) []*model.Connection {
	out := make([]*model.Connection, len(rows))
	for i, c := range rows {
		out[i] = &model.Connection{
			SourceNodeID: c.SourceNodeID,
			SourcePort:   c.SourcePort,
			TargetNodeID: c.TargetNodeID,
			TargetPort:   c.TargetPort,
		}
	}
	return out
}
