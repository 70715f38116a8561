package storage

import (
	"context"
	"database/sql"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/pgdialect"

	"github.com/parascope/calcengine/internal/domain/model"
	"github.com/parascope/calcengine/internal/infrastructure/storage/models"
)

func newMockRepo(t *testing.T) (*PostgresGraphRepository, sqlmock.Sqlmock) {
	t.Helper()
	sqldb, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	t.Cleanup(func() { _ = sqldb.Close() })

	db := bun.NewDB(sqldb, pgdialect.New())
	registerModels(db)
	return NewPostgresGraphRepository(db), mock
}

func TestPostgresGraphRepository_FetchSheet_NotFound(t *testing.T) {
	repo, mock := newMockRepo(t)
	sheetID := uuid.New()

	mock.ExpectQuery(`SELECT .* FROM "sheets"`).
		WillReturnError(sql.ErrNoRows)

	_, err := repo.FetchSheet(context.Background(), sheetID)
	assert.ErrorIs(t, err, model.ErrSheetNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresGraphRepository_FetchSheet_WrapsUnexpectedError(t *testing.T) {
	repo, mock := newMockRepo(t)
	sheetID := uuid.New()

	mock.ExpectQuery(`SELECT .* FROM "sheets"`).
		WillReturnError(sql.ErrConnDone)

	_, err := repo.FetchSheet(context.Background(), sheetID)
	require.Error(t, err)
	assert.NotErrorIs(t, err, model.ErrSheetNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSheetFromModel_MapsNodesPortsAndConnections(t *testing.T) {
	sheetID := uuid.New()
	nodeID := uuid.New()

	sm := &models.SheetModel{
		ID:   sheetID,
		Name: "demo",
		Nodes: []*models.NodeModel{
			{
				ID:      nodeID,
				Label:   "Velocity",
				Variant: "input",
				Inputs:  models.JSONBSlice{},
				Outputs: models.JSONBSlice{map[string]interface{}{"key": "value"}},
				Data:    models.JSONBMap{"dataType": "number"},
			},
		},
		Connections: []*models.ConnectionModel{
			{SourceNodeID: nodeID, SourcePort: "value", TargetNodeID: uuid.New(), TargetPort: "a"},
		},
	}

	sheet := sheetFromModel(sm)
	require.Len(t, sheet.Nodes, 1)
	assert.Equal(t, "Velocity", sheet.Nodes[0].Label)
	assert.Equal(t, model.VariantInput, sheet.Nodes[0].Variant)
	require.Len(t, sheet.Nodes[0].Outputs, 1)
	assert.Equal(t, "value", sheet.Nodes[0].Outputs[0].Key)
	assert.Equal(t, "number", sheet.Nodes[0].Data["dataType"])
	require.Len(t, sheet.Connections, 1)
	assert.Equal(t, "value", sheet.Connections[0].SourcePort)
}

func TestSheetFromVersionModel_CarriesSheetID(t *testing.T) {
	sheetID := uuid.New()
	versionID := uuid.New()
	sv := &models.SheetVersionModel{
		VersionID: versionID,
		SheetID:   sheetID,
		Name:      "v1",
	}

	sheet := sheetFromVersionModel(sv)
	assert.Equal(t, sheetID, sheet.ID)
	assert.Equal(t, "v1", sheet.Name)
}
