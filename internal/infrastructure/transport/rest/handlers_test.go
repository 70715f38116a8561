package rest

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/parascope/calcengine/internal/config"
	"github.com/parascope/calcengine/internal/domain/model"
	"github.com/parascope/calcengine/internal/logging"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func testLogger() *logging.Logger {
	return logging.New(config.LoggingConfig{Level: "error", Format: "text"})
}

type fakeGraphRepo struct {
	sheet *model.Sheet
	err   error
}

func (f *fakeGraphRepo) FetchSheet(ctx context.Context, sheetID uuid.UUID) (*model.Sheet, error) {
	return f.sheet, f.err
}

func (f *fakeGraphRepo) FetchVersion(ctx context.Context, versionID uuid.UUID) (*model.Sheet, error) {
	return f.sheet, f.err
}

func TestHandleCalculate_InvalidSheetID_Returns400(t *testing.T) {
	handlers := NewCalculateHandlers(nil, testLogger())
	router := gin.New()
	router.POST("/calculate", handlers.HandleCalculate)

	body, _ := json.Marshal(map[string]interface{}{"sheetId": "not-a-uuid"})
	req := httptest.NewRequest(http.MethodPost, "/calculate", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()

	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestHandleCalculate_InvalidJSON_Returns400(t *testing.T) {
	handlers := NewCalculateHandlers(nil, testLogger())
	router := gin.New()
	router.POST("/calculate", handlers.HandleCalculate)

	req := httptest.NewRequest(http.MethodPost, "/calculate", bytes.NewReader([]byte("{not json")))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()

	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestHandleSweep_InvalidJSON_Returns400(t *testing.T) {
	handlers := NewSweepHandlers(nil, testLogger())
	router := gin.New()
	router.POST("/sweep", handlers.HandleSweep)

	req := httptest.NewRequest(http.MethodPost, "/sweep", bytes.NewReader([]byte("{not json")))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()

	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestHandleEmitScript_InvalidSheetID_Returns400(t *testing.T) {
	handlers := NewScriptHandlers(nil, testLogger())
	router := gin.New()
	router.GET("/sheets/:sheet_id/script", handlers.HandleEmitScript)

	req := httptest.NewRequest(http.MethodGet, "/sheets/not-a-uuid/script", nil)
	rec := httptest.NewRecorder()

	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestHandleEmitScript_SheetNotFound_Returns404(t *testing.T) {
	repo := &fakeGraphRepo{err: model.ErrSheetNotFound}
	handlers := NewScriptHandlers(repo, testLogger())
	router := gin.New()
	router.GET("/sheets/:sheet_id/script", handlers.HandleEmitScript)

	req := httptest.NewRequest(http.MethodGet, "/sheets/"+uuid.New().String()+"/script", nil)
	rec := httptest.NewRecorder()

	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestHandleEmitScript_RendersGeneratedSheet(t *testing.T) {
	constantID := uuid.New()
	outputID := uuid.New()
	sheet := &model.Sheet{
		ID:   uuid.New(),
		Name: "demo",
		Nodes: []*model.Node{
			{ID: constantID, Label: "K", Variant: model.VariantConstant, Outputs: []model.Port{{Key: "value"}}, Data: map[string]interface{}{"value": 1.0}},
			{ID: outputID, Label: "Out", Variant: model.VariantOutput, Inputs: []model.Port{{Key: "value"}}},
		},
		Connections: []*model.Connection{
			{SourceNodeID: constantID, SourcePort: "value", TargetNodeID: outputID, TargetPort: "value"},
		},
	}
	repo := &fakeGraphRepo{sheet: sheet}
	handlers := NewScriptHandlers(repo, testLogger())
	router := gin.New()
	router.GET("/sheets/:sheet_id/script", handlers.HandleEmitScript)

	req := httptest.NewRequest(http.MethodGet, "/sheets/"+sheet.ID.String()+"/script", nil)
	rec := httptest.NewRecorder()

	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	var resp SuccessResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	data, ok := resp.Data.(map[string]interface{})
	require.True(t, ok)
	script, ok := data["script"].(string)
	require.True(t, ok)
	assert.NotEmpty(t, script)
}

func TestHandleHealth_ReturnsOK(t *testing.T) {
	router := gin.New()
	router.GET("/healthz", HandleHealth)

	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestHandleReady_ReportsCheckFailure(t *testing.T) {
	router := gin.New()
	router.GET("/readyz", HandleReady(func(c *gin.Context) error {
		return assert.AnError
	}))

	req := httptest.NewRequest(http.MethodGet, "/readyz", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}
