package rest

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/parascope/calcengine/internal/app/codegen"
	"github.com/parascope/calcengine/internal/domain/repository"
	"github.com/parascope/calcengine/internal/logging"
)

// ScriptHandlers serves the EmitScript operation (spec.md §6): it renders
// a sheet's compiled ScriptDocument back to readable pseudo-source, purely
// for display/debugging — the text is never parsed back.
type ScriptHandlers struct {
	repo repository.GraphRepository
	log  *logging.Logger
}

// NewScriptHandlers builds a ScriptHandlers over repo.
func NewScriptHandlers(repo repository.GraphRepository, log *logging.Logger) *ScriptHandlers {
	return &ScriptHandlers{repo: repo, log: log}
}

type emitScriptResponse struct {
	Script string `json:"script"`
}

// HandleEmitScript renders the given sheet's compilation unit to text.
//
//	@Summary	Render a sheet's compiled script for display
//	@Tags		script
//	@Produce	json
//	@Param		sheet_id	path	string	true	"Sheet ID"	format(uuid)
//	@Success	200	{object}	SuccessResponse
//	@Failure	400	{object}	APIError
//	@Failure	404	{object}	APIError
//	@Router		/sheets/{sheet_id}/script [get]
func (h *ScriptHandlers) HandleEmitScript(c *gin.Context) {
	sheetID, err := uuid.Parse(c.Param("sheet_id"))
	if err != nil {
		respondAPIError(c, ErrBadRequest)
		return
	}

	sheet, err := h.repo.FetchSheet(c.Request.Context(), sheetID)
	if err != nil {
		respondAPIError(c, err)
		return
	}

	doc, err := codegen.Generate(c.Request.Context(), h.repo, sheet)
	if err != nil {
		h.log.Error("script generation failed", "error", err, "sheet_id", sheetID, "request_id", GetRequestID(c))
		respondAPIError(c, err)
		return
	}

	respondJSON(c, http.StatusOK, emitScriptResponse{Script: codegen.EmitScript(doc)})
}

// HandleHealth reports liveness.
func HandleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

// ReadyChecker reports whether the server's dependencies (database,
// worker pool) are ready to serve traffic.
type ReadyChecker func(c *gin.Context) error

// HandleReady reports readiness by invoking check.
func HandleReady(check ReadyChecker) gin.HandlerFunc {
	return func(c *gin.Context) {
		if err := check(c); err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "not ready", "error": err.Error()})
			return
		}
		c.JSON(http.StatusOK, gin.H{"status": "ready"})
	}
}
