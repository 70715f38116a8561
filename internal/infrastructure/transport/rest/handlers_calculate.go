package rest

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/parascope/calcengine/internal/app/calcsvc"
	"github.com/parascope/calcengine/internal/logging"
)

// CalculateHandlers serves the Calculate operation (spec.md §4.5).
type CalculateHandlers struct {
	svc *calcsvc.Service
	log *logging.Logger
}

// NewCalculateHandlers builds a CalculateHandlers over svc.
func NewCalculateHandlers(svc *calcsvc.Service, log *logging.Logger) *CalculateHandlers {
	return &CalculateHandlers{svc: svc, log: log}
}

type calculateRequestBody struct {
	SheetID string                               `json:"sheetId" binding:"required"`
	Inputs  map[string]calcsvc.OverrideValue `json:"inputs,omitempty"`
}

// HandleCalculate runs a sheet once against caller-supplied input
// overrides and returns the enriched, string-serialized result tree.
//
//	@Summary	Calculate a sheet
//	@Tags		calculate
//	@Accept		json
//	@Produce	json
//	@Param		request	body	calculateRequestBody	true	"Calculate request"
//	@Success	200	{object}	SuccessResponse
//	@Failure	400	{object}	APIError
//	@Failure	404	{object}	APIError
//	@Router		/calculate [post]
func (h *CalculateHandlers) HandleCalculate(c *gin.Context) {
	var body calculateRequestBody
	if err := bindJSON(c, &body); err != nil {
		return
	}

	sheetID, err := uuid.Parse(body.SheetID)
	if err != nil {
		respondAPIError(c, ErrBadRequest)
		return
	}

	resp, err := h.svc.Calculate(c.Request.Context(), calcsvc.CalculateRequest{
		SheetID: sheetID,
		Inputs:  body.Inputs,
	})
	if err != nil {
		h.log.Error("calculate failed", "error", err, "sheet_id", sheetID, "request_id", GetRequestID(c))
		respondAPIError(c, err)
		return
	}

	respondJSON(c, http.StatusOK, resp)
}
