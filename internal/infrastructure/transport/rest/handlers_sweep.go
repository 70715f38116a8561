package rest

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/parascope/calcengine/internal/app/sweepsvc"
	"github.com/parascope/calcengine/internal/logging"
)

// SweepHandlers serves the Sweep operation (spec.md §4.6).
type SweepHandlers struct {
	svc *sweepsvc.Service
	log *logging.Logger
}

// NewSweepHandlers builds a SweepHandlers over svc.
func NewSweepHandlers(svc *sweepsvc.Service, log *logging.Logger) *SweepHandlers {
	return &SweepHandlers{svc: svc, log: log}
}

// HandleSweep runs a sheet across one or two swept input axes and
// returns the resulting table.
//
//	@Summary	Sweep a sheet across one or two input axes
//	@Tags		sweep
//	@Accept		json
//	@Produce	json
//	@Param		request	body	sweepsvc.SweepRequest	true	"Sweep request"
//	@Success	200	{object}	SuccessResponse
//	@Failure	400	{object}	APIError
//	@Failure	404	{object}	APIError
//	@Router		/sweep [post]
func (h *SweepHandlers) HandleSweep(c *gin.Context) {
	var req sweepsvc.SweepRequest
	if err := bindJSON(c, &req); err != nil {
		return
	}

	resp, err := h.svc.Sweep(c.Request.Context(), req)
	if err != nil {
		h.log.Error("sweep failed", "error", err, "sheet_id", req.SheetID, "request_id", GetRequestID(c))
		respondAPIError(c, err)
		return
	}

	respondJSON(c, http.StatusOK, resp)
}
