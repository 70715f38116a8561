// Package rest wires the Calculate, Sweep and EmitScript operations to a
// gin HTTP surface. Persistence, auth and transport shaping for any
// richer authoring API are out of scope (SPEC_FULL.md's Non-goals); this
// package exists only to drive the three operations over HTTP.
package rest

import (
	"github.com/gin-gonic/gin"

	"github.com/parascope/calcengine/internal/app/calcsvc"
	"github.com/parascope/calcengine/internal/app/sweepsvc"
	"github.com/parascope/calcengine/internal/domain/repository"
	"github.com/parascope/calcengine/internal/logging"
)

// NewRouter builds the gin engine serving /calculate, /sweep,
// /sheets/:sheet_id/script and the health/ready probes.
func NewRouter(calc *calcsvc.Service, sweep *sweepsvc.Service, repo repository.GraphRepository, ready ReadyChecker, log *logging.Logger) *gin.Engine {
	gin.SetMode(gin.ReleaseMode)
	r := gin.New()
	r.Use(Recovery(log), RequestLogger(log))

	r.GET("/healthz", HandleHealth)
	r.GET("/readyz", HandleReady(ready))

	calcHandlers := NewCalculateHandlers(calc, log)
	sweepHandlers := NewSweepHandlers(sweep, log)
	scriptHandlers := NewScriptHandlers(repo, log)

	v1 := r.Group("/api/v1")
	{
		v1.POST("/calculate", calcHandlers.HandleCalculate)
		v1.POST("/sweep", sweepHandlers.HandleSweep)
		v1.GET("/sheets/:sheet_id/script", scriptHandlers.HandleEmitScript)
	}

	return r
}
