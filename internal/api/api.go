// Package api exposes the reconciliation engine over HTTP.
package api

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"payment-recon-service/internal/models"
	"payment-recon-service/internal/recon"
	"payment-recon-service/internal/settlement"
	"payment-recon-service/internal/store"
	"payment-recon-service/pkg/errors"
	"payment-recon-service/pkg/logger"
)

// API wires the reconciliation engine, settlement calculator, and run store
// into HTTP handlers. The store may be nil, in which case persistence
// endpoints respond 503.
type API struct {
	engine *recon.Reconciler
	calc   *settlement.Calculator
	runs   *store.Store
	log    logger.Logger
	router *gin.Engine
}

// New builds the API. The store is optional.
func New(engine *recon.Reconciler, calc *settlement.Calculator, runs *store.Store, log logger.Logger) *API {
	if log == nil {
		log = logger.NewNop()
	}
	gin.SetMode(gin.ReleaseMode)
	a := &API{
		engine: engine,
		calc:   calc,
		runs:   runs,
		log:    log.WithComponent("api"),
		router: gin.New(),
	}
	a.router.Use(gin.Recovery())
	return a
}

// Router registers the routes and returns the handler.
func (a *API) Router() *gin.Engine {
	a.router.GET("/healthz", a.Health)
	a.router.POST("/v1/reconciliations", a.RunReconciliation)
	a.router.GET("/v1/reconciliations", a.ListRuns)
	a.router.GET("/v1/reconciliations/:id", a.GetRun)
	return a.router
}

// Health reports liveness.
func (a *API) Health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

// reconciliationRequest is the POST /v1/reconciliations payload.
type reconciliationRequest struct {
	CycleDate string `json:"cycle_date" binding:"required"`

	// No binding tag on the record slices: an empty bank side is a valid
	// request that classifies as a missing statement file.
	PGTransactions []*models.PGTransaction `json:"pg_transactions"`
	BankRecords    []*models.BankRecord    `json:"bank_records"`

	Persist           bool `json:"persist"`
	IncludeSettlement bool `json:"include_settlement"`
}

type reconciliationResponse struct {
	RunID      string                      `json:"run_id,omitempty"`
	Result     *recon.Result               `json:"result"`
	Settlement *settlement.CycleSettlement `json:"settlement,omitempty"`
}

// RunReconciliation matches a cycle's records and optionally persists and
// settles the outcome.
func (a *API) RunReconciliation(c *gin.Context) {
	var req reconciliationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	result, err := a.engine.Reconcile(req.PGTransactions, req.BankRecords, req.CycleDate)
	if err != nil {
		a.log.WithError(err).Warn("Reconciliation request rejected")
		c.JSON(statusFor(err), gin.H{"error": err.Error()})
		return
	}

	resp := reconciliationResponse{Result: result}

	if req.IncludeSettlement && a.calc != nil {
		cycle, err := a.calc.Settle(result)
		if err != nil {
			a.log.WithError(err).Error("Settlement computation failed")
			c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to compute settlement"})
			return
		}
		resp.Settlement = cycle
	}

	if req.Persist {
		if a.runs == nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"error": "run persistence is not configured"})
			return
		}
		runID, err := a.runs.SaveRun(c.Request.Context(), result)
		if err != nil {
			a.log.WithError(err).Error("Failed to persist run")
			c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to persist run"})
			return
		}
		resp.RunID = runID
	}

	c.JSON(http.StatusOK, resp)
}

// GetRun returns a stored run summary.
func (a *API) GetRun(c *gin.Context) {
	if a.runs == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "run persistence is not configured"})
		return
	}

	summary, err := a.runs.GetRun(c.Request.Context(), c.Param("id"))
	if err != nil {
		if errors.HasCode(err, errors.CodeNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "run not found"})
			return
		}
		a.log.WithError(err).Error("Failed to fetch run")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to fetch run"})
		return
	}
	c.JSON(http.StatusOK, summary)
}

// ListRuns returns recent run summaries.
func (a *API) ListRuns(c *gin.Context) {
	if a.runs == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "run persistence is not configured"})
		return
	}

	summaries, err := a.runs.ListRuns(c.Request.Context(), 0)
	if err != nil {
		a.log.WithError(err).Error("Failed to list runs")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to list runs"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"runs": summaries})
}

// statusFor maps application error categories to HTTP status codes.
func statusFor(err error) int {
	switch {
	case errors.IsCategory(err, errors.CategoryInput):
		return http.StatusBadRequest
	case errors.IsCategory(err, errors.CategoryStorage):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}
