package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"dualledger/internal/services"
)

// PipelineHandler exposes the scheduled jobs to machine callers.
type PipelineHandler struct {
	rateService         services.RateServicer
	budgetService       services.BudgetServicer
	fixedExpenseService services.FixedExpenseServicer
}

// NewPipelineHandler creates a new PipelineHandler.
func NewPipelineHandler(rateService services.RateServicer, budgetService services.BudgetServicer, fixedExpenseService services.FixedExpenseServicer) *PipelineHandler {
	return &PipelineHandler{rateService: rateService, budgetService: budgetService, fixedExpenseService: fixedExpenseService}
}

// RefreshRates forces a fetch from the rate source.
// @Summary     Refresh exchange rate
// @Description Fetch a fresh rate from the configured source and store it (pipeline endpoint)
// @Tags        pipeline
// @Produce     json
// @Param       X-API-Key header   string            true "Pipeline API key"
// @Success     200       {object} services.RateQuote "Fresh rate"
// @Failure     401       {object} ErrorResponse     "Invalid API key"
// @Failure     503       {object} ErrorResponse     "Rate source unavailable or pipeline not configured"
// @Router      /pipeline/rates/refresh [post]
func (h *PipelineHandler) RefreshRates(c *gin.Context) {
	quote, err := h.rateService.RefreshRate(c.Request.Context())
	if err != nil {
		respondWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"rate": quote})
}

// RunRollover closes a month for every user.
// @Summary     Run budget rollover for all users
// @Description Carry unspent allowance of rollover-enabled budgets into the following month for every user (pipeline endpoint)
// @Tags        pipeline
// @Accept      json
// @Produce     json
// @Param       X-API-Key header   string          true "Pipeline API key"
// @Param       request   body     RolloverRequest true "Period to close"
// @Success     200       {object} services.RolloverReport "Rollover report"
// @Failure     400       {object} ErrorResponse "Invalid input"
// @Failure     401       {object} ErrorResponse "Invalid API key"
// @Failure     503       {object} ErrorResponse "Pipeline not configured"
// @Router      /pipeline/budgets/rollover [post]
func (h *PipelineHandler) RunRollover(c *gin.Context) {
	var req RolloverRequest
	if err := bindJSON(c, &req); err != nil {
		respondWithError(c, err)
		return
	}

	report, err := h.budgetService.RunRolloverForAll(c.Request.Context(), req.Month, req.Year)
	if err != nil {
		respondWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"rollover": report})
}

// GenerateFixedExpenses materializes a month's fixed expenses for every user.
// @Summary     Generate fixed expenses for all users
// @Description Create the month's transactions from every active template (pipeline endpoint)
// @Tags        pipeline
// @Accept      json
// @Produce     json
// @Param       X-API-Key header   string          true "Pipeline API key"
// @Param       request   body     GenerateRequest true "Month to generate"
// @Success     200       {object} map[string]int  "Transactions created"
// @Failure     400       {object} ErrorResponse   "Invalid input"
// @Failure     401       {object} ErrorResponse   "Invalid API key"
// @Failure     503       {object} ErrorResponse   "Pipeline not configured"
// @Router      /pipeline/fixed-expenses/generate [post]
func (h *PipelineHandler) GenerateFixedExpenses(c *gin.Context) {
	var req GenerateRequest
	if err := bindJSON(c, &req); err != nil {
		respondWithError(c, err)
		return
	}

	created, err := h.fixedExpenseService.GenerateForAll(c.Request.Context(), req.Month, req.Year)
	if err != nil {
		respondWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"transactions_created": created})
}
