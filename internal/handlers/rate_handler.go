package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"dualledger/internal/services"
)

// RateHandler serves the exchange rate between the two tracked currencies.
type RateHandler struct {
	rateService services.RateServicer
}

// NewRateHandler creates a new RateHandler.
func NewRateHandler(rateService services.RateServicer) *RateHandler {
	return &RateHandler{rateService: rateService}
}

// GetCurrentRate returns the cached rate, refreshing it when expired.
// @Summary     Get current exchange rate
// @Description Latest secondary to primary rate. Falls back to the last stored sample (stale=true) when the source is down
// @Tags        rates
// @Produce     json
// @Security    BearerAuth
// @Success     200 {object} services.RateQuote "Current rate"
// @Failure     401 {object} ErrorResponse "Unauthorized"
// @Failure     503 {object} ErrorResponse "No exchange rate available"
// @Router      /rates/current [get]
func (h *RateHandler) GetCurrentRate(c *gin.Context) {
	quote, err := h.rateService.CurrentRate(c.Request.Context())
	if err != nil {
		respondWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"rate": quote})
}

// GetRateHistory returns the most recent stored samples.
// @Summary     Get exchange rate history
// @Description Stored rate samples, newest first
// @Tags        rates
// @Produce     json
// @Security    BearerAuth
// @Param       limit query int false "Number of samples (default 30, max 500)"
// @Success     200 {array}  models.ExchangeRateSample "Rate samples"
// @Failure     400 {object} ErrorResponse "Invalid input"
// @Failure     401 {object} ErrorResponse "Unauthorized"
// @Failure     500 {object} ErrorResponse "Server error"
// @Router      /rates/history [get]
func (h *RateHandler) GetRateHistory(c *gin.Context) {
	limit, err := optionalIntQuery(c, "limit")
	if err != nil {
		respondWithError(c, err)
		return
	}
	n := 0
	if limit != nil {
		n = *limit
	}

	samples, err := h.rateService.RateHistory(c.Request.Context(), n)
	if err != nil {
		respondWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"samples": samples})
}
