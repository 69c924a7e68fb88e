package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"dualledger/internal/services"
)

// LedgerHandler serves balance and summary reports.
type LedgerHandler struct {
	ledgerService services.LedgerServicer
}

// NewLedgerHandler creates a new LedgerHandler.
func NewLedgerHandler(ledgerService services.LedgerServicer) *LedgerHandler {
	return &LedgerHandler{ledgerService: ledgerService}
}

// GetBalance returns the all-time balance per currency.
// @Summary     Get balance
// @Description Net balance (income minus expense) for each tracked currency
// @Tags        ledger
// @Produce     json
// @Security    BearerAuth
// @Success     200 {object} map[string]string "Balance per currency"
// @Failure     401 {object} ErrorResponse "Unauthorized"
// @Failure     500 {object} ErrorResponse "Server error"
// @Router      /ledger/balance [get]
func (h *LedgerHandler) GetBalance(c *gin.Context) {
	userID, err := getUserID(c)
	if err != nil {
		respondWithError(c, err)
		return
	}

	balance, err := h.ledgerService.GetBalance(userID)
	if err != nil {
		respondWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"balance": balance})
}

// GetSummary returns totals over a trailing window.
// @Summary     Get summary
// @Description Income, expense and top expense tags over the trailing window
// @Tags        ledger
// @Produce     json
// @Security    BearerAuth
// @Param       window_days query int false "Window length in days (default from configuration, max 366)"
// @Success     200 {object} ledger.Summary "Summary"
// @Failure     400 {object} ErrorResponse "Invalid input"
// @Failure     401 {object} ErrorResponse "Unauthorized"
// @Failure     500 {object} ErrorResponse "Server error"
// @Router      /ledger/summary [get]
func (h *LedgerHandler) GetSummary(c *gin.Context) {
	userID, err := getUserID(c)
	if err != nil {
		respondWithError(c, err)
		return
	}

	windowDays, err := optionalIntQuery(c, "window_days")
	if err != nil {
		respondWithError(c, err)
		return
	}
	days := 0
	if windowDays != nil {
		days = *windowDays
	}

	summary, err := h.ledgerService.GetSummary(c.Request.Context(), userID, days)
	if err != nil {
		respondWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"summary": summary})
}

// GetHistory returns the monthly net per currency.
// @Summary     Get monthly history
// @Description Net amount per currency for each of the trailing months, oldest first
// @Tags        ledger
// @Produce     json
// @Security    BearerAuth
// @Param       months query int false "Number of months (default 6, max 60)"
// @Success     200 {array}  ledger.MonthBalance "Monthly history"
// @Failure     400 {object} ErrorResponse "Invalid input"
// @Failure     401 {object} ErrorResponse "Unauthorized"
// @Failure     500 {object} ErrorResponse "Server error"
// @Router      /ledger/history [get]
func (h *LedgerHandler) GetHistory(c *gin.Context) {
	userID, err := getUserID(c)
	if err != nil {
		respondWithError(c, err)
		return
	}

	months, err := optionalIntQuery(c, "months")
	if err != nil {
		respondWithError(c, err)
		return
	}
	n := 0
	if months != nil {
		n = *months
	}

	history, err := h.ledgerService.GetHistory(userID, n)
	if err != nil {
		respondWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"history": history})
}

// GetDashboard returns balance, summary and the current rate in one call.
// @Summary     Get dashboard
// @Description Balance, trailing summary, current exchange rate and converted total
// @Tags        ledger
// @Produce     json
// @Security    BearerAuth
// @Success     200 {object} services.Dashboard "Dashboard"
// @Failure     401 {object} ErrorResponse "Unauthorized"
// @Failure     500 {object} ErrorResponse "Server error"
// @Router      /ledger/dashboard [get]
func (h *LedgerHandler) GetDashboard(c *gin.Context) {
	userID, err := getUserID(c)
	if err != nil {
		respondWithError(c, err)
		return
	}

	dashboard, err := h.ledgerService.GetDashboard(c.Request.Context(), userID)
	if err != nil {
		respondWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"dashboard": dashboard})
}
