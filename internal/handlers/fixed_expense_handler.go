package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	apperrors "dualledger/internal/errors"
	"dualledger/internal/models"
	"dualledger/internal/money"
	"dualledger/internal/pagination"
	"dualledger/internal/services"
)

// FixedExpenseHandler handles recurring expense templates.
type FixedExpenseHandler struct {
	fixedExpenseService services.FixedExpenseServicer
	auditService        services.AuditServicer
}

// NewFixedExpenseHandler creates a new FixedExpenseHandler.
func NewFixedExpenseHandler(fixedExpenseService services.FixedExpenseServicer, auditService services.AuditServicer) *FixedExpenseHandler {
	return &FixedExpenseHandler{fixedExpenseService: fixedExpenseService, auditService: auditService}
}

// CreateFixedExpenseRequest represents the request payload for creating a fixed expense.
type CreateFixedExpenseRequest struct {
	Name       string          `json:"name" binding:"required,min=1,max=100"`
	Amount     money.Money     `json:"amount" binding:"required,positive_amount" swaggertype:"string" example:"15000"`
	Currency   models.Currency `json:"currency" binding:"required,tracked_currency"`
	DayOfMonth int             `json:"day_of_month" binding:"required,min=1,max=31"`
	TagIDs     []string        `json:"tag_ids" binding:"omitempty,max=20,dive,uuid"`
}

// SetFixedExpenseActiveRequest pauses or resumes a template.
type SetFixedExpenseActiveRequest struct {
	Active *bool `json:"active" binding:"required"`
}

// GenerateRequest selects the month to materialize.
type GenerateRequest struct {
	Month int `json:"month" binding:"required,min=1,max=12"`
	Year  int `json:"year" binding:"required,min=1970,max=9999"`
}

// CreateFixedExpense handles the creation of a fixed expense template.
// @Summary     Create a fixed expense
// @Description Create a recurring monthly expense template
// @Tags        fixed-expenses
// @Accept      json
// @Produce     json
// @Security    BearerAuth
// @Param       request body CreateFixedExpenseRequest true "Fixed expense details"
// @Success     201 {object} models.FixedExpense "Fixed expense created"
// @Failure     400 {object} ErrorResponse "Invalid input"
// @Failure     401 {object} ErrorResponse "Unauthorized"
// @Failure     404 {object} ErrorResponse "Tag not found"
// @Failure     500 {object} ErrorResponse "Server error"
// @Router      /fixed-expenses [post]
func (h *FixedExpenseHandler) CreateFixedExpense(c *gin.Context) {
	userID, err := getUserID(c)
	if err != nil {
		respondWithError(c, err)
		return
	}

	var req CreateFixedExpenseRequest
	if err := bindJSON(c, &req); err != nil {
		respondWithError(c, err)
		return
	}

	fe, err := h.fixedExpenseService.CreateFixedExpense(userID, services.FixedExpenseInput{
		Name:       req.Name,
		Amount:     req.Amount,
		Currency:   req.Currency,
		DayOfMonth: req.DayOfMonth,
		TagIDs:     req.TagIDs,
	})
	if err != nil {
		respondWithError(c, err)
		return
	}

	h.auditService.Log(userID, "CREATE_FIXED_EXPENSE", "fixed_expense", fe.ID, c.ClientIP(),
		map[string]interface{}{"name": fe.Name, "amount": req.Amount.StorageString(), "currency": req.Currency})

	c.JSON(http.StatusCreated, gin.H{"fixed_expense": fe})
}

// GetFixedExpenses handles listing the user's fixed expenses.
// @Summary     List fixed expenses
// @Description Get a paginated list of recurring expense templates
// @Tags        fixed-expenses
// @Produce     json
// @Security    BearerAuth
// @Param       page      query int false "Page number (default 1)"
// @Param       page_size query int false "Items per page (default 20, max 100)"
// @Success     200 {object} pagination.PageResponse[models.FixedExpense] "Paginated fixed expenses"
// @Failure     400 {object} ErrorResponse "Invalid input"
// @Failure     401 {object} ErrorResponse "Unauthorized"
// @Failure     500 {object} ErrorResponse "Server error"
// @Router      /fixed-expenses [get]
func (h *FixedExpenseHandler) GetFixedExpenses(c *gin.Context) {
	userID, err := getUserID(c)
	if err != nil {
		respondWithError(c, err)
		return
	}

	var page pagination.PageRequest
	if err := c.ShouldBindQuery(&page); err != nil {
		respondWithError(c, apperrors.WithMessage(apperrors.ErrInvalidInput, err.Error()))
		return
	}

	result, err := h.fixedExpenseService.GetUserFixedExpenses(userID, page)
	if err != nil {
		respondWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, result)
}

// SetFixedExpenseActive handles pausing or resuming a template.
// @Summary     Pause or resume a fixed expense
// @Description Inactive templates are skipped by monthly generation
// @Tags        fixed-expenses
// @Accept      json
// @Produce     json
// @Security    BearerAuth
// @Param       id      path string                       true "Fixed expense ID"
// @Param       request body SetFixedExpenseActiveRequest true "Active flag"
// @Success     200 {object} models.FixedExpense "Fixed expense updated"
// @Failure     400 {object} ErrorResponse "Invalid input"
// @Failure     401 {object} ErrorResponse "Unauthorized"
// @Failure     404 {object} ErrorResponse "Fixed expense not found"
// @Failure     500 {object} ErrorResponse "Server error"
// @Router      /fixed-expenses/{id}/active [patch]
func (h *FixedExpenseHandler) SetFixedExpenseActive(c *gin.Context) {
	userID, err := getUserID(c)
	if err != nil {
		respondWithError(c, err)
		return
	}

	id, err := parsePathID(c, "id")
	if err != nil {
		respondWithError(c, err)
		return
	}

	var req SetFixedExpenseActiveRequest
	if err := bindJSON(c, &req); err != nil {
		respondWithError(c, err)
		return
	}

	fe, err := h.fixedExpenseService.SetFixedExpenseActive(userID, id, *req.Active)
	if err != nil {
		respondWithError(c, err)
		return
	}

	h.auditService.Log(userID, "UPDATE_FIXED_EXPENSE", "fixed_expense", id, c.ClientIP(),
		map[string]interface{}{"is_active": *req.Active})

	c.JSON(http.StatusOK, gin.H{"fixed_expense": fe})
}

// DeleteFixedExpense handles deleting a template.
// @Summary     Delete fixed expense
// @Description Delete a recurring expense template; generated transactions are kept
// @Tags        fixed-expenses
// @Produce     json
// @Security    BearerAuth
// @Param       id path string true "Fixed expense ID"
// @Success     200 {object} map[string]string "Fixed expense deleted"
// @Failure     400 {object} ErrorResponse "Invalid input"
// @Failure     401 {object} ErrorResponse "Unauthorized"
// @Failure     404 {object} ErrorResponse "Fixed expense not found"
// @Failure     500 {object} ErrorResponse "Server error"
// @Router      /fixed-expenses/{id} [delete]
func (h *FixedExpenseHandler) DeleteFixedExpense(c *gin.Context) {
	userID, err := getUserID(c)
	if err != nil {
		respondWithError(c, err)
		return
	}

	id, err := parsePathID(c, "id")
	if err != nil {
		respondWithError(c, err)
		return
	}

	if err := h.fixedExpenseService.DeleteFixedExpense(userID, id); err != nil {
		respondWithError(c, err)
		return
	}

	h.auditService.Log(userID, "DELETE_FIXED_EXPENSE", "fixed_expense", id, c.ClientIP(), nil)

	c.JSON(http.StatusOK, gin.H{"message": "Fixed expense deleted successfully"})
}

// Generate materializes the month's transactions from active templates.
// @Summary     Generate fixed expenses
// @Description Create one expense transaction per active template for the month; already generated templates are skipped
// @Tags        fixed-expenses
// @Accept      json
// @Produce     json
// @Security    BearerAuth
// @Param       request body GenerateRequest true "Month to generate"
// @Success     200 {object} services.GenerateResult "Generation result"
// @Failure     400 {object} ErrorResponse "Invalid input"
// @Failure     401 {object} ErrorResponse "Unauthorized"
// @Failure     500 {object} ErrorResponse "Server error"
// @Router      /fixed-expenses/generate [post]
func (h *FixedExpenseHandler) Generate(c *gin.Context) {
	userID, err := getUserID(c)
	if err != nil {
		respondWithError(c, err)
		return
	}

	var req GenerateRequest
	if err := bindJSON(c, &req); err != nil {
		respondWithError(c, err)
		return
	}

	result, err := h.fixedExpenseService.GenerateForMonth(userID, req.Month, req.Year)
	if err != nil {
		respondWithError(c, err)
		return
	}

	if len(result.Created) > 0 {
		h.auditService.Log(userID, "GENERATE_FIXED_EXPENSES", "transaction", "", c.ClientIP(),
			map[string]interface{}{"month": req.Month, "year": req.Year, "created": len(result.Created)})
	}

	c.JSON(http.StatusOK, gin.H{"result": result})
}
