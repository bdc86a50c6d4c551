package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"

	apperrors "spendwise/internal/errors"
	"spendwise/internal/models"
	"spendwise/internal/pagination"
	"spendwise/internal/services"
)

// BudgetHandler serves the user's running budget cycle.
type BudgetHandler struct {
	budgetService services.BudgetCycleServicer
	auditService  services.AuditServicer
}

// NewBudgetHandler creates a new BudgetHandler.
func NewBudgetHandler(budgetService services.BudgetCycleServicer, auditService services.AuditServicer) *BudgetHandler {
	return &BudgetHandler{budgetService: budgetService, auditService: auditService}
}

// SetBudgetRequest represents the request payload for setting a budget.
type SetBudgetRequest struct {
	Amount decimal.Decimal     `json:"amount" binding:"required,gt=0" swaggertype:"string" example:"300.00"`
	Period models.BudgetPeriod `json:"period" binding:"required,budget_period" enums:"daily,weekly,monthly"`
}

// SetBudgetResponse is returned after a budget is created or updated.
type SetBudgetResponse struct {
	Budget  *models.BudgetCycle `json:"budget"`
	Message string              `json:"message"`
}

// GetBudget returns the active cycle with its running totals. An elapsed
// cycle is closed and its remainder moved to savings before responding.
// @Summary     Get current budget
// @Description Get the active budget cycle, spending so far and the savings balance
// @Tags        budget
// @Produce     json
// @Security    BearerAuth
// @Success     200 {object} services.BudgetView "Current budget"
// @Failure     401 {object} ErrorResponse "Unauthorized"
// @Failure     409 {object} ErrorResponse "Cycle closed by a concurrent request"
// @Failure     500 {object} ErrorResponse "Server error"
// @Router      /budget [get]
func (h *BudgetHandler) GetBudget(c *gin.Context) {
	userID, err := getUserID(c)
	if err != nil {
		respondWithError(c, err)
		return
	}

	view, err := h.budgetService.GetBudgetView(c.Request.Context(), userID)
	if err != nil {
		respondWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, view)
}

// SetBudget creates the user's budget, or changes it while the edit window
// is still open.
// @Summary     Set budget
// @Description Create a budget or update the active one within its edit window
// @Tags        budget
// @Accept      json
// @Produce     json
// @Security    BearerAuth
// @Param       request body SetBudgetRequest true "Budget amount and period"
// @Success     200 {object} SetBudgetResponse "Budget created or updated"
// @Failure     400 {object} ErrorResponse "Invalid budget input"
// @Failure     401 {object} ErrorResponse "Unauthorized"
// @Failure     409 {object} ErrorResponse "Edit window expired"
// @Failure     500 {object} ErrorResponse "Server error"
// @Router      /budget [put]
func (h *BudgetHandler) SetBudget(c *gin.Context) {
	userID, err := getUserID(c)
	if err != nil {
		respondWithError(c, err)
		return
	}

	var req SetBudgetRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondWithError(c, apperrors.WithMessage(apperrors.ErrInvalidBudgetInput, err.Error()))
		return
	}

	result, err := h.budgetService.SetOrUpdateCycle(c.Request.Context(), userID, req.Amount, req.Period)
	if err != nil {
		respondWithError(c, err)
		return
	}

	action := models.AuditActionUpdateBudget
	if result.Created {
		action = models.AuditActionCreateBudget
	}
	h.auditService.Log(userID, action, "budget_cycle", result.Cycle.ID, c.ClientIP(),
		map[string]interface{}{"amount": req.Amount.StringFixed(2), "period": req.Period})

	c.JSON(http.StatusOK, SetBudgetResponse{Budget: result.Cycle, Message: result.Message})
}

// GetBudgetHistory lists closed cycles, newest first.
// @Summary     Get budget history
// @Description Get a paginated list of closed budget cycles with spent and credited amounts
// @Tags        budget
// @Produce     json
// @Security    BearerAuth
// @Param       page      query int false "Page number (default 1)"
// @Param       page_size query int false "Items per page (default 20, max 100)"
// @Success     200 {object} pagination.PageResponse[models.BudgetCycle] "Closed cycles"
// @Failure     400 {object} ErrorResponse "Invalid input"
// @Failure     401 {object} ErrorResponse "Unauthorized"
// @Failure     500 {object} ErrorResponse "Server error"
// @Router      /budget/history [get]
func (h *BudgetHandler) GetBudgetHistory(c *gin.Context) {
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

	result, err := h.budgetService.GetCycleHistory(c.Request.Context(), userID, page)
	if err != nil {
		respondWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, result)
}
