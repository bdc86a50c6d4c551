package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"

	"spendwise/internal/services"
)

// SavingsHandler exposes the savings balance.
type SavingsHandler struct {
	savingsService services.SavingsServicer
}

// NewSavingsHandler creates a new SavingsHandler.
func NewSavingsHandler(savingsService services.SavingsServicer) *SavingsHandler {
	return &SavingsHandler{savingsService: savingsService}
}

// SavingsResponse represents the savings balance in the response.
type SavingsResponse struct {
	Balance decimal.Decimal `json:"balance" swaggertype:"string" example:"170.00"`
}

// GetSavings returns the user's savings balance
// @Summary     Get savings balance
// @Description Get the balance accumulated from closed budget cycles
// @Tags        savings
// @Produce     json
// @Security    BearerAuth
// @Success     200 {object} SavingsResponse "Savings balance"
// @Failure     401 {object} ErrorResponse "Unauthorized"
// @Failure     500 {object} ErrorResponse "Server error"
// @Router      /savings [get]
func (h *SavingsHandler) GetSavings(c *gin.Context) {
	userID, err := getUserID(c)
	if err != nil {
		respondWithError(c, err)
		return
	}

	balance, err := h.savingsService.GetBalance(userID)
	if err != nil {
		respondWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, SavingsResponse{Balance: balance})
}
