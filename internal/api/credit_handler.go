package api

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"wishtune-backend-go/internal/core"
	"wishtune-backend-go/internal/models"
)

// CreditHandler handles API endpoints for the user's credit ledger.
type CreditHandler struct {
	creditService core.CreditService
	log           *zap.Logger
}

// NewCreditHandler creates a new CreditHandler.
func NewCreditHandler(cs core.CreditService, logger *zap.Logger) *CreditHandler {
	return &CreditHandler{creditService: cs, log: logger}
}

// GetCredits handles GET /credits
func (h *CreditHandler) GetCredits(c *gin.Context) {
	userID, exists := c.Get("userID")
	if !exists {
		c.JSON(http.StatusUnauthorized, ErrorResponse{Error: "User ID not found in context"})
		return
	}

	credits, err := h.creditService.GetUserCredits(c.Request.Context(), userID.(string))
	if err != nil {
		h.log.Error("Failed to load user credits", zap.Error(err))
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "An unexpected internal server error occurred."})
		return
	}

	c.JSON(http.StatusOK, CreditStatusResponse{
		FreeSongsUsed:     credits.FreeSongsUsed,
		FreeSongsLimit:    models.FreeSongLimit,
		PaidCredits:       credits.PaidCredits,
		TotalSongsCreated: credits.TotalSongsCreated,
		CanCreate:         credits.CanCreateSong(),
	})
}

// GetEligibility handles GET /credits/eligibility
func (h *CreditHandler) GetEligibility(c *gin.Context) {
	userID, exists := c.Get("userID")
	if !exists {
		c.JSON(http.StatusUnauthorized, ErrorResponse{Error: "User ID not found in context"})
		return
	}

	canCreate, reason, err := h.creditService.CanCreateSong(c.Request.Context(), userID.(string))
	if err != nil {
		h.log.Error("Failed to check song eligibility", zap.Error(err))
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "An unexpected internal server error occurred."})
		return
	}

	c.JSON(http.StatusOK, EligibilityResponse{CanCreate: canCreate, Reason: reason})
}
