package api

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"wishtune-backend-go/internal/core"
	"wishtune-backend-go/internal/models"
)

// CallbackHandler handles asynchronous notifications from the music
// generation provider.
type CallbackHandler struct {
	callbackService core.GenerationCallbackService
	log             *zap.Logger
}

// NewCallbackHandler creates a new CallbackHandler.
func NewCallbackHandler(gcs core.GenerationCallbackService, logger *zap.Logger) *CallbackHandler {
	return &CallbackHandler{callbackService: gcs, log: logger}
}

// HandleGenerationCallback handles POST /callbacks/generation. The provider
// retries on non-2xx, so only malformed payloads and unknown tasks are
// rejected.
func (h *CallbackHandler) HandleGenerationCallback(c *gin.Context) {
	var req models.GenerationCallbackRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "Invalid callback payload", Details: err.Error()})
		return
	}

	if err := h.callbackService.HandleCallback(c.Request.Context(), req); err != nil {
		switch {
		case errors.Is(err, core.ErrInvalidCallback):
			c.JSON(http.StatusBadRequest, ErrorResponse{Error: core.ErrInvalidCallback.Error()})
		case errors.Is(err, core.ErrTaskNotFound):
			c.JSON(http.StatusNotFound, ErrorResponse{Error: core.ErrTaskNotFound.Error()})
		default:
			h.log.Error("Failed to process generation callback", zap.Error(err))
			c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "An unexpected internal server error occurred."})
		}
		return
	}
	c.JSON(http.StatusOK, SuccessResponse{Message: "Callback processed"})
}
