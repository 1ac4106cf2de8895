package api

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"wishtune-backend-go/internal/core"
	"wishtune-backend-go/internal/crypto"
	"wishtune-backend-go/internal/gateway"
	"wishtune-backend-go/internal/models"
)

// webhookSignatureHeader carries the gateway's HMAC signature over the raw
// request body.
const webhookSignatureHeader = "X-Webhook-Signature"

// PaymentHandler handles API endpoints for packages, checkout and payment
// reconciliation.
type PaymentHandler struct {
	paymentService core.PaymentService
	webhookSecret  string
	log            *zap.Logger
}

// NewPaymentHandler creates a new PaymentHandler. webhookSecret may be empty,
// in which case webhook signature verification is skipped.
func NewPaymentHandler(ps core.PaymentService, webhookSecret string, logger *zap.Logger) *PaymentHandler {
	return &PaymentHandler{paymentService: ps, webhookSecret: webhookSecret, log: logger}
}

// mapPaymentErrorToStatus maps errors from core.PaymentService to HTTP status
// codes.
func (h *PaymentHandler) mapPaymentErrorToStatus(c *gin.Context, err error) {
	var statusCode int
	var errResponse ErrorResponse

	switch {
	case errors.Is(err, core.ErrPackageNotFound):
		statusCode = http.StatusNotFound
		errResponse = ErrorResponse{Error: core.ErrPackageNotFound.Error()}
	case errors.Is(err, core.ErrPaymentNotSuccessful):
		statusCode = http.StatusPaymentRequired
		errResponse = ErrorResponse{Error: core.ErrPaymentNotSuccessful.Error()}
	case errors.Is(err, core.ErrSessionLost):
		// The payment settled but the caller's identity could not be
		// recovered. Signing in and retrying the callback is the remedy.
		statusCode = http.StatusUnauthorized
		errResponse = ErrorResponse{Error: core.ErrSessionLost.Error(), Details: "Sign in and retry to claim the purchase."}
	case errors.Is(err, core.ErrInvalidWebhook):
		statusCode = http.StatusBadRequest
		errResponse = ErrorResponse{Error: core.ErrInvalidWebhook.Error()}
	case errors.Is(err, core.ErrGatewayFailed), errors.Is(err, gateway.ErrNotConfigured):
		statusCode = http.StatusServiceUnavailable
		errResponse = ErrorResponse{Error: "Payment provider is unavailable"}
	default:
		h.log.Error("Unexpected payment service error", zap.Error(err))
		statusCode = http.StatusInternalServerError
		errResponse = ErrorResponse{Error: "An unexpected internal server error occurred."}
	}
	c.JSON(statusCode, errResponse)
}

// ListPackages handles GET /payments/packages
func (h *PaymentHandler) ListPackages(c *gin.Context) {
	packages, err := h.paymentService.ListPackages(c.Request.Context())
	if err != nil {
		h.mapPaymentErrorToStatus(c, err)
		return
	}
	c.JSON(http.StatusOK, packages)
}

// CreateCheckout handles POST /payments/checkout
func (h *PaymentHandler) CreateCheckout(c *gin.Context) {
	userID, exists := c.Get("userID")
	if !exists {
		c.JSON(http.StatusUnauthorized, ErrorResponse{Error: "User ID not found in context"})
		return
	}

	var req models.CheckoutRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "Invalid request payload", Details: err.Error()})
		return
	}

	session, err := h.paymentService.InitializeCheckout(c.Request.Context(), userID.(string), req)
	if err != nil {
		h.mapPaymentErrorToStatus(c, err)
		return
	}
	c.JSON(http.StatusCreated, session)
}

// ReconcileCallback handles POST /payments/callback. The route uses optional
// auth: the gateway redirects through the client, whose session may or may
// not have survived, so a missing user id is passed through as "" and the
// service falls back to its own identity recovery.
func (h *PaymentHandler) ReconcileCallback(c *gin.Context) {
	var req ReconcileRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "Invalid request payload", Details: err.Error()})
		return
	}

	sessionUserID := ""
	if userID, exists := c.Get("userID"); exists {
		sessionUserID = userID.(string)
	}

	result, err := h.paymentService.ReconcileCallback(c.Request.Context(), req.Token, sessionUserID)
	if err != nil {
		h.mapPaymentErrorToStatus(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

// HandleWebhook handles POST /payments/webhook. The gateway authenticates
// itself with an HMAC signature over the raw body; no user auth applies.
func (h *PaymentHandler) HandleWebhook(c *gin.Context) {
	body, err := io.ReadAll(c.Request.Body)
	if err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "Failed to read request body"})
		return
	}

	if h.webhookSecret != "" {
		signature := c.GetHeader(webhookSignatureHeader)
		if err := crypto.VerifyWebhookSignature(body, signature, h.webhookSecret); err != nil {
			h.log.Warn("Rejected webhook with bad signature", zap.String("client_ip", c.ClientIP()))
			c.JSON(http.StatusUnauthorized, ErrorResponse{Error: "Invalid webhook signature"})
			return
		}
	}

	var event models.PaymentWebhookEvent
	if err := json.Unmarshal(body, &event); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "Invalid webhook payload", Details: err.Error()})
		return
	}

	result, err := h.paymentService.HandleWebhookEvent(c.Request.Context(), event)
	if err != nil {
		// Unsupported event types are acknowledged so the gateway does not
		// retry deliveries we will never act on.
		if errors.Is(err, core.ErrUnsupportedEvent) {
			c.JSON(http.StatusOK, SuccessResponse{Message: "Event type ignored"})
			return
		}
		h.mapPaymentErrorToStatus(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}
