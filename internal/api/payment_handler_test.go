package api

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"wishtune-backend-go/internal/core"
	"wishtune-backend-go/internal/crypto"
	"wishtune-backend-go/internal/models"
)

// stubPaymentService records calls and answers with canned results.
type stubPaymentService struct {
	reconcileToken  string
	reconcileUserID string
	webhookEvents   []models.PaymentWebhookEvent
	result          *core.ReconcileResult
	err             error
}

func (s *stubPaymentService) ListPackages(ctx context.Context) ([]*models.CreditPackage, error) {
	return []*models.CreditPackage{{ID: "pack-10", Credits: 10, Price: 9.99, Active: true}}, nil
}

func (s *stubPaymentService) InitializeCheckout(ctx context.Context, userID string, req models.CheckoutRequest) (*core.CheckoutSession, error) {
	return &core.CheckoutSession{Token: "tok-1", PackageID: req.PackageID}, s.err
}

func (s *stubPaymentService) ReconcileCallback(ctx context.Context, token, sessionUserID string) (*core.ReconcileResult, error) {
	s.reconcileToken = token
	s.reconcileUserID = sessionUserID
	return s.result, s.err
}

func (s *stubPaymentService) HandleWebhookEvent(ctx context.Context, event models.PaymentWebhookEvent) (*core.ReconcileResult, error) {
	s.webhookEvents = append(s.webhookEvents, event)
	return s.result, s.err
}

func newWebhookRouter(svc core.PaymentService, secret string) *gin.Engine {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	handler := NewPaymentHandler(svc, secret, zap.NewNop())
	router.POST("/payments/webhook", handler.HandleWebhook)
	router.POST("/payments/callback", handler.ReconcileCallback)
	return router
}

func TestHandleWebhook_SignatureGate(t *testing.T) {
	secret := "whsec_test"
	body, _ := json.Marshal(models.PaymentWebhookEvent{
		ID:   "ev-1",
		Type: "order.paid",
		Data: models.PaymentWebhookEventData{Metadata: models.PaymentWebhookMetadata{UserID: "user-1", Credits: 10}},
	})

	t.Run("valid signature accepted", func(t *testing.T) {
		svc := &stubPaymentService{result: &core.ReconcileResult{UserID: "user-1", Credits: 10}}
		router := newWebhookRouter(svc, secret)

		req := httptest.NewRequest(http.MethodPost, "/payments/webhook", bytes.NewReader(body))
		req.Header.Set("X-Webhook-Signature", crypto.SignBody(body, secret))
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)

		if w.Code != http.StatusOK {
			t.Fatalf("status = %d, body = %s", w.Code, w.Body.String())
		}
		if len(svc.webhookEvents) != 1 || svc.webhookEvents[0].ID != "ev-1" {
			t.Errorf("service saw events: %+v", svc.webhookEvents)
		}
	})

	t.Run("bad signature rejected before the service", func(t *testing.T) {
		svc := &stubPaymentService{result: &core.ReconcileResult{}}
		router := newWebhookRouter(svc, secret)

		req := httptest.NewRequest(http.MethodPost, "/payments/webhook", bytes.NewReader(body))
		req.Header.Set("X-Webhook-Signature", crypto.SignBody(body, "wrong-secret"))
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)

		if w.Code != http.StatusUnauthorized {
			t.Fatalf("status = %d, want 401", w.Code)
		}
		if len(svc.webhookEvents) != 0 {
			t.Error("unverified payload reached the service")
		}
	})

	t.Run("unsupported event acknowledged with 200", func(t *testing.T) {
		svc := &stubPaymentService{err: core.ErrUnsupportedEvent}
		router := newWebhookRouter(svc, "")

		req := httptest.NewRequest(http.MethodPost, "/payments/webhook", bytes.NewReader(body))
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)

		// Non-2xx would make the gateway retry an event we will never act on.
		if w.Code != http.StatusOK {
			t.Fatalf("status = %d, want 200", w.Code)
		}
	})
}

func TestReconcileCallback_PassesEmptySessionUser(t *testing.T) {
	svc := &stubPaymentService{result: &core.ReconcileResult{UserID: "user-1", Credits: 10}}
	router := newWebhookRouter(svc, "")

	body := []byte(`{"token":"tok-9"}`)
	req := httptest.NewRequest(http.MethodPost, "/payments/callback", bytes.NewReader(body))
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", w.Code, w.Body.String())
	}
	if svc.reconcileToken != "tok-9" {
		t.Errorf("token = %q, want tok-9", svc.reconcileToken)
	}
	// No auth middleware ran, so identity recovery is the service's problem.
	if svc.reconcileUserID != "" {
		t.Errorf("sessionUserID = %q, want empty", svc.reconcileUserID)
	}
}

func TestReconcileCallback_SessionLostMapsTo401(t *testing.T) {
	svc := &stubPaymentService{err: core.ErrSessionLost}
	router := newWebhookRouter(svc, "")

	req := httptest.NewRequest(http.MethodPost, "/payments/callback", bytes.NewReader([]byte(`{"token":"tok-9"}`)))
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	if w.Code != http.StatusUnauthorized {
		t.Errorf("status = %d, want 401", w.Code)
	}
}
