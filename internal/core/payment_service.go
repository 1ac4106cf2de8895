package core

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"wishtune-backend-go/internal/db"
	"wishtune-backend-go/internal/gateway"
	"wishtune-backend-go/internal/models"
)

// Custom errors for the PaymentService.
var (
	ErrPackageNotFound      = errors.New("credit package not found")
	ErrPaymentNotSuccessful = errors.New("payment was not successful")
	// ErrSessionLost means no identity could be recovered for a verified
	// payment. The money movement must be resolved by support out of band;
	// the audit trail carries the token and every partial identity signal.
	ErrSessionLost       = errors.New("payment session lost, identity could not be recovered")
	ErrGatewayFailed     = errors.New("payment gateway operation failed")
	ErrInvalidWebhook    = errors.New("invalid webhook event")
	ErrUnsupportedEvent  = errors.New("unsupported webhook event type")
)

// webhookTokenPrefix namespaces journal keys for webhook deliveries so a
// provider event id can never collide with a checkout token.
const webhookTokenPrefix = "evt_"

// orderPaidEventType is the only credit-granting webhook event.
const orderPaidEventType = "order.paid"

// paymentService implements the PaymentService interface.
type paymentService struct {
	txnRepo      db.TransactionRepository
	sessionRepo  db.PaymentSessionRepository
	packageRepo  db.CreditPackageRepository
	gateway      PaymentGateway
	auditService AuditService
	callbackURL  string
	log          *zap.Logger
}

// NewPaymentService creates a new PaymentService instance.
func NewPaymentService(
	tr db.TransactionRepository,
	psr db.PaymentSessionRepository,
	cpr db.CreditPackageRepository,
	gw PaymentGateway,
	as AuditService,
	callbackURL string,
	logger *zap.Logger,
) PaymentService {
	return &paymentService{
		txnRepo:      tr,
		sessionRepo:  psr,
		packageRepo:  cpr,
		gateway:      gw,
		auditService: as,
		callbackURL:  callbackURL,
		log:          logger,
	}
}

// ListPackages returns the credit packages currently offered.
func (s *paymentService) ListPackages(ctx context.Context) ([]*models.CreditPackage, error) {
	packages, err := s.packageRepo.ListActive(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list credit packages: %w", err)
	}
	return packages, nil
}

// InitializeCheckout opens a checkout with the gateway and persists a
// PaymentSession keyed by the returned token. The session is the third
// identity-recovery path at reconciliation time, so it must be durable
// before the user is sent to the payment page.
func (s *paymentService) InitializeCheckout(ctx context.Context, userID string, req models.CheckoutRequest) (*CheckoutSession, error) {
	pkg, err := s.packageRepo.GetByID(ctx, req.PackageID)
	if err != nil {
		if errors.Is(err, db.ErrNotFound) {
			return nil, fmt.Errorf("%w: id '%s'", ErrPackageNotFound, req.PackageID)
		}
		return nil, fmt.Errorf("failed to resolve package '%s': %w", req.PackageID, err)
	}
	if !pkg.Active {
		return nil, fmt.Errorf("%w: package '%s' is not for sale", ErrPackageNotFound, pkg.ID)
	}

	result, err := s.gateway.Initialize(ctx, gateway.CheckoutParams{
		ConversationID: userID,
		ItemID:         pkg.ID,
		Price:          pkg.Price,
		Locale:         req.Locale,
		CallbackURL:    s.callbackURL,
	})
	if err != nil {
		return nil, fmt.Errorf("%w: initialize: %v", ErrGatewayFailed, err)
	}

	session := &models.PaymentSession{
		Token:          result.Token,
		UserID:         userID,
		ConversationID: userID,
		Price:          pkg.Price,
		Locale:         req.Locale,
	}
	if err := s.sessionRepo.Put(ctx, session); err != nil {
		return nil, fmt.Errorf("failed to persist payment session for token '%s': %w", result.Token, err)
	}

	return &CheckoutSession{
		Token:          result.Token,
		PaymentPageURL: result.PaymentPageURL,
		PackageID:      pkg.ID,
		Price:          pkg.Price,
	}, nil
}

// ReconcileCallback is the redirect-callback reconciliation pipeline:
//
//  1. fast idempotency check against the journal,
//  2. verification with the gateway,
//  3. identity recovery (session, then conversationId, then the persisted
//     PaymentSession),
//  4. package resolution,
//  5. atomic journal-write + credit-grant, which re-checks the journal
//     inside the transaction to close the race between step 1 and commit.
//
// Steps 2-4 never mutate the ledger, so any failure there is safely
// retryable on a later duplicate delivery.
func (s *paymentService) ReconcileCallback(ctx context.Context, token, sessionUserID string) (*ReconcileResult, error) {
	if token == "" {
		return nil, errors.New("payment token is required")
	}

	// Step 1: duplicate deliveries of a settled token succeed cheaply,
	// without contacting the gateway or touching the ledger.
	if settled, err := s.txnRepo.GetByToken(ctx, token); err == nil {
		if settled.Status == models.TransactionStatusSuccess {
			return &ReconcileResult{
				UserID:         settled.UserID,
				PackageID:      settled.ItemID,
				Credits:        settled.Credits,
				AlreadySettled: true,
			}, nil
		}
	} else if !errors.Is(err, db.ErrNotFound) {
		return nil, fmt.Errorf("journal lookup failed for token '%s': %w", token, err)
	}

	// Step 2: verify with the gateway. A timeout or failure here leaves the
	// ledger untouched.
	detail, err := s.gateway.Verify(ctx, token, "")
	if err != nil {
		return nil, fmt.Errorf("%w: verify token '%s': %v", ErrGatewayFailed, token, err)
	}
	if detail.PaymentStatus != gateway.PaymentStatusSuccess {
		s.audit(ctx, models.AuditLog{
			Action:     models.AuditActionPaymentVerifyFailed,
			TargetType: "TRANSACTION",
			TargetID:   token,
			Details:    map[string]interface{}{"paymentStatus": detail.PaymentStatus},
		})
		return nil, fmt.Errorf("%w: status '%s'", ErrPaymentNotSuccessful, detail.PaymentStatus)
	}

	// Step 3: recover the purchaser's identity.
	userID, err := s.recoverIdentity(ctx, token, sessionUserID, detail)
	if err != nil {
		return nil, err
	}

	// Step 4: resolve the purchased package.
	if len(detail.ItemTransactions) == 0 {
		return nil, fmt.Errorf("%w: verification response carries no items", ErrPackageNotFound)
	}
	itemID := detail.ItemTransactions[0].ItemID
	pkg, err := s.packageRepo.GetByID(ctx, itemID)
	if err != nil {
		if errors.Is(err, db.ErrNotFound) {
			return nil, fmt.Errorf("%w: id '%s'", ErrPackageNotFound, itemID)
		}
		return nil, fmt.Errorf("failed to resolve package '%s': %w", itemID, err)
	}

	// Step 5: atomic commit. Journal entry and credit grant land together
	// or not at all; a crash in between aborts the whole transaction and a
	// retry re-runs safely from step 1.
	applied, err := s.txnRepo.CommitPurchase(ctx, &models.Transaction{
		Token:            token,
		ItemID:           pkg.ID,
		UserID:           userID,
		Credits:          pkg.Credits,
		ProviderResponse: detail.Raw,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to commit purchase for token '%s': %w", token, err)
	}
	if applied {
		s.audit(ctx, models.AuditLog{
			UserID:     userID,
			Action:     models.AuditActionPaymentReconciled,
			TargetType: "TRANSACTION",
			TargetID:   token,
			Details:    map[string]interface{}{"packageId": pkg.ID, "credits": pkg.Credits},
		})
		s.log.Info("Payment reconciled",
			zap.String("token", token),
			zap.String("userId", userID),
			zap.Int("credits", pkg.Credits),
		)
	}
	return &ReconcileResult{
		UserID:         userID,
		PackageID:      pkg.ID,
		Credits:        pkg.Credits,
		AlreadySettled: !applied,
	}, nil
}

// recoverIdentity tries, in order: the current authenticated session, the
// conversationId echoed in the verification response (set to the user id at
// checkout initialization), and the persisted PaymentSession for the token.
// Exhausting all three is the distinguished "session lost" failure.
func (s *paymentService) recoverIdentity(ctx context.Context, token, sessionUserID string, detail *gateway.PaymentDetail) (string, error) {
	if sessionUserID != "" {
		return sessionUserID, nil
	}
	if detail.ConversationID != "" {
		return detail.ConversationID, nil
	}

	session, err := s.sessionRepo.GetByToken(ctx, token)
	if err == nil && session.UserID != "" {
		return session.UserID, nil
	}
	if err != nil && !errors.Is(err, db.ErrNotFound) {
		return "", fmt.Errorf("payment session lookup failed for token '%s': %w", token, err)
	}

	s.audit(ctx, models.AuditLog{
		Action:     models.AuditActionPaymentSessionLost,
		TargetType: "TRANSACTION",
		TargetID:   token,
		Details: map[string]interface{}{
			"conversationId": detail.ConversationID,
			"paymentStatus":  detail.PaymentStatus,
		},
	})
	s.log.Error("Payment reconciliation exhausted identity recovery",
		zap.String("token", token),
		zap.String("conversationId", detail.ConversationID),
	)
	return "", fmt.Errorf("%w: token '%s'", ErrSessionLost, token)
}

// HandleWebhookEvent processes a gateway webhook delivery. order.paid events
// route through the same journal-checked atomic commit as the redirect
// callback, keyed by the provider event id, so a redelivered event cannot
// double-credit.
func (s *paymentService) HandleWebhookEvent(ctx context.Context, event models.PaymentWebhookEvent) (*ReconcileResult, error) {
	if event.Type != orderPaidEventType {
		s.log.Info("Ignoring webhook event", zap.String("type", event.Type))
		return nil, fmt.Errorf("%w: '%s'", ErrUnsupportedEvent, event.Type)
	}
	if event.ID == "" {
		return nil, fmt.Errorf("%w: order.paid event without an id cannot be deduplicated", ErrInvalidWebhook)
	}
	meta := event.Data.Metadata
	if meta.UserID == "" || meta.Credits <= 0 {
		return nil, fmt.Errorf("%w: metadata requires userId and positive credits", ErrInvalidWebhook)
	}

	key := webhookTokenPrefix + event.ID
	applied, err := s.txnRepo.CommitPurchase(ctx, &models.Transaction{
		Token:   key,
		ItemID:  meta.ItemID,
		UserID:  meta.UserID,
		Credits: meta.Credits,
		ProviderResponse: map[string]interface{}{
			"eventId": event.ID,
			"type":    event.Type,
		},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to commit webhook purchase for event '%s': %w", event.ID, err)
	}
	if applied {
		s.audit(ctx, models.AuditLog{
			UserID:     meta.UserID,
			Action:     models.AuditActionPaymentReconciled,
			TargetType: "TRANSACTION",
			TargetID:   key,
			Details:    map[string]interface{}{"credits": meta.Credits, "source": "webhook"},
		})
	}
	return &ReconcileResult{
		UserID:         meta.UserID,
		PackageID:      meta.ItemID,
		Credits:        meta.Credits,
		AlreadySettled: !applied,
	}, nil
}

// audit records an entry, logging but never failing the operation on error.
func (s *paymentService) audit(ctx context.Context, entry models.AuditLog) {
	if s.auditService == nil {
		return
	}
	if err := s.auditService.CreateAuditLog(ctx, entry); err != nil {
		s.log.Warn("Failed to write audit log", zap.String("action", entry.Action), zap.Error(err))
	}
}
