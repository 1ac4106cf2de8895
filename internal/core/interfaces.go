package core

import (
	"context"

	"wishtune-backend-go/internal/gateway"
	"wishtune-backend-go/internal/generation"
	"wishtune-backend-go/internal/models"
)

// CreditService defines the credit-ledger operations.
type CreditService interface {
	// GetUserCredits reads or lazily initializes the user's ledger record.
	GetUserCredits(ctx context.Context, userID string) (*models.UserCredits, error)
	// CanCreateSong is a read-derived eligibility decision. When canCreate
	// is false, reason carries the user-facing explanation.
	CanCreateSong(ctx context.Context, userID string) (canCreate bool, reason string, err error)
	// DeductCreditForSong atomically consumes one credit, returning
	// ErrNoCredits when the user has none left.
	DeductCreditForSong(ctx context.Context, userID string) (*models.UserCredits, error)
	// AddPaidCredits grants amount paid credits. Idempotency against
	// duplicate payment events is the journal's job, not this primitive's.
	AddPaidCredits(ctx context.Context, userID string, amount int) error
}

// SongService defines song creation and management operations.
type SongService interface {
	CreateSong(ctx context.Context, caller Identity, req models.CreateSongRequest) (*models.SongRecord, error)
	GetUserSongs(ctx context.Context, caller Identity) ([]*models.SongRecord, error)
	GetSongByID(ctx context.Context, caller Identity, songID string) (*models.SongRecord, error)
	SaveSong(ctx context.Context, caller Identity, songID string, req models.SaveSongRequest) (*models.SongRecord, error)
	DeleteSong(ctx context.Context, caller Identity, songID string) error
}

// PaymentService defines checkout initialization and payment reconciliation.
type PaymentService interface {
	ListPackages(ctx context.Context) ([]*models.CreditPackage, error)
	// InitializeCheckout resolves the package, opens a checkout with the
	// gateway and persists a PaymentSession keyed by the returned token.
	InitializeCheckout(ctx context.Context, userID string, req models.CheckoutRequest) (*CheckoutSession, error)
	// ReconcileCallback turns a gateway redirect callback into an
	// exactly-once credit grant. sessionUserID is the identity from the
	// current authenticated session, or "" when the session was lost.
	ReconcileCallback(ctx context.Context, token, sessionUserID string) (*ReconcileResult, error)
	// HandleWebhookEvent processes a gateway webhook delivery, routing
	// credit grants through the same journal-checked commit keyed by the
	// provider event id.
	HandleWebhookEvent(ctx context.Context, event models.PaymentWebhookEvent) (*ReconcileResult, error)
}

// GenerationCallbackService consumes asynchronous notifications from the
// music generation provider.
type GenerationCallbackService interface {
	HandleCallback(ctx context.Context, req models.GenerationCallbackRequest) error
}

// AuditService defines the interface for audit logging operations.
type AuditService interface {
	CreateAuditLog(ctx context.Context, logEntry models.AuditLog) error
}

// PaymentGateway abstracts the external payment gateway client so the
// reconciliation pipeline can be exercised without live calls.
type PaymentGateway interface {
	Configured() bool
	Initialize(ctx context.Context, params gateway.CheckoutParams) (*gateway.CheckoutResult, error)
	Verify(ctx context.Context, token, conversationID string) (*gateway.PaymentDetail, error)
}

// GenerationProvider abstracts the external music generation client.
type GenerationProvider interface {
	Configured() bool
	StartTask(ctx context.Context, params generation.TaskParams) (string, error)
}

// CheckoutSession is the outcome of InitializeCheckout.
type CheckoutSession struct {
	Token          string  `json:"token"`
	PaymentPageURL string  `json:"paymentPageUrl,omitempty"`
	PackageID      string  `json:"packageId"`
	Price          float64 `json:"price"`
}

// ReconcileResult describes a settled (or already-settled) payment.
type ReconcileResult struct {
	UserID         string `json:"userId"`
	PackageID      string `json:"packageId"`
	Credits        int    `json:"credits"`
	AlreadySettled bool   `json:"alreadySettled"`
}
