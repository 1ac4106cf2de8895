package db

import (
	"context"

	"wishtune-backend-go/internal/models"
)

// CreditRepository defines storage operations for the per-user credit ledger.
// All balance-affecting operations run inside a store transaction and re-read
// current state there; a value read before the transaction is never trusted.
type CreditRepository interface {
	// GetOrInit reads the user's ledger record, lazily creating a
	// zero-balance record on first access.
	GetOrInit(ctx context.Context, userID string) (*models.UserCredits, error)
	// DeductCredit atomically consumes one credit: a free slot if any
	// remain, else one paid credit. Returns ErrNoCredits when neither is
	// available; the ledger is left unchanged in that case.
	DeductCredit(ctx context.Context, userID string) (*models.UserCredits, error)
	// AddCredits increments paidCredits by amount (> 0), initializing the
	// record if absent. Not idempotent against duplicate calls; callers
	// needing exactly-once must go through TransactionRepository.CommitPurchase.
	AddCredits(ctx context.Context, userID string, amount int) error
}

// SongRepository defines storage operations for song generation records.
type SongRepository interface {
	// Save upserts a song by ID. CreatedAt is set only on first insert;
	// UpdatedAt is always refreshed.
	Save(ctx context.Context, song *models.SongRecord) error
	GetByID(ctx context.Context, songID string) (*models.SongRecord, error)
	// GetByUserID returns the user's songs ordered by createdAt descending.
	GetByUserID(ctx context.Context, userID string) ([]*models.SongRecord, error)
	// UpdateStatusByTaskID locates the record via the taskId index (limit 1)
	// and applies the status and variations, rejecting transitions out of a
	// terminal state with ErrStaleTransition.
	UpdateStatusByTaskID(ctx context.Context, taskID string, status models.SongStatus, variations []models.SongVariation) error
	// Delete removes a song after verifying the record's userId matches.
	// Returns ErrUnauthorized on ownership mismatch, ErrNotFound when the
	// record does not exist.
	Delete(ctx context.Context, songID, userID string) error
}

// TransactionRepository defines the payment idempotency journal and the
// atomic credit-grant commit.
type TransactionRepository interface {
	// GetByToken returns the journal entry for a gateway token, or
	// ErrNotFound when the token has never been settled.
	GetByToken(ctx context.Context, token string) (*models.Transaction, error)
	// CommitPurchase, in a single store transaction, re-checks the journal
	// entry for txn.Token, and if absent credits txn.UserID with txn.Credits
	// and writes the journal entry with status SUCCESS. Returns false when
	// the token was already settled (no-op).
	CommitPurchase(ctx context.Context, txn *models.Transaction) (bool, error)
}

// PaymentSessionRepository persists checkout sessions keyed by gateway token.
type PaymentSessionRepository interface {
	Put(ctx context.Context, session *models.PaymentSession) error
	GetByToken(ctx context.Context, token string) (*models.PaymentSession, error)
}

// CreditPackageRepository reads purchasable credit packages (reference data).
type CreditPackageRepository interface {
	GetByID(ctx context.Context, packageID string) (*models.CreditPackage, error)
	ListActive(ctx context.Context) ([]*models.CreditPackage, error)
}

// AuditRepository defines the interface for audit log data storage operations.
type AuditRepository interface {
	Create(ctx context.Context, logEntry models.AuditLog) error
}
