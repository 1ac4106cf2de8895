package core

import (
	"context"
	"errors"
	"fmt"

	"wishtune-backend-go/internal/db"
	"wishtune-backend-go/internal/models"
)

// ErrNoCredits is the user-facing "no credits" outcome. It is a normal,
// expected condition, not a system fault.
var ErrNoCredits = errors.New("no credits available")

// noCreditsReason is returned by CanCreateSong for users who exhausted the
// free tier and hold no paid credits.
const noCreditsReason = "You have used all your free songs. Purchase credits to create more."

// creditService implements the CreditService interface.
type creditService struct {
	creditRepo db.CreditRepository
}

// NewCreditService creates a new CreditService instance.
func NewCreditService(creditRepo db.CreditRepository) CreditService {
	return &creditService{creditRepo: creditRepo}
}

// GetUserCredits reads the user's ledger, lazily creating the zero-balance
// record on first access. A brand-new user therefore already holds the free
// tier without any prior document.
func (s *creditService) GetUserCredits(ctx context.Context, userID string) (*models.UserCredits, error) {
	if s.creditRepo == nil {
		return nil, errors.New("CreditRepository not initialized in CreditService")
	}
	credits, err := s.creditRepo.GetOrInit(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to load credits for user '%s': %w", userID, err)
	}
	return credits, nil
}

// CanCreateSong is a read-derived eligibility decision. It never consumes a
// credit; the authoritative check happens again inside the debit transaction.
func (s *creditService) CanCreateSong(ctx context.Context, userID string) (bool, string, error) {
	credits, err := s.GetUserCredits(ctx, userID)
	if err != nil {
		return false, "", err
	}
	if credits.CanCreateSong() {
		return true, "", nil
	}
	return false, noCreditsReason, nil
}

// DeductCreditForSong consumes one credit atomically: free slots first, then
// paid credits. ErrNoCredits means the ledger is unchanged.
func (s *creditService) DeductCreditForSong(ctx context.Context, userID string) (*models.UserCredits, error) {
	if s.creditRepo == nil {
		return nil, errors.New("CreditRepository not initialized in CreditService")
	}
	credits, err := s.creditRepo.DeductCredit(ctx, userID)
	if err != nil {
		if errors.Is(err, db.ErrNoCredits) {
			return nil, ErrNoCredits
		}
		return nil, fmt.Errorf("failed to deduct credit for user '%s': %w", userID, err)
	}
	return credits, nil
}

// AddPaidCredits grants paid credits via the increment primitive. Callers
// reconciling payment events must go through the transaction journal instead
// of calling this directly.
func (s *creditService) AddPaidCredits(ctx context.Context, userID string, amount int) error {
	if s.creditRepo == nil {
		return errors.New("CreditRepository not initialized in CreditService")
	}
	if amount <= 0 {
		return fmt.Errorf("credit amount must be positive, got %d", amount)
	}
	if err := s.creditRepo.AddCredits(ctx, userID, amount); err != nil {
		return fmt.Errorf("failed to add %d credits for user '%s': %w", amount, userID, err)
	}
	return nil
}
