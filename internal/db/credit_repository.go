package db

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"cloud.google.com/go/firestore"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"wishtune-backend-go/internal/models"
)

const userCreditsCollection = "userCredits"

// firestoreCreditRepository implements the CreditRepository interface using
// Firestore. Every balance mutation runs inside firestore.RunTransaction and
// re-reads the current balance there, which is what makes two concurrent
// debits against a single remaining credit converge to one winner.
type firestoreCreditRepository struct {
	client *firestore.Client
}

// NewFirestoreCreditRepository creates a new instance of firestoreCreditRepository.
func NewFirestoreCreditRepository(client *firestore.Client) CreditRepository {
	if client == nil {
		log.Fatal("Firestore client is not initialized for CreditRepository.")
	}
	return &firestoreCreditRepository{client: client}
}

// GetOrInit retrieves a user's ledger record, creating a zero-balance record
// on first access. CreatedAt/UpdatedAt are populated by serverTimestamp tags.
func (r *firestoreCreditRepository) GetOrInit(ctx context.Context, userID string) (*models.UserCredits, error) {
	if userID == "" {
		return nil, errors.New("userID cannot be empty for GetOrInit operation")
	}
	docRef := r.client.Collection(userCreditsCollection).Doc(userID)

	docSnap, err := docRef.Get(ctx)
	if err == nil {
		var uc models.UserCredits
		if err := docSnap.DataTo(&uc); err != nil {
			return nil, fmt.Errorf("failed to decode credits for user '%s': %w", userID, err)
		}
		uc.UserID = userID
		return &uc, nil
	}
	if status.Code(err) != codes.NotFound {
		return nil, fmt.Errorf("failed to get credits for user '%s': %w", userID, err)
	}

	// First access: lazily initialize the zero-balance record. Create fails
	// with AlreadyExists if a concurrent request won the race, in which case
	// the record it wrote is as good as ours.
	fresh := &models.UserCredits{UserID: userID}
	if _, err := docRef.Create(ctx, fresh); err != nil && status.Code(err) != codes.AlreadyExists {
		return nil, fmt.Errorf("failed to initialize credits for user '%s': %w", userID, err)
	}
	return fresh, nil
}

// DeductCredit consumes one credit inside a single transaction: free slots
// first, then paid credits. ErrNoCredits aborts the transaction and leaves
// the ledger unchanged.
func (r *firestoreCreditRepository) DeductCredit(ctx context.Context, userID string) (*models.UserCredits, error) {
	if userID == "" {
		return nil, errors.New("userID cannot be empty for DeductCredit operation")
	}
	docRef := r.client.Collection(userCreditsCollection).Doc(userID)

	var result models.UserCredits
	err := r.client.RunTransaction(ctx, func(ctx context.Context, tx *firestore.Transaction) error {
		docSnap, err := tx.Get(docRef)
		if err != nil {
			if status.Code(err) != codes.NotFound {
				return fmt.Errorf("failed to read credits in transaction: %w", err)
			}
			// First debit ever: the free tier covers it.
			result = models.UserCredits{UserID: userID, FreeSongsUsed: 1, TotalSongsCreated: 1}
			return tx.Set(docRef, &result)
		}

		var uc models.UserCredits
		if err := docSnap.DataTo(&uc); err != nil {
			return fmt.Errorf("failed to decode credits in transaction: %w", err)
		}
		uc.UserID = userID

		switch {
		case uc.FreeSongsUsed < models.FreeSongLimit:
			uc.FreeSongsUsed++
		case uc.PaidCredits > 0:
			uc.PaidCredits--
		default:
			return ErrNoCredits
		}
		uc.TotalSongsCreated++
		uc.UpdatedAt = time.Time{} // Zero value re-arms the serverTimestamp tag

		result = uc
		return tx.Set(docRef, &uc)
	})
	if err != nil {
		if errors.Is(err, ErrNoCredits) {
			return nil, ErrNoCredits
		}
		return nil, fmt.Errorf("debit transaction failed for user '%s': %w", userID, err)
	}
	return &result, nil
}

// AddCredits increments paidCredits by amount, initializing the record if
// absent. Runs in a transaction so a concurrent debit never observes a
// partially applied grant.
func (r *firestoreCreditRepository) AddCredits(ctx context.Context, userID string, amount int) error {
	if userID == "" {
		return errors.New("userID cannot be empty for AddCredits operation")
	}
	if amount <= 0 {
		return fmt.Errorf("credit amount must be positive, got %d", amount)
	}
	docRef := r.client.Collection(userCreditsCollection).Doc(userID)

	err := r.client.RunTransaction(ctx, func(ctx context.Context, tx *firestore.Transaction) error {
		docSnap, err := tx.Get(docRef)
		if err != nil {
			if status.Code(err) != codes.NotFound {
				return fmt.Errorf("failed to read credits in transaction: %w", err)
			}
			return tx.Set(docRef, &models.UserCredits{UserID: userID, PaidCredits: amount})
		}
		if !docSnap.Exists() {
			return tx.Set(docRef, &models.UserCredits{UserID: userID, PaidCredits: amount})
		}
		return tx.Update(docRef, []firestore.Update{
			{Path: "paidCredits", Value: firestore.Increment(amount)},
			{Path: "updatedAt", Value: firestore.ServerTimestamp},
		})
	})
	if err != nil {
		return fmt.Errorf("credit transaction failed for user '%s': %w", userID, err)
	}
	return nil
}
