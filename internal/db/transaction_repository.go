package db

import (
	"context"
	"errors"
	"fmt"
	"log"

	"cloud.google.com/go/firestore"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"wishtune-backend-go/internal/models"
)

const transactionsCollection = "transactions"

// firestoreTransactionRepository implements the TransactionRepository
// interface using Firestore. The journal entry and the ledger credit are
// written in one transaction; if the process dies between them the whole
// transaction aborts, so replaying the same token stays safe.
type firestoreTransactionRepository struct {
	client *firestore.Client
}

// NewFirestoreTransactionRepository creates a new instance of firestoreTransactionRepository.
func NewFirestoreTransactionRepository(client *firestore.Client) TransactionRepository {
	if client == nil {
		log.Fatal("Firestore client is not initialized for TransactionRepository.")
	}
	return &firestoreTransactionRepository{client: client}
}

// GetByToken retrieves the journal entry for a gateway token.
func (r *firestoreTransactionRepository) GetByToken(ctx context.Context, token string) (*models.Transaction, error) {
	if token == "" {
		return nil, errors.New("token cannot be empty for GetByToken operation")
	}
	docSnap, err := r.client.Collection(transactionsCollection).Doc(token).Get(ctx)
	if err != nil {
		if status.Code(err) == codes.NotFound {
			return nil, fmt.Errorf("transaction for token '%s' not found: %w", token, ErrNotFound)
		}
		return nil, fmt.Errorf("failed to get transaction for token '%s': %w", token, err)
	}

	var txn models.Transaction
	if err := docSnap.DataTo(&txn); err != nil {
		return nil, fmt.Errorf("failed to decode transaction for token '%s': %w", token, err)
	}
	txn.Token = docSnap.Ref.ID
	return &txn, nil
}

// CommitPurchase grants the purchased credits and writes the journal entry
// in a single Firestore transaction. The journal is re-checked inside the
// transaction: two concurrent deliveries of the same token can both pass the
// caller's fast idempotency check, but only one of them commits here.
func (r *firestoreTransactionRepository) CommitPurchase(ctx context.Context, txn *models.Transaction) (bool, error) {
	if txn == nil || txn.Token == "" {
		return false, errors.New("transaction with a token is required for CommitPurchase")
	}
	if txn.UserID == "" {
		return false, errors.New("transaction userID is required for CommitPurchase")
	}
	if txn.Credits <= 0 {
		return false, fmt.Errorf("credit amount must be positive, got %d", txn.Credits)
	}

	journalRef := r.client.Collection(transactionsCollection).Doc(txn.Token)
	creditsRef := r.client.Collection(userCreditsCollection).Doc(txn.UserID)

	applied := false
	err := r.client.RunTransaction(ctx, func(ctx context.Context, tx *firestore.Transaction) error {
		// Re-check the journal: duplicate delivery settles as a no-op.
		journalSnap, err := tx.Get(journalRef)
		if err != nil && status.Code(err) != codes.NotFound {
			return fmt.Errorf("failed to read journal entry in transaction: %w", err)
		}
		if err == nil && journalSnap.Exists() {
			applied = false
			return nil
		}

		// All reads must precede writes in a Firestore transaction.
		creditsSnap, err := tx.Get(creditsRef)
		creditsExist := err == nil && creditsSnap.Exists()
		if err != nil && status.Code(err) != codes.NotFound {
			return fmt.Errorf("failed to read credits in transaction: %w", err)
		}

		if creditsExist {
			if err := tx.Update(creditsRef, []firestore.Update{
				{Path: "paidCredits", Value: firestore.Increment(txn.Credits)},
				{Path: "updatedAt", Value: firestore.ServerTimestamp},
			}); err != nil {
				return fmt.Errorf("failed to credit ledger in transaction: %w", err)
			}
		} else {
			if err := tx.Set(creditsRef, &models.UserCredits{UserID: txn.UserID, PaidCredits: txn.Credits}); err != nil {
				return fmt.Errorf("failed to initialize ledger in transaction: %w", err)
			}
		}

		txn.Status = models.TransactionStatusSuccess
		if err := tx.Set(journalRef, txn); err != nil {
			return fmt.Errorf("failed to write journal entry in transaction: %w", err)
		}
		applied = true
		return nil
	})
	if err != nil {
		return false, fmt.Errorf("purchase commit transaction failed for token '%s': %w", txn.Token, err)
	}
	return applied, nil
}
