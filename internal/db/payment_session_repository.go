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

const paymentSessionsCollection = "paymentSessions"

// firestorePaymentSessionRepository implements the PaymentSessionRepository
// interface using Firestore. Sessions are written at checkout-form
// initialization so the purchaser's identity can be recovered when the
// asynchronous callback arrives without a browser session.
type firestorePaymentSessionRepository struct {
	client *firestore.Client
}

// NewFirestorePaymentSessionRepository creates a new instance of firestorePaymentSessionRepository.
func NewFirestorePaymentSessionRepository(client *firestore.Client) PaymentSessionRepository {
	if client == nil {
		log.Fatal("Firestore client is not initialized for PaymentSessionRepository.")
	}
	return &firestorePaymentSessionRepository{client: client}
}

// Put stores a payment session keyed by the gateway token.
func (r *firestorePaymentSessionRepository) Put(ctx context.Context, session *models.PaymentSession) error {
	if session == nil || session.Token == "" {
		return errors.New("session with a token is required for Put operation")
	}
	if _, err := r.client.Collection(paymentSessionsCollection).Doc(session.Token).Set(ctx, session); err != nil {
		return fmt.Errorf("failed to store payment session for token '%s': %w", session.Token, err)
	}
	return nil
}

// GetByToken retrieves a payment session by the gateway token.
func (r *firestorePaymentSessionRepository) GetByToken(ctx context.Context, token string) (*models.PaymentSession, error) {
	if token == "" {
		return nil, errors.New("token cannot be empty for GetByToken operation")
	}
	docSnap, err := r.client.Collection(paymentSessionsCollection).Doc(token).Get(ctx)
	if err != nil {
		if status.Code(err) == codes.NotFound {
			return nil, fmt.Errorf("payment session for token '%s' not found: %w", token, ErrNotFound)
		}
		return nil, fmt.Errorf("failed to get payment session for token '%s': %w", token, err)
	}

	var session models.PaymentSession
	if err := docSnap.DataTo(&session); err != nil {
		return nil, fmt.Errorf("failed to decode payment session for token '%s': %w", token, err)
	}
	session.Token = docSnap.Ref.ID
	return &session, nil
}
