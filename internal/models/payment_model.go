package models

import "time"

// TransactionStatusSuccess is the only status a journal entry is ever written
// with. The entry's existence is the idempotency guard: once a token maps to
// a SUCCESS entry, no further credit-granting may occur for that token.
const TransactionStatusSuccess = "SUCCESS"

// Transaction is the payment idempotency journal entry, keyed by the opaque
// payment-gateway token (or the provider event id for webhook deliveries).
type Transaction struct {
	Token            string                 `json:"token" firestore:"-"` // Document ID
	Status           string                 `json:"status" firestore:"status"`
	ItemID           string                 `json:"itemId" firestore:"itemId"`
	UserID           string                 `json:"userId" firestore:"userId"`
	Credits          int                    `json:"credits" firestore:"credits"`
	Timestamp        time.Time              `json:"timestamp" firestore:"timestamp,serverTimestamp"`
	ProviderResponse map[string]interface{} `json:"providerResponse,omitempty" firestore:"providerResponse,omitempty"`
}

// CreditPackage is reference data describing a purchasable credit bundle.
// Read-only from this service's perspective.
type CreditPackage struct {
	ID          string  `json:"id" firestore:"-"` // Document ID
	Name        string  `json:"name" firestore:"name"`
	Credits     int     `json:"credits" firestore:"credits"`
	Price       float64 `json:"price" firestore:"price"`
	Description string  `json:"description,omitempty" firestore:"description,omitempty"`
	Active      bool    `json:"active" firestore:"active"`
}

// PaymentSession is written at checkout initialization, keyed by the gateway
// token, so the purchaser's identity survives a lost browser session by the
// time the asynchronous callback arrives.
type PaymentSession struct {
	Token          string    `json:"token" firestore:"-"` // Document ID
	UserID         string    `json:"userId" firestore:"userId"`
	ConversationID string    `json:"conversationId" firestore:"conversationId"`
	Price          float64   `json:"price" firestore:"price"`
	Locale         string    `json:"locale,omitempty" firestore:"locale,omitempty"`
	CreatedAt      time.Time `json:"createdAt" firestore:"createdAt,serverTimestamp"`
}
