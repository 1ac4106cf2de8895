package models

import "time"

// Audit actions recorded by the core services. PaymentSessionLost entries are
// the support-side trail for payments whose purchaser identity could not be
// recovered; they must carry the gateway token in Details.
const (
	AuditActionPaymentReconciled   = "PAYMENT_RECONCILED"
	AuditActionPaymentSessionLost  = "PAYMENT_SESSION_LOST"
	AuditActionPaymentVerifyFailed = "PAYMENT_VERIFY_FAILED"
	AuditActionSongCreated         = "SONG_CREATED"
	AuditActionSongDeleted         = "SONG_DELETED"
)

// AuditLog represents an audit trail event.
type AuditLog struct {
	ID         string                 `json:"id" firestore:"-"`
	Timestamp  time.Time              `json:"timestamp" firestore:"timestamp,serverTimestamp"`
	UserID     string                 `json:"userId,omitempty" firestore:"userId,omitempty"` // Empty when identity is unknown
	Action     string                 `json:"action" firestore:"action"`
	TargetType string                 `json:"targetType,omitempty" firestore:"targetType,omitempty"` // e.g. "SONG", "TRANSACTION"
	TargetID   string                 `json:"targetId,omitempty" firestore:"targetId,omitempty"`
	Details    map[string]interface{} `json:"details,omitempty" firestore:"details,omitempty"`
}
