package api

// ErrorResponse is the standard JSON error envelope.
type ErrorResponse struct {
	Error   string `json:"error"`
	Details string `json:"details,omitempty"`
}

// SuccessResponse is the standard JSON envelope for operations that have no
// natural resource body.
type SuccessResponse struct {
	Message string `json:"message"`
}

// EligibilityResponse answers "can this user create another song right now".
type EligibilityResponse struct {
	CanCreate bool   `json:"canCreate"`
	Reason    string `json:"reason,omitempty"`
}

// CreditStatusResponse is the user-facing view of the credit ledger.
type CreditStatusResponse struct {
	FreeSongsUsed     int  `json:"freeSongsUsed"`
	FreeSongsLimit    int  `json:"freeSongsLimit"`
	PaidCredits       int  `json:"paidCredits"`
	TotalSongsCreated int  `json:"totalSongsCreated"`
	CanCreate         bool `json:"canCreate"`
}

// ReconcileRequest carries the gateway token the client received on redirect.
type ReconcileRequest struct {
	Token string `json:"token" binding:"required"`
}
