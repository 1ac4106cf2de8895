package db

import "errors"

// Sentinel errors shared by the Firestore repositories.
var (
	// ErrNotFound is returned when a document does not exist.
	ErrNotFound = errors.New("document not found")
	// ErrUnauthorized is returned when an ownership check fails. Distinct
	// from ErrNotFound so handlers can answer 403 rather than 404.
	ErrUnauthorized = errors.New("caller does not own this document")
	// ErrNoCredits aborts a debit transaction when the user has exhausted
	// the free tier and holds no paid credits.
	ErrNoCredits = errors.New("no credits available")
	// ErrStaleTransition is returned when a status update would move a song
	// record backwards out of a terminal state.
	ErrStaleTransition = errors.New("stale status transition rejected")
)
