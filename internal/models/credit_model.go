package models

import "time"

// FreeSongLimit is the number of songs a user may create before a paid
// credit is required.
const FreeSongLimit = 2

// UserCredits tracks a user's song-credit balance. The document ID is the
// Firebase Auth UID. Records are created lazily on first read or first debit
// and are only ever mutated inside a Firestore transaction.
type UserCredits struct {
	UserID            string    `json:"userId" firestore:"-"` // Document ID
	FreeSongsUsed     int       `json:"freeSongsUsed" firestore:"freeSongsUsed"`
	PaidCredits       int       `json:"paidCredits" firestore:"paidCredits"` // Never negative
	TotalSongsCreated int       `json:"totalSongsCreated" firestore:"totalSongsCreated"`
	CreatedAt         time.Time `json:"createdAt" firestore:"createdAt,serverTimestamp"`
	UpdatedAt         time.Time `json:"updatedAt" firestore:"updatedAt,serverTimestamp"`
}

// HasFreeSongs reports whether the free tier still has headroom.
func (uc *UserCredits) HasFreeSongs() bool {
	return uc.FreeSongsUsed < FreeSongLimit
}

// CanCreateSong reports whether a debit would succeed right now.
func (uc *UserCredits) CanCreateSong() bool {
	return uc.HasFreeSongs() || uc.PaidCredits > 0
}
