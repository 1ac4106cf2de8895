package models

import "testing"

func TestSongStatusCanTransitionTo(t *testing.T) {
	tests := []struct {
		from, to SongStatus
		want     bool
	}{
		{SongStatusPending, SongStatusProcessing, true},
		{SongStatusPending, SongStatusComplete, true},
		{SongStatusPending, SongStatusFailed, true},
		{SongStatusProcessing, SongStatusComplete, true},
		{SongStatusProcessing, SongStatusFailed, true},
		{SongStatusProcessing, SongStatusPending, false},
		{SongStatusComplete, SongStatusProcessing, false},
		{SongStatusComplete, SongStatusFailed, false},
		{SongStatusFailed, SongStatusComplete, false},
		{SongStatusFailed, SongStatusProcessing, false},
	}
	for _, tt := range tests {
		if got := tt.from.CanTransitionTo(tt.to); got != tt.want {
			t.Errorf("%s -> %s = %v, want %v", tt.from, tt.to, got, tt.want)
		}
	}
}

func TestUserCreditsEligibility(t *testing.T) {
	tests := []struct {
		name   string
		ledger UserCredits
		want   bool
	}{
		{"fresh record", UserCredits{}, true},
		{"last free slot", UserCredits{FreeSongsUsed: FreeSongLimit - 1}, true},
		{"exhausted free tier", UserCredits{FreeSongsUsed: FreeSongLimit}, false},
		{"paid credits only", UserCredits{FreeSongsUsed: FreeSongLimit, PaidCredits: 3}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.ledger.CanCreateSong(); got != tt.want {
				t.Errorf("CanCreateSong() = %v, want %v", got, tt.want)
			}
		})
	}
}
