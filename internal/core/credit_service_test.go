package core

import (
	"context"
	"errors"
	"sync"
	"testing"

	"wishtune-backend-go/internal/models"
)

func TestGetUserCredits_LazyInit(t *testing.T) {
	repo := newMockCreditRepo()
	svc := NewCreditService(repo)

	credits, err := svc.GetUserCredits(context.Background(), "user-1")
	if err != nil {
		t.Fatalf("GetUserCredits: %v", err)
	}
	if credits.FreeSongsUsed != 0 || credits.PaidCredits != 0 || credits.TotalSongsCreated != 0 {
		t.Errorf("expected zero-balance record, got %+v", credits)
	}
	if !credits.CanCreateSong() {
		t.Error("a brand-new user should hold the free tier")
	}
}

func TestCanCreateSong(t *testing.T) {
	tests := []struct {
		name      string
		ledger    models.UserCredits
		canCreate bool
	}{
		{"new user", models.UserCredits{}, true},
		{"one free song left", models.UserCredits{FreeSongsUsed: models.FreeSongLimit - 1}, true},
		{"free tier exhausted, no paid", models.UserCredits{FreeSongsUsed: models.FreeSongLimit}, false},
		{"free tier exhausted, paid credits", models.UserCredits{FreeSongsUsed: models.FreeSongLimit, PaidCredits: 1}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			repo := newMockCreditRepo()
			repo.set("user-1", tt.ledger)
			svc := NewCreditService(repo)

			canCreate, reason, err := svc.CanCreateSong(context.Background(), "user-1")
			if err != nil {
				t.Fatalf("CanCreateSong: %v", err)
			}
			if canCreate != tt.canCreate {
				t.Errorf("canCreate = %v, want %v", canCreate, tt.canCreate)
			}
			if !canCreate && reason == "" {
				t.Error("a negative answer must carry a user-facing reason")
			}
		})
	}
}

func TestDeductCreditForSong_FreeSlotsBeforePaid(t *testing.T) {
	repo := newMockCreditRepo()
	repo.set("user-1", models.UserCredits{FreeSongsUsed: models.FreeSongLimit - 1, PaidCredits: 2})
	svc := NewCreditService(repo)

	// First debit takes the remaining free slot, paid balance untouched.
	credits, err := svc.DeductCreditForSong(context.Background(), "user-1")
	if err != nil {
		t.Fatalf("first debit: %v", err)
	}
	if credits.FreeSongsUsed != models.FreeSongLimit || credits.PaidCredits != 2 {
		t.Errorf("after first debit: %+v", credits)
	}

	// Second debit must come out of the paid balance.
	credits, err = svc.DeductCreditForSong(context.Background(), "user-1")
	if err != nil {
		t.Fatalf("second debit: %v", err)
	}
	if credits.PaidCredits != 1 {
		t.Errorf("paid credits = %d, want 1", credits.PaidCredits)
	}
	if credits.TotalSongsCreated != 2 {
		t.Errorf("totalSongsCreated = %d, want 2", credits.TotalSongsCreated)
	}
}

func TestDeductCreditForSong_NoCreditsLeavesLedgerUnchanged(t *testing.T) {
	repo := newMockCreditRepo()
	repo.set("user-1", models.UserCredits{FreeSongsUsed: models.FreeSongLimit, TotalSongsCreated: 5})
	svc := NewCreditService(repo)

	_, err := svc.DeductCreditForSong(context.Background(), "user-1")
	if !errors.Is(err, ErrNoCredits) {
		t.Fatalf("err = %v, want ErrNoCredits", err)
	}

	after := repo.get("user-1")
	if after.FreeSongsUsed != models.FreeSongLimit || after.PaidCredits != 0 || after.TotalSongsCreated != 5 {
		t.Errorf("ledger changed by failed debit: %+v", after)
	}
}

func TestDeductCreditForSong_ConcurrentLastCredit(t *testing.T) {
	repo := newMockCreditRepo()
	repo.set("user-1", models.UserCredits{FreeSongsUsed: models.FreeSongLimit, PaidCredits: 1})
	svc := NewCreditService(repo)

	const workers = 16
	var wg sync.WaitGroup
	results := make(chan error, workers)
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := svc.DeductCreditForSong(context.Background(), "user-1")
			results <- err
		}()
	}
	wg.Wait()
	close(results)

	successes := 0
	for err := range results {
		if err == nil {
			successes++
		} else if !errors.Is(err, ErrNoCredits) {
			t.Errorf("unexpected error: %v", err)
		}
	}
	if successes != 1 {
		t.Errorf("the last credit was consumed %d times, want exactly 1", successes)
	}
	if after := repo.get("user-1"); after.PaidCredits != 0 {
		t.Errorf("paid credits = %d, want 0", after.PaidCredits)
	}
}

func TestDeductCreditForSong_InitializesAbsentRecord(t *testing.T) {
	repo := newMockCreditRepo()
	svc := NewCreditService(repo)

	// A user can debit before ever having read their ledger.
	credits, err := svc.DeductCreditForSong(context.Background(), "fresh-user")
	if err != nil {
		t.Fatalf("debit on absent record: %v", err)
	}
	if credits.FreeSongsUsed != 1 || credits.TotalSongsCreated != 1 {
		t.Errorf("first debit on fresh user: %+v", credits)
	}
}

func TestAddPaidCredits_RejectsNonPositiveAmounts(t *testing.T) {
	repo := newMockCreditRepo()
	svc := NewCreditService(repo)

	for _, amount := range []int{0, -5} {
		if err := svc.AddPaidCredits(context.Background(), "user-1", amount); err == nil {
			t.Errorf("AddPaidCredits(%d) succeeded, want error", amount)
		}
	}
	if after := repo.get("user-1"); after.PaidCredits != 0 {
		t.Errorf("paid credits = %d, want 0", after.PaidCredits)
	}
}
