package core

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"wishtune-backend-go/internal/db"
	"wishtune-backend-go/internal/generation"
	"wishtune-backend-go/internal/models"
)

// Custom errors for the SongService.
var (
	ErrSongNotFound    = errors.New("song not found")
	ErrForbiddenAccess = errors.New("user does not have permission for this action on the song")
	ErrNotEligible     = errors.New("user is not eligible to create a song")
	ErrRateLimited     = errors.New("too many song creations, try again later")
)

// Anonymous creations are capped per visitor by the injected rate limiter,
// not by the credit ledger.
const (
	anonymousSongLimit  = 3
	anonymousSongWindow = 24 * time.Hour
)

// songService implements the SongService interface.
type songService struct {
	songRepo      db.SongRepository
	creditService CreditService
	provider      GenerationProvider
	auditService  AuditService
	rateLimiter   RateLimiter
	callbackURL   string
	log           *zap.Logger
}

// NewSongService creates a new SongService instance. callbackURL is the
// publicly reachable endpoint the generation provider posts completions to.
func NewSongService(
	sr db.SongRepository,
	cs CreditService,
	provider GenerationProvider,
	as AuditService,
	rl RateLimiter,
	callbackURL string,
	logger *zap.Logger,
) SongService {
	return &songService{
		songRepo:      sr,
		creditService: cs,
		provider:      provider,
		auditService:  as,
		rateLimiter:   rl,
		callbackURL:   callbackURL,
		log:           logger,
	}
}

// CreateSong runs the synchronous creation flow: eligibility check for
// authenticated callers (anonymous callers are rate limited instead), song
// record in pending state with a fresh task id, then — for authenticated
// callers — a synchronous credit debit. A failed debit after the record
// exists is surfaced as an error: the record is cheap to recreate and
// credits must never be silently lost or granted.
func (s *songService) CreateSong(ctx context.Context, caller Identity, req models.CreateSongRequest) (*models.SongRecord, error) {
	if caller.IsAnonymous() {
		result := s.rateLimiter.Check("songs:anon:"+caller.StorageID(), anonymousSongLimit, anonymousSongWindow)
		if !result.Allowed {
			return nil, fmt.Errorf("%w: limit resets at %s", ErrRateLimited, result.ResetAt.UTC().Format(time.RFC3339))
		}
	} else {
		canCreate, reason, err := s.creditService.CanCreateSong(ctx, caller.UserID())
		if err != nil {
			return nil, fmt.Errorf("eligibility check failed: %w", err)
		}
		if !canCreate {
			return nil, fmt.Errorf("%w: %s", ErrNotEligible, reason)
		}
	}

	taskID, err := s.startGenerationTask(ctx, req)
	if err != nil {
		return nil, err
	}

	song := &models.SongRecord{
		ID:              uuid.NewString(),
		UserID:          caller.StorageID(),
		Name:            req.Name,
		CelebrationType: req.CelebrationType,
		Style:           req.Style,
		Status:          models.SongStatusPending,
		Variations:      []models.SongVariation{},
		TaskID:          taskID,
	}
	if err := s.songRepo.Save(ctx, song); err != nil {
		return nil, fmt.Errorf("failed to create song record: %w", err)
	}

	if !caller.IsAnonymous() {
		if _, err := s.creditService.DeductCreditForSong(ctx, caller.UserID()); err != nil {
			// ErrNoCredits here means the balance changed between the
			// eligibility check and the debit; either way the creation fails.
			s.log.Warn("Credit debit failed after song record creation",
				zap.String("songId", song.ID),
				zap.String("userId", caller.UserID()),
				zap.Error(err),
			)
			return nil, fmt.Errorf("failed to debit credit for song '%s': %w", song.ID, err)
		}
	}

	s.audit(ctx, models.AuditLog{
		UserID:     caller.StorageID(),
		Action:     models.AuditActionSongCreated,
		TargetType: "SONG",
		TargetID:   song.ID,
		Details:    map[string]interface{}{"taskId": taskID, "anonymous": caller.IsAnonymous()},
	})
	return song, nil
}

// startGenerationTask submits the composition to the provider when one is
// configured, otherwise mints a local task id (offline development and
// tests still get a correlatable record).
func (s *songService) startGenerationTask(ctx context.Context, req models.CreateSongRequest) (string, error) {
	if s.provider == nil || !s.provider.Configured() {
		return uuid.NewString(), nil
	}
	taskID, err := s.provider.StartTask(ctx, generation.TaskParams{
		Prompt:          req.Prompt,
		Style:           req.Style,
		Title:           req.Name,
		CelebrationType: req.CelebrationType,
		CallbackURL:     s.callbackURL,
	})
	if err != nil {
		return "", fmt.Errorf("failed to start generation task: %w", err)
	}
	return taskID, nil
}

// GetUserSongs returns the caller's songs, newest first.
func (s *songService) GetUserSongs(ctx context.Context, caller Identity) ([]*models.SongRecord, error) {
	songs, err := s.songRepo.GetByUserID(ctx, caller.StorageID())
	if err != nil {
		return nil, fmt.Errorf("failed to list songs: %w", err)
	}
	return songs, nil
}

// GetSongByID returns a single song, enforcing ownership.
func (s *songService) GetSongByID(ctx context.Context, caller Identity, songID string) (*models.SongRecord, error) {
	song, err := s.songRepo.GetByID(ctx, songID)
	if err != nil {
		if errors.Is(err, db.ErrNotFound) {
			return nil, fmt.Errorf("%w: id '%s'", ErrSongNotFound, songID)
		}
		return nil, fmt.Errorf("failed to get song '%s': %w", songID, err)
	}
	if song.UserID != caller.StorageID() {
		return nil, fmt.Errorf("%w: song '%s'", ErrForbiddenAccess, songID)
	}
	return song, nil
}

// SaveSong persists the caller's chosen variations. Status is deliberately
// left untouched: completion is driven only by the generation callback, so a
// client cannot assert a song complete.
func (s *songService) SaveSong(ctx context.Context, caller Identity, songID string, req models.SaveSongRequest) (*models.SongRecord, error) {
	song, err := s.GetSongByID(ctx, caller, songID)
	if err != nil {
		return nil, err
	}
	if req.Variations != nil {
		song.Variations = req.Variations
	}
	if err := s.songRepo.Save(ctx, song); err != nil {
		return nil, fmt.Errorf("failed to save song '%s': %w", songID, err)
	}
	return song, nil
}

// DeleteSong removes the caller's song. Ownership mismatch maps to
// ErrForbiddenAccess, distinct from ErrSongNotFound.
func (s *songService) DeleteSong(ctx context.Context, caller Identity, songID string) error {
	err := s.songRepo.Delete(ctx, songID, caller.StorageID())
	if err != nil {
		if errors.Is(err, db.ErrNotFound) {
			return fmt.Errorf("%w: id '%s'", ErrSongNotFound, songID)
		}
		if errors.Is(err, db.ErrUnauthorized) {
			return fmt.Errorf("%w: song '%s'", ErrForbiddenAccess, songID)
		}
		return fmt.Errorf("failed to delete song '%s': %w", songID, err)
	}

	s.audit(ctx, models.AuditLog{
		UserID:     caller.StorageID(),
		Action:     models.AuditActionSongDeleted,
		TargetType: "SONG",
		TargetID:   songID,
	})
	return nil
}

// audit records an entry, logging but never failing the operation on error.
func (s *songService) audit(ctx context.Context, entry models.AuditLog) {
	if s.auditService == nil {
		return
	}
	if err := s.auditService.CreateAuditLog(ctx, entry); err != nil {
		s.log.Warn("Failed to write audit log", zap.String("action", entry.Action), zap.Error(err))
	}
}
