package core

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"wishtune-backend-go/internal/db"
	"wishtune-backend-go/internal/models"
)

// Custom errors for the GenerationCallbackService.
var (
	ErrInvalidCallback = errors.New("invalid generation callback payload")
	// ErrTaskNotFound is reported when no song matches the callback's task
	// id. Non-fatal: the provider may retry, or the payload may belong to a
	// test task.
	ErrTaskNotFound = errors.New("no song record for task")
)

// generationCallbackService implements the GenerationCallbackService interface.
type generationCallbackService struct {
	songRepo db.SongRepository
	log      *zap.Logger
}

// NewGenerationCallbackService creates a new GenerationCallbackService instance.
func NewGenerationCallbackService(sr db.SongRepository, logger *zap.Logger) GenerationCallbackService {
	return &generationCallbackService{songRepo: sr, log: logger}
}

// HandleCallback validates the provider notification, maps its vocabulary
// onto the song state machine and applies the update via the taskId index.
// A stale delivery for a settled task is acknowledged without being applied.
func (s *generationCallbackService) HandleCallback(ctx context.Context, req models.GenerationCallbackRequest) error {
	if req.Code != 200 {
		return fmt.Errorf("%w: code %d (%s)", ErrInvalidCallback, req.Code, req.Msg)
	}
	if req.Data == nil || req.Data.TaskID == "" {
		return fmt.Errorf("%w: missing data or task_id", ErrInvalidCallback)
	}

	status := mapCallbackType(req.Data.CallbackType)
	variations := mapVariations(req.Data.Data, status)

	err := s.songRepo.UpdateStatusByTaskID(ctx, req.Data.TaskID, status, variations)
	if err != nil {
		if errors.Is(err, db.ErrStaleTransition) {
			s.log.Info("Ignoring stale generation callback",
				zap.String("taskId", req.Data.TaskID),
				zap.String("callbackType", req.Data.CallbackType),
			)
			return nil
		}
		if errors.Is(err, db.ErrNotFound) {
			return fmt.Errorf("%w: taskId '%s'", ErrTaskNotFound, req.Data.TaskID)
		}
		return fmt.Errorf("failed to apply generation callback for taskId '%s': %w", req.Data.TaskID, err)
	}

	s.log.Info("Generation callback applied",
		zap.String("taskId", req.Data.TaskID),
		zap.String("status", string(status)),
		zap.Int("variations", len(variations)),
	)
	return nil
}

// mapCallbackType translates the provider's callbackType vocabulary into
// song statuses. "text" and "first" are intermediate notifications while the
// provider streams partial results.
func mapCallbackType(callbackType string) models.SongStatus {
	switch callbackType {
	case "complete":
		return models.SongStatusComplete
	case "error", "fail":
		return models.SongStatusFailed
	case "text", "first":
		return models.SongStatusProcessing
	default:
		return models.SongStatusProcessing
	}
}

// mapVariations converts provider result items into SongVariations.
func mapVariations(items []models.GenerationCallbackItem, songStatus models.SongStatus) []models.SongVariation {
	if len(items) == 0 {
		return nil
	}
	variationStatus := models.SongStatusProcessing
	if songStatus == models.SongStatusComplete {
		variationStatus = models.SongStatusComplete
	}

	variations := make([]models.SongVariation, 0, len(items))
	for _, item := range items {
		variations = append(variations, models.SongVariation{
			ID:       item.ID,
			Title:    item.Title,
			Duration: formatDuration(item.Duration),
			AudioURL: item.AudioURL,
			VideoURL: item.VideoURL,
			ImageURL: item.ImageURL,
			Status:   variationStatus,
			Prompt:   item.Prompt,
			Tags:     item.Tags,
		})
	}
	return variations
}

// formatDuration renders raw provider seconds as "m:ss", defaulting missing
// or bogus values to "0:00".
func formatDuration(seconds float64) string {
	if seconds <= 0 {
		return "0:00"
	}
	total := int(seconds)
	return fmt.Sprintf("%d:%02d", total/60, total%60)
}
