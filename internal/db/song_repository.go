package db

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sort"
	"time"

	"cloud.google.com/go/firestore"
	"google.golang.org/api/iterator"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"wishtune-backend-go/internal/models"
)

const songsCollection = "songs"

// firestoreSongRepository implements the SongRepository interface using Firestore.
type firestoreSongRepository struct {
	client *firestore.Client
}

// NewFirestoreSongRepository creates a new instance of firestoreSongRepository.
func NewFirestoreSongRepository(client *firestore.Client) SongRepository {
	if client == nil {
		log.Fatal("Firestore client is not initialized for SongRepository.")
	}
	return &firestoreSongRepository{client: client}
}

// Save upserts a song document by its ID. On an existing document the
// original createdAt is preserved; updatedAt is always refreshed via the
// serverTimestamp tag.
func (r *firestoreSongRepository) Save(ctx context.Context, song *models.SongRecord) error {
	if song.ID == "" {
		return errors.New("song ID cannot be empty for Save operation")
	}
	docRef := r.client.Collection(songsCollection).Doc(song.ID)

	docSnap, err := docRef.Get(ctx)
	if err == nil {
		var existing models.SongRecord
		if decErr := docSnap.DataTo(&existing); decErr == nil {
			song.CreatedAt = existing.CreatedAt
		}
	} else if status.Code(err) != codes.NotFound {
		return fmt.Errorf("failed to read song '%s' before save: %w", song.ID, err)
	}
	song.UpdatedAt = time.Time{} // Re-arm serverTimestamp

	if _, err := docRef.Set(ctx, song); err != nil {
		return fmt.Errorf("failed to save song '%s': %w", song.ID, err)
	}
	return nil
}

// GetByID retrieves a song document from Firestore by its ID.
func (r *firestoreSongRepository) GetByID(ctx context.Context, songID string) (*models.SongRecord, error) {
	if songID == "" {
		return nil, errors.New("songID cannot be empty for GetByID operation")
	}
	docSnap, err := r.client.Collection(songsCollection).Doc(songID).Get(ctx)
	if err != nil {
		if status.Code(err) == codes.NotFound {
			return nil, fmt.Errorf("song with ID '%s' not found: %w", songID, ErrNotFound)
		}
		return nil, fmt.Errorf("failed to get song with ID '%s': %w", songID, err)
	}

	var song models.SongRecord
	if err := docSnap.DataTo(&song); err != nil {
		return nil, fmt.Errorf("failed to decode song data for ID '%s': %w", songID, err)
	}
	song.ID = docSnap.Ref.ID
	return &song, nil
}

// GetByUserID retrieves all songs owned by a user, newest first. If the
// composite index backing the ordered query is missing, Firestore answers
// FailedPrecondition; the fallback fetches unordered and sorts in memory,
// producing the same ordering.
func (r *firestoreSongRepository) GetByUserID(ctx context.Context, userID string) ([]*models.SongRecord, error) {
	if userID == "" {
		return nil, errors.New("userID cannot be empty for GetByUserID operation")
	}

	ordered := r.client.Collection(songsCollection).
		Where("userId", "==", userID).
		OrderBy("createdAt", firestore.Desc)

	songs, err := r.collectSongs(ordered.Documents(ctx))
	if err == nil {
		return songs, nil
	}
	if status.Code(err) != codes.FailedPrecondition {
		return nil, fmt.Errorf("failed to list songs for user '%s': %w", userID, err)
	}

	log.Printf("Ordered songs query unavailable for user '%s' (missing index), falling back to in-memory sort.", userID)
	unordered := r.client.Collection(songsCollection).Where("userId", "==", userID)
	songs, err = r.collectSongs(unordered.Documents(ctx))
	if err != nil {
		return nil, fmt.Errorf("failed to list songs for user '%s': %w", userID, err)
	}
	sort.SliceStable(songs, func(i, j int) bool {
		return songs[i].CreatedAt.After(songs[j].CreatedAt)
	})
	return songs, nil
}

func (r *firestoreSongRepository) collectSongs(iter *firestore.DocumentIterator) ([]*models.SongRecord, error) {
	defer iter.Stop()
	var songs []*models.SongRecord
	for {
		doc, err := iter.Next()
		if err == iterator.Done {
			break
		}
		if err != nil {
			return nil, err
		}
		var song models.SongRecord
		if err := doc.DataTo(&song); err != nil {
			log.Printf("Error decoding song data (ID: %s): %v. Skipping.", doc.Ref.ID, err)
			continue
		}
		song.ID = doc.Ref.ID
		songs = append(songs, &song)
	}
	return songs, nil
}

// UpdateStatusByTaskID locates the song via the taskId secondary index
// (limit 1) and applies the new status and variations inside a transaction.
// The current status is re-read in the transaction and terminal states are
// never regressed: a stale "processing" callback arriving after "complete"
// is rejected with ErrStaleTransition.
func (r *firestoreSongRepository) UpdateStatusByTaskID(ctx context.Context, taskID string, newStatus models.SongStatus, variations []models.SongVariation) error {
	if taskID == "" {
		return errors.New("taskID cannot be empty for UpdateStatusByTaskID operation")
	}

	iter := r.client.Collection(songsCollection).
		Where("taskId", "==", taskID).
		Limit(1).
		Documents(ctx)
	defer iter.Stop()

	doc, err := iter.Next()
	if err == iterator.Done {
		return fmt.Errorf("no song with taskId '%s': %w", taskID, ErrNotFound)
	}
	if err != nil {
		return fmt.Errorf("failed to query song by taskId '%s': %w", taskID, err)
	}
	docRef := doc.Ref

	err = r.client.RunTransaction(ctx, func(ctx context.Context, tx *firestore.Transaction) error {
		docSnap, err := tx.Get(docRef)
		if err != nil {
			if status.Code(err) == codes.NotFound {
				return fmt.Errorf("song for taskId '%s' disappeared: %w", taskID, ErrNotFound)
			}
			return fmt.Errorf("failed to read song in transaction: %w", err)
		}

		var song models.SongRecord
		if err := docSnap.DataTo(&song); err != nil {
			return fmt.Errorf("failed to decode song in transaction: %w", err)
		}
		if song.Status != newStatus && !song.Status.CanTransitionTo(newStatus) {
			return fmt.Errorf("song '%s' is '%s', refusing '%s': %w", docRef.ID, song.Status, newStatus, ErrStaleTransition)
		}

		updates := []firestore.Update{
			{Path: "status", Value: newStatus},
			{Path: "updatedAt", Value: firestore.ServerTimestamp},
		}
		if variations != nil {
			updates = append(updates, firestore.Update{Path: "variations", Value: variations})
		}
		return tx.Update(docRef, updates)
	})
	if err != nil {
		if errors.Is(err, ErrStaleTransition) || errors.Is(err, ErrNotFound) {
			return err
		}
		return fmt.Errorf("status update transaction failed for taskId '%s': %w", taskID, err)
	}
	return nil
}

// Delete removes a song document after verifying ownership. An ownership
// mismatch returns ErrUnauthorized and leaves the record in place.
func (r *firestoreSongRepository) Delete(ctx context.Context, songID, userID string) error {
	if songID == "" || userID == "" {
		return errors.New("songID and userID cannot be empty for Delete operation")
	}

	song, err := r.GetByID(ctx, songID)
	if err != nil {
		return err // Carries ErrNotFound when absent
	}
	if song.UserID != userID {
		return fmt.Errorf("song '%s' is owned by another user: %w", songID, ErrUnauthorized)
	}

	if _, err := r.client.Collection(songsCollection).Doc(songID).Delete(ctx); err != nil {
		return fmt.Errorf("failed to delete song with ID '%s': %w", songID, err)
	}
	return nil
}
