package models

import "time"

// SongStatus is the lifecycle state of a song generation request.
// Transitions only move forward: pending -> processing -> complete|failed.
// complete and failed are terminal.
type SongStatus string

const (
	SongStatusPending    SongStatus = "pending"
	SongStatusProcessing SongStatus = "processing"
	SongStatusComplete   SongStatus = "complete"
	SongStatusFailed     SongStatus = "failed"
)

// IsTerminal reports whether no further status transitions are allowed.
func (s SongStatus) IsTerminal() bool {
	return s == SongStatusComplete || s == SongStatusFailed
}

// CanTransitionTo reports whether moving from s to next respects the forward
// direction of the state machine. A stale "processing" callback arriving
// after "complete" must not regress the record.
func (s SongStatus) CanTransitionTo(next SongStatus) bool {
	if s.IsTerminal() {
		return false
	}
	if s == SongStatusProcessing && next == SongStatusPending {
		return false
	}
	return true
}

// SongVariation is one candidate rendition returned by the generation
// provider for a single task.
type SongVariation struct {
	ID       string     `json:"id" firestore:"id"`
	Title    string     `json:"title" firestore:"title"`
	Duration string     `json:"duration" firestore:"duration"` // "m:ss"
	AudioURL string     `json:"audioUrl,omitempty" firestore:"audioUrl,omitempty"`
	VideoURL string     `json:"videoUrl,omitempty" firestore:"videoUrl,omitempty"`
	ImageURL string     `json:"imageUrl,omitempty" firestore:"imageUrl,omitempty"`
	Status   SongStatus `json:"status" firestore:"status"`
	Prompt   string     `json:"prompt,omitempty" firestore:"prompt,omitempty"`
	Tags     string     `json:"tags,omitempty" firestore:"tags,omitempty"`
}

// SongRecord is a song generation request and its results. The document ID is
// an application-generated UUID; TaskID is a secondary index correlating
// asynchronous provider callbacks with the record.
type SongRecord struct {
	ID              string          `json:"id" firestore:"-"` // Document ID
	UserID          string          `json:"userId" firestore:"userId"`
	Name            string          `json:"name" firestore:"name"`
	CelebrationType string          `json:"celebrationType" firestore:"celebrationType"`
	Style           string          `json:"style" firestore:"style"`
	Status          SongStatus      `json:"status" firestore:"status"`
	Variations      []SongVariation `json:"variations" firestore:"variations"`
	TaskID          string          `json:"taskId" firestore:"taskId"`
	CreatedAt       time.Time       `json:"createdAt" firestore:"createdAt,serverTimestamp"`
	UpdatedAt       time.Time       `json:"updatedAt" firestore:"updatedAt,serverTimestamp"`
}
