package pipeline

import (
	"context"
	"image/png"
	"time"

	"github.com/rumor-ml/commons.systems/plantscan/internal/fields"
)

// Status is the remote status recorded on a registered scan
type Status string

const (
	StatusPending Status = "PENDING"
	StatusSuccess Status = "SUCCESS"
	StatusError   Status = "ERROR"
)

// Outcome is the final remote state of a registered scan
type Outcome struct {
	Status    Status
	ObjectKey string // set on success
	Message   string // set on error
}

// Registrar registers scan metadata in the remote store.
// Register owns the required-field check and must reject incomplete records.
type Registrar interface {
	Register(ctx context.Context, record fields.Record) (string, error)
	Finalize(ctx context.Context, id string, outcome Outcome) error
}

// BlobUploader recompresses a local image and stores it under objectKey in bucket
type BlobUploader interface {
	Upload(ctx context.Context, localPath, objectKey, bucket string, level png.CompressionLevel) error
}

// SessionStatus represents the current state of an upload session
type SessionStatus string

const (
	SessionStatusRunning   SessionStatus = "running"
	SessionStatusCompleted SessionStatus = "completed"
	SessionStatusFailed    SessionStatus = "failed"
)

// SessionStats tracks item counts within an upload session
type SessionStats struct {
	Total      int `firestore:"total"`
	Registered int `firestore:"registered"`
	Uploaded   int `firestore:"uploaded"`
	Succeeded  int `firestore:"succeeded"`
	Errors     int `firestore:"errors"`
}

// Session records one run of the pipeline
type Session struct {
	ID          string        `firestore:"-"`
	UserID      string        `firestore:"userId"`
	Status      SessionStatus `firestore:"status"`
	StartedAt   time.Time     `firestore:"startedAt"`
	CompletedAt *time.Time    `firestore:"completedAt"`
	Dir         string        `firestore:"dir"`
	Bucket      string        `firestore:"bucket"`
	Prefix      string        `firestore:"prefix"`
	Stats       SessionStats  `firestore:"stats"`
}

// SessionStore persists upload sessions
type SessionStore interface {
	Create(ctx context.Context, session *Session) error
	Update(ctx context.Context, session *Session) error
	Get(ctx context.Context, sessionID string) (*Session, error)
	List(ctx context.Context, userID string) ([]*Session, error)
}
