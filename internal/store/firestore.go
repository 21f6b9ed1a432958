package store

import (
	"context"
	"fmt"
	"time"

	"cloud.google.com/go/firestore"
	firebase "firebase.google.com/go/v4"
	"github.com/google/uuid"
	"google.golang.org/api/iterator"
	"google.golang.org/api/option"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/rumor-ml/commons.systems/plantscan/internal/fields"
	"github.com/rumor-ml/commons.systems/plantscan/internal/pipeline"
)

// NewFirestoreClient initializes a Firebase app for projectID and returns its Firestore client.
// Application Default Credentials are used unless credentialsFile is set.
func NewFirestoreClient(ctx context.Context, projectID, credentialsFile string) (*firestore.Client, error) {
	conf := &firebase.Config{ProjectID: projectID}

	var opts []option.ClientOption
	if credentialsFile != "" {
		opts = append(opts, option.WithCredentialsFile(credentialsFile))
	}

	app, err := firebase.NewApp(ctx, conf, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize Firebase app: %w", err)
	}

	client, err := app.Firestore(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to create Firestore client: %w", err)
	}
	return client, nil
}

// scanDoc is the Firestore shape of a registered scan
type scanDoc struct {
	fields.Record
	Status    pipeline.Status `firestore:"status"`
	ObjectKey string          `firestore:"objectKey"`
	Error     string          `firestore:"error"`
	CreatedAt time.Time       `firestore:"createdAt"`
	UpdatedAt time.Time       `firestore:"updatedAt"`
}

// Firestore registers scans and sessions in Firestore collections
type Firestore struct {
	client   *firestore.Client
	scans    string
	sessions string
}

// NewFirestore creates a Firestore store using environment-prefixed collection names
func NewFirestore(client *firestore.Client) *Firestore {
	return &Firestore{
		client:   client,
		scans:    CollectionName(scansCollectionBase),
		sessions: CollectionName(sessionsCollectionBase),
	}
}

// Register creates a PENDING scan document and returns its ID
func (s *Firestore) Register(ctx context.Context, record fields.Record) (string, error) {
	if err := checkRequired(record); err != nil {
		return "", err
	}

	now := time.Now()
	docRef := s.client.Collection(s.scans).NewDoc()
	doc := scanDoc{
		Record:    record,
		Status:    pipeline.StatusPending,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if _, err := docRef.Create(ctx, doc); err != nil {
		return "", fmt.Errorf("failed to create scan: %w", err)
	}
	return docRef.ID, nil
}

// Finalize records the outcome on a registered scan
func (s *Firestore) Finalize(ctx context.Context, id string, outcome pipeline.Outcome) error {
	_, err := s.client.Collection(s.scans).Doc(id).Update(ctx, []firestore.Update{
		{Path: "status", Value: outcome.Status},
		{Path: "objectKey", Value: outcome.ObjectKey},
		{Path: "error", Value: outcome.Message},
		{Path: "updatedAt", Value: time.Now()},
	})
	if status.Code(err) == codes.NotFound {
		return fmt.Errorf("scan %s: %w", id, ErrNotFound)
	}
	if err != nil {
		return fmt.Errorf("failed to update scan %s: %w", id, err)
	}
	return nil
}

// Scan retrieves a registered scan by ID
func (s *Firestore) Scan(ctx context.Context, id string) (*Scan, error) {
	snap, err := s.client.Collection(s.scans).Doc(id).Get(ctx)
	if status.Code(err) == codes.NotFound {
		return nil, fmt.Errorf("scan %s: %w", id, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get scan %s: %w", id, err)
	}

	var doc scanDoc
	if err := snap.DataTo(&doc); err != nil {
		return nil, fmt.Errorf("failed to parse scan %s: %w", id, err)
	}
	return &Scan{
		ID:        snap.Ref.ID,
		Record:    doc.Record,
		Status:    doc.Status,
		ObjectKey: doc.ObjectKey,
		Error:     doc.Error,
		CreatedAt: doc.CreatedAt,
		UpdatedAt: doc.UpdatedAt,
	}, nil
}

// Create creates a new session document
func (s *Firestore) Create(ctx context.Context, session *pipeline.Session) error {
	if session.ID == "" {
		session.ID = uuid.New().String()
	}
	if _, err := s.client.Collection(s.sessions).Doc(session.ID).Set(ctx, session); err != nil {
		return fmt.Errorf("failed to create session: %w", err)
	}
	return nil
}

// Update overwrites an existing session document
func (s *Firestore) Update(ctx context.Context, session *pipeline.Session) error {
	if _, err := s.client.Collection(s.sessions).Doc(session.ID).Set(ctx, session); err != nil {
		return fmt.Errorf("failed to update session: %w", err)
	}
	return nil
}

// Get retrieves a session by ID
func (s *Firestore) Get(ctx context.Context, sessionID string) (*pipeline.Session, error) {
	snap, err := s.client.Collection(s.sessions).Doc(sessionID).Get(ctx)
	if status.Code(err) == codes.NotFound {
		return nil, fmt.Errorf("session %s: %w", sessionID, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get session: %w", err)
	}

	var session pipeline.Session
	if err := snap.DataTo(&session); err != nil {
		return nil, fmt.Errorf("failed to parse session: %w", err)
	}
	session.ID = snap.Ref.ID
	return &session, nil
}

// List retrieves the sessions of a user, newest first
func (s *Firestore) List(ctx context.Context, userID string) ([]*pipeline.Session, error) {
	iter := s.client.Collection(s.sessions).
		Where("userId", "==", userID).
		OrderBy("startedAt", firestore.Desc).
		Documents(ctx)
	defer iter.Stop()

	var sessions []*pipeline.Session
	for {
		snap, err := iter.Next()
		if err == iterator.Done {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("failed to iterate sessions for user %s: %w", userID, err)
		}

		var session pipeline.Session
		if err := snap.DataTo(&session); err != nil {
			return nil, fmt.Errorf("failed to parse session: %w", err)
		}
		session.ID = snap.Ref.ID
		sessions = append(sessions, &session)
	}
	return sessions, nil
}
