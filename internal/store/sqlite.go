package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"

	"github.com/rumor-ml/commons.systems/plantscan/internal/fields"
	"github.com/rumor-ml/commons.systems/plantscan/internal/pipeline"
)

// SQLite registers scans and sessions in a local database file
type SQLite struct {
	db       *sql.DB
	scans    string
	sessions string
}

// OpenSQLite opens (creating if needed) the database at path. Use ":memory:" for a throwaway store.
func OpenSQLite(path string) (*SQLite, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	// a single connection serializes writers and keeps ":memory:" databases shared
	db.SetMaxOpenConns(1)

	s := &SQLite{
		db:       db,
		scans:    sqlIdent(CollectionName(scansCollectionBase)),
		sessions: sqlIdent(CollectionName(sessionsCollectionBase)),
	}
	if err := s.initSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}
	return s, nil
}

// Close closes the database
func (s *SQLite) Close() error {
	return s.db.Close()
}

func (s *SQLite) initSchema() error {
	_, err := s.db.Exec(fmt.Sprintf(`
		CREATE TABLE IF NOT EXISTS %s (
			id TEXT PRIMARY KEY,
			species TEXT NOT NULL,
			experiment TEXT NOT NULL,
			wave_number INTEGER,
			germ_day INTEGER,
			germ_day_color TEXT NOT NULL,
			plant_age_days INTEGER,
			date_scanned TEXT,
			device_name TEXT NOT NULL,
			plant_qr_code TEXT NOT NULL,
			frame_number INTEGER,
			accession_name TEXT NOT NULL,
			scientist_name TEXT NOT NULL,
			scientist_email TEXT NOT NULL,
			uploaded_by TEXT NOT NULL,
			status TEXT NOT NULL,
			object_key TEXT NOT NULL DEFAULT '',
			error TEXT NOT NULL DEFAULT '',
			created_at TEXT NOT NULL,
			updated_at TEXT NOT NULL
		)
	`, s.scans))
	if err != nil {
		return fmt.Errorf("failed to create scans table: %w", err)
	}

	_, err = s.db.Exec(fmt.Sprintf(`
		CREATE TABLE IF NOT EXISTS %s (
			id TEXT PRIMARY KEY,
			user_id TEXT NOT NULL,
			status TEXT NOT NULL,
			started_at TEXT NOT NULL,
			completed_at TEXT,
			dir TEXT NOT NULL,
			bucket TEXT NOT NULL,
			prefix TEXT NOT NULL,
			total INTEGER NOT NULL,
			registered INTEGER NOT NULL,
			uploaded INTEGER NOT NULL,
			succeeded INTEGER NOT NULL,
			errors INTEGER NOT NULL
		)
	`, s.sessions))
	if err != nil {
		return fmt.Errorf("failed to create sessions table: %w", err)
	}

	_, err = s.db.Exec(fmt.Sprintf(`CREATE INDEX IF NOT EXISTS %s ON %s(user_id, started_at)`,
		sqlIdent("idx_"+CollectionName(sessionsCollectionBase)+"_user"), s.sessions))
	if err != nil {
		return fmt.Errorf("failed to create sessions index: %w", err)
	}
	return nil
}

// Register inserts a PENDING scan row and returns its ID
func (s *SQLite) Register(ctx context.Context, record fields.Record) (string, error) {
	if err := checkRequired(record); err != nil {
		return "", err
	}

	id := uuid.New().String()
	now := formatTime(time.Now())
	_, err := s.db.ExecContext(ctx, fmt.Sprintf(`
		INSERT INTO %s (id, species, experiment, wave_number, germ_day, germ_day_color,
			plant_age_days, date_scanned, device_name, plant_qr_code, frame_number,
			accession_name, scientist_name, scientist_email, uploaded_by,
			status, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, s.scans),
		id, record.Species, record.Experiment, nullInt(record.WaveNumber), nullInt(record.GermDay),
		record.GermDayColor, nullInt(record.PlantAgeDays), nullTime(record.DateScanned),
		record.DeviceName, record.PlantQRCode, nullInt(record.FrameNumber),
		record.AccessionName, record.ScientistName, record.ScientistEmail, record.UploadedBy,
		string(pipeline.StatusPending), now, now)
	if err != nil {
		return "", fmt.Errorf("failed to insert scan: %w", err)
	}
	return id, nil
}

// Finalize records the outcome on a registered scan
func (s *SQLite) Finalize(ctx context.Context, id string, outcome pipeline.Outcome) error {
	res, err := s.db.ExecContext(ctx, fmt.Sprintf(`
		UPDATE %s SET status = ?, object_key = ?, error = ?, updated_at = ? WHERE id = ?
	`, s.scans), string(outcome.Status), outcome.ObjectKey, outcome.Message, formatTime(time.Now()), id)
	if err != nil {
		return fmt.Errorf("failed to update scan %s: %w", id, err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return fmt.Errorf("scan %s: %w", id, ErrNotFound)
	}
	return nil
}

// Scan retrieves a registered scan by ID
func (s *SQLite) Scan(ctx context.Context, id string) (*Scan, error) {
	var (
		scan                         Scan
		status, createdAt, updatedAt string
		wave, germDay, age, frame    sql.NullInt64
		dateScanned                  sql.NullString
	)
	err := s.db.QueryRowContext(ctx, fmt.Sprintf(`
		SELECT id, species, experiment, wave_number, germ_day, germ_day_color,
			plant_age_days, date_scanned, device_name, plant_qr_code, frame_number,
			accession_name, scientist_name, scientist_email, uploaded_by,
			status, object_key, error, created_at, updated_at
		FROM %s WHERE id = ?
	`, s.scans), id).Scan(
		&scan.ID, &scan.Record.Species, &scan.Record.Experiment, &wave, &germDay,
		&scan.Record.GermDayColor, &age, &dateScanned, &scan.Record.DeviceName,
		&scan.Record.PlantQRCode, &frame, &scan.Record.AccessionName,
		&scan.Record.ScientistName, &scan.Record.ScientistEmail, &scan.Record.UploadedBy,
		&status, &scan.ObjectKey, &scan.Error, &createdAt, &updatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("scan %s: %w", id, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load scan %s: %w", id, err)
	}

	scan.Record.WaveNumber = intFromNull(wave)
	scan.Record.GermDay = intFromNull(germDay)
	scan.Record.PlantAgeDays = intFromNull(age)
	scan.Record.FrameNumber = intFromNull(frame)
	if scan.Record.DateScanned, err = timeFromNull(dateScanned); err != nil {
		return nil, err
	}
	scan.Status = pipeline.Status(status)
	if scan.CreatedAt, err = parseTime(createdAt); err != nil {
		return nil, err
	}
	if scan.UpdatedAt, err = parseTime(updatedAt); err != nil {
		return nil, err
	}
	return &scan, nil
}

// Create inserts a new session row
func (s *SQLite) Create(ctx context.Context, session *pipeline.Session) error {
	if session.ID == "" {
		session.ID = uuid.New().String()
	}
	_, err := s.db.ExecContext(ctx, fmt.Sprintf(`
		INSERT INTO %s (id, user_id, status, started_at, completed_at, dir, bucket, prefix,
			total, registered, uploaded, succeeded, errors)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, s.sessions), session.ID, session.UserID, string(session.Status), formatTime(session.StartedAt),
		nullTime(session.CompletedAt), session.Dir, session.Bucket, session.Prefix,
		session.Stats.Total, session.Stats.Registered, session.Stats.Uploaded,
		session.Stats.Succeeded, session.Stats.Errors)
	if err != nil {
		return fmt.Errorf("failed to create session: %w", err)
	}
	return nil
}

// Update overwrites the status, completion time and stats of a session
func (s *SQLite) Update(ctx context.Context, session *pipeline.Session) error {
	res, err := s.db.ExecContext(ctx, fmt.Sprintf(`
		UPDATE %s SET status = ?, completed_at = ?, total = ?, registered = ?,
			uploaded = ?, succeeded = ?, errors = ?
		WHERE id = ?
	`, s.sessions), string(session.Status), nullTime(session.CompletedAt), session.Stats.Total,
		session.Stats.Registered, session.Stats.Uploaded, session.Stats.Succeeded,
		session.Stats.Errors, session.ID)
	if err != nil {
		return fmt.Errorf("failed to update session: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return fmt.Errorf("session %s: %w", session.ID, ErrNotFound)
	}
	return nil
}

const sessionColumns = `id, user_id, status, started_at, completed_at, dir, bucket, prefix,
	total, registered, uploaded, succeeded, errors`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanSession(row rowScanner) (*pipeline.Session, error) {
	var (
		session     pipeline.Session
		status      string
		startedAt   string
		completedAt sql.NullString
	)
	err := row.Scan(&session.ID, &session.UserID, &status, &startedAt, &completedAt,
		&session.Dir, &session.Bucket, &session.Prefix, &session.Stats.Total,
		&session.Stats.Registered, &session.Stats.Uploaded, &session.Stats.Succeeded,
		&session.Stats.Errors)
	if err != nil {
		return nil, err
	}

	session.Status = pipeline.SessionStatus(status)
	if session.StartedAt, err = parseTime(startedAt); err != nil {
		return nil, err
	}
	if session.CompletedAt, err = timeFromNull(completedAt); err != nil {
		return nil, err
	}
	return &session, nil
}

// Get retrieves a session by ID
func (s *SQLite) Get(ctx context.Context, sessionID string) (*pipeline.Session, error) {
	row := s.db.QueryRowContext(ctx, fmt.Sprintf(`SELECT %s FROM %s WHERE id = ?`, sessionColumns, s.sessions), sessionID)
	session, err := scanSession(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("session %s: %w", sessionID, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load session %s: %w", sessionID, err)
	}
	return session, nil
}

// List retrieves the sessions of a user, newest first
func (s *SQLite) List(ctx context.Context, userID string) ([]*pipeline.Session, error) {
	rows, err := s.db.QueryContext(ctx, fmt.Sprintf(`
		SELECT %s FROM %s WHERE user_id = ? ORDER BY started_at DESC
	`, sessionColumns, s.sessions), userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list sessions for user %s: %w", userID, err)
	}
	defer rows.Close()

	var sessions []*pipeline.Session
	for rows.Next() {
		session, err := scanSession(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to parse session: %w", err)
		}
		sessions = append(sessions, session)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to list sessions for user %s: %w", userID, err)
	}
	return sessions, nil
}

// sqlIdent quotes a table or index name; prefixed names may contain hyphens
func sqlIdent(name string) string {
	return `"` + name + `"`
}

// timeLayout is fixed-width so stored times sort lexically
const timeLayout = "2006-01-02T15:04:05.000000000Z07:00"

func formatTime(t time.Time) string {
	return t.UTC().Format(timeLayout)
}

func parseTime(s string) (time.Time, error) {
	t, err := time.Parse(timeLayout, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid stored time %q: %w", s, err)
	}
	return t, nil
}

func nullInt(p *int) sql.NullInt64 {
	if p == nil {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: int64(*p), Valid: true}
}

func intFromNull(n sql.NullInt64) *int {
	if !n.Valid {
		return nil
	}
	v := int(n.Int64)
	return &v
}

func nullTime(p *time.Time) sql.NullString {
	if p == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: formatTime(*p), Valid: true}
}

func timeFromNull(n sql.NullString) (*time.Time, error) {
	if !n.Valid {
		return nil, nil
	}
	t, err := parseTime(n.String)
	if err != nil {
		return nil, err
	}
	return &t, nil
}
