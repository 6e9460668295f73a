package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rollcall-app/rollcall/internal/models"
	"github.com/rollcall-app/rollcall/internal/store"
	"github.com/rs/zerolog/log"
)

// SessionStore implements store.SessionStore using PostgreSQL.
type SessionStore struct {
	pool *pgxpool.Pool
}

// NewSessionStore creates a new PostgreSQL-backed session store.
func NewSessionStore(pool *pgxpool.Pool) *SessionStore {
	return &SessionStore{
		pool: pool,
	}
}

const sessionColumns = `
	session_id, assignment_id, start_time, end_time,
	secret_seed, status, created_at, cancelled_at
`

// Create persists a new session.
func (s *SessionStore) Create(ctx context.Context, session *models.Session) error {
	query := `
		INSERT INTO sessions (
			session_id, assignment_id, start_time, end_time,
			secret_seed, status, created_at
		) VALUES (
			$1, $2, $3, $4, $5, $6, $7
		)
	`

	_, err := s.pool.Exec(ctx, query,
		session.SessionID,
		session.AssignmentID,
		session.StartTime,
		session.EndTime,
		session.SecretSeed,
		session.Status,
		session.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create session: %w", mapPostgresError(err))
	}

	log.Debug().
		Str("session_id", session.SessionID.String()).
		Str("assignment_id", session.AssignmentID.String()).
		Msg("Created session")

	return nil
}

// Get retrieves a session by ID.
func (s *SessionStore) Get(ctx context.Context, sessionID uuid.UUID) (*models.Session, error) {
	query := `SELECT ` + sessionColumns + ` FROM sessions WHERE session_id = $1`

	session, err := scanSession(s.pool.QueryRow(ctx, query, sessionID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, store.ErrSessionNotFound
		}
		return nil, fmt.Errorf("failed to get session: %w", err)
	}

	return session, nil
}

// ListByAssignment returns all sessions for a teaching assignment, newest
// first.
func (s *SessionStore) ListByAssignment(ctx context.Context, assignmentID uuid.UUID) ([]*models.Session, error) {
	query := `
		SELECT ` + sessionColumns + `
		FROM sessions
		WHERE assignment_id = $1
		ORDER BY start_time DESC
	`

	rows, err := s.pool.Query(ctx, query, assignmentID)
	if err != nil {
		return nil, fmt.Errorf("failed to list sessions: %w", err)
	}
	defer rows.Close()

	return collectSessions(rows)
}

// FindOverlapping returns non-cancelled sessions for the assignment whose
// window intersects [start, end].
func (s *SessionStore) FindOverlapping(ctx context.Context, assignmentID uuid.UUID, start, end time.Time) ([]*models.Session, error) {
	query := `
		SELECT ` + sessionColumns + `
		FROM sessions
		WHERE assignment_id = $1
		  AND cancelled_at IS NULL
		  AND start_time <= $3
		  AND end_time >= $2
	`

	rows, err := s.pool.Query(ctx, query, assignmentID, start, end)
	if err != nil {
		return nil, fmt.Errorf("failed to find overlapping sessions: %w", err)
	}
	defer rows.Close()

	return collectSessions(rows)
}

// Cancel marks a session cancelled. Cancellation is sticky and never
// auto-transitions back.
func (s *SessionStore) Cancel(ctx context.Context, sessionID uuid.UUID, at time.Time) error {
	query := `
		UPDATE sessions
		SET status = $2, cancelled_at = $3
		WHERE session_id = $1 AND cancelled_at IS NULL
	`

	result, err := s.pool.Exec(ctx, query, sessionID, models.SessionCancelled, at)
	if err != nil {
		return fmt.Errorf("failed to cancel session: %w", err)
	}

	if result.RowsAffected() == 0 {
		// Either unknown or already cancelled; distinguish for the caller.
		if _, err := s.Get(ctx, sessionID); err != nil {
			return err
		}
		return nil
	}

	log.Debug().Str("session_id", sessionID.String()).Msg("Cancelled session")
	return nil
}

// UpdateStatus refreshes the stored status display cache.
func (s *SessionStore) UpdateStatus(ctx context.Context, sessionID uuid.UUID, status models.SessionStatus) error {
	// Cancelled is sticky; the cache refresh never overwrites it.
	query := `
		UPDATE sessions
		SET status = $2
		WHERE session_id = $1 AND cancelled_at IS NULL
	`

	result, err := s.pool.Exec(ctx, query, sessionID, status)
	if err != nil {
		return fmt.Errorf("failed to update session status: %w", err)
	}

	if result.RowsAffected() == 0 {
		if _, err := s.Get(ctx, sessionID); err != nil {
			return err
		}
	}

	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanSession(row rowScanner) (*models.Session, error) {
	var session models.Session
	err := row.Scan(
		&session.SessionID,
		&session.AssignmentID,
		&session.StartTime,
		&session.EndTime,
		&session.SecretSeed,
		&session.Status,
		&session.CreatedAt,
		&session.CancelledAt,
	)
	if err != nil {
		return nil, err
	}
	return &session, nil
}

func collectSessions(rows pgx.Rows) ([]*models.Session, error) {
	var sessions []*models.Session
	for rows.Next() {
		session, err := scanSession(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan session: %w", err)
		}
		sessions = append(sessions, session)
	}
	return sessions, rows.Err()
}
