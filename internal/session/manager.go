package session

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rollcall-app/rollcall/internal/audit"
	"github.com/rollcall-app/rollcall/internal/models"
	"github.com/rollcall-app/rollcall/internal/store"
	"github.com/rollcall-app/rollcall/internal/telemetry"
	"github.com/rollcall-app/rollcall/internal/token"
	"github.com/rs/zerolog"
)

// Sentinel errors for session creation and access.
var (
	ErrInvalidWindow      = errors.New("session end time must be after start time")
	ErrNotOwner           = errors.New("teaching assignment does not belong to instructor")
	ErrAssignmentInactive = errors.New("teaching assignment is inactive")
	ErrOverlappingSession = errors.New("an open session already overlaps this window")
)

// Manager owns session creation, ownership checks, overlap checks, and
// status derivation.
type Manager struct {
	sessions   store.SessionStore
	catalog    store.CatalogStore
	attendance store.AttendanceStore
	rotator    *token.Rotator
	auditor    *audit.Logger
	now        func() time.Time
}

// NewManager creates a session manager.
func NewManager(sessions store.SessionStore, catalog store.CatalogStore, attendance store.AttendanceStore, rotator *token.Rotator, auditor *audit.Logger) *Manager {
	return &Manager{
		sessions:   sessions,
		catalog:    catalog,
		attendance: attendance,
		rotator:    rotator,
		auditor:    auditor,
		now:        time.Now,
	}
}

// DeriveStatus computes the session status from wall-clock time. The stored
// status is only a display cache; every access-control decision goes through
// this function with a fresh now.
func DeriveStatus(session *models.Session, now time.Time) models.SessionStatus {
	return session.StatusAt(now)
}

// Create opens a new attendance session for a teaching assignment and issues
// its first rotating token synchronously, so the instructor has a scannable
// code the moment the session exists.
func (m *Manager) Create(ctx context.Context, assignmentID uuid.UUID, start, end time.Time, instructorID uuid.UUID, validity time.Duration) (*models.Session, *models.RotatingToken, error) {
	if !end.After(start) {
		return nil, nil, ErrInvalidWindow
	}

	assignment, err := m.catalog.GetAssignment(ctx, assignmentID)
	if err != nil {
		return nil, nil, err
	}
	if assignment.InstructorID != instructorID {
		return nil, nil, ErrNotOwner
	}
	if !assignment.Active {
		return nil, nil, ErrAssignmentInactive
	}

	now := m.now()

	// Overlap checking is read-then-write and guards a UX constraint, not a
	// security invariant. Two racing creations can both pass; that narrow
	// window is accepted rather than papered over with locks.
	open, err := m.sessions.FindOverlapping(ctx, assignmentID, start, end)
	if err != nil {
		return nil, nil, err
	}
	for _, existing := range open {
		switch DeriveStatus(existing, now) {
		case models.SessionScheduled, models.SessionActive:
			return nil, nil, ErrOverlappingSession
		}
	}

	seed, err := newSecretSeed()
	if err != nil {
		return nil, nil, err
	}

	session := &models.Session{
		SessionID:    uuid.New(),
		AssignmentID: assignmentID,
		StartTime:    start,
		EndTime:      end,
		SecretSeed:   seed,
		CreatedAt:    now,
	}
	session.Status = DeriveStatus(session, now)

	if err := m.sessions.Create(ctx, session); err != nil {
		return nil, nil, err
	}

	first, err := m.rotator.Issue(ctx, session.SessionID, validity)
	if err != nil {
		return nil, nil, fmt.Errorf("session created but first token failed: %w", err)
	}

	telemetry.GetMetrics().SessionsCreatedTotal.Inc()
	m.auditor.Log(ctx, models.AuditSessionCreated, models.ActorInstructor, &instructorID, models.TargetSession, &session.SessionID, map[string]string{
		"assignment_id": assignmentID.String(),
		"start_time":    start.Format(time.RFC3339),
		"end_time":      end.Format(time.RFC3339),
	})

	zerolog.Ctx(ctx).Info().
		Str("session_id", session.SessionID.String()).
		Str("assignment_id", assignmentID.String()).
		Time("start", start).
		Time("end", end).
		Msg("session created")

	return session, first, nil
}

// Rotate issues a fresh token for an open session. Only the owning instructor
// may rotate. The previous token keeps its own expiry.
func (m *Manager) Rotate(ctx context.Context, sessionID, instructorID uuid.UUID, validity time.Duration) (*models.RotatingToken, error) {
	session, err := m.ownedSession(ctx, sessionID, instructorID)
	if err != nil {
		return nil, err
	}

	tok, err := m.rotator.Issue(ctx, session.SessionID, validity)
	if err != nil {
		return nil, err
	}

	m.auditor.Log(ctx, models.AuditTokenRotated, models.ActorInstructor, &instructorID, models.TargetSession, &sessionID, nil)

	return tok, nil
}

// Cancel marks a session cancelled. Cancellation is sticky; the session never
// transitions out of it regardless of the clock.
func (m *Manager) Cancel(ctx context.Context, sessionID, instructorID uuid.UUID) error {
	session, err := m.ownedSession(ctx, sessionID, instructorID)
	if err != nil {
		return err
	}

	if err := m.sessions.Cancel(ctx, session.SessionID, m.now()); err != nil {
		return err
	}

	telemetry.GetMetrics().SessionsCancelledTotal.Inc()
	m.auditor.Log(ctx, models.AuditSessionCancelled, models.ActorInstructor, &instructorID, models.TargetSession, &sessionID, nil)

	return nil
}

// Detail is the ownership-checked instructor view of a session: the session
// with a freshly derived status, plus attendee snapshots.
type Detail struct {
	Session   *models.Session
	Status    models.SessionStatus
	Attendees []*models.AttendanceRecord
}

// Detail returns the session and its attendance records. The secret seed is
// the transport layer's job to exclude; status here is freshly derived.
func (m *Manager) Detail(ctx context.Context, sessionID, instructorID uuid.UUID) (*Detail, error) {
	session, err := m.ownedSession(ctx, sessionID, instructorID)
	if err != nil {
		return nil, err
	}

	attendees, err := m.attendance.ListBySession(ctx, sessionID)
	if err != nil {
		return nil, err
	}

	return &Detail{
		Session:   session,
		Status:    DeriveStatus(session, m.now()),
		Attendees: attendees,
	}, nil
}

// List returns the instructor's sessions for one assignment with freshly
// derived statuses.
func (m *Manager) List(ctx context.Context, assignmentID, instructorID uuid.UUID) ([]*models.Session, error) {
	assignment, err := m.catalog.GetAssignment(ctx, assignmentID)
	if err != nil {
		return nil, err
	}
	if assignment.InstructorID != instructorID {
		return nil, ErrNotOwner
	}

	sessions, err := m.sessions.ListByAssignment(ctx, assignmentID)
	if err != nil {
		return nil, err
	}

	now := m.now()
	for _, session := range sessions {
		session.Status = DeriveStatus(session, now)
	}

	return sessions, nil
}

// ownedSession loads a session and verifies the instructor owns its teaching
// assignment.
func (m *Manager) ownedSession(ctx context.Context, sessionID, instructorID uuid.UUID) (*models.Session, error) {
	session, err := m.sessions.Get(ctx, sessionID)
	if err != nil {
		return nil, err
	}

	assignment, err := m.catalog.GetAssignment(ctx, session.AssignmentID)
	if err != nil {
		return nil, err
	}
	if assignment.InstructorID != instructorID {
		return nil, ErrNotOwner
	}

	return session, nil
}

// newSecretSeed returns an unguessable identifier generated at creation and
// never exposed after the creation response.
func newSecretSeed() (string, error) {
	buf := make([]byte, 16)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("failed to generate secret seed: %w", err)
	}
	return hex.EncodeToString(buf), nil
}
