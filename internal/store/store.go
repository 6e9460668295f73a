package store

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/rollcall-app/rollcall/internal/models"
)

// Sentinel errors for common error conditions
var (
	ErrSessionNotFound    = errors.New("session not found")
	ErrAssignmentNotFound = errors.New("teaching assignment not found")
	ErrStudentNotFound    = errors.New("student not found")
	ErrTokenNotFound      = errors.New("token not found")
	ErrRecordNotFound     = errors.New("attendance record not found")

	// ErrAlreadyMarked is returned when an attendance insert violates the
	// (session_id, student_id) uniqueness constraint. This translation is the
	// authoritative duplicate guard under concurrent scans.
	ErrAlreadyMarked = errors.New("attendance already marked")

	// ErrTokenCodeTaken is returned on the rare (session_id, code) collision;
	// callers regenerate and retry once.
	ErrTokenCodeTaken = errors.New("token code already issued for session")
)

// SessionStore persists attendance sessions. Sessions are never deleted.
type SessionStore interface {
	Create(ctx context.Context, session *models.Session) error
	Get(ctx context.Context, sessionID uuid.UUID) (*models.Session, error)
	ListByAssignment(ctx context.Context, assignmentID uuid.UUID) ([]*models.Session, error)

	// FindOverlapping returns non-cancelled sessions for the assignment whose
	// [start, end] window intersects the given one. The caller filters by
	// derived status.
	FindOverlapping(ctx context.Context, assignmentID uuid.UUID, start, end time.Time) ([]*models.Session, error)

	// Cancel marks a session cancelled. Cancellation is sticky.
	Cancel(ctx context.Context, sessionID uuid.UUID, at time.Time) error

	// UpdateStatus refreshes the stored status display cache. It has no
	// bearing on correctness; decisions always re-derive from wall clock.
	UpdateStatus(ctx context.Context, sessionID uuid.UUID, status models.SessionStatus) error
}

// TokenStore persists rotating tokens. Validation is a pure read; expiry is
// decided by wall-clock comparison, never by deletion.
type TokenStore interface {
	Insert(ctx context.Context, token *models.RotatingToken) error
	Get(ctx context.Context, sessionID uuid.UUID, code string) (*models.RotatingToken, error)

	// DeleteExpired removes tokens that expired before the cutoff. This is a
	// storage-hygiene janitor, not part of validity checking.
	DeleteExpired(ctx context.Context, cutoff time.Time) (int, error)
}

// SubjectMetrics is the per-subject slice of a student's attendance metrics.
type SubjectMetrics struct {
	Subject  string
	Eligible int
	Attended int
}

// StudentMetrics summarises a student's attendance across finished or
// in-progress sessions they were eligible for.
type StudentMetrics struct {
	TotalSessionsEligible int
	AttendedCount         int
	PerSubject            []SubjectMetrics
}

// AttendanceStore persists attendance records. Insert must enforce the
// (session_id, student_id) uniqueness constraint at the storage layer and
// return ErrAlreadyMarked on violation.
type AttendanceStore interface {
	Insert(ctx context.Context, record *models.AttendanceRecord) error
	Get(ctx context.Context, sessionID, studentID uuid.UUID) (*models.AttendanceRecord, error)
	ListBySession(ctx context.Context, sessionID uuid.UUID) ([]*models.AttendanceRecord, error)
	StudentMetrics(ctx context.Context, studentID uuid.UUID) (*StudentMetrics, error)
}

// CatalogStore reads the externally-owned academic catalog: teaching
// assignments and students. This service never writes to it.
type CatalogStore interface {
	GetAssignment(ctx context.Context, assignmentID uuid.UUID) (*models.TeachingAssignment, error)
	GetStudent(ctx context.Context, studentID uuid.UUID) (*models.Student, error)
}

// AuditStore persists append-only audit events.
type AuditStore interface {
	Append(ctx context.Context, event *models.AuditEvent) error
	ListByActor(ctx context.Context, kind models.ActorKind, actorID uuid.UUID, limit int) ([]*models.AuditEvent, error)
	ListByTarget(ctx context.Context, kind models.TargetKind, targetID uuid.UUID, limit int) ([]*models.AuditEvent, error)

	// PurgeOlderThan enforces the retention window; run by a background
	// janitor, not by request handling.
	PurgeOlderThan(ctx context.Context, cutoff time.Time) (int, error)
}
