package models

import (
	"time"

	"github.com/google/uuid"
)

// SessionStatus is the lifecycle state of an attendance session.
type SessionStatus string

const (
	SessionScheduled SessionStatus = "scheduled"
	SessionActive    SessionStatus = "active"
	SessionCompleted SessionStatus = "completed"
	SessionCancelled SessionStatus = "cancelled"
)

// Session is one time-boxed attendance-taking window tied to a teaching
// assignment. Sessions are never deleted; they are retained for history.
type Session struct {
	SessionID    uuid.UUID
	AssignmentID uuid.UUID

	StartTime time.Time
	EndTime   time.Time

	// SecretSeed is generated at creation and returned exactly once in the
	// creation response. It must never appear on any read path afterwards.
	SecretSeed string

	// Status is a display cache. Access-control decisions must use
	// StatusAt(now) instead of trusting this stored value.
	Status SessionStatus

	CreatedAt   time.Time
	CancelledAt *time.Time
}

// StatusAt derives the session status from wall-clock time. Cancellation is
// sticky; everything else follows from the time window.
func (s *Session) StatusAt(now time.Time) SessionStatus {
	if s.Status == SessionCancelled {
		return SessionCancelled
	}
	if now.Before(s.StartTime) {
		return SessionScheduled
	}
	if now.After(s.EndTime) {
		return SessionCompleted
	}
	return SessionActive
}
