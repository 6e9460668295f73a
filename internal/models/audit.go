package models

import (
	"time"

	"github.com/google/uuid"
)

// ActorKind discriminates who performed an audited action. The audit table
// references students and instructors through this explicit tag plus an ID of
// the tagged kind, so consumers can switch exhaustively instead of guessing
// from a polymorphic foreign key.
type ActorKind string

const (
	ActorInstructor ActorKind = "instructor"
	ActorStudent    ActorKind = "student"
	ActorSystem     ActorKind = "system"
)

// TargetKind names the entity an audited action was about.
type TargetKind string

const (
	TargetSession    TargetKind = "session"
	TargetAssignment TargetKind = "assignment"
	TargetRecord     TargetKind = "attendance_record"
)

// Audit actions emitted by this service.
const (
	AuditSessionCreated   = "session.created"
	AuditSessionCancelled = "session.cancelled"
	AuditTokenRotated     = "token.rotated"
	AuditScanAccepted     = "scan.accepted"
	AuditScanDenied       = "scan.denied"
)

// AuditEvent is an immutable record of an accept/deny decision. Events are
// append-only and purged after a retention window by a background janitor.
type AuditEvent struct {
	EventID uuid.UUID

	Action    string
	ActorKind ActorKind
	ActorID   *uuid.UUID

	TargetKind TargetKind
	TargetID   *uuid.UUID

	// Metadata carries the reason code for denials plus request context
	// (source IP, user agent) useful for fraud review.
	Metadata map[string]string

	CreatedAt time.Time
}
