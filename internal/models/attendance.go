package models

import (
	"time"

	"github.com/google/uuid"
)

// AttendanceRecord marks one student present in one session. At most one
// record exists per (session, student); the storage layer enforces this with
// a unique constraint rather than an application pre-check.
//
// StudentName and StudentNumber are snapshots taken at mark time so later
// profile edits do not retroactively alter historical records.
type AttendanceRecord struct {
	RecordID  uuid.UUID
	SessionID uuid.UUID
	StudentID uuid.UUID

	StudentName   string
	StudentNumber string

	// TokenUsed is nil when the deployment allows scans without a code.
	TokenUsed *string

	MarkedAt  time.Time
	SourceIP  string
	UserAgent string
}
