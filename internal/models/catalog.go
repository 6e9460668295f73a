package models

import (
	"time"

	"github.com/google/uuid"
)

// TeachingAssignment links one instructor to one subject/section/term. It is
// owned by the academic catalog and consumed read-only here; it is the unit
// of authorization for creating sessions.
type TeachingAssignment struct {
	AssignmentID uuid.UUID
	InstructorID uuid.UUID

	Subject string
	Section string
	Term    string

	// Active is false when the assignment has been administratively
	// disabled; inactive assignments cannot host new sessions.
	Active bool

	CreatedAt time.Time
}

// Student is the catalog view of a student, the source for the snapshot
// fields on attendance records. Section and Term drive enrollment checks.
type Student struct {
	StudentID uuid.UUID

	// Number is the institution-issued student number, distinct from the
	// internal UUID.
	Number string
	Name   string

	Section string
	Term    string
}
