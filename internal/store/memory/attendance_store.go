package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rollcall-app/rollcall/internal/models"
	"github.com/rollcall-app/rollcall/internal/store"
)

type attendanceKey struct {
	sessionID uuid.UUID
	studentID uuid.UUID
}

// AttendanceStore implements store.AttendanceStore using in-memory storage.
// The map insert under the mutex mirrors the database unique constraint:
// concurrent duplicate inserts see exactly one success.
type AttendanceStore struct {
	mu sync.RWMutex

	records map[attendanceKey]*models.AttendanceRecord

	// Metrics queries join across sessions and the catalog.
	sessions *SessionStore
	catalog  *CatalogStore
}

// NewAttendanceStore creates a new in-memory attendance store. The session
// and catalog stores back the StudentMetrics aggregation.
func NewAttendanceStore(sessions *SessionStore, catalog *CatalogStore) *AttendanceStore {
	return &AttendanceStore{
		records:  make(map[attendanceKey]*models.AttendanceRecord),
		sessions: sessions,
		catalog:  catalog,
	}
}

// Insert stores an attendance record, enforcing at most one per
// (session, student).
func (s *AttendanceStore) Insert(ctx context.Context, record *models.AttendanceRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	key := attendanceKey{sessionID: record.SessionID, studentID: record.StudentID}
	if _, exists := s.records[key]; exists {
		return store.ErrAlreadyMarked
	}

	clone := *record
	s.records[key] = &clone

	return nil
}

// Get retrieves the record for (session, student) if one exists.
func (s *AttendanceStore) Get(ctx context.Context, sessionID, studentID uuid.UUID) (*models.AttendanceRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	record, exists := s.records[attendanceKey{sessionID: sessionID, studentID: studentID}]
	if !exists {
		return nil, store.ErrRecordNotFound
	}

	clone := *record
	return &clone, nil
}

// ListBySession returns all attendance records for a session in mark order.
func (s *AttendanceStore) ListBySession(ctx context.Context, sessionID uuid.UUID) ([]*models.AttendanceRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var records []*models.AttendanceRecord
	for key, record := range s.records {
		if key.sessionID != sessionID {
			continue
		}
		clone := *record
		records = append(records, &clone)
	}

	sort.Slice(records, func(i, j int) bool {
		return records[i].MarkedAt.Before(records[j].MarkedAt)
	})

	return records, nil
}

// StudentMetrics aggregates eligibility and attendance per subject. A session
// counts as eligible once it has started, was not cancelled, and its
// assignment matches the student's section and term.
func (s *AttendanceStore) StudentMetrics(ctx context.Context, studentID uuid.UUID) (*store.StudentMetrics, error) {
	student, err := s.catalog.GetStudent(ctx, studentID)
	if err != nil {
		return nil, err
	}

	now := time.Now()

	s.sessions.mu.RLock()
	var eligible []*models.Session
	for _, session := range s.sessions.sessions {
		if session.CancelledAt != nil || session.StartTime.After(now) {
			continue
		}
		clone := *session
		eligible = append(eligible, &clone)
	}
	s.sessions.mu.RUnlock()

	s.mu.RLock()
	defer s.mu.RUnlock()

	bySubject := make(map[string]*store.SubjectMetrics)
	metrics := &store.StudentMetrics{}
	for _, session := range eligible {
		assignment, err := s.catalog.GetAssignment(ctx, session.AssignmentID)
		if err != nil {
			continue
		}
		if assignment.Section != student.Section || assignment.Term != student.Term {
			continue
		}

		subject, ok := bySubject[assignment.Subject]
		if !ok {
			subject = &store.SubjectMetrics{Subject: assignment.Subject}
			bySubject[assignment.Subject] = subject
		}

		subject.Eligible++
		metrics.TotalSessionsEligible++
		if _, marked := s.records[attendanceKey{sessionID: session.SessionID, studentID: studentID}]; marked {
			subject.Attended++
			metrics.AttendedCount++
		}
	}

	subjects := make([]string, 0, len(bySubject))
	for name := range bySubject {
		subjects = append(subjects, name)
	}
	sort.Strings(subjects)
	for _, name := range subjects {
		metrics.PerSubject = append(metrics.PerSubject, *bySubject[name])
	}

	return metrics, nil
}
