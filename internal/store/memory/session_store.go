package memory

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rollcall-app/rollcall/internal/models"
	"github.com/rollcall-app/rollcall/internal/store"
)

// SessionStore implements store.SessionStore using in-memory storage.
// Data is lost on restart; intended for tests and local development.
type SessionStore struct {
	mu sync.RWMutex

	sessions     map[uuid.UUID]*models.Session
	byAssignment map[uuid.UUID][]uuid.UUID
}

// NewSessionStore creates a new in-memory session store.
func NewSessionStore() *SessionStore {
	return &SessionStore{
		sessions:     make(map[uuid.UUID]*models.Session),
		byAssignment: make(map[uuid.UUID][]uuid.UUID),
	}
}

// Create stores a new session.
func (s *SessionStore) Create(ctx context.Context, session *models.Session) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	// Clone to avoid external modifications
	clone := *session
	s.sessions[session.SessionID] = &clone
	s.byAssignment[session.AssignmentID] = append(s.byAssignment[session.AssignmentID], session.SessionID)

	return nil
}

// Get retrieves a session by ID.
func (s *SessionStore) Get(ctx context.Context, sessionID uuid.UUID) (*models.Session, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	session, exists := s.sessions[sessionID]
	if !exists {
		return nil, store.ErrSessionNotFound
	}

	clone := *session
	return &clone, nil
}

// ListByAssignment returns all sessions for a teaching assignment, newest
// first.
func (s *SessionStore) ListByAssignment(ctx context.Context, assignmentID uuid.UUID) ([]*models.Session, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var sessions []*models.Session
	for _, id := range s.byAssignment[assignmentID] {
		clone := *s.sessions[id]
		sessions = append(sessions, &clone)
	}

	for i := 0; i < len(sessions); i++ {
		for j := i + 1; j < len(sessions); j++ {
			if sessions[j].StartTime.After(sessions[i].StartTime) {
				sessions[i], sessions[j] = sessions[j], sessions[i]
			}
		}
	}

	return sessions, nil
}

// FindOverlapping returns non-cancelled sessions for the assignment whose
// window intersects [start, end].
func (s *SessionStore) FindOverlapping(ctx context.Context, assignmentID uuid.UUID, start, end time.Time) ([]*models.Session, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var sessions []*models.Session
	for _, id := range s.byAssignment[assignmentID] {
		session := s.sessions[id]
		if session.CancelledAt != nil {
			continue
		}
		if session.StartTime.After(end) || session.EndTime.Before(start) {
			continue
		}
		clone := *session
		sessions = append(sessions, &clone)
	}

	return sessions, nil
}

// Cancel marks a session cancelled.
func (s *SessionStore) Cancel(ctx context.Context, sessionID uuid.UUID, at time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	session, exists := s.sessions[sessionID]
	if !exists {
		return store.ErrSessionNotFound
	}
	if session.CancelledAt != nil {
		return nil
	}

	cancelledAt := at
	session.Status = models.SessionCancelled
	session.CancelledAt = &cancelledAt

	return nil
}

// UpdateStatus refreshes the stored status display cache.
func (s *SessionStore) UpdateStatus(ctx context.Context, sessionID uuid.UUID, status models.SessionStatus) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	session, exists := s.sessions[sessionID]
	if !exists {
		return store.ErrSessionNotFound
	}
	if session.CancelledAt != nil {
		// Cancelled is sticky.
		return nil
	}

	session.Status = status
	return nil
}
