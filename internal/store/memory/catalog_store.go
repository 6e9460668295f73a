package memory

import (
	"context"
	"sync"

	"github.com/google/uuid"
	"github.com/rollcall-app/rollcall/internal/models"
	"github.com/rollcall-app/rollcall/internal/store"
)

// CatalogStore implements store.CatalogStore using in-memory storage. The
// real catalog is owned externally; tests and local development seed this one
// through the Put methods.
type CatalogStore struct {
	mu sync.RWMutex

	assignments map[uuid.UUID]*models.TeachingAssignment
	students    map[uuid.UUID]*models.Student
}

// NewCatalogStore creates a new in-memory catalog store.
func NewCatalogStore() *CatalogStore {
	return &CatalogStore{
		assignments: make(map[uuid.UUID]*models.TeachingAssignment),
		students:    make(map[uuid.UUID]*models.Student),
	}
}

// PutAssignment seeds a teaching assignment.
func (s *CatalogStore) PutAssignment(assignment *models.TeachingAssignment) {
	s.mu.Lock()
	defer s.mu.Unlock()

	clone := *assignment
	s.assignments[assignment.AssignmentID] = &clone
}

// PutStudent seeds a student.
func (s *CatalogStore) PutStudent(student *models.Student) {
	s.mu.Lock()
	defer s.mu.Unlock()

	clone := *student
	s.students[student.StudentID] = &clone
}

// GetAssignment retrieves a teaching assignment by ID.
func (s *CatalogStore) GetAssignment(ctx context.Context, assignmentID uuid.UUID) (*models.TeachingAssignment, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	assignment, exists := s.assignments[assignmentID]
	if !exists {
		return nil, store.ErrAssignmentNotFound
	}

	clone := *assignment
	return &clone, nil
}

// GetStudent retrieves a student by ID.
func (s *CatalogStore) GetStudent(ctx context.Context, studentID uuid.UUID) (*models.Student, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	student, exists := s.students[studentID]
	if !exists {
		return nil, store.ErrStudentNotFound
	}

	clone := *student
	return &clone, nil
}
