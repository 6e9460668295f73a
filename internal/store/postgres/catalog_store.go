package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rollcall-app/rollcall/internal/models"
	"github.com/rollcall-app/rollcall/internal/store"
)

// CatalogStore reads teaching assignments and students owned by the academic
// catalog. This service never writes these tables.
type CatalogStore struct {
	pool *pgxpool.Pool
}

// NewCatalogStore creates a new PostgreSQL-backed catalog reader.
func NewCatalogStore(pool *pgxpool.Pool) *CatalogStore {
	return &CatalogStore{
		pool: pool,
	}
}

// GetAssignment retrieves a teaching assignment by ID.
func (s *CatalogStore) GetAssignment(ctx context.Context, assignmentID uuid.UUID) (*models.TeachingAssignment, error) {
	query := `
		SELECT assignment_id, instructor_id, subject, section, term, active, created_at
		FROM teaching_assignments
		WHERE assignment_id = $1
	`

	var assignment models.TeachingAssignment
	err := s.pool.QueryRow(ctx, query, assignmentID).Scan(
		&assignment.AssignmentID,
		&assignment.InstructorID,
		&assignment.Subject,
		&assignment.Section,
		&assignment.Term,
		&assignment.Active,
		&assignment.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, store.ErrAssignmentNotFound
		}
		return nil, fmt.Errorf("failed to get teaching assignment: %w", err)
	}

	return &assignment, nil
}

// GetStudent retrieves a student by ID.
func (s *CatalogStore) GetStudent(ctx context.Context, studentID uuid.UUID) (*models.Student, error) {
	query := `
		SELECT student_id, student_number, full_name, section, term
		FROM students
		WHERE student_id = $1
	`

	var student models.Student
	err := s.pool.QueryRow(ctx, query, studentID).Scan(
		&student.StudentID,
		&student.Number,
		&student.Name,
		&student.Section,
		&student.Term,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, store.ErrStudentNotFound
		}
		return nil, fmt.Errorf("failed to get student: %w", err)
	}

	return &student, nil
}
