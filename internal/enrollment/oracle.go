package enrollment

import (
	"context"

	"github.com/google/uuid"
	"github.com/rollcall-app/rollcall/internal/store"
)

// Oracle answers whether a student is enrolled in a teaching assignment. A
// student is enrolled iff their current section and term both match the
// assignment's. Pure read, no caching beyond the store's own.
type Oracle struct {
	catalog store.CatalogStore
}

// NewOracle creates an oracle over the catalog store.
func NewOracle(catalog store.CatalogStore) *Oracle {
	return &Oracle{
		catalog: catalog,
	}
}

// IsEnrolled reports whether the student belongs to the assignment's
// section and term.
func (o *Oracle) IsEnrolled(ctx context.Context, studentID, assignmentID uuid.UUID) (bool, error) {
	student, err := o.catalog.GetStudent(ctx, studentID)
	if err != nil {
		return false, err
	}

	assignment, err := o.catalog.GetAssignment(ctx, assignmentID)
	if err != nil {
		return false, err
	}

	return student.Section == assignment.Section && student.Term == assignment.Term, nil
}
