package memory

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/rollcall-app/rollcall/internal/models"
	"github.com/rollcall-app/rollcall/internal/store"
	"github.com/stretchr/testify/require"
)

func newTestSession(assignmentID uuid.UUID, start, end time.Time) *models.Session {
	return &models.Session{
		SessionID:    uuid.New(),
		AssignmentID: assignmentID,
		StartTime:    start,
		EndTime:      end,
		SecretSeed:   "0123456789abcdef0123456789abcdef",
		Status:       models.SessionScheduled,
		CreatedAt:    time.Now(),
	}
}

func TestSessionStoreCreateGet(t *testing.T) {
	ctx := context.Background()
	st := NewSessionStore()

	start := time.Now().Add(time.Hour)
	session := newTestSession(uuid.New(), start, start.Add(time.Hour))

	require.NoError(t, st.Create(ctx, session))

	got, err := st.Get(ctx, session.SessionID)
	require.NoError(t, err)
	require.Equal(t, session.SessionID, got.SessionID)
	require.Equal(t, session.AssignmentID, got.AssignmentID)

	// Mutating the returned clone must not affect the stored copy
	got.Status = models.SessionCompleted
	again, err := st.Get(ctx, session.SessionID)
	require.NoError(t, err)
	require.Equal(t, models.SessionScheduled, again.Status)
}

func TestSessionStoreGetNotFound(t *testing.T) {
	st := NewSessionStore()

	_, err := st.Get(context.Background(), uuid.New())
	require.ErrorIs(t, err, store.ErrSessionNotFound)
}

func TestSessionStoreCancelSticky(t *testing.T) {
	ctx := context.Background()
	st := NewSessionStore()

	start := time.Now().Add(time.Hour)
	session := newTestSession(uuid.New(), start, start.Add(time.Hour))
	require.NoError(t, st.Create(ctx, session))

	require.NoError(t, st.Cancel(ctx, session.SessionID, time.Now()))

	got, err := st.Get(ctx, session.SessionID)
	require.NoError(t, err)
	require.Equal(t, models.SessionCancelled, got.Status)
	require.NotNil(t, got.CancelledAt)

	// A later status refresh must not resurrect a cancelled session
	require.NoError(t, st.UpdateStatus(ctx, session.SessionID, models.SessionActive))

	got, err = st.Get(ctx, session.SessionID)
	require.NoError(t, err)
	require.Equal(t, models.SessionCancelled, got.Status)
}

func TestSessionStoreFindOverlapping(t *testing.T) {
	ctx := context.Background()
	st := NewSessionStore()
	assignmentID := uuid.New()

	base := time.Date(2026, 3, 10, 10, 0, 0, 0, time.UTC)

	inside := newTestSession(assignmentID, base, base.Add(time.Hour))
	require.NoError(t, st.Create(ctx, inside))

	before := newTestSession(assignmentID, base.Add(-3*time.Hour), base.Add(-2*time.Hour))
	require.NoError(t, st.Create(ctx, before))

	cancelled := newTestSession(assignmentID, base, base.Add(time.Hour))
	require.NoError(t, st.Create(ctx, cancelled))
	require.NoError(t, st.Cancel(ctx, cancelled.SessionID, base))

	otherAssignment := newTestSession(uuid.New(), base, base.Add(time.Hour))
	require.NoError(t, st.Create(ctx, otherAssignment))

	found, err := st.FindOverlapping(ctx, assignmentID, base.Add(30*time.Minute), base.Add(90*time.Minute))
	require.NoError(t, err)
	require.Len(t, found, 1)
	require.Equal(t, inside.SessionID, found[0].SessionID)
}

func TestSessionStoreListByAssignmentNewestFirst(t *testing.T) {
	ctx := context.Background()
	st := NewSessionStore()
	assignmentID := uuid.New()

	base := time.Date(2026, 3, 10, 10, 0, 0, 0, time.UTC)
	older := newTestSession(assignmentID, base, base.Add(time.Hour))
	newer := newTestSession(assignmentID, base.Add(24*time.Hour), base.Add(25*time.Hour))

	require.NoError(t, st.Create(ctx, older))
	require.NoError(t, st.Create(ctx, newer))

	sessions, err := st.ListByAssignment(ctx, assignmentID)
	require.NoError(t, err)
	require.Len(t, sessions, 2)
	require.Equal(t, newer.SessionID, sessions[0].SessionID)
	require.Equal(t, older.SessionID, sessions[1].SessionID)
}
