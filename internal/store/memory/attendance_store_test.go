package memory

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/rollcall-app/rollcall/internal/models"
	"github.com/rollcall-app/rollcall/internal/store"
	"github.com/stretchr/testify/require"
)

func newTestRecord(sessionID, studentID uuid.UUID) *models.AttendanceRecord {
	return &models.AttendanceRecord{
		RecordID:      uuid.New(),
		SessionID:     sessionID,
		StudentID:     studentID,
		StudentName:   "Ada Lovelace",
		StudentNumber: "S-1001",
		MarkedAt:      time.Now(),
		SourceIP:      "10.0.0.1",
		UserAgent:     "test-agent",
	}
}

func TestAttendanceStoreInsertDuplicate(t *testing.T) {
	ctx := context.Background()
	st := NewAttendanceStore(NewSessionStore(), NewCatalogStore())

	sessionID := uuid.New()
	studentID := uuid.New()

	require.NoError(t, st.Insert(ctx, newTestRecord(sessionID, studentID)))

	err := st.Insert(ctx, newTestRecord(sessionID, studentID))
	require.ErrorIs(t, err, store.ErrAlreadyMarked)

	// Same student in a different session is fine
	require.NoError(t, st.Insert(ctx, newTestRecord(uuid.New(), studentID)))
}

func TestAttendanceStoreConcurrentInsertExactlyOne(t *testing.T) {
	ctx := context.Background()
	st := NewAttendanceStore(NewSessionStore(), NewCatalogStore())

	sessionID := uuid.New()
	studentID := uuid.New()

	const attempts = 50
	var successes atomic.Int32
	var wg sync.WaitGroup

	for i := 0; i < attempts; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := st.Insert(ctx, newTestRecord(sessionID, studentID)); err == nil {
				successes.Add(1)
			}
		}()
	}
	wg.Wait()

	require.Equal(t, int32(1), successes.Load(), "exactly one duplicate insert may win")

	records, err := st.ListBySession(ctx, sessionID)
	require.NoError(t, err)
	require.Len(t, records, 1)
}

func TestAttendanceStoreGet(t *testing.T) {
	ctx := context.Background()
	st := NewAttendanceStore(NewSessionStore(), NewCatalogStore())

	sessionID := uuid.New()
	studentID := uuid.New()

	_, err := st.Get(ctx, sessionID, studentID)
	require.ErrorIs(t, err, store.ErrRecordNotFound)

	record := newTestRecord(sessionID, studentID)
	require.NoError(t, st.Insert(ctx, record))

	got, err := st.Get(ctx, sessionID, studentID)
	require.NoError(t, err)
	require.Equal(t, record.RecordID, got.RecordID)
	require.Equal(t, "Ada Lovelace", got.StudentName)
}

func TestAttendanceStoreListBySessionMarkOrder(t *testing.T) {
	ctx := context.Background()
	st := NewAttendanceStore(NewSessionStore(), NewCatalogStore())

	sessionID := uuid.New()
	base := time.Date(2026, 3, 10, 10, 0, 0, 0, time.UTC)

	second := newTestRecord(sessionID, uuid.New())
	second.MarkedAt = base.Add(2 * time.Minute)
	first := newTestRecord(sessionID, uuid.New())
	first.MarkedAt = base.Add(time.Minute)

	require.NoError(t, st.Insert(ctx, second))
	require.NoError(t, st.Insert(ctx, first))

	records, err := st.ListBySession(ctx, sessionID)
	require.NoError(t, err)
	require.Len(t, records, 2)
	require.Equal(t, first.RecordID, records[0].RecordID)
	require.Equal(t, second.RecordID, records[1].RecordID)
}

func TestAttendanceStoreStudentMetrics(t *testing.T) {
	ctx := context.Background()
	sessions := NewSessionStore()
	catalog := NewCatalogStore()
	st := NewAttendanceStore(sessions, catalog)

	studentID := uuid.New()
	catalog.PutStudent(&models.Student{
		StudentID: studentID,
		Number:    "S-1001",
		Name:      "Ada Lovelace",
		Section:   "A",
		Term:      "2026-1",
	})

	mathID := uuid.New()
	catalog.PutAssignment(&models.TeachingAssignment{
		AssignmentID: mathID,
		InstructorID: uuid.New(),
		Subject:      "Mathematics",
		Section:      "A",
		Term:         "2026-1",
		Active:       true,
	})
	otherSectionID := uuid.New()
	catalog.PutAssignment(&models.TeachingAssignment{
		AssignmentID: otherSectionID,
		InstructorID: uuid.New(),
		Subject:      "History",
		Section:      "B",
		Term:         "2026-1",
		Active:       true,
	})

	past := time.Now().Add(-2 * time.Hour)

	attended := newTestSession(mathID, past, past.Add(time.Hour))
	require.NoError(t, sessions.Create(ctx, attended))

	missed := newTestSession(mathID, past.Add(-24*time.Hour), past.Add(-23*time.Hour))
	require.NoError(t, sessions.Create(ctx, missed))

	// Not yet started, so not eligible
	future := newTestSession(mathID, time.Now().Add(time.Hour), time.Now().Add(2*time.Hour))
	require.NoError(t, sessions.Create(ctx, future))

	// Cancelled sessions never count
	cancelled := newTestSession(mathID, past, past.Add(time.Hour))
	require.NoError(t, sessions.Create(ctx, cancelled))
	require.NoError(t, sessions.Cancel(ctx, cancelled.SessionID, past))

	// Different section, student not enrolled
	foreign := newTestSession(otherSectionID, past, past.Add(time.Hour))
	require.NoError(t, sessions.Create(ctx, foreign))

	require.NoError(t, st.Insert(ctx, newTestRecord(attended.SessionID, studentID)))

	metrics, err := st.StudentMetrics(ctx, studentID)
	require.NoError(t, err)
	require.Equal(t, 2, metrics.TotalSessionsEligible)
	require.Equal(t, 1, metrics.AttendedCount)
	require.Len(t, metrics.PerSubject, 1)
	require.Equal(t, "Mathematics", metrics.PerSubject[0].Subject)
	require.Equal(t, 2, metrics.PerSubject[0].Eligible)
	require.Equal(t, 1, metrics.PerSubject[0].Attended)
}
