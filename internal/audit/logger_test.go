package audit

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/rollcall-app/rollcall/internal/models"
	"github.com/rollcall-app/rollcall/internal/store/memory"
	"github.com/stretchr/testify/require"
)

func TestLoggerLog(t *testing.T) {
	ctx := context.Background()
	audits := memory.NewAuditStore()
	logger := New(audits)

	now := time.Date(2026, 3, 10, 10, 0, 0, 0, time.UTC)
	logger.now = func() time.Time { return now }

	studentID := uuid.New()
	sessionID := uuid.New()

	logger.Log(ctx, models.AuditScanDenied, models.ActorStudent, &studentID, models.TargetSession, &sessionID, map[string]string{
		"reason": "not_enrolled",
	})

	events, err := logger.ByActor(ctx, models.ActorStudent, studentID, 10)
	require.NoError(t, err)
	require.Len(t, events, 1)
	require.Equal(t, models.AuditScanDenied, events[0].Action)
	require.Equal(t, "not_enrolled", events[0].Metadata["reason"])
	require.True(t, events[0].CreatedAt.Equal(now))
	require.NotEqual(t, uuid.Nil, events[0].EventID)

	byTarget, err := logger.ByTarget(ctx, models.TargetSession, sessionID, 10)
	require.NoError(t, err)
	require.Len(t, byTarget, 1)
	require.Equal(t, events[0].EventID, byTarget[0].EventID)
}

func TestLoggerLogSystemActor(t *testing.T) {
	ctx := context.Background()
	audits := memory.NewAuditStore()
	logger := New(audits)

	sessionID := uuid.New()
	logger.Log(ctx, models.AuditSessionCancelled, models.ActorSystem, nil, models.TargetSession, &sessionID, nil)

	events, err := logger.ByTarget(ctx, models.TargetSession, sessionID, 10)
	require.NoError(t, err)
	require.Len(t, events, 1)
	require.Equal(t, models.ActorSystem, events[0].ActorKind)
	require.Nil(t, events[0].ActorID)
}
