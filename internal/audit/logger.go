package audit

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/rollcall-app/rollcall/internal/models"
	"github.com/rollcall-app/rollcall/internal/store"
	"github.com/rollcall-app/rollcall/internal/telemetry"
	"github.com/rs/zerolog"
)

// Logger records accept/deny decisions for later review. Appends are
// best-effort: a failure to persist an audit event must never fail the
// caller's primary operation, so Log reports problems through zerolog and a
// counter instead of an error return.
type Logger struct {
	store store.AuditStore
	now   func() time.Time
}

// New creates an audit logger over the given store.
func New(auditStore store.AuditStore) *Logger {
	return &Logger{
		store: auditStore,
		now:   time.Now,
	}
}

// Log appends one audit event.
func (l *Logger) Log(ctx context.Context, action string, actorKind models.ActorKind, actorID *uuid.UUID, targetKind models.TargetKind, targetID *uuid.UUID, metadata map[string]string) {
	event := &models.AuditEvent{
		EventID:    uuid.New(),
		Action:     action,
		ActorKind:  actorKind,
		ActorID:    actorID,
		TargetKind: targetKind,
		TargetID:   targetID,
		Metadata:   metadata,
		CreatedAt:  l.now(),
	}

	if err := l.store.Append(ctx, event); err != nil {
		telemetry.GetMetrics().AuditAppendErrorsTotal.Inc()
		zerolog.Ctx(ctx).Warn().
			Err(err).
			Str("action", action).
			Msg("failed to append audit event")
	}
}

// ByActor returns the newest events for one actor, for investigation tooling.
func (l *Logger) ByActor(ctx context.Context, kind models.ActorKind, actorID uuid.UUID, limit int) ([]*models.AuditEvent, error) {
	return l.store.ListByActor(ctx, kind, actorID, limit)
}

// ByTarget returns the newest events about one target.
func (l *Logger) ByTarget(ctx context.Context, kind models.TargetKind, targetID uuid.UUID, limit int) ([]*models.AuditEvent, error) {
	return l.store.ListByTarget(ctx, kind, targetID, limit)
}
