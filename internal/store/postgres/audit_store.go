package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rollcall-app/rollcall/internal/models"
	"github.com/rs/zerolog/log"
)

// AuditStore implements store.AuditStore using PostgreSQL.
type AuditStore struct {
	pool *pgxpool.Pool
}

// NewAuditStore creates a new PostgreSQL-backed audit store.
func NewAuditStore(pool *pgxpool.Pool) *AuditStore {
	return &AuditStore{
		pool: pool,
	}
}

// Append writes a single audit event.
func (s *AuditStore) Append(ctx context.Context, event *models.AuditEvent) error {
	query := `
		INSERT INTO audit_events (
			event_id, action, actor_kind, actor_id,
			target_kind, target_id, metadata, created_at
		) VALUES (
			$1, $2, $3, $4, $5, $6, $7, $8
		)
	`

	metadata := event.Metadata
	if metadata == nil {
		metadata = map[string]string{}
	}

	_, err := s.pool.Exec(ctx, query,
		event.EventID,
		event.Action,
		event.ActorKind,
		event.ActorID,
		event.TargetKind,
		event.TargetID,
		metadata,
		event.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to append audit event: %w", mapPostgresError(err))
	}

	return nil
}

const auditColumns = `
	event_id, action, actor_kind, actor_id,
	target_kind, target_id, metadata, created_at
`

// ListByActor returns the newest events for one actor.
func (s *AuditStore) ListByActor(ctx context.Context, kind models.ActorKind, actorID uuid.UUID, limit int) ([]*models.AuditEvent, error) {
	query := `
		SELECT ` + auditColumns + `
		FROM audit_events
		WHERE actor_kind = $1 AND actor_id = $2
		ORDER BY created_at DESC
		LIMIT $3
	`

	rows, err := s.pool.Query(ctx, query, kind, actorID, normalizeLimit(limit))
	if err != nil {
		return nil, fmt.Errorf("failed to list audit events by actor: %w", err)
	}
	defer rows.Close()

	return collectAuditEvents(rows)
}

// ListByTarget returns the newest events about one target.
func (s *AuditStore) ListByTarget(ctx context.Context, kind models.TargetKind, targetID uuid.UUID, limit int) ([]*models.AuditEvent, error) {
	query := `
		SELECT ` + auditColumns + `
		FROM audit_events
		WHERE target_kind = $1 AND target_id = $2
		ORDER BY created_at DESC
		LIMIT $3
	`

	rows, err := s.pool.Query(ctx, query, kind, targetID, normalizeLimit(limit))
	if err != nil {
		return nil, fmt.Errorf("failed to list audit events by target: %w", err)
	}
	defer rows.Close()

	return collectAuditEvents(rows)
}

// PurgeOlderThan deletes events past the retention window (cleanup job).
func (s *AuditStore) PurgeOlderThan(ctx context.Context, cutoff time.Time) (int, error) {
	query := `DELETE FROM audit_events WHERE created_at < $1`

	result, err := s.pool.Exec(ctx, query, cutoff)
	if err != nil {
		return 0, fmt.Errorf("failed to purge audit events: %w", err)
	}

	count := int(result.RowsAffected())

	if count > 0 {
		log.Info().Int("count", count).Time("cutoff", cutoff).Msg("Purged audit events")
	}

	return count, nil
}

func normalizeLimit(limit int) int {
	if limit <= 0 || limit > 500 {
		return 100
	}
	return limit
}

func collectAuditEvents(rows pgx.Rows) ([]*models.AuditEvent, error) {
	var events []*models.AuditEvent
	for rows.Next() {
		var event models.AuditEvent
		err := rows.Scan(
			&event.EventID,
			&event.Action,
			&event.ActorKind,
			&event.ActorID,
			&event.TargetKind,
			&event.TargetID,
			&event.Metadata,
			&event.CreatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan audit event: %w", err)
		}
		events = append(events, &event)
	}
	return events, rows.Err()
}
