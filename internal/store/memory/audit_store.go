package memory

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rollcall-app/rollcall/internal/models"
)

// AuditStore implements store.AuditStore using in-memory storage.
type AuditStore struct {
	mu sync.RWMutex

	events []*models.AuditEvent
}

// NewAuditStore creates a new in-memory audit store.
func NewAuditStore() *AuditStore {
	return &AuditStore{}
}

// Append stores a single audit event.
func (s *AuditStore) Append(ctx context.Context, event *models.AuditEvent) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	clone := *event
	if event.Metadata != nil {
		clone.Metadata = make(map[string]string, len(event.Metadata))
		for k, v := range event.Metadata {
			clone.Metadata[k] = v
		}
	}
	s.events = append(s.events, &clone)

	return nil
}

// ListByActor returns the newest events for one actor.
func (s *AuditStore) ListByActor(ctx context.Context, kind models.ActorKind, actorID uuid.UUID, limit int) ([]*models.AuditEvent, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.filter(limit, func(e *models.AuditEvent) bool {
		return e.ActorKind == kind && e.ActorID != nil && *e.ActorID == actorID
	}), nil
}

// ListByTarget returns the newest events about one target.
func (s *AuditStore) ListByTarget(ctx context.Context, kind models.TargetKind, targetID uuid.UUID, limit int) ([]*models.AuditEvent, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.filter(limit, func(e *models.AuditEvent) bool {
		return e.TargetKind == kind && e.TargetID != nil && *e.TargetID == targetID
	}), nil
}

// PurgeOlderThan deletes events past the retention window.
func (s *AuditStore) PurgeOlderThan(ctx context.Context, cutoff time.Time) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	kept := s.events[:0]
	count := 0
	for _, event := range s.events {
		if event.CreatedAt.Before(cutoff) {
			count++
			continue
		}
		kept = append(kept, event)
	}
	s.events = kept

	return count, nil
}

// filter walks events newest-first; callers hold the read lock.
func (s *AuditStore) filter(limit int, match func(*models.AuditEvent) bool) []*models.AuditEvent {
	if limit <= 0 {
		limit = 100
	}

	var events []*models.AuditEvent
	for i := len(s.events) - 1; i >= 0 && len(events) < limit; i-- {
		if match(s.events[i]) {
			clone := *s.events[i]
			events = append(events, &clone)
		}
	}

	return events
}
