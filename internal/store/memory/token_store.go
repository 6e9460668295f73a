package memory

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rollcall-app/rollcall/internal/models"
	"github.com/rollcall-app/rollcall/internal/store"
)

type tokenKey struct {
	sessionID uuid.UUID
	code      string
}

// TokenStore implements store.TokenStore using in-memory storage.
type TokenStore struct {
	mu sync.RWMutex

	tokens map[tokenKey]*models.RotatingToken
}

// NewTokenStore creates a new in-memory token store.
func NewTokenStore() *TokenStore {
	return &TokenStore{
		tokens: make(map[tokenKey]*models.RotatingToken),
	}
}

// Insert stores a newly issued token.
func (s *TokenStore) Insert(ctx context.Context, token *models.RotatingToken) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	key := tokenKey{sessionID: token.SessionID, code: token.Code}
	if _, exists := s.tokens[key]; exists {
		return store.ErrTokenCodeTaken
	}

	clone := *token
	s.tokens[key] = &clone

	return nil
}

// Get retrieves a token by (session, code).
func (s *TokenStore) Get(ctx context.Context, sessionID uuid.UUID, code string) (*models.RotatingToken, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	token, exists := s.tokens[tokenKey{sessionID: sessionID, code: code}]
	if !exists {
		return nil, store.ErrTokenNotFound
	}

	clone := *token
	return &clone, nil
}

// DeleteExpired removes tokens that expired before the cutoff.
func (s *TokenStore) DeleteExpired(ctx context.Context, cutoff time.Time) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	count := 0
	for key, token := range s.tokens {
		if token.ExpiresAt.Before(cutoff) {
			delete(s.tokens, key)
			count++
		}
	}

	return count, nil
}
