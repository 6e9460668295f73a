package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rollcall-app/rollcall/internal/models"
	"github.com/rollcall-app/rollcall/internal/store"
	"github.com/rs/zerolog/log"
)

// TokenStore implements store.TokenStore using PostgreSQL.
type TokenStore struct {
	pool *pgxpool.Pool
}

// NewTokenStore creates a new PostgreSQL-backed rotating token store.
func NewTokenStore(pool *pgxpool.Pool) *TokenStore {
	return &TokenStore{
		pool: pool,
	}
}

// Insert persists a newly issued token. Prior tokens for the session are left
// untouched.
func (s *TokenStore) Insert(ctx context.Context, token *models.RotatingToken) error {
	query := `
		INSERT INTO rotating_tokens (session_id, code, issued_at, expires_at)
		VALUES ($1, $2, $3, $4)
	`

	_, err := s.pool.Exec(ctx, query,
		token.SessionID,
		token.Code,
		token.IssuedAt,
		token.ExpiresAt,
	)
	if err != nil {
		return fmt.Errorf("failed to insert token: %w", mapPostgresError(err))
	}

	log.Debug().
		Str("session_id", token.SessionID.String()).
		Time("expires_at", token.ExpiresAt).
		Msg("Issued rotating token")

	return nil
}

// Get retrieves a token by (session, code). Expiry is the caller's concern;
// this is a plain lookup.
func (s *TokenStore) Get(ctx context.Context, sessionID uuid.UUID, code string) (*models.RotatingToken, error) {
	query := `
		SELECT session_id, code, issued_at, expires_at
		FROM rotating_tokens
		WHERE session_id = $1 AND code = $2
	`

	var token models.RotatingToken
	err := s.pool.QueryRow(ctx, query, sessionID, code).Scan(
		&token.SessionID,
		&token.Code,
		&token.IssuedAt,
		&token.ExpiresAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, store.ErrTokenNotFound
		}
		return nil, fmt.Errorf("failed to get token: %w", err)
	}

	return &token, nil
}

// DeleteExpired removes tokens that expired before the cutoff (cleanup job).
func (s *TokenStore) DeleteExpired(ctx context.Context, cutoff time.Time) (int, error) {
	query := `DELETE FROM rotating_tokens WHERE expires_at < $1`

	result, err := s.pool.Exec(ctx, query, cutoff)
	if err != nil {
		return 0, fmt.Errorf("failed to delete expired tokens: %w", err)
	}

	count := int(result.RowsAffected())

	if count > 0 {
		log.Info().Int("count", count).Msg("Deleted expired rotating tokens")
	}

	return count, nil
}
