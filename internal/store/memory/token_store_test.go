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

func TestTokenStoreInsertGet(t *testing.T) {
	ctx := context.Background()
	st := NewTokenStore()

	sessionID := uuid.New()
	now := time.Now()
	token := &models.RotatingToken{
		SessionID: sessionID,
		Code:      "ABCD2345",
		IssuedAt:  now,
		ExpiresAt: now.Add(time.Minute),
	}

	require.NoError(t, st.Insert(ctx, token))

	got, err := st.Get(ctx, sessionID, "ABCD2345")
	require.NoError(t, err)
	require.Equal(t, token.Code, got.Code)
	require.True(t, got.ExpiresAt.Equal(token.ExpiresAt))

	// Code is scoped to the session
	_, err = st.Get(ctx, uuid.New(), "ABCD2345")
	require.ErrorIs(t, err, store.ErrTokenNotFound)
}

func TestTokenStoreInsertCodeTaken(t *testing.T) {
	ctx := context.Background()
	st := NewTokenStore()

	sessionID := uuid.New()
	now := time.Now()
	token := &models.RotatingToken{
		SessionID: sessionID,
		Code:      "ABCD2345",
		IssuedAt:  now,
		ExpiresAt: now.Add(time.Minute),
	}

	require.NoError(t, st.Insert(ctx, token))
	require.ErrorIs(t, st.Insert(ctx, token), store.ErrTokenCodeTaken)

	// Same code on another session does not collide
	other := *token
	other.SessionID = uuid.New()
	require.NoError(t, st.Insert(ctx, &other))
}

func TestTokenStoreDeleteExpired(t *testing.T) {
	ctx := context.Background()
	st := NewTokenStore()

	sessionID := uuid.New()
	now := time.Now()

	expired := &models.RotatingToken{
		SessionID: sessionID,
		Code:      "EXPIRED0",
		IssuedAt:  now.Add(-2 * time.Minute),
		ExpiresAt: now.Add(-time.Minute),
	}
	live := &models.RotatingToken{
		SessionID: sessionID,
		Code:      "STILLOK0",
		IssuedAt:  now,
		ExpiresAt: now.Add(time.Minute),
	}

	require.NoError(t, st.Insert(ctx, expired))
	require.NoError(t, st.Insert(ctx, live))

	removed, err := st.DeleteExpired(ctx, now)
	require.NoError(t, err)
	require.Equal(t, 1, removed)

	_, err = st.Get(ctx, sessionID, "EXPIRED0")
	require.ErrorIs(t, err, store.ErrTokenNotFound)

	_, err = st.Get(ctx, sessionID, "STILLOK0")
	require.NoError(t, err)
}
