package token

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rollcall-app/rollcall/internal/models"
	"github.com/rollcall-app/rollcall/internal/store"
	"github.com/rollcall-app/rollcall/internal/telemetry"
)

const (
	// DefaultValidity is how long an issued code stays scannable. Rotation
	// cadence is the caller's policy; issuing every 55s against this keeps a
	// continuously displayed code from going stale.
	DefaultValidity = 60 * time.Second

	// 8 symbols over a 32-character alphabet gives a 2^40 keyspace, well past
	// the 2^24 floor needed to resist brute force within the validity window.
	codeLength = 8

	// Crockford base32: no I, L, O, U, so codes survive being read aloud.
	codeAlphabet = "0123456789ABCDEFGHJKMNPQRSTVWXYZ"
)

// Rotator issues and validates short-lived codes bound to a session. Issuing
// never invalidates earlier unexpired codes, and validation is a pure read;
// replay across attendance records is prevented by the attendance uniqueness
// constraint, not by consuming tokens.
type Rotator struct {
	tokens store.TokenStore
	now    func() time.Time
}

// NewRotator creates a rotator over the given token store.
func NewRotator(tokens store.TokenStore) *Rotator {
	return &Rotator{
		tokens: tokens,
		now:    time.Now,
	}
}

// Issue creates a new token for the session expiring after validity
// (DefaultValidity when zero or negative).
func (r *Rotator) Issue(ctx context.Context, sessionID uuid.UUID, validity time.Duration) (*models.RotatingToken, error) {
	if validity <= 0 {
		validity = DefaultValidity
	}

	now := r.now()

	// A (session, code) collision is vanishingly rare but cheap to survive.
	for attempt := 0; attempt < 3; attempt++ {
		code, err := newCode()
		if err != nil {
			return nil, err
		}

		token := &models.RotatingToken{
			SessionID: sessionID,
			Code:      code,
			IssuedAt:  now,
			ExpiresAt: now.Add(validity),
		}

		err = r.tokens.Insert(ctx, token)
		if errors.Is(err, store.ErrTokenCodeTaken) {
			continue
		}
		if err != nil {
			return nil, err
		}

		telemetry.GetMetrics().TokensIssuedTotal.Inc()
		return token, nil
	}

	return nil, store.ErrTokenCodeTaken
}

// Validate returns the token for (session, code) if it exists and has not
// expired, or nil when no such token is currently valid. It is repeatable and
// side-effect-free; a code issued for one session never validates against
// another.
func (r *Rotator) Validate(ctx context.Context, sessionID uuid.UUID, code string) (*models.RotatingToken, error) {
	token, err := r.tokens.Get(ctx, sessionID, code)
	if errors.Is(err, store.ErrTokenNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	if token.IsExpired(r.now()) {
		return nil, nil
	}

	return token, nil
}

func newCode() (string, error) {
	buf := make([]byte, codeLength)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("failed to read random bytes: %w", err)
	}

	// len(codeAlphabet) divides 256, so the modulo introduces no bias.
	for i, b := range buf {
		buf[i] = codeAlphabet[int(b)%len(codeAlphabet)]
	}

	return string(buf), nil
}
