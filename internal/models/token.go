package models

import (
	"time"

	"github.com/google/uuid"
)

// RotatingToken is a short-lived code bound to a session. Multiple unexpired
// tokens may coexist for one session; rotation never invalidates a
// predecessor early, which tolerates clock and network skew between the
// rotation on the instructor's screen and the student's scan.
type RotatingToken struct {
	SessionID uuid.UUID
	Code      string
	IssuedAt  time.Time
	ExpiresAt time.Time
}

// IsExpired returns true once the token is past its expiry. Expiry is the
// only authority over token validity; tokens are never explicitly deleted
// or consumed.
func (t *RotatingToken) IsExpired(now time.Time) bool {
	return !now.Before(t.ExpiresAt)
}
