package models

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestSessionStatusAt(t *testing.T) {
	start := time.Date(2026, 3, 10, 10, 0, 0, 0, time.UTC)
	end := time.Date(2026, 3, 10, 11, 0, 0, 0, time.UTC)

	tests := []struct {
		name      string
		now       time.Time
		cancelled bool
		want      SessionStatus
	}{
		{
			name: "before start",
			now:  start.Add(-time.Minute),
			want: SessionScheduled,
		},
		{
			name: "at start",
			now:  start,
			want: SessionActive,
		},
		{
			name: "mid window",
			now:  start.Add(30 * time.Minute),
			want: SessionActive,
		},
		{
			name: "at end",
			now:  end,
			want: SessionActive,
		},
		{
			name: "after end",
			now:  end.Add(time.Second),
			want: SessionCompleted,
		},
		{
			name:      "cancelled before start",
			now:       start.Add(-time.Minute),
			cancelled: true,
			want:      SessionCancelled,
		},
		{
			name:      "cancelled stays cancelled mid window",
			now:       start.Add(30 * time.Minute),
			cancelled: true,
			want:      SessionCancelled,
		},
		{
			name:      "cancelled stays cancelled after end",
			now:       end.Add(time.Hour),
			cancelled: true,
			want:      SessionCancelled,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			session := &Session{
				StartTime: start,
				EndTime:   end,
			}
			if tt.cancelled {
				cancelledAt := start
				session.Status = SessionCancelled
				session.CancelledAt = &cancelledAt
			}

			require.Equal(t, tt.want, session.StatusAt(tt.now))
		})
	}
}

func TestRotatingTokenIsExpired(t *testing.T) {
	expires := time.Date(2026, 3, 10, 10, 1, 0, 0, time.UTC)
	token := &RotatingToken{
		Code:      "ABCD2345",
		IssuedAt:  expires.Add(-time.Minute),
		ExpiresAt: expires,
	}

	require.False(t, token.IsExpired(expires.Add(-time.Second)))
	require.True(t, token.IsExpired(expires), "expiry instant is already expired")
	require.True(t, token.IsExpired(expires.Add(time.Second)))
}
