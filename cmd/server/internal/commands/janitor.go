package commands

import (
	"context"
	"time"

	"github.com/rollcall-app/rollcall/internal/store"
	"github.com/rollcall-app/rollcall/internal/telemetry"
	"github.com/rs/zerolog/log"
)

// runJanitors periodically removes expired tokens and audit events past the
// retention window. These sweeps are storage hygiene only; token validity and
// audit queries never depend on them.
func runJanitors(ctx context.Context, period, retention time.Duration, tokens store.TokenStore, audits store.AuditStore) {
	if period <= 0 {
		period = 10 * time.Minute
	}

	ticker := time.NewTicker(period)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			sweep(ctx, retention, tokens, audits)
		}
	}
}

func sweep(ctx context.Context, retention time.Duration, tokens store.TokenStore, audits store.AuditStore) {
	now := time.Now()

	// Expired tokens are dead weight the moment they expire; a grace period
	// keeps recent ones around for debugging.
	removed, err := tokens.DeleteExpired(ctx, now.Add(-time.Hour))
	if err != nil {
		log.Warn().Err(err).Msg("token janitor sweep failed")
	} else if removed > 0 {
		telemetry.GetMetrics().JanitorDeletionsTotal.WithLabelValues("rotating_tokens").Add(float64(removed))
	}

	if retention > 0 {
		purged, err := audits.PurgeOlderThan(ctx, now.Add(-retention))
		if err != nil {
			log.Warn().Err(err).Msg("audit janitor sweep failed")
		} else if purged > 0 {
			telemetry.GetMetrics().JanitorDeletionsTotal.WithLabelValues("audit_events").Add(float64(purged))
		}
	}
}
