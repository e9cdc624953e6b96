package worker

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog"
)

// MembershipSweeper periodically deletes expired group memberships so the
// tables stay small. Correctness never depends on the sweep: every read path
// filters on expires_at itself, the sweeper is garbage collection only.
// Owner rows carry a NULL expiry and are never touched.
type MembershipSweeper struct {
	pool     *pgxpool.Pool
	interval time.Duration
	log      zerolog.Logger
}

// NewMembershipSweeper creates a new MembershipSweeper.
func NewMembershipSweeper(pool *pgxpool.Pool, interval time.Duration, log zerolog.Logger) *MembershipSweeper {
	return &MembershipSweeper{
		pool:     pool,
		interval: interval,
		log:      log.With().Str("component", "membership_sweeper").Logger(),
	}
}

// Start begins the sweep loop. Call in a goroutine.
func (w *MembershipSweeper) Start(ctx context.Context) {
	w.log.Info().Dur("interval", w.interval).Msg("Worker started")

	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			w.log.Info().Msg("Worker stopped")
			return
		case <-ticker.C:
			w.sweep(ctx)
		}
	}
}

func (w *MembershipSweeper) sweep(ctx context.Context) {
	tag, err := w.pool.Exec(ctx, `
		DELETE FROM group_memberships
		WHERE expires_at IS NOT NULL AND expires_at <= NOW()
	`)
	if err != nil {
		w.log.Error().Err(err).Msg("sweep failed")
		return
	}

	if tag.RowsAffected() > 0 {
		w.log.Info().Int64("removed", tag.RowsAffected()).Msg("expired memberships removed")
	}
}
