package services

import (
	"context"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog"
	"gorm.io/gorm"

	"github.com/tbourn/go-chat-relay/internal/repo"
)

// PendingSweeper fails conversations left pending by a crash between insert
// and commit, purges expired idempotency keys, and refreshes the
// per-status gauge.
type PendingSweeper struct {
	DB              *gorm.DB
	MaxAge          time.Duration
	FallbackMessage string
	Log             zerolog.Logger

	// Now is overridable in tests.
	Now func() time.Time
}

// Sweep runs one pass and returns how many conversations were failed.
func (s *PendingSweeper) Sweep(ctx context.Context) (int64, error) {
	now := time.Now().UTC()
	if s.Now != nil {
		now = s.Now().UTC()
	}
	msg := s.FallbackMessage
	if msg == "" {
		msg = DefaultFallbackMessage
	}

	n, err := repo.FailStalePending(ctx, s.DB, now.Add(-s.MaxAge), msg)
	if err != nil {
		return 0, err
	}
	if n > 0 {
		s.Log.Warn().Int64("count", n).Msg("failed stale pending conversations")
	}

	if purged, err := repo.PurgeExpiredIdempotency(ctx, s.DB, now); err != nil {
		s.Log.Warn().Err(err).Msg("idempotency purge failed")
	} else if purged > 0 {
		s.Log.Debug().Int64("count", purged).Msg("purged expired idempotency keys")
	}

	if counts, err := repo.StatusCounts(ctx, s.DB); err == nil {
		conversationsByStatus.Reset()
		for status, c := range counts {
			conversationsByStatus.WithLabelValues(status).Set(float64(c))
		}
	}
	return n, nil
}

// Start schedules Sweep on spec (standard cron syntax or descriptors such
// as "@every 5m"). The caller stops the returned scheduler on shutdown.
func (s *PendingSweeper) Start(spec string) (*cron.Cron, error) {
	c := cron.New()
	_, err := c.AddFunc(spec, func() {
		ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
		defer cancel()
		if _, err := s.Sweep(ctx); err != nil {
			s.Log.Error().Err(err).Msg("pending sweep failed")
		}
	})
	if err != nil {
		return nil, err
	}
	c.Start()
	return c, nil
}
