package session

import (
	"context"
	"time"

	"github.com/rs/zerolog"
)

// Janitor periodically closes sessions that have been idle past their TTL.
type Janitor struct {
	manager  *Manager
	ttl      time.Duration
	interval time.Duration
	logger   zerolog.Logger
}

func NewJanitor(manager *Manager, ttl, interval time.Duration, logger zerolog.Logger) *Janitor {
	if ttl <= 0 {
		ttl = 2 * time.Hour
	}
	if interval <= 0 {
		interval = time.Minute
	}
	return &Janitor{
		manager:  manager,
		ttl:      ttl,
		interval: interval,
		logger:   logger.With().Str("component", "session_janitor").Logger(),
	}
}

// Run blocks until context cancellation.
func (j *Janitor) Run(ctx context.Context) error {
	ticker := time.NewTicker(j.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case now := <-ticker.C:
			j.tick(now)
		}
	}
}

func (j *Janitor) tick(now time.Time) {
	if n := j.manager.Expire(now, j.ttl); n > 0 {
		j.logger.Info().
			Int("expired", n).
			Int("live", j.manager.Len()).
			Dur("ttl", j.ttl).
			Msg("idle sessions expired")
	}
}
