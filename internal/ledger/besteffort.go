package ledger

import (
	"context"

	"github.com/rs/zerolog"

	"github.com/gokatarajesh/hcip-drill/internal/metrics"
)

// BestEffort wraps a ledger so that write failures are logged and counted
// instead of returned. Reads still return their error so callers can tell an
// empty wrong book from an unreachable one.
type BestEffort struct {
	next   Ledger
	logger zerolog.Logger
}

func NewBestEffort(next Ledger, logger zerolog.Logger) *BestEffort {
	return &BestEffort{
		next:   next,
		logger: logger.With().Str("component", "ledger").Logger(),
	}
}

func (b *BestEffort) IDs(ctx context.Context, subject string) ([]int, error) {
	ids, err := b.next.IDs(ctx, subject)
	if err != nil {
		b.fail("ids", subject, 0, err)
		return nil, err
	}
	return ids, nil
}

func (b *BestEffort) Add(ctx context.Context, subject string, id int) error {
	if err := b.next.Add(ctx, subject, id); err != nil {
		b.fail("add", subject, id, err)
	}
	return nil
}

func (b *BestEffort) Remove(ctx context.Context, subject string, id int) error {
	if err := b.next.Remove(ctx, subject, id); err != nil {
		b.fail("remove", subject, id, err)
	}
	return nil
}

func (b *BestEffort) Ping(ctx context.Context) error {
	return Ping(ctx, b.next)
}

func (b *BestEffort) fail(op, subject string, id int, err error) {
	metrics.LedgerFailures.WithLabelValues(op).Inc()
	b.logger.Warn().Err(err).Str("op", op).Str("subject", subject).Int("question_id", id).Msg("ledger operation failed")
}
