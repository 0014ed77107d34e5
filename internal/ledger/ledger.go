// Package ledger stores the wrong-answer book: per subject, the ids of
// questions a user answered incorrectly in Exam or Random-Exam mode.
package ledger

import (
	"context"
	"errors"
	"fmt"
)

// Backend names accepted by LEDGER_BACKEND.
const (
	BackendMemory   = "memory"
	BackendRedis    = "redis"
	BackendPostgres = "postgres"
	BackendMongo    = "mongo"
)

var ErrUnknownBackend = errors.New("unknown ledger backend")

// Ledger is the wrong-book store. IDs returns ids in insertion order;
// Add of a present id and Remove of an absent id are no-ops.
type Ledger interface {
	IDs(ctx context.Context, subject string) ([]int, error)
	Add(ctx context.Context, subject string, id int) error
	Remove(ctx context.Context, subject string, id int) error
}

// Pinger is implemented by backends with a remote dependency.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Ping checks l when it has a remote dependency.
func Ping(ctx context.Context, l Ledger) error {
	if p, ok := l.(Pinger); ok {
		return p.Ping(ctx)
	}
	return nil
}

func validSubject(subject string) error {
	if subject == "" {
		return fmt.Errorf("ledger: empty subject")
	}
	return nil
}
