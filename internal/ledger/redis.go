package ledger

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
)

// sortedSets is the subset of redis.Cmdable the ledger issues.
type sortedSets interface {
	ZRange(ctx context.Context, key string, start, stop int64) *redis.StringSliceCmd
	ZAddNX(ctx context.Context, key string, members ...redis.Z) *redis.IntCmd
	ZRem(ctx context.Context, key string, members ...interface{}) *redis.IntCmd
	Ping(ctx context.Context) *redis.StatusCmd
}

// Redis keeps each subject in a sorted set scored by insertion time, so
// ZRANGE returns ids oldest first.
type Redis struct {
	client sortedSets
	prefix string
	now    func() time.Time
}

func NewRedis(client *redis.Client, prefix string) *Redis {
	return newRedisWithClient(client, prefix)
}

func newRedisWithClient(client sortedSets, prefix string) *Redis {
	if prefix == "" {
		prefix = "wrongbook"
	}
	return &Redis{client: client, prefix: prefix, now: time.Now}
}

func (r *Redis) key(subject string) string {
	return fmt.Sprintf("%s:%s", r.prefix, subject)
}

func (r *Redis) IDs(ctx context.Context, subject string) ([]int, error) {
	members, err := r.client.ZRange(ctx, r.key(subject), 0, -1).Result()
	if err != nil {
		return nil, fmt.Errorf("list wrong book: %w", err)
	}
	ids := make([]int, 0, len(members))
	for _, m := range members {
		id, err := strconv.Atoi(m)
		if err != nil {
			continue
		}
		ids = append(ids, id)
	}
	return ids, nil
}

func (r *Redis) Add(ctx context.Context, subject string, id int) error {
	if err := validSubject(subject); err != nil {
		return err
	}
	z := redis.Z{Score: float64(r.now().UnixNano()), Member: strconv.Itoa(id)}
	if err := r.client.ZAddNX(ctx, r.key(subject), z).Err(); err != nil {
		return fmt.Errorf("add to wrong book: %w", err)
	}
	return nil
}

func (r *Redis) Remove(ctx context.Context, subject string, id int) error {
	if err := r.client.ZRem(ctx, r.key(subject), strconv.Itoa(id)).Err(); err != nil {
		return fmt.Errorf("remove from wrong book: %w", err)
	}
	return nil
}

func (r *Redis) Ping(ctx context.Context) error {
	return r.client.Ping(ctx).Err()
}
