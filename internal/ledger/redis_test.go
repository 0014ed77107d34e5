package ledger

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeSortedSets answers sorted-set commands from memory, ordering members
// by score and then lexically the way ZRANGE does.
type fakeSortedSets struct {
	sets map[string]map[string]float64
	err  error
}

func newFakeSortedSets() *fakeSortedSets {
	return &fakeSortedSets{sets: make(map[string]map[string]float64)}
}

func (f *fakeSortedSets) ZRange(_ context.Context, key string, _, _ int64) *redis.StringSliceCmd {
	if f.err != nil {
		return redis.NewStringSliceResult(nil, f.err)
	}
	set := f.sets[key]
	members := make([]string, 0, len(set))
	for m := range set {
		members = append(members, m)
	}
	sort.Slice(members, func(i, j int) bool {
		if set[members[i]] != set[members[j]] {
			return set[members[i]] < set[members[j]]
		}
		return members[i] < members[j]
	})
	return redis.NewStringSliceResult(members, nil)
}

func (f *fakeSortedSets) ZAddNX(_ context.Context, key string, members ...redis.Z) *redis.IntCmd {
	if f.err != nil {
		return redis.NewIntResult(0, f.err)
	}
	set, ok := f.sets[key]
	if !ok {
		set = make(map[string]float64)
		f.sets[key] = set
	}
	added := int64(0)
	for _, z := range members {
		m := fmt.Sprint(z.Member)
		if _, exists := set[m]; exists {
			continue
		}
		set[m] = z.Score
		added++
	}
	return redis.NewIntResult(added, nil)
}

func (f *fakeSortedSets) ZRem(_ context.Context, key string, members ...interface{}) *redis.IntCmd {
	if f.err != nil {
		return redis.NewIntResult(0, f.err)
	}
	removed := int64(0)
	for _, m := range members {
		if _, ok := f.sets[key][fmt.Sprint(m)]; ok {
			delete(f.sets[key], fmt.Sprint(m))
			removed++
		}
	}
	return redis.NewIntResult(removed, nil)
}

func (f *fakeSortedSets) Ping(context.Context) *redis.StatusCmd {
	if f.err != nil {
		return redis.NewStatusResult("", f.err)
	}
	return redis.NewStatusResult("PONG", nil)
}

func steppingClock() func() time.Time {
	t := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	return func() time.Time {
		t = t.Add(time.Second)
		return t
	}
}

func TestRedisLedgerKeepsInsertionOrder(t *testing.T) {
	ctx := context.Background()
	sets := newFakeSortedSets()
	l := newRedisWithClient(sets, "")
	l.now = steppingClock()

	require.NoError(t, l.Add(ctx, "openeuler", 30))
	require.NoError(t, l.Add(ctx, "openeuler", 4))
	require.NoError(t, l.Add(ctx, "openeuler", 30))
	require.NoError(t, l.Add(ctx, "openeuler", 100))
	require.NoError(t, l.Add(ctx, "opengauss", 7))

	ids, err := l.IDs(ctx, "openeuler")
	require.NoError(t, err)
	assert.Equal(t, []int{30, 4, 100}, ids)
	assert.Contains(t, sets.sets, "wrongbook:openeuler")

	require.NoError(t, l.Remove(ctx, "openeuler", 4))
	require.NoError(t, l.Remove(ctx, "openeuler", 4))
	ids, _ = l.IDs(ctx, "openeuler")
	assert.Equal(t, []int{30, 100}, ids)

	ids, _ = l.IDs(ctx, "opengauss")
	assert.Equal(t, []int{7}, ids)

	assert.Error(t, l.Add(ctx, "", 1))
	assert.NoError(t, l.Ping(ctx))
}

func TestRedisLedgerSkipsForeignMembers(t *testing.T) {
	ctx := context.Background()
	sets := newFakeSortedSets()
	sets.sets["drill:openeuler"] = map[string]float64{"2": 1, "garbage": 2, "5": 3}
	l := newRedisWithClient(sets, "drill")

	ids, err := l.IDs(ctx, "openeuler")
	require.NoError(t, err)
	assert.Equal(t, []int{2, 5}, ids)
}

func TestRedisLedgerWrapsErrors(t *testing.T) {
	ctx := context.Background()
	sets := newFakeSortedSets()
	sets.err = errors.New("connection refused")
	l := newRedisWithClient(sets, "")

	_, err := l.IDs(ctx, "openeuler")
	assert.ErrorIs(t, err, sets.err)
	assert.ErrorIs(t, l.Add(ctx, "openeuler", 1), sets.err)
	assert.ErrorIs(t, l.Remove(ctx, "openeuler", 1), sets.err)
	assert.ErrorIs(t, l.Ping(ctx), sets.err)
}
