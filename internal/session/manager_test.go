package session

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gokatarajesh/hcip-drill/internal/exam"
	"github.com/gokatarajesh/hcip-drill/internal/ledger"
	"github.com/gokatarajesh/hcip-drill/internal/question"
	"github.com/gokatarajesh/hcip-drill/pkg/http/ws"
)

type failingLedger struct{}

var errLedgerDown = errors.New("ledger down")

func (failingLedger) IDs(context.Context, string) ([]int, error) {
	return nil, errLedgerDown
}

func (failingLedger) Add(context.Context, string, int) error {
	return errLedgerDown
}

func (failingLedger) Remove(context.Context, string, int) error {
	return errLedgerDown
}

func newTestManager(t *testing.T, l ledger.Ledger) (*Manager, *manualScheduler) {
	t.Helper()
	catalog := question.NewCatalog(
		question.NewStore("openeuler", samplePool(t)),
		question.NewStore("opengauss", nil),
	)
	sched := &manualScheduler{}
	m := NewManager(catalog, l, ws.NewHub(zerolog.Nop()), ManagerOptions{
		Scheduler: sched,
		Shuffler:  exam.NewShuffler(3, 4),
	}, zerolog.Nop())
	return m, sched
}

func TestCreateValidatesRequest(t *testing.T) {
	m, _ := newTestManager(t, ledger.NewMemory())
	ctx := context.Background()

	_, err := m.Create(ctx, CreateRequest{Subject: "kubernetes", Mode: "exam"})
	assert.ErrorIs(t, err, ErrSubjectNotFound)

	_, err = m.Create(ctx, CreateRequest{Subject: "openeuler", Mode: "speedrun"})
	assert.ErrorIs(t, err, ErrInvalidRequest)

	_, err = m.Create(ctx, CreateRequest{Subject: "openeuler", Mode: "exam", Filter: "essay"})
	assert.ErrorIs(t, err, ErrInvalidRequest)

	_, err = m.Create(ctx, CreateRequest{Subject: "openeuler", Mode: "exam", Theme: "purple"})
	assert.ErrorIs(t, err, ErrInvalidRequest)

	s, err := m.Create(ctx, CreateRequest{Subject: "openeuler", Mode: "practice", Theme: "green"})
	require.NoError(t, err)
	assert.Equal(t, ThemeGreen, s.View().Theme)
	assert.Equal(t, 1, m.Len())
}

func TestUnavailableSubjectOpensEmptySession(t *testing.T) {
	m, _ := newTestManager(t, ledger.NewMemory())
	s, err := m.Create(context.Background(), CreateRequest{Subject: "opengauss", Mode: "exam"})
	require.NoError(t, err)

	v := s.View()
	assert.False(t, v.Available)
	assert.Equal(t, 0, v.Total)
}

func TestSubmitFeedsWrongBook(t *testing.T) {
	book := ledger.NewMemory()
	m, _ := newTestManager(t, book)
	ctx := context.Background()

	s, err := m.Create(ctx, CreateRequest{Subject: "openeuler", Mode: "exam"})
	require.NoError(t, err)

	_, err = m.Do(s.ID(), func(s *Session) (View, error) { return s.Select("B") })
	require.NoError(t, err)
	sub, err := m.Submit(ctx, s.ID())
	require.NoError(t, err)
	assert.Equal(t, exam.Incorrect, sub.Verdict)

	ids, err := book.IDs(ctx, "openeuler")
	require.NoError(t, err)
	assert.Equal(t, []int{1}, ids)

	// correct answers are not recorded
	_, _ = m.Do(s.ID(), func(s *Session) (View, error) { return s.Next(), nil })
	_, _ = m.Do(s.ID(), func(s *Session) (View, error) { return s.Answer([]string{"A", "C"}) })
	_, err = m.Submit(ctx, s.ID())
	require.NoError(t, err)
	ids, _ = book.IDs(ctx, "openeuler")
	assert.Equal(t, []int{1}, ids)
}

func TestPracticeDoesNotTouchWrongBook(t *testing.T) {
	book := ledger.NewMemory()
	m, _ := newTestManager(t, book)
	ctx := context.Background()

	s, err := m.Create(ctx, CreateRequest{Subject: "openeuler", Mode: "practice"})
	require.NoError(t, err)
	_, _ = m.Do(s.ID(), func(s *Session) (View, error) { return s.Select("B") })
	_, err = m.Submit(ctx, s.ID())
	require.NoError(t, err)

	ids, _ := book.IDs(ctx, "openeuler")
	assert.Empty(t, ids)
}

func TestReviewClearsMastered(t *testing.T) {
	book := ledger.NewMemory()
	ctx := context.Background()
	require.NoError(t, book.Add(ctx, "openeuler", 3))
	require.NoError(t, book.Add(ctx, "openeuler", 99))
	require.NoError(t, book.Add(ctx, "openeuler", 1))

	m, _ := newTestManager(t, book)
	s, err := m.Create(ctx, CreateRequest{Subject: "openeuler", Mode: "review"})
	require.NoError(t, err)

	v := s.View()
	// 99 is not in the bank and is skipped
	assert.Equal(t, 2, v.Total)
	assert.Equal(t, 3, v.Question.ID)

	_, _ = m.Do(s.ID(), func(s *Session) (View, error) { return s.Select("正确") })
	sub, err := m.Submit(ctx, s.ID())
	require.NoError(t, err)
	assert.True(t, sub.Removed)
	assert.Equal(t, 1, sub.View.Total)

	ids, _ := book.IDs(ctx, "openeuler")
	assert.Equal(t, []int{99, 1}, ids)
}

func TestReviewWithBrokenLedgerIsEmpty(t *testing.T) {
	m, _ := newTestManager(t, ledger.NewBestEffort(failingLedger{}, zerolog.Nop()))
	ctx := context.Background()

	s, err := m.Create(ctx, CreateRequest{Subject: "openeuler", Mode: "review"})
	require.NoError(t, err)
	assert.Equal(t, 0, s.View().Total)

	// write failures never surface to the caller
	graded, err := m.Create(ctx, CreateRequest{Subject: "openeuler", Mode: "exam"})
	require.NoError(t, err)
	_, _ = m.Do(graded.ID(), func(s *Session) (View, error) { return s.Select("B") })
	_, err = m.Submit(ctx, graded.ID())
	assert.NoError(t, err)
}

func TestAutoAdvanceThroughManager(t *testing.T) {
	m, sched := newTestManager(t, ledger.NewMemory())
	ctx := context.Background()

	s, err := m.Create(ctx, CreateRequest{Subject: "openeuler", Mode: "exam"})
	require.NoError(t, err)
	_, _ = m.Do(s.ID(), func(s *Session) (View, error) { return s.Select("A") })
	_, err = m.Submit(ctx, s.ID())
	require.NoError(t, err)

	sched.fireAll()
	assert.Equal(t, 1, s.View().Index)
}

func TestCloseAndExpire(t *testing.T) {
	m, sched := newTestManager(t, ledger.NewMemory())
	ctx := context.Background()

	a, err := m.Create(ctx, CreateRequest{Subject: "openeuler", Mode: "exam"})
	require.NoError(t, err)
	b, err := m.Create(ctx, CreateRequest{Subject: "openeuler", Mode: "practice"})
	require.NoError(t, err)

	_, _ = m.Do(a.ID(), func(s *Session) (View, error) { return s.Select("A") })
	_, _ = m.Submit(ctx, a.ID())

	require.NoError(t, m.Close(a.ID()))
	assert.ErrorIs(t, m.Close(a.ID()), ErrSessionNotFound)
	_, err = m.Get(a.ID())
	assert.ErrorIs(t, err, ErrSessionNotFound)

	// the closed session ignores its pending advance
	sched.fireAll()
	assert.Equal(t, 0, a.View().Index)

	assert.Equal(t, 0, m.Expire(time.Now(), time.Hour))
	assert.Equal(t, 1, m.Expire(time.Now().Add(2*time.Hour), time.Hour))
	_, err = m.Get(b.ID())
	assert.ErrorIs(t, err, ErrSessionNotFound)
	assert.Equal(t, 0, m.Len())
}

func TestCloseAllStopsPendingAdvances(t *testing.T) {
	m, sched := newTestManager(t, ledger.NewMemory())
	ctx := context.Background()

	var live []*Session
	for range 3 {
		s, err := m.Create(ctx, CreateRequest{Subject: "openeuler", Mode: "exam"})
		require.NoError(t, err)
		_, _ = m.Do(s.ID(), func(s *Session) (View, error) { return s.Select("A") })
		_, err = m.Submit(ctx, s.ID())
		require.NoError(t, err)
		live = append(live, s)
	}
	require.Equal(t, 3, sched.pending())

	assert.Equal(t, 3, m.CloseAll(ReasonShutdown))
	assert.Equal(t, 0, m.Len())
	assert.Equal(t, 0, sched.pending())

	sched.fireAll()
	for _, s := range live {
		assert.Equal(t, 0, s.View().Index)
	}
	assert.Equal(t, 0, m.CloseAll(ReasonShutdown))
}

func TestJanitorTickExpires(t *testing.T) {
	m, _ := newTestManager(t, ledger.NewMemory())
	_, err := m.Create(context.Background(), CreateRequest{Subject: "openeuler", Mode: "exam"})
	require.NoError(t, err)

	j := NewJanitor(m, time.Minute, time.Second, zerolog.Nop())
	j.tick(time.Now())
	assert.Equal(t, 1, m.Len())
	j.tick(time.Now().Add(time.Hour))
	assert.Equal(t, 0, m.Len())
}

func TestDoUnknownSession(t *testing.T) {
	m, _ := newTestManager(t, ledger.NewMemory())
	_, err := m.Do("missing", func(s *Session) (View, error) { return s.Next(), nil })
	assert.ErrorIs(t, err, ErrSessionNotFound)
	_, err = m.Submit(context.Background(), "missing")
	assert.ErrorIs(t, err, ErrSessionNotFound)
}
