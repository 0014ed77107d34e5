package session

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gokatarajesh/hcip-drill/internal/exam"
	"github.com/gokatarajesh/hcip-drill/internal/question"
)

// manualScheduler records scheduled callbacks and fires them on demand.
type manualScheduler struct {
	mu    sync.Mutex
	tasks []*manualTask
}

type manualTask struct {
	f       func()
	delay   time.Duration
	stopped bool
}

func (t *manualTask) Stop() bool {
	was := !t.stopped
	t.stopped = true
	return was
}

func (m *manualScheduler) AfterFunc(d time.Duration, f func()) Task {
	m.mu.Lock()
	defer m.mu.Unlock()
	t := &manualTask{f: f, delay: d}
	m.tasks = append(m.tasks, t)
	return t
}

func (m *manualScheduler) pending() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := 0
	for _, t := range m.tasks {
		if !t.stopped {
			n++
		}
	}
	return n
}

// fireAll runs every task, stopped or not, the way a timer that lost the
// race with Stop would.
func (m *manualScheduler) fireAll() {
	m.mu.Lock()
	tasks := m.tasks
	m.tasks = nil
	m.mu.Unlock()
	for _, t := range tasks {
		t.f()
	}
}

func mustChoice(t *testing.T, id int, kind question.Type, options, correct []string) question.Question {
	t.Helper()
	q, err := question.NewChoice(id, kind, "prompt", options, correct, question.Meta{Explanation: "because"})
	require.NoError(t, err)
	return q
}

func samplePool(t *testing.T) []question.Question {
	return []question.Question{
		mustChoice(t, 1, question.TypeSingle, []string{"A. yum", "B. apt"}, []string{"A"}),
		mustChoice(t, 2, question.TypeMultiple, []string{"A. x", "B. y", "C. z"}, []string{"A", "C"}),
		mustChoice(t, 3, question.TypeJudge, []string{"正确", "错误"}, []string{"正确"}),
		question.NewFill(4, "kernel?", "Linux", question.Meta{}),
	}
}

func newTestSession(t *testing.T, mode Mode, sched Scheduler) *Session {
	return New(samplePool(t), Options{
		ID:               "s1",
		Subject:          "openeuler",
		Mode:             mode,
		Available:        true,
		AutoAdvanceDelay: 300 * time.Millisecond,
		Scheduler:        sched,
		Shuffler:         exam.NewShuffler(1, 2),
	})
}

func TestCorrectSubmitSchedulesAdvance(t *testing.T) {
	sched := &manualScheduler{}
	var advanced []View
	s := newTestSession(t, ModeExam, sched)
	s.onAdvance = func(v View) { advanced = append(advanced, v) }

	_, err := s.Select("A")
	require.NoError(t, err)
	sub, err := s.Submit()
	require.NoError(t, err)

	assert.Equal(t, exam.Correct, sub.Verdict)
	assert.Equal(t, PhaseRevealed, sub.View.Phase)
	assert.Equal(t, "correct", sub.View.Verdict)
	assert.Equal(t, []string{"A"}, sub.View.Question.Correct)
	assert.Equal(t, 1, sched.pending())
	assert.Equal(t, 300*time.Millisecond, sched.tasks[0].delay)

	sched.fireAll()
	v := s.View()
	assert.Equal(t, 1, v.Index)
	assert.Equal(t, PhaseAnswering, v.Phase)
	require.Len(t, advanced, 1)
	assert.Equal(t, 1, advanced[0].Index)
}

func TestIncorrectSubmitStaysRevealed(t *testing.T) {
	sched := &manualScheduler{}
	s := newTestSession(t, ModeExam, sched)

	_, err := s.Select("B")
	require.NoError(t, err)
	sub, err := s.Submit()
	require.NoError(t, err)

	assert.Equal(t, exam.Incorrect, sub.Verdict)
	assert.Equal(t, 0, sched.pending())
	assert.Equal(t, 0, s.View().Index)

	_, err = s.Select("A")
	assert.ErrorIs(t, err, ErrRevealed)
}

func TestNavigationCancelsPendingAdvance(t *testing.T) {
	sched := &manualScheduler{}
	s := newTestSession(t, ModeExam, sched)

	_, _ = s.Select("A")
	_, err := s.Submit()
	require.NoError(t, err)

	v := s.Seek(3)
	assert.Equal(t, 3, v.Index)
	assert.Equal(t, 0, sched.pending())

	// a timer that already fired must not move the session
	sched.fireAll()
	assert.Equal(t, 3, s.View().Index)
}

func TestPreviousOnFirstQuestionKeepsRevealButCancels(t *testing.T) {
	sched := &manualScheduler{}
	s := newTestSession(t, ModeExam, sched)

	_, _ = s.Select("A")
	_, _ = s.Submit()

	v := s.Previous()
	assert.Equal(t, 0, v.Index)
	assert.Equal(t, PhaseRevealed, v.Phase)

	sched.fireAll()
	assert.Equal(t, 0, s.View().Index)
}

func TestLastQuestionDoesNotAdvance(t *testing.T) {
	sched := &manualScheduler{}
	s := newTestSession(t, ModeExam, sched)
	s.Seek(3)

	_, err := s.Select("  linux ")
	require.NoError(t, err)
	sub, err := s.Submit()
	require.NoError(t, err)

	assert.True(t, sub.Last)
	assert.Equal(t, exam.Correct, sub.Verdict)
	assert.Equal(t, 0, sched.pending())
}

func TestSubmitWithoutAnswer(t *testing.T) {
	s := newTestSession(t, ModeExam, &manualScheduler{})
	_, err := s.Submit()
	assert.ErrorIs(t, err, ErrNoAnswer)
	assert.Equal(t, PhaseAnswering, s.View().Phase)
}

func TestSelectRejectsUnknownOption(t *testing.T) {
	s := newTestSession(t, ModeExam, &manualScheduler{})
	_, err := s.Select("Z")
	assert.ErrorIs(t, err, ErrUnknownOption)
}

func TestMultipleToggleAndScore(t *testing.T) {
	s := newTestSession(t, ModeExam, &manualScheduler{})
	s.Seek(1)

	_, _ = s.Select("A")
	_, _ = s.Select("B")
	v, err := s.Select("C")
	require.NoError(t, err)
	assert.Equal(t, []string{"A", "B", "C"}, v.Answer)

	v, err = s.Select("B")
	require.NoError(t, err)
	assert.Equal(t, []string{"A", "C"}, v.Answer)

	res := s.Score()
	assert.Equal(t, 1, res.Correct)
	assert.Equal(t, 1, res.Answered)
	assert.Equal(t, 18, res.Score)
}

func TestAnswersSurviveNavigation(t *testing.T) {
	s := newTestSession(t, ModeExam, &manualScheduler{})
	_, _ = s.Select("B")
	s.Next()
	v := s.Previous()
	assert.Equal(t, []string{"B"}, v.Answer)
	assert.Equal(t, PhaseAnswering, v.Phase)
}

func TestSeekClamps(t *testing.T) {
	s := newTestSession(t, ModeExam, &manualScheduler{})
	assert.Equal(t, 3, s.Seek(99).Index)
	assert.Equal(t, 0, s.Seek(-4).Index)
	assert.Equal(t, 0, s.Previous().Index)
	assert.Equal(t, 1, s.Next().Index)
}

func TestResetClearsAnswers(t *testing.T) {
	sched := &manualScheduler{}
	s := newTestSession(t, ModeExam, sched)
	_, _ = s.Select("A")
	_, _ = s.Submit()

	v := s.Reset()
	assert.Equal(t, 0, v.Index)
	assert.Equal(t, PhaseAnswering, v.Phase)
	assert.Empty(t, v.Answer)
	assert.Equal(t, 0, v.Score.Answered)
	assert.Equal(t, 0, sched.pending())
}

func TestPracticeRevealAnswer(t *testing.T) {
	s := newTestSession(t, ModePractice, &manualScheduler{})

	v, err := s.RevealAnswer()
	require.NoError(t, err)
	assert.Equal(t, PhaseRevealed, v.Phase)
	assert.Empty(t, v.Verdict)
	assert.Equal(t, "because", v.Question.Explanation)

	strict := newTestSession(t, ModeExam, &manualScheduler{})
	_, err = strict.RevealAnswer()
	assert.ErrorIs(t, err, ErrUnsupported)
}

func TestPracticeOrder(t *testing.T) {
	s := newTestSession(t, ModePractice, &manualScheduler{})
	assert.Equal(t, OrderSequential, s.View().Order)
	assert.Equal(t, 1, s.View().Question.ID)

	_, _ = s.Select("A")
	v, err := s.SetOrder(OrderRandom)
	require.NoError(t, err)
	assert.Equal(t, OrderRandom, v.Order)
	assert.Equal(t, 4, v.Total)
	assert.Equal(t, 1, v.Score.Answered)

	ids := make([]int, 0, v.Total)
	for i := 0; i < v.Total; i++ {
		ids = append(ids, s.Seek(i).Question.ID)
	}
	assert.ElementsMatch(t, []int{1, 2, 3, 4}, ids)

	_, err = s.SetFilter(FilterAll)
	assert.ErrorIs(t, err, ErrUnsupported)
}

func TestExamFilter(t *testing.T) {
	s := newTestSession(t, ModeExam, &manualScheduler{})
	v, err := s.SetFilter(Filter(question.TypeJudge))
	require.NoError(t, err)
	assert.Equal(t, 1, v.Total)
	assert.Equal(t, 3, v.Question.ID)

	v, err = s.SetFilter(FilterAll)
	require.NoError(t, err)
	assert.Equal(t, 4, v.Total)
}

func TestRandomExamRegenerate(t *testing.T) {
	s := newTestSession(t, ModeRandomExam, &manualScheduler{})
	v := s.View()
	require.NotNil(t, v.Paper)
	assert.Equal(t, 4, v.Total)
	assert.Equal(t, 1000, v.Paper.MaxScore)
	assert.Equal(t, 19, v.Paper.Shortfall[question.TypeSingle])

	_, _ = s.Select(v.Question.Options[0].Label)
	v, err := s.Regenerate()
	require.NoError(t, err)
	assert.Equal(t, 0, v.Score.Answered)
	assert.Equal(t, 0, v.Index)

	practice := newTestSession(t, ModePractice, &manualScheduler{})
	_, err = practice.Regenerate()
	assert.ErrorIs(t, err, ErrUnsupported)
}

func TestReviewDropsCorrectAnswers(t *testing.T) {
	sched := &manualScheduler{}
	s := newTestSession(t, ModeReview, sched)

	_, _ = s.Select("A")
	sub, err := s.Submit()
	require.NoError(t, err)
	assert.True(t, sub.Removed)
	assert.Equal(t, 3, sub.View.Total)
	assert.Equal(t, 2, sub.View.Question.ID)
	assert.Equal(t, PhaseAnswering, sub.View.Phase)
	assert.Equal(t, 0, sched.pending())

	// wrong answers stay
	_, _ = s.Select("B")
	sub, err = s.Submit()
	require.NoError(t, err)
	assert.False(t, sub.Removed)
	assert.Equal(t, 3, sub.View.Total)
}

func TestReviewDropLastClampsIndex(t *testing.T) {
	s := newTestSession(t, ModeReview, &manualScheduler{})
	s.Seek(3)
	_, _ = s.Select("linux")
	sub, err := s.Submit()
	require.NoError(t, err)
	assert.Equal(t, 2, sub.View.Index)
	assert.Equal(t, 3, sub.View.Question.ID)
}

func TestEmptySession(t *testing.T) {
	s := New(nil, Options{ID: "empty", Mode: ModeReview, Scheduler: &manualScheduler{}})
	v := s.View()
	assert.Equal(t, 0, v.Total)
	assert.Nil(t, v.Question)

	_, err := s.Select("A")
	assert.ErrorIs(t, err, ErrNoQuestions)
	_, err = s.Submit()
	assert.ErrorIs(t, err, ErrNoQuestions)
	assert.Equal(t, 0, s.Next().Index)
}

func TestClosedSessionIgnoresLateTimer(t *testing.T) {
	sched := &manualScheduler{}
	s := newTestSession(t, ModeExam, sched)
	_, _ = s.Select("A")
	_, _ = s.Submit()

	s.Close()
	sched.fireAll()
	assert.Equal(t, 0, s.View().Index)
}

func TestAnswerReplacesWholeSelection(t *testing.T) {
	s := newTestSession(t, ModeExam, &manualScheduler{})
	s.Seek(1)
	v, err := s.Answer([]string{"C", "A", "C"})
	require.NoError(t, err)
	assert.Equal(t, []string{"C", "A"}, v.Answer)

	_, err = s.Answer([]string{"Q"})
	assert.ErrorIs(t, err, ErrUnknownOption)
}
