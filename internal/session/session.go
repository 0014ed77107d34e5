package session

import (
	"sync"
	"time"

	"github.com/gokatarajesh/hcip-drill/internal/exam"
	"github.com/gokatarajesh/hcip-drill/internal/question"
)

// Options configures a new session.
type Options struct {
	ID        string
	Subject   string
	Mode      Mode
	Order     Order
	Filter    Filter
	Theme     Theme
	Available bool

	AutoAdvanceDelay time.Duration
	Scheduler        Scheduler
	Shuffler         *exam.Shuffler
	Sampler          *exam.Sampler
	Engine           *exam.Engine

	// OnAdvance receives the view after an auto-advance fired. It runs
	// outside the session lock.
	OnAdvance func(View)
}

// Session is the state machine of one drill: the paper, the answer sheet,
// the current index and whether the current question is revealed.
//
// All transitions hold the session mutex for their full duration. The only
// scheduled action is the auto-advance after a correct submission; every
// navigation bumps the generation and stops the pending task, and a task that
// fires with a stale generation does nothing.
type Session struct {
	mu sync.Mutex

	id        string
	subject   string
	mode      Mode
	order     Order
	filter    Filter
	theme     Theme
	available bool

	pool    []question.Question
	paper   exam.Paper
	sheet   exam.Sheet
	index   int
	phase   Phase
	judged  bool
	verdict exam.Verdict

	delay      time.Duration
	scheduler  Scheduler
	shuffler   *exam.Shuffler
	sampler    *exam.Sampler
	engine     *exam.Engine
	onAdvance  func(View)
	generation uint64
	pending    Task

	lastActive time.Time
	closed     bool
}

// New builds a session over pool. For review sessions pool is the resolved
// wrong book in ledger order.
func New(pool []question.Question, opts Options) *Session {
	if opts.Scheduler == nil {
		opts.Scheduler = TimerScheduler
	}
	if opts.Shuffler == nil {
		opts.Shuffler = exam.NewRandomShuffler()
	}
	if opts.Sampler == nil {
		opts.Sampler = exam.NewSampler(exam.DefaultBlueprint(), opts.Shuffler)
	}
	if opts.Engine == nil {
		opts.Engine = exam.NewEngine(exam.DefaultScoringConfig())
	}
	if opts.Order == "" {
		opts.Order = OrderSequential
	}
	if opts.Filter == "" {
		opts.Filter = FilterAll
	}
	if opts.Theme == "" {
		opts.Theme = ThemeIndigo
	}

	s := &Session{
		id:         opts.ID,
		subject:    opts.Subject,
		mode:       opts.Mode,
		order:      opts.Order,
		filter:     opts.Filter,
		theme:      opts.Theme,
		available:  opts.Available,
		pool:       pool,
		sheet:      exam.Sheet{},
		phase:      PhaseAnswering,
		delay:      opts.AutoAdvanceDelay,
		scheduler:  opts.Scheduler,
		shuffler:   opts.Shuffler,
		sampler:    opts.Sampler,
		engine:     opts.Engine,
		onAdvance:  opts.OnAdvance,
		lastActive: time.Now(),
	}
	s.paper = s.buildPaper()
	return s
}

func (s *Session) buildPaper() exam.Paper {
	switch s.mode {
	case ModeRandomExam:
		return s.sampler.Sample(s.pool)
	case ModePractice:
		if s.order == OrderRandom {
			return exam.NewPaper(exam.Shuffled(s.shuffler, s.pool))
		}
		return exam.NewPaper(s.pool)
	case ModeExam:
		var qs []question.Question
		for _, q := range s.pool {
			if s.filter.Matches(q.Type()) {
				qs = append(qs, q)
			}
		}
		return exam.NewPaper(qs)
	default:
		return exam.NewPaper(s.pool)
	}
}

func (s *Session) ID() string      { return s.id }
func (s *Session) Subject() string { return s.subject }
func (s *Session) Mode() Mode      { return s.mode }

// LastActive is the time of the last client transition.
func (s *Session) LastActive() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastActive
}

// View returns a snapshot of the session.
func (s *Session) View() View {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.viewLocked()
}

// Score evaluates the whole answer sheet against the paper.
func (s *Session) Score() exam.Result {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.engine.Score(s.paper.Questions, s.sheet)
}

// Select applies one interaction to the current question's answer.
func (s *Session) Select(value string) (View, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	q, err := s.answerable()
	if err != nil {
		return View{}, err
	}
	if q.Type().IsChoice() && !q.HasOption(value) {
		return View{}, ErrUnknownOption
	}
	s.touch()
	s.sheet.Select(q, value)
	return s.viewLocked(), nil
}

// Answer replaces the current question's whole answer.
func (s *Session) Answer(values []string) (View, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	q, err := s.answerable()
	if err != nil {
		return View{}, err
	}
	if q.Type().IsChoice() {
		for _, v := range values {
			if !q.HasOption(v) {
				return View{}, ErrUnknownOption
			}
		}
	}
	s.touch()
	s.sheet.Put(q, values)
	return s.viewLocked(), nil
}

func (s *Session) answerable() (question.Question, error) {
	q, ok := s.current()
	if !ok {
		return question.Question{}, ErrNoQuestions
	}
	if s.phase == PhaseRevealed {
		return question.Question{}, ErrRevealed
	}
	return q, nil
}

// Submit judges the current answer and reveals the question. A correct answer
// that is not on the last question schedules the auto-advance. In review mode
// a correct answer drops the question from the paper instead.
func (s *Session) Submit() (Submission, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	q, err := s.answerable()
	if err != nil {
		return Submission{}, err
	}
	verdict := exam.Evaluate(q, s.sheet[q.ID()])
	if verdict == exam.Unanswered {
		return Submission{}, ErrNoAnswer
	}
	s.touch()

	sub := Submission{
		QuestionID: q.ID(),
		Type:       q.Type(),
		Verdict:    verdict,
		Last:       s.index == s.paper.Len()-1,
	}

	if s.mode == ModeReview && verdict == exam.Correct {
		s.dropCurrent()
		sub.Removed = true
		sub.View = s.viewLocked()
		return sub, nil
	}

	s.phase = PhaseRevealed
	s.judged = true
	s.verdict = verdict
	if verdict == exam.Correct && !sub.Last {
		s.scheduleAdvance()
	}
	sub.View = s.viewLocked()
	return sub, nil
}

// dropCurrent removes the current question from a review paper, clears its
// answer and clamps the index.
func (s *Session) dropCurrent() {
	s.cancelAdvance()
	id := s.paper.Questions[s.index].ID()
	s.sheet.Clear(id)

	qs := make([]question.Question, 0, s.paper.Len()-1)
	for i, q := range s.paper.Questions {
		if i != s.index {
			qs = append(qs, q)
		}
	}
	s.paper = exam.NewPaper(qs)

	pool := make([]question.Question, 0, len(s.pool))
	for _, q := range s.pool {
		if q.ID() != id {
			pool = append(pool, q)
		}
	}
	s.pool = pool

	s.index = clamp(s.index, s.paper.Len())
	s.resetPhase()
}

// RevealAnswer shows the key of the current practice question without judging it.
func (s *Session) RevealAnswer() (View, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.mode != ModePractice {
		return View{}, ErrUnsupported
	}
	if _, ok := s.current(); !ok {
		return View{}, ErrNoQuestions
	}
	s.touch()
	s.cancelAdvance()
	s.phase = PhaseRevealed
	s.judged = false
	s.verdict = exam.Unanswered
	return s.viewLocked(), nil
}

// Next moves forward one question.
func (s *Session) Next() View { return s.navigate(func(i int) int { return i + 1 }) }

// Previous moves back one question.
func (s *Session) Previous() View { return s.navigate(func(i int) int { return i - 1 }) }

// Seek jumps to index i, clamped to the paper.
func (s *Session) Seek(i int) View { return s.navigate(func(int) int { return i }) }

func (s *Session) navigate(target func(int) int) View {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.touch()
	s.moveTo(target(s.index))
	return s.viewLocked()
}

// moveTo cancels any pending advance. Landing on a different question resets
// it to answering; staying put keeps the current reveal.
func (s *Session) moveTo(i int) {
	s.cancelAdvance()
	if s.paper.Len() == 0 {
		return
	}
	i = clamp(i, s.paper.Len())
	if i == s.index {
		return
	}
	s.index = i
	s.resetPhase()
}

// Reset clears every answer and returns to the first question. Random exams
// also draw a fresh paper.
func (s *Session) Reset() View {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.touch()
	s.restart(s.mode == ModeRandomExam)
	return s.viewLocked()
}

// Regenerate discards the random paper and samples a new one.
func (s *Session) Regenerate() (View, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.mode != ModeRandomExam {
		return View{}, ErrUnsupported
	}
	s.touch()
	s.restart(true)
	return s.viewLocked(), nil
}

func (s *Session) restart(resample bool) {
	s.cancelAdvance()
	s.sheet = exam.Sheet{}
	if resample {
		s.paper = s.buildPaper()
	}
	s.index = 0
	s.resetPhase()
}

// SetOrder switches a practice session between dataset and shuffled order.
// Answers are kept; a random order is reshuffled on every call.
func (s *Session) SetOrder(o Order) (View, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.mode != ModePractice {
		return View{}, ErrUnsupported
	}
	s.touch()
	s.order = o
	s.rebuild()
	return s.viewLocked(), nil
}

// SetFilter restricts an exam session to one question type. Answers are kept.
func (s *Session) SetFilter(f Filter) (View, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.mode != ModeExam {
		return View{}, ErrUnsupported
	}
	s.touch()
	s.filter = f
	s.rebuild()
	return s.viewLocked(), nil
}

func (s *Session) rebuild() {
	s.cancelAdvance()
	s.paper = s.buildPaper()
	s.index = 0
	s.resetPhase()
}

// Close stops any pending advance. A closed session ignores late timers.
func (s *Session) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cancelAdvance()
	s.closed = true
}

func (s *Session) scheduleAdvance() {
	gen := s.generation
	s.pending = s.scheduler.AfterFunc(s.delay, func() { s.autoAdvance(gen) })
}

func (s *Session) cancelAdvance() {
	s.generation++
	if s.pending != nil {
		s.pending.Stop()
		s.pending = nil
	}
}

func (s *Session) autoAdvance(gen uint64) {
	s.mu.Lock()
	if s.closed || gen != s.generation {
		s.mu.Unlock()
		return
	}
	s.pending = nil
	s.moveTo(s.index + 1)
	v := s.viewLocked()
	notify := s.onAdvance
	s.mu.Unlock()

	if notify != nil {
		notify(v)
	}
}

func (s *Session) current() (question.Question, bool) {
	if s.index < 0 || s.index >= s.paper.Len() {
		return question.Question{}, false
	}
	return s.paper.Questions[s.index], true
}

func (s *Session) resetPhase() {
	s.phase = PhaseAnswering
	s.judged = false
	s.verdict = exam.Unanswered
}

func (s *Session) touch() {
	s.lastActive = time.Now()
}

func (s *Session) viewLocked() View {
	v := View{
		ID:        s.id,
		Subject:   s.subject,
		Mode:      s.mode,
		Theme:     s.theme,
		Available: s.available,
		Phase:     s.phase,
		Index:     s.index,
		Total:     s.paper.Len(),
		Answer:    []string{},
		Score:     s.engine.Score(s.paper.Questions, s.sheet),
	}
	switch s.mode {
	case ModePractice:
		v.Order = s.order
	case ModeExam:
		v.Filter = s.filter
	case ModeRandomExam:
		v.Paper = &PaperInfo{
			Targets:     s.paper.Targets,
			Actual:      s.paper.Actual,
			Shortfall:   s.paper.Shortfall(),
			MaxScore:    s.sampler.Blueprint().MaxScore(),
			GeneratedAt: s.paper.GeneratedAt,
		}
	}

	if q, ok := s.current(); ok {
		qv := s.questionView(q)
		v.Question = &qv
		if answer := s.sheet.Get(q.ID()); answer != nil {
			v.Answer = answer
		}
	}
	if s.phase == PhaseRevealed && s.judged {
		v.Verdict = s.verdict.String()
	}
	return v
}

func (s *Session) questionView(q question.Question) QuestionView {
	qv := QuestionView{
		ID:      q.ID(),
		Type:    q.Type(),
		Prompt:  q.Prompt(),
		Options: q.Options(),
		Label:   q.Meta().Label,
		Points:  s.engine.Points(q.Type()),
	}
	if s.phase == PhaseRevealed {
		qv.Correct = q.Correct()
		qv.Explanation = q.Meta().Explanation
		qv.Answer = q.Meta().Answer
	}
	return qv
}

func clamp(i, n int) int {
	if i >= n {
		i = n - 1
	}
	if i < 0 {
		i = 0
	}
	return i
}
