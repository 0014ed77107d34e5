package session

import (
	"errors"
	"fmt"
	"time"

	"github.com/gokatarajesh/hcip-drill/internal/exam"
	"github.com/gokatarajesh/hcip-drill/internal/question"
)

// Mode selects how the paper is built and what submissions feed the ledger.
type Mode string

// Session modes.
const (
	ModeExam       Mode = "exam"
	ModePractice   Mode = "practice"
	ModeRandomExam Mode = "random_exam"
	ModeReview     Mode = "review"
)

func ParseMode(s string) (Mode, error) {
	switch m := Mode(s); m {
	case ModeExam, ModePractice, ModeRandomExam, ModeReview:
		return m, nil
	}
	return "", fmt.Errorf("unknown mode %q", s)
}

// Order is the practice question order.
type Order string

const (
	OrderSequential Order = "sequential"
	OrderRandom     Order = "random"
)

func ParseOrder(s string) (Order, error) {
	switch o := Order(s); o {
	case "":
		return OrderSequential, nil
	case OrderSequential, OrderRandom:
		return o, nil
	}
	return "", fmt.Errorf("unknown order %q", s)
}

// Filter restricts an exam paper to one question type, or FilterAll.
type Filter string

const FilterAll Filter = "all"

func ParseFilter(s string) (Filter, error) {
	if s == "" || s == string(FilterAll) {
		return FilterAll, nil
	}
	if _, err := question.ParseType(s); err != nil {
		return "", err
	}
	return Filter(s), nil
}

// Matches reports whether questions of type t pass the filter.
func (f Filter) Matches(t question.Type) bool {
	return f == FilterAll || question.Type(f) == t
}

// Theme is an opaque display identifier carried with the session.
type Theme string

const (
	ThemeIndigo Theme = "indigo"
	ThemeGreen  Theme = "green"
)

func ParseTheme(s string) (Theme, error) {
	switch t := Theme(s); t {
	case "":
		return ThemeIndigo, nil
	case ThemeIndigo, ThemeGreen:
		return t, nil
	}
	return "", fmt.Errorf("unknown theme %q", s)
}

// Phase is the state of the current question.
type Phase string

const (
	PhaseAnswering Phase = "answering"
	PhaseRevealed  Phase = "revealed"
)

var (
	ErrNoQuestions     = errors.New("session has no questions")
	ErrRevealed        = errors.New("answer is locked after reveal")
	ErrNoAnswer        = errors.New("no answer selected")
	ErrUnknownOption   = errors.New("not an option of the current question")
	ErrUnsupported     = errors.New("operation not supported in this mode")
	ErrSessionNotFound = errors.New("session not found")
	ErrSubjectNotFound = errors.New("subject not found")
	ErrInvalidRequest  = errors.New("invalid session request")
)

// Scheduler runs f once after d. The returned task can be stopped before it fires.
type Scheduler interface {
	AfterFunc(d time.Duration, f func()) Task
}

// Task is a pending scheduled callback. *time.Timer satisfies it.
type Task interface {
	Stop() bool
}

type timerScheduler struct{}

func (timerScheduler) AfterFunc(d time.Duration, f func()) Task {
	return time.AfterFunc(d, f)
}

// TimerScheduler schedules with time.AfterFunc.
var TimerScheduler Scheduler = timerScheduler{}

// QuestionView is the client-facing question. The key and explanation are
// only filled once the question is revealed.
type QuestionView struct {
	ID          int               `json:"id"`
	Type        question.Type     `json:"type"`
	Prompt      string            `json:"question"`
	Options     []question.Option `json:"options,omitempty"`
	Label       string            `json:"label,omitempty"`
	Points      int               `json:"points"`
	Correct     []string          `json:"correct_answer,omitempty"`
	Explanation string            `json:"explanation,omitempty"`
	Answer      string            `json:"answer,omitempty"`
}

// PaperInfo describes a sampled paper.
type PaperInfo struct {
	Targets     map[question.Type]int `json:"targets"`
	Actual      map[question.Type]int `json:"actual"`
	Shortfall   map[question.Type]int `json:"shortfall,omitempty"`
	MaxScore    int                   `json:"max_score"`
	GeneratedAt time.Time             `json:"generated_at"`
}

// View is an immutable snapshot of a session.
type View struct {
	ID        string        `json:"id"`
	Subject   string        `json:"subject"`
	Mode      Mode          `json:"mode"`
	Order     Order         `json:"order,omitempty"`
	Filter    Filter        `json:"filter,omitempty"`
	Theme     Theme         `json:"theme"`
	Available bool          `json:"available"`
	Phase     Phase         `json:"phase"`
	Index     int           `json:"index"`
	Total     int           `json:"total"`
	Question  *QuestionView `json:"question,omitempty"`
	Answer    []string      `json:"answer"`
	Verdict   string        `json:"verdict,omitempty"`
	Score     exam.Result   `json:"score"`
	Paper     *PaperInfo    `json:"paper,omitempty"`
}

// Submission is the outcome of Submit.
type Submission struct {
	QuestionID int           `json:"question_id"`
	Type       question.Type `json:"type"`
	Verdict    exam.Verdict  `json:"verdict"`
	Last       bool          `json:"last"`
	// Removed is set when a review session dropped the question after a correct answer.
	Removed bool `json:"removed,omitempty"`
	View    View `json:"session"`
}
