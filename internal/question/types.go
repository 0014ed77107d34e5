package question

import (
	"fmt"
	"regexp"
	"slices"
)

// Type determines answer cardinality and the comparison rule.
type Type string

// Type constants.
const (
	TypeSingle   Type = "single"
	TypeMultiple Type = "multiple"
	TypeJudge    Type = "judge"
	TypeFill     Type = "fill"
)

// Types lists every question type in paper order.
var Types = []Type{TypeSingle, TypeMultiple, TypeJudge, TypeFill}

// Valid reports whether t is one of the known types.
func (t Type) Valid() bool {
	return slices.Contains(Types, t)
}

// IsChoice reports whether answers are option labels rather than free text.
func (t Type) IsChoice() bool {
	return t == TypeSingle || t == TypeMultiple || t == TypeJudge
}

// ParseType converts a dataset or query value into a Type.
func ParseType(s string) (Type, error) {
	t := Type(s)
	if !t.Valid() {
		return "", fmt.Errorf("unknown question type %q", s)
	}
	return t, nil
}

var labelPrefix = regexp.MustCompile(`^[A-Z]\.`)

// Option is one selectable choice. Label is the identity used for answers.
type Option struct {
	Label string `json:"label"`
	Text  string `json:"text"`
}

// NewOption derives the label from an "A."-style prefix, falling back to the whole string.
func NewOption(raw string) Option {
	if labelPrefix.MatchString(raw) {
		return Option{Label: raw[:1], Text: raw}
	}
	return Option{Label: raw, Text: raw}
}

// Meta carries display annotations that never take part in evaluation.
type Meta struct {
	Label       string   `json:"label,omitempty"`
	Explanation string   `json:"explanation,omitempty"`
	Answer      string   `json:"answer,omitempty"`
	Points      *float64 `json:"points,omitempty"`
}

// Question is an immutable question record. The body is either a choice body
// (single, multiple, judge) or a fill body; exactly one is set.
type Question struct {
	id     int
	kind   Type
	prompt string
	meta   Meta
	choice *choiceBody
	fill   *fillBody
}

type choiceBody struct {
	options []Option
	correct []string
}

type fillBody struct {
	accepted string
}

// NewChoice builds a single, multiple or judge question from raw option strings
// and the correct option labels.
func NewChoice(id int, kind Type, prompt string, options, correct []string, meta Meta) (Question, error) {
	if !kind.IsChoice() {
		return Question{}, fmt.Errorf("question %d: %q is not a choice type", id, kind)
	}
	opts := make([]Option, 0, len(options))
	for _, raw := range options {
		opts = append(opts, NewOption(raw))
	}
	return Question{
		id:     id,
		kind:   kind,
		prompt: prompt,
		meta:   meta,
		choice: &choiceBody{options: opts, correct: slices.Clone(correct)},
	}, nil
}

// NewFill builds a fill-in-the-blank question. An empty accepted text means
// the record has no answer key.
func NewFill(id int, prompt, accepted string, meta Meta) Question {
	return Question{
		id:     id,
		kind:   TypeFill,
		prompt: prompt,
		meta:   meta,
		fill:   &fillBody{accepted: accepted},
	}
}

func (q Question) ID() int        { return q.id }
func (q Question) Type() Type     { return q.kind }
func (q Question) Prompt() string { return q.prompt }
func (q Question) Meta() Meta     { return q.meta }

// Options returns a copy of the choice options; nil for fill questions.
func (q Question) Options() []Option {
	if q.choice == nil {
		return nil
	}
	return slices.Clone(q.choice.options)
}

// Correct returns the answer key as a sequence: labels for choice questions,
// the accepted text (zero or one element) for fill questions.
func (q Question) Correct() []string {
	switch {
	case q.choice != nil:
		return slices.Clone(q.choice.correct)
	case q.fill != nil && q.fill.accepted != "":
		return []string{q.fill.accepted}
	default:
		return nil
	}
}

// Accepted returns the fill answer key.
func (q Question) Accepted() string {
	if q.fill == nil {
		return ""
	}
	return q.fill.accepted
}

// HasOption reports whether label names one of the options.
func (q Question) HasOption(label string) bool {
	if q.choice == nil {
		return false
	}
	for _, opt := range q.choice.options {
		if opt.Label == label {
			return true
		}
	}
	return false
}
