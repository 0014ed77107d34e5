package exam

import (
	"maps"
	"slices"

	"github.com/gokatarajesh/hcip-drill/internal/question"
)

// Sheet records the current answer per question id. Choice answers are
// ordered option labels, a fill answer is a single free-text value.
type Sheet map[int][]string

// Get returns a copy of the stored answer, nil when unanswered.
func (s Sheet) Get(id int) []string {
	return slices.Clone(s[id])
}

// Select applies one interaction to the answer of q.
//
// Single and judge questions replace the selection, multiple questions toggle
// the label, fill questions replace the text. An empty result removes the
// entry so the question reads as unanswered.
func (s Sheet) Select(q question.Question, value string) {
	id := q.ID()
	switch q.Type() {
	case question.TypeMultiple:
		current := s[id]
		if i := slices.Index(current, value); i >= 0 {
			current = slices.Delete(slices.Clone(current), i, i+1)
		} else {
			current = append(slices.Clone(current), value)
		}
		s.set(id, current)
	default:
		if value == "" {
			delete(s, id)
			return
		}
		s[id] = []string{value}
	}
}

// Put stores a whole answer, dropping repeated labels for choice questions.
func (s Sheet) Put(q question.Question, values []string) {
	if q.Type() == question.TypeFill {
		if len(values) == 0 || values[0] == "" {
			delete(s, q.ID())
			return
		}
		s[q.ID()] = []string{values[0]}
		return
	}
	var out []string
	for _, v := range values {
		if v != "" && !slices.Contains(out, v) {
			out = append(out, v)
		}
	}
	if q.Type() != question.TypeMultiple && len(out) > 1 {
		out = out[len(out)-1:]
	}
	s.set(q.ID(), out)
}

func (s Sheet) set(id int, values []string) {
	if len(values) == 0 {
		delete(s, id)
		return
	}
	s[id] = values
}

func (s Sheet) Clear(id int) { delete(s, id) }

// Answered counts questions with a non-empty answer.
func (s Sheet) Answered() int {
	n := 0
	for _, v := range s {
		if len(v) > 0 {
			n++
		}
	}
	return n
}

func (s Sheet) Clone() Sheet {
	return maps.Clone(s)
}
