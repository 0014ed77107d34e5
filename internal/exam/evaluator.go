package exam

import (
	"strings"

	"github.com/gokatarajesh/hcip-drill/internal/question"
)

// Verdict is the tri-state outcome of evaluating one answer.
type Verdict int

const (
	Unanswered Verdict = iota
	Correct
	Incorrect
)

func (v Verdict) String() string {
	switch v {
	case Correct:
		return "correct"
	case Incorrect:
		return "incorrect"
	default:
		return "unanswered"
	}
}

// MarshalText renders the verdict by name in JSON payloads.
func (v Verdict) MarshalText() ([]byte, error) {
	return []byte(v.String()), nil
}

// Evaluate judges a user answer against the question's key.
//
// An empty answer is Unanswered. Fill questions compare the first value with
// the accepted text after trimming and lower-casing; an empty side on either
// end is Incorrect. Choice questions compare label sets.
func Evaluate(q question.Question, answer []string) Verdict {
	if len(answer) == 0 {
		return Unanswered
	}
	if IsCorrect(q, answer) {
		return Correct
	}
	return Incorrect
}

// IsCorrect reports whether a non-empty answer matches the key.
func IsCorrect(q question.Question, answer []string) bool {
	if q.Type() == question.TypeFill {
		return fillMatches(q.Accepted(), answer[0])
	}
	return SetEqual(answer, q.Correct())
}

func fillMatches(accepted, given string) bool {
	a := strings.ToLower(strings.TrimSpace(accepted))
	g := strings.ToLower(strings.TrimSpace(given))
	if a == "" || g == "" {
		return false
	}
	return a == g
}

// SetEqual reports whether a and b have equal length and each contains every
// element of the other. Duplicates are not collapsed. Two empty sequences are
// equal.
func SetEqual(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	return containsAll(a, b) && containsAll(b, a)
}

func containsAll(haystack, needles []string) bool {
	set := make(map[string]struct{}, len(haystack))
	for _, s := range haystack {
		set[s] = struct{}{}
	}
	for _, s := range needles {
		if _, ok := set[s]; !ok {
			return false
		}
	}
	return true
}
