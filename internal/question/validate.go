package question

import (
	"errors"
	"fmt"
)

// Authoring errors reported by Validate.
var (
	ErrInvalidID       = errors.New("id must be a positive integer")
	ErrDuplicateID     = errors.New("duplicate question id")
	ErrMissingOptions  = errors.New("choice question has no options")
	ErrDuplicateLabel  = errors.New("duplicate option label")
	ErrCorrectCount    = errors.New("wrong number of correct answers for type")
	ErrUnknownLabel    = errors.New("correct answer is not an option label")
	ErrRepeatedCorrect = errors.New("correct answer listed twice")
)

// ValidationError ties an authoring error to the offending record.
type ValidationError struct {
	ID  int
	Err error
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("question %d: %v", e.ID, e.Err)
}

func (e *ValidationError) Unwrap() error { return e.Err }

// Validate checks dataset invariants. The runtime does not call it on load;
// malformed records are data-authoring errors surfaced by tests and by the
// loader's warning log.
func Validate(questions []Question) error {
	var errs []error
	seen := make(map[int]bool, len(questions))
	for _, q := range questions {
		report := func(err error) { errs = append(errs, &ValidationError{ID: q.id, Err: err}) }

		if q.id <= 0 {
			report(ErrInvalidID)
		}
		if seen[q.id] {
			report(ErrDuplicateID)
		}
		seen[q.id] = true

		if q.kind == TypeFill {
			continue
		}

		if len(q.choice.options) == 0 {
			report(ErrMissingOptions)
		}
		labels := make(map[string]bool, len(q.choice.options))
		for _, opt := range q.choice.options {
			if labels[opt.Label] {
				report(fmt.Errorf("%w: %s", ErrDuplicateLabel, opt.Label))
			}
			labels[opt.Label] = true
		}

		correct := q.choice.correct
		switch q.kind {
		case TypeSingle, TypeJudge:
			if len(correct) != 1 {
				report(ErrCorrectCount)
			}
		case TypeMultiple:
			if len(correct) == 0 {
				report(ErrCorrectCount)
			}
		}
		picked := make(map[string]bool, len(correct))
		for _, label := range correct {
			if !labels[label] {
				report(fmt.Errorf("%w: %s", ErrUnknownLabel, label))
			}
			if picked[label] {
				report(fmt.Errorf("%w: %s", ErrRepeatedCorrect, label))
			}
			picked[label] = true
		}
	}
	return errors.Join(errs...)
}
