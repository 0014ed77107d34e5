package exam

import (
	"github.com/gokatarajesh/hcip-drill/internal/question"
)

// ScoringConfig holds the point value of each question type.
type ScoringConfig struct {
	Points map[question.Type]int
}

// DefaultScoringConfig returns the certification point table.
func DefaultScoringConfig() ScoringConfig {
	return ScoringConfig{Points: DefaultBlueprint().Points}
}

// TypeResult is the per-type slice of a Result.
type TypeResult struct {
	Total    int `json:"total"`
	Answered int `json:"answered"`
	Correct  int `json:"correct"`
	Score    int `json:"score"`
}

// Result summarises an answer sheet against a paper.
type Result struct {
	Score      int                          `json:"score"`
	MaxScore   int                          `json:"max_score"`
	Total      int                          `json:"total"`
	Answered   int                          `json:"answered"`
	Unanswered int                          `json:"unanswered"`
	Correct    int                          `json:"correct"`
	Accuracy   float64                      `json:"accuracy"`
	ByType     map[question.Type]TypeResult `json:"by_type"`
}

// Engine computes scores with configurable point values.
type Engine struct {
	config ScoringConfig
}

// NewEngine creates a scoring engine with the provided config.
func NewEngine(config ScoringConfig) *Engine {
	return &Engine{config: config}
}

// Points returns the value of a correct answer to a question of type t.
func (e *Engine) Points(t question.Type) int {
	return e.config.Points[t]
}

// Score evaluates every question of the paper against the sheet.
// Score is the sum of point values of correct answers, not a percentage.
// Accuracy is correct/answered and zero when nothing is answered.
func (e *Engine) Score(questions []question.Question, sheet Sheet) Result {
	res := Result{
		Total:  len(questions),
		ByType: make(map[question.Type]TypeResult, len(question.Types)),
	}

	for _, q := range questions {
		points := e.Points(q.Type())
		tr := res.ByType[q.Type()]
		tr.Total++
		res.MaxScore += points

		switch Evaluate(q, sheet[q.ID()]) {
		case Correct:
			tr.Answered++
			tr.Correct++
			tr.Score += points
			res.Answered++
			res.Correct++
			res.Score += points
		case Incorrect:
			tr.Answered++
			res.Answered++
		}
		res.ByType[q.Type()] = tr
	}

	res.Unanswered = res.Total - res.Answered
	if res.Answered > 0 {
		res.Accuracy = float64(res.Correct) / float64(res.Answered)
	}
	return res
}
