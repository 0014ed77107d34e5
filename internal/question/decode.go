package question

import (
	"encoding/json"
	"fmt"
	"io"
)

// record mirrors one element of a dataset file.
type record struct {
	ID            int      `json:"id"`
	Type          Type     `json:"type"`
	Question      string   `json:"question"`
	Options       []string `json:"options,omitempty"`
	CorrectAnswer []string `json:"correctAnswer"`
	Label         string   `json:"label,omitempty"`
	Explanation   string   `json:"explanation,omitempty"`
	Answer        string   `json:"answer,omitempty"`
	Points        *float64 `json:"points,omitempty"`
}

func (r record) toQuestion() (Question, error) {
	meta := Meta{
		Label:       r.Label,
		Explanation: r.Explanation,
		Answer:      r.Answer,
		Points:      r.Points,
	}
	if r.Type == TypeFill {
		accepted := ""
		if len(r.CorrectAnswer) > 0 {
			accepted = r.CorrectAnswer[0]
		}
		return NewFill(r.ID, r.Question, accepted, meta), nil
	}
	if !r.Type.Valid() {
		return Question{}, fmt.Errorf("question %d: unknown type %q", r.ID, r.Type)
	}
	return NewChoice(r.ID, r.Type, r.Question, r.Options, r.CorrectAnswer, meta)
}

func fromQuestion(q Question) record {
	r := record{
		ID:            q.id,
		Type:          q.kind,
		Question:      q.prompt,
		CorrectAnswer: q.Correct(),
		Label:         q.meta.Label,
		Explanation:   q.meta.Explanation,
		Answer:        q.meta.Answer,
		Points:        q.meta.Points,
	}
	if r.CorrectAnswer == nil {
		r.CorrectAnswer = []string{}
	}
	for _, opt := range q.Options() {
		r.Options = append(r.Options, opt.Text)
	}
	return r
}

// UnmarshalJSON decodes the dataset record format into the matching variant.
func (q *Question) UnmarshalJSON(data []byte) error {
	var r record
	if err := json.Unmarshal(data, &r); err != nil {
		return err
	}
	parsed, err := r.toQuestion()
	if err != nil {
		return err
	}
	*q = parsed
	return nil
}

// MarshalJSON encodes the question back into the dataset record format.
func (q Question) MarshalJSON() ([]byte, error) {
	return json.Marshal(fromQuestion(q))
}

// Decode reads a dataset: a single JSON array of question records.
func Decode(r io.Reader) ([]Question, error) {
	var questions []Question
	if err := json.NewDecoder(r).Decode(&questions); err != nil {
		if err == io.EOF {
			return nil, nil
		}
		return nil, fmt.Errorf("decode dataset: %w", err)
	}
	return questions, nil
}
