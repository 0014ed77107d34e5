package exam

import (
	"time"

	"github.com/gokatarajesh/hcip-drill/internal/question"
)

// Blueprint is the stratification table of a random paper.
type Blueprint struct {
	Order   []question.Type
	Targets map[question.Type]int
	Points  map[question.Type]int
}

// DefaultBlueprint is the certification paper: 60 questions worth 1000 points.
func DefaultBlueprint() Blueprint {
	return Blueprint{
		Order: []question.Type{
			question.TypeSingle,
			question.TypeMultiple,
			question.TypeJudge,
			question.TypeFill,
		},
		Targets: map[question.Type]int{
			question.TypeSingle:   20,
			question.TypeMultiple: 20,
			question.TypeJudge:    17,
			question.TypeFill:     3,
		},
		Points: map[question.Type]int{
			question.TypeSingle:   16,
			question.TypeMultiple: 18,
			question.TypeJudge:    16,
			question.TypeFill:     16,
		},
	}
}

// MaxScore is the total of a paper that meets every target.
func (b Blueprint) MaxScore() int {
	total := 0
	for _, t := range b.Order {
		total += b.Targets[t] * b.Points[t]
	}
	return total
}

// Paper is an ordered question list with its per-type counts.
type Paper struct {
	Questions   []question.Question
	Targets     map[question.Type]int
	Actual      map[question.Type]int
	GeneratedAt time.Time
}

// NewPaper wraps a fixed question list, counting questions per type.
func NewPaper(questions []question.Question) Paper {
	actual := make(map[question.Type]int, len(question.Types))
	for _, q := range questions {
		actual[q.Type()]++
	}
	return Paper{
		Questions:   questions,
		Targets:     map[question.Type]int{},
		Actual:      actual,
		GeneratedAt: time.Now(),
	}
}

func (p Paper) Len() int { return len(p.Questions) }

// Shortfall lists how many questions each type is missing against its target.
func (p Paper) Shortfall() map[question.Type]int {
	out := map[question.Type]int{}
	for t, target := range p.Targets {
		if missing := target - p.Actual[t]; missing > 0 {
			out[t] = missing
		}
	}
	return out
}

// Sampler draws stratified random papers.
type Sampler struct {
	blueprint Blueprint
	shuffler  *Shuffler
}

func NewSampler(b Blueprint, s *Shuffler) *Sampler {
	return &Sampler{blueprint: b, shuffler: s}
}

func (s *Sampler) Blueprint() Blueprint { return s.blueprint }

// Sample partitions the pool by type, takes a random min(target, available)
// questions of each type, and concatenates the groups in blueprint order.
// A short pool yields a short paper. Repeated ids in the pool are drawn once.
func (s *Sampler) Sample(pool []question.Question) Paper {
	byType := make(map[question.Type][]question.Question, len(s.blueprint.Order))
	seen := make(map[int]bool, len(pool))
	for _, q := range pool {
		if seen[q.ID()] {
			continue
		}
		seen[q.ID()] = true
		byType[q.Type()] = append(byType[q.Type()], q)
	}

	paper := Paper{
		Targets:     make(map[question.Type]int, len(s.blueprint.Order)),
		Actual:      make(map[question.Type]int, len(s.blueprint.Order)),
		GeneratedAt: time.Now(),
	}
	for _, t := range s.blueprint.Order {
		target := max(s.blueprint.Targets[t], 0)
		group := Shuffled(s.shuffler, byType[t])
		if len(group) > target {
			group = group[:target]
		}
		paper.Targets[t] = target
		paper.Actual[t] = len(group)
		paper.Questions = append(paper.Questions, group...)
	}
	return paper
}
