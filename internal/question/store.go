package question

import (
	"slices"
	"sort"
)

// Store is the read-only question collection of one subject.
type Store struct {
	subject   string
	questions []Question
	index     map[int]int
}

// NewStore indexes questions by id. When ids repeat, lookups resolve to the
// first record.
func NewStore(subject string, questions []Question) *Store {
	index := make(map[int]int, len(questions))
	for i, q := range questions {
		if _, dup := index[q.id]; !dup {
			index[q.id] = i
		}
	}
	return &Store{
		subject:   subject,
		questions: slices.Clone(questions),
		index:     index,
	}
}

func (s *Store) Subject() string { return s.subject }

// Available is false for a missing or empty dataset.
func (s *Store) Available() bool { return len(s.questions) > 0 }

func (s *Store) Len() int { return len(s.questions) }

// All returns the questions in dataset order.
func (s *Store) All() []Question {
	return slices.Clone(s.questions)
}

// ByType returns the questions of one type in dataset order.
func (s *Store) ByType(t Type) []Question {
	var out []Question
	for _, q := range s.questions {
		if q.kind == t {
			out = append(out, q)
		}
	}
	return out
}

// Get finds a question by id.
func (s *Store) Get(id int) (Question, bool) {
	i, ok := s.index[id]
	if !ok {
		return Question{}, false
	}
	return s.questions[i], true
}

// Lookup resolves ids in the given order, skipping unknown ids.
func (s *Store) Lookup(ids []int) []Question {
	out := make([]Question, 0, len(ids))
	for _, id := range ids {
		if q, ok := s.Get(id); ok {
			out = append(out, q)
		}
	}
	return out
}

// Totals counts questions per type.
func (s *Store) Totals() map[Type]int {
	totals := make(map[Type]int, len(Types))
	for _, t := range Types {
		totals[t] = 0
	}
	for _, q := range s.questions {
		totals[q.kind]++
	}
	return totals
}

// Catalog holds the stores of every configured subject.
type Catalog struct {
	stores map[string]*Store
}

func NewCatalog(stores ...*Store) *Catalog {
	c := &Catalog{stores: make(map[string]*Store, len(stores))}
	for _, s := range stores {
		c.stores[s.subject] = s
	}
	return c
}

// Store returns the store of a subject.
func (c *Catalog) Store(subject string) (*Store, bool) {
	s, ok := c.stores[subject]
	return s, ok
}

// Subjects lists subject names alphabetically.
func (c *Catalog) Subjects() []string {
	names := make([]string, 0, len(c.stores))
	for name := range c.stores {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
