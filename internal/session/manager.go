package session

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/gokatarajesh/hcip-drill/internal/exam"
	"github.com/gokatarajesh/hcip-drill/internal/ledger"
	"github.com/gokatarajesh/hcip-drill/internal/metrics"
	"github.com/gokatarajesh/hcip-drill/internal/question"
	"github.com/gokatarajesh/hcip-drill/pkg/http/ws"
)

// Update reasons pushed to WebSocket watchers.
const (
	ReasonAutoAdvance = "auto_advance"
	ReasonTransition  = "transition"
	ReasonSubmission  = "submission"
	ReasonExpired     = "expired"
	ReasonClosed      = "closed"
	ReasonShutdown    = "shutdown"
)

// ManagerOptions configures session defaults.
type ManagerOptions struct {
	AutoAdvanceDelay time.Duration
	Scheduler        Scheduler
	Shuffler         *exam.Shuffler
	Blueprint        exam.Blueprint
}

// CreateRequest opens a session.
type CreateRequest struct {
	Subject string `json:"subject"`
	Mode    string `json:"mode"`
	Order   string `json:"order,omitempty"`
	Filter  string `json:"filter,omitempty"`
	Theme   string `json:"theme,omitempty"`
}

// Manager is the registry of live sessions. It connects sessions to the
// wrong-book ledger, metrics and the WebSocket hub.
type Manager struct {
	mu       sync.RWMutex
	sessions map[string]*Session

	catalog   *question.Catalog
	ledger    ledger.Ledger
	hub       *ws.Hub
	sampler   *exam.Sampler
	shuffler  *exam.Shuffler
	engine    *exam.Engine
	scheduler Scheduler
	delay     time.Duration
	logger    zerolog.Logger
}

// NewManager wires a manager. hub may be nil when no WebSocket transport is mounted.
func NewManager(catalog *question.Catalog, l ledger.Ledger, hub *ws.Hub, opts ManagerOptions, logger zerolog.Logger) *Manager {
	if opts.Shuffler == nil {
		opts.Shuffler = exam.NewRandomShuffler()
	}
	if opts.Blueprint.Order == nil {
		opts.Blueprint = exam.DefaultBlueprint()
	}
	if opts.Scheduler == nil {
		opts.Scheduler = TimerScheduler
	}
	if opts.AutoAdvanceDelay <= 0 {
		opts.AutoAdvanceDelay = 300 * time.Millisecond
	}

	return &Manager{
		sessions:  make(map[string]*Session),
		catalog:   catalog,
		ledger:    l,
		hub:       hub,
		sampler:   exam.NewSampler(opts.Blueprint, opts.Shuffler),
		shuffler:  opts.Shuffler,
		engine:    exam.NewEngine(exam.ScoringConfig{Points: opts.Blueprint.Points}),
		scheduler: opts.Scheduler,
		delay:     opts.AutoAdvanceDelay,
		logger:    logger.With().Str("component", "session_manager").Logger(),
	}
}

func (m *Manager) Catalog() *question.Catalog {
	return m.catalog
}

func (m *Manager) Ledger() ledger.Ledger {
	return m.ledger
}

// Create validates the request and opens a session. Review sessions resolve
// the subject's wrong book; an unreadable ledger yields an empty review.
func (m *Manager) Create(ctx context.Context, req CreateRequest) (*Session, error) {
	store, ok := m.catalog.Store(req.Subject)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrSubjectNotFound, req.Subject)
	}
	mode, err := ParseMode(req.Mode)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidRequest, err)
	}
	order, err := ParseOrder(req.Order)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidRequest, err)
	}
	filter, err := ParseFilter(req.Filter)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidRequest, err)
	}
	theme, err := ParseTheme(req.Theme)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidRequest, err)
	}

	pool := store.All()
	if mode == ModeReview {
		ids, err := m.ledger.IDs(ctx, req.Subject)
		if err != nil {
			m.logger.Warn().Err(err).Str("subject", req.Subject).Msg("wrong book unavailable, starting empty review")
		}
		pool = store.Lookup(ids)
	}

	id := uuid.NewString()
	s := New(pool, Options{
		ID:               id,
		Subject:          req.Subject,
		Mode:             mode,
		Order:            order,
		Filter:           filter,
		Theme:            theme,
		Available:        store.Available(),
		AutoAdvanceDelay: m.delay,
		Scheduler:        m.scheduler,
		Shuffler:         m.shuffler,
		Sampler:          m.sampler,
		Engine:           m.engine,
		OnAdvance: func(v View) {
			metrics.AutoAdvances.Inc()
			m.publish(id, ReasonAutoAdvance, v)
		},
	})

	m.mu.Lock()
	m.sessions[id] = s
	m.mu.Unlock()
	metrics.SessionsActive.WithLabelValues(string(mode)).Inc()

	m.logger.Info().
		Str("session_id", id).
		Str("subject", req.Subject).
		Str("mode", string(mode)).
		Int("questions", s.View().Total).
		Msg("session created")
	return s, nil
}

// Get looks up a live session.
func (m *Manager) Get(id string) (*Session, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	s, ok := m.sessions[id]
	if !ok {
		return nil, ErrSessionNotFound
	}
	return s, nil
}

// Submit judges the current answer of a session and feeds the ledger: an
// incorrect exam or random-exam answer is recorded, a correct review answer
// is removed.
func (m *Manager) Submit(ctx context.Context, id string) (Submission, error) {
	s, err := m.Get(id)
	if err != nil {
		return Submission{}, err
	}
	sub, err := s.Submit()
	if err != nil {
		return Submission{}, err
	}
	metrics.Submissions.WithLabelValues(string(s.Mode()), sub.Verdict.String()).Inc()

	switch {
	case (s.Mode() == ModeExam || s.Mode() == ModeRandomExam) && sub.Verdict == exam.Incorrect:
		if err := m.ledger.Add(ctx, s.Subject(), sub.QuestionID); err != nil {
			m.logger.Warn().Err(err).Str("session_id", id).Msg("record wrong answer failed")
		}
	case s.Mode() == ModeReview && sub.Verdict == exam.Correct:
		if err := m.ledger.Remove(ctx, s.Subject(), sub.QuestionID); err != nil {
			m.logger.Warn().Err(err).Str("session_id", id).Msg("clear wrong answer failed")
		}
	}

	m.announce(id, sub)
	m.publish(id, ReasonSubmission, sub.View)
	return sub, nil
}

// Do runs a transition on a session and pushes the resulting view.
func (m *Manager) Do(id string, transition func(*Session) (View, error)) (View, error) {
	s, err := m.Get(id)
	if err != nil {
		return View{}, err
	}
	v, err := transition(s)
	if err != nil {
		return View{}, err
	}
	m.publish(id, ReasonTransition, v)
	return v, nil
}

// Close ends a session.
func (m *Manager) Close(id string) error {
	return m.close(id, ReasonClosed)
}

func (m *Manager) close(id, reason string) error {
	m.mu.Lock()
	s, ok := m.sessions[id]
	delete(m.sessions, id)
	m.mu.Unlock()
	if !ok {
		return ErrSessionNotFound
	}

	s.Close()
	metrics.SessionsActive.WithLabelValues(string(s.Mode())).Dec()
	if m.hub != nil {
		if msg, err := ws.NewMessage(ws.TypeSessionClosed, ws.SessionClosedPayload{SessionID: id, Reason: reason}); err == nil {
			m.hub.Broadcast(id, msg)
		}
		m.hub.CloseSession(id)
	}
	m.logger.Info().Str("session_id", id).Str("reason", reason).Msg("session closed")
	return nil
}

// Expire closes sessions idle for longer than ttl and returns how many.
func (m *Manager) Expire(now time.Time, ttl time.Duration) int {
	m.mu.RLock()
	var stale []string
	for id, s := range m.sessions {
		if now.Sub(s.LastActive()) > ttl {
			stale = append(stale, id)
		}
	}
	m.mu.RUnlock()

	n := 0
	for _, id := range stale {
		if m.close(id, ReasonExpired) == nil {
			n++
		}
	}
	metrics.SessionsExpired.Add(float64(n))
	return n
}

// CloseAll closes every live session, cancelling pending auto-advances,
// and returns how many were closed.
func (m *Manager) CloseAll(reason string) int {
	m.mu.RLock()
	ids := make([]string, 0, len(m.sessions))
	for id := range m.sessions {
		ids = append(ids, id)
	}
	m.mu.RUnlock()

	n := 0
	for _, id := range ids {
		if m.close(id, reason) == nil {
			n++
		}
	}
	return n
}

// Len counts live sessions.
func (m *Manager) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.sessions)
}

func (m *Manager) publish(id, reason string, v View) {
	if m.hub == nil {
		return
	}
	data, err := json.Marshal(v)
	if err != nil {
		m.logger.Warn().Err(err).Msg("failed to marshal session update")
		return
	}
	msg, err := ws.NewMessage(ws.TypeSessionUpdate, ws.SessionUpdatePayload{
		SessionID: id,
		Reason:    reason,
		Session:   data,
	})
	if err != nil {
		m.logger.Warn().Err(err).Msg("failed to build session update")
		return
	}
	m.hub.Broadcast(id, msg)
}

// announce pushes the verdict of a submission ahead of the state update.
func (m *Manager) announce(id string, sub Submission) {
	if m.hub == nil {
		return
	}
	msg, err := ws.NewMessage(ws.TypeSubmission, sub)
	if err != nil {
		m.logger.Warn().Err(err).Msg("failed to build submission message")
		return
	}
	m.hub.Broadcast(id, msg)
}
