package session

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/rs/zerolog"

	"github.com/gokatarajesh/hcip-drill/internal/auth"
	"github.com/gokatarajesh/hcip-drill/internal/auth/jwt"
	"github.com/gokatarajesh/hcip-drill/internal/question"
	httperrors "github.com/gokatarajesh/hcip-drill/pkg/http/errors"
)

// HTTPHandlers provides REST endpoints for subjects, the wrong book and sessions.
type HTTPHandlers struct {
	manager *Manager
	tokens  *jwt.Manager
	logger  zerolog.Logger
}

// NewHTTPHandlers creates HTTP handlers for session endpoints.
func NewHTTPHandlers(manager *Manager, tokens *jwt.Manager, logger zerolog.Logger) *HTTPHandlers {
	return &HTTPHandlers{
		manager: manager,
		tokens:  tokens,
		logger:  logger.With().Str("component", "session_http").Logger(),
	}
}

// Register mounts every route on mux.
func (h *HTTPHandlers) Register(mux *http.ServeMux) {
	mux.HandleFunc("GET /v1/subjects", h.ListSubjects)
	mux.HandleFunc("GET /v1/subjects/{subject}/questions", h.ListQuestions)
	mux.HandleFunc("GET /v1/subjects/{subject}/wrong-book", h.WrongBook)
	mux.HandleFunc("DELETE /v1/subjects/{subject}/wrong-book/{qid}", h.RemoveWrong)
	mux.HandleFunc("POST /v1/sessions", h.CreateSession)

	protect := auth.RequireSession(h.tokens, h.logger)
	route := func(pattern string, fn http.HandlerFunc) {
		mux.Handle(pattern, protect(fn))
	}
	route("GET /v1/sessions/{id}", h.GetSession)
	route("DELETE /v1/sessions/{id}", h.CloseSession)
	route("GET /v1/sessions/{id}/score", h.GetScore)
	route("POST /v1/sessions/{id}/select", h.Select)
	route("POST /v1/sessions/{id}/submit", h.Submit)
	route("POST /v1/sessions/{id}/next", h.transition(func(s *Session) (View, error) { return s.Next(), nil }))
	route("POST /v1/sessions/{id}/previous", h.transition(func(s *Session) (View, error) { return s.Previous(), nil }))
	route("POST /v1/sessions/{id}/reset", h.transition(func(s *Session) (View, error) { return s.Reset(), nil }))
	route("POST /v1/sessions/{id}/reveal", h.transition((*Session).RevealAnswer))
	route("POST /v1/sessions/{id}/regenerate", h.transition((*Session).Regenerate))
	route("POST /v1/sessions/{id}/seek", h.Seek)
	route("POST /v1/sessions/{id}/order", h.SetOrder)
	route("POST /v1/sessions/{id}/filter", h.SetFilter)
	route("GET /ws/sessions/{id}", h.HandleWebSocket)
}

// SubjectInfo summarises one question bank.
type SubjectInfo struct {
	Name      string                `json:"name"`
	Available bool                  `json:"available"`
	Total     int                   `json:"total"`
	Totals    map[question.Type]int `json:"totals"`
}

// ListSubjects handles GET /v1/subjects
func (h *HTTPHandlers) ListSubjects(w http.ResponseWriter, r *http.Request) {
	catalog := h.manager.Catalog()
	out := make([]SubjectInfo, 0)
	for _, name := range catalog.Subjects() {
		store, _ := catalog.Store(name)
		out = append(out, SubjectInfo{
			Name:      name,
			Available: store.Available(),
			Total:     store.Len(),
			Totals:    store.Totals(),
		})
	}
	h.respondJSON(w, http.StatusOK, map[string]interface{}{"subjects": out})
}

// ListQuestions handles GET /v1/subjects/{subject}/questions?type=
func (h *HTTPHandlers) ListQuestions(w http.ResponseWriter, r *http.Request) {
	store, ok := h.manager.Catalog().Store(r.PathValue("subject"))
	if !ok {
		httperrors.RespondNotFound(w, httperrors.ErrCodeSubjectNotFound, "Unknown subject")
		return
	}

	questions := store.All()
	if raw := r.URL.Query().Get("type"); raw != "" {
		t, err := question.ParseType(raw)
		if err != nil {
			httperrors.RespondValidationError(w, httperrors.ErrCodeInvalidType, err.Error(), "type")
			return
		}
		questions = store.ByType(t)
	}

	out := make([]QuestionView, 0, len(questions))
	for _, q := range questions {
		out = append(out, QuestionView{
			ID:      q.ID(),
			Type:    q.Type(),
			Prompt:  q.Prompt(),
			Options: q.Options(),
			Label:   q.Meta().Label,
			Points:  h.manager.engine.Points(q.Type()),
		})
	}
	h.respondJSON(w, http.StatusOK, map[string]interface{}{
		"subject":   store.Subject(),
		"questions": out,
	})
}

// WrongBook handles GET /v1/subjects/{subject}/wrong-book
func (h *HTTPHandlers) WrongBook(w http.ResponseWriter, r *http.Request) {
	subject := r.PathValue("subject")
	store, ok := h.manager.Catalog().Store(subject)
	if !ok {
		httperrors.RespondNotFound(w, httperrors.ErrCodeSubjectNotFound, "Unknown subject")
		return
	}

	ids, err := h.manager.Ledger().IDs(r.Context(), subject)
	if err != nil {
		h.logger.Error().Err(err).Str("subject", subject).Msg("failed to read wrong book")
		httperrors.RespondServiceUnavailable(w, httperrors.ErrCodeLedgerUnavailable, "Wrong book unavailable")
		return
	}
	if ids == nil {
		ids = []int{}
	}

	h.respondJSON(w, http.StatusOK, map[string]interface{}{
		"subject":  subject,
		"ids":      ids,
		"resolved": len(store.Lookup(ids)),
	})
}

// RemoveWrong handles DELETE /v1/subjects/{subject}/wrong-book/{qid}
func (h *HTTPHandlers) RemoveWrong(w http.ResponseWriter, r *http.Request) {
	subject := r.PathValue("subject")
	if _, ok := h.manager.Catalog().Store(subject); !ok {
		httperrors.RespondNotFound(w, httperrors.ErrCodeSubjectNotFound, "Unknown subject")
		return
	}
	qid, err := strconv.Atoi(r.PathValue("qid"))
	if err != nil || qid <= 0 {
		httperrors.RespondValidationError(w, httperrors.ErrCodeValidationFailed, "question id must be a positive integer", "qid")
		return
	}

	if err := h.manager.Ledger().Remove(r.Context(), subject, qid); err != nil {
		h.logger.Error().Err(err).Str("subject", subject).Int("question_id", qid).Msg("failed to remove from wrong book")
		httperrors.RespondServiceUnavailable(w, httperrors.ErrCodeLedgerUnavailable, "Wrong book unavailable")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// CreateSession handles POST /v1/sessions
func (h *HTTPHandlers) CreateSession(w http.ResponseWriter, r *http.Request) {
	var req CreateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httperrors.RespondBadRequest(w, httperrors.ErrCodeInvalidRequest, "Invalid JSON payload")
		return
	}
	if req.Subject == "" {
		httperrors.RespondValidationError(w, httperrors.ErrCodeMissingField, "subject is required", "subject")
		return
	}

	s, err := h.manager.Create(r.Context(), req)
	if err != nil {
		h.respondSessionError(w, err)
		return
	}

	token, err := h.tokens.Issue(jwt.Session{ID: s.ID(), Subject: s.Subject(), Mode: string(s.Mode())})
	if err != nil {
		h.logger.Error().Err(err).Str("session_id", s.ID()).Msg("failed to issue session token")
		_ = h.manager.Close(s.ID())
		httperrors.RespondInternalError(w, "Failed to issue session token")
		return
	}

	h.respondJSON(w, http.StatusCreated, map[string]interface{}{
		"token":      token,
		"expires_in": int(h.tokens.TTL().Seconds()),
		"session":    s.View(),
	})
}

// GetSession handles GET /v1/sessions/{id}
func (h *HTTPHandlers) GetSession(w http.ResponseWriter, r *http.Request) {
	s, err := h.manager.Get(r.PathValue("id"))
	if err != nil {
		h.respondSessionError(w, err)
		return
	}
	h.respondJSON(w, http.StatusOK, s.View())
}

// GetScore handles GET /v1/sessions/{id}/score
func (h *HTTPHandlers) GetScore(w http.ResponseWriter, r *http.Request) {
	s, err := h.manager.Get(r.PathValue("id"))
	if err != nil {
		h.respondSessionError(w, err)
		return
	}
	h.respondJSON(w, http.StatusOK, s.Score())
}

// CloseSession handles DELETE /v1/sessions/{id}
func (h *HTTPHandlers) CloseSession(w http.ResponseWriter, r *http.Request) {
	if err := h.manager.Close(r.PathValue("id")); err != nil {
		h.respondSessionError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// SelectRequest carries one interaction (value) or a whole answer (values).
type SelectRequest struct {
	Value  *string  `json:"value,omitempty"`
	Values []string `json:"values,omitempty"`
}

// Select handles POST /v1/sessions/{id}/select
func (h *HTTPHandlers) Select(w http.ResponseWriter, r *http.Request) {
	var req SelectRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httperrors.RespondBadRequest(w, httperrors.ErrCodeInvalidRequest, "Invalid JSON payload")
		return
	}
	if req.Value == nil && req.Values == nil {
		httperrors.RespondValidationError(w, httperrors.ErrCodeMissingField, "value or values is required", "value")
		return
	}

	h.transition(func(s *Session) (View, error) {
		if req.Value != nil {
			return s.Select(*req.Value)
		}
		return s.Answer(req.Values)
	})(w, r)
}

// Submit handles POST /v1/sessions/{id}/submit
func (h *HTTPHandlers) Submit(w http.ResponseWriter, r *http.Request) {
	sub, err := h.manager.Submit(r.Context(), r.PathValue("id"))
	if err != nil {
		h.respondSessionError(w, err)
		return
	}
	h.respondJSON(w, http.StatusOK, sub)
}

// Seek handles POST /v1/sessions/{id}/seek
func (h *HTTPHandlers) Seek(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Index *int `json:"index"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Index == nil {
		httperrors.RespondValidationError(w, httperrors.ErrCodeMissingField, "index is required", "index")
		return
	}
	h.transition(func(s *Session) (View, error) { return s.Seek(*req.Index), nil })(w, r)
}

// SetOrder handles POST /v1/sessions/{id}/order
func (h *HTTPHandlers) SetOrder(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Order string `json:"order"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httperrors.RespondBadRequest(w, httperrors.ErrCodeInvalidRequest, "Invalid JSON payload")
		return
	}
	order, err := ParseOrder(req.Order)
	if err != nil {
		httperrors.RespondValidationError(w, httperrors.ErrCodeValidationFailed, err.Error(), "order")
		return
	}
	h.transition(func(s *Session) (View, error) { return s.SetOrder(order) })(w, r)
}

// SetFilter handles POST /v1/sessions/{id}/filter
func (h *HTTPHandlers) SetFilter(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Filter string `json:"filter"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httperrors.RespondBadRequest(w, httperrors.ErrCodeInvalidRequest, "Invalid JSON payload")
		return
	}
	filter, err := ParseFilter(req.Filter)
	if err != nil {
		httperrors.RespondValidationError(w, httperrors.ErrCodeInvalidType, err.Error(), "filter")
		return
	}
	h.transition(func(s *Session) (View, error) { return s.SetFilter(filter) })(w, r)
}

func (h *HTTPHandlers) transition(fn func(*Session) (View, error)) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		v, err := h.manager.Do(r.PathValue("id"), fn)
		if err != nil {
			h.respondSessionError(w, err)
			return
		}
		h.respondJSON(w, http.StatusOK, v)
	}
}

func (h *HTTPHandlers) respondSessionError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, ErrSessionNotFound):
		httperrors.RespondNotFound(w, httperrors.ErrCodeSessionNotFound, "Session not found")
	case errors.Is(err, ErrSubjectNotFound):
		httperrors.RespondNotFound(w, httperrors.ErrCodeSubjectNotFound, "Unknown subject")
	case errors.Is(err, ErrInvalidRequest):
		httperrors.RespondBadRequest(w, httperrors.ErrCodeValidationFailed, err.Error())
	case errors.Is(err, ErrNoQuestions):
		httperrors.RespondConflict(w, httperrors.ErrCodeNoQuestions, "Session has no questions")
	case errors.Is(err, ErrRevealed):
		httperrors.RespondConflict(w, httperrors.ErrCodeAnswerLocked, "Answer is locked after reveal")
	case errors.Is(err, ErrNoAnswer):
		httperrors.RespondUnprocessable(w, httperrors.ErrCodeNoAnswer, "Select an answer before submitting")
	case errors.Is(err, ErrUnknownOption):
		httperrors.RespondBadRequest(w, httperrors.ErrCodeUnknownOption, "Not an option of the current question")
	case errors.Is(err, ErrUnsupported):
		httperrors.RespondConflict(w, httperrors.ErrCodeUnsupportedMode, "Operation not supported in this mode")
	default:
		h.logger.Error().Err(err).Msg("session operation failed")
		httperrors.RespondInternalError(w, "Internal error")
	}
}

func (h *HTTPHandlers) respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}
