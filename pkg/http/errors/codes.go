package errors

// Error codes for standardized error responses
const (
	// Authentication errors
	ErrCodeUnauthorized    = "unauthorized"
	ErrCodeInvalidToken    = "invalid_token"
	ErrCodeTokenExpired    = "token_expired"
	ErrCodeSessionMismatch = "session_mismatch"

	// Validation errors
	ErrCodeInvalidRequest   = "invalid_request"
	ErrCodeValidationFailed = "validation_failed"
	ErrCodeMissingField     = "missing_field"
	ErrCodeInvalidMode      = "invalid_mode"
	ErrCodeInvalidType      = "invalid_question_type"

	// Resource errors
	ErrCodeNotFound         = "not_found"
	ErrCodeSubjectNotFound  = "subject_not_found"
	ErrCodeSessionNotFound  = "session_not_found"
	ErrCodeQuestionNotFound = "question_not_found"

	// Session state errors
	ErrCodeNoQuestions     = "no_questions"
	ErrCodeAnswerLocked    = "answer_locked"
	ErrCodeNoAnswer        = "no_answer"
	ErrCodeUnknownOption   = "unknown_option"
	ErrCodeUnsupportedMode = "unsupported_mode"

	// WebSocket errors
	ErrCodeInvalidPayload     = "invalid_payload"
	ErrCodeUnknownMessageType = "unknown_message_type"

	// Server errors
	ErrCodeInternalError      = "internal_error"
	ErrCodeServiceUnavailable = "service_unavailable"
	ErrCodeUpstreamError      = "upstream_error"
	ErrCodeRateLimited        = "rate_limited"
	ErrCodeLedgerUnavailable  = "ledger_unavailable"
)
