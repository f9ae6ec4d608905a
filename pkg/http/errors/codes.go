package errors

// Error codes for standardized error responses
const (
	// Authentication errors
	ErrCodeUnauthorized = "unauthorized"
	ErrCodeForbidden    = "forbidden"
	ErrCodeInvalidToken = "invalid_token"
	ErrCodeLoginFailed  = "login_failed"

	// Validation errors
	ErrCodeInvalidRequest   = "invalid_request"
	ErrCodeValidationFailed = "validation_failed"
	ErrCodeMissingField     = "missing_field"

	// Resource errors
	ErrCodeNotFound = "not_found"
	ErrCodeConflict = "conflict"

	// Room/session errors
	ErrCodeRoomCreationFailed = "room_creation_failed"
	ErrCodeRoomNotFound       = "room_not_found"
	ErrCodeRoomFull           = "room_full"
	ErrCodeInvalidRoomCode    = "invalid_room_code"
	ErrCodeJoinFailed         = "join_failed"
	ErrCodeNotHost            = "not_host"
	ErrCodeMatchNotStarted    = "match_not_started"
	ErrCodeMatchStartFailed   = "match_start_failed"
	ErrCodeNoParticipants     = "no_participants"
	ErrCodeBuzzRejected       = "buzz_rejected"
	ErrCodeAnswerRejected     = "answer_rejected"
	ErrCodeNotJoined          = "not_joined"
	ErrCodeCommandRejected    = "command_rejected"

	// Question bank errors
	ErrCodeSetNotFound      = "set_not_found"
	ErrCodeSetSaveFailed    = "set_save_failed"
	ErrCodeGenerationFailed = "generation_failed"

	// WebSocket errors
	ErrCodeInvalidPayload     = "invalid_payload"
	ErrCodeUnknownMessageType = "unknown_message_type"
	ErrCodeConnectionError    = "connection_error"

	// Server errors
	ErrCodeInternalError      = "internal_error"
	ErrCodeServiceUnavailable = "service_unavailable"
	ErrCodeUpstreamError      = "upstream_error"
)
