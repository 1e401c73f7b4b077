package response

// ErrCode is a typed error code enum for consistent API error identification.
type ErrCode string

const (
	// ─── Authentication ────────────────────────────────────────────────
	ErrInvalidCredentials ErrCode = "INVALID_CREDENTIALS"
	ErrSessionInvalidated ErrCode = "SESSION_INVALIDATED"
	ErrTokenRequired      ErrCode = "TOKEN_REQUIRED"
	ErrTokenInvalid       ErrCode = "TOKEN_INVALID"
	ErrAdminAccessOnly    ErrCode = "ADMIN_ACCESS_ONLY"

	// ─── Validation ────────────────────────────────────────────────────
	ErrValidation     ErrCode = "VALIDATION_ERROR"
	ErrInvalidID      ErrCode = "INVALID_ID"
	ErrInvalidPayload ErrCode = "INVALID_PAYLOAD"
	ErrInvalidLevel   ErrCode = "INVALID_LEVEL"
	ErrInvalidSource  ErrCode = "INVALID_SOURCE"

	// ─── Resources ─────────────────────────────────────────────────────
	ErrNotFound ErrCode = "NOT_FOUND"

	// ─── Survey ────────────────────────────────────────────────────────
	ErrEmptySubmission    ErrCode = "EMPTY_SUBMISSION"
	ErrUnknownQuestion    ErrCode = "UNKNOWN_QUESTION"
	ErrUnknownOption      ErrCode = "UNKNOWN_OPTION"
	ErrNoQuestions        ErrCode = "NO_QUESTIONS"
	ErrSurveySessionGone  ErrCode = "SURVEY_SESSION_NOT_FOUND"
	ErrSurveyComplete     ErrCode = "SURVEY_COMPLETE"
	ErrSurveyAtStart      ErrCode = "SURVEY_AT_START"
	ErrIncompleteQuestion ErrCode = "INCOMPLETE_QUESTION"

	// ─── Rate Limiting ─────────────────────────────────────────────────
	ErrRateLimitExceeded ErrCode = "RATE_LIMIT_EXCEEDED"

	// ─── Server ────────────────────────────────────────────────────────
	ErrInternal            ErrCode = "INTERNAL_ERROR"
	ErrSessionsUnavailable ErrCode = "SESSIONS_UNAVAILABLE"
)

// GetMessage returns a human-readable message for a given error code.
func GetMessage(code ErrCode) string {
	switch code {
	// ─── Authentication ────────────────────────────────────────────────
	case ErrInvalidCredentials:
		return "Incorrect admin password."
	case ErrSessionInvalidated:
		return "Your session has ended. Please log in again."
	case ErrTokenRequired:
		return "An authentication token is required."
	case ErrTokenInvalid:
		return "The authentication token is invalid."
	case ErrAdminAccessOnly:
		return "This resource is restricted to administrators."

	// ─── Validation ────────────────────────────────────────────────────
	case ErrValidation:
		return "Validation failed. Please check your input."
	case ErrInvalidID:
		return "Invalid ID format."
	case ErrInvalidPayload:
		return "Invalid request payload."
	case ErrInvalidLevel:
		return "Level must be one of Beginner, Intermediate or Advanced."
	case ErrInvalidSource:
		return "Analytics source must be embedded or flattened."

	// ─── Resources ─────────────────────────────────────────────────────
	case ErrNotFound:
		return "Resource not found."

	// ─── Survey ────────────────────────────────────────────────────────
	case ErrEmptySubmission:
		return "At least one answer is required."
	case ErrUnknownQuestion:
		return "The submission references a question that does not exist."
	case ErrUnknownOption:
		return "The answer does not match any option of a multiple-choice question."
	case ErrNoQuestions:
		return "This level has no questions yet."
	case ErrSurveySessionGone:
		return "Survey session not found or expired."
	case ErrSurveyComplete:
		return "Every question of this survey has been visited."
	case ErrSurveyAtStart:
		return "Already at the first question."
	case ErrIncompleteQuestion:
		return "Multiple-choice questions need at least two options and one correct option."

	// ─── Rate Limiting ─────────────────────────────────────────────────
	case ErrRateLimitExceeded:
		return "Too many requests. Please try again later."

	// ─── Server ────────────────────────────────────────────────────────
	case ErrInternal:
		return "Internal server error."
	case ErrSessionsUnavailable:
		return "Survey sessions are unavailable. Submit answers in one batch instead."
	default:
		return "An unexpected error occurred."
	}
}
