package errorx

import (
	"encoding/json"
	"fmt"
	"net/http"
)

// ErrorCategory represents different categories of errors
type ErrorCategory string

const (
	CategoryValidation     ErrorCategory = "validation"
	CategoryAuthentication ErrorCategory = "authentication"
	CategoryNotFound       ErrorCategory = "not_found"
	CategoryConflict       ErrorCategory = "conflict"
	CategoryContention     ErrorCategory = "contention"
	CategoryInternal       ErrorCategory = "internal"
	CategoryConfiguration  ErrorCategory = "configuration"
	CategoryStorage        ErrorCategory = "storage"
	CategoryTimeout        ErrorCategory = "timeout"
	CategoryRateLimit      ErrorCategory = "rate_limit"
)

// Severity represents the severity level of an error
type Severity string

const (
	SeverityInfo     Severity = "info"
	SeverityWarning  Severity = "warning"
	SeverityError    Severity = "error"
	SeverityCritical Severity = "critical"
)

// APIError represents a structured API error with comprehensive information
type APIError struct {
	Code        string         `json:"code"`
	Message     string         `json:"message"`
	Category    ErrorCategory  `json:"category"`
	Severity    Severity       `json:"severity"`
	HTTPStatus  int            `json:"-"`
	Details     map[string]any `json:"details,omitempty"`
	Suggestions []string       `json:"suggestions,omitempty"`
	TraceID     string         `json:"trace_id,omitempty"`
	Timestamp   string         `json:"timestamp,omitempty"`
}

// Error implements the error interface
func (e *APIError) Error() string {
	return fmt.Sprintf("[%s] %s: %s", e.Code, e.Category, e.Message)
}

// JSON returns the error as a JSON string
func (e *APIError) JSON() string {
	out, _ := json.Marshal(e)
	return string(out)
}

// Clone returns a copy that is safe to decorate per request. The
// package-level errors below are shared and must never be mutated.
func (e *APIError) Clone() *APIError {
	out := *e
	if e.Details != nil {
		out.Details = make(map[string]any, len(e.Details))
		for k, v := range e.Details {
			out.Details[k] = v
		}
	}
	if e.Suggestions != nil {
		out.Suggestions = append([]string(nil), e.Suggestions...)
	}
	return &out
}

// WithDetail adds a detail to the error
func (e *APIError) WithDetail(key string, value any) *APIError {
	if e.Details == nil {
		e.Details = make(map[string]any)
	}
	e.Details[key] = value
	return e
}

// WithSuggestion adds a suggestion to the error
func (e *APIError) WithSuggestion(suggestion string) *APIError {
	e.Suggestions = append(e.Suggestions, suggestion)
	return e
}

// WithTraceID adds a trace ID to the error
func (e *APIError) WithTraceID(traceID string) *APIError {
	e.TraceID = traceID
	return e
}

// Common error codes and messages
var (
	// Validation Errors (E1000-E1999)
	ErrInvalidInput = &APIError{
		Code:       "E1001",
		Message:    "Invalid input provided",
		Category:   CategoryValidation,
		Severity:   SeverityError,
		HTTPStatus: http.StatusBadRequest,
		Suggestions: []string{
			"Check the request format and try again",
			"Ensure all required fields are provided",
		},
	}

	ErrMissingField = &APIError{
		Code:       "E1002",
		Message:    "Required field is missing",
		Category:   CategoryValidation,
		Severity:   SeverityError,
		HTTPStatus: http.StatusBadRequest,
		Suggestions: []string{
			"Check the API documentation for required fields",
		},
	}

	ErrInvalidFormat = &APIError{
		Code:       "E1003",
		Message:    "Invalid data format",
		Category:   CategoryValidation,
		Severity:   SeverityError,
		HTTPStatus: http.StatusBadRequest,
		Suggestions: []string{
			"Check the data format according to the API specification",
		},
	}

	// Authentication Errors (E2000-E2999)
	ErrUnauthorized = &APIError{
		Code:       "E2001",
		Message:    "Authentication required",
		Category:   CategoryAuthentication,
		Severity:   SeverityError,
		HTTPStatus: http.StatusUnauthorized,
		Suggestions: []string{
			"Provide a valid API key in the X-API-Key header",
		},
	}

	ErrInvalidAPIKey = &APIError{
		Code:       "E2002",
		Message:    "Invalid API key",
		Category:   CategoryAuthentication,
		Severity:   SeverityError,
		HTTPStatus: http.StatusUnauthorized,
		Suggestions: []string{
			"Check the API key for this client",
		},
	}

	// Not Found Errors (E4000-E4999)
	ErrResourceNotFound = &APIError{
		Code:       "E4001",
		Message:    "Requested resource not found",
		Category:   CategoryNotFound,
		Severity:   SeverityError,
		HTTPStatus: http.StatusNotFound,
		Suggestions: []string{
			"Check if the resource ID is correct",
			"The resource might have been deleted",
		},
	}

	ErrEndpointNotFound = &APIError{
		Code:       "E4002",
		Message:    "API endpoint not found",
		Category:   CategoryNotFound,
		Severity:   SeverityError,
		HTTPStatus: http.StatusNotFound,
		Suggestions: []string{
			"Check the API documentation for correct endpoints",
		},
	}

	// Conflict Errors (E4090-E4099)
	ErrResourceExists = &APIError{
		Code:       "E4091",
		Message:    "Resource already exists",
		Category:   CategoryConflict,
		Severity:   SeverityError,
		HTTPStatus: http.StatusConflict,
		Suggestions: []string{
			"Use a different name or ID",
			"Update the existing resource instead",
		},
	}

	ErrContentionExceeded = &APIError{
		Code:       "E4092",
		Message:    "Concurrent updates exceeded the retry budget",
		Category:   CategoryContention,
		Severity:   SeverityWarning,
		HTTPStatus: http.StatusConflict,
		Suggestions: []string{
			"Retry the move after a short backoff",
		},
	}

	// Rate Limiting Errors (E4290-E4299)
	ErrRateLimitExceeded = &APIError{
		Code:       "E4291",
		Message:    "Rate limit exceeded",
		Category:   CategoryRateLimit,
		Severity:   SeverityWarning,
		HTTPStatus: http.StatusTooManyRequests,
		Suggestions: []string{
			"Please wait before making more requests",
		},
	}

	// Internal Server Errors (E5000-E5999)
	ErrInternalServer = &APIError{
		Code:       "E5001",
		Message:    "Internal server error occurred",
		Category:   CategoryInternal,
		Severity:   SeverityCritical,
		HTTPStatus: http.StatusInternalServerError,
		Suggestions: []string{
			"Please try again later",
			"Contact support if the issue persists",
		},
	}

	ErrDatabaseError = &APIError{
		Code:       "E5002",
		Message:    "Database operation failed",
		Category:   CategoryInternal,
		Severity:   SeverityError,
		HTTPStatus: http.StatusInternalServerError,
		Suggestions: []string{
			"Please try again later",
		},
	}

	ErrConfigurationError = &APIError{
		Code:       "E5003",
		Message:    "Configuration error",
		Category:   CategoryConfiguration,
		Severity:   SeverityError,
		HTTPStatus: http.StatusInternalServerError,
		Suggestions: []string{
			"Check the server configuration",
			"Contact your system administrator",
		},
	}

	// Storage Errors (E5030-E5099)
	ErrStorageUnavailable = &APIError{
		Code:       "E5031",
		Message:    "Storage backend unavailable",
		Category:   CategoryStorage,
		Severity:   SeverityError,
		HTTPStatus: http.StatusServiceUnavailable,
		Suggestions: []string{
			"The storage backend is temporarily unavailable",
			"Please try again later",
		},
	}

	ErrStorageTimeout = &APIError{
		Code:       "E5032",
		Message:    "Storage operation timed out",
		Category:   CategoryTimeout,
		Severity:   SeverityWarning,
		HTTPStatus: http.StatusGatewayTimeout,
		Suggestions: []string{
			"Please try again",
		},
	}

	// Engine Specific Errors (E6000-E6999)
	ErrSessionNotFound = &APIError{
		Code:       "E6001",
		Message:    "Session not found",
		Category:   CategoryNotFound,
		Severity:   SeverityError,
		HTTPStatus: http.StatusNotFound,
		Suggestions: []string{
			"Check the session id",
			"The session might have been archived and pruned",
		},
	}

	ErrDuplicateSession = &APIError{
		Code:       "E6002",
		Message:    "A live session with the same participant set already exists",
		Category:   CategoryConflict,
		Severity:   SeverityWarning,
		HTTPStatus: http.StatusConflict,
		Suggestions: []string{
			"Reuse the existing session",
		},
	}

	ErrNoEligibleVariant = &APIError{
		Code:       "E6003",
		Message:    "No rule variant is eligible for this session",
		Category:   CategoryConfiguration,
		Severity:   SeverityError,
		HTTPStatus: http.StatusInternalServerError,
		Suggestions: []string{
			"Check variant eligibility bounds against the participant count",
		},
	}

	ErrSessionIDTaken = &APIError{
		Code:       "E6004",
		Message:    "Session id already in use",
		Category:   CategoryConflict,
		Severity:   SeverityWarning,
		HTTPStatus: http.StatusConflict,
		Suggestions: []string{
			"Omit the session id to have one generated",
		},
	}
)
