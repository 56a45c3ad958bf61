package errorx

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"runtime"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// ErrorHandler provides unified error handling capabilities
type ErrorHandler struct {
	logger *zap.Logger
}

// NewErrorHandler creates a new error handler
func NewErrorHandler(logger *zap.Logger) *ErrorHandler {
	return &ErrorHandler{
		logger: logger,
	}
}

// HandleError converts any error to APIError and returns appropriate HTTP response
func (h *ErrorHandler) HandleError(c *gin.Context, err error) {
	if err == nil {
		return
	}

	// Convert to APIError and decorate a per-request copy
	apiErr := h.ConvertToAPIError(err).Clone()
	if apiErr.TraceID == "" {
		apiErr.TraceID = ExtractTraceID(c)
	}
	apiErr.Timestamp = time.Now().UTC().Format(time.RFC3339)

	// Log the error with context
	h.logError(c, apiErr, err)

	// Return JSON error response
	c.JSON(apiErr.HTTPStatus, gin.H{
		"error": apiErr,
	})
}

// ConvertToAPIError converts any error to APIError
func (h *ErrorHandler) ConvertToAPIError(err error) *APIError {
	// If already an APIError, return it
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr
	}

	if errors.Is(err, context.DeadlineExceeded) {
		return ErrStorageTimeout
	}

	// For other errors, create a generic internal server error
	return ErrInternalServer.Clone().WithDetail("original_error", err.Error())
}

// logError logs the error with appropriate context and stack trace
func (h *ErrorHandler) logError(c *gin.Context, apiErr *APIError, originalErr error) {
	// Get stack trace for critical errors
	var stackTrace string
	if apiErr.Severity == SeverityCritical {
		buf := make([]byte, 1024*4)
		n := runtime.Stack(buf, false)
		stackTrace = string(buf[:n])
	}

	// Create log fields
	fields := []zap.Field{
		zap.String("trace_id", apiErr.TraceID),
		zap.String("error_code", apiErr.Code),
		zap.String("category", string(apiErr.Category)),
		zap.String("severity", string(apiErr.Severity)),
		zap.Int("http_status", apiErr.HTTPStatus),
		zap.String("path", c.Request.URL.Path),
		zap.String("method", c.Request.Method),
		zap.String("user_agent", c.GetHeader("User-Agent")),
		zap.String("client_ip", c.ClientIP()),
	}

	// Add original error if different from APIError message
	if originalErr != nil && originalErr.Error() != apiErr.Message {
		fields = append(fields, zap.Error(originalErr))
	}

	// Add details if present
	if len(apiErr.Details) > 0 {
		detailsJSON, _ := json.Marshal(apiErr.Details)
		fields = append(fields, zap.String("details", string(detailsJSON)))
	}

	// Add stack trace for critical errors
	if stackTrace != "" {
		fields = append(fields, zap.String("stack_trace", stackTrace))
	}

	// Log with appropriate level based on severity
	switch apiErr.Severity {
	case SeverityInfo:
		h.logger.Info(apiErr.Message, fields...)
	case SeverityWarning:
		h.logger.Warn(apiErr.Message, fields...)
	default:
		h.logger.Error(apiErr.Message, fields...)
	}
}

// ErrorMiddleware returns a gin middleware for error handling
func (h *ErrorHandler) ErrorMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		// Execute the request
		c.Next()

		// Check for errors
		if len(c.Errors) > 0 {
			// Handle the last error
			lastErr := c.Errors.Last()
			h.HandleError(c, lastErr.Err)
		}
	}
}

// RecoveryMiddleware returns a gin middleware for panic recovery
func (h *ErrorHandler) RecoveryMiddleware() gin.HandlerFunc {
	return gin.CustomRecoveryWithWriter(nil, func(c *gin.Context, err interface{}) {
		// Create a critical error from the panic
		panicErr := &APIError{
			Code:       "E5000",
			Message:    "Server panic occurred",
			Category:   CategoryInternal,
			Severity:   SeverityCritical,
			HTTPStatus: 500,
			Details: map[string]any{
				"panic": fmt.Sprintf("%v", err),
			},
		}

		h.HandleError(c, panicErr)
	})
}

// Helper functions for creating specific errors

// ValidationError creates a validation error with details
func ValidationError(field string, value interface{}, reason string) *APIError {
	return ErrInvalidInput.Clone().
		WithDetail("field", field).
		WithDetail("value", value).
		WithDetail("reason", reason)
}

// NotFoundError creates a not found error for a specific resource
func NotFoundError(resourceType string, identifier string) *APIError {
	return ErrResourceNotFound.Clone().
		WithDetail("resource_type", resourceType).
		WithDetail("identifier", identifier)
}

// SessionNotFoundError creates a not found error for a session
func SessionNotFoundError(sessionID string) *APIError {
	return ErrSessionNotFound.Clone().WithDetail("session_id", sessionID)
}

// ConflictError creates a conflict error for a specific resource
func ConflictError(resourceType string, field string, value interface{}) *APIError {
	return ErrResourceExists.Clone().
		WithDetail("resource_type", resourceType).
		WithDetail("field", field).
		WithDetail("value", value)
}

// ContentionError creates a contention error after the retry budget ran out
func ContentionError(sessionID string, retries int) *APIError {
	return ErrContentionExceeded.Clone().
		WithDetail("session_id", sessionID).
		WithDetail("retries", retries)
}

// StorageError creates a storage error with backend details
func StorageError(component string, originalErr error) *APIError {
	e := ErrStorageUnavailable.Clone().WithDetail("component", component)
	if originalErr != nil {
		e = e.WithDetail("original_error", originalErr.Error())
	}
	return e
}

// ConfigurationError creates a configuration error with details
func ConfigurationError(component string, key string, reason string) *APIError {
	return ErrConfigurationError.Clone().
		WithDetail("component", component).
		WithDetail("key", key).
		WithDetail("reason", reason)
}

// ExtractTraceID extracts trace ID from context or request
func ExtractTraceID(c *gin.Context) string {
	// Try to get from context first
	if traceID := c.GetString("trace_id"); traceID != "" {
		return traceID
	}

	// Try to get from headers
	if traceID := c.GetHeader("X-Trace-Id"); traceID != "" {
		return traceID
	}

	// Generate new trace ID
	traceID := uuid.New().String()
	c.Set("trace_id", traceID)
	return traceID
}
