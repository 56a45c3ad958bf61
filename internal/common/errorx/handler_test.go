package errorx

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func TestAPIError_ErrorFormat(t *testing.T) {
	e := &APIError{Code: "E9999", Message: "boom", Category: CategoryInternal}
	assert.Equal(t, "[E9999] internal: boom", e.Error())
}

func TestAPIError_CloneDoesNotMutateShared(t *testing.T) {
	before := len(ErrInvalidInput.Details)
	e := ErrInvalidInput.Clone().WithDetail("field", "participants")
	assert.Len(t, ErrInvalidInput.Details, before)
	assert.Equal(t, "participants", e.Details["field"])
	assert.Equal(t, ErrInvalidInput.Code, e.Code)
	assert.Equal(t, ErrInvalidInput.HTTPStatus, e.HTTPStatus)
}

func TestConvertToAPIError(t *testing.T) {
	h := NewErrorHandler(zap.NewNop())

	t.Run("api error passes through", func(t *testing.T) {
		in := SessionNotFoundError("s-1")
		out := h.ConvertToAPIError(in)
		assert.Equal(t, "E6001", out.Code)
	})

	t.Run("deadline maps to storage timeout", func(t *testing.T) {
		out := h.ConvertToAPIError(context.DeadlineExceeded)
		assert.Equal(t, ErrStorageTimeout.Code, out.Code)
		assert.Equal(t, http.StatusGatewayTimeout, out.HTTPStatus)
	})

	t.Run("unknown errors map to internal", func(t *testing.T) {
		out := h.ConvertToAPIError(errors.New("kaput"))
		assert.Equal(t, ErrInternalServer.Code, out.Code)
		assert.Equal(t, "kaput", out.Details["original_error"])
	})
}

func TestHandleError_JSONResponse(t *testing.T) {
	h := NewErrorHandler(zap.NewNop())
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = httptest.NewRequest(http.MethodGet, "/api/sessions/s-123", nil)

	h.HandleError(c, SessionNotFoundError("s-123"))

	assert.Equal(t, http.StatusNotFound, w.Code)
	body := w.Body.String()
	assert.Contains(t, body, "E6001")
	assert.Contains(t, body, "s-123")
	assert.Contains(t, body, "trace_id")
}

func TestHandleError_NilIsNoop(t *testing.T) {
	h := NewErrorHandler(zap.NewNop())
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = httptest.NewRequest(http.MethodGet, "/health", nil)

	h.HandleError(c, nil)
	assert.Equal(t, 0, w.Body.Len())
}

func TestHelperConstructors(t *testing.T) {
	e := ContentionError("s-9", 3)
	assert.Equal(t, "E4092", e.Code)
	assert.Equal(t, http.StatusConflict, e.HTTPStatus)
	assert.Equal(t, "s-9", e.Details["session_id"])
	assert.Equal(t, 3, e.Details["retries"])

	e = StorageError("record-store", errors.New("dial tcp: refused"))
	assert.Equal(t, "E5031", e.Code)
	assert.Equal(t, http.StatusServiceUnavailable, e.HTTPStatus)
	assert.Equal(t, "record-store", e.Details["component"])

	e = ConfigurationError("variant", "weights", "sum is zero")
	assert.Equal(t, "E5003", e.Code)

	e = ValidationError("participants", []string{}, "must not be empty")
	assert.Equal(t, "E1001", e.Code)
	assert.Equal(t, http.StatusBadRequest, e.HTTPStatus)
}

func TestExtractTraceID(t *testing.T) {
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = httptest.NewRequest(http.MethodGet, "/", nil)
	c.Request.Header.Set("X-Trace-Id", "abc-123")

	assert.Equal(t, "abc-123", ExtractTraceID(c))

	// generated ids are sticky on the context
	c2, _ := gin.CreateTestContext(httptest.NewRecorder())
	c2.Request = httptest.NewRequest(http.MethodGet, "/", nil)
	id := ExtractTraceID(c2)
	assert.NotEmpty(t, id)
	assert.Equal(t, id, ExtractTraceID(c2))
}
