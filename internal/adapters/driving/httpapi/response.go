package httpapi

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/custodia-labs/docqa/internal/core/domain"
)

// ErrorInfo is the body of every error response.
type ErrorInfo struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// ErrorResponse wraps ErrorInfo under "error".
type ErrorResponse struct {
	Error ErrorInfo `json:"error"`
}

func abortError(c *gin.Context, status int, code, message string) {
	c.AbortWithStatusJSON(status, ErrorResponse{Error: ErrorInfo{Code: code, Message: message}})
}

// badRequest reports malformed request input.
func badRequest(c *gin.Context, message string) {
	abortError(c, http.StatusBadRequest, "VALIDATION_ERROR", message)
}

// fail maps a core error onto a status and error code. Unknown errors are
// logged and reported without detail.
func fail(c *gin.Context, err error) {
	status, code := classify(err)
	message := err.Error()
	if status == http.StatusInternalServerError {
		log.Error("request %s %s: %v", c.Request.Method, c.FullPath(), err)
		message = "internal error"
	}
	abortError(c, status, code, message)
}

// classify checks the most specific errors first.
func classify(err error) (int, string) {
	switch {
	case errors.Is(err, domain.ErrUnsupportedType):
		return http.StatusBadRequest, "UNSUPPORTED_TYPE"
	case errors.Is(err, domain.ErrInvalidInput):
		return http.StatusBadRequest, "VALIDATION_ERROR"
	case errors.Is(err, domain.ErrNotIndexed):
		return http.StatusNotFound, "NOT_INDEXED"
	case errors.Is(err, domain.ErrNotFound):
		return http.StatusNotFound, "NOT_FOUND"
	case errors.Is(err, domain.ErrAccessDenied):
		return http.StatusForbidden, "ACCESS_DENIED"
	case errors.Is(err, domain.ErrLLMUnavailable), errors.Is(err, domain.ErrEmbeddingUnavailable):
		return http.StatusServiceUnavailable, "SERVICE_UNAVAILABLE"
	case errors.Is(err, domain.ErrUpstream):
		return http.StatusBadGateway, "UPSTREAM_ERROR"
	default:
		return http.StatusInternalServerError, "INTERNAL_ERROR"
	}
}
