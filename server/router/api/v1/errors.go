package v1

import (
	stderrors "errors"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/hrygo/agentcache/internal/errors"
	"github.com/hrygo/agentcache/internal/observability"
	"github.com/hrygo/agentcache/plugin/ai/similarity"
)

// ErrorResponse is the body of every failed API call.
type ErrorResponse struct {
	Code      errors.ErrorCode `json:"code"`
	Message   string           `json:"message"`
	RequestID string           `json:"request_id,omitempty"`
}

// HTTPErrorHandler renders errors as ErrorResponse. Similarity input
// errors map to INVALID_ARGUMENT; other uncoded errors are INTERNAL.
func HTTPErrorHandler(err error, c echo.Context) {
	if c.Response().Committed {
		return
	}

	status, body := toErrorResponse(err)
	if rc, ok := observability.FromContext(c.Request().Context()); ok {
		body.RequestID = rc.RequestID
	}

	var writeErr error
	if c.Request().Method == http.MethodHead {
		writeErr = c.NoContent(status)
	} else {
		writeErr = c.JSON(status, body)
	}
	if writeErr != nil {
		c.Logger().Error(writeErr)
	}
}

func toErrorResponse(err error) (int, ErrorResponse) {
	var cacheErr *errors.CacheError
	if stderrors.As(err, &cacheErr) {
		status := cacheErr.HTTPStatus()
		msg := cacheErr.Message
		// Client errors carry their cause; server errors do not leak it.
		if status < http.StatusInternalServerError && cacheErr.Cause != nil {
			msg += ": " + cacheErr.Cause.Error()
		}
		return status, ErrorResponse{Code: cacheErr.Code, Message: msg}
	}

	var httpErr *echo.HTTPError
	if stderrors.As(err, &httpErr) {
		code := errors.ErrCodeInternal
		switch httpErr.Code {
		case http.StatusBadRequest, http.StatusRequestEntityTooLarge, http.StatusUnsupportedMediaType:
			code = errors.ErrCodeInvalidArgument
		case http.StatusNotFound, http.StatusMethodNotAllowed:
			code = errors.ErrCodeNotFound
		case http.StatusUnauthorized:
			code = errors.ErrCodeUnauthorized
		case http.StatusTooManyRequests:
			code = errors.ErrCodeRateLimitExceeded
		}
		return httpErr.Code, ErrorResponse{Code: code, Message: http.StatusText(httpErr.Code)}
	}

	if isSimilarityInputError(err) {
		return http.StatusBadRequest, ErrorResponse{Code: errors.ErrCodeInvalidArgument, Message: err.Error()}
	}
	return http.StatusInternalServerError, ErrorResponse{Code: errors.ErrCodeInternal, Message: "internal error"}
}

func isSimilarityInputError(err error) bool {
	return stderrors.Is(err, similarity.ErrInvalidInput) ||
		stderrors.Is(err, similarity.ErrInvalidThreshold) ||
		stderrors.Is(err, similarity.ErrInvalidWeights)
}

// invalidArgument wraps a similarity input error so it renders as 400 with its message.
func invalidArgument(err error, msg string) error {
	return errors.Wrap(err, errors.ErrCodeInvalidArgument, msg)
}
