package errors

import (
	stderrors "errors"
	"fmt"
	"net/http"
)

// ErrorCode represents a specific error type for knowledge cache operations.
type ErrorCode string

const (
	// ErrCodeUnauthorized indicates authentication failure.
	ErrCodeUnauthorized ErrorCode = "UNAUTHORIZED"
	// ErrCodeRateLimitExceeded indicates rate limit has been exceeded.
	ErrCodeRateLimitExceeded ErrorCode = "RATE_LIMIT_EXCEEDED"
	// ErrCodeInvalidArgument indicates invalid input parameters.
	ErrCodeInvalidArgument ErrorCode = "INVALID_ARGUMENT"
	// ErrCodeNotFound indicates the requested resource does not exist.
	ErrCodeNotFound ErrorCode = "NOT_FOUND"
	// ErrCodeServiceUnavailable indicates a backing service is not available.
	ErrCodeServiceUnavailable ErrorCode = "SERVICE_UNAVAILABLE"
	// ErrCodeStorageFailed indicates a store operation failed.
	ErrCodeStorageFailed ErrorCode = "STORAGE_FAILED"
	// ErrCodeEmbeddingFailed indicates the embedding provider failed.
	ErrCodeEmbeddingFailed ErrorCode = "EMBEDDING_FAILED"
	// ErrCodeContextCanceled indicates the operation was canceled.
	ErrCodeContextCanceled ErrorCode = "CONTEXT_CANCELED"
	// ErrCodeTimeout indicates the operation timed out.
	ErrCodeTimeout ErrorCode = "TIMEOUT"
	// ErrCodeInternal is used for errors without a more specific code.
	ErrCodeInternal ErrorCode = "INTERNAL"
)

// CacheError represents a structured error for knowledge cache operations.
type CacheError struct {
	Code    ErrorCode
	Message string
	Cause   error
	Context map[string]any
}

// Error implements the error interface.
func (e *CacheError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// Unwrap returns the underlying cause.
func (e *CacheError) Unwrap() error {
	return e.Cause
}

// WithContext adds context to the error.
func (e *CacheError) WithContext(key string, value any) *CacheError {
	if e.Context == nil {
		e.Context = make(map[string]any)
	}
	e.Context[key] = value
	return e
}

// HTTPStatus returns the status code the API responds with for e.
func (e *CacheError) HTTPStatus() int {
	return HTTPStatus(e.Code)
}

// Convenience constructors for common error types.

func Unauthorized(msg string) *CacheError {
	return &CacheError{Code: ErrCodeUnauthorized, Message: msg}
}

func RateLimitExceeded(msg string) *CacheError {
	return &CacheError{Code: ErrCodeRateLimitExceeded, Message: msg}
}

func InvalidArgument(msg string) *CacheError {
	return &CacheError{Code: ErrCodeInvalidArgument, Message: msg}
}

func NotFound(msg string) *CacheError {
	return &CacheError{Code: ErrCodeNotFound, Message: msg}
}

func ServiceUnavailable(msg string) *CacheError {
	return &CacheError{Code: ErrCodeServiceUnavailable, Message: msg}
}

func StorageFailed(msg string, cause error) *CacheError {
	return &CacheError{Code: ErrCodeStorageFailed, Message: msg, Cause: cause}
}

func EmbeddingFailed(msg string, cause error) *CacheError {
	return &CacheError{Code: ErrCodeEmbeddingFailed, Message: msg, Cause: cause}
}

// Wrap wraps an existing error with a code and message.
func Wrap(cause error, code ErrorCode, msg string) *CacheError {
	return &CacheError{Code: code, Message: msg, Cause: cause}
}

// IsCode reports whether any CacheError in err's chain has code.
func IsCode(err error, code ErrorCode) bool {
	var cacheErr *CacheError
	return stderrors.As(err, &cacheErr) && cacheErr.Code == code
}

// GetCodeFromError extracts the error code from any error.
// Returns the provided default code if the error is not a CacheError.
func GetCodeFromError(err error, defaultCode ErrorCode) ErrorCode {
	var cacheErr *CacheError
	if stderrors.As(err, &cacheErr) {
		return cacheErr.Code
	}
	return defaultCode
}

// HTTPStatus maps an error code to an HTTP status code.
func HTTPStatus(code ErrorCode) int {
	switch code {
	case ErrCodeInvalidArgument:
		return http.StatusBadRequest
	case ErrCodeUnauthorized:
		return http.StatusUnauthorized
	case ErrCodeNotFound:
		return http.StatusNotFound
	case ErrCodeRateLimitExceeded:
		return http.StatusTooManyRequests
	case ErrCodeServiceUnavailable, ErrCodeEmbeddingFailed:
		return http.StatusServiceUnavailable
	case ErrCodeTimeout:
		return http.StatusGatewayTimeout
	case ErrCodeContextCanceled:
		return 499 // client closed request
	default:
		return http.StatusInternalServerError
	}
}
