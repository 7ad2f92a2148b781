package errors

import (
	"encoding/json"
	stderrors "errors"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
)

// Error represents an application error
type Error struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
	Err     error  `json:"-"`
}

// Error implements the error interface
func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

// Unwrap returns the wrapped error
func (e *Error) Unwrap() error {
	return e.Err
}

// Is matches errors with the same code and message, so wrapped copies of a
// sentinel still satisfy errors.Is.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return e.Code == t.Code && e.Message == t.Message
}

// JSON returns the error as a JSON string
func (e *Error) JSON() string {
	b, _ := json.Marshal(e)
	return string(b)
}

// New creates a new Error
func New(code int, message string, err error) *Error {
	return &Error{
		Code:    code,
		Message: message,
		Err:     err,
	}
}

// Wrap returns a copy of a sentinel carrying cause.
func Wrap(sentinel *Error, cause error) *Error {
	return New(sentinel.Code, sentinel.Message, cause)
}

// WithMessage returns a copy of a sentinel with a more specific message.
func WithMessage(sentinel *Error, message string) *Error {
	return New(sentinel.Code, message, sentinel.Err)
}

// Common error types
var (
	ErrBadRequest         = New(http.StatusBadRequest, "Bad request", nil)
	ErrNotFound           = New(http.StatusNotFound, "Not found", nil)
	ErrConflict           = New(http.StatusConflict, "Conflict", nil)
	ErrInternalServer     = New(http.StatusInternalServerError, "Internal server error", nil)
	ErrServiceUnavailable = New(http.StatusServiceUnavailable, "Service unavailable", nil)
)

// Validation error types
var (
	ErrValidation   = New(http.StatusUnprocessableEntity, "Validation error", nil)
	ErrInvalidInput = New(http.StatusBadRequest, "Invalid input", nil)
)

// Business logic error types
var (
	ErrInsufficientStock = New(http.StatusConflict, "Insufficient stock", nil)
	ErrQueueUnavailable  = New(http.StatusInsufficientStorage, "Offline queue unavailable", nil)
	ErrSyncInProgress    = New(http.StatusConflict, "Sync already in progress", nil)
)

// ErrorMiddleware renders the last error attached with c.Error. Errors that
// are not *Error become 500s without leaking their text.
func ErrorMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		if len(c.Errors) == 0 || c.Writer.Written() {
			return
		}

		err := c.Errors.Last().Err
		var appErr *Error
		if !stderrors.As(err, &appErr) {
			appErr = Wrap(ErrInternalServer, err)
		}

		c.AbortWithStatusJSON(appErr.Code, gin.H{"error": appErr.Message, "code": appErr.Code})
	}
}
