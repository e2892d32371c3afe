package rwviews

import (
	"fmt"
	"net/http"
	"sort"
	"strings"

	"github.com/cockroachdb/errors"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

var (
	// ErrImproperlyConfigured marks a view that cannot resolve a serializer or
	// a store capability it needs.
	ErrImproperlyConfigured = errors.New("improperly configured")
	// ErrNotFound is returned by stores when a lookup matches nothing.
	ErrNotFound = errors.New("not found")
	// ErrInvalidPage is returned by paginators for out of range pages. It
	// wraps ErrNotFound, the reverse does not hold.
	ErrInvalidPage = errors.Wrap(ErrNotFound, "invalid page")
)

// NonFieldErrorsKey collects errors that do not belong to a single field.
const NonFieldErrorsKey = "non_field_errors"

func improperlyConfigured(format string, args ...any) error {
	return errors.Mark(errors.Newf(format, args...), ErrImproperlyConfigured)
}

// ValidationError reports field level problems with a request payload.
type ValidationError struct {
	Fields map[string][]string
}

// NewValidationError returns an empty ValidationError ready for Add.
func NewValidationError() *ValidationError {
	return &ValidationError{Fields: make(map[string][]string)}
}

// Add records msg against field.
func (e *ValidationError) Add(field, msg string) {
	if e.Fields == nil {
		e.Fields = make(map[string][]string)
	}
	e.Fields[field] = append(e.Fields[field], msg)
}

// Err returns nil when nothing was recorded, so callers can return it directly.
func (e *ValidationError) Err() error {
	if e == nil || len(e.Fields) == 0 {
		return nil
	}
	return e
}

func (e *ValidationError) Error() string {
	keys := make([]string, 0, len(e.Fields))
	for k := range e.Fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, fmt.Sprintf("%s: %s", k, strings.Join(e.Fields[k], "; ")))
	}
	return "validation failed: " + strings.Join(parts, ", ")
}

// ExceptionHandler writes the response for errors the mixins do not recover
// themselves.
type ExceptionHandler func(c *gin.Context, err error)

// DefaultExceptionHandler answers with a generic 500 body.
func DefaultExceptionHandler(c *gin.Context, _ error) {
	c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"detail": "A server error occurred."})
}

func (v *GenericView[M]) handleError(c *gin.Context, err error) {
	var verr *ValidationError
	switch {
	case errors.As(err, &verr):
		c.AbortWithStatusJSON(v.validationStatus, verr.Fields)
	case errors.Is(err, ErrInvalidPage):
		c.AbortWithStatusJSON(http.StatusNotFound, gin.H{"detail": "Invalid page."})
	case errors.Is(err, ErrNotFound):
		c.AbortWithStatusJSON(http.StatusNotFound, gin.H{"detail": "Not found."})
	default:
		_ = c.Error(err)
		v.logger.Error("request failed",
			zap.String("view", v.name),
			zap.String("method", c.Request.Method),
			zap.String("path", c.Request.URL.Path),
			zap.Error(err))
		v.exceptionHandler(c, err)
	}
}
