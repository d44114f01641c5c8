package records

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/genomecurate/curia/pkg/schema"
)

// Domain errors for evidence record operations.
var (
	ErrNotFound    = errors.New("record not found")
	ErrConflict    = errors.New("conflict: stale lock version")
	ErrDuplicate   = errors.New("record already exists")
	ErrForbidden   = errors.New("record access denied")
	ErrInvalidBody = errors.New("invalid record payload")
)

// ValidationError carries a failed schema validation result so handlers can
// respond with the field-path errors instead of a bare message.
type ValidationError struct {
	Result schema.Result
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("evidence validation failed: %d error(s)", len(e.Result.Errors))
}

// statusCoded is implemented by errors that carry their own HTTP status,
// such as workflow transition errors raised outside this package.
type statusCoded interface {
	error
	HTTPStatus() int
}

// MapHTTPStatus maps record domain errors to appropriate HTTP status codes.
func MapHTTPStatus(err error) int {
	if errors.Is(err, ErrNotFound) {
		return http.StatusNotFound
	}
	if errors.Is(err, ErrConflict) || errors.Is(err, ErrDuplicate) {
		return http.StatusConflict
	}
	if errors.Is(err, ErrForbidden) {
		return http.StatusForbidden
	}
	if errors.Is(err, ErrInvalidBody) {
		return http.StatusBadRequest
	}

	var ve *ValidationError
	if errors.As(err, &ve) {
		return http.StatusUnprocessableEntity
	}

	var sc statusCoded
	if errors.As(err, &sc) {
		return sc.HTTPStatus()
	}

	return http.StatusInternalServerError
}
