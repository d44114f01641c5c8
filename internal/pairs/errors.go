package pairs

import (
	"errors"
	"net/http"
)

// Domain errors for workflow pair operations.
var (
	ErrNotFound    = errors.New("workflow pair not found")
	ErrDuplicate   = errors.New("workflow pair already exists for this schema and scope")
	ErrInvalidBody = errors.New("invalid workflow pair payload")
)

// MapHTTPStatus maps pair domain errors to appropriate HTTP status codes.
func MapHTTPStatus(err error) int {
	if errors.Is(err, ErrNotFound) {
		return http.StatusNotFound
	}
	if errors.Is(err, ErrDuplicate) {
		return http.StatusConflict
	}
	if errors.Is(err, ErrInvalidBody) {
		return http.StatusBadRequest
	}
	return http.StatusInternalServerError
}
