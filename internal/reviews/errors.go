package reviews

import (
	"errors"
	"net/http"
)

// Domain errors for review operations.
var (
	ErrNotFound       = errors.New("review not found")
	ErrRecordNotFound = errors.New("record not found")
	ErrDuplicate      = errors.New("reviewer already assigned to this record")
	ErrSelfReview     = errors.New("a record's creator cannot be assigned as its reviewer")
	ErrForbidden      = errors.New("only the assigned reviewer may record a verdict")
	ErrInvalidVerdict = errors.New("verdict must be approved or rejected")
	ErrInvalidBody    = errors.New("invalid review payload")
)

// MapHTTPStatus maps review domain errors to appropriate HTTP status codes.
func MapHTTPStatus(err error) int {
	if errors.Is(err, ErrNotFound) || errors.Is(err, ErrRecordNotFound) {
		return http.StatusNotFound
	}
	if errors.Is(err, ErrDuplicate) || errors.Is(err, ErrSelfReview) {
		return http.StatusConflict
	}
	if errors.Is(err, ErrForbidden) {
		return http.StatusForbidden
	}
	if errors.Is(err, ErrInvalidVerdict) || errors.Is(err, ErrInvalidBody) {
		return http.StatusBadRequest
	}
	return http.StatusInternalServerError
}
