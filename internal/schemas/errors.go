package schemas

import (
	"errors"
	"net/http"
)

// Domain errors for schema operations.
var (
	ErrNotFound    = errors.New("schema not found")
	ErrDuplicate   = errors.New("schema name and version already exist")
	ErrSchemaInUse = errors.New("schema is referenced by records and cannot be modified")
	ErrInvalidBody = errors.New("invalid schema payload")
)

// MapHTTPStatus maps schema domain errors to appropriate HTTP status codes.
func MapHTTPStatus(err error) int {
	if errors.Is(err, ErrNotFound) {
		return http.StatusNotFound
	}
	if errors.Is(err, ErrDuplicate) || errors.Is(err, ErrSchemaInUse) {
		return http.StatusConflict
	}
	if errors.Is(err, ErrInvalidBody) {
		return http.StatusBadRequest
	}
	return http.StatusInternalServerError
}
