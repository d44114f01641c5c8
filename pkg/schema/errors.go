package schema

import "errors"

// Errors for malformed schema definitions and value parsing.
var (
	ErrInvalidType  = errors.New("invalid schema type")
	ErrInvalidStage = errors.New("invalid workflow stage")
)
