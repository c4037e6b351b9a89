package types

import "errors"

// Domain errors for data-model validation.
var (
	ErrItemPathEmpty     = errors.New("item path cannot be empty")
	ErrPartialAnnotation = errors.New("description and category must be set together")
	ErrInvalidConfig     = errors.New("invalid collection config")
	ErrConfigNotFound    = errors.New("collection config not found")
)
