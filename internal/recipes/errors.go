package recipes

import (
	"errors"
	"fmt"
)

var (
	// ErrNotFound means no recipe exists under the requested id.
	ErrNotFound = errors.New("recipe not found")
	// ErrForbidden means the recipe exists but the requester lacks the
	// ownership or visibility right for the operation.
	ErrForbidden = errors.New("forbidden")
)

type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// ValidationError is returned before any store access when the payload is
// malformed. Fields carries one message per offending field.
type ValidationError struct {
	Fields []FieldError
}

func (e *ValidationError) Error() string {
	if len(e.Fields) == 0 {
		return "validation failed"
	}
	return fmt.Sprintf("validation failed: %s: %s", e.Fields[0].Field, e.Fields[0].Message)
}

func (e *ValidationError) add(field, message string) {
	e.Fields = append(e.Fields, FieldError{Field: field, Message: message})
}
