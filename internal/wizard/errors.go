package wizard

import (
	"errors"
	"fmt"
	"strings"
)

var (
	ErrUnknownField       = errors.New("unknown form field")
	ErrAtFirstStep        = errors.New("already at first step")
	ErrAtLastStep         = errors.New("already at last step")
	ErrNotFinalStep       = errors.New("submit is only allowed on the final step")
	ErrSubmissionInFlight = errors.New("submission already in progress")
	ErrAlreadySubmitted   = errors.New("form already submitted")
	ErrInvalidState       = errors.New("invalid form state")
)

const (
	CodeRequired = "required"
	CodeInvalid  = "invalid"
)

// ConsentField is the pseudo field reported when the privacy consent box is unchecked.
const ConsentField = "consent"

type FieldError struct {
	Field string `json:"field"`
	Code  string `json:"code"`
}

// ValidationError is returned when a step or a submission is blocked by missing or malformed input.
// It never involves the network.
type ValidationError struct {
	Fields []FieldError
}

func (e *ValidationError) Error() string {
	if e == nil || len(e.Fields) == 0 {
		return "validation failed"
	}
	parts := make([]string, 0, len(e.Fields))
	for _, field := range e.Fields {
		parts = append(parts, fmt.Sprintf("%s %s", field.Field, field.Code))
	}
	return "validation failed: " + strings.Join(parts, ", ")
}

// Has reports whether the error mentions field.
func (e *ValidationError) Has(field string) bool {
	if e == nil {
		return false
	}
	for _, candidate := range e.Fields {
		if candidate.Field == field {
			return true
		}
	}
	return false
}
