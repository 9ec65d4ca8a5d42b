package constraints

import (
	"errors"
	"fmt"
)

// ErrMalformedConstraints matches any *MalformedConstraintsError via errors.Is.
var ErrMalformedConstraints = errors.New("constraints: malformed payload")

// MalformedConstraintsError is returned by FromJSON when the payload is not a
// JSON object or a required numeric field is missing or not a number.
type MalformedConstraintsError struct {
	Field  string // offending key, empty when the payload itself is bad
	Reason string
	Err    error
}

func (e *MalformedConstraintsError) Error() string {
	msg := "constraints: malformed payload"
	if e.Field != "" {
		msg += fmt.Sprintf(": field %q", e.Field)
	}
	if e.Reason != "" {
		msg += ": " + e.Reason
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *MalformedConstraintsError) Unwrap() error { return e.Err }

// Is lets errors.Is(err, ErrMalformedConstraints) succeed.
func (e *MalformedConstraintsError) Is(target error) bool {
	return target == ErrMalformedConstraints
}

// FieldValidationError describes a single field that failed validation.
// It is carried inside a Result and never returned as a panic or abort.
type FieldValidationError struct {
	Field   string
	Message string
}

func (e *FieldValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}
