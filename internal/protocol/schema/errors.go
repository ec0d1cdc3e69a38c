package schema

import (
	"errors"
	"fmt"
)

const ReasonRequiredFieldMissing = "required field missing"

// ErrRequiredField matches both ValidationError and MissingFieldError with errors.Is.
var ErrRequiredField = errors.New("schema: required field")

// ValidationError reports an in-memory record that is not fit to encode.
type ValidationError struct {
	Struct  string
	Field   string
	FieldID int16
	Reason  string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("schema: %s field=%s(%d): %s", e.Struct, e.Field, e.FieldID, e.Reason)
}

func (e *ValidationError) Is(target error) bool {
	return target == ErrRequiredField && e.Reason == ReasonRequiredFieldMissing
}

// MissingFieldError reports a decoded stream that never carried a required field.
type MissingFieldError struct {
	Struct  string
	Field   string
	FieldID int16
}

func (e *MissingFieldError) Error() string {
	return fmt.Sprintf("schema: %s: required field %s(%d) was not found in serialized data", e.Struct, e.Field, e.FieldID)
}

func (e *MissingFieldError) Is(target error) bool {
	return target == ErrRequiredField
}
