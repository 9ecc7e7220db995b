package errors

import (
	"fmt"
	"strings"
)

// Reason is a machine-checkable explanation for a rejected field
type Reason string

// Validation reasons
const (
	ReasonRequired         Reason = "REQUIRED"
	ReasonUnknownID        Reason = "UNKNOWN_ID"
	ReasonInvalidSelection Reason = "INVALID_SELECTION"
	ReasonTooMany          Reason = "TOO_MANY"
	ReasonOutOfRange       Reason = "OUT_OF_RANGE"
	ReasonDuplicate        Reason = "DUPLICATE"
	ReasonNotProficient    Reason = "NOT_PROFICIENT"
	ReasonWrongLevel       Reason = "WRONG_LEVEL"
	ReasonUnknownField     Reason = "UNKNOWN_FIELD"
	ReasonInvalidValue     Reason = "INVALID_VALUE"
)

// FieldViolation describes one rejected field of a payload
type FieldViolation struct {
	Field   string `json:"field"`
	Reason  Reason `json:"reason"`
	Message string `json:"message"`
}

func (v FieldViolation) String() string {
	return fmt.Sprintf("%s: %s", v.Field, v.Message)
}

// ValidationError collects field violations in the order they were found.
// It converts itself to a standard Error with the InvalidArgument code.
type ValidationError struct {
	Violations []FieldViolation `json:"violations"`
}

// Error implements the error interface
func (v *ValidationError) Error() string {
	if len(v.Violations) == 0 {
		return "validation failed"
	}

	parts := make([]string, len(v.Violations))
	for i, violation := range v.Violations {
		parts[i] = violation.String()
	}
	return fmt.Sprintf("validation failed: %s", strings.Join(parts, "; "))
}

// HasErrors returns true if there are any violations
func (v *ValidationError) HasErrors() bool {
	return len(v.Violations) > 0
}

// ToError converts the validation error to our standard error type
func (v *ValidationError) ToError() *Error {
	if !v.HasErrors() {
		return nil
	}

	return InvalidArgument(v.Error()).WithMeta(MetaViolations, v.Violations)
}

// ValidationBuilder accumulates field violations and returns nil if none
// were recorded, or an InvalidArgument error carrying every violation.
type ValidationBuilder struct {
	err *ValidationError
}

// NewValidationBuilder creates a new validation builder
func NewValidationBuilder() *ValidationBuilder {
	return &ValidationBuilder{
		err: &ValidationError{},
	}
}

// Violation records a rejected field with its reason
func (vb *ValidationBuilder) Violation(field string, reason Reason, message string) *ValidationBuilder {
	vb.err.Violations = append(vb.err.Violations, FieldViolation{
		Field:   field,
		Reason:  reason,
		Message: message,
	})
	return vb
}

// Violationf records a rejected field with a formatted message
func (vb *ValidationBuilder) Violationf(field string, reason Reason, format string, args ...any) *ValidationBuilder {
	return vb.Violation(field, reason, fmt.Sprintf(format, args...))
}

// RequiredField adds a required field error
func (vb *ValidationBuilder) RequiredField(field string) *ValidationBuilder {
	return vb.Violation(field, ReasonRequired, "is required")
}

// UnknownID adds an error for an identifier missing from reference data
func (vb *ValidationBuilder) UnknownID(field, id string) *ValidationBuilder {
	return vb.Violationf(field, ReasonUnknownID, "unknown id %q", id)
}

// HasErrors reports whether any violation has been recorded
func (vb *ValidationBuilder) HasErrors() bool {
	return vb.err.HasErrors()
}

// Build returns the error if there are violations, nil otherwise
func (vb *ValidationBuilder) Build() error {
	if vb.err.HasErrors() {
		return vb.err.ToError()
	}
	return nil
}

// ValidateRequired checks if a string field is present
func ValidateRequired(field, value string, vb *ValidationBuilder) {
	if strings.TrimSpace(value) == "" {
		vb.RequiredField(field)
	}
}

// ValidateMaxLength checks if a string fits within maxValue characters
func ValidateMaxLength(field, value string, maxValue int, vb *ValidationBuilder) {
	if len([]rune(value)) > maxValue {
		vb.Violationf(field, ReasonOutOfRange, "must be no more than %d characters", maxValue)
	}
}

// ValidateRange checks if a value is within an inclusive range
func ValidateRange(field string, value, minValue, maxValue int, vb *ValidationBuilder) {
	if value < minValue || value > maxValue {
		vb.Violationf(field, ReasonOutOfRange, "must be between %d and %d", minValue, maxValue)
	}
}

// ValidateEnum checks if a value is in a list of allowed values
func ValidateEnum(field, value string, allowed []string, vb *ValidationBuilder) {
	for _, a := range allowed {
		if value == a {
			return
		}
	}
	vb.Violationf(field, ReasonInvalidValue, "must be one of: %s", strings.Join(allowed, ", "))
}
