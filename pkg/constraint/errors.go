package constraint

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidConfiguration marks every ConfigurationError.
	ErrInvalidConfiguration = errors.New("invalid constraint configuration")

	// ErrNotBuilt is returned when an unbuilt instance is asked to run.
	ErrNotBuilt = errors.New("constraint is not built")
)

// ConfigurationError reports constraint data that cannot be built. The
// instance stays unbuilt and is skipped at evaluation time.
type ConfigurationError struct {
	Constraint string // instance name, filled in by Instance.Bind
	Field      string // offending configuration field, if any
	Reason     string
	Err        error // underlying cause, e.g. chain.ErrInvalidChain
}

func (e *ConfigurationError) Error() string {
	msg := "constraint"
	if e.Constraint != "" {
		msg = fmt.Sprintf("constraint %q", e.Constraint)
	}
	if e.Field != "" {
		msg += ": " + e.Field
	}
	msg += ": " + e.Reason
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

// Unwrap lets errors.Is match both ErrInvalidConfiguration and the cause.
func (e *ConfigurationError) Unwrap() []error {
	if e.Err == nil {
		return []error{ErrInvalidConfiguration}
	}
	return []error{ErrInvalidConfiguration, e.Err}
}

func configErr(field, reason string) *ConfigurationError {
	return &ConfigurationError{Field: field, Reason: reason}
}
