// Package topoerr defines the errors that topology assembly can report.
package topoerr

import (
	"errors"
	"fmt"
)

// A ConfigError reports an invalid or internally inconsistent input
// configuration. Assembly always stops at the first ConfigError.
type ConfigError struct {
	// Subject names what is wrong, e.g. a flag, a node, or a bit range.
	Subject string
	Reason  string
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("config error: %s: %s", e.Subject, e.Reason)
}

// NewConfigError creates a ConfigError with a formatted reason.
func NewConfigError(subject, format string, args ...any) *ConfigError {
	return &ConfigError{
		Subject: subject,
		Reason:  fmt.Sprintf(format, args...),
	}
}

// An InvariantViolation reports a defect in the assembler itself rather than
// in its input.
type InvariantViolation struct {
	Invariant string
	Detail    string
}

func (e *InvariantViolation) Error() string {
	return fmt.Sprintf("assembly invariant %q violated: %s",
		e.Invariant, e.Detail)
}

// NewInvariantViolation creates an InvariantViolation with a formatted detail.
func NewInvariantViolation(
	invariant, format string,
	args ...any,
) *InvariantViolation {
	return &InvariantViolation{
		Invariant: invariant,
		Detail:    fmt.Sprintf(format, args...),
	}
}

// IsConfigError tells if err is, or wraps, a ConfigError.
func IsConfigError(err error) bool {
	var ce *ConfigError
	return errors.As(err, &ce)
}

// IsInvariantViolation tells if err is, or wraps, an InvariantViolation.
func IsInvariantViolation(err error) bool {
	var iv *InvariantViolation
	return errors.As(err, &iv)
}
