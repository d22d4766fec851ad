package pricing

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrArithmetic is returned when a calculation fails its internal consistency checks.
	ErrArithmetic = errors.New("pricing: inconsistent calculation")
	// ErrInvalidContext indicates Calculate was invoked with a context that should have been rejected upstream.
	ErrInvalidContext = errors.New("pricing: invalid pricing context")
	// ErrUnknownTier is returned when a tier name is not part of the configured table.
	ErrUnknownTier = errors.New("pricing: unknown tier")
	// ErrProfileUnavailable is returned when broker profiles cannot be resolved right now.
	ErrProfileUnavailable = errors.New("pricing: broker profiles unavailable")
)

// ValidationError describes a single rejected input field.
type ValidationError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

func (e *ValidationError) Error() string {
	if e == nil {
		return ""
	}
	return e.Field + ": " + e.Message
}

// ValidationErrors aggregates field level failures for a single request.
type ValidationErrors []*ValidationError

func (v ValidationErrors) Error() string {
	parts := make([]string, 0, len(v))
	for _, e := range v {
		parts = append(parts, e.Error())
	}
	return "pricing: validation failed: " + strings.Join(parts, "; ")
}

func (v ValidationErrors) orNil() error {
	if len(v) == 0 {
		return nil
	}
	return v
}

// ConfigurationError marks invalid tier tables, breakpoints or broker data.
// It is raised while loading data, never while calculating.
type ConfigurationError struct {
	Source  string
	Message string
	Err     error
}

func (e *ConfigurationError) Error() string {
	if e == nil {
		return ""
	}
	msg := fmt.Sprintf("pricing configuration: %s: %s", e.Source, e.Message)
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *ConfigurationError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

func configErrorf(source, format string, args ...any) *ConfigurationError {
	return &ConfigurationError{Source: source, Message: fmt.Sprintf(format, args...)}
}

// IsConfigurationError reports whether err carries a ConfigurationError.
func IsConfigurationError(err error) bool {
	var target *ConfigurationError
	return errors.As(err, &target)
}
