package sla

import (
	"errors"
	"fmt"
)

// ErrUnknownPriority is returned by strict threshold lookups when the
// priority label has no entry in the table.
var ErrUnknownPriority = errors.New("unknown priority")

// ConfigurationError reports an invalid calendar configuration.
type ConfigurationError struct {
	Field  string
	Reason string
}

func (e *ConfigurationError) Error() string {
	return fmt.Sprintf("invalid business calendar %s: %s", e.Field, e.Reason)
}

func configErr(field, format string, args ...any) error {
	return &ConfigurationError{Field: field, Reason: fmt.Sprintf(format, args...)}
}
