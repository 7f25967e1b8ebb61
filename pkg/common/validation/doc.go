// Package validation provides the shared checks used by fanout constructors
// and the configuration loader.
//
// Every helper returns nil or a *errors.ValidationError, so callers can
// match failures with errors.Is(err, errors.ErrInvalidConfiguration).
package validation
