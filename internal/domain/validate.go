package domain

import "fmt"

// ValidationError reports the first constraint a form submission violated.
// The message is user-facing and is surfaced verbatim by the notification
// layer; no network call is made once validation fails.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return e.Message
}

func invalid(field, format string, args ...any) *ValidationError {
	return &ValidationError{Field: field, Message: fmt.Sprintf(format, args...)}
}
