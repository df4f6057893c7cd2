package dispatch

import "strings"

// ValidationError reports a missing field in the write form.
type ValidationError struct {
	Field string
}

func (e *ValidationError) Error() string {
	return e.Field + " is required"
}

// ValidateEntry returns a *ValidationError for the first blank field, in
// form order.
func ValidateEntry(job, level, message string) error {
	switch {
	case strings.TrimSpace(job) == "":
		return &ValidationError{Field: "job"}
	case strings.TrimSpace(level) == "":
		return &ValidationError{Field: "level"}
	case strings.TrimSpace(message) == "":
		return &ValidationError{Field: "message"}
	}
	return nil
}
