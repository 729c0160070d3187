package timesheet

import (
	"errors"
	"strings"
)

var (
	ErrSourceNotFound   = errors.New("source not found")
	ErrInputMissing     = errors.New("input file contains no data rows")
	ErrUnreadableInput  = errors.New("input file could not be read")
	ErrInvalidProjectID = errors.New("invalid project id")
	ErrInvalidCode      = errors.New("invalid task or phase code")
	ErrNoBillableData   = errors.New("no billable projects found in input file")
)

// ValidationError carries every violation found in one pass over the input.
type ValidationError struct {
	Kind     error
	messages []string
}

func newValidationError(kind error, messages []string) *ValidationError {
	return &ValidationError{Kind: kind, messages: messages}
}

func (e *ValidationError) Error() string {
	if e == nil {
		return ""
	}
	if len(e.messages) == 0 {
		return e.Kind.Error()
	}
	return strings.Join(e.messages, "\n")
}

func (e *ValidationError) Unwrap() error { return e.Kind }

// Messages returns a copy of the collected violation messages.
func (e *ValidationError) Messages() []string {
	out := make([]string, len(e.messages))
	copy(out, e.messages)
	return out
}

// IsDataError reports whether err was caused by the content of the input
// rather than by configuration or an internal failure.
func IsDataError(err error) bool {
	return errors.Is(err, ErrInputMissing) ||
		errors.Is(err, ErrUnreadableInput) ||
		errors.Is(err, ErrInvalidProjectID) ||
		errors.Is(err, ErrInvalidCode) ||
		errors.Is(err, ErrNoBillableData)
}

// Details flattens err into user-facing lines.
func Details(err error) []string {
	var verr *ValidationError
	if errors.As(err, &verr) && len(verr.messages) > 0 {
		return verr.Messages()
	}
	if err == nil {
		return nil
	}
	return []string{err.Error()}
}
