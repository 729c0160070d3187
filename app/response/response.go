// Package response writes API error bodies, as JSON for API clients and as
// HX-Trigger events for the browser upload page.
package response

import (
	"fmt"
	"net/http"

	"github.com/angelofallars/htmx-go"
	"github.com/go-chi/render"

	"github.com/angelofallars/sheetbill/app/event"
)

const (
	CodeInvalidRequest       = "INVALID_REQUEST"
	CodeUnauthorized         = "UNAUTHORIZED"
	CodeNotFound             = "NOT_FOUND"
	CodeFileTooLarge         = "FILE_TOO_LARGE"
	CodeUnsupportedMediaType = "UNSUPPORTED_MEDIA_TYPE"
	CodeValidationError      = "VALIDATION_ERROR"
	CodeNoBillableProjects   = "NO_BILLABLE_PROJECTS"
	CodeServiceUnavailable   = "SERVICE_UNAVAILABLE"
	CodeInternalError        = "INTERNAL_ERROR"
)

// Error is the body of every failed API response.
type Error struct {
	Status  int      `json:"-"`
	Message string   `json:"error"`
	Code    string   `json:"code"`
	Details []string `json:"details"`
}

func (e *Error) Error() string { return fmt.Sprintf("%d %s: %s", e.Status, e.Code, e.Message) }

// Render satisfies [render.Renderer]
func (e *Error) Render(w http.ResponseWriter, r *http.Request) error {
	if e.Details == nil {
		e.Details = []string{}
	}
	render.Status(r, e.Status)
	return nil
}

func New(status int, code, message string, details ...string) *Error {
	return &Error{Status: status, Code: code, Message: message, Details: details}
}

func InvalidRequest(message string, details ...string) *Error {
	return New(http.StatusBadRequest, CodeInvalidRequest, message, details...)
}

func Internal(message string, details ...string) *Error {
	return New(http.StatusInternalServerError, CodeInternalError, message, details...)
}

// WriteError answers htmx requests with a set-err-message trigger and
// everything else with a JSON body.
func WriteError(w http.ResponseWriter, r *http.Request, e *Error) {
	if htmx.IsHTMX(r) {
		message := e.Message
		if len(e.Details) > 0 {
			message += ": " + e.Details[0]
			if len(e.Details) > 1 {
				message += fmt.Sprintf(" (and %d more)", len(e.Details)-1)
			}
		}
		_ = htmx.NewResponse().
			StatusCode(e.Status).
			Reswap(htmx.SwapNone).
			AddTrigger(event.TriggerSetErrMessage(message)).
			Write(w)
		return
	}

	_ = render.Render(w, r, e)
}
