// Package health reports whether the server can generate invoices.
package health

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"
)

const Path = "/health"

// Checker reports whether the invoice template can be opened.
type Checker interface {
	TemplateAvailable() bool
}

type Status struct {
	Status            string    `json:"status"`
	Version           string    `json:"version"`
	TemplateAvailable bool      `json:"template_available"`
	Timestamp         time.Time `json:"timestamp"`
	Error             string    `json:"error,omitempty"`
}

// Render satisfies [render.Renderer]
func (s *Status) Render(w http.ResponseWriter, r *http.Request) error {
	if s.TemplateAvailable {
		render.Status(r, http.StatusOK)
	} else {
		render.Status(r, http.StatusServiceUnavailable)
	}
	return nil
}

type HandlerGroup struct {
	checker Checker
	version string
	now     func() time.Time
}

func NewHandlerGroup(checker Checker, version string) *HandlerGroup {
	return &HandlerGroup{checker: checker, version: version, now: time.Now}
}

func (hg *HandlerGroup) Mount(r chi.Router) {
	r.Get(Path, hg.handleHealth)
}

func (hg *HandlerGroup) handleHealth(w http.ResponseWriter, r *http.Request) {
	s := &Status{
		Status:            "healthy",
		Version:           hg.version,
		TemplateAvailable: hg.checker.TemplateAvailable(),
		Timestamp:         hg.now().UTC(),
	}
	if !s.TemplateAvailable {
		s.Status = "unhealthy"
		s.Error = "Invoice template not found"
	}

	_ = render.Render(w, r, s)
}
