package app

import (
	"github.com/go-chi/chi/v5/middleware"

	"github.com/angelofallars/sheetbill/app/route/health"
	"github.com/angelofallars/sheetbill/app/route/invoice"
)

func (a *App) RegisterRoutes() {
	a.router.Use(middleware.RealIP)
	a.router.Use(middleware.Logger)
	a.router.Use(middleware.Recoverer)

	health.NewHandlerGroup(a.svcInvoice, a.version).Mount(a.router)

	invoice.NewHandlerGroup(a.svcInvoice, a.logger).
		WithAPIKey(a.apiKey).
		WithRecorder(a.recorder).
		WithMaxUploadBytes(a.maxUploadBytes).
		WithTimeout(a.timeout).
		Mount(a.router)
}
