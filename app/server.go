package app

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/angelofallars/sheetbill/internal/audit"
	"github.com/angelofallars/sheetbill/internal/service"
)

type App struct {
	host string
	port int

	logger *zap.Logger
	router chi.Router
	once   sync.Once

	svcInvoice     service.Invoice
	recorder       audit.Recorder
	apiKey         string
	maxUploadBytes int64
	timeout        time.Duration
	version        string
}

func New(logger *zap.Logger, svcInvoice service.Invoice) *App {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &App{
		host: "localhost",
		port: 3000,

		router: chi.NewRouter(),
		logger: logger,

		svcInvoice:     svcInvoice,
		maxUploadBytes: 50 << 20,
		timeout:        2 * time.Minute,
		version:        "dev",
	}
}

func (a *App) WithHost(host string) *App {
	a.host = host
	return a
}

func (a *App) WithPort(port uint) *App {
	a.port = int(port)
	return a
}

func (a *App) WithAPIKey(key string) *App {
	a.apiKey = key
	return a
}

// WithAudit records every generate request to rec.
func (a *App) WithAudit(rec audit.Recorder) *App {
	a.recorder = rec
	return a
}

func (a *App) WithMaxUploadBytes(n int64) *App {
	a.maxUploadBytes = n
	return a
}

func (a *App) WithTimeout(d time.Duration) *App {
	a.timeout = d
	return a
}

func (a *App) WithVersion(version string) *App {
	a.version = version
	return a
}

// Handler returns the router with every route registered.
func (a *App) Handler() http.Handler {
	a.once.Do(a.RegisterRoutes)
	return a.router
}

// shutdownGrace bounds how long in-flight requests may run once Serve is
// asked to stop.
const shutdownGrace = 30 * time.Second

// Serve listens on the configured address until ctx ends, then stops
// accepting connections and waits for in-flight requests before returning.
func (a *App) Serve(ctx context.Context) error {
	addr := net.JoinHostPort(a.host, strconv.Itoa(a.port))
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("listen on %s: %w", addr, err)
	}
	return a.serveListener(ctx, ln)
}

func (a *App) serveListener(ctx context.Context, ln net.Listener) error {
	server := &http.Server{
		Handler: a.Handler(),

		IdleTimeout:       time.Minute,
		ReadHeaderTimeout: 10 * time.Second,
		// Uploads and generation both take longer than the header read.
		ReadTimeout:  time.Minute,
		WriteTimeout: a.timeout + 30*time.Second,
	}

	a.logger.Info("server started listening", zap.String("addr", ln.Addr().String()))

	errc := make(chan error, 1)
	go func() { errc <- server.Serve(ln) }()

	select {
	case err := <-errc:
		return err
	case <-ctx.Done():
	}

	a.logger.Info("server shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), shutdownGrace)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	if err := <-errc; !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}
