// Package httptransport assembles the public HTTP surface from the
// integrity, credentials, and probe handlers.
package httptransport

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"examguard/internal/platform/middleware"
)

// Registrar mounts routes on a router.
type Registrar interface {
	Register(r chi.Router)
}

// Options bounds request handling.
type Options struct {
	Timeout  time.Duration
	MaxBody  int64
	Observer func(http.Handler) http.Handler
	Metrics  http.Handler
}

// NewRouter wires every registrar behind the shared middleware stack.
func NewRouter(logger *slog.Logger, opts Options, registrars ...Registrar) http.Handler {
	if opts.Timeout == 0 {
		opts.Timeout = 30 * time.Second
	}
	if opts.MaxBody == 0 {
		opts.MaxBody = 64 << 10
	}

	r := chi.NewRouter()
	r.Use(middleware.Recovery(logger))
	r.Use(middleware.RequestID)
	r.Use(middleware.UserAgent)
	r.Use(middleware.Logger(logger))
	if opts.Observer != nil {
		r.Use(opts.Observer)
	}
	r.Use(middleware.Timeout(opts.Timeout))
	r.Use(middleware.BodyLimit(opts.MaxBody))
	r.Use(middleware.ContentTypeJSON)

	for _, reg := range registrars {
		reg.Register(r)
	}
	if opts.Metrics != nil {
		r.Handle("/metrics", opts.Metrics)
	}
	return r
}
