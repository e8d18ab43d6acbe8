// Package server exposes the counting HTTP handler. Transport concerns stay
// thin here: the handler increments the request counter, reports success,
// and leaves everything else to the hosting platform.
package server

import (
	"fmt"
	"net/http"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.opentelemetry.io/otel/metric"

	"github.com/nielm/counters-test/logging"
)

// successBody is the fixed response body for counted requests.
const successBody = "ok"

// Handler counts inbound requests. It must only be constructed after
// bootstrap has completed; the platform does not route requests before
// startup finishes.
type Handler struct {
	requests metric.Int64Counter
	logger   logging.Logger
}

// NewHandler creates the request-counting handler.
func NewHandler(requests metric.Int64Counter, logger logging.Logger) *Handler {
	return &Handler{
		requests: requests,
		logger:   logger,
	}
}

// ServeHTTP adds exactly 1 to the request counter and unconditionally
// reports success.
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	h.requests.Add(r.Context(), 1)

	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	fmt.Fprintln(w, successBody)
}

// New assembles the full HTTP handler chain: request counting wrapped in
// otelhttp server instrumentation and request logging.
func New(requests metric.Int64Counter, logger logging.Logger) http.Handler {
	mux := http.NewServeMux()
	mux.Handle("/", otelhttp.NewHandler(NewHandler(requests, logger), "counters"))
	return LoggingMiddleware(logger)(mux)
}
