// Package health serves the optional ops endpoint of a cleaning run.
//
// The endpoint exposes:
//
//   - /healthz: liveness plus run progress (events done, failed, total).
//   - /readyz: returns 200 only when all registered [Checker] functions
//     pass, e.g. the learned cache backend is reachable.
//   - /metrics: the Prometheus handler passed to [Handler.Register].
//
// Responses are JSON objects with a top-level "status" field ("ok" or "fail").
package health

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net"
	"net/http"
	"sync/atomic"
	"time"
)

// checkTimeout is the maximum time a single readiness check may take before
// the context is cancelled.
const checkTimeout = 5 * time.Second

// shutdownTimeout bounds graceful shutdown of the ops server.
const shutdownTimeout = 5 * time.Second

// Checker is a named readiness check. Check returns nil when the dependency
// is usable.
type Checker struct {
	// Name appears as a key in the /readyz response (e.g. "learned").
	Name string

	// Check probes the dependency. It must respect context cancellation.
	Check func(ctx context.Context) error
}

// Progress counts processed events. It is safe for concurrent use.
type Progress struct {
	total  atomic.Int64
	done   atomic.Int64
	failed atomic.Int64
}

// SetTotal records how many events the run will process.
func (p *Progress) SetTotal(n int) { p.total.Store(int64(n)) }

// Finish records one processed event.
func (p *Progress) Finish(err error) {
	p.done.Add(1)
	if err != nil {
		p.failed.Add(1)
	}
}

// ProgressSnapshot is the JSON view of [Progress].
type ProgressSnapshot struct {
	Total  int64 `json:"events_total"`
	Done   int64 `json:"events_done"`
	Failed int64 `json:"events_failed"`
}

// Snapshot returns the current counts.
func (p *Progress) Snapshot() ProgressSnapshot {
	return ProgressSnapshot{Total: p.total.Load(), Done: p.done.Load(), Failed: p.failed.Load()}
}

// result is the JSON response body for health endpoints.
type result struct {
	Status   string            `json:"status"`
	Checks   map[string]string `json:"checks,omitempty"`
	Progress *ProgressSnapshot `json:"progress,omitempty"`
}

// Handler serves the ops routes. The checker list is fixed at construction
// time.
type Handler struct {
	checkers []Checker
	progress *Progress
}

// New creates a [Handler]. progress may be nil.
func New(progress *Progress, checkers ...Checker) *Handler {
	c := make([]Checker, len(checkers))
	copy(c, checkers)
	return &Handler{checkers: c, progress: progress}
}

// Healthz always returns 200 OK with the current run progress.
func (h *Handler) Healthz(w http.ResponseWriter, _ *http.Request) {
	res := result{Status: "ok"}
	if h.progress != nil {
		snap := h.progress.Snapshot()
		res.Progress = &snap
	}
	writeJSON(w, http.StatusOK, res)
}

// Readyz returns 200 only when every registered [Checker] passes. Each
// checker gets a [checkTimeout] deadline derived from the request context.
func (h *Handler) Readyz(w http.ResponseWriter, r *http.Request) {
	checks := make(map[string]string, len(h.checkers))
	allOK := true

	for _, c := range h.checkers {
		ctx, cancel := context.WithTimeout(r.Context(), checkTimeout)
		err := c.Check(ctx)
		cancel()

		if err != nil {
			checks[c.Name] = "fail: " + err.Error()
			allOK = false
		} else {
			checks[c.Name] = "ok"
		}
	}

	res := result{Status: "ok", Checks: checks}
	status := http.StatusOK
	if !allOK {
		res.Status = "fail"
		status = http.StatusServiceUnavailable
	}
	writeJSON(w, status, res)
}

// Register adds the ops routes to mux. metrics may be nil.
func (h *Handler) Register(mux *http.ServeMux, metrics http.Handler) {
	mux.HandleFunc("GET /healthz", h.Healthz)
	mux.HandleFunc("GET /readyz", h.Readyz)
	if metrics != nil {
		mux.Handle("GET /metrics", metrics)
	}
}

// Serve listens on addr and serves handler until ctx is cancelled, then
// shuts the server down gracefully. An address that cannot be bound is
// reported immediately.
func Serve(ctx context.Context, addr string, handler http.Handler) error {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return err
	}
	srv := &http.Server{
		Handler:           handler,
		ReadHeaderTimeout: 5 * time.Second,
		BaseContext:       func(net.Listener) context.Context { return ctx },
	}

	errCh := make(chan error, 1)
	go func() {
		slog.Info("ops endpoint listening", "addr", ln.Addr().String())
		errCh <- srv.Serve(ln)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	if err := <-errCh; err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// writeJSON encodes v as JSON and writes it with the given status code. On
// encoding failure it falls back to a plain-text 500 response.
func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		http.Error(w, `{"status":"error"}`, http.StatusInternalServerError)
	}
}
