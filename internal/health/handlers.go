package health

import (
	"context"
	"net/http"
	"sync/atomic"
	"time"

	"github.com/noah-isme/pos-pricing/internal/common"
)

// Probe checks a single dependency. A nil Probe marks the dependency as not configured.
type Probe func(ctx context.Context) error

// Handler exposes HTTP handlers for health endpoints.
type Handler struct {
	DB      Probe
	Redis   Probe
	Timeout time.Duration
}

var ready atomic.Bool

func init() { ready.Store(true) }

// SetReady toggles readiness. The server flips it off when draining for shutdown.
func SetReady(v bool) { ready.Store(v) }

// Live reports liveness status.
func (h Handler) Live(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

// Ready reports readiness based on dependency probes. Dependencies that are not
// configured report "disabled" and do not fail the check.
func (h Handler) Ready(w http.ResponseWriter, r *http.Request) {
	if !ready.Load() {
		common.JSON(w, http.StatusServiceUnavailable, map[string]string{"status": "shutting_down"})
		return
	}
	status := map[string]string{
		"db":    h.check(r.Context(), h.DB),
		"redis": h.check(r.Context(), h.Redis),
	}
	code := http.StatusOK
	for _, v := range status {
		if v != "ok" && v != "disabled" {
			code = http.StatusServiceUnavailable
		}
	}
	common.JSON(w, code, status)
}

func (h Handler) check(ctx context.Context, probe Probe) string {
	if probe == nil {
		return "disabled"
	}
	timeout := h.Timeout
	if timeout <= 0 {
		timeout = 500 * time.Millisecond
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	if err := probe(ctx); err != nil {
		return err.Error()
	}
	return "ok"
}
