package handler

import (
	"net/http"
	"strconv"
	"time"

	"github.com/andybalholm/brotli"
	"github.com/bytedance/sonic"
	"github.com/tidwall/sjson"

	"github.com/coastal-toolkit/tideshell/internal/desktop"
	"github.com/coastal-toolkit/tideshell/internal/domain"
	"github.com/coastal-toolkit/tideshell/internal/repository"
	"github.com/coastal-toolkit/tideshell/internal/version"
)

const (
	defaultLaunchLimit = 50
	maxLaunchLimit     = 500
)

// StatusSource provides the launcher status.
type StatusSource interface {
	Status() desktop.Status
}

// DiagHandler serves the read-only diagnostics API under /api.
type DiagHandler struct {
	status   StatusSource
	launches repository.LaunchRepository
	output   *OutputBuffer
	now      func() time.Time
}

// NewDiagHandler creates a diagnostics handler. launches may be nil when
// history is unavailable.
func NewDiagHandler(status StatusSource, launches repository.LaunchRepository, output *OutputBuffer) *DiagHandler {
	return &DiagHandler{
		status:   status,
		launches: launches,
		output:   output,
		now:      time.Now,
	}
}

// ServeHTTP routes /api/status, /api/launches and /api/output
func (h *DiagHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	switch r.URL.Path {
	case "/api/status":
		h.handleStatus(w)
	case "/api/launches":
		h.handleLaunches(w, r)
	case "/api/output":
		h.handleOutput(w, r)
	default:
		writeError(w, http.StatusNotFound, "not found")
	}
}

// handleStatus returns the launcher status stamped with the build version
// GET /api/status
func (h *DiagHandler) handleStatus(w http.ResponseWriter) {
	data, err := sonic.Marshal(h.status.Status())
	if err == nil {
		data, err = sjson.SetBytes(data, "version", version.Info())
	}
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	w.Write(data)
}

// handleLaunches lists recent launches, newest first
// GET /api/launches?limit=N
func (h *DiagHandler) handleLaunches(w http.ResponseWriter, r *http.Request) {
	if h.launches == nil {
		writeError(w, http.StatusServiceUnavailable, "launch history unavailable")
		return
	}

	limit, ok := parseLimit(r, defaultLaunchLimit, maxLaunchLimit)
	if !ok {
		writeError(w, http.StatusBadRequest, "invalid limit")
		return
	}

	launches, err := h.launches.List(limit)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	now := h.now()
	views := make([]launchView, 0, len(launches))
	for _, l := range launches {
		views = append(views, launchView{Launch: l, DurationMs: l.Duration(now).Milliseconds()})
	}
	writeJSON(w, http.StatusOK, views)
}

// launchView is a launch plus how long its server ran, or has run so far.
type launchView struct {
	*domain.Launch
	DurationMs int64 `json:"durationMs"`
}

// handleOutput returns the recent server output, compressed with whatever
// the client accepts (br, gzip or nothing).
// GET /api/output?limit=N
func (h *DiagHandler) handleOutput(w http.ResponseWriter, r *http.Request) {
	limit, ok := parseLimit(r, 0, DefaultOutputLines)
	if !ok {
		writeError(w, http.StatusBadRequest, "invalid limit")
		return
	}

	data, err := sonic.Marshal(h.output.Lines(limit))
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	w.Header().Set("Content-Type", "application/json")
	cw := brotli.HTTPCompressor(w, r)
	defer cw.Close()
	cw.Write(data)
}

// parseLimit reads ?limit=, clamped to max. A missing value yields def.
func parseLimit(r *http.Request, def, max int) (int, bool) {
	raw := r.URL.Query().Get("limit")
	if raw == "" {
		return def, true
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 0 {
		return 0, false
	}
	if n == 0 || n > max {
		n = max
	}
	return n, true
}
