package handler

import (
	"bytes"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/andybalholm/brotli"
	"github.com/bytedance/sonic"
	"github.com/tidwall/gjson"

	"github.com/coastal-toolkit/tideshell/internal/desktop"
	"github.com/coastal-toolkit/tideshell/internal/domain"
	"github.com/coastal-toolkit/tideshell/internal/version"
)

type staticStatus desktop.Status

func (s staticStatus) Status() desktop.Status { return desktop.Status(s) }

type fakeLaunches struct {
	launches  []*domain.Launch
	err       error
	lastLimit int
}

func (f *fakeLaunches) Create(*domain.Launch) error                        { return nil }
func (f *fakeLaunches) MarkReady(string, string, time.Time) error          { return nil }
func (f *fakeLaunches) MarkExited(string, int, string, time.Time) error    { return nil }
func (f *fakeLaunches) MarkFailed(string, string, time.Time) error         { return nil }
func (f *fakeLaunches) GetByID(string) (*domain.Launch, error)             { return nil, nil }
func (f *fakeLaunches) Prune(int) (int64, error)                           { return 0, nil }
func (f *fakeLaunches) MarkStaleAsFailed(string, time.Time) (int64, error) { return 0, nil }
func (f *fakeLaunches) List(limit int) ([]*domain.Launch, error) {
	f.lastLimit = limit
	return f.launches, f.err
}

func TestDiagHandler_Status(t *testing.T) {
	h := NewDiagHandler(staticStatus{State: desktop.ServerReady, URL: "http://localhost:8501", Pid: 42}, nil, NewOutputBuffer(10))

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/status", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	var got desktop.Status
	if err := sonic.Unmarshal(rec.Body.Bytes(), &got); err != nil {
		t.Fatal(err)
	}
	if got.State != desktop.ServerReady || got.URL != "http://localhost:8501" || got.Pid != 42 {
		t.Errorf("got %+v", got)
	}
	if v := gjson.GetBytes(rec.Body.Bytes(), "version").String(); v != version.Info() {
		t.Errorf("version = %q, want %q", v, version.Info())
	}
}

func TestDiagHandler_Launches(t *testing.T) {
	repo := &fakeLaunches{launches: []*domain.Launch{{ID: "a", Status: domain.LaunchStatusReady}}}
	h := NewDiagHandler(staticStatus{}, repo, NewOutputBuffer(10))

	tests := []struct {
		query     string
		wantCode  int
		wantLimit int
	}{
		{"", http.StatusOK, defaultLaunchLimit},
		{"?limit=5", http.StatusOK, 5},
		{"?limit=0", http.StatusOK, maxLaunchLimit},
		{"?limit=100000", http.StatusOK, maxLaunchLimit},
		{"?limit=-1", http.StatusBadRequest, 0},
		{"?limit=abc", http.StatusBadRequest, 0},
	}
	for _, tt := range tests {
		repo.lastLimit = 0
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/launches"+tt.query, nil))
		if rec.Code != tt.wantCode {
			t.Errorf("GET %q: status = %d, want %d", tt.query, rec.Code, tt.wantCode)
		}
		if repo.lastLimit != tt.wantLimit {
			t.Errorf("GET %q: limit = %d, want %d", tt.query, repo.lastLimit, tt.wantLimit)
		}
	}

	repo.err = errors.New("db gone")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/launches", nil))
	if rec.Code != http.StatusInternalServerError {
		t.Errorf("repo error: status = %d, want 500", rec.Code)
	}
}

func TestDiagHandler_LaunchDuration(t *testing.T) {
	start := time.UnixMilli(1_700_000_000_000)
	exited := start.Add(90 * time.Second)
	repo := &fakeLaunches{launches: []*domain.Launch{
		{ID: "running", StartedAt: start, Status: domain.LaunchStatusReady},
		{ID: "done", StartedAt: start, ExitedAt: &exited, Status: domain.LaunchStatusExited},
	}}
	h := NewDiagHandler(staticStatus{}, repo, NewOutputBuffer(10))
	h.now = func() time.Time { return start.Add(10 * time.Minute) }

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/launches", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}

	body := rec.Body.Bytes()
	tests := []struct {
		path string
		want int64
	}{
		{"0.durationMs", (10 * time.Minute).Milliseconds()},
		{"1.durationMs", (90 * time.Second).Milliseconds()},
	}
	for _, tt := range tests {
		if got := gjson.GetBytes(body, tt.path).Int(); got != tt.want {
			t.Errorf("%s = %d, want %d", tt.path, got, tt.want)
		}
	}
	if id := gjson.GetBytes(body, "1.id").String(); id != "done" {
		t.Errorf("1.id = %q, want done", id)
	}
}

func TestDiagHandler_LaunchesWithoutHistory(t *testing.T) {
	h := NewDiagHandler(staticStatus{}, nil, NewOutputBuffer(10))
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/launches", nil))
	if rec.Code != http.StatusServiceUnavailable {
		t.Errorf("status = %d, want 503", rec.Code)
	}
}

func TestDiagHandler_OutputBrotli(t *testing.T) {
	out := NewOutputBuffer(10)
	out.Write(MessageStdout, []byte("Local URL: http://localhost:8501\n"))
	h := NewDiagHandler(staticStatus{}, nil, out)

	req := httptest.NewRequest(http.MethodGet, "/api/output", nil)
	req.Header.Set("Accept-Encoding", "br")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	if enc := rec.Header().Get("Content-Encoding"); enc != "br" {
		t.Fatalf("Content-Encoding = %q, want br", enc)
	}
	data, err := io.ReadAll(brotli.NewReader(bytes.NewReader(rec.Body.Bytes())))
	if err != nil {
		t.Fatal(err)
	}
	var lines []OutputLine
	if err := sonic.Unmarshal(data, &lines); err != nil {
		t.Fatal(err)
	}
	if len(lines) != 1 || lines[0].Text != "Local URL: http://localhost:8501" {
		t.Errorf("lines = %+v", lines)
	}
}

func TestDiagHandler_Routing(t *testing.T) {
	h := NewDiagHandler(staticStatus{}, nil, NewOutputBuffer(10))

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/status", nil))
	if rec.Code != http.StatusMethodNotAllowed {
		t.Errorf("POST: status = %d, want 405", rec.Code)
	}

	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/nope", nil))
	if rec.Code != http.StatusNotFound {
		t.Errorf("unknown: status = %d, want 404", rec.Code)
	}
}
