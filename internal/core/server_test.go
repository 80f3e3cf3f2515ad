package core

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/coastal-toolkit/tideshell/internal/desktop"
	"github.com/coastal-toolkit/tideshell/internal/handler"
)

type fixedStatus struct{}

func (fixedStatus) Status() desktop.Status {
	return desktop.Status{State: desktop.ServerReady, URL: "http://localhost:8501"}
}

func TestNewManagedServer_Validation(t *testing.T) {
	if _, err := NewManagedServer(&ServerConfig{Status: fixedStatus{}}); err == nil {
		t.Error("expected error for empty address")
	}
	if _, err := NewManagedServer(&ServerConfig{Addr: "127.0.0.1:0"}); err == nil {
		t.Error("expected error for missing status source")
	}
}

func TestManagedServer_Routes(t *testing.T) {
	s, err := NewManagedServer(&ServerConfig{
		Addr:   "127.0.0.1:0",
		Status: fixedStatus{},
		Auth:   handler.NewAuthMiddleware("s3cret"),
	})
	if err != nil {
		t.Fatal(err)
	}
	token, err := s.config.Auth.GenerateToken()
	if err != nil {
		t.Fatal(err)
	}

	tests := []struct {
		name     string
		path     string
		token    string
		wantCode int
		wantBody string
	}{
		{"health is open", "/health", "", http.StatusOK, `"ok"`},
		{"auth status is open", "/api/auth/status", "", http.StatusOK, `"authEnabled":true`},
		{"status needs token", "/api/status", "", http.StatusUnauthorized, "unauthorized"},
		{"status with token", "/api/status", token, http.StatusOK, `"state":"ready"`},
		{"output with token", "/api/output", token, http.StatusOK, "[]"},
		{"launches without history", "/api/launches", token, http.StatusServiceUnavailable, "unavailable"},
		{"ws needs token", "/ws", "", http.StatusUnauthorized, "unauthorized"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, tt.path, nil)
			if tt.token != "" {
				req.Header.Set(handler.AuthHeader, "Bearer "+tt.token)
			}
			rec := httptest.NewRecorder()
			s.Handler().ServeHTTP(rec, req)
			if rec.Code != tt.wantCode {
				t.Errorf("GET %s = %d, want %d", tt.path, rec.Code, tt.wantCode)
			}
			if !strings.Contains(rec.Body.String(), tt.wantBody) {
				t.Errorf("GET %s body = %s, want %q", tt.path, rec.Body.String(), tt.wantBody)
			}
		})
	}
}

func TestManagedServer_StartStop(t *testing.T) {
	s, err := NewManagedServer(&ServerConfig{Addr: "127.0.0.1:0", Status: fixedStatus{}})
	if err != nil {
		t.Fatal(err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	if err := s.Start(ctx); err != nil {
		t.Fatalf("Start error: %v", err)
	}
	if !s.IsRunning() {
		t.Fatal("IsRunning() = false after Start")
	}

	resp, err := http.Get("http://" + s.Addr() + "/health")
	if err != nil {
		t.Fatalf("GET /health: %v", err)
	}
	body, _ := io.ReadAll(resp.Body)
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK || string(body) != `{"status":"ok"}` {
		t.Errorf("GET /health = %d %s", resp.StatusCode, body)
	}

	if err := s.Stop(context.Background()); err != nil {
		t.Fatalf("Stop error: %v", err)
	}
	if s.IsRunning() {
		t.Error("IsRunning() = true after Stop")
	}
	if err := s.Stop(context.Background()); err != nil {
		t.Errorf("second Stop error: %v", err)
	}
}

func TestManagedServer_StartBindError(t *testing.T) {
	first, _ := NewManagedServer(&ServerConfig{Addr: "127.0.0.1:0", Status: fixedStatus{}})
	if err := first.Start(context.Background()); err != nil {
		t.Fatal(err)
	}
	defer first.Stop(context.Background())

	second, _ := NewManagedServer(&ServerConfig{Addr: first.Addr(), Status: fixedStatus{}})
	if err := second.Start(context.Background()); err == nil {
		second.Stop(context.Background())
		t.Error("expected bind error on an address in use")
	}
}
