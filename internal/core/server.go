package core

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/klauspost/compress/gzhttp"

	"github.com/coastal-toolkit/tideshell/internal/handler"
	"github.com/coastal-toolkit/tideshell/internal/repository"
)

// HTTPShutdownTimeout bounds how long Stop waits for in-flight requests
const HTTPShutdownTimeout = 5 * time.Second

// ServerConfig 诊断服务器配置
type ServerConfig struct {
	Addr     string
	Status   handler.StatusSource
	Launches repository.LaunchRepository
	Hub      *handler.WebSocketHub
	// Auth is optional; nil disables authentication
	Auth *handler.AuthMiddleware
}

// ManagedServer 可管理的诊断服务器（支持启动/停止）
type ManagedServer struct {
	config     *ServerConfig
	mux        *http.ServeMux
	mu         sync.Mutex
	httpServer *http.Server
	listener   net.Listener
	isRunning  bool
}

// NewManagedServer 创建可管理的服务器
func NewManagedServer(config *ServerConfig) (*ManagedServer, error) {
	if config.Addr == "" {
		return nil, errors.New("diagnostics address is empty")
	}
	if config.Status == nil {
		return nil, errors.New("diagnostics server needs a status source")
	}
	if config.Hub == nil {
		config.Hub = handler.NewWebSocketHub(nil)
	}
	if config.Auth == nil {
		config.Auth = handler.NewAuthMiddleware("")
	}

	s := &ManagedServer{config: config}
	s.mux = s.setupRoutes()
	return s, nil
}

// setupRoutes 设置所有路由
func (s *ManagedServer) setupRoutes() *http.ServeMux {
	mux := http.NewServeMux()
	cfg := s.config

	diag := handler.NewDiagHandler(cfg.Status, cfg.Launches, cfg.Hub.OutputBuffer())

	mux.Handle("/api/auth/", handler.NewAuthHandler(cfg.Auth))
	// /api/output negotiates its own compression
	mux.Handle("/api/output", cfg.Auth.Wrap(diag))
	mux.Handle("/api/", cfg.Auth.Wrap(gzhttp.GzipHandler(diag)))
	mux.Handle("/ws", cfg.Auth.Wrap(http.HandlerFunc(cfg.Hub.HandleWebSocket)))

	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{"status":"ok"}`))
	})

	if cfg.Auth.IsEnabled() {
		log.Printf("[Diag] Authentication enabled")
	}
	return mux
}

// Handler returns the route multiplexer.
func (s *ManagedServer) Handler() http.Handler {
	return s.mux
}

// Start binds the address and serves in the background. Bind errors are
// returned; ctx cancellation stops the server.
func (s *ManagedServer) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.isRunning {
		log.Printf("[Diag] Server already running")
		return nil
	}

	ln, err := net.Listen("tcp", s.config.Addr)
	if err != nil {
		return fmt.Errorf("listen on %s: %w", s.config.Addr, err)
	}
	s.listener = ln
	s.httpServer = &http.Server{
		Handler:           s.mux,
		ReadHeaderTimeout: 10 * time.Second,
	}

	srv := s.httpServer
	go func() {
		log.Printf("[Diag] Listening on %s", ln.Addr())
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Printf("[Diag] Server error: %v", err)
		}
	}()
	go func() {
		<-ctx.Done()
		s.Stop(context.Background())
	}()

	s.isRunning = true
	return nil
}

// Stop 停止服务器
func (s *ManagedServer) Stop(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.isRunning {
		return nil
	}

	// Hijacked websocket connections are not closed by Shutdown.
	s.config.Hub.Close()

	shutdownCtx, cancel := context.WithTimeout(ctx, HTTPShutdownTimeout)
	defer cancel()
	if err := s.httpServer.Shutdown(shutdownCtx); err != nil {
		log.Printf("[Diag] Graceful shutdown failed: %v, forcing close", err)
		if closeErr := s.httpServer.Close(); closeErr != nil {
			log.Printf("[Diag] Force close error: %v", closeErr)
		}
	}

	s.isRunning = false
	log.Printf("[Diag] Server stopped")
	return nil
}

// IsRunning 检查服务器是否在运行
func (s *ManagedServer) IsRunning() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.isRunning
}

// Addr returns the bound address, or the configured one before Start.
func (s *ManagedServer) Addr() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.listener != nil {
		return s.listener.Addr().String()
	}
	return s.config.Addr
}
