package handler

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"
)

// WebSocketLogWriter tees the application log to a console, a log file and
// the diagnostics hub.
type WebSocketLogWriter struct {
	hub     *WebSocketHub
	console io.Writer

	mu   sync.Mutex
	file *os.File
}

// NewWebSocketLogWriter opens logPath for appending. An empty logPath skips
// the file. hub may be nil.
func NewWebSocketLogWriter(hub *WebSocketHub, console io.Writer, logPath string) (*WebSocketLogWriter, error) {
	w := &WebSocketLogWriter{hub: hub, console: console}
	if logPath == "" {
		return w, nil
	}
	if err := os.MkdirAll(filepath.Dir(logPath), 0o755); err != nil {
		return nil, fmt.Errorf("create log directory: %w", err)
	}
	f, err := os.OpenFile(logPath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return nil, fmt.Errorf("open log file: %w", err)
	}
	w.file = f
	return w, nil
}

// Write implements io.Writer. Errors from the file are ignored so logging
// never fails because the disk did.
func (w *WebSocketLogWriter) Write(p []byte) (int, error) {
	w.mu.Lock()
	if w.console != nil {
		w.console.Write(p)
	}
	if w.file != nil {
		w.file.Write(p)
	}
	w.mu.Unlock()

	if w.hub != nil {
		w.hub.BroadcastMessage(MessageLog, strings.TrimRight(string(p), "\n"))
	}
	return len(p), nil
}

// Close closes the log file.
func (w *WebSocketLogWriter) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.file == nil {
		return nil
	}
	err := w.file.Close()
	w.file = nil
	return err
}
