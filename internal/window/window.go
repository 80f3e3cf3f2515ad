// Package window owns the lifecycle of the primary application window.
package window

import (
	"fmt"
	"log"
)

const (
	DefaultWidth  = 1400
	DefaultHeight = 900
)

// Handle identifies a window opened by a Host.
type Handle int64

// Options 窗口参数
type Options struct {
	Title  string
	Width  int
	Height int
	// Icon is optional image data; hosts that cannot use it ignore it.
	Icon []byte
}

// Host is the platform side of window management.
type Host interface {
	OpenWindow(opts Options) (Handle, error)
	NavigateWindow(h Handle, url string) error
}

// Manager keeps at most one primary window open.
// It is not safe for concurrent use; the launcher drives it from its event loop.
type Manager struct {
	host    Host
	opts    Options
	current Handle
	open    bool
}

// NewManager creates a manager that opens windows with opts.
func NewManager(host Host, opts Options) *Manager {
	if opts.Width <= 0 {
		opts.Width = DefaultWidth
	}
	if opts.Height <= 0 {
		opts.Height = DefaultHeight
	}
	return &Manager{host: host, opts: opts}
}

// Create opens a window unless one is already open. created reports whether
// a new window was opened.
func (m *Manager) Create() (h Handle, created bool, err error) {
	if m.open {
		return m.current, false, nil
	}
	h, err = m.host.OpenWindow(m.opts)
	if err != nil {
		return 0, false, fmt.Errorf("failed to open window: %w", err)
	}
	m.current = h
	m.open = true
	log.Printf("[Window] Opened window %d (%dx%d)", h, m.opts.Width, m.opts.Height)
	return h, true, nil
}

// Navigate loads url into the current window. Without a window the request
// is dropped and Navigate returns false.
func (m *Manager) Navigate(url string) bool {
	if !m.open {
		log.Printf("[Window] No window open, dropping navigation to %s", url)
		return false
	}
	if err := m.host.NavigateWindow(m.current, url); err != nil {
		log.Printf("[Window] Navigation to %s failed: %v", url, err)
		return false
	}
	log.Printf("[Window] Window %d navigated to %s", m.current, url)
	return true
}

// Closed records that the platform closed h. Unknown handles are ignored.
func (m *Manager) Closed(h Handle) {
	if !m.open || h != m.current {
		return
	}
	m.open = false
	m.current = 0
	log.Printf("[Window] Window %d closed", h)
}

// HasWindow reports whether a window is open.
func (m *Manager) HasWindow() bool {
	return m.open
}

// Current returns the open window, if any.
func (m *Manager) Current() (Handle, bool) {
	return m.current, m.open
}

// Options returns the options new windows are opened with.
func (m *Manager) Options() Options {
	return m.opts
}
