package desktop

import (
	"context"
	"time"

	"github.com/coastal-toolkit/tideshell/internal/window"
)

// Platform abstracts the host application: its windows and its lifecycle.
type Platform interface {
	window.Host

	// Run blocks until the application exits, posting lifecycle events to
	// sink. Some platforms must be run on the main goroutine.
	Run(sink LifecycleSink) error

	// Quit asks the application to exit. Run returns afterwards.
	Quit()

	// PersistsInBackground reports whether the application keeps running
	// when its last window closes (macOS convention).
	PersistsInBackground() bool
}

// LifecycleSink receives lifecycle events from a Platform.
type LifecycleSink interface {
	Post(ev LifecycleEvent)
	// PostAndWait returns once the event has been handled or ctx is done.
	PostAndWait(ctx context.Context, ev LifecycleEvent)
	Status() Status
}

// LifecycleKind 生命周期事件类型
type LifecycleKind int

const (
	// LifecycleReady: the platform is up and can open windows.
	LifecycleReady LifecycleKind = iota
	// LifecycleActivate: the user reactivated the app (second launch, tray, dock).
	LifecycleActivate
	// LifecycleWindowClosed: the platform closed Window.
	LifecycleWindowClosed
	// LifecycleQuitRequested: the user asked to quit (tray, signal).
	LifecycleQuitRequested
	// LifecycleShutdown: the platform is exiting.
	LifecycleShutdown
)

func (k LifecycleKind) String() string {
	switch k {
	case LifecycleReady:
		return "ready"
	case LifecycleActivate:
		return "activate"
	case LifecycleWindowClosed:
		return "window-closed"
	case LifecycleQuitRequested:
		return "quit-requested"
	case LifecycleShutdown:
		return "shutdown"
	default:
		return "unknown"
	}
}

// LifecycleEvent is one platform notification.
type LifecycleEvent struct {
	Kind   LifecycleKind
	Window window.Handle

	ack chan struct{}
}

// shutdownTimeout bounds how long a platform waits for the launcher to
// handle Shutdown before it exits anyway.
const shutdownTimeout = 15 * time.Second
