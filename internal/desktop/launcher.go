package desktop

import (
	"context"
	"log"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/coastal-toolkit/tideshell/internal/domain"
	"github.com/coastal-toolkit/tideshell/internal/readiness"
	"github.com/coastal-toolkit/tideshell/internal/repository"
	"github.com/coastal-toolkit/tideshell/internal/supervisor"
	"github.com/coastal-toolkit/tideshell/internal/window"
)

const (
	stderrTailLimit = 4096
	// historyKeep is how many launch records survive pruning
	historyKeep = 200
	// drainSlack is added to the kill grace while waiting for the server to
	// exit during shutdown
	drainSlack = 2 * time.Second
)

// ChildProcess is the server process as seen by the launcher.
type ChildProcess interface {
	Events() <-chan supervisor.Event
	Kill() error
	Pid() int
}

// SpawnFunc starts the server process.
type SpawnFunc func(ctx context.Context, cmd supervisor.Command) (ChildProcess, error)

// SpawnProcess starts cmd with the supervisor.
func SpawnProcess(ctx context.Context, cmd supervisor.Command) (ChildProcess, error) {
	p, err := supervisor.Spawn(ctx, cmd)
	if err != nil {
		return nil, err
	}
	return p, nil
}

// OutputSink receives the server's output chunks.
type OutputSink interface {
	Output(kind supervisor.EventKind, data []byte)
}

// LauncherConfig 启动器依赖
type LauncherConfig struct {
	Command supervisor.Command
	Window  window.Options
	// Spawn defaults to SpawnProcess
	Spawn SpawnFunc
	// Launches is optional
	Launches repository.LaunchRepository
	// Output is optional
	Output OutputSink
}

// LauncherApp ties the window and the server process together. All of its
// state is owned by the goroutine running Run; everything else talks to it
// through Post.
type LauncherApp struct {
	cmd      supervisor.Command
	platform Platform
	windows  *window.Manager
	spawn    SpawnFunc
	launches repository.LaunchRepository
	output   OutputSink

	lifecycle chan LifecycleEvent
	stopped   chan struct{}
	stopOnce  sync.Once

	statusHooks []func(Status)
	status      atomic.Pointer[Status]

	// Owned by the event loop.
	child       ChildProcess
	childEvents <-chan supervisor.Event
	spawned     bool
	detector    readiness.Detector
	launchID    string
	startedAt   time.Time
	state       ServerState
	exitCode    *int
	stderrTail  []byte
	quitting    bool
}

// NewLauncherApp 创建启动器
func NewLauncherApp(platform Platform, cfg LauncherConfig) *LauncherApp {
	spawn := cfg.Spawn
	if spawn == nil {
		spawn = SpawnProcess
	}
	a := &LauncherApp{
		cmd:       cfg.Command,
		platform:  platform,
		windows:   window.NewManager(platform, cfg.Window),
		spawn:     spawn,
		launches:  cfg.Launches,
		output:    cfg.Output,
		lifecycle: make(chan LifecycleEvent, 16),
		stopped:   make(chan struct{}),
		state:     ServerIdle,
	}
	a.publish()
	return a
}

// OnStatusChange registers fn to be called from the event loop after every
// status change. Register before Run.
func (a *LauncherApp) OnStatusChange(fn func(Status)) {
	a.statusHooks = append(a.statusHooks, fn)
}

// Status returns the latest status snapshot. Safe for concurrent use.
func (a *LauncherApp) Status() Status {
	return *a.status.Load()
}

// Post queues a lifecycle event. It never blocks once the loop has stopped.
func (a *LauncherApp) Post(ev LifecycleEvent) {
	select {
	case a.lifecycle <- ev:
	case <-a.stopped:
	}
}

// PostAndWait queues ev and waits until the loop has handled it.
func (a *LauncherApp) PostAndWait(ctx context.Context, ev LifecycleEvent) {
	ev.ack = make(chan struct{})
	select {
	case a.lifecycle <- ev:
	case <-a.stopped:
		return
	case <-ctx.Done():
		return
	}
	select {
	case <-ev.ack:
	case <-a.stopped:
	case <-ctx.Done():
	}
}

// RequestQuit asks the launcher to stop the server and quit.
func (a *LauncherApp) RequestQuit() {
	a.Post(LifecycleEvent{Kind: LifecycleQuitRequested})
}

// Done is closed when Run returns.
func (a *LauncherApp) Done() <-chan struct{} {
	return a.stopped
}

// Run is the event loop. It returns after a Shutdown event or when ctx is
// canceled, in both cases after the server has been stopped.
func (a *LauncherApp) Run(ctx context.Context) error {
	defer a.stopOnce.Do(func() { close(a.stopped) })

	log.Printf("[Launcher] Event loop started")
	for {
		select {
		case <-ctx.Done():
			a.shutdown("context canceled")
			return nil

		case ev := <-a.lifecycle:
			done := a.handleLifecycle(ctx, ev)
			if ev.ack != nil {
				close(ev.ack)
			}
			if done {
				log.Printf("[Launcher] Event loop stopped")
				return nil
			}

		case ev, ok := <-a.childEvents:
			if !ok {
				a.childEvents = nil
				continue
			}
			a.handleChild(ev)
		}
	}
}

// handleLifecycle applies one platform event. It returns true when the loop
// should stop.
func (a *LauncherApp) handleLifecycle(ctx context.Context, ev LifecycleEvent) bool {
	log.Printf("[Launcher] Lifecycle: %s", ev.Kind)

	switch ev.Kind {
	case LifecycleReady:
		if a.quitting {
			// A quit arrived before the platform could act on it.
			log.Printf("[Launcher] Quit already requested, not starting")
			a.platform.Quit()
			return false
		}
		a.openWindow()
		a.startServer(ctx)

	case LifecycleActivate:
		if a.openWindow() {
			if url, ok := a.detector.URL(); ok {
				a.windows.Navigate(url)
			}
		}

	case LifecycleWindowClosed:
		a.windows.Closed(ev.Window)
		a.publish()
		if a.windows.HasWindow() {
			return false
		}
		if a.platform.PersistsInBackground() {
			log.Printf("[Launcher] Last window closed, staying in background")
			return false
		}
		// windows gone → kill server → quit
		a.killChild("all windows closed")
		a.quit("all windows closed")

	case LifecycleQuitRequested:
		a.killChild("quit requested")
		a.quit("quit requested")

	case LifecycleShutdown:
		a.shutdown("application shutdown")
		return true
	}
	return false
}

// handleChild applies one server event.
func (a *LauncherApp) handleChild(ev supervisor.Event) {
	switch ev.Kind {
	case supervisor.DataOut:
		a.forward(ev)
		url, first := a.detector.Observe(ev.Data)
		if !first {
			return
		}
		log.Printf("[Launcher] Server ready at %s", url)
		a.state = ServerReady
		a.record("mark ready", func(r repository.LaunchRepository) error {
			return r.MarkReady(a.launchID, url, time.Now())
		})
		a.windows.Navigate(url)
		a.publish()

	case supervisor.DataErr:
		a.forward(ev)
		log.Printf("[Server] stderr: %s", strings.TrimRight(string(ev.Data), "\r\n"))
		a.appendStderr(ev.Data)

	case supervisor.Exited:
		if ev.Err != nil {
			log.Printf("[Launcher] Server exited with code %d: %v", ev.ExitCode, ev.Err)
		} else {
			log.Printf("[Launcher] Server exited with code %d", ev.ExitCode)
		}
		code := ev.ExitCode
		a.child = nil
		a.exitCode = &code
		a.state = ServerExited
		tail := string(a.stderrTail)
		a.record("mark exited", func(r repository.LaunchRepository) error {
			return r.MarkExited(a.launchID, code, tail, time.Now())
		})
		a.publish()
		// server exited → quit
		a.quit("server exited")
	}
}

// openWindow ensures a window is open and reports whether one was created.
func (a *LauncherApp) openWindow() bool {
	_, created, err := a.windows.Create()
	if err != nil {
		log.Printf("[Launcher] %v", err)
		return false
	}
	if created {
		a.publish()
	}
	return created
}

// startServer spawns the server once per launcher.
func (a *LauncherApp) startServer(ctx context.Context) {
	if a.spawned {
		log.Printf("[Launcher] Server already started")
		return
	}
	a.spawned = true
	a.detector.Reset()

	launch := &domain.Launch{
		ID:        uuid.NewString(),
		Command:   a.cmd.String(),
		StartedAt: time.Now(),
		ExitCode:  -1,
		Status:    domain.LaunchStatusStarting,
	}
	a.launchID = launch.ID
	a.startedAt = launch.StartedAt

	log.Printf("[Launcher] Starting server: %s", a.cmd)
	child, err := a.spawn(ctx, a.cmd)
	if err != nil {
		log.Printf("[Launcher] Failed to start server: %v", err)
		reason := err.Error()
		a.record("record failed launch", func(r repository.LaunchRepository) error {
			if err := r.Create(launch); err != nil {
				return err
			}
			return r.MarkFailed(launch.ID, reason, time.Now())
		})
		a.state = ServerFailed
		a.publish()
		a.quit("server failed to start")
		return
	}

	launch.Pid = child.Pid()
	a.record("create launch", func(r repository.LaunchRepository) error {
		if err := r.Create(launch); err != nil {
			return err
		}
		_, err := r.Prune(historyKeep)
		return err
	})

	a.child = child
	a.childEvents = child.Events()
	a.state = ServerStarting
	a.publish()
}

// killChild sends the termination request. The child stays tracked until its
// Exited event arrives.
func (a *LauncherApp) killChild(reason string) {
	if a.child == nil {
		return
	}
	log.Printf("[Launcher] Stopping server (%s)", reason)
	if err := a.child.Kill(); err != nil {
		log.Printf("[Launcher] Failed to stop server: %v", err)
	}
}

// quit asks the platform to exit, at most once.
func (a *LauncherApp) quit(reason string) {
	if a.quitting {
		return
	}
	a.quitting = true
	log.Printf("[Launcher] Quitting (%s)", reason)
	a.platform.Quit()
}

// shutdown stops the server and waits for it to exit, bounded by the kill
// grace.
func (a *LauncherApp) shutdown(reason string) {
	// The platform is already going away.
	a.quitting = true
	if a.child == nil {
		return
	}
	a.killChild(reason)

	grace := a.cmd.KillGrace
	if grace <= 0 {
		grace = supervisor.DefaultKillGrace
	}
	timer := time.NewTimer(grace + drainSlack)
	defer timer.Stop()

	for a.child != nil && a.childEvents != nil {
		select {
		case ev, ok := <-a.childEvents:
			if !ok {
				a.childEvents = nil
				continue
			}
			a.handleChild(ev)
		case <-timer.C:
			log.Printf("[Launcher] Server did not exit within %s", grace+drainSlack)
			return
		}
	}
}

func (a *LauncherApp) forward(ev supervisor.Event) {
	if a.output != nil {
		a.output.Output(ev.Kind, ev.Data)
	}
}

func (a *LauncherApp) appendStderr(data []byte) {
	a.stderrTail = append(a.stderrTail, data...)
	if over := len(a.stderrTail) - stderrTailLimit; over > 0 {
		a.stderrTail = append(a.stderrTail[:0], a.stderrTail[over:]...)
	}
}

// record runs a history update; failures never affect the launch.
func (a *LauncherApp) record(what string, fn func(repository.LaunchRepository) error) {
	if a.launches == nil || a.launchID == "" {
		return
	}
	if err := fn(a.launches); err != nil {
		log.Printf("[Launcher] Warning: failed to %s in history: %v", what, err)
	}
}

func (a *LauncherApp) publish() {
	s := Status{
		State:      a.state,
		Command:    a.cmd.String(),
		LaunchID:   a.launchID,
		StartedAt:  a.startedAt,
		ExitCode:   a.exitCode,
		WindowOpen: a.windows.HasWindow(),
	}
	if url, ok := a.detector.URL(); ok {
		s.URL = url
	}
	if a.child != nil {
		s.Pid = a.child.Pid()
	}
	a.status.Store(&s)
	for _, fn := range a.statusHooks {
		fn(s)
	}
}
