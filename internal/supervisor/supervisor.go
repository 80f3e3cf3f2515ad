// Package supervisor spawns the local web server and reports its output and
// exit as a stream of typed events.
package supervisor

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"os"
	"os/exec"
	"strings"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"
)

// DefaultKillGrace is how long Kill waits after the termination request
// before forcing the process group down.
const DefaultKillGrace = 5 * time.Second

const readBufferSize = 32 * 1024

// EventKind 子进程事件类型
type EventKind int

const (
	// DataOut carries one chunk read from the child's stdout.
	DataOut EventKind = iota
	// DataErr carries one chunk read from the child's stderr.
	DataErr
	// Exited is the last event of a process.
	Exited
)

func (k EventKind) String() string {
	switch k {
	case DataOut:
		return "stdout"
	case DataErr:
		return "stderr"
	case Exited:
		return "exited"
	default:
		return fmt.Sprintf("EventKind(%d)", int(k))
	}
}

// Event is one notification from a supervised process.
type Event struct {
	Kind EventKind
	// Data is set for DataOut and DataErr. Chunk boundaries are whatever the
	// child's writes and the pipe produced.
	Data []byte
	// ExitCode is set for Exited; -1 when the process was killed by a signal
	// or could not be waited on.
	ExitCode int
	// Err is set for Exited when waiting failed for a reason other than a
	// non-zero exit status.
	Err error
}

// Command describes the child to start. Empty Dir and Env inherit from the
// current process.
type Command struct {
	Name      string
	Args      []string
	Dir       string
	Env       []string
	KillGrace time.Duration
}

// String renders the command line for logs.
func (c Command) String() string {
	return strings.TrimSpace(c.Name + " " + strings.Join(c.Args, " "))
}

// Process is a running child.
type Process struct {
	cmd       *exec.Cmd
	events    chan Event
	done      chan struct{}
	ctx       context.Context
	killGrace time.Duration
	killOnce  sync.Once
}

// Spawn starts the command and begins streaming its output. Canceling ctx
// does not kill the child; it only stops delivery of further events, so
// callers that abandon a process should Kill it first.
func Spawn(ctx context.Context, c Command) (*Process, error) {
	if c.Name == "" {
		return nil, errors.New("supervisor: empty command")
	}

	cmd := exec.Command(c.Name, c.Args...)
	if c.Dir != "" {
		cmd.Dir = c.Dir
	}
	if len(c.Env) > 0 {
		cmd.Env = append(cmd.Environ(), c.Env...)
	}
	setProcessGroup(cmd)

	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return nil, fmt.Errorf("failed to create stdout pipe: %w", err)
	}
	stderr, err := cmd.StderrPipe()
	if err != nil {
		return nil, fmt.Errorf("failed to create stderr pipe: %w", err)
	}

	if err := cmd.Start(); err != nil {
		return nil, fmt.Errorf("failed to start %q: %w", c.Name, err)
	}

	grace := c.KillGrace
	if grace <= 0 {
		grace = DefaultKillGrace
	}

	p := &Process{
		cmd:       cmd,
		events:    make(chan Event, 64),
		done:      make(chan struct{}),
		ctx:       ctx,
		killGrace: grace,
	}

	log.Printf("[Supervisor] Started %s (pid %d)", c, cmd.Process.Pid)
	go p.run(stdout, stderr)
	return p, nil
}

// Events returns the event stream. It is closed after Exited.
func (p *Process) Events() <-chan Event {
	return p.events
}

// Done is closed once the process has been waited on.
func (p *Process) Done() <-chan struct{} {
	return p.done
}

// Pid returns the operating system process id.
func (p *Process) Pid() int {
	return p.cmd.Process.Pid
}

// Kill asks the process group to terminate and forces it down if it is still
// running after the grace period. Safe to call more than once and after exit.
func (p *Process) Kill() error {
	select {
	case <-p.done:
		return nil
	default:
	}

	var err error
	p.killOnce.Do(func() {
		log.Printf("[Supervisor] Terminating pid %d", p.Pid())
		err = terminate(p.cmd)
		go func() {
			select {
			case <-p.done:
			case <-time.After(p.killGrace):
				log.Printf("[Supervisor] pid %d still running after %s, forcing", p.Pid(), p.killGrace)
				forceKill(p.cmd)
			}
		}()
	})
	return err
}

func (p *Process) run(stdout, stderr io.Reader) {
	defer close(p.events)

	var g errgroup.Group
	g.Go(func() error { return p.pump(stdout, DataOut) })
	g.Go(func() error { return p.pump(stderr, DataErr) })
	if err := g.Wait(); err != nil {
		log.Printf("[Supervisor] Output read error: %v", err)
	}

	// Wait must follow the last pipe read.
	err := p.cmd.Wait()
	close(p.done)

	ev := Event{Kind: Exited, ExitCode: -1}
	var exitErr *exec.ExitError
	switch {
	case err == nil:
		ev.ExitCode = 0
	case errors.As(err, &exitErr):
		ev.ExitCode = exitErr.ExitCode()
	default:
		ev.Err = err
	}
	p.send(ev)
}

func (p *Process) pump(r io.Reader, kind EventKind) error {
	buf := make([]byte, readBufferSize)
	for {
		n, err := r.Read(buf)
		if n > 0 {
			chunk := make([]byte, n)
			copy(chunk, buf[:n])
			p.send(Event{Kind: kind, Data: chunk})
		}
		if err != nil {
			if errors.Is(err, io.EOF) || errors.Is(err, os.ErrClosed) {
				return nil
			}
			return fmt.Errorf("%s: %w", kind, err)
		}
	}
}

func (p *Process) send(ev Event) {
	select {
	case p.events <- ev:
	case <-p.ctx.Done():
	}
}
