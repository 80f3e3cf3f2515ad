package supervisor

import (
	"context"
	"fmt"
	"os"
	"strings"
	"testing"
	"time"
)

// TestHelperProcess is not a real test. It is re-executed as the child
// process by the tests below.
func TestHelperProcess(t *testing.T) {
	if os.Getenv("GO_WANT_HELPER_PROCESS") != "1" {
		return
	}
	switch os.Getenv("HELPER_MODE") {
	case "serve":
		fmt.Fprint(os.Stdout, "You can now view your app at:\n")
		os.Stdout.Sync()
		time.Sleep(20 * time.Millisecond)
		fmt.Fprint(os.Stdout, "http://localhost:8501\n")
		fmt.Fprint(os.Stderr, "warning: something odd\n")
		os.Exit(0)
	case "fail":
		fmt.Fprint(os.Stderr, "boom\n")
		os.Exit(1)
	case "hang":
		fmt.Fprint(os.Stdout, "http://localhost:8501\n")
		time.Sleep(time.Minute)
		os.Exit(0)
	}
	os.Exit(2)
}

func helperCommand(mode string) Command {
	return Command{
		Name:      os.Args[0],
		Args:      []string{"-test.run=TestHelperProcess"},
		Env:       []string{"GO_WANT_HELPER_PROCESS=1", "HELPER_MODE=" + mode},
		KillGrace: 2 * time.Second,
	}
}

// collect drains the event stream until it closes.
func collect(t *testing.T, p *Process) []Event {
	t.Helper()
	var events []Event
	timeout := time.After(30 * time.Second)
	for {
		select {
		case ev, ok := <-p.Events():
			if !ok {
				return events
			}
			events = append(events, ev)
		case <-timeout:
			t.Fatalf("timed out waiting for process events, got %d", len(events))
		}
	}
}

func joined(events []Event, kind EventKind) string {
	var b strings.Builder
	for _, ev := range events {
		if ev.Kind == kind {
			b.Write(ev.Data)
		}
	}
	return b.String()
}

func TestSpawn_StreamsOutputThenExit(t *testing.T) {
	p, err := Spawn(context.Background(), helperCommand("serve"))
	if err != nil {
		t.Fatalf("Spawn: %v", err)
	}

	events := collect(t, p)
	if len(events) == 0 {
		t.Fatal("no events")
	}

	last := events[len(events)-1]
	if last.Kind != Exited {
		t.Fatalf("last event = %v, want %v", last.Kind, Exited)
	}
	if last.ExitCode != 0 {
		t.Errorf("ExitCode = %d, want 0", last.ExitCode)
	}
	for _, ev := range events[:len(events)-1] {
		if ev.Kind == Exited {
			t.Errorf("Exited delivered before the end of the stream")
		}
	}

	stdout := joined(events, DataOut)
	want := "You can now view your app at:\nhttp://localhost:8501\n"
	if !strings.HasPrefix(stdout, want) {
		t.Errorf("stdout = %q, want prefix %q", stdout, want)
	}
	if got := joined(events, DataErr); !strings.Contains(got, "warning: something odd") {
		t.Errorf("stderr = %q, want warning line", got)
	}

	select {
	case <-p.Done():
	default:
		t.Error("Done not closed after Exited")
	}
}

func TestSpawn_NonZeroExit(t *testing.T) {
	p, err := Spawn(context.Background(), helperCommand("fail"))
	if err != nil {
		t.Fatalf("Spawn: %v", err)
	}

	events := collect(t, p)
	last := events[len(events)-1]
	if last.Kind != Exited || last.ExitCode != 1 {
		t.Errorf("last event = %+v, want Exited with code 1", last)
	}
	if last.Err != nil {
		t.Errorf("Err = %v, want nil for a plain non-zero exit", last.Err)
	}
	if got := joined(events, DataErr); !strings.Contains(got, "boom") {
		t.Errorf("stderr = %q, want %q", got, "boom")
	}
}

func TestProcess_Kill(t *testing.T) {
	p, err := Spawn(context.Background(), helperCommand("hang"))
	if err != nil {
		t.Fatalf("Spawn: %v", err)
	}

	// Wait until the child is demonstrably running.
	select {
	case ev := <-p.Events():
		if ev.Kind != DataOut {
			t.Fatalf("first event = %v, want stdout", ev.Kind)
		}
	case <-time.After(30 * time.Second):
		t.Fatal("timed out waiting for child output")
	}

	if err := p.Kill(); err != nil {
		t.Fatalf("Kill: %v", err)
	}
	if err := p.Kill(); err != nil {
		t.Errorf("second Kill: %v", err)
	}

	events := collect(t, p)
	if len(events) == 0 || events[len(events)-1].Kind != Exited {
		t.Fatalf("events after kill = %+v, want trailing Exited", events)
	}
	if err := p.Kill(); err != nil {
		t.Errorf("Kill after exit: %v", err)
	}
}

func TestSpawn_Errors(t *testing.T) {
	if _, err := Spawn(context.Background(), Command{}); err == nil {
		t.Error("Spawn(empty) succeeded, want error")
	}
	_, err := Spawn(context.Background(), Command{Name: "tideshell-no-such-binary"})
	if err == nil {
		t.Fatal("Spawn(missing binary) succeeded, want error")
	}
	if !strings.Contains(err.Error(), "tideshell-no-such-binary") {
		t.Errorf("error %q does not name the command", err)
	}
}

func TestCommandString(t *testing.T) {
	c := Command{Name: "streamlit", Args: []string{"run", "app/main.py"}}
	if got := c.String(); got != "streamlit run app/main.py" {
		t.Errorf("String() = %q", got)
	}
}
