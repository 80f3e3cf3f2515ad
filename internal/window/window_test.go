package window

import (
	"errors"
	"testing"
)

type fakeHost struct {
	next      Handle
	opened    []Options
	navigated []string
	openErr   error
	navErr    error
}

func (h *fakeHost) OpenWindow(opts Options) (Handle, error) {
	if h.openErr != nil {
		return 0, h.openErr
	}
	h.next++
	h.opened = append(h.opened, opts)
	return h.next, nil
}

func (h *fakeHost) NavigateWindow(_ Handle, url string) error {
	if h.navErr != nil {
		return h.navErr
	}
	h.navigated = append(h.navigated, url)
	return nil
}

func TestNewManager_Defaults(t *testing.T) {
	m := NewManager(&fakeHost{}, Options{Title: "Toolkit"})
	opts := m.Options()
	if opts.Width != DefaultWidth || opts.Height != DefaultHeight {
		t.Errorf("size = %dx%d, want %dx%d", opts.Width, opts.Height, DefaultWidth, DefaultHeight)
	}
	if opts.Title != "Toolkit" {
		t.Errorf("Title = %q", opts.Title)
	}
}

func TestManager_CreateIsIdempotent(t *testing.T) {
	host := &fakeHost{}
	m := NewManager(host, Options{})

	h, created, err := m.Create()
	if err != nil || !created {
		t.Fatalf("Create() = (%d, %v, %v), want new window", h, created, err)
	}

	for i := 0; i < 3; i++ {
		again, created, err := m.Create()
		if err != nil {
			t.Fatalf("Create: %v", err)
		}
		if created || again != h {
			t.Errorf("Create() = (%d, %v), want existing window %d", again, created, h)
		}
	}

	if len(host.opened) != 1 {
		t.Errorf("host opened %d windows, want 1", len(host.opened))
	}
}

func TestManager_CreateAfterClose(t *testing.T) {
	host := &fakeHost{}
	m := NewManager(host, Options{})

	first, _, _ := m.Create()
	m.Closed(first)
	if m.HasWindow() {
		t.Fatal("HasWindow() = true after Closed")
	}

	second, created, err := m.Create()
	if err != nil || !created {
		t.Fatalf("Create() after close = (%d, %v, %v)", second, created, err)
	}
	if second == first {
		t.Errorf("reused handle %d", first)
	}
}

func TestManager_ClosedIgnoresUnknownHandle(t *testing.T) {
	m := NewManager(&fakeHost{}, Options{})
	h, _, _ := m.Create()
	m.Closed(h + 100)
	if got, ok := m.Current(); !ok || got != h {
		t.Errorf("Current() = (%d, %v), want (%d, true)", got, ok, h)
	}
}

func TestManager_NavigateWithoutWindowIsDropped(t *testing.T) {
	host := &fakeHost{}
	m := NewManager(host, Options{})

	if m.Navigate("http://localhost:8501") {
		t.Error("Navigate() = true without a window")
	}
	if len(host.navigated) != 0 {
		t.Errorf("host navigated %v", host.navigated)
	}

	m.Create()
	if !m.Navigate("http://localhost:8501") {
		t.Error("Navigate() = false with a window")
	}
	if len(host.navigated) != 1 || host.navigated[0] != "http://localhost:8501" {
		t.Errorf("navigated = %v", host.navigated)
	}
}

func TestManager_Errors(t *testing.T) {
	host := &fakeHost{openErr: errors.New("no display")}
	m := NewManager(host, Options{})
	if _, _, err := m.Create(); err == nil {
		t.Fatal("Create() succeeded, want error")
	}
	if m.HasWindow() {
		t.Error("HasWindow() = true after failed Create")
	}

	host.openErr = nil
	host.navErr = errors.New("gone")
	m.Create()
	if m.Navigate("http://localhost:1") {
		t.Error("Navigate() = true on host error")
	}
}
