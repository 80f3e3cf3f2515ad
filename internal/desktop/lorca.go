package desktop

import (
	"context"
	"fmt"
	"html"
	"log"
	"net/url"
	"sync"

	"github.com/zserge/lorca"

	"github.com/coastal-toolkit/tideshell/internal/window"
)

// LorcaPlatform opens each window as a Chrome/Edge app-mode window. When no
// such browser is installed, windows fall back to the system browser.
type LorcaPlatform struct {
	profileDir string
	sink       LifecycleSink
	openURL    func(string) error

	mu      sync.Mutex
	next    window.Handle
	windows map[window.Handle]*lorcaWindow

	quit     chan struct{}
	quitOnce sync.Once
}

type lorcaWindow struct {
	// nil when the window fell back to the system browser
	ui lorca.UI
}

// NewLorcaPlatform 创建 lorca 平台，profileDir 为 Chrome 用户数据目录
func NewLorcaPlatform(profileDir string) *LorcaPlatform {
	return &LorcaPlatform{
		profileDir: profileDir,
		openURL:    openInBrowser,
		windows:    make(map[window.Handle]*lorcaWindow),
		quit:       make(chan struct{}),
	}
}

// Run reports Ready and blocks until Quit.
func (p *LorcaPlatform) Run(sink LifecycleSink) error {
	p.sink = sink
	sink.Post(LifecycleEvent{Kind: LifecycleReady})

	<-p.quit

	p.mu.Lock()
	uis := make([]lorca.UI, 0, len(p.windows))
	for _, w := range p.windows {
		if w.ui != nil {
			uis = append(uis, w.ui)
		}
	}
	p.mu.Unlock()
	for _, ui := range uis {
		if err := ui.Close(); err != nil {
			log.Printf("[Lorca] Failed to close window: %v", err)
		}
	}

	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	sink.PostAndWait(ctx, LifecycleEvent{Kind: LifecycleShutdown})
	return nil
}

// OpenWindow starts a Chrome app window on a blank page.
func (p *LorcaPlatform) OpenWindow(opts window.Options) (window.Handle, error) {
	ui, err := lorca.New(blankPage(opts.Title), p.profileDir, opts.Width, opts.Height)

	p.mu.Lock()
	p.next++
	h := p.next
	if err != nil {
		log.Printf("[Lorca] Failed to launch standalone window: %v. Opening in browser instead.", err)
		p.windows[h] = &lorcaWindow{}
		p.mu.Unlock()
		return h, nil
	}
	p.windows[h] = &lorcaWindow{ui: ui}
	p.mu.Unlock()

	go p.watch(h, ui)
	return h, nil
}

func (p *LorcaPlatform) watch(h window.Handle, ui lorca.UI) {
	<-ui.Done()
	p.mu.Lock()
	delete(p.windows, h)
	p.mu.Unlock()
	log.Printf("[Lorca] Window %d closed", h)
	p.sink.Post(LifecycleEvent{Kind: LifecycleWindowClosed, Window: h})
}

// NavigateWindow loads url into the window, or opens it in the system
// browser for fallback windows.
func (p *LorcaPlatform) NavigateWindow(h window.Handle, url string) error {
	p.mu.Lock()
	w, ok := p.windows[h]
	p.mu.Unlock()
	if !ok {
		return fmt.Errorf("window %d is not open", h)
	}
	if w.ui == nil {
		return p.openURL(url)
	}
	return w.ui.Load(url)
}

// Quit makes Run return.
func (p *LorcaPlatform) Quit() {
	p.quitOnce.Do(func() { close(p.quit) })
}

// PersistsInBackground is false: Chrome app windows have no dock presence
// to reactivate from.
func (p *LorcaPlatform) PersistsInBackground() bool {
	return false
}

func blankPage(title string) string {
	page := `<!doctype html><html><head><meta charset="utf-8"><title>` + html.EscapeString(title) +
		`</title></head><body style="margin:0;background:#0c2c42;color:#cfe3f0;font-family:sans-serif;` +
		`display:flex;align-items:center;justify-content:center;height:100vh">Starting server…</body></html>`
	return "data:text/html," + url.PathEscape(page)
}
