package desktop

import (
	"context"
	"log"
	"sync"

	"github.com/pkg/browser"

	"github.com/coastal-toolkit/tideshell/internal/window"
)

// openInBrowser opens url in the system browser.
func openInBrowser(url string) error {
	log.Printf("[Browser] Opening %s", url)
	return browser.OpenURL(url)
}

// BrowserPlatform shows the application in the system browser. Browser tabs
// cannot be observed, so windows are never reported closed; the application
// runs until the server exits or the user quits.
type BrowserPlatform struct {
	openURL func(string) error

	mu   sync.Mutex
	next window.Handle

	quit     chan struct{}
	quitOnce sync.Once
}

// NewBrowserPlatform 创建浏览器平台
func NewBrowserPlatform() *BrowserPlatform {
	return &BrowserPlatform{
		openURL: openInBrowser,
		quit:    make(chan struct{}),
	}
}

// Run reports Ready and blocks until Quit.
func (p *BrowserPlatform) Run(sink LifecycleSink) error {
	sink.Post(LifecycleEvent{Kind: LifecycleReady})
	<-p.quit

	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	sink.PostAndWait(ctx, LifecycleEvent{Kind: LifecycleShutdown})
	return nil
}

// OpenWindow only allocates a handle; the tab opens on navigation.
func (p *BrowserPlatform) OpenWindow(_ window.Options) (window.Handle, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.next++
	return p.next, nil
}

// NavigateWindow opens url in a new browser tab.
func (p *BrowserPlatform) NavigateWindow(_ window.Handle, url string) error {
	return p.openURL(url)
}

// Quit makes Run return.
func (p *BrowserPlatform) Quit() {
	p.quitOnce.Do(func() { close(p.quit) })
}

// PersistsInBackground is false.
func (p *BrowserPlatform) PersistsInBackground() bool {
	return false
}
