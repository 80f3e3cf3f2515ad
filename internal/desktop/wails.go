package desktop

import (
	"context"
	"errors"
	"io/fs"
	"log"
	goruntime "runtime"
	"sync"
	"sync/atomic"

	"github.com/bytedance/sonic"
	"github.com/wailsapp/wails/v2"
	"github.com/wailsapp/wails/v2/pkg/menu"
	"github.com/wailsapp/wails/v2/pkg/menu/keys"
	"github.com/wailsapp/wails/v2/pkg/options"
	"github.com/wailsapp/wails/v2/pkg/options/assetserver"
	"github.com/wailsapp/wails/v2/pkg/options/linux"
	"github.com/wailsapp/wails/v2/pkg/options/mac"
	"github.com/wailsapp/wails/v2/pkg/options/windows"
	"github.com/wailsapp/wails/v2/pkg/runtime"

	"github.com/coastal-toolkit/tideshell/internal/window"
)

const wailsUniqueID = "io.github.coastal-toolkit.tideshell"

// WailsPlatform runs the launcher in a single wails window. The window starts
// on the embedded launcher page and is navigated to the server once it is ready.
type WailsPlatform struct {
	opts   window.Options
	assets fs.FS
	sink   LifecycleSink

	mu      sync.Mutex
	ctx     context.Context
	next    window.Handle
	current window.Handle
	open    bool

	quitting atomic.Bool
}

// NewWailsPlatform 创建 wails 平台
func NewWailsPlatform(opts window.Options, assets fs.FS) *WailsPlatform {
	return &WailsPlatform{opts: opts, assets: assets}
}

// Run starts wails. Must be called from the main goroutine.
func (p *WailsPlatform) Run(sink LifecycleSink) error {
	p.sink = sink

	icon := p.opts.Icon
	if len(icon) == 0 {
		icon = AppIconPNG()
	}

	return wails.Run(&options.App{
		Title:     p.opts.Title,
		Width:     p.opts.Width,
		Height:    p.opts.Height,
		MinWidth:  800,
		MinHeight: 600,
		AssetServer: &assetserver.Options{
			Assets: p.assets,
		},
		BackgroundColour: &options.RGBA{R: 12, G: 44, B: 66, A: 1},
		OnStartup:        p.onStartup,
		OnBeforeClose:    p.onBeforeClose,
		OnShutdown:       p.onShutdown,
		Bind: []interface{}{
			&StatusBinding{source: sink},
		},
		SingleInstanceLock: &options.SingleInstanceLock{
			UniqueId: wailsUniqueID,
			OnSecondInstanceLaunch: func(_ options.SecondInstanceData) {
				log.Println("[Wails] Second instance launched, activating")
				sink.Post(LifecycleEvent{Kind: LifecycleActivate})
			},
		},
		Menu: p.appMenu(),
		Windows: &windows.Options{
			WebviewIsTransparent: false,
			WindowIsTranslucent:  false,
			DisableWindowIcon:    false,
		},
		Linux: &linux.Options{
			Icon:        icon,
			ProgramName: "tideshell",
		},
		Mac: &mac.Options{
			About: &mac.AboutInfo{
				Title:   p.opts.Title,
				Message: "Desktop shell for the Coastal & Ocean Engineering Toolkit",
				Icon:    icon,
			},
		},
	})
}

// appMenu builds the macOS application menu.
func (p *WailsPlatform) appMenu() *menu.Menu {
	if goruntime.GOOS != "darwin" {
		return nil
	}
	appMenu := menu.NewMenu()
	appMenu.Append(menu.AppMenu())

	fileMenu := appMenu.AddSubmenu("File")
	fileMenu.AddText("Show Window", keys.CmdOrCtrl("0"), func(_ *menu.CallbackData) {
		p.sink.Post(LifecycleEvent{Kind: LifecycleActivate})
	})
	fileMenu.AddSeparator()
	fileMenu.AddText("Quit", keys.CmdOrCtrl("q"), func(_ *menu.CallbackData) {
		p.sink.Post(LifecycleEvent{Kind: LifecycleQuitRequested})
	})

	appMenu.Append(menu.EditMenu())
	return appMenu
}

func (p *WailsPlatform) onStartup(ctx context.Context) {
	p.mu.Lock()
	p.ctx = ctx
	p.mu.Unlock()
	log.Println("[Wails] Runtime started")
	if p.quitting.Load() {
		log.Println("[Wails] Quit requested during startup")
		runtime.Quit(ctx)
		return
	}
	p.sink.Post(LifecycleEvent{Kind: LifecycleReady})
}

func (p *WailsPlatform) onShutdown(ctx context.Context) {
	log.Println("[Wails] Shutting down")
	waitCtx, cancel := context.WithTimeout(ctx, shutdownTimeout)
	defer cancel()
	p.sink.PostAndWait(waitCtx, LifecycleEvent{Kind: LifecycleShutdown})
}

// closeCurrent forgets the open window and tells the launcher about it.
func (p *WailsPlatform) closeCurrent() {
	p.mu.Lock()
	h, wasOpen := p.current, p.open
	p.open = false
	p.mu.Unlock()
	if wasOpen {
		p.sink.Post(LifecycleEvent{Kind: LifecycleWindowClosed, Window: h})
	}
}

func (p *WailsPlatform) runtimeContext() (context.Context, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.ctx == nil {
		return nil, errors.New("wails runtime not started")
	}
	return p.ctx, nil
}

// OpenWindow shows the wails window. The first call adopts the window wails
// opened at startup; later calls bring it back on the launcher page.
func (p *WailsPlatform) OpenWindow(_ window.Options) (window.Handle, error) {
	ctx, err := p.runtimeContext()
	if err != nil {
		return 0, err
	}

	p.mu.Lock()
	if p.open {
		h := p.current
		p.mu.Unlock()
		return h, nil
	}
	p.next++
	p.current = p.next
	p.open = true
	h := p.current
	p.mu.Unlock()

	if h > 1 {
		runtime.WindowReloadApp(ctx)
		runtime.WindowShow(ctx)
		runtime.WindowUnminimise(ctx)
	}
	return h, nil
}

// NavigateWindow points the webview at url.
func (p *WailsPlatform) NavigateWindow(h window.Handle, url string) error {
	ctx, err := p.runtimeContext()
	if err != nil {
		return err
	}
	p.mu.Lock()
	open := p.open && p.current == h
	p.mu.Unlock()
	if !open {
		return errors.New("window is not open")
	}

	js, err := navigateScript(url)
	if err != nil {
		return err
	}
	runtime.WindowExecJS(ctx, js)
	return nil
}

// navigateScript returns the JS that replaces the page with url.
func navigateScript(url string) (string, error) {
	literal, err := sonic.MarshalString(url)
	if err != nil {
		return "", err
	}
	return "window.location.replace(" + literal + ");", nil
}

// Quit exits the wails application. Before startup the quit is remembered
// and carried out by onStartup.
func (p *WailsPlatform) Quit() {
	p.quitting.Store(true)
	ctx, err := p.runtimeContext()
	if err != nil {
		return
	}
	runtime.Quit(ctx)
}
