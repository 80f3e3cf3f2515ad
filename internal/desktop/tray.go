//go:build windows

package desktop

import (
	"fmt"
	"log"

	"github.com/getlantern/systray"
)

// TrayManager 管理系统托盘
type TrayManager struct {
	app              *LauncherApp
	ready            chan struct{}
	menuShow         *systray.MenuItem
	menuServerStatus *systray.MenuItem
	menuServerAddr   *systray.MenuItem
	menuOpenBrowser  *systray.MenuItem
	menuQuit         *systray.MenuItem
}

// NewTrayManager 创建托盘管理器
func NewTrayManager(app *LauncherApp) *TrayManager {
	return &TrayManager{app: app, ready: make(chan struct{})}
}

// Start 在后台启动托盘（不阻塞主线程）
func (t *TrayManager) Start() {
	go systray.Run(t.onReady, t.onExit)
}

// Stop 退出托盘
func (t *TrayManager) Stop() {
	systray.Quit()
}

func (t *TrayManager) onReady() {
	log.Println("[Tray] Initializing system tray...")

	systray.SetIcon(AppIconICO())
	systray.SetTitle("tideshell")
	systray.SetTooltip("Coastal & Ocean Engineering Toolkit")

	t.menuShow = systray.AddMenuItem("Show window", "Show the main window")
	systray.AddSeparator()

	t.menuServerStatus = systray.AddMenuItem("Server: starting...", "Server state")
	t.menuServerStatus.Disable()
	t.menuServerAddr = systray.AddMenuItem("Address: -", "Server address")
	t.menuServerAddr.Disable()

	systray.AddSeparator()
	t.menuOpenBrowser = systray.AddMenuItem("Open in browser", "Open the toolkit in the system browser")
	t.menuOpenBrowser.Disable()

	systray.AddSeparator()
	t.menuQuit = systray.AddMenuItem("Quit", "Stop the server and quit")

	close(t.ready)
	t.UpdateStatus(t.app.Status())

	go t.handleMenuEvents()
}

func (t *TrayManager) onExit() {
	log.Println("[Tray] System tray exited")
}

func (t *TrayManager) handleMenuEvents() {
	for {
		select {
		case <-t.menuShow.ClickedCh:
			log.Println("[Tray] Show window clicked")
			t.app.Post(LifecycleEvent{Kind: LifecycleActivate})

		case <-t.menuOpenBrowser.ClickedCh:
			if url := t.app.Status().URL; url != "" {
				if err := openInBrowser(url); err != nil {
					log.Printf("[Tray] Could not open browser: %v", err)
				}
			}

		case <-t.menuQuit.ClickedCh:
			log.Println("[Tray] Quit clicked")
			t.app.RequestQuit()
			return
		}
	}
}

// UpdateStatus 更新托盘菜单状态
func (t *TrayManager) UpdateStatus(status Status) {
	select {
	case <-t.ready:
	default:
		return
	}

	t.menuServerStatus.SetTitle(fmt.Sprintf("Server: %s", status.State))
	if status.URL != "" {
		t.menuServerAddr.SetTitle(fmt.Sprintf("Address: %s", status.URL))
	} else {
		t.menuServerAddr.SetTitle("Address: -")
	}
	if status.Ready() {
		t.menuOpenBrowser.Enable()
	} else {
		t.menuOpenBrowser.Disable()
	}
}
