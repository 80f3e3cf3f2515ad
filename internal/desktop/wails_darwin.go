//go:build darwin

package desktop

import (
	"context"
	"log"

	"github.com/wailsapp/wails/v2/pkg/runtime"
)

// onBeforeClose macOS: 关闭窗口只隐藏，应用保持运行
func (p *WailsPlatform) onBeforeClose(ctx context.Context) bool {
	if p.quitting.Load() {
		return false
	}
	log.Println("[Wails] Window close requested - hiding")
	runtime.WindowHide(ctx)
	p.closeCurrent()
	return true
}

// PersistsInBackground is true on macOS.
func (p *WailsPlatform) PersistsInBackground() bool {
	return true
}
