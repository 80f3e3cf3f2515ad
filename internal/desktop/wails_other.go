//go:build !darwin

package desktop

import (
	"context"
	"log"
)

// onBeforeClose holds the close until the launcher has stopped the server
// and calls Quit.
func (p *WailsPlatform) onBeforeClose(ctx context.Context) bool {
	if p.quitting.Load() {
		return false
	}
	log.Println("[Wails] Window close requested")
	p.closeCurrent()
	return true
}

// PersistsInBackground is false outside macOS.
func (p *WailsPlatform) PersistsInBackground() bool {
	return false
}
