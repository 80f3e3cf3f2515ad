package desktop

import "time"

// ServerState 服务器状态
type ServerState string

const (
	ServerIdle     ServerState = "idle"
	ServerStarting ServerState = "starting"
	ServerReady    ServerState = "ready"
	ServerExited   ServerState = "exited"
	ServerFailed   ServerState = "failed"
)

// Status is a point-in-time view of the launcher.
type Status struct {
	State      ServerState `json:"state"`
	URL        string      `json:"url,omitempty"`
	Pid        int         `json:"pid,omitempty"`
	ExitCode   *int        `json:"exitCode,omitempty"`
	LaunchID   string      `json:"launchId,omitempty"`
	Command    string      `json:"command"`
	StartedAt  time.Time   `json:"startedAt"`
	WindowOpen bool        `json:"windowOpen"`
}

// Ready reports whether the server has announced its URL and is still running.
func (s Status) Ready() bool {
	return s.State == ServerReady
}

// StatusBinding exposes the launcher status to the launcher page.
type StatusBinding struct {
	source interface{ Status() Status }
}

// GetStatus is called from the launcher page while it waits for the server.
func (b *StatusBinding) GetStatus() Status {
	return b.source.Status()
}
