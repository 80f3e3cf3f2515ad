package domain

import "time"

// LaunchStatus 启动记录状态
type LaunchStatus string

var (
	LaunchStatusStarting LaunchStatus = "starting"
	LaunchStatusReady    LaunchStatus = "ready"
	LaunchStatusExited   LaunchStatus = "exited"
	LaunchStatusFailed   LaunchStatus = "failed"
)

// Launch is one spawn of the local web server.
type Launch struct {
	// uuid
	ID string `json:"id"`

	Command string `json:"command"`
	Pid     int    `json:"pid"`

	StartedAt time.Time  `json:"startedAt"`
	ReadyAt   *time.Time `json:"readyAt,omitempty"`
	ExitedAt  *time.Time `json:"exitedAt,omitempty"`

	// First readiness URL seen on stdout
	URL string `json:"url"`

	// -1 until the process exits, or when it was killed by a signal
	ExitCode int `json:"exitCode"`

	// Last lines of stderr, or the spawn error for failed launches
	StderrTail string `json:"stderrTail"`

	Status LaunchStatus `json:"status"`
}

// Duration returns how long the server ran, or ran so far.
func (l *Launch) Duration(now time.Time) time.Duration {
	end := now
	if l.ExitedAt != nil {
		end = *l.ExitedAt
	}
	if end.Before(l.StartedAt) {
		return 0
	}
	return end.Sub(l.StartedAt)
}
