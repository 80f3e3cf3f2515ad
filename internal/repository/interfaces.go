package repository

import (
	"time"

	"github.com/coastal-toolkit/tideshell/internal/domain"
)

// LaunchRepository persists the server launch history.
type LaunchRepository interface {
	Create(launch *domain.Launch) error
	MarkReady(id, url string, at time.Time) error
	MarkExited(id string, exitCode int, stderrTail string, at time.Time) error
	MarkFailed(id string, reason string, at time.Time) error
	GetByID(id string) (*domain.Launch, error)
	// List returns the newest launches first
	List(limit int) ([]*domain.Launch, error)
	// MarkStaleAsFailed fails launches a previous run left starting or ready
	MarkStaleAsFailed(reason string, at time.Time) (int64, error)
	// Prune keeps the newest keep launches and deletes the rest
	Prune(keep int) (int64, error)
}
