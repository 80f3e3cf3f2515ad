package gormdb

import (
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"

	"github.com/coastal-toolkit/tideshell/internal/domain"
)

// ErrNotFound is returned when a launch does not exist
var ErrNotFound = errors.New("launch not found")

// LaunchRepository implements repository.LaunchRepository on GORM
type LaunchRepository struct {
	db *DB
}

func NewLaunchRepository(db *DB) *LaunchRepository {
	return &LaunchRepository{db: db}
}

func (r *LaunchRepository) Create(l *domain.Launch) error {
	if l.ID == "" {
		return errors.New("launch id is required")
	}
	if l.Status == "" {
		l.Status = domain.LaunchStatusStarting
	}
	return r.db.gorm.Create(launchToModel(l)).Error
}

func (r *LaunchRepository) MarkReady(id, url string, at time.Time) error {
	return r.update(id, map[string]any{
		"ready_at": toTimestamp(at),
		"url":      url,
		"status":   string(domain.LaunchStatusReady),
	})
}

func (r *LaunchRepository) MarkExited(id string, exitCode int, stderrTail string, at time.Time) error {
	return r.update(id, map[string]any{
		"exited_at":   toTimestamp(at),
		"exit_code":   exitCode,
		"stderr_tail": LongText(stderrTail),
		"status":      string(domain.LaunchStatusExited),
	})
}

func (r *LaunchRepository) MarkFailed(id string, reason string, at time.Time) error {
	return r.update(id, map[string]any{
		"exited_at":   toTimestamp(at),
		"stderr_tail": LongText(reason),
		"status":      string(domain.LaunchStatusFailed),
	})
}

// MarkStaleAsFailed 将上次运行遗留的未结束记录标记为失败
func (r *LaunchRepository) MarkStaleAsFailed(reason string, at time.Time) (int64, error) {
	result := r.db.gorm.Model(&Launch{}).
		Where("status IN ?", []string{string(domain.LaunchStatusStarting), string(domain.LaunchStatusReady)}).
		Updates(map[string]any{
			"exited_at":   toTimestamp(at),
			"stderr_tail": LongText(reason),
			"status":      string(domain.LaunchStatusFailed),
		})
	return result.RowsAffected, result.Error
}

func (r *LaunchRepository) update(id string, fields map[string]any) error {
	result := r.db.gorm.Model(&Launch{}).Where("id = ?", id).Updates(fields)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	return nil
}

func (r *LaunchRepository) GetByID(id string) (*domain.Launch, error) {
	var m Launch
	if err := r.db.gorm.First(&m, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
		}
		return nil, err
	}
	return m.toDomain(), nil
}

func (r *LaunchRepository) List(limit int) ([]*domain.Launch, error) {
	if limit <= 0 {
		limit = 50
	}
	var models []Launch
	if err := r.db.gorm.Order("started_at DESC, id DESC").Limit(limit).Find(&models).Error; err != nil {
		return nil, err
	}
	launches := make([]*domain.Launch, 0, len(models))
	for i := range models {
		launches = append(launches, models[i].toDomain())
	}
	return launches, nil
}

func (r *LaunchRepository) Prune(keep int) (int64, error) {
	if keep <= 0 {
		result := r.db.gorm.Where("1 = 1").Delete(&Launch{})
		return result.RowsAffected, result.Error
	}
	// Launches can share a millisecond, so keep by id rather than by time.
	var ids []string
	if err := r.db.gorm.Model(&Launch{}).Order("started_at DESC, id DESC").Limit(keep).Pluck("id", &ids).Error; err != nil {
		return 0, err
	}
	if len(ids) == 0 {
		return 0, nil
	}
	result := r.db.gorm.Where("id NOT IN ?", ids).Delete(&Launch{})
	return result.RowsAffected, result.Error
}
