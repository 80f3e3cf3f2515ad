package gormdb

import "github.com/coastal-toolkit/tideshell/internal/domain"

// Launch 启动记录表
type Launch struct {
	ID         string `gorm:"primaryKey;size:36"`
	Command    string `gorm:"size:1024"`
	Pid        int
	StartedAt  int64 `gorm:"index"`
	ReadyAt    int64
	ExitedAt   int64
	URL        string `gorm:"size:255"`
	ExitCode   int
	StderrTail LongText
	Status     string `gorm:"size:16;index"`
}

func (Launch) TableName() string { return "launches" }

// AllModels returns every model for auto-migration
func AllModels() []any {
	return []any{&Launch{}}
}

func launchToModel(l *domain.Launch) *Launch {
	return &Launch{
		ID:         l.ID,
		Command:    l.Command,
		Pid:        l.Pid,
		StartedAt:  toTimestamp(l.StartedAt),
		ReadyAt:    toTimestampPtr(l.ReadyAt),
		ExitedAt:   toTimestampPtr(l.ExitedAt),
		URL:        l.URL,
		ExitCode:   l.ExitCode,
		StderrTail: LongText(l.StderrTail),
		Status:     string(l.Status),
	}
}

func (m *Launch) toDomain() *domain.Launch {
	return &domain.Launch{
		ID:         m.ID,
		Command:    m.Command,
		Pid:        m.Pid,
		StartedAt:  fromTimestamp(m.StartedAt),
		ReadyAt:    fromTimestampPtr(m.ReadyAt),
		ExitedAt:   fromTimestampPtr(m.ExitedAt),
		URL:        m.URL,
		ExitCode:   m.ExitCode,
		StderrTail: string(m.StderrTail),
		Status:     domain.LaunchStatus(m.Status),
	}
}
