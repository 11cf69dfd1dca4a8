package models

import "time"

// Job run outcomes recorded on JobSchedule.LastStatus.
const (
	JobStatusSucceeded = "succeeded"
	JobStatusFailed    = "failed"
	JobStatusTimedOut  = "timed_out"
	JobStatusSkipped   = "skipped"
)

// JobSchedule is the durable schedule record of a recurring job, keyed by job name.
// Revision increases on every claimed run and guards against two instances firing the same slot.
type JobSchedule struct {
	Name       string    `gorm:"size:64;primaryKey"`
	Cron       string    `gorm:"size:64;not null"`
	Timezone   string    `gorm:"size:64;not null"`
	NextRunAt  time.Time `gorm:"not null;index"`
	Revision   int64     `gorm:"not null;default:0"`
	LastRunAt  *time.Time
	LastStatus string `gorm:"size:16"`
	LastError  string `gorm:"type:text"`
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

// All lists every model in dependency order for migrations.
func All() []interface{} {
	return []interface{}{&User{}, &Article{}, &ReadLog{}, &DailyAnalytics{}, &JobSchedule{}}
}
