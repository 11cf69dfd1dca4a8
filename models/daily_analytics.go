package models

import "time"

// DailyAnalytics stores the number of reads of one article on one UTC day.
// Rows are rewritten by the aggregation job; nothing else writes them.
type DailyAnalytics struct {
	ID        uint      `gorm:"primaryKey" json:"-"`
	ArticleID string    `gorm:"type:varchar(36);not null;uniqueIndex:idx_daily_article_date" json:"ArticleId"`
	Date      time.Time `gorm:"type:date;not null;uniqueIndex:idx_daily_article_date" json:"Date"`
	ViewCount int64     `gorm:"not null;default:0" json:"ViewCount"`
	CreatedAt time.Time `json:"-"`
	UpdatedAt time.Time `json:"-"`
	Article   Article   `gorm:"constraint:OnUpdate:CASCADE,OnDelete:CASCADE;" json:"-"`
}

// TableName keeps the plural-less name used by the rollup queries.
func (DailyAnalytics) TableName() string {
	return "daily_analytics"
}

// UTCDay truncates t to midnight of its UTC calendar day.
func UTCDay(t time.Time) time.Time {
	u := t.UTC()
	return time.Date(u.Year(), u.Month(), u.Day(), 0, 0, 0, 0, time.UTC)
}
