package models

import "time"

// ReadLog is one raw, append-only read event. ReaderID is nil for guests.
type ReadLog struct {
	ID        uint      `gorm:"primaryKey" json:"-"`
	ArticleID string    `gorm:"type:varchar(36);not null;index" json:"ArticleId"`
	ReaderID  *string   `gorm:"type:varchar(36);index" json:"ReaderId"`
	ReadAt    time.Time `gorm:"not null;index" json:"ReadAt"`
	CreatedAt time.Time `json:"-"`
	Article   Article   `gorm:"constraint:OnUpdate:CASCADE,OnDelete:CASCADE;" json:"-"`
	Reader    *User     `gorm:"foreignKey:ReaderID;constraint:OnUpdate:CASCADE,OnDelete:SET NULL;" json:"-"`
}
