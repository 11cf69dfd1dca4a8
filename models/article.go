package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// ArticleStatus is the publication state of an article.
type ArticleStatus string

const (
	StatusDraft     ArticleStatus = "Draft"
	StatusPublished ArticleStatus = "Published"
)

// Valid reports whether s is a known status.
func (s ArticleStatus) Valid() bool {
	return s == StatusDraft || s == StatusPublished
}

// Article is a news article owned by exactly one author.
// Deleting an article only stamps DeletedAt; default queries skip such rows.
type Article struct {
	ID        string         `gorm:"type:varchar(36);primaryKey" json:"Id"`
	Title     string         `gorm:"size:150;not null" json:"Title"`
	Content   string         `gorm:"type:text;not null" json:"Content"`
	Category  string         `gorm:"size:255;not null;index" json:"Category"`
	Status    ArticleStatus  `gorm:"size:16;not null;default:'Draft';index" json:"Status"`
	AuthorID  string         `gorm:"type:varchar(36);not null;index" json:"AuthorId"`
	Author    *User          `gorm:"foreignKey:AuthorID" json:"Author,omitempty"`
	CreatedAt time.Time      `gorm:"index" json:"CreatedAt"`
	UpdatedAt time.Time      `json:"UpdatedAt"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"DeletedAt"`
}

// BeforeCreate assigns a random identifier and the default status.
func (a *Article) BeforeCreate(tx *gorm.DB) error {
	if a.ID == "" {
		a.ID = uuid.NewString()
	}
	if a.Status == "" {
		a.Status = StatusDraft
	}
	return nil
}
