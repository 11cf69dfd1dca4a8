package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Role is fixed at signup; there is no role-change path.
type Role string

const (
	RoleAuthor Role = "author"
	RoleReader Role = "reader"
)

// Valid reports whether r is one of the known roles.
func (r Role) Valid() bool {
	return r == RoleAuthor || r == RoleReader
}

// User represents a platform account. Passwords are stored as bcrypt hashes only.
type User struct {
	ID           string    `gorm:"type:varchar(36);primaryKey" json:"Id"`
	Name         string    `gorm:"size:255;not null" json:"Name"`
	Email        string    `gorm:"size:255;not null;uniqueIndex" json:"Email,omitempty"`
	PasswordHash string    `gorm:"size:255;not null" json:"-"`
	Role         Role      `gorm:"size:16;not null" json:"Role,omitempty"`
	CreatedAt    time.Time `json:"-"`
	UpdatedAt    time.Time `json:"-"`
	Articles     []Article `gorm:"foreignKey:AuthorID;constraint:OnUpdate:CASCADE,OnDelete:CASCADE;" json:"-"`
}

// BeforeCreate assigns a random identifier and timestamps.
func (u *User) BeforeCreate(tx *gorm.DB) error {
	if u.ID == "" {
		u.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	if u.CreatedAt.IsZero() {
		u.CreatedAt = now
	}
	u.UpdatedAt = now
	return nil
}

// BeforeUpdate ensures the UpdatedAt timestamp is refreshed.
func (u *User) BeforeUpdate(tx *gorm.DB) error {
	u.UpdatedAt = time.Now().UTC()
	return nil
}
