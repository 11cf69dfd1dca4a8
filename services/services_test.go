package services

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"

	"github.com/xplorer1/eskalate-news-api/config"
	"github.com/xplorer1/eskalate-news-api/models"
	"github.com/xplorer1/eskalate-news-api/utils"
)

const testSecret = "test-secret-with-enough-length"

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := filepath.Join(t.TempDir(), "services.db") + "?_pragma=foreign_keys(1)"
	db, err := config.InitDatabase(config.AppConfig{DBDriver: "sqlite", DatabaseURI: dsn, LogLevel: "silent"})
	require.NoError(t, err)
	return db
}

func newAuthService(db *gorm.DB) (*AuthService, *utils.TokenManager) {
	tokens := utils.NewTokenManager(testSecret, time.Hour)
	return NewAuthService(db, utils.BcryptHasher{Cost: bcrypt.MinCost}, tokens, nil), tokens
}

func seedUser(t *testing.T, db *gorm.DB, name string, role models.Role) models.User {
	t.Helper()
	u := models.User{
		Name:         name,
		Email:        strings.ToLower(strings.ReplaceAll(name, " ", ".")) + "@example.com",
		PasswordHash: "digest",
		Role:         role,
	}
	require.NoError(t, db.Create(&u).Error)
	return u
}

// seedArticle inserts an article with an explicit creation time so ordering is deterministic.
func seedArticle(t *testing.T, db *gorm.DB, author models.User, title string, status models.ArticleStatus, createdAt time.Time) models.Article {
	t.Helper()
	a := models.Article{
		Title:     title,
		Content:   fmt.Sprintf("%s body text that is comfortably longer than fifty characters.", title),
		Category:  "Tech",
		Status:    status,
		AuthorID:  author.ID,
		CreatedAt: createdAt,
	}
	require.NoError(t, db.Create(&a).Error)
	return a
}

func requireAppError(t *testing.T, err error, status int, message string) {
	t.Helper()
	require.Error(t, err)
	appErr, ok := err.(*utils.AppError)
	require.True(t, ok, "expected *utils.AppError, got %T: %v", err, err)
	require.Equal(t, status, appErr.Status)
	require.Equal(t, message, appErr.Message)
}

var bg = context.Background()
