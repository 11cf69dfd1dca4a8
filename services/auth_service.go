package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/xplorer1/eskalate-news-api/models"
	"github.com/xplorer1/eskalate-news-api/utils"
)

const (
	msgEmailTaken         = "A user with this email already exists"
	msgInvalidCredentials = "Invalid email or password"
)

// PasswordHasher turns passwords into digests and checks them.
type PasswordHasher interface {
	Hash(password string) (string, error)
	Verify(digest, password string) bool
}

// TokenIssuer signs access tokens carrying the user id and role.
type TokenIssuer interface {
	Sign(userID, role string) (string, error)
}

// SignupInput is a validated signup request.
type SignupInput struct {
	Name     string
	Email    string
	Password string
	Role     models.Role
}

// LoginInput is a validated login request.
type LoginInput struct {
	Email    string
	Password string
}

// UserView is the public shape of a user. It never carries the password digest.
type UserView struct {
	ID        string      `json:"Id"`
	Name      string      `json:"Name"`
	Email     string      `json:"Email"`
	Role      models.Role `json:"Role"`
	CreatedAt *time.Time  `json:"CreatedAt,omitempty"`
}

// LoginResult is returned on successful login.
type LoginResult struct {
	Token string   `json:"token"`
	User  UserView `json:"user"`
}

// AuthService registers users and issues tokens.
type AuthService struct {
	db     *gorm.DB
	hasher PasswordHasher
	tokens TokenIssuer
	log    *zap.Logger
}

func NewAuthService(db *gorm.DB, hasher PasswordHasher, tokens TokenIssuer, log *zap.Logger) *AuthService {
	if log == nil {
		log = zap.NewNop()
	}
	return &AuthService{db: db, hasher: hasher, tokens: tokens, log: log.Named("auth")}
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// Signup creates a user. A taken email yields Conflict.
func (s *AuthService) Signup(ctx context.Context, in SignupInput) (UserView, error) {
	email := normalizeEmail(in.Email)

	taken, err := s.emailTaken(ctx, email)
	if err != nil {
		return UserView{}, err
	}
	if taken {
		return UserView{}, utils.Conflict(msgEmailTaken)
	}

	digest, err := s.hasher.Hash(in.Password)
	if err != nil {
		return UserView{}, fmt.Errorf("hash password: %w", err)
	}

	user := models.User{
		Name:         strings.TrimSpace(in.Name),
		Email:        email,
		PasswordHash: digest,
		Role:         in.Role,
	}
	if err := s.db.WithContext(ctx).Create(&user).Error; err != nil {
		// lost a race with a concurrent signup for the same email
		if taken, checkErr := s.emailTaken(ctx, email); checkErr == nil && taken {
			return UserView{}, utils.Conflict(msgEmailTaken)
		}
		return UserView{}, fmt.Errorf("create user: %w", err)
	}

	s.log.Info("user registered", zap.String("user_id", user.ID), zap.String("role", string(user.Role)))
	created := user.CreatedAt
	return UserView{ID: user.ID, Name: user.Name, Email: user.Email, Role: user.Role, CreatedAt: &created}, nil
}

// Login checks credentials and returns a signed token. Unknown emails and wrong
// passwords produce the same Unauthorized error.
func (s *AuthService) Login(ctx context.Context, in LoginInput) (LoginResult, error) {
	var user models.User
	err := s.db.WithContext(ctx).Where("email = ?", normalizeEmail(in.Email)).Take(&user).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return LoginResult{}, utils.Unauthorized(msgInvalidCredentials)
	}
	if err != nil {
		return LoginResult{}, fmt.Errorf("load user: %w", err)
	}

	if !s.hasher.Verify(user.PasswordHash, in.Password) {
		return LoginResult{}, utils.Unauthorized(msgInvalidCredentials)
	}

	token, err := s.tokens.Sign(user.ID, string(user.Role))
	if err != nil {
		return LoginResult{}, fmt.Errorf("sign token: %w", err)
	}
	return LoginResult{
		Token: token,
		User:  UserView{ID: user.ID, Name: user.Name, Email: user.Email, Role: user.Role},
	}, nil
}

func (s *AuthService) emailTaken(ctx context.Context, email string) (bool, error) {
	var count int64
	if err := s.db.WithContext(ctx).Model(&models.User{}).Where("email = ?", email).Count(&count).Error; err != nil {
		return false, fmt.Errorf("check email: %w", err)
	}
	return count > 0, nil
}
