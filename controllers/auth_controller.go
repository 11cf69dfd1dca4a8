package controllers

import (
	"github.com/gin-gonic/gin"

	"github.com/xplorer1/eskalate-news-api/models"
	"github.com/xplorer1/eskalate-news-api/services"
	"github.com/xplorer1/eskalate-news-api/utils"
)

// AuthController handles signup and login.
type AuthController struct {
	auth *services.AuthService
}

// NewAuthController creates a new AuthController instance.
func NewAuthController(auth *services.AuthService) *AuthController {
	return &AuthController{auth: auth}
}

type signupRequest struct {
	Name     string `json:"Name" binding:"required,alphaspace"`
	Email    string `json:"Email" binding:"required,email"`
	Password string `json:"Password" binding:"required,strongpassword"`
	Role     string `json:"Role" binding:"required,oneof=author reader"`
}

type loginRequest struct {
	Email    string `json:"Email" binding:"required,email"`
	Password string `json:"Password" binding:"required"`
}

// Signup registers a new author or reader.
func (a *AuthController) Signup(ctx *gin.Context) {
	var req signupRequest
	if err := bindJSON(ctx, &req); err != nil {
		_ = ctx.Error(err)
		return
	}

	user, err := a.auth.Signup(ctx.Request.Context(), services.SignupInput{
		Name:     req.Name,
		Email:    req.Email,
		Password: req.Password,
		Role:     models.Role(req.Role),
	})
	if err != nil {
		_ = ctx.Error(err)
		return
	}
	utils.Created(ctx, "User registered successfully", user)
}

// Login exchanges credentials for a bearer token.
func (a *AuthController) Login(ctx *gin.Context) {
	var req loginRequest
	if err := bindJSON(ctx, &req); err != nil {
		_ = ctx.Error(err)
		return
	}

	result, err := a.auth.Login(ctx.Request.Context(), services.LoginInput{
		Email:    req.Email,
		Password: req.Password,
	})
	if err != nil {
		_ = ctx.Error(err)
		return
	}
	utils.Success(ctx, "Login successful", result)
}
