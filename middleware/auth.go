package middleware

import (
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/xplorer1/eskalate-news-api/models"
	"github.com/xplorer1/eskalate-news-api/utils"
)

const (
	// ContextUserIDKey is the key used to store authenticated user ID in Gin context.
	ContextUserIDKey = "user_id"
	// ContextRoleKey stores the role claim inside Gin context.
	ContextRoleKey = "role"
)

// TokenVerifier validates bearer tokens.
type TokenVerifier interface {
	Verify(token string) (*utils.Claims, error)
}

func bearerToken(ctx *gin.Context) (string, bool) {
	parts := strings.SplitN(ctx.GetHeader("Authorization"), " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return "", false
	}
	token := strings.TrimSpace(parts[1])
	return token, token != ""
}

func setIdentity(ctx *gin.Context, claims *utils.Claims) {
	ctx.Set(ContextUserIDKey, claims.Subject)
	ctx.Set(ContextRoleKey, claims.Role)
}

// AuthRequired ensures the request is authenticated via JWT.
func AuthRequired(tokens TokenVerifier) gin.HandlerFunc {
	return func(ctx *gin.Context) {
		token, ok := bearerToken(ctx)
		if !ok {
			utils.AbortWithError(ctx, utils.Unauthorized("Authentication required"))
			return
		}
		claims, err := tokens.Verify(token)
		if err != nil {
			utils.AbortWithError(ctx, utils.Unauthorized("Invalid or expired token"))
			return
		}
		setIdentity(ctx, claims)
		ctx.Next()
	}
}

// OptionalAuth attaches the identity when a valid token is present and
// otherwise lets the request through as a guest.
func OptionalAuth(tokens TokenVerifier) gin.HandlerFunc {
	return func(ctx *gin.Context) {
		if token, ok := bearerToken(ctx); ok {
			if claims, err := tokens.Verify(token); err == nil {
				setIdentity(ctx, claims)
			}
		}
		ctx.Next()
	}
}

// RequireRole rejects authenticated users whose role is not listed.
func RequireRole(roles ...models.Role) gin.HandlerFunc {
	return func(ctx *gin.Context) {
		if _, ok := UserID(ctx); !ok {
			utils.AbortWithError(ctx, utils.Unauthorized("Authentication required"))
			return
		}
		role := models.Role(ctx.GetString(ContextRoleKey))
		for _, r := range roles {
			if r == role {
				ctx.Next()
				return
			}
		}
		utils.AbortWithError(ctx, utils.Forbidden("You do not have permission to access this resource"))
	}
}

// UserID returns the authenticated user id, if any.
func UserID(ctx *gin.Context) (string, bool) {
	id := ctx.GetString(ContextUserIDKey)
	return id, id != ""
}
