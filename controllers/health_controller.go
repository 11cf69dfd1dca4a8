package controllers

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/xplorer1/eskalate-news-api/utils"
)

// HealthController reports liveness of the process and its database.
type HealthController struct {
	db *gorm.DB
}

// NewHealthController creates a new HealthController instance.
func NewHealthController(db *gorm.DB) *HealthController {
	return &HealthController{db: db}
}

// Health pings the database with a short deadline.
func (h *HealthController) Health(ctx *gin.Context) {
	sqlDB, err := h.db.DB()
	if err == nil {
		pingCtx, cancel := context.WithTimeout(ctx.Request.Context(), 2*time.Second)
		defer cancel()
		err = sqlDB.PingContext(pingCtx)
	}
	if err != nil {
		utils.Error(ctx, http.StatusServiceUnavailable, "Service unavailable", "Database is unreachable")
		return
	}
	utils.Success(ctx, "OK", gin.H{"status": "ok"})
}
