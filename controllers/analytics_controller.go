package controllers

import (
	"github.com/gin-gonic/gin"

	"github.com/xplorer1/eskalate-news-api/middleware"
	"github.com/xplorer1/eskalate-news-api/services"
	"github.com/xplorer1/eskalate-news-api/utils"
)

// AnalyticsController serves the author dashboard.
type AnalyticsController struct {
	analytics *services.AnalyticsService
}

// NewAnalyticsController creates a new AnalyticsController instance.
func NewAnalyticsController(analytics *services.AnalyticsService) *AnalyticsController {
	return &AnalyticsController{analytics: analytics}
}

// Dashboard returns the caller's articles with their aggregated view totals.
// Numbers lag live reads until the next aggregation run.
func (a *AnalyticsController) Dashboard(ctx *gin.Context) {
	authorID, _ := middleware.UserID(ctx)
	page := pageFromQuery(ctx)

	entries, total, err := a.analytics.GetAuthorDashboard(ctx.Request.Context(), authorID, page.Number, page.Size)
	if err != nil {
		_ = ctx.Error(err)
		return
	}
	utils.Paginated(ctx, "Dashboard retrieved successfully", entries, page, total)
}
