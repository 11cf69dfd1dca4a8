package services

import (
	"context"
	"fmt"
	"time"

	"gorm.io/gorm"

	"github.com/xplorer1/eskalate-news-api/models"
	"github.com/xplorer1/eskalate-news-api/utils"
)

// DashboardEntry is one article of the author dashboard with its aggregated views.
type DashboardEntry struct {
	ID         string               `json:"Id"`
	Title      string               `json:"Title"`
	Category   string               `json:"Category"`
	Status     models.ArticleStatus `json:"Status"`
	CreatedAt  time.Time            `json:"CreatedAt"`
	TotalViews int64                `json:"TotalViews"`
}

// AnalyticsService reads the DailyAnalytics rollup. Numbers lag live reads
// until the next aggregation run.
type AnalyticsService struct {
	db *gorm.DB
}

func NewAnalyticsService(db *gorm.DB) *AnalyticsService {
	return &AnalyticsService{db: db}
}

// GetAuthorDashboard returns one page of the author's live articles, newest
// first, each with the sum of its daily view counts, plus the number of
// matching articles. page and size are clamped like every other listing.
func (s *AnalyticsService) GetAuthorDashboard(ctx context.Context, authorID string, page, size int) ([]DashboardEntry, int64, error) {
	p := utils.NewPage(page, size)
	db := s.db.WithContext(ctx)

	var total int64
	if err := db.Model(&models.Article{}).Where("author_id = ?", authorID).Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("count dashboard articles: %w", err)
	}

	var articles []models.Article
	err := db.Select("id", "title", "category", "status", "created_at").
		Where("author_id = ?", authorID).
		Order("created_at DESC, id DESC").
		Offset(p.Offset()).
		Limit(p.Size).
		Find(&articles).Error
	if err != nil {
		return nil, 0, fmt.Errorf("list dashboard articles: %w", err)
	}

	entries := make([]DashboardEntry, 0, len(articles))
	if len(articles) == 0 {
		return entries, total, nil
	}

	ids := make([]string, len(articles))
	for i, a := range articles {
		ids[i] = a.ID
	}
	var sums []struct {
		ArticleID string
		Total     int64
	}
	err = db.Model(&models.DailyAnalytics{}).
		Select("article_id, COALESCE(SUM(view_count), 0) AS total").
		Where("article_id IN ?", ids).
		Group("article_id").
		Scan(&sums).Error
	if err != nil {
		return nil, 0, fmt.Errorf("sum daily analytics: %w", err)
	}
	views := make(map[string]int64, len(sums))
	for _, row := range sums {
		views[row.ArticleID] = row.Total
	}

	for _, a := range articles {
		entries = append(entries, DashboardEntry{
			ID:         a.ID,
			Title:      a.Title,
			Category:   a.Category,
			Status:     a.Status,
			CreatedAt:  a.CreatedAt,
			TotalViews: views[a.ID], // 0 when the article has no rollup rows yet
		})
	}
	return entries, total, nil
}
