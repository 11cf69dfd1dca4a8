package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"unicode/utf8"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/xplorer1/eskalate-news-api/models"
	"github.com/xplorer1/eskalate-news-api/utils"
)

// FeedCachePrefix namespaces cached public-feed pages in Redis.
const FeedCachePrefix = "cache:articles:feed:"

const (
	msgArticleNotFound = "Article not found"
	msgArticleGone     = "News article no longer available"
	msgEditForbidden   = "You can only edit your own articles"
	msgDeleteForbidden = "You can only delete your own articles"
)

const (
	maxTitleLength   = 150
	minContentLength = 50
)

// checkStoredFields applies the length rules to sanitized values. Nil fields
// are not being written and are skipped.
func checkStoredFields(title, content, category *string) error {
	var problems []string
	if title != nil {
		switch n := utf8.RuneCountInString(*title); {
		case n == 0:
			problems = append(problems, "Title is required")
		case n > maxTitleLength:
			problems = append(problems, "Title must not exceed 150 characters")
		}
	}
	if content != nil && utf8.RuneCountInString(strings.TrimSpace(*content)) < minContentLength {
		problems = append(problems, "Content must be at least 50 characters")
	}
	if category != nil && *category == "" {
		problems = append(problems, "Category is required")
	}
	if len(problems) > 0 {
		return utils.BadRequest("Validation failed", problems...)
	}
	return nil
}

// CreateArticleInput is a validated create request. An empty Status means Draft.
type CreateArticleInput struct {
	Title    string
	Content  string
	Category string
	Status   models.ArticleStatus
}

// UpdateArticleInput carries only the fields being changed.
type UpdateArticleInput struct {
	Title    *string
	Content  *string
	Category *string
	Status   *models.ArticleStatus
}

// FeedFilter narrows the public feed. Empty fields are ignored.
type FeedFilter struct {
	Category string
	Author   string
	Query    string
}

type feedPage struct {
	Articles []models.Article
	Total    int64
}

// ArticleService implements authoring and reading of articles.
type ArticleService struct {
	db    *gorm.DB
	cache *utils.Cache
	log   *zap.Logger
}

// NewArticleService builds the service. cache may be nil.
func NewArticleService(db *gorm.DB, cache *utils.Cache, log *zap.Logger) *ArticleService {
	if log == nil {
		log = zap.NewNop()
	}
	return &ArticleService{db: db, cache: cache, log: log.Named("articles")}
}

func withAuthorName(db *gorm.DB) *gorm.DB {
	return db.Preload("Author", func(tx *gorm.DB) *gorm.DB {
		return tx.Select("id", "name")
	})
}

// likePattern builds a case-insensitive substring pattern for LIKE ... ESCAPE '!'.
func likePattern(term string) string {
	r := strings.NewReplacer("!", "!!", "%", "!%", "_", "!_")
	return "%" + r.Replace(strings.ToLower(term)) + "%"
}

// Create stores a new article owned by authorID.
func (s *ArticleService) Create(ctx context.Context, authorID string, in CreateArticleInput) (*models.Article, error) {
	status := in.Status
	if status == "" {
		status = models.StatusDraft
	}
	article := models.Article{
		Title:    utils.SanitizeText(in.Title),
		Content:  utils.Sanitize(in.Content),
		Category: utils.SanitizeText(in.Category),
		Status:   status,
		AuthorID: authorID,
	}
	if err := checkStoredFields(&article.Title, &article.Content, &article.Category); err != nil {
		return nil, err
	}
	if err := s.db.WithContext(ctx).Create(&article).Error; err != nil {
		return nil, fmt.Errorf("create article: %w", err)
	}
	s.cache.InvalidateByPrefix(ctx, FeedCachePrefix)
	return &article, nil
}

// loadOwned fetches a live article and checks that actorID owns it.
func (s *ArticleService) loadOwned(ctx context.Context, articleID, actorID, forbidden string) (*models.Article, error) {
	var article models.Article
	err := s.db.WithContext(ctx).Where("id = ?", articleID).Take(&article).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, utils.NotFound(msgArticleNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("load article: %w", err)
	}
	if article.AuthorID != actorID {
		return nil, utils.Forbidden(forbidden)
	}
	return &article, nil
}

// Update applies a partial update. Only the owner may update; soft-deleted articles are not found.
func (s *ArticleService) Update(ctx context.Context, articleID, actorID string, in UpdateArticleInput) (*models.Article, error) {
	article, err := s.loadOwned(ctx, articleID, actorID, msgEditForbidden)
	if err != nil {
		return nil, err
	}

	var (
		columns                  []string
		title, content, category *string
	)
	if in.Title != nil {
		article.Title = utils.SanitizeText(*in.Title)
		title = &article.Title
		columns = append(columns, "title")
	}
	if in.Content != nil {
		article.Content = utils.Sanitize(*in.Content)
		content = &article.Content
		columns = append(columns, "content")
	}
	if in.Category != nil {
		article.Category = utils.SanitizeText(*in.Category)
		category = &article.Category
		columns = append(columns, "category")
	}
	if err := checkStoredFields(title, content, category); err != nil {
		return nil, err
	}
	if in.Status != nil {
		article.Status = *in.Status
		columns = append(columns, "status")
	}
	if len(columns) == 0 {
		return article, nil
	}

	if err := s.db.WithContext(ctx).Model(article).Select(columns).Updates(article).Error; err != nil {
		return nil, fmt.Errorf("update article: %w", err)
	}
	s.cache.InvalidateByPrefix(ctx, FeedCachePrefix)
	return article, nil
}

// SoftDelete stamps DeletedAt on an article owned by actorID.
func (s *ArticleService) SoftDelete(ctx context.Context, articleID, actorID string) error {
	article, err := s.loadOwned(ctx, articleID, actorID, msgDeleteForbidden)
	if err != nil {
		return err
	}
	if err := s.db.WithContext(ctx).Delete(article).Error; err != nil {
		return fmt.Errorf("delete article: %w", err)
	}
	s.cache.InvalidateByPrefix(ctx, FeedCachePrefix)
	s.log.Info("article soft-deleted", zap.String("article_id", articleID), zap.String("author_id", actorID))
	return nil
}

// ListMine returns one page of an author's articles, newest first.
func (s *ArticleService) ListMine(ctx context.Context, authorID string, page utils.Page, includeDeleted bool) ([]models.Article, int64, error) {
	query := s.db.WithContext(ctx).Model(&models.Article{}).Where("author_id = ?", authorID)
	if includeDeleted {
		query = query.Unscoped()
	}
	query = query.Session(&gorm.Session{})

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("count articles: %w", err)
	}

	articles := make([]models.Article, 0, page.Size)
	if err := withAuthorName(query).Order("created_at DESC, id DESC").Offset(page.Offset()).Limit(page.Size).Find(&articles).Error; err != nil {
		return nil, 0, fmt.Errorf("list articles: %w", err)
	}
	return articles, total, nil
}

// PublicFeed returns published, live articles, newest first. Category matches
// exactly; author name and the query (title or content) match as
// case-insensitive substrings.
func (s *ArticleService) PublicFeed(ctx context.Context, page utils.Page, filter FeedFilter) ([]models.Article, int64, error) {
	filter.Category = strings.TrimSpace(filter.Category)
	filter.Author = strings.TrimSpace(filter.Author)
	filter.Query = strings.TrimSpace(filter.Query)

	// free-text searches are not cached to keep the key space small
	cacheable := filter.Author == "" && filter.Query == ""
	cacheKey := fmt.Sprintf("%scat=%s:page=%d:size=%d", FeedCachePrefix, filter.Category, page.Number, page.Size)
	if cacheable {
		var cached feedPage
		if s.cache.GetJSON(ctx, cacheKey, &cached) {
			return cached.Articles, cached.Total, nil
		}
	}

	query := s.db.WithContext(ctx).Model(&models.Article{}).Where("status = ?", models.StatusPublished)
	if filter.Category != "" {
		query = query.Where("category = ?", filter.Category)
	}
	if filter.Author != "" {
		authors := s.db.Model(&models.User{}).Select("id").Where("LOWER(name) LIKE ? ESCAPE '!'", likePattern(filter.Author))
		query = query.Where("author_id IN (?)", authors)
	}
	if filter.Query != "" {
		p := likePattern(filter.Query)
		query = query.Where("(LOWER(title) LIKE ? ESCAPE '!' OR LOWER(content) LIKE ? ESCAPE '!')", p, p)
	}
	query = query.Session(&gorm.Session{})

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("count feed: %w", err)
	}

	articles := make([]models.Article, 0, page.Size)
	if err := withAuthorName(query).Order("created_at DESC, id DESC").Offset(page.Offset()).Limit(page.Size).Find(&articles).Error; err != nil {
		return nil, 0, fmt.Errorf("list feed: %w", err)
	}

	if cacheable {
		s.cache.SetJSON(ctx, cacheKey, feedPage{Articles: articles, Total: total})
	}
	return articles, total, nil
}

// FindByID loads an article for reading. Soft-deleted articles are reported
// with a distinct not-found message.
func (s *ArticleService) FindByID(ctx context.Context, articleID string) (*models.Article, error) {
	var article models.Article
	err := withAuthorName(s.db.WithContext(ctx).Unscoped()).Where("id = ?", articleID).Take(&article).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, utils.NotFound(msgArticleNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("load article: %w", err)
	}
	if article.DeletedAt.Valid {
		return nil, utils.NotFound(msgArticleGone)
	}
	return &article, nil
}
