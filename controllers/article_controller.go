package controllers

import (
	"github.com/gin-gonic/gin"

	"github.com/xplorer1/eskalate-news-api/middleware"
	"github.com/xplorer1/eskalate-news-api/models"
	"github.com/xplorer1/eskalate-news-api/services"
	"github.com/xplorer1/eskalate-news-api/utils"
)

const msgArticlesRetrieved = "Articles retrieved successfully"

// ArticleController manages authoring and reading of articles.
type ArticleController struct {
	articles *services.ArticleService
}

// NewArticleController creates a new ArticleController instance.
func NewArticleController(articles *services.ArticleService) *ArticleController {
	return &ArticleController{articles: articles}
}

type createArticleRequest struct {
	Title    string `json:"Title" binding:"required,min=1,max=150"`
	Content  string `json:"Content" binding:"required,min=50"`
	Category string `json:"Category" binding:"required,min=1"`
	Status   string `json:"Status" binding:"omitempty,oneof=Draft Published"`
}

type updateArticleRequest struct {
	Title    *string `json:"Title" binding:"omitempty,min=1,max=150"`
	Content  *string `json:"Content" binding:"omitempty,min=50"`
	Category *string `json:"Category" binding:"omitempty,min=1"`
	Status   *string `json:"Status" binding:"omitempty,oneof=Draft Published"`
}

// pageFromQuery reads page and size, accepting page_size as an alias.
func pageFromQuery(ctx *gin.Context) utils.Page {
	size := ctx.Query("size")
	if size == "" {
		size = ctx.Query("page_size")
	}
	return utils.ParsePage(ctx.Query("page"), size)
}

// Create publishes or drafts a new article for the authenticated author.
func (a *ArticleController) Create(ctx *gin.Context) {
	var req createArticleRequest
	if err := bindJSON(ctx, &req); err != nil {
		_ = ctx.Error(err)
		return
	}
	authorID, _ := middleware.UserID(ctx)

	article, err := a.articles.Create(ctx.Request.Context(), authorID, services.CreateArticleInput{
		Title:    req.Title,
		Content:  req.Content,
		Category: req.Category,
		Status:   models.ArticleStatus(req.Status),
	})
	if err != nil {
		_ = ctx.Error(err)
		return
	}
	utils.Created(ctx, "Article created successfully", article)
}

// Update applies a partial update to an article the caller owns.
func (a *ArticleController) Update(ctx *gin.Context) {
	var req updateArticleRequest
	if err := bindJSON(ctx, &req); err != nil {
		_ = ctx.Error(err)
		return
	}
	actorID, _ := middleware.UserID(ctx)

	in := services.UpdateArticleInput{
		Title:    req.Title,
		Content:  req.Content,
		Category: req.Category,
	}
	if req.Status != nil {
		status := models.ArticleStatus(*req.Status)
		in.Status = &status
	}

	article, err := a.articles.Update(ctx.Request.Context(), ctx.Param("id"), actorID, in)
	if err != nil {
		_ = ctx.Error(err)
		return
	}
	utils.Success(ctx, "Article updated successfully", article)
}

// Delete soft-deletes an article the caller owns.
func (a *ArticleController) Delete(ctx *gin.Context) {
	actorID, _ := middleware.UserID(ctx)
	if err := a.articles.SoftDelete(ctx.Request.Context(), ctx.Param("id"), actorID); err != nil {
		_ = ctx.Error(err)
		return
	}
	utils.Success(ctx, "Article deleted successfully", nil)
}

// ListMine pages through the caller's own articles. includeDeleted=true adds soft-deleted ones.
func (a *ArticleController) ListMine(ctx *gin.Context) {
	authorID, _ := middleware.UserID(ctx)
	page := pageFromQuery(ctx)

	articles, total, err := a.articles.ListMine(ctx.Request.Context(), authorID, page, ctx.Query("includeDeleted") == "true")
	if err != nil {
		_ = ctx.Error(err)
		return
	}
	utils.Paginated(ctx, msgArticlesRetrieved, articles, page, total)
}

// PublicFeed lists published articles with optional category, author and q filters.
func (a *ArticleController) PublicFeed(ctx *gin.Context) {
	page := pageFromQuery(ctx)
	filter := services.FeedFilter{
		Category: ctx.Query("category"),
		Author:   ctx.Query("author"),
		Query:    ctx.Query("q"),
	}

	articles, total, err := a.articles.PublicFeed(ctx.Request.Context(), page, filter)
	if err != nil {
		_ = ctx.Error(err)
		return
	}
	utils.Paginated(ctx, msgArticlesRetrieved, articles, page, total)
}

// GetByID returns a single article. Read tracking happens in middleware once the response is written.
func (a *ArticleController) GetByID(ctx *gin.Context) {
	article, err := a.articles.FindByID(ctx.Request.Context(), ctx.Param("id"))
	if err != nil {
		_ = ctx.Error(err)
		return
	}
	utils.Success(ctx, "Article retrieved successfully", article)
}
