package services

import (
	"net/http"
	"sort"
	"strings"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xplorer1/eskalate-news-api/models"
	"github.com/xplorer1/eskalate-news-api/utils"
)

func ptr[T any](v T) *T { return &v }

func articleIDs(articles []models.Article) []string {
	ids := make([]string, len(articles))
	for i, a := range articles {
		ids[i] = a.ID
	}
	return ids
}

func TestCreateDefaultsToDraft(t *testing.T) {
	db := newTestDB(t)
	author := seedUser(t, db, "Ada", models.RoleAuthor)
	svc := NewArticleService(db, nil, nil)

	a, err := svc.Create(bg, author.ID, CreateArticleInput{
		Title:    "  Hello  ",
		Content:  "<script>alert(1)</script>A long enough body for the article content requirement.",
		Category: "Tech",
	})
	require.NoError(t, err)
	assert.Equal(t, models.StatusDraft, a.Status)
	assert.Equal(t, "Hello", a.Title)
	assert.NotContains(t, a.Content, "<script>")
	assert.Equal(t, author.ID, a.AuthorID)
}

func TestCreateRejectsFieldsEmptiedBySanitizing(t *testing.T) {
	db := newTestDB(t)
	author := seedUser(t, db, "Ada", models.RoleAuthor)
	svc := NewArticleService(db, nil, nil)

	_, err := svc.Create(bg, author.ID, CreateArticleInput{
		Title:    "<b></b>",
		Content:  strings.Repeat("<script>x</script>", 4),
		Category: "   ",
	})
	requireAppError(t, err, http.StatusBadRequest, "Validation failed")
	assert.ElementsMatch(t, []string{
		"Title is required",
		"Content must be at least 50 characters",
		"Category is required",
	}, err.(*utils.AppError).Errors)

	var count int64
	require.NoError(t, db.Model(&models.Article{}).Count(&count).Error)
	assert.Zero(t, count)
}

func TestCreateCountsTitleInCharacters(t *testing.T) {
	db := newTestDB(t)
	author := seedUser(t, db, "Ada", models.RoleAuthor)
	svc := NewArticleService(db, nil, nil)
	body := "A long enough body for the article content requirement."

	a, err := svc.Create(bg, author.ID, CreateArticleInput{Title: strings.Repeat("é", 150), Content: body, Category: "Tech"})
	require.NoError(t, err)
	assert.Equal(t, strings.Repeat("é", 150), a.Title)

	_, err = svc.Create(bg, author.ID, CreateArticleInput{Title: strings.Repeat("é", 151), Content: body, Category: "Tech"})
	requireAppError(t, err, http.StatusBadRequest, "Validation failed")
}

func TestUpdateRejectsFieldsEmptiedBySanitizing(t *testing.T) {
	db := newTestDB(t)
	owner := seedUser(t, db, "Ada", models.RoleAuthor)
	a := seedArticle(t, db, owner, "Original", models.StatusDraft, time.Now())
	svc := NewArticleService(db, nil, nil)

	_, err := svc.Update(bg, a.ID, owner.ID, UpdateArticleInput{Title: ptr("<i>  </i>")})
	requireAppError(t, err, http.StatusBadRequest, "Validation failed")
	assert.Equal(t, []string{"Title is required"}, err.(*utils.AppError).Errors)

	_, err = svc.Update(bg, a.ID, owner.ID, UpdateArticleInput{Content: ptr("<p>short</p>" + strings.Repeat("<script>padding</script>", 3))})
	requireAppError(t, err, http.StatusBadRequest, "Validation failed")

	var stored models.Article
	require.NoError(t, db.Where("id = ?", a.ID).Take(&stored).Error)
	assert.Equal(t, "Original", stored.Title)
	assert.Equal(t, a.Content, stored.Content)
}

func TestUpdateIsPartialAndOwnerOnly(t *testing.T) {
	db := newTestDB(t)
	owner := seedUser(t, db, "Ada", models.RoleAuthor)
	other := seedUser(t, db, "Grace", models.RoleAuthor)
	a := seedArticle(t, db, owner, "Original", models.StatusDraft, time.Now())
	svc := NewArticleService(db, nil, nil)

	_, err := svc.Update(bg, a.ID, other.ID, UpdateArticleInput{Title: ptr("Hijacked")})
	requireAppError(t, err, http.StatusForbidden, "You can only edit your own articles")

	var unchanged models.Article
	require.NoError(t, db.Where("id = ?", a.ID).Take(&unchanged).Error)
	assert.Equal(t, "Original", unchanged.Title)

	updated, err := svc.Update(bg, a.ID, owner.ID, UpdateArticleInput{Status: ptr(models.StatusPublished)})
	require.NoError(t, err)
	assert.Equal(t, models.StatusPublished, updated.Status)
	assert.Equal(t, "Original", updated.Title)

	var stored models.Article
	require.NoError(t, db.Where("id = ?", a.ID).Take(&stored).Error)
	assert.Equal(t, models.StatusPublished, stored.Status)
	assert.Equal(t, a.Content, stored.Content)
}

func TestUpdateMissingOrDeleted(t *testing.T) {
	db := newTestDB(t)
	owner := seedUser(t, db, "Ada", models.RoleAuthor)
	a := seedArticle(t, db, owner, "Gone", models.StatusPublished, time.Now())
	svc := NewArticleService(db, nil, nil)
	require.NoError(t, svc.SoftDelete(bg, a.ID, owner.ID))

	_, err := svc.Update(bg, a.ID, owner.ID, UpdateArticleInput{Title: ptr("x")})
	requireAppError(t, err, http.StatusNotFound, "Article not found")

	_, err = svc.Update(bg, "does-not-exist", owner.ID, UpdateArticleInput{Title: ptr("x")})
	requireAppError(t, err, http.StatusNotFound, "Article not found")
}

func TestSoftDelete(t *testing.T) {
	db := newTestDB(t)
	owner := seedUser(t, db, "Ada", models.RoleAuthor)
	other := seedUser(t, db, "Grace", models.RoleAuthor)
	now := time.Now().UTC()
	kept := seedArticle(t, db, owner, "Kept", models.StatusPublished, now.Add(-time.Hour))
	gone := seedArticle(t, db, owner, "Gone", models.StatusPublished, now)
	svc := NewArticleService(db, nil, nil)

	requireAppError(t, svc.SoftDelete(bg, gone.ID, other.ID), http.StatusForbidden, "You can only delete your own articles")
	require.NoError(t, svc.SoftDelete(bg, gone.ID, owner.ID))

	// row is retained with a deletion stamp
	var raw models.Article
	require.NoError(t, db.Unscoped().Where("id = ?", gone.ID).Take(&raw).Error)
	assert.True(t, raw.DeletedAt.Valid)

	feed, total, err := svc.PublicFeed(bg, utils.NewPage(1, 10), FeedFilter{})
	require.NoError(t, err)
	assert.EqualValues(t, 1, total)
	assert.Equal(t, []string{kept.ID}, articleIDs(feed))

	mine, total, err := svc.ListMine(bg, owner.ID, utils.NewPage(1, 10), false)
	require.NoError(t, err)
	assert.EqualValues(t, 1, total)
	assert.Equal(t, []string{kept.ID}, articleIDs(mine))

	all, total, err := svc.ListMine(bg, owner.ID, utils.NewPage(1, 10), true)
	require.NoError(t, err)
	assert.EqualValues(t, 2, total)
	assert.Equal(t, []string{gone.ID, kept.ID}, articleIDs(all))

	_, err = svc.FindByID(bg, gone.ID)
	requireAppError(t, err, http.StatusNotFound, "News article no longer available")
	_, err = svc.FindByID(bg, "does-not-exist")
	requireAppError(t, err, http.StatusNotFound, "Article not found")
}

func TestFindByIDIncludesAuthorName(t *testing.T) {
	db := newTestDB(t)
	owner := seedUser(t, db, "Ada", models.RoleAuthor)
	a := seedArticle(t, db, owner, "Hello", models.StatusPublished, time.Now())
	svc := NewArticleService(db, nil, nil)

	got, err := svc.FindByID(bg, a.ID)
	require.NoError(t, err)
	require.NotNil(t, got.Author)
	assert.Equal(t, "Ada", got.Author.Name)
	assert.Empty(t, got.Author.Email)
}

func TestPublicFeedFilters(t *testing.T) {
	db := newTestDB(t)
	ada := seedUser(t, db, "Ada Lovelace", models.RoleAuthor)
	grace := seedUser(t, db, "Grace Hopper", models.RoleAuthor)
	base := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)

	engines := seedArticle(t, db, ada, "Analytical Engines", models.StatusPublished, base)
	compilers := seedArticle(t, db, grace, "Compilers 100%", models.StatusPublished, base.Add(time.Hour))
	seedArticle(t, db, grace, "Draft about engines", models.StatusDraft, base.Add(2*time.Hour))
	politics := seedArticle(t, db, ada, "Budget", models.StatusPublished, base.Add(3*time.Hour))
	require.NoError(t, db.Model(&politics).Update("category", "Politics").Error)

	svc := NewArticleService(db, nil, nil)
	page := utils.NewPage(1, 10)

	cases := []struct {
		name   string
		filter FeedFilter
		want   []string
	}{
		{name: "published only newest first", filter: FeedFilter{}, want: []string{politics.ID, compilers.ID, engines.ID}},
		{name: "category exact", filter: FeedFilter{Category: "Politics"}, want: []string{politics.ID}},
		{name: "author substring any case", filter: FeedFilter{Author: "HOPP"}, want: []string{compilers.ID}},
		{name: "query matches title", filter: FeedFilter{Query: "engine"}, want: []string{engines.ID}},
		{name: "query matches content", filter: FeedFilter{Query: "BODY TEXT"}, want: []string{politics.ID, compilers.ID, engines.ID}},
		{name: "wildcards are literal", filter: FeedFilter{Query: "100%"}, want: []string{compilers.ID}},
		{name: "underscore is literal", filter: FeedFilter{Query: "_"}, want: []string{}},
		{name: "combined", filter: FeedFilter{Author: "ada", Query: "engines"}, want: []string{engines.ID}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			articles, total, err := svc.PublicFeed(bg, page, tc.filter)
			require.NoError(t, err)
			assert.Equal(t, tc.want, articleIDs(articles))
			assert.EqualValues(t, len(tc.want), total)
		})
	}
}

func TestPublicFeedPagination(t *testing.T) {
	db := newTestDB(t)
	ada := seedUser(t, db, "Ada", models.RoleAuthor)
	base := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	var ids []string
	for i := 0; i < 5; i++ {
		ids = append([]string{seedArticle(t, db, ada, "A", models.StatusPublished, base.Add(time.Duration(i)*time.Minute)).ID}, ids...)
	}
	svc := NewArticleService(db, nil, nil)

	articles, total, err := svc.PublicFeed(bg, utils.NewPage(2, 2), FeedFilter{})
	require.NoError(t, err)
	assert.EqualValues(t, 5, total)
	assert.Equal(t, ids[2:4], articleIDs(articles))
}

func TestListingsBreakCreatedAtTiesByID(t *testing.T) {
	db := newTestDB(t)
	ada := seedUser(t, db, "Ada", models.RoleAuthor)
	same := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	var ids []string
	for i := 0; i < 5; i++ {
		ids = append(ids, seedArticle(t, db, ada, "Tied", models.StatusPublished, same).ID)
	}
	sort.Sort(sort.Reverse(sort.StringSlice(ids)))
	svc := NewArticleService(db, nil, nil)

	var feed, mine []string
	for n := 1; n <= 3; n++ {
		articles, _, err := svc.PublicFeed(bg, utils.NewPage(n, 2), FeedFilter{})
		require.NoError(t, err)
		feed = append(feed, articleIDs(articles)...)

		articles, _, err = svc.ListMine(bg, ada.ID, utils.NewPage(n, 2), false)
		require.NoError(t, err)
		mine = append(mine, articleIDs(articles)...)
	}
	assert.Equal(t, ids, feed)
	assert.Equal(t, ids, mine)
}

func TestPublicFeedCacheInvalidation(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	db := newTestDB(t)
	ada := seedUser(t, db, "Ada", models.RoleAuthor)
	svc := NewArticleService(db, utils.NewCache(client, time.Minute, nil), nil)
	page := utils.NewPage(1, 10)

	first, err := svc.Create(bg, ada.ID, CreateArticleInput{Title: "One", Content: "c", Category: "Tech", Status: models.StatusPublished})
	require.NoError(t, err)

	_, total, err := svc.PublicFeed(bg, page, FeedFilter{})
	require.NoError(t, err)
	assert.EqualValues(t, 1, total)
	assert.Len(t, mr.Keys(), 1)

	// a write behind the service's back is masked by the cache
	require.NoError(t, db.Create(&models.Article{Title: "Sneaky", Content: "c", Category: "Tech", Status: models.StatusPublished, AuthorID: ada.ID}).Error)
	_, total, err = svc.PublicFeed(bg, page, FeedFilter{})
	require.NoError(t, err)
	assert.EqualValues(t, 1, total)

	// writes through the service drop every cached page
	require.NoError(t, svc.SoftDelete(bg, first.ID, ada.ID))
	assert.Empty(t, mr.Keys())

	articles, total, err := svc.PublicFeed(bg, page, FeedFilter{})
	require.NoError(t, err)
	assert.EqualValues(t, 1, total)
	assert.Equal(t, "Sneaky", articles[0].Title)
}
