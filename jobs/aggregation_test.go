package jobs

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/xplorer1/eskalate-news-api/config"
	"github.com/xplorer1/eskalate-news-api/models"
)

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := filepath.Join(t.TempDir(), "jobs.db") + "?_pragma=foreign_keys(1)"
	db, err := config.InitDatabase(config.AppConfig{DBDriver: "sqlite", DatabaseURI: dsn, LogLevel: "silent"})
	require.NoError(t, err)
	return db
}

func seedArticle(t *testing.T, db *gorm.DB, title string) models.Article {
	t.Helper()
	author := models.User{Name: "Author", Email: fmt.Sprintf("%s@example.com", title), PasswordHash: "x", Role: models.RoleAuthor}
	require.NoError(t, db.Create(&author).Error)
	article := models.Article{Title: title, Content: "content", Category: "news", AuthorID: author.ID}
	require.NoError(t, db.Create(&article).Error)
	return article
}

func seedReads(t *testing.T, db *gorm.DB, articleID string, at time.Time, n int) {
	t.Helper()
	for i := 0; i < n; i++ {
		require.NoError(t, db.Create(&models.ReadLog{ArticleID: articleID, ReadAt: at.Add(time.Duration(i) * time.Second)}).Error)
	}
}

type rollup struct {
	ArticleID string
	Day       string
	ViewCount int64
}

func loadRollups(t *testing.T, db *gorm.DB) []rollup {
	t.Helper()
	var rows []models.DailyAnalytics
	require.NoError(t, db.Order("article_id, date").Find(&rows).Error)
	out := make([]rollup, 0, len(rows))
	for _, r := range rows {
		out = append(out, rollup{ArticleID: r.ArticleID, Day: r.Date.UTC().Format("2006-01-02"), ViewCount: r.ViewCount})
	}
	return out
}

func TestAggregationCountsPerUTCDay(t *testing.T) {
	db := newTestDB(t)
	a := seedArticle(t, db, "alpha")
	b := seedArticle(t, db, "beta")

	day := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	seedReads(t, db, a.ID, day.Add(23*time.Hour+59*time.Minute), 3)
	seedReads(t, db, a.ID, day.Add(10*time.Hour), 4)
	seedReads(t, db, a.ID, day.Add(36*time.Hour), 2)
	seedReads(t, db, b.ID, day.Add(time.Hour), 1)
	// 01:30 at UTC+3 is still the previous UTC day
	require.NoError(t, db.Create(&models.ReadLog{ArticleID: b.ID, ReadAt: time.Date(2026, 3, 2, 1, 30, 0, 0, time.FixedZone("EAT", 3*3600))}).Error)

	job := NewAggregationJob(db, AggregationOptions{BatchSize: 2})
	res, err := job.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 3, res.Groups)
	assert.Equal(t, 3, res.Upserted)

	rows := loadRollups(t, db)
	want := map[string]rollup{}
	for _, r := range []rollup{
		{ArticleID: a.ID, Day: "2026-03-01", ViewCount: 7},
		{ArticleID: a.ID, Day: "2026-03-02", ViewCount: 2},
		{ArticleID: b.ID, Day: "2026-03-01", ViewCount: 2},
	} {
		want[r.ArticleID+r.Day] = r
	}
	require.Len(t, rows, 3)
	for _, r := range rows {
		assert.Equal(t, want[r.ArticleID+r.Day], r)
	}
}

func TestAggregationTwoConsecutiveDays(t *testing.T) {
	db := newTestDB(t)
	a := seedArticle(t, db, "alpha")

	d := time.Date(2026, 5, 10, 0, 0, 0, 0, time.UTC)
	const n, m = 5, 3
	seedReads(t, db, a.ID, d.Add(9*time.Hour), n)
	seedReads(t, db, a.ID, d.Add(24*time.Hour+9*time.Hour), m)

	_, err := NewAggregationJob(db, AggregationOptions{}).Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, []rollup{
		{ArticleID: a.ID, Day: "2026-05-10", ViewCount: n},
		{ArticleID: a.ID, Day: "2026-05-11", ViewCount: m},
	}, loadRollups(t, db))
}

func TestAggregationIsIdempotent(t *testing.T) {
	db := newTestDB(t)
	a := seedArticle(t, db, "alpha")
	seedReads(t, db, a.ID, time.Date(2026, 5, 10, 9, 0, 0, 0, time.UTC), 4)

	job := NewAggregationJob(db, AggregationOptions{})
	_, err := job.Run(context.Background())
	require.NoError(t, err)
	first := loadRollups(t, db)

	_, err = job.Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, first, loadRollups(t, db))
	var count int64
	require.NoError(t, db.Model(&models.DailyAnalytics{}).Count(&count).Error)
	assert.EqualValues(t, 1, count)
}

func TestAggregationOverwritesStaleCounts(t *testing.T) {
	db := newTestDB(t)
	a := seedArticle(t, db, "alpha")
	day := time.Date(2026, 5, 10, 0, 0, 0, 0, time.UTC)
	require.NoError(t, db.Create(&models.DailyAnalytics{ArticleID: a.ID, Date: day, ViewCount: 99}).Error)
	seedReads(t, db, a.ID, day.Add(time.Hour), 2)

	_, err := NewAggregationJob(db, AggregationOptions{}).Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, []rollup{{ArticleID: a.ID, Day: "2026-05-10", ViewCount: 2}}, loadRollups(t, db))
}

func TestAggregationAbortsOnCancelledContext(t *testing.T) {
	db := newTestDB(t)
	a := seedArticle(t, db, "alpha")
	seedReads(t, db, a.ID, time.Date(2026, 5, 10, 9, 0, 0, 0, time.UTC), 2)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := NewAggregationJob(db, AggregationOptions{}).Run(ctx)

	assert.ErrorIs(t, err, context.Canceled)
	assert.Empty(t, loadRollups(t, db))
}

type stubLock struct {
	acquired bool
	err      error
	released bool
}

func (l *stubLock) Acquire(context.Context, string, time.Duration) (func(), bool, error) {
	return func() { l.released = true }, l.acquired, l.err
}

func TestAggregationLock(t *testing.T) {
	db := newTestDB(t)
	a := seedArticle(t, db, "alpha")
	seedReads(t, db, a.ID, time.Date(2026, 5, 10, 9, 0, 0, 0, time.UTC), 1)

	t.Run("held elsewhere skips", func(t *testing.T) {
		_, err := NewAggregationJob(db, AggregationOptions{Lock: &stubLock{}}).Run(context.Background())
		assert.ErrorIs(t, err, ErrSkipped)
		assert.Empty(t, loadRollups(t, db))
	})

	t.Run("lock error runs anyway", func(t *testing.T) {
		_, err := NewAggregationJob(db, AggregationOptions{Lock: &stubLock{err: errors.New("redis down")}}).Run(context.Background())
		require.NoError(t, err)
		assert.Len(t, loadRollups(t, db), 1)
	})

	t.Run("acquired is released", func(t *testing.T) {
		lock := &stubLock{acquired: true}
		_, err := NewAggregationJob(db, AggregationOptions{Lock: lock}).Run(context.Background())
		require.NoError(t, err)
		assert.True(t, lock.released)
	})
}
