package jobs

import (
	"context"
	"fmt"
	"sort"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/xplorer1/eskalate-news-api/metrics"
	"github.com/xplorer1/eskalate-news-api/models"
)

const (
	// AggregationJobName is the durable schedule key of the daily rollup.
	AggregationJobName = "daily-analytics-aggregation"

	aggregationLockKey = "lock:jobs:" + AggregationJobName
)

// RunResult summarises one aggregation run.
type RunResult struct {
	Groups   int
	Upserted int
}

type dayKey struct {
	articleID string
	day       time.Time
}

// AggregationJob recomputes DailyAnalytics from the full ReadLog history.
// Each (article, UTC day) row is overwritten with a fresh count, so running it
// again, or after an interrupted run, converges on the same table.
type AggregationJob struct {
	db        *gorm.DB
	batchSize int
	lock      RunLock
	lockTTL   time.Duration
	log       *zap.Logger
	metrics   *metrics.Metrics
}

// AggregationOptions configures an AggregationJob. Lock is optional.
type AggregationOptions struct {
	BatchSize int
	Lock      RunLock
	LockTTL   time.Duration
	Logger    *zap.Logger
	Metrics   *metrics.Metrics
}

func NewAggregationJob(db *gorm.DB, opts AggregationOptions) *AggregationJob {
	if opts.BatchSize <= 0 {
		opts.BatchSize = 1000
	}
	if opts.LockTTL <= 0 {
		opts.LockTTL = 30 * time.Minute
	}
	log := opts.Logger
	if log == nil {
		log = zap.NewNop()
	}
	return &AggregationJob{
		db:        db,
		batchSize: opts.BatchSize,
		lock:      opts.Lock,
		lockTTL:   opts.LockTTL,
		log:       log.Named("aggregation"),
		metrics:   opts.Metrics,
	}
}

// Execute adapts Run to the scheduler.
func (j *AggregationJob) Execute(ctx context.Context) error {
	res, err := j.Run(ctx)
	if err != nil {
		return err
	}
	j.log.Info("aggregation complete", zap.Int("groups", res.Groups), zap.Int("upserted", res.Upserted))
	return nil
}

// Run counts reads per (article, UTC day) and upserts every group. The first
// failure aborts the run; rows already written stay, and the next run fixes them.
func (j *AggregationJob) Run(ctx context.Context) (RunResult, error) {
	var res RunResult

	if j.lock != nil {
		release, acquired, err := j.lock.Acquire(ctx, aggregationLockKey, j.lockTTL)
		switch {
		case err != nil:
			// upserts are idempotent, so a lost lock only costs duplicate work
			j.log.Warn("aggregation lock unavailable, running unguarded", zap.Error(err))
		case !acquired:
			return res, fmt.Errorf("another instance holds %s: %w", aggregationLockKey, ErrSkipped)
		default:
			defer release()
		}
	}

	counts, err := j.countReads(ctx)
	if err != nil {
		return res, err
	}
	res.Groups = len(counts)
	j.metrics.SetAggregationGroups(len(counts))

	keys := make([]dayKey, 0, len(counts))
	for k := range counts {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(a, b int) bool {
		if keys[a].articleID != keys[b].articleID {
			return keys[a].articleID < keys[b].articleID
		}
		return keys[a].day.Before(keys[b].day)
	})

	for _, k := range keys {
		if err := ctx.Err(); err != nil {
			return res, fmt.Errorf("aggregation interrupted after %d of %d groups: %w", res.Upserted, res.Groups, err)
		}
		if err := j.upsert(ctx, k, counts[k]); err != nil {
			return res, err
		}
		res.Upserted++
	}
	return res, nil
}

func (j *AggregationJob) countReads(ctx context.Context) (map[dayKey]int64, error) {
	counts := make(map[dayKey]int64)
	var batch []models.ReadLog
	err := j.db.WithContext(ctx).
		Model(&models.ReadLog{}).
		Select("id", "article_id", "read_at").
		FindInBatches(&batch, j.batchSize, func(tx *gorm.DB, _ int) error {
			for _, rl := range batch {
				counts[dayKey{articleID: rl.ArticleID, day: models.UTCDay(rl.ReadAt)}]++
			}
			return ctx.Err()
		}).Error
	if err != nil {
		return nil, fmt.Errorf("scan read logs: %w", err)
	}
	return counts, nil
}

func (j *AggregationJob) upsert(ctx context.Context, k dayKey, count int64) error {
	row := models.DailyAnalytics{ArticleID: k.articleID, Date: k.day, ViewCount: count}
	err := j.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "article_id"}, {Name: "date"}},
		DoUpdates: clause.AssignmentColumns([]string{"view_count", "updated_at"}),
	}).Create(&row).Error
	if err != nil {
		return fmt.Errorf("upsert daily analytics %s/%s: %w", k.articleID, k.day.Format("2006-01-02"), err)
	}
	return nil
}
