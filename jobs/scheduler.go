package jobs

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/xplorer1/eskalate-news-api/metrics"
	"github.com/xplorer1/eskalate-news-api/models"
)

// ErrSkipped lets a job report that it deliberately did nothing this run.
var ErrSkipped = errors.New("job run skipped")

// JobFunc is the body of a scheduled job. ctx carries the run timeout.
type JobFunc func(ctx context.Context) error

// Config tunes the scheduler loop.
type Config struct {
	// CheckInterval is how often due schedules are looked up (default: 30s)
	CheckInterval time.Duration
	// Timeout bounds a single run unless the job sets its own (default: 30m)
	Timeout time.Duration
}

// JobOption customises a registered job.
type JobOption func(*job)

// WithTimeout overrides the run timeout of one job.
func WithTimeout(d time.Duration) JobOption {
	return func(j *job) {
		if d > 0 {
			j.timeout = d
		}
	}
}

type job struct {
	name     string
	spec     string
	tz       string
	schedule cron.Schedule
	loc      *time.Location
	timeout  time.Duration
	fn       JobFunc
}

// Scheduler runs registered jobs from durable JobSchedule rows. Registration
// upserts by job name, so restarts never add a second trigger, and a slot
// missed while the process was down fires on the first check after startup.
type Scheduler struct {
	db      *gorm.DB
	cfg     Config
	log     *zap.Logger
	metrics *metrics.Metrics
	now     func() time.Time

	mu      sync.Mutex
	jobs    map[string]*job
	running bool
	cancel  context.CancelFunc
	doneCh  chan struct{}
}

// NewScheduler builds a scheduler over db.
func NewScheduler(db *gorm.DB, cfg Config, log *zap.Logger, m *metrics.Metrics) *Scheduler {
	if cfg.CheckInterval <= 0 {
		cfg.CheckInterval = 30 * time.Second
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 30 * time.Minute
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &Scheduler{
		db:      db,
		cfg:     cfg,
		log:     log.Named("scheduler"),
		metrics: m,
		now:     time.Now,
		jobs:    make(map[string]*job),
	}
}

// Register upserts the schedule row for name and binds fn to it. The stored
// next run time is kept when the cron expression and timezone are unchanged.
func (s *Scheduler) Register(ctx context.Context, name, cronExpr, tz string, fn JobFunc, opts ...JobOption) error {
	if name == "" || fn == nil {
		return errors.New("job name and function are required")
	}
	if tz == "" {
		tz = "UTC"
	}
	loc, err := time.LoadLocation(tz)
	if err != nil {
		return fmt.Errorf("job %s: load timezone: %w", name, err)
	}
	schedule, err := cron.ParseStandard(cronExpr)
	if err != nil {
		return fmt.Errorf("job %s: parse cron %q: %w", name, cronExpr, err)
	}

	j := &job{name: name, spec: cronExpr, tz: tz, schedule: schedule, loc: loc, timeout: s.cfg.Timeout, fn: fn}
	for _, opt := range opts {
		opt(j)
	}

	now := s.now().UTC()
	nextRun := j.next(now)

	var existing models.JobSchedule
	err = s.db.WithContext(ctx).Where("name = ?", name).Take(&existing).Error
	switch {
	case err == nil:
		if existing.Cron == cronExpr && existing.Timezone == tz {
			nextRun = existing.NextRunAt.UTC()
		}
	case errors.Is(err, gorm.ErrRecordNotFound):
	default:
		return fmt.Errorf("job %s: load schedule: %w", name, err)
	}

	row := models.JobSchedule{Name: name, Cron: cronExpr, Timezone: tz, NextRunAt: nextRun}
	err = s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "name"}},
		DoUpdates: clause.AssignmentColumns([]string{"cron", "timezone", "next_run_at", "updated_at"}),
	}).Create(&row).Error
	if err != nil {
		return fmt.Errorf("job %s: upsert schedule: %w", name, err)
	}

	s.mu.Lock()
	s.jobs[name] = j
	s.mu.Unlock()

	s.log.Info("job registered",
		zap.String("job", name),
		zap.String("cron", cronExpr),
		zap.String("timezone", tz),
		zap.Time("next_run_at", nextRun),
	)
	return nil
}

// Start launches the check loop. It checks once immediately so overdue jobs catch up.
func (s *Scheduler) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.running {
		return errors.New("scheduler already running")
	}
	runCtx, cancel := context.WithCancel(ctx)
	s.running = true
	s.cancel = cancel
	s.doneCh = make(chan struct{})

	s.log.Info("starting scheduler", zap.Duration("check_interval", s.cfg.CheckInterval), zap.Int("jobs", len(s.jobs)))
	go s.run(runCtx, s.doneCh)
	return nil
}

// Stop cancels any in-flight run and waits for the loop to exit, or for ctx to end.
func (s *Scheduler) Stop(ctx context.Context) error {
	s.mu.Lock()
	if !s.running {
		s.mu.Unlock()
		return nil
	}
	s.running = false
	cancel, done := s.cancel, s.doneCh
	s.mu.Unlock()

	cancel()
	select {
	case <-done:
		s.log.Info("scheduler stopped")
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (s *Scheduler) run(ctx context.Context, done chan struct{}) {
	defer close(done)

	ticker := time.NewTicker(s.cfg.CheckInterval)
	defer ticker.Stop()

	s.RunDue(ctx)
	for {
		select {
		case <-ticker.C:
			s.RunDue(ctx)
		case <-ctx.Done():
			return
		}
	}
}

// RunDue executes every registered job whose next run time has passed and
// returns the names of the jobs this instance claimed.
func (s *Scheduler) RunDue(ctx context.Context) []string {
	s.mu.Lock()
	registered := make([]*job, 0, len(s.jobs))
	for _, j := range s.jobs {
		registered = append(registered, j)
	}
	s.mu.Unlock()
	sort.Slice(registered, func(a, b int) bool { return registered[a].name < registered[b].name })

	var ran []string
	for _, j := range registered {
		if ctx.Err() != nil {
			break
		}
		claimed, err := s.claim(ctx, j)
		if err != nil {
			s.log.Error("claim failed", zap.String("job", j.name), zap.Error(err))
			continue
		}
		if !claimed {
			continue
		}
		ran = append(ran, j.name)
		s.execute(ctx, j)
	}
	return ran
}

// claim advances next_run_at of a due job with a revision guard, so only one
// instance wins a given slot.
func (s *Scheduler) claim(ctx context.Context, j *job) (bool, error) {
	var row models.JobSchedule
	if err := s.db.WithContext(ctx).Where("name = ?", j.name).Take(&row).Error; err != nil {
		return false, err
	}
	now := s.now().UTC()
	if row.NextRunAt.After(now) {
		return false, nil
	}

	res := s.db.WithContext(ctx).Model(&models.JobSchedule{}).
		Where("name = ? AND revision = ?", j.name, row.Revision).
		Updates(map[string]interface{}{
			"next_run_at": j.next(now),
			"revision":    row.Revision + 1,
			"updated_at":  now,
		})
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected == 1, nil
}

func (s *Scheduler) execute(ctx context.Context, j *job) {
	runCtx, cancel := context.WithTimeout(ctx, j.timeout)
	defer cancel()

	started := s.now()
	s.log.Info("job started", zap.String("job", j.name))
	err := s.invoke(runCtx, j)
	elapsed := s.now().Sub(started)

	status := models.JobStatusSucceeded
	switch {
	case err == nil:
		s.log.Info("job finished", zap.String("job", j.name), zap.Duration("elapsed", elapsed))
	case errors.Is(err, ErrSkipped):
		status = models.JobStatusSkipped
		s.log.Info("job skipped", zap.String("job", j.name), zap.Error(err))
	case errors.Is(err, context.DeadlineExceeded) || errors.Is(runCtx.Err(), context.DeadlineExceeded):
		status = models.JobStatusTimedOut
		s.log.Warn("job timed out, next run will reconcile", zap.String("job", j.name), zap.Duration("timeout", j.timeout), zap.Error(err))
	default:
		status = models.JobStatusFailed
		s.log.Error("job failed", zap.String("job", j.name), zap.Duration("elapsed", elapsed), zap.Error(err))
	}
	s.metrics.ObserveJobRun(j.name, status, elapsed)

	lastError := ""
	if err != nil && status != models.JobStatusSkipped {
		lastError = err.Error()
	}
	finished := s.now().UTC()
	// the run context may be done; the bookkeeping write still has to land
	recordCtx, recordCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer recordCancel()
	if err := s.db.WithContext(recordCtx).Model(&models.JobSchedule{}).
		Where("name = ?", j.name).
		Updates(map[string]interface{}{
			"last_run_at": finished,
			"last_status": status,
			"last_error":  lastError,
			"updated_at":  finished,
		}).Error; err != nil {
		s.log.Error("record job outcome failed", zap.String("job", j.name), zap.Error(err))
	}
}

func (s *Scheduler) invoke(ctx context.Context, j *job) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("job %s panicked: %v", j.name, r)
		}
	}()
	return j.fn(ctx)
}

func (j *job) next(after time.Time) time.Time {
	return j.schedule.Next(after.In(j.loc)).UTC()
}
