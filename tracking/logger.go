package tracking

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/xplorer1/eskalate-news-api/metrics"
	"github.com/xplorer1/eskalate-news-api/models"
)

// ErrQueueFull is reported to the sink when a read event is dropped because the queue is saturated.
var ErrQueueFull = errors.New("read log queue full")

// ErrLoggerStopped is reported to the sink for events dispatched after Stop.
var ErrLoggerStopped = errors.New("read logger stopped")

// ReadEvent is one article read waiting to be persisted.
type ReadEvent struct {
	ArticleID string
	ReaderID  *string
	ReadAt    time.Time
}

// ReadLogStore persists read events.
type ReadLogStore interface {
	InsertReadLog(ctx context.Context, event ReadEvent) error
}

// ErrorSink receives failures of the read path. They are never surfaced to clients.
type ErrorSink func(event ReadEvent, err error)

// GormReadLogStore appends ReadLog rows through GORM.
type GormReadLogStore struct {
	DB *gorm.DB
}

func (s GormReadLogStore) InsertReadLog(ctx context.Context, event ReadEvent) error {
	row := models.ReadLog{
		ArticleID: event.ArticleID,
		ReaderID:  event.ReaderID,
		ReadAt:    event.ReadAt,
	}
	if err := s.DB.WithContext(ctx).Create(&row).Error; err != nil {
		return fmt.Errorf("insert read log: %w", err)
	}
	return nil
}

// ReadLoggerOptions tunes the background queue.
type ReadLoggerOptions struct {
	Workers       int
	QueueSize     int
	InsertTimeout time.Duration
	Sink          ErrorSink
	Metrics       *metrics.Metrics
	Logger        *zap.Logger
}

// ReadLogger records article reads on a bounded background queue. LogRead
// never blocks the caller; each event is attempted once and failures only
// reach the error sink.
type ReadLogger struct {
	store   ReadLogStore
	opts    ReadLoggerOptions
	log     *zap.Logger
	metrics *metrics.Metrics
	now     func() time.Time

	queue chan ReadEvent
	wg    sync.WaitGroup

	mu      sync.RWMutex
	closed  bool
	started bool
}

// NewReadLogger builds a logger over store. Call Start before dispatching.
func NewReadLogger(store ReadLogStore, opts ReadLoggerOptions) *ReadLogger {
	if opts.Workers <= 0 {
		opts.Workers = 4
	}
	if opts.QueueSize <= 0 {
		opts.QueueSize = 1024
	}
	if opts.InsertTimeout <= 0 {
		opts.InsertTimeout = 5 * time.Second
	}
	log := opts.Logger
	if log == nil {
		log = zap.NewNop()
	}
	log = log.Named("read-logger")

	l := &ReadLogger{
		store:   store,
		opts:    opts,
		log:     log,
		metrics: opts.Metrics,
		now:     time.Now,
		queue:   make(chan ReadEvent, opts.QueueSize),
	}
	if l.opts.Sink == nil {
		l.opts.Sink = func(event ReadEvent, err error) {
			log.Warn("read event lost",
				zap.String("article_id", event.ArticleID),
				zap.Time("read_at", event.ReadAt),
				zap.Error(err),
			)
		}
	}
	return l
}

// Start launches the worker goroutines. Calling it more than once is a no-op.
func (l *ReadLogger) Start() {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.started || l.closed {
		return
	}
	l.started = true
	for i := 0; i < l.opts.Workers; i++ {
		l.wg.Add(1)
		go l.work()
	}
}

// LogRead dispatches a read of articleID. readerID is nil for anonymous reads.
func (l *ReadLogger) LogRead(articleID string, readerID *string) {
	event := ReadEvent{ArticleID: articleID, ReaderID: readerID, ReadAt: l.now().UTC()}

	l.mu.RLock()
	defer l.mu.RUnlock()
	if l.closed {
		l.report(event, ErrLoggerStopped)
		l.metrics.ReadDropped()
		return
	}

	select {
	case l.queue <- event:
		l.metrics.SetReadQueueDepth(len(l.queue))
	default:
		l.report(event, ErrQueueFull)
		l.metrics.ReadDropped()
	}
}

// Pending returns the number of queued events.
func (l *ReadLogger) Pending() int {
	return len(l.queue)
}

// Stop closes the queue and waits for workers to drain it, or for ctx to end.
func (l *ReadLogger) Stop(ctx context.Context) error {
	l.mu.Lock()
	if l.closed {
		l.mu.Unlock()
		return nil
	}
	l.closed = true
	close(l.queue)
	started := l.started
	l.mu.Unlock()

	if !started {
		return nil
	}

	done := make(chan struct{})
	go func() {
		l.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		l.log.Warn("read logger stopped before queue drained", zap.Int("pending", len(l.queue)))
		return ctx.Err()
	}
}

func (l *ReadLogger) work() {
	defer l.wg.Done()
	for event := range l.queue {
		l.metrics.SetReadQueueDepth(len(l.queue))
		l.write(event)
	}
}

func (l *ReadLogger) write(event ReadEvent) {
	ctx, cancel := context.WithTimeout(context.Background(), l.opts.InsertTimeout)
	defer cancel()

	defer func() {
		if r := recover(); r != nil {
			l.report(event, fmt.Errorf("read log insert panicked: %v", r))
			l.metrics.ReadFailed()
		}
	}()

	if err := l.store.InsertReadLog(ctx, event); err != nil {
		l.report(event, err)
		l.metrics.ReadFailed()
		return
	}
	l.metrics.ReadWritten()
}

func (l *ReadLogger) report(event ReadEvent, err error) {
	l.opts.Sink(event, err)
}
