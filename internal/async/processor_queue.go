package async

import (
	"context"
	"sync"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/joseph-ayodele/intake-tracker/internal/common"
	"github.com/joseph-ayodele/intake-tracker/internal/entity"
	"github.com/joseph-ayodele/intake-tracker/internal/ingest"
	"github.com/joseph-ayodele/intake-tracker/internal/logging"
)

// ErrClosed is returned by Enqueue after Shutdown.
var ErrClosed = errors.New("processor queue is shutting down")

// FileProcessor extracts and enqueues one source file.
type FileProcessor interface {
	ProcessFile(ctx context.Context, path string) (entity.ExtractionRecord, error)
}

// ProcessorQueue runs FileProcessor jobs on a fixed pool of workers.
type ProcessorQueue struct {
	proc    FileProcessor
	logger  *zap.Logger
	workers int
	timeout time.Duration

	ch       chan Job
	wg       sync.WaitGroup
	once     sync.Once
	stopOnce sync.Once

	mu     sync.RWMutex
	closed bool
	done   chan struct{}
}

type Option func(*ProcessorQueue)

func WithWorkers(n int) Option {
	return func(q *ProcessorQueue) {
		if n > 0 {
			q.workers = n
		}
	}
}
func WithQueueSize(n int) Option {
	return func(q *ProcessorQueue) {
		if n > 0 {
			q.ch = make(chan Job, n)
		}
	}
}
func WithProcessTimeout(d time.Duration) Option {
	return func(q *ProcessorQueue) {
		if d > 0 {
			q.timeout = d
		}
	}
}

func NewProcessorQueue(proc FileProcessor, logger *zap.Logger, opts ...Option) *ProcessorQueue {
	q := &ProcessorQueue{
		proc:    proc,
		logger:  logging.OrNop(logger),
		workers: 1,
		timeout: time.Minute,
		ch:      make(chan Job, 256),
		done:    make(chan struct{}),
	}
	for _, o := range opts {
		o(q)
	}
	q.start()
	return q
}

func (q *ProcessorQueue) start() {
	q.once.Do(func() {
		for i := 0; i < q.workers; i++ {
			q.wg.Add(1)
			go func(workerID int) {
				defer q.wg.Done()
				q.logger.Info("async.worker.started", zap.Int("worker_id", workerID))

				for job := range q.ch {
					ctx, cancel := context.WithTimeout(context.Background(), q.timeout)
					rec, err := q.proc.ProcessFile(ctx, job.Path)
					cancel()

					switch {
					case errors.Is(err, common.ErrSkipped):
						// write events on files that were already queued land here
						q.logger.Debug("async.job.skipped",
							zap.Int("worker_id", workerID),
							zap.String("path", job.Path),
							zap.Error(err),
						)
					case err != nil:
						q.logger.Error("async.job.failed",
							zap.Int("worker_id", workerID),
							zap.String("path", job.Path),
							zap.String("trace_id", job.TraceID),
							zap.Error(err),
						)
					default:
						q.logger.Info("async.job.done",
							zap.Int("worker_id", workerID),
							zap.String("path", job.Path),
							zap.String("record_id", rec.ID),
							zap.Duration("queued_for", time.Since(job.SubmittedAt)),
						)
					}
				}

				q.logger.Info("async.worker.stopped", zap.Int("worker_id", workerID))
			}(i + 1)
		}
	})
}

// Enqueue blocks while the buffer is full, until ctx is done or the queue shuts down.
func (q *ProcessorQueue) Enqueue(ctx context.Context, job Job) error {
	q.mu.RLock()
	defer q.mu.RUnlock()
	if q.closed {
		q.logger.Warn("async.enqueue.closed", zap.String("path", job.Path))
		return ErrClosed
	}
	if job.SubmittedAt.IsZero() {
		job.SubmittedAt = time.Now()
	}
	if job.TraceID == "" {
		job.TraceID = uuid.NewString()
	}
	select {
	case q.ch <- job:
		q.logger.Debug("async.enqueue.ok", zap.String("path", job.Path), zap.String("type", string(job.Type)))
		return nil
	default:
	}

	q.logger.Warn("async.enqueue.backpressure", zap.String("path", job.Path))
	select {
	case q.ch <- job:
		return nil
	case <-ctx.Done():
		return errors.Wrap(ctx.Err(), "enqueue")
	case <-q.done:
		return ErrClosed
	}
}

// Pump enqueues every item from the watcher until items closes or ctx is done.
func (q *ProcessorQueue) Pump(ctx context.Context, items <-chan ingest.Item) error {
	for {
		select {
		case <-ctx.Done():
			return nil
		case it, ok := <-items:
			if !ok {
				return nil
			}
			if err := q.Enqueue(ctx, Job{Path: it.Path, Type: it.Type}); err != nil {
				if errors.Is(err, ErrClosed) || ctx.Err() != nil {
					return nil
				}
				return err
			}
		}
	}
}

// Shutdown stops accepting jobs and waits for queued ones to drain, or for ctx.
func (q *ProcessorQueue) Shutdown(ctx context.Context) {
	// wake blocked enqueuers before taking the write lock
	q.stopOnce.Do(func() { close(q.done) })

	q.mu.Lock()
	if q.closed {
		q.mu.Unlock()
		return
	}
	q.closed = true
	close(q.ch)
	q.mu.Unlock()

	done := make(chan struct{})
	go func() { defer close(done); q.wg.Wait() }()

	select {
	case <-ctx.Done():
		q.logger.Warn("async.shutdown.interrupted")
	case <-done:
		q.logger.Info("async.shutdown.drained")
	}
}
