package async

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/joseph-ayodele/income-verifier/internal/common"
)

// ProcessorQueue runs analyses on a fixed pool of workers.
type ProcessorQueue struct {
	analyzer Analyzer
	logger   *slog.Logger
	workers  int
	timeout  time.Duration
	onDone   func(Outcome)

	ch   chan Job
	wg   sync.WaitGroup
	once sync.Once

	mu     sync.Mutex
	closed bool
}

var _ Queue = (*ProcessorQueue)(nil)

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

// WithOutcome registers fn to receive every finished job. It is called from
// the worker goroutines and must be safe for concurrent use.
func WithOutcome(fn func(Outcome)) Option {
	return func(q *ProcessorQueue) {
		q.onDone = fn
	}
}

func NewProcessorQueue(analyzer Analyzer, logger *slog.Logger, opts ...Option) *ProcessorQueue {
	if logger == nil {
		logger = slog.Default()
	}
	q := &ProcessorQueue{
		analyzer: analyzer,
		logger:   logger,
		workers:  2,
		timeout:  10 * time.Minute,
		ch:       make(chan Job, 64),
		onDone:   func(Outcome) {},
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
				q.logger.Debug("queue.worker.start", "worker_id", workerID)
				for job := range q.ch {
					q.run(workerID, job)
				}
				q.logger.Debug("queue.worker.stop", "worker_id", workerID)
			}(i + 1)
		}
	})
}

func (q *ProcessorQueue) run(workerID int, job Job) {
	start := time.Now()
	ctx, cancel := context.WithTimeout(context.Background(), q.timeout)
	ctx = common.WithRunID(ctx, job.ID)
	res, err := q.analyzer.Analyze(ctx, job.Request)
	cancel()

	out := Outcome{Job: job, Result: res, Err: err, Elapsed: time.Since(start)}
	if err != nil {
		q.logger.Error("queue.job.failed", "worker_id", workerID, "job_id", job.ID, "error", err, "elapsed_ms", out.Elapsed.Milliseconds())
	} else {
		q.logger.Info("queue.job.ok", "worker_id", workerID, "job_id", job.ID, "elapsed_ms", out.Elapsed.Milliseconds())
	}
	q.onDone(out)
}

// Enqueue blocks while the buffer is full, until ctx is done.
func (q *ProcessorQueue) Enqueue(ctx context.Context, job Job) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.closed {
		q.logger.Warn("queue.enqueue.closed", "job_id", job.ID)
		return ErrQueueClosed
	}
	if job.SubmittedAt.IsZero() {
		job.SubmittedAt = time.Now()
	}
	select {
	case q.ch <- job:
		q.logger.Info("queue.enqueue.ok", "job_id", job.ID, "documents", len(job.Request.Documents))
		return nil
	default:
	}
	q.logger.Warn("queue.enqueue.backpressure", "job_id", job.ID)
	select {
	case q.ch <- job:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Shutdown stops accepting jobs and waits for the queued ones to finish.
func (q *ProcessorQueue) Shutdown(ctx context.Context) error {
	q.mu.Lock()
	if q.closed {
		q.mu.Unlock()
		return nil
	}
	q.closed = true
	close(q.ch)
	q.mu.Unlock()

	done := make(chan struct{})
	go func() { defer close(done); q.wg.Wait() }()

	select {
	case <-ctx.Done():
		q.logger.Warn("queue.shutdown.interrupted")
		return ctx.Err()
	case <-done:
		q.logger.Info("queue.shutdown.ok")
		return nil
	}
}
