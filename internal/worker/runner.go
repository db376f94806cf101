// Package worker scores accepted submissions in the background: it loads the
// submission, scores it against the current catalog snapshot, persists the
// report, and warms the report cache. The api package holds a worker.Enqueuer
// and never imports the concrete Runner or Job types.
package worker

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/nyashahama/mystery-shopper-backend/internal/db"
)

// ─── INTERFACES ───────────────────────────────────────────────────────────────

// Enqueuer is the narrow interface the api package uses to hand off a newly
// accepted submission.
type Enqueuer interface {
	Enqueue(ctx context.Context, submissionID int64) error
}

// Processor runs one unit of work. *Job is the production implementation.
type Processor interface {
	Run(ctx context.Context, submissionID int64) error
}

// Failer records a permanent failure. *store.Store satisfies it.
type Failer interface {
	MarkSubmissionFailed(ctx context.Context, id int64, reason string) (db.Submission, error)
}

// PendingLister finds submissions still waiting to be scored. db.Querier
// satisfies it.
type PendingLister interface {
	ListPendingSubmissions(ctx context.Context, limit int32) ([]int64, error)
}

// ─── RUNNER ───────────────────────────────────────────────────────────────────

// RunnerConfig holds tuning parameters for the Runner. Zero fields take the
// values from DefaultRunnerConfig.
type RunnerConfig struct {
	// Workers is the number of concurrent job goroutines. Default: 3.
	Workers int

	// PollInterval is how often the poller looks for pending submissions the
	// in-process channel missed (e.g. after a restart). Default: 30s.
	PollInterval time.Duration

	// JobTimeout is the per-job context deadline. Default: 30s.
	JobTimeout time.Duration

	// MaxRetries is the number of attempts before the submission is marked
	// failed. Default: 3.
	MaxRetries int

	// RetryBackoff is the base delay; attempt n waits RetryBackoff<<n.
	// Default: 1s.
	RetryBackoff time.Duration
}

// DefaultRunnerConfig returns safe production defaults.
func DefaultRunnerConfig() RunnerConfig {
	return RunnerConfig{
		Workers:      3,
		PollInterval: 30 * time.Second,
		JobTimeout:   30 * time.Second,
		MaxRetries:   3,
		RetryBackoff: time.Second,
	}
}

// Runner manages a pool of worker goroutines. It accepts jobs via an in-process
// channel (fast path, used for new submissions) and also polls the database
// for pending submissions left over from before a restart (recovery path).
type Runner struct {
	job     Processor
	failer  Failer
	pending PendingLister
	cfg     RunnerConfig
	logger  *slog.Logger

	queue    chan int64
	inflight sync.Map // submission id → struct{}; stops the poller double-queueing
	wg       sync.WaitGroup
}

// NewRunner constructs a Runner. Call Start to begin processing.
func NewRunner(
	job Processor,
	failer Failer,
	pending PendingLister,
	cfg RunnerConfig,
	logger *slog.Logger,
) *Runner {
	def := DefaultRunnerConfig()
	if cfg.Workers <= 0 {
		cfg.Workers = def.Workers
	}
	if cfg.PollInterval <= 0 {
		cfg.PollInterval = def.PollInterval
	}
	if cfg.JobTimeout <= 0 {
		cfg.JobTimeout = def.JobTimeout
	}
	if cfg.MaxRetries <= 0 {
		cfg.MaxRetries = def.MaxRetries
	}
	if cfg.RetryBackoff <= 0 {
		cfg.RetryBackoff = def.RetryBackoff
	}

	return &Runner{
		job:     job,
		failer:  failer,
		pending: pending,
		cfg:     cfg,
		logger:  logger,
		// Buffer = Workers*16 so Enqueue rarely fails under bursty intake.
		queue: make(chan int64, cfg.Workers*16),
	}
}

// Enqueue pushes a submission id onto the in-process channel. If the channel
// is full it returns an error rather than blocking the HTTP response; the
// poller picks the submission up later.
func (r *Runner) Enqueue(_ context.Context, submissionID int64) error {
	if _, busy := r.inflight.LoadOrStore(submissionID, struct{}{}); busy {
		return nil
	}
	select {
	case r.queue <- submissionID:
		r.logger.Info("worker: enqueued submission", "submission_id", submissionID)
		return nil
	default:
		r.inflight.Delete(submissionID)
		return errors.New("worker: queue is full, submission will be picked up by poller")
	}
}

// Start launches the worker pool and the poller. It blocks until ctx is
// cancelled:
//
//	go runner.Start(ctx)
func (r *Runner) Start(ctx context.Context) {
	r.logger.Info("worker: starting", "workers", r.cfg.Workers, "poll_interval", r.cfg.PollInterval)

	for i := range r.cfg.Workers {
		r.wg.Add(1)
		go r.work(ctx, i)
	}

	r.wg.Add(1)
	go r.poll(ctx)

	r.wg.Wait()
	r.logger.Info("worker: stopped")
}

func (r *Runner) work(ctx context.Context, id int) {
	defer r.wg.Done()
	log := r.logger.With("worker_id", id)
	log.Debug("worker: goroutine started")

	for {
		select {
		case <-ctx.Done():
			log.Debug("worker: goroutine stopping")
			return
		case submissionID := <-r.queue:
			r.runWithRetry(ctx, submissionID, log)
			r.inflight.Delete(submissionID)
		}
	}
}

func (r *Runner) poll(ctx context.Context) {
	defer r.wg.Done()
	ticker := time.NewTicker(r.cfg.PollInterval)
	defer ticker.Stop()

	// Run once immediately on startup to pick up anything from before restart.
	r.pollOnce(ctx)

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			r.pollOnce(ctx)
		}
	}
}

func (r *Runner) pollOnce(ctx context.Context) {
	ids, err := r.pending.ListPendingSubmissions(ctx, int32(cap(r.queue)))
	if err != nil {
		r.logger.Error("worker: poll failed", "error", err)
		return
	}
	for _, id := range ids {
		if _, busy := r.inflight.LoadOrStore(id, struct{}{}); busy {
			continue
		}
		select {
		case r.queue <- id:
			r.logger.Debug("worker: poller enqueued submission", "submission_id", id)
		default:
			// Queue full, next poll cycle.
			r.inflight.Delete(id)
			return
		}
	}
}

// runWithRetry executes the job up to MaxRetries times, then marks the
// submission failed so the poller stops returning it. A submission whose
// attempts were cut short by ctx cancellation stays pending.
func (r *Runner) runWithRetry(ctx context.Context, submissionID int64, log *slog.Logger) {
	var lastErr error

	for attempt := 1; attempt <= r.cfg.MaxRetries; attempt++ {
		jobCtx, cancel := context.WithTimeout(ctx, r.cfg.JobTimeout)
		lastErr = r.job.Run(jobCtx, submissionID)
		cancel()

		if lastErr == nil {
			log.Info("worker: job completed", "submission_id", submissionID, "attempt", attempt)
			return
		}
		if errors.Is(lastErr, ErrPermanent) {
			break
		}

		log.Warn("worker: job attempt failed",
			"submission_id", submissionID,
			"attempt", attempt,
			"max", r.cfg.MaxRetries,
			"error", lastErr,
		)

		if attempt < r.cfg.MaxRetries {
			// Exponential back-off: 2s, 4s, 8s … with the default base.
			backoff := r.cfg.RetryBackoff << attempt
			select {
			case <-ctx.Done():
				return
			case <-time.After(backoff):
			}
		}
	}

	// Interrupted by shutdown: leave the row pending for the next poller.
	if ctx.Err() != nil {
		log.Warn("worker: job interrupted by shutdown", "submission_id", submissionID, "error", lastErr)
		return
	}

	log.Error("worker: job permanently failed", "submission_id", submissionID, "error", lastErr)
	failCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 10*time.Second)
	defer cancel()
	if _, err := r.failer.MarkSubmissionFailed(failCtx, submissionID, lastErr.Error()); err != nil {
		log.Error("worker: failed to mark submission as failed", "submission_id", submissionID, "error", err)
	}
}
