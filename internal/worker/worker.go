package worker

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gofrs/flock"
	"github.com/google/uuid"

	"readrepeat/internal/config"
	"readrepeat/internal/jobs"
	"readrepeat/internal/logging"
	"readrepeat/internal/notifications"
	"readrepeat/internal/observe"
	"readrepeat/internal/preflight"
	"readrepeat/internal/queue"
	"readrepeat/internal/services"
)

const defaultErrorBackoff = 10 * time.Second

// recoverer is implemented by sources that can requeue jobs left in flight
// by a previous run.
type recoverer interface {
	Recover(ctx context.Context) (int64, error)
}

// Worker polls a Source and dispatches jobs one at a time.
type Worker struct {
	cfg          *config.Config
	source       jobs.Source
	registry     *jobs.Registry
	logger       *slog.Logger
	metrics      *observe.Metrics
	notifier     notifications.Service
	pollInterval time.Duration
	errorBackoff time.Duration
	lockPath     string
	preflight    func(context.Context) []preflight.Result
	now          func() time.Time

	running   atomic.Bool
	processed atomic.Int64
	failed    atomic.Int64

	mu        sync.Mutex
	current   *jobs.Job
	lastError string
	lastPoll  time.Time
}

// Option customizes a Worker.
type Option func(*Worker)

// WithLogger sets the worker logger.
func WithLogger(logger *slog.Logger) Option {
	return func(w *Worker) {
		if logger != nil {
			w.logger = logger
		}
	}
}

// WithMetrics records job outcomes on m.
func WithMetrics(m *observe.Metrics) Option {
	return func(w *Worker) { w.metrics = m }
}

// WithNotifier publishes finished jobs through svc.
func WithNotifier(svc notifications.Service) Option {
	return func(w *Worker) {
		if svc != nil {
			w.notifier = svc
		}
	}
}

// WithPollInterval overrides the idle wait between polls.
func WithPollInterval(d time.Duration) Option {
	return func(w *Worker) {
		if d > 0 {
			w.pollInterval = d
		}
	}
}

// WithErrorBackoff overrides the wait after a failed poll.
func WithErrorBackoff(d time.Duration) Option {
	return func(w *Worker) {
		if d > 0 {
			w.errorBackoff = d
		}
	}
}

// WithLockPath overrides the single-instance lock file. An empty path
// disables locking.
func WithLockPath(path string) Option {
	return func(w *Worker) { w.lockPath = path }
}

// WithPreflight runs checks once at startup and logs each failure.
func WithPreflight(fn func(context.Context) []preflight.Result) Option {
	return func(w *Worker) { w.preflight = fn }
}

// New constructs a worker.
func New(cfg *config.Config, source jobs.Source, registry *jobs.Registry, opts ...Option) (*Worker, error) {
	if cfg == nil || source == nil || registry == nil {
		return nil, errors.New("worker requires config, source, and handler registry")
	}
	w := &Worker{
		cfg:          cfg,
		source:       source,
		registry:     registry,
		logger:       logging.NewNop(),
		notifier:     notifications.NewService(nil),
		pollInterval: cfg.PollInterval(),
		errorBackoff: defaultErrorBackoff,
		lockPath:     cfg.LockPath(),
		now:          time.Now,
	}
	for _, opt := range opts {
		opt(w)
	}
	return w, nil
}

// Run processes jobs until ctx is cancelled. It returns nil on cancellation.
func (w *Worker) Run(ctx context.Context) error {
	if !w.running.CompareAndSwap(false, true) {
		return errors.New("worker already running")
	}
	defer w.running.Store(false)

	if w.lockPath != "" {
		if err := os.MkdirAll(filepath.Dir(w.lockPath), 0o755); err != nil {
			return fmt.Errorf("ensure lock directory: %w", err)
		}
		lock := flock.New(w.lockPath)
		ok, err := lock.TryLock()
		if err != nil {
			return fmt.Errorf("acquire lock: %w", err)
		}
		if !ok {
			return services.NewUserError(services.ErrConfiguration, "another readrepeat worker is already running")
		}
		defer func() {
			if err := lock.Unlock(); err != nil {
				w.logger.Warn("failed to release worker lock", logging.Error(err))
			}
		}()
	}

	if r, ok := w.source.(recoverer); ok {
		reset, err := r.Recover(ctx)
		if err != nil {
			return fmt.Errorf("recover interrupted jobs: %w", err)
		}
		if reset > 0 {
			w.logger.Info("requeued interrupted jobs", logging.Int64("count", reset))
		}
	}
	logging.PruneJobLogs(w.logger, w.cfg)
	if w.preflight != nil {
		for _, result := range preflight.Failed(w.preflight(ctx)) {
			logging.WarnWithContext(w.logger, "preflight check failed", "preflight_failed",
				logging.String("check", result.Name),
				logging.String("detail", result.Detail),
				logging.String(logging.FieldImpact, "jobs that need this dependency will fail"),
			)
		}
	}

	w.logger.Info("worker started",
		logging.String(logging.FieldEventType, "worker_start"),
		logging.Duration("poll_interval", w.pollInterval),
		logging.Any("kinds", w.registry.Kinds()),
	)
	for {
		if ctx.Err() != nil {
			w.logger.Info("worker stopped", logging.String(logging.FieldEventType, "worker_stop"))
			return nil
		}
		found, err := w.RunOnce(ctx)
		if err != nil {
			if ctx.Err() != nil {
				continue
			}
			w.setLastError(err)
			w.metrics.RecordPollError(ctx, "poll")
			w.logger.Error("failed to fetch next job",
				logging.Error(err),
				logging.String(logging.FieldEventType, "job_fetch_failed"),
				logging.String(logging.FieldErrorHint, "check that the lesson API or queue database is reachable"),
			)
			sleep(ctx, w.errorBackoff)
			continue
		}
		if !found {
			sleep(ctx, w.pollInterval)
		}
	}
}

// RunOnce fetches and processes at most one job. It reports whether a job
// was found; handler failures are reported to the source, not returned.
func (w *Worker) RunOnce(ctx context.Context) (bool, error) {
	w.mu.Lock()
	w.lastPoll = w.now()
	w.mu.Unlock()

	job, err := w.source.Next(ctx)
	if err != nil {
		return false, err
	}
	if job == nil {
		return false, nil
	}
	w.process(ctx, job)
	return true, nil
}

func (w *Worker) process(ctx context.Context, job *jobs.Job) {
	ctx = services.WithJobID(ctx, job.ID)
	ctx = services.WithJobKind(ctx, string(job.Kind))
	ctx = services.WithRequestID(ctx, uuid.NewString())

	base := w.logger
	jobLog, err := logging.NewJobLogger(w.logger, w.cfg.JobLogDir(), job.ID)
	if err != nil {
		logging.WarnWithContext(logging.WithContext(ctx, w.logger), "job log unavailable", "job_log_unavailable",
			logging.Error(err),
			logging.String(logging.FieldImpact, "job output only goes to the worker log"),
		)
	} else {
		base = jobLog.Logger
		defer func() {
			if err := jobLog.Close(); err != nil {
				w.logger.Warn("failed to close job log", logging.Error(err))
			}
		}()
	}
	ctx = logging.IntoContext(ctx, base)
	logger := logging.WithContext(ctx, base)

	w.setCurrent(job)
	defer w.setCurrent(nil)

	start := w.now()
	logger.Info("job started", logging.String(logging.FieldEventType, "job_start"))
	result, handleErr := w.registry.Dispatch(ctx, job)
	elapsed := w.now().Sub(start)

	if handleErr != nil {
		w.failed.Add(1)
		status := string(services.FailureStatus(handleErr))
		if errors.Is(handleErr, context.Canceled) {
			status = "cancelled"
		}
		w.metrics.RecordJob(ctx, string(job.Kind), status, elapsed)
		logging.ErrorWithContext(logger, "job failed", "job_failed",
			logging.Error(handleErr),
			logging.String("user_message", services.Message(handleErr)),
			logging.Duration("elapsed", elapsed),
		)
		reportCtx := context.WithoutCancel(ctx)
		if err := w.source.Fail(reportCtx, job, handleErr); err != nil {
			w.metrics.RecordPollError(ctx, "report")
			w.setLastError(err)
			logger.Error("failed to report job failure", logging.Error(err), logging.String(logging.FieldEventType, "job_report_failed"))
		}
		if status != "cancelled" {
			event := notifications.EventJobFailed
			if status == string(queue.StatusReview) {
				event = notifications.EventJobReview
			}
			payload := jobPayload(job)
			payload["error"] = services.Message(handleErr)
			w.notify(reportCtx, logger, event, payload)
		}
		return
	}

	w.processed.Add(1)
	w.metrics.RecordJob(ctx, string(job.Kind), string(queue.StatusCompleted), elapsed)
	logger.Info("job completed",
		logging.String(logging.FieldEventType, "job_complete"),
		logging.Int("sentences", len(result.Sentences)),
		logging.Int("updated_sentences", len(result.UpdatedSentences)),
		logging.Duration("elapsed", elapsed),
	)
	if err := w.source.Complete(context.WithoutCancel(ctx), job, result); err != nil {
		w.metrics.RecordPollError(ctx, "report")
		w.setLastError(err)
		logger.Error("failed to report job completion", logging.Error(err), logging.String(logging.FieldEventType, "job_report_failed"))
	}
	payload := jobPayload(job)
	payload["sentences"] = len(result.Sentences) + len(result.UpdatedSentences)
	w.notify(context.WithoutCancel(ctx), logger, notifications.EventJobCompleted, payload)
}

func (w *Worker) notify(ctx context.Context, logger *slog.Logger, event notifications.Event, payload notifications.Payload) {
	if err := w.notifier.Publish(ctx, event, payload); err != nil {
		logging.WarnWithContext(logger, "notification failed", "notification_failed",
			logging.Error(err),
			logging.String(logging.FieldImpact, "job outcome was not announced"),
		)
	}
}

func jobPayload(job *jobs.Job) notifications.Payload {
	payload := notifications.Payload{"jobId": job.ID, "kind": string(job.Kind)}
	if job.Lesson != nil && job.Lesson.ID != nil {
		payload["lessonId"] = *job.Lesson.ID
	}
	return payload
}

func (w *Worker) setCurrent(job *jobs.Job) {
	w.mu.Lock()
	w.current = job
	w.mu.Unlock()
}

func (w *Worker) setLastError(err error) {
	w.mu.Lock()
	w.lastError = err.Error()
	w.mu.Unlock()
}

func sleep(ctx context.Context, d time.Duration) {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
	case <-timer.C:
	}
}
