package scheduler

import (
	"context"

	"github.com/robfig/cron/v3"
	"go.uber.org/multierr"
	"go.uber.org/zap"

	"github.com/laundrypro/server/internal/services"
	"github.com/laundrypro/server/pkg/logger"
)

const (
	defaultRetentionDays    = 90
	defaultWebhookRetention = 30
	defaultMaxRetries       = 3
	defaultDispatchSpec     = "@every 1m"
	defaultRetrySpec        = "@every 10m"
	defaultCleanupSpec      = "@daily"
)

// Runner coordinates the background jobs behind the notification pipeline:
// dispatching scheduled messages, retrying failed ones, and enforcing
// retention on old records.
type Runner struct {
	notifications *services.NotificationService
	webhooks      *services.WebhookService
	cron          *cron.Cron
	log           *zap.Logger

	retentionDays    int
	webhookRetention int
	maxRetries       int

	dispatchSchedule string
	retrySchedule    string
	cleanupSchedule  string
}

// Option customises the Runner.
type Option func(*Runner)

// WithCron injects a preconfigured cron instance, primarily for testing.
func WithCron(c *cron.Cron) Option {
	return func(r *Runner) {
		if c != nil {
			r.cron = c
		}
	}
}

// WithRetentionDays adjusts how long notification history is retained.
func WithRetentionDays(days int) Option {
	return func(r *Runner) {
		if days > 0 {
			r.retentionDays = days
		}
	}
}

// WithWebhookRetentionDays adjusts how long processed webhook events are kept.
func WithWebhookRetentionDays(days int) Option {
	return func(r *Runner) {
		if days > 0 {
			r.webhookRetention = days
		}
	}
}

// WithMaxRetries caps how many times a failed notification is re-attempted.
func WithMaxRetries(n int) Option {
	return func(r *Runner) {
		if n > 0 {
			r.maxRetries = n
		}
	}
}

// WithDispatchSchedule overrides the cron expression for due dispatch.
func WithDispatchSchedule(spec string) Option {
	return func(r *Runner) {
		if spec != "" {
			r.dispatchSchedule = spec
		}
	}
}

// WithRetrySchedule overrides the cron expression for the retry pass.
func WithRetrySchedule(spec string) Option {
	return func(r *Runner) {
		if spec != "" {
			r.retrySchedule = spec
		}
	}
}

// WithCleanupSchedule overrides the cron expression for retention cleanup.
func WithCleanupSchedule(spec string) Option {
	return func(r *Runner) {
		if spec != "" {
			r.cleanupSchedule = spec
		}
	}
}

// New constructs a Runner with sensible defaults. A nil service disables the
// corresponding jobs.
func New(notifications *services.NotificationService, webhooks *services.WebhookService, opts ...Option) *Runner {
	runner := &Runner{
		notifications:    notifications,
		webhooks:         webhooks,
		retentionDays:    defaultRetentionDays,
		webhookRetention: defaultWebhookRetention,
		maxRetries:       defaultMaxRetries,
		dispatchSchedule: defaultDispatchSpec,
		retrySchedule:    defaultRetrySpec,
		cleanupSchedule:  defaultCleanupSpec,
		log:              logger.WithModule("scheduler"),
	}

	for _, opt := range opts {
		opt(runner)
	}

	if runner.cron == nil {
		runner.cron = cron.New(cron.WithLogger(cron.DiscardLogger))
	}

	return runner
}

// Start registers the jobs with the cron scheduler and launches it.
func (r *Runner) Start() error {
	if r.notifications != nil {
		if _, err := r.cron.AddFunc(r.dispatchSchedule, func() {
			ctx := context.Background()
			if sent, err := r.notifications.DispatchDue(ctx); err != nil {
				r.log.Warn("dispatch pass failed", zap.Error(err))
			} else if sent > 0 {
				r.log.Info("dispatched scheduled notifications", zap.Int("sent", sent))
			}
		}); err != nil {
			return err
		}

		if _, err := r.cron.AddFunc(r.retrySchedule, func() {
			ctx := context.Background()
			report, err := r.notifications.RetryFailed(ctx, r.maxRetries)
			if err != nil {
				r.log.Warn("retry pass failed", zap.Error(err))
				return
			}
			if report.Attempted > 0 {
				r.log.Info("retried failed notifications",
					zap.Int("attempted", report.Attempted),
					zap.Int("sent", report.Sent))
			}
		}); err != nil {
			return err
		}

		if _, err := r.cron.AddFunc(r.cleanupSchedule, func() {
			ctx := context.Background()
			if _, err := r.notifications.CleanupOlderThan(ctx, r.retentionDays); err != nil {
				r.log.Warn("notification cleanup failed", zap.Error(err))
			}
		}); err != nil {
			return err
		}
	}

	if r.webhooks != nil {
		if _, err := r.cron.AddFunc(r.cleanupSchedule, func() {
			ctx := context.Background()
			if _, err := r.webhooks.CleanupProcessedOlderThan(ctx, r.webhookRetention); err != nil {
				r.log.Warn("webhook event cleanup failed", zap.Error(err))
			}
		}); err != nil {
			return err
		}
	}

	r.cron.Start()
	return nil
}

// Stop halts the scheduler, waiting for running jobs to complete.
func (r *Runner) Stop() context.Context {
	if r.cron == nil {
		return context.Background()
	}
	return r.cron.Stop()
}

// RunOnce executes every configured job sequentially. Used in tests and
// during graceful shutdown.
func (r *Runner) RunOnce(ctx context.Context) error {
	if ctx == nil {
		ctx = context.Background()
	}

	var errs error

	if r.notifications != nil {
		if _, err := r.notifications.DispatchDue(ctx); err != nil {
			errs = multierr.Append(errs, err)
		}
		if _, err := r.notifications.RetryFailed(ctx, r.maxRetries); err != nil {
			errs = multierr.Append(errs, err)
		}
		if _, err := r.notifications.CleanupOlderThan(ctx, r.retentionDays); err != nil {
			errs = multierr.Append(errs, err)
		}
	}

	if r.webhooks != nil {
		if _, err := r.webhooks.CleanupProcessedOlderThan(ctx, r.webhookRetention); err != nil {
			errs = multierr.Append(errs, err)
		}
	}

	return errs
}
