// Package heartbeat owns the writer half of the job record lifecycle: one
// row registered at startup, refreshed on a cron cadence, closed with a
// terminal state when the triggerer stops.
package heartbeat

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/robfig/cron/v3"
	"github.com/triggerd/triggerd/internal/hostid"
	"github.com/triggerd/triggerd/internal/model"
	"github.com/triggerd/triggerd/internal/repository"
)

// stateWriteTimeout bounds the terminal-state write, which runs after the
// run context is already canceled.
const stateWriteTimeout = 5 * time.Second

type Config struct {
	JobType string

	// Schedule is a cron expression; "@every <duration>" is the common form.
	Schedule string

	// MaxFailures is the number of consecutive refresh failures tolerated
	// before the job is marked failed and the writer stops.
	MaxFailures int
}

type Writer struct {
	repo     repository.Repository
	resolver hostid.Resolver
	cfg      Config
	schedule cron.Schedule
	now      func() time.Time
	log      *slog.Logger
}

func New(repo repository.Repository, resolver hostid.Resolver, cfg Config, log *slog.Logger) (*Writer, error) {
	schedule, err := cron.ParseStandard(cfg.Schedule)
	if err != nil {
		return nil, fmt.Errorf("parse heartbeat schedule %q: %w", cfg.Schedule, err)
	}

	if cfg.MaxFailures <= 0 {
		cfg.MaxFailures = 1
	}

	return &Writer{
		repo:     repo,
		resolver: resolver,
		cfg:      cfg,
		schedule: schedule,
		now:      time.Now,
		log:      log,
	}, nil
}

// Run registers the job row and refreshes its heartbeat until ctx is
// canceled. A clean stop marks the row shutdown; exhausting MaxFailures
// marks it failed and returns the last refresh error.
func (w *Writer) Run(ctx context.Context) error {
	hostname, err := w.resolver.Resolve()
	if err != nil {
		return fmt.Errorf("resolve host identity: %w", err)
	}

	started := w.now()
	jobID, err := w.repo.RegisterJob(ctx, model.Job{
		ID:              uuid.NewString(),
		JobType:         w.cfg.JobType,
		Hostname:        hostname,
		State:           model.JobStateRunning,
		LatestHeartbeat: started,
		StartedAt:       started,
	})
	if err != nil {
		return fmt.Errorf("register job: %w", err)
	}

	w.log.Info("triggerer registered",
		"job_id", jobID,
		"hostname", hostname,
		"schedule", w.cfg.Schedule,
	)

	failures := 0
	timer := time.NewTimer(time.Until(w.schedule.Next(w.now())))
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			w.close(jobID, model.JobStateShutdown)
			return nil
		case <-timer.C:
			if err := w.repo.RefreshHeartbeat(ctx, jobID, w.now()); err != nil {
				// A canceled run context is a stop, not a storage fault.
				if ctx.Err() != nil {
					w.close(jobID, model.JobStateShutdown)
					return nil
				}

				failures++
				w.log.Warn("heartbeat refresh failed",
					"job_id", jobID,
					"consecutive_failures", failures,
					"error", err,
				)

				if failures >= w.cfg.MaxFailures {
					w.close(jobID, model.JobStateFailed)
					return fmt.Errorf("heartbeat failed %d times in a row: %w", failures, err)
				}
			} else {
				failures = 0
				w.log.Debug("heartbeat refreshed", "job_id", jobID)
			}

			timer.Reset(time.Until(w.schedule.Next(w.now())))
		}
	}
}

// close runs on a fresh context; the run context is usually canceled by the
// time a terminal state is written.
func (w *Writer) close(jobID string, state model.JobState) {
	ctx, cancel := context.WithTimeout(context.Background(), stateWriteTimeout)
	defer cancel()

	if err := w.repo.MarkState(ctx, jobID, state); err != nil {
		w.log.Error("failed to mark job state",
			"job_id", jobID,
			"state", state,
			"error", err,
		)
	}
}
