// Package liveness decides whether the triggerer on the local host is alive,
// from the newest heartbeat row it finds in job storage. It never writes.
package liveness

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/triggerd/triggerd/internal/hostid"
	"github.com/triggerd/triggerd/internal/model"
	"github.com/triggerd/triggerd/internal/repository"
)

var (
	ErrNoHeartbeat    = fmt.Errorf("no heartbeat recorded for this host")
	ErrStaleHeartbeat = fmt.Errorf("heartbeat is stale")
	ErrTerminalState  = fmt.Errorf("job is in a terminal state")
)

type Config struct {
	JobType   string
	Threshold time.Duration
}

type Evaluator struct {
	repo     repository.Repository
	resolver hostid.Resolver
	cfg      Config
	now      func() time.Time
	log      *slog.Logger
}

func New(repo repository.Repository, resolver hostid.Resolver, cfg Config, log *slog.Logger) *Evaluator {
	return &Evaluator{
		repo:     repo,
		resolver: resolver,
		cfg:      cfg,
		now:      time.Now,
		log:      log,
	}
}

// Check returns nil iff the newest heartbeat row for this host is recent and
// still marked running. Every failure mode maps to a non-nil error; callers
// translate any error into a failure exit status.
func (e *Evaluator) Check(ctx context.Context) error {
	hostname, err := e.resolver.Resolve()
	if err != nil {
		return fmt.Errorf("resolve host identity: %w", err)
	}

	job, err := e.repo.LatestHeartbeat(ctx, e.cfg.JobType, hostname)
	if errors.Is(err, repository.ErrNoJobFound) {
		return fmt.Errorf("%w: host %q", ErrNoHeartbeat, hostname)
	}
	if err != nil {
		// Unreachable storage cannot attest liveness.
		return fmt.Errorf("query heartbeat: %w", err)
	}

	age := e.now().Sub(job.LatestHeartbeat)
	if age >= e.cfg.Threshold {
		return fmt.Errorf("%w: age %s exceeds threshold %s", ErrStaleHeartbeat, age.Round(time.Millisecond), e.cfg.Threshold)
	}

	if job.State != model.JobStateRunning {
		return fmt.Errorf("%w: state %q", ErrTerminalState, job.State)
	}

	e.log.Debug("triggerer alive",
		"hostname", hostname,
		"job_id", job.ID,
		"heartbeat_age", age,
	)

	return nil
}
