package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/triggerd/triggerd/internal/model"

	_ "github.com/lib/pq"
)

var ErrNoJobFound = fmt.Errorf("no job found")

const schema = `
CREATE TABLE IF NOT EXISTS job (
	id               UUID PRIMARY KEY,
	job_type         TEXT NOT NULL,
	hostname         TEXT NOT NULL,
	state            TEXT NOT NULL,
	latest_heartbeat TIMESTAMPTZ NOT NULL,
	started_at       TIMESTAMPTZ NOT NULL
);

CREATE INDEX IF NOT EXISTS job_heartbeat_idx
	ON job (job_type, hostname, latest_heartbeat DESC);
`

type Repository interface {
	EnsureSchema(ctx context.Context) error
	RegisterJob(ctx context.Context, job model.Job) (string, error)
	RefreshHeartbeat(ctx context.Context, jobID string, at time.Time) error
	MarkState(ctx context.Context, jobID string, state model.JobState) error
	LatestHeartbeat(ctx context.Context, jobType, hostname string) (model.Job, error)
}

type Connection interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	GetContext(ctx context.Context, dest interface{}, query string, args ...interface{}) error
}

type repository struct {
	db Connection
}

func (r *repository) EnsureSchema(ctx context.Context) error {
	_, err := r.db.ExecContext(ctx, schema)
	return err
}

func (r *repository) RegisterJob(ctx context.Context, job model.Job) (string, error) {
	var jobID string
	err := r.db.GetContext(
		ctx,
		&jobID,
		`INSERT INTO job (id, job_type, hostname, state, latest_heartbeat, started_at)
		 VALUES ($1, $2, $3, $4, $5, $6)
		 RETURNING id`,
		job.ID,
		job.JobType,
		job.Hostname,
		job.State,
		job.LatestHeartbeat,
		job.StartedAt,
	)

	return jobID, err
}

func (r *repository) RefreshHeartbeat(ctx context.Context, jobID string, at time.Time) error {
	res, err := r.db.ExecContext(
		ctx,
		`UPDATE job SET latest_heartbeat = $2 WHERE id = $1`,
		jobID,
		at,
	)
	if err != nil {
		return err
	}

	return oneRowAffected(res)
}

func (r *repository) MarkState(ctx context.Context, jobID string, state model.JobState) error {
	res, err := r.db.ExecContext(
		ctx,
		`UPDATE job SET state = $2 WHERE id = $1`,
		jobID,
		state,
	)
	if err != nil {
		return err
	}

	return oneRowAffected(res)
}

func (r *repository) LatestHeartbeat(ctx context.Context, jobType, hostname string) (model.Job, error) {
	var job model.Job
	err := r.db.GetContext(
		ctx,
		&job,
		`SELECT id, job_type, hostname, state, latest_heartbeat, started_at
		 FROM job
		 WHERE job_type = $1 AND hostname = $2
		 ORDER BY latest_heartbeat DESC
		 LIMIT 1`,
		jobType,
		hostname,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return model.Job{}, ErrNoJobFound
	}

	return job, err
}

func oneRowAffected(res sql.Result) error {
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}

	if affected == 0 {
		return ErrNoJobFound
	}

	return nil
}

func NewRepositoryWoTx(ctx context.Context, conn string) (Repository, func() error, error) {
	db, err := sqlx.ConnectContext(ctx, "postgres", conn)
	if err != nil {
		return nil, nil, err
	}

	return &repository{db}, db.Close, nil
}

func NewRepositoryWithTx(ctx context.Context, conn string, opts *sql.TxOptions) (Repository, func() error, error) {
	db, err := sqlx.ConnectContext(ctx, "postgres", conn)
	if err != nil {
		return nil, nil, err
	}

	tx, err := db.BeginTxx(ctx, opts)
	if err != nil {
		err1 := db.Close()
		return nil, nil, errors.Join(err, err1)
	}

	close := func() error {
		err1 := tx.Rollback()
		err2 := db.Close()

		return errors.Join(err1, err2)
	}

	return &repository{tx}, close, nil
}
