package repository

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/triggerd/triggerd/internal/model"
)

type fakeResult struct {
	affected int64
}

func (r fakeResult) LastInsertId() (int64, error) {
	return 0, nil
}

func (r fakeResult) RowsAffected() (int64, error) {
	return r.affected, nil
}

type fakeConn struct {
	execQuery    string
	execArgs     []any
	execErr      error
	rowsAffected int64

	getQuery string
	getArgs  []any
	getErr   error
	onGet    func(dest interface{})
}

func (c *fakeConn) ExecContext(_ context.Context, query string, args ...any) (sql.Result, error) {
	c.execQuery = query
	c.execArgs = args

	if c.execErr != nil {
		return nil, c.execErr
	}

	return fakeResult{c.rowsAffected}, nil
}

func (c *fakeConn) GetContext(_ context.Context, dest interface{}, query string, args ...interface{}) error {
	c.getQuery = query
	c.getArgs = args

	if c.getErr != nil {
		return c.getErr
	}

	if c.onGet != nil {
		c.onGet(dest)
	}

	return nil
}

func TestRegisterJobShouldInsertAndReturnID(t *testing.T) {
	conn := &fakeConn{
		onGet: func(dest interface{}) {
			*dest.(*string) = "9e2c3f40-55a1-4f9b-8a8e-0f6f3f1a2b3c"
		},
	}
	repo := &repository{conn}

	now := time.Now()
	job := model.Job{
		ID:              "9e2c3f40-55a1-4f9b-8a8e-0f6f3f1a2b3c",
		JobType:         "triggerer",
		Hostname:        "worker-1",
		State:           model.JobStateRunning,
		LatestHeartbeat: now,
		StartedAt:       now,
	}

	id, err := repo.RegisterJob(context.Background(), job)
	require.NoError(t, err)

	assert.Equal(t, job.ID, id)
	assert.Contains(t, conn.getQuery, "INSERT INTO job")
	assert.Equal(t, []any{job.ID, "triggerer", "worker-1", model.JobStateRunning, now, now}, conn.getArgs)
}

func TestLatestHeartbeatShouldSelectNewestRowOnly(t *testing.T) {
	newest := time.Now()
	conn := &fakeConn{
		onGet: func(dest interface{}) {
			*dest.(*model.Job) = model.Job{
				ID:              "a",
				JobType:         "triggerer",
				Hostname:        "worker-1",
				State:           model.JobStateRunning,
				LatestHeartbeat: newest,
			}
		},
	}
	repo := &repository{conn}

	job, err := repo.LatestHeartbeat(context.Background(), "triggerer", "worker-1")
	require.NoError(t, err)

	assert.Equal(t, newest, job.LatestHeartbeat)
	assert.Equal(t, []any{"triggerer", "worker-1"}, conn.getArgs)

	// Older rows for the same host are history; the query must pick the
	// maximum-timestamp row.
	normalized := strings.Join(strings.Fields(conn.getQuery), " ")
	assert.Contains(t, normalized, "ORDER BY latest_heartbeat DESC LIMIT 1")
}

func TestLatestHeartbeatShouldMapMissingRow(t *testing.T) {
	repo := &repository{&fakeConn{getErr: sql.ErrNoRows}}

	_, err := repo.LatestHeartbeat(context.Background(), "triggerer", "worker-7")
	assert.ErrorIs(t, err, ErrNoJobFound)
}

func TestLatestHeartbeatShouldPropagateConnectionError(t *testing.T) {
	connErr := fmt.Errorf("connection refused")
	repo := &repository{&fakeConn{getErr: connErr}}

	_, err := repo.LatestHeartbeat(context.Background(), "triggerer", "worker-1")
	assert.ErrorIs(t, err, connErr)
}

func TestRefreshHeartbeatShouldUpdateRow(t *testing.T) {
	conn := &fakeConn{rowsAffected: 1}
	repo := &repository{conn}

	at := time.Now()
	err := repo.RefreshHeartbeat(context.Background(), "job-1", at)
	require.NoError(t, err)

	assert.Contains(t, conn.execQuery, "UPDATE job SET latest_heartbeat")
	assert.Equal(t, []any{"job-1", at}, conn.execArgs)
}

func TestRefreshHeartbeatShouldFailForUnknownJob(t *testing.T) {
	repo := &repository{&fakeConn{rowsAffected: 0}}

	err := repo.RefreshHeartbeat(context.Background(), "gone", time.Now())
	assert.ErrorIs(t, err, ErrNoJobFound)
}

func TestMarkStateShouldUpdateRow(t *testing.T) {
	tests := []struct {
		name  string
		state model.JobState
	}{
		{name: "shutdown", state: model.JobStateShutdown},
		{name: "failed", state: model.JobStateFailed},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			conn := &fakeConn{rowsAffected: 1}
			repo := &repository{conn}

			err := repo.MarkState(context.Background(), "job-1", tt.state)
			require.NoError(t, err)

			assert.Contains(t, conn.execQuery, "UPDATE job SET state")
			assert.Equal(t, []any{"job-1", tt.state}, conn.execArgs)
		})
	}
}
