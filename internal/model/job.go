package model

import "time"

type JobState string

const (
	JobStateRunning  JobState = "running"
	JobStateShutdown JobState = "shutdown"
	JobStateFailed   JobState = "failed"
)

// Job is one heartbeat record in the job table. A host may accumulate many
// rows over restarts; only the row with the maximum LatestHeartbeat is
// current.
type Job struct {
	ID              string    `db:"id"`
	JobType         string    `db:"job_type"`
	Hostname        string    `db:"hostname"`
	State           JobState  `db:"state"`
	LatestHeartbeat time.Time `db:"latest_heartbeat"`
	StartedAt       time.Time `db:"started_at"`
}
