package model

import "time"

// Job is one pipeline run recorded in the status store
type Job struct {
	JobID        string    `db:"job_id"`
	SeriesID     string    `db:"series_id"`
	Status       string    `db:"status"`
	CreatedAt    time.Time `db:"created_at"`
	UpdatedAt    time.Time `db:"updated_at"`
	ErrorMessage *string   `db:"error_message"`
}

// JobStage is the progress record of one stage within a job
type JobStage struct {
	JobID           string     `db:"job_id"`
	Stage           string     `db:"stage"`
	Status          string     `db:"status"`
	StartedAt       *time.Time `db:"started_at"`
	DurationSeconds *float64   `db:"duration_seconds"`
	ErrorMessage    *string    `db:"error_message"`
}

// JobWithStages pairs a job with its stage records in processing order
type JobWithStages struct {
	Job             Job
	Stages          []JobStage
	DurationSeconds *float64
}

// ActiveJob is a running job with the time it has spent in flight
type ActiveJob struct {
	JobWithStages
	RunningSeconds float64
}

// StoreCounts are the record counts read from the ingestion and
// preprocessing stores
type StoreCounts struct {
	RawRecords          int64
	PreprocessedRecords int64
	SeriesReady         int64
}

// PipelineStatus is the aggregated snapshot served to the dashboard
type PipelineStatus struct {
	Status              string
	Message             string
	RawRecords          int64
	PreprocessedRecords int64
	SeriesReady         int64
	CheckedAt           time.Time
}

// TriggerResult reports the outcome of one pipeline trigger attempt
type TriggerResult struct {
	Success  bool
	Message  string
	SeriesID string
	JobID    string
}

// QueueStatus is the state of one completion queue on the event bus
type QueueStatus struct {
	Queue     string
	Messages  int
	Consumers int
	Error     string
}

// BusStatus is the state of the event bus connection and its queues
type BusStatus struct {
	Status    string
	Detail    string
	Queues    []QueueStatus
	CheckedAt time.Time
}
