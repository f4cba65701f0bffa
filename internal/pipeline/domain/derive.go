package domain

import (
	"time"
)

// DeriveJobStatus folds per-stage statuses into a single job status.
//
// Queued stages carry no signal and are skipped. A job where nothing has
// started yet is still running. Once every started stage has failed the job
// is failed; a mix of failures and progress is partial. Otherwise the job
// is running while any stage runs, and completed when all started stages
// completed.
func DeriveJobStatus(stageStatuses []string) string {
	var running, completed, failed, started int

	for _, status := range stageStatuses {
		switch status {
		case StageStatusQueued:
			continue
		case StageStatusCompleted:
			completed++
		case StageStatusFailed:
			failed++
		default:
			// Running and anything unrecognized count as in flight.
			running++
		}
		started++
	}

	switch {
	case started == 0:
		return JobStatusRunning
	case failed > 0 && completed == 0 && running == 0:
		return JobStatusFailed
	case failed > 0:
		return JobStatusPartial
	case running > 0:
		return JobStatusRunning
	default:
		return JobStatusCompleted
	}
}

// JobDurationSeconds reports how long a job took, measured between its
// timestamps. While the writer has not advanced updated_at past created_at
// the job has no duration yet.
func JobDurationSeconds(createdAt, updatedAt time.Time) *float64 {
	if !updatedAt.After(createdAt) {
		return nil
	}
	seconds := updatedAt.Sub(createdAt).Seconds()
	return &seconds
}

// ElapsedSeconds reports the recorded duration when one exists, otherwise
// the time elapsed since the stage started. Stages that never started have
// no duration.
func ElapsedSeconds(startedAt *time.Time, recorded *float64, now time.Time) *float64 {
	if recorded != nil {
		return recorded
	}
	if startedAt == nil {
		return nil
	}
	elapsed := now.Sub(*startedAt).Seconds()
	if elapsed < 0 {
		elapsed = 0
	}
	return &elapsed
}
