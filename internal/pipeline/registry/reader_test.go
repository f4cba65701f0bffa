package registry

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tsflow/pipeline-monitor/internal/pipeline/domain"
	"github.com/tsflow/pipeline-monitor/internal/pipeline/model"
)

func newTestReader(t *testing.T, storage *Storage) *Reader {
	t.Helper()

	reader := NewReader(storage, 20, 100, testLogger())
	reader.now = func() time.Time {
		return time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	}
	return reader
}

func TestReader_RecentJobs_Limits(t *testing.T) {
	storage := newTestStorage(t)
	base := time.Date(2025, 6, 1, 10, 0, 0, 0, time.UTC)

	for i := 0; i < 25; i++ {
		ts := base.Add(time.Duration(i) * time.Second)
		seedJob(t, storage, model.Job{
			JobID:     jobID(i),
			SeriesID:  "AAPL",
			Status:    domain.JobStatusCompleted,
			CreatedAt: ts,
			UpdatedAt: ts,
		})
	}

	t.Run("zero limit uses the default", func(t *testing.T) {
		reader := newTestReader(t, storage)
		assert.Len(t, reader.RecentJobs(context.Background(), 0), 20)
	})

	t.Run("negative limit uses the default", func(t *testing.T) {
		reader := newTestReader(t, storage)
		assert.Len(t, reader.RecentJobs(context.Background(), -3), 20)
	})

	t.Run("explicit limit is honored", func(t *testing.T) {
		reader := newTestReader(t, storage)
		assert.Len(t, reader.RecentJobs(context.Background(), 5), 5)
	})

	t.Run("limit above the cap is clamped", func(t *testing.T) {
		reader := NewReader(storage, 5, 10, testLogger())
		assert.Len(t, reader.RecentJobs(context.Background(), 500), 10)
	})
}

func jobID(i int) string {
	return fmt.Sprintf("job-%03d", i)
}

func TestReader_RecentJobs_StagesAndDuration(t *testing.T) {
	storage := newTestStorage(t)
	reader := newTestReader(t, storage)
	base := time.Date(2025, 6, 1, 10, 0, 0, 0, time.UTC)

	// A finished job with its full stage trail.
	seedJob(t, storage, model.Job{
		JobID: "job-done", SeriesID: "AAPL", Status: domain.JobStatusCompleted,
		CreatedAt: base, UpdatedAt: base.Add(2 * time.Minute),
	})
	for _, stage := range domain.Stages() {
		recorded := 30.0
		seedStage(t, storage, model.JobStage{
			JobID: "job-done", Stage: stage, Status: domain.StageStatusCompleted,
			StartedAt: &base, DurationSeconds: &recorded,
		})
	}

	// A job still running has no job-level duration yet.
	seedJob(t, storage, model.Job{
		JobID: "job-live", SeriesID: "MSFT", Status: domain.JobStatusRunning,
		CreatedAt: base.Add(time.Minute), UpdatedAt: base.Add(time.Minute),
	})
	seedStage(t, storage, model.JobStage{
		JobID: "job-live", Stage: domain.StageIngestion, Status: domain.StageStatusRunning, StartedAt: &base,
	})

	history := reader.RecentJobs(context.Background(), 10)

	require.Len(t, history, 2)

	live := history[0]
	assert.Equal(t, "job-live", live.Job.JobID)
	assert.Equal(t, domain.JobStatusRunning, live.Job.Status)
	assert.Nil(t, live.DurationSeconds)
	require.Len(t, live.Stages, 1)

	done := history[1]
	assert.Equal(t, "job-done", done.Job.JobID)
	assert.Equal(t, domain.JobStatusCompleted, done.Job.Status)
	require.NotNil(t, done.DurationSeconds)
	assert.InDelta(t, 120.0, *done.DurationSeconds, 0.001)
	require.Len(t, done.Stages, 4)
	assert.Equal(t, domain.StageIngestion, done.Stages[0].Stage)
	assert.Equal(t, domain.StageAnomaly, done.Stages[3].Stage)
}

func TestReader_RecentJobs_DegradesToEmpty(t *testing.T) {
	storage := NewStorage(newTestRegistry(t, false))
	reader := newTestReader(t, storage)

	jobs := reader.RecentJobs(context.Background(), 10)

	require.NotNil(t, jobs)
	assert.Empty(t, jobs)
}

func TestReader_ActiveJobs(t *testing.T) {
	storage := newTestStorage(t)
	reader := newTestReader(t, storage)
	base := time.Date(2025, 6, 1, 11, 58, 30, 0, time.UTC)

	seedJob(t, storage, model.Job{
		JobID: "job-run", SeriesID: "AAPL", Status: domain.JobStatusRunning,
		CreatedAt: base, UpdatedAt: base,
	})
	recorded := 4.2
	seedStage(t, storage, model.JobStage{
		JobID: "job-run", Stage: domain.StageIngestion, Status: domain.StageStatusCompleted,
		StartedAt: &base, DurationSeconds: &recorded,
	})
	seedStage(t, storage, model.JobStage{
		JobID: "job-run", Stage: domain.StagePreprocessing, Status: domain.StageStatusRunning,
		StartedAt: &base,
	})
	seedStage(t, storage, model.JobStage{
		JobID: "job-run", Stage: domain.StageForecasting, Status: domain.StageStatusQueued,
	})

	seedJob(t, storage, model.Job{
		JobID: "job-bare", SeriesID: "MSFT", Status: domain.JobStatusRunning,
		CreatedAt: base.Add(time.Minute), UpdatedAt: base.Add(time.Minute),
	})

	active := reader.ActiveJobs(context.Background())

	require.Len(t, active, 2)

	// Newest first; no stage rows yet, so the row status stands.
	bare := active[0]
	assert.Equal(t, "job-bare", bare.Job.JobID)
	assert.Equal(t, domain.JobStatusRunning, bare.Job.Status)
	assert.InDelta(t, 30.0, bare.RunningSeconds, 0.001)
	assert.Empty(t, bare.Stages)

	run := active[1]
	assert.Equal(t, "job-run", run.Job.JobID)
	assert.Equal(t, domain.JobStatusRunning, run.Job.Status)
	assert.InDelta(t, 90.0, run.RunningSeconds, 0.001)
	require.Len(t, run.Stages, 3)

	// Recorded duration is kept, the running stage gets elapsed time
	// against the reader clock, queued stages stay empty.
	require.NotNil(t, run.Stages[0].DurationSeconds)
	assert.Equal(t, 4.2, *run.Stages[0].DurationSeconds)
	require.NotNil(t, run.Stages[1].DurationSeconds)
	assert.InDelta(t, 90.0, *run.Stages[1].DurationSeconds, 0.001)
	assert.Nil(t, run.Stages[2].DurationSeconds)
}

func TestReader_ActiveJobs_DerivedStatusReflectsFailure(t *testing.T) {
	storage := newTestStorage(t)
	reader := newTestReader(t, storage)
	base := time.Date(2025, 6, 1, 11, 0, 0, 0, time.UTC)

	// The writer has not settled the job row yet, but one stage already
	// failed after another completed.
	seedJob(t, storage, model.Job{
		JobID: "job-lag", SeriesID: "AAPL", Status: domain.JobStatusRunning,
		CreatedAt: base, UpdatedAt: base,
	})
	seedStage(t, storage, model.JobStage{
		JobID: "job-lag", Stage: domain.StageIngestion, Status: domain.StageStatusCompleted, StartedAt: &base,
	})
	seedStage(t, storage, model.JobStage{
		JobID: "job-lag", Stage: domain.StagePreprocessing, Status: domain.StageStatusFailed, StartedAt: &base,
	})

	active := reader.ActiveJobs(context.Background())

	require.Len(t, active, 1)
	assert.Equal(t, domain.JobStatusPartial, active[0].Job.Status)
}

func TestReader_ActiveJobs_DegradesToEmpty(t *testing.T) {
	storage := NewStorage(newTestRegistry(t, false))
	reader := newTestReader(t, storage)

	active := reader.ActiveJobs(context.Background())

	require.NotNil(t, active)
	assert.Empty(t, active)
}

func TestReader_JobDetails(t *testing.T) {
	storage := newTestStorage(t)
	reader := newTestReader(t, storage)
	base := time.Date(2025, 6, 1, 9, 0, 0, 0, time.UTC)

	errMsg := "connection reset by upstream"
	seedJob(t, storage, model.Job{
		JobID: "job-005", SeriesID: "TSLA", Status: domain.JobStatusFailed,
		CreatedAt: base, UpdatedAt: base, ErrorMessage: &errMsg,
	})
	seedStage(t, storage, model.JobStage{
		JobID: "job-005", Stage: domain.StageIngestion, Status: domain.StageStatusFailed,
		StartedAt: &base, ErrorMessage: &errMsg,
	})
	seedStage(t, storage, model.JobStage{
		JobID: "job-005", Stage: domain.StagePreprocessing, Status: domain.StageStatusQueued,
	})

	details, err := reader.JobDetails(context.Background(), "job-005")
	require.NoError(t, err)

	assert.Equal(t, "job-005", details.Job.JobID)
	assert.Equal(t, domain.JobStatusFailed, details.Job.Status)
	require.NotNil(t, details.Job.ErrorMessage)
	assert.Equal(t, errMsg, *details.Job.ErrorMessage)

	require.Len(t, details.Stages, 2)
	assert.Equal(t, domain.StageIngestion, details.Stages[0].Stage)
	require.NotNil(t, details.Stages[0].ErrorMessage)
	assert.Equal(t, errMsg, *details.Stages[0].ErrorMessage)
}

func TestReader_JobDetails_NotFound(t *testing.T) {
	storage := newTestStorage(t)
	reader := newTestReader(t, storage)

	details, err := reader.JobDetails(context.Background(), "missing")

	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrJobNotFound)
	assert.Nil(t, details)
}
