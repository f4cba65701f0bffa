package registry

import (
	"context"
	"log/slog"
	"time"

	"github.com/tsflow/pipeline-monitor/internal/pipeline/domain"
	"github.com/tsflow/pipeline-monitor/internal/pipeline/model"
)

// Reader serves the dashboard's job views. List reads never fail the
// caller: a store that is down or slow yields an empty result and a log
// line, and the dashboard renders what it has.
type Reader struct {
	storage      *Storage
	defaultLimit int
	maxLimit     int
	logger       *slog.Logger
	now          func() time.Time
}

func NewReader(storage *Storage, defaultLimit, maxLimit int, logger *slog.Logger) *Reader {
	return &Reader{
		storage:      storage,
		defaultLimit: defaultLimit,
		maxLimit:     maxLimit,
		logger:       logger,
		now:          time.Now,
	}
}

// RecentJobs returns up to limit jobs with their stage breakdown, newest
// first. A limit of zero or less falls back to the configured default;
// limits above the cap are clamped.
func (r *Reader) RecentJobs(ctx context.Context, limit int) []model.JobWithStages {
	if limit <= 0 {
		limit = r.defaultLimit
	}
	if limit > r.maxLimit {
		limit = r.maxLimit
	}

	jobs, err := r.storage.ListRecentJobs(ctx, limit)
	if err != nil {
		r.logger.Error("Failed to read job history",
			slog.Int("limit", limit),
			slog.Any("error", err),
		)
		return []model.JobWithStages{}
	}

	stagesByJob := r.stagesFor(ctx, jobs)

	now := r.now()
	history := make([]model.JobWithStages, 0, len(jobs))
	for _, job := range jobs {
		history = append(history, r.withStages(job, stagesByJob[job.JobID], now))
	}

	return history
}

// ActiveJobs returns the currently running jobs with their stage records
// and the time each has spent in flight. Each job's status is re-derived
// from its stages so a stage failure shows up before the writer settles
// the job row.
func (r *Reader) ActiveJobs(ctx context.Context) []model.ActiveJob {
	jobs, err := r.storage.ListActiveJobs(ctx)
	if err != nil {
		r.logger.Error("Failed to read active jobs", slog.Any("error", err))
		return []model.ActiveJob{}
	}

	stagesByJob := r.stagesFor(ctx, jobs)

	now := r.now()
	active := make([]model.ActiveJob, 0, len(jobs))
	for _, job := range jobs {
		running := now.Sub(job.CreatedAt).Seconds()
		if running < 0 {
			running = 0
		}
		active = append(active, model.ActiveJob{
			JobWithStages:  r.withStages(job, stagesByJob[job.JobID], now),
			RunningSeconds: running,
		})
	}

	return active
}

// JobDetails returns one job with its stage records. Unlike the list
// reads this propagates failures: an unknown job id is ErrJobNotFound
// and the caller decides how to present store trouble.
func (r *Reader) JobDetails(ctx context.Context, jobID string) (*model.JobWithStages, error) {
	job, err := r.storage.GetJobByID(ctx, jobID)
	if err != nil {
		return nil, err
	}

	stages, err := r.storage.ListStages(ctx, jobID)
	if err != nil {
		return nil, err
	}

	details := r.withStages(*job, stages, r.now())
	return &details, nil
}

// stagesFor fetches the stage records of the listed jobs in one query.
// When the stage read fails the jobs are shown without stage detail
// rather than dropped.
func (r *Reader) stagesFor(ctx context.Context, jobs []model.Job) map[string][]model.JobStage {
	if len(jobs) == 0 {
		return nil
	}

	ids := make([]string, len(jobs))
	for i, job := range jobs {
		ids[i] = job.JobID
	}

	stagesByJob, err := r.storage.ListStagesForJobs(ctx, ids)
	if err != nil {
		r.logger.Warn("Failed to read stages for listed jobs",
			slog.Int("jobs", len(ids)),
			slog.Any("error", err),
		)
		return nil
	}

	return stagesByJob
}

// withStages attaches stage records to a job, fills in elapsed durations
// for stages still running, re-derives the job status and computes the
// job-level duration
func (r *Reader) withStages(job model.Job, stages []model.JobStage, now time.Time) model.JobWithStages {
	statuses := make([]string, len(stages))
	for i := range stages {
		stages[i].DurationSeconds = domain.ElapsedSeconds(stages[i].StartedAt, stages[i].DurationSeconds, now)
		statuses[i] = stages[i].Status
	}

	if len(stages) > 0 {
		job.Status = domain.DeriveJobStatus(statuses)
	}

	var duration *float64
	if job.Status != domain.JobStatusRunning {
		duration = domain.JobDurationSeconds(job.CreatedAt, job.UpdatedAt)
	}

	return model.JobWithStages{
		Job:             job,
		Stages:          stages,
		DurationSeconds: duration,
	}
}
