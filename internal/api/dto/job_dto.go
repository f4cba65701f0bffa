package dto

import (
	"time"

	"github.com/tsflow/pipeline-monitor/internal/pipeline/domain"
	"github.com/tsflow/pipeline-monitor/internal/pipeline/model"
)

type ListJobsRequest struct {
	Limit int `form:"limit"`
}

type StageDTO struct {
	Stage           string   `json:"stage"`
	Status          string   `json:"status"`
	StartedAt       *string  `json:"started_at"`
	DurationSeconds *float64 `json:"duration_seconds"`
	ErrorMessage    *string  `json:"error_message,omitempty"`
}

func NewStageDTO(stage model.JobStage) StageDTO {
	var startedAt *string
	if stage.StartedAt != nil {
		formatted := stage.StartedAt.Format(time.RFC3339)
		startedAt = &formatted
	}

	return StageDTO{
		Stage:           stage.Stage,
		Status:          stage.Status,
		StartedAt:       startedAt,
		DurationSeconds: stage.DurationSeconds,
		ErrorMessage:    stage.ErrorMessage,
	}
}

type JobDTO struct {
	JobID           string     `json:"job_id"`
	SeriesID        string     `json:"series_id"`
	Status          string     `json:"status"`
	CreatedAt       string     `json:"created_at"`
	UpdatedAt       string     `json:"updated_at"`
	DurationSeconds *float64   `json:"duration_seconds"`
	ErrorMessage    *string    `json:"error_message,omitempty"`
	Stages          []StageDTO `json:"stages"`
}

func NewJobDTO(job model.JobWithStages) JobDTO {
	stages := make([]StageDTO, len(job.Stages))
	for i, stage := range job.Stages {
		stages[i] = NewStageDTO(stage)
	}

	return JobDTO{
		JobID:           job.Job.JobID,
		SeriesID:        job.Job.SeriesID,
		Status:          job.Job.Status,
		CreatedAt:       job.Job.CreatedAt.Format(time.RFC3339),
		UpdatedAt:       job.Job.UpdatedAt.Format(time.RFC3339),
		DurationSeconds: job.DurationSeconds,
		ErrorMessage:    job.Job.ErrorMessage,
		Stages:          stages,
	}
}

type ListJobsResponse struct {
	Jobs    []JobDTO `json:"jobs"`
	Count   int      `json:"count"`
	Message string   `json:"message,omitempty"`
}

type ActiveJobDTO struct {
	JobID          string     `json:"job_id"`
	SeriesID       string     `json:"series_id"`
	Status         string     `json:"status"`
	CreatedAt      string     `json:"created_at"`
	RunningSeconds float64    `json:"running_seconds"`
	RunningStages  []StageDTO `json:"running_stages"`
}

// NewActiveJobDTO keeps only the stages still in flight; the full stage
// trail is served by the per-job stages endpoint
func NewActiveJobDTO(job model.ActiveJob) ActiveJobDTO {
	running := make([]StageDTO, 0, len(job.Stages))
	for _, stage := range job.Stages {
		if stage.Status == domain.StageStatusRunning {
			running = append(running, NewStageDTO(stage))
		}
	}

	return ActiveJobDTO{
		JobID:          job.Job.JobID,
		SeriesID:       job.Job.SeriesID,
		Status:         job.Job.Status,
		CreatedAt:      job.Job.CreatedAt.Format(time.RFC3339),
		RunningSeconds: job.RunningSeconds,
		RunningStages:  running,
	}
}

type ActiveJobsResponse struct {
	Jobs    []ActiveJobDTO `json:"jobs"`
	Count   int            `json:"count"`
	Message string         `json:"message,omitempty"`
}

type JobStagesResponse struct {
	JobID   string     `json:"job_id"`
	Status  string     `json:"status"`
	Stages  []StageDTO `json:"stages"`
	Message string     `json:"message,omitempty"`
}
