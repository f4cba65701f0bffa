package handler

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/tsflow/pipeline-monitor/internal/api/dto"
	"github.com/tsflow/pipeline-monitor/internal/pipeline/domain"
	"github.com/tsflow/pipeline-monitor/internal/pipeline/registry"
)

// JobHandler serves the job history and active-job views. These reads
// are advisory: a status store outage shows up as an empty list with an
// informational message, never as a 5xx.
type JobHandler struct {
	logger *slog.Logger
	jobs   *registry.Reader
}

// NewJobHandler creates a new JobHandler instance
func NewJobHandler(deps *Dependencies) *JobHandler {
	return &JobHandler{
		logger: deps.Logger,
		jobs:   deps.Jobs,
	}
}

// ListJobs handles GET /api/v1/jobs
// Returns the most recent jobs with their stage breakdown, newest first
func (h *JobHandler) ListJobs(c *gin.Context) {
	var req dto.ListJobsRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		h.logger.Error("Invalid query parameters", slog.String("error", err.Error()))
		c.JSON(http.StatusBadRequest, gin.H{
			"error": "limit must be an integer",
		})
		return
	}

	jobs := h.jobs.RecentJobs(c.Request.Context(), req.Limit)

	response := dto.ListJobsResponse{
		Jobs:  make([]dto.JobDTO, len(jobs)),
		Count: len(jobs),
	}
	for i, job := range jobs {
		response.Jobs[i] = dto.NewJobDTO(job)
	}
	if len(jobs) == 0 {
		response.Message = "No pipeline jobs recorded yet"
	}

	c.JSON(http.StatusOK, response)
}

// ListActiveJobs handles GET /api/v1/jobs/active
// Returns every running job with its in-flight stages grouped together
func (h *JobHandler) ListActiveJobs(c *gin.Context) {
	active := h.jobs.ActiveJobs(c.Request.Context())

	response := dto.ActiveJobsResponse{
		Jobs:  make([]dto.ActiveJobDTO, len(active)),
		Count: len(active),
	}
	for i, job := range active {
		response.Jobs[i] = dto.NewActiveJobDTO(job)
	}
	if len(active) == 0 {
		response.Message = "No jobs currently running"
	}

	c.JSON(http.StatusOK, response)
}

// GetJobStages handles GET /api/v1/jobs/:job_id/stages
// Returns one job's stage timeline in processing order; 404 only when
// the job id is unknown
func (h *JobHandler) GetJobStages(c *gin.Context) {
	jobID := c.Param("job_id")

	details, err := h.jobs.JobDetails(c.Request.Context(), jobID)
	if err != nil {
		if errors.Is(err, domain.ErrJobNotFound) {
			c.JSON(http.StatusNotFound, gin.H{
				"error": "job not found",
			})
			return
		}

		h.logger.Error("Failed to read job stages",
			slog.String("job_id", jobID),
			slog.Any("error", err),
		)
		c.JSON(http.StatusOK, dto.JobStagesResponse{
			JobID:   jobID,
			Stages:  []dto.StageDTO{},
			Message: "Stage records are temporarily unavailable",
		})
		return
	}

	stages := make([]dto.StageDTO, len(details.Stages))
	for i, stage := range details.Stages {
		stages[i] = dto.NewStageDTO(stage)
	}

	c.JSON(http.StatusOK, dto.JobStagesResponse{
		JobID:  details.Job.JobID,
		Status: details.Job.Status,
		Stages: stages,
	})
}
