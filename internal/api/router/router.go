package router

import (
	"github.com/gin-gonic/gin"
	"github.com/tsflow/pipeline-monitor/internal/api/handler"
)

// SetupRouter configures and returns the Gin router with all routes
func SetupRouter(deps *handler.Dependencies) *gin.Engine {
	r := gin.New()

	// Middleware
	r.Use(gin.Recovery())
	r.Use(RequestIDMiddleware())
	r.Use(LoggerMiddleware(deps.Logger))
	r.Use(CORSMiddleware())

	healthHandler := handler.NewHealthHandler(deps)
	r.GET("/health", healthHandler.Health)

	pipelineHandler := handler.NewPipelineHandler(deps)
	jobHandler := handler.NewJobHandler(deps)

	// API v1 routes
	v1 := r.Group("/api/v1")
	{
		pipeline := v1.Group("/pipeline")
		{
			// GET /api/v1/pipeline/status - Aggregated pipeline snapshot
			pipeline.GET("/status", pipelineHandler.GetStatus)

			// GET /api/v1/pipeline/series - Series available for analysis
			pipeline.GET("/series", pipelineHandler.ListSeries)

			// POST /api/v1/pipeline/trigger - Start a pipeline run
			pipeline.POST("/trigger", pipelineHandler.TriggerPipeline)
		}

		jobs := v1.Group("/jobs")
		{
			// GET /api/v1/jobs - Job history with stage breakdown
			jobs.GET("", jobHandler.ListJobs)

			// GET /api/v1/jobs/active - Currently running jobs
			jobs.GET("/active", jobHandler.ListActiveJobs)

			// GET /api/v1/jobs/:job_id/stages - Stage timeline of one job
			jobs.GET("/:job_id/stages", jobHandler.GetJobStages)
		}

		// GET /api/v1/events/status - Completion queue depths
		v1.GET("/events/status", pipelineHandler.GetEventBusStatus)
	}

	return r
}
