package handler

import (
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/tsflow/pipeline-monitor/internal/api/dto"
	"github.com/tsflow/pipeline-monitor/internal/pipeline/catalog"
	"github.com/tsflow/pipeline-monitor/internal/pipeline/events"
	"github.com/tsflow/pipeline-monitor/internal/pipeline/status"
	"github.com/tsflow/pipeline-monitor/internal/pipeline/trigger"
)

// PipelineHandler serves the pipeline-wide views: status snapshot,
// series catalog, trigger and event bus
type PipelineHandler struct {
	logger  *slog.Logger
	status  *status.Aggregator
	trigger *trigger.Client
	catalog *catalog.Reader
	events  *events.Monitor
}

// NewPipelineHandler creates a new PipelineHandler instance
func NewPipelineHandler(deps *Dependencies) *PipelineHandler {
	return &PipelineHandler{
		logger:  deps.Logger,
		status:  deps.Status,
		trigger: deps.Trigger,
		catalog: deps.Catalog,
		events:  deps.Events,
	}
}

// GetStatus handles GET /api/v1/pipeline/status
// An unreadable store yields an error-status payload, not an HTTP failure.
func (h *PipelineHandler) GetStatus(c *gin.Context) {
	snapshot := h.status.Snapshot(c.Request.Context())

	c.JSON(http.StatusOK, dto.NewPipelineStatusResponse(snapshot))
}

// ListSeries handles GET /api/v1/pipeline/series
func (h *PipelineHandler) ListSeries(c *gin.Context) {
	series := h.catalog.ListSeries(c.Request.Context())

	c.JSON(http.StatusOK, dto.SeriesListResponse{
		Series: series,
		Count:  len(series),
	})
}

// TriggerPipeline handles POST /api/v1/pipeline/trigger
// The trigger outcome is always a 200 payload; success=false carries the
// upstream failure verbatim so the dashboard can render it.
func (h *PipelineHandler) TriggerPipeline(c *gin.Context) {
	var req dto.TriggerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.logger.Error("Invalid trigger request", slog.String("error", err.Error()))
		c.JSON(http.StatusBadRequest, gin.H{
			"error": "series_id is required",
		})
		return
	}

	result := h.trigger.Trigger(c.Request.Context(), req.SeriesID, trigger.Options{
		Interval:            req.Interval,
		Period:              req.Period,
		PreprocessingMethod: req.PreprocessingMethod,
	})

	c.JSON(http.StatusOK, dto.NewTriggerResponse(result))
}

// GetEventBusStatus handles GET /api/v1/events/status
func (h *PipelineHandler) GetEventBusStatus(c *gin.Context) {
	bus := h.events.Inspect(c.Request.Context())

	c.JSON(http.StatusOK, dto.NewBusStatusResponse(bus))
}
