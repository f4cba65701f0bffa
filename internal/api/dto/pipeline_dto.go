package dto

import (
	"time"

	"github.com/tsflow/pipeline-monitor/internal/pipeline/model"
)

type PipelineStatusResponse struct {
	Status              string `json:"status"`
	Message             string `json:"message"`
	RawRecords          int64  `json:"raw_records"`
	PreprocessedRecords int64  `json:"preprocessed_records"`
	SeriesReady         int64  `json:"series_ready"`
	CheckedAt           string `json:"checked_at"`
}

func NewPipelineStatusResponse(snapshot model.PipelineStatus) PipelineStatusResponse {
	return PipelineStatusResponse{
		Status:              snapshot.Status,
		Message:             snapshot.Message,
		RawRecords:          snapshot.RawRecords,
		PreprocessedRecords: snapshot.PreprocessedRecords,
		SeriesReady:         snapshot.SeriesReady,
		CheckedAt:           snapshot.CheckedAt.Format(time.RFC3339),
	}
}

type SeriesListResponse struct {
	Series []string `json:"series"`
	Count  int      `json:"count"`
}

type TriggerRequest struct {
	SeriesID            string `json:"series_id" binding:"required"`
	Interval            string `json:"interval"`
	Period              string `json:"period"`
	PreprocessingMethod string `json:"preprocessing_method"`
}

type TriggerResponse struct {
	Success  bool   `json:"success"`
	SeriesID string `json:"series_id"`
	JobID    string `json:"job_id,omitempty"`
	Message  string `json:"message"`
}

func NewTriggerResponse(result model.TriggerResult) TriggerResponse {
	return TriggerResponse{
		Success:  result.Success,
		SeriesID: result.SeriesID,
		JobID:    result.JobID,
		Message:  result.Message,
	}
}

type QueueStatusDTO struct {
	Queue     string `json:"queue"`
	Messages  int    `json:"messages"`
	Consumers int    `json:"consumers"`
	Error     string `json:"error,omitempty"`
}

type BusStatusResponse struct {
	Status    string           `json:"status"`
	Detail    string           `json:"detail,omitempty"`
	Queues    []QueueStatusDTO `json:"queues"`
	CheckedAt string           `json:"checked_at"`
}

func NewBusStatusResponse(bus model.BusStatus) BusStatusResponse {
	queues := make([]QueueStatusDTO, len(bus.Queues))
	for i, queue := range bus.Queues {
		queues[i] = QueueStatusDTO{
			Queue:     queue.Queue,
			Messages:  queue.Messages,
			Consumers: queue.Consumers,
			Error:     queue.Error,
		}
	}

	return BusStatusResponse{
		Status:    bus.Status,
		Detail:    bus.Detail,
		Queues:    queues,
		CheckedAt: bus.CheckedAt.Format(time.RFC3339),
	}
}

type StoreHealthDTO struct {
	Store  string `json:"store"`
	Status string `json:"status"`
	Error  string `json:"error,omitempty"`
}

type HealthResponse struct {
	Status  string           `json:"status"`
	Service string           `json:"service"`
	Version string           `json:"version"`
	Stores  []StoreHealthDTO `json:"stores"`
}
