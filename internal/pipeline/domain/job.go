package domain

// Job statuses recorded in the status store
const (
	JobStatusRunning   = "running"
	JobStatusCompleted = "completed"
	JobStatusFailed    = "failed"
	JobStatusPartial   = "partial"
)

// Stage statuses recorded per pipeline stage
const (
	StageStatusQueued    = "queued"
	StageStatusRunning   = "running"
	StageStatusCompleted = "completed"
	StageStatusFailed    = "failed"
)

// Pipeline stage names in processing order
const (
	StageIngestion     = "ingestion"
	StagePreprocessing = "preprocessing"
	StageForecasting   = "forecasting"
	StageAnomaly       = "anomaly"
)

// Overall pipeline statuses derived from store counts
const (
	PipelineStatusReady      = "ready"
	PipelineStatusProcessing = "processing"
	PipelineStatusWaiting    = "waiting"
	PipelineStatusError      = "error"
)

// Event bus statuses reported by the queue monitor
const (
	BusStatusActive   = "active"
	BusStatusError    = "error"
	BusStatusDisabled = "disabled"
)

// stageOrder ranks the known stages in processing order; unknown stages
// sort after all known ones
var stageOrder = map[string]int{
	StageIngestion:     0,
	StagePreprocessing: 1,
	StageForecasting:   2,
	StageAnomaly:       3,
}

// StageRank returns the processing-order rank of a stage name. Stages the
// monitor does not know about all share the rank after the known ones, so
// callers break ties by name.
func StageRank(stage string) int {
	if rank, ok := stageOrder[stage]; ok {
		return rank
	}
	return len(stageOrder)
}

// Stages returns the known stage names in processing order
func Stages() []string {
	return []string{StageIngestion, StagePreprocessing, StageForecasting, StageAnomaly}
}
