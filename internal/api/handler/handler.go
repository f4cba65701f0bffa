package handler

import (
	"log/slog"

	"github.com/tsflow/pipeline-monitor/internal/pipeline/catalog"
	"github.com/tsflow/pipeline-monitor/internal/pipeline/events"
	"github.com/tsflow/pipeline-monitor/internal/pipeline/registry"
	"github.com/tsflow/pipeline-monitor/internal/pipeline/status"
	"github.com/tsflow/pipeline-monitor/internal/pipeline/trigger"
	"github.com/tsflow/pipeline-monitor/shared/storepool"
)

// Dependencies holds all dependencies needed by handlers
type Dependencies struct {
	Logger  *slog.Logger
	Status  *status.Aggregator
	Jobs    *registry.Reader
	Trigger *trigger.Client
	Catalog *catalog.Reader
	Events  *events.Monitor
	Stores  *storepool.Registry
	Service string
	Version string
}
