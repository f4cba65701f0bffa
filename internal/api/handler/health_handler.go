package handler

import (
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/tsflow/pipeline-monitor/internal/api/dto"
	"github.com/tsflow/pipeline-monitor/shared/storepool"
	"golang.org/x/sync/errgroup"
)

// HealthHandler reports service liveness plus the reachability of every
// configured store. Stores are pinged concurrently so one dead store
// costs a single connect timeout, not one per store.
type HealthHandler struct {
	logger  *slog.Logger
	stores  *storepool.Registry
	service string
	version string
}

// NewHealthHandler creates a new HealthHandler instance
func NewHealthHandler(deps *Dependencies) *HealthHandler {
	return &HealthHandler{
		logger:  deps.Logger,
		stores:  deps.Stores,
		service: deps.Service,
		version: deps.Version,
	}
}

// Health handles GET /health
// Always 200: a down store degrades the report, it does not fail it.
func (h *HealthHandler) Health(c *gin.Context) {
	names := h.stores.Names()
	results := make([]dto.StoreHealthDTO, len(names))

	g, ctx := errgroup.WithContext(c.Request.Context())
	for i, name := range names {
		i, name := i, name
		g.Go(func() error {
			client, err := h.stores.Client(name)
			if err == nil {
				err = client.HealthCheck(ctx)
			}

			if err != nil {
				h.logger.Warn("Store health check failed",
					slog.String("store", name),
					slog.Any("error", err),
				)
				results[i] = dto.StoreHealthDTO{
					Store:  name,
					Status: "unreachable",
					Error:  err.Error(),
				}
				return nil
			}

			results[i] = dto.StoreHealthDTO{Store: name, Status: "healthy"}
			return nil
		})
	}
	g.Wait()

	overall := "healthy"
	for _, result := range results {
		if result.Status != "healthy" {
			overall = "degraded"
			break
		}
	}

	c.JSON(http.StatusOK, dto.HealthResponse{
		Status:  overall,
		Service: h.service,
		Version: h.version,
		Stores:  results,
	})
}
