package catalog

import (
	"context"
	"log/slog"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/tsflow/pipeline-monitor/shared/storepool"
)

const seriesListQuery = `
	SELECT DISTINCT series_id
	FROM time_series_preprocessed
	WHERE series_id IS NOT NULL
	ORDER BY series_id
`

// Reader lists the series the preprocessing stage has produced. The list
// is advisory: a store that cannot be read yields an empty catalog and a
// log line, never an error to the caller.
type Reader struct {
	registry *storepool.Registry
	timeout  time.Duration
	logger   *slog.Logger
}

func NewReader(registry *storepool.Registry, timeout time.Duration, logger *slog.Logger) *Reader {
	return &Reader{
		registry: registry,
		timeout:  timeout,
		logger:   logger,
	}
}

// ListSeries returns the distinct series ids available for analysis,
// sorted by id
func (r *Reader) ListSeries(ctx context.Context) []string {
	client, err := r.registry.Client(storepool.StorePreprocessing)
	if err != nil {
		r.logger.Error("Failed to reach preprocessing store for series list", slog.Any("error", err))
		return []string{}
	}

	if r.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, r.timeout)
		defer cancel()
	}

	var series []string
	err = client.WithConn(ctx, func(conn *sqlx.Conn) error {
		return conn.SelectContext(ctx, &series, seriesListQuery)
	})
	if err != nil {
		r.logger.Error("Failed to list series", slog.Any("error", err))
		return []string{}
	}
	if series == nil {
		series = []string{}
	}

	return series
}
