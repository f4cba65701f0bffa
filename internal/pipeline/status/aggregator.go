package status

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/tsflow/pipeline-monitor/internal/pipeline/domain"
	"github.com/tsflow/pipeline-monitor/internal/pipeline/model"
	"github.com/tsflow/pipeline-monitor/shared/storepool"
)

const (
	rawCountQuery          = `SELECT COUNT(*) FROM time_series_raw`
	preprocessedCountQuery = `SELECT COUNT(*) FROM time_series_preprocessed`
	seriesReadyQuery       = `SELECT COUNT(DISTINCT series_id) FROM time_series_preprocessed WHERE series_id IS NOT NULL`
)

// Aggregator folds record counts from the ingestion and preprocessing
// stores into one pipeline snapshot. It never returns an error; a store
// it cannot read turns the snapshot itself into an error report.
type Aggregator struct {
	registry *storepool.Registry
	timeout  time.Duration
	logger   *slog.Logger
	now      func() time.Time
}

func NewAggregator(registry *storepool.Registry, timeout time.Duration, logger *slog.Logger) *Aggregator {
	return &Aggregator{
		registry: registry,
		timeout:  timeout,
		logger:   logger,
		now:      time.Now,
	}
}

// Snapshot reads the current counts and derives the overall pipeline
// state. The first store that fails short-circuits the snapshot.
func (a *Aggregator) Snapshot(ctx context.Context) model.PipelineStatus {
	checkedAt := a.now()

	raw, err := a.count(ctx, storepool.StoreIngestion, rawCountQuery)
	if err != nil {
		return a.errorStatus(storepool.StoreIngestion, err, checkedAt)
	}

	preprocessed, err := a.count(ctx, storepool.StorePreprocessing, preprocessedCountQuery)
	if err != nil {
		return a.errorStatus(storepool.StorePreprocessing, err, checkedAt)
	}

	series, err := a.count(ctx, storepool.StorePreprocessing, seriesReadyQuery)
	if err != nil {
		return a.errorStatus(storepool.StorePreprocessing, err, checkedAt)
	}

	counts := model.StoreCounts{
		RawRecords:          raw,
		PreprocessedRecords: preprocessed,
		SeriesReady:         series,
	}
	overall, message := derive(counts)

	return model.PipelineStatus{
		Status:              overall,
		Message:             message,
		RawRecords:          counts.RawRecords,
		PreprocessedRecords: counts.PreprocessedRecords,
		SeriesReady:         counts.SeriesReady,
		CheckedAt:           checkedAt,
	}
}

// derive maps the counts onto the pipeline state. Preprocessed series
// mean the pipeline is ready for analysis; raw records without them mean
// preprocessing still has work; nothing at all means ingestion has not
// delivered yet.
func derive(counts model.StoreCounts) (string, string) {
	switch {
	case counts.SeriesReady > 0:
		return domain.PipelineStatusReady, fmt.Sprintf("%d series ready for analysis", counts.SeriesReady)
	case counts.RawRecords > 0:
		return domain.PipelineStatusProcessing, fmt.Sprintf("%d raw records - preprocessing pending", counts.RawRecords)
	default:
		return domain.PipelineStatusWaiting, "Waiting for data ingestion"
	}
}

func (a *Aggregator) count(ctx context.Context, store, query string) (int64, error) {
	client, err := a.registry.Client(store)
	if err != nil {
		return 0, err
	}

	if a.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, a.timeout)
		defer cancel()
	}

	var n int64
	err = client.WithConn(ctx, func(conn *sqlx.Conn) error {
		return conn.GetContext(ctx, &n, query)
	})
	if err != nil {
		return 0, err
	}

	return n, nil
}

func (a *Aggregator) errorStatus(store string, err error, checkedAt time.Time) model.PipelineStatus {
	a.logger.Error("Pipeline status check failed",
		slog.String("store", store),
		slog.Any("error", err),
	)

	message := fmt.Sprintf("Status check failed: %s store query failed", store)
	if errors.Is(err, storepool.ErrStoreUnavailable) || errors.Is(err, storepool.ErrPoolExhausted) {
		message = fmt.Sprintf("Status check failed: %s store unreachable", store)
	}

	return model.PipelineStatus{
		Status:    domain.PipelineStatusError,
		Message:   message,
		CheckedAt: checkedAt,
	}
}
