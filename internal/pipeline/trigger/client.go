package trigger

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/url"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/tsflow/pipeline-monitor/internal/pipeline/domain"
	"github.com/tsflow/pipeline-monitor/internal/pipeline/model"
)

// Preprocessing methods the ingestion service accepts
const (
	MethodAuto              = "auto"
	MethodSeasonalDecompose = "seasonal_decompose"
	MethodDifferencing      = "differencing"
	MethodNormalization     = "normalization"
)

const (
	defaultInterval       = "5m"
	defaultPeriod         = "3mo"
	defaultRequestTimeout = 10 * time.Second
)

var knownMethods = map[string]bool{
	MethodAuto:              true,
	MethodSeasonalDecompose: true,
	MethodDifferencing:      true,
	MethodNormalization:     true,
}

// Config holds the ingestion service endpoint and the default fetch
// parameters sent with every trigger
type Config struct {
	BaseURL        string
	RequestTimeout time.Duration
	Interval       string
	Period         string
}

// Options are per-trigger overrides of the configured defaults
type Options struct {
	Interval            string
	Period              string
	PreprocessingMethod string
}

// JobRecorder writes the initial job row once the ingestion service has
// accepted a trigger
type JobRecorder interface {
	CreateJob(ctx context.Context, job *model.Job) error
}

// Client starts pipeline runs through the ingestion service. Every call
// makes at most one HTTP attempt: a retry here would start a second job
// upstream, so retry policy stays with the caller. Failures come back as
// a result value, never as an error.
type Client struct {
	http     *resty.Client
	config   Config
	recorder JobRecorder
	logger   *slog.Logger
	now      func() time.Time
}

func NewClient(config Config, recorder JobRecorder, logger *slog.Logger) *Client {
	if config.RequestTimeout <= 0 {
		config.RequestTimeout = defaultRequestTimeout
	}
	if config.Interval == "" {
		config.Interval = defaultInterval
	}
	if config.Period == "" {
		config.Period = defaultPeriod
	}

	httpClient := resty.New().
		SetTimeout(config.RequestTimeout).
		SetRetryCount(0)

	return &Client{
		http:     httpClient,
		config:   config,
		recorder: recorder,
		logger:   logger,
		now:      time.Now,
	}
}

// triggerResponse is the part of the ingestion service's answer the
// monitor cares about
type triggerResponse struct {
	JobID string `json:"job_id"`
}

// Trigger asks the ingestion service to fetch and store the series, then
// records the new job in the status store. The recorded row is advisory:
// if the insert fails the upstream job still runs, so the result stays
// successful and the insert failure is only logged.
func (c *Client) Trigger(ctx context.Context, seriesID string, opts Options) model.TriggerResult {
	if seriesID == "" {
		return failure(seriesID, "series_id is required")
	}

	if opts.PreprocessingMethod != "" && !knownMethods[opts.PreprocessingMethod] {
		return failure(seriesID, fmt.Sprintf("unknown preprocessing method %q", opts.PreprocessingMethod))
	}

	params := map[string]string{
		"interval": c.config.Interval,
		"period":   c.config.Period,
	}
	if opts.Interval != "" {
		params["interval"] = opts.Interval
	}
	if opts.Period != "" {
		params["period"] = opts.Period
	}
	if opts.PreprocessingMethod != "" {
		params["preprocessing_method"] = opts.PreprocessingMethod
	}

	endpoint := fmt.Sprintf("%s/%s/fetch_store",
		strings.TrimRight(c.config.BaseURL, "/"),
		url.PathEscape(seriesID),
	)

	resp, err := c.http.R().
		SetContext(ctx).
		SetQueryParams(params).
		Get(endpoint)
	if err != nil {
		c.logger.Error("Pipeline trigger failed",
			slog.String("series_id", seriesID),
			slog.Any("error", fmt.Errorf("%w: %v", domain.ErrTriggerFailed, err)),
		)
		return failure(seriesID, fmt.Sprintf("Failed to trigger pipeline: %v", err))
	}

	if !resp.IsSuccess() {
		c.logger.Error("Pipeline trigger rejected",
			slog.String("series_id", seriesID),
			slog.Int("status_code", resp.StatusCode()),
		)
		return failure(seriesID, fmt.Sprintf("Failed to trigger pipeline: ingestion service returned %d", resp.StatusCode()))
	}

	var body triggerResponse
	if err := json.Unmarshal(resp.Body(), &body); err != nil || body.JobID == "" {
		c.logger.Error("Pipeline trigger response unusable",
			slog.String("series_id", seriesID),
			slog.Any("error", domain.ErrMalformedResponse),
		)
		return failure(seriesID, "Failed to trigger pipeline: ingestion service response had no job id")
	}

	c.recordJob(ctx, body.JobID, seriesID)

	c.logger.Info("Pipeline triggered",
		slog.String("series_id", seriesID),
		slog.String("job_id", body.JobID),
	)

	return model.TriggerResult{
		Success:  true,
		SeriesID: seriesID,
		JobID:    body.JobID,
		Message:  fmt.Sprintf("Pipeline started for %s", seriesID),
	}
}

func (c *Client) recordJob(ctx context.Context, jobID, seriesID string) {
	now := c.now()
	err := c.recorder.CreateJob(ctx, &model.Job{
		JobID:     jobID,
		SeriesID:  seriesID,
		Status:    domain.JobStatusRunning,
		CreatedAt: now,
		UpdatedAt: now,
	})
	if err != nil {
		c.logger.Error("Failed to record triggered job",
			slog.String("job_id", jobID),
			slog.String("series_id", seriesID),
			slog.Any("error", err),
		)
	}
}

func failure(seriesID, message string) model.TriggerResult {
	return model.TriggerResult{
		Success:  false,
		SeriesID: seriesID,
		Message:  message,
	}
}
