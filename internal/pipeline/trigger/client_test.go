package trigger

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tsflow/pipeline-monitor/internal/pipeline/domain"
	"github.com/tsflow/pipeline-monitor/internal/pipeline/model"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewJSONHandler(io.Discard, nil))
}

// fakeRecorder captures the job rows the client tries to insert
type fakeRecorder struct {
	jobs []model.Job
	err  error
}

func (f *fakeRecorder) CreateJob(_ context.Context, job *model.Job) error {
	f.jobs = append(f.jobs, *job)
	return f.err
}

func newTestClient(baseURL string, recorder JobRecorder) *Client {
	client := NewClient(Config{
		BaseURL:        baseURL,
		RequestTimeout: 2 * time.Second,
	}, recorder, testLogger())
	client.now = func() time.Time {
		return time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	}
	return client
}

func TestClient_Trigger_Success(t *testing.T) {
	var attempts atomic.Int32
	var gotPath, gotQuery string

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		attempts.Add(1)
		gotPath = r.URL.Path
		gotQuery = r.URL.RawQuery
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"job_id": "job-123", "status": "accepted"}`))
	}))
	defer server.Close()

	recorder := &fakeRecorder{}
	client := newTestClient(server.URL, recorder)

	result := client.Trigger(context.Background(), "AAPL", Options{})

	assert.True(t, result.Success)
	assert.Equal(t, "job-123", result.JobID)
	assert.Equal(t, "AAPL", result.SeriesID)
	assert.Equal(t, "Pipeline started for AAPL", result.Message)

	assert.Equal(t, int32(1), attempts.Load())
	assert.Equal(t, "/AAPL/fetch_store", gotPath)
	assert.Contains(t, gotQuery, "interval=5m")
	assert.Contains(t, gotQuery, "period=3mo")

	// Exactly one initial job row, status running, both timestamps set.
	require.Len(t, recorder.jobs, 1)
	job := recorder.jobs[0]
	assert.Equal(t, "job-123", job.JobID)
	assert.Equal(t, "AAPL", job.SeriesID)
	assert.Equal(t, domain.JobStatusRunning, job.Status)
	assert.Equal(t, job.CreatedAt, job.UpdatedAt)
}

func TestClient_Trigger_OptionOverrides(t *testing.T) {
	var gotQuery string

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotQuery = r.URL.RawQuery
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"job_id": "job-456"}`))
	}))
	defer server.Close()

	client := newTestClient(server.URL, &fakeRecorder{})

	result := client.Trigger(context.Background(), "MSFT", Options{
		Interval:            "1h",
		Period:              "1y",
		PreprocessingMethod: MethodSeasonalDecompose,
	})

	assert.True(t, result.Success)
	assert.Contains(t, gotQuery, "interval=1h")
	assert.Contains(t, gotQuery, "period=1y")
	assert.Contains(t, gotQuery, "preprocessing_method=seasonal_decompose")
}

func TestClient_Trigger_UnknownMethodRejectedBeforeHTTP(t *testing.T) {
	var attempts atomic.Int32

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		attempts.Add(1)
	}))
	defer server.Close()

	recorder := &fakeRecorder{}
	client := newTestClient(server.URL, recorder)

	result := client.Trigger(context.Background(), "AAPL", Options{PreprocessingMethod: "fourier"})

	assert.False(t, result.Success)
	assert.Empty(t, result.JobID)
	assert.Contains(t, result.Message, "fourier")
	assert.Equal(t, int32(0), attempts.Load())
	assert.Empty(t, recorder.jobs)
}

func TestClient_Trigger_ServiceError(t *testing.T) {
	var attempts atomic.Int32

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		attempts.Add(1)
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer server.Close()

	recorder := &fakeRecorder{}
	client := newTestClient(server.URL, recorder)

	result := client.Trigger(context.Background(), "AAPL", Options{})

	assert.False(t, result.Success)
	assert.Empty(t, result.JobID)
	assert.Contains(t, result.Message, "500")

	// One attempt only: a retry would start a second job upstream.
	assert.Equal(t, int32(1), attempts.Load())
	assert.Empty(t, recorder.jobs)
}

func TestClient_Trigger_UnreachableService(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	server.Close()

	recorder := &fakeRecorder{}
	client := newTestClient(server.URL, recorder)

	result := client.Trigger(context.Background(), "AAPL", Options{})

	assert.False(t, result.Success)
	assert.Empty(t, result.JobID)
	assert.NotEmpty(t, result.Message)
	assert.Empty(t, recorder.jobs)
}

func TestClient_Trigger_MalformedResponse(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{name: "missing job id", body: `{"status": "accepted"}`},
		{name: "empty job id", body: `{"job_id": ""}`},
		{name: "not json", body: `<html>busy</html>`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.Write([]byte(tt.body))
			}))
			defer server.Close()

			recorder := &fakeRecorder{}
			client := newTestClient(server.URL, recorder)

			result := client.Trigger(context.Background(), "AAPL", Options{})

			assert.False(t, result.Success)
			assert.Empty(t, result.JobID)
			assert.Contains(t, result.Message, "no job id")
			assert.Empty(t, recorder.jobs)
		})
	}
}

func TestClient_Trigger_EmptySeriesID(t *testing.T) {
	client := newTestClient("http://localhost:0", &fakeRecorder{})

	result := client.Trigger(context.Background(), "", Options{})

	assert.False(t, result.Success)
	assert.Equal(t, "series_id is required", result.Message)
}

func TestClient_Trigger_RecorderFailureKeepsSuccess(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"job_id": "job-789"}`))
	}))
	defer server.Close()

	recorder := &fakeRecorder{err: domain.ErrQueryFailed}
	client := newTestClient(server.URL, recorder)

	result := client.Trigger(context.Background(), "AAPL", Options{})

	// The upstream job exists regardless of the local insert.
	assert.True(t, result.Success)
	assert.Equal(t, "job-789", result.JobID)
}
