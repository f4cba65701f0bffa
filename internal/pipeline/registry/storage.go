package registry

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sort"

	"github.com/jmoiron/sqlx"
	"github.com/tsflow/pipeline-monitor/internal/pipeline/domain"
	"github.com/tsflow/pipeline-monitor/internal/pipeline/model"
	"github.com/tsflow/pipeline-monitor/shared/storepool"
)

// Storage reads and writes the job registry tables in the status store.
// The store pool is resolved per operation, so a status store that was
// down at startup is retried once it recovers. Every operation checks a
// connection out of the pool for its duration and returns it before
// reporting back. Queries are written with ? placeholders and rebound
// per driver, so the same SQL runs against postgres and the sqlite dev
// driver.
type Storage struct {
	pools *storepool.Registry
}

func NewStorage(pools *storepool.Registry) *Storage {
	return &Storage{
		pools: pools,
	}
}

func (s *Storage) CreateJob(ctx context.Context, job *model.Job) error {
	client, err := s.statusClient()
	if err != nil {
		return wrapStoreErr("create job", err)
	}

	query := client.GetDB().Rebind(`
		INSERT INTO jobs (
			job_id, series_id, status, created_at, updated_at
		) VALUES (
			?, ?, ?, ?, ?
		)
	`)

	err = client.WithConn(ctx, func(conn *sqlx.Conn) error {
		_, err := conn.ExecContext(
			ctx,
			query,
			job.JobID,
			job.SeriesID,
			job.Status,
			job.CreatedAt,
			job.UpdatedAt,
		)
		return err
	})

	return wrapStoreErr("create job", err)
}

func (s *Storage) GetJobByID(ctx context.Context, jobID string) (*model.Job, error) {
	client, err := s.statusClient()
	if err != nil {
		return nil, wrapStoreErr("get job", err)
	}

	query := client.GetDB().Rebind(`
		SELECT
			job_id, series_id, status, created_at, updated_at, error_message
		FROM jobs
		WHERE job_id = ?
	`)

	var job model.Job
	err = client.WithConn(ctx, func(conn *sqlx.Conn) error {
		return conn.GetContext(ctx, &job, query, jobID)
	})

	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", domain.ErrJobNotFound, jobID)
	}
	if err != nil {
		return nil, wrapStoreErr("get job", err)
	}

	return &job, nil
}

// ListRecentJobs returns the newest jobs first. Jobs created in the same
// instant order by job id so pages stay stable.
func (s *Storage) ListRecentJobs(ctx context.Context, limit int) ([]model.Job, error) {
	client, err := s.statusClient()
	if err != nil {
		return nil, wrapStoreErr("list recent jobs", err)
	}

	query := client.GetDB().Rebind(`
		SELECT
			job_id, series_id, status, created_at, updated_at, error_message
		FROM jobs
		ORDER BY created_at DESC, job_id DESC
		LIMIT ?
	`)

	var jobs []model.Job
	err = client.WithConn(ctx, func(conn *sqlx.Conn) error {
		return conn.SelectContext(ctx, &jobs, query, limit)
	})
	if err != nil {
		return nil, wrapStoreErr("list recent jobs", err)
	}

	return jobs, nil
}

func (s *Storage) ListActiveJobs(ctx context.Context) ([]model.Job, error) {
	client, err := s.statusClient()
	if err != nil {
		return nil, wrapStoreErr("list active jobs", err)
	}

	query := client.GetDB().Rebind(`
		SELECT
			job_id, series_id, status, created_at, updated_at, error_message
		FROM jobs
		WHERE status = ?
		ORDER BY created_at DESC, job_id DESC
	`)

	var jobs []model.Job
	err = client.WithConn(ctx, func(conn *sqlx.Conn) error {
		return conn.SelectContext(ctx, &jobs, query, domain.JobStatusRunning)
	})
	if err != nil {
		return nil, wrapStoreErr("list active jobs", err)
	}

	return jobs, nil
}

// ListStages returns the stage records of one job in processing order,
// with stages the monitor does not know about after the known ones.
func (s *Storage) ListStages(ctx context.Context, jobID string) ([]model.JobStage, error) {
	client, err := s.statusClient()
	if err != nil {
		return nil, wrapStoreErr("list stages", err)
	}

	query := client.GetDB().Rebind(`
		SELECT
			job_id, stage, status, started_at, duration_seconds, error_message
		FROM job_stages
		WHERE job_id = ?
	`)

	var stages []model.JobStage
	err = client.WithConn(ctx, func(conn *sqlx.Conn) error {
		return conn.SelectContext(ctx, &stages, query, jobID)
	})
	if err != nil {
		return nil, wrapStoreErr("list stages", err)
	}

	sortStages(stages)

	return stages, nil
}

// ListStagesForJobs returns the stage records of several jobs in one
// query, keyed by job id, each job's stages in processing order.
func (s *Storage) ListStagesForJobs(ctx context.Context, jobIDs []string) (map[string][]model.JobStage, error) {
	if len(jobIDs) == 0 {
		return map[string][]model.JobStage{}, nil
	}

	client, err := s.statusClient()
	if err != nil {
		return nil, wrapStoreErr("list stages for jobs", err)
	}

	query, args, err := sqlx.In(`
		SELECT
			job_id, stage, status, started_at, duration_seconds, error_message
		FROM job_stages
		WHERE job_id IN (?)
	`, jobIDs)
	if err != nil {
		return nil, wrapStoreErr("list stages for jobs", err)
	}
	query = client.GetDB().Rebind(query)

	var stages []model.JobStage
	err = client.WithConn(ctx, func(conn *sqlx.Conn) error {
		return conn.SelectContext(ctx, &stages, query, args...)
	})
	if err != nil {
		return nil, wrapStoreErr("list stages for jobs", err)
	}

	sortStages(stages)

	byJob := make(map[string][]model.JobStage, len(jobIDs))
	for _, stage := range stages {
		byJob[stage.JobID] = append(byJob[stage.JobID], stage)
	}

	return byJob, nil
}

func (s *Storage) statusClient() (*storepool.Client, error) {
	return s.pools.Client(storepool.StoreStatus)
}

// sortStages orders stage records by the pipeline's processing order,
// unknown stages after the known ones, alphabetically
func sortStages(stages []model.JobStage) {
	sort.Slice(stages, func(i, j int) bool {
		ri, rj := domain.StageRank(stages[i].Stage), domain.StageRank(stages[j].Stage)
		if ri != rj {
			return ri < rj
		}
		return stages[i].Stage < stages[j].Stage
	})
}

// wrapStoreErr keeps pool conditions recognizable and marks everything
// else as a query failure
func wrapStoreErr(op string, err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, storepool.ErrStoreUnavailable) || errors.Is(err, storepool.ErrPoolExhausted) {
		return fmt.Errorf("%s: %w", op, err)
	}
	return fmt.Errorf("%w: %s: %v", domain.ErrQueryFailed, op, err)
}
