package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/lancerhub/marketplace-be/internal/api/domain"
	"github.com/lancerhub/marketplace-be/internal/api/model"
)

// JobStore handles all database operations on jobs.
type JobStore struct {
	db     *sqlx.DB
	logger *slog.Logger
}

// NewJobStore creates a new JobStore instance
func NewJobStore(db *sqlx.DB, logger *slog.Logger) *JobStore {
	return &JobStore{
		db:     db,
		logger: logger,
	}
}

const jobColumns = `
	job_id, client_id, title, description, category, budget,
	number_of_slots, accepted_slots, status, created_at, updated_at`

func (s *JobStore) CreateJob(ctx context.Context, job *model.Job) error {
	query := `
		INSERT INTO jobs (
			job_id, client_id, title, description, category, budget,
			number_of_slots, accepted_slots, status, created_at, updated_at
		) VALUES (
			$1, $2, $3, $4, $5, $6,
			$7, $8, $9, $10, $11
		)
	`

	_, err := s.db.ExecContext(
		ctx,
		query,
		job.JobID,
		job.ClientID,
		job.Title,
		job.Description,
		job.Category,
		job.Budget,
		job.NumberOfSlots,
		job.AcceptedSlots,
		job.Status,
		job.CreatedAt,
		job.UpdatedAt,
	)

	if err != nil {
		return fmt.Errorf("failed to create job: %w", err)
	}

	return nil
}

func (s *JobStore) GetJobByID(ctx context.Context, jobID string) (*model.Job, error) {
	var job model.Job
	query := `SELECT` + jobColumns + ` FROM jobs WHERE job_id = $1`

	err := s.db.GetContext(ctx, &job, query, jobID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrJobNotFound
		}
		return nil, fmt.Errorf("failed to get job: %w", err)
	}

	return &job, nil
}

// JobFilter narrows ListJobs. Zero fields are ignored.
type JobFilter struct {
	ClientID string
	Status   string
	PageSize int
	Cursor   *JobCursor
}

// JobCursor is a keyset pagination cursor over (created_at, job_id).
type JobCursor struct {
	CreatedAt time.Time
	JobID     string
}

func (s *JobStore) ListJobs(ctx context.Context, filter JobFilter) ([]model.Job, error) {
	query := `SELECT` + jobColumns + ` FROM jobs WHERE 1=1`
	args := []interface{}{}
	argIdx := 1

	if filter.ClientID != "" {
		query += fmt.Sprintf(" AND client_id = $%d", argIdx)
		args = append(args, filter.ClientID)
		argIdx++
	}

	if filter.Status != "" {
		query += fmt.Sprintf(" AND status = $%d", argIdx)
		args = append(args, filter.Status)
		argIdx++
	}

	if filter.Cursor != nil {
		query += fmt.Sprintf(" AND (created_at, job_id) < ($%d, $%d)", argIdx, argIdx+1)
		args = append(args, filter.Cursor.CreatedAt, filter.Cursor.JobID)
		argIdx += 2
	}

	// Order by created_at DESC, job_id DESC for consistent pagination
	query += " ORDER BY created_at DESC, job_id DESC"

	// Fetch one extra to determine if there are more results
	query += fmt.Sprintf(" LIMIT $%d", argIdx)
	args = append(args, filter.PageSize+1)

	var jobs []model.Job
	err := s.db.SelectContext(ctx, &jobs, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list jobs: %w", err)
	}

	return jobs, nil
}

// AcceptSlot consumes one open slot on a job. The increment, the capacity
// check, and the open→in_progress transition are one conditional statement,
// so two racing callers on the last slot can never both succeed.
func (s *JobStore) AcceptSlot(ctx context.Context, jobID string) (*model.Job, error) {
	query := `
		UPDATE jobs
		SET accepted_slots = accepted_slots + 1,
		    status = CASE
		        WHEN accepted_slots + 1 >= number_of_slots THEN 'in_progress'
		        ELSE status
		    END,
		    updated_at = NOW()
		WHERE job_id = $1
		  AND accepted_slots < number_of_slots
		RETURNING` + jobColumns

	var job model.Job
	err := s.db.QueryRowContext(ctx, query, jobID).Scan(
		&job.JobID,
		&job.ClientID,
		&job.Title,
		&job.Description,
		&job.Category,
		&job.Budget,
		&job.NumberOfSlots,
		&job.AcceptedSlots,
		&job.Status,
		&job.CreatedAt,
		&job.UpdatedAt,
	)

	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			// Zero rows means either the job is gone or the capacity guard
			// held. A follow-up read tells the two apart; no state changed
			// either way.
			if _, getErr := s.GetJobByID(ctx, jobID); getErr != nil {
				return nil, getErr
			}

			s.logger.Warn("Slot accept refused - no remaining capacity",
				slog.String("job_id", jobID),
			)
			return nil, domain.ErrSlotsExhausted
		}
		return nil, fmt.Errorf("failed to accept slot: %w", err)
	}

	s.logger.Info("Slot accepted",
		slog.String("job_id", jobID),
		slog.Int("accepted_slots", job.AcceptedSlots),
		slog.Int("number_of_slots", job.NumberOfSlots),
		slog.String("status", string(job.Status)),
	)

	return &job, nil
}

func (s *JobStore) UpdateJobStatus(ctx context.Context, jobID string, status domain.JobStatus) error {
	query := `
		UPDATE jobs
		SET status = $1,
		    updated_at = NOW()
		WHERE job_id = $2
	`

	result, err := s.db.ExecContext(ctx, query, status, jobID)
	if err != nil {
		return fmt.Errorf("failed to update job status: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}

	if rowsAffected == 0 {
		return domain.ErrJobNotFound
	}

	return nil
}

func (s *JobStore) DeleteJob(ctx context.Context, jobID string) error {
	result, err := s.db.ExecContext(ctx, `DELETE FROM jobs WHERE job_id = $1`, jobID)
	if err != nil {
		return fmt.Errorf("failed to delete job: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}

	if rowsAffected == 0 {
		return domain.ErrJobNotFound
	}

	return nil
}
