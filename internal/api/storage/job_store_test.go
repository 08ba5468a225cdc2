package storage

import (
	"context"
	"database/sql"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lancerhub/marketplace-be/internal/api/domain"
	"github.com/lancerhub/marketplace-be/internal/api/model"
)

var jobColumnNames = []string{
	"job_id", "client_id", "title", "description", "category", "budget",
	"number_of_slots", "accepted_slots", "status", "created_at", "updated_at",
}

func newMockJobStore(t *testing.T) (*JobStore, sqlmock.Sqlmock) {
	t.Helper()

	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	sqlxDB := sqlx.NewDb(db, "sqlmock")
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	return NewJobStore(sqlxDB, logger), mock
}

func jobRow(job *model.Job) *sqlmock.Rows {
	return sqlmock.NewRows(jobColumnNames).AddRow(
		job.JobID, job.ClientID, job.Title, job.Description, job.Category, job.Budget,
		job.NumberOfSlots, job.AcceptedSlots, job.Status, job.CreatedAt, job.UpdatedAt,
	)
}

func sampleJob() *model.Job {
	now := time.Now()
	return &model.Job{
		JobID:         "3f1b9a52-9a0e-4a7c-8f34-1df2f8f2a001",
		ClientID:      "7c8e2b11-56d4-4b0a-9f21-0aa4d1e2b002",
		Title:         "Build landing page",
		Description:   "Single page marketing site",
		Category:      "web",
		Budget:        150000,
		NumberOfSlots: 2,
		AcceptedSlots: 0,
		Status:        domain.JobStatusOpen,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
}

func TestJobStore_CreateJob(t *testing.T) {
	store, mock := newMockJobStore(t)
	job := sampleJob()

	mock.ExpectExec("INSERT INTO jobs").
		WithArgs(
			job.JobID, job.ClientID, job.Title, job.Description, job.Category, job.Budget,
			job.NumberOfSlots, job.AcceptedSlots, job.Status, job.CreatedAt, job.UpdatedAt,
		).
		WillReturnResult(sqlmock.NewResult(0, 1))

	err := store.CreateJob(context.Background(), job)

	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestJobStore_GetJobByID(t *testing.T) {
	t.Run("found", func(t *testing.T) {
		store, mock := newMockJobStore(t)
		job := sampleJob()

		mock.ExpectQuery("FROM jobs WHERE job_id").
			WithArgs(job.JobID).
			WillReturnRows(jobRow(job))

		got, err := store.GetJobByID(context.Background(), job.JobID)

		require.NoError(t, err)
		assert.Equal(t, job.JobID, got.JobID)
		assert.Equal(t, domain.JobStatusOpen, got.Status)
	})

	t.Run("not found", func(t *testing.T) {
		store, mock := newMockJobStore(t)

		mock.ExpectQuery("FROM jobs WHERE job_id").
			WithArgs("missing").
			WillReturnError(sql.ErrNoRows)

		got, err := store.GetJobByID(context.Background(), "missing")

		assert.Nil(t, got)
		assert.ErrorIs(t, err, domain.ErrJobNotFound)
	})
}

func TestJobStore_AcceptSlot(t *testing.T) {
	t.Run("claims a slot and transitions status on the last one", func(t *testing.T) {
		store, mock := newMockJobStore(t)
		job := sampleJob()
		job.AcceptedSlots = 2
		job.Status = domain.JobStatusInProgress

		mock.ExpectQuery("UPDATE jobs").
			WithArgs(job.JobID).
			WillReturnRows(jobRow(job))

		got, err := store.AcceptSlot(context.Background(), job.JobID)

		require.NoError(t, err)
		assert.Equal(t, 2, got.AcceptedSlots)
		assert.Equal(t, domain.JobStatusInProgress, got.Status)
	})

	t.Run("exhausted slots", func(t *testing.T) {
		store, mock := newMockJobStore(t)
		job := sampleJob()
		job.AcceptedSlots = 2
		job.Status = domain.JobStatusInProgress

		// The conditional update matches nothing; the follow-up read finds
		// the job, so the ceiling held.
		mock.ExpectQuery("UPDATE jobs").
			WithArgs(job.JobID).
			WillReturnError(sql.ErrNoRows)
		mock.ExpectQuery("FROM jobs WHERE job_id").
			WithArgs(job.JobID).
			WillReturnRows(jobRow(job))

		got, err := store.AcceptSlot(context.Background(), job.JobID)

		assert.Nil(t, got)
		assert.ErrorIs(t, err, domain.ErrSlotsExhausted)
	})

	t.Run("job not found", func(t *testing.T) {
		store, mock := newMockJobStore(t)

		mock.ExpectQuery("UPDATE jobs").
			WithArgs("missing").
			WillReturnError(sql.ErrNoRows)
		mock.ExpectQuery("FROM jobs WHERE job_id").
			WithArgs("missing").
			WillReturnError(sql.ErrNoRows)

		got, err := store.AcceptSlot(context.Background(), "missing")

		assert.Nil(t, got)
		assert.ErrorIs(t, err, domain.ErrJobNotFound)
	})
}

func TestJobStore_ListJobs(t *testing.T) {
	t.Run("filters and fetches one extra row", func(t *testing.T) {
		store, mock := newMockJobStore(t)
		job := sampleJob()

		mock.ExpectQuery("FROM jobs WHERE 1=1").
			WithArgs("client-1", string(domain.JobStatusOpen), 21).
			WillReturnRows(jobRow(job))

		jobs, err := store.ListJobs(context.Background(), JobFilter{
			ClientID: "client-1",
			Status:   string(domain.JobStatusOpen),
			PageSize: 20,
		})

		require.NoError(t, err)
		require.Len(t, jobs, 1)
		assert.Equal(t, job.JobID, jobs[0].JobID)
	})

	t.Run("cursor adds keyset condition", func(t *testing.T) {
		store, mock := newMockJobStore(t)
		cursorTime := time.Now().Add(-time.Hour)

		mock.ExpectQuery("FROM jobs WHERE 1=1").
			WithArgs(cursorTime, "job-after", 11).
			WillReturnRows(sqlmock.NewRows(jobColumnNames))

		jobs, err := store.ListJobs(context.Background(), JobFilter{
			PageSize: 10,
			Cursor:   &JobCursor{CreatedAt: cursorTime, JobID: "job-after"},
		})

		require.NoError(t, err)
		assert.Empty(t, jobs)
	})
}

func TestJobStore_UpdateJobStatus(t *testing.T) {
	t.Run("updates status", func(t *testing.T) {
		store, mock := newMockJobStore(t)

		mock.ExpectExec("UPDATE jobs").
			WithArgs(domain.JobStatusCompleted, "job-1").
			WillReturnResult(sqlmock.NewResult(0, 1))

		err := store.UpdateJobStatus(context.Background(), "job-1", domain.JobStatusCompleted)

		require.NoError(t, err)
	})

	t.Run("missing job", func(t *testing.T) {
		store, mock := newMockJobStore(t)

		mock.ExpectExec("UPDATE jobs").
			WithArgs(domain.JobStatusCompleted, "missing").
			WillReturnResult(sqlmock.NewResult(0, 0))

		err := store.UpdateJobStatus(context.Background(), "missing", domain.JobStatusCompleted)

		assert.ErrorIs(t, err, domain.ErrJobNotFound)
	})
}

func TestJobStore_DeleteJob(t *testing.T) {
	t.Run("deletes job", func(t *testing.T) {
		store, mock := newMockJobStore(t)

		mock.ExpectExec("DELETE FROM jobs").
			WithArgs("job-1").
			WillReturnResult(sqlmock.NewResult(0, 1))

		err := store.DeleteJob(context.Background(), "job-1")

		require.NoError(t, err)
	})

	t.Run("missing job", func(t *testing.T) {
		store, mock := newMockJobStore(t)

		mock.ExpectExec("DELETE FROM jobs").
			WithArgs("missing").
			WillReturnResult(sqlmock.NewResult(0, 0))

		err := store.DeleteJob(context.Background(), "missing")

		assert.ErrorIs(t, err, domain.ErrJobNotFound)
	})
}
