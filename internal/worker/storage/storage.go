package storage

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"

	"github.com/aurorasynth/aurora-backend/internal/worker/domain"
	"github.com/jmoiron/sqlx"
)

// Storage handles all database operations for the worker
type Storage struct {
	db     *sqlx.DB
	logger *slog.Logger
}

// NewStorage creates a new Storage instance
func NewStorage(db *sqlx.DB, logger *slog.Logger) *Storage {
	return &Storage{
		db:     db,
		logger: logger,
	}
}

// ClaimJob marks the job as processing and returns its render parameters.
// The claim matches pending rows and processing rows alike: a redelivered
// message after a transient dispatch failure must be able to pick the job
// back up. Terminal rows never match, so a late redelivery of a finished
// job claims nothing.
func (s *Storage) ClaimJob(ctx context.Context, jobID, workerID string) (*domain.Job, error) {
	query := `
		UPDATE jobs
		SET status = $1,
		    worker_id = $2,
		    started_at = COALESCE(started_at, NOW()),
		    updated_at = NOW()
		WHERE job_id = $3
		  AND status IN ($4, $1)
		RETURNING job_id, user_id, job_type, prompt, source_url, duration_seconds,
		          width, height, fps, style, quality, output_format, callback_url
	`

	var job domain.Job
	var prompt, sourceURL, callbackURL sql.NullString

	err := s.db.QueryRowContext(ctx, query,
		domain.JobStatusProcessing, workerID, jobID, domain.JobStatusPending,
	).Scan(
		&job.JobID,
		&job.UserID,
		&job.JobType,
		&prompt,
		&sourceURL,
		&job.DurationSeconds,
		&job.Width,
		&job.Height,
		&job.FPS,
		&job.Style,
		&job.Quality,
		&job.OutputFormat,
		&callbackURL,
	)

	if err != nil {
		if err == sql.ErrNoRows {
			s.logger.Warn("Failed to claim job - missing or already terminal",
				slog.String("job_id", jobID),
				slog.String("worker_id", workerID),
			)
			return nil, domain.ErrJobUnavailable
		}
		return nil, fmt.Errorf("failed to claim job: %w", err)
	}

	job.Prompt = prompt.String
	job.SourceURL = sourceURL.String
	job.CallbackURL = callbackURL.String
	job.Status = domain.JobStatusProcessing
	job.WorkerID = workerID

	s.logger.Info("Job claimed",
		slog.String("job_id", jobID),
		slog.String("worker_id", workerID),
		slog.String("job_type", job.JobType),
	)

	return &job, nil
}

// MarkJobFailed records a permanent dispatch failure. The status guard
// keeps a provider callback that raced ahead of us from being overwritten.
func (s *Storage) MarkJobFailed(ctx context.Context, jobID, errorMsg string) error {
	query := `
		UPDATE jobs
		SET status = $1,
		    error_message = $2,
		    completed_at = NOW(),
		    updated_at = NOW()
		WHERE job_id = $3
		  AND status IN ($4, $5)
	`

	result, err := s.db.ExecContext(ctx, query,
		domain.JobStatusFailed, errorMsg, jobID,
		domain.JobStatusPending, domain.JobStatusProcessing,
	)
	if err != nil {
		return fmt.Errorf("failed to mark job failed: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}

	if rowsAffected == 0 {
		s.logger.Warn("Job already terminal, failure not recorded",
			slog.String("job_id", jobID),
		)
		return nil
	}

	s.logger.Info("Job marked as failed",
		slog.String("job_id", jobID),
		slog.String("error", errorMsg),
	)

	return nil
}
