package storage

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/aurorasynth/aurora-backend/internal/api/domain"
	"github.com/aurorasynth/aurora-backend/internal/api/model"
	"github.com/aurorasynth/aurora-backend/shared/postgresql"
	"github.com/jmoiron/sqlx"
)

const jobColumns = `
	job_id, user_id, job_type, status, prompt, source_url,
	duration_seconds, width, height, fps, style, quality, output_format,
	callback_url, output_url, thumbnail_url, progress, error_message,
	created_at, started_at, completed_at, updated_at
`

type Storage struct {
	db *sqlx.DB
}

func NewStorage(pg *postgresql.Client) *Storage {
	return &Storage{
		db: pg.GetDB(),
	}
}

// CreateJob inserts a pending job and bumps the owner's monthly usage in a
// single transaction. The usage upsert is an atomic increment-and-check:
// two concurrent submissions cannot both slip under the quota because the
// second increment observes the first. Returns the remaining quota after
// the insert, or domain.ErrQuotaExceeded with nothing persisted.
func (s *Storage) CreateJob(ctx context.Context, job *model.Job, monthlyLimit int) (int, error) {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	year, month := job.CreatedAt.UTC().Year(), int(job.CreatedAt.UTC().Month())

	usageQuery := `
		INSERT INTO usage (user_id, year, month, job_count)
		VALUES ($1, $2, $3, 1)
		ON CONFLICT (user_id, year, month)
		DO UPDATE SET job_count = usage.job_count + 1
		RETURNING job_count
	`

	var count int
	if err := tx.QueryRowContext(ctx, usageQuery, job.UserID, year, month).Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to increment usage: %w", err)
	}

	if count > monthlyLimit {
		return 0, domain.ErrQuotaExceeded
	}

	insertQuery := `
		INSERT INTO jobs (
			job_id, user_id, job_type, status, prompt, source_url,
			duration_seconds, width, height, fps, style, quality, output_format,
			callback_url, created_at, updated_at
		) VALUES (
			$1, $2, $3, $4, $5, $6,
			$7, $8, $9, $10, $11, $12, $13,
			$14, $15, $16
		)
	`

	_, err = tx.ExecContext(
		ctx,
		insertQuery,
		job.JobID,
		job.UserID,
		job.JobType,
		job.Status,
		job.Prompt,
		job.SourceURL,
		job.DurationSeconds,
		job.Width,
		job.Height,
		job.FPS,
		job.Style,
		job.Quality,
		job.OutputFormat,
		job.CallbackURL,
		job.CreatedAt,
		job.UpdatedAt,
	)
	if err != nil {
		return 0, fmt.Errorf("failed to insert job: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("failed to commit job creation: %w", err)
	}

	return monthlyLimit - count, nil
}

// CountJobsSince returns how many jobs the user created after the given
// instant. Used for the rolling-window rate check.
func (s *Storage) CountJobsSince(ctx context.Context, userID string, since time.Time) (int, error) {
	query := `SELECT COUNT(*) FROM jobs WHERE user_id = $1 AND created_at > $2`

	var count int
	if err := s.db.GetContext(ctx, &count, query, userID, since); err != nil {
		return 0, fmt.Errorf("failed to count recent jobs: %w", err)
	}

	return count, nil
}

// GetJobForUser fetches a job scoped to its owner
func (s *Storage) GetJobForUser(ctx context.Context, jobID, userID string) (*model.Job, error) {
	query := `SELECT ` + jobColumns + ` FROM jobs WHERE job_id = $1 AND user_id = $2`

	var job model.Job
	err := s.db.GetContext(ctx, &job, query, jobID, userID)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, domain.ErrJobNotFound
		}
		return nil, fmt.Errorf("failed to get job: %w", err)
	}

	return &job, nil
}

// GetJobByID fetches a job regardless of owner. Used by the callback
// receiver and the status watcher.
func (s *Storage) GetJobByID(ctx context.Context, jobID string) (*model.Job, error) {
	query := `SELECT ` + jobColumns + ` FROM jobs WHERE job_id = $1`

	var job model.Job
	err := s.db.GetContext(ctx, &job, query, jobID)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, domain.ErrJobNotFound
		}
		return nil, fmt.Errorf("failed to get job: %w", err)
	}

	return &job, nil
}

type JobFilter struct {
	UserID   string
	JobType  string
	Status   string
	PageSize int
	Cursor   *JobCursor
}

type JobCursor struct {
	CreatedAt time.Time
	JobID     string
}

// ListJobs returns up to PageSize+1 jobs matching the filter, newest first.
// The extra row tells the caller whether another page exists.
func (s *Storage) ListJobs(ctx context.Context, filter JobFilter) ([]model.Job, error) {
	query := `SELECT ` + jobColumns + ` FROM jobs WHERE user_id = $1`
	args := []interface{}{filter.UserID}
	argIdx := 2

	if filter.JobType != "" {
		query += fmt.Sprintf(" AND job_type = $%d", argIdx)
		args = append(args, filter.JobType)
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

	query += " ORDER BY created_at DESC, job_id DESC"
	query += fmt.Sprintf(" LIMIT $%d", argIdx)
	args = append(args, filter.PageSize+1)

	var jobs []model.Job
	if err := s.db.SelectContext(ctx, &jobs, query, args...); err != nil {
		return nil, fmt.Errorf("failed to list jobs: %w", err)
	}

	return jobs, nil
}

// CallbackUpdate carries the terminal outcome reported by the compute
// provider.
type CallbackUpdate struct {
	JobID        string
	Status       string // completed or failed
	OutputURL    string
	ThumbnailURL string
	ErrorMessage string
}

// ApplyCallback applies a terminal transition. The WHERE clause restricts
// the update to non-terminal rows, so a duplicate or out-of-order callback
// never overwrites an earlier terminal outcome; applied=false reports that
// the callback was ignored. The result/error columns are set exclusively:
// output on completed, error on failed, never both.
func (s *Storage) ApplyCallback(ctx context.Context, upd *CallbackUpdate) (bool, error) {
	query := `
		UPDATE jobs
		SET status = $1,
		    output_url = CASE WHEN $1 = $2 THEN NULLIF($3, '') ELSE NULL END,
		    thumbnail_url = CASE WHEN $1 = $2 THEN NULLIF($4, '') ELSE NULL END,
		    progress = CASE WHEN $1 = $2 THEN 100 ELSE progress END,
		    error_message = CASE WHEN $1 = $5 THEN NULLIF($6, '') ELSE NULL END,
		    started_at = COALESCE(started_at, NOW()),
		    completed_at = NOW(),
		    updated_at = NOW()
		WHERE job_id = $7
		  AND status IN ($8, $9)
	`

	result, err := s.db.ExecContext(
		ctx,
		query,
		upd.Status,
		domain.JobStatusCompleted,
		upd.OutputURL,
		upd.ThumbnailURL,
		domain.JobStatusFailed,
		upd.ErrorMessage,
		upd.JobID,
		domain.JobStatusPending,
		domain.JobStatusProcessing,
	)
	if err != nil {
		return false, fmt.Errorf("failed to apply callback: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to read rows affected: %w", err)
	}

	return affected > 0, nil
}
