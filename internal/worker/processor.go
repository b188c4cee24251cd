package worker

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/aurorasynth/aurora-backend/internal/provider"
	"github.com/aurorasynth/aurora-backend/internal/webhook"
	"github.com/aurorasynth/aurora-backend/internal/worker/domain"
)

// processJob claims the job row and forwards it to the compute provider.
// A nil return means the provider accepted the render and the message
// can be acked; the terminal outcome arrives later via callback.
func (w *Worker) processJob(ctx context.Context, msg *domain.JobMessage) error {
	w.logger.Info("Processing job",
		slog.String("job_id", msg.JobID),
		slog.String("worker_id", w.workerID),
	)

	job, err := w.storage.ClaimJob(ctx, msg.JobID, w.workerID)
	if err != nil {
		if errors.Is(err, domain.ErrJobUnavailable) {
			// Late redelivery of a finished job, or the row is gone
			w.logger.Warn("Job unavailable, skipping",
				slog.String("job_id", msg.JobID),
			)
			return fmt.Errorf("claim skipped: %w", err)
		}
		// Database error - could be transient
		return domain.NewRetryableError(fmt.Errorf("failed to claim job: %w", err))
	}

	dispatchCtx, cancel := context.WithTimeout(ctx, w.jobTimeout)
	defer cancel()

	err = w.provider.Dispatch(dispatchCtx, &provider.DispatchRequest{
		JobID:           job.JobID,
		Type:            job.JobType,
		Prompt:          job.Prompt,
		SourceURL:       job.SourceURL,
		DurationSeconds: job.DurationSeconds,
		Width:           job.Width,
		Height:          job.Height,
		FPS:             job.FPS,
		Style:           job.Style,
		Quality:         job.Quality,
		OutputFormat:    job.OutputFormat,
	})

	if err != nil {
		if errors.Is(err, provider.ErrRejected) {
			// Permanent rejection: retrying the same parameters will not
			// succeed, so the job fails here rather than requeueing
			w.logger.Error("Provider rejected job",
				slog.String("job_id", job.JobID),
				slog.String("error", err.Error()),
			)

			if markErr := w.storage.MarkJobFailed(ctx, job.JobID, err.Error()); markErr != nil {
				w.logger.Error("Failed to record provider rejection",
					slog.String("job_id", job.JobID),
					slog.String("error", markErr.Error()),
				)
				return domain.NewRetryableError(fmt.Errorf("failed to record rejection: %w", markErr))
			}

			if job.CallbackURL != "" {
				w.webhooks.DispatchAsync(job.CallbackURL, &webhook.Event{
					JobID:        job.JobID,
					Event:        webhook.EventFailed,
					Status:       domain.JobStatusFailed,
					ErrorMessage: err.Error(),
				})
			}

			return fmt.Errorf("provider rejected job: %w", err)
		}

		// Unavailable or timed out: the claim stays in processing and a
		// redelivered message will re-claim it
		w.logger.Warn("Provider unavailable, job will be redelivered",
			slog.String("job_id", job.JobID),
			slog.String("error", err.Error()),
		)
		return domain.NewRetryableError(fmt.Errorf("dispatch failed: %w", err))
	}

	w.logger.Info("Job handed to compute provider",
		slog.String("job_id", job.JobID),
		slog.String("job_type", job.JobType),
	)

	if job.CallbackURL != "" {
		w.webhooks.DispatchAsync(job.CallbackURL, &webhook.Event{
			JobID:  job.JobID,
			Event:  webhook.EventStarted,
			Status: domain.JobStatusProcessing,
		})
	}

	return nil
}
