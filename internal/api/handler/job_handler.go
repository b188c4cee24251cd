package handler

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/aurorasynth/aurora-backend/internal/api/domain"
	"github.com/aurorasynth/aurora-backend/internal/api/dto"
	"github.com/aurorasynth/aurora-backend/internal/api/model"
	"github.com/aurorasynth/aurora-backend/internal/api/storage"
	"github.com/aurorasynth/aurora-backend/internal/api/watch"
	"github.com/aurorasynth/aurora-backend/internal/webhook"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// CreateJob handles POST /api/v1/jobs
// Validates the request, enforces rate and quota limits, inserts the
// pending job, and hands it to the dispatch queue.
func (h *JobHandler) CreateJob(c *gin.Context) {
	userID := c.GetString(CtxUserID)
	tier := c.GetString(CtxTier)

	var req dto.CreateJobRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, apiError{
			Error:   errValidation,
			Message: "invalid request body: " + err.Error(),
		})
		return
	}

	spec := domain.JobSpec{
		Type:            req.Type,
		Prompt:          req.Prompt,
		SourceURL:       req.SourceURL,
		DurationSeconds: req.DurationSeconds,
		Width:           req.Width,
		Height:          req.Height,
		FPS:             req.FPS,
		Style:           req.Style,
		Quality:         req.Quality,
		OutputFormat:    req.OutputFormat,
		CallbackURL:     req.CallbackURL,
	}
	spec.ApplyDefaults()

	if err := domain.ValidateJobSpec(tier, &spec); err != nil {
		var verr *domain.ValidationError
		if errors.As(err, &verr) {
			c.JSON(http.StatusBadRequest, apiError{
				Error:   errValidation,
				Message: "request validation failed",
				Fields:  verr.Fields,
			})
			return
		}
		c.JSON(http.StatusBadRequest, apiError{Error: errValidation, Message: err.Error()})
		return
	}

	limits := domain.LimitsForTier(tier)
	now := time.Now().UTC()

	recent, err := h.store.CountJobsSince(c.Request.Context(), userID, now.Add(-time.Minute))
	if err != nil {
		h.logger.Error("Failed to count recent jobs", slog.String("error", err.Error()))
		c.JSON(http.StatusInternalServerError, apiError{Error: errInternal, Message: "failed to check request rate"})
		return
	}

	if recent >= limits.RequestsPerMinute {
		c.JSON(http.StatusTooManyRequests, apiError{
			Error:   errRateLimited,
			Message: "too many requests, slow down and retry",
		})
		return
	}

	job := model.Job{
		JobID:           uuid.New().String(),
		UserID:          userID,
		JobType:         spec.Type,
		Status:          domain.JobStatusPending,
		Prompt:          spec.Prompt,
		SourceURL:       nullString(spec.SourceURL),
		DurationSeconds: spec.DurationSeconds,
		Width:           spec.Width,
		Height:          spec.Height,
		FPS:             spec.FPS,
		Style:           spec.Style,
		Quality:         spec.Quality,
		OutputFormat:    spec.OutputFormat,
		CallbackURL:     nullString(spec.CallbackURL),
		CreatedAt:       now,
		UpdatedAt:       now,
	}

	remaining, err := h.store.CreateJob(c.Request.Context(), &job, limits.MonthlyJobs)
	if err != nil {
		if errors.Is(err, domain.ErrQuotaExceeded) {
			c.JSON(http.StatusTooManyRequests, apiError{
				Error:   errQuota,
				Message: "monthly job quota reached for your tier",
			})
			return
		}
		h.logger.Error("Failed to create job", slog.String("error", err.Error()))
		c.JSON(http.StatusInternalServerError, apiError{Error: errInternal, Message: "failed to create job"})
		return
	}

	if err := h.enqueueJob(c.Request.Context(), job.JobID); err != nil {
		h.logger.Error("Failed to enqueue job",
			slog.String("job_id", job.JobID),
			slog.String("error", err.Error()),
		)
		// The row exists but no worker will ever see it; fail it in place
		// so the owner is not left watching a stuck pending job.
		_, _ = h.store.ApplyCallback(c.Request.Context(), &storage.CallbackUpdate{
			JobID:        job.JobID,
			Status:       domain.JobStatusFailed,
			ErrorMessage: "failed to enqueue job for dispatch",
		})
		c.JSON(http.StatusBadGateway, apiError{Error: errUpstream, Message: "failed to enqueue job"})
		return
	}

	h.logger.Info("Job created",
		slog.String("job_id", job.JobID),
		slog.String("user_id", userID),
		slog.String("type", job.JobType),
		slog.Int("remaining_quota", remaining),
	)

	if job.CallbackURL.Valid {
		h.webhooks.DispatchAsync(job.CallbackURL.String, &webhook.Event{
			JobID:  job.JobID,
			Event:  webhook.EventCreated,
			Status: domain.JobStatusPending,
		})
	}

	c.JSON(http.StatusAccepted, dto.CreateJobResponse{
		JobID:          job.JobID,
		Status:         job.Status,
		RemainingQuota: remaining,
	})
}

// GetJob handles GET /api/v1/jobs/:job_id
func (h *JobHandler) GetJob(c *gin.Context) {
	userID := c.GetString(CtxUserID)

	jobID := c.Param("job_id")
	if _, err := uuid.Parse(jobID); err != nil {
		c.JSON(http.StatusBadRequest, apiError{Error: errValidation, Message: "job_id must be a valid UUID"})
		return
	}

	job, err := h.store.GetJobForUser(c.Request.Context(), jobID, userID)
	if err != nil {
		if errors.Is(err, domain.ErrJobNotFound) {
			c.JSON(http.StatusNotFound, apiError{Error: errNotFound, Message: "job not found"})
			return
		}
		h.logger.Error("Failed to get job", slog.String("error", err.Error()))
		c.JSON(http.StatusInternalServerError, apiError{Error: errInternal, Message: "failed to get job"})
		return
	}

	c.JSON(http.StatusOK, jobToDTO(job))
}

// ListJobs handles GET /api/v1/jobs
// Lists the caller's jobs with optional filtering and cursor pagination
func (h *JobHandler) ListJobs(c *gin.Context) {
	userID := c.GetString(CtxUserID)

	var req dto.ListJobsRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		c.JSON(http.StatusBadRequest, apiError{Error: errValidation, Message: "invalid query parameters"})
		return
	}

	if req.PageSize <= 0 {
		req.PageSize = 20
	}
	if req.PageSize > 100 {
		req.PageSize = 100
	}

	cursor, err := DecodeJobCursor(req.Cursor)
	if err != nil {
		c.JSON(http.StatusBadRequest, apiError{Error: errValidation, Message: "invalid cursor"})
		return
	}

	filter := storage.JobFilter{
		UserID:   userID,
		JobType:  req.Type,
		Status:   req.Status,
		PageSize: req.PageSize,
		Cursor:   cursor,
	}

	jobs, err := h.store.ListJobs(c.Request.Context(), filter)
	if err != nil {
		h.logger.Error("Failed to list jobs", slog.String("error", err.Error()))
		c.JSON(http.StatusInternalServerError, apiError{Error: errInternal, Message: "failed to list jobs"})
		return
	}

	hasMore := len(jobs) > req.PageSize
	if hasMore {
		jobs = jobs[:req.PageSize]
	}

	items := make([]dto.JobDTO, len(jobs))
	for i := range jobs {
		items[i] = jobToDTO(&jobs[i])
	}

	var nextCursor string
	if hasMore {
		last := jobs[len(jobs)-1]
		nextCursor = EncodeJobCursor(&storage.JobCursor{
			CreatedAt: last.CreatedAt,
			JobID:     last.JobID,
		})
	}

	c.JSON(http.StatusOK, dto.ListJobsResponse{
		Jobs:       items,
		NextCursor: nextCursor,
	})
}

// StreamJobEvents handles GET /api/v1/jobs/:job_id/events
// Streams status snapshots over SSE until the job reaches a terminal
// state. A poll loop and a push subscription feed the same stream; the
// status never regresses and the stream ends at the first terminal
// snapshot.
func (h *JobHandler) StreamJobEvents(c *gin.Context) {
	userID := c.GetString(CtxUserID)

	jobID := c.Param("job_id")
	if _, err := uuid.Parse(jobID); err != nil {
		c.JSON(http.StatusBadRequest, apiError{Error: errValidation, Message: "job_id must be a valid UUID"})
		return
	}

	if _, err := h.store.GetJobForUser(c.Request.Context(), jobID, userID); err != nil {
		if errors.Is(err, domain.ErrJobNotFound) {
			c.JSON(http.StatusNotFound, apiError{Error: errNotFound, Message: "job not found"})
			return
		}
		h.logger.Error("Failed to get job", slog.String("error", err.Error()))
		c.JSON(http.StatusInternalServerError, apiError{Error: errInternal, Message: "failed to get job"})
		return
	}

	push, cancel := h.hub.Subscribe(jobID)
	defer cancel()

	fetch := func(ctx context.Context) (watch.Snapshot, error) {
		job, err := h.store.GetJobByID(ctx, jobID)
		if err != nil {
			return watch.Snapshot{}, err
		}
		return snapshotFromJob(job), nil
	}

	c.Header("Content-Type", "text/event-stream")
	c.Header("Cache-Control", "no-cache")
	c.Header("Connection", "keep-alive")

	watcher := watch.NewWatcher(fetch, push, h.pollInterval, h.logger)
	err := watcher.Run(c.Request.Context(), func(snap watch.Snapshot) {
		c.SSEvent("status", snap)
		c.Writer.Flush()
	})

	if err != nil && !errors.Is(err, context.Canceled) {
		h.logger.Warn("Job event stream ended with error",
			slog.String("job_id", jobID),
			slog.String("error", err.Error()),
		)
	}
}

// enqueueJob publishes the job-created message consumed by the worker
func (h *JobHandler) enqueueJob(ctx context.Context, jobID string) error {
	body, err := json.Marshal(map[string]string{"job_id": jobID})
	if err != nil {
		return err
	}
	return h.publisher.Publish(ctx, body, "application/json")
}

func jobToDTO(job *model.Job) dto.JobDTO {
	d := dto.JobDTO{
		JobID:           job.JobID,
		Type:            job.JobType,
		Status:          job.Status,
		Prompt:          job.Prompt,
		SourceURL:       job.SourceURL.String,
		DurationSeconds: job.DurationSeconds,
		Width:           job.Width,
		Height:          job.Height,
		FPS:             job.FPS,
		Style:           job.Style,
		Quality:         job.Quality,
		OutputFormat:    job.OutputFormat,
		OutputURL:       job.OutputURL.String,
		ThumbnailURL:    job.ThumbnailURL.String,
		ErrorMessage:    job.ErrorMessage.String,
		CreatedAt:       job.CreatedAt.Format(time.RFC3339),
	}

	if job.Progress.Valid {
		progress := int(job.Progress.Int64)
		d.Progress = &progress
	}
	if job.StartedAt.Valid {
		s := job.StartedAt.Time.Format(time.RFC3339)
		d.StartedAt = &s
	}
	if job.CompletedAt.Valid {
		s := job.CompletedAt.Time.Format(time.RFC3339)
		d.CompletedAt = &s
	}

	return d
}

func snapshotFromJob(job *model.Job) watch.Snapshot {
	snap := watch.Snapshot{
		JobID:        job.JobID,
		Status:       job.Status,
		OutputURL:    job.OutputURL.String,
		ThumbnailURL: job.ThumbnailURL.String,
		ErrorMessage: job.ErrorMessage.String,
		ObservedAt:   time.Now().UTC().Format(time.RFC3339),
	}
	if job.Progress.Valid {
		progress := int(job.Progress.Int64)
		snap.Progress = &progress
	}
	return snap
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}
