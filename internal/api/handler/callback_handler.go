package handler

import (
	"errors"
	"fmt"
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

// RunnerCallback handles POST /internal/v1/callbacks/runner
// The compute provider reports a terminal outcome here. Delivery is
// at-least-once: a callback for an already-terminal job is acknowledged
// but not applied, so the first terminal outcome always wins.
func (h *JobHandler) RunnerCallback(c *gin.Context) {
	var req dto.RunnerCallbackRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, apiError{
			Error:   errValidation,
			Message: "invalid callback body: " + err.Error(),
		})
		return
	}

	if req.Status != domain.JobStatusCompleted && req.Status != domain.JobStatusFailed {
		c.JSON(http.StatusBadRequest, apiError{
			Error:   errValidation,
			Message: "callback status must be completed or failed",
		})
		return
	}

	// Fall back to the asset list when the flat fields are absent
	outputURL, thumbnailURL := req.OutputURL, req.ThumbnailURL
	for _, asset := range req.Assets {
		switch asset.Type {
		case "video":
			if outputURL == "" {
				outputURL = asset.URL
			}
		case "thumbnail":
			if thumbnailURL == "" {
				thumbnailURL = asset.URL
			}
		}
	}

	if req.Status == domain.JobStatusCompleted && outputURL == "" {
		c.JSON(http.StatusBadRequest, apiError{
			Error:   errValidation,
			Message: "completed callback requires an output URL",
		})
		return
	}

	job, err := h.store.GetJobByID(c.Request.Context(), req.JobID)
	if err != nil {
		if errors.Is(err, domain.ErrJobNotFound) {
			c.JSON(http.StatusNotFound, apiError{Error: errNotFound, Message: "job not found"})
			return
		}
		h.logger.Error("Failed to load job for callback", slog.String("error", err.Error()))
		c.JSON(http.StatusInternalServerError, apiError{Error: errInternal, Message: "failed to load job"})
		return
	}

	errorMessage := req.ErrorMessage
	if req.Status == domain.JobStatusFailed && errorMessage == "" {
		errorMessage = "processing failed"
	}

	applied, err := h.store.ApplyCallback(c.Request.Context(), &storage.CallbackUpdate{
		JobID:        req.JobID,
		Status:       req.Status,
		OutputURL:    outputURL,
		ThumbnailURL: thumbnailURL,
		ErrorMessage: errorMessage,
	})
	if err != nil {
		h.logger.Error("Failed to apply callback",
			slog.String("job_id", req.JobID),
			slog.String("error", err.Error()),
		)
		c.JSON(http.StatusInternalServerError, apiError{Error: errInternal, Message: "failed to apply callback"})
		return
	}

	status := job.Status
	if applied {
		status = req.Status

		h.logger.Info("Job reached terminal state",
			slog.String("job_id", req.JobID),
			slog.String("status", req.Status),
		)

		snap := watch.Snapshot{
			JobID:        req.JobID,
			Status:       req.Status,
			OutputURL:    outputURL,
			ThumbnailURL: thumbnailURL,
			ErrorMessage: errorMessage,
			ObservedAt:   time.Now().UTC().Format(time.RFC3339),
		}
		if req.Status == domain.JobStatusCompleted {
			progress := 100
			snap.Progress = &progress
			snap.ErrorMessage = ""
		} else {
			snap.OutputURL = ""
			snap.ThumbnailURL = ""
		}
		h.hub.Publish(snap)

		h.notifyOwner(c, job, req.Status, errorMessage)

		if job.CallbackURL.Valid {
			event := &webhook.Event{
				JobID:  req.JobID,
				Status: req.Status,
			}
			if req.Status == domain.JobStatusCompleted {
				event.Event = webhook.EventCompleted
				event.OutputURL = outputURL
				event.ThumbnailURL = thumbnailURL
			} else {
				event.Event = webhook.EventFailed
				event.ErrorMessage = errorMessage
			}
			h.webhooks.DispatchAsync(job.CallbackURL.String, event)
		}
	} else {
		h.logger.Warn("Ignored callback for terminal job",
			slog.String("job_id", req.JobID),
			slog.String("current_status", job.Status),
			slog.String("callback_status", req.Status),
		)
	}

	c.JSON(http.StatusOK, dto.RunnerCallbackResponse{
		JobID:   req.JobID,
		Status:  status,
		Applied: applied,
	})
}

// notifyOwner writes the terminal-state notification row. Failures are
// logged and never affect the callback response.
func (h *JobHandler) notifyOwner(c *gin.Context, job *model.Job, status, errorMessage string) {
	var notifType, message string
	if status == domain.JobStatusCompleted {
		notifType = "job_completed"
		message = "Your video is ready"
	} else {
		notifType = "job_failed"
		message = fmt.Sprintf("Video %s failed: %s", job.JobType, errorMessage)
	}

	n := &model.Notification{
		NotificationID: uuid.New().String(),
		UserID:         job.UserID,
		JobID:          job.JobID,
		Type:           notifType,
		Message:        message,
		CreatedAt:      time.Now().UTC(),
	}

	if err := h.store.CreateNotification(c.Request.Context(), n); err != nil {
		h.logger.Error("Failed to create notification",
			slog.String("job_id", job.JobID),
			slog.String("error", err.Error()),
		)
	}
}
