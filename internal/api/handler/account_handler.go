package handler

import (
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/aurorasynth/aurora-backend/internal/api/domain"
	"github.com/aurorasynth/aurora-backend/internal/api/dto"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// ListNotifications handles GET /api/v1/notifications
func (h *AccountHandler) ListNotifications(c *gin.Context) {
	userID := c.GetString(CtxUserID)

	var req dto.ListNotificationsRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		c.JSON(http.StatusBadRequest, apiError{Error: errValidation, Message: "invalid query parameters"})
		return
	}

	if req.Limit <= 0 {
		req.Limit = 50
	}
	if req.Limit > 200 {
		req.Limit = 200
	}

	notifications, err := h.store.ListNotifications(c.Request.Context(), userID, req.UnreadOnly, req.Limit)
	if err != nil {
		h.logger.Error("Failed to list notifications", slog.String("error", err.Error()))
		c.JSON(http.StatusInternalServerError, apiError{Error: errInternal, Message: "failed to list notifications"})
		return
	}

	items := make([]dto.NotificationDTO, len(notifications))
	for i, n := range notifications {
		items[i] = dto.NotificationDTO{
			NotificationID: n.NotificationID,
			JobID:          n.JobID,
			Type:           n.Type,
			Message:        n.Message,
			Read:           n.Read,
			CreatedAt:      n.CreatedAt.Format(time.RFC3339),
		}
	}

	c.JSON(http.StatusOK, dto.ListNotificationsResponse{Notifications: items})
}

// MarkNotificationRead handles POST /api/v1/notifications/:notification_id/read
func (h *AccountHandler) MarkNotificationRead(c *gin.Context) {
	userID := c.GetString(CtxUserID)

	notificationID := c.Param("notification_id")
	if _, err := uuid.Parse(notificationID); err != nil {
		c.JSON(http.StatusBadRequest, apiError{Error: errValidation, Message: "notification_id must be a valid UUID"})
		return
	}

	err := h.store.MarkNotificationRead(c.Request.Context(), notificationID, userID)
	if err != nil {
		if errors.Is(err, domain.ErrNotificationNotFound) {
			c.JSON(http.StatusNotFound, apiError{Error: errNotFound, Message: "notification not found"})
			return
		}
		h.logger.Error("Failed to mark notification read", slog.String("error", err.Error()))
		c.JSON(http.StatusInternalServerError, apiError{Error: errInternal, Message: "failed to update notification"})
		return
	}

	c.Status(http.StatusNoContent)
}

// GetUsage handles GET /api/v1/usage
// Reports the caller's current-month job count against the tier quota
func (h *AccountHandler) GetUsage(c *gin.Context) {
	userID := c.GetString(CtxUserID)
	tier := c.GetString(CtxTier)

	now := time.Now().UTC()
	year, month := now.Year(), int(now.Month())

	used, err := h.store.GetMonthlyUsage(c.Request.Context(), userID, year, month)
	if err != nil {
		h.logger.Error("Failed to get usage", slog.String("error", err.Error()))
		c.JSON(http.StatusInternalServerError, apiError{Error: errInternal, Message: "failed to get usage"})
		return
	}

	limits := domain.LimitsForTier(tier)
	remaining := limits.MonthlyJobs - used
	if remaining < 0 {
		remaining = 0
	}

	c.JSON(http.StatusOK, dto.UsageResponse{
		Tier:      tier,
		Year:      year,
		Month:     month,
		JobsUsed:  used,
		JobsLimit: limits.MonthlyJobs,
		Remaining: remaining,
	})
}
