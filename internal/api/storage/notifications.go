package storage

import (
	"context"
	"fmt"

	"github.com/aurorasynth/aurora-backend/internal/api/domain"
	"github.com/aurorasynth/aurora-backend/internal/api/model"
)

// CreateNotification inserts a user-facing notification row
func (s *Storage) CreateNotification(ctx context.Context, n *model.Notification) error {
	query := `
		INSERT INTO notifications (
			notification_id, user_id, job_id, type, message, read, created_at
		) VALUES (
			$1, $2, $3, $4, $5, $6, $7
		)
	`

	_, err := s.db.ExecContext(
		ctx,
		query,
		n.NotificationID,
		n.UserID,
		n.JobID,
		n.Type,
		n.Message,
		n.Read,
		n.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create notification: %w", err)
	}

	return nil
}

// ListNotifications returns the user's notifications, newest first
func (s *Storage) ListNotifications(ctx context.Context, userID string, unreadOnly bool, limit int) ([]model.Notification, error) {
	query := `
		SELECT notification_id, user_id, job_id, type, message, read, created_at
		FROM notifications
		WHERE user_id = $1
	`
	args := []interface{}{userID}

	if unreadOnly {
		query += " AND read = FALSE"
	}

	query += " ORDER BY created_at DESC LIMIT $2"
	args = append(args, limit)

	var notifications []model.Notification
	if err := s.db.SelectContext(ctx, &notifications, query, args...); err != nil {
		return nil, fmt.Errorf("failed to list notifications: %w", err)
	}

	return notifications, nil
}

// MarkNotificationRead flags a notification as read, scoped to its owner
func (s *Storage) MarkNotificationRead(ctx context.Context, notificationID, userID string) error {
	query := `
		UPDATE notifications
		SET read = TRUE
		WHERE notification_id = $1 AND user_id = $2
	`

	result, err := s.db.ExecContext(ctx, query, notificationID, userID)
	if err != nil {
		return fmt.Errorf("failed to mark notification read: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to read rows affected: %w", err)
	}

	if affected == 0 {
		return domain.ErrNotificationNotFound
	}

	return nil
}
