package dto

type ListNotificationsRequest struct {
	UnreadOnly bool `form:"unread_only"`
	Limit      int  `form:"limit"`
}

type ListNotificationsResponse struct {
	Notifications []NotificationDTO `json:"notifications"`
}

type NotificationDTO struct {
	NotificationID string `json:"notification_id"`
	JobID          string `json:"job_id"`
	Type           string `json:"type"`
	Message        string `json:"message"`
	Read           bool   `json:"read"`
	CreatedAt      string `json:"created_at"`
}
