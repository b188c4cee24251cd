package dto

type CreateJobRequest struct {
	Type            string `json:"type" binding:"required"`
	Prompt          string `json:"prompt"`
	SourceURL       string `json:"source_url"`
	DurationSeconds int    `json:"duration_seconds" binding:"required"`
	Width           int    `json:"width" binding:"required"`
	Height          int    `json:"height" binding:"required"`
	FPS             int    `json:"fps"`
	Style           string `json:"style"`
	Quality         string `json:"quality"`
	OutputFormat    string `json:"output_format"`
	CallbackURL     string `json:"callback_url"`
}

type CreateJobResponse struct {
	JobID          string `json:"job_id"`
	Status         string `json:"status"`
	RemainingQuota int    `json:"remaining_quota"`
}

type ListJobsRequest struct {
	Status   string `form:"status"`
	Type     string `form:"type"`
	PageSize int    `form:"page_size"`
	Cursor   string `form:"cursor"`
}

type ListJobsResponse struct {
	Jobs       []JobDTO `json:"jobs"`
	NextCursor string   `json:"next_cursor,omitempty"`
}

type JobDTO struct {
	JobID           string  `json:"job_id"`
	Type            string  `json:"type"`
	Status          string  `json:"status"`
	Prompt          string  `json:"prompt,omitempty"`
	SourceURL       string  `json:"source_url,omitempty"`
	DurationSeconds int     `json:"duration_seconds"`
	Width           int     `json:"width"`
	Height          int     `json:"height"`
	FPS             int     `json:"fps"`
	Style           string  `json:"style"`
	Quality         string  `json:"quality"`
	OutputFormat    string  `json:"output_format"`
	Progress        *int    `json:"progress,omitempty"`
	OutputURL       string  `json:"output_url,omitempty"`
	ThumbnailURL    string  `json:"thumbnail_url,omitempty"`
	ErrorMessage    string  `json:"error_message,omitempty"`
	CreatedAt       string  `json:"created_at"`
	StartedAt       *string `json:"started_at,omitempty"`
	CompletedAt     *string `json:"completed_at,omitempty"`
}

type UsageResponse struct {
	Tier      string `json:"tier"`
	Year      int    `json:"year"`
	Month     int    `json:"month"`
	JobsUsed  int    `json:"jobs_used"`
	JobsLimit int    `json:"jobs_limit"`
	Remaining int    `json:"remaining"`
}
