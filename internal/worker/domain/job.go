package domain

// Job status constants, shared with the API service through the jobs table
const (
	JobStatusPending    = "pending"
	JobStatusProcessing = "processing"
	JobStatusCompleted  = "completed"
	JobStatusFailed     = "failed"
)

// Job carries the render parameters a dispatch needs, loaded when the
// worker claims the row
type Job struct {
	JobID           string
	UserID          string
	JobType         string
	Prompt          string
	SourceURL       string
	DurationSeconds int
	Width           int
	Height          int
	FPS             int
	Style           string
	Quality         string
	OutputFormat    string
	CallbackURL     string
	Status          string
	WorkerID        string
}

// JobMessage represents a job message from RabbitMQ
type JobMessage struct {
	JobID       string `json:"job_id"`
	DeliveryTag uint64 `json:"-"`
}
