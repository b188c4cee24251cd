package model

import (
	"database/sql"
	"time"
)

// User is an account row. The API key authenticates requests and the tier
// selects the quota and rate constants.
type User struct {
	UserID    string    `db:"user_id"`
	APIKey    string    `db:"api_key"`
	Tier      string    `db:"tier"`
	CreatedAt time.Time `db:"created_at"`
}

// Job is one requested unit of generation or enhancement work. Request
// parameters are set once at insert; the lifecycle columns (status,
// output/error, timestamps) are the only mutable part.
type Job struct {
	JobID           string         `db:"job_id"`
	UserID          string         `db:"user_id"`
	JobType         string         `db:"job_type"`
	Status          string         `db:"status"`
	Prompt          string         `db:"prompt"`
	SourceURL       sql.NullString `db:"source_url"`
	DurationSeconds int            `db:"duration_seconds"`
	Width           int            `db:"width"`
	Height          int            `db:"height"`
	FPS             int            `db:"fps"`
	Style           string         `db:"style"`
	Quality         string         `db:"quality"`
	OutputFormat    string         `db:"output_format"`
	CallbackURL     sql.NullString `db:"callback_url"`
	OutputURL       sql.NullString `db:"output_url"`
	ThumbnailURL    sql.NullString `db:"thumbnail_url"`
	Progress        sql.NullInt64  `db:"progress"`
	ErrorMessage    sql.NullString `db:"error_message"`
	CreatedAt       time.Time      `db:"created_at"`
	StartedAt       sql.NullTime   `db:"started_at"`
	CompletedAt     sql.NullTime   `db:"completed_at"`
	UpdatedAt       time.Time      `db:"updated_at"`
}

// Usage tracks jobs created per (user, calendar month). Incremented at job
// creation, never decremented; the month key changing resets it implicitly.
type Usage struct {
	UserID   string `db:"user_id"`
	Year     int    `db:"year"`
	Month    int    `db:"month"`
	JobCount int    `db:"job_count"`
}

// Notification is a user-facing record written when a job reaches a
// terminal state.
type Notification struct {
	NotificationID string    `db:"notification_id"`
	UserID         string    `db:"user_id"`
	JobID          string    `db:"job_id"`
	Type           string    `db:"type"`
	Message        string    `db:"message"`
	Read           bool      `db:"read"`
	CreatedAt      time.Time `db:"created_at"`
}
