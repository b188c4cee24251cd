package handler

import (
	"context"
	"log/slog"
	"time"

	"github.com/aurorasynth/aurora-backend/internal/api/domain"
	"github.com/aurorasynth/aurora-backend/internal/api/model"
	"github.com/aurorasynth/aurora-backend/internal/api/storage"
	"github.com/aurorasynth/aurora-backend/internal/api/watch"
	"github.com/aurorasynth/aurora-backend/internal/webhook"
)

// Context keys set by the auth middleware
const (
	CtxUserID = "user_id"
	CtxTier   = "tier"
)

// Store is the persistence surface the handlers depend on, implemented by
// storage.Storage
type Store interface {
	CreateJob(ctx context.Context, job *model.Job, monthlyLimit int) (int, error)
	CountJobsSince(ctx context.Context, userID string, since time.Time) (int, error)
	GetJobForUser(ctx context.Context, jobID, userID string) (*model.Job, error)
	GetJobByID(ctx context.Context, jobID string) (*model.Job, error)
	ListJobs(ctx context.Context, filter storage.JobFilter) ([]model.Job, error)
	ApplyCallback(ctx context.Context, upd *storage.CallbackUpdate) (bool, error)
	CreateNotification(ctx context.Context, n *model.Notification) error
	ListNotifications(ctx context.Context, userID string, unreadOnly bool, limit int) ([]model.Notification, error)
	MarkNotificationRead(ctx context.Context, notificationID, userID string) error
	GetUserByAPIKey(ctx context.Context, apiKey string) (*model.User, error)
	GetMonthlyUsage(ctx context.Context, userID string, year, month int) (int, error)
}

// Publisher hands a job-created message to the dispatch queue, implemented
// by rabbitmq.Client
type Publisher interface {
	Publish(ctx context.Context, body []byte, contentType string) error
}

// Dependencies holds all dependencies needed by handlers
type Dependencies struct {
	Logger       *slog.Logger
	Store        Store
	Publisher    Publisher
	Hub          *watch.Hub
	Webhooks     *webhook.Dispatcher
	PollInterval time.Duration
}

// apiError is the uniform error body. Error carries the machine-readable
// classification so clients can tell a quota rejection from a validation
// failure.
type apiError struct {
	Error   string              `json:"error"`
	Message string              `json:"message,omitempty"`
	Fields  []domain.FieldError `json:"fields,omitempty"`
}

// Error classifications
const (
	errValidation   = "validation_error"
	errRateLimited  = "rate_limited"
	errQuota        = "quota_exceeded"
	errUnauthorized = "unauthorized"
	errNotFound     = "not_found"
	errUpstream     = "upstream_error"
	errInternal     = "internal"
)

// JobHandler handles job submission, status, streaming, and callbacks
type JobHandler struct {
	logger       *slog.Logger
	store        Store
	publisher    Publisher
	hub          *watch.Hub
	webhooks     *webhook.Dispatcher
	pollInterval time.Duration
}

// NewJobHandler creates a new JobHandler instance
func NewJobHandler(deps *Dependencies) *JobHandler {
	return &JobHandler{
		logger:       deps.Logger,
		store:        deps.Store,
		publisher:    deps.Publisher,
		hub:          deps.Hub,
		webhooks:     deps.Webhooks,
		pollInterval: deps.PollInterval,
	}
}

// AccountHandler handles notification and usage endpoints
type AccountHandler struct {
	logger *slog.Logger
	store  Store
}

// NewAccountHandler creates a new AccountHandler instance
func NewAccountHandler(deps *Dependencies) *AccountHandler {
	return &AccountHandler{
		logger: deps.Logger,
		store:  deps.Store,
	}
}
