package handler

import (
	"context"
	"database/sql"
	"fmt"
	"sync"
	"time"

	"github.com/aurorasynth/aurora-backend/internal/api/domain"
	"github.com/aurorasynth/aurora-backend/internal/api/model"
	"github.com/aurorasynth/aurora-backend/internal/api/storage"
)

// fakeStore is an in-memory Store that mirrors the SQL semantics the
// handlers rely on: atomic quota increment-and-check and the conditional
// terminal-only-once callback update.
type fakeStore struct {
	mu            sync.Mutex
	users         map[string]*model.User // keyed by API key
	jobs          map[string]*model.Job
	usage         map[string]int
	notifications []model.Notification
	recentCount   int

	createErr error
	listErr   error
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		users: make(map[string]*model.User),
		jobs:  make(map[string]*model.Job),
		usage: make(map[string]int),
	}
}

func usageKey(userID string, year, month int) string {
	return fmt.Sprintf("%s|%d|%d", userID, year, month)
}

func (f *fakeStore) CreateJob(ctx context.Context, job *model.Job, monthlyLimit int) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.createErr != nil {
		return 0, f.createErr
	}

	key := usageKey(job.UserID, job.CreatedAt.UTC().Year(), int(job.CreatedAt.UTC().Month()))
	count := f.usage[key] + 1
	if count > monthlyLimit {
		return 0, domain.ErrQuotaExceeded
	}

	f.usage[key] = count
	copied := *job
	f.jobs[job.JobID] = &copied

	return monthlyLimit - count, nil
}

func (f *fakeStore) CountJobsSince(ctx context.Context, userID string, since time.Time) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.recentCount, nil
}

func (f *fakeStore) GetJobForUser(ctx context.Context, jobID, userID string) (*model.Job, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	job, ok := f.jobs[jobID]
	if !ok || job.UserID != userID {
		return nil, domain.ErrJobNotFound
	}
	copied := *job
	return &copied, nil
}

func (f *fakeStore) GetJobByID(ctx context.Context, jobID string) (*model.Job, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	job, ok := f.jobs[jobID]
	if !ok {
		return nil, domain.ErrJobNotFound
	}
	copied := *job
	return &copied, nil
}

func (f *fakeStore) ListJobs(ctx context.Context, filter storage.JobFilter) ([]model.Job, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.listErr != nil {
		return nil, f.listErr
	}

	var jobs []model.Job
	for _, job := range f.jobs {
		if job.UserID != filter.UserID {
			continue
		}
		if filter.Status != "" && job.Status != filter.Status {
			continue
		}
		if filter.JobType != "" && job.JobType != filter.JobType {
			continue
		}
		jobs = append(jobs, *job)
	}

	// newest first, matching the SQL ordering
	for i := 0; i < len(jobs); i++ {
		for j := i + 1; j < len(jobs); j++ {
			if jobs[j].CreatedAt.After(jobs[i].CreatedAt) {
				jobs[i], jobs[j] = jobs[j], jobs[i]
			}
		}
	}

	if len(jobs) > filter.PageSize+1 {
		jobs = jobs[:filter.PageSize+1]
	}

	return jobs, nil
}

func (f *fakeStore) ApplyCallback(ctx context.Context, upd *storage.CallbackUpdate) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	job, ok := f.jobs[upd.JobID]
	if !ok || domain.IsTerminalStatus(job.Status) {
		return false, nil
	}

	now := time.Now().UTC()
	job.Status = upd.Status
	if upd.Status == domain.JobStatusCompleted {
		job.OutputURL = sql.NullString{String: upd.OutputURL, Valid: upd.OutputURL != ""}
		job.ThumbnailURL = sql.NullString{String: upd.ThumbnailURL, Valid: upd.ThumbnailURL != ""}
		job.Progress = sql.NullInt64{Int64: 100, Valid: true}
		job.ErrorMessage = sql.NullString{}
	} else {
		job.OutputURL = sql.NullString{}
		job.ThumbnailURL = sql.NullString{}
		job.ErrorMessage = sql.NullString{String: upd.ErrorMessage, Valid: upd.ErrorMessage != ""}
	}
	if !job.StartedAt.Valid {
		job.StartedAt = sql.NullTime{Time: now, Valid: true}
	}
	job.CompletedAt = sql.NullTime{Time: now, Valid: true}
	job.UpdatedAt = now

	return true, nil
}

func (f *fakeStore) CreateNotification(ctx context.Context, n *model.Notification) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.notifications = append(f.notifications, *n)
	return nil
}

func (f *fakeStore) ListNotifications(ctx context.Context, userID string, unreadOnly bool, limit int) ([]model.Notification, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	var out []model.Notification
	for _, n := range f.notifications {
		if n.UserID != userID {
			continue
		}
		if unreadOnly && n.Read {
			continue
		}
		out = append(out, n)
		if len(out) >= limit {
			break
		}
	}
	return out, nil
}

func (f *fakeStore) MarkNotificationRead(ctx context.Context, notificationID, userID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	for i := range f.notifications {
		if f.notifications[i].NotificationID == notificationID && f.notifications[i].UserID == userID {
			f.notifications[i].Read = true
			return nil
		}
	}
	return domain.ErrNotificationNotFound
}

func (f *fakeStore) GetUserByAPIKey(ctx context.Context, apiKey string) (*model.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	user, ok := f.users[apiKey]
	if !ok {
		return nil, domain.ErrUserNotFound
	}
	copied := *user
	return &copied, nil
}

func (f *fakeStore) GetMonthlyUsage(ctx context.Context, userID string, year, month int) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.usage[usageKey(userID, year, month)], nil
}

// fakePublisher records published dispatch messages
type fakePublisher struct {
	mu       sync.Mutex
	messages [][]byte
	err      error
}

func (f *fakePublisher) Publish(ctx context.Context, body []byte, contentType string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	f.messages = append(f.messages, body)
	return nil
}

func (f *fakePublisher) published() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.messages)
}
