package storage

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/aurorasynth/aurora-backend/internal/api/domain"
	"github.com/aurorasynth/aurora-backend/internal/api/model"
)

// GetUserByAPIKey resolves an API key to a user row for authentication
func (s *Storage) GetUserByAPIKey(ctx context.Context, apiKey string) (*model.User, error) {
	query := `
		SELECT user_id, api_key, tier, created_at
		FROM users
		WHERE api_key = $1
	`

	var user model.User
	err := s.db.GetContext(ctx, &user, query, apiKey)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, domain.ErrUserNotFound
		}
		return nil, fmt.Errorf("failed to get user by api key: %w", err)
	}

	return &user, nil
}

// GetMonthlyUsage returns the job count for a (user, year, month). A
// missing row means no jobs were created that month.
func (s *Storage) GetMonthlyUsage(ctx context.Context, userID string, year, month int) (int, error) {
	query := `
		SELECT job_count
		FROM usage
		WHERE user_id = $1 AND year = $2 AND month = $3
	`

	var count int
	err := s.db.GetContext(ctx, &count, query, userID, year, month)
	if err != nil {
		if err == sql.ErrNoRows {
			return 0, nil
		}
		return 0, fmt.Errorf("failed to get monthly usage: %w", err)
	}

	return count, nil
}
