package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"ecodrop-backend/internal/models"
)

func (s *Store) GetUserByEmail(ctx context.Context, email string) (*models.User, error) {
	var user models.User
	err := s.db.GetContext(ctx, &user, `SELECT * FROM users WHERE email = $1`, email)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get user: %w", err)
	}
	return &user, nil
}

func (s *Store) GetUserByID(ctx context.Context, id string) (*models.User, error) {
	var user models.User
	err := s.db.GetContext(ctx, &user, `SELECT * FROM users WHERE id = $1`, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get user: %w", err)
	}
	return &user, nil
}

// Leaderboard returns the top users by points with their rank filled in.
func (s *Store) Leaderboard(ctx context.Context, limit int) ([]models.LeaderboardEntry, error) {
	entries := []models.LeaderboardEntry{}
	err := s.db.SelectContext(ctx, &entries, `
		SELECT id, name, points, total_items_recycled, total_co2_saved
		FROM users
		WHERE role = 'user'
		ORDER BY points DESC, total_items_recycled DESC, created_at ASC
		LIMIT $1
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to get leaderboard: %w", err)
	}
	for i := range entries {
		entries[i].Rank = i + 1
	}
	return entries, nil
}

// UpsertFCMToken registers a device token, moving it to userID if another
// user had it.
func (s *Store) UpsertFCMToken(ctx context.Context, userID, token, deviceType string) error {
	now := time.Now().Unix()
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO fcm_tokens (user_id, token, device_type, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT(token) DO UPDATE SET
			user_id = excluded.user_id,
			device_type = excluded.device_type,
			updated_at = excluded.updated_at
	`, userID, token, deviceType, now, now)
	if err != nil {
		return fmt.Errorf("failed to register FCM token: %w", err)
	}
	return nil
}

// GetFCMTokens returns the user's device tokens, most recently updated first.
func (s *Store) GetFCMTokens(ctx context.Context, userID string) ([]string, error) {
	tokens := []string{}
	err := s.db.SelectContext(ctx, &tokens, `
		SELECT token FROM fcm_tokens WHERE user_id = $1 ORDER BY updated_at DESC
	`, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to get FCM tokens: %w", err)
	}
	return tokens, nil
}

// RecordNavigation logs a BIN_NAVIGATED activity. It earns no points.
func (s *Store) RecordNavigation(ctx context.Context, userID, binID, binName string) error {
	now := time.Now()
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO user_activities (id, user_id, action, points, bin_id, bin_name, date, created_at)
		SELECT $1, $2, $3, 0, id, $5, $6, $7 FROM bins WHERE id = $4
	`, uuid.New().String(), userID, models.ActivityBinNavigated, binID, binName, now.UTC().Format("2006-01-02"), now.Unix())
	if err != nil {
		return fmt.Errorf("failed to record navigation: %w", err)
	}
	return nil
}

// ListUserActivities returns the user's activity feed, newest first.
func (s *Store) ListUserActivities(ctx context.Context, userID string, limit int) ([]models.UserActivity, error) {
	activities := []models.UserActivity{}
	err := s.db.SelectContext(ctx, &activities, `
		SELECT * FROM user_activities
		WHERE user_id = $1
		ORDER BY created_at DESC
		LIMIT $2
	`, userID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list user activities: %w", err)
	}
	return activities, nil
}
