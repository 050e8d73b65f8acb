package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"ecodrop-backend/internal/models"
)

// HasDropInBucket reports whether the user already has a drop at the bin in
// the given day bucket.
func (s *Store) HasDropInBucket(ctx context.Context, userID, binID, dayBucket string) (bool, error) {
	var exists bool
	err := s.db.GetContext(ctx, &exists, `
		SELECT EXISTS(
			SELECT 1 FROM drop_events
			WHERE user_id = $1 AND bin_id = $2 AND day_bucket = $3
		)
	`, userID, binID, dayBucket)
	if err != nil {
		return false, fmt.Errorf("failed to check existing drop: %w", err)
	}
	return exists, nil
}

// CreateDropEvent inserts a verified drop. A concurrent insert for the same
// user, bin and day loses on the unique index and gets ErrDuplicateDrop.
func (s *Store) CreateDropEvent(ctx context.Context, drop *models.DropEvent) error {
	if drop.ID == "" {
		drop.ID = uuid.New().String()
	}

	_, err := s.db.NamedExecContext(ctx, `
		INSERT INTO drop_events (
			id, user_id, bin_id, latitude, longitude, accuracy, distance_meters,
			verified, verification_method, time_spent_in_radius, day_bucket,
			points_earned, co2_saved, rewards_applied, started_at, confirmed_at, created_at
		) VALUES (
			:id, :user_id, :bin_id, :latitude, :longitude, :accuracy, :distance_meters,
			:verified, :verification_method, :time_spent_in_radius, :day_bucket,
			:points_earned, :co2_saved, FALSE, :started_at, :confirmed_at, :created_at
		)
	`, drop)
	if isUniqueViolation(err) {
		return ErrDuplicateDrop
	}
	if isForeignKeyViolation(err, dropUserForeignKey) {
		return ErrUnknownUser
	}
	if err != nil {
		return fmt.Errorf("failed to create drop event: %w", err)
	}
	drop.RewardsApplied = false
	return nil
}

// ApplyDropRewards credits the user and fills the bin for one drop. The
// rewards_applied flag flips inside the same transaction, so a second call
// for the same drop changes nothing and reports Applied=false. Points and
// CO2 come from the drop row; effects supplies the item and bin increments.
func (s *Store) ApplyDropRewards(ctx context.Context, dropID string, effects models.RewardEffects) (models.RewardOutcome, error) {
	outcome := models.RewardOutcome{DropEventID: dropID}

	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return outcome, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	var drop models.DropEvent
	err = tx.GetContext(ctx, &drop, `
		UPDATE drop_events SET rewards_applied = TRUE
		WHERE id = $1 AND rewards_applied = FALSE
		RETURNING *
	`, dropID)
	if errors.Is(err, sql.ErrNoRows) {
		var exists bool
		if err := tx.GetContext(ctx, &exists, `SELECT EXISTS(SELECT 1 FROM drop_events WHERE id = $1)`, dropID); err != nil {
			return outcome, fmt.Errorf("failed to look up drop event: %w", err)
		}
		if !exists {
			return outcome, ErrNotFound
		}
		return outcome, nil
	}
	if err != nil {
		return outcome, fmt.Errorf("failed to mark rewards applied: %w", err)
	}
	outcome.UserID = drop.UserID
	outcome.BinID = drop.BinID

	err = tx.GetContext(ctx, &outcome.UserPoints, `
		UPDATE users
		SET points = points + $1,
			total_items_recycled = total_items_recycled + $2,
			total_co2_saved = total_co2_saved + $3,
			updated_at = EXTRACT(EPOCH FROM NOW())::BIGINT
		WHERE id = $4
		RETURNING points
	`, drop.PointsEarned, effects.ItemsRecycled, drop.CO2Saved, drop.UserID)
	if errors.Is(err, sql.ErrNoRows) {
		return outcome, fmt.Errorf("user %s: %w", drop.UserID, ErrNotFound)
	}
	if err != nil {
		return outcome, fmt.Errorf("failed to credit user: %w", err)
	}

	var previousStatus string
	err = tx.GetContext(ctx, &previousStatus, `SELECT status FROM bins WHERE id = $1 FOR UPDATE`, drop.BinID)
	if errors.Is(err, sql.ErrNoRows) {
		return outcome, fmt.Errorf("bin %s: %w", drop.BinID, ErrNotFound)
	}
	if err != nil {
		return outcome, fmt.Errorf("failed to lock bin: %w", err)
	}

	var bin struct {
		Name      string `db:"name"`
		FillLevel int    `db:"fill_level"`
		Status    string `db:"status"`
	}
	err = tx.GetContext(ctx, &bin, `
		UPDATE bins
		SET fill_level = LEAST(100, fill_level + $1),
			status = CASE
				WHEN status = 'operational' AND LEAST(100, fill_level + $1) >= $2 THEN 'full'
				ELSE status
			END,
			updated_at = EXTRACT(EPOCH FROM NOW())::BIGINT
		WHERE id = $3
		RETURNING name, fill_level, status
	`, effects.FillStep, effects.FullThreshold, drop.BinID)
	if err != nil {
		return outcome, fmt.Errorf("failed to update bin fill level: %w", err)
	}
	outcome.BinName = bin.Name
	outcome.FillLevel = bin.FillLevel
	outcome.BinBecameFull = previousStatus != models.BinStatusFull && bin.Status == models.BinStatusFull

	_, err = tx.ExecContext(ctx, `
		INSERT INTO user_activities (id, user_id, action, points, bin_id, bin_name, verification_method, co2_saved, date, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
	`, uuid.New().String(), drop.UserID, models.ActivityEWasteDropped, drop.PointsEarned,
		drop.BinID, bin.Name, drop.VerificationMethod, drop.CO2Saved, drop.DayBucket, drop.ConfirmedAt)
	if err != nil {
		return outcome, fmt.Errorf("failed to log user activity: %w", err)
	}

	_, err = tx.ExecContext(ctx, `
		INSERT INTO transactions (
			id, user_id, bin_id, drop_event_id, type, item_name, item_type, confidence, value,
			points_earned, verification_method, status, verified_at, verification_latitude,
			verification_longitude, created_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $13)
	`, uuid.New().String(), drop.UserID, drop.BinID, drop.ID, models.TransactionTypeRecycle,
		models.DropItemName, models.DropItemType, models.DropConfidence, models.DropRecyclingValue,
		drop.PointsEarned, drop.VerificationMethod, models.TransactionStatusApproved, drop.ConfirmedAt,
		drop.Latitude, drop.Longitude)
	if err != nil {
		return outcome, fmt.Errorf("failed to record transaction: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return outcome, fmt.Errorf("failed to commit rewards: %w", err)
	}

	outcome.Applied = true
	return outcome, nil
}

// ListPendingRewards returns drops whose rewards were never applied and that
// were created at or before the given unix time.
func (s *Store) ListPendingRewards(ctx context.Context, createdBefore int64, limit int) ([]models.DropEvent, error) {
	drops := []models.DropEvent{}
	err := s.db.SelectContext(ctx, &drops, `
		SELECT * FROM drop_events
		WHERE rewards_applied = FALSE AND created_at <= $1
		ORDER BY created_at ASC
		LIMIT $2
	`, createdBefore, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list pending rewards: %w", err)
	}
	return drops, nil
}

// ListUserDrops returns the user's most recent drops, newest first.
func (s *Store) ListUserDrops(ctx context.Context, userID string, limit int) ([]models.DropEventWithDetails, error) {
	drops := []models.DropEventWithDetails{}
	err := s.db.SelectContext(ctx, &drops, `
		SELECT d.*, u.name AS user_name, u.email AS user_email, b.name AS bin_name
		FROM drop_events d
		JOIN users u ON u.id = d.user_id
		JOIN bins b ON b.id = d.bin_id
		WHERE d.user_id = $1
		ORDER BY d.confirmed_at DESC
		LIMIT $2
	`, userID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list user drops: %w", err)
	}
	return drops, nil
}

const (
	DropFilterRewarded = "rewarded"
	DropFilterPending  = "pending"
)

type DropFilter struct {
	Page   int
	Limit  int
	Status string // "", "rewarded" or "pending"
}

// ListDrops returns one page of drops for the admin view plus the total count.
func (s *Store) ListDrops(ctx context.Context, f DropFilter) ([]models.DropEventWithDetails, int, error) {
	if f.Page < 1 {
		f.Page = 1
	}
	if f.Limit < 1 || f.Limit > 100 {
		f.Limit = 20
	}

	where := ""
	switch f.Status {
	case DropFilterRewarded:
		where = "WHERE d.rewards_applied = TRUE"
	case DropFilterPending:
		where = "WHERE d.rewards_applied = FALSE"
	}

	var total int
	if err := s.db.GetContext(ctx, &total, `SELECT COUNT(*) FROM drop_events d `+where); err != nil {
		return nil, 0, fmt.Errorf("failed to count drops: %w", err)
	}

	drops := []models.DropEventWithDetails{}
	err := s.db.SelectContext(ctx, &drops, `
		SELECT d.*, u.name AS user_name, u.email AS user_email, b.name AS bin_name
		FROM drop_events d
		JOIN users u ON u.id = d.user_id
		JOIN bins b ON b.id = d.bin_id
		`+where+`
		ORDER BY d.confirmed_at DESC
		LIMIT $1 OFFSET $2
	`, f.Limit, (f.Page-1)*f.Limit)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list drops: %w", err)
	}
	return drops, total, nil
}
