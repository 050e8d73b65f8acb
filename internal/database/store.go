package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"ecodrop-backend/internal/models"
)

// Store is the Postgres-backed persistence for bins, users and drops.
type Store struct {
	db *sqlx.DB
}

func NewStore(db *sqlx.DB) *Store {
	return &Store{db: db}
}

// GetBin retrieves a single bin by ID
func (s *Store) GetBin(ctx context.Context, id string) (*models.Bin, error) {
	var bin models.Bin
	err := s.db.GetContext(ctx, &bin, `SELECT * FROM bins WHERE id = $1`, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get bin: %w", err)
	}
	return &bin, nil
}

// ListBins returns all bins, optionally filtered by status.
func (s *Store) ListBins(ctx context.Context, status string) ([]models.Bin, error) {
	bins := []models.Bin{}
	var err error
	if status != "" {
		err = s.db.SelectContext(ctx, &bins, `SELECT * FROM bins WHERE status = $1 ORDER BY name ASC`, status)
	} else {
		err = s.db.SelectContext(ctx, &bins, `SELECT * FROM bins ORDER BY name ASC`)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to list bins: %w", err)
	}
	return bins, nil
}

// UpdateBin applies an admin change to a bin. Marking a bin collected empties
// it and returns a full bin to service.
func (s *Store) UpdateBin(ctx context.Context, id string, req models.UpdateBinRequest) (*models.Bin, error) {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	var bin models.Bin
	err = tx.GetContext(ctx, &bin, `SELECT * FROM bins WHERE id = $1 FOR UPDATE`, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to lock bin: %w", err)
	}

	now := time.Now().Unix()
	if req.Collected {
		bin.FillLevel = 0
		bin.LastCollection = &now
		if bin.Status == models.BinStatusFull {
			bin.Status = models.BinStatusOperational
		}
	}
	if req.FillLevel != nil {
		bin.FillLevel = *req.FillLevel
	}
	if req.Status != nil {
		bin.Status = *req.Status
	}
	bin.UpdatedAt = now

	_, err = tx.ExecContext(ctx, `
		UPDATE bins
		SET status = $1, fill_level = $2, last_collection = $3, updated_at = $4
		WHERE id = $5
	`, bin.Status, bin.FillLevel, bin.LastCollection, bin.UpdatedAt, id)
	if err != nil {
		return nil, fmt.Errorf("failed to update bin: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit bin update: %w", err)
	}
	return &bin, nil
}
