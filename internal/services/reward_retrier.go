package services

import (
	"context"
	"log"
	"time"

	"ecodrop-backend/internal/models"
)

type PendingRewardStore interface {
	ListPendingRewards(ctx context.Context, createdBefore int64, limit int) ([]models.DropEvent, error)
}

// RewardRetrier periodically re-applies rewards for drops that were recorded
// but never credited, e.g. because the database hiccupped mid-request.
type RewardRetrier struct {
	pending  PendingRewardStore
	ledger   RewardApplier
	interval time.Duration
	// grace keeps the retrier away from drops whose request is still in flight
	grace time.Duration
	batch int
	now   func() time.Time
}

func NewRewardRetrier(pending PendingRewardStore, ledger RewardApplier, interval time.Duration) *RewardRetrier {
	return &RewardRetrier{
		pending:  pending,
		ledger:   ledger,
		interval: interval,
		grace:    30 * time.Second,
		batch:    50,
		now:      time.Now,
	}
}

// Run retries on every tick until ctx is cancelled.
func (r *RewardRetrier) Run(ctx context.Context) {
	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()

	log.Printf("🔁 Reward retrier started (every %s)", r.interval)
	for {
		select {
		case <-ctx.Done():
			log.Println("🔁 Reward retrier stopped")
			return
		case <-ticker.C:
			if _, err := r.RetryOnce(ctx); err != nil {
				log.Printf("⚠️  Reward retry pass failed: %v", err)
			}
		}
	}
}

// RetryOnce processes one batch and returns how many drops were credited.
func (r *RewardRetrier) RetryOnce(ctx context.Context) (int, error) {
	cutoff := r.now().Add(-r.grace).Unix()
	drops, err := r.pending.ListPendingRewards(ctx, cutoff, r.batch)
	if err != nil {
		return 0, err
	}

	applied := 0
	for i := range drops {
		if ctx.Err() != nil {
			return applied, ctx.Err()
		}
		outcome, err := r.ledger.Apply(ctx, &drops[i])
		if err != nil {
			log.Printf("⚠️  Retry failed for drop %s: %v", drops[i].ID, err)
			continue
		}
		if outcome.Applied {
			applied++
		}
	}
	if applied > 0 {
		log.Printf("✅ Reward retrier credited %d drop(s)", applied)
	}
	return applied, nil
}
