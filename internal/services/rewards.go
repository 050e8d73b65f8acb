package services

import (
	"context"
	"fmt"
	"log"
	"time"

	"ecodrop-backend/internal/config"
	"ecodrop-backend/internal/models"
)

// RewardStore applies reward effects for a drop exactly once.
type RewardStore interface {
	ApplyDropRewards(ctx context.Context, dropID string, effects models.RewardEffects) (models.RewardOutcome, error)
}

// Notifier is told about every drop whose rewards were just applied.
// Notifiers are best effort and must not block for long.
type Notifier interface {
	DropRewarded(ctx context.Context, drop models.DropEvent, outcome models.RewardOutcome)
}

// RewardLedger credits users for verified drops.
type RewardLedger struct {
	store     RewardStore
	policy    config.Policy
	notifiers []Notifier
}

func NewRewardLedger(store RewardStore, policy config.Policy, notifiers ...Notifier) *RewardLedger {
	return &RewardLedger{store: store, policy: policy, notifiers: notifiers}
}

func (l *RewardLedger) Effects() models.RewardEffects {
	return models.RewardEffects{
		Points:        l.policy.RewardPoints,
		CO2Saved:      l.policy.RewardCO2Kg,
		ItemsRecycled: l.policy.ItemsPerDrop,
		FillStep:      l.policy.FillStep,
		FullThreshold: l.policy.FullThreshold,
	}
}

// Apply credits drop. Calling it again for the same drop is harmless and
// returns an outcome with Applied=false.
func (l *RewardLedger) Apply(ctx context.Context, drop *models.DropEvent) (models.RewardOutcome, error) {
	outcome, err := l.store.ApplyDropRewards(ctx, drop.ID, l.Effects())
	if err != nil {
		return outcome, fmt.Errorf("failed to apply rewards for drop %s: %w", drop.ID, err)
	}
	if !outcome.Applied {
		return outcome, nil
	}

	log.Printf("🏆 Rewards applied: drop %s, +%d points for %s (bin %s at %d%%)",
		drop.ID, drop.PointsEarned, drop.UserID, outcome.BinName, outcome.FillLevel)
	if outcome.BinBecameFull {
		log.Printf("🗑️  Bin %s (%s) is now full", outcome.BinName, outcome.BinID)
	}

	for _, n := range l.notifiers {
		n.DropRewarded(ctx, *drop, outcome)
	}
	return outcome, nil
}

// TokenStore looks up a user's push tokens.
type TokenStore interface {
	GetFCMTokens(ctx context.Context, userID string) ([]string, error)
}

// PushNotifier sends the "drop verified" push in the background.
type PushNotifier struct {
	fcm     *FCMService
	tokens  TokenStore
	timeout time.Duration
}

func NewPushNotifier(fcm *FCMService, tokens TokenStore) *PushNotifier {
	return &PushNotifier{fcm: fcm, tokens: tokens, timeout: 10 * time.Second}
}

func (p *PushNotifier) DropRewarded(_ context.Context, drop models.DropEvent, outcome models.RewardOutcome) {
	if p.fcm == nil {
		return
	}

	go func() {
		// detached from the request so a finished response doesn't cancel the push
		ctx, cancel := context.WithTimeout(context.Background(), p.timeout)
		defer cancel()

		tokens, err := p.tokens.GetFCMTokens(ctx, drop.UserID)
		if err != nil {
			log.Printf("⚠️  Failed to load FCM tokens for %s: %v", drop.UserID, err)
			return
		}
		if len(tokens) == 0 {
			return
		}
		if err := p.fcm.SendDropVerifiedNotification(ctx, tokens, drop.ID, outcome.BinName, drop.PointsEarned, drop.CO2Saved); err != nil {
			log.Printf("⚠️  Failed to send drop notification to %s: %v", drop.UserID, err)
		}
	}()
}
