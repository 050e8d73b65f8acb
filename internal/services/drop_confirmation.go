package services

import (
	"context"
	"errors"
	"fmt"
	"log"
	"math"
	"strconv"
	"time"

	"ecodrop-backend/internal/apperr"
	"ecodrop-backend/internal/config"
	"ecodrop-backend/internal/database"
	"ecodrop-backend/internal/geo"
	"ecodrop-backend/internal/models"
)

type BinStore interface {
	GetBin(ctx context.Context, id string) (*models.Bin, error)
}

type DropStore interface {
	HasDropInBucket(ctx context.Context, userID, binID, dayBucket string) (bool, error)
	CreateDropEvent(ctx context.Context, drop *models.DropEvent) error
}

type RewardApplier interface {
	Apply(ctx context.Context, drop *models.DropEvent) (models.RewardOutcome, error)
}

// ConfirmRequest is a drop claim. UserID comes from the authenticated
// caller, never from the body.
type ConfirmRequest struct {
	UserID    string
	BinID     string
	Latitude  *float64
	Longitude *float64
	TimeSpent *float64
	Accuracy  *float64
}

type ConfirmResult struct {
	Drop     models.DropEvent
	Bin      models.Bin
	Distance float64
	// Rewards is nil when applying them failed; the retrier picks those up.
	Rewards *models.RewardOutcome
}

// DropConfirmationService re-validates a drop claim on the server and
// records it. Nothing the client computed is trusted except timeSpent,
// which is only bounds-checked.
type DropConfirmationService struct {
	bins     BinStore
	drops    DropStore
	rewards  RewardApplier
	policy   config.Policy
	location *time.Location

	now      func() time.Time
	distance func(lat1, lon1, lat2, lon2 float64) float64
}

func NewDropConfirmationService(bins BinStore, drops DropStore, rewards RewardApplier, policy config.Policy, location *time.Location) *DropConfirmationService {
	if location == nil {
		location = time.UTC
	}
	return &DropConfirmationService{
		bins:     bins,
		drops:    drops,
		rewards:  rewards,
		policy:   policy,
		location: location,
		now:      time.Now,
		distance: geo.DistanceMeters,
	}
}

// DayBucket is the calendar day of t in loc, formatted YYYY-MM-DD. One drop
// per user and bin is allowed per bucket.
func DayBucket(t time.Time, loc *time.Location) string {
	return t.In(loc).Format("2006-01-02")
}

// Confirm runs the verification pipeline. Checks happen in a fixed order
// and the first failure is returned as an *apperr.Error.
func (s *DropConfirmationService) Confirm(ctx context.Context, req ConfirmRequest) (*ConfirmResult, error) {
	if req.UserID == "" {
		return nil, apperr.E(apperr.Unauthorized, "Authentication required")
	}

	if req.BinID == "" || req.Latitude == nil || req.Longitude == nil || req.TimeSpent == nil {
		return nil, apperr.E(apperr.InvalidInput, "Missing required fields")
	}

	lat, lng := *req.Latitude, *req.Longitude
	if !geo.ValidCoordinate(lat, lng) {
		return nil, apperr.E(apperr.InvalidInput, "Invalid coordinates")
	}

	spent := *req.TimeSpent
	if math.IsNaN(spent) || spent < float64(s.policy.MinTimeSeconds) || spent > float64(s.policy.MaxTimeSeconds) {
		return nil, apperr.E(apperr.InvalidInput, "Invalid verification time")
	}
	timeSpent := int(spent)

	bin, err := s.bins.GetBin(ctx, req.BinID)
	if errors.Is(err, database.ErrNotFound) {
		return nil, apperr.E(apperr.NotFound, "Bin not found")
	}
	if err != nil {
		return nil, apperr.Wrap(apperr.Unexpected, "Internal server error during verification", err)
	}

	if !bin.IsOperational() {
		return nil, apperr.E(apperr.PreconditionFailed, "Bin is not currently operational")
	}

	distance := s.distance(lat, lng, bin.Latitude, bin.Longitude)
	if distance > s.policy.ToleranceMeters {
		return nil, apperr.E(apperr.PreconditionFailed,
			fmt.Sprintf("Too far from bin location. Distance: %dm", int(math.Round(distance))))
	}

	confirmedAt := s.now()
	bucket := DayBucket(confirmedAt, s.location)

	exists, err := s.drops.HasDropInBucket(ctx, req.UserID, bin.ID, bucket)
	if err != nil {
		return nil, apperr.Wrap(apperr.Unexpected, "Internal server error during verification", err)
	}
	if exists {
		return nil, duplicateDrop()
	}

	drop := models.DropEvent{
		UserID:             req.UserID,
		BinID:              bin.ID,
		Latitude:           lat,
		Longitude:          lng,
		Accuracy:           req.Accuracy,
		DistanceMeters:     distance,
		Verified:           true,
		VerificationMethod: models.VerificationGeoProximity,
		TimeSpentInRadius:  timeSpent,
		DayBucket:          bucket,
		PointsEarned:       s.policy.RewardPoints,
		CO2Saved:           s.policy.RewardCO2Kg,
		StartedAt:          confirmedAt.Add(-time.Duration(timeSpent) * time.Second).Unix(),
		ConfirmedAt:        confirmedAt.Unix(),
		CreatedAt:          confirmedAt.Unix(),
	}

	// the existence check above is advisory; the unique index decides races
	if err := s.drops.CreateDropEvent(ctx, &drop); err != nil {
		if errors.Is(err, database.ErrDuplicateDrop) {
			return nil, duplicateDrop()
		}
		if errors.Is(err, database.ErrUnknownUser) {
			return nil, apperr.E(apperr.Unauthorized, "Unknown user")
		}
		return nil, apperr.Wrap(apperr.Unexpected, "Internal server error during verification", err)
	}

	log.Printf("📍 Drop verified: %s at %s (%.1fm, %ds in radius)", req.UserID, bin.Name, distance, timeSpent)

	result := &ConfirmResult{Drop: drop, Bin: *bin, Distance: distance}

	outcome, err := s.rewards.Apply(ctx, &drop)
	if err != nil {
		log.Printf("❌ Reward application failed for drop %s, will retry: %v", drop.ID, err)
		return result, nil
	}
	result.Rewards = &outcome
	result.Drop.RewardsApplied = true
	return result, nil
}

func duplicateDrop() error {
	return apperr.E(apperr.Conflict, "E-waste already confirmed at this bin today. Please visit tomorrow.")
}

// Response builds the success payload for a confirmed drop.
func (s *DropConfirmationService) Response(r *ConfirmResult) models.ConfirmDropResponse {
	return models.ConfirmDropResponse{
		DropEventID:        r.Drop.ID,
		PointsEarned:       r.Drop.PointsEarned,
		CO2Saved:           r.Drop.CO2Saved,
		BinName:            r.Bin.Name,
		VerificationMethod: r.Drop.VerificationMethod,
		DistanceMeters:     int(math.Round(r.Distance)),
		Impact: models.DropImpact{
			ItemsRecycled: s.policy.ItemsPerDrop,
			CO2Saved:      strconv.FormatFloat(r.Drop.CO2Saved, 'f', -1, 64) + "kg",
			EnergySaved:   fmt.Sprintf("~%s kWh", strconv.FormatFloat(s.policy.EnergyPerDropKWh, 'f', -1, 64)),
		},
	}
}
