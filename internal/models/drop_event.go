package models

import "time"

const VerificationGeoProximity = "geo_proximity"

// DropEvent is the immutable record of a verified drop. At most one exists
// per (user, bin, day bucket); the database enforces it with a unique index.
type DropEvent struct {
	ID                 string   `json:"id" db:"id"`
	UserID             string   `json:"user_id" db:"user_id"`
	BinID              string   `json:"bin_id" db:"bin_id"`
	Latitude           float64  `json:"latitude" db:"latitude"`
	Longitude          float64  `json:"longitude" db:"longitude"`
	Accuracy           *float64 `json:"accuracy,omitempty" db:"accuracy"`
	DistanceMeters     float64  `json:"distance_meters" db:"distance_meters"`
	Verified           bool     `json:"verified" db:"verified"`
	VerificationMethod string   `json:"verification_method" db:"verification_method"`
	TimeSpentInRadius  int      `json:"time_spent_in_radius" db:"time_spent_in_radius"` // seconds
	DayBucket          string   `json:"day_bucket" db:"day_bucket"`                     // YYYY-MM-DD
	PointsEarned       int      `json:"points_earned" db:"points_earned"`
	CO2Saved           float64  `json:"co2_saved" db:"co2_saved"`
	RewardsApplied     bool     `json:"rewards_applied" db:"rewards_applied"`
	StartedAt          int64    `json:"started_at" db:"started_at"`     // Unix timestamp
	ConfirmedAt        int64    `json:"confirmed_at" db:"confirmed_at"` // Unix timestamp
	CreatedAt          int64    `json:"created_at" db:"created_at"`     // Unix timestamp
}

// DropEventWithDetails is a drop joined with its user and bin, used by the
// admin listing.
type DropEventWithDetails struct {
	DropEvent
	UserName  string `json:"user_name" db:"user_name"`
	UserEmail string `json:"user_email" db:"user_email"`
	BinName   string `json:"bin_name" db:"bin_name"`
}

// ConfirmDropRequest is the request body for POST /api/drop/confirm.
// Pointers distinguish a missing field from a zero value.
type ConfirmDropRequest struct {
	BinID     string   `json:"binId"`
	Latitude  *float64 `json:"lat"`
	Longitude *float64 `json:"lng"`
	TimeSpent *float64 `json:"timeSpent"`
	Accuracy  *float64 `json:"accuracy,omitempty"`
}

type DropImpact struct {
	ItemsRecycled int    `json:"itemsRecycled"`
	CO2Saved      string `json:"co2Saved"`    // e.g. "5.2kg"
	EnergySaved   string `json:"energySaved"` // e.g. "~50 kWh"
}

type ConfirmDropResponse struct {
	DropEventID        string     `json:"dropEventId"`
	PointsEarned       int        `json:"pointsEarned"`
	CO2Saved           float64    `json:"co2Saved"`
	BinName            string     `json:"binName"`
	VerificationMethod string     `json:"verificationMethod"`
	DistanceMeters     int        `json:"distanceMeters"`
	Impact             DropImpact `json:"impact"`
}

type DropEventResponse struct {
	ID                 string  `json:"id"`
	UserID             string  `json:"userId"`
	BinID              string  `json:"binId"`
	BinName            string  `json:"binName,omitempty"`
	UserName           string  `json:"userName,omitempty"`
	UserEmail          string  `json:"userEmail,omitempty"`
	Latitude           float64 `json:"latitude"`
	Longitude          float64 `json:"longitude"`
	DistanceMeters     float64 `json:"distanceMeters"`
	Verified           bool    `json:"verified"`
	VerificationMethod string  `json:"verificationMethod"`
	TimeSpentInRadius  int     `json:"timeSpentInRadius"`
	PointsEarned       int     `json:"pointsEarned"`
	CO2Saved           float64 `json:"co2Saved"`
	RewardsApplied     bool    `json:"rewardsApplied"`
	StartedAtIso       string  `json:"startedAtIso"`
	ConfirmedAtIso     string  `json:"confirmedAtIso"`
}

func (d *DropEvent) ToDropEventResponse() DropEventResponse {
	return DropEventResponse{
		ID:                 d.ID,
		UserID:             d.UserID,
		BinID:              d.BinID,
		Latitude:           d.Latitude,
		Longitude:          d.Longitude,
		DistanceMeters:     d.DistanceMeters,
		Verified:           d.Verified,
		VerificationMethod: d.VerificationMethod,
		TimeSpentInRadius:  d.TimeSpentInRadius,
		PointsEarned:       d.PointsEarned,
		CO2Saved:           d.CO2Saved,
		RewardsApplied:     d.RewardsApplied,
		StartedAtIso:       time.Unix(d.StartedAt, 0).UTC().Format(time.RFC3339),
		ConfirmedAtIso:     time.Unix(d.ConfirmedAt, 0).UTC().Format(time.RFC3339),
	}
}

func (d *DropEventWithDetails) ToDropEventResponse() DropEventResponse {
	resp := d.DropEvent.ToDropEventResponse()
	resp.BinName = d.BinName
	resp.UserName = d.UserName
	resp.UserEmail = d.UserEmail
	return resp
}
