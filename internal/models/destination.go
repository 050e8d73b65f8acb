package models

import "time"

// ActiveDestination is the bin a user is currently travelling to. StartedAt is
// unix milliseconds, matching what the web client writes.
type ActiveDestination struct {
	BinID     string  `json:"binId"`
	BinName   string  `json:"binName"`
	Latitude  float64 `json:"lat"`
	Longitude float64 `json:"lng"`
	Address   string  `json:"address,omitempty"`
	StartedAt int64   `json:"startedAt"`
}

func (d *ActiveDestination) StartedTime() time.Time {
	return time.UnixMilli(d.StartedAt)
}

// SaveDestinationRequest is the request body for POST /api/user/destination
type SaveDestinationRequest struct {
	BinID     string   `json:"binId"`
	BinName   string   `json:"binName"`
	Latitude  *float64 `json:"lat"`
	Longitude *float64 `json:"lng"`
	Address   string   `json:"address,omitempty"`
	StartedAt int64    `json:"startedAt"`
}
