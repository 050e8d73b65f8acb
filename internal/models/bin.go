package models

import (
	"time"

	"github.com/lib/pq"
)

const (
	BinStatusOperational = "operational"
	BinStatusFull        = "full"
	BinStatusMaintenance = "maintenance"
)

func ValidBinStatus(s string) bool {
	switch s {
	case BinStatusOperational, BinStatusFull, BinStatusMaintenance:
		return true
	}
	return false
}

type Bin struct {
	ID             string         `json:"id" db:"id"`
	Name           string         `json:"name" db:"name"`
	Address        string         `json:"address" db:"address"`
	Latitude       float64        `json:"latitude" db:"latitude"`
	Longitude      float64        `json:"longitude" db:"longitude"`
	QRCode         string         `json:"qr_code" db:"qr_code"`
	AcceptedItems  pq.StringArray `json:"accepted_items" db:"accepted_items"`
	FillLevel      int            `json:"fill_level" db:"fill_level"`
	Status         string         `json:"status" db:"status"`
	LastCollection *int64         `json:"last_collection,omitempty" db:"last_collection"` // Unix timestamp
	CreatedAt      int64          `json:"created_at" db:"created_at"`                     // Unix timestamp
	UpdatedAt      int64          `json:"updated_at" db:"updated_at"`                     // Unix timestamp
}

// BinResponse is what we send to the client with ISO timestamps
type BinResponse struct {
	ID                string   `json:"id"`
	Name              string   `json:"name"`
	Address           string   `json:"address"`
	Latitude          float64  `json:"latitude"`
	Longitude         float64  `json:"longitude"`
	QRCode            string   `json:"qrCode"`
	AcceptedItems     []string `json:"acceptedItems"`
	FillLevel         int      `json:"fillLevel"`
	Status            string   `json:"status"`
	LastCollectionIso *string  `json:"lastCollectionIso,omitempty"`
	DistanceMeters    *float64 `json:"distanceMeters,omitempty"`
}

// UpdateBinRequest is the request body for PATCH /api/admin/bins/:id
type UpdateBinRequest struct {
	Status    *string `json:"status,omitempty"`
	FillLevel *int    `json:"fillLevel,omitempty"`
	// Collected empties the bin and stamps the collection time.
	Collected bool `json:"collected"`
}

func (b *Bin) IsOperational() bool {
	return b.Status == BinStatusOperational
}

// ToBinResponse converts a Bin to BinResponse
func (b *Bin) ToBinResponse() BinResponse {
	items := []string(b.AcceptedItems)
	if items == nil {
		items = []string{}
	}
	resp := BinResponse{
		ID:            b.ID,
		Name:          b.Name,
		Address:       b.Address,
		Latitude:      b.Latitude,
		Longitude:     b.Longitude,
		QRCode:        b.QRCode,
		AcceptedItems: items,
		FillLevel:     b.FillLevel,
		Status:        b.Status,
	}

	if b.LastCollection != nil {
		t := time.Unix(*b.LastCollection, 0)
		iso := t.Format(time.RFC3339)
		resp.LastCollectionIso = &iso
	}

	return resp
}
