package models

const (
	TransactionTypeRecycle = "recycle"

	TransactionStatusApproved = "approved"
)

// Drop transactions use fixed item metadata; geo verification stands in for
// the classifier, so confidence is 1.
const (
	DropItemName       = "E-Waste Drop"
	DropItemType       = "e-waste"
	DropConfidence     = 1.0
	DropRecyclingValue = 10.0
)

// Transaction is a row of the points ledger.
type Transaction struct {
	ID                    string   `json:"id" db:"id"`
	UserID                string   `json:"user_id" db:"user_id"`
	BinID                 *string  `json:"bin_id,omitempty" db:"bin_id"`
	DropEventID           *string  `json:"drop_event_id,omitempty" db:"drop_event_id"`
	Type                  string   `json:"type" db:"type"`
	ItemName              string   `json:"item_name" db:"item_name"`
	ItemType              string   `json:"item_type" db:"item_type"`
	Confidence            float64  `json:"confidence" db:"confidence"`
	Value                 float64  `json:"value" db:"value"`
	PointsEarned          int      `json:"points_earned" db:"points_earned"`
	VerificationMethod    *string  `json:"verification_method,omitempty" db:"verification_method"`
	Status                string   `json:"status" db:"status"`
	VerifiedAt            *int64   `json:"verified_at,omitempty" db:"verified_at"`
	VerificationLatitude  *float64 `json:"verification_latitude,omitempty" db:"verification_latitude"`
	VerificationLongitude *float64 `json:"verification_longitude,omitempty" db:"verification_longitude"`
	CreatedAt             int64    `json:"created_at" db:"created_at"`
}
