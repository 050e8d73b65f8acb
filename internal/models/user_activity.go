package models

const (
	ActivityEWasteDropped = "E_WASTE_DROPPED"
	ActivityBinNavigated  = "BIN_NAVIGATED"
)

type UserActivity struct {
	ID                 string   `json:"id" db:"id"`
	UserID             string   `json:"user_id" db:"user_id"`
	Action             string   `json:"action" db:"action"`
	Points             int      `json:"points" db:"points"`
	BinID              *string  `json:"bin_id,omitempty" db:"bin_id"`
	BinName            *string  `json:"bin_name,omitempty" db:"bin_name"`
	VerificationMethod *string  `json:"verification_method,omitempty" db:"verification_method"`
	CO2Saved           *float64 `json:"co2_saved,omitempty" db:"co2_saved"`
	Date               string   `json:"date" db:"date"` // YYYY-MM-DD
	CreatedAt          int64    `json:"created_at" db:"created_at"`
}
