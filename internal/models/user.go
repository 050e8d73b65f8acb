package models

const (
	RoleUser  = "user"
	RoleAdmin = "admin"
)

type User struct {
	ID                 string  `json:"id" db:"id"`
	Email              string  `json:"email" db:"email"`
	Password           string  `json:"-" db:"password"` // Never return password in JSON
	Name               string  `json:"name" db:"name"`
	Role               string  `json:"role" db:"role"` // "user" or "admin"
	Points             int     `json:"points" db:"points"`
	TotalItemsRecycled int     `json:"total_items_recycled" db:"total_items_recycled"`
	TotalCO2Saved      float64 `json:"total_co2_saved" db:"total_co2_saved"`
	CreatedAt          int64   `json:"created_at" db:"created_at"`
	UpdatedAt          int64   `json:"updated_at" db:"updated_at"`
}

type UserResponse struct {
	ID                 string  `json:"id"`
	Email              string  `json:"email"`
	Name               string  `json:"name"`
	Role               string  `json:"role"`
	Points             int     `json:"points"`
	TotalItemsRecycled int     `json:"totalItemsRecycled"`
	TotalCO2Saved      float64 `json:"totalCO2Saved"`
	CreatedAt          int64   `json:"created_at"`
}

func (u *User) ToUserResponse() UserResponse {
	return UserResponse{
		ID:                 u.ID,
		Email:              u.Email,
		Name:               u.Name,
		Role:               u.Role,
		Points:             u.Points,
		TotalItemsRecycled: u.TotalItemsRecycled,
		TotalCO2Saved:      u.TotalCO2Saved,
		CreatedAt:          u.CreatedAt,
	}
}

// LeaderboardEntry is one row of GET /api/leaderboard
type LeaderboardEntry struct {
	Rank               int     `json:"rank" db:"-"`
	ID                 string  `json:"id" db:"id"`
	Name               string  `json:"name" db:"name"`
	Points             int     `json:"points" db:"points"`
	TotalItemsRecycled int     `json:"totalItemsRecycled" db:"total_items_recycled"`
	TotalCO2Saved      float64 `json:"totalCO2Saved" db:"total_co2_saved"`
}
