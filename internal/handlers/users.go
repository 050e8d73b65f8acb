package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"ecodrop-backend/internal/apperr"
	"ecodrop-backend/internal/database"
	"ecodrop-backend/internal/middleware"
	"ecodrop-backend/internal/models"
	"ecodrop-backend/pkg/utils"
)

type LeaderboardReader interface {
	Leaderboard(ctx context.Context, limit int) ([]models.LeaderboardEntry, error)
}

// GetLeaderboard handles GET /api/leaderboard (top 10 by points)
func GetLeaderboard(store LeaderboardReader) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		entries, err := store.Leaderboard(r.Context(), 10)
		if err != nil {
			utils.RespondAppError(w, err)
			return
		}
		utils.RespondSuccess(w, http.StatusOK, "", entries)
	}
}

type ProfileReader interface {
	GetUserByID(ctx context.Context, id string) (*models.User, error)
}

// GetMe handles GET /api/user/me
func GetMe(store ProfileReader) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		claims, _ := middleware.GetUserFromContext(r)
		user, err := store.GetUserByID(r.Context(), claims.UserID)
		if errors.Is(err, database.ErrNotFound) {
			utils.RespondAppError(w, apperr.E(apperr.NotFound, "User not found"))
			return
		}
		if err != nil {
			utils.RespondAppError(w, err)
			return
		}
		utils.RespondSuccess(w, http.StatusOK, "", user.ToUserResponse())
	}
}

type FCMTokenStore interface {
	UpsertFCMToken(ctx context.Context, userID, token, deviceType string) error
}

// RegisterFCMToken handles POST /api/user/fcm-token
func RegisterFCMToken(store FCMTokenStore) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		claims, _ := middleware.GetUserFromContext(r)

		var req models.RegisterFCMTokenRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			utils.RespondAppError(w, apperr.E(apperr.InvalidInput, "Invalid request body"))
			return
		}
		if req.Token == "" {
			utils.RespondAppError(w, apperr.E(apperr.InvalidInput, "Missing required fields"))
			return
		}
		switch req.DeviceType {
		case "ios", "android", "web":
		case "":
			req.DeviceType = "web"
		default:
			utils.RespondAppError(w, apperr.E(apperr.InvalidInput, "Invalid device type"))
			return
		}

		if err := store.UpsertFCMToken(r.Context(), claims.UserID, req.Token, req.DeviceType); err != nil {
			utils.RespondAppError(w, err)
			return
		}
		utils.RespondSuccess(w, http.StatusOK, "Token registered", nil)
	}
}

// Health handles GET /health
func Health(w http.ResponseWriter, r *http.Request) {
	utils.RespondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

type ActivityLister interface {
	ListUserActivities(ctx context.Context, userID string, limit int) ([]models.UserActivity, error)
}

// GetMyActivity handles GET /api/user/activity
func GetMyActivity(store ActivityLister) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		claims, _ := middleware.GetUserFromContext(r)

		limit := queryInt(r, "limit", 50)
		if limit < 1 || limit > 200 {
			limit = 50
		}

		activities, err := store.ListUserActivities(r.Context(), claims.UserID, limit)
		if err != nil {
			utils.RespondAppError(w, err)
			return
		}
		utils.RespondSuccess(w, http.StatusOK, "", activities)
	}
}
