package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"time"

	"ecodrop-backend/internal/apperr"
	"ecodrop-backend/internal/destination"
	"ecodrop-backend/internal/geo"
	"ecodrop-backend/internal/middleware"
	"ecodrop-backend/internal/models"
	"ecodrop-backend/pkg/utils"
)

// The destination endpoints keep an advisory server copy of the user's
// active destination. Clients ignore failures here.

type NavigationRecorder interface {
	RecordNavigation(ctx context.Context, userID, binID, binName string) error
}

// SaveDestination stores the destination and, when nav is set, logs a
// BIN_NAVIGATED activity. Activity failures do not fail the request.
func SaveDestination(repo destination.Repository, nav NavigationRecorder) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		user, _ := middleware.GetUserFromContext(r)

		var req models.SaveDestinationRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			utils.RespondAppError(w, apperr.E(apperr.InvalidInput, "Invalid request body"))
			return
		}
		if req.BinID == "" || req.Latitude == nil || req.Longitude == nil {
			utils.RespondAppError(w, apperr.E(apperr.InvalidInput, "Missing required fields"))
			return
		}
		if !geo.ValidCoordinate(*req.Latitude, *req.Longitude) {
			utils.RespondAppError(w, apperr.E(apperr.InvalidInput, "Invalid coordinates"))
			return
		}

		d := models.ActiveDestination{
			BinID:     req.BinID,
			BinName:   req.BinName,
			Latitude:  *req.Latitude,
			Longitude: *req.Longitude,
			Address:   req.Address,
			StartedAt: req.StartedAt,
		}
		if d.StartedAt == 0 {
			d.StartedAt = time.Now().UnixMilli()
		}

		err := repo.Save(r.Context(), user.UserID, d)
		if errors.Is(err, destination.ErrExpired) {
			utils.RespondAppError(w, apperr.E(apperr.InvalidInput, "Destination already expired"))
			return
		}
		if err != nil {
			utils.RespondAppError(w, err)
			return
		}

		if nav != nil {
			if err := nav.RecordNavigation(r.Context(), user.UserID, d.BinID, d.BinName); err != nil {
				log.Printf("⚠️  Failed to record navigation for %s: %v", user.UserID, err)
			}
		}

		log.Printf("📍 Destination set: %s → %s", user.UserID, d.BinName)
		utils.RespondSuccess(w, http.StatusOK, "", d)
	}
}

func GetDestination(repo destination.Repository) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		user, _ := middleware.GetUserFromContext(r)

		d, err := repo.Get(r.Context(), user.UserID)
		if err != nil {
			utils.RespondAppError(w, err)
			return
		}
		utils.RespondSuccess(w, http.StatusOK, "", d)
	}
}

func ClearDestination(repo destination.Repository) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		user, _ := middleware.GetUserFromContext(r)

		if err := repo.Delete(r.Context(), user.UserID); err != nil {
			utils.RespondAppError(w, err)
			return
		}
		utils.RespondSuccess(w, http.StatusOK, "Destination cleared", nil)
	}
}
