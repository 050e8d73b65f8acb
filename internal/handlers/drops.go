package handlers

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"strconv"

	"ecodrop-backend/internal/apperr"
	"ecodrop-backend/internal/database"
	"ecodrop-backend/internal/middleware"
	"ecodrop-backend/internal/models"
	"ecodrop-backend/internal/services"
	"ecodrop-backend/pkg/utils"
)

type DropConfirmer interface {
	Confirm(ctx context.Context, req services.ConfirmRequest) (*services.ConfirmResult, error)
	Response(r *services.ConfirmResult) models.ConfirmDropResponse
}

// ConfirmDrop handles POST /api/drop/confirm. Identity is optional at the
// router level; a missing caller is rejected before the body is read.
func ConfirmDrop(svc DropConfirmer) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		user, ok := middleware.GetUserFromContext(r)
		if !ok || user.UserID == "" {
			utils.RespondAppError(w, apperr.E(apperr.Unauthorized, "Authentication required"))
			return
		}

		var body models.ConfirmDropRequest
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			utils.RespondAppError(w, apperr.E(apperr.InvalidInput, "Invalid request body"))
			return
		}

		req := services.ConfirmRequest{
			UserID:    user.UserID,
			BinID:     body.BinID,
			Latitude:  body.Latitude,
			Longitude: body.Longitude,
			TimeSpent: body.TimeSpent,
			Accuracy:  body.Accuracy,
		}

		result, err := svc.Confirm(r.Context(), req)
		if err != nil {
			log.Printf("❌ Drop confirmation rejected for %q at %q: %v", req.UserID, req.BinID, err)
			utils.RespondAppError(w, err)
			return
		}

		resp := svc.Response(result)
		utils.RespondSuccess(w, http.StatusOK,
			fmt.Sprintf("E-waste drop confirmed! You earned %d points.", resp.PointsEarned), resp)
	}
}

type UserDropLister interface {
	ListUserDrops(ctx context.Context, userID string, limit int) ([]models.DropEventWithDetails, error)
}

// GetMyDrops handles GET /api/user/drops
func GetMyDrops(store UserDropLister) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		user, ok := middleware.GetUserFromContext(r)
		if !ok {
			utils.RespondAppError(w, apperr.E(apperr.Unauthorized, "Authentication required"))
			return
		}

		limit := queryInt(r, "limit", 50)
		if limit < 1 || limit > 200 {
			limit = 50
		}

		drops, err := store.ListUserDrops(r.Context(), user.UserID, limit)
		if err != nil {
			utils.RespondAppError(w, err)
			return
		}

		responses := make([]models.DropEventResponse, len(drops))
		for i := range drops {
			responses[i] = drops[i].ToDropEventResponse()
		}
		utils.RespondSuccess(w, http.StatusOK, "", responses)
	}
}

type DropLister interface {
	ListDrops(ctx context.Context, f database.DropFilter) ([]models.DropEventWithDetails, int, error)
}

// GetAdminDrops handles GET /api/admin/drops
func GetAdminDrops(store DropLister) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		filter := database.DropFilter{
			Page:   queryInt(r, "page", 1),
			Limit:  queryInt(r, "limit", 20),
			Status: r.URL.Query().Get("status"),
		}
		switch filter.Status {
		case "", database.DropFilterRewarded, database.DropFilterPending:
		default:
			utils.RespondAppError(w, apperr.E(apperr.InvalidInput, "Invalid status filter"))
			return
		}

		drops, total, err := store.ListDrops(r.Context(), filter)
		if err != nil {
			utils.RespondAppError(w, err)
			return
		}

		responses := make([]models.DropEventResponse, len(drops))
		for i := range drops {
			responses[i] = drops[i].ToDropEventResponse()
		}
		utils.RespondJSON(w, http.StatusOK, map[string]interface{}{
			"success": true,
			"data":    responses,
			"pagination": map[string]int{
				"page":  max(filter.Page, 1),
				"limit": len(responses),
				"total": total,
			},
		})
	}
}

func queryInt(r *http.Request, key string, fallback int) int {
	v := r.URL.Query().Get(key)
	if v == "" {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return fallback
	}
	return n
}

func queryFloat(r *http.Request, key string) (float64, bool) {
	v := r.URL.Query().Get(key)
	if v == "" {
		return 0, false
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return 0, false
	}
	return f, true
}
