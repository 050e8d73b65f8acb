package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"sort"

	"github.com/go-chi/chi/v5"

	"ecodrop-backend/internal/apperr"
	"ecodrop-backend/internal/database"
	"ecodrop-backend/internal/geo"
	"ecodrop-backend/internal/models"
	"ecodrop-backend/pkg/utils"
)

type BinReader interface {
	GetBin(ctx context.Context, id string) (*models.Bin, error)
	ListBins(ctx context.Context, status string) ([]models.Bin, error)
}

type BinUpdater interface {
	UpdateBin(ctx context.Context, id string, req models.UpdateBinRequest) (*models.Bin, error)
}

// BinEvents is told when an admin changes a bin.
type BinEvents interface {
	BinUpdated(bin models.Bin)
}

const defaultNearbyRadius = 5000.0

func GetBins(store BinReader) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		status := r.URL.Query().Get("status")
		if status != "" && !models.ValidBinStatus(status) {
			utils.RespondAppError(w, apperr.E(apperr.InvalidInput, "Invalid status"))
			return
		}

		bins, err := store.ListBins(r.Context(), status)
		if err != nil {
			utils.RespondAppError(w, err)
			return
		}

		responses := make([]models.BinResponse, len(bins))
		for i, bin := range bins {
			responses[i] = bin.ToBinResponse()
		}
		utils.RespondSuccess(w, http.StatusOK, "", responses)
	}
}

func GetBin(store BinReader) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		bin, err := store.GetBin(r.Context(), chi.URLParam(r, "id"))
		if errors.Is(err, database.ErrNotFound) {
			utils.RespondAppError(w, apperr.E(apperr.NotFound, "Bin not found"))
			return
		}
		if err != nil {
			utils.RespondAppError(w, err)
			return
		}
		utils.RespondSuccess(w, http.StatusOK, "", bin.ToBinResponse())
	}
}

// GetNearbyBins handles GET /api/bins/nearby?lat=&lng=&radius= and returns
// bins within radius meters, closest first.
func GetNearbyBins(store BinReader) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		lat, okLat := queryFloat(r, "lat")
		lng, okLng := queryFloat(r, "lng")
		if !okLat || !okLng {
			utils.RespondAppError(w, apperr.E(apperr.InvalidInput, "Missing required fields"))
			return
		}
		if !geo.ValidCoordinate(lat, lng) {
			utils.RespondAppError(w, apperr.E(apperr.InvalidInput, "Invalid coordinates"))
			return
		}
		radius, ok := queryFloat(r, "radius")
		if !ok || radius <= 0 {
			radius = defaultNearbyRadius
		}

		bins, err := store.ListBins(r.Context(), "")
		if err != nil {
			utils.RespondAppError(w, err)
			return
		}

		responses := []models.BinResponse{}
		for _, bin := range bins {
			d := geo.DistanceMeters(lat, lng, bin.Latitude, bin.Longitude)
			if d > radius {
				continue
			}
			resp := bin.ToBinResponse()
			resp.DistanceMeters = &d
			responses = append(responses, resp)
		}
		sort.Slice(responses, func(i, j int) bool {
			return *responses[i].DistanceMeters < *responses[j].DistanceMeters
		})
		utils.RespondSuccess(w, http.StatusOK, "", responses)
	}
}

// UpdateBin handles PATCH /api/admin/bins/{id}
func UpdateBin(store BinUpdater, events BinEvents) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := chi.URLParam(r, "id")

		var req models.UpdateBinRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			utils.RespondAppError(w, apperr.E(apperr.InvalidInput, "Invalid request body"))
			return
		}
		if req.Status != nil && !models.ValidBinStatus(*req.Status) {
			utils.RespondAppError(w, apperr.E(apperr.InvalidInput, "Invalid status"))
			return
		}
		if req.FillLevel != nil && (*req.FillLevel < 0 || *req.FillLevel > 100) {
			utils.RespondAppError(w, apperr.E(apperr.InvalidInput, "Fill level must be between 0 and 100"))
			return
		}

		bin, err := store.UpdateBin(r.Context(), id, req)
		if errors.Is(err, database.ErrNotFound) {
			utils.RespondAppError(w, apperr.E(apperr.NotFound, "Bin not found"))
			return
		}
		if err != nil {
			utils.RespondAppError(w, err)
			return
		}

		log.Printf("✅ Bin updated: %s (%s, %d%%)", bin.Name, bin.Status, bin.FillLevel)
		if events != nil {
			events.BinUpdated(*bin)
		}
		utils.RespondSuccess(w, http.StatusOK, "Bin updated", bin.ToBinResponse())
	}
}
