package handlers

import (
	"context"
	"encoding/json"
	"log"
	"net/http"

	"golang.org/x/crypto/bcrypt"

	"ecodrop-backend/internal/middleware"
	"ecodrop-backend/internal/models"
)

type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type LoginResponse struct {
	OK    bool                 `json:"ok"`
	Token string               `json:"token,omitempty"`
	User  *models.UserResponse `json:"user,omitempty"`
}

type UserFinder interface {
	GetUserByEmail(ctx context.Context, email string) (*models.User, error)
}

func Login(users UserFinder, auth *middleware.Authenticator) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req LoginRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, "Invalid request body", http.StatusBadRequest)
			return
		}

		log.Printf("🔐 Login attempt for: %s", req.Email)

		user, err := users.GetUserByEmail(r.Context(), req.Email)
		if err != nil {
			log.Printf("❌ User not found: %s", req.Email)
			writeLogin(w, http.StatusUnauthorized, LoginResponse{OK: false})
			return
		}

		if err := bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(req.Password)); err != nil {
			log.Printf("❌ Invalid password for: %s", req.Email)
			writeLogin(w, http.StatusUnauthorized, LoginResponse{OK: false})
			return
		}

		tokenString, err := auth.GenerateToken(user.ID, user.Email, user.Role)
		if err != nil {
			log.Printf("❌ Failed to create token: %v", err)
			writeLogin(w, http.StatusInternalServerError, LoginResponse{OK: false})
			return
		}

		userResponse := user.ToUserResponse()
		log.Printf("✅ Login successful: %s (%s)", user.Email, user.Role)
		writeLogin(w, http.StatusOK, LoginResponse{OK: true, Token: tokenString, User: &userResponse})
	}
}

func writeLogin(w http.ResponseWriter, status int, resp LoginResponse) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(resp)
}
