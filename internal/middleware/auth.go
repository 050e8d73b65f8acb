package middleware

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"ecodrop-backend/internal/apperr"
	"ecodrop-backend/internal/models"
	"ecodrop-backend/pkg/utils"
)

type contextKey string

const UserContextKey contextKey = "user"

// UserIDHeader carries the caller identity when the API sits behind a
// trusted gateway.
const UserIDHeader = "X-User-ID"

type UserClaims struct {
	UserID string `json:"user_id"`
	Email  string `json:"email"`
	Role   string `json:"role"`
}

// Authenticator resolves the caller from a bearer JWT or, when trustHeader
// is set, from the X-User-ID header.
type Authenticator struct {
	secret      []byte
	trustHeader bool
	expiry      time.Duration
}

func NewAuthenticator(secret string, trustHeader bool, expiry time.Duration) *Authenticator {
	if expiry <= 0 {
		expiry = 7 * 24 * time.Hour
	}
	return &Authenticator{secret: []byte(secret), trustHeader: trustHeader, expiry: expiry}
}

// GenerateToken signs an HS256 token carrying user_id, email and role.
func (a *Authenticator) GenerateToken(userID, email, role string) (string, error) {
	if len(a.secret) == 0 {
		return "", errors.New("JWT secret not configured")
	}
	now := time.Now()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"user_id": userID,
		"email":   email,
		"role":    role,
		"iat":     now.Unix(),
		"exp":     now.Add(a.expiry).Unix(),
	})
	signed, err := token.SignedString(a.secret)
	if err != nil {
		return "", fmt.Errorf("failed to sign token: %w", err)
	}
	return signed, nil
}

func (a *Authenticator) ParseToken(tokenString string) (UserClaims, error) {
	if len(a.secret) == 0 {
		return UserClaims{}, errors.New("JWT secret not configured")
	}

	token, err := jwt.Parse(tokenString, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, jwt.ErrSignatureInvalid
		}
		return a.secret, nil
	})
	if err != nil {
		return UserClaims{}, fmt.Errorf("invalid token: %w", err)
	}
	if !token.Valid {
		return UserClaims{}, errors.New("invalid token")
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return UserClaims{}, errors.New("failed to parse claims")
	}

	userID, _ := claims["user_id"].(string)
	email, _ := claims["email"].(string)
	role, _ := claims["role"].(string)
	if userID == "" {
		return UserClaims{}, errors.New("token has no user_id")
	}
	if role == "" {
		role = models.RoleUser
	}
	return UserClaims{UserID: userID, Email: email, Role: role}, nil
}

// Identify returns the caller, if any. A malformed or invalid bearer token
// counts as no identity.
func (a *Authenticator) Identify(r *http.Request) (UserClaims, bool) {
	if authHeader := r.Header.Get("Authorization"); authHeader != "" {
		parts := strings.Split(authHeader, " ")
		if len(parts) != 2 || parts[0] != "Bearer" {
			log.Printf("❌ Invalid authorization header format (parts: %d)", len(parts))
			return UserClaims{}, false
		}
		claims, err := a.ParseToken(parts[1])
		if err != nil {
			log.Printf("❌ %v", err)
			return UserClaims{}, false
		}
		return claims, true
	}

	if a.trustHeader {
		if id := strings.TrimSpace(r.Header.Get(UserIDHeader)); id != "" {
			return UserClaims{UserID: id, Role: models.RoleUser}, true
		}
	}
	return UserClaims{}, false
}

// Optional attaches the caller to the context when one is present and lets
// the request through either way.
func (a *Authenticator) Optional(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if claims, ok := a.Identify(r); ok {
			r = r.WithContext(WithUser(r.Context(), claims))
		}
		next.ServeHTTP(w, r)
	})
}

// Auth rejects requests without a caller.
func (a *Authenticator) Auth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		claims, ok := a.Identify(r)
		if !ok {
			utils.RespondAppError(w, apperr.E(apperr.Unauthorized, "Authentication required"))
			return
		}
		next.ServeHTTP(w, r.WithContext(WithUser(r.Context(), claims)))
	})
}

// RequireRole middleware checks if user has required role (must be used after Auth)
func RequireRole(role string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			userClaims, ok := GetUserFromContext(r)
			if !ok {
				log.Println("❌ User claims not found in context")
				utils.RespondAppError(w, apperr.E(apperr.Unauthorized, "Authentication required"))
				return
			}

			if userClaims.Role != role {
				log.Printf("❌ Insufficient permissions: required %s, got %s", role, userClaims.Role)
				utils.RespondError(w, http.StatusForbidden, "Forbidden")
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

func WithUser(ctx context.Context, claims UserClaims) context.Context {
	return context.WithValue(ctx, UserContextKey, claims)
}

// GetUserFromContext extracts user claims from request context
func GetUserFromContext(r *http.Request) (UserClaims, bool) {
	userClaims, ok := r.Context().Value(UserContextKey).(UserClaims)
	return userClaims, ok
}
