package middleware

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ecodrop-backend/internal/models"
)

const secret = "test-secret"

func whoAmI(w http.ResponseWriter, r *http.Request) {
	claims, ok := GetUserFromContext(r)
	if !ok {
		w.WriteHeader(http.StatusNoContent)
		return
	}
	json.NewEncoder(w).Encode(claims)
}

func TestGenerateAndParseToken(t *testing.T) {
	a := NewAuthenticator(secret, false, time.Hour)
	token, err := a.GenerateToken("u1", "user@ecodrop.app", models.RoleAdmin)
	require.NoError(t, err)

	claims, err := a.ParseToken(token)
	require.NoError(t, err)
	assert.Equal(t, UserClaims{UserID: "u1", Email: "user@ecodrop.app", Role: models.RoleAdmin}, claims)

	other := NewAuthenticator("another-secret", false, time.Hour)
	_, err = other.ParseToken(token)
	assert.Error(t, err)
}

func TestParseToken_Expired(t *testing.T) {
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"user_id": "u1",
		"exp":     time.Now().Add(-time.Minute).Unix(),
	})
	signed, err := token.SignedString([]byte(secret))
	require.NoError(t, err)

	_, err = NewAuthenticator(secret, false, 0).ParseToken(signed)
	assert.Error(t, err)
}

func TestAuth(t *testing.T) {
	a := NewAuthenticator(secret, false, time.Hour)
	token, err := a.GenerateToken("u1", "user@ecodrop.app", models.RoleUser)
	require.NoError(t, err)
	handler := a.Auth(http.HandlerFunc(whoAmI))

	tests := []struct {
		name   string
		header string
		status int
	}{
		{"valid bearer", "Bearer " + token, http.StatusOK},
		{"missing header", "", http.StatusUnauthorized},
		{"wrong scheme", "Token " + token, http.StatusUnauthorized},
		{"garbage token", "Bearer not-a-jwt", http.StatusUnauthorized},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			if tc.header != "" {
				req.Header.Set("Authorization", tc.header)
			}
			rec := httptest.NewRecorder()
			handler.ServeHTTP(rec, req)
			assert.Equal(t, tc.status, rec.Code)
		})
	}
}

func TestUserIDHeaderOnlyWhenTrusted(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set(UserIDHeader, "u42")

	_, ok := NewAuthenticator(secret, false, 0).Identify(req)
	assert.False(t, ok)

	claims, ok := NewAuthenticator(secret, true, 0).Identify(req)
	require.True(t, ok)
	assert.Equal(t, "u42", claims.UserID)
	assert.Equal(t, models.RoleUser, claims.Role)
}

func TestOptionalPassesAnonymous(t *testing.T) {
	rec := httptest.NewRecorder()
	NewAuthenticator(secret, false, 0).Optional(http.HandlerFunc(whoAmI)).
		ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, http.StatusNoContent, rec.Code)
}

func TestRequireRole(t *testing.T) {
	a := NewAuthenticator(secret, false, time.Hour)
	handler := a.Auth(RequireRole(models.RoleAdmin)(http.HandlerFunc(whoAmI)))

	for role, status := range map[string]int{
		models.RoleAdmin: http.StatusOK,
		models.RoleUser:  http.StatusForbidden,
	} {
		token, err := a.GenerateToken("u1", "x@ecodrop.app", role)
		require.NoError(t, err)
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.Header.Set("Authorization", "Bearer "+token)
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)
		assert.Equal(t, status, rec.Code, role)
	}
}
