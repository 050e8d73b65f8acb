package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"ecodrop-backend/internal/config"
	"ecodrop-backend/internal/database"
	"ecodrop-backend/internal/destination"
	"ecodrop-backend/internal/middleware"
	"ecodrop-backend/internal/models"
	"ecodrop-backend/internal/services"
)

type fakeStore struct {
	mu    sync.Mutex
	bins  map[string]models.Bin
	drops []models.DropEvent
	users map[string]models.User

	activities []models.UserActivity
}

func newFakeStore() *fakeStore {
	hash, _ := bcrypt.GenerateFromPassword([]byte("recycle123"), bcrypt.MinCost)
	return &fakeStore{
		bins: map[string]models.Bin{
			"civil": {ID: "civil", Name: "Civil Lines E-Bin", Latitude: 25.4534, Longitude: 81.8340, Status: models.BinStatusOperational},
			"katra": {ID: "katra", Name: "Katra E-Bin", Latitude: 25.4476, Longitude: 81.8482, Status: models.BinStatusOperational},
			"junction": {ID: "junction", Name: "Prayagraj Junction E-Bin", Latitude: 25.4449, Longitude: 81.8257, Status: models.BinStatusMaintenance},
		},
		users: map[string]models.User{
			"user@ecodrop.app": {ID: "u1", Email: "user@ecodrop.app", Password: string(hash), Name: "Eco User", Role: models.RoleUser},
		},
	}
}

func (f *fakeStore) GetBin(ctx context.Context, id string) (*models.Bin, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	b, ok := f.bins[id]
	if !ok {
		return nil, database.ErrNotFound
	}
	return &b, nil
}

func (f *fakeStore) ListBins(ctx context.Context, status string) ([]models.Bin, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := []models.Bin{}
	for _, b := range f.bins {
		if status == "" || b.Status == status {
			out = append(out, b)
		}
	}
	return out, nil
}

func (f *fakeStore) UpdateBin(ctx context.Context, id string, req models.UpdateBinRequest) (*models.Bin, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	b, ok := f.bins[id]
	if !ok {
		return nil, database.ErrNotFound
	}
	if req.Status != nil {
		b.Status = *req.Status
	}
	if req.FillLevel != nil {
		b.FillLevel = *req.FillLevel
	}
	f.bins[id] = b
	return &b, nil
}

func (f *fakeStore) HasDropInBucket(ctx context.Context, userID, binID, dayBucket string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, d := range f.drops {
		if d.UserID == userID && d.BinID == binID && d.DayBucket == dayBucket {
			return true, nil
		}
	}
	return false, nil
}

func (f *fakeStore) CreateDropEvent(ctx context.Context, drop *models.DropEvent) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	drop.ID = "drop-1"
	f.drops = append(f.drops, *drop)
	return nil
}

func (f *fakeStore) ApplyDropRewards(ctx context.Context, dropID string, effects models.RewardEffects) (models.RewardOutcome, error) {
	return models.RewardOutcome{Applied: true, DropEventID: dropID}, nil
}

func (f *fakeStore) GetUserByEmail(ctx context.Context, email string) (*models.User, error) {
	u, ok := f.users[email]
	if !ok {
		return nil, database.ErrNotFound
	}
	return &u, nil
}

func (f *fakeStore) RecordNavigation(ctx context.Context, userID, binID, binName string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.activities = append(f.activities, models.UserActivity{
		ID: "act-" + binID, UserID: userID, Action: models.ActivityBinNavigated, BinID: &binID, BinName: &binName,
	})
	return nil
}

func (f *fakeStore) ListUserActivities(ctx context.Context, userID string, limit int) ([]models.UserActivity, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := []models.UserActivity{}
	for i := len(f.activities) - 1; i >= 0 && len(out) < limit; i-- {
		if f.activities[i].UserID == userID {
			out = append(out, f.activities[i])
		}
	}
	return out, nil
}

type binEvents struct{ updated []models.Bin }

func (b *binEvents) BinUpdated(bin models.Bin) { b.updated = append(b.updated, bin) }

const testSecret = "handler-secret"

func newRouter(store *fakeStore, repo destination.Repository, events BinEvents) (http.Handler, *middleware.Authenticator) {
	auth := middleware.NewAuthenticator(testSecret, true, time.Hour)
	policy := config.DefaultPolicy()
	svc := services.NewDropConfirmationService(store, store, services.NewRewardLedger(store, policy), policy, time.UTC)

	r := chi.NewRouter()
	r.Get("/health", Health)
	r.Post("/api/auth/login", Login(store, auth))
	r.Get("/api/bins", GetBins(store))
	r.Get("/api/bins/nearby", GetNearbyBins(store))
	r.Get("/api/bins/{id}", GetBin(store))
	r.With(auth.Optional).Post("/api/drop/confirm", ConfirmDrop(svc))
	r.Group(func(r chi.Router) {
		r.Use(auth.Auth)
		r.Post("/api/user/destination", SaveDestination(repo, store))
		r.Get("/api/user/activity", GetMyActivity(store))
		r.Get("/api/user/destination", GetDestination(repo))
		r.Delete("/api/user/destination", ClearDestination(repo))
	})
	r.Group(func(r chi.Router) {
		r.Use(auth.Auth)
		r.Use(middleware.RequireRole(models.RoleAdmin))
		r.Patch("/api/admin/bins/{id}", UpdateBin(store, events))
	})
	return r, auth
}

type envelope struct {
	Success bool            `json:"success"`
	Error   string          `json:"error"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
}

func do(t *testing.T, h http.Handler, method, path string, body interface{}, headers map[string]string) (*httptest.ResponseRecorder, envelope) {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if s, ok := body.(string); ok {
			buf.WriteString(s)
		} else {
			require.NoError(t, json.NewEncoder(&buf).Encode(body))
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	var env envelope
	_ = json.Unmarshal(rec.Body.Bytes(), &env)
	return rec, env
}

func asUser(id string) map[string]string {
	return map[string]string{middleware.UserIDHeader: id}
}

func TestConfirmDrop_Success(t *testing.T) {
	h, _ := newRouter(newFakeStore(), destination.NewMemoryRepository(), nil)

	rec, env := do(t, h, http.MethodPost, "/api/drop/confirm",
		map[string]interface{}{"binId": "civil", "lat": 25.4534, "lng": 81.8341, "timeSpent": 45},
		asUser("u1"))

	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.True(t, env.Success)
	assert.Equal(t, "E-waste drop confirmed! You earned 150 points.", env.Message)

	var data models.ConfirmDropResponse
	require.NoError(t, json.Unmarshal(env.Data, &data))
	assert.Equal(t, "drop-1", data.DropEventID)
	assert.Equal(t, "Civil Lines E-Bin", data.BinName)
	assert.Equal(t, models.VerificationGeoProximity, data.VerificationMethod)
	assert.Equal(t, 10, data.DistanceMeters)
	assert.Equal(t, "5.2kg", data.Impact.CO2Saved)
}

func TestConfirmDrop_FractionalTimeSpent(t *testing.T) {
	store := newFakeStore()
	h, _ := newRouter(store, destination.NewMemoryRepository(), nil)

	rec, _ := do(t, h, http.MethodPost, "/api/drop/confirm",
		map[string]interface{}{"binId": "civil", "lat": 25.4534, "lng": 81.8341, "timeSpent": 45.5},
		asUser("u1"))
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	require.Len(t, store.drops, 1)
	assert.Equal(t, 45, store.drops[0].TimeSpentInRadius)
}

func TestConfirmDrop_StatusCodes(t *testing.T) {
	valid := map[string]interface{}{"binId": "civil", "lat": 25.4534, "lng": 81.8341, "timeSpent": 45}
	with := func(k string, v interface{}) map[string]interface{} {
		m := map[string]interface{}{}
		for key, val := range valid {
			m[key] = val
		}
		if v == nil {
			delete(m, k)
		} else {
			m[k] = v
		}
		return m
	}

	tests := []struct {
		name    string
		body    interface{}
		headers map[string]string
		status  int
		kind    string
	}{
		{"no identity", valid, nil, http.StatusUnauthorized, "unauthorized"},
		{"no identity and bad json", "{", nil, http.StatusUnauthorized, "unauthorized"},
		{"bad json", "{", asUser("u1"), http.StatusBadRequest, "invalid_input"},
		{"fractional time too short", with("timeSpent", 29.5), asUser("u1"), http.StatusBadRequest, "invalid_input"},
		{"missing lat", with("lat", nil), asUser("u1"), http.StatusBadRequest, "invalid_input"},
		{"time too short", with("timeSpent", 29), asUser("u1"), http.StatusBadRequest, "invalid_input"},
		{"timeSpent not a number", with("timeSpent", "45s"), asUser("u1"), http.StatusBadRequest, "invalid_input"},
		{"unknown bin", with("binId", "nope"), asUser("u1"), http.StatusNotFound, "not_found"},
		{"maintenance", map[string]interface{}{"binId": "junction", "lat": 25.4449, "lng": 81.8257, "timeSpent": 45}, asUser("u1"), http.StatusBadRequest, "precondition_failed"},
		{"too far", with("lat", 25.47), asUser("u1"), http.StatusBadRequest, "precondition_failed"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			h, _ := newRouter(newFakeStore(), destination.NewMemoryRepository(), nil)
			rec, env := do(t, h, http.MethodPost, "/api/drop/confirm", tc.body, tc.headers)
			assert.Equal(t, tc.status, rec.Code, rec.Body.String())
			assert.False(t, env.Success)
			assert.Equal(t, tc.kind, env.Error)
			assert.NotEmpty(t, env.Message)
		})
	}
}

func TestConfirmDrop_DuplicateIs409(t *testing.T) {
	h, _ := newRouter(newFakeStore(), destination.NewMemoryRepository(), nil)
	body := map[string]interface{}{"binId": "civil", "lat": 25.4534, "lng": 81.8341, "timeSpent": 45}

	rec, _ := do(t, h, http.MethodPost, "/api/drop/confirm", body, asUser("u1"))
	require.Equal(t, http.StatusOK, rec.Code)

	rec, env := do(t, h, http.MethodPost, "/api/drop/confirm", body, asUser("u1"))
	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.Equal(t, "E-waste already confirmed at this bin today. Please visit tomorrow.", env.Message)
}

type failingConfirmer struct{}

func (failingConfirmer) Confirm(context.Context, services.ConfirmRequest) (*services.ConfirmResult, error) {
	return nil, errors.New("pq: connection refused")
}

func (failingConfirmer) Response(*services.ConfirmResult) models.ConfirmDropResponse {
	return models.ConfirmDropResponse{}
}

func TestConfirmDrop_UnexpectedErrorHidesCause(t *testing.T) {
	rec, env := do(t, ConfirmDrop(failingConfirmer{}), http.MethodPost, "/", map[string]string{"binId": "x"}, nil)
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Equal(t, "unexpected", env.Error)
	assert.NotContains(t, env.Message, "pq")
}

func TestDestinationEndpoints(t *testing.T) {
	h, _ := newRouter(newFakeStore(), destination.NewMemoryRepository(), nil)

	rec, _ := do(t, h, http.MethodGet, "/api/user/destination", nil, nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec, env := do(t, h, http.MethodGet, "/api/user/destination", nil, asUser("u1"))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "null", string(env.Data))

	rec, _ = do(t, h, http.MethodPost, "/api/user/destination",
		map[string]interface{}{"binId": "civil", "binName": "Civil Lines E-Bin", "lat": 25.4534, "lng": 81.8340},
		asUser("u1"))
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	rec, env = do(t, h, http.MethodGet, "/api/user/destination", nil, asUser("u1"))
	require.Equal(t, http.StatusOK, rec.Code)
	var d models.ActiveDestination
	require.NoError(t, json.Unmarshal(env.Data, &d))
	assert.Equal(t, "civil", d.BinID)
	assert.NotZero(t, d.StartedAt)

	rec, env = do(t, h, http.MethodGet, "/api/user/destination", nil, asUser("u2"))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "null", string(env.Data), "destinations are per user")

	rec, _ = do(t, h, http.MethodDelete, "/api/user/destination", nil, asUser("u1"))
	require.Equal(t, http.StatusOK, rec.Code)
	_, env = do(t, h, http.MethodGet, "/api/user/destination", nil, asUser("u1"))
	assert.Equal(t, "null", string(env.Data))
}

func TestSaveDestination_RecordsNavigation(t *testing.T) {
	store := newFakeStore()
	h, _ := newRouter(store, destination.NewMemoryRepository(), nil)

	rec, _ := do(t, h, http.MethodPost, "/api/user/destination",
		map[string]interface{}{"binId": "katra", "binName": "Katra E-Bin", "lat": 25.4476, "lng": 81.8482},
		asUser("u1"))
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	rec, env := do(t, h, http.MethodGet, "/api/user/activity", nil, asUser("u1"))
	require.Equal(t, http.StatusOK, rec.Code)
	var feed []models.UserActivity
	require.NoError(t, json.Unmarshal(env.Data, &feed))
	require.Len(t, feed, 1)
	assert.Equal(t, models.ActivityBinNavigated, feed[0].Action)
	assert.Equal(t, "katra", *feed[0].BinID)
	assert.Zero(t, feed[0].Points)

	_, env = do(t, h, http.MethodGet, "/api/user/activity", nil, asUser("u2"))
	assert.Equal(t, "[]", string(env.Data))
}

func TestSaveDestination_Expired(t *testing.T) {
	h, _ := newRouter(newFakeStore(), destination.NewMemoryRepository(), nil)
	rec, _ := do(t, h, http.MethodPost, "/api/user/destination",
		map[string]interface{}{"binId": "civil", "lat": 25.4534, "lng": 81.8340,
			"startedAt": time.Now().Add(-3 * time.Hour).UnixMilli()},
		asUser("u1"))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestBins(t *testing.T) {
	h, _ := newRouter(newFakeStore(), destination.NewMemoryRepository(), nil)

	rec, env := do(t, h, http.MethodGet, "/api/bins?status=maintenance", nil, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var bins []models.BinResponse
	require.NoError(t, json.Unmarshal(env.Data, &bins))
	require.Len(t, bins, 1)
	assert.Equal(t, "junction", bins[0].ID)

	rec, _ = do(t, h, http.MethodGet, "/api/bins/nope", nil, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec, env = do(t, h, http.MethodGet, "/api/bins/nearby?lat=25.4534&lng=81.8341&radius=1400", nil, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	bins = nil
	require.NoError(t, json.Unmarshal(env.Data, &bins))
	require.Len(t, bins, 2)
	assert.Equal(t, "civil", bins[0].ID, "closest first")
	assert.Less(t, *bins[0].DistanceMeters, *bins[1].DistanceMeters)

	rec, _ = do(t, h, http.MethodGet, "/api/bins/nearby?lat=95&lng=81", nil, nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestAdminUpdateBin(t *testing.T) {
	events := &binEvents{}
	h, auth := newRouter(newFakeStore(), destination.NewMemoryRepository(), events)

	userToken, err := auth.GenerateToken("u1", "user@ecodrop.app", models.RoleUser)
	require.NoError(t, err)
	adminToken, err := auth.GenerateToken("a1", "admin@ecodrop.app", models.RoleAdmin)
	require.NoError(t, err)

	body := map[string]interface{}{"status": "operational", "fillLevel": 0}

	rec, _ := do(t, h, http.MethodPatch, "/api/admin/bins/junction", body,
		map[string]string{"Authorization": "Bearer " + userToken})
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec, _ = do(t, h, http.MethodPatch, "/api/admin/bins/junction", map[string]interface{}{"fillLevel": 140},
		map[string]string{"Authorization": "Bearer " + adminToken})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec, _ = do(t, h, http.MethodPatch, "/api/admin/bins/junction", body,
		map[string]string{"Authorization": "Bearer " + adminToken})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	require.Len(t, events.updated, 1)
	assert.Equal(t, models.BinStatusOperational, events.updated[0].Status)
}

func TestLogin(t *testing.T) {
	h, auth := newRouter(newFakeStore(), destination.NewMemoryRepository(), nil)

	rec, _ := do(t, h, http.MethodPost, "/api/auth/login",
		LoginRequest{Email: "user@ecodrop.app", Password: "wrong"}, nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec, _ = do(t, h, http.MethodPost, "/api/auth/login",
		LoginRequest{Email: "user@ecodrop.app", Password: "recycle123"}, nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var resp LoginResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.True(t, resp.OK)
	claims, err := auth.ParseToken(resp.Token)
	require.NoError(t, err)
	assert.Equal(t, "u1", claims.UserID)
}

func TestHealth(t *testing.T) {
	h, _ := newRouter(newFakeStore(), destination.NewMemoryRepository(), nil)
	rec, _ := do(t, h, http.MethodGet, "/health", nil, nil)
	assert.Equal(t, http.StatusOK, rec.Code)
}
