package services

import (
	"context"
	"errors"
	"sync"

	"github.com/google/uuid"

	"ecodrop-backend/internal/database"
	"ecodrop-backend/internal/models"
)

// memStore mimics the Postgres store: the user foreign key, the (user, bin,
// day) unique index and the rewards_applied flag are enforced under one mutex.
type memStore struct {
	mu    sync.Mutex
	bins  map[string]*models.Bin
	users map[string]*models.User
	drops map[string]*models.DropEvent
	order []string

	activities  int
	failRewards int
}

func newMemStore() *memStore {
	return &memStore{
		bins:  make(map[string]*models.Bin),
		users: make(map[string]*models.User),
		drops: make(map[string]*models.DropEvent),
	}
}

func (m *memStore) addBin(b models.Bin) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.bins[b.ID] = &b
}

func (m *memStore) addUser(id string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.users[id] = &models.User{ID: id, Name: id, Role: models.RoleUser}
}

func (m *memStore) user(id string) models.User {
	m.mu.Lock()
	defer m.mu.Unlock()
	return *m.users[id]
}

func (m *memStore) bin(id string) models.Bin {
	m.mu.Lock()
	defer m.mu.Unlock()
	return *m.bins[id]
}

func (m *memStore) drop(id string) models.DropEvent {
	m.mu.Lock()
	defer m.mu.Unlock()
	return *m.drops[id]
}

func (m *memStore) dropCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.drops)
}

func (m *memStore) GetBin(ctx context.Context, id string) (*models.Bin, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	b, ok := m.bins[id]
	if !ok {
		return nil, database.ErrNotFound
	}
	cp := *b
	return &cp, nil
}

func (m *memStore) HasDropInBucket(ctx context.Context, userID, binID, dayBucket string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.hasDropLocked(userID, binID, dayBucket), nil
}

func (m *memStore) hasDropLocked(userID, binID, dayBucket string) bool {
	for _, d := range m.drops {
		if d.UserID == userID && d.BinID == binID && d.DayBucket == dayBucket {
			return true
		}
	}
	return false
}

func (m *memStore) CreateDropEvent(ctx context.Context, drop *models.DropEvent) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.users[drop.UserID]; !ok {
		return database.ErrUnknownUser
	}
	if m.hasDropLocked(drop.UserID, drop.BinID, drop.DayBucket) {
		return database.ErrDuplicateDrop
	}
	if drop.ID == "" {
		drop.ID = uuid.New().String()
	}
	cp := *drop
	cp.RewardsApplied = false
	m.drops[cp.ID] = &cp
	m.order = append(m.order, cp.ID)
	return nil
}

var errRewardsDown = errors.New("connection reset by peer")

func (m *memStore) ApplyDropRewards(ctx context.Context, dropID string, effects models.RewardEffects) (models.RewardOutcome, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	outcome := models.RewardOutcome{DropEventID: dropID}
	if m.failRewards > 0 {
		m.failRewards--
		return outcome, errRewardsDown
	}

	d, ok := m.drops[dropID]
	if !ok {
		return outcome, database.ErrNotFound
	}
	if d.RewardsApplied {
		return outcome, nil
	}
	d.RewardsApplied = true

	u := m.users[d.UserID]
	u.Points += d.PointsEarned
	u.TotalItemsRecycled += effects.ItemsRecycled
	u.TotalCO2Saved += d.CO2Saved

	b := m.bins[d.BinID]
	b.FillLevel = min(100, b.FillLevel+effects.FillStep)
	becameFull := false
	if b.Status == models.BinStatusOperational && b.FillLevel >= effects.FullThreshold {
		b.Status = models.BinStatusFull
		becameFull = true
	}
	m.activities++

	outcome.Applied = true
	outcome.UserID = d.UserID
	outcome.BinID = d.BinID
	outcome.BinName = b.Name
	outcome.FillLevel = b.FillLevel
	outcome.BinBecameFull = becameFull
	outcome.UserPoints = u.Points
	return outcome, nil
}

func (m *memStore) ListPendingRewards(ctx context.Context, createdBefore int64, limit int) ([]models.DropEvent, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []models.DropEvent
	for _, id := range m.order {
		d := m.drops[id]
		if !d.RewardsApplied && d.CreatedAt <= createdBefore {
			out = append(out, *d)
		}
		if len(out) == limit {
			break
		}
	}
	return out, nil
}
