package destination

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ecodrop-backend/internal/models"
)

var now = time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)

func fixedClock() time.Time { return now }

func civilLines(startedAt time.Time) models.ActiveDestination {
	return models.ActiveDestination{
		BinID:     "bin-civil-lines",
		BinName:   "Civil Lines E-Bin",
		Latitude:  25.4534,
		Longitude: 81.8340,
		Address:   "Civil Lines, Prayagraj",
		StartedAt: startedAt.UnixMilli(),
	}
}

func TestStore_Validity(t *testing.T) {
	store := NewStore(NewMemoryStorage(), WithClock(fixedClock))

	stale := civilLines(now.Add(-3 * time.Hour))
	fresh := civilLines(now.Add(-1 * time.Hour))

	assert.False(t, store.IsValid(&stale, DefaultMaxAge))
	assert.True(t, store.IsValid(&fresh, DefaultMaxAge))
	assert.False(t, store.IsValid(nil, DefaultMaxAge))

	edge := civilLines(now.Add(-DefaultMaxAge))
	assert.False(t, store.IsValid(&edge, DefaultMaxAge), "exactly max age is already stale")
}

func TestStore_SaveOverwrites(t *testing.T) {
	store := NewStore(NewMemoryStorage(), WithClock(fixedClock))

	require.NoError(t, store.Save(civilLines(now)))
	second := models.ActiveDestination{BinID: "bin-katra", BinName: "Katra E-Bin", Latitude: 25.4420, Longitude: 81.8530, StartedAt: now.UnixMilli()}
	require.NoError(t, store.Save(second))

	got := store.Load()
	require.NotNil(t, got)
	assert.Equal(t, second, *got)
}

func TestStore_LoadValidClearsStale(t *testing.T) {
	storage := NewMemoryStorage()
	store := NewStore(storage, WithClock(fixedClock))

	require.NoError(t, store.Save(civilLines(now.Add(-3*time.Hour))))
	assert.Nil(t, store.LoadValid())

	_, err := storage.Get(StorageKey)
	assert.ErrorIs(t, err, ErrKeyNotFound, "stale entry should be removed")

	require.NoError(t, store.Save(civilLines(now.Add(-time.Hour))))
	assert.NotNil(t, store.LoadValid())
}

func TestStore_LoadNeverFails(t *testing.T) {
	storage := NewMemoryStorage()
	store := NewStore(storage)

	assert.Nil(t, store.Load(), "empty store")

	require.NoError(t, storage.Set(StorageKey, []byte("{not json")))
	assert.Nil(t, store.Load(), "corrupt value")

	assert.Nil(t, NewStore(brokenStorage{}).Load(), "unavailable storage")
}

func TestStore_ClearIsIdempotent(t *testing.T) {
	store := NewStore(NewMemoryStorage())
	require.NoError(t, store.Save(civilLines(time.Now())))

	store.Clear()
	store.Clear()
	assert.Nil(t, store.Load())
}

func TestFileStorage_RoundTrip(t *testing.T) {
	dir := t.TempDir()
	store := NewStore(NewFileStorage(filepath.Join(dir, "state")), WithClock(fixedClock))

	require.NoError(t, store.Save(civilLines(now.Add(-10*time.Minute))))

	// a fresh Store on the same directory sees the value, like a reloaded client
	reloaded := NewStore(NewFileStorage(filepath.Join(dir, "state")), WithClock(fixedClock))
	got := reloaded.LoadValid()
	require.NotNil(t, got)
	assert.Equal(t, "bin-civil-lines", got.BinID)

	reloaded.Clear()
	reloaded.Clear()
	_, err := os.Stat(filepath.Join(dir, "state", StorageKey+".json"))
	assert.True(t, os.IsNotExist(err))
}

type brokenStorage struct{}

func (brokenStorage) Get(string) ([]byte, error) { return nil, errors.New("disk unavailable") }
func (brokenStorage) Set(string, []byte) error   { return errors.New("disk unavailable") }
func (brokenStorage) Remove(string) error        { return errors.New("disk unavailable") }

func TestMemoryRepository_ExpiresLazily(t *testing.T) {
	ctx := context.Background()
	clock := now
	repo := NewMemoryRepository()
	repo.now = func() time.Time { return clock }

	require.NoError(t, repo.Save(ctx, "user-1", civilLines(now.Add(-time.Hour))))
	got, err := repo.Get(ctx, "user-1")
	require.NoError(t, err)
	require.NotNil(t, got)

	clock = now.Add(90 * time.Minute)
	got, err = repo.Get(ctx, "user-1")
	require.NoError(t, err)
	assert.Nil(t, got)

	assert.ErrorIs(t, repo.Save(ctx, "user-1", civilLines(now.Add(-3*time.Hour))), ErrExpired)
	require.NoError(t, repo.Delete(ctx, "user-1"))
}

func TestRedisRepository(t *testing.T) {
	url := os.Getenv("REDIS_URL")
	if url == "" {
		t.Skip("REDIS_URL not set")
	}
	ctx := context.Background()

	repo, err := NewRedisRepository(url)
	require.NoError(t, err)
	defer repo.Close()

	userID := "test-user-" + time.Now().Format("150405.000")
	d := civilLines(time.Now().Add(-time.Minute))

	require.NoError(t, repo.Save(ctx, userID, d))
	ttl, err := repo.client.TTL(ctx, destinationKey(userID)).Result()
	require.NoError(t, err)
	assert.InDelta(t, (DefaultMaxAge - time.Minute).Seconds(), ttl.Seconds(), 5)

	got, err := repo.Get(ctx, userID)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, d, *got)

	require.NoError(t, repo.Delete(ctx, userID))
	got, err = repo.Get(ctx, userID)
	require.NoError(t, err)
	assert.Nil(t, got)
}
