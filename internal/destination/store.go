// Package destination remembers which bin a user set out for, so a
// verification session survives reloads and restarts of the client.
package destination

import (
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"time"

	"ecodrop-backend/internal/models"
)

const (
	StorageKey    = "ecodrop_active_destination"
	DefaultMaxAge = 2 * time.Hour
)

// Store persists at most one ActiveDestination. Reads never fail: missing,
// unreadable and corrupt values all load as nil.
type Store struct {
	storage Storage
	maxAge  time.Duration
	now     func() time.Time
}

type Option func(*Store)

func WithClock(now func() time.Time) Option {
	return func(s *Store) { s.now = now }
}

func WithMaxAge(d time.Duration) Option {
	return func(s *Store) { s.maxAge = d }
}

func NewStore(storage Storage, opts ...Option) *Store {
	s := &Store{storage: storage, maxAge: DefaultMaxAge, now: time.Now}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Save overwrites any previously stored destination.
func (s *Store) Save(d models.ActiveDestination) error {
	data, err := json.Marshal(d)
	if err != nil {
		return fmt.Errorf("failed to encode destination: %w", err)
	}
	if err := s.storage.Set(StorageKey, data); err != nil {
		return fmt.Errorf("failed to save destination: %w", err)
	}
	return nil
}

func (s *Store) Load() *models.ActiveDestination {
	data, err := s.storage.Get(StorageKey)
	if err != nil {
		if !errors.Is(err, ErrKeyNotFound) {
			log.Printf("⚠️  Failed to load destination: %v", err)
		}
		return nil
	}

	var d models.ActiveDestination
	if err := json.Unmarshal(data, &d); err != nil {
		log.Printf("⚠️  Stored destination is corrupt, ignoring: %v", err)
		return nil
	}
	if d.BinID == "" {
		return nil
	}
	return &d
}

// IsValid reports whether d was started less than maxAge ago.
func (s *Store) IsValid(d *models.ActiveDestination, maxAge time.Duration) bool {
	if d == nil {
		return false
	}
	return s.now().Sub(d.StartedTime()) < maxAge
}

// Clear removes the stored destination. Clearing an empty store is fine.
func (s *Store) Clear() {
	if err := s.storage.Remove(StorageKey); err != nil {
		log.Printf("⚠️  Failed to clear destination: %v", err)
	}
}

// LoadValid returns the stored destination if it is still fresh. A stale
// entry is removed on the way out.
func (s *Store) LoadValid() *models.ActiveDestination {
	d := s.Load()
	if d == nil {
		return nil
	}
	if !s.IsValid(d, s.maxAge) {
		log.Printf("🕐 Destination %s expired, clearing", d.BinID)
		s.Clear()
		return nil
	}
	return d
}
