package tracker

import (
	"context"
	"errors"
	"time"

	"ecodrop-backend/internal/apperr"
)

// Position is one location sample from a device.
type Position struct {
	Latitude  float64   `json:"latitude"`
	Longitude float64   `json:"longitude"`
	Accuracy  *float64  `json:"accuracy,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

// Event carries either a position or a location error. Exactly one is set.
type Event struct {
	Position Position
	Err      error
}

// Source is a cancellable stream of location events. The returned channel
// must stop delivering once ctx is cancelled.
type Source interface {
	Watch(ctx context.Context) (<-chan Event, error)
}

// ChannelSource is a Source fed by the caller. It backs websocket tracking
// sessions, the simulator and tests.
type ChannelSource struct {
	ch chan Event
}

func NewChannelSource(buffer int) *ChannelSource {
	return &ChannelSource{ch: make(chan Event, buffer)}
}

func (s *ChannelSource) Watch(ctx context.Context) (<-chan Event, error) {
	return s.ch, nil
}

// Send delivers an event, blocking until the tracker reads it or ctx ends.
func (s *ChannelSource) Send(ctx context.Context, ev Event) error {
	select {
	case s.ch <- ev:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Push is shorthand for sending a position.
func (s *ChannelSource) Push(ctx context.Context, p Position) error {
	return s.Send(ctx, Event{Position: p})
}

// Location error constructors. The message is the guidance shown to the user.

func PermissionDenied(cause error) error {
	return apperr.Wrap(apperr.LocationPermissionDenied,
		"Location access was denied. Enable location permission for EcoDrop in your browser or device settings.", cause)
}

func Unavailable(cause error) error {
	return apperr.Wrap(apperr.LocationUnavailable,
		"Your location is currently unavailable. Turn on GPS or move to an area with better signal.", cause)
}

func Timeout(cause error) error {
	return apperr.Wrap(apperr.LocationTimeout,
		"Getting your location took too long. Make sure GPS is enabled and try again.", cause)
}

var errNoFix = errors.New("no location fix within acquire timeout")

// classify makes sure anything reaching OnError is a typed location error.
func classify(err error) error {
	switch apperr.KindOf(err) {
	case apperr.LocationPermissionDenied, apperr.LocationUnavailable, apperr.LocationTimeout:
		return err
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return Timeout(err)
	}
	return Unavailable(err)
}
