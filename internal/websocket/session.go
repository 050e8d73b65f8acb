package websocket

import (
	"context"
	"errors"
	"log"
	"sync"
	"time"

	"ecodrop-backend/internal/apperr"
	"ecodrop-backend/internal/database"
	"ecodrop-backend/internal/models"
	"ecodrop-backend/internal/tracker"
)

// Client → server message types
const (
	MsgPing          = "ping"
	MsgStartTracking = "start_tracking"
	MsgLocation      = "location_update"
	MsgLocationError = "location_error"
	MsgStopTracking  = "stop_tracking"
)

// Server → client message types
const (
	MsgPong            = "pong"
	MsgProximityUpdate = "proximity_update"
	MsgConfirmEligible = "confirm_eligible"
	MsgTrackingError   = "tracking_error"
	MsgTrackingStopped = "tracking_stopped"
	MsgDropConfirmed   = "drop_confirmed"
	MsgBinFull         = "bin_full"
	MsgBinUpdated      = "bin_updated"
)

// Browser geolocation error codes, reported by clients in location_error.
// Anything else, including 2 (position unavailable), maps to unavailable.
const (
	geoPermissionDenied = 1
	geoTimeout          = 3
)

// IncomingMessage represents a message from the client
type IncomingMessage struct {
	Type      string                 `json:"type"`
	Timestamp string                 `json:"timestamp"`
	Data      map[string]interface{} `json:"data"`
}

// OutgoingMessage is what the server writes to a client.
type OutgoingMessage struct {
	Type      string      `json:"type"`
	Timestamp string      `json:"timestamp"`
	Data      interface{} `json:"data,omitempty"`
}

func newMessage(msgType string, data interface{}) OutgoingMessage {
	return OutgoingMessage{Type: msgType, Timestamp: time.Now().Format(time.RFC3339), Data: data}
}

type BinLookup interface {
	GetBin(ctx context.Context, id string) (*models.Bin, error)
}

// ProximityPayload is the data of proximity_update and confirm_eligible.
type ProximityPayload struct {
	BinID string `json:"binId"`
	tracker.State
}

type TrackingErrorPayload struct {
	Kind    apperr.Kind `json:"error"`
	Message string      `json:"message"`
}

// TrackingSession runs a server-side proximity tracker for one connection.
// It is advisory: drop confirmation re-validates everything on its own.
type TrackingSession struct {
	userID string
	bins   BinLookup
	send   func(OutgoingMessage)
	now    func() time.Time

	ctx     context.Context
	tracker *tracker.Tracker

	mu     sync.Mutex
	source *tracker.ChannelSource
	binID  string
}

func NewTrackingSession(ctx context.Context, userID string, bins BinLookup, cfg tracker.Config, send func(OutgoingMessage)) *TrackingSession {
	now := cfg.Clock
	if now == nil {
		now = time.Now
	}
	return &TrackingSession{
		userID:  userID,
		bins:    bins,
		send:    send,
		now:     now,
		ctx:     ctx,
		tracker: tracker.New(cfg),
	}
}

// Handle dispatches one client message.
func (s *TrackingSession) Handle(msg IncomingMessage) {
	switch msg.Type {
	case MsgPing:
		s.send(newMessage(MsgPong, nil))
	case MsgStartTracking:
		s.start(msg.Data)
	case MsgLocation:
		s.location(msg.Data)
	case MsgLocationError:
		s.locationError(msg.Data)
	case MsgStopTracking:
		s.Close()
		s.send(newMessage(MsgTrackingStopped, nil))
	default:
		s.sendError(apperr.E(apperr.InvalidInput, "Unknown message type: "+msg.Type))
	}
}

func (s *TrackingSession) start(data map[string]interface{}) {
	binID, _ := data["binId"].(string)
	if binID == "" {
		s.sendError(apperr.E(apperr.InvalidInput, "Missing required fields"))
		return
	}

	bin, err := s.bins.GetBin(s.ctx, binID)
	if errors.Is(err, database.ErrNotFound) {
		s.sendError(apperr.E(apperr.NotFound, "Bin not found"))
		return
	}
	if err != nil {
		log.Printf("❌ Failed to load bin %s for tracking: %v", binID, err)
		s.sendError(apperr.Wrap(apperr.Unexpected, "Internal server error", err))
		return
	}
	if !bin.IsOperational() {
		s.sendError(apperr.E(apperr.PreconditionFailed, "Bin is not currently operational"))
		return
	}

	source := tracker.NewChannelSource(16)
	target := tracker.Target{BinID: bin.ID, Latitude: bin.Latitude, Longitude: bin.Longitude}
	handlers := tracker.Handlers{
		OnUpdate: func(st tracker.State) {
			s.send(newMessage(MsgProximityUpdate, ProximityPayload{BinID: bin.ID, State: st}))
		},
		OnEligible: func(st tracker.State) {
			s.send(newMessage(MsgConfirmEligible, ProximityPayload{BinID: bin.ID, State: st}))
		},
		OnError: func(err error) {
			s.sendError(err)
		},
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.tracker.Start(s.ctx, target, source, handlers); err != nil {
		s.sendError(err)
		return
	}
	s.source = source
	s.binID = bin.ID
	log.Printf("📍 Tracking started: %s → %s", s.userID, bin.Name)
}

func (s *TrackingSession) activeSource() *tracker.ChannelSource {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.source
}

func (s *TrackingSession) location(data map[string]interface{}) {
	source := s.activeSource()
	if source == nil {
		s.sendError(apperr.E(apperr.PreconditionFailed, "Tracking has not been started"))
		return
	}

	lat, okLat := data["latitude"].(float64)
	lng, okLng := data["longitude"].(float64)
	if !okLat || !okLng {
		s.sendError(apperr.E(apperr.InvalidInput, "Invalid coordinates"))
		return
	}

	// stamped on receipt with the server clock; client timestamps never feed dwell
	p := tracker.Position{Latitude: lat, Longitude: lng, Timestamp: s.now()}
	if a, ok := data["accuracy"].(float64); ok {
		p.Accuracy = &a
	}

	s.deliver(source, tracker.Event{Position: p})
}

func (s *TrackingSession) locationError(data map[string]interface{}) {
	source := s.activeSource()
	if source == nil {
		return
	}

	code, _ := data["code"].(float64)
	var err error
	switch int(code) {
	case geoPermissionDenied:
		err = tracker.PermissionDenied(nil)
	case geoTimeout:
		err = tracker.Timeout(nil)
	default:
		err = tracker.Unavailable(nil)
	}
	s.deliver(source, tracker.Event{Err: err})
}

// deliver hands an event to the tracker without stalling the read loop
// behind a slow session.
func (s *TrackingSession) deliver(source *tracker.ChannelSource, ev tracker.Event) {
	ctx, cancel := context.WithTimeout(s.ctx, time.Second)
	defer cancel()
	if err := source.Send(ctx, ev); err != nil {
		log.Printf("⚠️  Dropped location event for %s: %v", s.userID, err)
	}
}

// Close stops the tracker. Safe to call more than once.
func (s *TrackingSession) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.tracker.Stop()
	if s.source != nil {
		log.Printf("⏹️  Tracking stopped: %s (bin %s)", s.userID, s.binID)
	}
	s.source = nil
	s.binID = ""
}

func (s *TrackingSession) sendError(err error) {
	payload := TrackingErrorPayload{Kind: apperr.KindOf(err), Message: "Internal server error"}
	var e *apperr.Error
	if errors.As(err, &e) && e.Message != "" {
		payload.Message = e.Message
	}
	s.send(newMessage(MsgTrackingError, payload))
}
