package dropflow

import (
	"context"
	"log"
	"sync"
	"time"

	"ecodrop-backend/internal/apperr"
	"ecodrop-backend/internal/destination"
	"ecodrop-backend/internal/models"
	"ecodrop-backend/internal/tracker"
)

type API interface {
	SaveDestination(ctx context.Context, d models.ActiveDestination) error
	ClearDestination(ctx context.Context) error
	ConfirmDrop(ctx context.Context, req models.ConfirmDropRequest) (*models.ConfirmDropResponse, error)
}

// Flow ties the destination store, a proximity tracker and the API together
// for one user.
type Flow struct {
	api     API
	store   *destination.Store
	tracker *tracker.Tracker
	now     func() time.Time

	mu   sync.Mutex
	last *tracker.Position
}

func NewFlow(api API, store *destination.Store, cfg tracker.Config) *Flow {
	now := cfg.Clock
	if now == nil {
		now = time.Now
	}
	return &Flow{api: api, store: store, tracker: tracker.New(cfg), now: now}
}

// ActivateDestination records bin as the active destination. The local save
// must succeed; the server copy is best effort.
func (f *Flow) ActivateDestination(ctx context.Context, bin models.BinResponse) (*models.ActiveDestination, error) {
	d := models.ActiveDestination{
		BinID:     bin.ID,
		BinName:   bin.Name,
		Latitude:  bin.Latitude,
		Longitude: bin.Longitude,
		Address:   bin.Address,
		StartedAt: f.now().UnixMilli(),
	}
	if err := f.store.Save(d); err != nil {
		return nil, err
	}
	if err := f.api.SaveDestination(ctx, d); err != nil {
		log.Printf("⚠️  Failed to save destination to server: %v", err)
	}
	return &d, nil
}

// Status returns the active destination, or nil when none is stored or it
// has gone stale.
func (f *Flow) Status() *models.ActiveDestination {
	return f.store.LoadValid()
}

// Track starts following src toward the active destination.
func (f *Flow) Track(ctx context.Context, src tracker.Source, h tracker.Handlers) error {
	d := f.Status()
	if d == nil {
		return apperr.E(apperr.PreconditionFailed, "No active destination")
	}

	f.mu.Lock()
	f.last = nil
	f.mu.Unlock()

	target := tracker.Target{BinID: d.BinID, Latitude: d.Latitude, Longitude: d.Longitude}
	return f.tracker.Start(ctx, target, &recordingSource{src: src, flow: f}, h)
}

// State is the current proximity state of the tracker.
func (f *Flow) State() tracker.State {
	return f.tracker.State()
}

func (f *Flow) record(p tracker.Position) {
	f.mu.Lock()
	f.last = &p
	f.mu.Unlock()
}

func (f *Flow) lastPosition() *tracker.Position {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.last
}

// ConfirmDrop asks the server to verify the drop once the tracker allows
// it. On success tracking stops and the destination is cleared; on failure
// everything is left in place so the user can retry.
func (f *Flow) ConfirmDrop(ctx context.Context) (*models.ConfirmDropResponse, error) {
	d := f.Status()
	if d == nil {
		return nil, apperr.E(apperr.PreconditionFailed, "No active destination")
	}
	st := f.tracker.State()
	pos := f.lastPosition()
	if !st.CanConfirm || pos == nil {
		return nil, apperr.E(apperr.PreconditionFailed, "Stay near the bin a little longer before confirming")
	}

	lat, lng, spent := pos.Latitude, pos.Longitude, float64(st.DwellSeconds)
	resp, err := f.api.ConfirmDrop(ctx, models.ConfirmDropRequest{
		BinID:     d.BinID,
		Latitude:  &lat,
		Longitude: &lng,
		TimeSpent: &spent,
		Accuracy:  pos.Accuracy,
	})
	if err != nil {
		return nil, err
	}

	log.Printf("🎉 E-Waste verified! +%d points at %s", resp.PointsEarned, resp.BinName)
	f.reset(ctx)
	return resp, nil
}

// Cancel stops tracking and forgets the destination.
func (f *Flow) Cancel(ctx context.Context) {
	f.reset(ctx)
}

func (f *Flow) reset(ctx context.Context) {
	f.tracker.Stop()
	f.store.Clear()
	f.mu.Lock()
	f.last = nil
	f.mu.Unlock()
	if err := f.api.ClearDestination(ctx); err != nil {
		log.Printf("⚠️  Failed to clear destination on server: %v", err)
	}
}

// recordingSource remembers the latest position before the tracker sees it.
type recordingSource struct {
	src  tracker.Source
	flow *Flow
}

func (r *recordingSource) Watch(ctx context.Context) (<-chan tracker.Event, error) {
	in, err := r.src.Watch(ctx)
	if err != nil {
		return nil, err
	}

	out := make(chan tracker.Event)
	go func() {
		defer close(out)
		for {
			select {
			case <-ctx.Done():
				return
			case ev, ok := <-in:
				if !ok {
					return
				}
				if ev.Err == nil {
					r.flow.record(ev.Position)
				}
				select {
				case out <- ev:
				case <-ctx.Done():
					return
				}
			}
		}
	}()
	return out, nil
}
