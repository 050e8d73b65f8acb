// Package tracker turns a stream of device positions into the proximity
// state used to gate drop confirmation. A Tracker is created per
// verification session; there is no shared instance.
package tracker

import (
	"context"
	"sync"
	"time"

	"ecodrop-backend/internal/geo"
)

type Phase string

const (
	Idle            Phase = "idle"
	OutOfRadius     Phase = "out_of_radius"
	InRadius        Phase = "in_radius"
	ConfirmEligible Phase = "confirm_eligible"
)

const (
	DefaultRadiusMeters        = 50.0
	DefaultMinDwell            = 30 * time.Second
	DefaultOutOfRadiusThrottle = 2 * time.Second
	DefaultAcquireTimeout      = 30 * time.Second
)

type Config struct {
	RadiusMeters float64
	MinDwell     time.Duration
	// OutOfRadiusThrottle is the minimum gap between propagated out-of-radius
	// updates. Negative disables throttling.
	OutOfRadiusThrottle time.Duration
	// AcquireTimeout raises a LocationTimeout error when no fix arrives in
	// time. Zero disables it.
	AcquireTimeout time.Duration
	Clock          func() time.Time
}

func DefaultConfig() Config {
	return Config{
		RadiusMeters:        DefaultRadiusMeters,
		MinDwell:            DefaultMinDwell,
		OutOfRadiusThrottle: DefaultOutOfRadiusThrottle,
		AcquireTimeout:      DefaultAcquireTimeout,
		Clock:               time.Now,
	}
}

type Target struct {
	BinID     string  `json:"binId"`
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
}

// State is the observable proximity state.
// CanConfirm holds exactly when WithinRadius and the dwell has reached MinDwell.
type State struct {
	Phase        Phase    `json:"phase"`
	WithinRadius bool     `json:"isWithinRadius"`
	DwellSeconds int      `json:"continuousDwellSeconds"`
	CanConfirm   bool     `json:"canConfirm"`
	Distance     *float64 `json:"lastDistance,omitempty"`
}

// Handlers run on the session goroutine and must not call Stop.
type Handlers struct {
	OnUpdate   func(State)
	OnEligible func(State)
	OnError    func(error)
}

type Tracker struct {
	cfg Config

	mu             sync.Mutex
	target         *Target
	state          State
	dwellStart     time.Time
	lastPropagated time.Time
	eligibleSent   bool

	// lifecycle serializes Start and Stop
	lifecycle sync.Mutex
	cancel    context.CancelFunc
	done      chan struct{}
}

// New returns an idle tracker. Zero fields in cfg take the defaults,
// except AcquireTimeout where zero means disabled.
// Samples are timed by Position.Timestamp, or by Clock when it is zero.
func New(cfg Config) *Tracker {
	d := DefaultConfig()
	if cfg.RadiusMeters <= 0 {
		cfg.RadiusMeters = d.RadiusMeters
	}
	if cfg.MinDwell <= 0 {
		cfg.MinDwell = d.MinDwell
	}
	if cfg.OutOfRadiusThrottle == 0 {
		cfg.OutOfRadiusThrottle = d.OutOfRadiusThrottle
	}
	if cfg.Clock == nil {
		cfg.Clock = d.Clock
	}
	return &Tracker{cfg: cfg, state: State{Phase: Idle}}
}

// SetTarget points the tracker at a bin and resets all dwell state.
func (t *Tracker) SetTarget(target Target) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.resetLocked()
	t.target = &target
}

func (t *Tracker) Target() (Target, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.target == nil {
		return Target{}, false
	}
	return *t.target, true
}

func (t *Tracker) State() State {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.state
}

// Process applies one position sample. The bool reports whether the update
// should be propagated to observers: in-radius updates and phase changes
// always are, out-of-radius updates at most once per OutOfRadiusThrottle.
func (t *Tracker) Process(p Position) (State, bool) {
	st, propagate, _ := t.process(p)
	return st, propagate
}

func (t *Tracker) process(p Position) (State, bool, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.target == nil {
		return t.state, false, false
	}

	now := p.Timestamp
	if now.IsZero() {
		now = t.cfg.Clock()
	}
	distance := geo.DistanceMeters(p.Latitude, p.Longitude, t.target.Latitude, t.target.Longitude)
	prev := t.state.Phase

	next := State{Distance: &distance}
	if distance <= t.cfg.RadiusMeters {
		if t.dwellStart.IsZero() {
			t.dwellStart = now
		}
		dwell := now.Sub(t.dwellStart)
		if dwell < 0 {
			dwell = 0
		}
		next.WithinRadius = true
		next.DwellSeconds = int(dwell / time.Second)
		next.CanConfirm = dwell >= t.cfg.MinDwell
		next.Phase = InRadius
		if next.CanConfirm {
			next.Phase = ConfirmEligible
		}
	} else {
		// leaving the radius throws away the accumulated dwell
		t.dwellStart = time.Time{}
		t.eligibleSent = false
		next.Phase = OutOfRadius
	}
	t.state = next

	propagate := next.WithinRadius || prev != next.Phase ||
		t.lastPropagated.IsZero() || now.Sub(t.lastPropagated) >= t.cfg.OutOfRadiusThrottle
	if propagate {
		t.lastPropagated = now
	}

	becameEligible := false
	if next.CanConfirm && !t.eligibleSent {
		t.eligibleSent = true
		becameEligible = true
	}
	return next, propagate, becameEligible
}

// Start subscribes to src and runs the session loop until ctx is cancelled,
// the source closes, or Stop is called. A running session is stopped first.
func (t *Tracker) Start(ctx context.Context, target Target, src Source, h Handlers) error {
	t.lifecycle.Lock()
	defer t.lifecycle.Unlock()

	t.stopLocked()
	t.SetTarget(target)

	ctx, cancel := context.WithCancel(ctx)
	events, err := src.Watch(ctx)
	if err != nil {
		cancel()
		return classify(err)
	}

	done := make(chan struct{})
	t.cancel = cancel
	t.done = done
	go t.run(ctx, events, h, done)
	return nil
}

// Stop cancels the subscription, waits for the loop to exit and clears all
// state. Calling it on a stopped tracker is a no-op.
func (t *Tracker) Stop() {
	t.lifecycle.Lock()
	defer t.lifecycle.Unlock()
	t.stopLocked()
}

func (t *Tracker) stopLocked() {
	if t.cancel == nil {
		return
	}
	t.cancel()
	<-t.done
	t.cancel = nil
	t.done = nil

	t.mu.Lock()
	t.resetLocked()
	t.target = nil
	t.mu.Unlock()
}

func (t *Tracker) resetLocked() {
	t.state = State{Phase: Idle}
	t.dwellStart = time.Time{}
	t.lastPropagated = time.Time{}
	t.eligibleSent = false
}

func (t *Tracker) run(ctx context.Context, events <-chan Event, h Handlers, done chan struct{}) {
	defer close(done)

	var timeout <-chan time.Time
	var timer *time.Timer
	if t.cfg.AcquireTimeout > 0 {
		timer = time.NewTimer(t.cfg.AcquireTimeout)
		defer timer.Stop()
		timeout = timer.C
	}

	for {
		select {
		case <-ctx.Done():
			return

		case ev, ok := <-events:
			if !ok {
				return
			}
			if ev.Err != nil {
				h.emitError(classify(ev.Err))
				continue
			}
			if timer != nil {
				timer.Reset(t.cfg.AcquireTimeout)
			}
			st, propagate, eligible := t.process(ev.Position)
			if propagate {
				h.emitUpdate(st)
			}
			if eligible {
				h.emitEligible(st)
			}

		case <-timeout:
			h.emitError(Timeout(errNoFix))
			timer.Reset(t.cfg.AcquireTimeout)
		}
	}
}

func (h Handlers) emitUpdate(s State) {
	if h.OnUpdate != nil {
		h.OnUpdate(s)
	}
}

func (h Handlers) emitEligible(s State) {
	if h.OnEligible != nil {
		h.OnEligible(s)
	}
}

func (h Handlers) emitError(err error) {
	if h.OnError != nil {
		h.OnError(err)
	}
}
