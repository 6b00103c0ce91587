package timer

import (
	"time"

	"go.uber.org/zap"

	"github.com/wippyai/wasm-bridge/errors"
	"github.com/wippyai/wasm-bridge/loop"
)

// MinInterval is the shortest interval a timer is armed with. Shorter or
// negative intervals are clamped so a repeating timer cannot spin the loop.
const MinInterval = time.Millisecond

// Kind distinguishes one-shot from repeating timers.
type Kind uint8

const (
	OneShot Kind = iota
	Repeating
)

func (k Kind) String() string {
	if k == Repeating {
		return "repeating"
	}
	return "one-shot"
}

// Timer is one registered timer.
type Timer struct {
	ID       uint64
	Kind     Kind
	Interval time.Duration
	handle   *loop.Handle
}

// FireFunc is invoked on the loop each time a timer fires.
type FireFunc func(id uint64)

// Registry tracks outstanding timers by id. All methods must be called from
// the loop goroutine.
type Registry struct {
	loop   *loop.Loop
	fire   FireFunc
	timers map[uint64]*Timer
	log    *zap.Logger
}

// NewRegistry creates a registry that schedules on l and reports firings to fire.
func NewRegistry(l *loop.Loop, fire FireFunc) *Registry {
	return &Registry{
		loop:   l,
		fire:   fire,
		timers: make(map[uint64]*Timer),
		log:    Logger(),
	}
}

// WithLogger replaces the registry's logger.
func (r *Registry) WithLogger(l *zap.Logger) *Registry {
	if l != nil {
		r.log = l
	}
	return r
}

// Start registers a timer. A duplicate id is reported and the existing timer
// is left untouched.
func (r *Registry) Start(id uint64, interval time.Duration, repeating bool) error {
	if _, exists := r.timers[id]; exists {
		err := errors.DuplicateID(errors.PhaseTimer, "timer", id)
		r.log.Warn("timer start rejected", zap.Uint64("id", id), zap.Error(err))
		return err
	}
	if interval < MinInterval {
		interval = MinInterval
	}

	t := &Timer{ID: id, Interval: interval}
	if repeating {
		t.Kind = Repeating
		t.handle = r.loop.Every(interval, func() { r.fire(id) })
	} else {
		t.handle = r.loop.AfterFunc(interval, func() {
			// The entry may have been replaced after a stop and restart.
			if cur, ok := r.timers[id]; !ok || cur != t {
				return
			}
			delete(r.timers, id)
			r.fire(id)
		})
	}
	r.timers[id] = t
	r.log.Debug("timer started",
		zap.Uint64("id", id),
		zap.Stringer("kind", t.Kind),
		zap.Duration("interval", interval))
	return nil
}

// Stop cancels and removes a timer. Stopping an unknown id is a no-op and
// returns false.
func (r *Registry) Stop(id uint64) bool {
	t, ok := r.timers[id]
	if !ok {
		return false
	}
	t.handle.Cancel()
	delete(r.timers, id)
	r.log.Debug("timer stopped", zap.Uint64("id", id))
	return true
}

// Get returns the timer registered under id.
func (r *Registry) Get(id uint64) (Timer, bool) {
	t, ok := r.timers[id]
	if !ok {
		return Timer{}, false
	}
	return *t, true
}

// Has reports whether id is registered.
func (r *Registry) Has(id uint64) bool {
	_, ok := r.timers[id]
	return ok
}

// Len returns the number of live timers.
func (r *Registry) Len() int {
	return len(r.timers)
}

// StopAll cancels every timer.
func (r *Registry) StopAll() {
	for id, t := range r.timers {
		t.handle.Cancel()
		delete(r.timers, id)
	}
}
