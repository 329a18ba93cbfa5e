// Package autosave implements a coalescing, trailing-edge debounce
// scheduler keyed by entity id. The payload is produced when the timer
// fires, not when the save is requested, so a flush always reflects the
// latest state. Saves for the same key coalesce: while one is in flight a
// new request marks the entry pending and re-runs after, and a cancelled
// key never delivers a stale save for a navigated-away entity.
package autosave

import (
	"log/slog"
	"sync"
	"time"
)

// Sink receives the final payload for a key. Errors are logged, not
// retried; the next edit schedules a fresh save anyway.
type Sink func(key string, payload []byte) error

// Scheduler debounces saves per key.
type Scheduler struct {
	delay time.Duration
	sink  Sink

	mu      sync.Mutex
	entries map[string]*entry
	logger  *slog.Logger
}

type entry struct {
	timer     *time.Timer
	produce   func() []byte
	saving    bool
	pending   bool
	cancelled bool
}

// New creates a scheduler. delay is the trailing-edge debounce window.
func New(delay time.Duration, sink Sink, logger *slog.Logger) *Scheduler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Scheduler{
		delay:   delay,
		sink:    sink,
		entries: map[string]*entry{},
		logger:  logger,
	}
}

// Schedule requests a debounced save for key. produce is called at fire
// time so only the latest state is written; repeated calls within the
// window reset the timer and replace the producer.
func (s *Scheduler) Schedule(key string, produce func() []byte) {
	s.mu.Lock()
	defer s.mu.Unlock()

	e := s.entries[key]
	if e == nil {
		e = &entry{}
		s.entries[key] = e
	}
	e.produce = produce
	e.cancelled = false

	if e.saving {
		// A save is in flight; run again with fresh state once it lands.
		e.pending = true
		return
	}
	if e.timer != nil {
		e.timer.Stop()
	}
	e.timer = time.AfterFunc(s.delay, func() { s.fire(key) })
}

// Cancel drops any scheduled or pending save for key. Used when an entity
// is being torn down so a late flush cannot corrupt its successor.
func (s *Scheduler) Cancel(key string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	e := s.entries[key]
	if e == nil {
		return
	}
	if e.timer != nil {
		e.timer.Stop()
	}
	e.pending = false
	e.cancelled = true
	if !e.saving {
		delete(s.entries, key)
	}
}

// Flush forces an immediate save for key, bypassing the debounce window.
// No-op when nothing is scheduled.
func (s *Scheduler) Flush(key string) {
	s.mu.Lock()
	e := s.entries[key]
	if e == nil || e.saving {
		s.mu.Unlock()
		return
	}
	if e.timer != nil {
		e.timer.Stop()
	}
	s.mu.Unlock()
	s.fire(key)
}

func (s *Scheduler) fire(key string) {
	s.mu.Lock()
	e := s.entries[key]
	if e == nil || e.cancelled || e.saving {
		s.mu.Unlock()
		return
	}
	e.saving = true
	produce := e.produce
	s.mu.Unlock()

	payload := produce()

	if err := s.sink(key, payload); err != nil {
		s.logger.Warn("autosave flush failed", "key", key, "error", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	e.saving = false
	if e.cancelled {
		delete(s.entries, key)
		return
	}
	if e.pending {
		e.pending = false
		e.timer = time.AfterFunc(s.delay, func() { s.fire(key) })
		return
	}
	delete(s.entries, key)
}
