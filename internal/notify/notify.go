// Package notify implements the one-shot per-vendor notification slot
// described by the error taxonomy: a vendor-library initialization failure
// (class 3) is stored once and surfaced as a single user-visible
// notification per process lifetime, never repeated on subsequent polls.
package notify

import (
	"sync"

	"github.com/all-smi/all-smi/internal/log"
)

// slot holds the idempotency flag and last message for one vendor.
type slot struct {
	once    sync.Once
	mu      sync.RWMutex
	message string
	fired   bool
}

// Registry tracks one slot per vendor name.
type Registry struct {
	mu    sync.Mutex
	slots map[string]*slot
}

// NewRegistry creates an empty notification registry.
func NewRegistry() *Registry {
	return &Registry{slots: make(map[string]*slot)}
}

func (r *Registry) slotFor(vendor string) *slot {
	r.mu.Lock()
	defer r.mu.Unlock()

	s, ok := r.slots[vendor]
	if !ok {
		s = &slot{}
		r.slots[vendor] = s
	}
	return s
}

// Once records message for vendor and logs it exactly once per process
// lifetime; subsequent calls for the same vendor are silently dropped.
func (r *Registry) Once(vendor, message string) {
	s := r.slotFor(vendor)
	s.once.Do(func() {
		s.mu.Lock()
		s.message = message
		s.fired = true
		s.mu.Unlock()
		log.Warnf("%s: %s", vendor, message)
	})
}

// Fired reports whether a notification has already been recorded for vendor.
func (r *Registry) Fired(vendor string) bool {
	s := r.slotFor(vendor)
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.fired
}

// Message returns the stored message for vendor, if any.
func (r *Registry) Message(vendor string) (string, bool) {
	s := r.slotFor(vendor)
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.message, s.fired
}

// Default is the process-wide registry used by readers that do not carry
// their own Registry instance.
var Default = NewRegistry()
