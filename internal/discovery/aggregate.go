package discovery

import (
	"slices"
	"sync"
	"time"
)

// aggregate collects announcements from all listeners of one search and
// promotes an address once it has answered for every required service
// type. Promotion and removal from the pending set happen under the same
// lock, so an address is reported at most once per search.
type aggregate struct {
	mu       sync.Mutex
	required []string
	pending  map[string]map[string]string
	promoted map[string]bool
	ready    []*Locations

	// notify has capacity one; a send means ready may be non-empty.
	notify chan struct{}
}

// newAggregate creates an aggregate. An empty required list promotes an
// address on its first announcement.
func newAggregate(required []string) *aggregate {
	return &aggregate{
		required: required,
		pending:  make(map[string]map[string]string),
		promoted: make(map[string]bool),
		notify:   make(chan struct{}, 1),
	}
}

// observe records one announcement and reports whether it completed the
// address. Service types outside the required set are ignored in full mode.
func (a *aggregate) observe(addr, serviceType, location string) bool {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.promoted[addr] {
		return false
	}

	if len(a.required) == 0 {
		a.promoteLocked(addr, map[string]string{serviceType: location})
		return true
	}

	if !slices.Contains(a.required, serviceType) {
		return false
	}

	seen := a.pending[addr]
	if seen == nil {
		seen = make(map[string]string, len(a.required))
		a.pending[addr] = seen
	}
	seen[serviceType] = location

	if len(seen) < len(a.required) {
		return false
	}

	delete(a.pending, addr)
	a.promoteLocked(addr, seen)
	return true
}

func (a *aggregate) promoteLocked(addr string, services map[string]string) {
	a.promoted[addr] = true
	a.ready = append(a.ready, &Locations{
		Address:      addr,
		Services:     services,
		DiscoveredAt: time.Now(),
	})
	select {
	case a.notify <- struct{}{}:
	default:
	}
}

// missing returns the required types not yet seen for addr, in search
// order. It returns nil once the address is promoted.
func (a *aggregate) missing(addr string) []string {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.promoted[addr] {
		return nil
	}
	seen := a.pending[addr]
	out := make([]string, 0, len(a.required))
	for _, st := range a.required {
		if _, ok := seen[st]; !ok {
			out = append(out, st)
		}
	}
	return out
}

// outstanding returns the union of the types still missing for every
// pending address, in search order. It returns nil while no address is
// pending.
func (a *aggregate) outstanding() []string {
	a.mu.Lock()
	defer a.mu.Unlock()

	if len(a.pending) == 0 {
		return nil
	}
	var out []string
	for _, st := range a.required {
		for _, seen := range a.pending {
			if _, ok := seen[st]; !ok {
				out = append(out, st)
				break
			}
		}
	}
	return out
}

// drain hands over every promoted entry not yet consumed.
func (a *aggregate) drain() []*Locations {
	a.mu.Lock()
	defer a.mu.Unlock()

	out := a.ready
	a.ready = nil
	return out
}
