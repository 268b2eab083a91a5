package framebridge

import "sync"

// Registry maps decoder identities to their players. A player that has
// started releasing is no longer visible through Get or Each, even while
// its teardown is still running.
type Registry struct {
	mu      sync.RWMutex
	players map[uintptr]*Player
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{players: make(map[uintptr]*Player)}
}

// Insert adds p. It returns false if the identity is already taken.
func (r *Registry) Insert(p *Player) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.players[p.id]; ok {
		return false
	}
	r.players[p.id] = p
	return true
}

// Remove deletes p if it is still the player registered under its identity.
func (r *Registry) Remove(p *Player) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.players[p.id] == p {
		delete(r.players, p.id)
	}
}

// Get returns the live player for id.
func (r *Registry) Get(id uintptr) (*Player, bool) {
	r.mu.RLock()
	p, ok := r.players[id]
	r.mu.RUnlock()
	if !ok || p.Disposed() {
		return nil, false
	}
	return p, true
}

// Each calls fn for every live player, in no particular order. fn runs
// without the registry lock held.
func (r *Registry) Each(fn func(*Player)) {
	r.mu.RLock()
	list := make([]*Player, 0, len(r.players))
	for _, p := range r.players {
		list = append(list, p)
	}
	r.mu.RUnlock()

	for _, p := range list {
		if !p.Disposed() {
			fn(p)
		}
	}
}

// Len returns the number of live players.
func (r *Registry) Len() int {
	n := 0
	r.Each(func(*Player) { n++ })
	return n
}
