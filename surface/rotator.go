// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package surface

// Role names what a slot is currently used for.
type Role int

const (
	// RoleRender is the slot the decoder is drawing into.
	RoleRender Role = iota
	// RoleSwap is the most recently completed frame not yet taken by the
	// presenter.
	RoleSwap
	// RoleDisplay is the slot last handed to the presenter.
	RoleDisplay
)

// String returns the role name.
func (r Role) String() string {
	switch r {
	case RoleRender:
		return "render"
	case RoleSwap:
		return "swap"
	case RoleDisplay:
		return "display"
	default:
		return "unknown"
	}
}

// SlotCount is the number of surfaces in a set.
const SlotCount = 3

// Rotator assigns the three roles to slot indices and implements the
// triple-buffer exchanges. It is not safe for concurrent use; Set guards it
// with its output lock.
type Rotator struct {
	slots     [SlotCount]int
	available bool
	shown     bool

	completed uint64
	presented uint64
	dropped   uint64
}

// NewRotator returns a rotator with render=0, swap=1, display=2.
func NewRotator() Rotator {
	return Rotator{slots: [SlotCount]int{0, 1, 2}}
}

// Slot returns the slot index holding role r.
func (r *Rotator) Slot(role Role) int { return r.slots[role] }

// Roles returns the slot index for each role, indexed by Role.
func (r *Rotator) Roles() [SlotCount]int { return r.slots }

// Complete marks the render slot as a finished frame by exchanging render and
// swap. A completed frame the presenter never fetched is counted as dropped.
func (r *Rotator) Complete() {
	r.slots[RoleRender], r.slots[RoleSwap] = r.slots[RoleSwap], r.slots[RoleRender]
	if r.available {
		r.dropped++
	}
	r.available = true
	r.completed++
}

// Fetch exchanges swap and display if a new frame is available and returns
// the display slot. Before any frame has been shown it returns -1.
func (r *Rotator) Fetch() (slot int, updated bool) {
	if r.available {
		r.slots[RoleSwap], r.slots[RoleDisplay] = r.slots[RoleDisplay], r.slots[RoleSwap]
		r.available = false
		r.shown = true
		r.presented++
		return r.slots[RoleDisplay], true
	}
	if !r.shown {
		return -1, false
	}
	return r.slots[RoleDisplay], false
}

// Available reports whether a completed frame is waiting for Fetch.
func (r *Rotator) Available() bool { return r.available }

// Reset forgets all frames and restores the initial assignment. Counters are
// kept.
func (r *Rotator) Reset() {
	r.slots = [SlotCount]int{0, 1, 2}
	r.available = false
	r.shown = false
}

// Valid reports whether the roles form a permutation of the slot indices.
func (r *Rotator) Valid() bool {
	var seen [SlotCount]bool
	for _, s := range r.slots {
		if s < 0 || s >= SlotCount || seen[s] {
			return false
		}
		seen[s] = true
	}
	return true
}

// Counters returns frames completed, presented and dropped.
func (r *Rotator) Counters() (completed, presented, dropped uint64) {
	return r.completed, r.presented, r.dropped
}
