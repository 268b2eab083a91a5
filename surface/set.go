// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package surface

import (
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/gogpu/framebridge/backend"
	"github.com/hashicorp/go-multierror"
)

// pair links a decode-side surface to its presentation-side resource. When
// decode and present share a device, present is the surface itself.
type pair struct {
	surface backend.Surface
	present backend.Presentable
	handle  backend.Handle
	// imported is true when present was created by an Importer and must be
	// released separately.
	imported bool
}

// generation is one complete set of SlotCount surfaces with identical shape.
// A generation lives while it is current, shown, or bound for rendering.
type generation struct {
	id    uint64
	desc  backend.Descriptor
	pairs [SlotCount]pair
	refs  int
	// drawn is set when a render session bound this generation's render
	// slot after the last Complete.
	drawn bool
}

// Stats is a snapshot of a Set.
type Stats struct {
	Generation         uint64
	Desc               backend.Descriptor
	Roles              [SlotCount]int
	FramesCompleted    uint64
	FramesPresented    uint64
	FramesDropped      uint64
	Allocations        uint64
	AllocationFailures uint64
	LiveGenerations    int64
	Rendering          bool
}

// Set owns the three shared surfaces of one player and the role rotation
// over them.
//
// A single mutex, the output lock, guards the role permutation and every
// read of the displayed surface. It is held only for role exchanges and
// handle reads: surface creation, target binding and destruction all run
// outside it. Reallocation builds a complete new generation first and swaps
// it in under the lock, so a reader sees either the old set or the new one.
// Superseded generations are destroyed once the presenter and the decoder
// have both moved off them.
type Set struct {
	dev   backend.Device
	label string

	mu          sync.Mutex
	rot         Rotator
	cur         *generation
	shown       *generation
	shownHandle backend.Handle
	rendering   *generation
	closed      bool

	nextGen     uint64
	allocations uint64
	failures    uint64

	live atomic.Int64
}

// NewSet creates an empty set that allocates from dev. The label prefixes
// backend resource labels.
func NewSet(dev backend.Device, label string) *Set {
	return &Set{dev: dev, label: label, rot: NewRotator()}
}

// Allocate replaces all surfaces with new ones described by desc. If the
// current surfaces already have that shape it does nothing. On failure the
// previous surfaces stay in place and the error is an *AllocationError.
func (s *Set) Allocate(desc backend.Descriptor) error {
	if err := desc.Validate(); err != nil {
		s.countFailure()
		return &AllocationError{Desc: desc, Slot: -1, Err: err}
	}

	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return &AllocationError{Desc: desc, Slot: -1, Err: ErrClosed}
	}
	if s.cur != nil && s.cur.desc.SameShape(desc) {
		s.mu.Unlock()
		return nil
	}
	s.nextGen++
	id := s.nextGen
	s.mu.Unlock()

	g, err := s.build(id, desc)
	if err != nil {
		s.countFailure()
		slogger().Warn("surface: allocation failed", "set", s.label, "width", desc.Width, "height", desc.Height, "err", err)
		return err
	}

	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		s.destroy(g)
		return &AllocationError{Desc: desc, Slot: -1, Err: ErrClosed}
	}
	old := s.cur
	g.refs = 1
	s.cur = g
	s.rot.Reset()
	s.allocations++
	dead := s.unref(nil, old)
	s.mu.Unlock()

	slogger().Debug("surface: generation allocated", "set", s.label, "generation", id,
		"width", desc.Width, "height", desc.Height, "format", desc.Format)
	return s.destroyAll(dead)
}

func (s *Set) countFailure() {
	s.mu.Lock()
	s.failures++
	s.mu.Unlock()
}

// build creates every surface of a generation. It never touches Set state.
func (s *Set) build(id uint64, desc backend.Descriptor) (*generation, error) {
	g := &generation{id: id, desc: desc}
	s.live.Add(1)
	importer := s.dev.Importer()

	for i := range g.pairs {
		d := desc
		d.Label = fmt.Sprintf("%s_g%d_s%d", s.label, id, i)

		surf, err := s.dev.Allocate(d)
		if err != nil {
			s.destroy(g)
			return nil, &AllocationError{Desc: desc, Slot: i, Err: err}
		}
		g.pairs[i].surface = surf

		if err := linkPresentable(&g.pairs[i], importer, d); err != nil {
			s.destroy(g)
			return nil, &AllocationError{Desc: desc, Slot: i, Err: err}
		}
	}
	return g, nil
}

func linkPresentable(p *pair, importer backend.Importer, desc backend.Descriptor) error {
	if importer == nil {
		present, ok := p.surface.(backend.Presentable)
		if !ok {
			return fmt.Errorf("%w: surface is not presentable", backend.ErrExportUnsupported)
		}
		p.present = present
		p.handle = present.Handle()
		return nil
	}

	exporter, ok := p.surface.(backend.Exporter)
	if !ok {
		return backend.ErrExportUnsupported
	}
	h, err := exporter.Export()
	if err != nil {
		return fmt.Errorf("export: %w", err)
	}
	present, err := importer.Import(h, desc)
	if err != nil {
		return fmt.Errorf("import: %w", err)
	}
	p.present = present
	p.imported = true
	p.handle = present.Handle()
	return nil
}

// destroy releases every resource of g. Partially built generations are
// fine.
func (s *Set) destroy(g *generation) error {
	var result *multierror.Error
	for i := range g.pairs {
		p := &g.pairs[i]
		if p.imported && p.present != nil {
			result = multierror.Append(result, p.present.Release())
		}
		if p.surface != nil {
			result = multierror.Append(result, p.surface.Release())
		}
		*p = pair{}
	}
	s.live.Add(-1)
	slogger().Debug("surface: generation destroyed", "set", s.label, "generation", g.id)
	return result.ErrorOrNil()
}

func (s *Set) destroyAll(gens []*generation) error {
	var result *multierror.Error
	for _, g := range gens {
		result = multierror.Append(result, s.destroy(g))
	}
	if err := result.ErrorOrNil(); err != nil {
		slogger().Warn("surface: release failed", "set", s.label, "err", err)
		return err
	}
	return nil
}

// unref drops one reference from g and appends it to dead when it reaches
// zero. Callers hold s.mu.
func (s *Set) unref(dead []*generation, g *generation) []*generation {
	if g == nil {
		return dead
	}
	g.refs--
	if g.refs == 0 {
		dead = append(dead, g)
	}
	return dead
}

// BeginRender binds the render slot as the decoder's draw target and clears
// it. The generation stays alive until EndRender even if the set is
// reallocated or released meanwhile.
func (s *Set) BeginRender() (backend.Target, error) {
	s.mu.Lock()
	switch {
	case s.closed:
		s.mu.Unlock()
		return backend.Target{}, ErrClosed
	case s.cur == nil:
		s.mu.Unlock()
		return backend.Target{}, ErrNoSurfaces
	case s.rendering != nil:
		s.mu.Unlock()
		return backend.Target{}, ErrRenderActive
	}
	g := s.cur
	g.refs++
	s.rendering = g
	surf := g.pairs[s.rot.Slot(RoleRender)].surface
	s.mu.Unlock()

	target, err := surf.BindTarget()
	if err != nil {
		s.EndRender()
		return backend.Target{}, fmt.Errorf("surface: bind target: %w", err)
	}
	s.mu.Lock()
	g.drawn = true
	s.mu.Unlock()
	return target, nil
}

// EndRender closes the render session opened by BeginRender. It is a no-op
// without an open session.
func (s *Set) EndRender() {
	s.mu.Lock()
	g := s.rendering
	s.rendering = nil
	dead := s.unref(nil, g)
	s.mu.Unlock()
	_ = s.destroyAll(dead)
}

// Complete publishes the render slot as the newest frame. It returns false
// when there are no surfaces, when the open render session targets a
// generation that has since been replaced, or when the current render slot
// was not drawn since the last Complete; that frame is dropped.
func (s *Set) Complete() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.cur == nil {
		return false
	}
	if (s.rendering != nil && s.rendering != s.cur) || !s.cur.drawn {
		s.rot.dropped++
		return false
	}
	s.cur.drawn = false
	s.rot.Complete()
	return true
}

// Fetch returns the handle the presenter should show and whether it is a
// new frame. Until a frame completes on new surfaces it keeps returning the
// last shown handle; before any frame it returns the zero Handle.
func (s *Set) Fetch() (backend.Handle, bool) {
	s.mu.Lock()
	if s.cur == nil {
		h := s.shownHandle
		s.mu.Unlock()
		return h, false
	}

	slot, updated := s.rot.Fetch()
	if !updated {
		h := s.shownHandle
		s.mu.Unlock()
		return h, false
	}
	var dead []*generation
	if s.shown != s.cur {
		s.cur.refs++
		dead = s.unref(dead, s.shown)
		s.shown = s.cur
	}
	s.shownHandle = s.cur.pairs[slot].handle
	h := s.shownHandle
	s.mu.Unlock()

	// The previous generation is only freed once the presenter has moved to
	// the new one.
	_ = s.destroyAll(dead)
	return h, true
}

// Descriptor returns the shape of the current surfaces.
func (s *Set) Descriptor() (backend.Descriptor, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.cur == nil {
		return backend.Descriptor{}, false
	}
	return s.cur.desc, true
}

// Release drops all surfaces. An open render session keeps its generation
// until EndRender. The set can be allocated again; releasing an empty set
// is a no-op.
func (s *Set) Release() error {
	s.mu.Lock()
	dead := s.releaseLocked()
	s.mu.Unlock()
	return s.destroyAll(dead)
}

func (s *Set) releaseLocked() []*generation {
	var dead []*generation
	dead = s.unref(dead, s.cur)
	dead = s.unref(dead, s.shown)
	s.cur, s.shown = nil, nil
	s.shownHandle = backend.Handle{}
	s.rot.Reset()
	return dead
}

// Close releases all surfaces and refuses further allocation. The device is
// not closed; it belongs to the caller.
func (s *Set) Close() error {
	s.mu.Lock()
	s.closed = true
	dead := s.releaseLocked()
	s.mu.Unlock()
	return s.destroyAll(dead)
}

// Stats returns a snapshot of the set.
func (s *Set) Stats() Stats {
	s.mu.Lock()
	defer s.mu.Unlock()
	st := Stats{
		Roles:              s.rot.Roles(),
		Allocations:        s.allocations,
		AllocationFailures: s.failures,
		LiveGenerations:    s.live.Load(),
		Rendering:          s.rendering != nil,
	}
	st.FramesCompleted, st.FramesPresented, st.FramesDropped = s.rot.Counters()
	if s.cur != nil {
		st.Generation = s.cur.id
		st.Desc = s.cur.desc
	}
	return st
}
