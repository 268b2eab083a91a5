package framebridge

import (
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gogpu/framebridge/backend"
	"github.com/gogpu/framebridge/decoder"
	"github.com/gogpu/framebridge/surface"
	"github.com/gogpu/gpucontext"
	"github.com/hashicorp/go-multierror"
)

// Player connects one decoder instance to the host presenter. It owns the
// decode device and the shared surface set; the presentation device is
// borrowed.
//
// Locks are taken in the order drawMu, devMu, then the surface set's
// output lock.
// cfgMu is a leaf. reportMu is held across the decoder's report function,
// so clearing the function waits for a call in flight; no other lock is
// taken under it.
type Player struct {
	id           uintptr
	dec          decoder.Decoder
	maxDimension uint32

	gate     *hookGate
	disposed atomic.Bool
	playing  atomic.Bool

	devMu       sync.RWMutex
	dev         backend.Device
	set         *surface.Set
	backendName string

	cfgMu      sync.Mutex
	colorSpace ColorSpace
	bitDepth   BitDepth
	negotiated backend.Descriptor
	output     decoder.OutputConfig

	reportMu  sync.Mutex
	report    decoder.ReportFunc
	requested [2]uint32
	reported  [2]uint32

	drawMu  sync.Mutex
	depth   int
	drawSet *surface.Set

	swaps       atomic.Uint64
	reentrant   atomic.Uint64
	unsupported atomic.Uint64
}

func newPlayer(dec decoder.Decoder, o *options, cs ColorSpace) *Player {
	return &Player{
		id:           dec.ID(),
		dec:          dec,
		maxDimension: o.maxDimension,
		gate:         newHookGate(),
		colorSpace:   cs,
		bitDepth:     o.bitDepth,
	}
}

// ID returns the decoder identity the player is keyed by.
func (p *Player) ID() uintptr { return p.id }

// Disposed reports whether release has started.
func (p *Player) Disposed() bool { return p.disposed.Load() }

// Playing reports whether the decoder is between Setup and Cleanup.
func (p *Player) Playing() bool { return p.playing.Load() }

// SetColorSpace sets the transfer function used on the next negotiation.
func (p *Player) SetColorSpace(cs ColorSpace) {
	p.cfgMu.Lock()
	p.colorSpace = cs
	p.cfgMu.Unlock()
}

// SetBitDepth sets the surface precision used on the next negotiation.
func (p *Player) SetBitDepth(d BitDepth) error {
	if !d.Valid() {
		p.unsupported.Add(1)
		return fmt.Errorf("%w: bit depth %d", ErrUnsupportedRequest, d)
	}
	p.cfgMu.Lock()
	p.bitDepth = d
	p.cfgMu.Unlock()
	return nil
}

// surfaces returns the current surface set, or nil without a device.
func (p *Player) surfaces() *surface.Set {
	p.devMu.RLock()
	defer p.devMu.RUnlock()
	return p.set
}

func (p *Player) device() backend.Device {
	p.devMu.RLock()
	defer p.devMu.RUnlock()
	return p.dev
}

// Fetch returns the surface to present and whether it holds a new frame.
// It returns the zero Handle for a degenerate size or a player that is not
// playing. A size differing from the negotiated one is reported to the
// decoder.
func (p *Player) Fetch(width, height uint32) (backend.Handle, bool) {
	if p.disposed.Load() || width == 0 || height == 0 || !p.playing.Load() {
		return backend.Handle{}, false
	}
	set := p.surfaces()
	if set == nil {
		return backend.Handle{}, false
	}
	h, updated := set.Fetch()
	p.requestSize(width, height)
	return h, updated
}

// requestSize records the host's requested size and reports it when it
// differs from the negotiated one.
func (p *Player) requestSize(width, height uint32) {
	if width > p.maxDimension || height > p.maxDimension {
		slogger().Warn("framebridge: requested size out of bounds",
			"player", p.id, "width", width, "height", height, "max", p.maxDimension)
		return
	}
	p.reportMu.Lock()
	p.requested = [2]uint32{width, height}
	p.reportMu.Unlock()

	p.cfgMu.Lock()
	neg := p.negotiated
	p.cfgMu.Unlock()
	if neg.Width == width && neg.Height == height {
		return
	}
	p.reportSize(width, height)
}

// reportSize invokes the decoder's report function once per distinct size.
func (p *Player) reportSize(width, height uint32) {
	p.reportMu.Lock()
	defer p.reportMu.Unlock()
	p.reportLocked(width, height)
}

// reportLocked calls the report function with reportMu held. The decoder
// may not be called back once SetResizeCallback(nil), Cleanup or release
// has returned.
func (p *Player) reportLocked(width, height uint32) {
	size := [2]uint32{width, height}
	if p.report == nil || p.reported == size {
		return
	}
	p.reported = size
	slogger().Debug("framebridge: reporting size", "player", p.id, "width", width, "height", height)
	p.report(width, height)
}

// clearReport drops the report function, waiting for a call in flight.
func (p *Player) clearReport() {
	p.reportMu.Lock()
	p.report = nil
	p.reported = [2]uint32{}
	p.reportMu.Unlock()
}

// openDevice opens the decode device if the player has none. Surfaces the
// decoder had negotiated before a shutdown are allocated again.
func (p *Player) openDevice(b backend.Backend, presentation gpucontext.DeviceProvider) error {
	p.devMu.Lock()
	if p.disposed.Load() {
		p.devMu.Unlock()
		return ErrInvalidHandle
	}
	if p.dev != nil {
		p.devMu.Unlock()
		return nil
	}
	dev, err := b.Open(presentation)
	if err != nil {
		p.devMu.Unlock()
		return fmt.Errorf("%w: backend %s: %w", ErrDeviceUnavailable, b.Name(), err)
	}
	set := surface.NewSet(dev, fmt.Sprintf("player_%x", p.id))
	p.dev, p.set, p.backendName = dev, set, b.Name()
	p.devMu.Unlock()

	slogger().Info("framebridge: decode device opened", "player", p.id, "backend", b.Name())

	p.cfgMu.Lock()
	neg := p.negotiated
	p.cfgMu.Unlock()
	if neg.Width != 0 && neg.Height != 0 {
		if err := set.Allocate(neg); err != nil {
			slogger().Warn("framebridge: restoring surfaces failed", "player", p.id, "err", err)
		}
	}
	return nil
}

// closeDevice releases the surfaces and the decode device. It is safe to
// call without a device.
func (p *Player) closeDevice() error {
	p.devMu.Lock()
	dev, set := p.dev, p.set
	p.dev, p.set = nil, nil
	p.devMu.Unlock()
	if dev == nil {
		return nil
	}

	var result *multierror.Error
	if err := set.Close(); err != nil {
		result = multierror.Append(result, fmt.Errorf("release surfaces: %w", err))
	}
	if err := dev.Close(); err != nil {
		result = multierror.Append(result, fmt.Errorf("close device: %w", err))
	}
	slogger().Info("framebridge: decode device closed", "player", p.id)
	return result.ErrorOrNil()
}

// release detaches the decoder, waits up to timeout for hooks in flight and
// frees every resource. Only the first call does anything.
func (p *Player) release(timeout time.Duration) error {
	if !p.disposed.CompareAndSwap(false, true) {
		return nil
	}

	var result *multierror.Error
	if err := p.dec.Detach(); err != nil {
		result = multierror.Append(result, fmt.Errorf("detach decoder: %w", err))
	}
	if !p.gate.close(timeout) {
		slogger().Warn("framebridge: releasing with hooks in flight",
			"player", p.id, "inflight", p.gate.inFlight(), "err", ErrReleaseTimeout)
	}
	p.playing.Store(false)

	p.clearReport()

	if err := p.closeDevice(); err != nil {
		result = multierror.Append(result, err)
	}
	return result.ErrorOrNil()
}

// handleReset forwards a presentation reset to devices that listen for it.
func (p *Player) handleReset(after bool) {
	dev := p.device()
	if rl, ok := dev.(backend.ResetListener); ok {
		rl.PresentationReset(after)
	}
	slogger().Debug("framebridge: presentation reset", "player", p.id, "after", after)
}

// Stats is a snapshot of a player.
type Stats struct {
	surface.Stats

	ID                   uintptr
	Backend              string
	Playing              bool
	ColorSpace           ColorSpace
	BitDepth             BitDepth
	Output               decoder.OutputConfig
	Swaps                uint64
	WriteParity          bool
	ReentrancyViolations uint64
	UnsupportedRequests  uint64
	HooksInFlight        int
}

// Stats returns a snapshot of the player.
func (p *Player) Stats() Stats {
	st := Stats{
		ID:                   p.id,
		Playing:              p.playing.Load(),
		Swaps:                p.swaps.Load(),
		ReentrancyViolations: p.reentrant.Load(),
		UnsupportedRequests:  p.unsupported.Load(),
		HooksInFlight:        p.gate.inFlight(),
	}
	st.WriteParity = st.Swaps%2 == 1

	p.devMu.RLock()
	set := p.set
	st.Backend = p.backendName
	p.devMu.RUnlock()
	if set != nil {
		st.Stats = set.Stats()
	}

	p.cfgMu.Lock()
	st.ColorSpace, st.BitDepth, st.Output = p.colorSpace, p.bitDepth, p.output
	p.cfgMu.Unlock()
	return st
}

// hooks returns the callback table handed to the decoder.
func (p *Player) hooks() decoder.Callbacks { return callbackAdapter{p: p} }
