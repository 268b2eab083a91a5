package framebridge

import (
	"fmt"
	"sync"

	"github.com/gogpu/framebridge/backend"
	"github.com/gogpu/framebridge/decoder"
	"github.com/gogpu/gpucontext"
	"github.com/hashicorp/go-multierror"
)

// Bridge connects decoder players to one host. It is safe for concurrent
// use.
type Bridge struct {
	opts    options
	players *Registry

	// mu serializes the device lifecycle with player creation.
	mu           sync.Mutex
	host         Host
	state        DeviceState
	backend      backend.Backend
	presentation gpucontext.DeviceProvider
	renderer     backend.Renderer
	pendingInit  bool

	csMu       sync.Mutex
	colorSpace ColorSpace
}

// New creates a bridge with no host loaded.
func New(opts ...Option) *Bridge {
	o := defaultOptions()
	for _, opt := range opts {
		opt(&o)
	}
	return &Bridge{
		opts:       o,
		players:    NewRegistry(),
		colorSpace: o.colorSpace,
	}
}

// Load attaches the bridge to host and initializes the device. Hosts that
// implement EventSource get ProcessDeviceEvent registered as their device
// event callback.
func (b *Bridge) Load(host Host) error {
	if host == nil {
		return ErrNoPresentationDevice
	}
	b.mu.Lock()
	b.host = host
	b.mu.Unlock()

	if es, ok := host.(EventSource); ok {
		es.RegisterDeviceEventCallback(func(ev DeviceEvent) {
			_ = b.ProcessDeviceEvent(ev)
		})
	}
	slogger().Info("framebridge: host loaded", "renderer", host.Renderer().String())
	// Some hosts deliver Initialize from inside the registration call.
	if b.State() == StateReady {
		return nil
	}
	return b.ProcessDeviceEvent(DeviceEventInitialize)
}

// Unload releases every player, shuts the device down and detaches from
// the host.
func (b *Bridge) Unload() error {
	var result *multierror.Error
	b.players.Each(func(p *Player) {
		result = multierror.Append(result, b.ReleasePlayer(p.id))
	})
	result = multierror.Append(result, b.ProcessDeviceEvent(DeviceEventShutdown))

	b.mu.Lock()
	host := b.host
	b.host = nil
	b.mu.Unlock()
	if es, ok := host.(EventSource); ok {
		es.UnregisterDeviceEventCallback()
	}
	slogger().Info("framebridge: host unloaded")
	return result.ErrorOrNil()
}

// State returns the device lifecycle state.
func (b *Bridge) State() DeviceState {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.state
}

// BackendName returns the selected backend, or "" when not Ready.
func (b *Bridge) BackendName() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.backend == nil {
		return ""
	}
	return b.backend.Name()
}

// CreatePlayer opens a decode device for dec and attaches the hook table.
// It fails with ErrNoPresentationDevice until the device is Ready.
func (b *Bridge) CreatePlayer(dec decoder.Decoder) (*Player, error) {
	if dec == nil {
		return nil, ErrInvalidHandle
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	if b.state != StateReady {
		slogger().Warn("framebridge: create player before device is ready",
			"decoder", dec.ID(), "state", b.state.String(), "err", ErrNoPresentationDevice)
		return nil, ErrNoPresentationDevice
	}
	if _, ok := b.players.Get(dec.ID()); ok {
		return nil, fmt.Errorf("%w: %x", ErrPlayerExists, dec.ID())
	}

	p := newPlayer(dec, &b.opts, b.currentColorSpace())
	if err := p.openDevice(b.backend, b.presentation); err != nil {
		slogger().Warn("framebridge: create player failed", "decoder", dec.ID(), "err", err)
		return nil, err
	}
	if !b.players.Insert(p) {
		p.disposed.Store(true)
		_ = p.closeDevice()
		return nil, fmt.Errorf("%w: %x", ErrPlayerExists, dec.ID())
	}
	if err := dec.Attach(p.hooks()); err != nil {
		p.disposed.Store(true)
		b.players.Remove(p)
		_ = p.closeDevice()
		return nil, fmt.Errorf("framebridge: attach decoder %x: %w", dec.ID(), err)
	}

	slogger().Info("framebridge: player created", "player", p.id, "backend", b.backend.Name())
	return p, nil
}

// ReleasePlayer detaches the decoder, waits for its hooks in flight and
// frees the player's surfaces and device. Unknown or released identities
// are ignored.
func (b *Bridge) ReleasePlayer(id uintptr) error {
	p, ok := b.players.Get(id)
	if !ok {
		slogger().Debug("framebridge: release of unknown player", "player", id, "err", ErrInvalidHandle)
		return nil
	}
	err := p.release(b.opts.releaseTimeout)
	b.players.Remove(p)
	if err != nil {
		slogger().Warn("framebridge: player released with errors", "player", id, "err", err)
		return err
	}
	slogger().Info("framebridge: player released", "player", id)
	return nil
}

// Player returns the live player for id.
func (b *Bridge) Player(id uintptr) (*Player, bool) {
	return b.players.Get(id)
}

// Players returns the player registry.
func (b *Bridge) Players() *Registry { return b.players }

// FetchFrame returns the handle to present for player id and whether it is
// a new frame. Unknown players yield the zero Handle.
func (b *Bridge) FetchFrame(id uintptr, width, height uint32) (backend.Handle, bool) {
	p, ok := b.players.Get(id)
	if !ok {
		slogger().Debug("framebridge: fetch for unknown player", "player", id)
		return backend.Handle{}, false
	}
	return p.Fetch(width, height)
}

// SetColorSpace sets the color space for every current and future player.
// It takes effect on each decoder's next negotiation.
func (b *Bridge) SetColorSpace(cs ColorSpace) {
	b.csMu.Lock()
	b.colorSpace = cs
	b.csMu.Unlock()
	b.players.Each(func(p *Player) { p.SetColorSpace(cs) })
}

func (b *Bridge) currentColorSpace() ColorSpace {
	b.csMu.Lock()
	defer b.csMu.Unlock()
	return b.colorSpace
}

// SetBitDepth sets the surface precision of player id for its next
// negotiation.
func (b *Bridge) SetBitDepth(id uintptr, d BitDepth) error {
	p, ok := b.players.Get(id)
	if !ok {
		slogger().Warn("framebridge: set bit depth for unknown player", "player", id)
		return ErrInvalidHandle
	}
	return p.SetBitDepth(d)
}

// HandleRenderEvent runs on the host's render thread. It retries an
// Initialize that could not resolve the host renderer earlier.
func (b *Bridge) HandleRenderEvent(eventID int) {
	b.mu.Lock()
	pending := b.pendingInit
	b.mu.Unlock()

	if pending {
		slogger().Debug("framebridge: retrying initialize from render thread", "event", eventID)
		_ = b.ProcessDeviceEvent(DeviceEventInitialize)
	}
}
