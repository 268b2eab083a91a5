package framebridge

import (
	"fmt"

	"github.com/gogpu/framebridge/backend"
	"github.com/gogpu/gpucontext"
	"github.com/hashicorp/go-multierror"
)

// ProcessDeviceEvent drives the device lifecycle:
//
//	Uninitialized --Initialize--> Ready --Shutdown--> ShuttingDown --> Uninitialized
//
// Initialize selects a backend for the host renderer and opens a decode
// device for every player. If the host cannot name its renderer yet, the
// bridge stays Uninitialized and retries from HandleRenderEvent. A second
// Initialize while Ready is logged and ignored. Reset events are forwarded
// to every player.
//
// The host must not deliver events concurrently with each other; they may
// race freely with decoder hooks and FetchFrame.
func (b *Bridge) ProcessDeviceEvent(ev DeviceEvent) error {
	switch ev {
	case DeviceEventInitialize:
		return b.initialize()
	case DeviceEventShutdown:
		return b.shutdown()
	case DeviceEventBeforeReset, DeviceEventAfterReset:
		after := ev == DeviceEventAfterReset
		b.players.Each(func(p *Player) { p.handleReset(after) })
		slogger().Debug("framebridge: device reset forwarded", "event", ev.String(), "players", b.players.Len())
		return nil
	default:
		slogger().Warn("framebridge: unknown device event", "event", int(ev))
		return fmt.Errorf("%w: device event %d", ErrUnsupportedRequest, int(ev))
	}
}

func (b *Bridge) initialize() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.state == StateReady {
		slogger().Warn("framebridge: initialize while ready", "backend", b.backend.Name(), "err", ErrReentrancy)
		return ErrReentrancy
	}
	if b.host == nil {
		b.pendingInit = true
		slogger().Warn("framebridge: initialize without host", "err", ErrNoPresentationDevice)
		return ErrNoPresentationDevice
	}
	renderer := b.host.Renderer()
	if renderer == backend.RendererNone {
		b.pendingInit = true
		slogger().Warn("framebridge: host renderer not available yet", "err", ErrNoPresentationDevice)
		return ErrNoPresentationDevice
	}
	presentation := b.host.PresentationDevice()

	be, err := b.selectBackend(renderer, presentation)
	if err != nil {
		b.pendingInit = true
		slogger().Warn("framebridge: no backend for renderer", "renderer", renderer.String(), "err", err)
		return fmt.Errorf("%w: %w", ErrDeviceUnavailable, err)
	}

	b.state = StateReady
	b.backend, b.presentation, b.renderer = be, presentation, renderer
	b.pendingInit = false
	slogger().Info("framebridge: device ready", "renderer", renderer.String(), "backend", be.Name())

	b.players.Each(func(p *Player) {
		if err := p.openDevice(be, presentation); err != nil {
			slogger().Warn("framebridge: reopening decode device failed", "player", p.id, "err", err)
		}
	})
	return nil
}

func (b *Bridge) selectBackend(renderer backend.Renderer, presentation gpucontext.DeviceProvider) (backend.Backend, error) {
	if b.opts.backendName != "" {
		return b.opts.registry.SelectByName(b.opts.backendName, renderer, presentation)
	}
	return b.opts.registry.Select(renderer, presentation)
}

func (b *Bridge) shutdown() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.pendingInit = false
	if b.state != StateReady {
		slogger().Debug("framebridge: shutdown while not ready", "state", b.state.String())
		return nil
	}
	b.state = StateShuttingDown

	var result *multierror.Error
	b.players.Each(func(p *Player) {
		if err := p.closeDevice(); err != nil {
			result = multierror.Append(result, fmt.Errorf("player %x: %w", p.id, err))
		}
	})

	b.backend, b.presentation = nil, nil
	b.renderer = backend.RendererNone
	b.state = StateUninitialized
	slogger().Info("framebridge: device shut down")

	if err := result.ErrorOrNil(); err != nil {
		slogger().Warn("framebridge: shutdown release failed", "err", err)
		return err
	}
	return nil
}
