package main

import (
	"errors"
	"fmt"
	"sync"

	"github.com/gogpu/framebridge"
	"github.com/gogpu/framebridge/backend"
	"github.com/gogpu/framebridge/decoder"
	"github.com/gogpu/framebridge/decoder/vlc"
	"github.com/gogpu/framebridge/internal/config"
)

// Status codes returned across the C ABI.
const (
	statusOK                   = 0
	statusNoPresentationDevice = -1
	statusDeviceUnavailable    = -2
	statusUnsupported          = -3
	statusInvalidHandle        = -4
	statusPlayerExists         = -5
	statusAllocation           = -6
	statusInternal             = -99
)

func statusFor(err error) int {
	switch {
	case err == nil:
		return statusOK
	case errors.Is(err, framebridge.ErrNoPresentationDevice):
		return statusNoPresentationDevice
	case errors.Is(err, framebridge.ErrDeviceUnavailable), errors.Is(err, vlc.ErrUnavailable):
		return statusDeviceUnavailable
	case errors.Is(err, framebridge.ErrUnsupportedRequest), errors.Is(err, vlc.ErrUnsupportedEngine):
		return statusUnsupported
	case errors.Is(err, framebridge.ErrInvalidHandle), errors.Is(err, vlc.ErrInvalidPlayer):
		return statusInvalidHandle
	case errors.Is(err, framebridge.ErrPlayerExists):
		return statusPlayerExists
	case errors.Is(err, framebridge.ErrAllocation):
		return statusAllocation
	default:
		return statusInternal
	}
}

// plugin is the process-wide state behind the exported functions.
type plugin struct {
	newDecoder func(mp uintptr, engine vlc.Engine) (decoder.Decoder, error)

	mu     sync.Mutex
	bridge *framebridge.Bridge
	host   *unityHost
	// colorSpace overrides the configured one once the host has set it.
	colorSpace    framebridge.ColorSpace
	colorSpaceSet bool
}

func newPlugin() *plugin {
	return &plugin{
		newDecoder: func(mp uintptr, engine vlc.Engine) (decoder.Decoder, error) {
			m, err := vlc.NewMediaPlayer(mp, engine)
			if err != nil {
				return nil, err
			}
			return m, nil
		},
	}
}

func (p *plugin) current() (*framebridge.Bridge, *unityHost) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.bridge, p.host
}

// load reads the configuration and attaches a new bridge to host.
func (p *plugin) load(host *unityHost) error {
	cfg, err := config.Load()
	if l := cfg.Logger(); l != nil {
		framebridge.SetLogger(l)
		vlc.SetLogger(l)
	}
	if err != nil {
		framebridge.Logger().Warn("framebridge: invalid configuration fields reset to defaults", "err", err)
	}
	if err := vlc.SetPluginSearchPath(cfg.PluginPath); err != nil {
		framebridge.Logger().Warn("framebridge: plugin path not set", "err", err)
	}
	if cfg.LibraryPath != "" {
		vlc.SetLibraryPath(cfg.LibraryPath)
	}

	p.mu.Lock()
	if p.bridge != nil {
		p.mu.Unlock()
		return fmt.Errorf("%w: plugin already loaded", framebridge.ErrReentrancy)
	}
	opts := cfg.Options()
	if p.colorSpaceSet {
		opts = append(opts, framebridge.WithColorSpace(p.colorSpace))
	}
	b := framebridge.New(opts...)
	p.bridge, p.host = b, host
	p.mu.Unlock()

	return b.Load(host)
}

func (p *plugin) unload() error {
	p.mu.Lock()
	b := p.bridge
	p.bridge, p.host = nil, nil
	p.mu.Unlock()
	if b == nil {
		return nil
	}
	return b.Unload()
}

func (p *plugin) createPlayer(mp uintptr) error {
	b, host := p.current()
	if b == nil {
		return framebridge.ErrNoPresentationDevice
	}
	dec, err := p.newDecoder(mp, vlc.EngineFor(host.Renderer()))
	if err != nil {
		return err
	}
	_, err = b.CreatePlayer(dec)
	return err
}

func (p *plugin) releasePlayer(mp uintptr) error {
	b, _ := p.current()
	if b == nil {
		return nil
	}
	return b.ReleasePlayer(mp)
}

func (p *plugin) fetchFrame(mp uintptr, width, height uint32) (backend.Handle, bool) {
	b, _ := p.current()
	if b == nil {
		return backend.Handle{}, false
	}
	return b.FetchFrame(mp, width, height)
}

// textureOf returns h as a native texture pointer, or 0 when h is any
// other kind. Hosts that only take textures must never see fds, mapped
// addresses or backend ids.
func textureOf(h backend.Handle) uintptr {
	if h.Kind != backend.HandleTexture {
		return 0
	}
	return h.Value
}

func (p *plugin) setColorSpace(cs framebridge.ColorSpace) {
	p.mu.Lock()
	p.colorSpace, p.colorSpaceSet = cs, true
	b := p.bridge
	p.mu.Unlock()
	if b != nil {
		b.SetColorSpace(cs)
	}
}

func (p *plugin) setBitDepth(mp uintptr, bits int) error {
	b, _ := p.current()
	if b == nil {
		return framebridge.ErrInvalidHandle
	}
	return b.SetBitDepth(mp, framebridge.BitDepth(bits))
}

func (p *plugin) deviceEvent(ev int) {
	_, host := p.current()
	if host != nil {
		host.dispatch(ev)
	}
}

func (p *plugin) renderEvent(id int) {
	if b, _ := p.current(); b != nil {
		b.HandleRenderEvent(id)
	}
}
