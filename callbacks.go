package framebridge

import (
	"fmt"

	"github.com/gogpu/framebridge/backend"
	"github.com/gogpu/framebridge/decoder"
)

// callbackAdapter is the hook table a Player hands to its decoder. Every
// hook except the closing MakeCurrent passes through the player's gate, so
// once release has closed the gate no hook touches the surfaces again.
type callbackAdapter struct {
	p *Player
}

func (a callbackAdapter) Setup(cfg decoder.SetupConfig) (backend.DeviceInfo, bool) {
	p := a.p
	if !p.gate.enter() {
		return backend.DeviceInfo{}, false
	}
	defer p.gate.exit()

	dev := p.device()
	if dev == nil {
		slogger().Warn("framebridge: setup without decode device", "player", p.id, "err", ErrDeviceUnavailable)
		return backend.DeviceInfo{}, false
	}
	info := dev.Info()
	p.playing.Store(true)
	slogger().Info("framebridge: decoder setup", "player", p.id, "backend", info.Backend,
		"shared", info.Shared, "hw", cfg.HardwareDecoding)
	return info, true
}

func (a callbackAdapter) Cleanup() {
	p := a.p
	if !p.gate.enter() {
		return
	}
	defer p.gate.exit()

	p.playing.Store(false)
	p.clearReport()
	p.cfgMu.Lock()
	p.negotiated = backend.Descriptor{}
	p.cfgMu.Unlock()

	if set := p.surfaces(); set != nil {
		if err := set.Release(); err != nil {
			slogger().Warn("framebridge: cleanup release failed", "player", p.id, "err", err)
		}
	}
	slogger().Debug("framebridge: decoder cleanup", "player", p.id)
}

func (a callbackAdapter) SetResizeCallback(report decoder.ReportFunc) {
	p := a.p
	if !p.gate.enter() {
		return
	}
	defer p.gate.exit()

	p.reportMu.Lock()
	defer p.reportMu.Unlock()
	p.report = report
	p.reported = [2]uint32{}
	if req := p.requested; req[0] != 0 && req[1] != 0 {
		p.reportLocked(req[0], req[1])
	}
}

func (a callbackAdapter) Resize(cfg decoder.RenderConfig) (decoder.OutputConfig, bool) {
	p := a.p
	if !p.gate.enter() {
		return decoder.OutputConfig{}, false
	}
	defer p.gate.exit()

	set := p.surfaces()
	if set == nil {
		slogger().Warn("framebridge: resize without decode device", "player", p.id, "err", ErrDeviceUnavailable)
		return decoder.OutputConfig{}, false
	}

	p.cfgMu.Lock()
	cs, depth := p.colorSpace, p.bitDepth
	p.cfgMu.Unlock()

	desc := backend.Descriptor{
		Label:  fmt.Sprintf("player_%x", p.id),
		Width:  cfg.Width,
		Height: cfg.Height,
		Format: depth.Format(),
	}
	if err := set.Allocate(desc); err != nil {
		slogger().Warn("framebridge: resize failed", "player", p.id,
			"width", cfg.Width, "height", cfg.Height, "err", err)
		return decoder.OutputConfig{}, false
	}

	out := negotiate(cs, depth)
	p.cfgMu.Lock()
	p.negotiated = desc
	p.output = out
	p.cfgMu.Unlock()

	slogger().Debug("framebridge: output negotiated", "player", p.id,
		"width", cfg.Width, "height", cfg.Height, "output", out.String())
	p.reportSize(cfg.Width, cfg.Height)
	return out, true
}

func (a callbackAdapter) SelectPlane(plane int) bool {
	p := a.p
	if plane != 0 {
		p.unsupported.Add(1)
		slogger().Debug("framebridge: plane not supported", "player", p.id, "plane", plane)
		return false
	}
	return !p.disposed.Load()
}

func (a callbackAdapter) Swap() {
	p := a.p
	if !p.gate.enter() {
		return
	}
	defer p.gate.exit()

	set := p.surfaces()
	if set == nil {
		return
	}
	if set.Complete() {
		p.swaps.Add(1)
	}
}

func (a callbackAdapter) MakeCurrent(enter bool) bool {
	if enter {
		return a.p.beginDraw()
	}
	return a.p.endDraw()
}

func (a callbackAdapter) GetProcAddress(name string) uintptr {
	p := a.p
	if !p.gate.enter() {
		return 0
	}
	defer p.gate.exit()

	if pa, ok := p.device().(backend.ProcAddresser); ok {
		return pa.ProcAddress(name)
	}
	return 0
}

// beginDraw binds the render surface. An open draw holds its own gate slot
// until endDraw. Nested calls only deepen the count. drawMu is held until
// the draw is fully open, so endDraw never sees a half-open one.
func (p *Player) beginDraw() bool {
	if !p.gate.enter() {
		return false
	}
	defer p.gate.exit()

	p.drawMu.Lock()
	defer p.drawMu.Unlock()
	if p.depth > 0 {
		p.depth++
		p.reentrant.Add(1)
		slogger().Warn("framebridge: nested MakeCurrent", "player", p.id, "depth", p.depth, "err", ErrReentrancy)
		return true
	}

	set := p.surfaces()
	if set == nil || !p.gate.enter() {
		return false
	}
	if _, err := set.BeginRender(); err != nil {
		slogger().Debug("framebridge: bind target failed", "player", p.id, "err", err)
		p.gate.exit()
		return false
	}
	p.depth, p.drawSet = 1, set
	return true
}

// endDraw closes the draw opened by beginDraw. It is not gated, so a release
// waiting for the draw can complete.
func (p *Player) endDraw() bool {
	p.drawMu.Lock()
	switch {
	case p.depth == 0:
		p.drawMu.Unlock()
		slogger().Warn("framebridge: unpaired MakeCurrent(false)", "player", p.id)
		return false
	case p.depth > 1:
		p.depth--
		p.drawMu.Unlock()
		return true
	}
	set := p.drawSet
	p.depth, p.drawSet = 0, nil
	p.drawMu.Unlock()

	if set != nil {
		set.EndRender()
		p.gate.exit()
	}
	return true
}

var _ decoder.Callbacks = callbackAdapter{}
