package vlc

import (
	"github.com/gogpu/framebridge/decoder"
)

// trampolines are the C function pointers installed with
// libvlc_video_set_output_callbacks. They are created once per process and
// dispatch on the opaque handle.
type trampolines struct {
	setup          uintptr
	cleanup        uintptr
	window         uintptr
	update         uintptr
	swap           uintptr
	makeCurrent    uintptr
	getProcAddress uintptr
	selectPlane    uintptr
}

func lookup(opaque uintptr) (*MediaPlayer, decoder.Callbacks) {
	m, ok := handles.get(opaque)
	if !ok {
		return nil, nil
	}
	cb := m.callbacks()
	if cb == nil {
		return nil, nil
	}
	return m, cb
}

func onSetup(opaque *uintptr, cfg *setupDeviceCfg, out *setupDeviceInfo) bool {
	if opaque == nil {
		return false
	}
	m, cb := lookup(*opaque)
	if cb == nil {
		return false
	}
	info, ok := cb.Setup(decoder.SetupConfig{HardwareDecoding: cfg != nil && cfg.hardwareDecoding})
	if !ok {
		return false
	}
	if m.engine == EngineD3D11 || m.engine == EngineD3D9 {
		// libvlc dereferences the device as an ID3D11DeviceContext or
		// IDirect3DDevice9.
		if !info.Native || info.Context == 0 {
			slogger().Warn("vlc: decode device is not native", "player", m.mp,
				"engine", m.engine.String(), "backend", info.Backend, "err", ErrUnsupportedEngine)
			cb.Cleanup()
			return false
		}
		if out != nil {
			out.device = info.Context
		}
	}
	return true
}

func onCleanup(opaque uintptr) {
	if _, cb := lookup(opaque); cb != nil {
		cb.Cleanup()
	}
}

// onWindow receives libvlc's size report function. A zero fn clears it.
func onWindow(opaque, fn, mouseMove, mousePress, mouseRelease, reportOpaque uintptr) {
	m, cb := lookup(opaque)
	if cb == nil {
		return
	}
	if fn == 0 {
		cb.SetResizeCallback(nil)
		return
	}
	m.mu.Lock()
	report := m.lib.callReport
	m.mu.Unlock()
	cb.SetResizeCallback(func(width, height uint32) {
		report(fn, reportOpaque, width, height)
	})
}

func onUpdateOutput(opaque uintptr, cfg *renderCfg, out *outputCfg) bool {
	m, cb := lookup(opaque)
	if cb == nil || cfg == nil || out == nil {
		return false
	}
	negotiated, ok := cb.Resize(fromRenderCfg(cfg))
	if !ok {
		return false
	}
	fillOutputCfg(out, m.engine, negotiated)
	return true
}

func onSwap(opaque uintptr) {
	if _, cb := lookup(opaque); cb != nil {
		cb.Swap()
	}
}

func onMakeCurrent(opaque uintptr, enter bool) bool {
	_, cb := lookup(opaque)
	if cb == nil {
		return false
	}
	return cb.MakeCurrent(enter)
}

func onGetProcAddress(opaque uintptr, name *byte) uintptr {
	_, cb := lookup(opaque)
	if cb == nil {
		return 0
	}
	return cb.GetProcAddress(goString(name))
}

func onSelectPlane(opaque, plane, output uintptr) bool {
	_, cb := lookup(opaque)
	if cb == nil {
		return false
	}
	return cb.SelectPlane(int(plane))
}
