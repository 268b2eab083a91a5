package main

import (
	"sync"

	"github.com/gogpu/framebridge"
	"github.com/gogpu/framebridge/backend"
	"github.com/gogpu/gpucontext"
)

// Unity renderer codes, as UnityGfxRenderer.
const (
	unityD3D11      = 2
	unityNull       = 4
	unityGLES30     = 11
	unityMetal      = 16
	unityOpenGLCore = 17
	unityD3D12      = 18
	unityVulkan     = 21
)

func rendererFromUnity(code int) backend.Renderer {
	switch code {
	case unityD3D11:
		return backend.RendererD3D11
	case unityNull:
		return backend.RendererNull
	case unityGLES30:
		return backend.RendererGLES3
	case unityMetal:
		return backend.RendererMetal
	case unityOpenGLCore:
		return backend.RendererOpenGLCore
	case unityD3D12:
		return backend.RendererD3D12
	case unityVulkan:
		return backend.RendererVulkan
	default:
		return backend.RendererNone
	}
}

// unityHost adapts IUnityGraphics to framebridge.Host. The C calls are
// injected so the adapter runs without Unity.
type unityHost struct {
	renderer   func() int
	register   func()
	unregister func()

	mu     sync.Mutex
	events func(framebridge.DeviceEvent)
}

func (h *unityHost) Renderer() backend.Renderer {
	return rendererFromUnity(h.renderer())
}

// PresentationDevice returns nil: Unity exposes no gpucontext provider, so
// only backends that open their own device serve it.
func (h *unityHost) PresentationDevice() gpucontext.DeviceProvider { return nil }

func (h *unityHost) RegisterDeviceEventCallback(fn func(framebridge.DeviceEvent)) {
	h.mu.Lock()
	h.events = fn
	h.mu.Unlock()
	// Unity delivers Initialize from inside the registration.
	h.register()
}

func (h *unityHost) UnregisterDeviceEventCallback() {
	h.unregister()
	h.mu.Lock()
	h.events = nil
	h.mu.Unlock()
}

func (h *unityHost) dispatch(ev int) {
	h.mu.Lock()
	fn := h.events
	h.mu.Unlock()
	if fn != nil {
		fn(framebridge.DeviceEvent(ev))
	}
}

var (
	_ framebridge.Host        = (*unityHost)(nil)
	_ framebridge.EventSource = (*unityHost)(nil)
)
