package framebridge

import (
	"fmt"

	"github.com/gogpu/framebridge/backend"
	"github.com/gogpu/gpucontext"
)

// Host is the engine that loads the bridge.
type Host interface {
	// Renderer returns the graphics API the host presents with, or
	// backend.RendererNone while it is not known yet.
	Renderer() backend.Renderer

	// PresentationDevice returns the host's GPU device. It may be nil for
	// renderers the bridge reaches without one.
	PresentationDevice() gpucontext.DeviceProvider
}

// EventSource is implemented by hosts that deliver device events through a
// callback instead of calling ProcessDeviceEvent directly.
type EventSource interface {
	RegisterDeviceEventCallback(fn func(DeviceEvent))
	UnregisterDeviceEventCallback()
}

// DeviceEvent is a host device lifecycle event.
type DeviceEvent int

// Device events, numbered as the host delivers them.
const (
	DeviceEventInitialize DeviceEvent = iota
	DeviceEventShutdown
	DeviceEventBeforeReset
	DeviceEventAfterReset
)

func (e DeviceEvent) String() string {
	switch e {
	case DeviceEventInitialize:
		return "initialize"
	case DeviceEventShutdown:
		return "shutdown"
	case DeviceEventBeforeReset:
		return "before-reset"
	case DeviceEventAfterReset:
		return "after-reset"
	default:
		return fmt.Sprintf("event(%d)", int(e))
	}
}

// DeviceState is the state of the bridge's device lifecycle.
type DeviceState int

// Device states.
const (
	StateUninitialized DeviceState = iota
	StateReady
	StateShuttingDown
)

func (s DeviceState) String() string {
	switch s {
	case StateUninitialized:
		return "uninitialized"
	case StateReady:
		return "ready"
	case StateShuttingDown:
		return "shutting-down"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}
