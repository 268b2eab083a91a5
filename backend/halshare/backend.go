// Package halshare allocates decode surfaces as textures on the host's own
// wgpu HAL device.
//
// The host's gpucontext.DeviceProvider must also expose the HAL objects:
//
//	HalDevice() any // hal.Device
//	HalQueue() any  // hal.Queue
//
// Because decoder and presenter share one device, every surface is directly
// presentable and no handle export is needed. The backend registers itself
// as "wgpu" when the package is imported.
package halshare

import (
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gogpu/framebridge/backend"
	"github.com/gogpu/gpucontext"
	"github.com/gogpu/wgpu/hal"
)

// fenceTimeout bounds the wait for a clear pass to finish.
const fenceTimeout = 5 * time.Second

func init() {
	backend.Register(backend.Entry{
		Name:     backend.BackendHAL,
		Priority: 100,
		Renderers: []backend.Renderer{
			backend.RendererVulkan,
			backend.RendererD3D12,
			backend.RendererMetal,
			backend.RendererGLES3,
		},
		Factory: func() backend.Backend { return New() },
	})
}

// halProvider is the duck-typed extension a DeviceProvider implements when it
// is backed by wgpu HAL.
type halProvider interface {
	HalDevice() any
	HalQueue() any
}

// Backend opens Devices on the presentation device's HAL objects.
type Backend struct{}

// New creates the wgpu HAL backend.
func New() *Backend { return &Backend{} }

// Name implements backend.Backend.
func (b *Backend) Name() string { return backend.BackendHAL }

// Open implements backend.Backend. It fails with backend.ErrDeviceUnavailable
// when presentation does not expose a HAL device and queue.
func (b *Backend) Open(presentation gpucontext.DeviceProvider) (backend.Device, error) {
	if presentation == nil {
		return nil, fmt.Errorf("halshare: %w: no presentation device", backend.ErrDeviceUnavailable)
	}
	hp, ok := presentation.(halProvider)
	if !ok {
		return nil, fmt.Errorf("halshare: %w: provider does not expose HAL types", backend.ErrDeviceUnavailable)
	}
	device, ok := hp.HalDevice().(hal.Device)
	if !ok || device == nil {
		return nil, fmt.Errorf("halshare: %w: HalDevice is not hal.Device", backend.ErrDeviceUnavailable)
	}
	queue, ok := hp.HalQueue().(hal.Queue)
	if !ok || queue == nil {
		return nil, fmt.Errorf("halshare: %w: HalQueue is not hal.Queue", backend.ErrDeviceUnavailable)
	}
	return NewWithDevice(device, queue), nil
}

var deviceIDs atomic.Uint64

// Device allocates textures on a borrowed HAL device. Closing it never
// destroys the HAL device; the host owns that.
type Device struct {
	id     uint64
	device hal.Device
	queue  hal.Queue

	mu     sync.Mutex
	live   int
	closed bool
}

// NewWithDevice wraps an existing HAL device and queue.
func NewWithDevice(device hal.Device, queue hal.Queue) *Device {
	d := &Device{id: deviceIDs.Add(1), device: device, queue: queue}
	slogger().Debug("halshare: device opened", "device", d.id)
	return d
}

// Info implements backend.Device.
func (d *Device) Info() backend.DeviceInfo {
	return backend.DeviceInfo{Backend: backend.BackendHAL, Context: uintptr(d.id), Shared: true}
}

// Importer returns nil: textures live on the presentation device.
func (d *Device) Importer() backend.Importer { return nil }

// Live returns the number of unreleased surfaces.
func (d *Device) Live() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.live
}

// Allocate implements backend.Device.
func (d *Device) Allocate(desc backend.Descriptor) (backend.Surface, error) {
	if err := desc.Validate(); err != nil {
		return nil, err
	}
	d.mu.Lock()
	closed := d.closed
	d.mu.Unlock()
	if closed {
		return nil, backend.ErrDeviceClosed
	}

	s, err := newSurface(d, desc)
	if err != nil {
		return nil, err
	}

	d.mu.Lock()
	defer d.mu.Unlock()
	if d.closed {
		s.destroy()
		return nil, backend.ErrDeviceClosed
	}
	d.live++
	return s, nil
}

// Close implements backend.Device.
func (d *Device) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.closed {
		return nil
	}
	d.closed = true
	if d.live > 0 {
		slogger().Warn("halshare: device closed with live surfaces", "device", d.id, "live", d.live)
	}
	return nil
}

func (d *Device) surfaceReleased() {
	d.mu.Lock()
	d.live--
	d.mu.Unlock()
}

var _ backend.Device = (*Device)(nil)
