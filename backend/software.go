package backend

import (
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/gogpu/gpucontext"
)

// Backend name constants.
const (
	// BackendSoftware is the name of the CPU heap backend.
	BackendSoftware = "software"
	// BackendHAL is the name of the wgpu HAL texture backend.
	BackendHAL = "wgpu"
	// BackendMemShare is the name of the memfd shared-memory backend.
	BackendMemShare = "memfd"
)

// init registers the software backend on package import.
func init() {
	Register(Entry{
		Name:     BackendSoftware,
		Priority: 10,
		Factory:  func() Backend { return NewSoftwareBackend() },
	})
}

// SoftwareBackend keeps surfaces in Go heap memory on a single logical
// device, so decode and present always share it. It serves the host's null
// renderer and is the fallback when no GPU backend can open.
type SoftwareBackend struct{}

// NewSoftwareBackend creates a new software backend.
func NewSoftwareBackend() *SoftwareBackend {
	return &SoftwareBackend{}
}

// Name returns the backend identifier.
func (b *SoftwareBackend) Name() string {
	return BackendSoftware
}

// Open creates a software device. The presentation device is ignored.
func (b *SoftwareBackend) Open(gpucontext.DeviceProvider) (Device, error) {
	d := &SoftwareDevice{id: softwareIDs.Add(1)}
	slogger().Debug("software: device opened", "device", d.id)
	return d, nil
}

// softwareIDs numbers software devices and surfaces. Handles carry these ids,
// never Go pointers.
var softwareIDs atomic.Uint64

// SoftwareDevice is a decode "device" whose surfaces are byte slices.
type SoftwareDevice struct {
	id     uint64
	mu     sync.Mutex
	live   int
	closed bool
}

// Info implements Device.
func (d *SoftwareDevice) Info() DeviceInfo {
	return DeviceInfo{Backend: BackendSoftware, Context: uintptr(d.id), Shared: true}
}

// Importer returns nil: software surfaces are directly presentable.
func (d *SoftwareDevice) Importer() Importer { return nil }

// Live returns the number of allocated, unreleased surfaces.
func (d *SoftwareDevice) Live() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.live
}

// Allocate implements Device.
func (d *SoftwareDevice) Allocate(desc Descriptor) (Surface, error) {
	if err := desc.Validate(); err != nil {
		return nil, err
	}
	bpp := desc.BytesPerPixel()
	if bpp == 0 {
		return nil, fmt.Errorf("%w: format %v not addressable by software backend", ErrInvalidDescriptor, desc.Format)
	}

	d.mu.Lock()
	defer d.mu.Unlock()
	if d.closed {
		return nil, ErrDeviceClosed
	}
	d.live++
	return &SoftwareSurface{
		id:     softwareIDs.Add(1),
		device: d,
		desc:   desc,
		stride: int(desc.Width) * bpp,
		pixels: make([]byte, int(desc.Width)*int(desc.Height)*bpp),
	}, nil
}

// Close implements Device. Surfaces still alive stay readable.
func (d *SoftwareDevice) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.closed {
		return nil
	}
	d.closed = true
	if d.live > 0 {
		slogger().Warn("software: device closed with live surfaces", "device", d.id, "live", d.live)
	}
	return nil
}

func (d *SoftwareDevice) surfaceReleased() {
	d.mu.Lock()
	d.live--
	d.mu.Unlock()
}

// SoftwareSurface is a heap-backed surface. It is both the decode-side
// target and the presentable.
type SoftwareSurface struct {
	id     uint64
	device *SoftwareDevice
	desc   Descriptor
	stride int

	mu       sync.Mutex
	pixels   []byte
	released bool
}

// Descriptor implements Surface.
func (s *SoftwareSurface) Descriptor() Descriptor { return s.desc }

// Handle implements Presentable.
func (s *SoftwareSurface) Handle() Handle {
	return Handle{Kind: HandleOpaque, Value: uintptr(s.id)}
}

// BindTarget clears the pixels and returns the surface as the target.
func (s *SoftwareSurface) BindTarget() (Target, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.released {
		return Target{}, fmt.Errorf("software: bind surface %d: %w", s.id, ErrDeviceClosed)
	}
	clear(s.pixels)
	return Target{Handle: s.Handle(), Width: s.desc.Width, Height: s.desc.Height}, nil
}

// Stride returns the row pitch in bytes.
func (s *SoftwareSurface) Stride() int { return s.stride }

// Pixels calls fn with the surface memory. fn must not retain the slice.
// It returns false if the surface has been released.
func (s *SoftwareSurface) Pixels(fn func(pix []byte)) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.released {
		return false
	}
	fn(s.pixels)
	return true
}

// Released reports whether Release has been called.
func (s *SoftwareSurface) Released() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.released
}

// Release frees the pixels. Releasing twice is a no-op.
func (s *SoftwareSurface) Release() error {
	s.mu.Lock()
	if s.released {
		s.mu.Unlock()
		return nil
	}
	s.released = true
	s.pixels = nil
	s.mu.Unlock()

	s.device.surfaceReleased()
	return nil
}

var (
	_ Device      = (*SoftwareDevice)(nil)
	_ Surface     = (*SoftwareSurface)(nil)
	_ Presentable = (*SoftwareSurface)(nil)
)
