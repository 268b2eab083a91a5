package backend

import (
	"errors"
	"fmt"

	"github.com/gogpu/gpucontext"
	"github.com/gogpu/gputypes"
)

// Common backend errors.
var (
	// ErrBackendNotAvailable is returned when no registered backend can serve
	// the host renderer.
	ErrBackendNotAvailable = errors.New("backend: not available")

	// ErrDeviceUnavailable is returned by Open when the decode-side device
	// cannot be created for the given presentation device.
	ErrDeviceUnavailable = errors.New("backend: device unavailable")

	// ErrDeviceClosed is returned when allocating on a closed device.
	ErrDeviceClosed = errors.New("backend: device closed")

	// ErrExportUnsupported is returned when a surface cannot leave its device.
	ErrExportUnsupported = errors.New("backend: handle export unsupported")

	// ErrInvalidDescriptor is returned for zero sizes or undefined formats.
	ErrInvalidDescriptor = errors.New("backend: invalid surface descriptor")
)

// Renderer identifies the GPU API the host engine presents with.
type Renderer int

// Host renderer kinds.
const (
	RendererNone Renderer = iota
	RendererNull
	RendererD3D11
	RendererD3D12
	RendererOpenGLCore
	RendererGLES3
	RendererVulkan
	RendererMetal
)

// String returns the renderer name.
func (r Renderer) String() string {
	switch r {
	case RendererNone:
		return "none"
	case RendererNull:
		return "null"
	case RendererD3D11:
		return "d3d11"
	case RendererD3D12:
		return "d3d12"
	case RendererOpenGLCore:
		return "opengl-core"
	case RendererGLES3:
		return "gles3"
	case RendererVulkan:
		return "vulkan"
	case RendererMetal:
		return "metal"
	default:
		return fmt.Sprintf("renderer(%d)", int(r))
	}
}

// HandleKind tells the host how to interpret Handle.Value.
type HandleKind uint8

// Handle kinds.
const (
	// HandleNone is the "nothing to show" handle.
	HandleNone HandleKind = iota
	// HandleTexture is a native GPU texture or view pointer.
	HandleTexture
	// HandleFD is a POSIX file descriptor (memfd, dma-buf).
	HandleFD
	// HandleNT is a Windows NT handle.
	HandleNT
	// HandleMemory is the base address of a mapped pixel buffer.
	HandleMemory
	// HandleOpaque is a backend-private identifier.
	HandleOpaque
)

// Handle is a native resource reference. The zero value means "no handle".
type Handle struct {
	Kind  HandleKind
	Value uintptr
}

// IsZero reports whether h refers to nothing.
func (h Handle) IsZero() bool { return h.Kind == HandleNone }

// Descriptor describes every surface of one shared set.
type Descriptor struct {
	Label  string
	Width  uint32
	Height uint32
	Format gputypes.TextureFormat
}

// Validate reports ErrInvalidDescriptor for degenerate descriptors.
func (d Descriptor) Validate() error {
	if d.Width == 0 || d.Height == 0 {
		return fmt.Errorf("%w: %dx%d", ErrInvalidDescriptor, d.Width, d.Height)
	}
	if d.Format == gputypes.TextureFormatUndefined {
		return fmt.Errorf("%w: undefined format", ErrInvalidDescriptor)
	}
	return nil
}

// SameShape reports whether d and o describe identical surfaces.
func (d Descriptor) SameShape(o Descriptor) bool {
	return d.Width == o.Width && d.Height == o.Height && d.Format == o.Format
}

// BytesPerPixel returns the texel size of the descriptor format, or 0 for
// formats CPU backends cannot address.
func (d Descriptor) BytesPerPixel() int {
	switch d.Format {
	case gputypes.TextureFormatRGBA8Unorm, gputypes.TextureFormatBGRA8Unorm,
		gputypes.TextureFormatRGB10A2Unorm:
		return 4
	case gputypes.TextureFormatRGBA16Float:
		return 8
	default:
		return 0
	}
}

// Target is the decode-side draw target bound for one frame.
type Target struct {
	Handle Handle
	Width  uint32
	Height uint32
}

// Surface is one decode-side color surface.
//
// Release must be idempotent and must close any native handle the surface
// owns.
type Surface interface {
	Descriptor() Descriptor

	// BindTarget binds the surface as the decoder's draw target and clears it.
	BindTarget() (Target, error)

	Release() error
}

// Presentable is the presentation-side view of a surface. Surfaces of
// same-device backends implement it directly.
type Presentable interface {
	Handle() Handle
	Release() error
}

// Exporter is implemented by surfaces that can be shared with another
// device through a native handle.
type Exporter interface {
	Export() (Handle, error)
}

// Importer turns an exported handle into a presentation-side resource.
type Importer interface {
	Import(h Handle, desc Descriptor) (Presentable, error)
}

// DeviceInfo is what the decoder receives from the Setup hook.
type DeviceInfo struct {
	// Backend is the name of the backend that opened the device.
	Backend string

	// Context is the decode device or context handle.
	Context uintptr

	// Native reports whether Context is a graphics API device or context
	// pointer that a decoder may dereference. Otherwise Context is a
	// backend-private id.
	Native bool

	// Shared reports whether decode and present use one device.
	Shared bool
}

// Device is the decode-side device/context owned by exactly one player.
type Device interface {
	Info() DeviceInfo

	// Allocate creates one surface.
	Allocate(desc Descriptor) (Surface, error)

	// Importer returns the presentation-side importer, or nil when decode and
	// present share one device and surfaces are directly presentable.
	Importer() Importer

	Close() error
}

// ProcAddresser is implemented by devices backed by an API with
// GL-style function lookup.
type ProcAddresser interface {
	ProcAddress(name string) uintptr
}

// ResetListener is implemented by devices that must react when the host
// resets its presentation device. after is false before the reset and true
// once it has completed.
type ResetListener interface {
	PresentationReset(after bool)
}

// Backend opens decode devices against a presentation device.
type Backend interface {
	// Name returns the backend identifier (e.g., "software", "wgpu").
	Name() string

	// Open creates a decode device. presentation may be nil when the host
	// exposes no device provider.
	Open(presentation gpucontext.DeviceProvider) (Device, error)
}
