//go:build linux

package memshare

import (
	"fmt"
	"sync"
	"sync/atomic"
	"unsafe"

	"github.com/gogpu/framebridge/backend"
	"golang.org/x/sys/unix"
)

// Available reports whether the kernel supports memfd_create.
var Available = sync.OnceValue(func() bool {
	fd, err := unix.MemfdCreate("framebridge-probe", unix.MFD_CLOEXEC)
	if err != nil {
		slogger().Debug("memshare: memfd_create unavailable", "err", err)
		return false
	}
	_ = unix.Close(fd)
	return true
})

var deviceIDs atomic.Uint64

// Device allocates memfd surfaces. It is a separate device from the
// presenter, so surfaces are exported and imported.
type Device struct {
	id uint64

	mu     sync.Mutex
	live   int
	closed bool
}

func openDevice() (backend.Device, error) {
	if !Available() {
		return nil, fmt.Errorf("memshare: %w: memfd_create failed", backend.ErrDeviceUnavailable)
	}
	d := &Device{id: deviceIDs.Add(1)}
	slogger().Debug("memshare: device opened", "device", d.id)
	return d, nil
}

// Info implements backend.Device.
func (d *Device) Info() backend.DeviceInfo {
	return backend.DeviceInfo{Backend: backend.BackendMemShare, Context: uintptr(d.id)}
}

// Importer implements backend.Device.
func (d *Device) Importer() backend.Importer { return importer{} }

// Live returns the number of unreleased surfaces.
func (d *Device) Live() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.live
}

// Allocate creates a memfd sized for desc and maps it read-write.
func (d *Device) Allocate(desc backend.Descriptor) (backend.Surface, error) {
	if err := desc.Validate(); err != nil {
		return nil, err
	}
	bpp := desc.BytesPerPixel()
	if bpp == 0 {
		return nil, fmt.Errorf("memshare: %w: format %v", backend.ErrInvalidDescriptor, desc.Format)
	}

	d.mu.Lock()
	defer d.mu.Unlock()
	if d.closed {
		return nil, backend.ErrDeviceClosed
	}

	size := int(desc.Width) * int(desc.Height) * bpp
	fd, err := unix.MemfdCreate("framebridge-"+desc.Label, unix.MFD_CLOEXEC)
	if err != nil {
		return nil, fmt.Errorf("memshare: memfd_create: %w", err)
	}
	if err := unix.Ftruncate(fd, int64(size)); err != nil {
		_ = unix.Close(fd)
		return nil, fmt.Errorf("memshare: ftruncate %d: %w", size, err)
	}
	mem, err := unix.Mmap(fd, 0, size, unix.PROT_READ|unix.PROT_WRITE, unix.MAP_SHARED)
	if err != nil {
		_ = unix.Close(fd)
		return nil, fmt.Errorf("memshare: mmap: %w", err)
	}

	d.live++
	return &Surface{dev: d, desc: desc, stride: int(desc.Width) * bpp, fd: fd, mem: mem}, nil
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
		slogger().Warn("memshare: device closed with live surfaces", "device", d.id, "live", d.live)
	}
	return nil
}

func (d *Device) surfaceReleased() {
	d.mu.Lock()
	d.live--
	d.mu.Unlock()
}

// Surface is one memfd-backed frame buffer.
type Surface struct {
	dev    *Device
	desc   backend.Descriptor
	stride int

	mu  sync.Mutex
	fd  int
	mem []byte
}

// Descriptor implements backend.Surface.
func (s *Surface) Descriptor() backend.Descriptor { return s.desc }

// Stride returns the row pitch in bytes.
func (s *Surface) Stride() int { return s.stride }

// BindTarget zeroes the mapping and returns the memfd as the draw target.
func (s *Surface) BindTarget() (backend.Target, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.mem == nil {
		return backend.Target{}, fmt.Errorf("memshare: bind %q: %w", s.desc.Label, backend.ErrDeviceClosed)
	}
	clear(s.mem)
	return backend.Target{
		Handle: backend.Handle{Kind: backend.HandleFD, Value: uintptr(s.fd)},
		Width:  s.desc.Width,
		Height: s.desc.Height,
	}, nil
}

// Pixels calls fn with the writable mapping. It returns false after Release.
func (s *Surface) Pixels(fn func(pix []byte)) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.mem == nil {
		return false
	}
	fn(s.mem)
	return true
}

// Export duplicates the memfd. The caller owns the returned descriptor.
func (s *Surface) Export() (backend.Handle, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.mem == nil {
		return backend.Handle{}, fmt.Errorf("memshare: export %q: %w", s.desc.Label, backend.ErrDeviceClosed)
	}
	fd, err := unix.Dup(s.fd)
	if err != nil {
		return backend.Handle{}, fmt.Errorf("memshare: dup: %w", err)
	}
	return backend.Handle{Kind: backend.HandleFD, Value: uintptr(fd)}, nil
}

// Release unmaps and closes the memfd. Releasing twice is a no-op.
func (s *Surface) Release() error {
	s.mu.Lock()
	if s.mem == nil {
		s.mu.Unlock()
		return nil
	}
	err := unmapAndClose(s.mem, s.fd)
	s.mem, s.fd = nil, -1
	s.mu.Unlock()

	s.dev.surfaceReleased()
	return err
}

// importer maps exported memfds on the presentation side.
type importer struct{}

// Import takes ownership of h and maps it read-only.
func (importer) Import(h backend.Handle, desc backend.Descriptor) (backend.Presentable, error) {
	if h.Kind != backend.HandleFD {
		return nil, fmt.Errorf("memshare: %w: handle kind %d", backend.ErrExportUnsupported, h.Kind)
	}
	fd := int(h.Value)
	size := int(desc.Width) * int(desc.Height) * desc.BytesPerPixel()
	if size == 0 {
		_ = unix.Close(fd)
		return nil, fmt.Errorf("memshare: %w: import %q", backend.ErrInvalidDescriptor, desc.Label)
	}
	mem, err := unix.Mmap(fd, 0, size, unix.PROT_READ, unix.MAP_SHARED)
	if err != nil {
		_ = unix.Close(fd)
		return nil, fmt.Errorf("memshare: import mmap: %w", err)
	}
	return &Imported{fd: fd, mem: mem}, nil
}

// Imported is the host's read-only view of a surface.
type Imported struct {
	mu  sync.Mutex
	fd  int
	mem []byte
}

// Handle returns the base address of the read-only mapping.
func (m *Imported) Handle() backend.Handle {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.mem) == 0 {
		return backend.Handle{}
	}
	return backend.Handle{Kind: backend.HandleMemory, Value: uintptr(unsafe.Pointer(&m.mem[0]))}
}

// Bytes calls fn with the mapped frame. It returns false after Release.
func (m *Imported) Bytes(fn func(pix []byte)) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.mem == nil {
		return false
	}
	fn(m.mem)
	return true
}

// FD returns the owned descriptor, or -1 after Release.
func (m *Imported) FD() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.mem == nil {
		return -1
	}
	return m.fd
}

// Release unmaps and closes the imported descriptor. Releasing twice is a
// no-op.
func (m *Imported) Release() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.mem == nil {
		return nil
	}
	err := unmapAndClose(m.mem, m.fd)
	m.mem, m.fd = nil, -1
	return err
}

func unmapAndClose(mem []byte, fd int) error {
	var first error
	if err := unix.Munmap(mem); err != nil {
		first = fmt.Errorf("memshare: munmap: %w", err)
	}
	if err := unix.Close(fd); err != nil && first == nil {
		first = fmt.Errorf("memshare: close: %w", err)
	}
	return first
}

var (
	_ backend.Device      = (*Device)(nil)
	_ backend.Surface     = (*Surface)(nil)
	_ backend.Exporter    = (*Surface)(nil)
	_ backend.Presentable = (*Imported)(nil)
)
