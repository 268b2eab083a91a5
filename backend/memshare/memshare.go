// Package memshare shares decoded frames through memfd shared memory.
//
// Each surface is an anonymous memory file mapped into the decoder. The
// presentation side receives a duplicated descriptor and maps it again, so
// decoder and host never share a Go pointer. The backend registers itself as
// "memfd" on Linux.
package memshare

import (
	"github.com/gogpu/framebridge/backend"
	"github.com/gogpu/gpucontext"
)

func init() {
	backend.Register(backend.Entry{
		Name:     backend.BackendMemShare,
		Priority: 50,
		Renderers: []backend.Renderer{
			backend.RendererOpenGLCore,
			backend.RendererGLES3,
			backend.RendererVulkan,
		},
		Factory:   func() backend.Backend { return New() },
		Available: Available,
	})
}

// Backend opens memfd devices.
type Backend struct{}

// New creates the memfd backend.
func New() *Backend { return &Backend{} }

// Name implements backend.Backend.
func (b *Backend) Name() string { return backend.BackendMemShare }

// Open implements backend.Backend. The presentation device is not used; the
// host maps the exported descriptors itself.
func (b *Backend) Open(gpucontext.DeviceProvider) (backend.Device, error) {
	return openDevice()
}
