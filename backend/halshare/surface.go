package halshare

import (
	"fmt"
	"sync"

	"github.com/gogpu/framebridge/backend"
	"github.com/gogpu/gputypes"
	"github.com/gogpu/wgpu/hal"
)

// Surface is a render-attachment texture the decoder draws into and the host
// samples from.
type Surface struct {
	dev  *Device
	desc backend.Descriptor

	mu       sync.Mutex
	tex      hal.Texture
	view     hal.TextureView
	released bool
}

func newSurface(d *Device, desc backend.Descriptor) (*Surface, error) {
	tex, err := d.device.CreateTexture(&hal.TextureDescriptor{
		Label: desc.Label,
		Size: hal.Extent3D{
			Width:              desc.Width,
			Height:             desc.Height,
			DepthOrArrayLayers: 1,
		},
		MipLevelCount: 1,
		SampleCount:   1,
		Dimension:     gputypes.TextureDimension2D,
		Format:        desc.Format,
		Usage: gputypes.TextureUsageRenderAttachment |
			gputypes.TextureUsageTextureBinding |
			gputypes.TextureUsageCopySrc,
	})
	if err != nil {
		return nil, fmt.Errorf("halshare: create texture %q: %w", desc.Label, err)
	}

	view, err := d.device.CreateTextureView(tex, &hal.TextureViewDescriptor{
		Label: desc.Label + "_view",
	})
	if err != nil {
		d.device.DestroyTexture(tex)
		return nil, fmt.Errorf("halshare: create texture view %q: %w", desc.Label, err)
	}
	return &Surface{dev: d, desc: desc, tex: tex, view: view}, nil
}

// Descriptor implements backend.Surface.
func (s *Surface) Descriptor() backend.Descriptor { return s.desc }

// Handle returns the native texture handle.
func (s *Surface) Handle() backend.Handle {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.released {
		return backend.Handle{}
	}
	return backend.Handle{Kind: backend.HandleTexture, Value: s.tex.NativeHandle()}
}

// BindTarget clears the texture with a one-attachment render pass and waits
// for the queue before returning it as the draw target.
func (s *Surface) BindTarget() (backend.Target, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.released {
		return backend.Target{}, fmt.Errorf("halshare: bind %q: %w", s.desc.Label, backend.ErrDeviceClosed)
	}
	if err := s.clear(); err != nil {
		return backend.Target{}, err
	}
	return backend.Target{
		Handle: backend.Handle{Kind: backend.HandleTexture, Value: s.tex.NativeHandle()},
		Width:  s.desc.Width,
		Height: s.desc.Height,
	}, nil
}

func (s *Surface) clear() error {
	device, queue := s.dev.device, s.dev.queue

	encoder, err := device.CreateCommandEncoder(&hal.CommandEncoderDescriptor{
		Label: "framebridge_clear_encoder",
	})
	if err != nil {
		return fmt.Errorf("halshare: create command encoder: %w", err)
	}
	if err := encoder.BeginEncoding("framebridge_clear"); err != nil {
		return fmt.Errorf("halshare: begin encoding: %w", err)
	}

	rp := encoder.BeginRenderPass(&hal.RenderPassDescriptor{
		Label: "framebridge_clear_pass",
		ColorAttachments: []hal.RenderPassColorAttachment{{
			View:       s.view,
			LoadOp:     gputypes.LoadOpClear,
			StoreOp:    gputypes.StoreOpStore,
			ClearValue: gputypes.Color{R: 0, G: 0, B: 0, A: 0},
		}},
	})
	rp.End()

	cmdBuf, err := encoder.EndEncoding()
	if err != nil {
		return fmt.Errorf("halshare: end encoding: %w", err)
	}
	defer device.FreeCommandBuffer(cmdBuf)

	fence, err := device.CreateFence()
	if err != nil {
		return fmt.Errorf("halshare: create fence: %w", err)
	}
	defer device.DestroyFence(fence)

	if err := queue.Submit([]hal.CommandBuffer{cmdBuf}, fence, 1); err != nil {
		return fmt.Errorf("halshare: submit: %w", err)
	}
	ok, err := device.Wait(fence, 1, fenceTimeout)
	if err != nil || !ok {
		return fmt.Errorf("halshare: wait for clear: ok=%v err=%w", ok, err)
	}
	return nil
}

// Release destroys the view and texture. Releasing twice is a no-op.
func (s *Surface) Release() error {
	s.mu.Lock()
	if s.released {
		s.mu.Unlock()
		return nil
	}
	s.released = true
	s.destroy()
	s.mu.Unlock()

	s.dev.surfaceReleased()
	return nil
}

// destroy frees GPU resources. Callers hold s.mu or own s exclusively.
func (s *Surface) destroy() {
	if s.view != nil {
		s.dev.device.DestroyTextureView(s.view)
		s.view = nil
	}
	if s.tex != nil {
		s.dev.device.DestroyTexture(s.tex)
		s.tex = nil
	}
}

var (
	_ backend.Surface     = (*Surface)(nil)
	_ backend.Presentable = (*Surface)(nil)
)
