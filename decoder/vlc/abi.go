package vlc

import (
	"unsafe"

	"github.com/gogpu/framebridge/backend"
	"github.com/gogpu/framebridge/decoder"
	"github.com/gogpu/gputypes"
)

// Engine is the libvlc video output engine the callbacks are installed for.
type Engine int32

// Engines, numbered as libvlc_video_engine_t.
const (
	EngineDisable Engine = 0
	EngineOpenGL  Engine = 1
	EngineGLES2   Engine = 2
	EngineD3D11   Engine = 3
	EngineD3D9    Engine = 4
)

func (e Engine) String() string {
	switch e {
	case EngineOpenGL:
		return "opengl"
	case EngineGLES2:
		return "gles2"
	case EngineD3D11:
		return "d3d11"
	case EngineD3D9:
		return "d3d9"
	default:
		return "disable"
	}
}

// EngineFor returns the engine libvlc must render with to share surfaces
// with renderer.
func EngineFor(r backend.Renderer) Engine {
	switch r {
	case backend.RendererOpenGLCore:
		return EngineOpenGL
	case backend.RendererGLES3, backend.RendererVulkan, backend.RendererMetal:
		return EngineGLES2
	case backend.RendererD3D11, backend.RendererD3D12:
		return EngineD3D11
	default:
		return EngineDisable
	}
}

// libvlc_video_color_space_t
const (
	vlcColorSpaceBT601  = 1
	vlcColorSpaceBT709  = 2
	vlcColorSpaceBT2020 = 3
)

// libvlc_video_color_primaries_t
const (
	vlcPrimariesBT601_525 = 1
	vlcPrimariesBT601_625 = 2
	vlcPrimariesBT709     = 3
	vlcPrimariesBT2020    = 4
)

// libvlc_video_transfer_func_t
const (
	vlcTransferLinear = 1
	vlcTransferSRGB   = 2
	vlcTransferPQ     = 6
	vlcTransferHLG    = 8
)

// Native output formats.
const (
	glRGBA     = 0x1908
	glRGB10A2  = 0x8059
	glRGBA16F  = 0x881A
	dxgiRGBA8  = 28
	dxgiRGB10  = 24
	dxgiRGBA16 = 10
)

// setupDeviceCfg mirrors libvlc_video_setup_device_cfg_t.
type setupDeviceCfg struct {
	hardwareDecoding bool
}

// setupDeviceInfo mirrors libvlc_video_setup_device_info_t. The first word
// is the D3D11 device context or the D3D9 device.
type setupDeviceInfo struct {
	device uintptr
	extra  uintptr
}

// renderCfg mirrors libvlc_video_render_cfg_t.
type renderCfg struct {
	width      uint32
	height     uint32
	bitdepth   uint32
	fullRange  bool
	colorspace int32
	primaries  int32
	transfer   int32
	device     uintptr
}

// outputCfg mirrors libvlc_video_output_cfg_t. format holds the union of
// dxgi_format, d3d9_format, opengl_format and p_surface.
type outputCfg struct {
	format      uintptr
	fullRange   bool
	colorspace  int32
	primaries   int32
	transfer    int32
	orientation int32
}

func fromRenderCfg(c *renderCfg) decoder.RenderConfig {
	rc := decoder.RenderConfig{
		Width:     c.width,
		Height:    c.height,
		BitDepth:  c.bitdepth,
		FullRange: c.fullRange,
		Device:    c.device,
	}
	switch c.colorspace {
	case vlcColorSpaceBT709:
		rc.ColorSpace = decoder.ColorSpaceBT709
	case vlcColorSpaceBT601:
		rc.ColorSpace = decoder.ColorSpaceBT601
	case vlcColorSpaceBT2020:
		rc.ColorSpace = decoder.ColorSpaceBT2020
	}
	switch c.primaries {
	case vlcPrimariesBT709:
		rc.Primaries = decoder.PrimariesBT709
	case vlcPrimariesBT601_525, vlcPrimariesBT601_625:
		rc.Primaries = decoder.PrimariesBT601
	case vlcPrimariesBT2020:
		rc.Primaries = decoder.PrimariesBT2020
	}
	switch c.transfer {
	case vlcTransferLinear:
		rc.Transfer = decoder.TransferLinear
	case vlcTransferSRGB:
		rc.Transfer = decoder.TransferSRGB
	case vlcTransferPQ:
		rc.Transfer = decoder.TransferPQ
	case vlcTransferHLG:
		rc.Transfer = decoder.TransferHLG
	}
	return rc
}

func fillOutputCfg(dst *outputCfg, e Engine, out decoder.OutputConfig) {
	*dst = outputCfg{format: nativeFormat(e, out.Format), fullRange: out.FullRange}
	switch out.ColorSpace {
	case decoder.ColorSpaceBT709:
		dst.colorspace = vlcColorSpaceBT709
	case decoder.ColorSpaceBT601:
		dst.colorspace = vlcColorSpaceBT601
	case decoder.ColorSpaceBT2020:
		dst.colorspace = vlcColorSpaceBT2020
	}
	switch out.Primaries {
	case decoder.PrimariesBT709:
		dst.primaries = vlcPrimariesBT709
	case decoder.PrimariesBT601:
		dst.primaries = vlcPrimariesBT601_625
	case decoder.PrimariesBT2020:
		dst.primaries = vlcPrimariesBT2020
	}
	switch out.Transfer {
	case decoder.TransferLinear:
		dst.transfer = vlcTransferLinear
	case decoder.TransferSRGB:
		dst.transfer = vlcTransferSRGB
	case decoder.TransferPQ:
		dst.transfer = vlcTransferPQ
	case decoder.TransferHLG:
		dst.transfer = vlcTransferHLG
	}
}

// nativeFormat returns the engine's format code for f.
func nativeFormat(e Engine, f gputypes.TextureFormat) uintptr {
	d3d := e == EngineD3D11 || e == EngineD3D9
	switch f {
	case gputypes.TextureFormatRGB10A2Unorm:
		if d3d {
			return dxgiRGB10
		}
		return glRGB10A2
	case gputypes.TextureFormatRGBA16Float:
		if d3d {
			return dxgiRGBA16
		}
		return glRGBA16F
	default:
		if d3d {
			return dxgiRGBA8
		}
		return glRGBA
	}
}

// goString copies a NUL-terminated C string.
func goString(p *byte) string {
	if p == nil {
		return ""
	}
	n := 0
	for *(*byte)(unsafe.Add(unsafe.Pointer(p), n)) != 0 {
		n++
	}
	return string(unsafe.Slice(p, n))
}
