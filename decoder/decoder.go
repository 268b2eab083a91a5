// Package decoder defines the callback contract between a media decoder and
// the frame bridge.
//
// A decoder draws into surfaces it does not own. It announces its lifecycle
// through a fixed table of hooks, invoked from decoder-owned threads:
//
//	Setup              once, before any other hook; returns the decode device
//	SetResizeCallback  registers how the host can ask for a different size
//	Resize             negotiates size and color tagging; may repeat
//	MakeCurrent(true)  opens a draw; the render surface is bound and cleared
//	SelectPlane        picks the plane to draw; only plane 0 is supported
//	Swap               the frame is finished
//	MakeCurrent(false) closes the draw
//	Cleanup            once, after the last frame
//
// Hooks may arrive on any thread and must not assume they share one with the
// presenter.
package decoder

import (
	"fmt"

	"github.com/gogpu/framebridge/backend"
	"github.com/gogpu/gputypes"
)

// ColorSpace is the matrix coefficients tag of the output.
type ColorSpace int

// Color spaces.
const (
	ColorSpaceUnknown ColorSpace = iota
	ColorSpaceBT709
	ColorSpaceBT601
	ColorSpaceBT2020
)

func (c ColorSpace) String() string {
	switch c {
	case ColorSpaceBT709:
		return "bt709"
	case ColorSpaceBT601:
		return "bt601"
	case ColorSpaceBT2020:
		return "bt2020"
	default:
		return "unknown"
	}
}

// Primaries is the color primaries tag of the output.
type Primaries int

// Color primaries.
const (
	PrimariesUnknown Primaries = iota
	PrimariesBT709
	PrimariesBT601
	PrimariesBT2020
)

func (p Primaries) String() string {
	switch p {
	case PrimariesBT709:
		return "bt709"
	case PrimariesBT601:
		return "bt601"
	case PrimariesBT2020:
		return "bt2020"
	default:
		return "unknown"
	}
}

// Transfer is the transfer function tag of the output.
type Transfer int

// Transfer functions.
const (
	TransferUnknown Transfer = iota
	TransferLinear
	TransferSRGB
	TransferPQ
	TransferHLG
)

func (t Transfer) String() string {
	switch t {
	case TransferLinear:
		return "linear"
	case TransferSRGB:
		return "srgb"
	case TransferPQ:
		return "pq"
	case TransferHLG:
		return "hlg"
	default:
		return "unknown"
	}
}

// SetupConfig is what the decoder passes to Setup.
type SetupConfig struct {
	HardwareDecoding bool
}

// RenderConfig is the decoder's proposed output for Resize.
type RenderConfig struct {
	Width      uint32
	Height     uint32
	BitDepth   uint32
	FullRange  bool
	ColorSpace ColorSpace
	Primaries  Primaries
	Transfer   Transfer
	// Device is the decoder's own device pointer, if any.
	Device uintptr
}

// OutputConfig is the negotiated output returned from Resize.
type OutputConfig struct {
	Format     gputypes.TextureFormat
	FullRange  bool
	ColorSpace ColorSpace
	Primaries  Primaries
	Transfer   Transfer
}

func (o OutputConfig) String() string {
	return fmt.Sprintf("%v full=%v %v/%v/%v", o.Format, o.FullRange, o.ColorSpace, o.Primaries, o.Transfer)
}

// ReportFunc tells the decoder the size the host wants to display.
type ReportFunc func(width, height uint32)

// Callbacks is the hook table a decoder invokes.
type Callbacks interface {
	// Setup returns the decode device. false means the decoder must not
	// proceed.
	Setup(cfg SetupConfig) (backend.DeviceInfo, bool)

	// Cleanup releases the output surfaces. It may be called more than once.
	Cleanup()

	// SetResizeCallback registers the decoder's size report function.
	// A nil report clears it.
	SetResizeCallback(report ReportFunc)

	// Resize (re)allocates surfaces for cfg and returns the negotiated
	// output. false means the decoder must stop driving output until a
	// later Resize succeeds.
	Resize(cfg RenderConfig) (OutputConfig, bool)

	// SelectPlane reports whether plane can be rendered.
	SelectPlane(plane int) bool

	// Swap marks the current frame complete.
	Swap()

	// MakeCurrent opens (enter=true) or closes a draw.
	MakeCurrent(enter bool) bool

	// GetProcAddress resolves a GL-style function name, or returns 0.
	GetProcAddress(name string) uintptr
}

// Decoder is a decoder instance the bridge can attach to.
type Decoder interface {
	// ID is the opaque identity of the instance.
	ID() uintptr

	// Attach installs the hook table. Hooks may start firing immediately.
	Attach(cb Callbacks) error

	// Detach uninstalls the hook table. Hooks already running may still
	// complete after Detach returns.
	Detach() error
}
