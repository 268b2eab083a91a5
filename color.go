package framebridge

import (
	"fmt"

	"github.com/gogpu/framebridge/decoder"
	"github.com/gogpu/gputypes"
)

// ColorSpace selects the transfer function negotiated with the decoder.
// It should match the host project's color space setting.
type ColorSpace int

const (
	// ColorSpaceGamma negotiates sRGB-encoded output.
	ColorSpaceGamma ColorSpace = iota
	// ColorSpaceLinear negotiates linear output.
	ColorSpaceLinear
)

func (c ColorSpace) String() string {
	switch c {
	case ColorSpaceGamma:
		return "gamma"
	case ColorSpaceLinear:
		return "linear"
	default:
		return fmt.Sprintf("colorspace(%d)", int(c))
	}
}

// BitDepth is the per-channel precision of the shared surfaces.
type BitDepth int

// Supported bit depths.
const (
	BitDepth8  BitDepth = 8
	BitDepth10 BitDepth = 10
	BitDepth16 BitDepth = 16
)

// Valid reports whether d is a supported depth.
func (d BitDepth) Valid() bool {
	switch d {
	case BitDepth8, BitDepth10, BitDepth16:
		return true
	}
	return false
}

// Format returns the surface format for d.
func (d BitDepth) Format() gputypes.TextureFormat {
	switch d {
	case BitDepth10:
		return gputypes.TextureFormatRGB10A2Unorm
	case BitDepth16:
		return gputypes.TextureFormatRGBA16Float
	default:
		return gputypes.TextureFormatRGBA8Unorm
	}
}

// negotiate returns the output reported to the decoder. Output is always
// full range BT.709; only the transfer function follows the color space.
func negotiate(cs ColorSpace, depth BitDepth) decoder.OutputConfig {
	out := decoder.OutputConfig{
		Format:     depth.Format(),
		FullRange:  true,
		ColorSpace: decoder.ColorSpaceBT709,
		Primaries:  decoder.PrimariesBT709,
		Transfer:   decoder.TransferSRGB,
	}
	if cs == ColorSpaceLinear {
		out.Transfer = decoder.TransferLinear
	}
	return out
}
