package framebridge

import (
	"time"

	"github.com/gogpu/framebridge/backend"
)

// Option configures a Bridge during creation.
//
// Example:
//
//	b := framebridge.New(
//	    framebridge.WithColorSpace(framebridge.ColorSpaceLinear),
//	    framebridge.WithReleaseTimeout(500*time.Millisecond),
//	)
type Option func(*options)

// options holds optional configuration for Bridge creation.
type options struct {
	registry       *backend.Registry
	backendName    string
	colorSpace     ColorSpace
	bitDepth       BitDepth
	releaseTimeout time.Duration
	maxDimension   uint32
}

// Defaults.
const (
	DefaultReleaseTimeout = 2 * time.Second
	DefaultMaxDimension   = 16384
)

// defaultOptions returns the default bridge options.
func defaultOptions() options {
	return options{
		registry:       backend.Default(),
		colorSpace:     ColorSpaceGamma,
		bitDepth:       BitDepth8,
		releaseTimeout: DefaultReleaseTimeout,
		maxDimension:   DefaultMaxDimension,
	}
}

// WithRegistry selects backends from r instead of backend.Default().
func WithRegistry(r *backend.Registry) Option {
	return func(o *options) {
		if r != nil {
			o.registry = r
		}
	}
}

// WithBackend forces the named backend instead of selecting by priority.
func WithBackend(name string) Option {
	return func(o *options) {
		o.backendName = name
	}
}

// WithColorSpace sets the initial color space for new players.
func WithColorSpace(cs ColorSpace) Option {
	return func(o *options) {
		o.colorSpace = cs
	}
}

// WithBitDepth sets the initial bit depth for new players. Unsupported
// depths are ignored.
func WithBitDepth(d BitDepth) Option {
	return func(o *options) {
		if d.Valid() {
			o.bitDepth = d
		}
	}
}

// WithReleaseTimeout bounds how long ReleasePlayer waits for in-flight
// decoder hooks.
func WithReleaseTimeout(d time.Duration) Option {
	return func(o *options) {
		if d > 0 {
			o.releaseTimeout = d
		}
	}
}

// WithMaxDimension bounds the sizes reported to decoders from FetchFrame.
func WithMaxDimension(n uint32) Option {
	return func(o *options) {
		if n > 0 {
			o.maxDimension = n
		}
	}
}
