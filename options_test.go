package framebridge

import (
	"testing"
	"time"

	"github.com/gogpu/framebridge/backend"
)

func TestDefaultOptions(t *testing.T) {
	o := defaultOptions()
	if o.registry != backend.Default() {
		t.Error("registry is not backend.Default()")
	}
	if o.colorSpace != ColorSpaceGamma {
		t.Errorf("colorSpace = %v, want %v", o.colorSpace, ColorSpaceGamma)
	}
	if o.bitDepth != BitDepth8 {
		t.Errorf("bitDepth = %d, want 8", o.bitDepth)
	}
	if o.releaseTimeout != DefaultReleaseTimeout {
		t.Errorf("releaseTimeout = %v, want %v", o.releaseTimeout, DefaultReleaseTimeout)
	}
	if o.maxDimension != DefaultMaxDimension {
		t.Errorf("maxDimension = %d, want %d", o.maxDimension, DefaultMaxDimension)
	}
}

func TestOptions(t *testing.T) {
	r := backend.NewRegistry()
	o := defaultOptions()
	for _, opt := range []Option{
		WithRegistry(r),
		WithBackend(backend.BackendSoftware),
		WithColorSpace(ColorSpaceLinear),
		WithBitDepth(BitDepth16),
		WithReleaseTimeout(time.Second),
		WithMaxDimension(4096),
	} {
		opt(&o)
	}

	if o.registry != r {
		t.Error("WithRegistry() not applied")
	}
	if o.backendName != backend.BackendSoftware {
		t.Errorf("backendName = %q, want %q", o.backendName, backend.BackendSoftware)
	}
	if o.colorSpace != ColorSpaceLinear {
		t.Errorf("colorSpace = %v, want %v", o.colorSpace, ColorSpaceLinear)
	}
	if o.bitDepth != BitDepth16 {
		t.Errorf("bitDepth = %d, want 16", o.bitDepth)
	}
	if o.releaseTimeout != time.Second {
		t.Errorf("releaseTimeout = %v, want 1s", o.releaseTimeout)
	}
	if o.maxDimension != 4096 {
		t.Errorf("maxDimension = %d, want 4096", o.maxDimension)
	}
}

func TestOptionsIgnoreInvalid(t *testing.T) {
	o := defaultOptions()
	for _, opt := range []Option{
		WithRegistry(nil),
		WithBitDepth(12),
		WithReleaseTimeout(0),
		WithMaxDimension(0),
	} {
		opt(&o)
	}
	want := defaultOptions()
	if o != want {
		t.Errorf("options = %+v, want defaults %+v", o, want)
	}
}
