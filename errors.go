package framebridge

import (
	"errors"

	"github.com/gogpu/framebridge/surface"
)

var (
	// ErrNoPresentationDevice is returned by CreatePlayer while the host
	// device is not initialized, or its renderer is unsupported.
	ErrNoPresentationDevice = errors.New("framebridge: no presentation device")

	// ErrDeviceUnavailable is returned when the decode device cannot be
	// opened. It is retried on the next Initialize event.
	ErrDeviceUnavailable = errors.New("framebridge: decode device unavailable")

	// ErrUnsupportedRequest is returned for unsupported planes and bit depths.
	ErrUnsupportedRequest = errors.New("framebridge: unsupported request")

	// ErrInvalidHandle is returned for unknown or released players.
	ErrInvalidHandle = errors.New("framebridge: invalid player handle")

	// ErrReentrancy reports a double Initialize or a nested draw. It is
	// logged and ignored.
	ErrReentrancy = errors.New("framebridge: reentrancy violation")

	// ErrPlayerExists is returned by CreatePlayer for a decoder identity that
	// already has a live player.
	ErrPlayerExists = errors.New("framebridge: player already exists")

	// ErrReleaseTimeout is logged when decoder hooks are still running after
	// ReleaseTimeout.
	ErrReleaseTimeout = errors.New("framebridge: timed out waiting for decoder hooks")
)

// AllocationError reports a failed surface allocation. The previous surfaces
// remain in place.
type AllocationError = surface.AllocationError

// ErrAllocation matches every AllocationError.
var ErrAllocation = surface.ErrAllocation
