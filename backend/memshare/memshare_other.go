//go:build !linux

package memshare

import (
	"fmt"

	"github.com/gogpu/framebridge/backend"
)

// Available reports false: memfd is Linux only.
func Available() bool { return false }

func openDevice() (backend.Device, error) {
	return nil, fmt.Errorf("memshare: %w: memfd requires linux", backend.ErrBackendNotAvailable)
}
