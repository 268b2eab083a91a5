// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package surface

import (
	"errors"
	"fmt"

	"github.com/gogpu/framebridge/backend"
)

var (
	// ErrAllocation matches every *AllocationError.
	ErrAllocation = errors.New("surface: allocation failed")

	// ErrClosed is returned by operations on a closed Set.
	ErrClosed = errors.New("surface: set closed")

	// ErrNoSurfaces is returned by BeginRender before the first successful
	// Allocate.
	ErrNoSurfaces = errors.New("surface: no surfaces allocated")

	// ErrRenderActive is returned by BeginRender while a render session is
	// already open.
	ErrRenderActive = errors.New("surface: render session already active")
)

// AllocationError reports a failed set allocation. The previous surfaces,
// if any, are still in place.
type AllocationError struct {
	Desc backend.Descriptor
	// Slot is the index that failed, or -1 when the request was rejected
	// before any surface was created.
	Slot int
	Err  error
}

func (e *AllocationError) Error() string {
	if e.Slot < 0 {
		return fmt.Sprintf("surface: allocate %dx%d %v: %v", e.Desc.Width, e.Desc.Height, e.Desc.Format, e.Err)
	}
	return fmt.Sprintf("surface: allocate %dx%d %v slot %d: %v", e.Desc.Width, e.Desc.Height, e.Desc.Format, e.Slot, e.Err)
}

// Unwrap exposes both ErrAllocation and the backend cause.
func (e *AllocationError) Unwrap() []error { return []error{ErrAllocation, e.Err} }
