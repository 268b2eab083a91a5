// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

// Package surface implements the shared triple buffer between a decoder and
// a presenter.
//
// A Set holds three surfaces allocated from a backend.Device. A Rotator
// assigns them the roles render, swap and display:
//
//   - Complete exchanges render and swap after the decoder finishes a frame.
//   - Fetch exchanges swap and display when a new frame is waiting.
//
// The decoder therefore never draws into the surface the presenter reads,
// and neither side waits for the other beyond a short critical section.
//
// # Usage
//
//	set := surface.NewSet(dev, "player1")
//	defer set.Close()
//
//	// decoder thread
//	if err := set.Allocate(desc); err != nil { ... }
//	target, err := set.BeginRender()
//	// draw into target
//	set.Complete()
//	set.EndRender()
//
//	// render thread
//	handle, updated := set.Fetch()
package surface
