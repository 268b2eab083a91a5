// Package framebridge shares decoded video frames between a media decoder
// and a game engine's renderer without copying them through the CPU.
//
// # Overview
//
// A decoder renders each frame into a GPU (or shared memory) surface that
// the host engine can present directly. The bridge owns three such surfaces
// per player and rotates them as a triple buffer, so the decoder never
// writes a surface the host is displaying and the host never waits for the
// decoder.
//
// # Quick Start
//
//	b := framebridge.New(framebridge.WithColorSpace(framebridge.ColorSpaceLinear))
//	if err := b.Load(host); err != nil {
//	    log.Printf("framebridge: %v", err) // retried on the next render event
//	}
//	defer b.Unload()
//
//	p, err := b.CreatePlayer(dec)
//	if err != nil {
//	    return err
//	}
//
//	// Once per host frame:
//	h, updated := b.FetchFrame(p.ID(), width, height)
//
// # Lifecycle
//
// The host drives the device through ProcessDeviceEvent. Players can only be
// created once the device is Ready. On Shutdown every player's decode
// device is closed; on the next Initialize it is reopened and the last
// negotiated surfaces are allocated again.
//
// # Backends
//
// Backends live in the backend package and register themselves in
// backend.Default. Importing framebridge registers all of them:
//   - wgpu: textures on the host's own HAL device (Vulkan, D3D12, Metal, GLES)
//   - memfd: shared memory surfaces exported as file descriptors (Linux)
//   - software: CPU surfaces, always available
//
// # Concurrency
//
// All Bridge methods are safe for concurrent use. Decoder hooks may run on
// the decoder's own threads concurrently with FetchFrame and with
// ReleasePlayer; release waits for hooks in flight up to WithReleaseTimeout.
//
// # Logging
//
// The bridge is silent by default. See SetLogger.
package framebridge
