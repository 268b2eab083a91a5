// Command framebridge is the engine plugin, built with
//
//	go build -buildmode=c-shared -o libframebridge.so ./cmd/framebridge
//
// Unity loads it through UnityPluginLoad. Every exported function recovers
// panics and reports them as a status code; nothing unwinds into the host.
package main

/*
#include <stdbool.h>
#include "unity.h"
*/
import "C"

import (
	"fmt"
	"unsafe"

	"github.com/gogpu/framebridge"
	"github.com/gogpu/framebridge/decoder/vlc"
)

var plug = newPlugin()

// guard converts a panic into statusInternal.
func guard(name string, status *C.int) {
	if r := recover(); r != nil {
		framebridge.Logger().Error("framebridge: panic in exported call", "func", name, "panic", fmt.Sprint(r))
		if status != nil {
			*status = statusInternal
		}
	}
}

//export UnityPluginLoad
func UnityPluginLoad(ifs *C.IUnityInterfaces) {
	defer guard("UnityPluginLoad", nil)
	if C.fbUnityAttach(ifs) == 0 {
		framebridge.Logger().Warn("framebridge: IUnityGraphics not available")
		return
	}
	host := &unityHost{
		renderer:   func() int { return int(C.fbUnityRenderer()) },
		register:   func() { C.fbUnityRegister() },
		unregister: func() { C.fbUnityUnregister() },
	}
	if err := plug.load(host); err != nil {
		framebridge.Logger().Warn("framebridge: load deferred", "err", err)
	}
}

//export UnityPluginUnload
func UnityPluginUnload() {
	defer guard("UnityPluginUnload", nil)
	if err := plug.unload(); err != nil {
		framebridge.Logger().Warn("framebridge: unload", "err", err)
	}
}

//export FrameBridgeCreatePlayer
func FrameBridgeCreatePlayer(mp unsafe.Pointer) (status C.int) {
	defer guard("FrameBridgeCreatePlayer", &status)
	return C.int(statusFor(plug.createPlayer(uintptr(mp))))
}

//export FrameBridgeReleasePlayer
func FrameBridgeReleasePlayer(mp unsafe.Pointer) (status C.int) {
	defer guard("FrameBridgeReleasePlayer", &status)
	return C.int(statusFor(plug.releasePlayer(uintptr(mp))))
}

// FrameBridgeFetchFrame returns a native texture pointer, or NULL when the
// selected backend does not present textures.
//
//export FrameBridgeFetchFrame
func FrameBridgeFetchFrame(mp unsafe.Pointer, width, height C.uint, updated *C.bool) (handle C.uintptr_t) {
	defer guard("FrameBridgeFetchFrame", nil)
	h, ok := plug.fetchFrame(uintptr(mp), uint32(width), uint32(height))
	tex := textureOf(h)
	if updated != nil {
		*updated = C.bool(ok && tex != 0)
	}
	return C.uintptr_t(tex)
}

// FrameBridgeFetchFrameHandle is FrameBridgeFetchFrame for hosts that can
// import every handle kind. kind receives the backend.HandleKind.
//
//export FrameBridgeFetchFrameHandle
func FrameBridgeFetchFrameHandle(mp unsafe.Pointer, width, height C.uint, updated *C.bool, kind *C.int) (handle C.uintptr_t) {
	defer guard("FrameBridgeFetchFrameHandle", nil)
	h, ok := plug.fetchFrame(uintptr(mp), uint32(width), uint32(height))
	if updated != nil {
		*updated = C.bool(ok)
	}
	if kind != nil {
		*kind = C.int(h.Kind)
	}
	return C.uintptr_t(h.Value)
}

//export FrameBridgeSetColorSpace
func FrameBridgeSetColorSpace(cs C.int) {
	defer guard("FrameBridgeSetColorSpace", nil)
	plug.setColorSpace(framebridge.ColorSpace(cs))
}

//export FrameBridgeSetBitDepth
func FrameBridgeSetBitDepth(mp unsafe.Pointer, bits C.int) (status C.int) {
	defer guard("FrameBridgeSetBitDepth", &status)
	return C.int(statusFor(plug.setBitDepth(uintptr(mp), int(bits))))
}

//export FrameBridgeSetPluginPath
func FrameBridgeSetPluginPath(path *C.char) (status C.int) {
	defer guard("FrameBridgeSetPluginPath", &status)
	if path == nil {
		return statusInvalidHandle
	}
	return C.int(statusFor(vlc.SetPluginSearchPath(C.GoString(path))))
}

//export FrameBridgeGetRenderEventFunc
func FrameBridgeGetRenderEventFunc() C.UnityRenderingEvent {
	return C.fbRenderEventFunc()
}

//export goDeviceEvent
func goDeviceEvent(ev C.int) {
	defer guard("deviceEvent", nil)
	plug.deviceEvent(int(ev))
}

//export goRenderEvent
func goRenderEvent(id C.int) {
	defer guard("renderEvent", nil)
	plug.renderEvent(int(id))
}

func main() {}
