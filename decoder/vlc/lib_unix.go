//go:build darwin || (linux && (amd64 || arm64))

package vlc

import (
	"errors"
	"fmt"
	"runtime"
	"sync"

	"github.com/ebitengine/purego"
)

var defaultPaths = func() []string {
	if runtime.GOOS == "darwin" {
		return []string{
			"libvlc.dylib",
			"/Applications/VLC.app/Contents/MacOS/lib/libvlc.dylib",
			"/usr/local/lib/libvlc.dylib",
			"/opt/homebrew/lib/libvlc.dylib",
		}
	}
	return []string{
		"libvlc.so.12",
		"libvlc.so",
		"/usr/lib/x86_64-linux-gnu/libvlc.so.12",
		"/usr/local/lib/libvlc.so",
	}
}()

func openLibrary(paths []string) (*library, error) {
	var errs []error
	for _, path := range paths {
		h, err := purego.Dlopen(path, purego.RTLD_NOW|purego.RTLD_GLOBAL)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		l, err := bind(h)
		if err != nil {
			_ = purego.Dlclose(h)
			errs = append(errs, fmt.Errorf("%s: %w", path, err))
			continue
		}
		slogger().Info("vlc: libvlc loaded", "path", path)
		return l, nil
	}
	if len(errs) == 0 {
		return nil, ErrUnavailable
	}
	return nil, fmt.Errorf("%w: %w", ErrUnavailable, errors.Join(errs...))
}

func bind(h uintptr) (*library, error) {
	l := &library{handle: h}

	sym, err := purego.Dlsym(h, "libvlc_video_set_output_callbacks")
	if err != nil {
		return nil, err
	}
	purego.RegisterFunc(&l.setOutputCallbacks, sym)

	if sym, err := purego.Dlsym(h, "libvlc_media_player_stop_async"); err == nil {
		purego.RegisterFunc(&l.stopAsync, sym)
	}

	l.callReport = func(fn, opaque uintptr, width, height uint32) {
		purego.SyscallN(fn, opaque, uintptr(width), uintptr(height))
	}
	l.tramp = newTrampolines()
	return l, nil
}

var (
	trampOnce sync.Once
	tramp     trampolines
)

// newTrampolines creates the C entry points. purego never frees callbacks,
// so they are made once per process.
func newTrampolines() trampolines {
	trampOnce.Do(func() {
		tramp = trampolines{
			setup:          purego.NewCallback(onSetup),
			cleanup:        purego.NewCallback(onCleanup),
			window:         purego.NewCallback(onWindow),
			update:         purego.NewCallback(onUpdateOutput),
			swap:           purego.NewCallback(onSwap),
			makeCurrent:    purego.NewCallback(onMakeCurrent),
			getProcAddress: purego.NewCallback(onGetProcAddress),
			selectPlane:    purego.NewCallback(onSelectPlane),
		}
	})
	return tramp
}
