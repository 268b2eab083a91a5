package vlc

import (
	"errors"
	"os"
	"sync"
)

// ErrUnavailable is returned when libvlc cannot be loaded.
var ErrUnavailable = errors.New("vlc: libvlc not available")

// Environment variables consulted by the loader.
const (
	EnvLibPath    = "VLC_LIB_PATH"
	EnvPluginPath = "VLC_PLUGIN_PATH"
)

// library holds the resolved libvlc entry points.
type library struct {
	handle uintptr

	setOutputCallbacks func(mp uintptr, engine int32,
		setup, cleanup, window, update, swap, makeCurrent, getProcAddress, metadata, selectPlane uintptr,
		opaque uintptr) bool
	stopAsync  func(mp uintptr) int32
	callReport func(fn, opaque uintptr, width, height uint32)

	tramp trampolines
}

var (
	loadOnce sync.Once
	loaded   *library
	loadErr  error

	pathMu      sync.Mutex
	libraryPath string
)

// Load opens libvlc and resolves the symbols the binding needs. Only the
// first call does any work.
func Load() error {
	loadOnce.Do(func() {
		loaded, loadErr = openLibrary(searchPaths())
		if loadErr != nil {
			slogger().Warn("vlc: libvlc not loaded", "err", loadErr)
		}
	})
	return loadErr
}

// Loaded reports whether libvlc has been loaded.
func Loaded() bool {
	return Load() == nil
}

// SetLibraryPath sets an explicit libvlc path tried before the defaults. It
// must be called before Load.
func SetLibraryPath(path string) {
	pathMu.Lock()
	libraryPath = path
	pathMu.Unlock()
}

// SetPluginSearchPath points libvlc at its plugin directory. It must be
// called before the host creates its libvlc instance.
func SetPluginSearchPath(dir string) error {
	if dir == "" {
		return nil
	}
	slogger().Info("vlc: plugin path set", "path", dir)
	return os.Setenv(EnvPluginPath, dir)
}

func searchPaths() []string {
	var paths []string
	pathMu.Lock()
	if libraryPath != "" {
		paths = append(paths, libraryPath)
	}
	pathMu.Unlock()
	if p := os.Getenv(EnvLibPath); p != "" {
		paths = append(paths, p)
	}
	return append(paths, defaultPaths...)
}

// libHook replaces the loaded library in tests.
var libHook *library

func current() (*library, error) {
	if libHook != nil {
		return libHook, nil
	}
	if err := Load(); err != nil {
		return nil, err
	}
	return loaded, nil
}
