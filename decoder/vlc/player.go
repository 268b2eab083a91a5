// Package vlc attaches the frame bridge to a libvlc media player through
// libvlc's video output callbacks. libvlc is loaded at run time with purego;
// nothing links against it.
//
// The host creates the libvlc instance and media player itself and hands
// the player pointer over:
//
//	mp, err := vlc.NewMediaPlayer(ptr, vlc.EngineFor(renderer))
//	p, err := bridge.CreatePlayer(mp)
package vlc

import (
	"errors"
	"fmt"
	"sync"

	"github.com/gogpu/framebridge/decoder"
)

var (
	// ErrInvalidPlayer is returned for a nil media player pointer.
	ErrInvalidPlayer = errors.New("vlc: invalid media player")

	// ErrUnsupportedEngine is returned when no libvlc engine matches the
	// host renderer.
	ErrUnsupportedEngine = errors.New("vlc: unsupported video engine")

	// ErrAttached is returned when attaching callbacks twice.
	ErrAttached = errors.New("vlc: callbacks already attached")

	// ErrCallbacksRejected is returned when libvlc refuses the callbacks.
	ErrCallbacksRejected = errors.New("vlc: output callbacks rejected")
)

// MediaPlayer is a libvlc_media_player_t driven through output callbacks.
type MediaPlayer struct {
	mp     uintptr
	engine Engine

	mu     sync.Mutex
	lib    *library
	handle uintptr
	cb     decoder.Callbacks
}

// NewMediaPlayer wraps the libvlc_media_player_t at mp.
func NewMediaPlayer(mp uintptr, engine Engine) (*MediaPlayer, error) {
	if mp == 0 {
		return nil, ErrInvalidPlayer
	}
	if engine == EngineDisable {
		return nil, ErrUnsupportedEngine
	}
	return &MediaPlayer{mp: mp, engine: engine}, nil
}

// ID returns the media player pointer.
func (m *MediaPlayer) ID() uintptr { return m.mp }

// Engine returns the engine the callbacks are installed for.
func (m *MediaPlayer) Engine() Engine { return m.engine }

func (m *MediaPlayer) callbacks() decoder.Callbacks {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.cb
}

// Attach installs cb as the player's video output.
func (m *MediaPlayer) Attach(cb decoder.Callbacks) error {
	l, err := current()
	if err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if m.handle != 0 {
		return ErrAttached
	}
	m.lib, m.cb = l, cb
	m.handle = handles.add(m)

	t := l.tramp
	if !l.setOutputCallbacks(m.mp, int32(m.engine),
		t.setup, t.cleanup, t.window, t.update, t.swap, t.makeCurrent, t.getProcAddress, 0, t.selectPlane,
		m.handle) {
		handles.remove(m.handle)
		m.handle, m.cb = 0, nil
		return fmt.Errorf("%w: engine %s", ErrCallbacksRejected, m.engine)
	}
	slogger().Debug("vlc: output callbacks attached", "player", m.mp, "engine", m.engine.String())
	return nil
}

// Detach stops playback and removes the output callbacks. Callbacks already
// running finish against the old hook table; later ones find nothing.
func (m *MediaPlayer) Detach() error {
	m.mu.Lock()
	l, h := m.lib, m.handle
	m.handle, m.cb = 0, nil
	m.mu.Unlock()
	if h == 0 {
		return nil
	}
	handles.remove(h)

	if l.stopAsync != nil && l.stopAsync(m.mp) != 0 {
		slogger().Debug("vlc: stop request failed", "player", m.mp)
	}
	l.setOutputCallbacks(m.mp, int32(EngineDisable), 0, 0, 0, 0, 0, 0, 0, 0, 0, 0)
	slogger().Debug("vlc: output callbacks detached", "player", m.mp)
	return nil
}

var _ decoder.Decoder = (*MediaPlayer)(nil)
