package vlc

import "sync"

// handleTable hands out the opaque values libvlc passes back to the
// callback trampolines. C never holds a Go pointer.
type handleTable struct {
	mu      sync.RWMutex
	next    uintptr
	players map[uintptr]*MediaPlayer
}

var handles = &handleTable{players: make(map[uintptr]*MediaPlayer)}

func (t *handleTable) add(m *MediaPlayer) uintptr {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.next++
	t.players[t.next] = m
	return t.next
}

func (t *handleTable) get(h uintptr) (*MediaPlayer, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	m, ok := t.players[h]
	return m, ok
}

func (t *handleTable) remove(h uintptr) {
	t.mu.Lock()
	defer t.mu.Unlock()
	delete(t.players, h)
}

func (t *handleTable) len() int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return len(t.players)
}
