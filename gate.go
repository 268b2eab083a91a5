package framebridge

import (
	"sync"
	"time"
)

// hookGate counts decoder hooks and open draws in flight for one player.
// Once closed it admits nothing new, and drain waits for the count to reach
// zero.
type hookGate struct {
	mu       sync.Mutex
	inflight int
	closed   bool
	drained  chan struct{}
}

func newHookGate() *hookGate {
	return &hookGate{drained: make(chan struct{})}
}

// enter admits one hook. It returns false after close.
func (g *hookGate) enter() bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.closed {
		return false
	}
	g.inflight++
	return true
}

func (g *hookGate) exit() {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.inflight--
	if g.closed && g.inflight == 0 {
		close(g.drained)
	}
}

// close stops admitting hooks and waits up to timeout for the ones in
// flight. It reports whether they all finished.
func (g *hookGate) close(timeout time.Duration) bool {
	g.mu.Lock()
	if !g.closed {
		g.closed = true
		if g.inflight == 0 {
			close(g.drained)
		}
	}
	g.mu.Unlock()

	t := time.NewTimer(timeout)
	defer t.Stop()
	select {
	case <-g.drained:
		return true
	case <-t.C:
		return false
	}
}

// inFlight returns the number of admitted hooks.
func (g *hookGate) inFlight() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.inflight
}
