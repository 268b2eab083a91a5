package framebridge

import (
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/gogpu/framebridge/backend"
	"github.com/gogpu/framebridge/decoder/synthetic"
	"github.com/gogpu/gpucontext"
)

// fakeHost is a host whose renderer can change between events.
type fakeHost struct {
	mu       sync.Mutex
	renderer backend.Renderer
}

func (h *fakeHost) Renderer() backend.Renderer {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.renderer
}

func (h *fakeHost) PresentationDevice() gpucontext.DeviceProvider { return nil }

func (h *fakeHost) setRenderer(r backend.Renderer) {
	h.mu.Lock()
	h.renderer = r
	h.mu.Unlock()
}

// eventHost delivers Initialize from inside the registration call.
type eventHost struct {
	fakeHost
	cbMu sync.Mutex
	cb   func(DeviceEvent)
}

func (h *eventHost) RegisterDeviceEventCallback(fn func(DeviceEvent)) {
	h.cbMu.Lock()
	h.cb = fn
	h.cbMu.Unlock()
	fn(DeviceEventInitialize)
}

func (h *eventHost) UnregisterDeviceEventCallback() {
	h.cbMu.Lock()
	h.cb = nil
	h.cbMu.Unlock()
}

func (h *eventHost) fire(ev DeviceEvent) {
	h.cbMu.Lock()
	fn := h.cb
	h.cbMu.Unlock()
	if fn != nil {
		fn(ev)
	}
}

func (h *eventHost) registered() bool {
	h.cbMu.Lock()
	defer h.cbMu.Unlock()
	return h.cb != nil
}

// testDevice is a software device that records presentation resets and
// can run a hook inside BindTarget.
type testDevice struct {
	*backend.SoftwareDevice

	mu     sync.Mutex
	resets []bool
	onBind func()
}

func (d *testDevice) Allocate(desc backend.Descriptor) (backend.Surface, error) {
	s, err := d.SoftwareDevice.Allocate(desc)
	if err != nil {
		return nil, err
	}
	return &hookedSurface{Surface: s, dev: d}, nil
}

func (d *testDevice) setBindHook(fn func()) {
	d.mu.Lock()
	d.onBind = fn
	d.mu.Unlock()
}

type hookedSurface struct {
	backend.Surface
	dev *testDevice
}

func (s *hookedSurface) Handle() backend.Handle {
	return s.Surface.(backend.Presentable).Handle()
}

func (s *hookedSurface) BindTarget() (backend.Target, error) {
	s.dev.mu.Lock()
	fn := s.dev.onBind
	s.dev.mu.Unlock()
	if fn != nil {
		fn()
	}
	return s.Surface.BindTarget()
}

func (d *testDevice) PresentationReset(after bool) {
	d.mu.Lock()
	d.resets = append(d.resets, after)
	d.mu.Unlock()
}

func (d *testDevice) Resets() []bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return append([]bool(nil), d.resets...)
}

// testBackend opens testDevices and counts them. The registry's probe
// device is counted too.
type testBackend struct {
	opens atomic.Int32

	mu      sync.Mutex
	devices []*testDevice
}

func (b *testBackend) Name() string { return "test" }

func (b *testBackend) Open(p gpucontext.DeviceProvider) (backend.Device, error) {
	dev, err := backend.NewSoftwareBackend().Open(p)
	if err != nil {
		return nil, err
	}
	td := &testDevice{SoftwareDevice: dev.(*backend.SoftwareDevice)}
	b.opens.Add(1)
	b.mu.Lock()
	b.devices = append(b.devices, td)
	b.mu.Unlock()
	return td, nil
}

func (b *testBackend) last() *testDevice {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.devices[len(b.devices)-1]
}

func testRegistry(tb *testBackend, available *atomic.Bool) *backend.Registry {
	r := backend.NewRegistry()
	e := backend.Entry{
		Name:     "test",
		Priority: 1,
		Factory:  func() backend.Backend { return tb },
	}
	if available != nil {
		e.Available = available.Load
	}
	r.Register(e)
	return r
}

// newTestBridge returns a Ready bridge on a null renderer host.
func newTestBridge(t *testing.T, opts ...Option) (*Bridge, *testBackend) {
	t.Helper()
	tb := &testBackend{}
	b := New(append([]Option{WithRegistry(testRegistry(tb, nil))}, opts...)...)
	if err := b.Load(&fakeHost{renderer: backend.RendererNull}); err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	t.Cleanup(func() { _ = b.Unload() })
	return b, tb
}

func newTestPlayer(t *testing.T, b *Bridge, id uintptr) (*Player, *synthetic.Decoder) {
	t.Helper()
	dec := synthetic.New(id)
	p, err := b.CreatePlayer(dec)
	if err != nil {
		t.Fatalf("CreatePlayer() error = %v", err)
	}
	return p, dec
}

func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(5 * time.Second)
	for !cond() {
		if time.Now().After(deadline) {
			t.Fatal("condition not met before deadline")
		}
		time.Sleep(time.Millisecond)
	}
}

func TestBridge_FetchNewestFrame(t *testing.T) {
	b, _ := newTestBridge(t)
	p, dec := newTestPlayer(t, b, 1)

	if err := dec.Open(64, 64); err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	for i := 0; i < 3; i++ {
		if err := dec.Frame(); err != nil {
			t.Fatalf("Frame() error = %v", err)
		}
	}

	h1, updated := b.FetchFrame(1, 64, 64)
	if !updated || h1.IsZero() {
		t.Fatalf("FetchFrame() = (%v, %v), want a new frame", h1, updated)
	}
	h2, updated := b.FetchFrame(1, 64, 64)
	if updated {
		t.Error("second FetchFrame() updated = true, want false")
	}
	if h2 != h1 {
		t.Errorf("second FetchFrame() = %v, want %v", h2, h1)
	}

	st := p.Stats()
	if st.Swaps != 3 {
		t.Errorf("Swaps = %d, want 3", st.Swaps)
	}
	if st.FramesPresented != 1 || st.FramesDropped != 2 {
		t.Errorf("presented/dropped = %d/%d, want 1/2", st.FramesPresented, st.FramesDropped)
	}
	if !st.WriteParity {
		t.Error("WriteParity = false after 3 swaps, want true")
	}
	if st.Backend != "test" {
		t.Errorf("Backend = %q, want %q", st.Backend, "test")
	}
}

func TestBridge_DoubleInitialize(t *testing.T) {
	b, tb := newTestBridge(t)
	p, _ := newTestPlayer(t, b, 1)

	opens := tb.opens.Load()
	dev := p.device()

	err := b.ProcessDeviceEvent(DeviceEventInitialize)
	if !errors.Is(err, ErrReentrancy) {
		t.Errorf("second Initialize error = %v, want ErrReentrancy", err)
	}
	if got := tb.opens.Load(); got != opens {
		t.Errorf("devices opened = %d, want %d", got, opens)
	}
	if p.device() != dev {
		t.Error("second Initialize replaced the player's device")
	}
	if b.State() != StateReady {
		t.Errorf("State() = %v, want %v", b.State(), StateReady)
	}
}

func TestBridge_ReleaseDuringSwaps(t *testing.T) {
	b, tb := newTestBridge(t)
	p, dec := newTestPlayer(t, b, 7)
	dev := tb.last()

	dec.Start(32, 32, 0)
	t.Cleanup(dec.Stop)

	stop := make(chan struct{})
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		for {
			select {
			case <-stop:
				return
			default:
			}
			b.FetchFrame(7, 32, 32)
		}
	}()

	waitFor(t, func() bool { return p.Stats().Swaps >= 10 })
	if err := b.ReleasePlayer(7); err != nil {
		t.Errorf("ReleasePlayer() error = %v", err)
	}
	close(stop)
	wg.Wait()
	dec.Stop()

	if _, ok := b.Player(7); ok {
		t.Error("Player(7) found after release")
	}
	if h, updated := b.FetchFrame(7, 32, 32); !h.IsZero() || updated {
		t.Errorf("FetchFrame() after release = (%v, %v), want zero", h, updated)
	}
	if got := p.Stats().HooksInFlight; got != 0 {
		t.Errorf("HooksInFlight = %d, want 0", got)
	}
	if got := dev.Live(); got != 0 {
		t.Errorf("live surfaces = %d, want 0", got)
	}
}

func TestBridge_ReleaseTwice(t *testing.T) {
	b, _ := newTestBridge(t)
	newTestPlayer(t, b, 3)

	for i := 0; i < 2; i++ {
		if err := b.ReleasePlayer(3); err != nil {
			t.Errorf("ReleasePlayer() #%d error = %v", i+1, err)
		}
	}
	if err := b.ReleasePlayer(99); err != nil {
		t.Errorf("ReleasePlayer(unknown) error = %v, want nil", err)
	}
	if got := b.Players().Len(); got != 0 {
		t.Errorf("Players().Len() = %d, want 0", got)
	}
}

func TestBridge_CreatePlayer(t *testing.T) {
	t.Run("before load", func(t *testing.T) {
		b := New(WithRegistry(testRegistry(&testBackend{}, nil)))
		_, err := b.CreatePlayer(synthetic.New(1))
		if !errors.Is(err, ErrNoPresentationDevice) {
			t.Errorf("CreatePlayer() error = %v, want ErrNoPresentationDevice", err)
		}
	})

	t.Run("duplicate", func(t *testing.T) {
		b, _ := newTestBridge(t)
		newTestPlayer(t, b, 1)
		_, err := b.CreatePlayer(synthetic.New(1))
		if !errors.Is(err, ErrPlayerExists) {
			t.Errorf("CreatePlayer() error = %v, want ErrPlayerExists", err)
		}
	})

	t.Run("nil decoder", func(t *testing.T) {
		b, _ := newTestBridge(t)
		if _, err := b.CreatePlayer(nil); !errors.Is(err, ErrInvalidHandle) {
			t.Errorf("CreatePlayer(nil) error = %v, want ErrInvalidHandle", err)
		}
	})

	t.Run("id reusable after release", func(t *testing.T) {
		b, _ := newTestBridge(t)
		newTestPlayer(t, b, 5)
		if err := b.ReleasePlayer(5); err != nil {
			t.Fatalf("ReleasePlayer() error = %v", err)
		}
		newTestPlayer(t, b, 5)
	})
}

func TestBridge_ShutdownAndReinitialize(t *testing.T) {
	b, tb := newTestBridge(t)
	p, dec := newTestPlayer(t, b, 1)
	if err := dec.Open(64, 48); err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	if err := dec.Frame(); err != nil {
		t.Fatalf("Frame() error = %v", err)
	}
	old := tb.last()

	if err := b.ProcessDeviceEvent(DeviceEventShutdown); err != nil {
		t.Fatalf("Shutdown error = %v", err)
	}
	if b.State() != StateUninitialized {
		t.Errorf("State() = %v, want %v", b.State(), StateUninitialized)
	}
	if b.BackendName() != "" {
		t.Errorf("BackendName() = %q, want empty", b.BackendName())
	}
	if got := old.Live(); got != 0 {
		t.Errorf("live surfaces after shutdown = %d, want 0", got)
	}
	if h, _ := b.FetchFrame(1, 64, 48); !h.IsZero() {
		t.Errorf("FetchFrame() after shutdown = %v, want zero", h)
	}
	if _, err := b.CreatePlayer(synthetic.New(2)); !errors.Is(err, ErrNoPresentationDevice) {
		t.Errorf("CreatePlayer() after shutdown error = %v, want ErrNoPresentationDevice", err)
	}
	if err := b.ProcessDeviceEvent(DeviceEventShutdown); err != nil {
		t.Errorf("second Shutdown error = %v, want nil", err)
	}

	if err := b.ProcessDeviceEvent(DeviceEventInitialize); err != nil {
		t.Fatalf("Initialize error = %v", err)
	}
	st := p.Stats()
	if st.Desc.Width != 64 || st.Desc.Height != 48 {
		t.Errorf("restored surfaces = %dx%d, want 64x48", st.Desc.Width, st.Desc.Height)
	}
	if tb.last() == old {
		t.Error("player kept its closed device")
	}
	if err := dec.Frame(); err != nil {
		t.Fatalf("Frame() after reinitialize error = %v", err)
	}
	if _, updated := b.FetchFrame(1, 64, 48); !updated {
		t.Error("FetchFrame() after reinitialize updated = false, want true")
	}
}

func TestBridge_ResetForwarded(t *testing.T) {
	b, tb := newTestBridge(t)
	newTestPlayer(t, b, 1)
	dev := tb.last()

	for _, ev := range []DeviceEvent{DeviceEventBeforeReset, DeviceEventAfterReset} {
		if err := b.ProcessDeviceEvent(ev); err != nil {
			t.Errorf("ProcessDeviceEvent(%v) error = %v", ev, err)
		}
	}
	got := dev.Resets()
	if len(got) != 2 || got[0] || !got[1] {
		t.Errorf("resets = %v, want [false true]", got)
	}
	if err := b.ProcessDeviceEvent(DeviceEvent(42)); !errors.Is(err, ErrUnsupportedRequest) {
		t.Errorf("unknown event error = %v, want ErrUnsupportedRequest", err)
	}
}

func TestBridge_PendingInitialize(t *testing.T) {
	tb := &testBackend{}
	b := New(WithRegistry(testRegistry(tb, nil)))
	host := &fakeHost{}

	if err := b.Load(host); !errors.Is(err, ErrNoPresentationDevice) {
		t.Errorf("Load() error = %v, want ErrNoPresentationDevice", err)
	}
	if b.State() != StateUninitialized {
		t.Fatalf("State() = %v, want %v", b.State(), StateUninitialized)
	}

	b.HandleRenderEvent(1)
	if b.State() != StateUninitialized {
		t.Fatalf("State() = %v before renderer known, want %v", b.State(), StateUninitialized)
	}

	host.setRenderer(backend.RendererVulkan)
	b.HandleRenderEvent(1)
	if b.State() != StateReady {
		t.Errorf("State() = %v after retry, want %v", b.State(), StateReady)
	}
	if err := b.Unload(); err != nil {
		t.Errorf("Unload() error = %v", err)
	}
}

func TestBridge_BackendUnavailable(t *testing.T) {
	var available atomic.Bool
	b := New(WithRegistry(testRegistry(&testBackend{}, &available)))

	err := b.Load(&fakeHost{renderer: backend.RendererD3D11})
	if !errors.Is(err, ErrDeviceUnavailable) || !errors.Is(err, backend.ErrBackendNotAvailable) {
		t.Errorf("Load() error = %v, want ErrDeviceUnavailable and ErrBackendNotAvailable", err)
	}

	available.Store(true)
	b.HandleRenderEvent(0)
	if b.State() != StateReady {
		t.Errorf("State() = %v after backend became available, want %v", b.State(), StateReady)
	}
	if b.BackendName() != "test" {
		t.Errorf("BackendName() = %q, want %q", b.BackendName(), "test")
	}
	_ = b.Unload()
}

func TestBridge_WithBackendUnknown(t *testing.T) {
	b := New(WithRegistry(testRegistry(&testBackend{}, nil)), WithBackend("nope"))
	err := b.Load(&fakeHost{renderer: backend.RendererNull})
	var nf *backend.NotFoundError
	if !errors.As(err, &nf) {
		t.Errorf("Load() error = %v, want *backend.NotFoundError", err)
	}
}

func TestBridge_EventSourceHost(t *testing.T) {
	tb := &testBackend{}
	b := New(WithRegistry(testRegistry(tb, nil)))
	host := &eventHost{fakeHost: fakeHost{renderer: backend.RendererMetal}}

	if err := b.Load(host); err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if b.State() != StateReady {
		t.Fatalf("State() = %v, want %v", b.State(), StateReady)
	}
	if got := tb.opens.Load(); got != 1 {
		t.Errorf("devices opened = %d, want 1", got)
	}

	host.fire(DeviceEventShutdown)
	if b.State() != StateUninitialized {
		t.Errorf("State() after Shutdown = %v, want %v", b.State(), StateUninitialized)
	}
	host.fire(DeviceEventInitialize)
	if b.State() != StateReady {
		t.Errorf("State() after Initialize = %v, want %v", b.State(), StateReady)
	}

	if err := b.Unload(); err != nil {
		t.Errorf("Unload() error = %v", err)
	}
	if host.registered() {
		t.Error("device event callback still registered after Unload")
	}
}

func TestBridge_Unload(t *testing.T) {
	tb := &testBackend{}
	b := New(WithRegistry(testRegistry(tb, nil)))
	if err := b.Load(&fakeHost{renderer: backend.RendererNull}); err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	_, dec := newTestPlayer(t, b, 1)
	if err := dec.Open(16, 16); err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	dev := tb.last()

	if err := b.Unload(); err != nil {
		t.Fatalf("Unload() error = %v", err)
	}
	if got := b.Players().Len(); got != 0 {
		t.Errorf("Players().Len() = %d, want 0", got)
	}
	if got := dev.Live(); got != 0 {
		t.Errorf("live surfaces = %d, want 0", got)
	}
	if b.State() != StateUninitialized {
		t.Errorf("State() = %v, want %v", b.State(), StateUninitialized)
	}
	if err := b.Load(nil); !errors.Is(err, ErrNoPresentationDevice) {
		t.Errorf("Load(nil) error = %v, want ErrNoPresentationDevice", err)
	}
}
