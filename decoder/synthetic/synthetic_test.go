package synthetic

import (
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gogpu/framebridge/backend"
	"github.com/gogpu/framebridge/decoder"
	"github.com/gogpu/gputypes"
)

// recorder is a decoder.Callbacks that logs hook names.
type recorder struct {
	mu     sync.Mutex
	calls  []string
	report decoder.ReportFunc
	reject bool
}

func (r *recorder) log(name string) {
	r.mu.Lock()
	r.calls = append(r.calls, name)
	r.mu.Unlock()
}

func (r *recorder) trace() string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return strings.Join(r.calls, ",")
}

func (r *recorder) Setup(decoder.SetupConfig) (backend.DeviceInfo, bool) {
	r.log("setup")
	return backend.DeviceInfo{Backend: "test"}, !r.reject
}
func (r *recorder) Cleanup() { r.log("cleanup") }
func (r *recorder) SetResizeCallback(fn decoder.ReportFunc) {
	r.mu.Lock()
	r.report = fn
	r.mu.Unlock()
}
func (r *recorder) Resize(cfg decoder.RenderConfig) (decoder.OutputConfig, bool) {
	r.log("resize")
	return decoder.OutputConfig{Format: gputypes.TextureFormatRGBA8Unorm, FullRange: true}, cfg.Width > 0
}
func (r *recorder) SelectPlane(plane int) bool { r.log("plane"); return plane == 0 }
func (r *recorder) Swap()                      { r.log("swap") }
func (r *recorder) MakeCurrent(enter bool) bool {
	if enter {
		r.log("enter")
	} else {
		r.log("exit")
	}
	return true
}
func (r *recorder) GetProcAddress(string) uintptr { return 0 }

func (r *recorder) sendReport(w, h uint32) {
	r.mu.Lock()
	fn := r.report
	r.mu.Unlock()
	if fn != nil {
		fn(w, h)
	}
}

func TestSteppedHookOrder(t *testing.T) {
	rec := &recorder{}
	d := New(7)
	if err := d.Attach(rec); err != nil {
		t.Fatal(err)
	}
	if err := d.Open(320, 240); err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	if err := d.Frame(); err != nil {
		t.Fatalf("Frame() error = %v", err)
	}
	if err := d.Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}
	want := "setup,resize,enter,plane,swap,exit,cleanup"
	if got := rec.trace(); got != want {
		t.Errorf("hook order = %q, want %q", got, want)
	}
	if w, h := d.Size(); w != 320 || h != 240 {
		t.Errorf("Size() = %dx%d, want 320x240", w, h)
	}
}

func TestReportTriggersResize(t *testing.T) {
	rec := &recorder{}
	d := New(1)
	d.Attach(rec)
	if err := d.Open(100, 100); err != nil {
		t.Fatal(err)
	}
	rec.sendReport(100, 100)
	rec.sendReport(200, 50)
	if err := d.Frame(); err != nil {
		t.Fatal(err)
	}
	if w, h := d.Size(); w != 200 || h != 50 {
		t.Errorf("Size() after report = %dx%d, want 200x50", w, h)
	}
	if n := len(d.Reports()); n != 2 {
		t.Errorf("len(Reports()) = %d, want 2", n)
	}
}

func TestDetachedSteps(t *testing.T) {
	d := New(1)
	if err := d.Open(1, 1); !errors.Is(err, ErrDetached) {
		t.Errorf("Open() error = %v, want ErrDetached", err)
	}
	rec := &recorder{reject: true}
	d.Attach(rec)
	if err := d.Open(1, 1); !errors.Is(err, ErrRejected) {
		t.Errorf("Open() with rejecting Setup error = %v, want ErrRejected", err)
	}
}

func TestStartStop(t *testing.T) {
	rec := &recorder{}
	d := New(3)
	d.Attach(rec)
	d.Start(64, 64, time.Millisecond)
	deadline := time.Now().Add(2 * time.Second)
	for !strings.Contains(rec.trace(), "swap") && time.Now().Before(deadline) {
		time.Sleep(time.Millisecond)
	}
	d.Stop()
	trace := rec.trace()
	if !strings.HasPrefix(trace, "setup,resize") || !strings.HasSuffix(trace, "cleanup") {
		t.Errorf("trace = %q, want setup..cleanup", trace)
	}
}
