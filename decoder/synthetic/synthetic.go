// Package synthetic provides a decoder that drives the hook table without
// decoding anything. Each frame is an empty draw: bind, select plane 0, swap.
//
// It can be stepped by hand (Open, Frame, Close) or run on its own goroutine
// (Start, Stop) to reproduce a real decoder thread.
package synthetic

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/gogpu/framebridge/decoder"
)

// ErrDetached is returned when stepping a decoder without callbacks.
var ErrDetached = errors.New("synthetic: decoder not attached")

// ErrRejected is returned when a hook refuses the request.
var ErrRejected = errors.New("synthetic: hook rejected request")

// Decoder is a fake decoder instance.
type Decoder struct {
	id uintptr

	mu       sync.Mutex
	cb       decoder.Callbacks
	bitDepth uint32
	width    uint32
	height   uint32
	target   [2]uint32
	pending  [2]uint32
	resize   bool
	reports  [][2]uint32
	output   decoder.OutputConfig

	runMu  sync.Mutex
	cancel context.CancelFunc
	done   chan struct{}
}

// New creates a decoder with identity id proposing 8-bit output.
func New(id uintptr) *Decoder {
	return &Decoder{id: id, bitDepth: 8}
}

// ID implements decoder.Decoder.
func (d *Decoder) ID() uintptr { return d.id }

// Attach implements decoder.Decoder.
func (d *Decoder) Attach(cb decoder.Callbacks) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.cb = cb
	return nil
}

// Detach implements decoder.Decoder. It stops a running loop without waiting
// for it, like a real decoder disabling its callbacks.
func (d *Decoder) Detach() error {
	d.mu.Lock()
	d.cb = nil
	d.mu.Unlock()

	d.runMu.Lock()
	if d.cancel != nil {
		d.cancel()
	}
	d.runMu.Unlock()
	return nil
}

func (d *Decoder) callbacks() decoder.Callbacks {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.cb
}

// Open runs Setup, registers the size report function and negotiates
// width x height.
func (d *Decoder) Open(width, height uint32) error {
	cb := d.callbacks()
	if cb == nil {
		return ErrDetached
	}
	if _, ok := cb.Setup(decoder.SetupConfig{HardwareDecoding: true}); !ok {
		return ErrRejected
	}
	cb.SetResizeCallback(d.report)
	return d.Resize(width, height)
}

// Resize negotiates a new output size.
func (d *Decoder) Resize(width, height uint32) error {
	cb := d.callbacks()
	if cb == nil {
		return ErrDetached
	}
	d.mu.Lock()
	bits := d.bitDepth
	d.target = [2]uint32{width, height}
	d.mu.Unlock()
	out, ok := cb.Resize(decoder.RenderConfig{
		Width:      width,
		Height:     height,
		BitDepth:   bits,
		ColorSpace: decoder.ColorSpaceBT709,
		Primaries:  decoder.PrimariesBT709,
		Transfer:   decoder.TransferSRGB,
	})
	if !ok {
		return ErrRejected
	}
	d.mu.Lock()
	d.width, d.height = width, height
	d.output = out
	d.mu.Unlock()
	return nil
}

// report is the size report function handed to SetResizeCallback. The new
// size is negotiated before the next frame.
func (d *Decoder) report(width, height uint32) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.reports = append(d.reports, [2]uint32{width, height})
	if [2]uint32{width, height} != d.target {
		d.pending = [2]uint32{width, height}
		d.resize = true
	}
}

// Frame draws one frame. A pending size report is negotiated first.
func (d *Decoder) Frame() error {
	d.mu.Lock()
	pending, resize := d.pending, d.resize
	d.resize = false
	d.mu.Unlock()
	if resize {
		if err := d.Resize(pending[0], pending[1]); err != nil {
			return err
		}
	}

	cb := d.callbacks()
	if cb == nil {
		return ErrDetached
	}
	if !cb.MakeCurrent(true) {
		return ErrRejected
	}
	ok := cb.SelectPlane(0)
	if ok {
		cb.Swap()
	}
	cb.MakeCurrent(false)
	if !ok {
		return ErrRejected
	}
	return nil
}

// Close runs Cleanup.
func (d *Decoder) Close() error {
	cb := d.callbacks()
	if cb == nil {
		return ErrDetached
	}
	cb.SetResizeCallback(nil)
	cb.Cleanup()
	return nil
}

// Start runs Open and then one Frame per interval on a new goroutine until
// Stop, Detach or a rejected hook.
func (d *Decoder) Start(width, height uint32, interval time.Duration) {
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})

	d.runMu.Lock()
	d.cancel, d.done = cancel, done
	d.runMu.Unlock()

	go func() {
		defer close(done)
		_ = d.Run(ctx, width, height, interval)
	}()
}

// Run is the blocking form of Start.
func (d *Decoder) Run(ctx context.Context, width, height uint32, interval time.Duration) error {
	if err := d.Open(width, height); err != nil {
		return err
	}
	defer d.Close()

	var tick <-chan time.Time
	if interval > 0 {
		t := time.NewTicker(interval)
		defer t.Stop()
		tick = t.C
	}
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}
		if err := d.Frame(); err != nil {
			if errors.Is(err, ErrDetached) {
				return nil
			}
			return err
		}
		if tick != nil {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-tick:
			}
		}
	}
}

// Stop cancels a loop started with Start and waits for it to exit.
func (d *Decoder) Stop() {
	d.runMu.Lock()
	cancel, done := d.cancel, d.done
	d.cancel, d.done = nil, nil
	d.runMu.Unlock()
	if cancel == nil {
		return
	}
	cancel()
	<-done
}

// Reports returns every size the bridge reported, in order.
func (d *Decoder) Reports() [][2]uint32 {
	d.mu.Lock()
	defer d.mu.Unlock()
	return append([][2]uint32(nil), d.reports...)
}

// Output returns the last negotiated output.
func (d *Decoder) Output() decoder.OutputConfig {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.output
}

// Size returns the last negotiated size.
func (d *Decoder) Size() (width, height uint32) {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.width, d.height
}

// SetBitDepth changes the bit depth proposed on the next Resize.
func (d *Decoder) SetBitDepth(bits uint32) {
	d.mu.Lock()
	d.bitDepth = bits
	d.mu.Unlock()
}

var _ decoder.Decoder = (*Decoder)(nil)
