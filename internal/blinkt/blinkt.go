// Package blinkt drives a chain of APA102 LEDs by bit-banging two GPIO lines.
//
// A Dev owns a PixelBuffer and the GPIO resources. Pixel setters only touch the buffer; the
// lines are claimed lazily on the first Show, which is also the only call performing I/O.
// The embedding application must call Close on every termination path so the lines are
// released exactly once.
//
// Pixel setters are not synchronised. Callers producing colours from several goroutines have
// to serialise access themselves.
package blinkt

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/callebjorkell/blinkt-status/internal/gpio"
	log "github.com/sirupsen/logrus"
)

const (
	DefaultNumPixels = 8
	DefaultDataPin   = 23
	DefaultClockPin  = 24
)

// DefaultBrightness is the startup brightness, 7/31.
const DefaultBrightness = 7.0 / 31.0

var ErrInvalidOpts = errors.New("invalid blinkt options")

// State is the lifecycle state of a Dev.
type State int

const (
	Uninitialized State = iota
	Ready
	Released
)

func (s State) String() string {
	switch s {
	case Uninitialized:
		return "uninitialized"
	case Ready:
		return "ready"
	case Released:
		return "released"
	}
	return "N/A"
}

// Opts configures a Dev. Zero values of NumPixels, the pins, HalfCycle and the pulse counts
// select the defaults, and a nil Brightness selects DefaultBrightness. Close clears the strip
// unless KeepOnExit is set.
type Opts struct {
	NumPixels  int
	DataPin    int
	ClockPin   int
	Brightness *float64
	KeepOnExit bool

	HalfCycle   time.Duration
	StartPulses int
	EndPulses   int
}

// DefaultOpts matches an 8 pixel Blinkt! on GPIO23/24.
var DefaultOpts = Opts{
	NumPixels:   DefaultNumPixels,
	DataPin:     DefaultDataPin,
	ClockPin:    DefaultClockPin,
	Brightness:  Float(DefaultBrightness),
	HalfCycle:   DefaultHalfCycle,
	StartPulses: DefaultStartPulses,
	EndPulses:   DefaultEndPulses,
}

// Float returns a pointer to v, for setting Opts.Brightness.
func Float(v float64) *float64 {
	return &v
}

func (o Opts) withDefaults() Opts {
	if o.NumPixels == 0 {
		o.NumPixels = DefaultNumPixels
	}
	if o.DataPin == 0 {
		o.DataPin = DefaultDataPin
	}
	if o.ClockPin == 0 {
		o.ClockPin = DefaultClockPin
	}
	if o.Brightness == nil {
		o.Brightness = Float(DefaultBrightness)
	}
	if o.HalfCycle == 0 {
		o.HalfCycle = DefaultHalfCycle
	}
	if o.StartPulses == 0 {
		o.StartPulses = DefaultStartPulses
	}
	if o.EndPulses == 0 {
		o.EndPulses = DefaultEndPulses
	}
	return o
}

func (o Opts) validate() error {
	if o.NumPixels < 0 {
		return fmt.Errorf("%w: pixel count %d", ErrInvalidOpts, o.NumPixels)
	}
	if o.DataPin < 0 || o.ClockPin < 0 {
		return fmt.Errorf("%w: negative pin", ErrInvalidOpts)
	}
	if o.DataPin == o.ClockPin {
		return fmt.Errorf("%w: data and clock share pin %d", ErrInvalidOpts, o.DataPin)
	}
	if b := *o.Brightness; b < 0 || b > 1 {
		return fmt.Errorf("%w: %v", ErrBrightnessOutOfRange, b)
	}
	if o.HalfCycle < 0 || o.StartPulses < 0 || o.EndPulses < 0 {
		return fmt.Errorf("%w: negative timing", ErrInvalidOpts)
	}
	return nil
}

// Dev is an APA102 chain.
type Dev struct {
	opener gpio.Opener
	opts   Opts
	buf    *PixelBuffer

	mu          sync.Mutex
	state       State
	clearOnExit bool
	ctrl        gpio.Controller
	tx          *Transmitter
	hold        func(time.Duration)
}

// New returns a Dev that will claim its lines from the controller opener resolves. opts can
// be nil to use DefaultOpts. No hardware is touched until the first Show.
func New(opener gpio.Opener, opts *Opts) (*Dev, error) {
	if opts == nil {
		opts = &DefaultOpts
	}
	o := opts.withDefaults()
	if err := o.validate(); err != nil {
		return nil, err
	}

	return &Dev{
		opener:      opener,
		opts:        o,
		buf:         NewPixelBuffer(o.NumPixels, *o.Brightness),
		clearOnExit: !o.KeepOnExit,
	}, nil
}

func (d *Dev) String() string {
	return fmt.Sprintf("blinkt.Dev{%d pixels, data: GPIO%d, clock: GPIO%d}", d.opts.NumPixels, d.opts.DataPin, d.opts.ClockPin)
}

func (d *Dev) State() State {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.state
}

func (d *Dev) Len() int {
	return d.buf.Len()
}

func (d *Dev) SetPixel(i, r, g, b int) error {
	return d.buf.SetPixel(i, r, g, b)
}

func (d *Dev) SetPixelBrightness(i, r, g, b int, brightness float64) error {
	return d.buf.SetPixelBrightness(i, r, g, b, brightness)
}

func (d *Dev) Pixel(i int) (r, g, b uint8, brightness float64, err error) {
	return d.buf.Pixel(i)
}

func (d *Dev) SetAll(r, g, b int) {
	d.buf.SetAll(r, g, b)
}

func (d *Dev) SetAllBrightness(r, g, b int, brightness float64) {
	d.buf.SetAllBrightness(r, g, b, brightness)
}

func (d *Dev) Clear() {
	d.buf.Clear()
}

func (d *Dev) SetBrightness(brightness float64) error {
	return d.buf.SetBrightness(brightness)
}

// SetClearOnExit decides whether Close turns the LEDs off before releasing the lines.
func (d *Dev) SetClearOnExit(v bool) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.clearOnExit = v
}

// Show sends the buffer to the chain. The first call claims the GPIO lines. After Close it
// does nothing.
func (d *Dev) Show() error {
	d.mu.Lock()
	defer d.mu.Unlock()

	switch d.state {
	case Released:
		log.Debug("blinkt: ignoring show on released device")
		return nil
	case Uninitialized:
		if err := d.setup(); err != nil {
			return err
		}
	}

	return d.transmit()
}

func (d *Dev) setup() error {
	log.Infof("Initializing %v", d)

	ctrl, err := d.opener.Open()
	if err != nil {
		return fmt.Errorf("unable to open gpio controller: %w", err)
	}

	data, err := gpio.ClaimOutput(ctrl, d.opts.DataPin)
	if err != nil {
		ctrl.Close()
		return err
	}
	clock, err := gpio.ClaimOutput(ctrl, d.opts.ClockPin)
	if err != nil {
		data.Release()
		ctrl.Close()
		return err
	}

	d.ctrl = ctrl
	d.tx = &Transmitter{
		Data:        data,
		Clock:       clock,
		HalfCycle:   d.opts.HalfCycle,
		StartPulses: d.opts.StartPulses,
		EndPulses:   d.opts.EndPulses,
		Hold:        d.hold,
	}
	d.state = Ready
	return nil
}

func (d *Dev) transmit() error {
	pixels := d.buf.Pixels()
	log.Tracef("blinkt: transmitting %v", pixels)
	if err := d.tx.Transmit(pixels); err != nil {
		return fmt.Errorf("transmit failed: %w", err)
	}
	return nil
}

// Close runs the shutdown sequence: optionally clear and show once more, then release both
// lines and the controller. It is safe to call more than once.
func (d *Dev) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.state != Ready {
		d.state = Released
		return nil
	}

	var errs []error
	if d.clearOnExit {
		log.Debug("blinkt: clearing on exit")
		d.buf.Clear()
		if err := d.transmit(); err != nil {
			errs = append(errs, err)
		}
	}

	if err := d.tx.Data.Release(); err != nil {
		errs = append(errs, err)
	}
	if err := d.tx.Clock.Release(); err != nil {
		errs = append(errs, err)
	}
	if err := d.ctrl.Close(); err != nil {
		errs = append(errs, err)
	}
	d.ctrl = nil
	d.state = Released
	log.Debug("blinkt: released")

	return errors.Join(errs...)
}
