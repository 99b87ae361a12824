package blinkt

import (
	"time"

	"github.com/callebjorkell/blinkt-status/internal/gpio"
)

const (
	brightnessMarker = 0b11100000

	DefaultHalfCycle   = 500 * time.Nanosecond
	DefaultStartPulses = 32
	// The small dark-die APA102 variants need 36 trailing clocks to latch the whole chain,
	// more than the N/2 the datasheet suggests.
	DefaultEndPulses = 36
)

// Encode returns the four wire bytes of a pixel: the global brightness byte followed by the
// channels in blue, green, red order.
func Encode(p Pixel) [4]byte {
	return [4]byte{brightnessMarker | (p.Brightness & maxBrightness), p.B, p.G, p.R}
}

// Transmitter bit-bangs frames onto a data and a clock line.
type Transmitter struct {
	Data, Clock gpio.Line
	HalfCycle   time.Duration
	StartPulses int
	EndPulses   int

	// Hold waits for one half cycle. Defaults to a spin/sleep hybrid.
	Hold func(time.Duration)
}

// Transmit writes one complete frame for pixels: start frame, 4 bytes per pixel, end frame.
func (t *Transmitter) Transmit(pixels []Pixel) error {
	if err := t.pulses(t.StartPulses); err != nil {
		return err
	}

	for _, p := range pixels {
		for _, b := range Encode(p) {
			if err := t.writeByte(b); err != nil {
				return err
			}
		}
	}

	return t.pulses(t.EndPulses)
}

// writeByte clocks out b, most significant bit first.
func (t *Transmitter) writeByte(b byte) error {
	for i := 0; i < 8; i++ {
		level := gpio.Low
		if b&0b10000000 != 0 {
			level = gpio.High
		}
		if err := t.Data.Out(level); err != nil {
			return err
		}
		if err := t.tick(); err != nil {
			return err
		}
		b <<= 1
	}
	return nil
}

// pulses holds data low and clocks n times.
func (t *Transmitter) pulses(n int) error {
	if err := t.Data.Out(gpio.Low); err != nil {
		return err
	}
	for i := 0; i < n; i++ {
		if err := t.tick(); err != nil {
			return err
		}
	}
	return nil
}

func (t *Transmitter) tick() error {
	if err := t.Clock.Out(gpio.High); err != nil {
		return err
	}
	t.hold()
	if err := t.Clock.Out(gpio.Low); err != nil {
		return err
	}
	t.hold()
	return nil
}

func (t *Transmitter) hold() {
	if t.Hold != nil {
		t.Hold(t.HalfCycle)
		return
	}
	delay(t.HalfCycle)
}
