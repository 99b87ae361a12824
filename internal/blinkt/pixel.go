package blinkt

import (
	"errors"
	"fmt"
	"math"
)

const maxBrightness = 0b11111

var (
	ErrIndexOutOfRange      = errors.New("pixel index out of range")
	ErrBrightnessOutOfRange = errors.New("brightness should be between 0.0 and 1.0")
)

// Pixel is the state of one LED. Brightness is the 5-bit global brightness value.
type Pixel struct {
	R, G, B    uint8
	Brightness uint8
}

// PixelBuffer is the fixed length, in chain order, state of the strip. It performs no I/O.
type PixelBuffer struct {
	pixels []Pixel
}

// NewPixelBuffer returns n black pixels at the given brightness fraction.
func NewPixelBuffer(n int, brightness float64) *PixelBuffer {
	b := &PixelBuffer{pixels: make([]Pixel, n)}
	q := quantize(brightness)
	for i := range b.pixels {
		b.pixels[i].Brightness = q
	}
	return b
}

// quantize turns a 0.0-1.0 fraction into the 5-bit wire value. Out of range input is not
// clamped, it wraps through the mask.
func quantize(brightness float64) uint8 {
	return uint8(int(math.Round(maxBrightness*brightness)) & maxBrightness)
}

func (b *PixelBuffer) Len() int {
	return len(b.pixels)
}

// Pixels returns a copy of the buffer contents.
func (b *PixelBuffer) Pixels() []Pixel {
	out := make([]Pixel, len(b.pixels))
	copy(out, b.pixels)
	return out
}

func (b *PixelBuffer) check(i int) error {
	if i < 0 || i >= len(b.pixels) {
		return fmt.Errorf("%w: %d not in [0, %d)", ErrIndexOutOfRange, i, len(b.pixels))
	}
	return nil
}

// SetPixel sets the colour of pixel i, keeping its brightness. Channels are taken modulo 256.
func (b *PixelBuffer) SetPixel(i, r, g, bl int) error {
	if err := b.check(i); err != nil {
		return err
	}
	b.set(i, r, g, bl, b.pixels[i].Brightness)
	return nil
}

// SetPixelBrightness sets the colour and brightness of pixel i.
func (b *PixelBuffer) SetPixelBrightness(i, r, g, bl int, brightness float64) error {
	if err := b.check(i); err != nil {
		return err
	}
	b.set(i, r, g, bl, quantize(brightness))
	return nil
}

func (b *PixelBuffer) set(i, r, g, bl int, brightness uint8) {
	b.pixels[i] = Pixel{
		R:          uint8(r & 0xff),
		G:          uint8(g & 0xff),
		B:          uint8(bl & 0xff),
		Brightness: brightness,
	}
}

// Pixel returns the colour of pixel i and its brightness as a fraction rounded to 3 decimals.
func (b *PixelBuffer) Pixel(i int) (r, g, bl uint8, brightness float64, err error) {
	if err = b.check(i); err != nil {
		return
	}
	p := b.pixels[i]
	brightness = math.Round(float64(p.Brightness)/maxBrightness*1000) / 1000
	return p.R, p.G, p.B, brightness, nil
}

func (b *PixelBuffer) SetAll(r, g, bl int) {
	for i := range b.pixels {
		b.set(i, r, g, bl, b.pixels[i].Brightness)
	}
}

func (b *PixelBuffer) SetAllBrightness(r, g, bl int, brightness float64) {
	q := quantize(brightness)
	for i := range b.pixels {
		b.set(i, r, g, bl, q)
	}
}

// Clear turns every pixel black. Brightness is left alone.
func (b *PixelBuffer) Clear() {
	for i := range b.pixels {
		b.pixels[i].R, b.pixels[i].G, b.pixels[i].B = 0, 0, 0
	}
}

// SetBrightness sets the brightness of every pixel. The buffer is untouched on error.
func (b *PixelBuffer) SetBrightness(brightness float64) error {
	if brightness < 0 || brightness > 1 || math.IsNaN(brightness) {
		return fmt.Errorf("%w: got %v", ErrBrightnessOutOfRange, brightness)
	}
	q := quantize(brightness)
	for i := range b.pixels {
		b.pixels[i].Brightness = q
	}
	return nil
}
