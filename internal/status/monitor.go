// Package status shows host health on the strip: LED 0 is the network state, the remaining
// LEDs are a CPU load bar.
package status

import (
	"context"
	"math"
	"time"

	"github.com/callebjorkell/blinkt-status/internal/animate"
	log "github.com/sirupsen/logrus"
)

const (
	DefaultBrightness   = 0.05
	DefaultPollInterval = 2 * time.Second

	Connected    uint32 = 0xffffff
	Disconnected uint32 = 0xff0000
)

// DefaultPalette colours the CPU bar from the bottom up.
var DefaultPalette = []uint32{
	0x00ff00, 0x00ff00,
	0xffff00, 0xffff00,
	0xff6400, 0xff6400,
	0xff0000,
}

// Strip is the part of the LED driver the monitor uses.
type Strip interface {
	Len() int
	Clear()
	SetPixelBrightness(i, r, g, b int, brightness float64) error
	Show() error
}

type Monitor struct {
	Strip      Strip
	Check      Checker
	CPU        CPUSampler
	Brightness float64
	Palette    []uint32
	// Queue is taken for every update when the strip is shared with effects.
	Queue *animate.Queue
}

func (m *Monitor) set(i int, color uint32) error {
	return m.Strip.SetPixelBrightness(i, int(color>>16&0xff), int(color>>8&0xff), int(color&0xff), m.Brightness)
}

// Update samples the host once and renders the result.
func (m *Monitor) Update(ctx context.Context) error {
	if m.Queue != nil {
		done := m.Queue.Queue()
		defer done()
	}

	m.Strip.Clear()

	network := Disconnected
	if m.Check.Check(ctx) {
		network = Connected
	}
	if err := m.set(0, network); err != nil {
		return err
	}

	load, err := m.CPU.Percent(ctx)
	if err != nil {
		log.Warnf("Unable to read cpu load: %v", err)
		load = 0
	}

	bar := m.Strip.Len() - 1
	lit := int(math.RoundToEven(load / 100 * float64(bar)))
	log.Tracef("cpu %.1f%%, lighting %d of %d", load, lit, bar)
	for i := 0; i < lit && i < bar; i++ {
		if err := m.set(i+1, m.paletteColor(i, bar)); err != nil {
			return err
		}
	}

	return m.Strip.Show()
}

func (m *Monitor) paletteColor(i, bar int) uint32 {
	palette := m.Palette
	if len(palette) == 0 {
		palette = DefaultPalette
	}
	return palette[i*len(palette)/bar]
}

// Run updates the strip every interval until ctx is done, then turns it off.
func (m *Monitor) Run(ctx context.Context, interval time.Duration) error {
	if interval <= 0 {
		interval = DefaultPollInterval
	}
	// The first sample has nothing to compare against.
	m.CPU.Percent(ctx)

	t := time.NewTicker(interval)
	defer t.Stop()

	for {
		if err := m.Update(ctx); err != nil {
			return err
		}

		select {
		case <-t.C:
		case <-ctx.Done():
			log.Debug("Stopping status monitor")
			return m.off()
		}
	}
}

func (m *Monitor) off() error {
	if m.Queue != nil {
		done := m.Queue.Queue()
		defer done()
	}
	m.Strip.Clear()
	return m.Strip.Show()
}
