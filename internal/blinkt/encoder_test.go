package blinkt

import (
	"testing"
	"time"

	"github.com/callebjorkell/blinkt-status/internal/gpio"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	testData  = 23
	testClock = 24
)

// sampledBits returns the data level at every rising clock edge.
func sampledBits(events []gpio.Event) []byte {
	var bits []byte
	data := gpio.Low
	for _, e := range events {
		switch e.Pin {
		case testData:
			data = e.Level
		case testClock:
			if e.Level == gpio.High {
				if data == gpio.High {
					bits = append(bits, 1)
				} else {
					bits = append(bits, 0)
				}
			}
		}
	}
	return bits
}

func toBytes(bits []byte) []byte {
	out := make([]byte, 0, len(bits)/8)
	for i := 0; i+8 <= len(bits); i += 8 {
		var b byte
		for _, bit := range bits[i : i+8] {
			b = b<<1 | bit
		}
		out = append(out, b)
	}
	return out
}

func newTestTransmitter(t *testing.T) (*gpio.Mock, *Transmitter, *[]time.Duration) {
	m := gpio.NewMock()
	data, err := m.Claim(testData)
	require.NoError(t, err)
	clock, err := m.Claim(testClock)
	require.NoError(t, err)

	var holds []time.Duration
	return m, &Transmitter{
		Data:        data,
		Clock:       clock,
		HalfCycle:   DefaultHalfCycle,
		StartPulses: DefaultStartPulses,
		EndPulses:   DefaultEndPulses,
		Hold:        func(d time.Duration) { holds = append(holds, d) },
	}, &holds
}

func TestEncode(t *testing.T) {
	tt := []struct {
		name  string
		pixel Pixel
		want  [4]byte
	}{
		{"full brightness", Pixel{R: 10, G: 20, B: 30, Brightness: 31}, [4]byte{0b11111111, 30, 20, 10}},
		{"off", Pixel{}, [4]byte{0b11100000, 0, 0, 0}},
		{"default brightness", Pixel{R: 255, Brightness: 7}, [4]byte{0b11100111, 0, 0, 255}},
	}

	for _, tc := range tt {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, Encode(tc.pixel))
		})
	}
}

func TestTransmitFraming(t *testing.T) {
	m, tx, holds := newTestTransmitter(t)

	buf := NewPixelBuffer(8, DefaultBrightness)
	require.NoError(t, buf.SetPixelBrightness(0, 10, 20, 30, 1.0))
	require.NoError(t, tx.Transmit(buf.Pixels()))

	bits := sampledBits(m.Events())
	require.Len(t, bits, 32+8*32+36)
	assert.Len(t, *holds, 2*len(bits))
	for _, h := range *holds {
		assert.Equal(t, 500*time.Nanosecond, h)
	}

	assert.Equal(t, make([]byte, 32), bits[:32])
	assert.Equal(t, make([]byte, 36), bits[len(bits)-36:])

	payload := toBytes(bits[32 : len(bits)-36])
	assert.Equal(t, []byte{0b11111111, 30, 20, 10}, payload[:4])
	for i := 1; i < 8; i++ {
		assert.Equal(t, []byte{0b11100111, 0, 0, 0}, payload[i*4:i*4+4])
	}
}

func TestTransmitPulseCount(t *testing.T) {
	for _, n := range []int{1, 8, 144} {
		m, tx, _ := newTestTransmitter(t)
		require.NoError(t, tx.Transmit(NewPixelBuffer(n, 1).Pixels()))
		assert.Len(t, sampledBits(m.Events()), 32+n*32+36, "pixels: %d", n)
	}
}

func TestTransmitClockReturnsLow(t *testing.T) {
	m, tx, _ := newTestTransmitter(t)
	require.NoError(t, tx.Transmit(NewPixelBuffer(2, 1).Pixels()))

	var last gpio.Level
	highs, lows := 0, 0
	for _, e := range m.Events() {
		if e.Pin != testClock {
			continue
		}
		assert.NotEqual(t, last, e.Level, "clock must alternate")
		last = e.Level
		if e.Level == gpio.High {
			highs++
		} else {
			lows++
		}
	}
	assert.Equal(t, highs, lows)
	assert.Equal(t, gpio.Low, last)
}

func TestTransmitCustomEndFrame(t *testing.T) {
	m, tx, _ := newTestTransmitter(t)
	tx.EndPulses = 4

	require.NoError(t, tx.Transmit(NewPixelBuffer(8, 1).Pixels()))
	assert.Len(t, sampledBits(m.Events()), 32+8*32+4)
}

func TestTransmitReleasedLine(t *testing.T) {
	_, tx, _ := newTestTransmitter(t)
	require.NoError(t, tx.Clock.Release())

	assert.ErrorIs(t, tx.Transmit(NewPixelBuffer(1, 1).Pixels()), gpio.ErrReleased)
}
