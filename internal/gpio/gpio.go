// Package gpio wraps ownership of single digital output lines on a GPIO controller.
//
// A Controller hands out Lines. Every Line claimed must be released exactly once, which the
// implementations guarantee by making Release idempotent.
package gpio

import (
	"errors"
	"fmt"
	"sort"
	"strconv"
	"strings"

	log "github.com/sirupsen/logrus"
	"periph.io/x/conn/v3/gpio"
)

// Level is the electrical level driven onto a line.
type Level = gpio.Level

const (
	Low  = gpio.Low
	High = gpio.High
)

var (
	ErrClaim       = errors.New("unable to claim gpio line")
	ErrBusy        = errors.New("gpio line busy")
	ErrReleased    = errors.New("gpio line already released")
	ErrUnsupported = errors.New("gpio backend not supported on this platform")
)

// Line is one claimed output pin.
type Line interface {
	Out(l Level) error
	// Release gives the pin back to the controller. Calling it twice is a no-op.
	Release() error
}

// Controller is a GPIO chip (or pin registry) that output lines are claimed from.
type Controller interface {
	Label() string
	// Claim fails with an error wrapping ErrBusy when the pin is already held.
	Claim(pin int) (Line, error)
	// Free forcibly releases any claim on pin held through this controller.
	Free(pin int) error
	Close() error
}

// Opener resolves and opens the controller to claim lines from.
type Opener interface {
	Open() (Controller, error)
}

// OpenerFunc adapts a function to the Opener interface.
type OpenerFunc func() (Controller, error)

func (f OpenerFunc) Open() (Controller, error) {
	return f()
}

// ClaimOutput claims pin as an output. If the first attempt fails, typically because the
// line is still held by stale state, the pin is force-released and the claim retried once.
func ClaimOutput(c Controller, pin int) (Line, error) {
	l, err := c.Claim(pin)
	if err == nil {
		return l, nil
	}

	log.Warnf("Claiming pin %d on %s failed (%v). Freeing and retrying.", pin, c.Label(), err)
	if ferr := c.Free(pin); ferr != nil {
		log.Debugf("Freeing pin %d: %v", pin, ferr)
	}

	l, err = c.Claim(pin)
	if err != nil {
		return nil, fmt.Errorf("%w %d on %s: %w", ErrClaim, pin, c.Label(), err)
	}
	return l, nil
}

// ChipInfo describes a controller found during enumeration.
type ChipInfo struct {
	Name  string
	Label string
}

// SelectChip returns the name of the first chip, in index order, whose label contains
// pattern. If none match, gpiochip<fallback> is returned.
func SelectChip(chips []ChipInfo, pattern string, fallback int) string {
	sorted := make([]ChipInfo, len(chips))
	copy(sorted, chips)
	sort.SliceStable(sorted, func(i, j int) bool {
		return chipIndex(sorted[i].Name) < chipIndex(sorted[j].Name)
	})

	for _, c := range sorted {
		if pattern != "" && strings.Contains(c.Label, pattern) {
			log.Debugf("Selected %s (%s)", c.Name, c.Label)
			return c.Name
		}
	}

	name := fmt.Sprintf("gpiochip%d", fallback)
	log.Debugf("No chip labelled %q, falling back to %s", pattern, name)
	return name
}

func chipIndex(name string) int {
	i, err := strconv.Atoi(strings.TrimPrefix(name, "gpiochip"))
	if err != nil {
		return int(^uint(0) >> 1)
	}
	return i
}
