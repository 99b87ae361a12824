//go:build linux

package gpio

import (
	"errors"
	"fmt"
	"sync"

	log "github.com/sirupsen/logrus"
	"github.com/warthog618/go-gpiocdev"
	"golang.org/x/sys/unix"
)

// CdevOpener opens a chip through the Linux GPIO character device. The chip is picked by
// matching Pattern against the labels of all chips present.
type CdevOpener struct {
	Pattern  string
	Fallback int
	Consumer string
}

func (o CdevOpener) Open() (Controller, error) {
	var chips []ChipInfo
	for _, name := range gpiocdev.Chips() {
		c, err := gpiocdev.NewChip(name)
		if err != nil {
			log.Debugf("Skipping %s: %v", name, err)
			continue
		}
		chips = append(chips, ChipInfo{Name: c.Name, Label: c.Label})
		c.Close()
	}

	name := SelectChip(chips, o.Pattern, o.Fallback)
	consumer := o.Consumer
	if consumer == "" {
		consumer = "blinkt"
	}

	c, err := gpiocdev.NewChip(name, gpiocdev.WithConsumer(consumer))
	if err != nil {
		return nil, fmt.Errorf("unable to open %s: %w", name, err)
	}
	log.Infof("Opened %s (%s)", c.Name, c.Label)

	return &cdevChip{
		chip:  c,
		lines: make(map[int]*cdevLine),
	}, nil
}

type cdevChip struct {
	chip  *gpiocdev.Chip
	mu    sync.Mutex
	lines map[int]*cdevLine
}

func (c *cdevChip) Label() string {
	return c.chip.Label
}

func (c *cdevChip) Claim(pin int) (Line, error) {
	l, err := c.chip.RequestLine(pin, gpiocdev.AsOutput(0))
	if err != nil {
		return nil, claimError(pin, err)
	}

	line := &cdevLine{chip: c, pin: pin, line: l}
	c.mu.Lock()
	c.lines[pin] = line
	c.mu.Unlock()
	return line, nil
}

func (c *cdevChip) Free(pin int) error {
	c.mu.Lock()
	line, ok := c.lines[pin]
	c.mu.Unlock()
	if !ok {
		return fmt.Errorf("pin %d is not held by %s", pin, c.chip.Name)
	}
	return line.Release()
}

func (c *cdevChip) Close() error {
	c.mu.Lock()
	held := make([]*cdevLine, 0, len(c.lines))
	for _, l := range c.lines {
		held = append(held, l)
	}
	c.mu.Unlock()

	for _, l := range held {
		l.Release()
	}
	return c.chip.Close()
}

func (c *cdevChip) forget(pin int, l *cdevLine) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.lines[pin] == l {
		delete(c.lines, pin)
	}
}

func claimError(pin int, err error) error {
	if errors.Is(err, unix.EBUSY) {
		return fmt.Errorf("%w: pin %d: %v", ErrBusy, pin, err)
	}
	return err
}

type cdevLine struct {
	chip *cdevChip
	pin  int
	line *gpiocdev.Line
	once sync.Once
	done bool
}

func (l *cdevLine) Out(level Level) error {
	if l.done {
		return ErrReleased
	}
	v := 0
	if level == High {
		v = 1
	}
	return l.line.SetValue(v)
}

func (l *cdevLine) Release() error {
	var err error
	l.once.Do(func() {
		l.done = true
		l.chip.forget(l.pin, l)
		err = l.line.Close()
	})
	return err
}
