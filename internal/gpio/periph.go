package gpio

import (
	"fmt"
	"sync"

	log "github.com/sirupsen/logrus"
	"periph.io/x/conn/v3/gpio"
	"periph.io/x/conn/v3/gpio/gpioreg"
	"periph.io/x/host/v3"
)

// PeriphOpener claims pins from the periph.io pin registry, addressing them as "GPIO<n>".
type PeriphOpener struct {
	// ByName overrides the registry lookup. host.Init is skipped when it is set.
	ByName func(name string) gpio.PinIO
}

func (o PeriphOpener) Open() (Controller, error) {
	lookup := o.ByName
	if lookup == nil {
		if _, err := host.Init(); err != nil {
			return nil, fmt.Errorf("unable to initialize periph: %w", err)
		}
		lookup = gpioreg.ByName
	}
	log.Info("Using periph pin registry")

	return &periphRegistry{
		byName: lookup,
		held:   make(map[int]*periphLine),
	}, nil
}

type periphRegistry struct {
	byName func(string) gpio.PinIO
	mu     sync.Mutex
	held   map[int]*periphLine
}

func (r *periphRegistry) Label() string {
	return "periph"
}

func (r *periphRegistry) Claim(pin int) (Line, error) {
	name := fmt.Sprintf("GPIO%d", pin)
	p := r.byName(name)
	if p == nil {
		return nil, fmt.Errorf("no pin named %s", name)
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.held[pin]; ok {
		return nil, fmt.Errorf("%w: %s is already claimed", ErrBusy, name)
	}
	if err := p.Out(gpio.Low); err != nil {
		return nil, fmt.Errorf("unable to drive %s: %w", name, err)
	}

	l := &periphLine{registry: r, num: pin, pin: p}
	r.held[pin] = l
	return l, nil
}

func (r *periphRegistry) Free(pin int) error {
	r.mu.Lock()
	l, ok := r.held[pin]
	r.mu.Unlock()
	if !ok {
		return fmt.Errorf("GPIO%d is not claimed", pin)
	}
	return l.Release()
}

func (r *periphRegistry) Close() error {
	r.mu.Lock()
	held := make([]*periphLine, 0, len(r.held))
	for _, l := range r.held {
		held = append(held, l)
	}
	r.mu.Unlock()

	for _, l := range held {
		l.Release()
	}
	return nil
}

type periphLine struct {
	registry *periphRegistry
	num      int
	pin      gpio.PinIO
	once     sync.Once
	done     bool
}

func (l *periphLine) Out(level Level) error {
	if l.done {
		return ErrReleased
	}
	return l.pin.Out(level)
}

func (l *periphLine) Release() error {
	var err error
	l.once.Do(func() {
		l.done = true
		l.registry.mu.Lock()
		delete(l.registry.held, l.num)
		l.registry.mu.Unlock()
		err = l.pin.Halt()
	})
	return err
}
