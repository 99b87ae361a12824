package gpio

import (
	"fmt"
	"sync"

	log "github.com/sirupsen/logrus"
)

// Event is a single level written to a pin of a Mock.
type Event struct {
	Pin   int
	Level Level
}

// Mock is an in-memory controller recording every level written through it. It is its own
// Opener, so it can stand in for real hardware off-device.
type Mock struct {
	mu       sync.Mutex
	events   []Event
	held     map[int]*mockLine
	failures map[int]int

	Opens    int
	Closes   int
	Claims   map[int]int
	Frees    map[int]int
	Releases map[int]int
}

func NewMock() *Mock {
	return &Mock{
		held:     make(map[int]*mockLine),
		failures: make(map[int]int),
		Claims:   make(map[int]int),
		Frees:    make(map[int]int),
		Releases: make(map[int]int),
	}
}

// FailClaims makes the next n claims of pin fail as if the line were busy.
func (m *Mock) FailClaims(pin, n int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.failures[pin] = n
}

func (m *Mock) Open() (Controller, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Opens++
	log.Debug("gpio: opened mock controller")
	return m, nil
}

func (m *Mock) Label() string {
	return "mock"
}

func (m *Mock) Claim(pin int) (Line, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.failures[pin] > 0 {
		m.failures[pin]--
		return nil, fmt.Errorf("%w: pin %d", ErrBusy, pin)
	}
	if _, ok := m.held[pin]; ok {
		return nil, fmt.Errorf("%w: pin %d is already claimed", ErrBusy, pin)
	}

	l := &mockLine{mock: m, pin: pin}
	m.held[pin] = l
	m.Claims[pin]++
	return l, nil
}

func (m *Mock) Free(pin int) error {
	m.mu.Lock()
	m.Frees[pin]++
	l, ok := m.held[pin]
	m.mu.Unlock()

	if ok {
		return l.Release()
	}
	return nil
}

func (m *Mock) Close() error {
	m.mu.Lock()
	held := make([]*mockLine, 0, len(m.held))
	for _, l := range m.held {
		held = append(held, l)
	}
	m.Closes++
	m.mu.Unlock()

	for _, l := range held {
		l.Release()
	}
	log.Debug("gpio: closed mock controller")
	return nil
}

// Events returns a copy of every level written so far.
func (m *Mock) Events() []Event {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]Event, len(m.events))
	copy(out, m.events)
	return out
}

// ResetEvents forgets the recorded levels.
func (m *Mock) ResetEvents() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.events = nil
}

// Held reports whether pin is currently claimed.
func (m *Mock) Held(pin int) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.held[pin]
	return ok
}

type mockLine struct {
	mock *Mock
	pin  int
	once sync.Once
	done bool
}

func (l *mockLine) Out(level Level) error {
	l.mock.mu.Lock()
	defer l.mock.mu.Unlock()
	if l.done {
		return ErrReleased
	}
	l.mock.events = append(l.mock.events, Event{Pin: l.pin, Level: level})
	return nil
}

func (l *mockLine) Release() error {
	l.once.Do(func() {
		l.mock.mu.Lock()
		defer l.mock.mu.Unlock()
		l.done = true
		delete(l.mock.held, l.pin)
		l.mock.Releases[l.pin]++
	})
	return nil
}
