package main

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"time"

	"github.com/callebjorkell/blinkt-status/internal/blinkt"
	"github.com/callebjorkell/blinkt-status/internal/gpio"
	"github.com/callebjorkell/blinkt-status/internal/status"
	log "github.com/sirupsen/logrus"
	"gopkg.in/yaml.v3"
)

const (
	backendCdev   = "cdev"
	backendPeriph = "periph"
	backendMock   = "mock"

	defaultChipLabel = "pinctrl-rp1"
	defaultInterface = "wlan0"
	defaultService   = "hostapd"
)

type Config struct {
	Backend string `yaml:"backend"`
	Chip    struct {
		Label    string `yaml:"label"`
		Fallback int    `yaml:"fallback"`
	} `yaml:"chip"`

	Pixels      int      `yaml:"pixels"`
	DataPin     int      `yaml:"dataPin"`
	ClockPin    int      `yaml:"clockPin"`
	Brightness  *float64 `yaml:"brightness"`
	ClearOnExit *bool    `yaml:"clearOnExit"`

	Timing struct {
		HalfCycle   time.Duration `yaml:"halfCycle"`
		StartPulses int           `yaml:"startPulses"`
		EndPulses   int           `yaml:"endPulses"`
	} `yaml:"timing"`

	Status struct {
		Brightness   float64       `yaml:"brightness"`
		PollInterval time.Duration `yaml:"pollInterval"`
		Role         string        `yaml:"role"`
		Interface    string        `yaml:"interface"`
		Service      string        `yaml:"service"`
		Palette      []uint32      `yaml:"palette"`
	} `yaml:"status"`
}

// Opts returns the driver options described by the config.
func (c Config) Opts() blinkt.Opts {
	return blinkt.Opts{
		NumPixels:   c.Pixels,
		DataPin:     c.DataPin,
		ClockPin:    c.ClockPin,
		Brightness:  blinkt.Float(*c.Brightness),
		KeepOnExit:  !*c.ClearOnExit,
		HalfCycle:   c.Timing.HalfCycle,
		StartPulses: c.Timing.StartPulses,
		EndPulses:   c.Timing.EndPulses,
	}
}

// Opener returns the GPIO backend selected by the config.
func (c Config) Opener() gpio.Opener {
	switch c.Backend {
	case backendPeriph:
		return gpio.PeriphOpener{}
	case backendMock:
		return gpio.NewMock()
	default:
		return gpio.CdevOpener{Pattern: c.Chip.Label, Fallback: c.Chip.Fallback}
	}
}

func parseConfig(content []byte) (*Config, error) {
	c := &Config{}
	err := yaml.Unmarshal(content, c)
	if err != nil {
		return nil, err
	}

	switch c.Backend {
	case "":
		c.Backend = backendCdev
	case backendCdev, backendPeriph, backendMock:
	default:
		return nil, fmt.Errorf("unknown gpio backend %q", c.Backend)
	}
	if c.Chip.Label == "" {
		c.Chip.Label = defaultChipLabel
	}
	if c.Chip.Fallback < 0 {
		return nil, fmt.Errorf("chip fallback index cannot be negative")
	}

	if c.Pixels == 0 {
		c.Pixels = blinkt.DefaultNumPixels
	}
	if c.Pixels < 2 {
		return nil, fmt.Errorf("at least 2 pixels are needed, got %d", c.Pixels)
	}
	if c.DataPin == 0 {
		c.DataPin = blinkt.DefaultDataPin
	}
	if c.ClockPin == 0 {
		c.ClockPin = blinkt.DefaultClockPin
	}
	if c.DataPin == c.ClockPin {
		return nil, fmt.Errorf("data and clock cannot share pin %d", c.DataPin)
	}
	if c.Brightness == nil {
		b := blinkt.DefaultBrightness
		c.Brightness = &b
	}
	if *c.Brightness < 0 || *c.Brightness > 1 {
		return nil, fmt.Errorf("brightness must be between 0.0 and 1.0, got %v", *c.Brightness)
	}
	if c.ClearOnExit == nil {
		v := true
		c.ClearOnExit = &v
	}

	if c.Timing.HalfCycle <= 0 {
		c.Timing.HalfCycle = blinkt.DefaultHalfCycle
	}
	if c.Timing.StartPulses <= 0 {
		c.Timing.StartPulses = blinkt.DefaultStartPulses
	}
	if c.Timing.EndPulses <= 0 {
		c.Timing.EndPulses = blinkt.DefaultEndPulses
	}

	if c.Status.Brightness <= 0 {
		c.Status.Brightness = status.DefaultBrightness
	}
	if c.Status.Brightness > 1 {
		return nil, fmt.Errorf("status brightness must be between 0.0 and 1.0, got %v", c.Status.Brightness)
	}
	if c.Status.PollInterval <= 0 {
		c.Status.PollInterval = status.DefaultPollInterval
	}
	switch c.Status.Role {
	case "":
		c.Status.Role = status.RoleAuto
	case status.RoleAuto, status.RoleRouter, status.RoleClient:
	default:
		return nil, fmt.Errorf("unknown role %q", c.Status.Role)
	}
	if c.Status.Interface == "" {
		c.Status.Interface = defaultInterface
	}
	if c.Status.Service == "" {
		c.Status.Service = defaultService
	}
	for i, color := range c.Status.Palette {
		if color > 0xffffff {
			return nil, fmt.Errorf("palette entry %d is not a 24 bit color: %x", i, color)
		}
	}

	return c, nil
}

// readConfig loads path. A missing file means all defaults.
func readConfig(path string) (*Config, error) {
	content, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		log.Debugf("No config at %s, using defaults", path)
		return parseConfig(nil)
	}
	if err != nil {
		return nil, err
	}
	return parseConfig(content)
}
