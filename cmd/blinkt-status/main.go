package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/callebjorkell/blinkt-status/internal/animate"
	"github.com/callebjorkell/blinkt-status/internal/blinkt"
	"github.com/callebjorkell/blinkt-status/internal/status"
	log "github.com/sirupsen/logrus"
)

type colorFormatter struct {
	log.TextFormatter
}

func (f *colorFormatter) Format(entry *log.Entry) ([]byte, error) {
	var levelColor int
	switch entry.Level {
	case log.DebugLevel, log.TraceLevel:
		levelColor = 90 // dark grey
	case log.WarnLevel:
		levelColor = 33 // yellow
	case log.ErrorLevel, log.FatalLevel, log.PanicLevel:
		levelColor = 91 // bright red
	default:
		levelColor = 39 // default
	}
	return []byte(fmt.Sprintf("\x1b[%dm%s\x1b[0m\n", levelColor, entry.Message)), nil
}

func main() {
	log.SetFormatter(&colorFormatter{})

	if err := RootCmd().Execute(); err != nil {
		log.Fatal(err)
	}
}

func openDevice(conf *Config) (*blinkt.Dev, error) {
	opts := conf.Opts()
	return blinkt.New(conf.Opener(), &opts)
}

// closeDevice is deferred on every exit path so the lines are given back exactly once.
func closeDevice(dev *blinkt.Dev) {
	if err := dev.Close(); err != nil {
		log.Warn("Unable to release the strip: ", err)
	}
}

func startMonitor(conf *Config) error {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	dev, err := openDevice(conf)
	if err != nil {
		return err
	}
	defer closeDevice(dev)

	check, role, err := status.ForRole(ctx, conf.Status.Role, conf.Status.Interface, conf.Status.Service)
	if err != nil {
		return err
	}
	log.Infof("blinkt-status: starting in %s mode", role)

	queue := &animate.Queue{}
	hupChan := make(chan os.Signal, 1)
	signal.Notify(hupChan, syscall.SIGHUP)
	defer signal.Stop(hupChan)
	identified := make(chan struct{})
	go func() {
		defer close(identified)
		identifyOnHangup(ctx, animate.NewController(dev, queue), hupChan)
	}()
	// The flash goroutine must be gone before closeDevice clears the buffer.
	defer func() {
		cancel()
		<-identified
	}()

	m := &status.Monitor{
		Strip:      dev,
		Check:      check,
		CPU:        status.HostCPU{},
		Brightness: conf.Status.Brightness,
		Palette:    conf.Status.Palette,
		Queue:      queue,
	}
	err = m.Run(ctx, conf.Status.PollInterval)

	log.Info("blinkt-status: stopped")
	return err
}

// identifyOnHangup flashes the strip on every hangup, which makes it easy to find a unit in a
// rack. It returns when ctx is done.
func identifyOnHangup(ctx context.Context, c *animate.Controller, hup <-chan os.Signal) {
	for {
		select {
		case <-ctx.Done():
			return
		case <-hup:
			if ctx.Err() != nil {
				return
			}
			if err := c.Flash(0xffffff); err != nil {
				log.Warn("Unable to flash: ", err)
			}
		}
	}
}

func setPixels(conf *Config, index int, color uint32, brightness float64) error {
	dev, err := openDevice(conf)
	if err != nil {
		return err
	}
	dev.SetClearOnExit(false)
	defer closeDevice(dev)

	r, g, b := int(color>>16&0xff), int(color>>8&0xff), int(color&0xff)
	switch {
	case index < 0 && brightness < 0:
		dev.SetAll(r, g, b)
	case index < 0:
		dev.SetAllBrightness(r, g, b, brightness)
	case brightness < 0:
		err = dev.SetPixel(index, r, g, b)
	default:
		err = dev.SetPixelBrightness(index, r, g, b, brightness)
	}
	if err != nil {
		return err
	}
	return dev.Show()
}

func clearPixels(conf *Config) error {
	dev, err := openDevice(conf)
	if err != nil {
		return err
	}
	dev.SetClearOnExit(false)
	defer closeDevice(dev)

	dev.Clear()
	return dev.Show()
}

func playEffect(conf *Config, name string, color uint32, duration time.Duration) error {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	dev, err := openDevice(conf)
	if err != nil {
		return err
	}
	defer closeDevice(dev)

	c := animate.NewController(dev, nil)
	switch name {
	case "flash":
		return c.Flash(color)
	case "rainbow":
		go func() {
			<-ctx.Done()
			c.Stop()
		}()
		err := c.Rainbow()
		if errors.Is(err, animate.ErrInterrupted) {
			return nil
		}
		return err
	case "breathe":
		c.Breathe(color)
		select {
		case <-ctx.Done():
		case <-time.After(duration):
		}
		c.Stop()
		return nil
	}
	return fmt.Errorf("unknown effect %q", name)
}
