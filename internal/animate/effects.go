// Package animate plays simple effects on a strip, taking turns with other users through a
// shared Queue.
package animate

import (
	"errors"
	"time"

	log "github.com/sirupsen/logrus"
)

var ErrInterrupted = errors.New("animation was interrupted")

// Strip is the part of a pixel driver the effects need.
type Strip interface {
	SetAll(r, g, b int)
	Clear()
	Show() error
}

// Controller runs effects on a strip.
type Controller struct {
	strip Strip
	queue *Queue
	tick  time.Duration
}

// NewController returns a Controller taking turns on q. q can be nil when the strip is not
// shared.
func NewController(s Strip, q *Queue) *Controller {
	if q == nil {
		q = &Queue{}
	}
	return &Controller{
		strip: s,
		queue: q,
		tick:  10 * time.Millisecond,
	}
}

func (c *Controller) setColor(color uint32) error {
	r, g, b := split(color)
	c.strip.SetAll(int(r), int(g), int(b))
	return c.strip.Show()
}

func (c *Controller) clear() error {
	c.strip.Clear()
	return c.strip.Show()
}

// Flash blinks color three times and leaves the strip dark.
func (c *Controller) Flash(color uint32) error {
	done := c.queue.Queue()
	defer done()

	log.Infof("Flashing color %06x", color)

	steps := []struct {
		color uint32
		hold  time.Duration
	}{
		{color, 250 * time.Millisecond},
		{0, 40 * time.Millisecond},
		{color, 100 * time.Millisecond},
		{0, 40 * time.Millisecond},
		{color, 100 * time.Millisecond},
	}
	for _, s := range steps {
		if err := c.setColor(s.color); err != nil {
			return err
		}
		<-time.After(s.hold)
	}

	log.Debug("Flashing done...")
	return c.setColor(0)
}

// Rainbow cycles the colour wheel once, fading in and out.
func (c *Controller) Rainbow() error {
	done := c.queue.Queue()
	defer done()
	defer c.clear()

	log.Debugf("Displaying rainbow")
	tick := time.NewTicker(3 * c.tick)
	defer tick.Stop()

	for step := 0; step <= 450; step++ {
		if c.queue.IsInterrupted() {
			return ErrInterrupted
		}

		color := getRGB(step)
		if step < 50 {
			color = withBrightness(color, uint32(step*2))
		}
		if step > 350 {
			color = withBrightness(color, uint32(450-step))
		}

		if err := c.setColor(color); err != nil {
			return err
		}

		<-tick.C
	}

	return nil
}

// Breathe pulses color in the background until someone else queues for the strip.
func (c *Controller) Breathe(color uint32) {
	done := c.queue.Queue()

	go func() {
		defer done()
		defer c.clear()
		for {
			err := c.singleBreath(color)
			if err != nil {
				log.Debug("Stopping breathing: ", err)
				break
			}
		}
	}()
}

// Stop waits for the running effect to yield and leaves the strip free.
func (c *Controller) Stop() {
	done := c.queue.Queue()
	done()
}

func (c *Controller) singleBreath(color uint32) error {
	light := uint32(0)
	increase := true
	log.Debugf("Breathing color: %06x", color)
	tick := time.NewTicker(c.tick)
	defer tick.Stop()
	for {
		if c.queue.IsInterrupted() {
			log.Debug("Animation interrupted.")
			return ErrInterrupted
		}

		if err := c.setColor(withBrightness(color, light)); err != nil {
			return err
		}

		if increase {
			light++
			if light > 100 {
				increase = false
			}
		} else {
			if light == 0 {
				break
			}
			light--
		}

		<-tick.C
	}
	return nil
}
