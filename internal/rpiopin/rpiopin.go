// Copyright 2026 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

// Package rpiopin drives a Raspberry Pi GPIO through go-rpio's memory mapped
// registers, as an alternative to periph's host drivers.
package rpiopin

import (
	"fmt"

	"github.com/pkg/errors"
	"github.com/stianeikeland/go-rpio/v4"
	"periph.io/x/conn/v3/gpio"
)

// Pin implements owgpio.Pin on one BCM numbered GPIO.
type Pin struct {
	pin rpio.Pin
}

// Open maps the GPIO registers and returns the pin with BCM number n.
//
// Close must be called to unmap the registers.
func Open(n int) (*Pin, error) {
	if n < 0 || n > 53 {
		return nil, errors.Errorf("rpiopin: invalid BCM pin %d", n)
	}
	if err := rpio.Open(); err != nil {
		return nil, errors.Wrap(err, "rpiopin: failed to map GPIO registers")
	}
	return &Pin{pin: rpio.Pin(n)}, nil
}

func (p *Pin) String() string {
	return fmt.Sprintf("rpio/GPIO%d", uint8(p.pin))
}

// Out drives the line. The level is set before switching to output so the
// line does not glitch.
func (p *Pin) Out(l gpio.Level) error {
	if l == gpio.High {
		p.pin.High()
	} else {
		p.pin.Low()
	}
	p.pin.Output()
	return nil
}

// In releases the line. Edge detection is not used.
func (p *Pin) In(pull gpio.Pull, edge gpio.Edge) error {
	p.pin.Input()
	switch pull {
	case gpio.PullUp:
		p.pin.PullUp()
	case gpio.PullDown:
		p.pin.PullDown()
	case gpio.Float:
		p.pin.PullOff()
	}
	return nil
}

func (p *Pin) Read() gpio.Level {
	return p.pin.Read() == rpio.High
}

// Close unmaps the GPIO registers.
func (p *Pin) Close() error {
	return rpio.Close()
}
