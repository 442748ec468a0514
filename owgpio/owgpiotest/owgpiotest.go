// Copyright 2026 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

// Package owgpiotest simulates a 1-wire line and the devices attached to it.
//
// Bus implements owgpio.Pin on a virtual clock advanced by Bus.Delay, so a
// owgpio.Dev created with Opts.Delay set to Bus.Delay runs deterministically
// and instantly. Devices decode the master's slots from the width of its low
// pulses and answer by holding the line low, exactly like the hardware.
package owgpiotest

import (
	"encoding/binary"
	"sync"
	"time"

	"periph.io/x/conn/v3/gpio"
	"periph.io/x/conn/v3/onewire"
)

// Bus is an open-drain line shared by simulated devices.
type Bus struct {
	sync.Mutex
	// Shorted holds the line low permanently.
	Shorted bool
	// Resets counts the reset pulses seen.
	Resets int
	// Boosts records the duration of every strong pull-up.
	Boosts []time.Duration

	now     time.Duration
	low     bool          // master drives the line low
	high    bool          // master drives the line high
	fell    time.Duration // time of the master's last falling edge
	boosted time.Duration // start of the current strong pull-up
	powered []span        // past strong pull-ups
	devices []*Device
}

type span struct {
	start, end time.Duration
}

// Attach connects devices to the line.
func (b *Bus) Attach(devices ...*Device) {
	b.Lock()
	defer b.Unlock()
	for _, d := range devices {
		d.bus = b
		b.devices = append(b.devices, d)
	}
}

// Detach disconnects the device with address a.
func (b *Bus) Detach(a onewire.Address) {
	b.Lock()
	defer b.Unlock()
	for i, d := range b.devices {
		if d.Addr == a {
			d.bus = nil
			b.devices = append(b.devices[:i], b.devices[i+1:]...)
			return
		}
	}
}

// Delay advances the virtual clock. It matches owgpio.Opts.Delay.
func (b *Bus) Delay(d time.Duration) {
	b.Lock()
	defer b.Unlock()
	b.now += d
}

// Now returns the virtual time elapsed since the bus was created.
func (b *Bus) Now() time.Duration {
	b.Lock()
	defer b.Unlock()
	return b.now
}

func (b *Bus) String() string {
	return "owgpiotest"
}

// Out implements owgpio.Pin.
func (b *Bus) Out(l gpio.Level) error {
	b.Lock()
	defer b.Unlock()
	if l == gpio.Low {
		if b.low {
			return nil
		}
		b.endBoost()
		b.low = true
		b.fell = b.now
		for _, d := range b.devices {
			d.fall(b.now)
		}
		return nil
	}
	if b.low {
		b.rise()
	}
	if !b.high {
		b.high = true
		b.boosted = b.now
	}
	return nil
}

// In implements owgpio.Pin.
func (b *Bus) In(pull gpio.Pull, edge gpio.Edge) error {
	b.Lock()
	defer b.Unlock()
	if b.low {
		b.rise()
	}
	b.endBoost()
	return nil
}

// Read implements owgpio.Pin.
func (b *Bus) Read() gpio.Level {
	b.Lock()
	defer b.Unlock()
	if b.Shorted || b.low {
		return gpio.Low
	}
	if b.high {
		return gpio.High
	}
	for _, d := range b.devices {
		if d.pulling(b.now) {
			return gpio.Low
		}
	}
	return gpio.High
}

func (b *Bus) rise() {
	b.low = false
	w := b.now - b.fell
	if w >= resetLow {
		b.Resets++
	}
	for _, d := range b.devices {
		d.rise(b.now, w)
	}
}

func (b *Bus) endBoost() {
	if !b.high {
		return
	}
	b.high = false
	b.Boosts = append(b.Boosts, b.now-b.boosted)
	b.powered = append(b.powered, span{b.boosted, b.now})
}

// poweredSince reports whether the line was strongly pulled up for at least
// dur, starting after t.
func (b *Bus) poweredSince(t, dur time.Duration) bool {
	if b.high && b.boosted >= t && b.now-b.boosted >= dur {
		return true
	}
	for _, p := range b.powered {
		if p.start >= t && p.end-p.start >= dur {
			return true
		}
	}
	return false
}

// MakeAddress builds a device address from its family code and 48-bit serial
// number, computing the CRC byte.
func MakeAddress(family byte, serial uint64) onewire.Address {
	var buf [8]byte
	binary.LittleEndian.PutUint64(buf[:], (serial&0xffffffffffff)<<8|uint64(family))
	buf[7] = onewire.CalcCRC(buf[:7])
	return onewire.Address(binary.LittleEndian.Uint64(buf[:]))
}

// Slot timings as seen by a device. A low pulse shorter than sampleAt is a
// 1, longer is a 0; a device answering 0 holds the line for holdLow.
const (
	resetLow      = 480 * time.Microsecond
	sampleAt      = 15 * time.Microsecond
	holdLow       = 30 * time.Microsecond
	presenceWait  = 15 * time.Microsecond
	presenceWidth = 120 * time.Microsecond
)
