// Copyright 2026 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

// Package owgpio implements a 1-wire bus master by bit-banging a single GPIO
// line.
//
// The line is operated open-drain: the master only ever drives it low or
// releases it, relying on a pull-up resistor to bring it high. Every bit is a
// timed slot, so the process must be able to meet the slot budgets of a few
// microseconds; the default delay primitive busy-waits for this reason.
//
// Dev implements onewire.Bus and onewire.BusSearcher and can be used with any
// driver written against periph.io/x/conn/v3/onewire.
//
// Datasheet
//
// https://www.analog.com/en/resources/technical-articles/1wire-communication-through-software.html
package owgpio

import (
	"encoding/binary"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/GermanBionicSystems/thermowire/common"
	"periph.io/x/conn/v3"
	"periph.io/x/conn/v3/gpio"
	"periph.io/x/conn/v3/onewire"
)

// Pin is the line capability the master drives.
//
// gpio.PinIO implements it. Out(gpio.Low) pulls the line low, In releases it
// and Read samples it. Out(gpio.High) is only used to actively source current
// to parasite powered devices during a strong pull-up.
type Pin interface {
	Out(l gpio.Level) error
	In(pull gpio.Pull, edge gpio.Edge) error
	Read() gpio.Level
}

// Opts contains options to pass to the constructor.
type Opts struct {
	ResetLow       time.Duration // reset low time, at least 480μs
	PresenceDetect time.Duration // time between release and presence sample
	ResetRecovery  time.Duration // rest of the presence window
	Write0Low      time.Duration // write zero low time
	Write0Recovery time.Duration // write zero recovery time
	Write1Low      time.Duration // write one low time
	Write1Recovery time.Duration // write one recovery time
	ReadLow        time.Duration // read slot initiation
	ReadSample     time.Duration // time between release and sample
	ReadRecovery   time.Duration // rest of the read slot

	// Pull is applied to the pin when the line is released. Use
	// gpio.PullNoChange with an external pull-up resistor.
	Pull gpio.Pull
	// MaxDevices is the number of identities Search keeps. Devices found past
	// this count are skipped.
	MaxDevices int
	// Delay waits for the given duration. It must not return early. The
	// default busy-waits on the monotonic clock.
	Delay func(time.Duration)
}

// DefaultOpts is the recommended default options for standard speed.
var DefaultOpts = Opts{
	ResetLow:       480 * time.Microsecond,
	PresenceDetect: 70 * time.Microsecond,
	ResetRecovery:  410 * time.Microsecond,
	Write0Low:      60 * time.Microsecond,
	Write0Recovery: 10 * time.Microsecond,
	Write1Low:      6 * time.Microsecond,
	Write1Recovery: 64 * time.Microsecond,
	ReadLow:        6 * time.Microsecond,
	ReadSample:     9 * time.Microsecond,
	ReadRecovery:   55 * time.Microsecond,
	Pull:           gpio.PullNoChange,
	MaxDevices:     8,
}

// New returns a 1-wire bus master driving p.
//
// The line is released immediately. opts may be nil, in which case
// DefaultOpts is used.
func New(p Pin, opts *Opts) (*Dev, error) {
	if opts == nil {
		opts = &DefaultOpts
	}
	if opts.ResetLow < 480*time.Microsecond {
		return nil, errors.New("owgpio: reset low time must be at least 480µs")
	}
	if opts.MaxDevices < 1 {
		return nil, errors.New("owgpio: MaxDevices must be at least 1")
	}
	d := &Dev{p: p, opts: *opts, delay: opts.Delay}
	if d.delay == nil {
		d.delay = spin
	}
	if err := p.In(d.opts.Pull, gpio.NoEdge); err != nil {
		return nil, fmt.Errorf("owgpio: failed to release line: %w", err)
	}
	return d, nil
}

// Dev is a handle to a bit-banged 1-wire bus.
//
// Dev implements the persistent error model of periph's ds248x: a failure of
// the pin itself is kept and returned by every later call. Conditions of the
// 1-wire bus, such as a missing presence pulse, are not persistent and
// implement onewire.BusError.
type Dev struct {
	sync.Mutex                     // lock for the bus while a transaction is in progress
	p          Pin                 // line
	opts       Opts                // timing
	delay      func(time.Duration) // busy-wait primitive
	err        error               // persistent error, bus will no longer operate
}

func (d *Dev) String() string {
	if s, ok := d.p.(fmt.Stringer); ok {
		return "owgpio{" + s.String() + "}"
	}
	return "owgpio"
}

// Halt implements conn.Resource.
//
// It ends a strong pull-up, leaving the line released.
func (d *Dev) Halt() error {
	d.Lock()
	defer d.Unlock()
	d.release()
	return d.err
}

// Reset issues a reset pulse and returns common.ErrNoDevice if no device
// answered with a presence pulse.
func (d *Dev) Reset() error {
	d.Lock()
	defer d.Unlock()
	return d.reset()
}

// WriteBit writes a single bit, which must be 0 or 1.
func (d *Dev) WriteBit(b byte) error {
	d.Lock()
	defer d.Unlock()
	return d.writeBit(b)
}

// ReadBit performs a read slot and returns the sampled bit.
//
// The line is wired-AND: the bit is 0 if any device holds the line low.
func (d *Dev) ReadBit() (byte, error) {
	d.Lock()
	defer d.Unlock()
	return d.readBit()
}

// WriteByte writes b least significant bit first.
func (d *Dev) WriteByte(b byte) error {
	d.Lock()
	defer d.Unlock()
	return d.writeByte(b)
}

// ReadByte reads one byte least significant bit first.
func (d *Dev) ReadByte() (byte, error) {
	d.Lock()
	defer d.Unlock()
	return d.readByte()
}

// Select resets the bus and addresses the device with the given address
// (Match ROM). All other devices ignore the bus until the next reset.
//
// The protocol has no acknowledge; a wrong address only shows up as a later
// checksum failure.
func (d *Dev) Select(a onewire.Address) error {
	d.Lock()
	defer d.Unlock()
	if err := d.reset(); err != nil {
		return err
	}
	if err := d.writeByte(cmdMatchROM); err != nil {
		return err
	}
	var buf [8]byte
	binary.LittleEndian.PutUint64(buf[:], uint64(a))
	for _, b := range buf {
		if err := d.writeByte(b); err != nil {
			return err
		}
	}
	return nil
}

// Skip resets the bus and addresses all devices at once (Skip ROM).
func (d *Dev) Skip() error {
	d.Lock()
	defer d.Unlock()
	if err := d.reset(); err != nil {
		return err
	}
	return d.writeByte(cmdSkipROM)
}

// ReadROM returns the address of the only device on the bus (Read ROM).
//
// With more than one device present the answers collide and the CRC check
// almost always fails with common.ErrChecksum.
func (d *Dev) ReadROM() (onewire.Address, error) {
	d.Lock()
	defer d.Unlock()
	if err := d.reset(); err != nil {
		return 0, err
	}
	if err := d.writeByte(cmdReadROM); err != nil {
		return 0, err
	}
	var buf [8]byte
	for i := range buf {
		b, err := d.readByte()
		if err != nil {
			return 0, err
		}
		buf[i] = b
	}
	if !onewire.CheckCRC(buf[:]) {
		return 0, fmt.Errorf("owgpio: read rom %#x: %w", buf, common.ErrChecksum)
	}
	return onewire.Address(binary.LittleEndian.Uint64(buf[:])), nil
}

// Tx performs a bus transaction, sending and receiving bytes, and ending by
// pulling the bus high either weakly or strongly depending on the value of
// power.
//
// A strong pull-up lasts until the next operation on the bus or Halt. It is
// typically required to power a temperature conversion.
func (d *Dev) Tx(w, r []byte, power onewire.Pullup) error {
	d.Lock()
	defer d.Unlock()
	if err := d.reset(); err != nil {
		return err
	}
	for _, b := range w {
		if err := d.writeByte(b); err != nil {
			return err
		}
	}
	for i := range r {
		b, err := d.readByte()
		if err != nil {
			return err
		}
		r[i] = b
	}
	if power == onewire.StrongPullup {
		d.high()
	}
	return d.err
}

//

func (d *Dev) reset() error {
	d.release()
	if d.err != nil {
		return d.err
	}
	if d.p.Read() == gpio.Low {
		return common.ShortedError("owgpio: bus has a short")
	}
	d.low()
	d.delay(d.opts.ResetLow)
	d.release()
	d.delay(d.opts.PresenceDetect)
	present := d.p.Read() == gpio.Low
	d.delay(d.opts.ResetRecovery)
	if d.err != nil {
		return d.err
	}
	if !present {
		return common.ErrNoDevice
	}
	return nil
}

func (d *Dev) writeBit(b byte) error {
	switch b {
	case 0:
		d.low()
		d.delay(d.opts.Write0Low)
		d.release()
		d.delay(d.opts.Write0Recovery)
	case 1:
		d.low()
		d.delay(d.opts.Write1Low)
		d.release()
		d.delay(d.opts.Write1Recovery)
	default:
		return fmt.Errorf("owgpio: %w %d", common.ErrInvalidBit, b)
	}
	return d.err
}

func (d *Dev) readBit() (byte, error) {
	d.low()
	d.delay(d.opts.ReadLow)
	d.release()
	d.delay(d.opts.ReadSample)
	l := d.p.Read()
	d.delay(d.opts.ReadRecovery)
	if d.err != nil {
		return 0, d.err
	}
	if l == gpio.High {
		return 1, nil
	}
	return 0, nil
}

func (d *Dev) writeByte(b byte) error {
	for i := 0; i < 8; i++ {
		if err := d.writeBit((b >> uint(i)) & 1); err != nil {
			return err
		}
	}
	return nil
}

func (d *Dev) readByte() (byte, error) {
	var v byte
	for i := 0; i < 8; i++ {
		b, err := d.readBit()
		if err != nil {
			return 0, err
		}
		v |= b << uint(i)
	}
	return v, nil
}

// low, release and high persist the first pin error and do nothing once one
// is set.

func (d *Dev) low() {
	if d.err != nil {
		return
	}
	if err := d.p.Out(gpio.Low); err != nil {
		d.err = fmt.Errorf("owgpio: failed to drive line low: %w", err)
	}
}

func (d *Dev) release() {
	if d.err != nil {
		return
	}
	if err := d.p.In(d.opts.Pull, gpio.NoEdge); err != nil {
		d.err = fmt.Errorf("owgpio: failed to release line: %w", err)
	}
}

func (d *Dev) high() {
	if d.err != nil {
		return
	}
	if err := d.p.Out(gpio.High); err != nil {
		d.err = fmt.Errorf("owgpio: failed to enable strong pull-up: %w", err)
	}
}

// spin busy-waits for d; time.Sleep cannot resolve single microseconds.
func spin(d time.Duration) {
	for start := time.Now(); time.Since(start) < d; {
	}
}

const (
	cmdReadROM     = 0x33 // address the only device on the bus
	cmdMatchROM    = 0x55 // address one device
	cmdSkipROM     = 0xcc // address all devices
	cmdSearchROM   = 0xf0 // enumerate all devices
	cmdAlarmSearch = 0xec // enumerate devices in alarm state
)

var _ conn.Resource = &Dev{}
var _ onewire.Bus = &Dev{}
var _ onewire.BusSearcher = &Dev{}
