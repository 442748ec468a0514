// Copyright 2026 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

// Package common contains the error kinds shared by the 1-wire master and the
// device drivers built on top of it.
//
// Drivers wrap these values with fmt.Errorf and %w so callers can match the
// kind with errors.Is regardless of which layer reported it.
package common

import (
	"errors"

	"periph.io/x/conn/v3/onewire"
)

// Error is a 1-wire error kind.
//
// Every kind except ErrInvalidBit is a condition of the bus or of the devices
// on it, and reports so through onewire.BusError.
type Error string

func (e Error) Error() string { return string(e) }

// BusError implements onewire.BusError.
func (e Error) BusError() bool { return e != ErrInvalidBit }

// NoDevices implements onewire.NoDevicesError.
func (e Error) NoDevices() bool { return e == ErrNoDevice }

const (
	// ErrNoDevice is returned when no device answered a reset with a presence
	// pulse, or when no device drove a search bit.
	ErrNoDevice Error = "onewire: no device present"
	// ErrChecksum is returned when a block read from a device fails its CRC.
	ErrChecksum Error = "onewire: checksum mismatch"
	// ErrInvalidBit is returned when a bit value other than 0 or 1 is written.
	// It indicates a bug in the caller.
	ErrInvalidBit Error = "onewire: invalid bit value"
	// ErrCapacity reports that a search found more devices than tracked.
	ErrCapacity Error = "onewire: device capacity exceeded"
)

// ShortedError is returned when the data line is held low while it should be
// idle.
type ShortedError string

func (e ShortedError) Error() string   { return string(e) }
func (e ShortedError) IsShorted() bool { return true }
func (e ShortedError) BusError() bool  { return true }

// Recoverable reports whether err is a condition a caller may retry, as
// opposed to a programming error or a failure of the pin driver.
func Recoverable(err error) bool {
	if err == nil || errors.Is(err, ErrInvalidBit) {
		return false
	}
	var be onewire.BusError
	return errors.As(err, &be) && be.BusError()
}

var _ onewire.BusError = ErrNoDevice
var _ onewire.NoDevicesError = ErrNoDevice
var _ onewire.ShortedBusError = ShortedError("")
