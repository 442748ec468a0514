// Copyright 2026 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package poller

import (
	"time"

	"github.com/GermanBionicSystems/thermowire/ds18x20"
	"github.com/GermanBionicSystems/thermowire/owgpio"
	"periph.io/x/conn/v3/onewire"
)

// Bus is the 1-wire master driven by the poller.
type Bus interface {
	onewire.Bus
	Discover(s *owgpio.SearchState) ([]onewire.Address, error)
	ReadROM() (onewire.Address, error)
}

// Indicator reports the outcome of a cycle, nil meaning success.
type Indicator interface {
	Indicate(err error) error
}

// Config is the runtime config the poller needs.
type Config struct {
	Interval       time.Duration
	ResolutionBits int
	// Retries is the number of extra reads of a device after a checksum
	// failure.
	Retries    int
	MaxDevices int
	// SingleDevice addresses the only device with Read ROM.
	SingleDevice bool
	// RescanEvery searches the bus again every n cycles; 0 searches only
	// while no device is known.
	RescanEvery int
}

// Failure is a device that could not be read in a cycle.
type Failure struct {
	Addr onewire.Address
	Err  error
}

// Result is the outcome of one poll cycle.
//
// Err is set when the cycle failed as a whole: nothing was found on the bus or
// the conversion could not be started. Device failures are isolated in
// Failures and do not prevent the other readings.
type Result struct {
	Cycle    int
	At       time.Time
	Readings []ds18x20.Reading
	Failures []Failure
	Err      error
}

// FirstError returns the error to report for the cycle, or nil.
func (r *Result) FirstError() error {
	if r.Err != nil {
		return r.Err
	}
	if len(r.Failures) != 0 {
		return r.Failures[0].Err
	}
	return nil
}
