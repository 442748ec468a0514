// Copyright 2026 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package owgpio

import (
	"fmt"

	"github.com/GermanBionicSystems/thermowire/common"
	"periph.io/x/conn/v3/onewire"
)

// SearchState is the branch bookkeeping of one enumeration of the bus.
//
// Bit positions are 0..63 with -1 meaning none. The state is owned by the
// caller and may be inspected after Discover returns.
type SearchState struct {
	Previous     onewire.Address // identity found by the previous pass
	Current      onewire.Address // identity assembled by the current pass
	LastConflict int             // branch point to flip in this pass
	NewConflict  int             // branch point recorded for the next pass

	Max       int  // identities to keep; 0 keeps all
	AlarmOnly bool // enumerate only devices in alarm state
	Dropped   int  // identities found past Max
}

// Reset clears the state before a fresh enumeration. Max and AlarmOnly are
// kept.
func (s *SearchState) Reset() {
	s.Previous = 0
	s.Current = 0
	s.LastConflict = -1
	s.NewConflict = -1
	s.Dropped = 0
}

// Discover enumerates the devices on the bus.
//
// Each pass resets the bus, issues Search ROM and walks the 64 address bits.
// At every bit all remaining devices send the bit and its complement; when
// both values are present the master picks a branch and the devices on the
// other branch drop out of the pass. Passes repeat until no unexplored branch
// is left, so the bus is locked for the whole enumeration.
//
// Identities past s.Max are counted in s.Dropped and the search continues.
// If a pass fails, the identities found so far are returned with the error.
func (d *Dev) Discover(s *SearchState) ([]onewire.Address, error) {
	d.Lock()
	defer d.Unlock()
	s.Reset()
	var found []onewire.Address
	for {
		if err := d.searchPass(s); err != nil {
			return found, err
		}
		if s.Max <= 0 || len(found) < s.Max {
			found = append(found, s.Current)
		} else {
			s.Dropped++
		}
		if s.LastConflict < 0 {
			return found, nil
		}
	}
}

// Search performs a "search" cycle on the 1-wire bus and returns the addresses
// of all devices on the bus if alarmOnly is false and of all devices in alarm
// state if alarmOnly is true.
//
// At most Opts.MaxDevices addresses are returned. When no device is in alarm
// state an alarm search returns common.ErrNoDevice.
func (d *Dev) Search(alarmOnly bool) ([]onewire.Address, error) {
	return d.Discover(&SearchState{Max: d.opts.MaxDevices, AlarmOnly: alarmOnly})
}

// SearchTriplet performs a single bit search triplet on the bus: two read
// slots followed by writing the chosen direction.
//
// When the reads disagree the direction is forced to the only value present.
// SearchTriplet exists so onewire.Search can drive this master; Discover does
// the same work without a call per bit.
func (d *Dev) SearchTriplet(direction byte) (onewire.TripletResult, error) {
	d.Lock()
	defer d.Unlock()
	bitZero, err := d.readBit()
	if err != nil {
		return onewire.TripletResult{}, err
	}
	bitOne, err := d.readBit()
	if err != nil {
		return onewire.TripletResult{}, err
	}
	tr := onewire.TripletResult{GotZero: bitZero == 0, GotOne: bitOne == 0}
	switch {
	case tr.GotZero && tr.GotOne:
		tr.Taken = direction & 1
	case tr.GotZero:
		tr.Taken = 0
	default:
		tr.Taken = 1
	}
	return tr, d.writeBit(tr.Taken)
}

// searchPass runs one pass of the search and leaves the identity it found in
// s.Current.
func (d *Dev) searchPass(s *SearchState) error {
	if err := d.reset(); err != nil {
		return err
	}
	cmd := byte(cmdSearchROM)
	if s.AlarmOnly {
		cmd = cmdAlarmSearch
	}
	if err := d.writeByte(cmd); err != nil {
		return err
	}
	s.Previous = s.Current
	s.Current = 0
	s.NewConflict = -1
	for i := 0; i < 64; i++ {
		bitZero, err := d.readBit()
		if err != nil {
			return err
		}
		bitOne, err := d.readBit()
		if err != nil {
			return err
		}
		if bitZero == 1 && bitOne == 1 {
			return fmt.Errorf("owgpio: search bit %d: %w", i, common.ErrNoDevice)
		}
		bit := bitZero
		if bitZero == bitOne {
			// Devices disagree on this bit.
			switch {
			case i < s.LastConflict:
				bit = byte(s.Previous>>uint(i)) & 1
			case i == s.LastConflict:
				bit = 1
			default:
				bit = 0
			}
			// The deepest branch taken towards 0 is flipped next pass.
			if bit == 0 {
				s.NewConflict = i
			}
		}
		if err := d.writeBit(bit); err != nil {
			return err
		}
		s.Current |= onewire.Address(bit) << uint(i)
	}
	s.LastConflict = s.NewConflict
	return nil
}
