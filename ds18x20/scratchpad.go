// Copyright 2026 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package ds18x20

import (
	"fmt"

	"github.com/GermanBionicSystems/thermowire/common"
	"periph.io/x/conn/v3/onewire"
)

// Scratchpad is the memory block sent by a device on Read Scratchpad, CRC
// included.
type Scratchpad [9]byte

// Check validates the CRC of the block.
//
// A block of all ones means no device drove the line and returns
// common.ErrNoDevice. A block of all zeros cannot be produced by a working
// device and is reported as a checksum failure even though its CRC matches.
func (s *Scratchpad) Check() error {
	ones, zeros := true, true
	for _, b := range s {
		ones = ones && b == 0xff
		zeros = zeros && b == 0
	}
	if ones {
		return fmt.Errorf("ds18x20: device did not respond: %w", common.ErrNoDevice)
	}
	if zeros || !onewire.CheckCRC(s[:]) {
		return fmt.Errorf("ds18x20: scratchpad %#x: %w", s[:], common.ErrChecksum)
	}
	return nil
}

// Raw returns the decoded fields of the scratchpad.
func (s *Scratchpad) Raw() Raw {
	return Raw{
		Temperature: int16(s[1])<<8 | int16(s[0]),
		TH:          int8(s[2]),
		TL:          int8(s[3]),
		Config:      s[4],
		Reserved:    s[5],
		CountRemain: s[6],
		CountPerC:   s[7],
		CRC:         s[8],
	}
}

// Raw is the content of a scratchpad. Datasheet p.7.
type Raw struct {
	Temperature int16 // bytes 0 and 1, LSB first
	TH          int8  // alarm high threshold or user byte 1
	TL          int8  // alarm low threshold or user byte 2
	Config      byte  // resolution on the DS18B20, reserved on the DS18S20
	Reserved    byte
	CountRemain byte // DS18S20 only
	CountPerC   byte // DS18S20 only
	CRC         byte
}

// Resolution returns the conversion resolution in bits.
//
// The DS18S20 always reports 9 bits in its temperature register.
func (r *Raw) Resolution(f Family) int {
	if f == DS18S20 {
		return 9
	}
	return 9 + int(r.Config>>5)&3
}

// Celsius converts the temperature register according to the family layout.
//
// On the DS18B20 the low bits left undefined at resolutions under 12 bits are
// ignored. On the DS18S20 the count registers extend the resolution; a
// CountPerC of 0 falls back to the 0.5°C register value.
func (r *Raw) Celsius(f Family) float64 {
	if f == DS18S20 {
		if r.CountPerC == 0 {
			return float64(r.Temperature) * 0.5
		}
		return CelsiusS20(int(r.Temperature>>1), int(r.CountPerC), int(r.CountRemain))
	}
	raw := r.Temperature &^ (int16(1)<<uint(12-r.Resolution(f)) - 1)
	return CelsiusB20(raw)
}

// powerOn reports whether the register holds the value loaded at power up,
// 85°C, meaning no conversion completed.
func (r *Raw) powerOn(f Family) bool {
	if f == DS18S20 {
		return r.Temperature == 0x00aa
	}
	return r.Temperature == 0x0550
}
