// Copyright 2026 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package owgpiotest

import (
	"math"
	"time"

	"periph.io/x/conn/v3/onewire"
)

// Device is a simulated DS18S20 or DS18B20 temperature sensor.
//
// The family is taken from the low byte of Addr: 0x10 behaves as a DS18S20,
// anything else as a DS18B20.
type Device struct {
	Addr onewire.Address
	// Celsius is the temperature the next conversion measures.
	Celsius float64
	// Parasite devices only complete a conversion if the line is strongly
	// pulled up for the whole conversion time.
	Parasite bool
	// Conversions counts the completed conversions.
	Conversions int

	bus    *Bus
	spad   [8]byte // scratchpad without CRC
	eeprom [3]byte // TH, TL, configuration
	flip   int     // 1 + index of the bit to invert in the next scratchpad read

	st         state
	after      state // state once tx is sent
	rx         uint64
	rxBits     int
	rxWant     int
	tx         []byte // bits to send, one per slot
	txPos      int
	searchBit  int
	searchStep int // 0: bit, 1: complement, 2: direction
	converting bool
	convertAt  time.Duration
	pullFrom   time.Duration
	pullUntil  time.Duration
}

// NewDevice returns a device in its power-on state, which reports 85°C until
// the first conversion.
func NewDevice(a onewire.Address, celsius float64) *Device {
	d := &Device{Addr: a, Celsius: celsius}
	if d.s20() {
		d.eeprom = [3]byte{0x7d, 0xc9, 0xff}
		d.spad = [8]byte{0xaa, 0x00, 0x7d, 0xc9, 0xff, 0xff, 0x0c, 0x10}
	} else {
		d.eeprom = [3]byte{0x7d, 0xc9, 0x7f}
		d.spad = [8]byte{0x50, 0x05, 0x7d, 0xc9, 0x7f, 0xff, 0x0c, 0x10}
	}
	return d
}

// Scratchpad returns the 9 bytes the device would send, CRC included.
func (d *Device) Scratchpad() [9]byte {
	var buf [9]byte
	copy(buf[:], d.spad[:])
	buf[8] = onewire.CalcCRC(buf[:8])
	return buf
}

// EEPROM returns TH, TL and the configuration register as last copied.
func (d *Device) EEPROM() [3]byte {
	return d.eeprom
}

// CorruptNextRead inverts bit i (0..71) of the next scratchpad sent.
func (d *Device) CorruptNextRead(i int) {
	d.flip = i + 1
}

// Resolution returns the configured conversion resolution in bits.
func (d *Device) Resolution() int {
	if d.s20() {
		return 9
	}
	return 9 + int(d.spad[4]>>5)&3
}

type state int

const (
	stIdle   state = iota // ignore slots until the next reset
	stROM                 // receive a ROM command
	stSearch              // take part in a search pass
	stMatch               // receive an address
	stFunc                // receive a function command
	stTx                  // send tx
	stWrite               // receive scratchpad bytes
)

func (d *Device) s20() bool {
	return d.Addr&0xff == 0x10
}

func (d *Device) addrBit() byte {
	return byte(d.Addr>>uint(d.searchBit)) & 1
}

func (d *Device) pulling(now time.Duration) bool {
	return now >= d.pullFrom && now < d.pullUntil
}

// fall handles the master's falling edge: a device with a 0 to send holds
// the line low.
func (d *Device) fall(now time.Duration) {
	d.finishConversion(now)
	var bit byte
	switch {
	case d.st == stTx && d.txPos < len(d.tx):
		bit = d.tx[d.txPos]
	case d.st == stSearch && d.searchStep == 0:
		bit = d.addrBit()
	case d.st == stSearch && d.searchStep == 1:
		bit = d.addrBit() ^ 1
	default:
		return
	}
	if bit == 0 {
		d.pullFrom = now
		d.pullUntil = now + holdLow
	}
}

// rise handles the end of a low pulse of width w.
func (d *Device) rise(now, w time.Duration) {
	if w >= resetLow {
		d.st = stROM
		d.expect(8)
		d.pullFrom = now + presenceWait
		d.pullUntil = d.pullFrom + presenceWidth
		return
	}
	var bit byte
	if w < sampleAt {
		bit = 1
	}
	switch d.st {
	case stIdle:
		return
	case stTx:
		d.txPos++
		if d.txPos >= len(d.tx) {
			d.st = d.after
			d.expect(8)
		}
		return
	case stSearch:
		if d.searchStep < 2 {
			d.searchStep++
			return
		}
		if bit != d.addrBit() {
			d.st = stIdle
			return
		}
		d.searchStep = 0
		d.searchBit++
		if d.searchBit == 64 {
			d.st = stFunc
			d.expect(8)
		}
		return
	}
	d.rx |= uint64(bit) << uint(d.rxBits)
	d.rxBits++
	if d.rxBits < d.rxWant {
		return
	}
	v := d.rx
	d.rx, d.rxBits = 0, 0
	switch d.st {
	case stROM:
		d.romCommand(byte(v))
	case stMatch:
		if onewire.Address(v) == d.Addr {
			d.st = stFunc
			d.expect(8)
		} else {
			d.st = stIdle
		}
	case stFunc:
		d.function(byte(v), now)
	case stWrite:
		d.spad[2] = byte(v)
		d.spad[3] = byte(v >> 8)
		if !d.s20() {
			d.spad[4] = byte(v>>16)&0x60 | 0x1f
		}
		d.st = stIdle
	}
}

func (d *Device) expect(bits int) {
	d.rx, d.rxBits, d.rxWant = 0, 0, bits
}

func (d *Device) send(buf []byte, after state) {
	d.tx = d.tx[:0]
	for _, b := range buf {
		for i := 0; i < 8; i++ {
			d.tx = append(d.tx, (b>>uint(i))&1)
		}
	}
	d.txPos = 0
	d.st = stTx
	d.after = after
}

func (d *Device) romCommand(cmd byte) {
	switch cmd {
	case 0xf0:
		d.st = stSearch
		d.searchBit, d.searchStep = 0, 0
	case 0xec:
		if !d.alarm() {
			d.st = stIdle
			return
		}
		d.st = stSearch
		d.searchBit, d.searchStep = 0, 0
	case 0x55:
		d.st = stMatch
		d.expect(64)
	case 0xcc:
		d.st = stFunc
		d.expect(8)
	case 0x33:
		var buf [8]byte
		for i := range buf {
			buf[i] = byte(d.Addr >> uint(8*i))
		}
		d.send(buf[:], stFunc)
	default:
		d.st = stIdle
	}
}

func (d *Device) function(cmd byte, now time.Duration) {
	d.st = stIdle
	switch cmd {
	case 0x44:
		d.converting = true
		d.convertAt = now
	case 0xbe:
		buf := d.Scratchpad()
		if d.flip > 0 {
			i := d.flip - 1
			buf[i/8] ^= 1 << uint(i%8)
			d.flip = 0
		}
		d.send(buf[:], stIdle)
	case 0x4e:
		d.st = stWrite
		if d.s20() {
			d.expect(16)
		} else {
			d.expect(24)
		}
	case 0x48:
		copy(d.eeprom[:], d.spad[2:5])
	case 0xb8:
		copy(d.spad[2:5], d.eeprom[:])
	case 0xb4:
		if d.Parasite {
			d.send([]byte{0}, stIdle)
		} else {
			d.send([]byte{1}, stIdle)
		}
		// Only the first bit matters.
		d.tx = d.tx[:1]
	}
}

func (d *Device) conversionTime() time.Duration {
	if d.s20() {
		return 750 * time.Millisecond
	}
	return 93750 * time.Microsecond << uint(d.Resolution()-9)
}

func (d *Device) finishConversion(now time.Duration) {
	if !d.converting {
		return
	}
	need := d.conversionTime()
	if now-d.convertAt < need {
		return
	}
	d.converting = false
	if d.Parasite && (d.bus == nil || !d.bus.poweredSince(d.convertAt, need)) {
		return
	}
	d.Conversions++
	if d.s20() {
		tr := math.Floor(d.Celsius + 0.25)
		frac := d.Celsius - tr
		raw := int16(tr) * 2
		if frac >= 0.5 {
			raw++
		}
		cr := 12 - int(math.Round(16*frac))
		if cr < 0 {
			cr = 0
		} else if cr > 16 {
			cr = 16
		}
		d.spad[0] = byte(raw)
		d.spad[1] = byte(raw >> 8)
		d.spad[6] = byte(cr)
		d.spad[7] = 0x10
		return
	}
	raw := int16(math.Round(d.Celsius * 16))
	raw &^= int16(1)<<uint(12-d.Resolution()) - 1
	d.spad[0] = byte(raw)
	d.spad[1] = byte(raw >> 8)
}

// alarm reports whether the last conversion is at or beyond a threshold.
func (d *Device) alarm() bool {
	raw := int16(d.spad[1])<<8 | int16(d.spad[0])
	var t int
	if d.s20() {
		t = int(raw >> 1)
	} else {
		t = int(raw >> 4)
	}
	return t >= int(int8(d.spad[2])) || t <= int(int8(d.spad[3]))
}
