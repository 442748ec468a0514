// Copyright 2026 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

// Package ds18x20 controls the Dallas Semi / Maxim DS18S20, DS18B20, DS1822
// and DS1825 temperature sensors on a 1-wire bus.
//
// Datasheets
//
// https://datasheets.maximintegrated.com/en/ds/DS18S20.pdf
//
// https://datasheets.maximintegrated.com/en/ds/DS18B20.pdf
package ds18x20

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/GermanBionicSystems/thermowire/common"
	"periph.io/x/conn/v3"
	"periph.io/x/conn/v3/onewire"
	"periph.io/x/conn/v3/physic"
)

// Family code of the specific device type
type Family byte

func (f Family) String() string {
	switch f {
	case DS18S20:
		return "DS18S20"
	case DS18B20:
		return "DS18B20"
	case DS1822:
		return "DS1822"
	case DS1825:
		return "DS1825"
	default:
		return "unknown"
	}
}

// Supported reports whether the family is a temperature sensor handled by
// this package.
func (f Family) Supported() bool {
	switch f {
	case DS18S20, DS18B20, DS1822, DS1825:
		return true
	}
	return false
}

// FamilyOf returns the family code stored in the low byte of an address.
func FamilyOf(a onewire.Address) Family {
	return Family(a & 0xff)
}

const (
	DS18S20 Family = 0x10
	DS1822  Family = 0x22
	DS18B20 Family = 0x28
	DS1825  Family = 0x3b
)

// ErrNotConverted is returned when the temperature register still holds its
// power-on value.
const ErrNotConverted common.Error = "ds18x20: has not performed a temperature conversion (insufficient pull-up?)"

const (
	cmdConvert         = 0x44
	cmdReadScratchpad  = 0xbe
	cmdWriteScratchpad = 0x4e
	cmdCopyScratchpad  = 0x48
	cmdReadPower       = 0xb4
	cmdSkipROM         = 0xcc
)

// ConversionTime returns how long a conversion takes at the resolution:
// 9bits:94ms, 10bits:188ms, 11bits:376ms, 12bits:752ms, datasheet p.6.
//
// The DS18S20 always takes the 12 bits time.
func ConversionTime(bits int) time.Duration {
	return (94 << uint(bits-9)) * time.Millisecond
}

// ConvertAll performs a conversion on all the sensors on the bus.
//
// During the conversion it places the bus in strong pull-up mode to power
// parasitic devices and returns when the conversions have completed. This time
// period is determined by the maximum resolution of all devices on the bus and
// must be provided; pass 12 when a DS18S20 is present.
//
// ConvertAll uses time.Sleep to wait for the conversion to finish, which takes
// from 94ms to 752ms.
func ConvertAll(o onewire.Bus, maxResolutionBits int) error {
	if maxResolutionBits < 9 || maxResolutionBits > 12 {
		return errors.New("ds18x20: invalid maxResolutionBits")
	}
	if err := StartAll(o); err != nil {
		return err
	}
	sleep(ConversionTime(maxResolutionBits))
	return nil
}

// StartAll starts a conversion on all the sensors on the bus.
// Similar to ConvertAll but returns without waiting for conversion to finish.
// To be used in conjunction with LastTemp() function. Conversion timing must be
// handled by other means.
func StartAll(o onewire.Bus) error {
	return o.Tx([]byte{cmdSkipROM, cmdConvert}, nil, onewire.StrongPullup)
}

// New returns an object that communicates over 1-wire to the sensor with the
// specified 64-bit address.
//
// resolutionBits must be in the range 9..12 and determines how many bits of
// precision the readings have. The resolution affects the conversion time:
// 9bits:94ms, 10bits:188ms, 11bits:375ms, 12bits:750ms.
//
// The DS18S20 has a fixed resolution; resolutionBits is only validated and
// readings use the count registers for extra precision.
//
// A resolution of 10 bits corresponds to 0.25C and tends to be a good
// compromise between conversion time and the device's inherent accuracy of
// +/-0.5C.
func New(o onewire.Bus, addr onewire.Address, resolutionBits int) (*Dev, error) {
	if resolutionBits < 9 || resolutionBits > 12 {
		return nil, errors.New("ds18x20: invalid resolutionBits")
	}
	f := FamilyOf(addr)
	if !f.Supported() {
		return nil, fmt.Errorf("ds18x20: unsupported family %#02x", byte(f))
	}

	d := &Dev{onewire: onewire.Dev{Bus: o, Addr: addr}, family: f, resolution: resolutionBits}
	if f == DS18S20 {
		d.resolution = 12
	}

	// Start by reading the scratchpad memory, this will tell us whether we can
	// talk to the device correctly and also how it's configured.
	spad, err := d.ReadScratchpad()
	if err != nil {
		return nil, err
	}

	// Change the resolution, if necessary (datasheet p.6). The alarm
	// thresholds are written back unchanged.
	raw := spad.Raw()
	if f != DS18S20 && raw.Resolution(f) != resolutionBits {
		w := []byte{cmdWriteScratchpad, spad[2], spad[3], byte((resolutionBits-9)<<5) | 0x1f}
		if err := d.onewire.Tx(w, nil); err != nil {
			return nil, err
		}
		// Copy the scratchpad to EEPROM to save the values.
		if err := d.onewire.TxPower([]byte{cmdCopyScratchpad}, nil); err != nil {
			return nil, err
		}
		// Wait for the write to complete.
		sleep(10 * time.Millisecond)
	}

	return d, nil
}

// Dev is a handle to a temperature sensor on a 1-wire bus.
type Dev struct {
	onewire    onewire.Dev // device on 1-wire bus
	family     Family
	resolution int // resolution in bits (9..12)

	mu   sync.Mutex
	stop chan struct{}
	done chan struct{}
}

// Reading is one acquisition from a sensor.
type Reading struct {
	Addr    onewire.Address
	Family  Family
	Raw     Raw
	Celsius float64
}

// Temperature returns the reading as a physic.Temperature.
func (r *Reading) Temperature() physic.Temperature {
	return physic.Temperature(r.Celsius*float64(physic.Celsius)) + physic.ZeroCelsius
}

// ID returns the name the Linux w1 subsystem gives the device, family code
// then serial number: 28-00000e41ac.
func (r *Reading) ID() string {
	return ID(r.Addr)
}

// ID formats an address the way the Linux w1 subsystem names devices.
func ID(a onewire.Address) string {
	return fmt.Sprintf("%02x-%012x", byte(a), uint64(a>>8)&0xffffffffffff)
}

func (d *Dev) Family() Family {
	return d.family
}

// Addr returns the device address.
func (d *Dev) Addr() onewire.Address {
	return d.onewire.Addr
}

// Resolution returns the resolution in bits used to time conversions.
func (d *Dev) Resolution() int {
	return d.resolution
}

func (d *Dev) String() string {
	return d.family.String() + "{" + d.onewire.String() + "}"
}

// Halt implements conn.Resource.
//
// It stops a SenseContinuous loop and waits for it to exit.
func (d *Dev) Halt() error {
	d.mu.Lock()
	stop, done := d.stop, d.done
	d.stop, d.done = nil, nil
	d.mu.Unlock()
	if stop != nil {
		close(stop)
		<-done
	}
	return nil
}

// Sense implements physic.SenseEnv.
func (d *Dev) Sense(e *physic.Env) error {
	if err := d.onewire.TxPower([]byte{cmdConvert}, nil); err != nil {
		return err
	}
	sleep(ConversionTime(d.resolution))
	t, err := d.LastTemp()
	if err != nil {
		return err
	}
	e.Temperature = t
	return nil
}

// SenseContinuous implements physic.SenseEnv.
//
// The device is converted and read every interval until Halt is called.
// Failed acquisitions are skipped.
func (d *Dev) SenseContinuous(interval time.Duration) (<-chan physic.Env, error) {
	if interval < ConversionTime(d.resolution) {
		return nil, errors.New("ds18x20: interval shorter than the conversion time")
	}
	if err := d.Halt(); err != nil {
		return nil, err
	}
	stop := make(chan struct{})
	done := make(chan struct{})
	d.mu.Lock()
	d.stop, d.done = stop, done
	d.mu.Unlock()
	c := make(chan physic.Env)
	go func() {
		defer close(done)
		defer close(c)
		t := time.NewTicker(interval)
		defer t.Stop()
		for {
			var e physic.Env
			if err := d.Sense(&e); err == nil {
				select {
				case c <- e:
				case <-stop:
					return
				}
			}
			select {
			case <-t.C:
			case <-stop:
				return
			}
		}
	}()
	return c, nil
}

// Precision implements physic.SenseEnv.
func (d *Dev) Precision(e *physic.Env) {
	if d.family == DS18S20 {
		e.Temperature = physic.Kelvin / 16
		return
	}
	e.Temperature = physic.Kelvin / physic.Temperature(2<<uint(d.resolution-9))
}

// LastTemp reads the temperature resulting from the last conversion from the
// device.
//
// It is useful in combination with ConvertAll.
func (d *Dev) LastTemp() (physic.Temperature, error) {
	r, err := d.LastReading()
	if err != nil {
		return 0, err
	}
	return r.Temperature(), nil
}

// LastReading is Reading for the last conversion; it returns ErrNotConverted
// when the device reports its power-on value.
func (d *Dev) LastReading() (Reading, error) {
	r, err := d.Reading()
	if err != nil {
		return Reading{}, err
	}
	// The device powers up with a value of 85°C, so if we read that odds are
	// very high that either no conversion was performed or that the conversion
	// failed due to lack of power. This prevents reading a temp of exactly 85°C,
	// but that seems like the right tradeoff.
	if r.Raw.powerOn(d.family) {
		return Reading{}, ErrNotConverted
	}
	return r, nil
}

// Reading reads the scratchpad and converts it without starting a
// conversion.
//
// The power-on value is returned as is; use LastTemp to reject it.
func (d *Dev) Reading() (Reading, error) {
	spad, err := d.ReadScratchpad()
	if err != nil {
		return Reading{}, err
	}
	raw := spad.Raw()
	return Reading{Addr: d.onewire.Addr, Family: d.family, Raw: raw, Celsius: raw.Celsius(d.family)}, nil
}

// ReadScratchpad reads the 9 bytes of scratchpad and checks the CRC.
func (d *Dev) ReadScratchpad() (Scratchpad, error) {
	var spad Scratchpad
	if err := d.onewire.Tx([]byte{cmdReadScratchpad}, spad[:]); err != nil {
		return Scratchpad{}, err
	}
	if err := spad.Check(); err != nil {
		return Scratchpad{}, err
	}
	return spad, nil
}

// IsParasitic reports whether the device draws its power from the data line.
func (d *Dev) IsParasitic() (bool, error) {
	return ReadPowerSupply(d.onewire.Bus, d.onewire.Addr)
}

// ReadPowerSupply reports whether the sensor at addr is parasite powered
// without opening it, so its configuration is left untouched.
//
// A parasitic device answers the first read slot after Read Power Supply with
// a 0.
func ReadPowerSupply(o onewire.Bus, addr onewire.Address) (bool, error) {
	dev := onewire.Dev{Bus: o, Addr: addr}
	var r [1]byte
	if err := dev.Tx([]byte{cmdReadPower}, r[:]); err != nil {
		return false, err
	}
	return r[0]&1 == 0, nil
}

var sleep = time.Sleep

var _ conn.Resource = &Dev{}
var _ physic.SenseEnv = &Dev{}
