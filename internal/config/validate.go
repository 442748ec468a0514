// Copyright 2026 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package config

import (
	"strconv"
	"time"

	"github.com/GermanBionicSystems/thermowire/ds18x20"
	"github.com/charmbracelet/log"
	"github.com/pkg/errors"
)

// Validate checks configuration correctness.
// Zero values mean "use the default" and are accepted.
// It does not mutate the configuration.
func Validate(cfg *Config) error {
	if cfg == nil {
		return errors.New("config is nil")
	}

	// ---- bus ----
	if cfg.Bus.Pin == "" {
		return errors.New("bus.pin is required")
	}
	switch cfg.Bus.Driver {
	case "", DriverPeriph:
	case DriverRPIO:
		if n, err := strconv.Atoi(cfg.Bus.Pin); err != nil || n < 0 || n > 53 {
			return errors.Errorf("bus.pin %q: rpio needs a BCM number", cfg.Bus.Pin)
		}
	default:
		return errors.Errorf("bus.driver %q: must be %s or %s", cfg.Bus.Driver, DriverPeriph, DriverRPIO)
	}
	if cfg.Bus.MaxDevices < 0 {
		return errors.Errorf("bus.max_devices %d: must be >= 0", cfg.Bus.MaxDevices)
	}

	// ---- sensors ----
	bits := cfg.Sensors.ResolutionBits
	if bits != 0 && (bits < 9 || bits > 12) {
		return errors.Errorf("sensors.resolution_bits %d: must be in 9..12", bits)
	}
	if cfg.Sensors.Retries < 0 {
		return errors.Errorf("sensors.retries %d: must be >= 0", cfg.Sensors.Retries)
	}

	// ---- poll ----
	if ms := cfg.Poll.IntervalMs; ms != 0 {
		// A DS18S20 always takes the 12 bits conversion time.
		if d := time.Duration(ms) * time.Millisecond; d < ds18x20.ConversionTime(12) {
			return errors.Errorf("poll.interval_ms %d: shorter than a conversion (%s)", ms, ds18x20.ConversionTime(12))
		}
	}
	if cfg.Poll.RescanEvery < 0 {
		return errors.Errorf("poll.rescan_every %d: must be >= 0", cfg.Poll.RescanEvery)
	}

	// ---- log ----
	if cfg.Log.Level != "" {
		if _, err := log.ParseLevel(cfg.Log.Level); err != nil {
			return errors.Wrapf(err, "log.level %q", cfg.Log.Level)
		}
	}

	// ---- outputs ----
	if i := cfg.Influx; i != nil {
		if i.URL == "" || i.Org == "" || i.Bucket == "" {
			return errors.New("influx: url, org and bucket are required")
		}
	}
	if h := cfg.HTTP; h != nil && h.Addr == "" {
		return errors.New("http.addr is required")
	}
	if f := cfg.Frame; f != nil {
		if f.Path == "" {
			return errors.New("frame.path is required")
		}
		if f.Width < 0 || f.Height < 0 {
			return errors.Errorf("frame size %dx%d: must be positive", f.Width, f.Height)
		}
	}
	return nil
}
