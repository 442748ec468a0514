// Copyright 2026 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package config

// Backends accepted in bus.driver.
const (
	DriverPeriph = "periph"
	DriverRPIO   = "rpio"
)

// Defaults applied by Normalize.
const (
	DefaultMaxDevices     = 8
	DefaultResolutionBits = 12
	DefaultRetries        = 2
	DefaultIntervalMs     = 5000
	DefaultMeasurement    = "temperature"
	DefaultFrameWidth     = 128
	DefaultFrameHeight    = 64
)

// Normalize fills unset values with their defaults.
// It MUST be called only after Validate().
func Normalize(cfg *Config) {
	if cfg == nil {
		return
	}
	if cfg.Bus.Driver == "" {
		cfg.Bus.Driver = DriverPeriph
	}
	if cfg.Bus.MaxDevices == 0 {
		cfg.Bus.MaxDevices = DefaultMaxDevices
	}
	if cfg.Sensors.ResolutionBits == 0 {
		cfg.Sensors.ResolutionBits = DefaultResolutionBits
	}
	// Retries of 0 is meaningful and kept.
	if cfg.Poll.IntervalMs == 0 {
		cfg.Poll.IntervalMs = DefaultIntervalMs
	}
	if cfg.Log.Level == "" {
		cfg.Log.Level = "info"
	}
	if i := cfg.Influx; i != nil && i.Measurement == "" {
		i.Measurement = DefaultMeasurement
	}
	if f := cfg.Frame; f != nil {
		if f.Width == 0 {
			f.Width = DefaultFrameWidth
		}
		if f.Height == 0 {
			f.Height = DefaultFrameHeight
		}
	}
}

// Default returns a normalized configuration for the bus on pin.
func Default(pin string) *Config {
	cfg := &Config{
		Bus:     BusConfig{Pin: pin},
		Sensors: SensorsConfig{Retries: DefaultRetries},
	}
	Normalize(cfg)
	return cfg
}
