// Copyright 2026 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package config

import "testing"

// valid returns a minimal valid configuration.
func valid() *Config {
	return &Config{Bus: BusConfig{Pin: "GPIO4"}}
}

func TestValidate_ok(t *testing.T) {
	if err := Validate(valid()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestValidate_nil(t *testing.T) {
	if err := Validate(nil); err == nil {
		t.Fatal("nil config accepted")
	}
}

func TestValidate_fail(t *testing.T) {
	data := []struct {
		name   string
		modify func(c *Config)
	}{
		{"no pin", func(c *Config) { c.Bus.Pin = "" }},
		{"bad driver", func(c *Config) { c.Bus.Driver = "sysfs" }},
		{"rpio pin name", func(c *Config) { c.Bus.Driver = DriverRPIO }},
		{"rpio pin range", func(c *Config) { c.Bus.Driver = DriverRPIO; c.Bus.Pin = "54" }},
		{"negative capacity", func(c *Config) { c.Bus.MaxDevices = -1 }},
		{"resolution low", func(c *Config) { c.Sensors.ResolutionBits = 8 }},
		{"resolution high", func(c *Config) { c.Sensors.ResolutionBits = 13 }},
		{"negative retries", func(c *Config) { c.Sensors.Retries = -1 }},
		{"fast poll", func(c *Config) { c.Poll.IntervalMs = 100 }},
		{"negative rescan", func(c *Config) { c.Poll.RescanEvery = -2 }},
		{"log level", func(c *Config) { c.Log.Level = "loud" }},
		{"influx bucket", func(c *Config) { c.Influx = &InfluxConfig{URL: "http://x", Org: "o"} }},
		{"http addr", func(c *Config) { c.HTTP = &HTTPConfig{} }},
		{"frame path", func(c *Config) { c.Frame = &FrameConfig{} }},
		{"frame size", func(c *Config) { c.Frame = &FrameConfig{Path: "a.png", Width: -1} }},
	}
	for _, line := range data {
		t.Run(line.name, func(t *testing.T) {
			c := valid()
			line.modify(c)
			if err := Validate(c); err == nil {
				t.Fatal("expected an error")
			}
		})
	}
}

func TestValidate_rpio(t *testing.T) {
	c := valid()
	c.Bus.Driver = DriverRPIO
	c.Bus.Pin = "4"
	if err := Validate(c); err != nil {
		t.Fatal(err)
	}
}

func TestNormalize_keepsValues(t *testing.T) {
	c := valid()
	c.Bus.MaxDevices = 3
	c.Sensors.ResolutionBits = 9
	c.Poll.IntervalMs = 1000
	Normalize(c)
	if c.Bus.Driver != DriverPeriph || c.Bus.MaxDevices != 3 || c.Sensors.ResolutionBits != 9 || c.Poll.IntervalMs != 1000 {
		t.Fatalf("unexpected %+v", c)
	}
	Normalize(nil)
}
