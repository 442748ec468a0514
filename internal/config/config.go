// Copyright 2026 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

// Package config loads the YAML configuration of thermowire.
//
// The expected call sequence is Load, Validate, then Normalize.
package config

import (
	"bytes"
	"io"
	"os"
	"time"

	"github.com/charmbracelet/log"
	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"
)

type Config struct {
	Bus     BusConfig     `yaml:"bus"`
	Sensors SensorsConfig `yaml:"sensors"`
	Poll    PollConfig    `yaml:"poll"`
	Log     LogConfig     `yaml:"log"`

	// Optional outputs.
	Influx *InfluxConfig `yaml:"influx"`
	HTTP   *HTTPConfig   `yaml:"http"`
	Frame  *FrameConfig  `yaml:"frame"`
}

// ---- BUS ----

type BusConfig struct {
	// Driver selects the GPIO backend: "periph" or "rpio".
	Driver string `yaml:"driver"`
	// Pin is a periph pin name (GPIO4) or, for rpio, a BCM number.
	Pin        string `yaml:"pin"`
	MaxDevices int    `yaml:"max_devices"`
	// SingleDevice reads the only device address with Read ROM instead of
	// searching the bus.
	SingleDevice bool `yaml:"single_device"`
	// Pullup enables the internal pull-up of the pin while the line is
	// released.
	Pullup bool `yaml:"pullup"`
}

// ---- SENSORS ----

type SensorsConfig struct {
	ResolutionBits int `yaml:"resolution_bits"`
	// Retries is the number of extra reads after a checksum failure.
	Retries int `yaml:"retries"`
}

// ---- POLL ----

type PollConfig struct {
	IntervalMs int `yaml:"interval_ms"`
	// RescanEvery searches the bus again every n cycles; 0 searches once.
	RescanEvery int `yaml:"rescan_every"`
}

// ---- LOG ----

type LogConfig struct {
	Level string `yaml:"level"`
}

// ---- OUTPUTS ----

type InfluxConfig struct {
	URL         string `yaml:"url"`
	Token       string `yaml:"token"`
	Org         string `yaml:"org"`
	Bucket      string `yaml:"bucket"`
	Measurement string `yaml:"measurement"`
}

type HTTPConfig struct {
	Addr string `yaml:"addr"`
}

type FrameConfig struct {
	Path   string `yaml:"path"`
	Width  int    `yaml:"width"`
	Height int    `yaml:"height"`
}

// Load reads the configuration file at path. Unknown keys are rejected.
func Load(path string) (*Config, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrap(err, "failed to read config")
	}
	return Parse(raw)
}

// Parse decodes a YAML document. Keys left out keep their zero value, except
// sensors.retries which defaults to DefaultRetries since 0 disables retries.
func Parse(raw []byte) (*Config, error) {
	cfg := &Config{Sensors: SensorsConfig{Retries: DefaultRetries}}
	dec := yaml.NewDecoder(bytes.NewReader(raw))
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil && err != io.EOF {
		return nil, errors.Wrap(err, "failed to parse config")
	}
	return cfg, nil
}

// Interval returns the poll interval.
func (c *Config) Interval() time.Duration {
	return time.Duration(c.Poll.IntervalMs) * time.Millisecond
}

// LogLevel returns the configured level, info when unset or invalid.
func (c *Config) LogLevel() log.Level {
	l, err := log.ParseLevel(c.Log.Level)
	if err != nil || c.Log.Level == "" {
		return log.InfoLevel
	}
	return l
}
