// Copyright 2026 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/charmbracelet/log"
	"github.com/google/go-cmp/cmp"
)

const sample = `
bus:
  driver: rpio
  pin: "4"
  max_devices: 4
sensors:
  resolution_bits: 10
  retries: 3
poll:
  interval_ms: 2000
log:
  level: debug
influx:
  url: http://localhost:8086
  token: secret
  org: home
  bucket: sensors
http:
  addr: ":8080"
frame:
  path: /tmp/thermowire.png
`

func TestLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "thermowire.yaml")
	if err := os.WriteFile(path, []byte(sample), 0o600); err != nil {
		t.Fatal(err)
	}
	cfg, err := Load(path)
	if err != nil {
		t.Fatal(err)
	}
	if err := Validate(cfg); err != nil {
		t.Fatal(err)
	}
	Normalize(cfg)
	want := &Config{
		Bus:     BusConfig{Driver: "rpio", Pin: "4", MaxDevices: 4},
		Sensors: SensorsConfig{ResolutionBits: 10, Retries: 3},
		Poll:    PollConfig{IntervalMs: 2000},
		Log:     LogConfig{Level: "debug"},
		Influx: &InfluxConfig{
			URL: "http://localhost:8086", Token: "secret", Org: "home", Bucket: "sensors",
			Measurement: DefaultMeasurement,
		},
		HTTP:  &HTTPConfig{Addr: ":8080"},
		Frame: &FrameConfig{Path: "/tmp/thermowire.png", Width: DefaultFrameWidth, Height: DefaultFrameHeight},
	}
	if diff := cmp.Diff(want, cfg); diff != "" {
		t.Fatalf("Load() mismatch (-want +got):\n%s", diff)
	}
	if cfg.Interval() != 2*time.Second {
		t.Fatal(cfg.Interval())
	}
	if cfg.LogLevel() != log.DebugLevel {
		t.Fatal(cfg.LogLevel())
	}
}

func TestLoad_missing(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "nope.yaml")); err == nil {
		t.Fatal("missing file accepted")
	}
}

func TestParse_unknownKey(t *testing.T) {
	_, err := Parse([]byte("bus:\n  pins: GPIO4\n"))
	if err == nil || !strings.Contains(err.Error(), "failed to parse config") {
		t.Fatalf("unknown key accepted: %v", err)
	}
}

func TestParse_empty(t *testing.T) {
	cfg, err := Parse(nil)
	if err != nil {
		t.Fatal(err)
	}
	want := &Config{Sensors: SensorsConfig{Retries: DefaultRetries}}
	if diff := cmp.Diff(want, cfg); diff != "" {
		t.Fatal(diff)
	}
}

func TestParse_retries(t *testing.T) {
	data := []struct {
		doc  string
		want int
	}{
		{"bus:\n  pin: GPIO4\n", DefaultRetries},
		{"sensors:\n  resolution_bits: 10\n", DefaultRetries},
		{"sensors:\n  retries: 0\n", 0},
		{"sensors:\n  retries: 5\n", 5},
	}
	for _, line := range data {
		cfg, err := Parse([]byte(line.doc))
		if err != nil {
			t.Fatal(err)
		}
		if cfg.Sensors.Retries != line.want {
			t.Errorf("Parse(%q) retries=%d expected %d", line.doc, cfg.Sensors.Retries, line.want)
		}
	}
}

func TestDefault(t *testing.T) {
	cfg := Default("GPIO4")
	if err := Validate(cfg); err != nil {
		t.Fatal(err)
	}
	want := &Config{
		Bus:     BusConfig{Driver: DriverPeriph, Pin: "GPIO4", MaxDevices: DefaultMaxDevices},
		Sensors: SensorsConfig{ResolutionBits: DefaultResolutionBits, Retries: DefaultRetries},
		Poll:    PollConfig{IntervalMs: DefaultIntervalMs},
		Log:     LogConfig{Level: "info"},
	}
	if diff := cmp.Diff(want, cfg); diff != "" {
		t.Fatalf("Default() mismatch (-want +got):\n%s", diff)
	}
	if cfg.LogLevel() != log.InfoLevel {
		t.Fatal(cfg.LogLevel())
	}
}
