// Copyright 2026 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package api

import (
	"encoding/json"
	"errors"
	"image/png"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/GermanBionicSystems/thermowire/common"
	"github.com/GermanBionicSystems/thermowire/ds18x20"
	"github.com/GermanBionicSystems/thermowire/internal/poller"
	"github.com/google/go-cmp/cmp"
	"periph.io/x/conn/v3/onewire"
)

type fakeSource struct {
	res     poller.Result
	devices []onewire.Address
	err     error
}

func (f *fakeSource) Last() poller.Result                  { return f.res }
func (f *fakeSource) Devices() []onewire.Address           { return f.devices }
func (f *fakeSource) Discover() ([]onewire.Address, error) { return f.devices, f.err }

var at = time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)

func source() *fakeSource {
	return &fakeSource{
		res: poller.Result{
			Cycle: 7,
			At:    at,
			Readings: []ds18x20.Reading{
				{Addr: 0x740000070e41ac28, Family: ds18x20.DS18B20, Raw: ds18x20.Raw{Temperature: 400}, Celsius: 25},
			},
			Failures: []poller.Failure{{Addr: 0x2e000801b7c1d310, Err: common.ErrChecksum}},
		},
		devices: []onewire.Address{0x740000070e41ac28, 0x2e000801b7c1d310},
	}
}

func do(t *testing.T, s *Server, method, path string, want int, v interface{}) {
	t.Helper()
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, httptest.NewRequest(method, path, nil))
	if rec.Code != want {
		t.Fatalf("%s %s: status %d, body %q", method, path, rec.Code, rec.Body)
	}
	if v != nil {
		if ct := rec.Header().Get("Content-Type"); ct != "application/json" {
			t.Fatalf("content type %q", ct)
		}
		if err := json.Unmarshal(rec.Body.Bytes(), v); err != nil {
			t.Fatal(err)
		}
	}
}

func TestReadings(t *testing.T) {
	s := New(source(), nil)
	var got Snapshot
	do(t, s, "GET", "/readings", http.StatusOK, &got)
	want := Snapshot{
		Cycle:    7,
		At:       at,
		Sensors:  []Sensor{{ID: "28-0000070e41ac", Family: "DS18B20", Celsius: 25, Raw: 400}},
		Failures: []Failure{{ID: "10-000801b7c1d3", Error: common.ErrChecksum.Error()}},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("mismatch (-want +got):\n%s", diff)
	}
}

func TestReading(t *testing.T) {
	s := New(source(), nil)
	var got Sensor
	do(t, s, "GET", "/readings/28-0000070e41ac", http.StatusOK, &got)
	if got.Celsius != 25 {
		t.Fatalf("unexpected %+v", got)
	}
	do(t, s, "GET", "/readings/28-000000000000", http.StatusNotFound, nil)
}

func TestDevices(t *testing.T) {
	s := New(source(), nil)
	var got []string
	do(t, s, "GET", "/devices", http.StatusOK, &got)
	if diff := cmp.Diff([]string{"28-0000070e41ac", "10-000801b7c1d3"}, got); diff != "" {
		t.Fatal(diff)
	}
}

func TestScan(t *testing.T) {
	src := source()
	s := New(src, nil)
	var got []string
	do(t, s, "POST", "/scan", http.StatusOK, &got)
	if len(got) != 2 {
		t.Fatalf("unexpected %v", got)
	}
	src.err = errors.New("onewire: no device present")
	do(t, s, "POST", "/scan", http.StatusServiceUnavailable, nil)
	do(t, s, "GET", "/scan", http.StatusMethodNotAllowed, nil)
}

func TestNewSnapshot_error(t *testing.T) {
	snap := NewSnapshot(&poller.Result{Cycle: 1, Err: common.ErrNoDevice})
	if snap.Error != common.ErrNoDevice.Error() || snap.Sensors == nil || len(snap.Sensors) != 0 {
		t.Fatalf("unexpected %+v", snap)
	}
}

func TestFrame(t *testing.T) {
	s := New(source(), nil)
	data := []struct {
		path string
		w, h int
	}{
		{"/frame.png", 128, 64},
		{"/frame.png?w=32&h=16", 32, 16},
	}
	for _, line := range data {
		rec := httptest.NewRecorder()
		s.Handler().ServeHTTP(rec, httptest.NewRequest("GET", line.path, nil))
		if rec.Code != http.StatusOK || rec.Header().Get("Content-Type") != "image/png" {
			t.Fatalf("%s: status %d, content type %q", line.path, rec.Code, rec.Header().Get("Content-Type"))
		}
		img, err := png.Decode(rec.Body)
		if err != nil {
			t.Fatal(err)
		}
		if b := img.Bounds(); b.Dx() != line.w || b.Dy() != line.h {
			t.Fatalf("%s: size %v", line.path, b)
		}
	}
	for _, path := range []string{"/frame.png?w=0", "/frame.png?h=x", "/frame.png?w=4096"} {
		do(t, s, "GET", path, http.StatusBadRequest, nil)
	}
}
