// Copyright 2026 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package main

import (
	"strings"
	"testing"

	"github.com/GermanBionicSystems/thermowire/common"
	"github.com/GermanBionicSystems/thermowire/ds18x20"
	"github.com/GermanBionicSystems/thermowire/internal/poller"
	"periph.io/x/conn/v3/onewire"
)

const (
	addrB   onewire.Address = 0x740000070e41ac28
	addrS20 onewire.Address = 0x4f000801b7c1d310
)

func TestReadingsTable(t *testing.T) {
	res := &poller.Result{
		Cycle: 3,
		Readings: []ds18x20.Reading{{
			Addr:    addrB,
			Family:  ds18x20.DS18B20,
			Raw:     ds18x20.Raw{Temperature: 0x0191},
			Celsius: 25.0625,
		}},
		Failures: []poller.Failure{{Addr: addrS20, Err: common.ErrChecksum}},
	}
	out := readingsTable(res)
	for _, want := range []string{
		"CELSIUS", "28-0000070e41ac", "DS18B20", "25.0625", "0x0191",
		"10-000801b7c1d3", "DS18S20", common.ErrChecksum.Error(),
	} {
		if !strings.Contains(out, want) {
			t.Errorf("missing %q in\n%s", want, out)
		}
	}
	// Readings come before failures.
	if strings.Index(out, "28-0000070e41ac") > strings.Index(out, "10-000801b7c1d3") {
		t.Fatalf("failure listed first:\n%s", out)
	}
}

func TestDevicesTable(t *testing.T) {
	out := devicesTable([]device{
		{Addr: addrB, Parasitic: true},
		{Addr: addrS20},
		{Addr: 0x0000000000000001},
	})
	lines := strings.Split(out, "\n")
	find := func(id string) string {
		for _, l := range lines {
			if strings.Contains(l, id) {
				return l
			}
		}
		t.Fatalf("%s not listed in\n%s", id, out)
		return ""
	}
	if l := find("28-0000070e41ac"); !strings.Contains(l, "parasitic") || !strings.Contains(l, "true") {
		t.Errorf("bad row %q", l)
	}
	if l := find("10-000801b7c1d3"); !strings.Contains(l, "external") {
		t.Errorf("bad row %q", l)
	}
	if l := find("01-000000000000"); !strings.Contains(l, "unknown") || !strings.Contains(l, "false") {
		t.Errorf("bad row %q", l)
	}
}
