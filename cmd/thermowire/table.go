// Copyright 2026 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package main

import (
	"fmt"
	"strconv"

	"github.com/GermanBionicSystems/thermowire/ds18x20"
	"github.com/GermanBionicSystems/thermowire/internal/poller"
	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"periph.io/x/conn/v3/onewire"
)

var (
	headerStyle = lipgloss.NewStyle().Bold(true).Padding(0, 1)
	cellStyle   = lipgloss.NewStyle().Padding(0, 1)
	errorStyle  = lipgloss.NewStyle().Padding(0, 1).Foreground(lipgloss.Color("9"))
	borderStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("240"))
)

// device is one row of the scan output.
type device struct {
	Addr      onewire.Address
	Parasitic bool
	Err       error
}

func newTable(headers ...string) *table.Table {
	return table.New().
		Border(lipgloss.NormalBorder()).
		BorderStyle(borderStyle).
		Headers(headers...)
}

// devicesTable renders the result of a bus scan.
func devicesTable(devs []device) string {
	t := newTable("ID", "FAMILY", "SUPPORTED", "POWER")
	var failed []bool
	for _, d := range devs {
		f := ds18x20.FamilyOf(d.Addr)
		power := "external"
		switch {
		case d.Err != nil:
			power = d.Err.Error()
		case !f.Supported():
			power = "-"
		case d.Parasitic:
			power = "parasitic"
		}
		t.Row(ds18x20.ID(d.Addr), f.String(), strconv.FormatBool(f.Supported()), power)
		failed = append(failed, d.Err != nil)
	}
	t.StyleFunc(func(row, col int) lipgloss.Style {
		switch {
		case row == table.HeaderRow:
			return headerStyle
		case row >= 0 && row < len(failed) && failed[row]:
			return errorStyle
		}
		return cellStyle
	})
	return t.String()
}

// readingsTable renders one poll cycle, failures last.
func readingsTable(res *poller.Result) string {
	t := newTable("ID", "FAMILY", "CELSIUS", "RAW")
	for _, r := range res.Readings {
		t.Row(r.ID(), r.Family.String(), fmt.Sprintf("%.4f", r.Celsius), fmt.Sprintf("%#04x", uint16(r.Raw.Temperature)))
	}
	n := len(res.Readings)
	for _, f := range res.Failures {
		t.Row(ds18x20.ID(f.Addr), ds18x20.FamilyOf(f.Addr).String(), "-", f.Err.Error())
	}
	t.StyleFunc(func(row, col int) lipgloss.Style {
		switch {
		case row == table.HeaderRow:
			return headerStyle
		case row >= n:
			return errorStyle
		}
		return cellStyle
	})
	return t.String()
}
