// Copyright 2026 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package main

import (
	"fmt"

	"github.com/GermanBionicSystems/thermowire/common"
	"github.com/GermanBionicSystems/thermowire/ds18x20"
	"github.com/GermanBionicSystems/thermowire/owgpio"
	"github.com/pkg/errors"
	"github.com/spf13/cobra"
	"periph.io/x/conn/v3/onewire"
)

var scanAlarm bool

var scanCmd = &cobra.Command{
	Use:   "scan",
	Short: "List the devices on the bus",
	Long: `Search the bus and list every device found with its family and, for
temperature sensors, whether it is parasite powered.

Devices found past bus.max_devices are reported in the log and not listed.`,
	RunE: runScan,
}

func init() {
	rootCmd.AddCommand(scanCmd)
	scanCmd.Flags().BoolVar(&scanAlarm, "alarm", false, "List only the devices in alarm state")
}

func runScan(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	logger := newLogger(cfg)
	bus, closeBus, err := openBus(cfg)
	if err != nil {
		return err
	}
	defer closeBus()

	var addrs []onewire.Address
	if cfg.Bus.SingleDevice && !scanAlarm {
		a, err := bus.ReadROM()
		if err != nil {
			return errors.Wrap(err, "read rom failed")
		}
		addrs = append(addrs, a)
	} else {
		s := &owgpio.SearchState{Max: cfg.Bus.MaxDevices, AlarmOnly: scanAlarm}
		addrs, err = bus.Discover(s)
		if err != nil {
			return errors.Wrap(err, "search failed")
		}
		if s.Dropped != 0 {
			logger.Warn("devices not listed", "err", errors.Wrapf(common.ErrCapacity, "%d dropped", s.Dropped), "max", s.Max)
		}
	}

	devs := make([]device, 0, len(addrs))
	for _, a := range addrs {
		d := device{Addr: a}
		if ds18x20.FamilyOf(a).Supported() {
			d.Parasitic, d.Err = ds18x20.ReadPowerSupply(bus, a)
		}
		devs = append(devs, d)
	}
	fmt.Fprintln(cmd.OutOrStdout(), devicesTable(devs))
	return nil
}
