// Copyright 2026 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package main

import (
	"github.com/GermanBionicSystems/thermowire/internal/config"
	"github.com/GermanBionicSystems/thermowire/internal/poller"
	"github.com/GermanBionicSystems/thermowire/owgpio"
	"github.com/charmbracelet/log"
)

func newPoller(cfg *config.Config, bus *owgpio.Dev, logger *log.Logger) (*poller.Poller, error) {
	return poller.New(poller.Config{
		Interval:       cfg.Interval(),
		ResolutionBits: cfg.Sensors.ResolutionBits,
		Retries:        cfg.Sensors.Retries,
		MaxDevices:     cfg.Bus.MaxDevices,
		SingleDevice:   cfg.Bus.SingleDevice,
		RescanEvery:    cfg.Poll.RescanEvery,
	}, bus, logger)
}
