// Copyright 2026 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package main

import (
	"strconv"

	"github.com/GermanBionicSystems/thermowire/internal/config"
	"github.com/GermanBionicSystems/thermowire/internal/rpiopin"
	"github.com/GermanBionicSystems/thermowire/owgpio"
	"github.com/pkg/errors"
	"periph.io/x/conn/v3/gpio"
	"periph.io/x/conn/v3/gpio/gpioreg"
	"periph.io/x/host/v3"
)

// openBus opens the data pin with the configured backend. The returned
// function releases the pin.
func openBus(cfg *config.Config) (*owgpio.Dev, func(), error) {
	var p owgpio.Pin
	closer := func() {}
	switch cfg.Bus.Driver {
	case config.DriverRPIO:
		n, err := strconv.Atoi(cfg.Bus.Pin)
		if err != nil {
			return nil, nil, errors.Wrapf(err, "invalid pin %q", cfg.Bus.Pin)
		}
		rp, err := rpiopin.Open(n)
		if err != nil {
			return nil, nil, err
		}
		p = rp
		closer = func() { _ = rp.Close() }
	default:
		if _, err := host.Init(); err != nil {
			return nil, nil, errors.Wrap(err, "failed to initialize periph")
		}
		gp := gpioreg.ByName(cfg.Bus.Pin)
		if gp == nil {
			return nil, nil, errors.Errorf("pin %q not found", cfg.Bus.Pin)
		}
		p = gp
	}

	opts := owgpio.DefaultOpts
	opts.MaxDevices = cfg.Bus.MaxDevices
	if cfg.Bus.Pullup {
		opts.Pull = gpio.PullUp
	}
	d, err := owgpio.New(p, &opts)
	if err != nil {
		closer()
		return nil, nil, err
	}
	return d, func() {
		_ = d.Halt()
		closer()
	}, nil
}
