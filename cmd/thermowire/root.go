// Copyright 2026 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package main

import (
	"os"

	"github.com/GermanBionicSystems/thermowire/internal/config"
	"github.com/charmbracelet/log"
	"github.com/pkg/errors"
	"github.com/spf13/cobra"
)

var (
	configPath string
	pinFlag    string
	driverFlag string
	levelFlag  string
)

var rootCmd = &cobra.Command{
	Use:   "thermowire",
	Short: "1-wire temperature sensor reader",
	Long: `thermowire drives a 1-wire bus on a single GPIO and reads the DS18S20,
DS18B20, DS1822 and DS1825 temperature sensors attached to it.

The bus is configured with a YAML file (--config) or with flags only:
  thermowire scan --pin GPIO4
  thermowire read --driver rpio --pin 4
  thermowire serve --config /etc/thermowire.yaml`,
	SilenceUsage: true,
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "YAML configuration file")
	rootCmd.PersistentFlags().StringVarP(&pinFlag, "pin", "p", "", "Data pin, overrides bus.pin")
	rootCmd.PersistentFlags().StringVar(&driverFlag, "driver", "", "GPIO backend (periph or rpio), overrides bus.driver")
	rootCmd.PersistentFlags().StringVar(&levelFlag, "log-level", "", "Log level, overrides log.level")
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}

// loadConfig returns the validated and normalized configuration after flag
// overrides.
func loadConfig() (*config.Config, error) {
	var cfg *config.Config
	if configPath != "" {
		var err error
		if cfg, err = config.Load(configPath); err != nil {
			return nil, err
		}
	} else {
		cfg = config.Default(pinFlag)
	}
	if pinFlag != "" {
		cfg.Bus.Pin = pinFlag
	}
	if driverFlag != "" {
		cfg.Bus.Driver = driverFlag
	}
	if levelFlag != "" {
		cfg.Log.Level = levelFlag
	}
	if err := config.Validate(cfg); err != nil {
		return nil, errors.Wrap(err, "invalid configuration")
	}
	config.Normalize(cfg)
	return cfg, nil
}

func newLogger(cfg *config.Config) *log.Logger {
	return log.NewWithOptions(os.Stderr, log.Options{
		Prefix:          "thermowire",
		Level:           cfg.LogLevel(),
		ReportTimestamp: true,
	})
}
