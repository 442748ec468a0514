// Copyright 2026 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package main

import (
	"context"
	"os"
	"os/signal"
	"sync"
	"syscall"

	"github.com/GermanBionicSystems/thermowire/indicator"
	"github.com/GermanBionicSystems/thermowire/internal/api"
	"github.com/GermanBionicSystems/thermowire/internal/config"
	"github.com/GermanBionicSystems/thermowire/internal/frame"
	"github.com/GermanBionicSystems/thermowire/internal/poller"
	"github.com/GermanBionicSystems/thermowire/internal/sink"
	"github.com/charmbracelet/log"
	"github.com/spf13/cobra"
)

var serveLED bool

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Poll the sensors until interrupted",
	Long: `Poll every sensor each poll.interval_ms and publish the results to the
configured outputs:

  influx: one point per reading
  http:   JSON on GET /readings, /readings/:id and /devices, PNG on /frame.png
  frame:  a PNG summary rewritten after every cycle

With --led, the outcome of each cycle is shown as an error code on a row of
LEDs emulated on the console.`,
	RunE: runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)
	serveCmd.Flags().BoolVar(&serveLED, "led", false, "Show the error code of each cycle on the console")
}

func runServe(cmd *cobra.Command, args []string) error {
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
	p, err := newPoller(cfg, bus, logger)
	if err != nil {
		return err
	}
	if serveLED {
		led := indicator.New(&indicator.Opts{})
		defer led.Halt()
		p.SetIndicator(led)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var wg sync.WaitGroup
	errc := make(chan error, 1)
	if cfg.HTTP != nil {
		srv := api.New(p, logger)
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := srv.ListenAndServe(ctx, cfg.HTTP.Addr); err != nil {
				errc <- err
				stop()
			}
		}()
	}

	results := make(chan poller.Result)
	wg.Add(1)
	go func() {
		defer wg.Done()
		defer close(results)
		p.Run(ctx, results)
	}()

	publish(ctx, cfg, results, logger)
	wg.Wait()
	select {
	case err := <-errc:
		return err
	default:
		return nil
	}
}

// publish sends every result to the configured outputs until results is
// closed. Output failures are logged and do not stop the poller.
func publish(ctx context.Context, cfg *config.Config, results <-chan poller.Result, logger *log.Logger) {
	var influx *sink.Influx
	if cfg.Influx != nil {
		influx = sink.NewInflux(cfg.Influx, logger)
		defer influx.Close()
	}
	for res := range results {
		if res.Err == nil {
			logger.Info("cycle", "cycle", res.Cycle, "readings", len(res.Readings), "failures", len(res.Failures))
		}
		if influx != nil {
			if err := influx.Write(ctx, &res); err != nil {
				logger.Warn("influx write failed", "err", err)
			}
		}
		if f := cfg.Frame; f != nil {
			if err := frame.Save(f.Path, &res, f.Width, f.Height); err != nil {
				logger.Warn("frame save failed", "err", err)
			}
		}
	}
}
