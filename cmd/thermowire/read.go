// Copyright 2026 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"
)

var readCount int

var readCmd = &cobra.Command{
	Use:   "read",
	Short: "Read every temperature sensor on the bus",
	Long: `Start a conversion on every sensor, read the results and print them.

With --count, the cycle repeats every poll.interval_ms. The command fails
if the last cycle had a failure.`,
	RunE: runRead,
}

func init() {
	rootCmd.AddCommand(readCmd)
	readCmd.Flags().IntVarP(&readCount, "count", "n", 1, "Number of poll cycles")
}

func runRead(cmd *cobra.Command, args []string) error {
	if readCount < 1 {
		return errors.Errorf("invalid count %d", readCount)
	}
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

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var last error
	for i := 0; i < readCount; i++ {
		if i != 0 {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(cfg.Interval()):
			}
		}
		// Failed cycles are logged by the poller.
		res := p.PollOnce(ctx)
		if res.Err == nil {
			fmt.Fprintln(cmd.OutOrStdout(), readingsTable(&res))
		}
		last = res.FirstError()
	}
	return last
}
